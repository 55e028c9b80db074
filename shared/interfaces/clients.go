package interfaces

import (
	"context"

	"storyteller-server/shared/models"
)

// StoryFlowClient - клиент внешнего генератора повествования.
// Ошибки транспорта и ответы с ok=false оборачиваются в
// models.ErrGenerationFailed; состояние сессии при этом не меняется.
type StoryFlowClient interface {
	// GenerateBeat requests the next beat (or a warmup reply, or a
	// replacement options list when req.MoreOptions is set).
	GenerateBeat(ctx context.Context, req models.BeatRequest) (*models.BeatResponse, error)

	// GenerateEndings requests ending choices for the session.
	GenerateEndings(ctx context.Context, sessionID string) (*models.EndingsResponse, error)

	// FinalizeStory asks the generator to produce the final story text for
	// the selected ending.
	FinalizeStory(ctx context.Context, sessionID, endingID string) (*models.BeatResponse, error)
}

// CharacterClient - клиент сервиса персонажей.
type CharacterClient interface {
	CreateCharacter(ctx context.Context, req models.CreateCharacterRequest) (*models.CreateCharacterResponse, error)
}

// CompileClient - клиент компилятора книги.
type CompileClient interface {
	Compile(ctx context.Context, req models.CompileRequest) (*models.CompileResponse, error)
}

// PushNotifier уведомляет родителя о готовности (или проблеме) книги.
type PushNotifier interface {
	NotifyStoryCompiled(ctx context.Context, parentUID, sessionID string, compiled bool) error
}
