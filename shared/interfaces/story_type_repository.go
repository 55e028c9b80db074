package interfaces

import (
	"context"

	"storyteller-server/shared/models"
)

// StoryTypeRepository defines the catalog contract (story templates and
// compile output types, админ-каталог в Postgres).
type StoryTypeRepository interface {
	// GetByID returns the story type with its ordered arc steps or
	// models.ErrStoryTypeNotFound.
	GetByID(ctx context.Context, storyTypeID string) (*models.StoryType, error)

	// ListActive returns active story types (arc steps included), ordered by title.
	ListActive(ctx context.Context) ([]models.StoryType, error)

	// GetDefaultOutputType returns the default compile output type, or
	// models.ErrNotFound when the catalog has none loaded yet (автокомпиляция
	// в этом случае откладывается).
	GetDefaultOutputType(ctx context.Context) (*models.StoryOutputType, error)
}
