package mocks

import (
	"context"

	"storyteller-server/shared/models"

	"github.com/stretchr/testify/mock"
)

// MockSessionRepository - мок SessionRepository для тестов сервиса.
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, session *models.StorySession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) GetByID(ctx context.Context, sessionID string) (*models.StorySession, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StorySession), args.Error(1)
}

func (m *MockSessionRepository) ListMessages(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ChatMessage), args.Error(1)
}

func (m *MockSessionRepository) LatestOptionsMessage(ctx context.Context, sessionID string) (*models.ChatMessage, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatMessage), args.Error(1)
}

func (m *MockSessionRepository) AppendExchange(ctx context.Context, sessionID string, messages []models.ChatMessage, actorIDs []string, update models.SessionUpdate) error {
	args := m.Called(ctx, sessionID, messages, actorIDs, update)
	return args.Error(0)
}

func (m *MockSessionRepository) ReplaceLatestOptions(ctx context.Context, sessionID string, message models.ChatMessage, actorIDs []string, update models.SessionUpdate) error {
	args := m.Called(ctx, sessionID, message, actorIDs, update)
	return args.Error(0)
}

func (m *MockSessionRepository) SetEndingOnce(ctx context.Context, sessionID, endingID, endingText string, messages []models.ChatMessage, actorIDs []string, update models.SessionUpdate) error {
	args := m.Called(ctx, sessionID, endingID, endingText, messages, actorIDs, update)
	return args.Error(0)
}

func (m *MockSessionRepository) WatchMessages(ctx context.Context, sessionID string) (<-chan []models.ChatMessage, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan []models.ChatMessage), args.Error(1)
}

// MockStoryTypeRepository - мок каталога типов историй.
type MockStoryTypeRepository struct {
	mock.Mock
}

func (m *MockStoryTypeRepository) GetByID(ctx context.Context, storyTypeID string) (*models.StoryType, error) {
	args := m.Called(ctx, storyTypeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StoryType), args.Error(1)
}

func (m *MockStoryTypeRepository) ListActive(ctx context.Context) ([]models.StoryType, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.StoryType), args.Error(1)
}

func (m *MockStoryTypeRepository) GetDefaultOutputType(ctx context.Context) (*models.StoryOutputType, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StoryOutputType), args.Error(1)
}

// MockEntityRepository - мок справочника акторов.
type MockEntityRepository struct {
	mock.Mock
}

func (m *MockEntityRepository) GetDisplay(ctx context.Context, entityID string) (*models.EntityDisplay, error) {
	args := m.Called(ctx, entityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EntityDisplay), args.Error(1)
}

func (m *MockEntityRepository) UpdateCharacterTraits(ctx context.Context, characterID, traits string) error {
	args := m.Called(ctx, characterID, traits)
	return args.Error(0)
}

// MockActorResolver - мок резолвера display-форм.
type MockActorResolver struct {
	mock.Mock
}

func (m *MockActorResolver) ResolveActors(ctx context.Context, ids []string) (map[string]models.EntityDisplay, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]models.EntityDisplay), args.Error(1)
}
