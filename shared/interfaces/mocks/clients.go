package mocks

import (
	"context"

	"storyteller-server/shared/models"

	"github.com/stretchr/testify/mock"
)

// MockStoryFlowClient - мок генератора повествования.
type MockStoryFlowClient struct {
	mock.Mock
}

func (m *MockStoryFlowClient) GenerateBeat(ctx context.Context, req models.BeatRequest) (*models.BeatResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BeatResponse), args.Error(1)
}

func (m *MockStoryFlowClient) GenerateEndings(ctx context.Context, sessionID string) (*models.EndingsResponse, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EndingsResponse), args.Error(1)
}

func (m *MockStoryFlowClient) FinalizeStory(ctx context.Context, sessionID, endingID string) (*models.BeatResponse, error) {
	args := m.Called(ctx, sessionID, endingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BeatResponse), args.Error(1)
}

// MockCharacterClient - мок сервиса персонажей.
type MockCharacterClient struct {
	mock.Mock
}

func (m *MockCharacterClient) CreateCharacter(ctx context.Context, req models.CreateCharacterRequest) (*models.CreateCharacterResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CreateCharacterResponse), args.Error(1)
}

// MockCompileClient - мок компилятора книги.
type MockCompileClient struct {
	mock.Mock
}

func (m *MockCompileClient) Compile(ctx context.Context, req models.CompileRequest) (*models.CompileResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CompileResponse), args.Error(1)
}

// MockPushNotifier - мок push-уведомлений.
type MockPushNotifier struct {
	mock.Mock
}

func (m *MockPushNotifier) NotifyStoryCompiled(ctx context.Context, parentUID, sessionID string, compiled bool) error {
	args := m.Called(ctx, parentUID, sessionID, compiled)
	return args.Error(0)
}
