package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"storyteller-server/internal/service"
	"storyteller-server/shared/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testJWTSecret = "test-secret"

// mockSessionService - мок сервисного слоя для HTTP тестов.
type mockSessionService struct {
	mock.Mock
}

func (m *mockSessionService) StartSession(ctx context.Context, parentUID, childID string) (*models.StorySession, error) {
	args := m.Called(ctx, parentUID, childID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StorySession), args.Error(1)
}

func (m *mockSessionService) GetSession(ctx context.Context, parentUID, sessionID string) (*models.StorySession, error) {
	args := m.Called(ctx, parentUID, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StorySession), args.Error(1)
}

func (m *mockSessionService) ListMessages(ctx context.Context, parentUID, sessionID string) ([]models.ChatMessage, error) {
	args := m.Called(ctx, parentUID, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ChatMessage), args.Error(1)
}

func (m *mockSessionService) ListStoryTypes(ctx context.Context) ([]models.StoryType, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.StoryType), args.Error(1)
}

func (m *mockSessionService) SelectStoryType(ctx context.Context, parentUID, sessionID, storyTypeID string) (*service.BeatResult, error) {
	args := m.Called(ctx, parentUID, sessionID, storyTypeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.BeatResult), args.Error(1)
}

func (m *mockSessionService) SendChildMessage(ctx context.Context, parentUID, sessionID, text string) (*service.BeatResult, error) {
	args := m.Called(ctx, parentUID, sessionID, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.BeatResult), args.Error(1)
}

func (m *mockSessionService) ChooseOption(ctx context.Context, parentUID, sessionID, optionID string) (*service.BeatResult, error) {
	args := m.Called(ctx, parentUID, sessionID, optionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.BeatResult), args.Error(1)
}

func (m *mockSessionService) ContinueAfterIntroduction(ctx context.Context, parentUID, sessionID string) (*service.BeatResult, error) {
	args := m.Called(ctx, parentUID, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.BeatResult), args.Error(1)
}

func (m *mockSessionService) MoreOptions(ctx context.Context, parentUID, sessionID string) (*service.BeatResult, error) {
	args := m.Called(ctx, parentUID, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.BeatResult), args.Error(1)
}

func (m *mockSessionService) ChooseEnding(ctx context.Context, parentUID, sessionID, endingID string) (*service.BeatResult, error) {
	args := m.Called(ctx, parentUID, sessionID, endingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.BeatResult), args.Error(1)
}

func (m *mockSessionService) WatchMessages(ctx context.Context, parentUID, sessionID string) (<-chan []models.ChatMessage, error) {
	args := m.Called(ctx, parentUID, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan []models.ChatMessage), args.Error(1)
}

var _ service.SessionService = (*mockSessionService)(nil)

func newTestServer(t *testing.T) (*echo.Echo, *mockSessionService) {
	t.Helper()
	svc := new(mockSessionService)
	watcher := service.NewCompileWatcher(nil, nil, nil, nil, zap.NewNop())
	watcher.Start(context.Background())
	h := NewStoryHandler(svc, watcher, zap.NewNop(), testJWTSecret)
	e := echo.New()
	h.RegisterRoutes(e)
	return e, svc
}

func parentToken(t *testing.T, parentUID string) string {
	t.Helper()
	claims := models.Claims{
		ParentUID: parentUID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return token
}

func doRequest(e *echo.Echo, method, path, token, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAuthRequired(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doRequest(e, http.MethodGet, "/api/sessions/sess-1", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(e, http.MethodGet, "/api/sessions/sess-1", "not-a-token", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStartSessionEndpoint(t *testing.T) {
	e, svc := newTestServer(t)
	token := parentToken(t, "parent-1")

	svc.On("StartSession", mock.Anything, "parent-1", "child-1").Return(&models.StorySession{
		ID:           "sess-1",
		ChildID:      "child-1",
		ParentUID:    "parent-1",
		CurrentPhase: models.PhaseWarmup,
	}, nil)

	rec := doRequest(e, http.MethodPost, "/api/sessions", token, `{"childId":"child-1"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	var session models.StorySession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	assert.Equal(t, "sess-1", session.ID)
	assert.Equal(t, models.PhaseWarmup, session.CurrentPhase)
	svc.AssertExpectations(t)
}

func TestChooseOptionEndpoint(t *testing.T) {
	token := parentToken(t, "parent-1")

	t.Run("success", func(t *testing.T) {
		e, svc := newTestServer(t)
		svc.On("ChooseOption", mock.Anything, "parent-1", "sess-1", "opt-a").Return(&service.BeatResult{
			Messages: []models.ChatMessage{{ID: "m1", Kind: models.KindChildChoice}},
			Phase:    models.PhaseStory,
		}, nil)

		rec := doRequest(e, http.MethodPost, "/api/sessions/sess-1/choice", token, `{"optionId":"opt-a"}`)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing optionId", func(t *testing.T) {
		e, _ := newTestServer(t)
		rec := doRequest(e, http.MethodPost, "/api/sessions/sess-1/choice", token, `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("option not found maps to 404", func(t *testing.T) {
		e, svc := newTestServer(t)
		svc.On("ChooseOption", mock.Anything, "parent-1", "sess-1", "opt-x").
			Return(nil, models.ErrOptionNotFound)

		rec := doRequest(e, http.MethodPost, "/api/sessions/sess-1/choice", token, `{"optionId":"opt-x"}`)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("in-flight operation maps to 409", func(t *testing.T) {
		e, svc := newTestServer(t)
		svc.On("ChooseOption", mock.Anything, "parent-1", "sess-1", "opt-a").
			Return(nil, models.ErrOperationInFlight)

		rec := doRequest(e, http.MethodPost, "/api/sessions/sess-1/choice", token, `{"optionId":"opt-a"}`)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("introduction pause maps to 409", func(t *testing.T) {
		e, svc := newTestServer(t)
		svc.On("ChooseOption", mock.Anything, "parent-1", "sess-1", "opt-a").
			Return(nil, models.ErrIntroductionPending)

		rec := doRequest(e, http.MethodPost, "/api/sessions/sess-1/choice", token, `{"optionId":"opt-a"}`)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("generation failure maps to 502", func(t *testing.T) {
		e, svc := newTestServer(t)
		svc.On("ChooseOption", mock.Anything, "parent-1", "sess-1", "opt-a").
			Return(nil, models.ErrGenerationFailed)

		rec := doRequest(e, http.MethodPost, "/api/sessions/sess-1/choice", token, `{"optionId":"opt-a"}`)

		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}

func TestForeignSessionForbidden(t *testing.T) {
	e, svc := newTestServer(t)
	token := parentToken(t, "parent-2")

	svc.On("GetSession", mock.Anything, "parent-2", "sess-1").Return(nil, models.ErrForbidden)

	rec := doRequest(e, http.MethodGet, "/api/sessions/sess-1", token, "")

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestChooseEndingEndpoint(t *testing.T) {
	token := parentToken(t, "parent-1")

	t.Run("write once conflict", func(t *testing.T) {
		e, svc := newTestServer(t)
		svc.On("ChooseEnding", mock.Anything, "parent-1", "sess-1", "end-1").
			Return(nil, models.ErrEndingAlreadyChosen)

		rec := doRequest(e, http.MethodPost, "/api/sessions/sess-1/ending", token, `{"endingId":"end-1"}`)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("missing endingId", func(t *testing.T) {
		e, _ := newTestServer(t)
		rec := doRequest(e, http.MethodPost, "/api/sessions/sess-1/ending", token, `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHealthEndpoint(t *testing.T) {
	e, _ := newTestServer(t)
	rec := doRequest(e, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
