package handler

import (
	"errors"
	"net/http"

	"storyteller-server/internal/service"
	sharedMiddleware "storyteller-server/shared/middleware"
	sharedModels "storyteller-server/shared/models"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// APIError представляет стандартизированный ответ об ошибке.
type APIError struct {
	Message string `json:"message"`
}

// StoryHandler обрабатывает HTTP запросы движка историй.
type StoryHandler struct {
	service   service.SessionService
	watcher   *service.CompileWatcher
	logger    *zap.Logger
	jwtSecret string
}

// NewStoryHandler создает новый StoryHandler.
func NewStoryHandler(s service.SessionService, watcher *service.CompileWatcher, logger *zap.Logger, jwtSecret string) *StoryHandler {
	return &StoryHandler{
		service:   s,
		watcher:   watcher,
		logger:    logger.Named("StoryHandler"),
		jwtSecret: jwtSecret,
	}
}

// RegisterRoutes регистрирует маршруты движка историй.
func (h *StoryHandler) RegisterRoutes(e *echo.Echo) {
	authMiddleware := sharedMiddleware.JWTAuthMiddleware(h.jwtSecret)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	api := e.Group("/api", authMiddleware)
	{
		api.GET("/story-types", h.listStoryTypes)

		api.POST("/sessions", h.startSession)
		api.GET("/sessions/:id", h.getSession)
		api.GET("/sessions/:id/messages", h.listMessages)
		api.GET("/sessions/:id/watch", h.watchSession)

		api.POST("/sessions/:id/story-type", h.selectStoryType)
		api.POST("/sessions/:id/messages", h.sendMessage)
		api.POST("/sessions/:id/choice", h.chooseOption)
		api.POST("/sessions/:id/choice/more", h.moreOptions)
		api.POST("/sessions/:id/introduction/continue", h.continueAfterIntroduction)
		api.POST("/sessions/:id/ending", h.chooseEnding)
	}
}

// handleServiceError транслирует ошибки сервисного слоя в HTTP статусы.
func handleServiceError(c echo.Context, err error) error {
	var statusCode int
	var apiErr APIError

	switch {
	case errors.Is(err, sharedModels.ErrUnauthorized):
		statusCode = http.StatusUnauthorized
		apiErr = APIError{Message: "Unauthorized"}
	case errors.Is(err, sharedModels.ErrForbidden):
		statusCode = http.StatusForbidden
		apiErr = APIError{Message: "Access denied"}
	case errors.Is(err, sharedModels.ErrSessionNotFound),
		errors.Is(err, sharedModels.ErrStoryTypeNotFound),
		errors.Is(err, sharedModels.ErrChildNotFound),
		errors.Is(err, sharedModels.ErrOptionNotFound),
		errors.Is(err, sharedModels.ErrNotFound):
		statusCode = http.StatusNotFound
		apiErr = APIError{Message: err.Error()}
	case errors.Is(err, sharedModels.ErrStoryTypeAlreadySet),
		errors.Is(err, sharedModels.ErrEndingAlreadyChosen),
		errors.Is(err, sharedModels.ErrWrongPhase),
		errors.Is(err, sharedModels.ErrIntroductionPending),
		errors.Is(err, sharedModels.ErrNoIntroductionPending),
		errors.Is(err, sharedModels.ErrOperationInFlight):
		statusCode = http.StatusConflict
		apiErr = APIError{Message: err.Error()}
	case errors.Is(err, sharedModels.ErrStoryTypeNotChosen),
		errors.Is(err, sharedModels.ErrNoOptionsMessage),
		errors.Is(err, sharedModels.ErrInvalidInput),
		errors.Is(err, sharedModels.ErrBadRequest):
		statusCode = http.StatusBadRequest
		apiErr = APIError{Message: err.Error()}
	case errors.Is(err, sharedModels.ErrGenerationFailed),
		errors.Is(err, sharedModels.ErrCompileFailed):
		statusCode = http.StatusBadGateway
		apiErr = APIError{Message: err.Error()}
	default:
		statusCode = http.StatusInternalServerError
		apiErr = APIError{Message: "Internal server error"}
	}
	return c.JSON(statusCode, apiErr)
}

// isExpectedError отделяет ожидаемые бизнес-ошибки от тех, что стоит логировать
// как Error.
func isExpectedError(err error) bool {
	return errors.Is(err, sharedModels.ErrNotFound) ||
		errors.Is(err, sharedModels.ErrSessionNotFound) ||
		errors.Is(err, sharedModels.ErrStoryTypeNotFound) ||
		errors.Is(err, sharedModels.ErrChildNotFound) ||
		errors.Is(err, sharedModels.ErrOptionNotFound) ||
		errors.Is(err, sharedModels.ErrForbidden) ||
		errors.Is(err, sharedModels.ErrStoryTypeAlreadySet) ||
		errors.Is(err, sharedModels.ErrStoryTypeNotChosen) ||
		errors.Is(err, sharedModels.ErrEndingAlreadyChosen) ||
		errors.Is(err, sharedModels.ErrWrongPhase) ||
		errors.Is(err, sharedModels.ErrNoOptionsMessage) ||
		errors.Is(err, sharedModels.ErrIntroductionPending) ||
		errors.Is(err, sharedModels.ErrNoIntroductionPending) ||
		errors.Is(err, sharedModels.ErrOperationInFlight) ||
		errors.Is(err, sharedModels.ErrInvalidInput)
}
