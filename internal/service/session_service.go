package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"storyteller-server/internal/messaging"
	"storyteller-server/shared/interfaces"
	"storyteller-server/shared/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BeatResult - результат продвигающей историю операции: добавленные (или
// замещенные) сообщения плюс состояние паузы знакомства, если она началась.
type BeatResult struct {
	Messages     []models.ChatMessage        `json:"messages"`
	Introduction *models.PendingIntroduction `json:"introduction,omitempty"`
	Phase        models.SessionPhase         `json:"phase"`
}

// SessionService defines the core story-session progression engine:
// the phase state machine, the generation orchestrator, the character
// introduction workflow and the traits side channel.
type SessionService interface {
	// StartSession creates a new session in the warmup phase and asks the
	// generator for an opening warmup question.
	StartSession(ctx context.Context, parentUID, childID string) (*models.StorySession, error)

	// GetSession returns the session after an ownership check.
	GetSession(ctx context.Context, parentUID, sessionID string) (*models.StorySession, error)

	// ListMessages returns the ordered message log after an ownership check.
	ListMessages(ctx context.Context, parentUID, sessionID string) ([]models.ChatMessage, error)

	// ListStoryTypes returns the active story-type catalog.
	ListStoryTypes(ctx context.Context) ([]models.StoryType, error)

	// SelectStoryType binds a story type to the session, flips the phase to
	// story at arc step 0 and runs the first beat. Идемпотентность: повторный
	// выбор отклоняется с ErrStoryTypeAlreadySet.
	SelectStoryType(ctx context.Context, parentUID, sessionID, storyTypeID string) (*BeatResult, error)

	// SendChildMessage routes the child's free text: to the open traits
	// question when one is pending, otherwise as ordinary dialogue.
	SendChildMessage(ctx context.Context, parentUID, sessionID, text string) (*BeatResult, error)

	// ChooseOption processes a selected option from the latest beat-options
	// message: more-options re-query, character introduction pause, or arc
	// advancement into the next beat / the ending flow.
	ChooseOption(ctx context.Context, parentUID, sessionID, optionID string) (*BeatResult, error)

	// ContinueAfterIntroduction acknowledges the introduction pause and
	// replays the original pending option.
	ContinueAfterIntroduction(ctx context.Context, parentUID, sessionID string) (*BeatResult, error)

	// MoreOptions re-queries the generator and replaces the latest options
	// message in place (message count unchanged).
	MoreOptions(ctx context.Context, parentUID, sessionID string) (*BeatResult, error)

	// ChooseEnding accepts exactly one ending (write-once), appends the final
	// story and leaves compilation to the auto-compile watcher.
	ChooseEnding(ctx context.Context, parentUID, sessionID, endingID string) (*BeatResult, error)

	// WatchMessages streams message-log snapshots after an ownership check.
	WatchMessages(ctx context.Context, parentUID, sessionID string) (<-chan []models.ChatMessage, error)
}

type sessionServiceImpl struct {
	sessionRepo     interfaces.SessionRepository
	storyTypeRepo   interfaces.StoryTypeRepository
	entityRepo      interfaces.EntityRepository
	resolver        interfaces.ActorResolver
	flowClient      interfaces.StoryFlowClient
	characterClient interfaces.CharacterClient
	avatarPublisher messaging.AvatarTaskPublisher
	logger          *zap.Logger

	// inflight - серверный эквивалент клиентского busy-флага: не больше одной
	// продвигающей историю операции на сессию одновременно.
	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewSessionService creates a new instance of SessionService.
func NewSessionService(
	sessionRepo interfaces.SessionRepository,
	storyTypeRepo interfaces.StoryTypeRepository,
	entityRepo interfaces.EntityRepository,
	resolver interfaces.ActorResolver,
	flowClient interfaces.StoryFlowClient,
	characterClient interfaces.CharacterClient,
	avatarPublisher messaging.AvatarTaskPublisher,
	logger *zap.Logger,
) SessionService {
	return &sessionServiceImpl{
		sessionRepo:     sessionRepo,
		storyTypeRepo:   storyTypeRepo,
		entityRepo:      entityRepo,
		resolver:        resolver,
		flowClient:      flowClient,
		characterClient: characterClient,
		avatarPublisher: avatarPublisher,
		logger:          logger.Named("SessionService"),
		inflight:        make(map[string]struct{}),
	}
}

// beginOp занимает busy-слот сессии или возвращает ErrOperationInFlight.
func (s *sessionServiceImpl) beginOp(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[sessionID]; busy {
		return models.ErrOperationInFlight
	}
	s.inflight[sessionID] = struct{}{}
	return nil
}

// endOp освобождает busy-слот. Вызывается в defer: провал сетевого вызова
// просто снимает флаг и позволяет повторить то же действие.
func (s *sessionServiceImpl) endOp(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, sessionID)
}

// loadOwnedSession загружает сессию и проверяет владельца.
func (s *sessionServiceImpl) loadOwnedSession(ctx context.Context, parentUID, sessionID string) (*models.StorySession, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.ParentUID != parentUID {
		s.logger.Warn("User attempted to access session they do not own",
			zap.String("sessionID", sessionID),
			zap.String("ownerUID", session.ParentUID))
		return nil, models.ErrForbidden
	}
	return session, nil
}

func (s *sessionServiceImpl) StartSession(ctx context.Context, parentUID, childID string) (*models.StorySession, error) {
	log := s.logger.With(zap.String("parentUID", parentUID), zap.String("childID", childID))

	if childID == "" {
		return nil, fmt.Errorf("%w: childId is required", models.ErrInvalidInput)
	}
	// Профиль ребенка должен существовать
	if _, err := s.entityRepo.GetDisplay(ctx, childID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrChildNotFound
		}
		return nil, err
	}

	session := &models.StorySession{
		ID:           uuid.NewString(),
		ChildID:      childID,
		ParentUID:    parentUID,
		CurrentPhase: models.PhaseWarmup,
		ArcStepIndex: 0,
		Actors:       []string{},
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}
	log.Info("Story session created", zap.String("sessionID", session.ID))

	// Открывающий warmup-вопрос. Его провал не откатывает создание сессии:
	// клиент может запросить первую реплику повторно.
	if _, err := s.runWarmup(ctx, session, nil); err != nil {
		log.Warn("Opening warmup question failed, session created without it",
			zap.String("sessionID", session.ID), zap.Error(err))
	}

	return session, nil
}

func (s *sessionServiceImpl) GetSession(ctx context.Context, parentUID, sessionID string) (*models.StorySession, error) {
	return s.loadOwnedSession(ctx, parentUID, sessionID)
}

func (s *sessionServiceImpl) ListMessages(ctx context.Context, parentUID, sessionID string) ([]models.ChatMessage, error) {
	if _, err := s.loadOwnedSession(ctx, parentUID, sessionID); err != nil {
		return nil, err
	}
	return s.sessionRepo.ListMessages(ctx, sessionID)
}

func (s *sessionServiceImpl) WatchMessages(ctx context.Context, parentUID, sessionID string) (<-chan []models.ChatMessage, error) {
	if _, err := s.loadOwnedSession(ctx, parentUID, sessionID); err != nil {
		return nil, err
	}
	return s.sessionRepo.WatchMessages(ctx, sessionID)
}

func (s *sessionServiceImpl) ListStoryTypes(ctx context.Context) ([]models.StoryType, error) {
	return s.storyTypeRepo.ListActive(ctx)
}

func (s *sessionServiceImpl) SelectStoryType(ctx context.Context, parentUID, sessionID, storyTypeID string) (*BeatResult, error) {
	log := s.logger.With(zap.String("sessionID", sessionID), zap.String("storyTypeID", storyTypeID))

	session, err := s.loadOwnedSession(ctx, parentUID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.StoryTypeChosen() {
		return nil, models.ErrStoryTypeAlreadySet
	}

	storyType, err := s.storyTypeRepo.GetByID(ctx, storyTypeID)
	if err != nil {
		return nil, err
	}

	if err := s.beginOp(sessionID); err != nil {
		return nil, err
	}
	defer s.endOp(sessionID)

	// Выбор типа и первый бит коммитятся вместе: провал генерации оставляет
	// сессию в состоянии "тип не выбран", частичных переходов нет.
	now := time.Now().UTC()
	phase := models.PhaseStory
	zero := 0
	update := models.SessionUpdate{
		StoryTypeID:       &storyType.ID,
		CurrentPhase:      &phase,
		ArcStepIndex:      &zero,
		WarmupCompletedAt: &now,
		StoryTypeChosenAt: &now,
	}

	session.StoryTypeID = &storyType.ID
	session.CurrentPhase = models.PhaseStory
	session.ArcStepIndex = 0

	result, err := s.runBeat(ctx, session, beatInput{}, update)
	if err != nil {
		log.Warn("First beat generation failed, story type selection not persisted", zap.Error(err))
		return nil, err
	}
	log.Info("Story type selected, first beat generated")
	return result, nil
}
