package service

import (
	"context"
	"errors"
	"sync"

	"storyteller-server/shared/interfaces"
	"storyteller-server/shared/models"

	"go.uber.org/zap"
)

// CompileWatcher наблюдает за логами сессий и запускает автокомпиляцию книги
// при появлении терминального сообщения final_story.
//
// Гарантия "не больше одной попытки": сессия помечается attempted ДО вызова
// компилятора, поэтому даже упавший вызов не повторяется - повторная
// компиляция дороже, чем ручной перезапуск по жалобе.
type CompileWatcher struct {
	sessionRepo   interfaces.SessionRepository
	storyTypeRepo interfaces.StoryTypeRepository
	compileClient interfaces.CompileClient
	notifier      interfaces.PushNotifier
	logger        *zap.Logger

	mu        sync.Mutex
	baseCtx   context.Context
	watching  map[string]context.CancelFunc
	attempted map[string]struct{}
}

// NewCompileWatcher creates a new instance of CompileWatcher.
func NewCompileWatcher(
	sessionRepo interfaces.SessionRepository,
	storyTypeRepo interfaces.StoryTypeRepository,
	compileClient interfaces.CompileClient,
	notifier interfaces.PushNotifier,
	logger *zap.Logger,
) *CompileWatcher {
	return &CompileWatcher{
		sessionRepo:   sessionRepo,
		storyTypeRepo: storyTypeRepo,
		compileClient: compileClient,
		notifier:      notifier,
		logger:        logger.Named("CompileWatcher"),
		watching:      make(map[string]context.CancelFunc),
		attempted:     make(map[string]struct{}),
	}
}

// Start привязывает watcher к жизненному циклу сервера: все наблюдения
// наследуют ctx и завершаются при его отмене.
func (w *CompileWatcher) Start(ctx context.Context) {
	w.mu.Lock()
	w.baseCtx = ctx
	w.mu.Unlock()
}

// Supervise начинает наблюдение за сессией, если оно еще не ведется.
// Вызывается после выбора концовки и при подписке клиента на фид: оба пути
// сходятся в одно наблюдение на сессию.
func (w *CompileWatcher) Supervise(sessionID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.baseCtx == nil {
		w.logger.Error("Supervise called before Start", zap.String("sessionID", sessionID))
		return
	}
	if _, ok := w.watching[sessionID]; ok {
		return
	}
	if _, done := w.attempted[sessionID]; done {
		return
	}
	ctx, cancel := context.WithCancel(w.baseCtx)
	w.watching[sessionID] = cancel
	go w.watch(ctx, sessionID)
}

func (w *CompileWatcher) stopWatching(sessionID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if cancel, ok := w.watching[sessionID]; ok {
		cancel()
		delete(w.watching, sessionID)
	}
}

// markAttempted помечает сессию до вызова компилятора. Возвращает false, если
// попытка уже была (конкурентный снапшот).
func (w *CompileWatcher) markAttempted(sessionID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, done := w.attempted[sessionID]; done {
		return false
	}
	w.attempted[sessionID] = struct{}{}
	return true
}

func (w *CompileWatcher) unmarkAttempted(sessionID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.attempted, sessionID)
}

func (w *CompileWatcher) watch(ctx context.Context, sessionID string) {
	log := w.logger.With(zap.String("sessionID", sessionID))
	defer w.stopWatching(sessionID)

	snapshots, err := w.sessionRepo.WatchMessages(ctx, sessionID)
	if err != nil {
		log.Error("Failed to open message watch", zap.Error(err))
		return
	}

	for messages := range snapshots {
		if !hasFinalStory(messages) {
			continue
		}
		if done := w.tryCompile(ctx, sessionID); done {
			return
		}
		// Компиляция отложена (нет типа вывода) - продолжаем наблюдение
	}
}

func hasFinalStory(messages []models.ChatMessage) bool {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Kind.IsFinalStory() {
			return true
		}
	}
	return false
}

// tryCompile выполняет одну попытку автокомпиляции. Возвращает true, когда
// наблюдение за сессией можно прекратить (успех либо окончательный провал).
func (w *CompileWatcher) tryCompile(ctx context.Context, sessionID string) bool {
	log := w.logger.With(zap.String("sessionID", sessionID))

	if !w.markAttempted(sessionID) {
		return true
	}

	session, err := w.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		log.Error("Failed to load session for compilation", zap.Error(err))
		w.unmarkAttempted(sessionID)
		return false
	}

	outputType, err := w.storyTypeRepo.GetDefaultOutputType(ctx)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Каталог пуст: компиляцию откладываем, попытку не сжигаем
			log.Warn("No story output type configured, compilation deferred")
			compileAttemptsTotal.WithLabelValues("deferred").Inc()
			w.unmarkAttempted(sessionID)
			return false
		}
		log.Error("Failed to resolve output type", zap.Error(err))
		w.unmarkAttempted(sessionID)
		return false
	}

	log.Info("Final story detected, starting book compilation",
		zap.String("outputTypeID", outputType.ID))

	_, err = w.compileClient.Compile(ctx, models.CompileRequest{
		SessionID:         sessionID,
		StoryOutputTypeID: outputType.ID,
	})
	compiled := err == nil
	if err != nil {
		// Попытка остается сожженной: история доступна как текст, книга - нет
		log.Error("Book compilation failed", zap.Error(err))
		compileAttemptsTotal.WithLabelValues("failure").Inc()
	} else {
		log.Info("Book compiled")
		compileAttemptsTotal.WithLabelValues("success").Inc()
	}

	if notifyErr := w.notifier.NotifyStoryCompiled(ctx, session.ParentUID, sessionID, compiled); notifyErr != nil {
		log.Warn("Push notification failed", zap.Error(notifyErr))
	}
	return true
}
