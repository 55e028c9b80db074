package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"storyteller-server/shared/interfaces/mocks"
	"storyteller-server/shared/models"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type watcherMocks struct {
	sessionRepo   *mocks.MockSessionRepository
	storyTypeRepo *mocks.MockStoryTypeRepository
	compileClient *mocks.MockCompileClient
	notifier      *mocks.MockPushNotifier
}

func newWatcherForTest(t *testing.T) (*CompileWatcher, *watcherMocks) {
	t.Helper()
	m := &watcherMocks{
		sessionRepo:   new(mocks.MockSessionRepository),
		storyTypeRepo: new(mocks.MockStoryTypeRepository),
		compileClient: new(mocks.MockCompileClient),
		notifier:      new(mocks.MockPushNotifier),
	}
	w := NewCompileWatcher(m.sessionRepo, m.storyTypeRepo, m.compileClient, m.notifier, zap.NewNop())
	return w, m
}

func finalStoryLog() []models.ChatMessage {
	return []models.ChatMessage{
		{ID: "m1", Kind: models.KindChildEndingChoice, Text: "Все подружились"},
		{ID: "m2", Kind: models.KindFinalStory, Text: "И вот вся история..."},
	}
}

func TestCompileWatcher(t *testing.T) {
	defaultOutputType := &models.StoryOutputType{ID: "out-1", Title: "Книжка", IsDefault: true}

	t.Run("final story triggers compilation and push", func(t *testing.T) {
		w, m := newWatcherForTest(t)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		w.Start(ctx)

		snapshots := make(chan []models.ChatMessage, 1)
		m.sessionRepo.On("WatchMessages", mock.Anything, "sess-1").
			Return((<-chan []models.ChatMessage)(snapshots), nil)
		m.sessionRepo.On("GetByID", mock.Anything, "sess-1").
			Return(storySession(func(s *models.StorySession) { s.CurrentPhase = models.PhaseEnding }), nil)
		m.storyTypeRepo.On("GetDefaultOutputType", mock.Anything).Return(defaultOutputType, nil)
		m.compileClient.On("Compile", mock.Anything, models.CompileRequest{
			SessionID:         "sess-1",
			StoryOutputTypeID: "out-1",
		}).Return(&models.CompileResponse{OK: true}, nil)

		notified := make(chan struct{})
		m.notifier.On("NotifyStoryCompiled", mock.Anything, "parent-1", "sess-1", true).
			Run(func(mock.Arguments) { close(notified) }).Return(nil)

		w.Supervise("sess-1")
		snapshots <- finalStoryLog()

		select {
		case <-notified:
		case <-time.After(2 * time.Second):
			t.Fatal("compilation push was not sent")
		}
		m.compileClient.AssertNumberOfCalls(t, "Compile", 1)
	})

	t.Run("snapshots without final story are ignored", func(t *testing.T) {
		w, m := newWatcherForTest(t)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		w.Start(ctx)

		snapshots := make(chan []models.ChatMessage, 1)
		m.sessionRepo.On("WatchMessages", mock.Anything, "sess-1").
			Return((<-chan []models.ChatMessage)(snapshots), nil)

		w.Supervise("sess-1")
		snapshots <- []models.ChatMessage{{ID: "m1", Kind: models.KindBeatOptions}}
		close(snapshots)

		require.Eventually(t, func() bool {
			w.mu.Lock()
			defer w.mu.Unlock()
			_, watching := w.watching["sess-1"]
			return !watching
		}, 2*time.Second, 10*time.Millisecond)

		m.compileClient.AssertNotCalled(t, "Compile", mock.Anything, mock.Anything)
	})

	t.Run("missing output type defers without burning the attempt", func(t *testing.T) {
		w, m := newWatcherForTest(t)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		w.Start(ctx)

		snapshots := make(chan []models.ChatMessage, 2)
		m.sessionRepo.On("WatchMessages", mock.Anything, "sess-1").
			Return((<-chan []models.ChatMessage)(snapshots), nil)
		m.sessionRepo.On("GetByID", mock.Anything, "sess-1").
			Return(storySession(nil), nil)
		// Каталог пуст на первом снапшоте, заполнен ко второму
		m.storyTypeRepo.On("GetDefaultOutputType", mock.Anything).Return(nil, models.ErrNotFound).Once()
		m.storyTypeRepo.On("GetDefaultOutputType", mock.Anything).Return(defaultOutputType, nil).Once()
		m.compileClient.On("Compile", mock.Anything, mock.Anything).Return(&models.CompileResponse{OK: true}, nil)

		notified := make(chan struct{})
		m.notifier.On("NotifyStoryCompiled", mock.Anything, "parent-1", "sess-1", true).
			Run(func(mock.Arguments) { close(notified) }).Return(nil)

		w.Supervise("sess-1")
		snapshots <- finalStoryLog()
		snapshots <- finalStoryLog()

		select {
		case <-notified:
		case <-time.After(2 * time.Second):
			t.Fatal("deferred compilation never ran")
		}
		m.compileClient.AssertNumberOfCalls(t, "Compile", 1)
	})

	t.Run("compile failure burns the attempt and notifies degraded", func(t *testing.T) {
		w, m := newWatcherForTest(t)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		w.Start(ctx)

		snapshots := make(chan []models.ChatMessage, 1)
		m.sessionRepo.On("WatchMessages", mock.Anything, "sess-1").
			Return((<-chan []models.ChatMessage)(snapshots), nil)
		m.sessionRepo.On("GetByID", mock.Anything, "sess-1").
			Return(storySession(nil), nil)
		m.storyTypeRepo.On("GetDefaultOutputType", mock.Anything).Return(defaultOutputType, nil)
		m.compileClient.On("Compile", mock.Anything, mock.Anything).
			Return(nil, errors.New("compile service down"))

		notified := make(chan struct{})
		m.notifier.On("NotifyStoryCompiled", mock.Anything, "parent-1", "sess-1", false).
			Run(func(mock.Arguments) { close(notified) }).Return(nil)

		w.Supervise("sess-1")
		snapshots <- finalStoryLog()

		select {
		case <-notified:
		case <-time.After(2 * time.Second):
			t.Fatal("degraded push was not sent")
		}

		// Попытка сожжена: повторный Supervise не открывает новое наблюдение
		w.Supervise("sess-1")
		m.sessionRepo.AssertNumberOfCalls(t, "WatchMessages", 1)
		m.compileClient.AssertNumberOfCalls(t, "Compile", 1)
	})

	t.Run("supervise is idempotent per session", func(t *testing.T) {
		w, m := newWatcherForTest(t)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		w.Start(ctx)

		snapshots := make(chan []models.ChatMessage)
		opened := make(chan struct{})
		m.sessionRepo.On("WatchMessages", mock.Anything, "sess-1").
			Run(func(mock.Arguments) { close(opened) }).
			Return((<-chan []models.ChatMessage)(snapshots), nil)

		w.Supervise("sess-1")
		w.Supervise("sess-1")
		w.Supervise("sess-1")

		select {
		case <-opened:
		case <-time.After(2 * time.Second):
			t.Fatal("watch was never opened")
		}
		m.sessionRepo.AssertNumberOfCalls(t, "WatchMessages", 1)
	})
}
