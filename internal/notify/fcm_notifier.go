package notify

import (
	"context"
	"fmt"

	"storyteller-server/shared/interfaces"

	firebase "firebase.google.com/go/v4"
	fcm "firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

// Compile-time checks
var (
	_ interfaces.PushNotifier = (*fcmNotifier)(nil)
	_ interfaces.PushNotifier = (*stubNotifier)(nil)
)

// fcmNotifier шлет родителю push о готовности книги через FCM topic
// "parent_<uid>" (устройства родителя подписываются при логине).
type fcmNotifier struct {
	client *fcm.Client
	logger *zap.Logger
}

// NewFCMNotifier создает FCM-нотификатор поверх общего Firebase App.
func NewFCMNotifier(ctx context.Context, app *firebase.App, logger *zap.Logger) (interfaces.PushNotifier, error) {
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации FCM клиента: %w", err)
	}
	return &fcmNotifier{
		client: client,
		logger: logger.Named("FCMNotifier"),
	}, nil
}

func (n *fcmNotifier) NotifyStoryCompiled(ctx context.Context, parentUID, sessionID string, compiled bool) error {
	title := "Storybook ready!"
	body := "A new storybook is ready to read and print."
	if !compiled {
		title = "Story saved"
		body = "The story was saved but may need manual compilation."
	}

	message := &fcm.Message{
		Topic: fmt.Sprintf("parent_%s", parentUID),
		Notification: &fcm.Notification{
			Title: title,
			Body:  body,
		},
		Data: map[string]string{
			"type":      "story_compiled",
			"sessionId": sessionID,
			"compiled":  fmt.Sprintf("%t", compiled),
		},
	}

	if _, err := n.client.Send(ctx, message); err != nil {
		n.logger.Warn("Не удалось отправить push о компиляции",
			zap.String("parentUID", parentUID),
			zap.String("sessionID", sessionID),
			zap.Error(err))
		return fmt.Errorf("failed to send compile push: %w", err)
	}
	return nil
}

// stubNotifier - заглушка, когда FCM не сконфигурирован.
type stubNotifier struct {
	logger *zap.Logger
}

// NewStubNotifier возвращает no-op нотификатор.
func NewStubNotifier(logger *zap.Logger) interfaces.PushNotifier {
	return &stubNotifier{logger: logger.Named("StubNotifier")}
}

func (n *stubNotifier) NotifyStoryCompiled(_ context.Context, parentUID, sessionID string, compiled bool) error {
	n.logger.Info("ЗАГЛУШКА: push о компиляции",
		zap.String("parentUID", parentUID),
		zap.String("sessionID", sessionID),
		zap.Bool("compiled", compiled))
	return nil
}
