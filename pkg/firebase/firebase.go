package firebase

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

// NewApp инициализирует Firebase App из файла ключа сервис-аккаунта.
// Один App переиспользуется для Firestore и FCM.
func NewApp(ctx context.Context, credentialsPath, projectID string) (*firebase.App, error) {
	if credentialsPath == "" {
		return nil, fmt.Errorf("firebase credentials path is empty")
	}

	var cfg *firebase.Config
	if projectID != "" {
		cfg = &firebase.Config{ProjectID: projectID}
	}

	app, err := firebase.NewApp(ctx, cfg, option.WithCredentialsFile(credentialsPath))
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации Firebase App из файла '%s': %w", credentialsPath, err)
	}
	return app, nil
}
