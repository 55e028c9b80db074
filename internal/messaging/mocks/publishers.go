package mocks

import (
	"context"

	sharedMessaging "storyteller-server/shared/messaging"

	"github.com/stretchr/testify/mock"
)

// Mock AvatarTaskPublisher
type AvatarTaskPublisher struct {
	mock.Mock
}

func (m *AvatarTaskPublisher) PublishAvatarTask(ctx context.Context, payload sharedMessaging.AvatarTaskPayload) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}
