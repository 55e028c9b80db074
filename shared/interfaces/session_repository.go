package interfaces

import (
	"context"

	"storyteller-server/shared/models"
)

// SessionRepository defines the storage contract for story sessions and their
// append-only message log (document/collection semantics).
//
// Гарантия порядка: методы Append*/Replace* коммитят сообщения, обновление
// множества акторов и поля сессии одним атомарным батчем - читатель никогда
// не увидит options-сообщение, ссылающееся на актора, которого еще нет в
// session.actors.
type SessionRepository interface {
	// Create persists a brand-new session document.
	Create(ctx context.Context, session *models.StorySession) error

	// GetByID returns the session or models.ErrSessionNotFound.
	GetByID(ctx context.Context, sessionID string) (*models.StorySession, error)

	// ListMessages returns the full message log ordered by creation time.
	ListMessages(ctx context.Context, sessionID string) ([]models.ChatMessage, error)

	// LatestOptionsMessage returns the most recent *_options message or
	// models.ErrNoOptionsMessage if the log contains none.
	LatestOptionsMessage(ctx context.Context, sessionID string) (*models.ChatMessage, error)

	// AppendExchange appends messages, unions actor ids into session.actors and
	// applies the partial session update in a single atomic batch.
	AppendExchange(ctx context.Context, sessionID string, messages []models.ChatMessage, actorIDs []string, update models.SessionUpdate) error

	// ReplaceLatestOptions overwrites the given options message in place
	// (same message id, message count unchanged), unions actor ids and applies
	// the session update atomically.
	ReplaceLatestOptions(ctx context.Context, sessionID string, message models.ChatMessage, actorIDs []string, update models.SessionUpdate) error

	// SetEndingOnce writes selectedEndingId/selectedEndingText, appends the
	// given messages (ending choice + final story), unions actors and applies
	// the update in one transaction. Returns models.ErrEndingAlreadyChosen if
	// an ending is already recorded (write-once semantics).
	SetEndingOnce(ctx context.Context, sessionID, endingID, endingText string, messages []models.ChatMessage, actorIDs []string, update models.SessionUpdate) error

	// WatchMessages streams the ordered message log on every snapshot change
	// until ctx is cancelled. The channel is closed on cancellation.
	WatchMessages(ctx context.Context, sessionID string) (<-chan []models.ChatMessage, error)
}
