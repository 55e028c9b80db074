package repository

import (
	"context"
	"fmt"
	"time"

	"storyteller-server/shared/interfaces"
	"storyteller-server/shared/models"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	sessionsCollection = "storySessions"
	messagesCollection = "messages"
)

// Compile-time check
var _ interfaces.SessionRepository = (*firestoreSessionRepository)(nil)

type firestoreSessionRepository struct {
	client *firestore.Client
	logger *zap.Logger
}

// NewFirestoreSessionRepository создает репозиторий сессий поверх Firestore.
func NewFirestoreSessionRepository(client *firestore.Client, logger *zap.Logger) interfaces.SessionRepository {
	return &firestoreSessionRepository{
		client: client,
		logger: logger.Named("FirestoreSessionRepo"),
	}
}

func (r *firestoreSessionRepository) sessionRef(sessionID string) *firestore.DocumentRef {
	return r.client.Collection(sessionsCollection).Doc(sessionID)
}

func (r *firestoreSessionRepository) messageRef(sessionID, messageID string) *firestore.DocumentRef {
	return r.sessionRef(sessionID).Collection(messagesCollection).Doc(messageID)
}

func (r *firestoreSessionRepository) Create(ctx context.Context, session *models.StorySession) error {
	if session.ID == "" {
		return fmt.Errorf("%w: session id is empty", models.ErrInvalidInput)
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now
	if session.Actors == nil {
		// Пустой массив вместо отсутствующего поля, чтобы ArrayUnion работал одинаково
		session.Actors = []string{}
	}

	if _, err := r.sessionRef(session.ID).Create(ctx, session); err != nil {
		r.logger.Error("Failed to create session document", zap.String("sessionID", session.ID), zap.Error(err))
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *firestoreSessionRepository) GetByID(ctx context.Context, sessionID string) (*models.StorySession, error) {
	doc, err := r.sessionRef(sessionID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, models.ErrSessionNotFound
		}
		r.logger.Error("Failed to get session document", zap.String("sessionID", sessionID), zap.Error(err))
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session models.StorySession
	if err := doc.DataTo(&session); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", sessionID, err)
	}
	session.ID = doc.Ref.ID
	return &session, nil
}

func (r *firestoreSessionRepository) ListMessages(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	iter := r.sessionRef(sessionID).Collection(messagesCollection).
		OrderBy("createdAt", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var messages []models.ChatMessage
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			r.logger.Error("Failed to iterate messages", zap.String("sessionID", sessionID), zap.Error(err))
			return nil, fmt.Errorf("failed to list messages: %w", err)
		}
		var msg models.ChatMessage
		if err := doc.DataTo(&msg); err != nil {
			return nil, fmt.Errorf("failed to decode message %s: %w", doc.Ref.ID, err)
		}
		msg.ID = doc.Ref.ID
		messages = append(messages, msg)
	}
	return messages, nil
}

func (r *firestoreSessionRepository) LatestOptionsMessage(ctx context.Context, sessionID string) (*models.ChatMessage, error) {
	iter := r.sessionRef(sessionID).Collection(messagesCollection).
		Where("kind", "in", []string{string(models.KindBeatOptions), string(models.KindEndingOptions)}).
		OrderBy("createdAt", firestore.Desc).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, models.ErrNoOptionsMessage
	}
	if err != nil {
		r.logger.Error("Failed to query latest options message", zap.String("sessionID", sessionID), zap.Error(err))
		return nil, fmt.Errorf("failed to query latest options message: %w", err)
	}

	var msg models.ChatMessage
	if err := doc.DataTo(&msg); err != nil {
		return nil, fmt.Errorf("failed to decode message %s: %w", doc.Ref.ID, err)
	}
	msg.ID = doc.Ref.ID
	return &msg, nil
}

// sessionUpdates переводит частичное обновление в плоский список firestore.Update.
// updatedAt трогается всегда.
func sessionUpdates(update models.SessionUpdate) []firestore.Update {
	updates := []firestore.Update{
		{Path: "updatedAt", Value: time.Now().UTC()},
	}
	if update.CurrentPhase != nil {
		updates = append(updates, firestore.Update{Path: "currentPhase", Value: string(*update.CurrentPhase)})
	}
	if update.ArcStepIndex != nil {
		updates = append(updates, firestore.Update{Path: "arcStepIndex", Value: *update.ArcStepIndex})
	}
	if update.StoryTypeID != nil {
		updates = append(updates, firestore.Update{Path: "storyTypeId", Value: *update.StoryTypeID})
	}
	if update.PendingTraits != nil {
		updates = append(updates, firestore.Update{Path: "pendingCharacterTraits", Value: update.PendingTraits})
	} else if update.ClearPendingTraits {
		updates = append(updates, firestore.Update{Path: "pendingCharacterTraits", Value: firestore.Delete})
	}
	if update.PendingIntroduction != nil {
		updates = append(updates, firestore.Update{Path: "pendingIntroduction", Value: update.PendingIntroduction})
	} else if update.ClearPendingIntroduction {
		updates = append(updates, firestore.Update{Path: "pendingIntroduction", Value: firestore.Delete})
	}
	if update.WarmupCompletedAt != nil {
		updates = append(updates, firestore.Update{Path: "progress.warmupCompletedAt", Value: *update.WarmupCompletedAt})
	}
	if update.StoryTypeChosenAt != nil {
		updates = append(updates, firestore.Update{Path: "progress.storyTypeChosenAt", Value: *update.StoryTypeChosenAt})
	}
	if update.StoryArcCompletedAt != nil {
		updates = append(updates, firestore.Update{Path: "progress.storyArcCompletedAt", Value: *update.StoryArcCompletedAt})
	}
	if update.EndingChosenAt != nil {
		updates = append(updates, firestore.Update{Path: "progress.endingChosenAt", Value: *update.EndingChosenAt})
	}
	if update.Debug != nil {
		updates = append(updates, firestore.Update{Path: "debug", Value: update.Debug})
	}
	return updates
}

func actorUnion(actorIDs []string) firestore.Update {
	values := make([]interface{}, 0, len(actorIDs))
	for _, id := range actorIDs {
		values = append(values, id)
	}
	return firestore.Update{Path: "actors", Value: firestore.ArrayUnion(values...)}
}

func (r *firestoreSessionRepository) AppendExchange(ctx context.Context, sessionID string, messages []models.ChatMessage, actorIDs []string, update models.SessionUpdate) error {
	// Сообщения, union акторов и поля сессии коммитятся одним батчем:
	// читатель никогда не увидит options-сообщение без его акторов.
	batch := r.client.Batch()
	for i := range messages {
		if messages[i].ID == "" {
			return fmt.Errorf("%w: message id is empty", models.ErrInvalidInput)
		}
		batch.Set(r.messageRef(sessionID, messages[i].ID), messages[i])
	}

	updates := sessionUpdates(update)
	if len(actorIDs) > 0 {
		updates = append(updates, actorUnion(actorIDs))
	}
	batch.Update(r.sessionRef(sessionID), updates)

	if _, err := batch.Commit(ctx); err != nil {
		r.logger.Error("Failed to commit exchange batch",
			zap.String("sessionID", sessionID),
			zap.Int("messages", len(messages)),
			zap.Error(err))
		return fmt.Errorf("failed to append exchange: %w", err)
	}
	return nil
}

func (r *firestoreSessionRepository) ReplaceLatestOptions(ctx context.Context, sessionID string, message models.ChatMessage, actorIDs []string, update models.SessionUpdate) error {
	if message.ID == "" {
		return fmt.Errorf("%w: message id is empty", models.ErrInvalidInput)
	}
	if !message.Kind.IsOptions() {
		return fmt.Errorf("%w: only options messages may be replaced", models.ErrInvalidInput)
	}

	// Замена in-place: тот же document id, количество сообщений не меняется.
	batch := r.client.Batch()
	batch.Set(r.messageRef(sessionID, message.ID), message)

	updates := sessionUpdates(update)
	if len(actorIDs) > 0 {
		updates = append(updates, actorUnion(actorIDs))
	}
	batch.Update(r.sessionRef(sessionID), updates)

	if _, err := batch.Commit(ctx); err != nil {
		r.logger.Error("Failed to replace options message",
			zap.String("sessionID", sessionID),
			zap.String("messageID", message.ID),
			zap.Error(err))
		return fmt.Errorf("failed to replace options message: %w", err)
	}
	return nil
}

func (r *firestoreSessionRepository) SetEndingOnce(ctx context.Context, sessionID, endingID, endingText string, messages []models.ChatMessage, actorIDs []string, update models.SessionUpdate) error {
	for i := range messages {
		if messages[i].ID == "" {
			return fmt.Errorf("%w: message id is empty", models.ErrInvalidInput)
		}
	}

	sessionRef := r.sessionRef(sessionID)
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(sessionRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return models.ErrSessionNotFound
			}
			return err
		}
		var session models.StorySession
		if err := doc.DataTo(&session); err != nil {
			return fmt.Errorf("failed to decode session: %w", err)
		}
		// Write-once: повторная запись концовки отклоняется
		if session.HasEnding() {
			return models.ErrEndingAlreadyChosen
		}

		updates := sessionUpdates(update)
		updates = append(updates,
			firestore.Update{Path: "selectedEndingId", Value: endingID},
			firestore.Update{Path: "selectedEndingText", Value: endingText},
		)
		if len(actorIDs) > 0 {
			updates = append(updates, actorUnion(actorIDs))
		}
		if err := tx.Update(sessionRef, updates); err != nil {
			return err
		}
		for i := range messages {
			if err := tx.Set(r.messageRef(sessionID, messages[i].ID), messages[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *firestoreSessionRepository) WatchMessages(ctx context.Context, sessionID string) (<-chan []models.ChatMessage, error) {
	query := r.sessionRef(sessionID).Collection(messagesCollection).
		OrderBy("createdAt", firestore.Asc)
	snapshots := query.Snapshots(ctx)

	out := make(chan []models.ChatMessage, 1)
	go func() {
		defer close(out)
		defer snapshots.Stop()
		for {
			snap, err := snapshots.Next()
			if err != nil {
				if status.Code(err) != codes.Canceled && ctx.Err() == nil {
					r.logger.Error("Message snapshot stream failed",
						zap.String("sessionID", sessionID), zap.Error(err))
				}
				return
			}

			var messages []models.ChatMessage
			docs := snap.Documents
			for {
				doc, err := docs.Next()
				if err == iterator.Done {
					break
				}
				if err != nil {
					r.logger.Error("Failed to read snapshot documents",
						zap.String("sessionID", sessionID), zap.Error(err))
					return
				}
				var msg models.ChatMessage
				if err := doc.DataTo(&msg); err != nil {
					r.logger.Error("Failed to decode snapshot message",
						zap.String("messageID", doc.Ref.ID), zap.Error(err))
					continue
				}
				msg.ID = doc.Ref.ID
				messages = append(messages, msg)
			}

			select {
			case out <- messages:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
