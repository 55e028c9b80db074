package repository

import (
	"context"
	"fmt"

	"storyteller-server/shared/interfaces"
	"storyteller-server/shared/models"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	childrenCollection   = "children"
	charactersCollection = "characters"
)

// Compile-time check
var _ interfaces.EntityRepository = (*firestoreEntityRepository)(nil)

type firestoreEntityRepository struct {
	client *firestore.Client
	logger *zap.Logger
}

// NewFirestoreEntityRepository создает репозиторий сущностей (дети/персонажи).
func NewFirestoreEntityRepository(client *firestore.Client, logger *zap.Logger) interfaces.EntityRepository {
	return &firestoreEntityRepository{
		client: client,
		logger: logger.Named("FirestoreEntityRepo"),
	}
}

// GetDisplay пробует детей, затем персонажей: id акторов глобально уникальны,
// но коллекции раздельные.
func (r *firestoreEntityRepository) GetDisplay(ctx context.Context, entityID string) (*models.EntityDisplay, error) {
	doc, err := r.client.Collection(childrenCollection).Doc(entityID).Get(ctx)
	if err == nil {
		var child models.Child
		if decodeErr := doc.DataTo(&child); decodeErr != nil {
			return nil, fmt.Errorf("failed to decode child %s: %w", entityID, decodeErr)
		}
		return &models.EntityDisplay{DisplayName: child.DisplayName, AvatarURL: child.AvatarURL}, nil
	}
	if status.Code(err) != codes.NotFound {
		r.logger.Error("Failed to get child document", zap.String("entityID", entityID), zap.Error(err))
		return nil, fmt.Errorf("failed to get child: %w", err)
	}

	doc, err = r.client.Collection(charactersCollection).Doc(entityID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get character document", zap.String("entityID", entityID), zap.Error(err))
		return nil, fmt.Errorf("failed to get character: %w", err)
	}

	var character models.Character
	if err := doc.DataTo(&character); err != nil {
		return nil, fmt.Errorf("failed to decode character %s: %w", entityID, err)
	}
	return &models.EntityDisplay{DisplayName: character.DisplayName, AvatarURL: character.AvatarURL}, nil
}

func (r *firestoreEntityRepository) UpdateCharacterTraits(ctx context.Context, characterID, traits string) error {
	_, err := r.client.Collection(charactersCollection).Doc(characterID).Update(ctx, []firestore.Update{
		{Path: "traits", Value: traits},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return models.ErrCharacterNotFound
		}
		r.logger.Error("Failed to update character traits", zap.String("characterID", characterID), zap.Error(err))
		return fmt.Errorf("failed to update character traits: %w", err)
	}
	return nil
}
