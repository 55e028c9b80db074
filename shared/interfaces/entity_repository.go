package interfaces

import (
	"context"

	"storyteller-server/shared/models"
)

// EntityRepository reads child/character documents referenced by actor ids
// and applies the single mutation this core owns on them (traits).
type EntityRepository interface {
	// GetDisplay returns the display form for a single actor id, probing
	// children first, then characters. models.ErrNotFound when neither exists.
	GetDisplay(ctx context.Context, entityID string) (*models.EntityDisplay, error)

	// UpdateCharacterTraits stores the child's traits answer on the character.
	UpdateCharacterTraits(ctx context.Context, characterID, traits string) error
}

// ActorResolver resolves a set of actor ids to display forms. Отсутствующие
// id просто опускаются в результате - кодек плейсхолдеров деградирует мягко.
type ActorResolver interface {
	ResolveActors(ctx context.Context, ids []string) (map[string]models.EntityDisplay, error)
}
