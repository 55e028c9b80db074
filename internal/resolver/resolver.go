package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storyteller-server/shared/interfaces"
	"storyteller-server/shared/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Compile-time check
var _ interfaces.ActorResolver = (*cachedActorResolver)(nil)

// cachedActorResolver резолвит id акторов в display-формы через Firestore с
// cache-aside кэшем в Redis. Отсутствующие сущности опускаются в результате -
// кодек плейсхолдеров покажет голый id вместо падения.
type cachedActorResolver struct {
	entityRepo interfaces.EntityRepository
	client     *redis.Client
	ttl        time.Duration
	logger     *zap.Logger
}

// NewCachedActorResolver создает резолвер акторов с Redis-кэшем.
// client == nil допустим: кэш просто выключен (полезно в тестах).
func NewCachedActorResolver(entityRepo interfaces.EntityRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) interfaces.ActorResolver {
	return &cachedActorResolver{
		entityRepo: entityRepo,
		client:     client,
		ttl:        ttl,
		logger:     logger.Named("ActorResolver"),
	}
}

func cacheKey(entityID string) string {
	return fmt.Sprintf("actor_display:%s", entityID)
}

func (r *cachedActorResolver) ResolveActors(ctx context.Context, ids []string) (map[string]models.EntityDisplay, error) {
	result := make(map[string]models.EntityDisplay, len(ids))

	for _, id := range ids {
		if _, ok := result[id]; ok {
			continue
		}

		if display, ok := r.fromCache(ctx, id); ok {
			result[id] = display
			continue
		}

		display, err := r.entityRepo.GetDisplay(ctx, id)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				// Неизвестный актор - мягкая деградация на стороне кодека
				r.logger.Warn("Actor id not found, leaving placeholder unresolved", zap.String("entityID", id))
				continue
			}
			return nil, fmt.Errorf("failed to resolve actor %s: %w", id, err)
		}

		result[id] = *display
		r.toCache(ctx, id, *display)
	}

	return result, nil
}

func (r *cachedActorResolver) fromCache(ctx context.Context, id string) (models.EntityDisplay, bool) {
	if r.client == nil {
		return models.EntityDisplay{}, false
	}
	raw, err := r.client.Get(ctx, cacheKey(id)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			// Проблемы кэша не должны ломать резолв
			r.logger.Warn("Resolver cache read failed", zap.String("entityID", id), zap.Error(err))
		}
		return models.EntityDisplay{}, false
	}
	var display models.EntityDisplay
	if err := json.Unmarshal([]byte(raw), &display); err != nil {
		r.logger.Warn("Resolver cache entry is corrupted", zap.String("entityID", id), zap.Error(err))
		return models.EntityDisplay{}, false
	}
	return display, true
}

func (r *cachedActorResolver) toCache(ctx context.Context, id string, display models.EntityDisplay) {
	if r.client == nil {
		return
	}
	raw, err := json.Marshal(display)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, cacheKey(id), raw, r.ttl).Err(); err != nil {
		r.logger.Warn("Resolver cache write failed", zap.String("entityID", id), zap.Error(err))
	}
}
