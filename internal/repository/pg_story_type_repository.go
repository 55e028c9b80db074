package repository

import (
	"context"
	"errors"
	"fmt"

	"storyteller-server/shared/interfaces"
	"storyteller-server/shared/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	storyTypeFields = `id, title, description, active, created_at, updated_at`

	getStoryTypeByIDQuery = `
        SELECT ` + storyTypeFields + `
        FROM story_types
        WHERE id = $1
    `
	listActiveStoryTypesQuery = `
        SELECT ` + storyTypeFields + `
        FROM story_types
        WHERE active = TRUE
        ORDER BY title
    `
	listArcStepsQuery = `
        SELECT id, label, guidance, suggests_new_character, step_index
        FROM story_arc_steps
        WHERE story_type_id = $1
        ORDER BY step_index
    `
	listArcStepsForTypesQuery = `
        SELECT story_type_id, id, label, guidance, suggests_new_character, step_index
        FROM story_arc_steps
        WHERE story_type_id = ANY($1)
        ORDER BY story_type_id, step_index
    `
	getDefaultOutputTypeQuery = `
        SELECT id, title, is_default, created_at
        FROM story_output_types
        ORDER BY is_default DESC, created_at
        LIMIT 1
    `
)

// Compile-time check
var _ interfaces.StoryTypeRepository = (*pgStoryTypeRepository)(nil)

type pgStoryTypeRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPgStoryTypeRepository создает репозиторий каталога типов историй.
func NewPgStoryTypeRepository(pool *pgxpool.Pool, logger *zap.Logger) interfaces.StoryTypeRepository {
	return &pgStoryTypeRepository{
		pool:   pool,
		logger: logger.Named("PgStoryTypeRepo"),
	}
}

// arcStepRow - строка story_arc_steps вместе с id типа (для группировки).
type arcStepRow struct {
	StoryTypeID string `db:"story_type_id"`
	models.ArcStep
}

func (r *pgStoryTypeRepository) GetByID(ctx context.Context, storyTypeID string) (*models.StoryType, error) {
	var storyType models.StoryType
	err := pgxscan.Get(ctx, r.pool, &storyType, getStoryTypeByIDQuery, storyTypeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrStoryTypeNotFound
		}
		r.logger.Error("Failed to get story type", zap.String("storyTypeID", storyTypeID), zap.Error(err))
		return nil, fmt.Errorf("failed to get story type: %w", err)
	}

	var steps []models.ArcStep
	if err := pgxscan.Select(ctx, r.pool, &steps, listArcStepsQuery, storyTypeID); err != nil {
		r.logger.Error("Failed to list arc steps", zap.String("storyTypeID", storyTypeID), zap.Error(err))
		return nil, fmt.Errorf("failed to list arc steps: %w", err)
	}
	storyType.ArcSteps = steps

	return &storyType, nil
}

func (r *pgStoryTypeRepository) ListActive(ctx context.Context) ([]models.StoryType, error) {
	var storyTypes []models.StoryType
	if err := pgxscan.Select(ctx, r.pool, &storyTypes, listActiveStoryTypesQuery); err != nil {
		r.logger.Error("Failed to list active story types", zap.Error(err))
		return nil, fmt.Errorf("failed to list story types: %w", err)
	}
	if len(storyTypes) == 0 {
		return storyTypes, nil
	}

	ids := make([]string, 0, len(storyTypes))
	for _, st := range storyTypes {
		ids = append(ids, st.ID)
	}

	var rows []arcStepRow
	if err := pgxscan.Select(ctx, r.pool, &rows, listArcStepsForTypesQuery, ids); err != nil {
		r.logger.Error("Failed to list arc steps for story types", zap.Error(err))
		return nil, fmt.Errorf("failed to list arc steps: %w", err)
	}

	stepsByType := make(map[string][]models.ArcStep)
	for _, row := range rows {
		stepsByType[row.StoryTypeID] = append(stepsByType[row.StoryTypeID], row.ArcStep)
	}
	for i := range storyTypes {
		storyTypes[i].ArcSteps = stepsByType[storyTypes[i].ID]
	}

	return storyTypes, nil
}

func (r *pgStoryTypeRepository) GetDefaultOutputType(ctx context.Context) (*models.StoryOutputType, error) {
	var outputType models.StoryOutputType
	err := pgxscan.Get(ctx, r.pool, &outputType, getDefaultOutputTypeQuery)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Каталог еще не загружен - автокомпиляция будет отложена
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get default output type", zap.Error(err))
		return nil, fmt.Errorf("failed to get default output type: %w", err)
	}
	return &outputType, nil
}
