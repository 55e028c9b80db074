package repository_test

import (
	"context"
	"testing"
	"time"

	"storyteller-server/internal/repository"
	"storyteller-server/pkg/database"
	"storyteller-server/pkg/migration"
	"storyteller-server/shared/models"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

// PgStoryTypeRepositorySuite - интеграционные тесты каталога на реальном
// Postgres в контейнере.
type PgStoryTypeRepositorySuite struct {
	suite.Suite
	pgContainer *postgres.PostgresContainer
	pool        *pgxpool.Pool
	ctx         context.Context
}

func TestPgStoryTypeRepositorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}
	suite.Run(t, new(PgStoryTypeRepositorySuite))
}

func (s *PgStoryTypeRepositorySuite) SetupSuite() {
	s.ctx = context.Background()

	pgContainer, err := postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("storyteller_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(60*time.Second)),
	)
	s.Require().NoError(err)
	s.pgContainer = pgContainer

	dsn, err := pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	s.pool, err = database.NewPool(s.ctx, dsn, 5)
	s.Require().NoError(err)

	migrator := migration.NewMigrator(migration.Config{
		MigrationsPath: repository.MigrationsPath,
		MigrationsFS:   repository.MigrationsFS,
	}, s.pool, zap.NewNop())
	s.Require().NoError(migrator.Up())
}

func (s *PgStoryTypeRepositorySuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.pgContainer != nil {
		_ = s.pgContainer.Terminate(s.ctx)
	}
}

func (s *PgStoryTypeRepositorySuite) SetupTest() {
	_, err := s.pool.Exec(s.ctx, `TRUNCATE story_types, story_arc_steps, story_output_types CASCADE`)
	s.Require().NoError(err)
}

func (s *PgStoryTypeRepositorySuite) seedStoryType(id, title string, active bool, steps int) {
	_, err := s.pool.Exec(s.ctx,
		`INSERT INTO story_types (id, title, description, active) VALUES ($1, $2, '', $3)`,
		id, title, active)
	s.Require().NoError(err)
	for i := 0; i < steps; i++ {
		_, err := s.pool.Exec(s.ctx,
			`INSERT INTO story_arc_steps (id, story_type_id, step_index, label, suggests_new_character)
             VALUES ($1, $2, $3, $4, $5)`,
			// Вставляем в обратном порядке, чтобы проверить ORDER BY step_index
			string(rune('a'+steps-1-i)), id, steps-1-i, "step", i == 0)
		s.Require().NoError(err)
	}
}

func (s *PgStoryTypeRepositorySuite) TestGetByID() {
	s.seedStoryType("type-1", "Лесное приключение", true, 3)
	repo := repository.NewPgStoryTypeRepository(s.pool, zap.NewNop())

	storyType, err := repo.GetByID(s.ctx, "type-1")

	s.Require().NoError(err)
	s.Equal("Лесное приключение", storyType.Title)
	s.Equal(3, storyType.TotalArcSteps())
	// Шаги упорядочены по step_index независимо от порядка вставки
	for i, step := range storyType.ArcSteps {
		s.Equal(i, step.StepIndex)
	}
}

func (s *PgStoryTypeRepositorySuite) TestGetByIDNotFound() {
	repo := repository.NewPgStoryTypeRepository(s.pool, zap.NewNop())

	_, err := repo.GetByID(s.ctx, "missing")

	s.ErrorIs(err, models.ErrStoryTypeNotFound)
}

func (s *PgStoryTypeRepositorySuite) TestListActive() {
	s.seedStoryType("type-b", "Морское путешествие", true, 2)
	s.seedStoryType("type-a", "Космос", true, 0)
	s.seedStoryType("type-c", "Выключенный", false, 1)
	repo := repository.NewPgStoryTypeRepository(s.pool, zap.NewNop())

	storyTypes, err := repo.ListActive(s.ctx)

	s.Require().NoError(err)
	s.Require().Len(storyTypes, 2)
	// Сортировка по title
	s.Equal("Космос", storyTypes[0].Title)
	s.Equal("Морское путешествие", storyTypes[1].Title)
	// Open-ended тип без шагов валиден
	s.Equal(0, storyTypes[0].TotalArcSteps())
	s.Equal(2, storyTypes[1].TotalArcSteps())
}

func (s *PgStoryTypeRepositorySuite) TestGetDefaultOutputType() {
	repo := repository.NewPgStoryTypeRepository(s.pool, zap.NewNop())

	// Пустой каталог - ErrNotFound (компиляция откладывается)
	_, err := repo.GetDefaultOutputType(s.ctx)
	s.ErrorIs(err, models.ErrNotFound)

	_, execErr := s.pool.Exec(s.ctx,
		`INSERT INTO story_output_types (id, title, is_default) VALUES
         ('out-plain', 'Просто текст', FALSE),
         ('out-book', 'Книжка с картинками', TRUE)`)
	s.Require().NoError(execErr)

	outputType, err := repo.GetDefaultOutputType(s.ctx)
	s.Require().NoError(err)
	s.Equal("out-book", outputType.ID)
	s.True(outputType.IsDefault)
}
