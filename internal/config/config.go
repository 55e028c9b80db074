package config

import (
	"fmt"
	"time"

	"storyteller-server/shared/utils"

	"github.com/kelseyhightower/envconfig"
)

// Config содержит конфигурацию сервиса storyteller.
type Config struct {
	// Настройки сервера
	Port     string `envconfig:"SERVER_PORT" default:"8084"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Настройки PostgreSQL (каталог типов историй)
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`
	DBSSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns int    `envconfig:"DB_MAX_CONNECTIONS" default:"10"`
	// Секретное поле БЕЗ envconfig тега
	DBPassword string

	// Firestore (сессии, сообщения, дети/персонажи)
	FirebaseCredentialsPath string `envconfig:"FIREBASE_CREDENTIALS_PATH" required:"true"`
	FirestoreProjectID      string `envconfig:"FIRESTORE_PROJECT_ID"`

	// Redis (кэш резолвера акторов)
	RedisAddr         string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisDB           int           `envconfig:"REDIS_DB" default:"0"`
	ResolverCacheTTL  time.Duration `envconfig:"RESOLVER_CACHE_TTL" default:"10m"`

	// RabbitMQ (fire-and-forget задачи аватаров)
	RabbitMQURL     string `envconfig:"RABBITMQ_URL" required:"true"`
	AvatarTaskQueue string `envconfig:"AVATAR_TASK_QUEUE" default:"character_avatar_tasks"`

	// Внешние коллабораторы
	StoryFlowURL        string        `envconfig:"STORY_FLOW_URL" required:"true"`
	CharacterSvcURL     string        `envconfig:"CHARACTER_SERVICE_URL" required:"true"`
	CompileSvcURL       string        `envconfig:"COMPILE_SERVICE_URL" required:"true"`
	CollaboratorTimeout time.Duration `envconfig:"COLLABORATOR_TIMEOUT" default:"90s"`

	// Настройки JWT (проверка токена родителя в middleware)
	// Секретное поле БЕЗ envconfig тега
	JWTSecret string
}

// GetDSN возвращает строку подключения (DSN) для PostgreSQL.
func (c *Config) GetDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// LoadConfig загружает конфигурацию из переменных окружения и секретов.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("ошибка загрузки конфигурации storyteller-server: %w", err)
	}

	var loadErr error
	cfg.DBPassword, loadErr = utils.ReadSecret("db_password")
	if loadErr != nil {
		return nil, loadErr
	}

	cfg.JWTSecret, loadErr = utils.ReadSecret("jwt_secret")
	if loadErr != nil {
		return nil, loadErr
	}

	return &cfg, nil
}
