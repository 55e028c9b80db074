package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storyteller-server/internal/clients"
	"storyteller-server/internal/config"
	"storyteller-server/internal/handler"
	"storyteller-server/internal/messaging"
	"storyteller-server/internal/notify"
	"storyteller-server/internal/repository"
	"storyteller-server/internal/resolver"
	"storyteller-server/internal/service"
	"storyteller-server/pkg/database"
	"storyteller-server/pkg/firebase"
	"storyteller-server/pkg/migration"
	sharedLogger "storyteller-server/shared/logger"
	sharedMiddleware "storyteller-server/shared/middleware"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	log.Println("Запуск Storyteller Service...")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	logger, err := sharedLogger.New(sharedLogger.Config{Level: cfg.LogLevel})
	if err != nil {
		log.Fatalf("Не удалось инициализировать логгер: %v", err)
	}
	defer logger.Sync()
	logger.Info("Logger initialized", zap.String("logLevel", cfg.LogLevel))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- PostgreSQL (каталог типов историй) ---
	dbPool, err := database.NewPool(ctx, cfg.GetDSN(), cfg.DBMaxConns)
	if err != nil {
		logger.Fatal("Не удалось подключиться к БД", zap.Error(err))
	}
	defer dbPool.Close()

	migrator := migration.NewMigrator(migration.Config{
		MigrationsPath: repository.MigrationsPath,
		MigrationsFS:   repository.MigrationsFS,
	}, dbPool, logger)
	if err := migrator.Up(); err != nil {
		logger.Fatal("Не удалось применить миграции", zap.Error(err))
	}

	// --- Firebase (Firestore + FCM) ---
	fbApp, err := firebase.NewApp(ctx, cfg.FirebaseCredentialsPath, cfg.FirestoreProjectID)
	if err != nil {
		logger.Fatal("Не удалось инициализировать Firebase App", zap.Error(err))
	}
	fsClient, err := fbApp.Firestore(ctx)
	if err != nil {
		logger.Fatal("Не удалось инициализировать Firestore клиент", zap.Error(err))
	}
	defer fsClient.Close()

	notifier, err := notify.NewFCMNotifier(ctx, fbApp, logger)
	if err != nil {
		logger.Warn("FCM не сконфигурирован, push-уведомления отключены", zap.Error(err))
		notifier = notify.NewStubNotifier(logger)
	}

	// --- RabbitMQ (задачи аватаров) ---
	rabbitConn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatal("Не удалось подключиться к RabbitMQ", zap.Error(err))
	}
	defer rabbitConn.Close()

	avatarPublisher, err := messaging.NewRabbitMQAvatarPublisher(rabbitConn, cfg.AvatarTaskQueue, logger)
	if err != nil {
		logger.Fatal("Не удалось создать паблишер задач аватаров", zap.Error(err))
	}

	// --- Redis (кэш резолвера акторов) ---
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		// Кэш не критичен, резолвер умеет работать без него
		logger.Warn("Redis недоступен, кэш резолвера отключен", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	// --- Репозитории ---
	sessionRepo := repository.NewFirestoreSessionRepository(fsClient, logger)
	entityRepo := repository.NewFirestoreEntityRepository(fsClient, logger)
	storyTypeRepo := repository.NewPgStoryTypeRepository(dbPool, logger)
	actorResolver := resolver.NewCachedActorResolver(entityRepo, redisClient, cfg.ResolverCacheTTL, logger)

	// --- Клиенты коллабораторов ---
	flowClient, err := clients.NewStoryFlowClient(cfg.StoryFlowURL, cfg.CollaboratorTimeout, logger)
	if err != nil {
		logger.Fatal("Не удалось создать клиент генератора", zap.Error(err))
	}
	characterClient, err := clients.NewCharacterClient(cfg.CharacterSvcURL, cfg.CollaboratorTimeout, logger)
	if err != nil {
		logger.Fatal("Не удалось создать клиент сервиса персонажей", zap.Error(err))
	}
	compileClient, err := clients.NewCompileClient(cfg.CompileSvcURL, cfg.CollaboratorTimeout, logger)
	if err != nil {
		logger.Fatal("Не удалось создать клиент компилятора", zap.Error(err))
	}

	// --- Сервисный слой ---
	sessionService := service.NewSessionService(
		sessionRepo,
		storyTypeRepo,
		entityRepo,
		actorResolver,
		flowClient,
		characterClient,
		avatarPublisher,
		logger,
	)
	compileWatcher := service.NewCompileWatcher(sessionRepo, storyTypeRepo, compileClient, notifier, logger)
	compileWatcher.Start(ctx)

	// --- HTTP сервер ---
	e := echo.New()
	e.HideBanner = true
	e.Use(sharedMiddleware.EchoZapLogger(logger))
	e.Use(echoMiddleware.Recover())

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	storyHandler := handler.NewStoryHandler(sessionService, compileWatcher, logger, cfg.JWTSecret)
	storyHandler.RegisterRoutes(e)

	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		logger.Info("Storyteller service listening", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Ошибка запуска HTTP сервера", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Получен сигнал завершения, останавливаем сервис...")

	cancel() // останавливает наблюдения автокомпиляции и ws-фиды

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Ошибка при остановке HTTP сервера", zap.Error(err))
	}
	logger.Info("Storyteller service остановлен")
}
