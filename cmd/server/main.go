package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/videogen/api/docs"
	"github.com/videogen/api/internal/auth"
	"github.com/videogen/api/internal/client"
	"github.com/videogen/api/internal/config"
	"github.com/videogen/api/internal/db"
	"github.com/videogen/api/internal/handler"
	"github.com/videogen/api/internal/logging"
	"github.com/videogen/api/internal/middleware"
	"github.com/videogen/api/internal/service"
	"github.com/videogen/api/internal/store"
	ws "github.com/videogen/api/internal/websocket"
	"github.com/videogen/api/internal/worker"
	"github.com/videogen/api/pkg/response"
)

// projectStore is what every store driver provides.
type projectStore interface {
	store.ProjectStore
	store.ProfileStore
}

// @title          VideoGen API
// @version        1.0
// @description    Backend API for VideoGen, turning a topic into a narrated short video.
// @host           localhost:8080
// @BasePath       /
// @schemes        http https
// @securityDefinitions.apikey BearerAuth
// @in             header
// @name           Authorization
// @description    Enter your bearer token in the format **Bearer &lt;token&gt;**
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Log.Fatalf("Failed to load config: %v", err)
	}
	logging.Init(cfg.Server.LogLevel, cfg.Server.Env)
	log := logging.Log

	if cfg.Server.ApiDomain != "" {
		docs.SwaggerInfo.Host = cfg.Server.ApiDomain
		docs.SwaggerInfo.Schemes = []string{"https"}
	} else {
		docs.SwaggerInfo.Host = "localhost:" + cfg.Server.Port
		docs.SwaggerInfo.Schemes = []string{"http"}
	}

	ctx := context.Background()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	redisUp := true
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.WithError(err).Warn("Redis not available, falling back to in-process state")
		redisUp = false
	}

	st, closeStore, err := openStore(ctx, cfg, redisClient, redisUp)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer closeStore()

	storage, err := openStorage(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialise object storage: %v", err)
	}

	validate := validator.New()

	hub := ws.NewHub()
	go hub.Run()
	defer hub.Stop()

	// External clients; unconfigured ones are swapped for mocks by the services.
	textClient := client.NewTextClient(&cfg.Text)
	elevenLabsClient := client.NewElevenLabsClient(&cfg.ElevenLabs)
	falClient := client.NewFalClient(&cfg.Fal)
	compositorClient := client.NewCompositorClient(&cfg.Compositor)

	callTimeout := cfg.Vendor.Timeout()
	projectService := service.NewProjectService(st)
	scriptService := service.NewScriptService(textClient, callTimeout)
	assetService := service.NewAssetService(st, st, elevenLabsClient, falClient, falClient, storage, service.AssetOptions{
		CallTimeout:      callTimeout,
		ImageConcurrency: cfg.Pipeline.ImageConcurrency,
	})
	compositionService := service.NewCompositionService(st, st, falClient, compositorClient, callTimeout)
	orchestrator := service.NewOrchestrator(scriptService, projectService, assetService, assetService, compositionService)

	// Background jobs need Redis for both the queue and the job records.
	var jobService *service.JobService
	if redisUp {
		asynqClient := asynq.NewClient(redisOpt(cfg))
		defer asynqClient.Close()
		jobService = service.NewJobService(store.NewRedisJobStore(redisClient), st, asynqClient)
	} else {
		log.Info("Background jobs disabled, pipeline endpoints run synchronously only")
		jobService = service.NewJobService(store.NewMemoryJobStore(), st, nil)
	}

	var verifier auth.TokenVerifier
	if cfg.Zitadel.Issuer != "" {
		jwksVerifier, err := auth.NewJWKSVerifier(ctx, &cfg.Zitadel)
		if err != nil {
			log.WithError(err).Warn("JWKS verifier not initialized")
		} else {
			verifier = jwksVerifier
		}
	}
	authenticator := auth.NewAuthenticator(verifier, cfg.JWT.Secret)

	var apiAuth fiber.Handler
	if cfg.Gateway.Enabled {
		log.Info("Gateway mode enabled, using header-based auth")
		apiAuth = middleware.GatewayAuthMiddleware()
	} else {
		if !authenticator.Configured() {
			log.Warn("No authentication configured, every API request will be rejected")
		}
		apiAuth = middleware.NewAuthMiddleware(authenticator).Authenticate()
	}

	var limiterRedis *redis.Client
	if redisUp {
		limiterRedis = redisClient
	}
	rateLimiter := middleware.NewRateLimiter(limiterRedis)

	handlers := &handler.Handlers{
		Health: handler.NewHealthHandler(map[string]bool{
			"text":       textClient.IsConfigured(),
			"elevenlabs": elevenLabsClient.IsConfigured(),
			"fal":        falClient.IsConfigured(),
			"compositor": compositorClient.IsConfigured(),
			"storage":    storageConfigured(cfg.Storage.Driver),
			"jobs":       redisUp,
			"auth":       authenticator.Configured() || cfg.Gateway.Enabled,
		}),
		Auth:      handler.NewAuthHandler(authenticator),
		Script:    handler.NewScriptHandler(scriptService, validate),
		Audio:     handler.NewAudioHandler(assetService, validate),
		Profile:   handler.NewProfileHandler(assetService),
		Project:   handler.NewProjectHandler(projectService, compositionService, validate),
		Image:     handler.NewImageHandler(assetService, validate),
		Video:     handler.NewVideoHandler(compositionService, validate),
		Pipeline:  handler.NewPipelineHandler(orchestrator, jobService, validate),
		JobSocket: handler.NewJobSocketHandler(hub, jobService, authenticator),
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    50 * 1024 * 1024, // 50MB
	})

	app.Use(recover.New())
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${reqHeaders}\n"
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-Request-Id",
	}))
	app.Use(middleware.RequestLogger())

	handler.RegisterRoutes(app, handlers, apiAuth, rateLimiter, cfg.RateLimit)

	var workerServer *asynq.Server
	if redisUp {
		workerServer = startWorkerServer(cfg, orchestrator, jobService, hub)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info("Shutting down server...")
		if workerServer != nil {
			workerServer.Shutdown()
		}
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.WithError(err).Error("Server shutdown error")
		}
	}()

	addr := ":" + cfg.Server.Port
	log.Infof("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// openStore picks the project/profile store from STORE_DRIVER.
func openStore(ctx context.Context, cfg *config.Config, redisClient *redis.Client, redisUp bool) (projectStore, func(), error) {
	log := logging.Log.WithField("driver", cfg.Store.Driver)

	switch cfg.Store.Driver {
	case "postgres":
		pool, err := db.Connect(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		st := store.NewPostgresStore(pool)
		if err := st.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		log.Info("Using PostgreSQL project store")
		return st, pool.Close, nil
	case "redis":
		if !redisUp {
			return nil, nil, errors.New("store driver redis requires a reachable Redis")
		}
		log.Info("Using Redis project store")
		return store.NewRedisStore(redisClient), func() {}, nil
	default:
		log.Info("Using in-memory project store")
		return store.NewMemoryStore(), func() {}, nil
	}
}

// openStorage picks the object storage backend from STORAGE_DRIVER.
func openStorage(ctx context.Context, cfg *config.Config) (client.StorageClient, error) {
	log := logging.Log.WithField("driver", cfg.Storage.Driver)

	switch cfg.Storage.Driver {
	case "r2":
		r2, err := client.NewR2Client(ctx, &cfg.R2)
		if err != nil {
			return nil, err
		}
		log.Info("Using R2 object storage")
		return r2, nil
	case "minio":
		minioClient, err := client.NewMinIOClient(ctx, &cfg.MinIO)
		if err != nil {
			return nil, err
		}
		log.Info("Using MinIO object storage")
		return minioClient, nil
	default:
		log.Info("Object storage not configured, using mock storage")
		return client.NewMockStorage(""), nil
	}
}

// storageConfigured reports whether the driver is a real object store rather
// than the in-memory mock.
func storageConfigured(driver string) bool {
	switch driver {
	case "r2", "minio":
		return true
	}
	return false
}

func redisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
}

func startWorkerServer(cfg *config.Config, orchestrator *service.Orchestrator, jobs *service.JobService, hub *ws.Hub) *asynq.Server {
	asynqLogLevel := asynq.InfoLevel
	switch strings.ToLower(cfg.Server.LogLevel) {
	case "debug":
		asynqLogLevel = asynq.DebugLevel
	case "warn":
		asynqLogLevel = asynq.WarnLevel
	case "error":
		asynqLogLevel = asynq.ErrorLevel
	}

	concurrency := cfg.Pipeline.QueueConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	srv := asynq.NewServer(redisOpt(cfg), asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			service.QueuePipeline: 1,
		},
		LogLevel: asynqLogLevel,
		Logger:   logging.Log.WithField("component", "asynq"),
	})

	pipelineWorker := worker.NewPipelineWorker(orchestrator, jobs, hub)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypePipeline, pipelineWorker.ProcessTask)

	go func() {
		if err := srv.Run(mux); err != nil {
			logging.Log.WithError(err).Error("Asynq worker error")
		}
	}()
	return srv
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := response.CodeServiceError
		switch fe.Code {
		case fiber.StatusNotFound:
			code = response.CodeNotFound
		case fiber.StatusRequestEntityTooLarge, fiber.StatusBadRequest, fiber.StatusUpgradeRequired:
			code = response.CodeValidationError
		}
		return response.Error(c, fe.Code, code, fe.Message, nil)
	}
	return response.FromError(c, err)
}
