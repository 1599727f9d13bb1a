package main

import (
	"context"
	"strconv"

	config "course-directory-backend/config"
	"course-directory-backend/middleware"
	"course-directory-backend/utils"

	// Repositories
	reference_repositories "course-directory-backend/reference/repositories"
	uploads_repositories "course-directory-backend/uploads/repositories"

	// Services
	reference_services "course-directory-backend/reference/services"
	uploads_services "course-directory-backend/uploads/services"

	// Routes
	reference_routes "course-directory-backend/reference/routes"
	upload_routes "course-directory-backend/uploads/routes"

	// Queue
	"course-directory-backend/uploads/queue"
	"course-directory-backend/uploads/workers"

	// bleve
	bleveControllers "course-directory-backend/bleve/controllers"
	bleveRepositories "course-directory-backend/bleve/repositories"
	bleveRoutes "course-directory-backend/bleve/routes"
	bleveServices "course-directory-backend/bleve/services"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Initialize Zap logger
	config.InitLogger()

	// Load environment variables
	err := godotenv.Load(".env")
	if err != nil {
		config.Logger.Warn("No .env file loaded", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 20 * 1024 * 1024,
	})

	middleware.InitCors(app)

	// Initialize database and configs
	db := config.ConfigureDatabase()
	port := config.GetEnvOrDefault("PORT", "8080")
	ctx := context.Background()

	redisAddr := config.GetEnvOrDefault("REDIS_ADDRESS", "localhost:6379")
	redisClient := config.InitRedisServer(ctx)
	defer redisClient.Close()

	asynqRedisOpt := asynq.RedisClientOpt{
		Addr:     redisAddr,
		Password: config.GetEnv("REDIS_PASSWORD"),
		DB:       0,
	}

	asynqClient := asynq.NewClient(asynqRedisOpt)
	defer asynqClient.Close()

	indexPath := config.GetEnvOrDefault("BLEVE_INDEX_PATH", "./bleve_data")

	syncRowLimit := 200
	if v := config.GetEnv("UPLOAD_SYNC_ROW_LIMIT"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			syncRowLimit = parsed
		} else {
			config.Logger.Warn("Invalid UPLOAD_SYNC_ROW_LIMIT, using default", zap.String("value", v))
		}
	}

	// Serve static files
	app.Static("/public", "./public")

	// Repositories
	bleveIndexingService := bleveServices.NewIndexingService(config.Logger, indexPath)
	bleveServiceRepo, bleveInterfaceRepo := bleveRepositories.NewBleveRepository(bleveIndexingService)
	referenceRepo := reference_repositories.NewReferenceRepository(db)
	uploadRepo := uploads_repositories.NewUploadRepository(db)
	publishRepo := uploads_repositories.NewPublishRepository(db)

	// Services
	fileStorage := utils.NewLocalFileStorage(config.GetEnvOrDefault("STORAGE_PATH", "./storage"))
	snapshotProvider := reference_services.NewSnapshotProvider(referenceRepo)
	enqueuer := queue.NewAsynqEnqueuer(asynqClient)
	uploadProcessor := uploads_services.NewUploadProcessor(uploadRepo, snapshotProvider, fileStorage, enqueuer, syncRowLimit)
	revalidator := uploads_services.NewRevalidationService(uploadRepo, snapshotProvider)

	// Background worker for queued upload processing, run in-process.
	asynqServer := asynq.NewServer(asynqRedisOpt, asynq.Config{
		Concurrency: 4,
		Queues:      map[string]int{"default": 1},
	})
	processorWorker := workers.NewProcessor(uploadProcessor)
	go func() {
		if err := asynqServer.Run(processorWorker.Handler()); err != nil {
			config.Logger.Fatal("Asynq server failed", zap.Error(err))
		}
	}()

	// Rebuild the search index from the live catalog
	go func() {
		records, err := publishRepo.GetAllLiveApprenticeships()
		if err != nil {
			config.Logger.Error("Failed to load live catalog for indexing", zap.Error(err))
			return
		}
		if err := bleveServiceRepo.RebuildApprenticeshipIndex(records); err != nil {
			config.Logger.Error("Failed to rebuild apprenticeship index", zap.Error(err))
		}
	}()

	// Routes
	upload_routes.UploadRouterInit(app, uploadProcessor, revalidator, uploadRepo, publishRepo, bleveInterfaceRepo, fileStorage)
	reference_routes.ReferenceRouterInit(app, referenceRepo)

	// Bleve Routes
	bleveController := &bleveControllers.SearchController{Repo: bleveServiceRepo}
	bleveRoutes.InitBleveRoutes(app, bleveController)

	// Background cleanup tasks
	go utils.RunScheduledCleanup(db, fileStorage)

	// Start the application
	config.Logger.Info("Server starting", zap.String("port", port))
	config.Logger.Fatal("Server failed", zap.String("port", port), zap.Error(app.Listen(":"+port)))
}
