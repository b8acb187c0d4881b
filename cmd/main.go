package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pictovoice/pictovoice-backend/internal/assets"
	"github.com/pictovoice/pictovoice-backend/internal/db"
	"github.com/pictovoice/pictovoice-backend/internal/handlers"
	"github.com/pictovoice/pictovoice-backend/internal/logger"
	"github.com/pictovoice/pictovoice-backend/internal/middleware"
	"github.com/pictovoice/pictovoice-backend/internal/repos"
	"github.com/pictovoice/pictovoice-backend/internal/server"
	"github.com/pictovoice/pictovoice-backend/internal/services"
	"github.com/pictovoice/pictovoice-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	port := utils.GetEnv("PORT", "8080", log)
	scratchDir := utils.GetEnv("SCRATCH_DIR", "assets", log)
	allowOrigins := utils.GetEnvAsList("CORS_ALLOW_ORIGINS", nil, log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Fatal("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up repos from main...")
	keywordRepo := repos.NewKeywordRepo(thePG, log)
	audioRepo := repos.NewAudioRepo(thePG, log)
	runRepo := repos.NewGenerationRunRepo(thePG, log)

	// Scratch storage
	assetStore, err := assets.NewStore(scratchDir, log)
	if err != nil {
		log.Fatal("Could not init asset store", "error", err)
	}

	// Services. A missing vendor credential disables that collaborator and the
	// pipeline downgrades the affected stage per run; the API still serves.
	log.Info("Setting up services from main...")
	bucketService, err := services.NewBucketService(log)
	if err != nil {
		log.Warn("BucketService unavailable, uploads will fail until configured", "error", err)
		bucketService = services.NewDisabledBucketService(err)
	}
	generator, err := services.NewIdeogramGenerator(log, assetStore)
	if err != nil {
		log.Warn("IdeogramGenerator unavailable, candidate generation will fail until configured", "error", err)
		generator = services.NewDisabledGenerator(err)
	}
	judge, err := services.NewVisionImageJudge(log)
	if err != nil {
		log.Warn("ImageJudge unavailable, selection will use the fallback", "error", err)
		judge = services.NewDisabledJudge(err)
	}
	remover, err := services.NewHTTPBackgroundRemover(log)
	if err != nil {
		log.Warn("BackgroundRemover unavailable, pictogram finalization will fail until configured", "error", err)
		remover = services.NewDisabledRemover(err)
	}
	synth, err := services.NewElevenLabsSynthesizer(log)
	if err != nil {
		log.Warn("VoiceSynthesizer unavailable, voice clips will fail until configured", "error", err)
		synth = services.NewDisabledSynthesizer(err)
	}

	selector := services.NewChainSelector(
		log,
		services.NewJudgeSelector(log, judge, assetStore),
		services.NewFallbackSelector(log, assetStore),
	)
	contentGenService := services.NewContentGenerationService(
		log,
		keywordRepo,
		audioRepo,
		runRepo,
		generator,
		selector,
		remover,
		synth,
		bucketService,
		assetStore,
	)
	contentGenService.StartWorker(context.Background())
	keywordService := services.NewKeywordService(log, keywordRepo, audioRepo, runRepo)

	// Handlers
	log.Info("Setting up handlers from main...")
	keywordHandler := handlers.NewKeywordHandler(log, keywordService, contentGenService)
	pictogramHandler := handlers.NewPictogramHandler(log, contentGenService)
	voiceHandler := handlers.NewVoiceHandler(log, contentGenService)

	// Middleware
	log.Info("Setting up middleware from main...")
	adminKeyMiddleware := middleware.NewAdminKeyMiddleware(log)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		AllowOrigins:       allowOrigins,
		KeywordHandler:     keywordHandler,
		PictogramHandler:   pictogramHandler,
		VoiceHandler:       voiceHandler,
		AdminKeyMiddleware: adminKeyMiddleware,
	})

	log.Info("Starting server", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}
