// main.go - The entry point and router setup.

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/bosocmputer/doubtsolver/configs"
	"github.com/bosocmputer/doubtsolver/internal/ai"
	"github.com/bosocmputer/doubtsolver/internal/api"
	"github.com/bosocmputer/doubtsolver/internal/auth"
	"github.com/bosocmputer/doubtsolver/internal/chat"
	"github.com/bosocmputer/doubtsolver/internal/doubt"
	"github.com/bosocmputer/doubtsolver/internal/logger"
	"github.com/bosocmputer/doubtsolver/internal/ocr"
	"github.com/bosocmputer/doubtsolver/internal/ocr/tesseract"
	"github.com/bosocmputer/doubtsolver/internal/queue"
	"github.com/bosocmputer/doubtsolver/internal/storage"
)

func main() {
	// Step 0: Load configuration from environment variables
	configs.LoadConfig()

	if err := logger.Setup(logger.LogConfig{
		Level:      configs.LOG_LEVEL,
		Format:     configs.LOG_FORMAT,
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
	}); err != nil {
		log.Fatal().Err(err).Msg("Invalid logging configuration")
	}

	// Step 0.5: Set production mode
	if configs.GIN_MODE == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	// Step 1: Storage
	store, err := openStore()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			log.Error().Err(err).Msg("Failed to close storage")
		}
	}()

	// Step 2: OCR and tutor
	selector := ocr.NewSelector(
		tesseract.NewEngine(ocr.ParseLanguages(configs.OCR_LANGUAGES), configs.TESSDATA_PREFIX),
		ocr.WithParallel(configs.OCR_PARALLEL),
		ocr.WithDecoder(ocr.NewDecoder(configs.MAX_IMAGE_PIXELS)),
		ocr.WithLogger(logger.WithComponent("ocr")),
	)

	tutor, err := ai.CreateTutorWithFallback()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create tutor")
	}

	// Step 3: Services
	ocrTimeout := time.Duration(configs.OCR_TIMEOUT) * time.Second
	doubtOpts := []doubt.Option{
		doubt.WithMaxImageDimension(configs.MAX_IMAGE_DIMENSION),
		doubt.WithMaxImagePixels(configs.MAX_IMAGE_PIXELS),
		doubt.WithOCRTimeout(ocrTimeout),
	}

	var enqueuer *queue.Enqueuer
	if configs.REDIS_URL != "" {
		enqueuer, err = queue.NewEnqueuer(configs.REDIS_URL, configs.DOUBT_QUEUE_NAME)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create queue client")
		}
		defer enqueuer.Close()
		doubtOpts = append(doubtOpts, doubt.WithEnqueuer(enqueuer))
	}

	doubts := doubt.NewService(store, selector, tutor, doubtOpts...)

	// Step 3.5: Background worker shares the process with the API
	var worker *queue.Worker
	if configs.REDIS_URL != "" {
		worker, err = queue.NewWorker(configs.REDIS_URL, configs.DOUBT_QUEUE_NAME, configs.WORKER_CONCURRENCY, doubts)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create worker")
		}
		if err := worker.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start worker")
		}
	}

	handler := api.NewHandler(api.Deps{
		Auth: auth.NewService(store, configs.JWT_SECRET_KEY,
			time.Duration(configs.JWT_EXPIRE_MINUTES)*time.Minute,
			time.Duration(configs.USER_CACHE_TTL_SECONDS)*time.Second),
		Doubts:         doubts,
		Chat:           chat.NewService(store),
		OCR:            selector,
		Status:         store,
		MaxUploadBytes: configs.MAX_UPLOAD_BYTES,
		OCRTimeout:     ocrTimeout,
	})

	// Step 4: Setup HTTP server with timeouts
	srv := &http.Server{
		Addr:           ":" + configs.PORT,
		Handler:        api.NewRouter(handler, configs.ALLOWED_ORIGINS),
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   3 * time.Minute, // OCR plus tutor on the request path
		MaxHeaderBytes: 1 << 20,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", configs.PORT).Str("tutor", tutor.Name()).Bool("queue", worker != nil).
			Msg("🚀 Starting server")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Setup graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if worker != nil {
		worker.Shutdown()
	}

	log.Info().Msg("Server exited")
}

func openStore() (storage.Store, error) {
	switch configs.STORAGE_BACKEND {
	case "memory":
		log.Warn().Msg("⚠️  Using in-memory storage, data is lost on restart")
		return storage.NewMemoryStore(), nil
	default:
		return storage.InitMongoDB(context.Background(), configs.MONGO_URI, configs.MONGO_DB_NAME)
	}
}
