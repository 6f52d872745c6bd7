package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"persona-forge/internal/bootstrap"
	"persona-forge/internal/config"
	apihttp "persona-forge/internal/http"
	"persona-forge/internal/llm"
	"persona-forge/internal/service"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	personaRepo, closeRepo, err := bootstrap.OpenPersonaRepository(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("open persona store", zap.Error(err))
	}
	defer closeRepo()

	redisClient, closeRedis := bootstrap.OpenRedis(ctx, cfg, logger)
	defer closeRedis()
	draftSlot := bootstrap.DraftSlotFor(redisClient, cfg, logger)

	draft := service.NewDraftStore(nil)
	persister := service.NewDraftPersister(logger, draftSlot, draft.Current, cfg.DraftPersistDebounce)
	if restored, err := persister.Rehydrate(ctx, draft); err != nil {
		logger.Warn("draft rehydrate failed", zap.Error(err))
	} else if restored {
		logger.Info("restored persisted draft", zap.String("persona_id", draft.Current().ID))
	}
	persister.Attach(draft)

	collection := service.NewCollectionStore(logger, personaRepo, cfg.StoreTimeout)
	if err := collection.Fetch(ctx); err != nil {
		// El editor sigue disponible; GET /personas reintenta.
		logger.Warn("initial persona fetch failed", zap.Error(err))
	}

	notifications := service.NewNotificationChannel(cfg.NotificationTTL)
	defer notifications.Close()

	editor := service.NewPersonaEditor(logger, draft, collection, notifications, service.NewProgressTracker())

	var (
		preview   *service.PreviewService
		suggester *service.TraitSuggester
	)
	if cfg.LLMAPIKey != "" {
		llmClient := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, logger)
		preview = service.NewPreviewService(llmClient, logger)
		suggester = service.NewTraitSuggester(llmClient, logger)
	} else {
		logger.Warn("llm api key not configured, preview disabled")
	}

	router := apihttp.NewRouter(
		logger,
		apihttp.NewDraftHandler(logger, editor, preview, suggester, service.NewRedisPreviewLimiter(redisClient, cfg.PreviewRateWindow, cfg.PreviewRateLimit)),
		apihttp.NewPersonaHandler(logger, editor),
		apihttp.NewNotificationHandler(notifications),
	)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort), zap.String("store", cfg.StoreBackend))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
	if err := persister.Flush(shutdownCtx); err != nil {
		logger.Warn("final draft flush failed", zap.Error(err))
	}
}
