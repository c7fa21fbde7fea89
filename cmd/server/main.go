package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/linkpilot/linkpilot/internal/api"
	"github.com/linkpilot/linkpilot/internal/auth"
	"github.com/linkpilot/linkpilot/internal/config"
	"github.com/linkpilot/linkpilot/internal/database"
	"github.com/linkpilot/linkpilot/internal/importer"
	"github.com/linkpilot/linkpilot/internal/logging"
	"github.com/linkpilot/linkpilot/internal/metrics"
	"github.com/linkpilot/linkpilot/internal/scheduler"
	"github.com/linkpilot/linkpilot/internal/secrets"
	"github.com/linkpilot/linkpilot/internal/server"
	"github.com/linkpilot/linkpilot/internal/social"
	"github.com/linkpilot/linkpilot/internal/syncer"
	"log/slog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to init logger", "error", err)
		os.Exit(1)
	}

	logger.Info("starting linkpilot")

	ctx := context.Background()

	db, err := database.Connect(ctx, database.Config{
		DataDir:        cfg.Database.DataDir,
		ConnectTimeout: database.DefaultConfig().ConnectTimeout,
	})
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("database connected", "data_dir", cfg.Database.DataDir)

	if err := database.RunMigrations(db, logger); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Create repositories
	connectionRepo := database.NewSQLiteConnectionRepository(db)
	sessionRepo := database.NewSQLiteSyncSessionRepository(db)
	queueRepo := database.NewSQLiteSyncQueueRepository(db)
	eventRepo := database.NewSQLiteEngagementEventRepository(db)
	summaryRepo := database.NewSQLiteEngagementSummaryRepository(db)
	trackedPostRepo := database.NewSQLiteTrackedPostRepository(db)
	insightRepo := database.NewSQLiteNetworkInsightRepository(db)
	scheduledPostRepo := database.NewSQLiteScheduledPostRepository(db)

	// Resolve the LinkedIn access token. A sealed token plus the encryption
	// key takes precedence over the plaintext variable.
	accessToken := cfg.LinkedIn.AccessToken
	if sealed := os.Getenv("LINKEDIN_ACCESS_TOKEN_SEALED"); sealed != "" {
		box, err := secrets.NewBoxFromEnv()
		if err != nil {
			logger.Error("failed to load token encryption key", "error", err)
			os.Exit(1)
		}
		accessToken, err = box.Open(sealed)
		if err != nil {
			logger.Error("failed to decrypt access token", "error", err)
			os.Exit(1)
		}
		logger.Info("using sealed LinkedIn access token")
	}
	if accessToken == "" {
		logger.Warn("LINKEDIN_ACCESS_TOKEN not set, API calls will fail")
	}

	linkedinClient := social.NewLinkedInClient(accessToken, cfg.LinkedIn.AuthorURN, logger)

	// Metrics
	registry := metrics.NewRegistry()
	httpCollector, err := metrics.NewHTTPCollector(registry)
	if err != nil {
		logger.Error("failed to init http metrics", "error", err)
		os.Exit(1)
	}
	syncCollector, err := metrics.NewSyncCollector(registry)
	if err != nil {
		logger.Error("failed to init sync metrics", "error", err)
		os.Exit(1)
	}

	// Sync engine
	userID := cfg.LinkedIn.AuthorURN
	if userID == "" {
		userID = "owner"
	}

	queue := syncer.NewQueue(queueRepo, summaryRepo, logger)
	engagementSyncer := syncer.NewEngagementSyncer(
		linkedinClient,
		trackedPostRepo,
		eventRepo,
		summaryRepo,
		syncCollector,
		logger,
		cfg.Sync.PostsPerConnection,
	)
	insightCalculator := syncer.NewInsightCalculator(connectionRepo, summaryRepo, insightRepo, logger, userID)
	orchestrator := syncer.NewOrchestrator(
		syncer.Config{
			UserID:             userID,
			UsableCallLimit:    cfg.Sync.UsableCallLimit(),
			BatchSize:          cfg.Sync.BatchSize,
			PostsPerConnection: cfg.Sync.PostsPerConnection,
			RelevanceKeywords:  cfg.Sync.RelevanceKeywords,
		},
		sessionRepo,
		connectionRepo,
		trackedPostRepo,
		queue,
		engagementSyncer,
		insightCalculator,
		linkedinClient,
		syncCollector,
		logger,
	)

	// Schedulers
	syncScheduler := scheduler.NewSyncScheduler(orchestrator, sessionRepo, logger, cfg.Sync.SyncHour)
	go syncScheduler.Start(ctx)
	defer syncScheduler.Stop()

	postScheduler := scheduler.NewPostScheduler(scheduledPostRepo, linkedinClient, logger)
	go postScheduler.Start(ctx)
	defer postScheduler.Stop()

	// HTTP routes
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := database.HealthCheck(r.Context(), db); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unhealthy"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("/metrics", metrics.Handler(registry))

	authConfig, err := auth.LoadConfigFromEnv()
	if err != nil {
		logger.Error("failed to load auth config", "error", err)
		os.Exit(1)
	}

	csvImporter := importer.New(connectionRepo, logger)

	api.SetupRoutes(mux, api.Deps{
		UserID:       userID,
		Orchestrator: orchestrator,
		Queue:        queue,
		Sessions:     sessionRepo,
		Connections:  connectionRepo,
		Summaries:    summaryRepo,
		Events:       eventRepo,
		Insights:     insightRepo,
		Scheduled:    scheduledPostRepo,
		Tracked:      trackedPostRepo,
		Importer:     csvImporter,
		AuthConfig:   authConfig,
		Logger:       logger,
	})

	handler := server.WithStaticFiles(httpCollector.InstrumentHandler(mux), cfg.Server.StaticDir)

	srv := server.New(cfg.Server, logger, handler)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("linkpilot started", "url", fmt.Sprintf("http://localhost:%s", cfg.Server.Port))

	waitForSignal(logger)

	logger.Info("shutting down")
	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
}

func waitForSignal(logger *slog.Logger) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	sig := <-c
	logger.Info("received signal", "signal", sig.String())
	signal.Stop(c)
	close(c)
}
