package main

import (
	"context"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"goTheNineAPI/handlers"
	"goTheNineAPI/internal/clock"
	"goTheNineAPI/internal/config"
	"goTheNineAPI/internal/metrics"
	"goTheNineAPI/internal/notification"
	"goTheNineAPI/internal/realtime"
	"goTheNineAPI/internal/storage"
	"goTheNineAPI/internal/syncqueue"
	"goTheNineAPI/middleware"
	"goTheNineAPI/pkg/logger"
	"goTheNineAPI/pkg/tracing"
	"goTheNineAPI/repository"
	"goTheNineAPI/services"
)

func connectDB(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// newSyncQueue prefers Redis so queued items survive a restart; without a
// configured host the queue lives in memory.
func newSyncQueue(ctx context.Context, cfg *config.Config) syncqueue.Queue {
	if !cfg.Redis.Enabled() {
		logger.Log.Info("Redis not configured, using in-memory sync queue")
		return syncqueue.NewMemoryQueue()
	}
	rdb, err := syncqueue.NewRedisClient(ctx, cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Log.Warn("Redis unavailable, using in-memory sync queue", zap.Error(err))
		return syncqueue.NewMemoryQueue()
	}
	logger.Log.Info("Sync queue backed by Redis", zap.String("key", cfg.Sync.QueueKey))
	return syncqueue.NewRedisQueue(rdb, cfg.Sync.QueueKey)
}

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		logger.Init(logger.Options{})
		logger.Log.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Init(logger.Options{Debug: cfg.IsDebug(), LogFile: cfg.Server.LogFile})
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("gothenine-api", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Warn("Tracing disabled", zap.Error(err))
		} else {
			defer tp.Shutdown(context.Background())
		}
	}

	clerk.SetKey(cfg.Clerk.SecretKey)
	logger.Log.Info("Clerk initialized successfully")

	startupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	dbPool, err := connectDB(startupCtx, cfg.Database)
	if err != nil {
		cancel()
		logger.Log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		logger.Log.Info("Closing database connection pool...")
		dbPool.Close()
	}()
	logger.Log.Info("Successfully connected to database")

	if err := repository.EnsureSchema(startupCtx, dbPool); err != nil {
		cancel()
		logger.Log.Fatal("Failed to prepare schema", zap.Error(err))
	}

	provider, err := storage.NewProvider(startupCtx, cfg.Storage)
	if err != nil {
		cancel()
		logger.Log.Fatal("Failed to initialize photo storage", zap.Error(err))
	}
	queue := newSyncQueue(startupCtx, cfg)
	cancel()

	metrics.Register()
	middleware.InitPrometheus()

	profileRepo := repository.NewProfileRepository(dbPool)
	challengeRepo := repository.NewChallengeRepository(dbPool)
	progressRepo := repository.NewProgressRepository(dbPool)
	communityRepo := repository.NewCommunityRepository(dbPool)
	notificationRepo := repository.NewNotificationRepository(dbPool)

	hub := realtime.NewHub()
	go hub.Run(ctx)

	dispatcher := services.NewNotificationDispatcher(5)
	defer dispatcher.Stop()
	if fcmService, err := notification.NewFCMService(ctx, cfg.FCM.ServiceAccountJSON, cfg.FCM.CredentialsFile); err != nil {
		logger.Log.Warn("Could not initialize FCM, push disabled", zap.Error(err))
	} else {
		dispatcher.SetPushProvider(fcmService)
		logger.Log.Info("FCM Push Provider initialized successfully")
	}

	clk := clock.System{}
	accounts := services.NewAccounts(profileRepo, challengeRepo, clk, cfg.Server.DefaultTimezone)
	profileService := services.NewProfileService(accounts, profileRepo)
	challengeService := services.NewChallengeService(accounts, profileRepo, challengeRepo, progressRepo)
	progressService := services.NewProgressService(accounts, progressRepo, hub)
	photoService := services.NewPhotoService(accounts, progressRepo, storage.NewPhotos(provider), progressService)
	statsService := services.NewStatsService(accounts, progressRepo)
	leaderboardService := services.NewLeaderboardService(accounts, communityRepo, progressRepo)
	notificationService := services.NewNotificationService(accounts, notificationRepo, dispatcher)
	progressService.SetNotifier(notificationService)
	syncService := services.NewSyncService(queue, progressService)

	scheduler := services.NewReminderScheduler(communityRepo, progressRepo, notificationService, clk, cfg.Reminder.Tick)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	replayer := syncqueue.NewReplayer(queue, syncService, cfg.Sync.MaxAttempts, cfg.Sync.Interval)
	replayer.Start(ctx)
	defer replayer.Stop()

	profileHandler := handlers.NewProfileHandler(profileService)
	challengeHandler := handlers.NewChallengeHandler(challengeService)
	progressHandler := handlers.NewProgressHandler(progressService)
	photoHandler := handlers.NewPhotoHandler(photoService)
	statsHandler := handlers.NewStatsHandler(statsService)
	communityHandler := handlers.NewCommunityHandler(leaderboardService, hub)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	syncHandler := handlers.NewSyncHandler(syncService)
	webhookHandler := handlers.NewWebhookHandler(profileService, cfg.Clerk.WebhookSecret)

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	go limiter.Cleanup(ctx, 3*time.Minute)

	r := mux.NewRouter()
	r.Use(limiter.Middleware)
	r.Use(middleware.MonitorMiddleware)
	if cfg.Tracing.Enabled {
		r.Use(tracing.Middleware)
	}

	r.Handle("/metrics", middleware.BasicAuth(cfg.Metrics.User, cfg.Metrics.Pass)(promhttp.Handler()))
	r.PathPrefix("/debug/pprof/").Handler(middleware.PprofGuard(cfg.Metrics.PprofSecret)(http.DefaultServeMux))

	if cfg.Storage.Type == "local" {
		fs := http.FileServer(http.Dir(cfg.Storage.LocalPath))
		r.PathPrefix(cfg.Storage.PublicBaseURL + "/").Handler(http.StripPrefix(cfg.Storage.PublicBaseURL+"/", fs))
		logger.Log.Info("Serving uploaded photos", zap.String("dir", cfg.Storage.LocalPath), zap.String("prefix", cfg.Storage.PublicBaseURL))
	}

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := dbPool.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "gothenine-api"}`))
	}).Methods("GET")

	r.HandleFunc("/webhooks/clerk", webhookHandler.HandleClerkWebhook).Methods("POST")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/tasks", handlers.Tasks).Methods("GET")

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.ClerkAuthMiddleware)

	protected.HandleFunc("/profile", profileHandler.GetProfile).Methods("GET")
	protected.HandleFunc("/profile", profileHandler.UpdateProfile).Methods("PUT")
	protected.HandleFunc("/profile", profileHandler.DeleteAccount).Methods("DELETE")

	protected.HandleFunc("/onboarding", challengeHandler.Onboard).Methods("POST")
	protected.HandleFunc("/dashboard", challengeHandler.Dashboard).Methods("GET")
	protected.HandleFunc("/challenge", challengeHandler.GetChallenge).Methods("GET")
	protected.HandleFunc("/challenge/history", challengeHandler.History).Methods("GET")
	protected.HandleFunc("/challenge/share", challengeHandler.Share).Methods("GET")
	protected.HandleFunc("/challenge/restart", challengeHandler.Restart).Methods("POST")

	// fixed paths first so {date} does not swallow them
	protected.HandleFunc("/progress/calendar", progressHandler.Calendar).Methods("GET")
	protected.HandleFunc("/progress/streak", progressHandler.Streak).Methods("GET")
	protected.HandleFunc("/progress/{date}", progressHandler.Day).Methods("GET")
	protected.HandleFunc("/progress/{date}/tasks/{taskID}/toggle", progressHandler.Toggle).Methods("PUT")
	protected.HandleFunc("/progress/{date}/tasks/{taskID}", progressHandler.UpdateDetails).Methods("PUT")
	protected.HandleFunc("/progress/{date}/photo", photoHandler.Upload).Methods("POST")
	protected.HandleFunc("/photos", photoHandler.Gallery).Methods("GET")

	protected.HandleFunc("/stats/weekly", statsHandler.Weekly).Methods("GET")
	protected.HandleFunc("/stats/monthly", statsHandler.Monthly).Methods("GET")
	protected.HandleFunc("/stats/summary", statsHandler.Summary).Methods("GET")

	protected.HandleFunc("/community/leaderboard", communityHandler.Leaderboard).Methods("GET")
	protected.HandleFunc("/community/ws", communityHandler.Subscribe).Methods("GET")

	protected.HandleFunc("/notifications", notificationHandler.GetNotifications).Methods("GET")
	protected.HandleFunc("/notifications/unread-count", notificationHandler.GetUnreadCount).Methods("GET")
	protected.HandleFunc("/notifications/read-all", notificationHandler.MarkAllAsRead).Methods("PUT")
	protected.HandleFunc("/notifications/preferences", notificationHandler.GetPreferences).Methods("GET")
	protected.HandleFunc("/notifications/preferences", notificationHandler.UpdatePreferences).Methods("PUT")
	protected.HandleFunc("/notifications/register-device", notificationHandler.RegisterDevice).Methods("POST")
	protected.HandleFunc("/notifications/{id}/read", notificationHandler.MarkAsRead).Methods("PUT")
	protected.HandleFunc("/notifications/{id}", notificationHandler.DeleteNotification).Methods("DELETE")

	protected.HandleFunc("/sync", syncHandler.Enqueue).Methods("POST")
	protected.HandleFunc("/sync", syncHandler.Pending).Methods("GET")

	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins([]string{"*"}),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Pprof-Secret"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length"}),
	)
	recovery := gorilllaHandlers.RecoveryHandler(gorilllaHandlers.PrintRecoveryStack(cfg.IsDebug()))

	server := http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      recovery(corsHandler(r)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Log.Info("Starting server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("Error starting server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Log.Info("Shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server shutdown error", zap.Error(err))
	}

	logger.Log.Info("Server shutdown complete")
}
