package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/attendance-ingest/internal/config"
	"github.com/cmlabs-hris/attendance-ingest/internal/domain/attendance"
	appHTTP "github.com/cmlabs-hris/attendance-ingest/internal/handler/http"
	"github.com/cmlabs-hris/attendance-ingest/internal/pkg/attendancestore"
	"github.com/cmlabs-hris/attendance-ingest/internal/pkg/cron"
	"github.com/cmlabs-hris/attendance-ingest/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-ingest/internal/pkg/jwt"
	"github.com/cmlabs-hris/attendance-ingest/internal/pkg/oauth"
	"github.com/cmlabs-hris/attendance-ingest/internal/pkg/sse"
	"github.com/cmlabs-hris/attendance-ingest/internal/pkg/storage"
	"github.com/cmlabs-hris/attendance-ingest/internal/repository/postgresql"
	attendanceService "github.com/cmlabs-hris/attendance-ingest/internal/service/attendance"
	"github.com/cmlabs-hris/attendance-ingest/internal/service/file"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout = 30 * time.Second
	sseBuffer       = 64
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		return
	}

	logger := appHTTP.NewLogger(appHTTP.ParseLevel(cfg.App.LogLevel),
		slog.String("app", "attendance-ingest"),
		slog.String("env", cfg.App.Env),
	)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.PoolConfig{
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		fmt.Println("Error connecting to database:", err)
		return
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			log.Fatal("Failed to apply migrations: ", err)
		}
	}

	employeeRepo := postgresql.NewEmployeeRepository(db)
	attendanceRepo := postgresql.NewAttendanceRepository(db)
	uploadRunRepo := postgresql.NewUploadRunRepository(db)

	// The local store also serves POST /attendance/bulk.
	localStore := attendanceService.NewRepositoryStore(attendanceRepo)

	var (
		store       attendance.Store
		checker     attendance.HealthChecker
		bulkHandler attendance.Store
	)
	switch cfg.Store.Mode {
	case config.StoreModeLocal:
		store, checker, bulkHandler = localStore, localStore, localStore
	case config.StoreModeRemote:
		client := newRemoteStore(context.Background(), cfg.Store)
		store, checker = client, client
	default:
		log.Fatal("Unsupported store mode: ", cfg.Store.Mode)
	}

	var fileService file.FileService
	switch cfg.Storage.Type {
	case config.StorageTypeLocal:
		fileStorage, err := storage.NewLocalStorage(cfg.Storage.BasePath)
		if err != nil {
			log.Fatal("Failed to initialize local storage:", err)
		}
		fileService = file.NewFileService(fileStorage)
	case config.StorageTypeNone:
		slog.Info("Uploaded documents will not be archived")
	default:
		log.Fatal("Unsupported storage types: ", cfg.Storage.Type)
	}

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.StreamTokenExpiration)
	hub := sse.NewHub(sseBuffer)
	healthTracker := attendanceService.NewHealthTracker(cfg.Store.Mode, checker, cfg.Store.Timeout)

	uploadService := attendanceService.NewBulkUploadService(
		employeeRepo,
		uploadRunRepo,
		store,
		fileService,
		hub,
		attendanceService.Config{
			MaxRangeDays: cfg.Upload.MaxRangeDays,
			MaxFileSize:  cfg.Upload.MaxFileSize,
		},
	)

	scheduler := cron.NewScheduler()
	cron.NewAttendanceJobs(healthTracker, uploadService, cfg.Store.HealthInterval, cfg.Upload.Retention).
		RegisterJobs(scheduler)
	scheduler.Start(ctx)

	attendanceHandler := appHTTP.NewAttendanceHandler(uploadService, bulkHandler, healthTracker, JWTService, cfg.Upload.MaxFileSize)
	router := appHTTP.NewRouter(appHTTP.RouterConfig{
		FrontendURL: cfg.App.FrontendURL,
		Logger:      logger,
	}, JWTService, attendanceHandler)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Server running", "addr", server.Addr, "store_mode", cfg.Store.Mode)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		if err := server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http server shutdown: %w", err))
		}
		scheduler.Stop()
		if err := uploadService.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		slog.Error("Server stopped with error", "error", err)
		return
	}
	slog.Info("Shutdown complete")
}

func newRemoteStore(ctx context.Context, cfg config.StoreConfig) *attendancestore.Client {
	creds := oauth.ClientCredentials{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       cfg.Scopes,
	}

	var opts []attendancestore.Option
	if creds.Enabled() {
		opts = append(opts, attendancestore.WithHTTPClient(oauth.NewHTTPClient(ctx, creds, nil, cfg.Timeout)))
		slog.Info("Attendance store requests use client credentials", "token_url", cfg.TokenURL)
	}
	return attendancestore.NewClient(cfg.BaseURL, cfg.Timeout, opts...)
}
