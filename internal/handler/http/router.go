package http

import (
	"log/slog"
	"os"

	"github.com/cmlabs-hris/attendance-ingest/internal/handler/http/middleware"
	"github.com/cmlabs-hris/attendance-ingest/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

type RouterConfig struct {
	FrontendURL string
	Logger      *slog.Logger
}

func NewRouter(cfg RouterConfig, JWTService jwt.Service, attendanceHandler AttendanceHandler) *chi.Mux {
	r := chi.NewRouter()
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.FrontendURL},
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Content-Disposition"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	authenticated := chi.Chain(
		jwtauth.Verifier(JWTService.JWTAuth()),
		middleware.AuthRequired(JWTService.JWTAuth()),
	)

	r.Route("/api/v1/attendance", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authenticated...)

			r.Get("/template", attendanceHandler.DownloadTemplate)
			r.Post("/bulk", attendanceHandler.BulkWrite)
			r.Get("/records", attendanceHandler.ListRecords)
			r.Get("/store/status", attendanceHandler.StoreStatus)
			r.Post("/uploads", attendanceHandler.StartUpload)
			r.Get("/uploads", attendanceHandler.ListUploads)
		})

		r.Route("/uploads/{id}", func(r chi.Router) {
			// Stream token travels in the query string
			r.Get("/events", attendanceHandler.Stream)

			r.Group(func(r chi.Router) {
				r.Use(authenticated...)

				r.Get("/", attendanceHandler.GetUpload)
				r.Delete("/", attendanceHandler.CancelUpload)
				r.Get("/report.pdf", attendanceHandler.UploadReport)
				r.Get("/document", attendanceHandler.UploadDocument)
				r.Post("/stream-token", attendanceHandler.GetStreamToken)
			})
		})
	})

	return r
}

// NewLogger builds the JSON application logger in the ECS request-log schema.
func NewLogger(level slog.Level, attrs ...any) *slog.Logger {
	logFormat := httplog.SchemaECS.Concise(false)
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(attrs...)
}

// ParseLevel maps LOG_LEVEL to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
