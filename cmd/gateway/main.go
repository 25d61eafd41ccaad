package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/mind-engage/mindengage-practice/internal/api/http"
	"github.com/mind-engage/mindengage-practice/internal/assembly"
	auth "github.com/mind-engage/mindengage-practice/internal/auth/middleware"
	"github.com/mind-engage/mindengage-practice/internal/config"
	"github.com/mind-engage/mindengage-practice/internal/db"
	"github.com/mind-engage/mindengage-practice/internal/exam"
	"github.com/mind-engage/mindengage-practice/internal/grading"
	"github.com/mind-engage/mindengage-practice/internal/logging"
	"github.com/mind-engage/mindengage-practice/internal/practice"
	syncx "github.com/mind-engage/mindengage-practice/internal/sync"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogDebug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("gateway stopped", slog.Any("err", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	// --- DB ---
	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	dbh, err := db.Open(openCtx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		return err
	}
	defer dbh.Close()

	store := exam.NewSQLStore(dbh, cfg.DBDriver)
	events := syncx.NewEventRepo(dbh, cfg.DBDriver, cfg.SiteID)

	// --- Auth ---
	authSvc := auth.NewAuthService(cfg.AuthSecret, cfg.TokenTTL)
	if admin, err := auth.EnsureAdmin(openCtx, store, cfg.AdminEmail, cfg.AdminPassHash); err != nil {
		log.Warn("bootstrap admin not created", slog.Any("err", err))
	} else {
		log.Info("admin account ready", slog.String("email", admin.Email))
	}

	// --- Assembly and grading ---
	var asmOpts []assembly.Option
	if cfg.HasShuffleSeed {
		asmOpts = append(asmOpts, assembly.WithSeed(cfg.ShuffleSeed))
		log.Info("random assembly is seeded", slog.Int64("seed", cfg.ShuffleSeed))
	}
	svc := practice.NewService(store,
		assembly.New(asmOpts...),
		grading.NewGrader(grading.WithLogger(log)),
		events, log)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	api.Mount(r, api.Deps{
		Store:              store,
		Practice:           svc,
		Auth:               authSvc,
		Events:             events,
		DB:                 dbh,
		Log:                log,
		EnableRegistration: cfg.EnableRegistration,
		EnableMetrics:      cfg.EnableMetrics,
		PingMessage:        cfg.PingMessage,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Info("listening", slog.String("addr", cfg.HTTPAddr), slog.String("mode", string(cfg.Mode)), slog.String("db", cfg.DBDriver))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	return srv.Shutdown(shutdownCtx)
}
