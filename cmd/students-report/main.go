// main is the entry point of the students-report service.
//
// STARTUP SEQUENCE:
//  1. Load configuration from a YAML file
//  2. Initialise the logger
//  3. Open the student dataset and the credential directory
//  4. Register all HTTP routes
//  5. Start the HTTP server in a separate goroutine
//  6. Block until an OS signal arrives, then shut down gracefully
//
// RUNNING THE SERVER:
//
//	go run ./cmd/students-report --config=config/local.yaml
//
// or
//
//	CONFIG_PATH=config/local.yaml go run ./cmd/students-report
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aanand-mishra/students-report/internal/config"
	"github.com/aanand-mishra/students-report/internal/credentials"
	"github.com/aanand-mishra/students-report/internal/http/handlers/report"
	"github.com/aanand-mishra/students-report/internal/http/handlers/student"
	"github.com/aanand-mishra/students-report/internal/http/handlers/user"
	"github.com/aanand-mishra/students-report/internal/records"
	"github.com/aanand-mishra/students-report/internal/session"
	"github.com/aanand-mishra/students-report/internal/storage"
	"github.com/aanand-mishra/students-report/internal/storage/sqlite"
	"github.com/aanand-mishra/students-report/internal/storage/yamlfile"
)

func main() {
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)

	log.Info("starting students-report",
		slog.String("env", cfg.Env),
		slog.String("version", "1.0.0"),
	)

	// The dataset is loaded lazily per request and cached while the file
	// is unchanged. A broken file at startup is reported, not fatal.
	dataset := records.NewStore(cfg.DatasetPath, log)
	log.Info("dataset source", slog.String("path", dataset.Path()))
	if _, err := dataset.Dataset(); err != nil {
		log.Warn("dataset not available yet", slog.String("error", err.Error()))
	}

	store, closeStore, err := openCredentialStore(cfg.Credentials)
	if err != nil {
		log.Error("failed to initialise credential storage", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeStore.Close()

	directory, err := credentials.Open(store, cfg.AdminUsername)
	if err != nil {
		log.Error("failed to load credentials", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info("credentials loaded",
		slog.String("backend", cfg.Credentials.Backend),
		slog.String("path", cfg.Credentials.Path),
		slog.String("admin", directory.Admin()),
		slog.Int("users", directory.Count()))

	router := newRouter(dataset, directory, session.HeaderAuthenticator{})

	server := &http.Server{
		Addr:         cfg.HTTPServer.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server started", slog.String("address", cfg.HTTPServer.Addr))

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server encountered an error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// SIGHUP re-reads the dataset and the credential directory, e.g. after
	// the files were edited by hand.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		for range hup {
			reload(log, dataset, directory)
		}
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	<-done
	signal.Stop(hup)

	log.Info("shutdown signal received, stopping server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("failed to shutdown server gracefully", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("server stopped gracefully")
}

// newRouter registers every route of the service.
//
//	GET    /api/students                 → records, optionally filtered by ?name=
//	GET    /api/reports/summary          → every aggregate at once
//	GET    /api/reports/ages             → age histogram
//	GET    /api/reports/grades/average   → mean average per grade
//	GET    /api/reports/grades/count     → students per grade
//	GET    /api/reports/grades/top       → best ?n= averages per grade
//	GET    /api/reports/pass-fail        → passed / failed counts
//	GET    /api/users                    → registry (admin)
//	POST   /api/users                    → register a user (logged in)
//	DELETE /api/users/{username}         → remove a user (admin)
func newRouter(source records.Source, dir user.Directory, auth session.Authenticator) *http.ServeMux {
	router := http.NewServeMux()

	router.HandleFunc("GET /api/students", student.GetList(source))

	router.HandleFunc("GET /api/reports/summary", report.Summary(source))
	router.HandleFunc("GET /api/reports/ages", report.Ages(source))
	router.HandleFunc("GET /api/reports/grades/average", report.AverageByGrade(source))
	router.HandleFunc("GET /api/reports/grades/count", report.CountByGrade(source))
	router.HandleFunc("GET /api/reports/grades/top", report.TopByGrade(source))
	router.HandleFunc("GET /api/reports/pass-fail", report.PassFail(source))

	router.HandleFunc("GET /api/users", user.GetList(auth, dir))
	router.HandleFunc("POST /api/users", user.New(auth, dir))
	router.HandleFunc("DELETE /api/users/{username}", user.Delete(auth, dir))

	return router
}

// reload drops the cached dataset and re-reads the credential backend.
// A failed directory reload keeps the previous users.
func reload(log *slog.Logger, dataset *records.Store, directory *credentials.Directory) {
	dataset.Invalidate()
	if _, err := dataset.Dataset(); err != nil {
		log.Warn("dataset reload failed", slog.String("error", err.Error()))
	}

	if err := directory.Reload(); err != nil {
		log.Error("credentials reload failed", slog.String("error", err.Error()))
		return
	}
	log.Info("credentials reloaded", slog.Int("users", directory.Count()))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openCredentialStore builds the backend named in the config. The
// returned closer releases it on shutdown.
func openCredentialStore(cfg config.Credentials) (storage.Storage, io.Closer, error) {
	switch cfg.Backend {
	case config.BackendYAML, "":
		return yamlfile.New(cfg.Path), nopCloser{}, nil
	case config.BackendSQLite:
		db, err := sqlite.New(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return db, db, nil
	default:
		return nil, nil, fmt.Errorf("unknown credentials backend %q", cfg.Backend)
	}
}

// setupLogger returns a *slog.Logger configured for the given environment.
//
// dev:     human-readable text at DEBUG
// staging: JSON at DEBUG
// prod:    JSON at INFO
func setupLogger(env string) *slog.Logger {
	switch env {
	case "prod":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	case "staging":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	default:
		return slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	}
}
