package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/p-n-ai/pai-lingo/internal/ai"
	"github.com/p-n-ai/pai-lingo/internal/content"
	"github.com/p-n-ai/pai-lingo/internal/httpapi"
	"github.com/p-n-ai/pai-lingo/internal/keyvault"
	"github.com/p-n-ai/pai-lingo/internal/platform/cache"
	"github.com/p-n-ai/pai-lingo/internal/platform/config"
	"github.com/p-n-ai/pai-lingo/internal/platform/database"
	"github.com/p-n-ai/pai-lingo/internal/progress"
	"github.com/p-n-ai/pai-lingo/internal/prompts"
	"github.com/p-n-ai/pai-lingo/internal/realtime"
	"github.com/p-n-ai/pai-lingo/internal/syllabus"
)

// probe reports whether a backing service is reachable.
type probe func(ctx context.Context) error

// stores groups the persistence backends for one run.
type stores struct {
	progress progress.Store
	events   progress.EventLogger
	syllabus syllabus.Store
	videos   content.Store
	prompts  prompts.Store
	keys     keyvault.Store
}

func memoryStores() stores {
	return stores{
		progress: progress.NewMemoryStore(),
		events:   progress.NopEventLogger{},
		syllabus: syllabus.NewMemoryStore(),
		videos:   content.NewMemoryStore(),
		prompts:  prompts.NewMemoryStore(),
		keys:     keyvault.NewMemoryStore(),
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Log.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func run(ctx context.Context, cfg *config.Config) error {
	st := memoryStores()
	probes := map[string]probe{}

	if cfg.Database.URL != "" {
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer db.Close()
		if cfg.Database.AutoMigrate {
			if err := database.Migrate(ctx, db.Pool); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
		}
		if st, err = postgresStores(db); err != nil {
			return err
		}
		probes["database"] = db.HealthCheck
	} else {
		slog.Warn("no database configured, progress is kept in memory")
	}

	if cfg.Cache.URL != "" {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			return fmt.Errorf("connect cache: %w", err)
		}
		defer c.Close()
		st.syllabus = syllabus.NewCachedStore(st.syllabus, c, time.Duration(cfg.Cache.SyllabusTTL)*time.Second)
		probes["cache"] = c.HealthCheck
	}

	if cfg.Syllabus.SeedDir != "" {
		docs, err := syllabus.LoadDir(cfg.Syllabus.SeedDir)
		if err != nil {
			return fmt.Errorf("load syllabus seed: %w", err)
		}
		n, err := syllabus.Seed(ctx, st.syllabus, docs)
		if err != nil {
			return fmt.Errorf("seed syllabus: %w", err)
		}
		slog.Info("syllabus seeded", "dir", cfg.Syllabus.SeedDir, "paths", n)
	}

	api, err := newAPI(cfg, st)
	if err != nil {
		return err
	}
	if !cfg.HasAIProvider() {
		slog.Info("no platform AI keys configured, tools need learner keys")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      newMux(api, probes),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func postgresStores(db *database.DB) (stores, error) {
	profiles, err := progress.NewPostgresStore(db.Pool)
	if err != nil {
		return stores{}, err
	}
	syllabi, err := syllabus.NewPostgresStore(db.Pool)
	if err != nil {
		return stores{}, err
	}
	videos, err := content.NewPostgresStore(db.Pool)
	if err != nil {
		return stores{}, err
	}
	templates, err := prompts.NewPostgresStore(db.Pool)
	if err != nil {
		return stores{}, err
	}
	keys, err := keyvault.NewPostgresStore(db.Pool)
	if err != nil {
		return stores{}, err
	}
	return stores{
		progress: profiles,
		events:   progress.NewPostgresEventLogger(db.Pool),
		syllabus: syllabi,
		videos:   videos,
		prompts:  templates,
		keys:     keys,
	}, nil
}

// newAPI assembles the domain services over st.
func newAPI(cfg *config.Config, st stores) (*httpapi.Server, error) {
	hub := realtime.NewHub()
	ledger := progress.NewLedger(progress.LedgerConfig{
		Store:       st.progress,
		Events:      st.events,
		Publisher:   hub,
		Location:    cfg.Location(),
		MaxAttempts: cfg.Progress.MaxTxAttempts,
		Backoff:     time.Duration(cfg.Progress.RetryBackoff) * time.Millisecond,
	})

	vault, err := keyvault.New(cfg.Vault.Secret, st.keys)
	if err != nil {
		return nil, fmt.Errorf("key vault: %w", err)
	}
	templates := prompts.NewService(st.prompts)
	router := ai.NewDefaultRouter()
	tools := ai.NewToolkit(router, templates, vault, ai.WithPlatformKeys(map[string]string{
		ai.ProviderGemini:     cfg.AI.Google.APIKey,
		ai.ProviderOpenRouter: cfg.AI.OpenRouter.APIKey,
	}))

	return httpapi.New(httpapi.Deps{
		Auth:      httpapi.NewAuthenticator(cfg.Auth.JWTSecret),
		Ledger:    ledger,
		Syllabi:   st.syllabus,
		Projector: syllabus.NewProjector(st.syllabus, ledger),
		Videos:    content.NewCatalogue(st.videos),
		Prompts:   templates,
		Vault:     vault,
		Router:    router,
		Tools:     tools,
		Hub:       hub,
	}), nil
}

// newMux mounts the API next to the health endpoints.
func newMux(api *httpapi.Server, probes map[string]probe) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", readyzHandler(probes))
	if api != nil {
		api.Register(mux)
	}
	return mux
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func readyzHandler(probes map[string]probe) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		failed := map[string]string{}
		for name, check := range probes {
			if err := check(ctx); err != nil {
				slog.Warn("readiness check failed", "dependency", name, "error", err)
				failed[name] = err.Error()
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if len(failed) > 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]any{"status": "unavailable", "failed": failed})
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}
}
