package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/medmatch/medmatch/internal/config"
	"github.com/medmatch/medmatch/internal/domain/extraction"
	"github.com/medmatch/medmatch/internal/domain/matching"
	"github.com/medmatch/medmatch/internal/domain/trials"
	"github.com/medmatch/medmatch/internal/platform/db"
	"github.com/medmatch/medmatch/internal/platform/llm"
	"github.com/medmatch/medmatch/internal/platform/middleware"
	"github.com/medmatch/medmatch/internal/platform/registry"
)

const version = "0.1.0"

// registryTimeout bounds a single call to the trial registry API.
const registryTimeout = 30 * time.Second

func main() {
	rootCmd := &cobra.Command{
		Use:   "medmatch-server",
		Short: "Clinical trial matching API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(trialsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the matching API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	// migrate down - keep as warning
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Rollback last migration (not supported)",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("WARNING: migrate down is destructive and not supported by the built-in runner.")
			fmt.Println("Write a forward migration that reverses the change instead.")
			return nil
		},
	})

	return cmd
}

func trialsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trials",
		Short: "Manage the local trial catalog",
	}

	fetchCmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch a single trial from the registry by NCT ID",
		RunE: func(cmd *cobra.Command, args []string) error {
			nctID, _ := cmd.Flags().GetString("id")
			if nctID == "" {
				return fmt.Errorf("--id is required")
			}

			logger, cfg, pool, err := bootstrap()
			if err != nil {
				return err
			}
			defer pool.Close()

			reg := registry.NewClient(cfg.RegistryBaseURL, registryTimeout, logger)
			svc := trials.NewService(trials.NewRepoPG(pool), reg, logger)

			trial, err := svc.FetchStudy(context.Background(), nctID)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", nctID, err)
			}

			fmt.Printf("Imported %s: %s (%d criteria)\n", trial.ID, trial.Title, trial.CriteriaCount())
			return nil
		},
	}
	fetchCmd.Flags().String("id", "", "NCT identifier, e.g. NCT04613596")
	cmd.AddCommand(fetchCmd)

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Import registry trials matching a search query",
		RunE: func(cmd *cobra.Command, args []string) error {
			query, _ := cmd.Flags().GetString("query")

			logger, cfg, pool, err := bootstrap()
			if err != nil {
				return err
			}
			defer pool.Close()

			if query == "" {
				query = cfg.RegistrySearchTerms
			}
			if query == "" {
				return fmt.Errorf("--query is required (or set REGISTRY_SEARCH_TERMS)")
			}

			reg := registry.NewClient(cfg.RegistryBaseURL, registryTimeout, logger)
			svc := trials.NewService(trials.NewRepoPG(pool), reg, logger)

			imported, err := svc.Sync(context.Background(), query)
			if err != nil {
				return fmt.Errorf("sync %q: %w", query, err)
			}

			fmt.Printf("Imported %d trial(s) for query %q.\n", imported, query)
			return nil
		},
	}
	syncCmd.Flags().String("query", "", "Registry search query, e.g. \"lung cancer\"")
	cmd.AddCommand(syncCmd)

	return cmd
}

// bootstrap loads config, validates it, and opens the database pool. Shared by
// the CLI subcommands that need a working environment without an HTTP server.
func bootstrap() (zerolog.Logger, *config.Config, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return zerolog.Nop(), nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return zerolog.Nop(), nil, nil, err
	}

	logger := newLogger(cfg.Env)

	pool, err := db.NewPool(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return zerolog.Nop(), nil, nil, err
	}
	return logger, cfg, pool, nil
}

// newLogger builds the process logger. Development mode gets a human-readable
// console writer, everything else structured JSON.
func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// resolveRateLimit returns the configured rate limit, falling back to the
// defaults when the configured rate is zero or negative.
func resolveRateLimit(rps float64, burst int) middleware.RateLimitConfig {
	cfg := middleware.RateLimitConfig{
		RequestsPerSecond: rps,
		BurstSize:         burst,
	}
	if cfg.RequestsPerSecond <= 0 {
		return middleware.DefaultRateLimitConfig()
	}
	return cfg
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(cfg.Env)

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Semantic extraction backend. The server runs fine without a reachable
	// Ollama instance, every request just takes the rule-based path.
	ollama := llm.NewClient(
		cfg.OllamaURL,
		cfg.OllamaModel,
		time.Duration(cfg.LLMTimeoutSeconds)*time.Second,
		time.Duration(cfg.LLMAvailabilityTTL)*time.Second,
		logger,
	)

	reg := registry.NewClient(cfg.RegistryBaseURL, registryTimeout, logger)

	// Domain services
	trialsSvc := trials.NewService(trials.NewRepoPG(pool), reg, logger)
	extractionSvc := extraction.NewService(ollama, ollama, logger)
	matchingSvc := matching.NewService(trialsSvc, ollama, ollama, logger)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.SanitizeWithLogger(logger))
	e.Use(middleware.BodyLimit(cfg.BodyLimit, cfg.UploadLimit))
	e.Use(middleware.RequestTimeout(time.Duration(cfg.RequestTimeoutSeconds) * time.Second))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Content-Type", "X-Request-ID"},
	}))

	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.RateLimit(resolveRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst)))

	// Routes
	trials.NewHandler(trialsSvc).RegisterRoutes(apiV1)
	extraction.NewHandler(extractionSvc).RegisterRoutes(apiV1)
	matching.NewHandler(matchingSvc, extractionSvc).RegisterRoutes(apiV1)

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))
	e.GET("/health/llm", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"strategy":  ollama.Name(),
			"model":     cfg.OllamaModel,
			"available": ollama.Available(c.Request().Context()),
		})
	})

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
