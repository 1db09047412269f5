package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"quiz-live-service/internal/app"
	"quiz-live-service/internal/config"
	"quiz-live-service/internal/domain"
	"quiz-live-service/internal/infra/auth"
	"quiz-live-service/internal/infra/memory"
	pgloader "quiz-live-service/internal/infra/postgres"
	redisinfra "quiz-live-service/internal/infra/redis"
	transport "quiz-live-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the live quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, found, err := config.LoadOptional(configPath)
	if err != nil {
		return err
	}
	logger := cfg.NewLogger()
	slog.SetDefault(logger)
	if !found {
		logger.Warn("config file not found, using defaults", "path", configPath)
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	loader, err := quizLoader(cfg, pool)
	if err != nil {
		return err
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	var ledger app.PinLedger
	var pinTTL time.Duration
	if redisClient != nil {
		quizRepo = redisinfra.NewQuizRepository(redisClient, loader, quizTTL)
		pinTTL = config.TTLDuration(cfg.Redis.TTL, 6*time.Hour)
		ledger = redisinfra.NewPinLedger(redisClient, uuid.NewString(), pinTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
		ledger = memory.NewPinLedger()
	}

	tokens, err := auth.NewHostTokens(cfg.Auth.Secret, config.TTLDuration(cfg.Auth.TokenTTL, 12*time.Hour))
	if err != nil {
		return err
	}
	if cfg.Auth.Secret == "" {
		logger.Warn("auth.secret not set, host tokens are valid for this process only")
	}

	registry := app.NewRegistry(ledger, cfg.EngineSettings(), logger)
	engine := app.NewEngine(registry, quizRepo, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", transport.NewWSHandler(engine, tokens, logger).ServeWS)
	transport.NewRoomHandler(engine, tokens, logger).Register(mux)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
		// no WriteTimeout: websocket connections are long-lived
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting quiz service", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if pinTTL >= time.Second {
		// rooms may outlive the reservation TTL, so keep extending it
		g.Go(func() error {
			ticker := time.NewTicker(pinTTL / 3)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					if err := registry.RefreshPins(gctx); err != nil {
						logger.Warn("refresh pin reservations", "error", err)
					}
				}
			}
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		// end rooms first so connected clients receive game:end before the listener closes
		if err := engine.Shutdown(shutdownCtx); err != nil {
			logger.Warn("registry drain incomplete", "error", err)
		}
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func quizLoader(cfg config.Config, pool *pgxpool.Pool) (memory.QuizLoader, error) {
	if pool != nil {
		return pgloader.NewQuizLoader(pool), nil
	}
	if cfg.Quiz.File != "" {
		return memory.NewFileQuizLoader(cfg.Quiz.File)
	}
	return memory.NewStaticQuizLoader(sampleQuizzes()), nil
}

// sampleQuizzes backs the demo catalog when neither Postgres nor a quiz file is configured.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:    "quiz-1",
			Title: "Warm-up",
			Questions: []domain.Question{
				{
					Text:            "What is 2 + 2?",
					Options:         []string{"3", "4", "5"},
					CorrectIndex:    1,
					DurationSeconds: 20,
					Points:          100,
				},
				{
					Text:            "Which planet is known as the red planet?",
					Options:         []string{"Venus", "Jupiter", "Mars", "Saturn"},
					CorrectIndex:    2,
					DurationSeconds: 20,
					Points:          100,
				},
			},
		},
	}
}
