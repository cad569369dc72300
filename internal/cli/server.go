package cli

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.uber.org/zap"

	"interview-quiz-service/internal/app"
	"interview-quiz-service/internal/config"
	"interview-quiz-service/internal/domain"
	"interview-quiz-service/internal/infra/memory"
	pgstore "interview-quiz-service/internal/infra/postgres"
	redisstore "interview-quiz-service/internal/infra/redis"
	"interview-quiz-service/internal/logging"
	transport "interview-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Mode)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
		logger.Info("migrations applied")
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
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 24*time.Hour)

	var pool *pgxpool.Pool
	var bunDB *bun.DB
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		bunDB = bun.NewDB(sqldb, pgdialect.New())
		defer bunDB.Close()
	}

	// Quiz content: Postgres when configured, otherwise a seeded in-memory
	// backend for demo use; a TTL cache (Redis-backed when available) sits
	// in front either way.
	var backend interface {
		LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
		StoreQuiz(ctx context.Context, quiz domain.Quiz) error
	} = memory.NewStaticQuizBackend(sampleQuizzes())
	if pool != nil {
		backend = pgstore.NewQuizStore(pool)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redisstore.NewQuizRepository(redisClient, backend, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(backend, quizTTL)
	}

	// Attempts: durable in Postgres, Redis for setups without one, plain
	// memory in demo mode.
	var attempts app.AttemptStore
	switch {
	case bunDB != nil:
		attempts = pgstore.NewAttemptStore(bunDB)
	case redisClient != nil:
		attempts = redisstore.NewAttemptStore(redisClient, redisTTL)
	default:
		attempts = memory.NewAttemptStore()
	}

	service := app.NewService(quizRepo, attempts, app.NewActivityHub(), app.ScoreConfig{
		ScaleMax:  cfg.Score.ScaleMax,
		Precision: cfg.Score.Precision,
	}, logger)

	handler := transport.NewHandler(service, logger)
	wsHandler := transport.NewWSHandler(service, logger)
	router := handler.Router(transport.Identity(cfg.Auth.JWTSecret), wsHandler)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting quiz service", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server stopped", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuizzes seeds demo mode; production deployments load content from
// Postgres via the authoring endpoint.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"behavioral-1": {
			ID:      "behavioral-1",
			Title:   "Behavioral interview basics",
			Shuffle: true,
			Questions: []domain.Question{
				{
					ID:      "q1",
					Prompt:  "An interviewer asks about a past conflict. Which structure fits best?",
					Section: "behavioral",
					Options: []domain.Option{
						{Text: "Situation, Task, Action, Result", Correct: true},
						{Text: "Start with the resolution and work backwards"},
						{Text: "List everyone involved by name"},
					},
				},
				{
					ID:      "q2",
					Prompt:  "Which habits strengthen an answer? Select all that apply.",
					Section: "behavioral",
					Weight:  2,
					Options: []domain.Option{
						{Text: "Quantify the outcome", Correct: true},
						{Text: "Blame the previous team"},
						{Text: "Name what you would do differently", Correct: true},
						{Text: "Pad the story with unrelated detail"},
					},
				},
			},
		},
	}
}
