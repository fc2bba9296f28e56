package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/config"
	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/infra/memory"
	"quiz-attempt-service/internal/infra/postgres"
	redisinfra "quiz-attempt-service/internal/infra/redis"
	"quiz-attempt-service/internal/infra/sqlite"
	"quiz-attempt-service/internal/logger"
	transport "quiz-attempt-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the attempt server",
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
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return err
	}
	defer log.Sync()

	if ctx == nil {
		ctx = context.Background()
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var fileDefs map[string]domain.QuizDefinition
	if cfg.Quiz.Definitions != "" {
		fileDefs, err = memory.LoadDefinitionsFile(cfg.Quiz.Definitions)
		if err != nil {
			return err
		}
		log.Info("quiz definitions loaded", "path", cfg.Quiz.Definitions, "count", len(fileDefs))
	}

	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	var attempts app.AttemptStore
	var loader memory.QuizLoader
	seeded := make(map[string]struct{})
	switch {
	case cfg.Postgres.URL != "":
		if err := runMigrations(ctx, cfg, log); err != nil {
			return err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		closers = append(closers, pool.Close)

		quizLoader := postgres.NewQuizLoader(pool)
		for id, def := range fileDefs {
			if err := quizLoader.SaveQuiz(ctx, def); err != nil {
				return err
			}
			seeded[id] = struct{}{}
		}
		loader = quizLoader

		db := postgres.OpenBun(cfg.Postgres.URL)
		closers = append(closers, func() { _ = db.Close() })
		attempts = postgres.NewAttemptStore(db)
	case cfg.SQLite.Path != "":
		store, err := sqlite.NewAttemptStore(cfg.SQLite.Path)
		if err != nil {
			return err
		}
		closers = append(closers, func() { _ = store.Close() })
		attempts = store
	default:
		attempts = memory.NewAttemptStore()
	}
	if loader == nil {
		if fileDefs == nil {
			fileDefs = sampleDefinitions()
		}
		loader = memory.NewStaticQuizLoader(fileDefs)
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers = append(closers, func() { _ = redisClient.Close() })
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)

	var quizRepo app.QuizRepository
	var sessions app.SessionRepository
	if redisClient != nil {
		instance, _ := os.Hostname()
		redisQuizzes := redisinfra.NewQuizRepository(redisClient, loader, quizTTL)
		invalidateSeeded(ctx, redisQuizzes, seeded, log)
		quizRepo = redisQuizzes
		sessions = redisinfra.NewSessionStore(redisClient, redisTTL, instance)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
		sessions = memory.NewSessionStore()
	}

	service := app.NewAttemptService(sessions, quizRepo, attempts,
		app.WithServiceLogger(log),
		app.WithSubmitTimeout(config.TTLDuration(cfg.Submission.Timeout, 10*time.Second)),
		app.WithFinishedRetention(config.TTLDuration(cfg.Submission.Retention, 5*time.Minute)),
	)

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           transport.NewRouter(service, log),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info("starting attempt service", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

type definitionCache interface {
	Invalidate(ctx context.Context, quizID string) error
}

// invalidateSeeded drops cached copies of definitions that were just written
// to postgres, so a shared cache from an earlier run cannot serve old versions.
func invalidateSeeded(ctx context.Context, cache definitionCache, seeded map[string]struct{}, log *logger.Logger) {
	for id := range seeded {
		if err := cache.Invalidate(ctx, id); err != nil {
			log.Warn("definition cache not invalidated", "quiz_id", id, "error", err)
		}
	}
}

// sampleDefinitions is used when neither postgres nor a definitions file is configured.
func sampleDefinitions() map[string]domain.QuizDefinition {
	return map[string]domain.QuizDefinition{
		"quiz-1": {
			ID:   "quiz-1",
			Name: "Warm-up arithmetic",
			Kind: domain.KindQuiz,
			Levels: []domain.Level{
				{
					Name:             "easy",
					TimeLimitSeconds: 30,
					PassingMarks:     1,
					Questions: []domain.Question{
						{ID: "q1", Prompt: "What is 2 + 2?", Options: []string{"3", "4", "5"}, CorrectOption: "4", Points: 1},
						{ID: "q2", Prompt: "What is 10 / 2?", Options: []string{"2", "5", "8"}, CorrectOption: "5", Points: 1},
					},
				},
			},
		},
	}
}
