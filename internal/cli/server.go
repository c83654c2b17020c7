package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quizhost/internal/app"
	"quizhost/internal/config"
	"quizhost/internal/domain"
	"quizhost/internal/infra/memory"
	pgloader "quizhost/internal/infra/postgres"
	redisinfra "quizhost/internal/infra/redis"
	transport "quizhost/internal/transport/http"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz session server",
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

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
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
	}
	redisTTL := config.Duration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	if pool != nil {
		loader = pgloader.NewQuizLoader(pool)
	}

	quizTTL := config.Duration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redisinfra.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	var store app.SessionStore
	if redisClient != nil {
		store = redisinfra.NewSessionStore(redisClient, redisTTL)
	} else {
		store = memory.NewSessionStore()
	}

	countdown := config.Duration(cfg.Session.Countdown, app.DefaultCountdown)
	registry := app.NewRegistry(store, quizRepo, app.NewTimerService(), countdown)
	wsHandler := transport.NewWSHandler(registry)
	apiHandler := transport.NewAPIHandler(registry)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	apiHandler.Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quizhost on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuizzes provides a minimal quiz set for running without Postgres.
func sampleQuizzes() map[string]domain.Quiz {
	now := time.Now()
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:        "quiz-1",
			Name:      "Warm-up",
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
			Questions: []domain.Question{
				{
					ID:       "q1",
					Text:     "What is 2 + 2?",
					Duration: 30,
					Points:   2,
					Answers: []domain.Answer{
						{ID: "o1", Text: "3", Correct: false, Colour: "red"},
						{ID: "o2", Text: "4", Correct: true, Colour: "green"},
						{ID: "o3", Text: "5", Correct: false, Colour: "blue"},
					},
				},
				{
					ID:       "q2",
					Text:     "Which are prime numbers?",
					Duration: 45,
					Points:   4,
					Answers: []domain.Answer{
						{ID: "o1", Text: "2", Correct: true, Colour: "green"},
						{ID: "o2", Text: "4", Correct: false, Colour: "red"},
						{ID: "o3", Text: "7", Correct: true, Colour: "yellow"},
					},
				},
			},
		},
	}
}
