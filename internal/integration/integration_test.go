package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"quizhost/internal/app"
	"quizhost/internal/domain"
	pgloader "quizhost/internal/infra/postgres"
	pgmigrations "quizhost/internal/infra/postgres/migrations"
	redisinfra "quizhost/internal/infra/redis"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestSessionLifecycleEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedQuiz(t, ctx, pgURL, sampleQuiz())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	loader := pgloader.NewQuizLoader(pool)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	quizRepo := redisinfra.NewQuizRepository(redisClient, loader, 5*time.Minute)
	sessionStore := redisinfra.NewSessionStore(redisClient, 5*time.Minute)
	registry := app.NewRegistry(sessionStore, quizRepo, app.NewTimerService(), 3*time.Second)

	session, err := registry.CreateSession(ctx, "quiz-1", 0)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	alice, err := registry.Join(ctx, session.ID(), "Alice")
	if err != nil {
		t.Fatalf("join alice: %v", err)
	}
	bob, err := registry.Join(ctx, session.ID(), "Bob")
	if err != nil {
		t.Fatalf("join bob: %v", err)
	}

	if _, err := registry.Dispatch(ctx, session.ID(), domain.ActionNextQuestion); err != nil {
		t.Fatalf("next question: %v", err)
	}
	if _, err := registry.Dispatch(ctx, session.ID(), domain.ActionSkipCountdown); err != nil {
		t.Fatalf("skip countdown: %v", err)
	}

	if err := registry.SubmitAnswer(ctx, alice.ID, 1, []string{"o2"}); err != nil {
		t.Fatalf("alice answer: %v", err)
	}
	if err := registry.SubmitAnswer(ctx, bob.ID, 1, []string{"o1"}); err != nil {
		t.Fatalf("bob answer: %v", err)
	}

	if _, err := registry.Dispatch(ctx, session.ID(), domain.ActionGoToAnswer); err != nil {
		t.Fatalf("go to answer: %v", err)
	}

	result, err := registry.QuestionResult(ctx, session.ID(), 1)
	if err != nil {
		t.Fatalf("question result: %v", err)
	}
	if len(result.PlayersCorrect) != 1 || result.PlayersCorrect[0] != "Alice" {
		t.Fatalf("expected Alice correct, got %+v", result.PlayersCorrect)
	}
	if result.PercentCorrect != 50 {
		t.Fatalf("expected 50%%, got %d", result.PercentCorrect)
	}

	if _, err := registry.Dispatch(ctx, session.ID(), domain.ActionGoToFinalResults); err != nil {
		t.Fatalf("final results: %v", err)
	}
	final, err := registry.FinalResult(ctx, session.ID())
	if err != nil {
		t.Fatalf("final result: %v", err)
	}
	if len(final.Ranking) != 2 || final.Ranking[0].Name != "Alice" || final.Ranking[0].Score != 2 {
		t.Fatalf("expected Alice leading with 2 points, got %+v", final.Ranking)
	}

	if _, err := registry.Dispatch(ctx, session.ID(), domain.ActionEnd); err != nil {
		t.Fatalf("end: %v", err)
	}
	if _, err := registry.Dispatch(ctx, session.ID(), domain.ActionEnd); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected terminal END, got %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedQuiz(t *testing.T, ctx context.Context, dsn string, quiz domain.Quiz) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	data, err := json.Marshal(quiz)
	if err != nil {
		t.Fatalf("marshal quiz: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO quizzes (id, data) VALUES (? , ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`, quiz.ID, string(data)); err != nil {
		t.Fatalf("insert quiz: %v", err)
	}
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:     "quiz-1",
		Name:   "Arithmetic",
		Active: true,
		Questions: []domain.Question{
			{
				ID:       "q1",
				Text:     "What is 2 + 2?",
				Duration: 60,
				Points:   2,
				Answers: []domain.Answer{
					{ID: "o1", Text: "3", Correct: false, Colour: "red"},
					{ID: "o2", Text: "4", Correct: true, Colour: "green"},
					{ID: "o3", Text: "5", Correct: false, Colour: "blue"},
				},
			},
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
