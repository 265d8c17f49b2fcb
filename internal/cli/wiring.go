package cli

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"

	"quizroom/internal/app"
	"quizroom/internal/config"
	"quizroom/internal/domain"
	"quizroom/internal/infra/memory"
	pgstore "quizroom/internal/infra/postgres"
	redisstore "quizroom/internal/infra/redis"
	"quizroom/internal/progression"
)

type quizSource interface {
	memory.QuizLoader
	app.QuizCatalog
}

// buildService wires the stores named by cfg. Postgres replaces the sample quizzes and the
// in-memory stores; Redis replaces the quiz cache and the live board.
func buildService(ctx context.Context, cfg config.Config) (*app.QuizService, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var (
		source      quizSource = memory.NewStaticQuizLoader(sampleQuizzes())
		submissions app.SubmissionRepository
		profiles    progression.ProfileStore
		ledger      progression.Ledger
	)
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, cleanup, err
		}
		closers = append(closers, pool.Close)
		db := pgstore.OpenBun(cfg.Postgres.URL)
		closers = append(closers, func() { _ = db.Close() })

		source = pgstore.NewQuizLoader(pool)
		submissions = pgstore.NewSubmissionStore(db)
		store := pgstore.NewProfileStore(db)
		profiles, ledger = store, store
	} else {
		submissions = memory.NewSubmissionStore()
		store := memory.NewProfileStore()
		profiles, ledger = store, store
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var (
		quizzes app.QuizRepository
		live    app.LiveBoard
	)
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers = append(closers, func() { _ = client.Close() })
		quizzes = redisstore.NewQuizRepository(client, source, quizTTL)
		live = redisstore.NewLiveBoard(client, config.TTLDuration(cfg.Redis.TTL, 24*time.Hour))
	} else {
		quizzes = memory.NewQuizRepository(source, quizTTL)
		live = memory.NewLiveBoard()
	}

	engine := progression.NewEngine(profiles, ledger)
	return app.NewQuizService(quizzes, source, submissions, live, engine), cleanup, nil
}

// sampleQuizzes seeds a room for local runs; `migrate --seed` stores the same rooms in Postgres.
func sampleQuizzes() map[string]domain.Quiz {
	created := time.Date(2024, 11, 22, 9, 0, 0, 0, time.UTC)
	return map[string]domain.Quiz{
		"DEMO01": {
			Code:        "DEMO01",
			Title:       "World Capitals",
			Description: "Warm-up round",
			Difficulty:  "easy",
			TimeLimit:   120,
			CreatorUID:  "demo-host",
			CreatorName: "Quiz Host",
			CreatedAt:   created,
			Questions: []domain.Question{
				{
					ID:     1,
					Prompt: "What is the capital of Japan?",
					Options: map[domain.Label]string{
						domain.LabelA: "Osaka", domain.LabelB: "Tokyo", domain.LabelC: "Kyoto", domain.LabelD: "Nagoya",
					},
					Correct: domain.LabelB,
					Marks:   1,
				},
				{
					ID:     2,
					Prompt: "What is the capital of Canada?",
					Options: map[domain.Label]string{
						domain.LabelA: "Toronto", domain.LabelB: "Vancouver", domain.LabelC: "Ottawa", domain.LabelD: "Montreal",
					},
					Correct: domain.LabelC,
					Marks:   1,
				},
				{
					ID:     3,
					Prompt: "What is the capital of Australia?",
					Options: map[domain.Label]string{
						domain.LabelA: "Canberra", domain.LabelB: "Sydney", domain.LabelC: "Melbourne", domain.LabelD: "Perth",
					},
					Correct: domain.LabelA,
					Marks:   2,
				},
			},
		},
	}
}
