package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizroom/internal/domain"
)

// QuizLoader loads quiz JSONB from Postgres and answers catalog queries over it.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, code string) (domain.Quiz, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM quizzes WHERE code=$1`, domain.NormalizeCode(code)).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	return quiz, nil
}

// SaveQuiz inserts or replaces a quiz.
func (l *QuizLoader) SaveQuiz(ctx context.Context, quiz domain.Quiz) error {
	quiz.Code = domain.NormalizeCode(quiz.Code)
	data, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}
	_, err = l.pool.Exec(ctx, `
		INSERT INTO quizzes (code, creator_uid, created_at, data)
		VALUES ($1, $2, $3, $4::jsonb)
		ON CONFLICT (code) DO UPDATE
		SET creator_uid=EXCLUDED.creator_uid, created_at=EXCLUDED.created_at, data=EXCLUDED.data`,
		quiz.Code, quiz.CreatorUID, quiz.CreatedAt, string(data))
	if err != nil {
		return fmt.Errorf("save quiz: %w", err)
	}
	return nil
}

// ListCodes returns every stored room code.
func (l *QuizLoader) ListCodes(ctx context.Context) ([]string, error) {
	rows, err := l.pool.Query(ctx, `SELECT code FROM quizzes ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list quiz codes: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

// ListCreated returns the quizzes authored by uid, newest first.
func (l *QuizLoader) ListCreated(ctx context.Context, uid string) ([]domain.Quiz, error) {
	rows, err := l.pool.Query(ctx, `SELECT data FROM quizzes WHERE creator_uid=$1 ORDER BY created_at DESC`, uid)
	if err != nil {
		return nil, fmt.Errorf("list created quizzes: %w", err)
	}
	defer rows.Close()

	var out []domain.Quiz
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var quiz domain.Quiz
		if err := json.Unmarshal(raw, &quiz); err != nil {
			return nil, fmt.Errorf("unmarshal quiz: %w", err)
		}
		out = append(out, quiz)
	}
	return out, rows.Err()
}
