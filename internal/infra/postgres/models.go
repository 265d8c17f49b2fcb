package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"quizroom/internal/domain"
)

type submissionModel struct {
	bun.BaseModel `bun:"table:submissions,alias:s"`

	ID              int64           `bun:"id,pk,autoincrement"`
	QuizCode        string          `bun:"quiz_code,notnull"`
	Name            string          `bun:"name,notnull"`
	UID             string          `bun:"uid,nullzero"`
	DurationSeconds int             `bun:"duration_seconds,notnull"`
	Answers         []domain.Answer `bun:"answers,type:jsonb"`
	TotalScore      int             `bun:"total_score,notnull"`
	TotalCorrect    int             `bun:"total_correct,notnull"`
	TotalQuestions  int             `bun:"total_questions,notnull"`
	Excluded        []int           `bun:"excluded,type:jsonb"`
	SubmittedAt     time.Time       `bun:"submitted_at,notnull"`
}

func (m submissionModel) record() domain.SubmissionRecord {
	return domain.SubmissionRecord{
		Submission: domain.Submission{
			QuizCode:        m.QuizCode,
			ParticipantName: m.Name,
			DurationSeconds: m.DurationSeconds,
			Answers:         m.Answers,
			UID:             m.UID,
			SubmittedAt:     m.SubmittedAt,
		},
		ScoreResult: domain.ScoreResult{
			TotalScore:     m.TotalScore,
			TotalCorrect:   m.TotalCorrect,
			TotalQuestions: m.TotalQuestions,
			Excluded:       m.Excluded,
		},
	}
}

type profileModel struct {
	bun.BaseModel `bun:"table:profiles,alias:p"`

	UID            string    `bun:"uid,pk"`
	Name           string    `bun:"name,notnull"`
	Bio            string    `bun:"bio,notnull"`
	TotalXP        int       `bun:"total_xp,notnull"`
	QuizzesPlayed  int       `bun:"quizzes_played,notnull"`
	QuizzesCreated int       `bun:"quizzes_created,notnull"`
	TotalCorrect   int       `bun:"total_correct,notnull"`
	TotalQuestions int       `bun:"total_questions,notnull"`
	BadgesCount    int       `bun:"badges_count,notnull"`
	CreatedAt      time.Time `bun:"created_at,notnull"`
	UpdatedAt      time.Time `bun:"updated_at,notnull"`
}

func (m profileModel) profile() domain.UserProfile {
	return domain.UserProfile{
		UID:  m.UID,
		Name: m.Name,
		Bio:  m.Bio,
		Counters: domain.Counters{
			TotalXP:        m.TotalXP,
			QuizzesPlayed:  m.QuizzesPlayed,
			QuizzesCreated: m.QuizzesCreated,
			TotalCorrect:   m.TotalCorrect,
			TotalQuestions: m.TotalQuestions,
			BadgesCount:    m.BadgesCount,
		},
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

type awardModel struct {
	bun.BaseModel `bun:"table:awards,alias:a"`

	UID       string    `bun:"uid,pk"`
	Key       string    `bun:"key,pk"`
	QuizCode  string    `bun:"quiz_code,nullzero"`
	XP        int       `bun:"xp,notnull"`
	Badge     string    `bun:"badge,nullzero"`
	Rank      int       `bun:"rank,nullzero"`
	Percent   float64   `bun:"percent,notnull"`
	AwardedAt time.Time `bun:"awarded_at,notnull"`
}

func (m awardModel) award() domain.Award {
	return domain.Award{
		Key:       m.Key,
		QuizCode:  m.QuizCode,
		XP:        m.XP,
		Badge:     m.Badge,
		Rank:      m.Rank,
		Percent:   m.Percent,
		AwardedAt: m.AwardedAt,
	}
}
