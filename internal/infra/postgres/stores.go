package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"quizroom/internal/domain"
)

// SubmissionStore persists graded attempts with bun.
type SubmissionStore struct {
	db *bun.DB
}

func NewSubmissionStore(db *bun.DB) *SubmissionStore {
	return &SubmissionStore{db: db}
}

func (s *SubmissionStore) SaveSubmission(ctx context.Context, rec domain.SubmissionRecord) error {
	m := &submissionModel{
		QuizCode:        rec.QuizCode,
		Name:            rec.ParticipantName,
		UID:             rec.UID,
		DurationSeconds: rec.DurationSeconds,
		Answers:         rec.Answers,
		TotalScore:      rec.TotalScore,
		TotalCorrect:    rec.TotalCorrect,
		TotalQuestions:  rec.TotalQuestions,
		Excluded:        rec.Excluded,
		SubmittedAt:     rec.SubmittedAt,
	}
	if _, err := s.db.NewInsert().Model(m).Exec(ctx); err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

// LatestByParticipant returns the most recent attempt of each participant name.
func (s *SubmissionStore) LatestByParticipant(ctx context.Context, code string) ([]domain.SubmissionRecord, error) {
	var rows []submissionModel
	err := s.db.NewSelect().
		Model(&rows).
		DistinctOn("name").
		Where("quiz_code = ?", code).
		OrderExpr("name, submitted_at DESC, id DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select latest submissions: %w", err)
	}
	out := make([]domain.SubmissionRecord, len(rows))
	for i, m := range rows {
		out[i] = m.record()
	}
	return out, nil
}

func (s *SubmissionStore) CountParticipants(ctx context.Context, code string) (int, error) {
	var n int
	err := s.db.NewSelect().
		Model((*submissionModel)(nil)).
		ColumnExpr("COUNT(DISTINCT name)").
		Where("quiz_code = ?", code).
		Scan(ctx, &n)
	if err != nil {
		return 0, fmt.Errorf("count participants: %w", err)
	}
	return n, nil
}

// ProfileStore persists profiles and the award ledger with bun.
type ProfileStore struct {
	db  *bun.DB
	now func() time.Time
}

func NewProfileStore(db *bun.DB) *ProfileStore {
	return &ProfileStore{db: db, now: time.Now}
}

func (s *ProfileStore) GetProfile(ctx context.Context, uid string) (domain.UserProfile, error) {
	var m profileModel
	err := s.db.NewSelect().Model(&m).Where("uid = ?", uid).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.UserProfile{}, domain.ErrProfileNotFound
	}
	if err != nil {
		return domain.UserProfile{}, fmt.Errorf("select profile: %w", err)
	}
	return m.profile(), nil
}

func (s *ProfileStore) CreateProfile(ctx context.Context, profile domain.UserProfile) (domain.UserProfile, error) {
	m := &profileModel{
		UID:       profile.UID,
		Name:      profile.Name,
		Bio:       profile.Bio,
		CreatedAt: profile.CreatedAt,
		UpdatedAt: profile.UpdatedAt,
	}
	if _, err := s.db.NewInsert().Model(m).On("CONFLICT (uid) DO NOTHING").Exec(ctx); err != nil {
		return domain.UserProfile{}, fmt.Errorf("insert profile: %w", err)
	}
	return s.GetProfile(ctx, profile.UID)
}

func (s *ProfileStore) UpdateDetails(ctx context.Context, uid, name, bio string) error {
	return s.update(ctx, uid, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("name = ?", name).Set("bio = ?", bio)
	})
}

func (s *ProfileStore) IncrementAttempt(ctx context.Context, uid string, correct, total int) error {
	return s.update(ctx, uid, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("quizzes_played = quizzes_played + 1").
			Set("total_correct = total_correct + ?", correct).
			Set("total_questions = total_questions + ?", total)
	})
}

func (s *ProfileStore) IncrementCreated(ctx context.Context, uid string) error {
	return s.update(ctx, uid, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("quizzes_created = quizzes_created + 1")
	})
}

func (s *ProfileStore) SetLedgerTotals(ctx context.Context, uid string, totalXP, badges int) error {
	return s.update(ctx, uid, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("total_xp = ?", totalXP).Set("badges_count = ?", badges)
	})
}

func (s *ProfileStore) update(ctx context.Context, uid string, set func(*bun.UpdateQuery) *bun.UpdateQuery) error {
	q := s.db.NewUpdate().Model((*profileModel)(nil)).Where("uid = ?", uid).Set("updated_at = ?", s.now())
	res, err := set(q).Exec(ctx)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}

func (s *ProfileStore) ListProfiles(ctx context.Context) ([]domain.UserProfile, error) {
	var rows []profileModel
	if err := s.db.NewSelect().Model(&rows).Order("uid").Scan(ctx); err != nil {
		return nil, fmt.Errorf("select profiles: %w", err)
	}
	out := make([]domain.UserProfile, len(rows))
	for i, m := range rows {
		out[i] = m.profile()
	}
	return out, nil
}

// AppendAward inserts the award unless the user already holds one with the same key.
func (s *ProfileStore) AppendAward(ctx context.Context, uid string, award domain.Award) (bool, error) {
	m := &awardModel{
		UID:       uid,
		Key:       award.Key,
		QuizCode:  award.QuizCode,
		XP:        award.XP,
		Badge:     award.Badge,
		Rank:      award.Rank,
		Percent:   award.Percent,
		AwardedAt: award.AwardedAt,
	}
	res, err := s.db.NewInsert().Model(m).On("CONFLICT (uid, key) DO NOTHING").Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("insert award: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *ProfileStore) ListAwards(ctx context.Context, uid string) ([]domain.Award, error) {
	var rows []awardModel
	err := s.db.NewSelect().Model(&rows).Where("uid = ?", uid).Order("awarded_at").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select awards: %w", err)
	}
	out := make([]domain.Award, len(rows))
	for i, m := range rows {
		out[i] = m.award()
	}
	return out, nil
}
