package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"quizroom/internal/domain"
	"quizroom/internal/progression"
	"quizroom/internal/ranking"
	"quizroom/internal/reconcile"
	"quizroom/internal/scoring"
)

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, code string) (domain.Quiz, error)
}

// QuizCatalog stores authored quizzes and answers listing questions about them.
type QuizCatalog interface {
	SaveQuiz(ctx context.Context, quiz domain.Quiz) error
	ListCodes(ctx context.Context) ([]string, error)
	ListCreated(ctx context.Context, uid string) ([]domain.Quiz, error)
}

// SubmissionRepository stores graded attempts.
type SubmissionRepository interface {
	SaveSubmission(ctx context.Context, rec domain.SubmissionRecord) error
	LatestByParticipant(ctx context.Context, code string) ([]domain.SubmissionRecord, error)
	CountParticipants(ctx context.Context, code string) (int, error)
}

// LiveBoard is the real-time leaderboard mirror (in-memory, Redis, etc).
type LiveBoard interface {
	Upsert(ctx context.Context, code string, entry domain.LeaderboardEntry) error
	Entries(ctx context.Context, code string) ([]domain.LeaderboardEntry, error)
	Subscribe(ctx context.Context, code string) (<-chan []domain.LeaderboardEntry, func(), error)
}

// QuizService contains the core quiz use cases.
type QuizService struct {
	quizzes     QuizRepository
	catalog     QuizCatalog
	submissions SubmissionRepository
	live        LiveBoard
	progress    *progression.Engine
	now         func() time.Time
}

func NewQuizService(quizzes QuizRepository, catalog QuizCatalog, submissions SubmissionRepository, live LiveBoard, progress *progression.Engine) *QuizService {
	return NewQuizServiceWithClock(quizzes, catalog, submissions, live, progress, time.Now)
}

// NewQuizServiceWithClock is test-only for deterministic timestamps.
func NewQuizServiceWithClock(quizzes QuizRepository, catalog QuizCatalog, submissions SubmissionRepository, live LiveBoard, progress *progression.Engine, now func() time.Time) *QuizService {
	return &QuizService{
		quizzes:     quizzes,
		catalog:     catalog,
		submissions: submissions,
		live:        live,
		progress:    progress,
		now:         now,
	}
}

// NormalizeCode upper-cases and trims a room code.
func NormalizeCode(code string) string {
	return domain.NormalizeCode(code)
}

func (s *QuizService) loadQuiz(ctx context.Context, code string) (domain.Quiz, error) {
	code = NormalizeCode(code)
	if code == "" {
		return domain.Quiz{}, domain.Invalid("quizCode", "must not be empty")
	}
	return s.quizzes.GetQuiz(ctx, code)
}

// GetQuiz returns the quiz without its answer key.
func (s *QuizService) GetQuiz(ctx context.Context, code string) (domain.Quiz, error) {
	quiz, err := s.loadQuiz(ctx, code)
	if err != nil {
		return domain.Quiz{}, err
	}
	return quiz.Public(), nil
}

// QuizTitle resolves the display title of a room.
func (s *QuizService) QuizTitle(ctx context.Context, code string) (string, error) {
	quiz, err := s.loadQuiz(ctx, code)
	if err != nil {
		return "", err
	}
	return quiz.Title, nil
}

// CreateQuiz stores a new room authored by uid and counts it on the author's profile. The code is
// chosen by the caller and must be free.
func (s *QuizService) CreateQuiz(ctx context.Context, uid, name string, quiz domain.Quiz) (domain.Quiz, error) {
	if uid == "" {
		return domain.Quiz{}, domain.ErrAuthRequired
	}
	quiz.Code = NormalizeCode(quiz.Code)
	quiz.Title = strings.TrimSpace(quiz.Title)
	if err := quiz.Validate(); err != nil {
		return domain.Quiz{}, err
	}

	switch _, err := s.quizzes.GetQuiz(ctx, quiz.Code); {
	case err == nil:
		return domain.Quiz{}, fmt.Errorf("%s: %w", quiz.Code, domain.ErrQuizExists)
	case !errors.Is(err, domain.ErrQuizNotFound):
		return domain.Quiz{}, fmt.Errorf("check quiz code: %w", err)
	}

	quiz.CreatorUID = uid
	if quiz.CreatorName == "" {
		quiz.CreatorName = name
	}
	quiz.CreatedAt = s.now()
	if err := s.catalog.SaveQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("save quiz: %w", err)
	}
	log.Printf("quiz %s created by %s", quiz.Code, uid)

	if _, err := s.progress.Ensure(ctx, uid, name); err != nil {
		log.Printf("profile for creator %s failed: %v", uid, err)
	} else if err := s.progress.RecordCreated(ctx, uid); err != nil {
		log.Printf("created counter for %s failed: %v", uid, err)
	}
	return quiz.Public(), nil
}

// Submit grades and stores one attempt, mirrors it to the live board and, for a signed-in
// participant, folds it into their progression. Questions with a broken answer key are listed in
// the result's Excluded field and logged.
func (s *QuizService) Submit(ctx context.Context, sub domain.Submission) (domain.ScoreResult, error) {
	sub.QuizCode = NormalizeCode(sub.QuizCode)
	sub.ParticipantName = strings.TrimSpace(sub.ParticipantName)
	if err := validateSubmission(sub); err != nil {
		return domain.ScoreResult{}, err
	}

	quiz, err := s.loadQuiz(ctx, sub.QuizCode)
	if err != nil {
		return domain.ScoreResult{}, err
	}

	result, err := scoring.Score(quiz, sub.Answers)
	var integrity *domain.IntegrityError
	if errors.As(err, &integrity) {
		log.Printf("quiz %s has invalid answer key for questions %v", quiz.Code, integrity.QuestionIDs)
	} else if err != nil {
		return domain.ScoreResult{}, err
	}

	sub.SubmittedAt = s.now()
	rec := domain.SubmissionRecord{Submission: sub, ScoreResult: result}
	if err := s.submissions.SaveSubmission(ctx, rec); err != nil {
		return domain.ScoreResult{}, fmt.Errorf("save submission: %w", err)
	}

	entry := domain.LeaderboardEntry{
		Name:            sub.ParticipantName,
		Score:           result.TotalScore,
		DurationSeconds: sub.DurationSeconds,
		UID:             sub.UID,
	}
	if err := s.live.Upsert(ctx, sub.QuizCode, entry); err != nil {
		log.Printf("live board upsert %s failed: %v", sub.QuizCode, err)
	}

	if sub.UID != "" {
		if err := s.recordProgress(ctx, sub, result); err != nil {
			log.Printf("progression for %s on %s failed: %v", sub.UID, sub.QuizCode, err)
		}
	}
	return result, nil
}

func (s *QuizService) recordProgress(ctx context.Context, sub domain.Submission, result domain.ScoreResult) error {
	if _, err := s.progress.Ensure(ctx, sub.UID, sub.ParticipantName); err != nil {
		return err
	}
	_, _, err := s.progress.RecordAttempt(ctx, sub.UID, sub.QuizCode, result)
	return err
}

func validateSubmission(sub domain.Submission) error {
	if sub.QuizCode == "" {
		return domain.Invalid("quizCode", "must not be empty")
	}
	if sub.ParticipantName == "" {
		return domain.Invalid("name", "must not be empty")
	}
	if sub.DurationSeconds < 0 {
		return domain.Invalid("durationSeconds", "must not be negative")
	}
	return nil
}

// Leaderboard returns the ranked latest attempt of every participant.
func (s *QuizService) Leaderboard(ctx context.Context, code string) ([]domain.LeaderboardEntry, error) {
	quiz, err := s.loadQuiz(ctx, code)
	if err != nil {
		return nil, err
	}
	records, err := s.submissions.LatestByParticipant(ctx, quiz.Code)
	if err != nil {
		return nil, fmt.Errorf("load submissions: %w", err)
	}
	return ranking.Rank(entriesFrom(records)), nil
}

func entriesFrom(records []domain.SubmissionRecord) []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, domain.LeaderboardEntry{
			Name:            rec.ParticipantName,
			Score:           rec.TotalScore,
			DurationSeconds: rec.DurationSeconds,
			UID:             rec.UID,
		})
	}
	return entries
}

// Subscribe returns a channel that receives full live snapshots for a room.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(ctx context.Context, code string) (<-chan []domain.LeaderboardEntry, func(), error) {
	quiz, err := s.loadQuiz(ctx, code)
	if err != nil {
		return nil, nil, err
	}
	return s.live.Subscribe(ctx, quiz.Code)
}

// CreatedQuizzes lists the quizzes authored by uid, newest first, with participant counts.
func (s *QuizService) CreatedQuizzes(ctx context.Context, uid string) ([]domain.CreatedQuiz, error) {
	quizzes, err := s.catalog.ListCreated(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("list created quizzes: %w", err)
	}
	out := make([]domain.CreatedQuiz, 0, len(quizzes))
	for _, q := range quizzes {
		n, err := s.submissions.CountParticipants(ctx, q.Code)
		if err != nil {
			return nil, fmt.Errorf("count participants of %s: %w", q.Code, err)
		}
		out = append(out, domain.CreatedQuiz{
			Title:        q.Title,
			Code:         q.Code,
			CreatedAt:    q.CreatedAt,
			Participants: n,
		})
	}
	return out, nil
}

// Profile returns the caller's profile, creating it on first access, after reconciling its
// counters with the award ledger.
func (s *QuizService) Profile(ctx context.Context, uid, name string) (domain.UserProfile, progression.View, error) {
	if _, err := s.progress.Ensure(ctx, uid, name); err != nil {
		return domain.UserProfile{}, progression.View{}, err
	}
	return s.progress.Profile(ctx, uid)
}

// UpdateProfile edits name and bio only.
func (s *QuizService) UpdateProfile(ctx context.Context, uid, name, bio string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Invalid("name", "must not be empty")
	}
	return s.progress.UpdateDetails(ctx, uid, name, strings.TrimSpace(bio))
}

// Awards returns the caller's award ledger and cumulative XP series.
func (s *QuizService) Awards(ctx context.Context, uid string) ([]domain.Award, []progression.Point, error) {
	return s.progress.Awards(ctx, uid)
}

// Recompute re-derives a user's counters from their ledger.
func (s *QuizService) Recompute(ctx context.Context, uid string) error {
	if uid == "" {
		return domain.Invalid("uid", "must not be empty")
	}
	return s.progress.Recompute(ctx, uid)
}

// RecentActivity merges played awards and created quizzes. The sources load concurrently and a
// failing source only leaves its own slot empty; an error is returned when both fail.
func (s *QuizService) RecentActivity(ctx context.Context, uid string) ([]domain.ActivityItem, error) {
	activity := reconcile.NewActivity()
	var playedErr, createdErr error

	var g errgroup.Group
	g.Go(func() error {
		awards, _, err := s.progress.Awards(ctx, uid)
		if err != nil {
			playedErr = err
			log.Printf("activity: load awards for %s: %v", uid, err)
			return nil
		}
		activity.ApplyPlayed(ctx, awards, s)
		return nil
	})
	g.Go(func() error {
		created, err := s.CreatedQuizzes(ctx, uid)
		if err != nil {
			createdErr = err
			log.Printf("activity: load created quizzes for %s: %v", uid, err)
			return nil
		}
		activity.ApplyCreated(created)
		return nil
	})
	_ = g.Wait()

	if playedErr != nil && createdErr != nil {
		return nil, errors.Join(playedErr, createdErr)
	}
	return activity.Items(), nil
}

// BackfillReport summarizes one rank-award backfill run.
type BackfillReport struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
}

// BackfillRankAwards grants rank awards for one room, or every room when code is empty. Rows
// whose user cannot be resolved, or who already hold an award for the room, are skipped.
func (s *QuizService) BackfillRankAwards(ctx context.Context, code string) (BackfillReport, error) {
	var codes []string
	if code = NormalizeCode(code); code != "" {
		codes = []string{code}
	} else {
		all, err := s.catalog.ListCodes(ctx)
		if err != nil {
			return BackfillReport{}, fmt.Errorf("list quiz codes: %w", err)
		}
		codes = all
	}

	var report BackfillReport
	for _, c := range codes {
		if err := s.backfillRoom(ctx, c, &report); err != nil {
			return report, fmt.Errorf("backfill %s: %w", c, err)
		}
	}
	log.Printf("rank backfill done: processed=%d skipped=%d", report.Processed, report.Skipped)
	return report, nil
}

func (s *QuizService) backfillRoom(ctx context.Context, code string, report *BackfillReport) error {
	records, err := s.submissions.LatestByParticipant(ctx, code)
	if err != nil {
		return err
	}
	liveUIDs := make(map[string]string)
	if entries, err := s.live.Entries(ctx, code); err == nil {
		for _, e := range entries {
			if e.UID != "" {
				liveUIDs[e.Name] = e.UID
			}
		}
	} else {
		log.Printf("backfill %s: live entries unavailable: %v", code, err)
	}

	for _, row := range ranking.Rank(entriesFrom(records)) {
		uid := row.UID
		if uid == "" {
			uid = liveUIDs[row.Name]
		}
		if uid == "" {
			resolved, ok, err := s.progress.ResolveUID(ctx, row.Name)
			if err != nil {
				return err
			}
			if ok {
				uid = resolved
			}
		}
		if uid == "" {
			report.Skipped++
			continue
		}
		if _, err := s.progress.Ensure(ctx, uid, row.Name); err != nil {
			return err
		}
		stored, err := s.progress.Grant(ctx, uid, progression.RankAward(code, row.Rank, s.now()))
		if err != nil {
			return err
		}
		if stored {
			report.Processed++
		} else {
			report.Skipped++
		}
	}
	return nil
}
