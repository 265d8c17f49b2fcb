package memory

import (
	"context"
	"sync"

	"quizroom/internal/domain"
)

// SubmissionStore keeps every graded attempt in memory.
type SubmissionStore struct {
	mu     sync.RWMutex
	byQuiz map[string][]domain.SubmissionRecord
}

func NewSubmissionStore() *SubmissionStore {
	return &SubmissionStore{byQuiz: make(map[string][]domain.SubmissionRecord)}
}

func (s *SubmissionStore) SaveSubmission(_ context.Context, rec domain.SubmissionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.Answers = append([]domain.Answer(nil), rec.Answers...)
	s.byQuiz[rec.QuizCode] = append(s.byQuiz[rec.QuizCode], rec)
	return nil
}

// LatestByParticipant returns the most recent attempt of each participant name.
func (s *SubmissionStore) LatestByParticipant(_ context.Context, code string) ([]domain.SubmissionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := make(map[string]int)
	var order []string
	for i, rec := range s.byQuiz[code] {
		prev, ok := latest[rec.ParticipantName]
		if !ok {
			order = append(order, rec.ParticipantName)
			latest[rec.ParticipantName] = i
			continue
		}
		if !rec.SubmittedAt.Before(s.byQuiz[code][prev].SubmittedAt) {
			latest[rec.ParticipantName] = i
		}
	}

	out := make([]domain.SubmissionRecord, 0, len(order))
	for _, name := range order {
		out = append(out, s.byQuiz[code][latest[name]])
	}
	return out, nil
}

// CountParticipants returns the number of distinct names that submitted to a quiz.
func (s *SubmissionStore) CountParticipants(_ context.Context, code string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make(map[string]struct{})
	for _, rec := range s.byQuiz[code] {
		names[rec.ParticipantName] = struct{}{}
	}
	return len(names), nil
}
