package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"quizroom/internal/domain"
)

// ProfileStore keeps profiles and their award ledgers in memory.
type ProfileStore struct {
	mu       sync.RWMutex
	now      func() time.Time
	profiles map[string]domain.UserProfile
	awards   map[string][]domain.Award
}

func NewProfileStore() *ProfileStore {
	return &ProfileStore{
		now:      time.Now,
		profiles: make(map[string]domain.UserProfile),
		awards:   make(map[string][]domain.Award),
	}
}

func (s *ProfileStore) GetProfile(_ context.Context, uid string) (domain.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[uid]
	if !ok {
		return domain.UserProfile{}, domain.ErrProfileNotFound
	}
	return p, nil
}

func (s *ProfileStore) CreateProfile(_ context.Context, profile domain.UserProfile) (domain.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.profiles[profile.UID]; ok {
		return existing, nil
	}
	profile.Counters = domain.Counters{}
	s.profiles[profile.UID] = profile
	return profile, nil
}

func (s *ProfileStore) UpdateDetails(_ context.Context, uid, name, bio string) error {
	return s.update(uid, func(p *domain.UserProfile) {
		p.Name = name
		p.Bio = bio
	})
}

func (s *ProfileStore) IncrementAttempt(_ context.Context, uid string, correct, total int) error {
	return s.update(uid, func(p *domain.UserProfile) {
		p.QuizzesPlayed++
		p.TotalCorrect += correct
		p.TotalQuestions += total
	})
}

func (s *ProfileStore) IncrementCreated(_ context.Context, uid string) error {
	return s.update(uid, func(p *domain.UserProfile) { p.QuizzesCreated++ })
}

func (s *ProfileStore) SetLedgerTotals(_ context.Context, uid string, totalXP, badges int) error {
	return s.update(uid, func(p *domain.UserProfile) {
		p.TotalXP = totalXP
		p.BadgesCount = badges
	})
}

func (s *ProfileStore) update(uid string, fn func(*domain.UserProfile)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[uid]
	if !ok {
		return domain.ErrProfileNotFound
	}
	fn(&p)
	p.UpdatedAt = s.now()
	s.profiles[uid] = p
	return nil
}

func (s *ProfileStore) ListProfiles(_ context.Context) ([]domain.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.UserProfile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out, nil
}

func (s *ProfileStore) AppendAward(_ context.Context, uid string, award domain.Award) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.awards[uid] {
		if existing.Key == award.Key {
			return false, nil
		}
	}
	s.awards[uid] = append(s.awards[uid], award)
	return true, nil
}

func (s *ProfileStore) ListAwards(_ context.Context, uid string) ([]domain.Award, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Award(nil), s.awards[uid]...), nil
}
