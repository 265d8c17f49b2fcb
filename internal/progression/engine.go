package progression

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"quizroom/internal/domain"
)

// ProfileStore persists profiles. Detail edits and counter writes are separate operations so a
// name/bio change can never touch counters.
type ProfileStore interface {
	GetProfile(ctx context.Context, uid string) (domain.UserProfile, error)
	// CreateProfile inserts a zeroed profile if none exists and returns the stored one.
	CreateProfile(ctx context.Context, profile domain.UserProfile) (domain.UserProfile, error)
	UpdateDetails(ctx context.Context, uid, name, bio string) error
	IncrementAttempt(ctx context.Context, uid string, correct, total int) error
	IncrementCreated(ctx context.Context, uid string) error
	SetLedgerTotals(ctx context.Context, uid string, totalXP, badges int) error
	ListProfiles(ctx context.Context) ([]domain.UserProfile, error)
}

// Ledger is the append-only award store.
type Ledger interface {
	// AppendAward stores the award unless one with the same key exists; it reports whether it was stored.
	AppendAward(ctx context.Context, uid string, award domain.Award) (bool, error)
	ListAwards(ctx context.Context, uid string) ([]domain.Award, error)
}

// Engine owns the progression write paths.
type Engine struct {
	profiles ProfileStore
	ledger   Ledger
	now      func() time.Time
}

func NewEngine(profiles ProfileStore, ledger Ledger) *Engine {
	return &Engine{profiles: profiles, ledger: ledger, now: time.Now}
}

// NewEngineWithClock is used by tests for deterministic timestamps.
func NewEngineWithClock(profiles ProfileStore, ledger Ledger, now func() time.Time) *Engine {
	return &Engine{profiles: profiles, ledger: ledger, now: now}
}

// Ensure returns the user's profile, creating a zeroed one on first access.
func (e *Engine) Ensure(ctx context.Context, uid, name string) (domain.UserProfile, error) {
	profile, err := e.profiles.GetProfile(ctx, uid)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, domain.ErrProfileNotFound) {
		return domain.UserProfile{}, err
	}
	now := e.now()
	return e.profiles.CreateProfile(ctx, domain.UserProfile{
		UID:       uid,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// Profile recomputes the ledger totals and returns the refreshed profile with its derived view.
func (e *Engine) Profile(ctx context.Context, uid string) (domain.UserProfile, View, error) {
	if err := e.Recompute(ctx, uid); err != nil {
		return domain.UserProfile{}, View{}, err
	}
	profile, err := e.profiles.GetProfile(ctx, uid)
	if err != nil {
		return domain.UserProfile{}, View{}, err
	}
	return profile, Derive(profile.Counters), nil
}

// UpdateDetails edits name and bio only.
func (e *Engine) UpdateDetails(ctx context.Context, uid, name, bio string) error {
	if _, err := e.profiles.GetProfile(ctx, uid); err != nil {
		return err
	}
	return e.profiles.UpdateDetails(ctx, uid, name, bio)
}

// Recompute overwrites totalXp and badgesCount with the sums of the ledger. It is idempotent.
func (e *Engine) Recompute(ctx context.Context, uid string) error {
	awards, err := e.ledger.ListAwards(ctx, uid)
	if err != nil {
		return fmt.Errorf("list awards: %w", err)
	}
	totalXP, badges := Totals(awards)
	if err := e.profiles.SetLedgerTotals(ctx, uid, totalXP, badges); err != nil {
		return fmt.Errorf("persist counters: %w", err)
	}
	return nil
}

// RecordCreated counts one authored quiz for uid.
func (e *Engine) RecordCreated(ctx context.Context, uid string) error {
	if err := e.profiles.IncrementCreated(ctx, uid); err != nil {
		return fmt.Errorf("record created quiz: %w", err)
	}
	return nil
}

// RecordAttempt folds a graded submission into the attempt counters and grants the
// performance award for the quiz, if the user has none yet.
func (e *Engine) RecordAttempt(ctx context.Context, uid, quizCode string, result domain.ScoreResult) (domain.Award, bool, error) {
	if err := e.profiles.IncrementAttempt(ctx, uid, result.TotalCorrect, result.TotalQuestions); err != nil {
		return domain.Award{}, false, fmt.Errorf("record attempt: %w", err)
	}
	award := PerformanceAward(quizCode, result, e.now())
	stored, err := e.Grant(ctx, uid, award)
	return award, stored, err
}

// Grant appends an award and re-derives the counters from the ledger.
func (e *Engine) Grant(ctx context.Context, uid string, award domain.Award) (bool, error) {
	stored, err := e.ledger.AppendAward(ctx, uid, award)
	if err != nil {
		return false, fmt.Errorf("append award: %w", err)
	}
	if err := e.Recompute(ctx, uid); err != nil {
		return stored, err
	}
	if stored {
		log.Printf("award %s granted to %s: xp=%d badge=%q", award.Key, uid, award.XP, award.Badge)
	}
	if err := e.ensureXPMaster(ctx, uid); err != nil {
		return stored, err
	}
	return stored, nil
}

func (e *Engine) ensureXPMaster(ctx context.Context, uid string) error {
	profile, err := e.profiles.GetProfile(ctx, uid)
	if err != nil {
		return err
	}
	if profile.TotalXP < XPMasterThreshold {
		return nil
	}
	stored, err := e.ledger.AppendAward(ctx, uid, domain.Award{
		Key:       XPMasterKey,
		Badge:     BadgeXPMaster,
		AwardedAt: e.now(),
	})
	if err != nil {
		return fmt.Errorf("append xp master badge: %w", err)
	}
	if !stored {
		return nil
	}
	return e.Recompute(ctx, uid)
}

// Awards returns the ledger and its cumulative XP series.
func (e *Engine) Awards(ctx context.Context, uid string) ([]domain.Award, []Point, error) {
	awards, err := e.ledger.ListAwards(ctx, uid)
	if err != nil {
		return nil, nil, err
	}
	return awards, Series(awards), nil
}

// ResolveUID finds the single profile whose display name matches name case-insensitively.
// It reports false when no profile or more than one matches.
func (e *Engine) ResolveUID(ctx context.Context, name string) (string, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false, nil
	}
	profiles, err := e.profiles.ListProfiles(ctx)
	if err != nil {
		return "", false, fmt.Errorf("list profiles: %w", err)
	}
	uid := ""
	for _, p := range profiles {
		if !strings.EqualFold(strings.TrimSpace(p.Name), name) {
			continue
		}
		if uid != "" {
			return "", false, nil
		}
		uid = p.UID
	}
	return uid, uid != "", nil
}
