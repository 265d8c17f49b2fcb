package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"quizroom/internal/domain"
)

func TestProfileStoreAppendAwardIsKeyed(t *testing.T) {
	ctx := context.Background()
	store := NewProfileStore()

	ok, err := store.AppendAward(ctx, "u1", domain.Award{Key: "QZ1", XP: 10})
	if err != nil || !ok {
		t.Fatalf("expected first append stored, got %v %v", ok, err)
	}
	ok, _ = store.AppendAward(ctx, "u1", domain.Award{Key: "QZ1", XP: 99})
	if ok {
		t.Fatalf("expected duplicate key rejected")
	}
	awards, _ := store.ListAwards(ctx, "u1")
	if len(awards) != 1 || awards[0].XP != 10 {
		t.Fatalf("expected first award kept, got %+v", awards)
	}
}

func TestProfileStoreCreateKeepsExisting(t *testing.T) {
	ctx := context.Background()
	store := NewProfileStore()
	if _, err := store.GetProfile(ctx, "u1"); !errors.Is(err, domain.ErrProfileNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := store.IncrementCreated(ctx, "u1"); !errors.Is(err, domain.ErrProfileNotFound) {
		t.Fatalf("expected not found for missing profile, got %v", err)
	}
	_, _ = store.CreateProfile(ctx, domain.UserProfile{UID: "u1", Name: "Alice", CreatedAt: time.Now()})
	_ = store.IncrementAttempt(ctx, "u1", 3, 4)
	_ = store.IncrementCreated(ctx, "u1")

	again, _ := store.CreateProfile(ctx, domain.UserProfile{UID: "u1", Name: "Other"})
	if again.Name != "Alice" || again.QuizzesPlayed != 1 || again.TotalCorrect != 3 || again.QuizzesCreated != 1 {
		t.Fatalf("expected existing profile untouched, got %+v", again)
	}
}

func TestSubmissionStoreLatestByParticipant(t *testing.T) {
	ctx := context.Background()
	store := NewSubmissionStore()
	t0 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	save := func(name string, score int, at time.Time) {
		_ = store.SaveSubmission(ctx, domain.SubmissionRecord{
			Submission:  domain.Submission{QuizCode: "QZ1", ParticipantName: name, SubmittedAt: at},
			ScoreResult: domain.ScoreResult{TotalScore: score},
		})
	}
	save("alice", 1, t0)
	save("bob", 2, t0)
	save("alice", 4, t0.Add(time.Minute))

	latest, _ := store.LatestByParticipant(ctx, "QZ1")
	if len(latest) != 2 {
		t.Fatalf("expected 2 participants, got %d", len(latest))
	}
	for _, rec := range latest {
		if rec.ParticipantName == "alice" && rec.TotalScore != 4 {
			t.Fatalf("expected alice latest attempt, got %+v", rec)
		}
	}
	if n, _ := store.CountParticipants(ctx, "QZ1"); n != 2 {
		t.Fatalf("expected 2 distinct participants, got %d", n)
	}
}
