package reconcile

import (
	"context"
	"sort"
	"sync"

	"quizroom/internal/domain"
)

const (
	// ActivityLimit caps the merged recent-activity list.
	ActivityLimit = 9
	// SourceLimit caps the items taken from each source delivery.
	SourceLimit = 6
)

// TitleLookup resolves a quiz title by room code.
type TitleLookup interface {
	QuizTitle(ctx context.Context, code string) (string, error)
}

// Activity merges played awards and created quizzes. Each delivery replaces only the slot of its
// own source, so a slow or empty source never blanks the other one.
type Activity struct {
	mu      sync.Mutex
	played  []domain.ActivityItem
	created []domain.ActivityItem
}

func NewActivity() *Activity {
	return &Activity{}
}

// ApplyPlayed replaces the played slot from an award delivery. Titles are looked up best-effort
// and fall back to the room code.
func (a *Activity) ApplyPlayed(ctx context.Context, awards []domain.Award, titles TitleLookup) {
	sorted := make([]domain.Award, 0, len(awards))
	for _, aw := range awards {
		if aw.QuizCode != "" {
			sorted = append(sorted, aw)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].AwardedAt.After(sorted[j].AwardedAt)
	})
	if len(sorted) > SourceLimit {
		sorted = sorted[:SourceLimit]
	}

	items := make([]domain.ActivityItem, 0, len(sorted))
	for _, aw := range sorted {
		title := aw.QuizCode
		if titles != nil {
			if t, err := titles.QuizTitle(ctx, aw.QuizCode); err == nil && t != "" {
				title = t
			}
		}
		items = append(items, domain.ActivityItem{
			Title:  title,
			Code:   aw.QuizCode,
			Date:   aw.AwardedAt,
			Status: domain.SourcePlayed,
			Badge:  aw.Badge,
			Rank:   aw.Rank,
		})
	}

	a.mu.Lock()
	a.played = items
	a.mu.Unlock()
}

// ApplyCreated replaces the created slot.
func (a *Activity) ApplyCreated(created []domain.CreatedQuiz) {
	if len(created) > SourceLimit {
		created = created[:SourceLimit]
	}
	items := make([]domain.ActivityItem, 0, len(created))
	for _, q := range created {
		title := q.Title
		if title == "" {
			title = q.Code
		}
		items = append(items, domain.ActivityItem{
			Title:  title,
			Code:   q.Code,
			Date:   q.CreatedAt,
			Status: domain.SourceCreated,
		})
	}

	a.mu.Lock()
	a.created = items
	a.mu.Unlock()
}

// Items returns played items followed by created items, capped at ActivityLimit.
func (a *Activity) Items() []domain.ActivityItem {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.ActivityItem, 0, len(a.played)+len(a.created))
	out = append(out, a.played...)
	out = append(out, a.created...)
	if len(out) > ActivityLimit {
		out = out[:ActivityLimit]
	}
	return out
}
