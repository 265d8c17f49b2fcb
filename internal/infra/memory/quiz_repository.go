package memory

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"quizroom/internal/domain"
)

// QuizLoader fetches quiz content from a backing store (e.g., Postgres).
type QuizLoader interface {
	LoadQuiz(ctx context.Context, code string) (domain.Quiz, error)
}

// QuizRepository caches quizzes with TTL to avoid repeated DB hits.
type QuizRepository struct {
	loader QuizLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedQuiz
}

type cachedQuiz struct {
	quiz      domain.Quiz
	expiresAt time.Time
}

func NewQuizRepository(loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedQuiz),
	}
}

// GetQuiz returns a cached quiz, loading it once per code when missing or expired. Concurrent
// misses for the same code share a single load.
func (r *QuizRepository) GetQuiz(ctx context.Context, code string) (domain.Quiz, error) {
	code = domain.NormalizeCode(code)
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[code]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.quiz, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(code, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[code]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.quiz, nil
		}
		r.mu.RUnlock()

		quiz, err := r.loader.LoadQuiz(ctx, code)
		if err != nil {
			return domain.Quiz{}, err
		}

		r.mu.Lock()
		r.cache[code] = cachedQuiz{
			quiz:      quiz,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

// Invalidate drops a cached quiz so the next read goes to the loader.
func (r *QuizRepository) Invalidate(_ context.Context, code string) error {
	r.mu.Lock()
	delete(r.cache, domain.NormalizeCode(code))
	r.mu.Unlock()
	return nil
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticQuizLoader is a simple loader backed by an in-memory map (useful for tests/demos).
// It also serves as the quiz catalog when no database is configured.
type StaticQuizLoader struct {
	mu      sync.RWMutex
	quizzes map[string]domain.Quiz
}

func NewStaticQuizLoader(quizzes map[string]domain.Quiz) *StaticQuizLoader {
	byCode := make(map[string]domain.Quiz, len(quizzes))
	for code, quiz := range quizzes {
		if quiz.Code == "" {
			quiz.Code = code
		}
		quiz.Code = domain.NormalizeCode(quiz.Code)
		byCode[quiz.Code] = quiz
	}
	return &StaticQuizLoader{quizzes: byCode}
}

func (l *StaticQuizLoader) LoadQuiz(_ context.Context, code string) (domain.Quiz, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if quiz, ok := l.quizzes[domain.NormalizeCode(code)]; ok {
		return quiz, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

// SaveQuiz stores or replaces a quiz under its normalized code.
func (l *StaticQuizLoader) SaveQuiz(_ context.Context, quiz domain.Quiz) error {
	quiz.Code = domain.NormalizeCode(quiz.Code)
	l.mu.Lock()
	l.quizzes[quiz.Code] = quiz
	l.mu.Unlock()
	return nil
}

// ListCodes returns every known room code.
func (l *StaticQuizLoader) ListCodes(_ context.Context) ([]string, error) {
	l.mu.RLock()
	codes := make([]string, 0, len(l.quizzes))
	for code := range l.quizzes {
		codes = append(codes, code)
	}
	l.mu.RUnlock()
	sort.Strings(codes)
	return codes, nil
}

// ListCreated returns the quizzes authored by uid, newest first.
func (l *StaticQuizLoader) ListCreated(_ context.Context, uid string) ([]domain.Quiz, error) {
	l.mu.RLock()
	var out []domain.Quiz
	for _, quiz := range l.quizzes {
		if quiz.CreatorUID == uid {
			out = append(out, quiz)
		}
	}
	l.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
