// Package session drives one participant through a quiz: loading, answering and submitting.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"quizroom/internal/domain"
)

// State is the lifecycle state of a Session.
type State int

const (
	Loading State = iota
	Active
	Submitted
	Errored
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Active:
		return "active"
	case Submitted:
		return "submitted"
	case Errored:
		return "errored"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Backend is the remote quiz collaborator.
type Backend interface {
	FetchQuiz(ctx context.Context, code string) (domain.Quiz, error)
	Submit(ctx context.Context, token string, submission domain.Submission) (domain.ScoreResult, error)
}

// TokenSource returns the current identity token, or "" when the user is signed out.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Ticker starts a repeating tick and returns its channel and a stop function.
type Ticker func() (<-chan time.Time, func())

// EverySecond is the production Ticker.
func EverySecond() (<-chan time.Time, func()) {
	t := time.NewTicker(time.Second)
	return t.C, t.Stop
}

// Option configures a Session.
type Option func(*Session)

// WithTicker replaces the one-second ticker, mainly for tests.
func WithTicker(t Ticker) Option {
	return func(s *Session) { s.newTicker = t }
}

// WithClock sets the clock used for the submission timestamp.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

var errSubmitInFlight = errors.New("submission already in flight")

// Session is one participant's attempt at a quiz. Submitted and Errored are terminal; use Retry
// to get a fresh instance.
type Session struct {
	code      string
	name      string
	backend   Backend
	tokens    TokenSource
	newTicker Ticker
	now       func() time.Time

	mu         sync.Mutex
	state      State
	quiz       domain.Quiz
	index      int
	answers    map[int]domain.Label
	elapsed    int
	frozen     bool
	submitting bool
	closed     bool
	result     domain.ScoreResult
	err        error
	notice     error

	timerDone chan struct{}
	stopTimer sync.Once
	stopTick  func()
}

// New creates a session in the Loading state.
func New(code, name string, backend Backend, tokens TokenSource, opts ...Option) *Session {
	s := &Session{
		code:      code,
		name:      name,
		backend:   backend,
		tokens:    tokens,
		newTicker: EverySecond,
		now:       time.Now,
		state:     Loading,
		answers:   make(map[int]domain.Label),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start fetches the quiz and enters Active, or Errored on failure or an empty quiz.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrSessionClosed
	}
	if s.state != Loading {
		s.mu.Unlock()
		return ErrNotLoading
	}
	s.mu.Unlock()

	quiz, err := s.backend.FetchQuiz(ctx, s.code)
	if err == nil && len(quiz.Questions) == 0 {
		err = domain.ErrEmptyQuiz
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrSessionClosed
	}
	if s.state != Loading {
		return ErrNotLoading
	}
	if err != nil {
		s.state = Errored
		s.err = err
		return err
	}
	s.quiz = quiz
	s.enterActiveLocked()
	return nil
}

// ErrNotLoading is returned by Start on a session that already left Loading.
var ErrNotLoading = errors.New("quiz session already started")

func (s *Session) enterActiveLocked() {
	s.state = Active
	ticks, stop := s.newTicker()
	s.stopTick = stop
	s.timerDone = make(chan struct{})
	go s.runTimer(ticks, s.timerDone)
}

func (s *Session) runTimer(ticks <-chan time.Time, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-ticks:
			s.mu.Lock()
			if s.state == Active && !s.frozen {
				s.elapsed++
			}
			s.mu.Unlock()
		}
	}
}

// releaseTimerLocked stops the ticker exactly once.
func (s *Session) releaseTimerLocked() {
	if s.timerDone == nil {
		return
	}
	s.stopTimer.Do(func() {
		close(s.timerDone)
		s.stopTick()
	})
}

// Select records label for the current question, replacing any earlier choice.
func (s *Session) Select(label domain.Label) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return err
	}
	return s.answerLocked(s.quiz.Questions[s.index].ID, label)
}

// Answer records label for any question of the quiz.
func (s *Session) Answer(questionID int, label domain.Label) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return err
	}
	return s.answerLocked(questionID, label)
}

func (s *Session) answerLocked(questionID int, label domain.Label) error {
	if !label.Valid() {
		return domain.Invalid("selected", fmt.Sprintf("unknown option %q", label))
	}
	for _, q := range s.quiz.Questions {
		if q.ID == questionID {
			s.answers[questionID] = label.Normalize()
			return nil
		}
	}
	return domain.Invalid("questionId", fmt.Sprintf("question %d not in quiz", questionID))
}

func (s *Session) editableLocked() error {
	if s.closed || s.state != Active || s.submitting {
		return domain.ErrSessionClosed
	}
	return nil
}

// Next moves to the following question; it reports false on the last one.
func (s *Session) Next() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state != Active || s.index >= len(s.quiz.Questions)-1 {
		return false
	}
	s.index++
	return true
}

// Prev moves back one question; it reports false on the first one.
func (s *Session) Prev() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state != Active || s.index == 0 {
		return false
	}
	s.index--
	return true
}

// Goto jumps to the question at position i (0-based).
func (s *Session) Goto(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state != Active {
		return domain.ErrSessionClosed
	}
	if i < 0 || i >= len(s.quiz.Questions) {
		return domain.Invalid("index", fmt.Sprintf("%d out of range", i))
	}
	s.index = i
	return nil
}

// Submit sends the answers. Without an identity token the session stays Active and
// domain.ErrAuthRequired is returned. Otherwise the clock is frozen and the session moves to
// Submitted with the remote result, or to Errored with the remote error.
func (s *Session) Submit(ctx context.Context) (domain.ScoreResult, error) {
	s.mu.Lock()
	if s.closed || s.state != Active {
		s.mu.Unlock()
		return domain.ScoreResult{}, domain.ErrSessionClosed
	}
	if s.submitting {
		s.mu.Unlock()
		return domain.ScoreResult{}, errSubmitInFlight
	}
	s.submitting = true
	s.mu.Unlock()

	token := ""
	if s.tokens != nil {
		t, err := s.tokens.Token(ctx)
		if err != nil {
			err = fmt.Errorf("%w: identity token: %w", domain.ErrTransport, err)
			s.mu.Lock()
			s.submitting = false
			s.notice = err
			s.mu.Unlock()
			return domain.ScoreResult{}, err
		}
		token = t
	}
	if token == "" {
		s.mu.Lock()
		s.submitting = false
		s.notice = domain.ErrAuthRequired
		s.mu.Unlock()
		return domain.ScoreResult{}, domain.ErrAuthRequired
	}

	s.mu.Lock()
	s.frozen = true
	s.notice = nil
	submission := s.submissionLocked()
	s.mu.Unlock()

	result, err := s.backend.Submit(ctx, token, submission)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting = false
	if s.closed {
		// torn down while in flight: the remote outcome is not applied
		return result, err
	}
	if errors.Is(err, domain.ErrAuthRequired) {
		// token rejected remotely: still recoverable by signing in again
		s.frozen = false
		s.notice = err
		return domain.ScoreResult{}, err
	}
	s.releaseTimerLocked()
	if err != nil {
		s.state = Errored
		s.err = err
		return domain.ScoreResult{}, err
	}
	s.state = Submitted
	s.result = result
	return result, nil
}

func (s *Session) submissionLocked() domain.Submission {
	answers := make([]domain.Answer, 0, len(s.answers))
	for _, q := range s.quiz.Questions {
		if label, ok := s.answers[q.ID]; ok {
			answers = append(answers, domain.Answer{QuestionID: q.ID, Selected: label})
		}
	}
	return domain.Submission{
		QuizCode:        s.code,
		ParticipantName: s.name,
		DurationSeconds: s.elapsed,
		Answers:         answers,
		SubmittedAt:     s.now(),
	}
}

// Close tears the session down, stopping its timer. Safe to call in any state, more than once.
// A fetch or submission still in flight completes without changing the session.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.releaseTimerLocked()
}

// Retry returns a new session for the same participant. A session that failed after loading is
// resumed Active with its answers and elapsed time; one that failed to load starts over.
func (s *Session) Retry() (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Errored {
		return nil, fmt.Errorf("retry from %s: %w", s.state, domain.ErrSessionClosed)
	}
	next := New(s.code, s.name, s.backend, s.tokens, WithTicker(s.newTicker), WithClock(s.now))
	if len(s.quiz.Questions) == 0 {
		return next, nil
	}
	next.quiz = s.quiz
	next.index = s.index
	next.elapsed = s.elapsed
	for id, label := range s.answers {
		next.answers[id] = label
	}
	next.mu.Lock()
	next.enterActiveLocked()
	next.mu.Unlock()
	return next, nil
}

// Snapshot is a read-only copy of the session for rendering.
type Snapshot struct {
	State     State
	Quiz      domain.Quiz
	Index     int
	Current   *domain.Question
	Answers   map[int]domain.Label
	Elapsed   int
	Remaining int // seconds left of the quiz time limit, 0 when unlimited
	Result    domain.ScoreResult
	Err       error
	Notice    error
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		State:   s.state,
		Quiz:    s.quiz.Public(),
		Index:   s.index,
		Answers: make(map[int]domain.Label, len(s.answers)),
		Elapsed: s.elapsed,
		Result:  s.result,
		Err:     s.err,
		Notice:  s.notice,
	}
	for id, label := range s.answers {
		snap.Answers[id] = label
	}
	if s.index < len(snap.Quiz.Questions) {
		q := snap.Quiz.Questions[s.index]
		snap.Current = &q
	}
	if s.quiz.TimeLimit > 0 && s.quiz.TimeLimit > s.elapsed {
		snap.Remaining = s.quiz.TimeLimit - s.elapsed
	}
	return snap
}
