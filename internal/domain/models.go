package domain

import (
	"fmt"
	"strings"
	"time"
)

// Label identifies one of the four answer options of a question.
type Label string

const (
	LabelA Label = "A"
	LabelB Label = "B"
	LabelC Label = "C"
	LabelD Label = "D"
)

// Labels lists the option labels in display order.
var Labels = []Label{LabelA, LabelB, LabelC, LabelD}

// Normalize upper-cases and trims a label so "b " and "B" compare equal.
func (l Label) Normalize() Label {
	return Label(strings.ToUpper(strings.TrimSpace(string(l))))
}

// Valid reports whether the label is one of A, B, C or D.
func (l Label) Valid() bool {
	switch l.Normalize() {
	case LabelA, LabelB, LabelC, LabelD:
		return true
	}
	return false
}

// Question is a single-best-answer question with four labeled options.
type Question struct {
	ID        int              `json:"id"`
	Prompt    string           `json:"prompt"`
	Options   map[Label]string `json:"options"`
	Correct   Label            `json:"correct,omitempty"`
	Marks     int              `json:"marks"`               // defaults to 1 if not positive
	TimeLimit int              `json:"timeLimit,omitempty"` // seconds
}

// Points returns the marks awarded for a correct answer.
func (q Question) Points() int {
	if q.Marks <= 0 {
		return 1
	}
	return q.Marks
}

// Validate checks that all four options are present and the correct label is one of them.
func (q Question) Validate() error {
	for _, l := range Labels {
		if strings.TrimSpace(q.Options[l]) == "" {
			return fmt.Errorf("question %d: option %s is empty", q.ID, l)
		}
	}
	if !q.Correct.Valid() {
		return &IntegrityError{QuestionIDs: []int{q.ID}}
	}
	return nil
}

// Quiz is an immutable set of questions identified by its room code.
type Quiz struct {
	Code        string     `json:"code"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Difficulty  string     `json:"difficulty,omitempty"`
	TimeLimit   int        `json:"timeLimit,omitempty"` // seconds, whole session
	CreatorUID  string     `json:"creatorUid,omitempty"`
	CreatorName string     `json:"creatorName,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	Questions   []Question `json:"questions"`
}

// NormalizeCode upper-cases and trims a room code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate checks a quiz before it is stored: a code, a title, and at least one well-formed
// question with a unique id.
func (q Quiz) Validate() error {
	if NormalizeCode(q.Code) == "" {
		return Invalid("code", "must not be empty")
	}
	if strings.TrimSpace(q.Title) == "" {
		return Invalid("title", "must not be empty")
	}
	if len(q.Questions) == 0 {
		return Invalid("questions", ErrEmptyQuiz.Error())
	}
	seen := make(map[int]bool, len(q.Questions))
	for _, question := range q.Questions {
		if seen[question.ID] {
			return Invalid("questions", fmt.Sprintf("duplicate question id %d", question.ID))
		}
		seen[question.ID] = true
		if err := question.Validate(); err != nil {
			return Invalid("questions", err.Error())
		}
	}
	return nil
}

// Public returns a copy of the quiz without the answer key.
func (q Quiz) Public() Quiz {
	out := q
	out.Questions = make([]Question, len(q.Questions))
	for i, question := range q.Questions {
		question.Correct = ""
		out.Questions[i] = question
	}
	return out
}

// Answer is one participant selection for a question.
type Answer struct {
	QuestionID int   `json:"questionId"`
	Selected   Label `json:"selected"`
}

// Submission is created once at submit time and never modified.
type Submission struct {
	QuizCode        string    `json:"quizCode"`
	ParticipantName string    `json:"name"`
	DurationSeconds int       `json:"durationSeconds"`
	Answers         []Answer  `json:"answers"`
	UID             string    `json:"-"`
	SubmittedAt     time.Time `json:"submittedAt"`
}

// ScoreResult is the graded outcome of one submission.
type ScoreResult struct {
	TotalScore     int `json:"totalScore"`
	TotalCorrect   int `json:"totalCorrect"`
	TotalQuestions int `json:"totalQuestions"`
	// Excluded lists question IDs skipped because the quiz data had no valid correct label.
	Excluded []int `json:"excluded,omitempty"`
}

// Percent returns the fraction of questions answered correctly.
func (r ScoreResult) Percent() float64 {
	if r.TotalQuestions <= 0 {
		return 0
	}
	return float64(r.TotalCorrect) / float64(r.TotalQuestions)
}

// SubmissionRecord is a stored, graded attempt.
type SubmissionRecord struct {
	Submission
	ScoreResult
}

// LeaderboardEntry is a snapshot-friendly view of a participant.
type LeaderboardEntry struct {
	Name            string `json:"name"`
	Score           int    `json:"score"`
	DurationSeconds int    `json:"durationSeconds"`
	Rank            int    `json:"rank"`
	UID             string `json:"-"`
}

// Award is one append-only XP grant.
type Award struct {
	// Key is unique per user: the quiz code for quiz awards, or a badge key for milestones.
	Key       string    `json:"id"`
	QuizCode  string    `json:"quizCode,omitempty"`
	XP        int       `json:"xp"`
	Badge     string    `json:"badge,omitempty"`
	Rank      int       `json:"rank,omitempty"`
	Percent   float64   `json:"percent,omitempty"`
	AwardedAt time.Time `json:"awardedAt"`
}

// Counters are the cumulative progression values kept on a profile.
type Counters struct {
	TotalXP        int `json:"totalXp"`
	QuizzesPlayed  int `json:"quizzesPlayed"`
	QuizzesCreated int `json:"quizzesCreated"`
	TotalCorrect   int `json:"totalCorrect"`
	TotalQuestions int `json:"totalQuestions"`
	BadgesCount    int `json:"badgesCount"`
}

// UserProfile is the mutable per-user aggregate.
type UserProfile struct {
	UID       string    `json:"uid"`
	Name      string    `json:"name"`
	Bio       string    `json:"bio"`
	Counters            // embedded so JSON stays flat
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreatedQuiz summarises a quiz authored by a user.
type CreatedQuiz struct {
	Title        string    `json:"title"`
	Code         string    `json:"quizCode"`
	CreatedAt    time.Time `json:"createdAt"`
	Participants int       `json:"participants"`
}

// ActivitySource tags where an activity item came from.
type ActivitySource string

const (
	SourcePlayed  ActivitySource = "played"
	SourceCreated ActivitySource = "created"
)

// ActivityItem is one row of the recent-activity list.
type ActivityItem struct {
	Title  string         `json:"title"`
	Code   string         `json:"code"`
	Date   time.Time      `json:"date"`
	Status ActivitySource `json:"status"`
	Badge  string         `json:"badge,omitempty"`
	Rank   int            `json:"rank,omitempty"`
}
