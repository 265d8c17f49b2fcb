package scoring_test

import (
	"errors"
	"testing"

	"quizroom/internal/domain"
	"quizroom/internal/scoring"
)

func TestScoreMixedAnswers(t *testing.T) {
	quiz := fourQuestionQuiz()
	answers := []domain.Answer{
		{QuestionID: 1, Selected: "A"},
		{QuestionID: 2, Selected: "B"},
		{QuestionID: 3, Selected: "X"},
		{QuestionID: 4, Selected: "D"},
	}

	res, err := scoring.Score(quiz, answers)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if res.TotalScore != 3 || res.TotalCorrect != 3 || res.TotalQuestions != 4 {
		t.Fatalf("expected 3/3/4, got %+v", res)
	}
}

func TestScoreUnansweredCountsAgainst(t *testing.T) {
	res, err := scoring.Score(fourQuestionQuiz(), []domain.Answer{{QuestionID: 2, Selected: "b"}})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if res.TotalQuestions != 4 || res.TotalCorrect != 1 || res.TotalScore != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestScoreUsesMarksAndLastSelection(t *testing.T) {
	quiz := fourQuestionQuiz()
	quiz.Questions[0].Marks = 5
	quiz.Questions[1].Marks = 0 // treated as 1

	res, _ := scoring.Score(quiz, []domain.Answer{
		{QuestionID: 1, Selected: "C"},
		{QuestionID: 1, Selected: "A"},
		{QuestionID: 2, Selected: "B"},
		{QuestionID: 99, Selected: "A"},
	})
	if res.TotalScore != 6 || res.TotalCorrect != 2 {
		t.Fatalf("expected score 6 with 2 correct, got %+v", res)
	}
}

func TestScoreExcludesQuestionsWithoutKey(t *testing.T) {
	quiz := fourQuestionQuiz()
	quiz.Questions[2].Correct = ""

	res, err := scoring.Score(quiz, []domain.Answer{
		{QuestionID: 1, Selected: "A"},
		{QuestionID: 3, Selected: "C"},
	})
	if !errors.Is(err, domain.ErrDataIntegrity) {
		t.Fatalf("expected integrity error, got %v", err)
	}
	var ierr *domain.IntegrityError
	if !errors.As(err, &ierr) || len(ierr.QuestionIDs) != 1 || ierr.QuestionIDs[0] != 3 {
		t.Fatalf("expected question 3 reported, got %v", err)
	}
	if res.TotalScore != 1 || res.TotalQuestions != 4 {
		t.Fatalf("expected remaining questions scored, got %+v", res)
	}
}

func TestScoreEmptyInputs(t *testing.T) {
	res, err := scoring.Score(domain.Quiz{}, nil)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if res.TotalScore != 0 || res.TotalCorrect != 0 || res.TotalQuestions != 0 || len(res.Excluded) != 0 {
		t.Fatalf("expected zero result, got %+v", res)
	}
}

func fourQuestionQuiz() domain.Quiz {
	quiz := domain.Quiz{Code: "QZTEST01"}
	for i, label := range domain.Labels {
		quiz.Questions = append(quiz.Questions, domain.Question{
			ID:      i + 1,
			Prompt:  "pick " + string(label),
			Options: map[domain.Label]string{"A": "a", "B": "b", "C": "c", "D": "d"},
			Correct: label,
			Marks:   1,
		})
	}
	return quiz
}
