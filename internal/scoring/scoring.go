// Package scoring grades a participant's answers against a quiz answer key.
package scoring

import (
	"quizroom/internal/domain"
)

// Score grades answers against the quiz. Every question counts towards TotalQuestions,
// answered or not. A later answer for the same question overrides an earlier one.
//
// Questions without a valid correct label are excluded from scoring and reported through a
// *domain.IntegrityError; the returned result is still complete for the remaining questions.
func Score(quiz domain.Quiz, answers []domain.Answer) (domain.ScoreResult, error) {
	selected := make(map[int]domain.Label, len(answers))
	for _, a := range answers {
		selected[a.QuestionID] = a.Selected.Normalize()
	}

	result := domain.ScoreResult{TotalQuestions: len(quiz.Questions)}
	for _, q := range quiz.Questions {
		if !q.Correct.Valid() {
			result.Excluded = append(result.Excluded, q.ID)
			continue
		}
		sel, ok := selected[q.ID]
		if !ok || sel != q.Correct.Normalize() {
			continue
		}
		result.TotalCorrect++
		result.TotalScore += q.Points()
	}

	if len(result.Excluded) > 0 {
		return result, &domain.IntegrityError{QuestionIDs: result.Excluded}
	}
	return result, nil
}
