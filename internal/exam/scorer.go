package exam

import "strings"

// QuestionScore records how one question was graded.
type QuestionScore struct {
	QuestionID string  `json:"question_id"`
	Earned     float64 `json:"earned"`
	Possible   float64 `json:"possible"`
	Correct    bool    `json:"correct"`
	// AutoGraded is false for essay questions, which only a human scores.
	AutoGraded bool `json:"auto_graded"`
}

// Result is the outcome of automatic scoring.
type Result struct {
	Earned      float64         `json:"earned"`
	Possible    float64         `json:"possible"`
	PerQuestion []QuestionScore `json:"per_question"`
}

// Score grades the answers against the question list. Essay questions are
// never auto-graded: they contribute to Possible, so pending-score displays
// keep the full denominator, but never to Earned. There is no partial credit
// for any type.
func Score(questions []Question, answers AnswerSet) Result {
	result := Result{PerQuestion: make([]QuestionScore, 0, len(questions))}

	for _, q := range questions {
		weight := q.Weight()
		result.Possible += weight

		entry := QuestionScore{QuestionID: q.ID, Possible: weight, AutoGraded: q.Type != QuestionEssay}
		if entry.AutoGraded && AnswerMatches(q, answers[q.ID]) {
			entry.Correct = true
			entry.Earned = weight
			result.Earned += weight
		}
		result.PerQuestion = append(result.PerQuestion, entry)
	}

	return result
}

// AnswerMatches applies the type-specific comparison rule for one question.
// Essay questions never match automatically.
func AnswerMatches(q Question, answer Answer) bool {
	switch q.Type {
	case QuestionMCQ:
		if answer.Value == "" {
			return false
		}
		for _, opt := range q.Options {
			if opt.Correct && opt.ID == answer.Value {
				return true
			}
		}
		return false
	case QuestionFill:
		submitted := strings.TrimSpace(answer.Value)
		expected := strings.TrimSpace(q.Answer)
		return submitted != "" && strings.EqualFold(submitted, expected)
	case QuestionDrag:
		expected := q.ExpectedOrder()
		if len(answer.Order) != len(expected) {
			return false
		}
		for i, id := range expected {
			if answer.Order[i] != id {
				return false
			}
		}
		return len(expected) > 0
	default:
		return false
	}
}
