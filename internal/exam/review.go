package exam

// ReviewEntry compares one stored answer against the question it answered.
// While manual grading is pending the correct-answer fields and the
// correctness verdict are withheld, so a wrong submission cannot be used to
// reverse-engineer the key before grades are published.
type ReviewEntry struct {
	QuestionID string       `json:"question_id"`
	Type       QuestionType `json:"type"`
	Text       string       `json:"text"`
	Points     float64      `json:"points"`
	Given      *Answer      `json:"given,omitempty"`

	// Correct is nil for essay questions and while grading is pending.
	Correct *bool `json:"correct,omitempty"`
	// CorrectAnswer discloses the expected answer once grading is final:
	// option ids for mcq, expected text for fill, item order for drag.
	CorrectAnswer *Answer `json:"correct_answer,omitempty"`
}

// BuildReview reconstructs the per-question comparison from a snapshot and
// the stored answers. disclose must be false while manual grading is
// pending; it suppresses both the verdicts and the correct answers.
func BuildReview(snapshot Snapshot, answers AnswerSet, disclose bool) []ReviewEntry {
	entries := make([]ReviewEntry, 0, len(snapshot.Questions))

	for _, q := range snapshot.Questions {
		entry := ReviewEntry{
			QuestionID: q.ID,
			Type:       q.Type,
			Text:       q.Text,
			Points:     q.Weight(),
		}

		if answer, ok := answers[q.ID]; ok {
			given := answer
			entry.Given = &given
		}

		if disclose && q.Type != QuestionEssay {
			correct := AnswerMatches(q, answers[q.ID])
			entry.Correct = &correct
			entry.CorrectAnswer = correctAnswerOf(q)
		}

		entries = append(entries, entry)
	}

	return entries
}

func correctAnswerOf(q Question) *Answer {
	switch q.Type {
	case QuestionMCQ:
		ids := q.CorrectOptionIDs()
		if len(ids) == 0 {
			return nil
		}
		answer := ScalarAnswer(ids[0])
		if len(ids) > 1 {
			answer = OrderAnswer(ids)
		}
		return &answer
	case QuestionFill:
		answer := ScalarAnswer(q.Answer)
		return &answer
	case QuestionDrag:
		answer := OrderAnswer(q.ExpectedOrder())
		return &answer
	default:
		return nil
	}
}
