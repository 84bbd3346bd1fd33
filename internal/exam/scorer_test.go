package exam

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleQuestions() []Question {
	return []Question{
		{
			ID:   "q1",
			Type: QuestionMCQ,
			Text: "Pick the capital of France",
			Options: []Option{
				{ID: "a", Text: "Berlin"},
				{ID: "b", Text: "Paris", Correct: true},
				{ID: "c", Text: "Madrid"},
			},
		},
		{
			ID:     "q2",
			Type:   QuestionFill,
			Text:   "Chemical symbol for gold",
			Answer: "Au",
			Points: 2,
		},
		{
			ID:   "q3",
			Type: QuestionDrag,
			Text: "Order the planets from the sun",
			Items: []DragItem{
				{ID: "mercury", Text: "Mercury"},
				{ID: "venus", Text: "Venus"},
				{ID: "earth", Text: "Earth"},
			},
			CorrectOrder: []string{"mercury", "venus", "earth"},
			Points:       3,
		},
		{
			ID:     "q4",
			Type:   QuestionEssay,
			Text:   "Explain photosynthesis",
			Points: 5,
		},
	}
}

func TestScoreAllCorrect(t *testing.T) {
	answers := AnswerSet{
		"q1": ScalarAnswer("b"),
		"q2": ScalarAnswer("Au"),
		"q3": OrderAnswer([]string{"mercury", "venus", "earth"}),
		"q4": ScalarAnswer("Plants convert light into energy."),
	}

	result := Score(sampleQuestions(), answers)

	// The essay never contributes to Earned, only to Possible.
	require.Equal(t, 6.0, result.Earned)
	require.Equal(t, 11.0, result.Possible)
	require.Len(t, result.PerQuestion, 4)

	essay := result.PerQuestion[3]
	require.False(t, essay.AutoGraded)
	require.False(t, essay.Correct)
	require.Zero(t, essay.Earned)
	require.Equal(t, 5.0, essay.Possible)
}

func TestScoreNoPartialCredit(t *testing.T) {
	answers := AnswerSet{
		"q1": ScalarAnswer("a"),
		"q2": ScalarAnswer("Ag"),
		"q3": OrderAnswer([]string{"venus", "mercury", "earth"}),
	}

	result := Score(sampleQuestions(), answers)

	require.Zero(t, result.Earned)
	require.Equal(t, 11.0, result.Possible)
	for _, entry := range result.PerQuestion {
		require.Zero(t, entry.Earned)
	}
}

func TestScoreMissingAnswersEarnNothing(t *testing.T) {
	result := Score(sampleQuestions(), AnswerSet{})

	require.Zero(t, result.Earned)
	require.Equal(t, 11.0, result.Possible)
}

func TestAnswerMatchesFillNormalization(t *testing.T) {
	question := Question{ID: "q", Type: QuestionFill, Answer: "Jakarta"}

	require.True(t, AnswerMatches(question, ScalarAnswer("jakarta")))
	require.True(t, AnswerMatches(question, ScalarAnswer("  JAKARTA  ")))
	require.False(t, AnswerMatches(question, ScalarAnswer("Jakarta!")))
	require.False(t, AnswerMatches(question, ScalarAnswer("")))
}

func TestAnswerMatchesEmptyFillNeverMatchesEmptyKey(t *testing.T) {
	question := Question{ID: "q", Type: QuestionFill, Answer: ""}

	require.False(t, AnswerMatches(question, ScalarAnswer("")))
	require.False(t, AnswerMatches(question, ScalarAnswer("   ")))
}

func TestAnswerMatchesDragRequiresExactOrder(t *testing.T) {
	question := Question{
		ID:   "q",
		Type: QuestionDrag,
		Items: []DragItem{
			{ID: "1"}, {ID: "2"}, {ID: "3"},
		},
		CorrectOrder: []string{"3", "2", "1"},
	}

	require.True(t, AnswerMatches(question, OrderAnswer([]string{"3", "2", "1"})))
	require.False(t, AnswerMatches(question, OrderAnswer([]string{"1", "2", "3"})))
	require.False(t, AnswerMatches(question, OrderAnswer([]string{"3", "2"})))
	require.False(t, AnswerMatches(question, Answer{}))
}

func TestAnswerMatchesDragFallsBackToItemOrder(t *testing.T) {
	question := Question{
		ID:    "q",
		Type:  QuestionDrag,
		Items: []DragItem{{ID: "a"}, {ID: "b"}},
	}

	require.True(t, AnswerMatches(question, OrderAnswer([]string{"a", "b"})))
	require.False(t, AnswerMatches(question, OrderAnswer([]string{"b", "a"})))
}

func TestAnswerMatchesEssayNever(t *testing.T) {
	question := Question{ID: "q", Type: QuestionEssay}

	require.False(t, AnswerMatches(question, ScalarAnswer("a thorough essay")))
}

func TestQuestionWeightDefaultsToOne(t *testing.T) {
	require.Equal(t, 1.0, Question{}.Weight())
	require.Equal(t, 1.0, Question{Points: -2}.Weight())
	require.Equal(t, 2.5, Question{Points: 2.5}.Weight())
}
