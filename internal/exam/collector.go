package exam

import (
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownQuestion is returned when an answer targets a question id that is
// not part of the exam.
var ErrUnknownQuestion = errors.New("unknown question")

// ErrUnknownItem is returned when a drag move targets an item id that is not
// part of the question.
var ErrUnknownItem = errors.New("unknown item")

// MoveDirection shifts a drag item up or down by one position.
type MoveDirection int

const (
	MoveUp   MoveDirection = -1
	MoveDown MoveDirection = 1
)

// Collector accumulates in-memory answer state for one live attempt. Drag
// questions are seeded with the original item order, which reads as a valid
// answer, so a separate touched set records whether the viewer actually
// interacted; the other types infer answered-ness from a non-empty value.
type Collector struct {
	mu        sync.Mutex
	questions map[string]Question
	order     []string
	answers   AnswerSet
	touched   map[string]bool
}

// NewCollector prepares answer state for the given question list.
func NewCollector(questions []Question) *Collector {
	c := &Collector{
		questions: make(map[string]Question, len(questions)),
		order:     make([]string, 0, len(questions)),
		answers:   make(AnswerSet, len(questions)),
		touched:   make(map[string]bool),
	}
	for _, q := range questions {
		c.questions[q.ID] = q
		c.order = append(c.order, q.ID)
		if q.Type == QuestionDrag {
			c.answers[q.ID] = OrderAnswer(q.ItemOrder())
		}
	}
	return c
}

// SetAnswer records a scalar answer for an mcq, fill or essay question and
// marks the question touched.
func (c *Collector) SetAnswer(questionID, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	q, ok := c.questions[questionID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownQuestion, questionID)
	}
	if q.Type == QuestionDrag {
		return fmt.Errorf("drag question %s takes ordered answers", questionID)
	}

	c.answers[questionID] = ScalarAnswer(value)
	c.touched[questionID] = true
	return nil
}

// MoveItem shifts one item of a drag question by a single position. Moves
// past either boundary are no-ops but still mark the question touched.
func (c *Collector) MoveItem(questionID, itemID string, direction MoveDirection) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	q, ok := c.questions[questionID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownQuestion, questionID)
	}
	if q.Type != QuestionDrag {
		return fmt.Errorf("question %s is not a drag question", questionID)
	}

	current := c.answers[questionID].Order
	index := -1
	for i, id := range current {
		if id == itemID {
			index = i
			break
		}
	}
	if index < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownItem, itemID)
	}

	target := index + int(direction)
	if target >= 0 && target < len(current) {
		reordered := make([]string, len(current))
		copy(reordered, current)
		reordered[index], reordered[target] = reordered[target], reordered[index]
		c.answers[questionID] = Answer{Order: reordered}
	}
	c.touched[questionID] = true
	return nil
}

// Unanswered returns, in exam order, the ids of questions that fail their
// type-specific completeness check. Drag questions count as answered only
// once touched.
func (c *Collector) Unanswered() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var missing []string
	for _, id := range c.order {
		q := c.questions[id]
		if q.Type == QuestionDrag {
			if !c.touched[id] {
				missing = append(missing, id)
			}
			continue
		}
		if c.answers[id].Value == "" {
			missing = append(missing, id)
		}
	}
	return missing
}

// Answers returns an independent copy of the current answer state.
func (c *Collector) Answers() AnswerSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.answers.Clone()
}

// Restore replaces the answer state, marking restored entries touched. Used
// when a viewer resumes an attempt that already has saved answers.
func (c *Collector) Restore(answers AnswerSet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, answer := range answers {
		if _, ok := c.questions[id]; !ok {
			continue
		}
		c.answers[id] = answer
		c.touched[id] = true
	}
}
