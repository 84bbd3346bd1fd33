package exam

import "encoding/json"

// Answer holds one response value. Scalar answers (mcq option id, fill text,
// essay text) live in Value; drag answers live in Order. The two are mutually
// exclusive and the JSON form is either a plain string or an array of item
// ids, matching the stored answers document.
type Answer struct {
	Value string
	Order []string
}

// ScalarAnswer builds a scalar answer value.
func ScalarAnswer(value string) Answer {
	return Answer{Value: value}
}

// OrderAnswer builds an ordering answer value.
func OrderAnswer(order []string) Answer {
	copied := make([]string, len(order))
	copy(copied, order)
	return Answer{Order: copied}
}

// IsOrder reports whether the answer carries an ordering.
func (a Answer) IsOrder() bool {
	return a.Order != nil
}

// Empty reports whether the answer carries no usable value.
func (a Answer) Empty() bool {
	return a.Value == "" && len(a.Order) == 0
}

// MarshalJSON encodes the answer as a string or a string array.
func (a Answer) MarshalJSON() ([]byte, error) {
	if a.IsOrder() {
		return json.Marshal(a.Order)
	}
	return json.Marshal(a.Value)
}

// UnmarshalJSON accepts either encoding.
func (a *Answer) UnmarshalJSON(data []byte) error {
	var value string
	if err := json.Unmarshal(data, &value); err == nil {
		*a = Answer{Value: value}
		return nil
	}

	var order []string
	if err := json.Unmarshal(data, &order); err != nil {
		return err
	}
	*a = Answer{Order: order}
	return nil
}

// AnswerSet maps question ids to their current answer values.
type AnswerSet map[string]Answer

// Clone returns an independent copy of the set.
func (s AnswerSet) Clone() AnswerSet {
	copied := make(AnswerSet, len(s))
	for id, answer := range s {
		if answer.IsOrder() {
			copied[id] = OrderAnswer(answer.Order)
			continue
		}
		copied[id] = answer
	}
	return copied
}
