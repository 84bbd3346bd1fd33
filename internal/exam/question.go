package exam

// QuestionType enumerates the supported question kinds.
type QuestionType string

const (
	// QuestionMCQ is a single-answer multiple choice question.
	QuestionMCQ QuestionType = "mcq"
	// QuestionFill is a free-text fill-in question with an expected answer.
	QuestionFill QuestionType = "fill"
	// QuestionDrag is an ordering question answered by arranging items.
	QuestionDrag QuestionType = "drag"
	// QuestionEssay is a free-text question that is only graded manually.
	QuestionEssay QuestionType = "essay"
)

// Valid reports whether the type is one of the supported kinds.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionMCQ, QuestionFill, QuestionDrag, QuestionEssay:
		return true
	default:
		return false
	}
}

// ImagePosition describes where a question illustration is rendered.
type ImagePosition string

const (
	ImageAbove ImagePosition = "above"
	ImageBelow ImagePosition = "below"
	ImageLeft  ImagePosition = "left"
	ImageRight ImagePosition = "right"
)

// QuestionImage is an optional illustration attached to a question.
type QuestionImage struct {
	URL      string        `json:"url"`
	Position ImagePosition `json:"position,omitempty"`
	Width    int           `json:"width,omitempty"`
}

// Option is a selectable choice on an mcq question.
type Option struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// DragItem is one orderable element of a drag question.
type DragItem struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question is a tagged union over the four question kinds. The Type field
// selects which of the per-kind payload fields are meaningful: Options for
// mcq, Answer for fill, Items and CorrectOrder for drag. Essay questions
// carry only the common fields.
type Question struct {
	ID     string         `json:"id"`
	Type   QuestionType   `json:"type"`
	Text   string         `json:"text"`
	Points float64        `json:"points,omitempty"`
	Image  *QuestionImage `json:"image,omitempty"`

	Options      []Option   `json:"options,omitempty"`
	Answer       string     `json:"answer,omitempty"`
	Items        []DragItem `json:"items,omitempty"`
	CorrectOrder []string   `json:"correct_order,omitempty"`
}

// Weight returns the point value of the question, defaulting to 1 when the
// stored value is absent or non-positive.
func (q Question) Weight() float64 {
	if q.Points <= 0 {
		return 1
	}
	return q.Points
}

// ExpectedOrder resolves the correct ordering of a drag question. When no
// explicit order is stored, the original item order is the correct one.
func (q Question) ExpectedOrder() []string {
	if len(q.CorrectOrder) > 0 {
		order := make([]string, len(q.CorrectOrder))
		copy(order, q.CorrectOrder)
		return order
	}
	return q.ItemOrder()
}

// ItemOrder returns the item ids of a drag question in authored order, the
// arrangement first presented to the viewer.
func (q Question) ItemOrder() []string {
	order := make([]string, 0, len(q.Items))
	for _, item := range q.Items {
		order = append(order, item.ID)
	}
	return order
}

// CorrectOptionIDs returns the ids of options flagged correct on an mcq
// question.
func (q Question) CorrectOptionIDs() []string {
	var ids []string
	for _, opt := range q.Options {
		if opt.Correct {
			ids = append(ids, opt.ID)
		}
	}
	return ids
}
