package dto

import (
	"time"

	"github.com/openclass/exam-api/internal/exam"
	"github.com/openclass/exam-api/internal/models"
)

// OptionPayload is one mcq choice in an exam create/update request.
type OptionPayload struct {
	ID      string `json:"id"`
	Text    string `json:"text" validate:"required"`
	Correct bool   `json:"correct"`
}

// DragItemPayload is one orderable item in an exam create/update request.
type DragItemPayload struct {
	ID   string `json:"id"`
	Text string `json:"text" validate:"required"`
}

// ImagePayload describes an optional question illustration.
type ImagePayload struct {
	URL      string `json:"url" validate:"required,url"`
	Position string `json:"position" validate:"omitempty,oneof=above below left right"`
	Width    int    `json:"width" validate:"omitempty,gt=0"`
}

// QuestionPayload is one question in an exam create/update request. The
// fields past Image are type-specific; the service validates that the right
// ones are present for the declared type.
type QuestionPayload struct {
	ID     string        `json:"id"`
	Type   string        `json:"type" validate:"required,oneof=mcq fill drag essay"`
	Text   string        `json:"text" validate:"required"`
	Points float64       `json:"points" validate:"omitempty,gt=0"`
	Image  *ImagePayload `json:"image" validate:"omitempty"`

	Options      []OptionPayload   `json:"options" validate:"omitempty,dive"`
	Answer       string            `json:"answer"`
	Items        []DragItemPayload `json:"items" validate:"omitempty,dive"`
	CorrectOrder []string          `json:"correct_order"`
}

// ExamCreateRequest is the admin payload for defining an exam.
type ExamCreateRequest struct {
	Title            string            `json:"title" validate:"required,min=3"`
	CourseID         string            `json:"course_id" validate:"required"`
	CourseTitle      string            `json:"course_title"`
	TimeLimitMinutes int               `json:"time_limit_minutes" validate:"gte=0"`
	ScheduleEnabled  bool              `json:"schedule_enabled"`
	ScheduledAt      *time.Time        `json:"scheduled_at"`
	WindowEndAt      *time.Time        `json:"window_end_at"`
	ManualGrading    bool              `json:"manual_grading"`
	ReopenOnly       bool              `json:"reopen_only"`
	Questions        []QuestionPayload `json:"questions" validate:"required,min=1,dive"`
}

// ExamUpdateRequest mirrors the create payload for full replacement updates.
type ExamUpdateRequest = ExamCreateRequest

// ExamListFilter narrows admin exam listings.
type ExamListFilter struct {
	CourseID string `query:"course_id"`
	Page     int    `query:"page" validate:"omitempty,gte=1"`
	PageSize int    `query:"page_size" validate:"omitempty,gte=1,lte=100"`
}

// ExamResponse is the admin view of an exam, correctness data included.
type ExamResponse struct {
	ID               uint            `json:"id"`
	Title            string          `json:"title"`
	CourseID         string          `json:"course_id"`
	CourseTitle      string          `json:"course_title"`
	TimeLimitMinutes int             `json:"time_limit_minutes"`
	ScheduleEnabled  bool            `json:"schedule_enabled"`
	ScheduledAt      *time.Time      `json:"scheduled_at"`
	WindowEndAt      *time.Time      `json:"window_end_at"`
	ManualGrading    bool            `json:"manual_grading"`
	ReopenOnly       bool            `json:"reopen_only"`
	Questions        []exam.Question `json:"questions"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// NewExamResponse converts an exam model into the admin DTO.
func NewExamResponse(model models.Exam) ExamResponse {
	return ExamResponse{
		ID:               model.ID,
		Title:            model.Title,
		CourseID:         model.CourseID,
		CourseTitle:      model.CourseTitle,
		TimeLimitMinutes: model.TimeLimitMinutes,
		ScheduleEnabled:  model.ScheduleEnabled,
		ScheduledAt:      model.ScheduledAt,
		WindowEndAt:      model.WindowEndAt,
		ManualGrading:    model.ManualGrading,
		ReopenOnly:       model.ReopenOnly,
		Questions:        model.QuestionList(),
		CreatedAt:        model.CreatedAt,
		UpdatedAt:        model.UpdatedAt,
	}
}

// NewExamResponseSlice converts a list of exam models.
func NewExamResponseSlice(examModels []models.Exam) []ExamResponse {
	responses := make([]ExamResponse, 0, len(examModels))
	for _, model := range examModels {
		responses = append(responses, NewExamResponse(model))
	}
	return responses
}

// OptionView is an mcq choice with the correctness flag stripped.
type OptionView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// DragItemView is an orderable item as presented to the taker.
type DragItemView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// QuestionView is a question as presented to an exam taker: no correct
// flags, no expected answers, no correct order.
type QuestionView struct {
	ID     string              `json:"id"`
	Type   exam.QuestionType   `json:"type"`
	Text   string              `json:"text"`
	Points float64             `json:"points"`
	Image  *exam.QuestionImage `json:"image,omitempty"`

	Options []OptionView   `json:"options,omitempty"`
	Items   []DragItemView `json:"items,omitempty"`
}

// ExamView is the taker-facing projection of an exam.
type ExamView struct {
	ID               uint           `json:"id"`
	Title            string         `json:"title"`
	CourseTitle      string         `json:"course_title"`
	TimeLimitMinutes int            `json:"time_limit_minutes"`
	ManualGrading    bool           `json:"manual_grading"`
	Questions        []QuestionView `json:"questions"`
}

// NewExamView projects an exam for a taker, stripping all grading data.
func NewExamView(model models.Exam) ExamView {
	questions := model.QuestionList()
	views := make([]QuestionView, 0, len(questions))
	for _, q := range questions {
		views = append(views, NewQuestionView(q))
	}

	return ExamView{
		ID:               model.ID,
		Title:            model.Title,
		CourseTitle:      model.CourseTitle,
		TimeLimitMinutes: model.TimeLimitMinutes,
		ManualGrading:    model.ManualGrading,
		Questions:        views,
	}
}

// NewQuestionView strips the grading data off one question.
func NewQuestionView(q exam.Question) QuestionView {
	view := QuestionView{
		ID:     q.ID,
		Type:   q.Type,
		Text:   q.Text,
		Points: q.Weight(),
		Image:  q.Image,
	}
	for _, opt := range q.Options {
		view.Options = append(view.Options, OptionView{ID: opt.ID, Text: opt.Text})
	}
	for _, item := range q.Items {
		view.Items = append(view.Items, DragItemView{ID: item.ID, Text: item.Text})
	}
	return view
}
