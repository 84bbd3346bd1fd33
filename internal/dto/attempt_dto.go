package dto

import (
	"time"

	"github.com/openclass/exam-api/internal/exam"
	"github.com/openclass/exam-api/internal/models"
)

// EnterRequest selects the view the student is navigating to.
type EnterRequest struct {
	View string `json:"view" query:"view" validate:"omitempty,oneof=exam result review"`
}

// EnterResponse is the outcome of an entry evaluation. Exactly one of the
// optional blocks is populated, matching the outcome.
type EnterResponse struct {
	Outcome string `json:"outcome"`
	Reason  string `json:"reason,omitempty"`

	// WaitSeconds is the pre-start countdown when the outcome is wait.
	WaitSeconds int64 `json:"wait_seconds,omitempty"`

	// RemainingSeconds is the in-progress countdown; nil means no time limit.
	RemainingSeconds *int64     `json:"remaining_seconds,omitempty"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	Exam             *ExamView  `json:"exam,omitempty"`

	Result *ResultResponse `json:"result,omitempty"`
}

// AnswerRequest records a scalar answer for an mcq, fill or essay question.
type AnswerRequest struct {
	QuestionID string `json:"question_id" validate:"required"`
	Value      string `json:"value"`
}

// MoveItemRequest shifts a drag item one position up or down.
type MoveItemRequest struct {
	QuestionID string `json:"question_id" validate:"required"`
	ItemID     string `json:"item_id" validate:"required"`
	Direction  string `json:"direction" validate:"required,oneof=up down"`
}

// UnansweredResponse lists questions failing the completeness check, used
// for the advisory pre-submit warning.
type UnansweredResponse struct {
	QuestionIDs []string `json:"question_ids"`
}

// ResultResponse is the student-facing result card. While manual grading is
// pending the score is withheld: Pending is true and Score is nil even
// though a placeholder is stored.
type ResultResponse struct {
	ExamID        uint       `json:"exam_id"`
	Title         string     `json:"title"`
	CourseTitle   string     `json:"course_title"`
	Status        string     `json:"status"`
	Pending       bool       `json:"pending"`
	Score         *float64   `json:"score,omitempty"`
	Total         *float64   `json:"total,omitempty"`
	AutoSubmitted bool       `json:"auto_submitted"`
	SubmittedAt   *time.Time `json:"submitted_at,omitempty"`
	GradedAt      *time.Time `json:"graded_at,omitempty"`
	Feedback      string     `json:"feedback,omitempty"`
}

// NewResultResponse builds the result card from a stored attempt, applying
// the pending-score withholding rule.
func NewResultResponse(attempt models.Attempt, title, courseTitle string) ResultResponse {
	response := ResultResponse{
		ExamID:        attempt.ExamID,
		Title:         title,
		CourseTitle:   courseTitle,
		Status:        attempt.Status,
		Pending:       attempt.Status == models.AttemptStatusPending,
		Total:         attempt.Total,
		AutoSubmitted: attempt.AutoSubmitted,
		SubmittedAt:   attempt.SubmittedAt,
		GradedAt:      attempt.GradedAt,
		Feedback:      attempt.Feedback,
	}
	if !response.Pending {
		response.Score = attempt.Score
	}
	return response
}

// ReviewResponse reconstructs the per-question comparison for a submitted
// attempt. Disclosed is false while manual grading is pending, in which case
// the entries carry no verdicts or correct answers.
type ReviewResponse struct {
	ExamID      uint               `json:"exam_id"`
	Title       string             `json:"title"`
	CourseTitle string             `json:"course_title"`
	Status      string             `json:"status"`
	Disclosed   bool               `json:"disclosed"`
	Entries     []exam.ReviewEntry `json:"entries"`
}

// CountdownTick is one frame of the live countdown stream.
type CountdownTick struct {
	Phase            string `json:"phase"` // wait | in_progress | submitted
	RemainingSeconds int64  `json:"remaining_seconds"`
	NoLimit          bool   `json:"no_limit,omitempty"`
}
