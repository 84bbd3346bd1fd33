package dto

import (
	"time"

	"github.com/openclass/exam-api/internal/exam"
	"github.com/openclass/exam-api/internal/models"
)

// PendingAttemptResponse summarizes a submission awaiting manual grading.
type PendingAttemptResponse struct {
	AttemptID     uint       `json:"attempt_id"`
	ExamID        uint       `json:"exam_id"`
	ExamTitle     string     `json:"exam_title"`
	StudentID     uint       `json:"student_id"`
	StudentName   string     `json:"student_name"`
	SubmittedAt   *time.Time `json:"submitted_at"`
	AutoSubmitted bool       `json:"auto_submitted"`
	EssayCount    int        `json:"essay_count"`
}

// NewPendingAttemptResponse converts an attempt model into the grading
// queue DTO.
func NewPendingAttemptResponse(attempt models.Attempt) PendingAttemptResponse {
	response := PendingAttemptResponse{
		AttemptID:     attempt.ID,
		ExamID:        attempt.ExamID,
		ExamTitle:     attempt.Exam.Title,
		StudentID:     attempt.StudentID,
		StudentName:   attempt.Student.Name,
		SubmittedAt:   attempt.SubmittedAt,
		AutoSubmitted: attempt.AutoSubmitted,
	}
	if snapshot, ok := attempt.SnapshotData(); ok {
		response.ExamTitle = snapshot.Title
		for _, q := range snapshot.Questions {
			if q.Type == exam.QuestionEssay {
				response.EssayCount++
			}
		}
	}
	return response
}

// GradeRequest publishes manual grades for one attempt. EssayPoints maps
// essay question ids to awarded points; awards are clamped to the question
// weight.
type GradeRequest struct {
	EssayPoints map[string]float64 `json:"essay_points" validate:"omitempty,dive,gte=0"`
	Feedback    string             `json:"feedback"`
}

// GradeResponse reports the published result.
type GradeResponse struct {
	AttemptID uint     `json:"attempt_id"`
	Status    string   `json:"status"`
	Score     *float64 `json:"score"`
	Total     *float64 `json:"total"`
}
