package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/openclass/exam-api/internal/exam"
)

// Exam is a stored exam definition. The ordered question list is kept as a
// JSON document; question order is significant and fixed at render time.
type Exam struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Title       string         `gorm:"size:255;not null" json:"title"`
	CourseID    string         `gorm:"size:64;index" json:"course_id"`
	CourseTitle string         `gorm:"size:255" json:"course_title"`
	Questions   datatypes.JSON `gorm:"type:json" json:"-"`

	TimeLimitMinutes int        `json:"time_limit_minutes"`
	ScheduleEnabled  bool       `json:"schedule_enabled"`
	ScheduledAt      *time.Time `json:"scheduled_at"`
	WindowEndAt      *time.Time `json:"window_end_at"`
	ManualGrading    bool       `json:"manual_grading"`
	ReopenOnly       bool       `json:"reopen_only"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SetQuestions serializes the question list into the JSON storage column.
func (e *Exam) SetQuestions(questions []exam.Question) error {
	data, err := json.Marshal(questions)
	if err != nil {
		return err
	}
	e.Questions = datatypes.JSON(data)
	return nil
}

// QuestionList deserializes the stored question document.
func (e Exam) QuestionList() []exam.Question {
	if len(e.Questions) == 0 {
		return nil
	}

	var questions []exam.Question
	if err := json.Unmarshal(e.Questions, &questions); err != nil {
		return nil
	}
	return questions
}

// Settings projects the scheduling and grading configuration for the gate
// and timer.
func (e Exam) Settings() exam.Settings {
	return exam.Settings{
		TimeLimitMinutes: e.TimeLimitMinutes,
		ScheduleEnabled:  e.ScheduleEnabled,
		ScheduledAt:      e.ScheduledAt,
		WindowEndAt:      e.WindowEndAt,
		ManualGrading:    e.ManualGrading,
		ReopenOnly:       e.ReopenOnly,
	}
}
