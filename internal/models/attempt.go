package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/openclass/exam-api/internal/exam"
)

const (
	// AttemptStatusInProgress covers an attempt with a recorded start and no
	// submission yet.
	AttemptStatusInProgress = "in_progress"
	// AttemptStatusPending covers a submitted attempt awaiting manual grading.
	AttemptStatusPending = "pending"
	// AttemptStatusGraded covers a submitted attempt with a published score.
	AttemptStatusGraded = "graded"
)

// Attempt records one student's single pass through one exam. The
// (exam, student) pair is unique; StartedAt is written exactly once and
// SubmittedAt at most once after it.
type Attempt struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	ExamID    uint `gorm:"not null;uniqueIndex:idx_attempts_exam_student" json:"exam_id"`
	StudentID uint `gorm:"not null;uniqueIndex:idx_attempts_exam_student" json:"student_id"`

	StartedAt   *time.Time `json:"started_at"`
	SubmittedAt *time.Time `json:"submitted_at"`

	Answers  datatypes.JSON `gorm:"type:json" json:"-"`
	Snapshot datatypes.JSON `gorm:"type:json" json:"-"`

	Status        string   `gorm:"size:32;not null" json:"status"`
	Score         *float64 `json:"score"`
	Total         *float64 `json:"total"`
	AutoSubmitted bool     `json:"auto_submitted"`

	GradedAt *time.Time `json:"graded_at"`
	Feedback string     `gorm:"type:text" json:"feedback"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Exam    Exam    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Student Student `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// IsStarted reports whether a start has been recorded.
func (a Attempt) IsStarted() bool {
	return a.StartedAt != nil
}

// IsSubmitted reports whether the attempt has reached a terminal state.
func (a Attempt) IsSubmitted() bool {
	return a.SubmittedAt != nil
}

// IsGraded reports whether the score may be shown to the student.
func (a Attempt) IsGraded() bool {
	return a.Status == AttemptStatusGraded
}

// State projects the attempt into the entry gate's view of it.
func (a Attempt) State() exam.AttemptState {
	state := exam.AttemptState{Started: a.IsStarted(), Submitted: a.IsSubmitted()}
	if a.StartedAt != nil {
		state.StartedAt = *a.StartedAt
	}
	return state
}

// SetAnswers serializes the answer map into the JSON storage column.
func (a *Attempt) SetAnswers(answers exam.AnswerSet) error {
	data, err := json.Marshal(answers)
	if err != nil {
		return err
	}
	a.Answers = datatypes.JSON(data)
	return nil
}

// AnswerSet deserializes the stored answers.
func (a Attempt) AnswerSet() exam.AnswerSet {
	if len(a.Answers) == 0 {
		return nil
	}

	var answers exam.AnswerSet
	if err := json.Unmarshal(a.Answers, &answers); err != nil {
		return nil
	}
	return answers
}

// SetSnapshot serializes the frozen exam copy.
func (a *Attempt) SetSnapshot(snapshot exam.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	a.Snapshot = datatypes.JSON(data)
	return nil
}

// SnapshotData deserializes the frozen exam copy; ok is false when no
// snapshot has been stored.
func (a Attempt) SnapshotData() (exam.Snapshot, bool) {
	if len(a.Snapshot) == 0 {
		return exam.Snapshot{}, false
	}

	var snapshot exam.Snapshot
	if err := json.Unmarshal(a.Snapshot, &snapshot); err != nil {
		return exam.Snapshot{}, false
	}
	return snapshot, true
}
