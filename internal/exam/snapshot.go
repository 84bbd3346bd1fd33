package exam

import "time"

// Snapshot freezes the grading-relevant parts of an exam at submission time,
// so results can be reviewed faithfully even if the live exam is later
// edited or deleted.
type Snapshot struct {
	Title         string     `json:"title"`
	CourseID      string     `json:"course_id"`
	CourseTitle   string     `json:"course_title"`
	ManualGrading bool       `json:"manual_grading"`
	Questions     []Question `json:"questions"`
	TakenAt       time.Time  `json:"taken_at"`
}

// NewSnapshot captures the frozen copy.
func NewSnapshot(title, courseID, courseTitle string, manualGrading bool, questions []Question, takenAt time.Time) Snapshot {
	frozen := make([]Question, len(questions))
	copy(frozen, questions)
	return Snapshot{
		Title:         title,
		CourseID:      courseID,
		CourseTitle:   courseTitle,
		ManualGrading: manualGrading,
		Questions:     frozen,
		TakenAt:       takenAt,
	}
}
