package models

import "time"

// Grade is a single launched score for a student in one subject and trimester,
// on the 0-20 scale. The (student_id, subject_id, trimester) triple is unique;
// launching twice for the same triple is a conflict, revising the value is a
// separate operation.
type Grade struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	StudentID uint      `gorm:"not null;uniqueIndex:idx_grade_student_subject_trimester" json:"student_id"`
	SubjectID uint      `gorm:"not null;uniqueIndex:idx_grade_student_subject_trimester" json:"subject_id"`
	Trimester int       `gorm:"not null;uniqueIndex:idx_grade_student_subject_trimester" json:"trimester"`
	Value     float64   `gorm:"not null" json:"value"`
	Period    string    `gorm:"size:64" json:"period"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Student   Student   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"student"`
	Subject   Subject   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"subject"`
}

const (
	// TrimesterMin is the first academic trimester of the year.
	TrimesterMin = 1
	// TrimesterMax is the last academic trimester of the year.
	TrimesterMax = 3

	// GradeScaleMax is the top of the grading scale.
	GradeScaleMax = 20.0
	// PassingAverage is the minimum trimester average for approval, inclusive.
	PassingAverage = 10.0
)
