package models

import "time"

// Attendance records whether a student was present on a given calendar day.
// There is at most one row per (student_id, date); re-registration replaces
// present and note instead of inserting a duplicate.
type Attendance struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	StudentID uint      `gorm:"not null;uniqueIndex:idx_attendance_student_date" json:"student_id"`
	ClassID   *uint     `gorm:"index" json:"class_id"`
	Date      time.Time `gorm:"not null;uniqueIndex:idx_attendance_student_date" json:"date"`
	Present   bool      `gorm:"not null" json:"present"`
	Note      string    `gorm:"type:text" json:"note"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Student   Student   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"student"`
}

// DateOnly truncates a timestamp to the calendar day in UTC. Attendance is
// keyed on the day, never on a point in time.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
