package dto

import (
	"time"

	"github.com/escola-digital/escola-api/internal/models"
)

// DateLayout is the wire format for attendance dates. Attendance is keyed on
// calendar days, so no time component is accepted.
const DateLayout = "2006-01-02"

// AttendanceEntryRequest is one attendance registration, either standalone or
// as part of a batch.
type AttendanceEntryRequest struct {
	StudentID uint   `json:"student_id" validate:"required,gt=0"`
	ClassID   *uint  `json:"class_id" validate:"omitempty,gt=0"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Present   *bool  `json:"present" validate:"required"`
	Note      string `json:"note" validate:"omitempty,max=2000"`
}

// ParsedDate returns the entry date as a UTC calendar day.
func (r AttendanceEntryRequest) ParsedDate() (time.Time, error) {
	parsed, err := time.ParseInLocation(DateLayout, r.Date, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return models.DateOnly(parsed), nil
}

// AttendanceListFilter describes query string filters for listing entries.
type AttendanceListFilter struct {
	ClassID   *uint   `query:"class_id"`
	StudentID *uint   `query:"student_id"`
	Date      *string `query:"date" validate:"omitempty,datetime=2006-01-02"`
	From      *string `query:"from" validate:"omitempty,datetime=2006-01-02"`
	To        *string `query:"to" validate:"omitempty,datetime=2006-01-02"`
}

// AttendanceResponse is returned to API clients for persisted entries.
type AttendanceResponse struct {
	ID          uint      `json:"id"`
	StudentID   uint      `json:"student_id"`
	StudentName string    `json:"student_name,omitempty"`
	ClassID     *uint     `json:"class_id"`
	Date        string    `json:"date"`
	Present     bool      `json:"present"`
	Note        string    `json:"note"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewAttendanceResponse maps a persisted attendance row to its API shape.
func NewAttendanceResponse(entry models.Attendance) AttendanceResponse {
	return AttendanceResponse{
		ID:          entry.ID,
		StudentID:   entry.StudentID,
		StudentName: entry.Student.Name,
		ClassID:     entry.ClassID,
		Date:        entry.Date.Format(DateLayout),
		Present:     entry.Present,
		Note:        entry.Note,
		CreatedAt:   entry.CreatedAt,
		UpdatedAt:   entry.UpdatedAt,
	}
}

// NewAttendanceResponseSlice maps a list of attendance rows.
func NewAttendanceResponseSlice(entries []models.Attendance) []AttendanceResponse {
	responses := make([]AttendanceResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, NewAttendanceResponse(entry))
	}
	return responses
}

// AttendanceReportResponse summarizes presence for a class over an inclusive
// date range.
type AttendanceReportResponse struct {
	ClassID        uint    `json:"class_id"`
	StartDate      string  `json:"start_date"`
	EndDate        string  `json:"end_date"`
	TotalEntries   int64   `json:"total_entries"`
	PresentCount   int64   `json:"present_count"`
	AttendanceRate float64 `json:"attendance_rate"`
}
