package dto

import (
	"time"

	"github.com/escola-digital/escola-api/internal/models"
)

// GradeCreateRequest launches a grade for one (student, subject, trimester).
type GradeCreateRequest struct {
	StudentID uint     `json:"student_id" validate:"required,gt=0"`
	SubjectID uint     `json:"subject_id" validate:"required,gt=0"`
	Trimester int      `json:"trimester" validate:"required,gte=1,lte=3"`
	Value     *float64 `json:"value" validate:"required,gte=0,lte=20"`
	Period    string   `json:"period" validate:"omitempty,max=64"`
}

// GradeUpdateRequest revises the value of an existing grade.
type GradeUpdateRequest struct {
	Value *float64 `json:"value" validate:"required,gte=0,lte=20"`
}

// GradeFilter describes query string filters for listing grades.
type GradeFilter struct {
	StudentID *uint `query:"student_id"`
	SubjectID *uint `query:"subject_id"`
	Trimester *int  `query:"trimester" validate:"omitempty,gte=1,lte=3"`
}

// StudentLite summarizes a student in grade responses.
type StudentLite struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// SubjectLite summarizes a subject in grade responses.
type SubjectLite struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// GradeResponse is returned to API clients when viewing grades.
type GradeResponse struct {
	ID        uint        `json:"id"`
	StudentID uint        `json:"student_id"`
	SubjectID uint        `json:"subject_id"`
	Trimester int         `json:"trimester"`
	Value     float64     `json:"value"`
	Period    string      `json:"period"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
	Student   StudentLite `json:"student"`
	Subject   SubjectLite `json:"subject"`
}

// NewGradeResponse maps a persisted grade to its API shape.
func NewGradeResponse(grade models.Grade) GradeResponse {
	return GradeResponse{
		ID:        grade.ID,
		StudentID: grade.StudentID,
		SubjectID: grade.SubjectID,
		Trimester: grade.Trimester,
		Value:     grade.Value,
		Period:    grade.Period,
		CreatedAt: grade.CreatedAt,
		UpdatedAt: grade.UpdatedAt,
		Student:   StudentLite{ID: grade.Student.ID, Name: grade.Student.Name},
		Subject:   SubjectLite{ID: grade.Subject.ID, Name: grade.Subject.Name},
	}
}

// NewGradeResponseSlice maps a list of grades.
func NewGradeResponseSlice(grades []models.Grade) []GradeResponse {
	responses := make([]GradeResponse, 0, len(grades))
	for _, grade := range grades {
		responses = append(responses, NewGradeResponse(grade))
	}
	return responses
}
