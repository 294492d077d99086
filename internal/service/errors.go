package service

import (
	"errors"
	"fmt"
)

// ErrEmptyBatch indicates a batch submission carried no entries. It is
// rejected before any transaction is opened.
var ErrEmptyBatch = errors.New("nothing to submit")

// ErrGradeNotFound indicates a grade revision targeted a missing grade.
var ErrGradeNotFound = errors.New("grade not found")

// ErrStudentNotFound indicates the referenced student does not exist.
var ErrStudentNotFound = errors.New("student not found")

// ErrSubjectNotFound indicates the referenced subject does not exist.
var ErrSubjectNotFound = errors.New("subject not found")

// ErrInvalidTrimester indicates a trimester outside the 1-3 range.
var ErrInvalidTrimester = errors.New("trimester must be between 1 and 3")

// ErrInvalidDateRange indicates an end date earlier than the start date.
var ErrInvalidDateRange = errors.New("end date must not precede start date")

// DuplicateGradeError reports a grade launch for a triple that already has a
// grade. The existing value is never overwritten.
type DuplicateGradeError struct {
	StudentID uint
	SubjectID uint
	Trimester int
}

func (e *DuplicateGradeError) Error() string {
	return fmt.Sprintf("grade already launched for student %d, subject %d, trimester %d", e.StudentID, e.SubjectID, e.Trimester)
}

// BatchError reports the first entry that made a batch fail. The whole batch
// is rolled back; no entry before or after Index is persisted.
type BatchError struct {
	Index int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch entry %d: %v", e.Index, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}
