package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/escola-digital/escola-api/internal/dto"
	"github.com/escola-digital/escola-api/internal/models"
	"github.com/escola-digital/escola-api/internal/repository"
)

func newGradeService(db *gorm.DB) GradeService {
	var (
		grades   repository.GradeRepository
		students repository.StudentRepository
		subjects repository.SubjectRepository
	)
	if db != nil {
		grades = repository.NewGradeRepository(db)
		students = repository.NewStudentRepository(db)
		subjects = repository.NewSubjectRepository(db)
	}
	return NewGradeService(db, grades, students, subjects, testValidator(), nil, nil, nil, testLogger())
}

func seedServiceSubject(t *testing.T, db *gorm.DB, name string) models.Subject {
	t.Helper()
	subject := models.Subject{Name: name}
	require.NoError(t, db.Create(&subject).Error)
	return subject
}

func floatPtr(v float64) *float64 { return &v }

func TestLaunchPersistsGrade(t *testing.T) {
	db := setupServiceDB(t)
	svc := newGradeService(db)
	student := seedServiceStudent(t, db, "Ana Souza", "ana@example.com")
	subject := seedServiceSubject(t, db, "Mathematics")

	grade, err := svc.Launch(context.Background(), dto.GradeCreateRequest{
		StudentID: student.ID,
		SubjectID: subject.ID,
		Trimester: 1,
		Value:     floatPtr(14.5),
	}, ActivityActor{ID: 1})
	require.NoError(t, err)
	require.NotZero(t, grade.ID)
	require.Equal(t, 14.5, grade.Value)
	require.Equal(t, "Ana Souza", grade.Student.Name)
	require.Equal(t, "Mathematics", grade.Subject.Name)
}

func TestLaunchDuplicateTripleIsAConflict(t *testing.T) {
	db := setupServiceDB(t)
	svc := newGradeService(db)
	student := seedServiceStudent(t, db, "Ana Souza", "ana@example.com")
	subject := seedServiceSubject(t, db, "Mathematics")

	payload := dto.GradeCreateRequest{StudentID: student.ID, SubjectID: subject.ID, Trimester: 2, Value: floatPtr(12.0)}
	_, err := svc.Launch(context.Background(), payload, ActivityActor{ID: 1})
	require.NoError(t, err)

	payload.Value = floatPtr(18.0)
	_, err = svc.Launch(context.Background(), payload, ActivityActor{ID: 1})
	var dup *DuplicateGradeError
	require.ErrorAs(t, err, &dup)
	require.Equal(t, student.ID, dup.StudentID)
	require.Equal(t, subject.ID, dup.SubjectID)
	require.Equal(t, 2, dup.Trimester)

	// The first launch must survive untouched.
	grades, err := svc.List(context.Background(), dto.GradeFilter{StudentID: &student.ID})
	require.NoError(t, err)
	require.Len(t, grades, 1)
	require.Equal(t, 12.0, grades[0].Value)
}

func TestLaunchUnknownStudentOrSubject(t *testing.T) {
	db := setupServiceDB(t)
	svc := newGradeService(db)
	student := seedServiceStudent(t, db, "Ana Souza", "ana@example.com")
	subject := seedServiceSubject(t, db, "Mathematics")

	_, err := svc.Launch(context.Background(), dto.GradeCreateRequest{StudentID: 9999, SubjectID: subject.ID, Trimester: 1, Value: floatPtr(10.0)}, ActivityActor{ID: 1})
	require.ErrorIs(t, err, ErrStudentNotFound)

	_, err = svc.Launch(context.Background(), dto.GradeCreateRequest{StudentID: student.ID, SubjectID: 9999, Trimester: 1, Value: floatPtr(10.0)}, ActivityActor{ID: 1})
	require.ErrorIs(t, err, ErrSubjectNotFound)
}

func TestLaunchBatchIsAllOrNothing(t *testing.T) {
	db := setupServiceDB(t)
	svc := newGradeService(db)
	student := seedServiceStudent(t, db, "Ana Souza", "ana@example.com")
	math := seedServiceSubject(t, db, "Mathematics")
	history := seedServiceSubject(t, db, "History")

	// Trimester 3 for history already exists; the batch must not commit the
	// math entry either.
	_, err := svc.Launch(context.Background(), dto.GradeCreateRequest{StudentID: student.ID, SubjectID: history.ID, Trimester: 3, Value: floatPtr(9.0)}, ActivityActor{ID: 1})
	require.NoError(t, err)

	entries := []dto.GradeCreateRequest{
		{StudentID: student.ID, SubjectID: math.ID, Trimester: 3, Value: floatPtr(16.0)},
		{StudentID: student.ID, SubjectID: history.ID, Trimester: 3, Value: floatPtr(11.0)},
	}
	_, err = svc.LaunchBatch(context.Background(), entries, ActivityActor{ID: 1})

	var batchErr *BatchError
	require.ErrorAs(t, err, &batchErr)
	require.Equal(t, 1, batchErr.Index)
	var dup *DuplicateGradeError
	require.ErrorAs(t, err, &dup)

	var count int64
	require.NoError(t, db.Model(&models.Grade{}).Count(&count).Error)
	require.Equal(t, int64(1), count, "only the pre-existing grade may remain")
}

func TestLaunchBatchCommitsAllEntries(t *testing.T) {
	db := setupServiceDB(t)
	svc := newGradeService(db)
	student := seedServiceStudent(t, db, "Ana Souza", "ana@example.com")
	math := seedServiceSubject(t, db, "Mathematics")
	history := seedServiceSubject(t, db, "History")

	entries := []dto.GradeCreateRequest{
		{StudentID: student.ID, SubjectID: math.ID, Trimester: 1, Value: floatPtr(16.0)},
		{StudentID: student.ID, SubjectID: history.ID, Trimester: 1, Value: floatPtr(11.0)},
	}
	grades, err := svc.LaunchBatch(context.Background(), entries, ActivityActor{ID: 1})
	require.NoError(t, err)
	require.Len(t, grades, 2)
	require.Equal(t, "Mathematics", grades[0].Subject.Name)
	require.Equal(t, "History", grades[1].Subject.Name)
}

func TestLaunchBatchRejectsEmptyInput(t *testing.T) {
	svc := newGradeService(nil)

	_, err := svc.LaunchBatch(context.Background(), nil, ActivityActor{ID: 1})
	require.ErrorIs(t, err, ErrEmptyBatch)
}

func TestReviseUpdatesOnlyTheValue(t *testing.T) {
	db := setupServiceDB(t)
	svc := newGradeService(db)
	student := seedServiceStudent(t, db, "Ana Souza", "ana@example.com")
	subject := seedServiceSubject(t, db, "Mathematics")

	created, err := svc.Launch(context.Background(), dto.GradeCreateRequest{
		StudentID: student.ID,
		SubjectID: subject.ID,
		Trimester: 1,
		Value:     floatPtr(8.0),
		Period:    "2024",
	}, ActivityActor{ID: 1})
	require.NoError(t, err)

	revised, err := svc.Revise(context.Background(), created.ID, dto.GradeUpdateRequest{Value: floatPtr(13.0)}, ActivityActor{ID: 1})
	require.NoError(t, err)
	require.Equal(t, created.ID, revised.ID)
	require.Equal(t, 13.0, revised.Value)
	require.Equal(t, "2024", revised.Period)
	require.Equal(t, created.Trimester, revised.Trimester)
}

func TestReviseMissingGrade(t *testing.T) {
	db := setupServiceDB(t)
	svc := newGradeService(db)

	_, err := svc.Revise(context.Background(), 9999, dto.GradeUpdateRequest{Value: floatPtr(13.0)}, ActivityActor{ID: 1})
	require.ErrorIs(t, err, ErrGradeNotFound)
}

func TestReviseRejectsOutOfScaleValue(t *testing.T) {
	db := setupServiceDB(t)
	svc := newGradeService(db)

	_, err := svc.Revise(context.Background(), 1, dto.GradeUpdateRequest{Value: floatPtr(25.0)}, ActivityActor{ID: 1})
	require.Error(t, err)
}
