package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/escola-digital/escola-api/internal/dto"
	"github.com/escola-digital/escola-api/internal/models"
	"github.com/escola-digital/escola-api/internal/repository"
)

func newBoletimService(db *gorm.DB, cache *redis.Client) BoletimService {
	return NewBoletimService(repository.NewGradeRepository(db), repository.NewStudentRepository(db), cache, time.Minute, testLogger())
}

func seedGrade(t *testing.T, db *gorm.DB, studentID, subjectID uint, trimester int, value float64) {
	t.Helper()
	grade := models.Grade{StudentID: studentID, SubjectID: subjectID, Trimester: trimester, Value: value}
	require.NoError(t, db.Create(&grade).Error)
}

func TestBoletimComputesAverageAndVerdict(t *testing.T) {
	db := setupServiceDB(t)
	svc := newBoletimService(db, nil)
	student := seedServiceStudent(t, db, "Ana Souza", "ana@example.com")
	math := seedServiceSubject(t, db, "Mathematics")
	history := seedServiceSubject(t, db, "History")
	science := seedServiceSubject(t, db, "Science")

	seedGrade(t, db, student.ID, math.ID, 1, 12.0)
	seedGrade(t, db, student.ID, history.ID, 1, 8.0)
	seedGrade(t, db, student.ID, science.ID, 1, 15.0)

	boletim, err := svc.Boletim(context.Background(), student.ID, 1)
	require.NoError(t, err)
	require.Equal(t, student.ID, boletim.StudentID)
	require.Equal(t, "Ana Souza", boletim.StudentName)
	require.Len(t, boletim.Subjects, 3)
	require.Equal(t, 11.7, boletim.Average)
	require.Equal(t, VerdictApproved, boletim.Verdict)
}

func TestBoletimSubjectsAreSortedByName(t *testing.T) {
	db := setupServiceDB(t)
	svc := newBoletimService(db, nil)
	student := seedServiceStudent(t, db, "Ana Souza", "ana@example.com")
	science := seedServiceSubject(t, db, "Science")
	history := seedServiceSubject(t, db, "History")
	math := seedServiceSubject(t, db, "Mathematics")

	seedGrade(t, db, student.ID, science.ID, 2, 10.0)
	seedGrade(t, db, student.ID, history.ID, 2, 10.0)
	seedGrade(t, db, student.ID, math.ID, 2, 10.0)

	boletim, err := svc.Boletim(context.Background(), student.ID, 2)
	require.NoError(t, err)
	require.Equal(t, "History", boletim.Subjects[0].SubjectName)
	require.Equal(t, "Mathematics", boletim.Subjects[1].SubjectName)
	require.Equal(t, "Science", boletim.Subjects[2].SubjectName)
}

func TestBoletimExactThresholdApproves(t *testing.T) {
	db := setupServiceDB(t)
	svc := newBoletimService(db, nil)
	student := seedServiceStudent(t, db, "Ana Souza", "ana@example.com")
	math := seedServiceSubject(t, db, "Mathematics")
	history := seedServiceSubject(t, db, "History")

	seedGrade(t, db, student.ID, math.ID, 1, 10.0)
	seedGrade(t, db, student.ID, history.ID, 1, 10.0)

	boletim, err := svc.Boletim(context.Background(), student.ID, 1)
	require.NoError(t, err)
	require.Equal(t, 10.0, boletim.Average)
	require.Equal(t, VerdictApproved, boletim.Verdict)
}

func TestBoletimVerdictIgnoresDisplayRounding(t *testing.T) {
	db := setupServiceDB(t)
	svc := newBoletimService(db, nil)
	student := seedServiceStudent(t, db, "Ana Souza", "ana@example.com")
	math := seedServiceSubject(t, db, "Mathematics")
	history := seedServiceSubject(t, db, "History")

	// Mean 9.98 displays as 10.0 but sits below the passing threshold.
	seedGrade(t, db, student.ID, math.ID, 1, 9.96)
	seedGrade(t, db, student.ID, history.ID, 1, 10.0)

	boletim, err := svc.Boletim(context.Background(), student.ID, 1)
	require.NoError(t, err)
	require.Equal(t, 10.0, boletim.Average)
	require.Equal(t, VerdictFailed, boletim.Verdict)
}

func TestBoletimWithoutGrades(t *testing.T) {
	db := setupServiceDB(t)
	svc := newBoletimService(db, nil)
	student := seedServiceStudent(t, db, "Ana Souza", "ana@example.com")

	boletim, err := svc.Boletim(context.Background(), student.ID, 1)
	require.NoError(t, err)
	require.Empty(t, boletim.Subjects)
	require.Equal(t, 0.0, boletim.Average)
	require.Equal(t, VerdictFailed, boletim.Verdict)
}

func TestBoletimRejectsBadInput(t *testing.T) {
	db := setupServiceDB(t)
	svc := newBoletimService(db, nil)
	student := seedServiceStudent(t, db, "Ana Souza", "ana@example.com")

	_, err := svc.Boletim(context.Background(), student.ID, 0)
	require.ErrorIs(t, err, ErrInvalidTrimester)

	_, err = svc.Boletim(context.Background(), student.ID, 4)
	require.ErrorIs(t, err, ErrInvalidTrimester)

	_, err = svc.Boletim(context.Background(), 9999, 1)
	require.ErrorIs(t, err, ErrStudentNotFound)
}

func TestBoletimCacheIsInvalidatedByGradeWrites(t *testing.T) {
	db := setupServiceDB(t)
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = cache.Close() })

	boletimSvc := newBoletimService(db, cache)
	gradeSvc := NewGradeService(db, repository.NewGradeRepository(db), repository.NewStudentRepository(db), repository.NewSubjectRepository(db), testValidator(), cache, nil, nil, testLogger())

	student := seedServiceStudent(t, db, "Ana Souza", "ana@example.com")
	math := seedServiceSubject(t, db, "Mathematics")
	history := seedServiceSubject(t, db, "History")

	_, err := gradeSvc.Launch(context.Background(), dto.GradeCreateRequest{StudentID: student.ID, SubjectID: math.ID, Trimester: 1, Value: floatPtr(12.0)}, ActivityActor{ID: 1})
	require.NoError(t, err)

	first, err := boletimSvc.Boletim(context.Background(), student.ID, 1)
	require.NoError(t, err)
	require.Equal(t, 12.0, first.Average)

	// Served from cache: the stored copy is returned verbatim.
	cached, err := boletimSvc.Boletim(context.Background(), student.ID, 1)
	require.NoError(t, err)
	require.Equal(t, first, cached)

	// A new launch bumps the version, so the next read recomputes.
	_, err = gradeSvc.Launch(context.Background(), dto.GradeCreateRequest{StudentID: student.ID, SubjectID: history.ID, Trimester: 1, Value: floatPtr(8.0)}, ActivityActor{ID: 1})
	require.NoError(t, err)

	fresh, err := boletimSvc.Boletim(context.Background(), student.ID, 1)
	require.NoError(t, err)
	require.Len(t, fresh.Subjects, 2)
	require.Equal(t, 10.0, fresh.Average)
}
