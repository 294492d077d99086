package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/escola-digital/escola-api/internal/models"
)

// AttendanceFilter narrows attendance queries. Every field maps to exactly
// one predicate; unset fields are ignored.
type AttendanceFilter struct {
	ClassID   *uint
	StudentID *uint
	Date      *time.Time
	From      *time.Time
	To        *time.Time
}

// AttendanceRepository reads and writes attendance rows. Writes are keyed on
// (student_id, date) and never create duplicates for that pair.
type AttendanceRepository interface {
	WithTx(tx *gorm.DB) AttendanceRepository
	Upsert(ctx context.Context, entry *models.Attendance) error
	List(ctx context.Context, filter AttendanceFilter) ([]models.Attendance, error)
	CountPresence(ctx context.Context, classID uint, from, to time.Time) (total int64, present int64, err error)
}

type attendanceRepository struct {
	db *gorm.DB
}

// NewAttendanceRepository constructs an attendance repository.
func NewAttendanceRepository(db *gorm.DB) AttendanceRepository {
	return &attendanceRepository{db: db}
}

// WithTx returns a repository bound to the given transaction handle. The
// returned repository never commits on its own.
func (r *attendanceRepository) WithTx(tx *gorm.DB) AttendanceRepository {
	return &attendanceRepository{db: tx}
}

func (r *attendanceRepository) Upsert(ctx context.Context, entry *models.Attendance) error {
	entry.Date = models.DateOnly(entry.Date)

	// A re-registration for the same (student_id, date) replaces only
	// present and note. The class is bound at first registration; later
	// corrections may omit it without detaching the entry from its class.
	if err := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_id"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"present", "note", "updated_at"}),
		}).
		Create(entry).Error; err != nil {
		return err
	}

	// A conflicting insert updates the existing row without reporting its id
	// back on every driver, so reload by the natural key.
	return r.db.WithContext(ctx).
		Where("student_id = ? AND date = ?", entry.StudentID, entry.Date).
		First(entry).Error
}

func (r *attendanceRepository) List(ctx context.Context, filter AttendanceFilter) ([]models.Attendance, error) {
	query := r.db.WithContext(ctx).Model(&models.Attendance{}).Joins("Student")

	if filter.ClassID != nil {
		query = query.Where("attendances.class_id = ?", *filter.ClassID)
	}

	if filter.StudentID != nil {
		query = query.Where("attendances.student_id = ?", *filter.StudentID)
	}

	if filter.Date != nil {
		query = query.Where("attendances.date = ?", models.DateOnly(*filter.Date))
	}

	if filter.From != nil {
		query = query.Where("attendances.date >= ?", models.DateOnly(*filter.From))
	}

	if filter.To != nil {
		query = query.Where("attendances.date <= ?", models.DateOnly(*filter.To))
	}

	if filter.StudentID != nil {
		query = query.Order("attendances.date DESC")
	} else {
		query = query.Order(`"Student"."name", attendances.date`)
	}

	var entries []models.Attendance
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *attendanceRepository) CountPresence(ctx context.Context, classID uint, from, to time.Time) (int64, int64, error) {
	var counts struct {
		Total   int64
		Present int64
	}

	err := r.db.WithContext(ctx).Model(&models.Attendance{}).
		Select("COUNT(*) AS total, COALESCE(SUM(CASE WHEN present THEN 1 ELSE 0 END), 0) AS present").
		Where("class_id = ?", classID).
		Where("date >= ? AND date <= ?", models.DateOnly(from), models.DateOnly(to)).
		Scan(&counts).Error
	if err != nil {
		return 0, 0, err
	}

	return counts.Total, counts.Present, nil
}
