package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/escola-digital/escola-api/internal/models"
)

// GradeFilter narrows grade queries.
type GradeFilter struct {
	StudentID *uint
	SubjectID *uint
	Trimester *int
}

// GradeRepository persists launched grades. Creation is a single atomic
// conditional insert on the (student_id, subject_id, trimester) unique index,
// so concurrent launches for the same triple cannot both succeed.
type GradeRepository interface {
	WithTx(tx *gorm.DB) GradeRepository
	Create(ctx context.Context, grade *models.Grade) error
	UpdateValue(ctx context.Context, id uint, value float64) (models.Grade, error)
	GetByID(ctx context.Context, id uint) (models.Grade, error)
	List(ctx context.Context, filter GradeFilter) ([]models.Grade, error)
}

type gradeRepository struct {
	db *gorm.DB
}

// NewGradeRepository constructs a grade repository.
func NewGradeRepository(db *gorm.DB) GradeRepository {
	return &gradeRepository{db: db}
}

func (r *gradeRepository) WithTx(tx *gorm.DB) GradeRepository {
	return &gradeRepository{db: tx}
}

// Create inserts the grade, or reports gorm.ErrDuplicatedKey when a grade for
// the same (student, subject, trimester) triple already exists. The existing
// row is left untouched.
func (r *gradeRepository) Create(ctx context.Context, grade *models.Grade) error {
	result := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_id"}, {Name: "subject_id"}, {Name: "trimester"}},
			DoNothing: true,
		}).
		Create(grade)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return gorm.ErrDuplicatedKey
	}

	return nil
}

// UpdateValue revises the score of an existing grade. Only value (and the
// update timestamp) change.
func (r *gradeRepository) UpdateValue(ctx context.Context, id uint, value float64) (models.Grade, error) {
	var grade models.Grade
	if err := r.db.WithContext(ctx).First(&grade, id).Error; err != nil {
		return models.Grade{}, err
	}

	if err := r.db.WithContext(ctx).Model(&grade).Update("value", value).Error; err != nil {
		return models.Grade{}, err
	}

	return r.GetByID(ctx, id)
}

func (r *gradeRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Grade{}).
		Preload("Student").
		Preload("Subject")
}

func (r *gradeRepository) GetByID(ctx context.Context, id uint) (models.Grade, error) {
	var grade models.Grade
	if err := r.baseQuery(ctx).First(&grade, id).Error; err != nil {
		return models.Grade{}, err
	}

	return grade, nil
}

func (r *gradeRepository) List(ctx context.Context, filter GradeFilter) ([]models.Grade, error) {
	query := r.baseQuery(ctx)

	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}

	if filter.SubjectID != nil {
		query = query.Where("subject_id = ?", *filter.SubjectID)
	}

	if filter.Trimester != nil {
		query = query.Where("trimester = ?", *filter.Trimester)
	}

	var grades []models.Grade
	if err := query.Order("created_at").Find(&grades).Error; err != nil {
		return nil, err
	}

	return grades, nil
}
