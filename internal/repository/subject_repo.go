package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/escola-digital/escola-api/internal/models"
)

// SubjectRepository provides access to subject records.
type SubjectRepository interface {
	GetByID(ctx context.Context, id uint) (models.Subject, error)
}

type subjectRepository struct {
	db *gorm.DB
}

// NewSubjectRepository constructs a subject repository.
func NewSubjectRepository(db *gorm.DB) SubjectRepository {
	return &subjectRepository{db: db}
}

func (r *subjectRepository) GetByID(ctx context.Context, id uint) (models.Subject, error) {
	var subject models.Subject
	if err := r.db.WithContext(ctx).First(&subject, id).Error; err != nil {
		return models.Subject{}, err
	}

	return subject, nil
}
