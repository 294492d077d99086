package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/escola-digital/escola-api/internal/dto"
	"github.com/escola-digital/escola-api/internal/models"
	"github.com/escola-digital/escola-api/internal/observability"
	"github.com/escola-digital/escola-api/internal/repository"
)

// GradeService launches and revises grades. Launching is create-once: a
// second launch for the same (student, subject, trimester) is a conflict,
// never an overwrite. Revision is the only way to change a value.
type GradeService interface {
	Launch(ctx context.Context, payload dto.GradeCreateRequest, actor ActivityActor) (dto.GradeResponse, error)
	LaunchBatch(ctx context.Context, entries []dto.GradeCreateRequest, actor ActivityActor) ([]dto.GradeResponse, error)
	Revise(ctx context.Context, id uint, payload dto.GradeUpdateRequest, actor ActivityActor) (dto.GradeResponse, error)
	List(ctx context.Context, filter dto.GradeFilter) ([]dto.GradeResponse, error)
}

type gradeService struct {
	db        *gorm.DB
	grades    repository.GradeRepository
	students  repository.StudentRepository
	subjects  repository.SubjectRepository
	validator *validator.Validate
	cache     *redis.Client
	activity  ActivityRecorder
	events    *EventPublisher
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewGradeService constructs the grade service.
func NewGradeService(db *gorm.DB, grades repository.GradeRepository, students repository.StudentRepository, subjects repository.SubjectRepository, validate *validator.Validate, cache *redis.Client, activity ActivityRecorder, events *EventPublisher, logger zerolog.Logger) GradeService {
	return &gradeService{
		db:        db,
		grades:    grades,
		students:  students,
		subjects:  subjects,
		validator: validate,
		cache:     cache,
		activity:  activity,
		events:    events,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "grade_service").Logger(),
		tracer:    otel.Tracer("github.com/escola-digital/escola-api/internal/service/grade"),
	}
}

func (s *gradeService) Launch(ctx context.Context, payload dto.GradeCreateRequest, actor ActivityActor) (dto.GradeResponse, error) {
	grade, err := s.buildGrade(ctx, payload)
	if err != nil {
		return dto.GradeResponse{}, err
	}

	if err := s.grades.Create(ctx, &grade); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.GradeResponse{}, &DuplicateGradeError{
				StudentID: payload.StudentID,
				SubjectID: payload.SubjectID,
				Trimester: payload.Trimester,
			}
		}
		return dto.GradeResponse{}, err
	}

	created, err := s.grades.GetByID(ctx, grade.ID)
	if err != nil {
		return dto.GradeResponse{}, err
	}

	s.invalidateBoletim(ctx, created.StudentID)
	s.recordActivity(ctx, actor, "grade.launched", created)
	s.events.Publish(SubjectGradesRecorded, RecordEvent{
		Action:    "grade.launched",
		ActorID:   actor.ID,
		Count:     1,
		Details:   map[string]interface{}{"student_id": created.StudentID, "subject_id": created.SubjectID, "trimester": created.Trimester},
		EmittedAt: time.Now().UTC(),
	})

	s.logger.Info().Uint("grade_id", created.ID).Msg("grade launched")

	return dto.NewGradeResponse(created), nil
}

func (s *gradeService) LaunchBatch(ctx context.Context, entries []dto.GradeCreateRequest, actor ActivityActor) ([]dto.GradeResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grade.launch_batch")
	span.SetAttributes(
		attribute.Int("batch.size", len(entries)),
		attribute.Int64("batch.actor_id", int64(actor.ID)),
	)
	defer span.End()

	if len(entries) == 0 {
		span.SetStatus(codes.Error, "empty_batch")
		return nil, ErrEmptyBatch
	}

	grades := make([]models.Grade, 0, len(entries))
	for i, entry := range entries {
		grade, err := s.buildGrade(ctx, entry)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "validation_failed")
			observability.BatchSubmissions().WithLabelValues("grade", "rejected").Inc()
			return nil, &BatchError{Index: i, Err: err}
		}
		grades = append(grades, grade)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := s.grades.WithTx(tx)
		for i := range grades {
			if err := txRepo.Create(ctx, &grades[i]); err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					err = &DuplicateGradeError{
						StudentID: grades[i].StudentID,
						SubjectID: grades[i].SubjectID,
						Trimester: grades[i].Trimester,
					}
				}
				return &BatchError{Index: i, Err: err}
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "batch_rolled_back")
		observability.BatchSubmissions().WithLabelValues("grade", "failed").Inc()
		return nil, err
	}

	observability.BatchSubmissions().WithLabelValues("grade", "committed").Inc()
	observability.BatchEntries().WithLabelValues("grade").Observe(float64(len(grades)))

	responses := make([]dto.GradeResponse, 0, len(grades))
	for _, grade := range grades {
		created, err := s.grades.GetByID(ctx, grade.ID)
		if err != nil {
			return nil, err
		}
		responses = append(responses, dto.NewGradeResponse(created))
		s.invalidateBoletim(ctx, grade.StudentID)
	}

	s.recordBatchActivity(ctx, actor, len(grades))
	s.events.Publish(SubjectGradesRecorded, RecordEvent{
		Action:    "grade.batch_launched",
		ActorID:   actor.ID,
		Count:     len(grades),
		EmittedAt: time.Now().UTC(),
	})

	s.logger.Info().Int("entries", len(grades)).Uint("actor_id", actor.ID).Msg("grade batch committed")

	return responses, nil
}

func (s *gradeService) Revise(ctx context.Context, id uint, payload dto.GradeUpdateRequest, actor ActivityActor) (dto.GradeResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.GradeResponse{}, err
	}

	grade, err := s.grades.UpdateValue(ctx, id, *payload.Value)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.GradeResponse{}, ErrGradeNotFound
		}
		return dto.GradeResponse{}, err
	}

	s.invalidateBoletim(ctx, grade.StudentID)
	s.recordActivity(ctx, actor, "grade.revised", grade)
	s.events.Publish(SubjectGradeRevised, RecordEvent{
		Action:    "grade.revised",
		ActorID:   actor.ID,
		Count:     1,
		Details:   map[string]interface{}{"grade_id": grade.ID, "value": grade.Value},
		EmittedAt: time.Now().UTC(),
	})

	s.logger.Info().Uint("grade_id", grade.ID).Msg("grade revised")

	return dto.NewGradeResponse(grade), nil
}

func (s *gradeService) List(ctx context.Context, filter dto.GradeFilter) ([]dto.GradeResponse, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, err
	}

	grades, err := s.grades.List(ctx, repository.GradeFilter{
		StudentID: filter.StudentID,
		SubjectID: filter.SubjectID,
		Trimester: filter.Trimester,
	})
	if err != nil {
		return nil, err
	}

	return dto.NewGradeResponseSlice(grades), nil
}

func (s *gradeService) buildGrade(ctx context.Context, payload dto.GradeCreateRequest) (models.Grade, error) {
	if err := s.validator.Struct(payload); err != nil {
		return models.Grade{}, err
	}

	if _, err := s.students.GetByID(ctx, payload.StudentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Grade{}, ErrStudentNotFound
		}
		return models.Grade{}, err
	}

	if _, err := s.subjects.GetByID(ctx, payload.SubjectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Grade{}, ErrSubjectNotFound
		}
		return models.Grade{}, err
	}

	return models.Grade{
		StudentID: payload.StudentID,
		SubjectID: payload.SubjectID,
		Trimester: payload.Trimester,
		Value:     *payload.Value,
		Period:    s.sanitizer.Sanitize(payload.Period),
	}, nil
}

func (s *gradeService) invalidateBoletim(ctx context.Context, studentID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Incr(ctx, boletimVersionKey(studentID)).Err(); err != nil {
		s.logger.Warn().Err(err).Uint("student_id", studentID).Msg("failed to bump boletim cache version")
	}
}

func (s *gradeService) recordActivity(ctx context.Context, actor ActivityActor, action string, grade models.Grade) {
	if s.activity == nil {
		return
	}

	entityID := grade.ID
	if _, err := s.activity.Record(ctx, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: "grade",
		EntityID:   &entityID,
		Metadata: map[string]interface{}{
			"student_id": grade.StudentID,
			"subject_id": grade.SubjectID,
			"trimester":  grade.Trimester,
			"value":      grade.Value,
		},
	}); err != nil {
		s.logger.Warn().Err(err).Msg("failed to record grade activity")
	}
}

func (s *gradeService) recordBatchActivity(ctx context.Context, actor ActivityActor, count int) {
	if s.activity == nil {
		return
	}

	if _, err := s.activity.Record(ctx, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     "grade.batch_launched",
		EntityType: "grade",
		Metadata:   map[string]interface{}{"entries": count},
	}); err != nil {
		s.logger.Warn().Err(err).Msg("failed to record grade batch activity")
	}
}

func boletimVersionKey(studentID uint) string {
	return fmt.Sprintf("boletim:student:%d:ver", studentID)
}
