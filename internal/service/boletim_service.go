package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/escola-digital/escola-api/internal/dto"
	"github.com/escola-digital/escola-api/internal/models"
	"github.com/escola-digital/escola-api/internal/repository"
)

// Report card verdicts.
const (
	VerdictApproved = "Approved"
	VerdictFailed   = "Failed"
)

// BoletimService derives a student's report card for one trimester. Nothing
// is stored; every request recomputes from the launched grades.
type BoletimService interface {
	Boletim(ctx context.Context, studentID uint, trimester int) (dto.BoletimResponse, error)
}

type boletimService struct {
	grades   repository.GradeRepository
	students repository.StudentRepository
	cache    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
	tracer   trace.Tracer
}

// NewBoletimService constructs the report card calculator. cache may be nil.
func NewBoletimService(grades repository.GradeRepository, students repository.StudentRepository, cache *redis.Client, cacheTTL time.Duration, logger zerolog.Logger) BoletimService {
	return &boletimService{
		grades:   grades,
		students: students,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger.With().Str("component", "boletim_service").Logger(),
		tracer:   otel.Tracer("github.com/escola-digital/escola-api/internal/service/boletim"),
	}
}

func (s *boletimService) Boletim(ctx context.Context, studentID uint, trimester int) (dto.BoletimResponse, error) {
	ctx, span := s.tracer.Start(ctx, "boletim.compute")
	span.SetAttributes(
		attribute.Int64("boletim.student_id", int64(studentID)),
		attribute.Int("boletim.trimester", trimester),
	)
	defer span.End()

	if trimester < models.TrimesterMin || trimester > models.TrimesterMax {
		return dto.BoletimResponse{}, ErrInvalidTrimester
	}

	student, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.BoletimResponse{}, ErrStudentNotFound
		}
		return dto.BoletimResponse{}, err
	}

	cacheKey := s.cacheKey(ctx, studentID, trimester)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var boletim dto.BoletimResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &boletim); unmarshalErr == nil {
				s.logger.Debug().Uint("student_id", studentID).Msg("boletim cache hit")
				return boletim, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read boletim cache")
		}
	}

	grades, err := s.grades.List(ctx, repository.GradeFilter{StudentID: &studentID, Trimester: &trimester})
	if err != nil {
		span.RecordError(err)
		return dto.BoletimResponse{}, err
	}

	boletim := buildBoletim(student, trimester, grades)

	if s.cache != nil {
		if payload, err := json.Marshal(boletim); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store boletim cache")
			}
		}
	}

	return boletim, nil
}

func buildBoletim(student models.Student, trimester int, grades []models.Grade) dto.BoletimResponse {
	subjects := make([]dto.BoletimSubject, 0, len(grades))
	var sum float64
	for _, grade := range grades {
		subjects = append(subjects, dto.BoletimSubject{
			SubjectID:   grade.SubjectID,
			SubjectName: grade.Subject.Name,
			Value:       grade.Value,
		})
		sum += grade.Value
	}

	sort.Slice(subjects, func(i, j int) bool {
		if subjects[i].SubjectName != subjects[j].SubjectName {
			return subjects[i].SubjectName < subjects[j].SubjectName
		}
		return subjects[i].SubjectID < subjects[j].SubjectID
	})

	mean := 0.0
	if len(subjects) > 0 {
		mean = sum / float64(len(subjects))
	}

	// The verdict is decided on the unrounded mean so display rounding can
	// never flip it across the passing threshold.
	verdict := VerdictFailed
	if mean >= models.PassingAverage {
		verdict = VerdictApproved
	}

	return dto.BoletimResponse{
		StudentID:   student.ID,
		StudentName: student.Name,
		Trimester:   trimester,
		Subjects:    subjects,
		Average:     round1(mean),
		Verdict:     verdict,
	}
}

func (s *boletimService) cacheKey(ctx context.Context, studentID uint, trimester int) string {
	version := "0"
	if s.cache != nil {
		if v, err := s.cache.Get(ctx, boletimVersionKey(studentID)).Result(); err == nil {
			version = v
		}
	}
	return fmt.Sprintf("boletim:%d:v%s:t%d", studentID, version, trimester)
}
