package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
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

// AttendanceService registers attendance entries and computes presence
// reports. Batch submission is all-or-nothing: the first failing entry rolls
// back every entry of the call.
type AttendanceService interface {
	SubmitBatch(ctx context.Context, entries []dto.AttendanceEntryRequest, actor ActivityActor) ([]dto.AttendanceResponse, error)
	Record(ctx context.Context, entry dto.AttendanceEntryRequest, actor ActivityActor) (dto.AttendanceResponse, error)
	List(ctx context.Context, filter dto.AttendanceListFilter) ([]dto.AttendanceResponse, error)
	Report(ctx context.Context, classID uint, start, end time.Time) (dto.AttendanceReportResponse, error)
}

type attendanceService struct {
	db         *gorm.DB
	attendance repository.AttendanceRepository
	validator  *validator.Validate
	cache      *redis.Client
	cacheTTL   time.Duration
	activity   ActivityRecorder
	events     *EventPublisher
	sanitizer  *bluemonday.Policy
	logger     zerolog.Logger
	tracer     trace.Tracer
}

// NewAttendanceService constructs the attendance service. cache and events
// may be nil; activity may be nil when no audit trail is wired.
func NewAttendanceService(db *gorm.DB, attendance repository.AttendanceRepository, validate *validator.Validate, cache *redis.Client, cacheTTL time.Duration, activity ActivityRecorder, events *EventPublisher, logger zerolog.Logger) AttendanceService {
	return &attendanceService{
		db:         db,
		attendance: attendance,
		validator:  validate,
		cache:      cache,
		cacheTTL:   cacheTTL,
		activity:   activity,
		events:     events,
		sanitizer:  bluemonday.StrictPolicy(),
		logger:     logger.With().Str("component", "attendance_service").Logger(),
		tracer:     otel.Tracer("github.com/escola-digital/escola-api/internal/service/attendance"),
	}
}

func (s *attendanceService) SubmitBatch(ctx context.Context, entries []dto.AttendanceEntryRequest, actor ActivityActor) ([]dto.AttendanceResponse, error) {
	ctx, span := s.tracer.Start(ctx, "attendance.submit_batch")
	span.SetAttributes(
		attribute.Int("batch.size", len(entries)),
		attribute.Int64("batch.actor_id", int64(actor.ID)),
	)
	defer span.End()

	if len(entries) == 0 {
		span.SetStatus(codes.Error, "empty_batch")
		return nil, ErrEmptyBatch
	}

	// All entries are validated before the transaction opens; a malformed
	// entry never costs a connection.
	rows := make([]models.Attendance, 0, len(entries))
	for i, entry := range entries {
		row, err := s.buildRow(entry)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "validation_failed")
			observability.BatchSubmissions().WithLabelValues("attendance", "rejected").Inc()
			return nil, &BatchError{Index: i, Err: err}
		}
		rows = append(rows, row)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := s.attendance.WithTx(tx)
		for i := range rows {
			if err := txRepo.Upsert(ctx, &rows[i]); err != nil {
				return &BatchError{Index: i, Err: err}
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "batch_rolled_back")
		observability.BatchSubmissions().WithLabelValues("attendance", "failed").Inc()
		return nil, err
	}

	observability.BatchSubmissions().WithLabelValues("attendance", "committed").Inc()
	observability.BatchEntries().WithLabelValues("attendance").Observe(float64(len(rows)))

	s.invalidateReports(ctx, rows)
	s.recordActivity(ctx, actor, "attendance.batch_submitted", len(rows), rows)
	s.events.Publish(SubjectAttendanceRecorded, RecordEvent{
		Action:    "attendance.batch_submitted",
		ActorID:   actor.ID,
		Count:     len(rows),
		EmittedAt: time.Now().UTC(),
	})

	s.logger.Info().Int("entries", len(rows)).Uint("actor_id", actor.ID).Msg("attendance batch committed")

	return dto.NewAttendanceResponseSlice(rows), nil
}

func (s *attendanceService) Record(ctx context.Context, entry dto.AttendanceEntryRequest, actor ActivityActor) (dto.AttendanceResponse, error) {
	row, err := s.buildRow(entry)
	if err != nil {
		return dto.AttendanceResponse{}, err
	}

	if err := s.attendance.Upsert(ctx, &row); err != nil {
		return dto.AttendanceResponse{}, err
	}

	s.invalidateReports(ctx, []models.Attendance{row})
	s.recordActivity(ctx, actor, "attendance.recorded", 1, []models.Attendance{row})

	return dto.NewAttendanceResponse(row), nil
}

func (s *attendanceService) List(ctx context.Context, filter dto.AttendanceListFilter) ([]dto.AttendanceResponse, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, err
	}

	repoFilter := repository.AttendanceFilter{
		ClassID:   filter.ClassID,
		StudentID: filter.StudentID,
	}

	var err error
	if repoFilter.Date, err = parseOptionalDate(filter.Date); err != nil {
		return nil, err
	}
	if repoFilter.From, err = parseOptionalDate(filter.From); err != nil {
		return nil, err
	}
	if repoFilter.To, err = parseOptionalDate(filter.To); err != nil {
		return nil, err
	}

	entries, err := s.attendance.List(ctx, repoFilter)
	if err != nil {
		return nil, err
	}

	return dto.NewAttendanceResponseSlice(entries), nil
}

func (s *attendanceService) Report(ctx context.Context, classID uint, start, end time.Time) (dto.AttendanceReportResponse, error) {
	ctx, span := s.tracer.Start(ctx, "attendance.report")
	span.SetAttributes(attribute.Int64("report.class_id", int64(classID)))
	defer span.End()

	start = models.DateOnly(start)
	end = models.DateOnly(end)
	if end.Before(start) {
		return dto.AttendanceReportResponse{}, ErrInvalidDateRange
	}

	cacheKey := s.reportCacheKey(ctx, classID, start, end)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var report dto.AttendanceReportResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &report); unmarshalErr == nil {
				s.logger.Debug().Uint("class_id", classID).Msg("attendance report cache hit")
				return report, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read attendance report cache")
		}
	}

	total, present, err := s.attendance.CountPresence(ctx, classID, start, end)
	if err != nil {
		span.RecordError(err)
		return dto.AttendanceReportResponse{}, err
	}

	rate := 0.0
	if total > 0 {
		rate = round1(float64(present) / float64(total) * 100)
	}

	report := dto.AttendanceReportResponse{
		ClassID:        classID,
		StartDate:      start.Format(dto.DateLayout),
		EndDate:        end.Format(dto.DateLayout),
		TotalEntries:   total,
		PresentCount:   present,
		AttendanceRate: rate,
	}

	if s.cache != nil {
		if payload, err := json.Marshal(report); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store attendance report cache")
			}
		}
	}

	return report, nil
}

func (s *attendanceService) buildRow(entry dto.AttendanceEntryRequest) (models.Attendance, error) {
	if err := s.validator.Struct(entry); err != nil {
		return models.Attendance{}, err
	}

	date, err := entry.ParsedDate()
	if err != nil {
		return models.Attendance{}, fmt.Errorf("invalid date %q: %w", entry.Date, err)
	}

	return models.Attendance{
		StudentID: entry.StudentID,
		ClassID:   entry.ClassID,
		Date:      date,
		Present:   *entry.Present,
		Note:      s.sanitizer.Sanitize(entry.Note),
	}, nil
}

// reportCacheKey folds a per-class version counter into the key so writes
// invalidate every cached range for the class with a single INCR.
func (s *attendanceService) reportCacheKey(ctx context.Context, classID uint, start, end time.Time) string {
	version := "0"
	if s.cache != nil {
		if v, err := s.cache.Get(ctx, reportVersionKey(classID)).Result(); err == nil {
			version = v
		}
	}
	return fmt.Sprintf("report:attendance:%d:v%s:%s:%s", classID, version, start.Format(dto.DateLayout), end.Format(dto.DateLayout))
}

func (s *attendanceService) invalidateReports(ctx context.Context, rows []models.Attendance) {
	if s.cache == nil {
		return
	}

	seen := map[uint]struct{}{}
	for _, row := range rows {
		if row.ClassID == nil {
			continue
		}
		if _, done := seen[*row.ClassID]; done {
			continue
		}
		seen[*row.ClassID] = struct{}{}
		if err := s.cache.Incr(ctx, reportVersionKey(*row.ClassID)).Err(); err != nil {
			s.logger.Warn().Err(err).Uint("class_id", *row.ClassID).Msg("failed to bump report cache version")
		}
	}
}

func (s *attendanceService) recordActivity(ctx context.Context, actor ActivityActor, action string, count int, rows []models.Attendance) {
	if s.activity == nil {
		return
	}

	metadata := map[string]interface{}{"entries": count}
	if len(rows) > 0 && rows[0].ClassID != nil {
		metadata["class_id"] = *rows[0].ClassID
	}

	if _, err := s.activity.Record(ctx, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: "attendance",
		Metadata:   metadata,
	}); err != nil {
		s.logger.Warn().Err(err).Msg("failed to record attendance activity")
	}
}

func reportVersionKey(classID uint) string {
	return fmt.Sprintf("report:attendance:class:%d:ver", classID)
}

func parseOptionalDate(value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	parsed, err := time.ParseInLocation(dto.DateLayout, *value, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", *value, err)
	}
	day := models.DateOnly(parsed)
	return &day, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
