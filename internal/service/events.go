package service

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// NATS subjects for academic-record events consumed by downstream services.
const (
	SubjectAttendanceRecorded = "escola.attendance.recorded"
	SubjectGradesRecorded     = "escola.grades.recorded"
	SubjectGradeRevised       = "escola.grades.revised"
)

// RecordEvent is the payload published after a successful write commits.
type RecordEvent struct {
	Action    string                 `json:"action"`
	ActorID   uint                   `json:"actor_id"`
	Count     int                    `json:"count"`
	Details   map[string]interface{} `json:"details,omitempty"`
	EmittedAt time.Time              `json:"emitted_at"`
}

// EventPublisher emits domain events over NATS. Publishing is best effort:
// a nil publisher or broker failure never fails the originating request.
type EventPublisher struct {
	conn   *nats.Conn
	logger zerolog.Logger
}

// NewEventPublisher constructs an event publisher. conn may be nil when no
// broker is configured.
func NewEventPublisher(conn *nats.Conn, logger zerolog.Logger) *EventPublisher {
	return &EventPublisher{
		conn:   conn,
		logger: logger.With().Str("component", "event_publisher").Logger(),
	}
}

// Publish emits the event on the given subject.
func (p *EventPublisher) Publish(subject string, event RecordEvent) {
	if p == nil || p.conn == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn().Err(err).Str("subject", subject).Msg("failed to encode event")
		return
	}

	if err := p.conn.Publish(subject, payload); err != nil {
		p.logger.Warn().Err(err).Str("subject", subject).Msg("failed to publish event")
	}
}
