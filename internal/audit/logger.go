package audit

import (
	"time"

	"github.com/google/uuid"

	"github.com/inclusivefin/altcredit/internal/metrics"
)

// DecisionWriter is a sink accepting decision events.
type DecisionWriter interface {
	WriteDecision(DecisionEvent) error
}

// OutcomeWriter is a sink accepting outcome events.
type OutcomeWriter interface {
	WriteOutcome(OutcomeEvent) error
}

// Logger fans one event into the configured sinks sequentially. There is no
// transaction spanning sinks and no retry: the first sink error aborts the
// write and propagates to the caller, failing the request that produced it.
type Logger struct {
	jsonl  *JSONLSink
	sqlite *SQLiteSink
}

// NewLogger combines the sinks; either may be nil.
func NewLogger(jsonl *JSONLSink, sqlite *SQLiteSink) *Logger {
	return &Logger{jsonl: jsonl, sqlite: sqlite}
}

// WriteDecision stamps identity (UUID v4 audit id, UTC now) where absent and
// appends the event to every sink. Returns the audit id.
func (l *Logger) WriteDecision(event DecisionEvent) (string, error) {
	if event.AuditID == "" {
		event.AuditID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	event.EventType = EventTypeDecision

	if l.jsonl != nil {
		err := l.jsonl.WriteDecision(event)
		metrics.ObserveAuditWrite("jsonl", err)
		if err != nil {
			return "", err
		}
	}
	if l.sqlite != nil {
		err := l.sqlite.WriteDecision(event)
		metrics.ObserveAuditWrite("sqlite", err)
		if err != nil {
			return "", err
		}
	}
	return event.AuditID, nil
}

// WriteOutcome stamps UTC now where absent and appends the event to every
// sink.
func (l *Logger) WriteOutcome(event OutcomeEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	event.EventType = EventTypeOutcome

	if l.jsonl != nil {
		err := l.jsonl.WriteOutcome(event)
		metrics.ObserveAuditWrite("jsonl", err)
		if err != nil {
			return err
		}
	}
	if l.sqlite != nil {
		err := l.sqlite.WriteOutcome(event)
		metrics.ObserveAuditWrite("sqlite", err)
		if err != nil {
			return err
		}
	}
	return nil
}

// RecentDecisions reads back the newest decision events from the SQLite
// sink, or nil when no SQLite sink is configured.
func (l *Logger) RecentDecisions(limit int) ([]DecisionEvent, error) {
	if l.sqlite == nil {
		return nil, nil
	}
	return l.sqlite.RecentDecisions(limit)
}
