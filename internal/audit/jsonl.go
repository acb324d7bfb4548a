package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// JSONLSink appends one JSON line per event to audit-YYYY-MM-DD.jsonl files
// in its directory, partitioned by the event's UTC calendar day.
type JSONLSink struct {
	dir string
}

// NewJSONLSink creates the audit directory if needed.
func NewJSONLSink(dir string) (*JSONLSink, error) {
	if dir == "" {
		return nil, fmt.Errorf("audit dir required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}
	return &JSONLSink{dir: dir}, nil
}

func (s *JSONLSink) path(at time.Time) string {
	return filepath.Join(s.dir, "audit-"+at.UTC().Format("2006-01-02")+".jsonl")
}

func (s *JSONLSink) append(at time.Time, payload any) error {
	line, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	f, err := os.OpenFile(s.path(at), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append audit log: %w", err)
	}
	return nil
}

// WriteDecision appends a decision event to the day's log file.
func (s *JSONLSink) WriteDecision(event DecisionEvent) error {
	return s.append(event.CreatedAt, event)
}

// WriteOutcome appends an outcome event to the day's log file.
func (s *JSONLSink) WriteOutcome(event OutcomeEvent) error {
	return s.append(event.CreatedAt, event)
}
