package audit

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed sql/ddl.sql
var ddlFS embed.FS

// SQLiteSink inserts audit events into a single-file database. Nested
// values (reason codes, features, sensitive attributes, extras) are stored
// as JSON-encoded text columns.
type SQLiteSink struct {
	db *sql.DB
}

// OpenSQLite opens (creating if necessary) the audit database and applies
// the schema.
func OpenSQLite(path string) (*SQLiteSink, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open audit db %s: %w", path, err)
	}

	ddl, err := ddlFS.ReadFile("sql/ddl.sql")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("read audit schema: %w", err)
	}
	if _, err := db.Exec(string(ddl)); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply audit schema: %w", err)
	}

	return &SQLiteSink{db: db}, nil
}

// Close releases the database handle.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

func jsonText(v any) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

// WriteDecision inserts one decision event row.
func (s *SQLiteSink) WriteDecision(event DecisionEvent) error {
	reasons, err := json.Marshal(event.ReasonCodes)
	if err != nil {
		return fmt.Errorf("encode reason codes: %w", err)
	}
	var featuresJSON, sensitiveJSON, extraJSON sql.NullString
	if event.Features != nil {
		if featuresJSON, err = jsonText(event.Features); err != nil {
			return fmt.Errorf("encode features: %w", err)
		}
	}
	if event.SensitiveAttributes != nil {
		if sensitiveJSON, err = jsonText(event.SensitiveAttributes); err != nil {
			return fmt.Errorf("encode sensitive attributes: %w", err)
		}
	}
	if event.Extra != nil {
		if extraJSON, err = jsonText(event.Extra); err != nil {
			return fmt.Errorf("encode extra: %w", err)
		}
	}

	_, err = s.db.Exec(`
		INSERT INTO decision_events (
			audit_id, request_id, created_at, application_id, model_name, model_version,
			decision, score, decision_threshold, reason_codes,
			features_hash, features_json, sensitive_json, extra_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.AuditID,
		event.RequestID,
		event.CreatedAt.UTC().Format(time.RFC3339Nano),
		event.ApplicationID,
		event.ModelName,
		event.ModelVersion,
		event.Decision,
		event.Score,
		event.DecisionThreshold,
		string(reasons),
		event.FeaturesHash,
		featuresJSON,
		sensitiveJSON,
		extraJSON,
	)
	if err != nil {
		return fmt.Errorf("insert decision event: %w", err)
	}
	return nil
}

// WriteOutcome inserts one outcome event row.
func (s *SQLiteSink) WriteOutcome(event OutcomeEvent) error {
	var extraJSON sql.NullString
	if event.Extra != nil {
		var err error
		if extraJSON, err = jsonText(event.Extra); err != nil {
			return fmt.Errorf("encode extra: %w", err)
		}
	}

	_, err := s.db.Exec(`
		INSERT INTO outcome_events (created_at, application_id, outcome_type, outcome_value, extra_json)
		VALUES (?, ?, ?, ?, ?)`,
		event.CreatedAt.UTC().Format(time.RFC3339Nano),
		event.ApplicationID,
		event.OutcomeType,
		event.OutcomeValue,
		extraJSON,
	)
	if err != nil {
		return fmt.Errorf("insert outcome event: %w", err)
	}
	return nil
}

// RecentDecisions returns the most recent decision events, newest first.
// This is a convenience read for the demo dashboard, not a query API.
func (s *SQLiteSink) RecentDecisions(limit int) ([]DecisionEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT audit_id, request_id, created_at, application_id, model_name, model_version,
		       decision, score, decision_threshold, reason_codes, features_hash
		FROM decision_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query decision events: %w", err)
	}
	defer rows.Close()

	var out []DecisionEvent
	for rows.Next() {
		var (
			event     DecisionEvent
			createdAt string
			reasons   string
			requestID sql.NullString
			hash      sql.NullString
		)
		if err := rows.Scan(
			&event.AuditID, &requestID, &createdAt, &event.ApplicationID,
			&event.ModelName, &event.ModelVersion, &event.Decision,
			&event.Score, &event.DecisionThreshold, &reasons, &hash,
		); err != nil {
			return nil, fmt.Errorf("scan decision event: %w", err)
		}
		event.EventType = EventTypeDecision
		event.RequestID = requestID.String
		event.FeaturesHash = hash.String
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			event.CreatedAt = t
		}
		if err := json.Unmarshal([]byte(reasons), &event.ReasonCodes); err != nil {
			return nil, fmt.Errorf("decode reason codes: %w", err)
		}
		out = append(out, event)
	}
	return out, rows.Err()
}
