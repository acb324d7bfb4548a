// Package audit persists decision and outcome events to append-only sinks:
// a line-delimited JSON log partitioned by UTC day, and a single-file SQLite
// database. Events are never updated or deleted after the write.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// EventTypeDecision and EventTypeOutcome tag the two audit record shapes.
const (
	EventTypeDecision = "decision"
	EventTypeOutcome  = "outcome"
)

// DecisionEvent records one scoring decision. Identity is the generated
// AuditID plus timestamp; ApplicationID is the only cross-event link.
type DecisionEvent struct {
	EventType           string             `json:"event_type"`
	AuditID             string             `json:"audit_id"`
	RequestID           string             `json:"request_id,omitempty"`
	ApplicationID       string             `json:"application_id"`
	ModelName           string             `json:"model_name"`
	ModelVersion        string             `json:"model_version"`
	Decision            string             `json:"decision"`
	Score               float64            `json:"score"`
	DecisionThreshold   float64            `json:"decision_threshold"`
	ReasonCodes         []string           `json:"reason_codes"`
	CreatedAt           time.Time          `json:"created_at"`
	FeaturesHash        string             `json:"features_hash,omitempty"`
	Features            map[string]float64 `json:"features,omitempty"`
	SensitiveAttributes map[string]string  `json:"sensitive_attributes,omitempty"`
	Extra               map[string]any     `json:"extra,omitempty"`
}

// OutcomeEvent records a downstream outcome (e.g. repayment status) that
// feeds monitoring and retraining.
type OutcomeEvent struct {
	EventType     string         `json:"event_type"`
	ApplicationID string         `json:"application_id"`
	OutcomeType   string         `json:"outcome_type"`
	OutcomeValue  int            `json:"outcome_value"`
	CreatedAt     time.Time      `json:"created_at"`
	Extra         map[string]any `json:"extra,omitempty"`
}

// HashFeatures returns the SHA-256 of the canonical (sorted-key) JSON
// encoding of a feature mapping, so audit records can prove which inputs
// produced a decision without necessarily storing them.
func HashFeatures(features map[string]float64) string {
	raw, _ := json.Marshal(features) // map keys are sorted by encoding/json
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
