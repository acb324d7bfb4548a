package audit

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decisionFixture() DecisionEvent {
	return DecisionEvent{
		ApplicationID:     "app-123",
		RequestID:         "req-1",
		ModelName:         "logreg_altdata_baseline",
		ModelVersion:      "demo-abc123",
		Decision:          "approve",
		Score:             0.81,
		DecisionThreshold: 0.70,
		ReasonCodes:       []string{"RC_NSF_EVENTS", "RC_LOW_BALANCE"},
		FeaturesHash:      HashFeatures(map[string]float64{"nsf_events_12m": 1}),
	}
}

func TestJSONLSinkDayPartition(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewJSONLSink(dir)
	require.NoError(t, err)

	event := decisionFixture()
	event.AuditID = "a1"
	event.CreatedAt = time.Date(2026, 3, 14, 23, 59, 0, 0, time.UTC)
	require.NoError(t, sink.WriteDecision(event))

	event.AuditID = "a2"
	event.CreatedAt = time.Date(2026, 3, 15, 0, 1, 0, 0, time.UTC)
	require.NoError(t, sink.WriteDecision(event))

	first, err := os.ReadFile(filepath.Join(dir, "audit-2026-03-14.jsonl"))
	require.NoError(t, err)
	second, err := os.ReadFile(filepath.Join(dir, "audit-2026-03-15.jsonl"))
	require.NoError(t, err)

	var decoded DecisionEvent
	require.NoError(t, json.Unmarshal(first, &decoded))
	assert.Equal(t, "a1", decoded.AuditID)

	assert.Equal(t, 1, bytes.Count(second, []byte("\n")))
}

func TestSQLiteSinkRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	sink, err := OpenSQLite(path)
	require.NoError(t, err)
	defer sink.Close()

	event := decisionFixture()
	event.AuditID = "a1"
	event.EventType = EventTypeDecision
	event.CreatedAt = time.Now().UTC()
	event.Features = map[string]float64{"nsf_events_12m": 1}
	require.NoError(t, sink.WriteDecision(event))

	require.NoError(t, sink.WriteOutcome(OutcomeEvent{
		ApplicationID: "app-123",
		OutcomeType:   "repayment_90d",
		OutcomeValue:  1,
		CreatedAt:     time.Now().UTC(),
	}))

	recent, err := sink.RecentDecisions(10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "a1", recent[0].AuditID)
	assert.Equal(t, "approve", recent[0].Decision)
	assert.Equal(t, []string{"RC_NSF_EVENTS", "RC_LOW_BALANCE"}, recent[0].ReasonCodes)
	assert.InDelta(t, 0.81, recent[0].Score, 1e-9)
}

func TestLoggerStampsIdentity(t *testing.T) {
	dir := t.TempDir()
	jsonl, err := NewJSONLSink(dir)
	require.NoError(t, err)
	sqlite, err := OpenSQLite(filepath.Join(dir, "audit.db"))
	require.NoError(t, err)
	defer sqlite.Close()

	logger := NewLogger(jsonl, sqlite)

	id, err := logger.WriteDecision(decisionFixture())
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	recent, err := logger.RecentDecisions(5)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, id, recent[0].AuditID)
	assert.False(t, recent[0].CreatedAt.IsZero())
}

func TestHashFeaturesCanonical(t *testing.T) {
	a := HashFeatures(map[string]float64{"x": 1, "y": 2})
	b := HashFeatures(map[string]float64{"y": 2, "x": 1})
	assert.Equal(t, a, b, "hash must be key-order independent")

	c := HashFeatures(map[string]float64{"x": 1, "y": 3})
	assert.NotEqual(t, a, c)
}
