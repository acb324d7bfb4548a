package scoring

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/inclusivefin/altcredit/internal/audit"
	"github.com/inclusivefin/altcredit/internal/features"
	"github.com/inclusivefin/altcredit/internal/model"
	"github.com/inclusivefin/altcredit/internal/utils"
)

type captureAudit struct {
	events []audit.DecisionEvent
	fail   error
}

func (c *captureAudit) WriteDecision(e audit.DecisionEvent) (string, error) {
	if c.fail != nil {
		return "", c.fail
	}
	c.events = append(c.events, e)
	return "audit-1", nil
}

func applicantFeatures() map[string]float64 {
	return map[string]float64{
		"rent_on_time_rate_12m":     0.97,
		"utility_on_time_rate_12m":  0.95,
		"avg_monthly_income_6m":     4200,
		"cashflow_volatility_6m":    0.18,
		"avg_daily_balance_6m":      1300,
		"nsf_events_12m":            0,
		"overdraft_events_12m":      0,
		"months_at_current_job":     28,
		"months_at_current_address": 40,
	}
}

func testPipeline(t *testing.T, sink AuditWriter) *Pipeline {
	t.Helper()
	contract := features.Default()
	bundle, _, err := model.Train(model.TrainConfig{
		FeatureOrder: contract.Columns(),
		SchemaHash:   contract.SchemaHash(),
		N:            1200,
		Seed:         11,
	})
	if err != nil {
		t.Fatalf("train fixture bundle: %v", err)
	}
	p, err := New(slog.Default(), contract, bundle, sink, Options{})
	if err != nil {
		t.Fatalf("build pipeline: %v", err)
	}
	return p
}

func TestScoreProducesDecisionAndAudit(t *testing.T) {
	sink := &captureAudit{}
	p := testPipeline(t, sink)

	res, err := p.Score(context.Background(), Request{
		ApplicationID: "app-1",
		RequestID:     "req-1",
		Features:      applicantFeatures(),
	})
	if err != nil {
		t.Fatalf("Score returned error: %v", err)
	}
	if res.Score < 0 || res.Score > 1 {
		t.Fatalf("score %f outside [0,1]", res.Score)
	}
	switch res.Decision {
	case "approve", "review", "deny":
	default:
		t.Fatalf("unexpected decision %q", res.Decision)
	}
	if res.AuditID != "audit-1" {
		t.Fatalf("audit id not propagated: %q", res.AuditID)
	}
	if len(res.Reasons) == 0 {
		t.Fatal("expected at least one reason code")
	}

	if len(sink.events) != 1 {
		t.Fatalf("expected 1 audit event, got %d", len(sink.events))
	}
	event := sink.events[0]
	if event.ApplicationID != "app-1" || event.RequestID != "req-1" {
		t.Fatalf("audit event identity wrong: %+v", event)
	}
	if event.FeaturesHash == "" {
		t.Fatal("audit event missing features hash")
	}
	if len(event.ReasonCodes) != len(res.Reasons) {
		t.Fatalf("audit reason codes %d != response reasons %d", len(event.ReasonCodes), len(res.Reasons))
	}
}

func TestScoreRawFeatureRecording(t *testing.T) {
	sink := &captureAudit{}
	p := testPipeline(t, sink)

	_, err := p.Score(context.Background(), Request{ApplicationID: "a", Features: applicantFeatures()})
	if err != nil {
		t.Fatalf("Score returned error: %v", err)
	}
	if sink.events[0].Features != nil {
		t.Fatal("raw features recorded without opt-in")
	}

	sink = &captureAudit{}
	contract := features.Default()
	bundle, _, err := model.Train(model.TrainConfig{
		FeatureOrder: contract.Columns(),
		SchemaHash:   contract.SchemaHash(),
		N:            1200,
		Seed:         11,
	})
	if err != nil {
		t.Fatalf("train fixture bundle: %v", err)
	}
	p, err = New(slog.Default(), contract, bundle, sink, Options{LogRawFeatures: true})
	if err != nil {
		t.Fatalf("build pipeline: %v", err)
	}
	_, err = p.Score(context.Background(), Request{ApplicationID: "a", Features: applicantFeatures()})
	if err != nil {
		t.Fatalf("Score returned error: %v", err)
	}
	recorded := sink.events[0].Features
	if recorded == nil {
		t.Fatal("raw features not recorded with opt-in enabled")
	}
	for name, want := range applicantFeatures() {
		if got := recorded[name]; got != want {
			t.Fatalf("recorded feature %s = %f, want %f", name, got, want)
		}
	}
}

func TestScoreRejectsIncompleteFeatures(t *testing.T) {
	sink := &captureAudit{}
	p := testPipeline(t, sink)

	feats := applicantFeatures()
	delete(feats, "nsf_events_12m")
	_, err := p.Score(context.Background(), Request{ApplicationID: "app-2", Features: feats})
	if err == nil {
		t.Fatal("expected validation error for missing required feature")
	}
	if utils.KindOf(err) != utils.KindSchema {
		t.Fatalf("expected schema kind, got %v", utils.KindOf(err))
	}
	if len(sink.events) != 0 {
		t.Fatal("rejected request must not produce an audit event")
	}
}

func TestScoreFailsWhenAuditFails(t *testing.T) {
	sink := &captureAudit{fail: errors.New("disk full")}
	p := testPipeline(t, sink)

	_, err := p.Score(context.Background(), Request{ApplicationID: "app-3", Features: applicantFeatures()})
	if err == nil {
		t.Fatal("expected error when audit write fails")
	}
}

func TestScoreDeterministicForSameInput(t *testing.T) {
	p := testPipeline(t, &captureAudit{})

	first, err := p.Score(context.Background(), Request{ApplicationID: "a", Features: applicantFeatures()})
	if err != nil {
		t.Fatalf("first score: %v", err)
	}
	second, err := p.Score(context.Background(), Request{ApplicationID: "a", Features: applicantFeatures()})
	if err != nil {
		t.Fatalf("second score: %v", err)
	}
	if first.Score != second.Score || first.Decision != second.Decision {
		t.Fatalf("same input diverged: %f/%s vs %f/%s",
			first.Score, first.Decision, second.Score, second.Decision)
	}
}

func TestExplainReconstructsScore(t *testing.T) {
	p := testPipeline(t, &captureAudit{})

	exp, err := p.Explain(context.Background(), applicantFeatures())
	if err != nil {
		t.Fatalf("Explain returned error: %v", err)
	}
	if len(exp.Contributions) != len(p.Contract().Columns()) {
		t.Fatalf("expected %d contributions, got %d", len(p.Contract().Columns()), len(exp.Contributions))
	}
	if exp.Score < 0 || exp.Score > 1 {
		t.Fatalf("explanation score %f outside [0,1]", exp.Score)
	}
}

func TestNewRejectsSchemaMismatch(t *testing.T) {
	contract := features.Default()
	bundle, _, err := model.Train(model.TrainConfig{
		FeatureOrder: contract.Columns(),
		SchemaHash:   "deadbeefdeadbeef",
		N:            400,
		Seed:         3,
	})
	if err != nil {
		t.Fatalf("train fixture bundle: %v", err)
	}
	if _, err := New(slog.Default(), contract, bundle, &captureAudit{}, Options{}); err == nil {
		t.Fatal("expected schema hash mismatch to be rejected")
	}
}
