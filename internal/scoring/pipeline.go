// Package scoring wires the feature contract, model bundle, decision policy,
// reason strategy and audit logger into the synchronous request pipeline
// behind the scoring API.
package scoring

import (
	"context"
	"log/slog"
	"time"

	"github.com/inclusivefin/altcredit/internal/audit"
	"github.com/inclusivefin/altcredit/internal/explain"
	"github.com/inclusivefin/altcredit/internal/features"
	"github.com/inclusivefin/altcredit/internal/metrics"
	"github.com/inclusivefin/altcredit/internal/model"
	"github.com/inclusivefin/altcredit/internal/policy"
	"github.com/inclusivefin/altcredit/internal/utils"
)

// AuditWriter is the slice of the audit logger the pipeline needs.
type AuditWriter interface {
	WriteDecision(audit.DecisionEvent) (string, error)
}

// Request is one scoring call.
type Request struct {
	ApplicationID       string
	RequestID           string
	Features            map[string]float64
	SensitiveAttributes map[string]string
}

// Result is the outcome of a scored application.
type Result struct {
	ApplicationID string           `json:"application_id"`
	Decision      policy.Decision  `json:"decision"`
	Score         float64          `json:"score"`
	Reasons       []explain.Reason `json:"reasons"`
	ModelName     string           `json:"model_name"`
	ModelVersion  string           `json:"model_version"`
	AuditID       string           `json:"audit_id"`
	ScoredAt      time.Time        `json:"scored_at"`
}

// Pipeline scores applications against a single immutable bundle. Safe for
// concurrent use: every collaborator is read-only after construction except
// the audit logger and latency tracker, which synchronize internally.
type Pipeline struct {
	logger    *slog.Logger
	contract  *features.Contract
	bundle    *model.Bundle
	policy    policy.Policy
	strategy  explain.Strategy
	audit     AuditWriter
	latencies *utils.LatencyTracker
	topK      int
	logRaw    bool
}

// Options tunes optional pipeline behavior.
type Options struct {
	// ReasonStrategy selects how reason codes are produced; empty means
	// coefficient-based.
	ReasonStrategy string
	// TopK bounds the reason list; zero means the default.
	TopK int
	// LogRawFeatures records the sanitized feature values on each audit
	// event. Off by default: the canonical hash is always recorded, raw
	// values only when an operator opts in.
	LogRawFeatures bool
}

// New builds a pipeline around a validated bundle. The bundle's schema hash
// must match the contract so a stale artifact cannot score live traffic.
func New(logger *slog.Logger, contract *features.Contract, b *model.Bundle, auditLog AuditWriter, opts Options) (*Pipeline, error) {
	const op = "scoring.New"
	if logger == nil {
		logger = slog.Default()
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if b.SchemaHash != contract.SchemaHash() {
		return nil, utils.Errf(utils.KindSchema, op,
			"bundle schema hash %s does not match contract %s", b.SchemaHash, contract.SchemaHash())
	}
	pol, err := policy.New(b.Thresholds.Approve, b.Thresholds.Review)
	if err != nil {
		return nil, utils.E(utils.KindSchema, op, "bundle thresholds", err)
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = explain.DefaultTopK
	}
	return &Pipeline{
		logger:    logger,
		contract:  contract,
		bundle:    b,
		policy:    pol,
		strategy:  explain.NewStrategy(opts.ReasonStrategy),
		audit:     auditLog,
		latencies: utils.NewLatencyTracker(1024),
		topK:      topK,
		logRaw:    opts.LogRawFeatures,
	}, nil
}

// Bundle exposes the served bundle for read-only introspection.
func (p *Pipeline) Bundle() *model.Bundle { return p.bundle }

// Contract exposes the feature contract in force.
func (p *Pipeline) Contract() *features.Contract { return p.contract }

// Score runs the full decision flow: sanitize, validate, predict, decide,
// explain, audit. The audit write is part of the request; if it fails the
// request fails, so no decision can exist without its audit record.
func (p *Pipeline) Score(ctx context.Context, req Request) (*Result, error) {
	const op = "scoring.Pipeline.Score"
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return nil, utils.E(utils.KindUnknown, op, "request cancelled", err)
	}

	feats := p.contract.Sanitize(req.Features)
	if err := p.contract.Validate(feats); err != nil {
		return nil, err
	}
	vec, err := p.contract.Vectorize(feats)
	if err != nil {
		return nil, err
	}

	score := p.bundle.Model.PredictProba(vec)
	decision := p.policy.Decide(score)
	reasons := p.strategy.Reasons(feats, vec, p.bundle.FeatureOrder, p.bundle.Model, p.topK)
	codes := make([]string, len(reasons))
	for i, r := range reasons {
		codes[i] = r.Code
	}

	event := audit.DecisionEvent{
		RequestID:           req.RequestID,
		ApplicationID:       req.ApplicationID,
		ModelName:           p.bundle.Name,
		ModelVersion:        p.bundle.Version,
		Decision:            string(decision),
		Score:               score,
		DecisionThreshold:   p.bundle.Thresholds.Approve,
		ReasonCodes:         codes,
		FeaturesHash:        audit.HashFeatures(feats),
		SensitiveAttributes: req.SensitiveAttributes,
	}
	if p.logRaw {
		event.Features = feats
	}
	auditID, err := p.audit.WriteDecision(event)
	if err != nil {
		metrics.ObserveScore(time.Since(start), "")
		p.logger.Error("audit write failed",
			slog.String("application_id", req.ApplicationID), slog.Any("error", err))
		return nil, utils.E(utils.KindUnknown, op, "audit write", err)
	}

	duration := time.Since(start)
	p.latencies.Observe(duration)
	metrics.ObserveScore(duration, string(decision))
	if count := p.latencies.Count(); count >= 20 && count%20 == 0 {
		p.logger.Info("scoring latency",
			slog.Duration("p95", p.latencies.Percentile(95)), slog.Int("samples", count))
	}

	p.logger.Debug("application scored",
		slog.String("application_id", req.ApplicationID),
		slog.String("decision", string(decision)),
		slog.Float64("score", score))

	return &Result{
		ApplicationID: req.ApplicationID,
		Decision:      decision,
		Score:         score,
		Reasons:       reasons,
		ModelName:     p.bundle.Name,
		ModelVersion:  p.bundle.Version,
		AuditID:       auditID,
		ScoredAt:      time.Now().UTC(),
	}, nil
}

// Explain returns per-feature linear contributions for a feature map
// without writing an audit record. Models that cannot expose linear
// contributions yield an Unsupported error.
func (p *Pipeline) Explain(ctx context.Context, feats map[string]float64) (*explain.Explanation, error) {
	const op = "scoring.Pipeline.Explain"
	if err := ctx.Err(); err != nil {
		return nil, utils.E(utils.KindUnknown, op, "request cancelled", err)
	}
	clean := p.contract.Sanitize(feats)
	if err := p.contract.Validate(clean); err != nil {
		return nil, err
	}
	vec, err := p.contract.Vectorize(clean)
	if err != nil {
		return nil, err
	}
	return explain.Linear(p.bundle.Model, vec, p.bundle.FeatureOrder)
}
