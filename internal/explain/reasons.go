// Package explain derives adverse-action-style reason codes and linear
// explanations from a scored feature vector.
//
// Two strategies exist and are deliberately not reconciled: deployments pick
// one via configuration. The rule strategy compares raw features against
// fixed reference values; the coefficient strategy ranks linear
// contributions. Ties sort stably in declared order.
package explain

import (
	"sort"
	"strings"

	"github.com/inclusivefin/altcredit/internal/model"
)

const (
	// DefaultTopK caps the reason list returned with a decision.
	DefaultTopK = 4

	// CodeUnavailable is emitted when the model exposes no coefficients.
	CodeUnavailable = "UNAVAILABLE"

	DirectionIncreases = "increases"
	DirectionDecreases = "decreases"
)

// Reason is one machine-readable explanation entry, most important first.
type Reason struct {
	Code        string  `json:"code"`
	Feature     string  `json:"feature,omitempty"`
	Direction   string  `json:"direction,omitempty"`
	Severity    float64 `json:"severity"`
	Description string  `json:"description,omitempty"`
}

// Strategy produces an ordered reason list capped at topK entries.
type Strategy interface {
	Reasons(feats map[string]float64, vec []float64, names []string, m model.CreditModel, topK int) []Reason
}

// NewStrategy resolves a configured strategy name. Unknown names fall back
// to the coefficient strategy.
func NewStrategy(name string) Strategy {
	if strings.EqualFold(name, "rules") {
		return RuleStrategy{}
	}
	return CoefStrategy{}
}

// CoefStrategy ranks features by |coefficient * value| descending. Direction
// reports whether the signed contribution pushed the score up or down.
type CoefStrategy struct{}

// Reasons implements Strategy. Emits a single UNAVAILABLE entry when the
// model has no linear coefficients.
func (CoefStrategy) Reasons(_ map[string]float64, vec []float64, names []string, m model.CreditModel, topK int) []Reason {
	if topK <= 0 {
		topK = DefaultTopK
	}

	le, ok := m.(model.LinearExplainer)
	if !ok {
		return []Reason{{Code: CodeUnavailable}}
	}

	contrib, _ := le.LinearContributions(vec)
	reasons := make([]Reason, 0, len(contrib))
	for i, c := range contrib {
		direction := DirectionIncreases
		if c < 0 {
			direction = DirectionDecreases
		}
		reasons = append(reasons, Reason{
			Code:      "RC_" + strings.ToUpper(names[i]),
			Feature:   names[i],
			Direction: direction,
			Severity:  abs(c),
		})
	}

	sort.SliceStable(reasons, func(i, j int) bool { return reasons[i].Severity > reasons[j].Severity })
	if len(reasons) > topK {
		reasons = reasons[:topK]
	}
	return reasons
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
