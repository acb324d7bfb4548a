package explain

import (
	"math"

	"github.com/inclusivefin/altcredit/internal/model"
	"github.com/inclusivefin/altcredit/internal/utils"
)

// MethodLinearProxy identifies the coefficient-times-value explanation.
const MethodLinearProxy = "linear_logit_contributions"

// Contribution is one row of a linear explanation.
type Contribution struct {
	Feature      string  `json:"feature"`
	Value        float64 `json:"value"`
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"`
}

// Explanation is a full per-feature decomposition of one score. The
// intercept is the base value; summing base and contributions reconstructs
// the logit, and Score is the sigmoid of that sum.
type Explanation struct {
	Method        string         `json:"method"`
	BaseValue     float64        `json:"base_value"`
	Score         float64        `json:"score"`
	Contributions []Contribution `json:"contributions"`
}

// Linear decomposes a score into per-feature contributions. Returns an
// Unsupported error for models without linear coefficients.
func Linear(m model.CreditModel, vec []float64, names []string) (*Explanation, error) {
	const op = "explain.Linear"

	le, ok := m.(model.LinearExplainer)
	if !ok {
		return nil, utils.Errf(utils.KindUnsupported, op, "model does not expose linear coefficients")
	}

	contrib, base := le.LinearContributions(vec)
	weights := le.Coefficients()

	logit := base
	rows := make([]Contribution, len(contrib))
	for i, c := range contrib {
		rows[i] = Contribution{
			Feature:      names[i],
			Value:        vec[i],
			Weight:       weights[i],
			Contribution: c,
		}
		logit += c
	}

	return &Explanation{
		Method:        MethodLinearProxy,
		BaseValue:     base,
		Score:         1.0 / (1.0 + math.Exp(-logit)),
		Contributions: rows,
	}, nil
}
