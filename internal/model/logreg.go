package model

import (
	"fmt"
	"math"
)

// CreditModel is the capability every servable model must provide: a positive
// class ("good outcome") probability for a contract-ordered feature vector.
type CreditModel interface {
	PredictProba(x []float64) float64
}

// LinearExplainer is the optional capability of models that can attribute a
// score to per-feature linear contributions. Models without it surface
// explanations as unsupported rather than faking them.
type LinearExplainer interface {
	// LinearContributions returns coefficient*value per feature (after any
	// standardization step) and the intercept (base value).
	LinearContributions(x []float64) ([]float64, float64)
	// Coefficients returns the raw per-feature weights.
	Coefficients() []float64
}

// Standardizer applies the (raw - mean) / scale transform fit at training
// time so serving sees the same input distribution the coefficients expect.
type Standardizer struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// Transform standardizes a raw vector. Zero scale entries pass the centered
// value through unscaled.
func (s *Standardizer) Transform(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		centered := v - s.Mean[i]
		if s.Scale[i] != 0 {
			out[i] = centered / s.Scale[i]
		} else {
			out[i] = centered
		}
	}
	return out
}

func (s *Standardizer) check(n int) error {
	if len(s.Mean) != n || len(s.Scale) != n {
		return fmt.Errorf("standardizer shape %d/%d does not match %d features", len(s.Mean), len(s.Scale), n)
	}
	return nil
}

// LogisticModel is a frozen logistic-regression classifier: coefficients,
// intercept, and an optional standardization step fit during training.
type LogisticModel struct {
	Coef      []float64     `json:"coef"`
	Intercept float64       `json:"intercept"`
	Scaler    *Standardizer `json:"scaler,omitempty"`
}

var (
	_ CreditModel     = (*LogisticModel)(nil)
	_ LinearExplainer = (*LogisticModel)(nil)
)

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

// Logit returns intercept + coef . scaled(x).
func (m *LogisticModel) Logit(x []float64) float64 {
	in := x
	if m.Scaler != nil {
		in = m.Scaler.Transform(x)
	}
	z := m.Intercept
	for i, c := range m.Coef {
		z += c * in[i]
	}
	return z
}

// PredictProba returns the positive-class probability in [0, 1].
func (m *LogisticModel) PredictProba(x []float64) float64 {
	return sigmoid(m.Logit(x))
}

// LinearContributions returns coef_i * scaled(x_i) per feature plus the
// intercept. The sum of contributions and intercept reconstructs the logit.
func (m *LogisticModel) LinearContributions(x []float64) ([]float64, float64) {
	in := x
	if m.Scaler != nil {
		in = m.Scaler.Transform(x)
	}
	contrib := make([]float64, len(m.Coef))
	for i, c := range m.Coef {
		contrib[i] = c * in[i]
	}
	return contrib, m.Intercept
}

// Coefficients returns the raw per-feature weights.
func (m *LogisticModel) Coefficients() []float64 {
	return m.Coef
}

func (m *LogisticModel) check(nFeatures int) error {
	if len(m.Coef) == 0 {
		return fmt.Errorf("model has no coefficients")
	}
	if len(m.Coef) != nFeatures {
		return fmt.Errorf("model has %d coefficients for %d features", len(m.Coef), nFeatures)
	}
	if m.Scaler != nil {
		return m.Scaler.check(nFeatures)
	}
	return nil
}
