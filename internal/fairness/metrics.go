// Package fairness computes group-wise selection-rate and error-rate gaps.
// All metrics are closed-form point estimates; there is no significance
// testing or multiple-comparison correction.
package fairness

import (
	"sort"

	"github.com/inclusivefin/altcredit/internal/utils"
)

// Rates holds the confusion-matrix-derived rates for one group.
type Rates struct {
	TPR float64 `json:"tpr"`
	FPR float64 `json:"fpr"`
}

func safeRate(numer, denom int) float64 {
	if denom == 0 {
		return 0.0
	}
	return float64(numer) / float64(denom)
}

// SelectionRate returns the fraction of positive decisions, 0.0 for empty
// input. Invariant to input order.
func SelectionRate(decisions []bool) float64 {
	pos := 0
	for _, d := range decisions {
		if d {
			pos++
		}
	}
	return safeRate(pos, len(decisions))
}

// DisparateImpactRatio returns selectionRate(a) / selectionRate(b), or 0.0
// when the denominator group selects nobody. The zero fallback (rather than
// an error) is a deliberate simplification.
func DisparateImpactRatio(a, b []bool) float64 {
	rb := SelectionRate(b)
	if rb == 0 {
		return 0.0
	}
	return SelectionRate(a) / rb
}

// GroupRates partitions parallel label arrays by group and computes TPR/FPR
// per partition, 0.0 wherever a denominator is zero.
func GroupRates(yTrue, yPred []int, group []string) (map[string]Rates, error) {
	const op = "fairness.GroupRates"
	if len(yTrue) != len(yPred) || len(yTrue) != len(group) {
		return nil, utils.Errf(utils.KindLengthMismatch, op,
			"parallel arrays differ in length: y_true=%d y_pred=%d group=%d", len(yTrue), len(yPred), len(group))
	}

	type counts struct{ tp, tn, fp, fn int }
	byGroup := make(map[string]*counts)
	for i := range yTrue {
		c, ok := byGroup[group[i]]
		if !ok {
			c = &counts{}
			byGroup[group[i]] = c
		}
		switch {
		case yTrue[i] == 1 && yPred[i] == 1:
			c.tp++
		case yTrue[i] == 1:
			c.fn++
		case yPred[i] == 1:
			c.fp++
		default:
			c.tn++
		}
	}

	out := make(map[string]Rates, len(byGroup))
	for g, c := range byGroup {
		out[g] = Rates{
			TPR: safeRate(c.tp, c.tp+c.fn),
			FPR: safeRate(c.fp, c.fp+c.tn),
		}
	}
	return out, nil
}

// SelectionRatesByGroup returns the per-group positive-decision rate for
// parallel prediction/group arrays.
func SelectionRatesByGroup(yPred []int, group []string) (map[string]float64, error) {
	const op = "fairness.SelectionRatesByGroup"
	if len(yPred) != len(group) {
		return nil, utils.Errf(utils.KindLengthMismatch, op,
			"parallel arrays differ in length: y_pred=%d group=%d", len(yPred), len(group))
	}

	total := make(map[string]int)
	pos := make(map[string]int)
	for i, g := range group {
		total[g]++
		if yPred[i] == 1 {
			pos[g]++
		}
	}
	out := make(map[string]float64, len(total))
	for g, n := range total {
		out[g] = safeRate(pos[g], n)
	}
	return out, nil
}

// maxMinGap returns max(values) - min(values), 0.0 for an empty mapping.
func maxMinGap(values map[string]float64) float64 {
	first := true
	var lo, hi float64
	for _, v := range values {
		if first {
			lo, hi = v, v
			first = false
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if first {
		return 0.0
	}
	return hi - lo
}

// DemographicParityDifference is the max-minus-min gap across per-group
// selection rates.
func DemographicParityDifference(selectionRates map[string]float64) float64 {
	return maxMinGap(selectionRates)
}

// EqualOpportunityDifference is the max-minus-min gap across per-group TPR.
func EqualOpportunityDifference(rates map[string]Rates) float64 {
	tpr := make(map[string]float64, len(rates))
	for g, r := range rates {
		tpr[g] = r.TPR
	}
	return maxMinGap(tpr)
}

// Groups returns the sorted distinct group labels.
func Groups(group []string) []string {
	seen := make(map[string]struct{}, len(group))
	var out []string
	for _, g := range group {
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}
