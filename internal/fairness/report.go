package fairness

import "github.com/inclusivefin/altcredit/internal/utils"

// Report summarizes group fairness for one sensitive attribute. Computed
// fresh per request from supplied arrays; never persisted as its own entity.
type Report struct {
	Attribute                   string             `json:"attribute,omitempty"`
	Groups                      []string           `json:"groups"`
	SelectionRateByGroup        map[string]float64 `json:"selection_rate_by_group"`
	DisparateImpactPairs        map[string]float64 `json:"disparate_impact_pairs,omitempty"`
	DemographicParityDifference float64            `json:"demographic_parity_difference"`
	ErrorRatesByGroup           map[string]Rates   `json:"error_rates_by_group,omitempty"`
	EqualOpportunityDifference  float64            `json:"equal_opportunity_difference"`
}

// Compute builds a Report from parallel decision/group arrays and, when
// outcomes are supplied, adds per-group error rates. Disparate impact pairs
// are reported relative to the group with the highest selection rate.
func Compute(decisions []bool, group []string, attribute string, outcomes []int) (*Report, error) {
	const op = "fairness.Compute"
	if len(decisions) != len(group) {
		return nil, utils.Errf(utils.KindLengthMismatch, op,
			"decisions=%d group=%d", len(decisions), len(group))
	}

	yPred := make([]int, len(decisions))
	for i, d := range decisions {
		if d {
			yPred[i] = 1
		}
	}

	sel, err := SelectionRatesByGroup(yPred, group)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Attribute:                   attribute,
		Groups:                      Groups(group),
		SelectionRateByGroup:        sel,
		DemographicParityDifference: DemographicParityDifference(sel),
	}

	// Pairwise DI against the max-selection reference group.
	ref := ""
	for _, g := range report.Groups {
		if ref == "" || sel[g] > sel[ref] {
			ref = g
		}
	}
	if ref != "" {
		refDecisions := subset(decisions, group, ref)
		pairs := make(map[string]float64, len(report.Groups))
		for _, g := range report.Groups {
			pairs[g+"_vs_"+ref] = DisparateImpactRatio(subset(decisions, group, g), refDecisions)
		}
		report.DisparateImpactPairs = pairs
	}

	if outcomes != nil {
		if len(outcomes) != len(decisions) {
			return nil, utils.Errf(utils.KindLengthMismatch, op,
				"outcomes=%d decisions=%d", len(outcomes), len(decisions))
		}
		rates, err := GroupRates(outcomes, yPred, group)
		if err != nil {
			return nil, err
		}
		report.ErrorRatesByGroup = rates
		report.EqualOpportunityDifference = EqualOpportunityDifference(rates)
	}

	return report, nil
}

func subset(decisions []bool, group []string, g string) []bool {
	var out []bool
	for i, d := range decisions {
		if group[i] == g {
			out = append(out, d)
		}
	}
	return out
}
