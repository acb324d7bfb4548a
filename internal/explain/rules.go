package explain

import (
	"sort"

	"github.com/inclusivefin/altcredit/internal/model"
)

// rule compares one named feature against a fixed reference value and emits
// a code when the observation is worse than the reference. Severity is the
// magnitude of the deviation.
type rule struct {
	feature     string
	code        string
	description string
	// severity returns > 0 when the feature value warrants the code.
	severity func(v float64) float64
}

var decisionRules = []rule{
	{
		feature:     "rent_on_time_rate_12m",
		code:        "RC_LOW_RENT_ON_TIME",
		description: "Recent rent payment history indicates lower on-time payment consistency.",
		severity:    func(v float64) float64 { return 0.92 - v },
	},
	{
		feature:     "utility_on_time_rate_12m",
		code:        "RC_LOW_UTIL_ON_TIME",
		description: "Recent utility payment history indicates lower on-time payment consistency.",
		severity:    func(v float64) float64 { return 0.92 - v },
	},
	{
		feature:     "cashflow_volatility_6m",
		code:        "RC_HIGH_CASHFLOW_VOL",
		description: "Cash-flow patterns show higher volatility, increasing repayment uncertainty.",
		severity:    func(v float64) float64 { return v - 0.25 },
	},
	{
		feature:     "avg_monthly_income_6m",
		code:        "RC_LOW_INCOME",
		description: "Verified income indicators suggest limited repayment capacity at this time.",
		severity:    func(v float64) float64 { return 3000 - v },
	},
	{
		feature:     "avg_daily_balance_6m",
		code:        "RC_LOW_BALANCE",
		description: "Average account balance indicates limited buffer for repayment shocks.",
		severity:    func(v float64) float64 { return 500 - v },
	},
	{
		feature:     "nsf_events_12m",
		code:        "RC_NSF_EVENTS",
		description: "Non-sufficient funds events were observed in recent history.",
		severity:    func(v float64) float64 { return v },
	},
	{
		feature:     "overdraft_events_12m",
		code:        "RC_OVERDRAFT_EVENTS",
		description: "Overdraft events were observed in recent history.",
		severity:    func(v float64) float64 { return v },
	},
}

// RuleStrategy emits codes for features worse than hard-coded reference
// values, ranked by deviation magnitude. It ignores the model entirely.
type RuleStrategy struct{}

// Reasons implements Strategy.
func (RuleStrategy) Reasons(feats map[string]float64, _ []float64, _ []string, _ model.CreditModel, topK int) []Reason {
	if topK <= 0 {
		topK = DefaultTopK
	}

	// Absent payment-history rates read as clean; absent income and
	// balance read as zero, so missing capacity evidence still flags.
	value := func(name string, fallback float64) float64 {
		if v, ok := feats[name]; ok {
			return v
		}
		return fallback
	}
	defaults := map[string]float64{
		"rent_on_time_rate_12m":    1.0,
		"utility_on_time_rate_12m": 1.0,
		"cashflow_volatility_6m":   0.0,
		"avg_monthly_income_6m":    0.0,
		"avg_daily_balance_6m":     0.0,
		"nsf_events_12m":           0.0,
		"overdraft_events_12m":     0.0,
	}

	reasons := make([]Reason, 0, len(decisionRules))
	for _, r := range decisionRules {
		sev := r.severity(value(r.feature, defaults[r.feature]))
		if sev <= 0 {
			continue
		}
		reasons = append(reasons, Reason{
			Code:        r.code,
			Feature:     r.feature,
			Severity:    sev,
			Description: r.description,
		})
	}

	sort.SliceStable(reasons, func(i, j int) bool { return reasons[i].Severity > reasons[j].Severity })
	if len(reasons) > topK {
		reasons = reasons[:topK]
	}
	return reasons
}
