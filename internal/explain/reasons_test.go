package explain

import (
	"math"
	"testing"

	"github.com/inclusivefin/altcredit/internal/model"
	"github.com/inclusivefin/altcredit/internal/utils"
)

// opaqueModel scores but exposes no coefficients.
type opaqueModel struct{}

func (opaqueModel) PredictProba([]float64) float64 { return 0.5 }

func linearFixture() (*model.LogisticModel, []float64, []string) {
	m := &model.LogisticModel{
		Coef:      []float64{0.8, -1.5, 0.1},
		Intercept: 0.25,
	}
	vec := []float64{1.0, 1.0, 2.0}
	names := []string{"rent_rate", "volatility", "balance"}
	return m, vec, names
}

func TestCoefStrategyRanksByMagnitude(t *testing.T) {
	m, vec, names := linearFixture()

	reasons := CoefStrategy{}.Reasons(nil, vec, names, m, 2)
	if len(reasons) != 2 {
		t.Fatalf("expected topK=2 reasons, got %d", len(reasons))
	}
	// |-1.5| > |0.8| > |0.2|
	if reasons[0].Code != "RC_VOLATILITY" || reasons[1].Code != "RC_RENT_RATE" {
		t.Fatalf("unexpected ranking: %v", reasons)
	}
	if reasons[0].Direction != DirectionDecreases {
		t.Fatalf("negative contribution should decrease, got %q", reasons[0].Direction)
	}
	if reasons[1].Direction != DirectionIncreases {
		t.Fatalf("positive contribution should increase, got %q", reasons[1].Direction)
	}
}

func TestCoefStrategyUnavailable(t *testing.T) {
	reasons := CoefStrategy{}.Reasons(nil, []float64{1}, []string{"a"}, opaqueModel{}, 4)
	if len(reasons) != 1 || reasons[0].Code != CodeUnavailable {
		t.Fatalf("expected single UNAVAILABLE code, got %v", reasons)
	}
}

func TestRuleStrategyFlagsWorseThanReference(t *testing.T) {
	feats := map[string]float64{
		"rent_on_time_rate_12m":    0.80, // 0.12 below reference
		"utility_on_time_rate_12m": 0.95, // fine
		"cashflow_volatility_6m":   0.40, // 0.15 above reference
		"avg_monthly_income_6m":    3500,
		"avg_daily_balance_6m":     700,
		"nsf_events_12m":           2,
		"overdraft_events_12m":     0,
	}

	reasons := RuleStrategy{}.Reasons(feats, nil, nil, nil, 4)
	if len(reasons) != 3 {
		t.Fatalf("expected 3 triggered codes, got %v", reasons)
	}
	// Severities: nsf 2 > volatility 0.15 > rent 0.12.
	if reasons[0].Code != "RC_NSF_EVENTS" {
		t.Fatalf("expected NSF first, got %v", reasons[0].Code)
	}
	if reasons[1].Code != "RC_HIGH_CASHFLOW_VOL" || reasons[2].Code != "RC_LOW_RENT_ON_TIME" {
		t.Fatalf("unexpected ordering: %v", reasons)
	}
	for _, r := range reasons {
		if r.Description == "" {
			t.Fatalf("rule reasons carry descriptions: %v", r)
		}
	}
}

func TestRuleStrategyMissingFeatureDefaults(t *testing.T) {
	reasons := RuleStrategy{}.Reasons(map[string]float64{}, nil, nil, nil, DefaultTopK)
	if len(reasons) != 2 {
		t.Fatalf("expected 2 codes from an empty map, got %v", reasons)
	}
	// Severities: income 3000 > balance 500.
	if reasons[0].Code != "RC_LOW_INCOME" || reasons[1].Code != "RC_LOW_BALANCE" {
		t.Fatalf("missing capacity evidence must flag: %v", reasons)
	}

	feats := map[string]float64{
		"avg_monthly_income_6m": 4000,
		"avg_daily_balance_6m":  900,
	}
	if reasons := (RuleStrategy{}).Reasons(feats, nil, nil, nil, DefaultTopK); len(reasons) != 0 {
		t.Fatalf("absent payment history must read as clean, got %v", reasons)
	}
}

func TestRuleStrategyTopKTruncation(t *testing.T) {
	feats := map[string]float64{
		"rent_on_time_rate_12m":    0.5,
		"utility_on_time_rate_12m": 0.5,
		"cashflow_volatility_6m":   0.9,
		"avg_monthly_income_6m":    1000,
		"avg_daily_balance_6m":     50,
		"nsf_events_12m":           4,
		"overdraft_events_12m":     3,
	}
	reasons := RuleStrategy{}.Reasons(feats, nil, nil, nil, 4)
	if len(reasons) != 4 {
		t.Fatalf("expected truncation to 4, got %d", len(reasons))
	}
}

func TestLinearExplanation(t *testing.T) {
	m, vec, names := linearFixture()

	expl, err := Linear(m, vec, names)
	if err != nil {
		t.Fatalf("linear: %v", err)
	}
	if expl.Method != MethodLinearProxy {
		t.Fatalf("unexpected method %q", expl.Method)
	}
	if len(expl.Contributions) != 3 {
		t.Fatalf("expected one row per feature, got %d", len(expl.Contributions))
	}

	logit := expl.BaseValue
	for _, row := range expl.Contributions {
		logit += row.Contribution
	}
	want := 1.0 / (1.0 + math.Exp(-logit))
	if math.Abs(expl.Score-want) > 1e-12 {
		t.Fatalf("score does not match reconstructed logit: %v vs %v", expl.Score, want)
	}
}

func TestLinearUnsupported(t *testing.T) {
	_, err := Linear(opaqueModel{}, []float64{1}, []string{"a"})
	if utils.KindOf(err) != utils.KindUnsupported {
		t.Fatalf("expected unsupported kind, got %v", err)
	}
}

func TestNewStrategy(t *testing.T) {
	if _, ok := NewStrategy("rules").(RuleStrategy); !ok {
		t.Fatalf("expected rule strategy")
	}
	if _, ok := NewStrategy("coefficients").(CoefStrategy); !ok {
		t.Fatalf("expected coefficient strategy")
	}
	if _, ok := NewStrategy("").(CoefStrategy); !ok {
		t.Fatalf("unknown names fall back to coefficients")
	}
}
