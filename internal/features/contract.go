package features

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/inclusivefin/altcredit/internal/utils"
)

// FieldKind drives the sanitization policy for a contract column.
type FieldKind int

const (
	// KindAmount is an unconstrained monetary or duration quantity.
	KindAmount FieldKind = iota
	// KindRate is a ratio clamped to [0, 1] by Sanitize.
	KindRate
	// KindCount is a non-negative event count clamped to >= 0 by Sanitize.
	KindCount
)

// Field declares one contract column: name, kind, optional bounds, and
// whether callers must supply it.
type Field struct {
	Name     string
	Kind     FieldKind
	Min      *float64
	Max      *float64
	Required bool
}

// Contract is an ordered, closed set of accepted feature columns. Built once
// at process start and immutable thereafter; the accepted key set is closed,
// so unknown keys are rejected rather than ignored.
type Contract struct {
	fields []Field
	index  map[string]int
	// Strict rejects out-of-bounds values in Validate. Non-strict contracts
	// rely on Sanitize having clamped rates and counts beforehand.
	Strict bool
}

// New builds a contract from the declared fields, rejecting duplicates.
func New(strict bool, fields ...Field) (*Contract, error) {
	index := make(map[string]int, len(fields))
	for i, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("contract field %d has empty name", i)
		}
		if _, dup := index[f.Name]; dup {
			return nil, fmt.Errorf("duplicate contract field %q", f.Name)
		}
		index[f.Name] = i
	}
	return &Contract{fields: fields, index: index, Strict: strict}, nil
}

func bound(v float64) *float64 { return &v }

// Default returns the alternative-data contract served by this platform:
// seven required payment/cashflow signals plus two optional tenure fields.
func Default() *Contract {
	c, err := New(true,
		Field{Name: "rent_on_time_rate_12m", Kind: KindRate, Min: bound(0), Max: bound(1), Required: true},
		Field{Name: "utility_on_time_rate_12m", Kind: KindRate, Min: bound(0), Max: bound(1), Required: true},
		Field{Name: "avg_monthly_income_6m", Kind: KindAmount, Min: bound(0), Required: true},
		Field{Name: "cashflow_volatility_6m", Kind: KindAmount, Min: bound(0), Required: true},
		Field{Name: "avg_daily_balance_6m", Kind: KindAmount, Required: true},
		Field{Name: "nsf_events_12m", Kind: KindCount, Min: bound(0), Required: true},
		Field{Name: "overdraft_events_12m", Kind: KindCount, Min: bound(0), Required: true},
		Field{Name: "months_at_current_job", Kind: KindCount, Min: bound(0)},
		Field{Name: "months_at_current_address", Kind: KindCount, Min: bound(0)},
	)
	if err != nil {
		panic(err) // static definition, cannot fail
	}
	return c
}

// Columns returns the declared column names in contract order.
func (c *Contract) Columns() []string {
	cols := make([]string, len(c.fields))
	for i, f := range c.fields {
		cols[i] = f.Name
	}
	return cols
}

// RequiredColumns returns the names of the required fields in contract order.
func (c *Contract) RequiredColumns() []string {
	var cols []string
	for _, f := range c.fields {
		if f.Required {
			cols = append(cols, f.Name)
		}
	}
	return cols
}

// Len returns the number of declared columns.
func (c *Contract) Len() int { return len(c.fields) }

// Validate checks a feature mapping against the contract: every required key
// present, no keys outside the declared set, and (for strict contracts)
// every value within its declared bounds.
func (c *Contract) Validate(feats map[string]float64) error {
	const op = "features.Validate"

	var missing []string
	for _, f := range c.fields {
		if !f.Required {
			continue
		}
		if _, ok := feats[f.Name]; !ok {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return utils.Errf(utils.KindSchema, op, "missing required features: %s", strings.Join(missing, ", "))
	}

	var unknown []string
	for k := range feats {
		if _, ok := c.index[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return utils.Errf(utils.KindSchema, op, "unknown features not in contract: %s", strings.Join(unknown, ", "))
	}

	if !c.Strict {
		return nil
	}
	for k, v := range feats {
		f := c.fields[c.index[k]]
		if f.Min != nil && v < *f.Min {
			return utils.Errf(utils.KindSchema, op, "feature %s below min %g: %g", k, *f.Min, v)
		}
		if f.Max != nil && v > *f.Max {
			return utils.Errf(utils.KindSchema, op, "feature %s above max %g: %g", k, *f.Max, v)
		}
	}
	return nil
}

// Vectorize validates and then emits values in declared column order.
// Missing optional fields default to 0.0. The returned vector length always
// equals Len().
func (c *Contract) Vectorize(feats map[string]float64) ([]float64, error) {
	if err := c.Validate(feats); err != nil {
		return nil, err
	}
	vec := make([]float64, len(c.fields))
	for i, f := range c.fields {
		vec[i] = feats[f.Name]
	}
	return vec, nil
}

// SchemaHash returns a short deterministic hash over the sorted column names,
// used to detect feature-schema drift between training and serving.
func (c *Contract) SchemaHash() string {
	cols := c.Columns()
	sort.Strings(cols)
	raw, _ := json.Marshal(cols)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])[:16]
}

// Sanitize returns a copy of the mapping with rate fields clamped to [0, 1]
// and count fields clamped to >= 0. The correction is silent and lossy; it
// exists so marginally out-of-range upstream data still scores, and is not a
// substitute for validation.
func (c *Contract) Sanitize(feats map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(feats))
	for k, v := range feats {
		if i, ok := c.index[k]; ok {
			switch c.fields[i].Kind {
			case KindRate:
				v = min(1.0, max(0.0, v))
			case KindCount:
				v = max(0.0, v)
			}
		}
		out[k] = v
	}
	return out
}
