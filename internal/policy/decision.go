// Package policy maps probability scores to categorical outcomes using
// static thresholds. Thresholds are configuration, not learned parameters.
package policy

import "fmt"

// Decision is the categorical outcome of a scoring request.
type Decision string

const (
	Approve Decision = "approve"
	Review  Decision = "review"
	Deny    Decision = "deny"
)

// Policy turns a score in [0, 1] into a Decision. Implementations are pure
// and monotonic: a higher score never moves the outcome toward deny.
type Policy interface {
	Decide(score float64) Decision
}

// Binary approves at or above a single threshold and denies below it.
type Binary struct {
	Approve float64
}

// Decide implements Policy.
func (p Binary) Decide(score float64) Decision {
	if score >= p.Approve {
		return Approve
	}
	return Deny
}

// ThreeWay adds a manual-review band below the approve threshold.
type ThreeWay struct {
	Approve float64
	Review  float64
}

// Decide implements Policy.
func (p ThreeWay) Decide(score float64) Decision {
	switch {
	case score >= p.Approve:
		return Approve
	case score >= p.Review:
		return Review
	default:
		return Deny
	}
}

// New builds a policy from thresholds. A zero review threshold yields a
// binary policy; otherwise review must sit below approve.
func New(approve, review float64) (Policy, error) {
	if approve <= 0 || approve > 1 {
		return nil, fmt.Errorf("approve threshold %g outside (0, 1]", approve)
	}
	if review == 0 {
		return Binary{Approve: approve}, nil
	}
	if review >= approve {
		return nil, fmt.Errorf("review threshold %g must be below approve %g", review, approve)
	}
	return ThreeWay{Approve: approve, Review: review}, nil
}
