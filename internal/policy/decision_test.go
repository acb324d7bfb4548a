package policy

import "testing"

func TestBinaryDecide(t *testing.T) {
	p := Binary{Approve: 0.6}
	cases := []struct {
		score float64
		want  Decision
	}{
		{0.59, Deny},
		{0.60, Approve},
		{0.99, Approve},
		{0.0, Deny},
	}
	for _, tc := range cases {
		if got := p.Decide(tc.score); got != tc.want {
			t.Fatalf("Decide(%v) = %v, want %v", tc.score, got, tc.want)
		}
	}
}

func TestThreeWayBands(t *testing.T) {
	p := ThreeWay{Approve: 0.72, Review: 0.58}
	cases := []struct {
		score float64
		want  Decision
	}{
		{0.72, Approve},
		{0.71, Review},
		{0.58, Review},
		{0.57, Deny},
	}
	for _, tc := range cases {
		if got := p.Decide(tc.score); got != tc.want {
			t.Fatalf("Decide(%v) = %v, want %v", tc.score, got, tc.want)
		}
	}
}

// Increasing score must never move the outcome toward deny.
func TestDecideMonotonic(t *testing.T) {
	rank := map[Decision]int{Deny: 0, Review: 1, Approve: 2}
	for _, p := range []Policy{Binary{Approve: 0.6}, ThreeWay{Approve: 0.72, Review: 0.58}} {
		prev := -1
		for s := 0.0; s <= 1.0; s += 0.01 {
			cur := rank[p.Decide(s)]
			if cur < prev {
				t.Fatalf("%T not monotonic at score %v", p, s)
			}
			prev = cur
		}
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(0.7, 0.8); err == nil {
		t.Fatalf("expected error for review above approve")
	}
	if _, err := New(0, 0); err == nil {
		t.Fatalf("expected error for zero approve threshold")
	}

	p, err := New(0.7, 0)
	if err != nil {
		t.Fatalf("binary policy: %v", err)
	}
	if _, ok := p.(Binary); !ok {
		t.Fatalf("expected Binary for zero review threshold, got %T", p)
	}

	p, err = New(0.7, 0.55)
	if err != nil {
		t.Fatalf("three-way policy: %v", err)
	}
	if _, ok := p.(ThreeWay); !ok {
		t.Fatalf("expected ThreeWay, got %T", p)
	}
}
