package model

import (
	"math"
	"math/rand"
)

// Dataset holds a training sample: contract-ordered feature rows, binary
// outcome labels (1 = good), and a synthetic group label per row used for
// fairness reporting. Not representative of any real population.
type Dataset struct {
	X     [][]float64
	Y     []int
	Group []string
}

// SyntheticConfig controls the synthetic generator.
type SyntheticConfig struct {
	N    int
	Seed int64
}

// MakeSynthetic generates a deterministic demo dataset in the default
// contract's column order. The same seed and size always produce the same
// rows, which keeps trained versions reproducible.
func MakeSynthetic(cfg SyntheticConfig) Dataset {
	if cfg.N <= 0 {
		cfg.N = 5000
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	ds := Dataset{
		X:     make([][]float64, 0, cfg.N),
		Y:     make([]int, 0, cfg.N),
		Group: make([]string, 0, cfg.N),
	}

	for i := 0; i < cfg.N; i++ {
		group := "A"
		if rng.Float64() >= 0.6 {
			group = "B"
		}

		rent := betaSample(rng, 12, 2)
		util := betaSample(rng, 10, 3)
		income := math.Exp(rng.NormFloat64()*0.45 + 8.2)
		vol := gammaSample(rng, 2.0) * 0.15
		bal := rng.NormFloat64()*800 + 1200
		nsf := float64(poissonSample(rng, 0.3))
		overdraft := float64(poissonSample(rng, 0.4))
		monthsJob := float64(rng.Intn(120))
		monthsAddr := float64(rng.Intn(180))

		// Inject a group shift for the fairness demo.
		if group == "B" {
			income *= 0.92
			overdraft += float64(poissonSample(rng, 0.15))
		}

		z := 2.2*(rent-0.8) +
			1.6*(util-0.75) +
			0.00025*(income-4500) -
			1.2*vol +
			0.00035*(bal-800) -
			0.6*nsf -
			0.45*overdraft +
			0.006*monthsJob +
			0.003*monthsAddr +
			rng.NormFloat64()*0.6

		y := 0
		if sigmoid(z) > 0.5 {
			y = 1
		}

		ds.X = append(ds.X, []float64{rent, util, income, vol, bal, nsf, overdraft, monthsJob, monthsAddr})
		ds.Y = append(ds.Y, y)
		ds.Group = append(ds.Group, group)
	}

	return ds
}

// gammaSample draws from Gamma(shape, 1) using Marsaglia-Tsang squeeze.
func gammaSample(rng *rand.Rand, shape float64) float64 {
	if shape < 1 {
		// Boost: Gamma(a) = Gamma(a+1) * U^(1/a)
		return gammaSample(rng, shape+1) * math.Pow(rng.Float64(), 1/shape)
	}
	d := shape - 1.0/3.0
	c := 1.0 / math.Sqrt(9*d)
	for {
		x := rng.NormFloat64()
		v := 1 + c*x
		if v <= 0 {
			continue
		}
		v = v * v * v
		u := rng.Float64()
		if u < 1-0.0331*x*x*x*x {
			return d * v
		}
		if math.Log(u) < 0.5*x*x+d*(1-v+math.Log(v)) {
			return d * v
		}
	}
}

// betaSample draws from Beta(a, b) via two gamma draws.
func betaSample(rng *rand.Rand, a, b float64) float64 {
	ga := gammaSample(rng, a)
	gb := gammaSample(rng, b)
	return ga / (ga + gb)
}

// poissonSample draws from Poisson(lambda) using Knuth's method. Fine for the
// small rates used here.
func poissonSample(rng *rand.Rand, lambda float64) int {
	limit := math.Exp(-lambda)
	k := 0
	p := 1.0
	for {
		p *= rng.Float64()
		if p <= limit {
			return k
		}
		k++
	}
}
