package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"
)

// TrainConfig controls demo-model training. Zero values fall back to the
// defaults used by the baseline training job.
type TrainConfig struct {
	Name         string
	Version      string
	FeatureOrder []string
	SchemaHash   string
	Thresholds   Thresholds
	N            int
	Seed         int64
	Epochs       int
	LearningRate float64
	TestFraction float64
}

// EvalResult carries holdout metrics plus the raw holdout arrays so callers
// can run a fairness report on the same split.
type EvalResult struct {
	Accuracy float64
	AUC      float64
	YTrue    []int
	YPred    []int
	Scores   []float64
	Groups   []string
}

func (c *TrainConfig) applyDefaults() {
	if c.Name == "" {
		c.Name = "logreg_altdata_baseline"
	}
	if c.N <= 0 {
		c.N = 5000
	}
	if c.Epochs <= 0 {
		c.Epochs = 400
	}
	if c.LearningRate <= 0 {
		c.LearningRate = 0.1
	}
	if c.TestFraction <= 0 || c.TestFraction >= 1 {
		c.TestFraction = 0.2
	}
	if c.Thresholds.Approve <= 0 {
		c.Thresholds = Thresholds{Approve: 0.70, Review: 0.55}
	}
	if c.Version == "" {
		c.Version = versionFromData(c.Seed, c.N)
	}
}

// versionFromData derives a reproducible demo version from the synthetic
// data parameters.
func versionFromData(seed int64, n int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("synthetic:%d:%d", seed, n)))
	return "demo-" + hex.EncodeToString(sum[:])[:12]
}

// Train fits a standardized logistic regression on synthetic data with batch
// gradient descent and evaluates it on a holdout split. Deterministic for a
// fixed config.
func Train(cfg TrainConfig) (*Bundle, EvalResult, error) {
	cfg.applyDefaults()

	ds := MakeSynthetic(SyntheticConfig{N: cfg.N, Seed: cfg.Seed})
	nFeatures := len(ds.X[0])
	if len(cfg.FeatureOrder) != 0 && len(cfg.FeatureOrder) != nFeatures {
		return nil, EvalResult{}, fmt.Errorf("feature order has %d names for %d columns", len(cfg.FeatureOrder), nFeatures)
	}

	// Deterministic shuffle + split.
	rng := rand.New(rand.NewSource(cfg.Seed))
	perm := rng.Perm(len(ds.X))
	nTest := int(float64(len(ds.X)) * cfg.TestFraction)
	testIdx, trainIdx := perm[:nTest], perm[nTest:]

	scaler := fitStandardizer(ds.X, trainIdx)

	coef := make([]float64, nFeatures)
	intercept := 0.0

	scaled := make([][]float64, len(ds.X))
	for _, i := range trainIdx {
		scaled[i] = scaler.Transform(ds.X[i])
	}

	m := float64(len(trainIdx))
	grad := make([]float64, nFeatures)
	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		for j := range grad {
			grad[j] = 0
		}
		gradB := 0.0
		for _, i := range trainIdx {
			z := intercept
			for j, c := range coef {
				z += c * scaled[i][j]
			}
			err := sigmoid(z) - float64(ds.Y[i])
			for j := range grad {
				grad[j] += err * scaled[i][j]
			}
			gradB += err
		}
		for j := range coef {
			coef[j] -= cfg.LearningRate * grad[j] / m
		}
		intercept -= cfg.LearningRate * gradB / m
	}

	lm := &LogisticModel{Coef: coef, Intercept: intercept, Scaler: scaler}

	eval := evaluate(lm, ds, testIdx, cfg.Thresholds.Approve)

	bundle := &Bundle{
		Name:         cfg.Name,
		Version:      cfg.Version,
		TrainedAt:    time.Now().UTC(),
		FeatureOrder: cfg.FeatureOrder,
		SchemaHash:   cfg.SchemaHash,
		Thresholds:   cfg.Thresholds,
		ModelType:    modelTypeLogReg,
		Model:        lm,
		Metrics: map[string]float64{
			"holdout_accuracy": eval.Accuracy,
			"holdout_auc":      eval.AUC,
		},
		Extra: map[string]any{
			"seed": cfg.Seed,
			"n":    cfg.N,
		},
	}
	if len(bundle.FeatureOrder) == 0 {
		bundle.FeatureOrder = make([]string, nFeatures)
		for i := range bundle.FeatureOrder {
			bundle.FeatureOrder[i] = fmt.Sprintf("f%d", i)
		}
	}

	return bundle, eval, nil
}

func fitStandardizer(x [][]float64, idx []int) *Standardizer {
	n := len(x[0])
	mean := make([]float64, n)
	scale := make([]float64, n)
	m := float64(len(idx))

	for _, i := range idx {
		for j, v := range x[i] {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= m
	}
	for _, i := range idx {
		for j, v := range x[i] {
			d := v - mean[j]
			scale[j] += d * d
		}
	}
	for j := range scale {
		scale[j] = math.Sqrt(scale[j] / m)
	}
	return &Standardizer{Mean: mean, Scale: scale}
}

func evaluate(lm *LogisticModel, ds Dataset, testIdx []int, approveAt float64) EvalResult {
	res := EvalResult{
		YTrue:  make([]int, 0, len(testIdx)),
		YPred:  make([]int, 0, len(testIdx)),
		Scores: make([]float64, 0, len(testIdx)),
		Groups: make([]string, 0, len(testIdx)),
	}

	correct := 0
	for _, i := range testIdx {
		p := lm.PredictProba(ds.X[i])
		pred := 0
		if p >= approveAt {
			pred = 1
		}
		if classify := p >= 0.5; (classify && ds.Y[i] == 1) || (!classify && ds.Y[i] == 0) {
			correct++
		}
		res.YTrue = append(res.YTrue, ds.Y[i])
		res.YPred = append(res.YPred, pred)
		res.Scores = append(res.Scores, p)
		res.Groups = append(res.Groups, ds.Group[i])
	}
	if len(testIdx) > 0 {
		res.Accuracy = float64(correct) / float64(len(testIdx))
	}
	res.AUC = rocAUC(res.YTrue, res.Scores)
	return res
}

// rocAUC computes the area under the ROC curve via the rank statistic,
// averaging ranks across score ties.
func rocAUC(yTrue []int, scores []float64) float64 {
	type pair struct {
		score float64
		label int
	}
	pairs := make([]pair, len(scores))
	for i := range scores {
		pairs[i] = pair{scores[i], yTrue[i]}
	}
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].score < pairs[j].score })

	nPos, nNeg := 0, 0
	rankSum := 0.0
	i := 0
	for i < len(pairs) {
		j := i
		for j < len(pairs) && pairs[j].score == pairs[i].score {
			j++
		}
		avgRank := float64(i+j+1) / 2.0 // 1-based average rank of the tie block
		for k := i; k < j; k++ {
			if pairs[k].label == 1 {
				rankSum += avgRank
			}
		}
		i = j
	}
	for _, p := range pairs {
		if p.label == 1 {
			nPos++
		} else {
			nNeg++
		}
	}
	if nPos == 0 || nNeg == 0 {
		return 0
	}
	return (rankSum - float64(nPos)*float64(nPos+1)/2.0) / (float64(nPos) * float64(nNeg))
}
