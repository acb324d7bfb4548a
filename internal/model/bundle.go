package model

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/inclusivefin/altcredit/internal/utils"
)

const modelTypeLogReg = "logistic_regression"

// Thresholds are the static decision cut-offs shipped with a bundle.
// Review of 0 means the bundle uses a binary approve/deny policy.
type Thresholds struct {
	Approve float64 `json:"approve"`
	Review  float64 `json:"review,omitempty"`
}

// Bundle is the serialized classifier plus everything needed for
// deterministic, auditable inference. Never mutated after load; retraining
// produces a new bundle and version.
type Bundle struct {
	Name         string             `json:"name"`
	Version      string             `json:"version"`
	TrainedAt    time.Time          `json:"trained_at"`
	FeatureOrder []string           `json:"feature_order"`
	SchemaHash   string             `json:"feature_schema_hash"`
	Thresholds   Thresholds         `json:"thresholds"`
	ModelType    string             `json:"model_type"`
	Model        *LogisticModel     `json:"model"`
	Metrics      map[string]float64 `json:"metrics,omitempty"`
	Extra        map[string]any     `json:"extra,omitempty"`
}

// Validate checks the bundle shape: a known model type whose coefficient
// count matches the feature order.
func (b *Bundle) Validate() error {
	const op = "model.Bundle.Validate"
	if b.ModelType != modelTypeLogReg {
		return utils.Errf(utils.KindTypeMismatch, op, "unexpected model type %q", b.ModelType)
	}
	if b.Model == nil {
		return utils.Errf(utils.KindTypeMismatch, op, "bundle has no model payload")
	}
	if len(b.FeatureOrder) == 0 {
		return utils.Errf(utils.KindTypeMismatch, op, "bundle has no feature order")
	}
	if err := b.Model.check(len(b.FeatureOrder)); err != nil {
		return utils.E(utils.KindTypeMismatch, op, "model shape", err)
	}
	return nil
}

// SaveBundle writes the bundle as indented JSON, creating parent directories.
func SaveBundle(path string, b *Bundle) error {
	const op = "model.SaveBundle"
	if err := b.Validate(); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return utils.E(utils.KindUnknown, op, "create artifact dir", err)
		}
	}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return utils.E(utils.KindUnknown, op, "encode bundle", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return utils.E(utils.KindUnknown, op, "write artifact", err)
	}
	return nil
}

// LoadBundle reads and shape-checks a bundle artifact. A missing file is a
// NotFound error; a decodable file of the wrong shape is a TypeMismatch.
func LoadBundle(path string) (*Bundle, error) {
	const op = "model.LoadBundle"
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, utils.E(utils.KindNotFound, op, "model artifact "+path, err)
		}
		return nil, utils.E(utils.KindUnknown, op, "read artifact", err)
	}
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, utils.E(utils.KindTypeMismatch, op, "decode artifact "+path, err)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}
