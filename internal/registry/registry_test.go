package registry

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inclusivefin/altcredit/internal/model"
	"github.com/inclusivefin/altcredit/internal/utils"
)

func bundleFixture(version string) *model.Bundle {
	return &model.Bundle{
		Name:         "logreg_altdata_baseline",
		Version:      version,
		TrainedAt:    time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC),
		FeatureOrder: []string{"a", "b"},
		SchemaHash:   "feedfacecafebeef",
		Thresholds:   model.Thresholds{Approve: 0.70, Review: 0.55},
		ModelType:    "logistic_regression",
		Model: &model.LogisticModel{
			Coef:      []float64{0.4, -0.2},
			Intercept: 0.1,
		},
		Metrics: map[string]float64{"auc": 0.83},
	}
}

func TestAddWritesPackage(t *testing.T) {
	reg := New(t.TempDir())
	entry, err := reg.Add(bundleFixture("demo-000000000001"))
	require.NoError(t, err)
	assert.Equal(t, "demo-000000000001", entry.Version)

	for _, name := range []string{"model.json", "feature_list.json", "metadata.json", "model_card.md"} {
		_, err := os.Stat(filepath.Join(entry.Path, name))
		assert.NoError(t, err, name)
	}

	idx, err := reg.Load()
	require.NoError(t, err)
	assert.Equal(t, "demo-000000000001", idx.Current)
	require.Len(t, idx.Models, 1)
}

func TestAddSecondVersionBecomesCurrent(t *testing.T) {
	reg := New(t.TempDir())
	_, err := reg.Add(bundleFixture("v1"))
	require.NoError(t, err)
	_, err = reg.Add(bundleFixture("v2"))
	require.NoError(t, err)

	idx, err := reg.Load()
	require.NoError(t, err)
	assert.Equal(t, "v2", idx.Current)
	assert.Len(t, idx.Models, 2)

	entry, err := reg.CurrentEntry()
	require.NoError(t, err)
	assert.Equal(t, "v2", entry.Version)
}

func TestReAddOverwritesInPlace(t *testing.T) {
	reg := New(t.TempDir())
	_, err := reg.Add(bundleFixture("v1"))
	require.NoError(t, err)
	_, err = reg.Add(bundleFixture("v1"))
	require.NoError(t, err)

	idx, err := reg.Load()
	require.NoError(t, err)
	assert.Len(t, idx.Models, 1, "re-registering must not duplicate the entry")
}

func TestLoadBundleRoundTrip(t *testing.T) {
	reg := New(t.TempDir())
	want := bundleFixture("v1")
	_, err := reg.Add(want)
	require.NoError(t, err)

	got, err := reg.LoadBundle("v1", false)
	require.NoError(t, err)
	assert.Equal(t, want.FeatureOrder, got.FeatureOrder)
	assert.Equal(t, want.Model.Coef, got.Model.Coef)
	assert.Equal(t, want.Thresholds, got.Thresholds)
}

func TestApprovalGate(t *testing.T) {
	reg := New(t.TempDir())
	_, err := reg.Add(bundleFixture("v1"))
	require.NoError(t, err)

	_, err = reg.LoadBundle("v1", true)
	require.Error(t, err)
	assert.Equal(t, utils.KindPermission, utils.KindOf(err))
	assert.False(t, reg.Approved("v1"))

	require.NoError(t, reg.Approve("v1", "risk-team"))
	assert.True(t, reg.Approved("v1"))

	_, err = reg.LoadBundle("v1", true)
	assert.NoError(t, err)
}

func TestUnknownVersionIsNotFound(t *testing.T) {
	reg := New(t.TempDir())
	_, err := reg.Entry("nope")
	require.Error(t, err)
	assert.Equal(t, utils.KindNotFound, utils.KindOf(err))

	err = reg.Approve("nope", "anyone")
	assert.Equal(t, utils.KindNotFound, utils.KindOf(err))
}

func TestEmptyRegistry(t *testing.T) {
	reg := New(filepath.Join(t.TempDir(), "models"))
	idx, err := reg.Load()
	require.NoError(t, err)
	assert.Empty(t, idx.Current)

	_, err = reg.CurrentEntry()
	assert.Equal(t, utils.KindNotFound, utils.KindOf(err))
}
