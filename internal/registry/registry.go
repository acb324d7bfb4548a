// Package registry tracks model packages on disk: one versioned directory
// per bundle plus a flat JSON index naming the current version. Approval is
// an explicit marker file so a bundle cannot serve by accident.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/inclusivefin/altcredit/internal/model"
	"github.com/inclusivefin/altcredit/internal/utils"
)

const (
	bundleFile      = "model.json"
	featureListFile = "feature_list.json"
	metadataFile    = "metadata.json"
	approvedMarker  = "APPROVED"
	modelCardFile   = "model_card.md"
	indexFile       = "registry.json"
)

// Entry is one registered model version in the index.
type Entry struct {
	Name         string    `json:"name"`
	Version      string    `json:"version"`
	SchemaHash   string    `json:"feature_schema_hash"`
	RegisteredAt time.Time `json:"registered_at"`
	Path         string    `json:"path"`
}

// Index is the whole registry file. It is rewritten in full on every
// mutation; concurrent writers are not supported.
type Index struct {
	Current string  `json:"current"`
	Models  []Entry `json:"models"`
}

// Registry manages model packages under a base directory.
type Registry struct {
	dir       string
	indexPath string
}

// New points a registry at dir. The directory is created lazily on the
// first write, so a read-only deployment can open a registry it never
// mutates.
func New(dir string) *Registry {
	return &Registry{dir: dir, indexPath: filepath.Join(dir, indexFile)}
}

// Dir returns the registry base directory.
func (r *Registry) Dir() string { return r.dir }

func (r *Registry) versionDir(version string) string {
	return filepath.Join(r.dir, version)
}

// Load reads the index file. A missing file yields an empty index, not an
// error, so a fresh checkout works without a bootstrap step.
func (r *Registry) Load() (*Index, error) {
	const op = "registry.Load"
	data, err := os.ReadFile(r.indexPath)
	if errors.Is(err, fs.ErrNotExist) {
		return &Index{}, nil
	}
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, utils.E(utils.KindPermission, op, "read registry index", err)
		}
		return nil, utils.E(utils.KindUnknown, op, "read registry index", err)
	}
	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, utils.E(utils.KindTypeMismatch, op, "decode registry index", err)
	}
	return &idx, nil
}

func (r *Registry) save(idx *Index) error {
	const op = "registry.save"
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return utils.E(utils.KindUnknown, op, "create registry dir", err)
	}
	sort.Slice(idx.Models, func(i, j int) bool {
		return idx.Models[i].RegisteredAt.Before(idx.Models[j].RegisteredAt)
	})
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return utils.E(utils.KindUnknown, op, "encode registry index", err)
	}
	if err := os.WriteFile(r.indexPath, append(data, '\n'), 0o644); err != nil {
		return utils.E(utils.KindUnknown, op, "write registry index", err)
	}
	return nil
}

// Add writes the bundle's package directory (artifact, feature list,
// metadata, model card) and records it in the index as the current version.
// Re-registering an existing version overwrites its package in place.
func (r *Registry) Add(b *model.Bundle) (*Entry, error) {
	const op = "registry.Add"
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if b.Version == "" {
		return nil, utils.Errf(utils.KindSchema, op, "bundle has no version")
	}

	dir := r.versionDir(b.Version)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, utils.E(utils.KindUnknown, op, "create package dir", err)
	}
	if err := model.SaveBundle(filepath.Join(dir, bundleFile), b); err != nil {
		return nil, err
	}
	if err := writeJSON(filepath.Join(dir, featureListFile), b.FeatureOrder); err != nil {
		return nil, utils.E(utils.KindUnknown, op, "write feature list", err)
	}
	meta := map[string]any{
		"name":                b.Name,
		"version":             b.Version,
		"model_type":          b.ModelType,
		"trained_at":          b.TrainedAt,
		"feature_schema_hash": b.SchemaHash,
		"thresholds":          b.Thresholds,
		"metrics":             b.Metrics,
	}
	if err := writeJSON(filepath.Join(dir, metadataFile), meta); err != nil {
		return nil, utils.E(utils.KindUnknown, op, "write metadata", err)
	}
	if err := os.WriteFile(filepath.Join(dir, modelCardFile), []byte(renderModelCard(b)), 0o644); err != nil {
		return nil, utils.E(utils.KindUnknown, op, "write model card", err)
	}

	idx, err := r.Load()
	if err != nil {
		return nil, err
	}
	entry := Entry{
		Name:         b.Name,
		Version:      b.Version,
		SchemaHash:   b.SchemaHash,
		RegisteredAt: time.Now().UTC(),
		Path:         dir,
	}
	kept := idx.Models[:0]
	for _, m := range idx.Models {
		if m.Version != b.Version {
			kept = append(kept, m)
		}
	}
	idx.Models = append(kept, entry)
	idx.Current = b.Version
	if err := r.save(idx); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Entry looks a version up in the index.
func (r *Registry) Entry(version string) (*Entry, error) {
	const op = "registry.Entry"
	idx, err := r.Load()
	if err != nil {
		return nil, err
	}
	for i := range idx.Models {
		if idx.Models[i].Version == version {
			return &idx.Models[i], nil
		}
	}
	return nil, utils.Errf(utils.KindNotFound, op, "model version %q not registered", version)
}

// CurrentEntry resolves the index's current version.
func (r *Registry) CurrentEntry() (*Entry, error) {
	const op = "registry.CurrentEntry"
	idx, err := r.Load()
	if err != nil {
		return nil, err
	}
	if idx.Current == "" {
		return nil, utils.Errf(utils.KindNotFound, op, "registry has no current model")
	}
	return r.Entry(idx.Current)
}

// Approve drops the approval marker into the version's package directory.
func (r *Registry) Approve(version, approver string) error {
	const op = "registry.Approve"
	if _, err := r.Entry(version); err != nil {
		return err
	}
	line := fmt.Sprintf("approved_at=%s approver=%s\n",
		time.Now().UTC().Format(time.RFC3339), approver)
	marker := filepath.Join(r.versionDir(version), approvedMarker)
	if err := os.WriteFile(marker, []byte(line), 0o644); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return utils.E(utils.KindPermission, op, "write approval marker", err)
		}
		return utils.E(utils.KindUnknown, op, "write approval marker", err)
	}
	return nil
}

// Approved reports whether the version carries an approval marker.
func (r *Registry) Approved(version string) bool {
	_, err := os.Stat(filepath.Join(r.versionDir(version), approvedMarker))
	return err == nil
}

// LoadBundle reads a registered version's artifact. With requireApproval
// set, an unapproved bundle is a Permission error so boot fails loudly
// instead of serving an unreviewed model.
func (r *Registry) LoadBundle(version string, requireApproval bool) (*model.Bundle, error) {
	const op = "registry.LoadBundle"
	entry, err := r.Entry(version)
	if err != nil {
		return nil, err
	}
	if requireApproval && !r.Approved(version) {
		return nil, utils.Errf(utils.KindPermission, op, "model version %q is not approved", version)
	}
	return model.LoadBundle(filepath.Join(entry.Path, bundleFile))
}

// LoadCurrent reads the current version's artifact.
func (r *Registry) LoadCurrent(requireApproval bool) (*model.Bundle, error) {
	entry, err := r.CurrentEntry()
	if err != nil {
		return nil, err
	}
	return r.LoadBundle(entry.Version, requireApproval)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func renderModelCard(b *model.Bundle) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Model Card: %s\n\n", b.Name)
	fmt.Fprintf(&sb, "- Version: %s\n", b.Version)
	fmt.Fprintf(&sb, "- Type: %s\n", b.ModelType)
	fmt.Fprintf(&sb, "- Trained: %s\n", b.TrainedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&sb, "- Feature schema hash: %s\n\n", b.SchemaHash)
	sb.WriteString("## Features\n\n")
	for _, name := range b.FeatureOrder {
		fmt.Fprintf(&sb, "- %s\n", name)
	}
	if len(b.Metrics) > 0 {
		sb.WriteString("\n## Evaluation\n\n")
		keys := make([]string, 0, len(b.Metrics))
		for k := range b.Metrics {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&sb, "- %s: %.4f\n", k, b.Metrics[k])
		}
	}
	sb.WriteString("\n## Intended use\n\n")
	sb.WriteString("Demonstration credit-risk scoring on synthetic alternative data. Not for production lending decisions.\n")
	return sb.String()
}
