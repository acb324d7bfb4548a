// creditctl is the operator CLI: train and register model bundles, inspect
// and approve registry entries, and run offline fairness evaluations.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/inclusivefin/altcredit/internal/fairness"
	"github.com/inclusivefin/altcredit/internal/features"
	"github.com/inclusivefin/altcredit/internal/model"
	"github.com/inclusivefin/altcredit/internal/registry"
	"github.com/inclusivefin/altcredit/internal/utils"
)

var registryFlag = &cli.StringFlag{
	Name:  "registry",
	Usage: "Path to the model registry directory",
	Value: "models",
}

func main() {
	cmd := &cli.Command{
		Name:  "creditctl",
		Usage: "Manage credit scoring model bundles",
		Commands: []*cli.Command{
			trainCmd(),
			modelsCmd(),
			fairnessCmd(),
		},
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("command failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func trainCmd() *cli.Command {
	return &cli.Command{
		Name:  "train",
		Usage: "Train a bundle on synthetic data and register it",
		Flags: []cli.Flag{
			registryFlag,
			&cli.StringFlag{Name: "name", Usage: "Model name", Value: "logreg_altdata_baseline"},
			&cli.StringFlag{Name: "version", Usage: "Version label (default: derived from the training data)"},
			&cli.IntFlag{Name: "n", Usage: "Synthetic sample count", Value: 5000},
			&cli.IntFlag{Name: "seed", Usage: "Random seed", Value: 42},
			&cli.IntFlag{Name: "epochs", Usage: "Training epochs", Value: 400},
			&cli.FloatFlag{Name: "approve", Usage: "Approve threshold", Value: 0.70},
			&cli.FloatFlag{Name: "review", Usage: "Review threshold (0 for binary policy)", Value: 0.55},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			contract := features.Default()
			bundle, eval, err := model.Train(model.TrainConfig{
				Name:         c.String("name"),
				Version:      c.String("version"),
				FeatureOrder: contract.Columns(),
				SchemaHash:   contract.SchemaHash(),
				Thresholds: model.Thresholds{
					Approve: c.Float("approve"),
					Review:  c.Float("review"),
				},
				N:      int(c.Int("n")),
				Seed:   int64(c.Int("seed")),
				Epochs: int(c.Int("epochs")),
			})
			if err != nil {
				return err
			}
			reg := registry.New(c.String("registry"))
			entry, err := reg.Add(bundle)
			if err != nil {
				return err
			}
			report, err := holdoutFairness(eval)
			if err != nil {
				return err
			}
			return printJSON(map[string]any{
				"version":  entry.Version,
				"path":     entry.Path,
				"accuracy": eval.Accuracy,
				"auc":      eval.AUC,
				"fairness": report,
			})
		},
	}
}

func modelsCmd() *cli.Command {
	return &cli.Command{
		Name:  "models",
		Usage: "Inspect and approve registered bundles",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List registered model versions",
				Flags: []cli.Flag{registryFlag},
				Action: func(ctx context.Context, c *cli.Command) error {
					reg := registry.New(c.String("registry"))
					idx, err := reg.Load()
					if err != nil {
						return err
					}
					type row struct {
						Version      string `json:"version"`
						Name         string `json:"name"`
						RegisteredAt string `json:"registered_at"`
						Approved     bool   `json:"approved"`
						Current      bool   `json:"current"`
					}
					rows := make([]row, 0, len(idx.Models))
					for _, m := range idx.Models {
						rows = append(rows, row{
							Version:      m.Version,
							Name:         m.Name,
							RegisteredAt: m.RegisteredAt.Format("2006-01-02 15:04:05"),
							Approved:     reg.Approved(m.Version),
							Current:      m.Version == idx.Current,
						})
					}
					return printJSON(rows)
				},
			},
			{
				Name:  "approve",
				Usage: "Drop an approval marker on a version",
				Flags: []cli.Flag{
					registryFlag,
					&cli.StringFlag{Name: "version", Usage: "Version to approve", Required: true},
					&cli.StringFlag{Name: "approver", Usage: "Who approved it", Value: "unknown"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					reg := registry.New(c.String("registry"))
					version := c.String("version")
					if err := reg.Approve(version, c.String("approver")); err != nil {
						if utils.KindOf(err) == utils.KindNotFound {
							return fmt.Errorf("version %q is not registered", version)
						}
						return err
					}
					fmt.Printf("approved %s\n", version)
					return nil
				},
			},
		},
	}
}

func fairnessCmd() *cli.Command {
	return &cli.Command{
		Name:  "fairness",
		Usage: "Report group fairness from a JSON rows file, or from a synthetic holdout split",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Usage: "JSON file with decisions/groups and optional outcomes"},
			&cli.StringFlag{Name: "attribute", Usage: "Sensitive attribute name", Value: "group"},
			&cli.IntFlag{Name: "n", Usage: "Synthetic sample count (when no file is given)", Value: 5000},
			&cli.IntFlag{Name: "seed", Usage: "Random seed (when no file is given)", Value: 42},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if path := c.String("file"); path != "" {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read rows file: %w", err)
				}
				var rows struct {
					Decisions []bool   `json:"decisions"`
					Groups    []string `json:"groups"`
					Outcomes  []int    `json:"outcomes"`
				}
				if err := json.Unmarshal(data, &rows); err != nil {
					return fmt.Errorf("parse rows file: %w", err)
				}
				report, err := fairness.Compute(rows.Decisions, rows.Groups, c.String("attribute"), rows.Outcomes)
				if err != nil {
					return err
				}
				return printJSON(report)
			}

			contract := features.Default()
			_, eval, err := model.Train(model.TrainConfig{
				FeatureOrder: contract.Columns(),
				SchemaHash:   contract.SchemaHash(),
				N:            int(c.Int("n")),
				Seed:         int64(c.Int("seed")),
			})
			if err != nil {
				return err
			}
			report, err := holdoutFairness(eval)
			if err != nil {
				return err
			}
			return printJSON(map[string]any{
				"accuracy": eval.Accuracy,
				"auc":      eval.AUC,
				"fairness": report,
			})
		},
	}
}

// holdoutFairness runs the group report over a training run's holdout split.
func holdoutFairness(eval model.EvalResult) (*fairness.Report, error) {
	approved := make([]bool, len(eval.YPred))
	for i, p := range eval.YPred {
		approved[i] = p == 1
	}
	return fairness.Compute(approved, eval.Groups, "group", eval.YTrue)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
