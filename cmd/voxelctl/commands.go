package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"voxelnet/internal/config"
	"voxelnet/internal/evo"
	voxelio "voxelnet/internal/io"
	"voxelnet/internal/model"
	"voxelnet/internal/nn"
	"voxelnet/pkg/voxelnet"
)

func newLayoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "layout",
		Short: "Show the genotype layout of the configured controller",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			info, err := voxelnet.Describe(cfg.Controller.Spec())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOutput(cmd) {
				return writeJSON(out, info)
			}
			fmt.Fprintf(out, "controller  %s %s on %s\n", info.Spec.Kind, info.Spec.Config, info.Spec.Shape)
			fmt.Fprintf(out, "cells       %d (%d neighbours each)\n", info.Cells, info.NeighborCount)
			fmt.Fprintf(out, "input       %d values -> %d outputs\n", info.InputDim, info.OutputDim)
			if info.EncodedRows > 0 {
				fmt.Fprintf(out, "rows        %d\n", info.EncodedRows)
			}
			fmt.Fprintf(out, "attention   %s params per block\n", humanize.Comma(int64(info.AttentionParams)))
			fmt.Fprintf(out, "downstream  %s params per block\n", humanize.Comma(int64(info.DownstreamParams)))
			fmt.Fprintf(out, "genotype    %s genes (%s, %s)\n",
				humanize.Comma(int64(info.Layout.Size)),
				info.Layout.Distribution,
				humanize.Bytes(uint64(info.Layout.Size)*8))
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Draw fresh uniform genotypes for the configured controller",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			count, _ := cmd.Flags().GetInt("count")
			return withClient(cmd, func(cfg *config.Config, client *voxelnet.Client) error {
				seed := int64Flag(cmd, "seed", cfg.Evolution.Seed)
				records := make([]model.GenotypeRecord, 0, count)
				for i := 0; i < count; i++ {
					record, err := client.Seed(cmd.Context(), voxelnet.SeedRequest{
						Spec:  cfg.Controller.Spec(),
						Seed:  seed + int64(i),
						Lower: cfg.Evolution.Lower,
						Upper: cfg.Evolution.Upper,
					})
					if err != nil {
						return err
					}
					records = append(records, record)
				}
				return printGenotypes(cmd, records)
			})
		},
	}
	cmd.Flags().Int64("seed", 0, "random seed (defaults to evolution.seed)")
	cmd.Flags().Int("count", 1, "number of genotypes to draw")
	return cmd
}

func newTransplantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transplant <source-id>",
		Short: "Seed a genotype for the configured body with a stored attention block",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(cfg *config.Config, client *voxelnet.Client) error {
				record, err := client.Transplant(cmd.Context(), voxelnet.TransplantRequest{
					SourceID: args[0],
					Target:   cfg.Controller.Spec(),
					Seed:     int64Flag(cmd, "seed", cfg.Evolution.Seed),
					Lower:    cfg.Evolution.Lower,
					Upper:    cfg.Evolution.Upper,
				})
				if err != nil {
					return err
				}
				return printGenotypes(cmd, []model.GenotypeRecord{record})
			})
		},
	}
	cmd.Flags().Int64("seed", 0, "random seed (defaults to evolution.seed)")
	return cmd
}

func newMutateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mutate <id>",
		Short: "Mutate a stored genotype",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			operator, _ := cmd.Flags().GetString("operator")
			target, _ := cmd.Flags().GetString("target")
			return withClient(cmd, func(cfg *config.Config, client *voxelnet.Client) error {
				record, err := client.Mutate(cmd.Context(), voxelnet.MutateRequest{
					ID:       args[0],
					Operator: operator,
					Target:   target,
					Sigma:    float64Flag(cmd, "sigma", cfg.Evolution.Sigma),
					Seed:     int64Flag(cmd, "seed", cfg.Evolution.Seed),
				})
				if err != nil {
					return err
				}
				return printGenotypes(cmd, []model.GenotypeRecord{record})
			})
		},
	}
	cmd.Flags().String("operator", "module_mutation", "mutation operator")
	cmd.Flags().String("target", "downstream", "region to mutate: downstream|attention")
	cmd.Flags().Float64("sigma", 0, "gaussian sigma (defaults to evolution.sigma)")
	cmd.Flags().Int64("seed", 0, "random seed (defaults to evolution.seed)")
	return cmd
}

func newCrossoverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crossover <parent-a> <parent-b>",
		Short: "Recombine two stored genotypes that share a layout",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			operator, _ := cmd.Flags().GetString("operator")
			return withClient(cmd, func(cfg *config.Config, client *voxelnet.Client) error {
				record, err := client.Crossover(cmd.Context(), voxelnet.CrossoverRequest{
					ParentA:  args[0],
					ParentB:  args[1],
					Operator: operator,
					Sigma:    float64Flag(cmd, "sigma", cfg.Evolution.Sigma),
					Seed:     int64Flag(cmd, "seed", cfg.Evolution.Seed),
				})
				if err != nil {
					return err
				}
				return printGenotypes(cmd, []model.GenotypeRecord{record})
			})
		},
	}
	cmd.Flags().String("operator", "module_crossover", "crossover operator")
	cmd.Flags().Float64("sigma", 0, "gaussian sigma (defaults to evolution.sigma)")
	cmd.Flags().Int64("seed", 0, "random seed (defaults to evolution.seed)")
	return cmd
}

func newRolloutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rollout <id>",
		Short: "Run a stored genotype against synthetic sensors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ticks, _ := cmd.Flags().GetInt("ticks")
			dt, _ := cmd.Flags().GetFloat64("dt")
			freezeAfter, _ := cmd.Flags().GetInt("freeze-after")
			save, _ := cmd.Flags().GetBool("save")
			sensors, _ := cmd.Flags().GetString("sensors")
			return withClient(cmd, func(_ *config.Config, client *voxelnet.Client) error {
				summary, err := client.Rollout(cmd.Context(), voxelnet.RolloutRequest{
					ID:          args[0],
					Ticks:       ticks,
					Dt:          dt,
					Sensors:     sensors,
					FreezeAfter: freezeAfter,
					Save:        save,
				})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if jsonOutput(cmd) {
					return writeJSON(out, summary)
				}
				fmt.Fprintf(out, "rollout %s of %s: %d ticks, uniformity %.4f\n",
					summary.Record.ID, summary.Record.GenotypeID, summary.Record.Ticks, summary.Record.Uniformity)
				if summary.FrozenCells > 0 {
					fmt.Fprintf(out, "froze %d attention blocks\n", summary.FrozenCells)
				}
				fmt.Fprintln(out, "actuation:")
				for _, row := range summary.Record.Actuation {
					fmt.Fprintf(out, "  %s\n", formatRow(row))
				}
				if len(summary.Scores) > 0 {
					fmt.Fprintln(out, "attention (first cell):")
					for _, row := range summary.Scores {
						fmt.Fprintf(out, "  %s\n", formatRow(row))
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().Int("ticks", 50, "control rounds to run")
	cmd.Flags().Float64("dt", 0.1, "time between rounds")
	cmd.Flags().Int("freeze-after", 0, "freeze attention after this many rounds (0 never)")
	cmd.Flags().Bool("save", false, "store the rollout record")
	cmd.Flags().String("sensors", "sinusoid", "sensor source: "+strings.Join(voxelio.ListSensors(), "|"))
	return cmd
}

func newGenotypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "genotypes",
		Short: "List stored genotypes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(_ *config.Config, client *voxelnet.Client) error {
				records, err := client.Genotypes(cmd.Context())
				if err != nil {
					return err
				}
				return printGenotypes(cmd, records)
			})
		},
	}
}

func newRolloutsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rollouts [genotype-id]",
		Short: "List stored rollouts, optionally for one genotype",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			genotypeID := ""
			if len(args) == 1 {
				genotypeID = args[0]
			}
			return withClient(cmd, func(_ *config.Config, client *voxelnet.Client) error {
				records, err := client.Rollouts(cmd.Context(), genotypeID)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if jsonOutput(cmd) {
					return writeJSON(out, records)
				}
				for _, r := range records {
					fmt.Fprintf(out, "%s  genotype=%s ticks=%d uniformity=%.4f %s\n",
						r.ID, r.GenotypeID, r.Ticks, r.Uniformity, humanize.Time(r.CreatedAt))
				}
				return nil
			})
		},
	}
}

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [genotype-id]",
		Short: "Summarise stored rollouts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			genotypeID := ""
			if len(args) == 1 {
				genotypeID = args[0]
			}
			exportDir, _ := cmd.Flags().GetString("export")
			return withClient(cmd, func(_ *config.Config, client *voxelnet.Client) error {
				report, err := client.Report(cmd.Context(), genotypeID, exportDir)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if jsonOutput(cmd) {
					return writeJSON(out, report)
				}
				s := report.Stats
				fmt.Fprintf(out, "rollouts    %s (%s ticks)\n", humanize.Comma(int64(s.Count)), humanize.Comma(int64(s.TotalTicks)))
				fmt.Fprintf(out, "uniformity  mean %.4f std %.4f range [%.4f, %.4f]\n",
					s.MeanUniformity, s.StdUniformity, s.MinUniformity, s.MaxUniformity)
				fmt.Fprintf(out, "actuation   mean |a| %.4f\n", s.MeanActuation)
				if exportDir != "" {
					fmt.Fprintf(out, "wrote report %s to %s\n", report.ID, exportDir)
				}
				return nil
			})
		},
	}
	cmd.Flags().String("export", "", "directory to write the report into")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored genotype and its rollouts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(_ *config.Config, client *voxelnet.Client) error {
				if err := client.DeleteGenotype(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func newOperatorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "operators",
		Short: "List registered variation operators, activations and sensors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			listing := map[string][]string{
				"operators":   evo.ListOperators(),
				"activations": nn.ListActivations(),
				"sensors":     voxelio.ListSensors(),
			}
			out := cmd.OutOrStdout()
			if jsonOutput(cmd) {
				return writeJSON(out, listing)
			}
			fmt.Fprintf(out, "operators:   %s\n", strings.Join(listing["operators"], ", "))
			fmt.Fprintf(out, "activations: %s\n", strings.Join(listing["activations"], ", "))
			fmt.Fprintf(out, "sensors:     %s\n", strings.Join(listing["sensors"], ", "))
			return nil
		},
	}
}

func printGenotypes(cmd *cobra.Command, records []model.GenotypeRecord) error {
	out := cmd.OutOrStdout()
	if jsonOutput(cmd) {
		return writeJSON(out, records)
	}
	for _, r := range records {
		line := fmt.Sprintf("%s  %s %s on %s, %s genes", r.ID, r.Spec.Kind, r.Spec.Config, r.Spec.Shape,
			humanize.Comma(int64(len(r.Genes))))
		if r.Operator != "" {
			line += " via " + r.Operator
		}
		if len(r.ParentIDs) > 0 {
			line += " from " + strings.Join(r.ParentIDs, "+")
		}
		fmt.Fprintf(out, "%s, %s\n", line, humanize.Time(r.CreatedAt))
	}
	return nil
}

func formatRow(row []float64) string {
	parts := make([]string, len(row))
	for i, v := range row {
		parts[i] = fmt.Sprintf("%+.3f", v)
	}
	return strings.Join(parts, " ")
}
