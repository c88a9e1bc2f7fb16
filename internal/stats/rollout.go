// Package stats summarises stored rollouts and writes the summaries to disk.
package stats

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"voxelnet/internal/model"
)

// RolloutStats aggregates the rollouts of one genotype, or of every genotype
// when GenotypeID is empty.
type RolloutStats struct {
	GenotypeID     string  `json:"genotype_id,omitempty"`
	Count          int     `json:"count"`
	TotalTicks     int     `json:"total_ticks"`
	MeanUniformity float64 `json:"mean_uniformity"`
	StdUniformity  float64 `json:"std_uniformity"`
	MinUniformity  float64 `json:"min_uniformity"`
	MaxUniformity  float64 `json:"max_uniformity"`
	// MeanActuation is the mean absolute value of the final actuation grids.
	MeanActuation float64 `json:"mean_actuation"`
}

func SummarizeRollouts(genotypeID string, records []model.RolloutRecord) RolloutStats {
	out := RolloutStats{GenotypeID: genotypeID, Count: len(records)}
	if len(records) == 0 {
		return out
	}

	uniformity := make([]float64, len(records))
	var actuation []float64
	for i, r := range records {
		uniformity[i] = r.Uniformity
		out.TotalTicks += r.Ticks
		for _, row := range r.Actuation {
			for _, v := range row {
				actuation = append(actuation, math.Abs(v))
			}
		}
	}

	out.MeanUniformity = stat.Mean(uniformity, nil)
	if len(uniformity) > 1 {
		out.StdUniformity = stat.StdDev(uniformity, nil)
	}
	out.MinUniformity = floats.Min(uniformity)
	out.MaxUniformity = floats.Max(uniformity)
	if len(actuation) > 0 {
		out.MeanActuation = stat.Mean(actuation, nil)
	}
	return out
}
