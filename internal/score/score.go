// Package score computes the weighted Carrier Value Score and the ranked
// carrier table.
package score

import (
	"fmt"
	"math"
	"sort"

	"github.com/nexgen-logistics/cost-intelligence/internal/config"
	"github.com/nexgen-logistics/cost-intelligence/internal/metrics"
	"github.com/nexgen-logistics/cost-intelligence/internal/models"
	"github.com/nexgen-logistics/cost-intelligence/internal/stats"
)

// neutralScore is assigned to any sub-score that cannot be
// differentiated: a sole carrier, zero spread across carriers, or no
// usable data for the dimension.
const neutralScore = 50.0

// Scorer computes carrier scores with a validated weight set.
type Scorer struct {
	cfg config.AnalyticsConfig
}

// New returns a Scorer, rejecting weight sets that do not sum to 1.0.
func New(cfg config.AnalyticsConfig) (*Scorer, error) {
	if sum := cfg.Weights.Sum(); math.Abs(sum-1.0) > 1e-6 {
		return nil, &config.ConfigurationError{
			Param:  "weights",
			Reason: fmt.Sprintf("must sum to 1.0, got %.6f", sum),
		}
	}
	return &Scorer{cfg: cfg}, nil
}

// Score computes the four sub-scores and the composite for every carrier
// with at least one order, ranked descending by composite score. Ties
// break by higher on-time rate, then lower emissions.
func (s *Scorer) Score(aggs []metrics.CarrierAggregate) []models.CarrierScore {
	if len(aggs) == 0 {
		return nil
	}

	type raw struct {
		cost, emissions       models.Null[float64]
		onTimeRate, avgRating models.Null[float64]
	}
	raws := make([]raw, len(aggs))
	var costVals, emissionVals []float64
	for i := range aggs {
		if mean, ok := stats.Mean(aggs[i].CostPerKm); ok {
			raws[i].cost = models.Some(mean)
			costVals = append(costVals, mean)
		}
		if mean, ok := stats.Mean(aggs[i].Emissions); ok {
			raws[i].emissions = models.Some(mean)
			emissionVals = append(emissionVals, mean)
		}
		raws[i].onTimeRate = aggs[i].OnTimeRate()
		if mean, ok := stats.Mean(aggs[i].Ratings); ok {
			raws[i].avgRating = models.Some(mean)
		}
	}

	sole := len(aggs) == 1
	scores := make([]models.CarrierScore, len(aggs))
	for i := range aggs {
		cs := models.CarrierScore{
			Carrier:      aggs[i].Carrier,
			Orders:       aggs[i].Orders,
			AvgCostPerKm: raws[i].cost,
			OnTimeRate:   raws[i].onTimeRate,
			AvgRating:    raws[i].avgRating,
			AvgEmissions: raws[i].emissions,
		}

		cs.CostScore = invertedMinMax(raws[i].cost, costVals, sole)
		cs.SustainabilityScore = invertedMinMax(raws[i].emissions, emissionVals, sole)
		cs.DeliveryScore = directScale(raws[i].onTimeRate, 100, 0, sole)
		cs.SatisfactionScore = directScale(raws[i].avgRating, 25, -25, sole)

		w := s.cfg.Weights
		cs.ValueScore = cs.CostScore*w.Cost +
			cs.DeliveryScore*w.Delivery +
			cs.SatisfactionScore*w.Satisfaction +
			cs.SustainabilityScore*w.Sustainability

		scores[i] = cs
	}

	sort.Slice(scores, func(a, b int) bool {
		if scores[a].ValueScore != scores[b].ValueScore {
			return scores[a].ValueScore > scores[b].ValueScore
		}
		ra, rb := scores[a].OnTimeRate.Or(-1), scores[b].OnTimeRate.Or(-1)
		if ra != rb {
			return ra > rb
		}
		ea, eb := scores[a].AvgEmissions.Or(math.MaxFloat64), scores[b].AvgEmissions.Or(math.MaxFloat64)
		if ea != eb {
			return ea < eb
		}
		return scores[a].Carrier < scores[b].Carrier
	})
	for i := range scores {
		scores[i].Rank = i + 1
	}
	return scores
}

// invertedMinMax normalizes a lower-is-better raw value to 0-100 across
// carriers: the best (lowest) raw value scores 100, the worst scores 0.
func invertedMinMax(value models.Null[float64], all []float64, sole bool) float64 {
	if sole || !value.Valid {
		return neutralScore
	}
	min, max, ok := stats.MinMax(all)
	if !ok || max == min {
		return neutralScore
	}
	return (max - value.Value) / (max - min) * 100
}

// directScale maps a raw value onto 0-100 as scale*value+offset: the
// on-time rate scales from its 0-1 domain, the rating from 1-5.
func directScale(value models.Null[float64], scale, offset float64, sole bool) float64 {
	if sole || !value.Valid {
		return neutralScore
	}
	v := scale*value.Value + offset
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
