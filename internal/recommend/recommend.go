// Package recommend synthesizes ranked volume-shift recommendations from
// the carrier scores and lane-level cost statistics.
package recommend

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/nexgen-logistics/cost-intelligence/internal/config"
	"github.com/nexgen-logistics/cost-intelligence/internal/models"
	"github.com/nexgen-logistics/cost-intelligence/internal/stats"
)

// idNamespace makes recommendation IDs stable across identical runs.
var idNamespace = uuid.MustParse("9f2c1e7a-4b8d-4f3e-9c5a-1d6b2e8f0a43")

// Engine generates recommendations with the configured shift fraction
// and score-gap threshold.
type Engine struct {
	cfg config.AnalyticsConfig
}

// New returns an Engine.
func New(cfg config.AnalyticsConfig) *Engine {
	return &Engine{cfg: cfg}
}

// laneStats are one carrier's delivered statistics on one lane.
type laneStats struct {
	volumeKm  float64
	costPerKm []float64
}

// Generate proposes shifting a fraction of volume from a lower-scoring
// carrier to a higher-scoring one on the same lane wherever their value
// scores differ by more than the threshold. Entries with non-positive
// estimated savings are excluded; the result is sorted descending by
// savings.
func (e *Engine) Generate(
	scores []models.CarrierScore,
	rows []models.UnifiedOrder,
	derived []models.OrderMetrics,
) []models.Recommendation {
	if len(scores) < 2 {
		return nil
	}

	valueScore := make(map[string]float64, len(scores))
	for _, s := range scores {
		valueScore[s.Carrier] = s.ValueScore
	}

	lanes := make(map[models.Segment]map[string]*laneStats)
	for i := range rows {
		if !rows[i].Delivered() || !rows[i].Carrier.Valid {
			continue
		}
		distance := rows[i].Distance()
		if !distance.Valid {
			continue
		}
		seg := models.Segment{Origin: rows[i].Origin, Destination: rows[i].Destination}
		carriers := lanes[seg]
		if carriers == nil {
			carriers = make(map[string]*laneStats)
			lanes[seg] = carriers
		}
		ls := carriers[rows[i].Carrier.Value]
		if ls == nil {
			ls = &laneStats{}
			carriers[rows[i].Carrier.Value] = ls
		}
		ls.volumeKm += distance.Value
		if derived[i].CostPerDistance.Valid {
			ls.costPerKm = append(ls.costPerKm, derived[i].CostPerDistance.Value)
		}
	}

	var recs []models.Recommendation
	for seg, carriers := range lanes {
		names := make([]string, 0, len(carriers))
		for name := range carriers {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, from := range names {
			for _, to := range names {
				if from == to {
					continue
				}
				gap := valueScore[to] - valueScore[from]
				if gap <= e.cfg.ScoreGapThreshold {
					continue
				}
				if rec, ok := e.propose(seg, from, to, gap, carriers[from], carriers[to]); ok {
					recs = append(recs, rec)
				}
			}
		}
	}

	sort.Slice(recs, func(a, b int) bool {
		if recs[a].AnnualSavings != recs[b].AnnualSavings {
			return recs[a].AnnualSavings > recs[b].AnnualSavings
		}
		if recs[a].Segment != recs[b].Segment {
			if recs[a].Segment.Origin != recs[b].Segment.Origin {
				return recs[a].Segment.Origin < recs[b].Segment.Origin
			}
			return recs[a].Segment.Destination < recs[b].Segment.Destination
		}
		if recs[a].FromCarrier != recs[b].FromCarrier {
			return recs[a].FromCarrier < recs[b].FromCarrier
		}
		return recs[a].ToCarrier < recs[b].ToCarrier
	})
	return recs
}

func (e *Engine) propose(
	seg models.Segment,
	from, to string,
	gap float64,
	lower, higher *laneStats,
) (models.Recommendation, bool) {
	lowerCost, okLower := stats.Mean(lower.costPerKm)
	higherCost, okHigher := stats.Mean(higher.costPerKm)
	if !okLower || !okHigher {
		return models.Recommendation{}, false
	}

	shifted := e.cfg.VolumeShiftFraction * lower.volumeKm
	savings := shifted * (lowerCost - higherCost)
	if savings <= 0 {
		return models.Recommendation{}, false
	}

	risk := e.riskTier(shifted, higher)
	rec := models.Recommendation{
		ID:          uuid.NewSHA1(idNamespace, []byte(seg.String()+"|"+from+"|"+to)).String(),
		Segment:     seg,
		FromCarrier: from,
		ToCarrier:   to,
		Description: fmt.Sprintf(
			"Shift %.0f%% of %s volume on %s from %s to %s (avg cost %.2f vs %.2f per km)",
			e.cfg.VolumeShiftFraction*100, from, seg, from, to, lowerCost, higherCost,
		),
		AnnualSavings: savings,
		Risk:          risk,
		Horizon:       horizonFor(risk),
		ShiftedVolume: shifted,
		ScoreGap:      gap,
	}
	return rec, true
}

// riskTier grades a shift by how much volume the receiving carrier must
// absorb and how variable its lane cost has been.
func (e *Engine) riskTier(shifted float64, receiver *laneStats) string {
	cv := 0.0
	if mean, ok := stats.Mean(receiver.costPerKm); ok && mean > 0 {
		if sd, ok := stats.StdDev(receiver.costPerKm); ok {
			cv = sd / mean
		}
	}
	switch {
	case receiver.volumeKm <= 0, shifted > 0.5*receiver.volumeKm, cv > 0.5:
		return models.RiskHigh
	case shifted > 0.25*receiver.volumeKm, cv > 0.25:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

func horizonFor(risk string) string {
	switch risk {
	case models.RiskLow:
		return models.HorizonImmediate
	case models.RiskMedium:
		return models.HorizonShortTerm
	default:
		return models.HorizonLongTerm
	}
}
