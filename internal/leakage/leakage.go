// Package leakage isolates avoidable cost per order into delay, damage,
// and overcharge components. Every component is non-negative, and the
// per-order total never exceeds the order's total cost.
package leakage

import (
	"sort"

	"github.com/nexgen-logistics/cost-intelligence/internal/config"
	"github.com/nexgen-logistics/cost-intelligence/internal/models"
	"github.com/nexgen-logistics/cost-intelligence/internal/stats"
)

// Detector classifies per-order leakage with the configured rates.
type Detector struct {
	cfg config.AnalyticsConfig
}

// New returns a Detector.
func New(cfg config.AnalyticsConfig) *Detector {
	return &Detector{cfg: cfg}
}

// Detect builds the leakage breakdown. derived must be parallel to rows.
func (d *Detector) Detect(rows []models.UnifiedOrder, derived []models.OrderMetrics) models.LeakageReport {
	baselines := d.segmentBaselines(derived)

	report := models.LeakageReport{}
	byCarrier := make(map[string]*models.LeakageGroup)
	byRegion := make(map[string]*models.LeakageGroup)

	for i := range rows {
		entry := d.detectOrder(&rows[i], &derived[i], baselines)
		if rows[i].TotalCost.Valid {
			report.TotalCost += rows[i].TotalCost.Value
		}
		if entry.Total == 0 {
			continue
		}
		report.PerOrder = append(report.PerOrder, entry)
		report.Delay += entry.Delay
		report.Damage += entry.Damage
		report.Overcharge += entry.Overcharge
		report.Total += entry.Total

		accumulate(byCarrier, entry.Carrier, entry)
		accumulate(byRegion, entry.Region, entry)
	}

	report.ByCarrier = groupSlice(byCarrier)
	report.ByRegion = groupSlice(byRegion)
	if report.TotalCost > 0 {
		report.PctOfCost = report.Total / report.TotalCost * 100
	}
	return report
}

// detectOrder computes the three components for one order and caps their
// sum at the order's total cost, reducing overcharge first, then damage,
// then delay.
func (d *Detector) detectOrder(
	row *models.UnifiedOrder,
	m *models.OrderMetrics,
	baselines map[models.Segment]float64,
) models.OrderLeakage {
	entry := models.OrderLeakage{
		OrderID: row.ID,
		Carrier: row.Carrier.Or(models.SentinelUnknown),
		Region:  row.Origin,
	}

	if del := row.Delivery; del != nil {
		if del.PromisedDays.Valid && del.ActualDays.Valid && del.ActualDays.Value > del.PromisedDays.Value {
			entry.Delay = d.cfg.DelayPenaltyPerDay * (del.ActualDays.Value - del.PromisedDays.Value)
		}
		if del.DamageReported.Valid && del.DamageReported.Value {
			entry.Damage = d.cfg.DamageCostEstimate
		}
	}

	if m.CostPerDistance.Valid {
		if baseline, ok := baselines[m.Segment]; ok {
			excess := m.CostPerDistance.Value - baseline
			if excess > 0 {
				entry.Overcharge = excess * row.Distance().Or(0)
			}
		}
	}

	if row.TotalCost.Valid {
		limit := row.TotalCost.Value
		if limit < 0 {
			limit = 0
		}
		total := entry.Delay + entry.Damage + entry.Overcharge
		if total > limit {
			over := total - limit
			over = reduce(&entry.Overcharge, over)
			over = reduce(&entry.Damage, over)
			_ = reduce(&entry.Delay, over)
		}
	}

	entry.Total = entry.Delay + entry.Damage + entry.Overcharge
	return entry
}

// segmentBaselines computes the trimmed-mean cost-per-distance per lane
// over per-carrier means, so a single outlier carrier cannot distort the
// overcharge baseline.
func (d *Detector) segmentBaselines(derived []models.OrderMetrics) map[models.Segment]float64 {
	perCarrier := make(map[models.Segment]map[string][]float64)
	for i := range derived {
		m := &derived[i]
		if !m.CostPerDistance.Valid || !m.Carrier.Valid {
			continue
		}
		carriers := perCarrier[m.Segment]
		if carriers == nil {
			carriers = make(map[string][]float64)
			perCarrier[m.Segment] = carriers
		}
		carriers[m.Carrier.Value] = append(carriers[m.Carrier.Value], m.CostPerDistance.Value)
	}

	baselines := make(map[models.Segment]float64, len(perCarrier))
	for seg, carriers := range perCarrier {
		means := make([]float64, 0, len(carriers))
		for _, values := range carriers {
			if mean, ok := stats.Mean(values); ok {
				means = append(means, mean)
			}
		}
		if baseline, ok := stats.TrimmedMean(means, d.cfg.TrimFraction); ok {
			baselines[seg] = baseline
		}
	}
	return baselines
}

// reduce lowers *v by at most over, returning the remainder still to be
// absorbed.
func reduce(v *float64, over float64) float64 {
	if over <= 0 {
		return 0
	}
	if *v >= over {
		*v -= over
		return 0
	}
	over -= *v
	*v = 0
	return over
}

func accumulate(groups map[string]*models.LeakageGroup, key string, entry models.OrderLeakage) {
	g := groups[key]
	if g == nil {
		g = &models.LeakageGroup{Key: key}
		groups[key] = g
	}
	g.Delay += entry.Delay
	g.Damage += entry.Damage
	g.Overcharge += entry.Overcharge
	g.Total += entry.Total
}

func groupSlice(groups map[string]*models.LeakageGroup) []models.LeakageGroup {
	out := make([]models.LeakageGroup, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Total != out[b].Total {
			return out[a].Total > out[b].Total
		}
		return out[a].Key < out[b].Key
	})
	return out
}
