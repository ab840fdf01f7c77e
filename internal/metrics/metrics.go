// Package metrics computes the per-order derived quantities and the
// aggregate views grouped by carrier, route, and cost category. Metrics
// are pure functions of the joined row: any null required input yields a
// null metric, not zero.
package metrics

import (
	"github.com/nexgen-logistics/cost-intelligence/internal/config"
	"github.com/nexgen-logistics/cost-intelligence/internal/models"
)

// Deriver computes per-order metrics with the configured rates.
type Deriver struct {
	cfg config.AnalyticsConfig
}

// New returns a Deriver.
func New(cfg config.AnalyticsConfig) *Deriver {
	return &Deriver{cfg: cfg}
}

// Derive computes metrics for every unified row. The result is parallel
// to rows: out[i] belongs to rows[i].
func (d *Deriver) Derive(rows []models.UnifiedOrder) []models.OrderMetrics {
	out := make([]models.OrderMetrics, 0, len(rows))
	for i := range rows {
		out = append(out, d.derive(&rows[i]))
	}
	return out
}

func (d *Deriver) derive(row *models.UnifiedOrder) models.OrderMetrics {
	m := models.OrderMetrics{
		OrderID: row.ID,
		Carrier: row.Carrier,
		Segment: models.Segment{Origin: row.Origin, Destination: row.Destination},
	}

	distance := row.Distance()

	m.CostPerDistance = ratio(row.TotalCost, distance)
	m.RevenuePerDistance = ratio(row.Value, distance)

	if row.Value.Valid && row.Value.Value > 0 && row.TotalCost.Valid {
		m.ProfitMargin = models.Some((row.Value.Value - row.TotalCost.Value) / row.Value.Value)
	}

	m.DelayPenalty = d.delayPenalty(row.Delivery)
	m.DamageCost = d.damageCost(row.Delivery)
	if m.DelayPenalty.Valid && m.DamageCost.Valid {
		m.CostOfInefficiency = models.Some(m.DelayPenalty.Value + m.DamageCost.Value)
	}

	if distance.Valid && row.CO2PerKm.Valid {
		m.Emissions = models.Some(distance.Value * row.CO2PerKm.Value)
	}

	return m
}

// delayPenalty is the per-day-late rate times days late, zero when the
// order arrived within its promise.
func (d *Deriver) delayPenalty(del *models.DeliveryRecord) models.Null[float64] {
	if del == nil || !del.PromisedDays.Valid || !del.ActualDays.Valid {
		return models.None[float64]()
	}
	late := del.ActualDays.Value - del.PromisedDays.Value
	if late < 0 {
		late = 0
	}
	return models.Some(d.cfg.DelayPenaltyPerDay * late)
}

// damageCost is the flat estimate when damage was reported.
func (d *Deriver) damageCost(del *models.DeliveryRecord) models.Null[float64] {
	if del == nil || !del.DamageReported.Valid {
		return models.None[float64]()
	}
	if del.DamageReported.Value {
		return models.Some(d.cfg.DamageCostEstimate)
	}
	return models.Some(0.0)
}

// ratio divides two nullable values, null when either side is null or
// the denominator is not positive.
func ratio(num, den models.Null[float64]) models.Null[float64] {
	if !num.Valid || !den.Valid || den.Value <= 0 {
		return models.None[float64]()
	}
	return models.Some(num.Value / den.Value)
}
