package metrics

import (
	"sort"

	"github.com/nexgen-logistics/cost-intelligence/internal/models"
	"github.com/nexgen-logistics/cost-intelligence/internal/stats"
)

// CarrierAggregate collects the raw per-carrier inputs the scorer and the
// performance table are built from.
type CarrierAggregate struct {
	Carrier    string
	Orders     int
	CostPerKm  []float64
	TotalCosts []float64
	Ratings    []float64
	Emissions  []float64
	OnTime     int
	WithStatus int
}

// OnTimeRate is the fraction of delivery records that arrived on time.
func (a *CarrierAggregate) OnTimeRate() models.Null[float64] {
	if a.WithStatus == 0 {
		return models.None[float64]()
	}
	return models.Some(float64(a.OnTime) / float64(a.WithStatus))
}

// AggregateByCarrier groups the derived metrics per carrier, sorted by
// carrier name for determinism. Orders without a carrier are excluded.
// Satisfaction inputs prefer the delivery rating, falling back to the
// joined feedback rating.
func AggregateByCarrier(rows []models.UnifiedOrder, derived []models.OrderMetrics) []CarrierAggregate {
	byCarrier := make(map[string]*CarrierAggregate)
	for i := range rows {
		if !rows[i].Carrier.Valid {
			continue
		}
		name := rows[i].Carrier.Value
		agg := byCarrier[name]
		if agg == nil {
			agg = &CarrierAggregate{Carrier: name}
			byCarrier[name] = agg
		}
		agg.Orders++

		m := derived[i]
		if m.CostPerDistance.Valid {
			agg.CostPerKm = append(agg.CostPerKm, m.CostPerDistance.Value)
		}
		if rows[i].TotalCost.Valid {
			agg.TotalCosts = append(agg.TotalCosts, rows[i].TotalCost.Value)
		}
		if m.Emissions.Valid {
			agg.Emissions = append(agg.Emissions, m.Emissions.Value)
		}
		if del := rows[i].Delivery; del != nil {
			if del.Status != "" && del.Status != models.SentinelUnknown {
				agg.WithStatus++
				if del.Status == models.StatusOnTime {
					agg.OnTime++
				}
			}
		}
		// Delivery rating when present, else the joined feedback rating.
		switch {
		case rows[i].Delivery != nil && rows[i].Delivery.Rating.Valid:
			agg.Ratings = append(agg.Ratings, rows[i].Delivery.Rating.Value)
		case rows[i].Feedback != nil && rows[i].Feedback.Rating.Valid:
			agg.Ratings = append(agg.Ratings, rows[i].Feedback.Rating.Value)
		}
	}

	out := make([]CarrierAggregate, 0, len(byCarrier))
	for _, agg := range byCarrier {
		out = append(out, *agg)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Carrier < out[b].Carrier })
	return out
}

// CarrierPerformanceTable is the pre-scoring aggregate view per carrier.
func CarrierPerformanceTable(rows []models.UnifiedOrder, derived []models.OrderMetrics) []models.CarrierPerformance {
	aggs := AggregateByCarrier(rows, derived)
	out := make([]models.CarrierPerformance, 0, len(aggs))
	for i := range aggs {
		perf := models.CarrierPerformance{
			Carrier:    aggs[i].Carrier,
			Orders:     aggs[i].Orders,
			OnTimeRate: aggs[i].OnTimeRate(),
		}
		if mean, ok := stats.Mean(aggs[i].TotalCosts); ok {
			perf.AvgCost = models.Some(mean)
		}
		if mean, ok := stats.Mean(aggs[i].Ratings); ok {
			perf.AvgRating = models.Some(mean)
		}
		out = append(out, perf)
	}
	return out
}

// RouteCostAnalysis aggregates cost per origin-destination lane over
// delivered orders, sorted by lane for determinism.
func RouteCostAnalysis(rows []models.UnifiedOrder, derived []models.OrderMetrics) []models.RouteCost {
	type laneAgg struct {
		orders    int
		costPerKm []float64
		totals    []float64
	}
	lanes := make(map[models.Segment]*laneAgg)
	for i := range rows {
		if !rows[i].Delivered() {
			continue
		}
		seg := models.Segment{Origin: rows[i].Origin, Destination: rows[i].Destination}
		agg := lanes[seg]
		if agg == nil {
			agg = &laneAgg{}
			lanes[seg] = agg
		}
		agg.orders++
		if derived[i].CostPerDistance.Valid {
			agg.costPerKm = append(agg.costPerKm, derived[i].CostPerDistance.Value)
		}
		if rows[i].TotalCost.Valid {
			agg.totals = append(agg.totals, rows[i].TotalCost.Value)
		}
	}

	out := make([]models.RouteCost, 0, len(lanes))
	for seg, agg := range lanes {
		rc := models.RouteCost{Segment: seg, Orders: agg.orders}
		if mean, ok := stats.Mean(agg.costPerKm); ok {
			rc.AvgCostPerKm = models.Some(mean)
		}
		if mean, ok := stats.Mean(agg.totals); ok {
			rc.AvgTotalCost = models.Some(mean)
		}
		out = append(out, rc)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Segment.Origin != out[b].Segment.Origin {
			return out[a].Segment.Origin < out[b].Segment.Origin
		}
		return out[a].Segment.Destination < out[b].Segment.Destination
	})
	return out
}

// RevenueCostTrend groups delivered orders by order-date month, sorted
// chronologically. Orders without a date are excluded from the grouping.
func RevenueCostTrend(rows []models.UnifiedOrder) []models.MonthlyTrend {
	byMonth := make(map[string]*models.MonthlyTrend)
	for i := range rows {
		if !rows[i].Delivered() || !rows[i].PlacedAt.Valid {
			continue
		}
		month := rows[i].PlacedAt.Value.Format("2006-01")
		mt := byMonth[month]
		if mt == nil {
			mt = &models.MonthlyTrend{Month: month}
			byMonth[month] = mt
		}
		mt.Orders++
		mt.Revenue += rows[i].Value.Or(0)
		mt.Cost += rows[i].TotalCost.Or(0)
	}
	out := make([]models.MonthlyTrend, 0, len(byMonth))
	for _, mt := range byMonth {
		out = append(out, *mt)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Month < out[b].Month })
	return out
}

// CostByCategory totals spend per cost category across all orders,
// sorted by amount descending.
func CostByCategory(rows []models.UnifiedOrder) []models.CategorySpend {
	totals := make(map[string]float64)
	for i := range rows {
		for category, amount := range rows[i].CostByCategory {
			totals[category] += amount
		}
	}
	out := make([]models.CategorySpend, 0, len(totals))
	for category, amount := range totals {
		out = append(out, models.CategorySpend{Category: category, Amount: amount})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Amount != out[b].Amount {
			return out[a].Amount > out[b].Amount
		}
		return out[a].Category < out[b].Category
	})
	return out
}

// KeyBusinessMetrics is the headline summary over the delivered subset.
// totalLeakage comes from the leakage detector.
func KeyBusinessMetrics(rows []models.UnifiedOrder, derived []models.OrderMetrics, totalLeakage float64) models.KeyMetrics {
	km := models.KeyMetrics{TotalOrders: len(rows), TotalLeakage: totalLeakage}
	var emissions []float64
	for i := range rows {
		if !rows[i].Delivered() {
			continue
		}
		km.DeliveredOrders++
		km.TotalRevenue += rows[i].Value.Or(0)
		km.TotalCost += rows[i].TotalCost.Or(0)
		if derived[i].Emissions.Valid {
			emissions = append(emissions, derived[i].Emissions.Value)
		}
	}
	if km.TotalRevenue > 0 {
		km.ProfitMarginPct = (km.TotalRevenue - km.TotalCost) / km.TotalRevenue * 100
	}
	if mean, ok := stats.Mean(emissions); ok {
		km.AvgEmissionsKg = mean
	}
	return km
}

// SustainabilityScenarios compares current total emissions with an
// optimized scenario at the given reduction percentage.
func SustainabilityScenarios(rows []models.UnifiedOrder, derived []models.OrderMetrics, reductionPct float64) models.SustainabilityScenario {
	var total float64
	count := 0
	for i := range rows {
		if rows[i].Delivered() && derived[i].Emissions.Valid {
			total += derived[i].Emissions.Value
			count++
		}
	}
	scenario := models.SustainabilityScenario{
		TotalCO2Kg:   total,
		ReductionPct: reductionPct,
	}
	if count > 0 {
		scenario.CO2PerOrderKg = total / float64(count)
	}
	scenario.OptimizedCO2Kg = total * (1 - reductionPct/100)
	return scenario
}
