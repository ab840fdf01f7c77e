package models

// Derived tables. Everything here is computed from a Dataset snapshot and
// never written back onto the source entities.

// UnifiedOrder is one row of the order-centric joined table. The join is
// total on orders: unmatched foreign entities are nil/null, never dropped.
type UnifiedOrder struct {
	Order
	Delivery       *DeliveryRecord
	Route          *Route
	Feedback       *FeedbackRecord
	CostByCategory map[string]float64
	TotalCost      Null[float64]
	CO2PerKm       Null[float64]
}

// Delivered reports whether the order completed delivery.
func (u *UnifiedOrder) Delivered() bool {
	return u.Status == OrderDelivered && u.Delivery != nil
}

// Distance is the joined route distance, null when no route matched.
func (u *UnifiedOrder) Distance() Null[float64] {
	if u.Route == nil {
		return None[float64]()
	}
	return u.Route.DistanceKm
}

// Segment identifies an origin-destination lane.
type Segment struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
}

func (s Segment) String() string {
	return s.Origin + " -> " + s.Destination
}

// OrderMetrics are the per-order derived quantities. Any null required
// input yields a null metric.
type OrderMetrics struct {
	OrderID            string        `json:"order_id"`
	Carrier            Null[string]  `json:"carrier"`
	Segment            Segment       `json:"segment"`
	CostPerDistance    Null[float64] `json:"cost_per_km"`
	ProfitMargin       Null[float64] `json:"profit_margin"`
	DelayPenalty       Null[float64] `json:"delay_penalty"`
	DamageCost         Null[float64] `json:"damage_cost"`
	CostOfInefficiency Null[float64] `json:"cost_of_inefficiency"`
	RevenuePerDistance Null[float64] `json:"revenue_per_km"`
	Emissions          Null[float64] `json:"co2_emissions_kg"`
}

// CarrierScore is one row of the ranked carrier score table.
type CarrierScore struct {
	Carrier             string        `json:"carrier"`
	Orders              int           `json:"orders"`
	AvgCostPerKm        Null[float64] `json:"avg_cost_per_km"`
	OnTimeRate          Null[float64] `json:"on_time_rate"`
	AvgRating           Null[float64] `json:"avg_rating"`
	AvgEmissions        Null[float64] `json:"avg_emissions_kg"`
	CostScore           float64       `json:"cost_score"`
	DeliveryScore       float64       `json:"delivery_score"`
	SatisfactionScore   float64       `json:"satisfaction_score"`
	SustainabilityScore float64       `json:"sustainability_score"`
	ValueScore          float64       `json:"carrier_value_score"`
	Rank                int           `json:"rank"`
}

// OrderLeakage is the per-order leakage classification. All components are
// non-negative and their sum never exceeds the order's total cost.
type OrderLeakage struct {
	OrderID    string  `json:"order_id"`
	Carrier    string  `json:"carrier"`
	Region     string  `json:"region"`
	Delay      float64 `json:"delay_leakage"`
	Damage     float64 `json:"damage_leakage"`
	Overcharge float64 `json:"overcharge_leakage"`
	Total      float64 `json:"total_leakage"`
}

// LeakageGroup aggregates leakage for one carrier or region.
type LeakageGroup struct {
	Key        string  `json:"key"`
	Delay      float64 `json:"delay_leakage"`
	Damage     float64 `json:"damage_leakage"`
	Overcharge float64 `json:"overcharge_leakage"`
	Total      float64 `json:"total_leakage"`
}

// LeakageReport is the full leakage breakdown table.
type LeakageReport struct {
	PerOrder   []OrderLeakage `json:"per_order"`
	ByCarrier  []LeakageGroup `json:"by_carrier"`
	ByRegion   []LeakageGroup `json:"by_region"`
	Delay      float64        `json:"delay_leakage"`
	Damage     float64        `json:"damage_leakage"`
	Overcharge float64        `json:"overcharge_leakage"`
	Total      float64        `json:"total_leakage"`
	TotalCost  float64        `json:"total_cost"`
	PctOfCost  float64        `json:"pct_of_cost"`
}

// Risk tiers and implementation horizons for recommendations.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"

	HorizonImmediate = "immediate"
	HorizonShortTerm = "short-term"
	HorizonLongTerm  = "long-term"
)

// Recommendation is one actionable volume-shift proposal.
type Recommendation struct {
	ID             string  `json:"id"`
	Segment        Segment `json:"segment"`
	FromCarrier    string  `json:"from_carrier"`
	ToCarrier      string  `json:"to_carrier"`
	Description    string  `json:"description"`
	AnnualSavings  float64 `json:"estimated_annual_savings"`
	Risk           string  `json:"risk"`
	Horizon        string  `json:"horizon"`
	ShiftedVolume  float64 `json:"shifted_volume_km"`
	ScoreGap       float64 `json:"score_gap"`
}

// CarrierPerformance is the pre-scoring aggregate view per carrier.
type CarrierPerformance struct {
	Carrier    string        `json:"carrier"`
	Orders     int           `json:"orders"`
	AvgCost    Null[float64] `json:"avg_cost"`
	OnTimeRate Null[float64] `json:"on_time_rate"`
	AvgRating  Null[float64] `json:"avg_rating"`
}

// RouteCost is the per-segment cost analysis row.
type RouteCost struct {
	Segment      Segment       `json:"segment"`
	Orders       int           `json:"orders"`
	AvgCostPerKm Null[float64] `json:"avg_cost_per_km"`
	AvgTotalCost Null[float64] `json:"avg_total_cost"`
}

// MonthlyTrend is revenue vs cost for one order-date month over delivered
// orders. Orders with a null date are excluded, never bucketed.
type MonthlyTrend struct {
	Month   string  `json:"month"`
	Orders  int     `json:"orders"`
	Revenue float64 `json:"revenue"`
	Cost    float64 `json:"cost"`
}

// CategorySpend is total spend for one cost category.
type CategorySpend struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

// KeyMetrics is the headline business summary over delivered orders.
type KeyMetrics struct {
	TotalRevenue     float64 `json:"total_revenue"`
	TotalCost        float64 `json:"total_cost"`
	ProfitMarginPct  float64 `json:"profit_margin_pct"`
	TotalLeakage     float64 `json:"total_leakage"`
	AvgEmissionsKg   float64 `json:"avg_emissions_kg"`
	DeliveredOrders  int     `json:"delivered_orders"`
	TotalOrders      int     `json:"total_orders"`
}

// SustainabilityScenario compares current emissions with an optimized
// scenario at a configured reduction percentage.
type SustainabilityScenario struct {
	TotalCO2Kg     float64 `json:"total_co2_kg"`
	CO2PerOrderKg  float64 `json:"co2_per_order_kg"`
	OptimizedCO2Kg float64 `json:"optimized_co2_kg"`
	ReductionPct   float64 `json:"reduction_pct"`
}
