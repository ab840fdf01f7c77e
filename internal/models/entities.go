package models

import (
	"time"
)

// Delivery statuses as they appear in delivery_performance records.
const (
	StatusOnTime     = "On Time"
	StatusMinorDelay = "Minor Delay"
	StatusDelayed    = "Delayed"
)

// Order statuses.
const (
	OrderDelivered = "Delivered"
	OrderInTransit = "In Transit"
	OrderPending   = "Pending"
	OrderCancelled = "Cancelled"
)

// Cost categories recognized in cost_breakdown records.
const (
	CostFuel        = "Fuel"
	CostLabor       = "Labor"
	CostMaintenance = "Maintenance"
	CostInsurance   = "Insurance"
	CostPackaging   = "Packaging"
	CostPlatformFee = "Platform Fee"
	CostOverhead    = "Overhead"
)

// SentinelUnknown marks a categorical value that could not be imputed.
const SentinelUnknown = "Unknown"

// Order is a customer shipment request. Recent orders may miss financial
// or date fields; those stay null through the pipeline.
type Order struct {
	ID          string               `json:"order_id"`
	PlacedAt    Null[time.Time]      `json:"order_date"`
	CustomerID  string               `json:"customer_id"`
	Segment     string               `json:"customer_segment"`
	Origin      string               `json:"origin_warehouse"`
	Destination string               `json:"destination_city"`
	RouteID     Null[string]         `json:"route_id"`
	Carrier     Null[string]         `json:"carrier"`
	Priority    string               `json:"priority"`
	Category    string               `json:"product_category"`
	WeightKg    Null[float64]        `json:"weight_kg"`
	Value       Null[float64]        `json:"order_value"`
	VehicleID   Null[string]         `json:"vehicle_assigned"`
	Status      string               `json:"status"`
}

// DeliveryRecord is the fulfillment outcome for one order. Undelivered
// orders have no record.
type DeliveryRecord struct {
	OrderID        string        `json:"order_id"`
	PromisedDays   Null[float64] `json:"promised_days"`
	ActualDays     Null[float64] `json:"actual_days"`
	Status         string        `json:"delivery_status"`
	QualityIssue   Null[bool]    `json:"quality_issue"`
	DamageReported Null[bool]    `json:"damage_reported"`
	Rating         Null[float64] `json:"customer_rating"`
	Cost           Null[float64] `json:"delivery_cost"`
}

// Route is a lane between an origin warehouse and a destination city
// served by one carrier.
type Route struct {
	ID              string        `json:"route_id"`
	Origin          string        `json:"origin_warehouse"`
	Destination     string        `json:"destination_city"`
	Carrier         string        `json:"carrier"`
	DistanceKm      Null[float64] `json:"distance_km"`
	FuelL           Null[float64] `json:"fuel_consumption_l"`
	TollCost        Null[float64] `json:"toll_cost"`
	TrafficDelayMin Null[float64] `json:"avg_traffic_delay_min"`
	WeatherImpact   Null[bool]    `json:"weather_impact"`
}

// Vehicle is one unit of the fleet.
type Vehicle struct {
	ID             string        `json:"vehicle_id"`
	Type           string        `json:"vehicle_type"`
	CapacityKg     Null[float64] `json:"capacity_kg"`
	FuelEfficiency Null[float64] `json:"fuel_efficiency_kmpl"`
	CO2PerKm       Null[float64] `json:"co2_per_km"`
	Status         string        `json:"status"`
}

// CostItem is one cost component attributed to an order.
type CostItem struct {
	OrderID  string        `json:"order_id"`
	Category string        `json:"cost_category"`
	Amount   Null[float64] `json:"amount"`
}

// InventoryRecord is an auxiliary warehouse stock entry, joined
// opportunistically when present.
type InventoryRecord struct {
	WarehouseID       string        `json:"warehouse_id"`
	SKU               string        `json:"product_sku"`
	Category          string        `json:"product_category"`
	Quantity          Null[float64] `json:"quantity_on_hand"`
	UnitValue         Null[float64] `json:"unit_value"`
	StorageCostPerDay Null[float64] `json:"storage_cost_per_day"`
	DaysInStorage     Null[float64] `json:"days_in_storage"`
}

// FeedbackRecord is an auxiliary customer feedback entry.
type FeedbackRecord struct {
	ID             string          `json:"feedback_id"`
	OrderID        string          `json:"order_id"`
	Rating         Null[float64]   `json:"rating"`
	WouldRecommend Null[bool]      `json:"would_recommend"`
	Date           Null[time.Time] `json:"feedback_date"`
}

// Dataset holds one loaded snapshot of all entity tables. Downstream
// stages treat it as read-only; recomputation starts from a fresh copy.
type Dataset struct {
	Orders     []Order
	Deliveries []DeliveryRecord
	Routes     []Route
	Vehicles   []Vehicle
	CostItems  []CostItem
	Inventory  []InventoryRecord
	Feedback   []FeedbackRecord
}

// Warning is a recovered data-quality or join issue. Warnings are logged
// and carried on the result, never fatal.
type Warning struct {
	Entity string `json:"entity"`
	Key    string `json:"key"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}
