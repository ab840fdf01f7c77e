package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nexgen-logistics/cost-intelligence/internal/models"
)

// Accepted date layouts, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// DirSource reads the entity tables from delimited files in a directory.
type DirSource struct {
	dir string
	log *zap.Logger
}

// NewDirSource returns a Source over dir.
func NewDirSource(dir string, log *zap.Logger) *DirSource {
	return &DirSource{dir: dir, log: log}
}

// Load reads every entity file. The orders table is required; any other
// missing file yields an empty table and a warning. The auxiliary
// inventory and feedback tables are silently optional.
func (s *DirSource) Load(_ context.Context) (models.Dataset, []models.Warning, error) {
	var (
		ds    models.Dataset
		warns []models.Warning
	)

	orderRows, err := s.readFile(EntityOrders)
	if err != nil {
		return ds, nil, fmt.Errorf("load orders: %w", err)
	}
	ds.Orders = decodeOrders(orderRows, &warns, s.log)

	required := []struct {
		entity string
		decode func([]record)
	}{
		{EntityDeliveries, func(rows []record) { ds.Deliveries = decodeDeliveries(rows, &warns, s.log) }},
		{EntityRoutes, func(rows []record) { ds.Routes = decodeRoutes(rows, &warns, s.log) }},
		{EntityVehicles, func(rows []record) { ds.Vehicles = decodeVehicles(rows, &warns, s.log) }},
		{EntityCosts, func(rows []record) { ds.CostItems = decodeCostItems(rows, &warns, s.log) }},
	}
	for _, t := range required {
		rows, err := s.readFile(t.entity)
		if err != nil {
			if os.IsNotExist(err) {
				warns = append(warns, models.Warning{
					Entity: t.entity,
					Reason: "file missing, table loaded empty",
				})
				s.log.Warn("entity file missing", zap.String("entity", t.entity))
				continue
			}
			return ds, nil, fmt.Errorf("load %s: %w", t.entity, err)
		}
		t.decode(rows)
	}

	if rows, err := s.readFile(EntityInventory); err == nil {
		ds.Inventory = decodeInventory(rows, &warns, s.log)
	}
	if rows, err := s.readFile(EntityFeedback); err == nil {
		ds.Feedback = decodeFeedback(rows, &warns, s.log)
	}

	return ds, warns, nil
}

// record is one data row with header-mapped column access.
type record struct {
	cols   map[string]int
	fields []string
}

func (r record) raw(name string) (string, bool) {
	i, ok := r.cols[name]
	if !ok || i >= len(r.fields) {
		return "", false
	}
	v := strings.TrimSpace(r.fields[i])
	if v == "" {
		return "", false
	}
	return v, true
}

func (s *DirSource) readFile(entity string) ([]record, error) {
	f, err := os.Open(filepath.Join(s.dir, entity+".csv"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("read headers: %w", err)
	}
	cols := make(map[string]int, len(headers))
	for i, h := range headers {
		cols[normalizeHeader(h)] = i
	}

	var rows []record
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		rows = append(rows, record{cols: cols, fields: fields})
	}
	return rows, nil
}

// normalizeHeader maps arbitrary header spellings to snake_case keys so
// column names stay a stable contract.
func normalizeHeader(h string) string {
	h = strings.TrimSpace(strings.ToLower(h))
	return strings.ReplaceAll(h, " ", "_")
}

// fieldReader coerces one row's columns to typed values, recording a
// warning for every value that cannot be parsed.
type fieldReader struct {
	entity string
	key    string
	rec    record
	warns  *[]models.Warning
	log    *zap.Logger
}

func (fr fieldReader) warn(field, reason string) {
	*fr.warns = append(*fr.warns, models.Warning{
		Entity: fr.entity,
		Key:    fr.key,
		Field:  field,
		Reason: reason,
	})
	fr.log.Warn("data-quality warning",
		zap.String("entity", fr.entity),
		zap.String("key", fr.key),
		zap.String("field", field),
		zap.String("reason", reason),
	)
}

func (fr fieldReader) str(name string) string {
	v, _ := fr.rec.raw(name)
	return v
}

func (fr fieldReader) nullStr(name string) models.Null[string] {
	if v, ok := fr.rec.raw(name); ok {
		return models.Some(v)
	}
	return models.None[string]()
}

func (fr fieldReader) float(name string) models.Null[float64] {
	v, ok := fr.rec.raw(name)
	if !ok {
		return models.None[float64]()
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		fr.warn(name, fmt.Sprintf("unparseable number %q", v))
		return models.None[float64]()
	}
	return models.Some(f)
}

func (fr fieldReader) boolean(name string) models.Null[bool] {
	v, ok := fr.rec.raw(name)
	if !ok {
		return models.None[bool]()
	}
	b, err := strconv.ParseBool(strings.ToLower(v))
	if err != nil {
		switch strings.ToLower(v) {
		case "yes":
			b = true
		case "no":
			b = false
		default:
			fr.warn(name, fmt.Sprintf("unparseable boolean %q", v))
			return models.None[bool]()
		}
	}
	return models.Some(b)
}

func (fr fieldReader) date(name string) models.Null[time.Time] {
	v, ok := fr.rec.raw(name)
	if !ok {
		return models.None[time.Time]()
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return models.Some(t.UTC())
		}
	}
	fr.warn(name, fmt.Sprintf("unparseable date %q", v))
	return models.None[time.Time]()
}

func decodeOrders(rows []record, warns *[]models.Warning, log *zap.Logger) []models.Order {
	orders := make([]models.Order, 0, len(rows))
	for _, rec := range rows {
		fr := fieldReader{entity: EntityOrders, key: rec.fields[0], rec: rec, warns: warns, log: log}
		id := fr.str("order_id")
		if id == "" {
			fr.warn("order_id", "row without order id skipped")
			continue
		}
		fr.key = id
		orders = append(orders, models.Order{
			ID:          id,
			PlacedAt:    fr.date("order_date"),
			CustomerID:  fr.str("customer_id"),
			Segment:     fr.str("customer_segment"),
			Origin:      fr.str("origin_warehouse"),
			Destination: fr.str("destination_city"),
			RouteID:     fr.nullStr("route_id"),
			Carrier:     fr.nullStr("carrier"),
			Priority:    fr.str("priority"),
			Category:    fr.str("product_category"),
			WeightKg:    fr.float("weight_kg"),
			Value:       fr.float("order_value"),
			VehicleID:   fr.nullStr("vehicle_assigned"),
			Status:      fr.str("status"),
		})
	}
	return orders
}

func decodeDeliveries(rows []record, warns *[]models.Warning, log *zap.Logger) []models.DeliveryRecord {
	out := make([]models.DeliveryRecord, 0, len(rows))
	for _, rec := range rows {
		fr := fieldReader{entity: EntityDeliveries, rec: rec, warns: warns, log: log}
		id := fr.str("order_id")
		if id == "" {
			fr.warn("order_id", "row without order id skipped")
			continue
		}
		fr.key = id
		out = append(out, models.DeliveryRecord{
			OrderID:        id,
			PromisedDays:   fr.float("promised_days"),
			ActualDays:     fr.float("actual_days"),
			Status:         fr.str("delivery_status"),
			QualityIssue:   fr.boolean("quality_issue"),
			DamageReported: fr.boolean("damage_reported"),
			Rating:         fr.float("customer_rating"),
			Cost:           fr.float("delivery_cost"),
		})
	}
	return out
}

func decodeRoutes(rows []record, warns *[]models.Warning, log *zap.Logger) []models.Route {
	out := make([]models.Route, 0, len(rows))
	for _, rec := range rows {
		fr := fieldReader{entity: EntityRoutes, rec: rec, warns: warns, log: log}
		id := fr.str("route_id")
		fr.key = id
		out = append(out, models.Route{
			ID:              id,
			Origin:          fr.str("origin_warehouse"),
			Destination:     fr.str("destination_city"),
			Carrier:         fr.str("carrier"),
			DistanceKm:      fr.float("distance_km"),
			FuelL:           fr.float("fuel_consumption_l"),
			TollCost:        fr.float("toll_cost"),
			TrafficDelayMin: fr.float("avg_traffic_delay_min"),
			WeatherImpact:   fr.boolean("weather_impact"),
		})
	}
	return out
}

func decodeVehicles(rows []record, warns *[]models.Warning, log *zap.Logger) []models.Vehicle {
	out := make([]models.Vehicle, 0, len(rows))
	for _, rec := range rows {
		fr := fieldReader{entity: EntityVehicles, rec: rec, warns: warns, log: log}
		id := fr.str("vehicle_id")
		fr.key = id
		out = append(out, models.Vehicle{
			ID:             id,
			Type:           fr.str("vehicle_type"),
			CapacityKg:     fr.float("capacity_kg"),
			FuelEfficiency: fr.float("fuel_efficiency_kmpl"),
			CO2PerKm:       fr.float("co2_per_km"),
			Status:         fr.str("status"),
		})
	}
	return out
}

func decodeCostItems(rows []record, warns *[]models.Warning, log *zap.Logger) []models.CostItem {
	out := make([]models.CostItem, 0, len(rows))
	for _, rec := range rows {
		fr := fieldReader{entity: EntityCosts, rec: rec, warns: warns, log: log}
		id := fr.str("order_id")
		if id == "" {
			fr.warn("order_id", "cost item without order id skipped")
			continue
		}
		fr.key = id
		out = append(out, models.CostItem{
			OrderID:  id,
			Category: fr.str("cost_category"),
			Amount:   fr.float("amount"),
		})
	}
	return out
}

func decodeInventory(rows []record, warns *[]models.Warning, log *zap.Logger) []models.InventoryRecord {
	out := make([]models.InventoryRecord, 0, len(rows))
	for _, rec := range rows {
		fr := fieldReader{entity: EntityInventory, rec: rec, warns: warns, log: log}
		fr.key = fr.str("product_sku")
		out = append(out, models.InventoryRecord{
			WarehouseID:       fr.str("warehouse_id"),
			SKU:               fr.str("product_sku"),
			Category:          fr.str("product_category"),
			Quantity:          fr.float("quantity_on_hand"),
			UnitValue:         fr.float("unit_value"),
			StorageCostPerDay: fr.float("storage_cost_per_day"),
			DaysInStorage:     fr.float("days_in_storage"),
		})
	}
	return out
}

func decodeFeedback(rows []record, warns *[]models.Warning, log *zap.Logger) []models.FeedbackRecord {
	out := make([]models.FeedbackRecord, 0, len(rows))
	for _, rec := range rows {
		fr := fieldReader{entity: EntityFeedback, rec: rec, warns: warns, log: log}
		fr.key = fr.str("feedback_id")
		out = append(out, models.FeedbackRecord{
			ID:             fr.str("feedback_id"),
			OrderID:        fr.str("order_id"),
			Rating:         fr.float("rating"),
			WouldRecommend: fr.boolean("would_recommend"),
			Date:           fr.date("feedback_date"),
		})
	}
	return out
}
