// Package influxdb exports derived tables to InfluxDB for external
// dashboards. The sink is write-only: derived state is still recomputed
// from the snapshot every session and never read back.
package influxdb

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nexgen-logistics/cost-intelligence/internal/config"
	"github.com/nexgen-logistics/cost-intelligence/internal/models"
)

// Client wraps an InfluxDB v2 write API.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	config   config.InfluxDBConfig
}

// NewClient initializes the InfluxDB v2 client and verifies connectivity.
func NewClient(cfg config.InfluxDBConfig) (*Client, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	writeAPI := client.WriteAPI(cfg.Org, cfg.Bucket)

	if _, err := client.Health(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to InfluxDB: %w", err)
	}

	return &Client{
		client:   client,
		writeAPI: writeAPI,
		config:   cfg,
	}, nil
}

// WriteOrderMetrics writes one point per order with its derived metrics.
// Null metrics are omitted from the point's fields.
func (c *Client) WriteOrderMetrics(metrics []models.OrderMetrics, timestamp time.Time) error {
	for _, m := range metrics {
		fields := map[string]interface{}{}
		addField(fields, "cost_per_km", m.CostPerDistance)
		addField(fields, "profit_margin", m.ProfitMargin)
		addField(fields, "cost_of_inefficiency", m.CostOfInefficiency)
		addField(fields, "revenue_per_km", m.RevenuePerDistance)
		addField(fields, "co2_emissions_kg", m.Emissions)
		if len(fields) == 0 {
			continue
		}

		point := write.NewPoint(
			"order_metrics",
			map[string]string{
				"order_id":    m.OrderID,
				"carrier":     m.Carrier.Or(models.SentinelUnknown),
				"origin":      m.Segment.Origin,
				"destination": m.Segment.Destination,
			},
			fields,
			timestamp,
		)
		c.writeAPI.WritePoint(point)
	}
	return nil
}

// WriteCarrierScores writes the ranked carrier score table.
func (c *Client) WriteCarrierScores(scores []models.CarrierScore, timestamp time.Time) error {
	for _, s := range scores {
		point := write.NewPoint(
			"carrier_scores",
			map[string]string{
				"carrier": s.Carrier,
			},
			map[string]interface{}{
				"carrier_value_score":  s.ValueScore,
				"cost_score":           s.CostScore,
				"delivery_score":       s.DeliveryScore,
				"satisfaction_score":   s.SatisfactionScore,
				"sustainability_score": s.SustainabilityScore,
				"rank":                 s.Rank,
				"orders":               s.Orders,
			},
			timestamp,
		)
		c.writeAPI.WritePoint(point)
	}
	return nil
}

// WriteLeakage writes the aggregate leakage breakdown and the per-carrier
// groups.
func (c *Client) WriteLeakage(report models.LeakageReport, timestamp time.Time) error {
	point := write.NewPoint(
		"cost_leakage",
		map[string]string{},
		map[string]interface{}{
			"delay_leakage":      report.Delay,
			"damage_leakage":     report.Damage,
			"overcharge_leakage": report.Overcharge,
			"total_leakage":      report.Total,
			"total_cost":         report.TotalCost,
			"pct_of_cost":        report.PctOfCost,
		},
		timestamp,
	)
	c.writeAPI.WritePoint(point)

	for _, group := range report.ByCarrier {
		point := write.NewPoint(
			"cost_leakage_by_carrier",
			map[string]string{
				"carrier": group.Key,
			},
			map[string]interface{}{
				"delay_leakage":      group.Delay,
				"damage_leakage":     group.Damage,
				"overcharge_leakage": group.Overcharge,
				"total_leakage":      group.Total,
			},
			timestamp,
		)
		c.writeAPI.WritePoint(point)
	}
	return nil
}

// Close flushes pending writes and closes the client.
func (c *Client) Close() {
	c.writeAPI.Flush()
	c.client.Close()
}

func addField(fields map[string]interface{}, name string, v models.Null[float64]) {
	if v.Valid {
		fields[name] = v.Value
	}
}
