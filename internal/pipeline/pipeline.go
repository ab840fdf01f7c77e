// Package pipeline wires the analysis stages end to end: load, clean,
// join, derive, score, detect leakage, recommend. The cleaned dataset is
// an immutable snapshot; every recomputation derives a fresh Result from
// it and no stage mutates another stage's output.
package pipeline

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/nexgen-logistics/cost-intelligence/internal/clean"
	"github.com/nexgen-logistics/cost-intelligence/internal/config"
	"github.com/nexgen-logistics/cost-intelligence/internal/join"
	"github.com/nexgen-logistics/cost-intelligence/internal/leakage"
	"github.com/nexgen-logistics/cost-intelligence/internal/metrics"
	"github.com/nexgen-logistics/cost-intelligence/internal/models"
	"github.com/nexgen-logistics/cost-intelligence/internal/recommend"
	"github.com/nexgen-logistics/cost-intelligence/internal/score"
	"github.com/nexgen-logistics/cost-intelligence/internal/store"
)

// EmptyInputError reports a required entity table with zero usable
// records after cleaning. Stages that depend on it return an empty
// result with this notice surfaced instead of failing silently.
type EmptyInputError struct {
	Entity string
}

func (e *EmptyInputError) Error() string {
	return fmt.Sprintf("entity table %q has no usable records after cleaning", e.Entity)
}

// Snapshot is one cleaned, immutable dataset for an analysis session.
type Snapshot struct {
	Data     models.Dataset
	Warnings []models.Warning
}

// Filter restricts a run to a subset of the snapshot. Empty slices match
// everything. Filtering never mutates the snapshot.
type Filter struct {
	Regions    []string
	Priorities []string
	Carriers   []string
}

func (f Filter) matches(o *models.Order) bool {
	if len(f.Regions) > 0 && !slices.Contains(f.Regions, o.Origin) {
		return false
	}
	if len(f.Priorities) > 0 && !slices.Contains(f.Priorities, o.Priority) {
		return false
	}
	if len(f.Carriers) > 0 && !slices.Contains(f.Carriers, o.Carrier.Or("")) {
		return false
	}
	return true
}

// Result carries every derived table of one run, read-only for the
// presentation layer.
type Result struct {
	Unified            []models.UnifiedOrder
	Metrics            []models.OrderMetrics
	CarrierScores      []models.CarrierScore
	Leakage            models.LeakageReport
	Recommendations    []models.Recommendation
	CarrierPerformance []models.CarrierPerformance
	RouteCosts         []models.RouteCost
	CategorySpend      []models.CategorySpend
	Trend              []models.MonthlyTrend
	KeyMetrics         models.KeyMetrics
	Sustainability     models.SustainabilityScenario
	Warnings           []models.Warning
	Notices            []string
}

// Pipeline runs the analysis stages over a snapshot.
type Pipeline struct {
	cfg *config.Config
	log *zap.Logger
}

// New validates the configuration and returns a Pipeline.
func New(cfg *config.Config, log *zap.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Pipeline{cfg: cfg, log: log}, nil
}

// LoadSnapshot loads all entity tables from src and cleans them. The
// returned snapshot is read-only for all subsequent runs.
func (p *Pipeline) LoadSnapshot(ctx context.Context, src store.Source) (*Snapshot, error) {
	ds, warns, err := src.Load(ctx)
	if err != nil {
		return nil, err
	}
	cleaned, cleanWarns := clean.New(p.log).Clean(ds)
	p.log.Info("snapshot loaded",
		zap.Int("orders", len(cleaned.Orders)),
		zap.Int("deliveries", len(cleaned.Deliveries)),
		zap.Int("routes", len(cleaned.Routes)),
		zap.Int("vehicles", len(cleaned.Vehicles)),
		zap.Int("cost_items", len(cleaned.CostItems)),
		zap.Int("warnings", len(warns)+len(cleanWarns)),
	)
	return &Snapshot{Data: cleaned, Warnings: append(warns, cleanWarns...)}, nil
}

// Run recomputes every derived table from the snapshot under the given
// filter. Stage-local data issues are absorbed as warnings; an invalid
// weight set surfaces as a ConfigurationError and produces no tables.
func (p *Pipeline) Run(snap *Snapshot, filter Filter) (*Result, error) {
	scorer, err := score.New(p.cfg.Analytics)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	result.Warnings = append(result.Warnings, snap.Warnings...)

	data := snap.Data
	data.Orders = filtered(snap.Data.Orders, filter)

	if len(data.Orders) == 0 {
		notice := &EmptyInputError{Entity: store.EntityOrders}
		result.Notices = append(result.Notices, notice.Error())
		p.log.Warn("empty input", zap.String("entity", store.EntityOrders))
		return result, nil
	}

	// Deliveries and routes have no fallback: without them the derived
	// metrics degrade to nulls, which deserves a surfaced notice.
	for _, t := range []struct {
		entity string
		count  int
	}{
		{store.EntityDeliveries, len(data.Deliveries)},
		{store.EntityRoutes, len(data.Routes)},
	} {
		if t.count == 0 {
			notice := &EmptyInputError{Entity: t.entity}
			result.Notices = append(result.Notices, notice.Error())
			p.log.Warn("empty input", zap.String("entity", t.entity))
		}
	}

	unified, joinWarns := join.New(p.cfg.Analytics, p.log).Join(data)
	result.Unified = unified
	result.Warnings = append(result.Warnings, joinWarns...)

	derived := metrics.New(p.cfg.Analytics).Derive(unified)
	result.Metrics = derived

	aggs := metrics.AggregateByCarrier(unified, derived)
	if len(aggs) == 0 {
		notice := &EmptyInputError{Entity: "carriers"}
		result.Notices = append(result.Notices, notice.Error())
		p.log.Warn("no carriers to score")
	} else {
		result.CarrierScores = scorer.Score(aggs)
	}

	result.Leakage = leakage.New(p.cfg.Analytics).Detect(unified, derived)
	result.Recommendations = recommend.New(p.cfg.Analytics).Generate(result.CarrierScores, unified, derived)

	result.CarrierPerformance = metrics.CarrierPerformanceTable(unified, derived)
	result.RouteCosts = metrics.RouteCostAnalysis(unified, derived)
	result.CategorySpend = metrics.CostByCategory(unified)
	result.Trend = metrics.RevenueCostTrend(unified)
	result.KeyMetrics = metrics.KeyBusinessMetrics(unified, derived, result.Leakage.Total)
	result.Sustainability = metrics.SustainabilityScenarios(unified, derived, p.cfg.Analytics.SustainabilityReductionPct)

	p.log.Info("pipeline run complete",
		zap.Int("orders", len(unified)),
		zap.Int("carriers", len(result.CarrierScores)),
		zap.Int("recommendations", len(result.Recommendations)),
		zap.Float64("total_leakage", result.Leakage.Total),
	)
	return result, nil
}

func filtered(orders []models.Order, filter Filter) []models.Order {
	out := make([]models.Order, 0, len(orders))
	for i := range orders {
		if filter.matches(&orders[i]) {
			out = append(out, orders[i])
		}
	}
	return out
}
