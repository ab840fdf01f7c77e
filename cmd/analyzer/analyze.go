package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nexgen-logistics/cost-intelligence/internal/config"
	"github.com/nexgen-logistics/cost-intelligence/internal/influxdb"
	"github.com/nexgen-logistics/cost-intelligence/internal/logging"
	"github.com/nexgen-logistics/cost-intelligence/internal/pipeline"
	"github.com/nexgen-logistics/cost-intelligence/internal/store"
)

type analyzeOptions struct {
	dataDir    string
	configPath string
	source     string
	export     bool
	regions    []string
	priorities []string
	carriers   []string
	topN       int
}

func newAnalyzeCmd() *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run the analytics pipeline once and print the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.dataDir, "data-dir", "data", "directory containing the entity CSV files")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "optional YAML configuration file")
	cmd.Flags().StringVar(&opts.source, "source", "csv", "entity source: csv or kafka")
	cmd.Flags().BoolVar(&opts.export, "export", false, "export derived tables to InfluxDB")
	cmd.Flags().StringSliceVar(&opts.regions, "region", nil, "filter by origin warehouse")
	cmd.Flags().StringSliceVar(&opts.priorities, "priority", nil, "filter by priority tier")
	cmd.Flags().StringSliceVar(&opts.carriers, "carrier", nil, "filter by carrier")
	cmd.Flags().IntVar(&opts.topN, "top", 5, "number of recommendations to display")
	return cmd
}

func runAnalyze(ctx context.Context, out io.Writer, opts *analyzeOptions) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Sync()

	var src store.Source
	switch opts.source {
	case "csv":
		src = store.NewDirSource(opts.dataDir, logger)
	case "kafka":
		src = store.NewKafkaSource(cfg.Kafka, logger)
	default:
		return fmt.Errorf("unknown source %q (want csv or kafka)", opts.source)
	}

	p, err := pipeline.New(cfg, logger)
	if err != nil {
		return err
	}

	snap, err := p.LoadSnapshot(ctx, src)
	if err != nil {
		return err
	}

	result, err := p.Run(snap, pipeline.Filter{
		Regions:    opts.regions,
		Priorities: opts.priorities,
		Carriers:   opts.carriers,
	})
	if err != nil {
		return err
	}

	renderReport(out, result, opts.topN)

	if opts.export {
		if err := exportResult(cfg, result); err != nil {
			logger.Error("export failed", zap.Error(err))
			return err
		}
		fmt.Fprintln(out, "derived tables exported to InfluxDB")
	}
	return nil
}

func exportResult(cfg *config.Config, result *pipeline.Result) error {
	client, err := influxdb.NewClient(cfg.InfluxDB)
	if err != nil {
		return err
	}
	defer client.Close()

	now := time.Now()
	if err := client.WriteOrderMetrics(result.Metrics, now); err != nil {
		return err
	}
	if err := client.WriteCarrierScores(result.CarrierScores, now); err != nil {
		return err
	}
	return client.WriteLeakage(result.Leakage, now)
}

func renderReport(out io.Writer, result *pipeline.Result, topN int) {
	for _, notice := range result.Notices {
		fmt.Fprintf(out, "NOTICE: %s\n", notice)
	}

	km := result.KeyMetrics
	fmt.Fprintf(out, "\nKey metrics (%d orders, %d delivered)\n", km.TotalOrders, km.DeliveredOrders)
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "  revenue\t%.2f\n", km.TotalRevenue)
	fmt.Fprintf(w, "  cost\t%.2f\n", km.TotalCost)
	fmt.Fprintf(w, "  profit margin\t%.1f%%\n", km.ProfitMarginPct)
	fmt.Fprintf(w, "  cost leakage\t%.2f (%.1f%% of cost)\n", result.Leakage.Total, result.Leakage.PctOfCost)
	fmt.Fprintf(w, "  avg CO2/order\t%.1f kg\n", km.AvgEmissionsKg)
	w.Flush()

	if len(result.CarrierScores) > 0 {
		fmt.Fprintln(out, "\nCarrier value scores")
		w = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "  rank\tcarrier\tscore\tcost\tdelivery\tsatisfaction\tsustainability\torders")
		for _, s := range result.CarrierScores {
			fmt.Fprintf(w, "  %d\t%s\t%.1f\t%.1f\t%.1f\t%.1f\t%.1f\t%d\n",
				s.Rank, s.Carrier, s.ValueScore,
				s.CostScore, s.DeliveryScore, s.SatisfactionScore, s.SustainabilityScore,
				s.Orders)
		}
		w.Flush()
	}

	if len(result.Trend) > 0 {
		fmt.Fprintln(out, "\nMonthly revenue vs cost")
		w = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "  month\trevenue\tcost\torders")
		for _, mt := range result.Trend {
			fmt.Fprintf(w, "  %s\t%.2f\t%.2f\t%d\n", mt.Month, mt.Revenue, mt.Cost, mt.Orders)
		}
		w.Flush()
	}

	fmt.Fprintln(out, "\nLeakage breakdown")
	w = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "  delay\t%.2f\n", result.Leakage.Delay)
	fmt.Fprintf(w, "  damage\t%.2f\n", result.Leakage.Damage)
	fmt.Fprintf(w, "  overcharge\t%.2f\n", result.Leakage.Overcharge)
	for _, g := range result.Leakage.ByCarrier {
		fmt.Fprintf(w, "  %s\t%.2f\n", g.Key, g.Total)
	}
	w.Flush()

	if len(result.Recommendations) > 0 {
		fmt.Fprintln(out, "\nRecommendations")
		n := min(topN, len(result.Recommendations))
		for _, rec := range result.Recommendations[:n] {
			fmt.Fprintf(out, "  - %s\n    savings %.0f/yr, risk %s, horizon %s\n",
				rec.Description, rec.AnnualSavings, rec.Risk, rec.Horizon)
		}
	}

	if len(result.Warnings) > 0 {
		fmt.Fprintf(out, "\n%d data-quality warnings (see logs)\n", len(result.Warnings))
	}
}
