package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marketsync/marketsync/journal"
)

var (
	btPeriod    string
	btThreshold float64
	btDBPath    string
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run the long/flat simulation over held-out history",
	Long: `Backtest trains the classifier on the first 80% of history and
simulates the threshold rule over the remaining suffix, comparing the
strategy curve against buy-and-hold.

Example:
  marketsync backtest --period 5y --threshold 0.5 --db ./runs.sqlite`,
	RunE: runBacktest,
}

func init() {
	rootCmd.AddCommand(backtestCmd)
	backtestCmd.Flags().StringVarP(&btPeriod, "period", "p", "5y", "data period (1y, 2y, 5y, 10y)")
	backtestCmd.Flags().Float64VarP(&btThreshold, "threshold", "t", 0.5, "probability cutoff in [0.3, 0.7]")
	backtestCmd.Flags().StringVarP(&btDBPath, "db", "d", "", "SQLite journal path (overrides config)")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg.Server.LogLevel)

	pipe, err := buildPipeline(cfg, log)
	if err != nil {
		return err
	}

	report, err := pipe.Backtest(context.Background(), btPeriod, btThreshold)
	if err != nil {
		return err
	}

	fmt.Printf("Backtest complete (%s, threshold %.2f)\n", btPeriod, btThreshold)
	fmt.Printf("  Train rows:       %d\n", report.TrainRows)
	fmt.Printf("  Eval rows:        %d\n", report.EvalRows)
	fmt.Printf("  Invested days:    %d\n", report.InvestedDays)
	fmt.Printf("  Strategy return:  %+.2f%%\n", report.StrategyReturnPct)
	fmt.Printf("  Buy-and-hold:     %+.2f%%\n", report.MarketReturnPct)
	fmt.Printf("  Signals:          %d\n", len(report.Signals))

	dbPath := btDBPath
	if dbPath == "" {
		dbPath = cfg.Journal.DBPath
	}
	if dbPath == "" {
		return nil
	}

	j, err := journal.NewSQLite(dbPath)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	run := journal.Run{
		RunID:             journal.NewRunID(),
		Created:           time.Now(),
		Period:            btPeriod,
		Threshold:         btThreshold,
		Split:             cfg.Backtest.TrainSplit,
		TrainRows:         report.TrainRows,
		EvalRows:          report.EvalRows,
		StrategyReturnPct: report.StrategyReturnPct,
		MarketReturnPct:   report.MarketReturnPct,
		InvestedDays:      report.InvestedDays,
	}
	if err := j.RecordRun(run, report.Records); err != nil {
		return fmt.Errorf("journal run: %w", err)
	}
	fmt.Printf("  Journaled as:     %s\n", run.RunID)
	return nil
}
