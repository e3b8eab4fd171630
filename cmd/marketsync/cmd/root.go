package cmd

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/marketsync/marketsync/cache"
	"github.com/marketsync/marketsync/config"
	"github.com/marketsync/marketsync/forest"
	"github.com/marketsync/marketsync/pipeline"
	"github.com/marketsync/marketsync/yahoo"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "marketsync",
	Short: "Predict next-day TOPIX direction from the S&P 500 and USD/JPY",
	Long: `MarketSync predicts the next-day direction of the TOPIX ETF from
US market (S&P 500) and currency (USD/JPY) closes, and backtests a simple
long/flat rule driven by that prediction.

It provides:
  - A dashboard JSON API (prices, prediction, backtest, lead/lag view)
  - One-shot prediction and backtest runs from the command line
  - A SQLite journal of backtest runs for later comparison`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML or JSON)")
}

func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return config.Default(), nil
	}
	return config.LoadFromFile(cfgFile)
}

func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	if lvl, err := logrus.ParseLevel(level); err == nil {
		log.SetLevel(lvl)
	}
	return log
}

// buildPipeline wires provider -> cache -> pipeline from the loaded
// configuration.
func buildPipeline(cfg *config.Config, log *logrus.Logger) (*pipeline.Pipeline, error) {
	client := yahoo.NewClient(cfg.Provider.BaseURL, yahoo.Symbols{
		Foreign:  cfg.Instruments.Foreign,
		Domestic: cfg.Instruments.Domestic,
		Currency: cfg.Instruments.Currency,
	}, log)

	ttl, err := cfg.Provider.ParseCacheTTL()
	if err != nil {
		return nil, fmt.Errorf("cache ttl: %w", err)
	}
	if ttl == 0 {
		ttl = time.Hour
	}

	return pipeline.New(cache.New(client, ttl), pipeline.Options{
		Model: forest.Params{
			Trees:           cfg.Model.Trees,
			MinSamplesSplit: cfg.Model.MinSamplesSplit,
			Seed:            cfg.Model.Seed,
		},
		TrainSplit: cfg.Backtest.TrainSplit,
	}, log), nil
}
