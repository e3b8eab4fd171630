package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var predictPeriod string

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Print the next-day direction prediction",
	RunE:  runPredict,
}

func init() {
	rootCmd.AddCommand(predictCmd)
	predictCmd.Flags().StringVarP(&predictPeriod, "period", "p", "5y", "data period (1y, 2y, 5y, 10y)")
}

func runPredict(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg.Server.LogLevel)

	pipe, err := buildPipeline(cfg, log)
	if err != nil {
		return err
	}

	pred, err := pipe.Predict(context.Background(), predictPeriod)
	if err != nil {
		return err
	}

	fmt.Printf("Prediction for the day after %s: %s\n", pred.AsOf.Format("2006-01-02"), pred.Direction)
	fmt.Printf("  Confidence:          %.1f%%\n", pred.Probability*100)
	fmt.Printf("  In-sample accuracy:  %.1f%%\n", pred.Accuracy*100)
	fmt.Println("  Feature importance:")

	type kv struct {
		name   string
		weight float64
	}
	ranked := make([]kv, 0, len(pred.Importance))
	for name, weight := range pred.Importance {
		ranked = append(ranked, kv{name, weight})
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].weight > ranked[j].weight })
	for _, r := range ranked {
		fmt.Printf("    %-20s %.3f\n", r.name, r.weight)
	}
	return nil
}
