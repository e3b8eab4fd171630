package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marketsync/marketsync/journal"
	"github.com/marketsync/marketsync/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard JSON API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg.Server.LogLevel)

	pipe, err := buildPipeline(cfg, log)
	if err != nil {
		return err
	}

	opts := server.Options{
		DefaultThreshold: cfg.Backtest.Threshold,
		TrainSplit:       cfg.Backtest.TrainSplit,
	}
	if cfg.Journal.DBPath != "" {
		j, err := journal.NewSQLite(cfg.Journal.DBPath)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer j.Close()
		opts.Journal = j
	}

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	return server.New(pipe, opts, log).Run(addr)
}
