package main

import (
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/gogobubbles/leadops/internal/loadgen"
)

func newLoadgenCmd() *cobra.Command {
	cfg := loadgen.Config{}
	cmd := &cobra.Command{
		Use:   "loadgen",
		Short: "Drive a running service with synthetic interventions",
		Long: "Generate interventions, submit each one several times concurrently, then wait " +
			"until every job is settled and compare the settlements with the local engine.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := loadRules(cmd)
			if err != nil {
				return err
			}
			cfg.Rules = r
			stats, err := loadgen.Run(cmd.Context(), cfg)
			if werr := writeJSON(cmd, stats); werr != nil && err == nil {
				err = werr
			}
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", "http://localhost:9080", "Base URL of the service")
	f.IntVar(&cfg.Jobs, "jobs", 10_000, "Number of distinct interventions")
	f.IntVar(&cfg.Copies, "copies", 2, "Times each intervention is submitted")
	f.IntVar(&cfg.Leads, "leads", 20, "Number of leads the jobs are spread across")
	f.IntVar(&cfg.Workers, "workers", runtime.NumCPU()*2, "Number of concurrent submitters")
	f.DurationVar(&cfg.Timeout, "timeout", 30*time.Second, "HTTP request timeout")
	f.DurationVar(&cfg.Settle, "settle", 2*time.Minute, "How long to wait for settlements")
	f.Uint64Var(&cfg.Seed, "seed", 1, "Generator seed")
	f.StringVar(&cfg.Output, "output", "", "Optional file for the generated interventions")
	return cmd
}
