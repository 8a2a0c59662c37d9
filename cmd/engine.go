package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/gogobubbles/leadops/internal/config"
	"github.com/gogobubbles/leadops/internal/domain/evaluation"
	"github.com/gogobubbles/leadops/internal/domain/model"
	"github.com/gogobubbles/leadops/internal/domain/rules"
	"github.com/gogobubbles/leadops/internal/domain/staffing"
	"github.com/gogobubbles/leadops/internal/domain/takeover"
)

func newEvaluateCmd() *cobra.Command {
	var (
		input string
		now   string
	)
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a lead from a JSON snapshot",
		Long:  "Evaluate a lead from a JSON snapshot of oversight jobs, check-ins, lead ratings and personal jobs. Prints the evaluation as JSON.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := loadRules(cmd)
			if err != nil {
				return err
			}
			var in evaluation.Input
			if err := readJSON(cmd, input, &in); err != nil {
				return err
			}
			if now != "" {
				t, err := time.Parse(time.RFC3339, now)
				if err != nil {
					return fmt.Errorf("invalid --now: %w", err)
				}
				in.Now = t
			}
			if in.Now.IsZero() {
				in.Now = time.Now().UTC()
			}
			return writeJSON(cmd, evaluation.Evaluate(r, in))
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "-", "Path to the snapshot JSON, - for stdin")
	cmd.Flags().StringVar(&now, "now", "", "Evaluation time (RFC3339); overrides the snapshot")
	return cmd
}

func newQuoteCmd() *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Size a crew and price its tasks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := loadRules(cmd)
			if err != nil {
				return err
			}
			var in staffing.QuoteInput
			if err := readJSON(cmd, input, &in); err != nil {
				return err
			}
			if err := validator.New(validator.WithRequiredStructEnabled()).Struct(in); err != nil {
				return fmt.Errorf("invalid quote input: %w", err)
			}
			est, err := staffing.Quote(r, in)
			if err != nil {
				return err
			}
			return writeJSON(cmd, est)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "-", "Path to the quote JSON, - for stdin")
	return cmd
}

type compensateOutput struct {
	Category     model.Category           `json:"category"`
	Compensation model.CompensationResult `json:"compensation"`
}

func newCompensateCmd() *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "compensate",
		Short: "Classify and price one intervention",
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := loadRules(cmd)
			if err != nil {
				return err
			}
			var e model.JobInterventionEvent
			if err := readJSON(cmd, input, &e); err != nil {
				return err
			}
			if err := takeover.ValidateEvent(&e); err != nil {
				return err
			}
			category, res, err := takeover.Settle(r, &e)
			if err != nil {
				return err
			}
			return writeJSON(cmd, compensateOutput{Category: category, Compensation: res})
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "-", "Path to the intervention JSON, - for stdin")
	return cmd
}

func loadRules(cmd *cobra.Command) (rules.Rules, error) {
	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return rules.Rules{}, err
	}
	return cfg.Rules, nil
}

func readJSON(cmd *cobra.Command, path string, v any) error {
	var src io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer func() { _ = f.Close() }()
		src = f
	}
	dec := json.NewDecoder(src)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("failed to decode input: %w", err)
	}
	return nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
