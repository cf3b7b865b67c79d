package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/aristath/allocator/internal/modules/optimization"
	"github.com/aristath/allocator/pkg/logger"
	"github.com/google/subcommands"
)

type allocateCmd struct {
	file     string
	json     bool
	logLevel string
}

func (*allocateCmd) Name() string     { return "allocate" }
func (*allocateCmd) Synopsis() string { return "compute Black-Litterman weights for a problem file" }
func (*allocateCmd) Usage() string {
	return `blallocate allocate -f <problem.yaml> [-json]

  Reads a YAML problem (covariance, market weights and views) and prints the
  posterior returns and max-Sharpe weights.
`
}

func (c *allocateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.file, "f", "", "problem file (YAML)")
	f.BoolVar(&c.json, "json", false, "print the full result as JSON")
	f.StringVar(&c.logLevel, "log", "warn", "log level")
}

func (c *allocateCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if c.file == "" {
		fmt.Fprintln(os.Stderr, "Error: -f is required")
		return subcommands.ExitUsageError
	}

	problem, err := LoadProblem(c.file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	req, err := problem.Request()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	log := logger.New(logger.Config{Level: c.logLevel, Pretty: true, Output: os.Stderr})
	result, err := optimization.NewAllocator(optimization.DefaultConfig(), log).Allocate(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	if err := printResult(os.Stdout, result, req.MarketWeights, c.json); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// printResult writes a per-asset table or, with asJSON, the whole result.
func printResult(w io.Writer, result *optimization.Result, marketWeights []float64, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "asset\tequilibrium\tposterior\tmarket\tweight\tchange\t")
	for i, asset := range result.Assets {
		fmt.Fprintf(tw, "%s\t%.4f\t%.4f\t%.4f\t%.4f\t%+.4f\t\n",
			asset,
			result.ImpliedEquilibriumReturns.Values[i],
			result.PosteriorExpectedReturns.Values[i],
			marketWeights[i],
			result.Weights.Values[i],
			result.Weights.Values[i]-marketWeights[i],
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\nomega method %s, risk aversion %g, tau %g\n", result.OmegaMethod, result.RiskAversion, result.Tau)
	return err
}
