package main

import (
	"fmt"
	"math"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"space-emissions/internal/api"
	"space-emissions/internal/geo"
	"space-emissions/internal/methods"
	"space-emissions/internal/types"
)

var runFlags struct {
	method    string
	pollutant string
	region    string
	start     string
	end       string
}

// runCmd estimates emissions for a region and period
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Estimate emissions for a region and period",
	Long: `Run one estimation method over a region and period and print the
resulting emission totals. The run is also persisted, so the dashboard
can replay it later.`,
	RunE: runCalculation,
}

func init() {
	runCmd.Flags().StringVar(&runFlags.method, "method", "", "Estimation method (see the API's /methods) (required)")
	runCmd.Flags().StringVar(&runFlags.pollutant, "pollutant", "", "Pollutant, e.g. NOx (required)")
	runCmd.Flags().StringVar(&runFlags.region, "region", "", "Path to a GeoJSON region file (required)")
	runCmd.Flags().StringVar(&runFlags.start, "start", "", "First day, e.g. 2019-06-01 (required)")
	runCmd.Flags().StringVar(&runFlags.end, "end", "", "Last day, e.g. 2019-06-30 (required)")
	for _, f := range []string{"method", "pollutant", "region", "start", "end"} {
		_ = runCmd.MarkFlagRequired(f)
	}
}

func runCalculation(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadEnv()
	if err != nil {
		return err
	}
	st, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		_ = st.Close()
	}()

	calculators := api.BuildCalculators(cfg, st, logger)
	calc, ok := calculators[runFlags.method]
	if !ok {
		return fmt.Errorf("unknown method %q", runFlags.method)
	}
	pollutant, err := types.ParsePollutant(runFlags.pollutant)
	if err != nil {
		return err
	}
	region, err := geo.LoadRegion(runFlags.region)
	if err != nil {
		return err
	}
	period, err := types.NewDateRange(runFlags.start, runFlags.end)
	if err != nil {
		return err
	}
	if err := methods.Validate(calc, region, period, pollutant); err != nil {
		return err
	}

	regionJSON, err := os.ReadFile(runFlags.region)
	if err != nil {
		return err
	}
	id, err := st.CreateRun(cmd.Context(), calc.Name(), pollutant, regionJSON, period)
	if err != nil {
		return err
	}

	result, err := calc.Run(cmd.Context(), region, period, pollutant)
	if err != nil {
		if failErr := st.FailRun(cmd.Context(), id, err); failErr != nil {
			logger.Error("failed to record run failure", "run_id", id, "error", failErr)
		}
		return err
	}
	if err := st.FinishRun(cmd.Context(), id, result); err != nil {
		return err
	}

	printResult(cmd, id, pollutant, result)
	return nil
}

func printResult(cmd *cobra.Command, id string, pollutant types.Pollutant, result *methods.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s\n", id)
	fmt.Fprintf(out, "total %s: %.3f kt (-%.1f%% / +%.1f%%)\n",
		pollutant, result.Total.ValueKt, result.Total.UminPercent, result.Total.UmaxPercent)

	if result.Table == nil {
		return
	}
	w := tabwriter.NewWriter(out, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "sector\tkt\tumin\tumax")
	for _, sector := range types.Sectors() {
		row := result.Table.Row(sector)
		if math.IsNaN(row.ValueKt) {
			continue
		}
		fmt.Fprintf(w, "%s\t%.3f\t%.1f%%\t%.1f%%\n", sector, row.ValueKt, row.UminPercent, row.UmaxPercent)
	}
	_ = w.Flush()
}
