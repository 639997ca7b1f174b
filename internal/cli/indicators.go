package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"EconDash/internal/di"
	"EconDash/internal/domain/models"
	"EconDash/internal/store"
	xhttp "EconDash/pkg/http"
	xutil "EconDash/pkg/util"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show the dashboard summary",
	Args:  cobra.NoArgs,
	RunE:  runSummary,
}

var indicatorsCmd = &cobra.Command{
	Use:   "indicators",
	Short: "List the indicator catalogue",
	Args:  cobra.NoArgs,
	RunE:  runIndicators,
}

var indicatorCmd = &cobra.Command{
	Use:   "indicator CODE",
	Short: "Show the data series of one indicator",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndicator,
}

var trendCmd = &cobra.Command{
	Use:   "trend CODE",
	Short: "Show the trend analysis of one indicator",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrend,
}

var compareCmd = &cobra.Command{
	Use:   "compare CODE...",
	Short: "Compare several indicators over a date range",
	Long: `Compare several indicators. Dates are YYYY-MM-DD.

Examples:
  econdash compare GDP CPI
  econdash compare GDP CPI --start 2023-01-01 --end 2023-12-31`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(summaryCmd, indicatorsCmd, indicatorCmd, trendCmd, compareCmd)

	indicatorCmd.Flags().BoolP("force", "f", false, "ask the service to bypass its cache")
	indicatorCmd.Flags().IntP("last", "n", 20, "number of most recent points to print (0 for all)")
	compareCmd.Flags().String("start", "", "start date (YYYY-MM-DD)")
	compareCmd.Flags().String("end", "", "end date (YYYY-MM-DD)")
}

func runSummary(cmd *cobra.Command, args []string) error {
	return withCore(cmd, func(ctx context.Context, core *di.Core) error {
		if err := requireLogin(core); err != nil {
			return err
		}
		core.Indicators.FetchSummary(ctx)
		if err := core.Indicators.Op(store.OpSummary).Err; err != nil {
			if xhttp.IsUnauthorized(err) {
				return err
			}
			out(cmd).warn("summary not refreshed: %s", xhttp.Message(err))
		}

		rows := core.Indicators.Summary()
		cells := make([][]string, 0, len(rows))
		for _, r := range rows {
			cells = append(cells, []string{
				r.Code, r.Name, floatCell(r.Value), floatCell(r.Change), trendCell(r.Trend), strCell(r.Unit), strCell(r.LatestDate),
			})
		}
		return out(cmd).table(rows, []string{"Code", "Name", "Value", "Change", "Trend", "Unit", "Date"}, cells)
	})
}

func runIndicators(cmd *cobra.Command, args []string) error {
	return withCore(cmd, func(ctx context.Context, core *di.Core) error {
		if err := requireLogin(core); err != nil {
			return err
		}
		if err := core.Indicators.FetchIndicators(ctx); err != nil {
			return err
		}
		rows := core.Indicators.Catalogue()
		cells := make([][]string, 0, len(rows))
		for _, r := range rows {
			cells = append(cells, []string{
				r.Code, r.Name, r.Category, strCell(r.Unit), strCell(r.UpdateFrequency), r.DataSource,
			})
		}
		return out(cmd).table(rows, []string{"Code", "Name", "Category", "Unit", "Frequency", "Source"}, cells)
	})
}

func runIndicator(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")
	last, _ := cmd.Flags().GetInt("last")

	return withCore(cmd, func(ctx context.Context, core *di.Core) error {
		if err := requireLogin(core); err != nil {
			return err
		}
		data, err := core.Indicators.FetchIndicatorData(ctx, args[0], force)
		if err != nil {
			return err
		}

		p := out(cmd)
		if p.asJSON {
			return p.json(data)
		}
		fmt.Fprintf(p.out, "%s (%s)  latest %s %s  change %s%%\n\n",
			data.IndicatorName, data.IndicatorCode, floatCell(data.LatestValue), strCell(data.Unit), floatCell(data.ChangePercent))

		points := data.Points
		if last > 0 && len(points) > last {
			points = points[len(points)-last:]
		}
		cells := make([][]string, 0, len(points))
		for _, pt := range points {
			cells = append(cells, []string{pt.Date.Format("2006-01-02"), strconv.FormatFloat(pt.Value, 'f', -1, 64)})
		}
		return p.table(points, []string{"Date", "Value"}, cells)
	})
}

func runTrend(cmd *cobra.Command, args []string) error {
	return withCore(cmd, func(ctx context.Context, core *di.Core) error {
		if err := requireLogin(core); err != nil {
			return err
		}
		t, err := core.Indicators.FetchTrend(ctx, args[0])
		if err != nil {
			return err
		}

		p := out(cmd)
		if p.asJSON {
			return p.json(t)
		}
		rows := [][]string{
			{"trend", trendCell(t.Trend)},
			{"change %", strconv.FormatFloat(t.ChangePercent, 'f', 2, 64)},
			{"MA 7", floatCell(t.MovingAverage7)},
			{"MA 30", floatCell(t.MovingAverage30)},
		}
		if t.Prediction != nil {
			rows = append(rows,
				[]string{"prediction", floatCell(t.Prediction.PredictedValue)},
				[]string{"prediction trend", trendCell(t.Prediction.Trend)},
				[]string{"confidence", t.Prediction.Confidence},
			)
		}
		fmt.Fprintf(p.out, "%s\n", t.IndicatorCode)
		return p.table(t, []string{"Metric", "Value"}, rows)
	})
}

func runCompare(cmd *cobra.Command, args []string) error {
	req := models.CompareRequest{Codes: args}
	if cmd.Flags().Changed("start") {
		s, _ := cmd.Flags().GetString("start")
		req.StartDate = &s
	}
	if cmd.Flags().Changed("end") {
		e, _ := cmd.Flags().GetString("end")
		req.EndDate = &e
	}
	if req.StartDate != nil && req.EndDate != nil {
		start, okStart := xutil.ParseDate(*req.StartDate)
		end, okEnd := xutil.ParseDate(*req.EndDate)
		if okStart && okEnd && start.After(end) {
			return fmt.Errorf("--start %s is after --end %s", *req.StartDate, *req.EndDate)
		}
	}

	return withCore(cmd, func(ctx context.Context, core *di.Core) error {
		if err := requireLogin(core); err != nil {
			return err
		}
		doc, err := core.Indicators.Compare(ctx, req)
		if err != nil {
			if xhttp.IsValidation(err) {
				return fmt.Errorf("invalid comparison: %s", validationSummary(err))
			}
			return err
		}
		return out(cmd).raw(doc)
	})
}
