package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go-sales-dashboard/internal/model"
	"go-sales-dashboard/internal/pipeline"
	"go-sales-dashboard/internal/view"
	"go-sales-dashboard/pkg/utils"

	"github.com/spf13/cobra"
)

var (
	analyticsBy       string
	analyticsSort     string
	analyticsOrder    string
	analyticsCompany  []string
	analyticsModel    []string
	analyticsYear     []string
	analyticsMonth    []string
	analyticsMinCount float64
	analyticsMinTotal float64
	analyticsSelect   string
	analyticsSVGDir   string
	analyticsExport   string
	analyticsWhere    string
)

var analyticsCmd = &cobra.Command{
	Use:   "analytics <task>",
	Short: "Show a report's summary and its company, month and model charts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.HTTPTimeout())
		defer cancel()

		a, err := newClient().Analytics(ctx, args[0])
		if err != nil {
			return err
		}
		report := pipeline.BuildReport(pipeline.Narrow(a, analyticsWhere))

		kinds := []model.AggregateKind{model.KindCompany, model.KindMonth, model.KindModel}
		if analyticsBy != "" {
			kinds = []model.AggregateKind{model.AggregateKind(analyticsBy)}
		}

		out := cmd.OutOrStdout()
		s := report.Summary
		fmt.Fprintf(out, "Task: %s\nSales: %d  Revenue: %.2f  Average: %.2f\n", report.TaskName, s.TotalSales, s.TotalRevenue, s.AveragePrice)
		if report.Rejected > 0 || report.SkippedDates > 0 {
			fmt.Fprintf(out, "⚠ %d records rejected, %d without a usable date\n", report.Rejected, report.SkippedDates)
		}

		board := view.NewBoard(view.NewSVGRenderer(cfg.ChartWidth, cfg.ChartHeight))
		for _, kind := range kinds {
			if err := showChart(cmd, out, board, report, kind); err != nil {
				return err
			}
		}

		if analyticsExport != "" {
			format, err := pipeline.ParseExportFormat(analyticsExport)
			if err != nil {
				return err
			}
			om := utils.NewOutputManager(cfg.ExportDir)
			res, err := pipeline.ExportToFile(om, report.TaskName, "sales."+string(format), format, pipeline.FactTable(report.TaskName, report.Facts))
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Exported %d records to %s\n", res.RecordCount, res.Path)
		}
		return nil
	},
}

func showChart(cmd *cobra.Command, out io.Writer, board *view.Board, report pipeline.Report, kind model.AggregateKind) error {
	rows, err := report.Rows(kind)
	if err != nil {
		return err
	}
	enc := view.Encoding{Kind: kind, Title: fmt.Sprintf("%s by %s", report.TaskName, kind)}
	if kind == model.KindMonth {
		enc.Chart = view.KindLine
	}
	id := string(kind)
	frame, err := board.Render(id, rows, enc)
	if err != nil {
		return err
	}

	if frame.Controls != nil {
		if frame, err = board.ApplyFilter(id, chartState(cmd, board.State(id))); err != nil {
			return err
		}
		if analyticsSort != "" {
			if frame, err = board.SetSort(id, pipeline.ParseSortKey(analyticsSort, analyticsOrder)); err != nil {
				return err
			}
		}
	}

	fmt.Fprintf(out, "\n%s\n", enc.Title)
	if frame.Placeholder != "" {
		fmt.Fprintf(out, "  %s\n", frame.Placeholder)
	}
	for _, r := range frame.Rows {
		fmt.Fprintf(out, "  %-20s count=%-5d total=%-12.2f avg=%.2f\n", r.GroupKey, r.Count, r.TotalValue, r.DerivedAverage)
	}

	if analyticsSelect != "" {
		table := view.NewDetailTable(report.Facts, kind)
		board.AttachTable(id, table)
		board.Click(id, analyticsSelect)
		for _, tr := range table.Visible() {
			f := tr.Fact
			fmt.Fprintf(out, "    %s %s %s %.2f %s\n", f.SaleID, f.Company, f.Model, f.Price, f.SaleDate)
		}
	}

	if analyticsSVGDir != "" && frame.SVG != "" {
		if err := os.MkdirAll(analyticsSVGDir, 0o755); err != nil {
			return fmt.Errorf("create svg dir: %w", err)
		}
		path := filepath.Join(analyticsSVGDir, utils.SafeName(report.TaskName)+"_"+id+".svg")
		if err := os.WriteFile(path, []byte(frame.SVG), 0o644); err != nil {
			return fmt.Errorf("write svg: %w", err)
		}
		fmt.Fprintf(out, "  ✓ %s\n", path)
	}
	return nil
}

// chartState overlays the filter flags the user actually set.
func chartState(cmd *cobra.Command, state model.FilterState) model.FilterState {
	policy := model.ParseEmptyPolicy(cfg.EmptyPolicy)
	f := cmd.Flags()
	allow := map[model.Dimension][]string{
		model.DimCompany: analyticsCompany,
		model.DimModel:   analyticsModel,
		model.DimYear:    analyticsYear,
		model.DimMonth:   analyticsMonth,
	}
	for dim, values := range allow {
		if f.Changed(string(dim)) {
			state = state.WithAllow(dim, values...).WithPolicy(dim, policy)
		}
	}
	if f.Changed("min-count") {
		state = state.WithBound(model.DimMinCount, analyticsMinCount)
	}
	if f.Changed("min-total") {
		state = state.WithBound(model.DimMinTotal, analyticsMinTotal)
	}
	return state
}

func init() {
	fl := analyticsCmd.Flags()
	fl.StringVar(&analyticsBy, "by", "", "only show one chart: company, month or model")
	fl.StringVar(&analyticsSort, "sort", "", "sort bars by count or total")
	fl.StringVar(&analyticsOrder, "order", "asc", "sort order: asc or desc")
	fl.StringSliceVar(&analyticsCompany, "company", nil, "companies to show")
	fl.StringSliceVar(&analyticsModel, "model", nil, "models to show")
	fl.StringSliceVar(&analyticsYear, "year", nil, "years to show on the month chart")
	fl.StringSliceVar(&analyticsMonth, "month", nil, "months (01-12) to show on the month chart")
	fl.Float64Var(&analyticsMinCount, "min-count", 0, "hide groups with fewer sales")
	fl.Float64Var(&analyticsMinTotal, "min-total", 0, "hide groups with less revenue")
	fl.StringVar(&analyticsSelect, "select", "", "list the sale records behind one category")
	fl.StringVar(&analyticsSVGDir, "svg-dir", "", "write each chart as SVG into this directory")
	fl.StringVar(&analyticsWhere, "where", "", `narrow sales first, e.g. "company = Acme, price > 1000"`)
	fl.StringVar(&analyticsExport, "export", "", "export sale records: csv, json or xlsx")
	rootCmd.AddCommand(analyticsCmd)
}
