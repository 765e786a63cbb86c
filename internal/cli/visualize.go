package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"go-sales-dashboard/internal/model"
	"go-sales-dashboard/internal/pipeline"
	"go-sales-dashboard/internal/view"

	"github.com/spf13/cobra"
)

var (
	visualizeOut       string
	visualizeFeed      bool
	visualizeTransform []string
	visualizeGroup     bool
)

var visualizeCmd = &cobra.Command{
	Use:   "visualize [file|url]",
	Short: "Chart a CSV or JSON file, a URL, or the backend's data feed",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if visualizeFeed == (len(args) == 1) {
			return fmt.Errorf("specify exactly one of a file/url argument or --feed")
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.HTTPTimeout())
		defer cancel()

		var (
			rows []model.RawRow
			err  error
		)
		switch {
		case visualizeFeed:
			rows, err = newClient().FetchData(ctx)
		case strings.HasPrefix(args[0], "http://") || strings.HasPrefix(args[0], "https://"):
			rows, _, err = pipeline.FetchURL(ctx, &http.Client{Timeout: cfg.HTTPTimeout()}, args[0])
		default:
			rows, _, err = pipeline.LoadFile(args[0])
		}
		if err != nil {
			return err
		}
		if len(visualizeTransform) > 0 {
			if rows, err = pipeline.ApplyTransformations(rows, visualizeTransform); err != nil {
				return err
			}
		}

		schema, ok := pipeline.Infer(rows)
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Rows: %d\n", len(rows))
		if !ok {
			fmt.Fprintln(out, model.ErrSchemaInference.Error())
			return nil
		}
		fmt.Fprintf(out, "Category: %s\nValue: %s\n", schema.CategoryField, schema.ValueField)

		board := view.NewBoard(view.NewSVGRenderer(cfg.ChartWidth, cfg.ChartHeight))
		render := board.RenderRaw
		if visualizeGroup {
			render = board.RenderGrouped
		}
		frame, err := render("visualize", rows, schema)
		if err != nil {
			return err
		}
		for _, p := range frame.Points {
			fmt.Fprintf(out, "  %-20s %v\n", p.Category, p.Value)
		}
		if visualizeOut != "" && frame.SVG != "" {
			if err := os.WriteFile(visualizeOut, []byte(frame.SVG), 0o644); err != nil {
				return fmt.Errorf("write svg: %w", err)
			}
			fmt.Fprintf(out, "✓ Chart written to %s\n", visualizeOut)
		}
		return nil
	},
}

func init() {
	visualizeCmd.Flags().StringVarP(&visualizeOut, "out", "o", "", "write the chart as SVG to this path")
	visualizeCmd.Flags().BoolVar(&visualizeFeed, "feed", false, "chart the backend's /api/data feed")
	visualizeCmd.Flags().StringSliceVar(&visualizeTransform, "transform", nil, "row transformations to apply: normalizeNames, trimStrings, removeEmpty")
	visualizeCmd.Flags().BoolVar(&visualizeGroup, "group", false, "one bar per distinct category, summing the value field")
	rootCmd.AddCommand(visualizeCmd)
}
