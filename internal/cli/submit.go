package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go-sales-dashboard/internal/model"
	"go-sales-dashboard/internal/session"

	"github.com/spf13/cobra"
)

var (
	submitName        string
	submitDescription string
	submitSources     []string
	submitFilters     []string
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Generate a report from two or more files or URLs",
	Example: `  dashboard submit --name Q1 --source north.csv --source https://example.com/south.json \
    --filter "2=company = Acme, price > 10000"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		filters, err := parseFilterFlags(submitFilters)
		if err != nil {
			return err
		}

		s := session.New(newClient())
		for i, ref := range submitSources {
			src := model.Source{Kind: model.SourceFile, Path: ref, FilterExpr: filters[i+1]}
			if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
				src = model.Source{Kind: model.SourceURL, URL: ref, FilterExpr: filters[i+1]}
			}
			if _, err := s.AddSource(src); err != nil {
				return fmt.Errorf("source %d: %w", i+1, err)
			}
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, s.Hint())

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.HTTPTimeout())
		defer cancel()
		task, err := s.Submit(ctx, submitName, submitDescription)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Report %q %s with %d sources\n", task.Name, task.Status, task.SourceCount)
		return nil
	},
}

// parseFilterFlags reads "N=expr" pairs keyed by 1-based source position.
func parseFilterFlags(raw []string) (map[int]string, error) {
	out := make(map[int]string, len(raw))
	for _, r := range raw {
		idx, expr, ok := strings.Cut(r, "=")
		n, err := strconv.Atoi(strings.TrimSpace(idx))
		if !ok || err != nil || n < 1 {
			return nil, &model.ValidationError{Field: "filter", Message: fmt.Sprintf("expected N=expression, got %q", r)}
		}
		out[n] = expr
	}
	return out, nil
}

func init() {
	fl := submitCmd.Flags()
	fl.StringVar(&submitName, "name", "", "task name")
	fl.StringVar(&submitDescription, "description", "", "task description")
	fl.StringArrayVar(&submitSources, "source", nil, "CSV/JSON file or URL (repeatable, at least two)")
	fl.StringArrayVar(&submitFilters, "filter", nil, `per-source filter as N=expression, e.g. "1=price > 100 < 500"`)
	rootCmd.AddCommand(submitCmd)
}
