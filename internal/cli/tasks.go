package cli

import (
	"context"
	"fmt"

	"go-sales-dashboard/internal/session"

	"github.com/spf13/cobra"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List reports known to the backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.HTTPTimeout())
		defer cancel()

		tasks, err := session.New(newClient()).LoadHistory(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(tasks) == 0 {
			fmt.Fprintln(out, "(no tasks)")
			return nil
		}
		for _, t := range tasks {
			fmt.Fprintf(out, "- %s [%s] sources: %d\n", t.Name, t.Status, t.SourceCount)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tasksCmd)
}
