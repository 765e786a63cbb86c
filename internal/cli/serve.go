package cli

import (
	"os"
	"os/signal"
	"syscall"

	"go-sales-dashboard/internal/api"
	"go-sales-dashboard/internal/api/handler"
	"go-sales-dashboard/internal/model"
	"go-sales-dashboard/internal/session"
	"go-sales-dashboard/internal/view"
	"go-sales-dashboard/pkg/router"
	"go-sales-dashboard/pkg/utils"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard API",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := cfg.ListenAddr
		if cmd.Flags().Changed("addr") {
			addr = serveAddr
		}

		client := newClient()
		d := handler.NewDashboard(client, session.New(client), handler.Options{
			Renderer:    view.NewSVGRenderer(cfg.ChartWidth, cfg.ChartHeight),
			Outputs:     utils.NewOutputManager(cfg.ExportDir),
			EmptyPolicy: model.ParseEmptyPolicy(cfg.EmptyPolicy),
			Timeout:     cfg.HTTPTimeout(),
		})

		r := router.New()
		api.RegisterRoutes(r, d)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		log.Info().Str("backend", client.BaseURL()).Str("exports", cfg.ExportDir).Msg("📊 Dashboard API ready")
		return r.Start(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
