package api

import (
	_ "go-sales-dashboard/docs"
	"go-sales-dashboard/internal/api/handler"
	"go-sales-dashboard/pkg/router"

	httpSwagger "github.com/swaggo/http-swagger"
)

func RegisterRoutes(r *router.Router, d *handler.Dashboard) {
	r.GET("/health", d.Health)
	r.POST("/api/v1/visualize", d.Visualize)
	r.GET("/api/v1/feed", d.Feed)
	r.GET("/api/v1/tasks", d.ListTasks)
	// More specific routes first
	r.GET("/api/v1/tasks/*/charts", d.GetChart)
	r.GET("/api/v1/tasks/*/chart.svg", d.GetChartSVG)
	r.GET("/api/v1/tasks/*/export", d.ExportTask)

	r.GET("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")).ServeHTTP)
}
