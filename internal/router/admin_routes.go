package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/snapscape/internal/handler"
	"github.com/iliyamo/snapscape/internal/middleware"
	"github.com/iliyamo/snapscape/internal/model"
)

func RegisterAdmin(e *echo.Echo, h Handlers, opt Options) {
	g := e.Group("/v1/admin",
		middleware.JWTAuth(opt.JWTSecret),
		middleware.RequireRole(model.RoleAdmin),
	)

	c := h.Competitions
	g.GET("/competitions", c.AdminList)
	g.POST("/competitions", c.Create)
	g.GET("/competitions/status/preview", c.PreviewStatuses)
	g.POST("/competitions/status/update", c.UpdateStatuses)
	g.GET("/competitions/:id", c.Get)
	g.PUT("/competitions/:id", c.Update)
	g.DELETE("/competitions/:id", c.Delete)
	g.PUT("/competitions/:id/status", c.SetStatus)
	g.POST("/competitions/:id/results", c.FinalizeResults)

	g.PATCH("/submissions/:id/status", h.Submissions.Review)

	g.GET("/users", h.AdminUsers.List)
	g.PATCH("/users/:id", h.AdminUsers.Update)

	g.POST("/maintenance/dedupe-ratings", h.Maintenance.DedupeRatings)
	g.POST("/maintenance/recompute-aggregates", h.Maintenance.RecomputeAggregates)
}

// RegisterCron mounts the scheduler endpoint behind the shared secret.
func RegisterCron(e *echo.Echo, c *handler.CompetitionHandler, cronSecret string) {
	e.POST("/v1/cron/competition-status", c.CronCompetitionStatus, middleware.CronSecret(cronSecret))
}
