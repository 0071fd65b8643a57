package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/snapscape/internal/handler"
	"github.com/iliyamo/snapscape/internal/middleware"
	"github.com/iliyamo/snapscape/internal/model"
)

// RegisterUser mounts the endpoints of signed-in users. Admins pass the role
// check too so they can moderate by deleting.
func RegisterUser(e *echo.Echo, subs *handler.SubmissionHandler, ratings *handler.RatingHandler, opt Options) {
	g := e.Group("/v1",
		middleware.JWTAuth(opt.JWTSecret),
		middleware.RequireRole(model.RoleUser, model.RoleAdmin),
	)
	g.POST("/competitions/:id/submissions", subs.Create)
	g.GET("/my/submissions", subs.ListMine)
	g.DELETE("/submissions/:id", subs.Delete)
	g.POST("/submissions/:id/ratings", ratings.Submit, use(opt.RateLimiter)...)
	g.GET("/submissions/:id/ratings/me", ratings.Mine)
}
