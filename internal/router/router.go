// Package router wires handlers and middleware onto the echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/snapscape/internal/handler"
	"github.com/iliyamo/snapscape/internal/middleware"
)

// Handlers bundles everything the route table points at.
type Handlers struct {
	Auth         *handler.AuthHandler
	Competitions *handler.CompetitionHandler
	Submissions  *handler.SubmissionHandler
	Ratings      *handler.RatingHandler
	AdminUsers   *handler.AdminUserHandler
	Maintenance  *handler.MaintenanceHandler
}

// Options carries secrets and the Redis-backed middleware. Nil middleware
// is skipped.
type Options struct {
	JWTSecret   string
	CronSecret  string
	RateLimiter echo.MiddlewareFunc
	Cache       echo.MiddlewareFunc
	DB          handler.Pinger
}

// New builds the echo instance with the global middleware chain and every
// route registered.
func New(h Handlers, opt Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLog())
	e.Use(echomw.Recover())

	RegisterRoutes(e, opt.DB)
	RegisterAuth(e, h.Auth, opt)
	RegisterPublic(e, h.Competitions, h.Submissions, opt)
	RegisterUser(e, h.Submissions, h.Ratings, opt)
	RegisterAdmin(e, h, opt)
	RegisterCron(e, h.Competitions, opt.CronSecret)
	return e
}

func use(mw ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := make([]echo.MiddlewareFunc, 0, len(mw))
	for _, m := range mw {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}

func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth mounts the token endpoints and the caller's profile.
// Register and login share the vote rate limiter.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, opt Options) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register, use(opt.RateLimiter)...)
	g.POST("/login", a.Login, use(opt.RateLimiter)...)
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	g.POST("/logout", a.Logout)

	me := e.Group("/v1/me", middleware.JWTAuth(opt.JWTSecret))
	me.GET("", a.Me)
	me.PATCH("/preferences", a.UpdatePreferences)
}

// RegisterPublic mounts the anonymous read endpoints. Leaderboards and
// results only exist for finished competitions, so they are cached.
func RegisterPublic(e *echo.Echo, comps *handler.CompetitionHandler, subs *handler.SubmissionHandler, opt Options) {
	g := e.Group("/v1/competitions")
	g.GET("", comps.List)
	g.GET("/:id", comps.Get)
	g.GET("/:id/submissions", subs.ListForCompetition)
	g.GET("/:id/leaderboard", comps.Leaderboard, use(opt.Cache)...)
	g.GET("/:id/results", comps.ListResults, use(opt.Cache)...)
}
