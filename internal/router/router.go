// Package router wires the HTTP routes to their handlers and the
// policy table. Role requirements live in auth.Policy, not here: the
// router only names the operation each route performs.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/ekinsu/auth-service/internal/auth"
	"github.com/ekinsu/auth-service/internal/config"
	"github.com/ekinsu/auth-service/internal/handler"
	"github.com/ekinsu/auth-service/internal/metrics"
	"github.com/ekinsu/auth-service/internal/middleware"
)

// Deps carries everything route registration needs.
type Deps struct {
	Svc     *auth.Service
	Policy  *auth.Policy
	Auth    *handler.AuthHandler
	Users   *handler.UserHandler
	Metrics *metrics.Collector
	RateCfg config.RateLimitConfig
	Redis   *redis.Client
}

// Register mounts all routes. Credential endpoints sit behind the rate
// limiter; protected endpoints behind Authenticate plus their policy
// table entry.
func Register(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)
	if d.Metrics != nil {
		e.GET("/metrics", d.Metrics.Handler())
	}

	limited := middleware.RateLimit(d.RateCfg, d.Redis)

	// Public auth flows under /v1/auth.
	g := e.Group("/v1/auth", limited)
	g.POST("/signup", d.Auth.SignUp)
	g.POST("/signin", d.Auth.SignIn)
	g.POST("/refresh", d.Auth.Refresh)
	// Logout authenticates via its bearer token inside the handler.
	g.POST("/logout", d.Auth.Logout)

	// Everything below requires a valid access token; the role gate is
	// per route via the policy table.
	v1 := e.Group("/v1", middleware.Authenticate(d.Svc))
	v1.GET("/me", d.Users.Me,
		middleware.RequireOperation(d.Policy, auth.OpProfile))
	v1.PUT("/me/password", d.Users.ChangePassword,
		middleware.RequireOperation(d.Policy, auth.OpProfile))

	u := v1.Group("/users")
	u.GET("", d.Users.List,
		middleware.RequireOperation(d.Policy, auth.OpListUsers))
	u.GET("/:email", d.Users.Get,
		middleware.RequireOperation(d.Policy, auth.OpGetUser))
	u.POST("", d.Users.Create,
		middleware.RequireOperation(d.Policy, auth.OpCreateUser))
	u.PUT("/:email", d.Users.Update,
		middleware.RequireOperation(d.Policy, auth.OpUpdateUser))
	u.DELETE("/:email", d.Users.Delete,
		middleware.RequireOperation(d.Policy, auth.OpDeleteUser))
}
