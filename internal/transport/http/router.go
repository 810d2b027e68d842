package httptransport

import (
	"log/slog"

	"github.com/ErlanBelekov/account-service/internal/domain"
	"github.com/ErlanBelekov/account-service/internal/transport/http/handler"
	"github.com/ErlanBelekov/account-service/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"

	sloggin "github.com/samber/slog-gin"
)

// APIPrefix is the path the browser app uses. Every route is also served at
// the root.
const APIPrefix = "/api/auth"

func NewRouter(logger *slog.Logger, authHandler *handler.AuthHandler, resetHandler *handler.ResetHandler, tokens middleware.SessionVerifier) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security())
	r.Use(accessLog(logger))
	r.Use(middleware.Metrics(APIPrefix))

	authMW := middleware.Auth(tokens)
	adminOnly := middleware.RequireRole(domain.RoleAdmin)

	for _, g := range []*gin.RouterGroup{r.Group(""), r.Group(APIPrefix)} {
		g.GET("/health", handler.Health)

		// Account lifecycle
		g.POST("/signup", authHandler.Signup)
		g.POST("/login", authHandler.Login)
		g.GET("/me", authMW, authHandler.Me)
		g.PATCH("/approve/:id", authMW, adminOnly, authHandler.Approve)
		g.GET("/pending", authMW, adminOnly, authHandler.Pending)

		// Password reset
		g.POST("/forgot", resetHandler.Forgot)
		g.POST("/forgot-confirm", resetHandler.ForgotConfirm)
		g.GET("/forgot-confirm-oneTap", resetHandler.ForgotConfirmOneTap)
		g.POST("/issue-reset", resetHandler.IssueReset)
		g.POST("/reset", resetHandler.Reset)
	}

	return r
}

// accessLog skips requests that carry a token in the query string; the
// one-tap link is such a request and its handler logs a redacted line.
func accessLog(logger *slog.Logger) gin.HandlerFunc {
	cfg := sloggin.DefaultConfig()
	cfg.Filters = []sloggin.Filter{
		func(c *gin.Context) bool { return !c.Request.URL.Query().Has("token") },
	}
	return sloggin.NewWithConfig(logger, cfg)
}
