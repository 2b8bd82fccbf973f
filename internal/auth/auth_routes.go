package auth

import (
	"go-leave/internal/auth/token"
	"go-leave/internal/middleware"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RegisterRoutes mounts the public auth endpoints. Login and register are
// throttled per client IP.
func RegisterRoutes(r *gin.RouterGroup, handler *Handler, tokens *token.Issuer, limit rate.Limit, burst int) {
	auth := r.Group("/auth")
	{
		auth.POST("/register", middleware.RateLimitByIP(limit, burst), handler.Register)
		auth.POST("/login", middleware.RateLimitByIP(limit, burst), handler.Login)
		auth.GET("/me", middleware.AuthMiddleware(tokens), handler.Me)
		auth.POST("/logout", middleware.AuthMiddleware(tokens), handler.Logout)
	}
}
