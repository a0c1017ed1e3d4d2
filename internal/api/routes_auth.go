package api

import (
	"github.com/gin-gonic/gin"

	"github.com/homelearnhq/homelearn/internal/app"
	"github.com/homelearnhq/homelearn/internal/handlers"
)

func registerAuthRoutes(r *gin.Engine, cfg *app.Config, deps Dependencies, requireAuth gin.HandlerFunc) {
	authHandler := handlers.NewAuthHandler(deps.Auth, deps.Google, cfg.Frontend.BaseURL)
	profileHandler := handlers.NewProfileHandler(deps.Users)

	auth := r.Group("/api/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.GET("/verify-email", authHandler.VerifyEmail)
		auth.GET("/oauth/google/login", authHandler.GoogleLogin)
		auth.GET("/oauth/google/callback", authHandler.GoogleCallback)

		auth.GET("/profile", requireAuth, profileHandler.Get)
	}

	r.PUT("/api/profile/me", requireAuth, profileHandler.Update)
}
