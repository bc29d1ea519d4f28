package httpx

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/you/feedauth/internal/http/handlers"
	"github.com/you/feedauth/internal/http/middleware"
)

func BuildRouter(ah *handlers.AuthHandlers, logger *slog.Logger, limit middleware.RateLimitConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger))

	r.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	r.POST("/register", ah.Register)

	auth := r.Group("/").Use(middleware.RateLimitByIP(limit), middleware.DeviceFingerprint())
	auth.POST("/check-login", ah.CheckLogin)
	auth.POST("/send-otp", ah.SendOTP)
	auth.POST("/verify-otp", ah.VerifyOTP)

	return r
}
