package http

import (
	"github.com/gin-gonic/gin"
)

// SetupRouter builds the dev portal's gin router over one portal state.
func SetupRouter(portal *Portal) *gin.Engine {
	router := gin.Default()
	handlers := NewPortalHandlers(portal)

	// Public routes
	router.POST("/verify-dssn/:scope", handlers.VerifyDSSN)
	router.POST("/register-professional", handlers.RegisterProfessional)
	router.POST("/login/:scope", handlers.Login)
	router.POST("/professional/login", handlers.ProfessionalLogin)
	router.POST("/professional/mobile-auth", handlers.RequestMobileAuth)
	router.GET("/mobile-auth/status/:id", handlers.MobileAuthStatus)
	router.POST("/professional/validate-session", handlers.ValidateSession)
	router.POST("/professional/logout", handlers.Logout)
	router.POST("/professional/refresh-token", handlers.RefreshToken)

	// Authenticated routes
	authed := router.Group("/")
	authed.Use(AuthMiddleware(portal))
	{
		authed.GET("/professional/dashboard", handlers.Dashboard)
		authed.GET("/professional/profile", handlers.Profile)
		authed.GET("/access-logs", handlers.AccessLogs)
		authed.GET("/professional/activity-logs", handlers.AccessLogs)
		authed.GET("/admin/pending-professionals", handlers.PendingProfessionals)
		authed.POST("/admin/verify-professional", handlers.VerifyProfessionalAdmin)
	}

	// Dev-only stand-ins for the phone's approve/deny actions
	dev := router.Group("/dev")
	{
		dev.POST("/challenges/:id/approve", handlers.ApproveChallenge)
		dev.POST("/challenges/:id/deny", handlers.DenyChallenge)
	}

	return router
}
