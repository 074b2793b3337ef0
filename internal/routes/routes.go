package routes

import (
	"github.com/labstack/echo/v4"
	limiterpkg "github.com/ulule/limiter/v3"

	"vendoralerts/internal/auth"
	"vendoralerts/internal/handlers"
	"vendoralerts/internal/model"
)

// Roles allowed to submit notifications by hand.
var enqueueRoles = []string{model.RoleAdmin, model.RoleComplianceManager, model.RoleDataManager}

func SetupRoutes(api *echo.Group, h *handlers.Handler, jwtSecret string, limiter *limiterpkg.Limiter) {
	if limiter != nil {
		api.Use(auth.RateLimitMiddleware(limiter))
	}

	// Public routes
	api.GET("/health", h.HealthCheck)

	// Protected routes
	notifications := api.Group("/notifications", auth.JWTMiddleware(jwtSecret))
	notifications.GET("", h.ListNotifications)
	notifications.PUT("/:id/read", h.MarkRead)
	notifications.GET("/settings", h.GetSettings)
	notifications.PUT("/settings", h.UpdateSettings)

	queue := notifications.Group("/queue")
	queue.POST("", h.EnqueueNotification, auth.RequireRole(enqueueRoles...))
	queue.GET("", h.ListRequests, auth.RequireRole(model.RoleAdmin))
	queue.GET("/:id", h.GetRequest, auth.RequireRole(model.RoleAdmin))
}
