package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chung140204/TKPM-BTL-sub000/internal/server/handlers"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Users         handlers.UserFinder
	Inventory     *handlers.InventoryHandler
	Shopping      *handlers.ShoppingHandler
	Notifications *handlers.NotificationHandler
	Metrics       http.Handler
}

// New wires the Gin engine with required routes and middlewares.
func New(h Handlers, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if h.Metrics != nil {
		r.GET("/metrics", gin.WrapH(h.Metrics))
	}

	api := r.Group("/api", handlers.Identify(h.Users, logger))

	inv := api.Group("/inventory")
	inv.GET("", h.Inventory.List)
	inv.POST("", h.Inventory.Add)
	inv.GET("/:id", h.Inventory.Get)
	inv.PATCH("/:id", h.Inventory.Update)
	inv.POST("/:id/use", h.Inventory.Use)
	inv.DELETE("/:id", h.Inventory.Delete)

	lists := api.Group("/shopping-lists")
	lists.POST("/deficit", h.Shopping.GenerateFromDeficit)
	lists.POST("/meal-plans/:mealPlanId", h.Shopping.GenerateFromMealPlan)
	lists.GET("/:id", h.Shopping.Get)
	lists.PATCH("/:id/items/:itemId", h.Shopping.SetItemBought)
	lists.POST("/:id/complete", h.Shopping.Complete)
	lists.DELETE("/:id", h.Shopping.Delete)

	api.GET("/notifications", h.Notifications.List)
	api.POST("/notifications/:id/read", h.Notifications.MarkRead)

	jobs := api.Group("/jobs")
	jobs.POST("/expiry-sweep", h.Notifications.RunExpirySweep)
	jobs.POST("/meal-plan-reminders", h.Notifications.RunMealPlanReminders)

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_id", c.GetHeader(handlers.HeaderUserID)))
	}
}
