// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/javajoker/affigraph/internal/config"
	"github.com/javajoker/affigraph/internal/events"
	"github.com/javajoker/affigraph/internal/handlers"
	"github.com/javajoker/affigraph/internal/middleware"
	"github.com/javajoker/affigraph/internal/services"
	"github.com/javajoker/affigraph/internal/shopify"
	"github.com/javajoker/affigraph/internal/utils"
)

func Initialize(db *gorm.DB, cfg *config.Config, client *shopify.Client) (*gin.Engine, *services.SyncService) {
	// Initialize services
	attributionService := services.NewAttributionService(db, &cfg.Commission)
	normalizationService := services.NewNormalizationService(db, &cfg.Sync, attributionService)
	orderService := services.NewOrderService(db)
	analyticsService := services.NewAnalyticsService(db)
	authService := services.NewAuthService(db, &cfg.JWT)
	affiliateService := services.NewAffiliateService(db, &cfg.Commission, &cfg.Shopify)
	syncService := services.NewSyncService(client, normalizationService, &cfg.Sync)

	// Initialize handlers
	webhookHandler := handlers.NewWebhookHandler(normalizationService, orderService, cfg.Shopify.WebhookSecret)
	authHandler := handlers.NewAuthHandler(authService)
	affiliateHandler := handlers.NewAffiliateHandler(affiliateService, analyticsService)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)
	syncHandler := handlers.NewSyncHandler(syncService, client, cfg.Server.AppURL)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS())
	r.Use(middleware.GeneralRateLimit())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// Webhook routes, signature-verified instead of token-authenticated
	webhooks := r.Group("/webhooks")
	webhooks.Use(middleware.WebhookRateLimit())
	{
		webhooks.POST("/orders/created", webhookHandler.Handle(events.TopicOrderCreated))
		webhooks.POST("/orders/cancelled", webhookHandler.Handle(events.TopicOrderCancelled))
		webhooks.POST("/orders/fulfilled", webhookHandler.Handle(events.TopicOrderFulfilled))
		webhooks.POST("/products/created", webhookHandler.Handle(events.TopicProductCreated))
		webhooks.POST("/products/updated", webhookHandler.Handle(events.TopicProductUpdated))
		webhooks.POST("/products/deleted", webhookHandler.Handle(events.TopicProductDeleted))
	}

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/login", authHandler.Login)
			auth.GET("/me", middleware.AuthRequired(), authHandler.Me)
		}

		// Affiliate self-service routes
		affiliate := v1.Group("/affiliate")
		affiliate.Use(middleware.AuthRequired(), middleware.AffiliateRequired())
		{
			affiliate.GET("/profile", affiliateHandler.GetProfile)
			affiliate.PUT("/profile", affiliateHandler.UpdateProfile)
			affiliate.GET("/products", affiliateHandler.ListProducts)
			affiliate.POST("/products/:id/referral-link", affiliateHandler.GenerateReferralLink)
			affiliate.GET("/performance", affiliateHandler.GetPerformance)
			affiliate.GET("/network", affiliateHandler.GetNetwork)
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			sync := admin.Group("/sync")
			{
				sync.POST("/products", syncHandler.SyncProducts)
				sync.POST("/orders", syncHandler.SyncOrders)
			}

			adminWebhooks := admin.Group("/webhooks")
			{
				adminWebhooks.GET("", syncHandler.ListWebhooks)
				adminWebhooks.POST("/setup", syncHandler.SetupWebhooks)
			}

			analytics := admin.Group("/analytics")
			{
				analytics.GET("/dashboard", analyticsHandler.Dashboard)
				analytics.GET("/affiliates", analyticsHandler.AffiliatePerformance)
				analytics.GET("/products", analyticsHandler.ProductPerformance)
				analytics.GET("/trends", analyticsHandler.Trends)
				analytics.GET("/network/:id", analyticsHandler.NetworkInfluence)
			}
		}
	}

	return r, syncService
}
