// internal/handlers/sync.go
package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/affigraph/internal/services"
	"github.com/javajoker/affigraph/internal/shopify"
	"github.com/javajoker/affigraph/internal/utils"
)

// WebhookRegistrar manages webhook registrations on the store side.
// Satisfied by the Shopify client; tests substitute a fake.
type WebhookRegistrar interface {
	CreateWebhook(ctx context.Context, topic, address string) (*shopify.Webhook, error)
	ListWebhooks(ctx context.Context) ([]shopify.Webhook, error)
}

type SyncHandler struct {
	syncService *services.SyncService
	registrar   WebhookRegistrar
	appURL      string
}

func NewSyncHandler(syncService *services.SyncService, registrar WebhookRegistrar, appURL string) *SyncHandler {
	return &SyncHandler{
		syncService: syncService,
		registrar:   registrar,
		appURL:      appURL,
	}
}

// storeWebhookTopics maps the platform's topic names onto our callback routes.
var storeWebhookTopics = []struct {
	Topic string
	Path  string
}{
	{"orders/create", "/webhooks/orders/created"},
	{"orders/cancelled", "/webhooks/orders/cancelled"},
	{"orders/fulfilled", "/webhooks/orders/fulfilled"},
	{"products/create", "/webhooks/products/created"},
	{"products/update", "/webhooks/products/updated"},
	{"products/delete", "/webhooks/products/deleted"},
}

// POST /admin/sync/products
func (h *SyncHandler) SyncProducts(c *gin.Context) {
	result, err := h.syncService.SyncProducts(c.Request.Context())
	if err != nil {
		utils.InternalErrorResponse(c, "Product sync failed")
		return
	}

	utils.SuccessResponse(c, result)
}

// POST /admin/sync/orders
func (h *SyncHandler) SyncOrders(c *gin.Context) {
	var since *time.Time
	if sinceStr := c.Query("since"); sinceStr != "" {
		parsed, err := time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			utils.BadRequestResponse(c, "invalid since date: "+sinceStr, nil)
			return
		}
		since = &parsed
	}

	result, err := h.syncService.SyncOrders(c.Request.Context(), since)
	if err != nil {
		utils.InternalErrorResponse(c, "Order sync failed")
		return
	}

	utils.SuccessResponse(c, result)
}

// POST /admin/webhooks/setup
// Registers every topic the engine consumes against this deployment's public
// URL. Registration is idempotent on the store side, so re-running setup is
// safe.
func (h *SyncHandler) SetupWebhooks(c *gin.Context) {
	registered := make([]shopify.Webhook, 0, len(storeWebhookTopics))
	for _, t := range storeWebhookTopics {
		hook, err := h.registrar.CreateWebhook(c.Request.Context(), t.Topic, h.appURL+t.Path)
		if err != nil {
			logrus.WithError(err).WithField("topic", t.Topic).Error("Failed to register webhook")
			utils.InternalErrorResponse(c, "Failed to register webhook for "+t.Topic)
			return
		}
		registered = append(registered, *hook)
	}

	utils.SuccessResponse(c, gin.H{"webhooks": registered})
}

// GET /admin/webhooks
func (h *SyncHandler) ListWebhooks(c *gin.Context) {
	hooks, err := h.registrar.ListWebhooks(c.Request.Context())
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to list webhooks")
		return
	}

	utils.SuccessResponse(c, gin.H{"webhooks": hooks})
}
