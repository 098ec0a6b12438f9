// internal/handlers/webhook.go
package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/affigraph/internal/events"
	"github.com/javajoker/affigraph/internal/services"
	"github.com/javajoker/affigraph/internal/utils"
)

// Normalizer ingests platform payloads into the graph.
type Normalizer interface {
	NormalizeProducts(ctx context.Context, products []events.Product) error
	NormalizeOrders(ctx context.Context, orders []events.Order) error
	SoftDeleteProduct(ctx context.Context, productID string) error
}

// OrderLifecycle applies order status transitions.
type OrderLifecycle interface {
	CancelOrder(ctx context.Context, orderID string) error
	FulfillOrder(ctx context.Context, orderID string) error
}

// WebhookHandler receives platform webhooks. Signature verification runs on
// the raw body before any parsing; an invalid signature is a 401 and nothing
// downstream ever sees the payload.
type WebhookHandler struct {
	normalizer Normalizer
	orders     OrderLifecycle
	secret     string
}

func NewWebhookHandler(normalizer Normalizer, orders OrderLifecycle, secret string) *WebhookHandler {
	return &WebhookHandler{
		normalizer: normalizer,
		orders:     orders,
		secret:     secret,
	}
}

const signatureHeader = "X-Shopify-Hmac-Sha256"

// VerifySignature checks a base64-encoded HMAC-SHA256 of the raw body in
// constant time.
func VerifySignature(secret string, body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Handle returns the gin handler for one webhook topic.
func (h *WebhookHandler) Handle(topic string) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			utils.BadRequestResponse(c, "Failed to read request body", nil)
			return
		}

		if !VerifySignature(h.secret, body, c.GetHeader(signatureHeader)) {
			logrus.WithField("topic", topic).Warn("Rejected webhook with invalid signature")
			utils.UnauthorizedResponse(c, "Invalid webhook signature")
			return
		}

		event, err := events.Decode(topic, body)
		if err != nil {
			logrus.WithError(err).WithField("topic", topic).Warn("Rejected malformed webhook payload")
			utils.BadRequestResponse(c, "Invalid webhook payload", err.Error())
			return
		}

		if err := h.dispatch(c.Request.Context(), event); err != nil {
			logrus.WithError(err).WithField("topic", topic).Error("Failed to process webhook")
			utils.InternalErrorResponse(c, "Failed to process webhook")
			return
		}

		utils.SuccessResponse(c, gin.H{"received": true})
	}
}

// dispatch routes one decoded event. Lookup misses for lifecycle events are
// logged and swallowed so the platform does not retry them forever.
func (h *WebhookHandler) dispatch(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.OrderCreated:
		return h.normalizer.NormalizeOrders(ctx, []events.Order{e.Order})

	case events.OrderCancelled:
		err := h.orders.CancelOrder(ctx, e.OrderID)
		if errors.Is(err, services.ErrOrderNotFound) {
			logrus.WithField("order_id", e.OrderID).Info("Cancellation for unknown order, ignoring")
			return nil
		}
		return err

	case events.OrderFulfilled:
		err := h.orders.FulfillOrder(ctx, e.OrderID)
		if errors.Is(err, services.ErrOrderNotFound) {
			logrus.WithField("order_id", e.OrderID).Info("Fulfillment for unknown order, ignoring")
			return nil
		}
		return err

	case events.ProductCreated:
		return h.normalizer.NormalizeProducts(ctx, []events.Product{e.Product})

	case events.ProductUpdated:
		return h.normalizer.NormalizeProducts(ctx, []events.Product{e.Product})

	case events.ProductDeleted:
		return h.normalizer.SoftDeleteProduct(ctx, e.ProductID)

	default:
		return events.ErrUnknownTopic
	}
}
