// internal/handlers/sync_test.go
package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/javajoker/affigraph/internal/shopify"
)

type fakeRegistrar struct {
	created   []shopify.Webhook
	createErr error
	listErr   error
}

func (f *fakeRegistrar) CreateWebhook(_ context.Context, topic, address string) (*shopify.Webhook, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	hook := shopify.Webhook{ID: int64(len(f.created) + 1), Topic: topic, Address: address, Format: "json"}
	f.created = append(f.created, hook)
	return &hook, nil
}

func (f *fakeRegistrar) ListWebhooks(_ context.Context) ([]shopify.Webhook, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.created, nil
}

func newWebhookAdminRouter(registrar *fakeRegistrar) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewSyncHandler(nil, registrar, "https://engine.example.com")
	r := gin.New()
	r.POST("/admin/webhooks/setup", handler.SetupWebhooks)
	r.GET("/admin/webhooks", handler.ListWebhooks)
	return r
}

func TestSetupWebhooksRegistersAllTopics(t *testing.T) {
	registrar := &fakeRegistrar{}
	router := newWebhookAdminRouter(registrar)

	req, _ := http.NewRequest("POST", "/admin/webhooks/setup", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, registrar.created, 6)

	topics := make(map[string]string, len(registrar.created))
	for _, hook := range registrar.created {
		topics[hook.Topic] = hook.Address
	}
	assert.Equal(t, "https://engine.example.com/webhooks/orders/created", topics["orders/create"])
	assert.Equal(t, "https://engine.example.com/webhooks/orders/cancelled", topics["orders/cancelled"])
	assert.Equal(t, "https://engine.example.com/webhooks/orders/fulfilled", topics["orders/fulfilled"])
	assert.Equal(t, "https://engine.example.com/webhooks/products/created", topics["products/create"])
	assert.Equal(t, "https://engine.example.com/webhooks/products/updated", topics["products/update"])
	assert.Equal(t, "https://engine.example.com/webhooks/products/deleted", topics["products/delete"])
}

func TestSetupWebhooksFailureIsServerError(t *testing.T) {
	registrar := &fakeRegistrar{createErr: assert.AnError}
	router := newWebhookAdminRouter(registrar)

	req, _ := http.NewRequest("POST", "/admin/webhooks/setup", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestListWebhooks(t *testing.T) {
	registrar := &fakeRegistrar{created: []shopify.Webhook{
		{ID: 1, Topic: "orders/create", Address: "https://engine.example.com/webhooks/orders/created"},
	}}
	router := newWebhookAdminRouter(registrar)

	req, _ := http.NewRequest("GET", "/admin/webhooks", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "orders/create")
}
