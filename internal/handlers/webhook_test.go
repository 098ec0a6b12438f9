// internal/handlers/webhook_test.go
package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/javajoker/affigraph/internal/events"
	"github.com/javajoker/affigraph/internal/services"
)

type fakeNormalizer struct {
	orders        []events.Order
	products      []events.Product
	deleted       []string
	normalizeErr  error
	softDeleteErr error
}

func (f *fakeNormalizer) NormalizeProducts(_ context.Context, products []events.Product) error {
	f.products = append(f.products, products...)
	return f.normalizeErr
}

func (f *fakeNormalizer) NormalizeOrders(_ context.Context, orders []events.Order) error {
	f.orders = append(f.orders, orders...)
	return f.normalizeErr
}

func (f *fakeNormalizer) SoftDeleteProduct(_ context.Context, productID string) error {
	f.deleted = append(f.deleted, productID)
	return f.softDeleteErr
}

type fakeOrderLifecycle struct {
	cancelled  []string
	fulfilled  []string
	cancelErr  error
	fulfillErr error
}

func (f *fakeOrderLifecycle) CancelOrder(_ context.Context, orderID string) error {
	f.cancelled = append(f.cancelled, orderID)
	return f.cancelErr
}

func (f *fakeOrderLifecycle) FulfillOrder(_ context.Context, orderID string) error {
	f.fulfilled = append(f.fulfilled, orderID)
	return f.fulfillErr
}

const testSecret = "test-webhook-secret"

func sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

type WebhookTestSuite struct {
	suite.Suite
	router     *gin.Engine
	normalizer *fakeNormalizer
	orders     *fakeOrderLifecycle
}

func (suite *WebhookTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	suite.normalizer = &fakeNormalizer{}
	suite.orders = &fakeOrderLifecycle{}

	handler := NewWebhookHandler(suite.normalizer, suite.orders, testSecret)
	suite.router = gin.New()
	suite.router.POST("/webhooks/orders/created", handler.Handle(events.TopicOrderCreated))
	suite.router.POST("/webhooks/orders/cancelled", handler.Handle(events.TopicOrderCancelled))
	suite.router.POST("/webhooks/orders/fulfilled", handler.Handle(events.TopicOrderFulfilled))
	suite.router.POST("/webhooks/products/deleted", handler.Handle(events.TopicProductDeleted))
}

func (suite *WebhookTestSuite) post(path string, body []byte, signature string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("POST", path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("X-Shopify-Hmac-Sha256", signature)
	}

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *WebhookTestSuite) TestValidOrderCreated() {
	body := []byte(`{"id": 1001, "total_price": "50.00", "line_items": [], "note_attributes": []}`)
	w := suite.post("/webhooks/orders/created", body, sign(body))

	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Len(suite.T(), suite.normalizer.orders, 1)
	assert.Equal(suite.T(), "1001", suite.normalizer.orders[0].Key())
}

func (suite *WebhookTestSuite) TestInvalidSignatureRejected() {
	body := []byte(`{"id": 1001}`)
	w := suite.post("/webhooks/orders/created", body, "bogus")

	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
	assert.Empty(suite.T(), suite.normalizer.orders)
}

func (suite *WebhookTestSuite) TestMissingSignatureRejected() {
	body := []byte(`{"id": 1001}`)
	w := suite.post("/webhooks/orders/created", body, "")

	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
	assert.Empty(suite.T(), suite.normalizer.orders)
}

func (suite *WebhookTestSuite) TestTamperedBodyRejected() {
	original := []byte(`{"id": 1001}`)
	tampered := []byte(`{"id": 9999}`)
	w := suite.post("/webhooks/orders/created", tampered, sign(original))

	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
}

func (suite *WebhookTestSuite) TestMalformedPayloadRejected() {
	body := []byte(`{not json`)
	w := suite.post("/webhooks/orders/created", body, sign(body))

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *WebhookTestSuite) TestOrderCancelled() {
	body := []byte(`{"id": 55}`)
	w := suite.post("/webhooks/orders/cancelled", body, sign(body))

	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), []string{"55"}, suite.orders.cancelled)
}

func (suite *WebhookTestSuite) TestCancellationForUnknownOrderIsAcknowledged() {
	suite.orders.cancelErr = services.ErrOrderNotFound
	body := []byte(`{"id": 404}`)
	w := suite.post("/webhooks/orders/cancelled", body, sign(body))

	assert.Equal(suite.T(), http.StatusOK, w.Code)
}

func (suite *WebhookTestSuite) TestReplayedOrderCreatedIsAccepted() {
	body := []byte(`{"id": 1001, "total_price": "50.00", "line_items": [], "note_attributes": []}`)

	first := suite.post("/webhooks/orders/created", body, sign(body))
	second := suite.post("/webhooks/orders/created", body, sign(body))

	assert.Equal(suite.T(), http.StatusOK, first.Code)
	assert.Equal(suite.T(), http.StatusOK, second.Code)
	assert.Len(suite.T(), suite.normalizer.orders, 2)
}

func (suite *WebhookTestSuite) TestReplayedCancellationIsAccepted() {
	body := []byte(`{"id": 55}`)

	first := suite.post("/webhooks/orders/cancelled", body, sign(body))
	second := suite.post("/webhooks/orders/cancelled", body, sign(body))

	assert.Equal(suite.T(), http.StatusOK, first.Code)
	assert.Equal(suite.T(), http.StatusOK, second.Code)
	assert.Equal(suite.T(), []string{"55", "55"}, suite.orders.cancelled)
}

func (suite *WebhookTestSuite) TestOrderFulfilled() {
	body := []byte(`{"id": 56}`)
	w := suite.post("/webhooks/orders/fulfilled", body, sign(body))

	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), []string{"56"}, suite.orders.fulfilled)
}

func (suite *WebhookTestSuite) TestProductDeleted() {
	body := []byte(`{"id": 77}`)
	w := suite.post("/webhooks/products/deleted", body, sign(body))

	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), []string{"77"}, suite.normalizer.deleted)
}

func (suite *WebhookTestSuite) TestStoreFailureIsServerError() {
	suite.normalizer.normalizeErr = assert.AnError
	body := []byte(`{"id": 1001, "line_items": []}`)
	w := suite.post("/webhooks/orders/created", body, sign(body))

	assert.Equal(suite.T(), http.StatusInternalServerError, w.Code)
}

func TestWebhookTestSuite(t *testing.T) {
	suite.Run(t, new(WebhookTestSuite))
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"id": 1}`)
	assert.True(t, VerifySignature(testSecret, body, sign(body)))
	assert.False(t, VerifySignature(testSecret, body, "not-a-signature"))
	assert.False(t, VerifySignature("other-secret", body, sign(body)))
}
