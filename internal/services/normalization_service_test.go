// internal/services/normalization_service_test.go
package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/javajoker/affigraph/internal/config"
	"github.com/javajoker/affigraph/internal/events"
	"github.com/javajoker/affigraph/internal/models"
)

func TestStatusFromEvent(t *testing.T) {
	tests := []struct {
		name        string
		financial   string
		fulfillment string
		expected    models.OrderStatus
	}{
		{"paid pending fulfillment", "paid", "", models.OrderStatusCreated},
		{"fulfilled", "paid", "fulfilled", models.OrderStatusFulfilled},
		{"refunded", "refunded", "", models.OrderStatusCancelled},
		{"voided", "voided", "", models.OrderStatusCancelled},
		{"refunded wins over fulfilled", "refunded", "fulfilled", models.OrderStatusCancelled},
		{"partial fulfillment stays created", "paid", "partial", models.OrderStatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := &events.Order{
				FinancialStatus:   tt.financial,
				FulfillmentStatus: tt.fulfillment,
			}
			assert.Equal(t, tt.expected, StatusFromEvent(order))
		})
	}
}

func TestResolveStatus(t *testing.T) {
	// no stored order, incoming status wins
	assert.Equal(t, models.OrderStatusCancelled, resolveStatus(nil, models.OrderStatusCancelled))

	// a refund event cancels an already fulfilled order
	fulfilled := &models.Order{Status: models.OrderStatusFulfilled}
	assert.Equal(t, models.OrderStatusCancelled, resolveStatus(fulfilled, models.OrderStatusCancelled))

	// a late or replayed event never resurrects a cancelled order
	cancelled := &models.Order{Status: models.OrderStatusCancelled}
	assert.Equal(t, models.OrderStatusCancelled, resolveStatus(cancelled, models.OrderStatusCreated))
	assert.Equal(t, models.OrderStatusCancelled, resolveStatus(cancelled, models.OrderStatusFulfilled))
	assert.Equal(t, models.OrderStatusCancelled, resolveStatus(cancelled, models.OrderStatusCancelled))

	// fulfillment does not roll back
	assert.Equal(t, models.OrderStatusFulfilled, resolveStatus(fulfilled, models.OrderStatusCreated))
}

func TestFilterLineItemsAbortPolicy(t *testing.T) {
	s := NewNormalizationService(nil, &config.SyncConfig{BatchSize: 50, SkipInvalidItems: false}, nil)

	items := []events.LineItem{
		{ID: 1, ProductID: 77, Quantity: 1, Price: "10.00"},
		{ID: 2, Quantity: 1, Price: "10.00"}, // missing product id
	}
	_, err := s.filterLineItems("1001", items)
	assert.Error(t, err)
}

func TestFilterLineItemsSkipPolicy(t *testing.T) {
	s := NewNormalizationService(nil, &config.SyncConfig{BatchSize: 50, SkipInvalidItems: true}, nil)

	items := []events.LineItem{
		{ID: 1, ProductID: 77, Quantity: 1, Price: "10.00"},
		{ID: 2, Quantity: 1, Price: "10.00"},
		{ID: 3, ProductID: 78, Quantity: 2, Price: "5.00"},
	}
	valid, err := s.filterLineItems("1001", items)
	assert.NoError(t, err)
	assert.Len(t, valid, 2)
	assert.Equal(t, int64(1), valid[0].ID)
	assert.Equal(t, int64(3), valid[1].ID)
}

func TestBaseTitle(t *testing.T) {
	assert.Equal(t, "Hat", baseTitle("Hat - Red / Large"))
	assert.Equal(t, "Hat", baseTitle("Hat"))
	assert.Equal(t, "", baseTitle(""))
}

func TestSplitTags(t *testing.T) {
	assert.Equal(t, []string{"summer", "sale"}, splitTags("summer, sale"))
	assert.Equal(t, []string{"one"}, splitTags("one"))
	assert.Nil(t, splitTags(""))
	assert.Empty(t, splitTags(" , ,"))
}

func TestParseShopifyTime(t *testing.T) {
	parsed := parseShopifyTime("2024-03-01T10:00:00Z")
	assert.NotNil(t, parsed)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), parsed.UTC())

	assert.Nil(t, parseShopifyTime(""))
	assert.Nil(t, parseShopifyTime("yesterday"))
}
