// internal/events/events_test.go
package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeOrderCreated(t *testing.T) {
	body := []byte(`{
		"id": 1001,
		"name": "#1001",
		"total_price": "200.00",
		"financial_status": "paid",
		"customer": {"id": 42, "email": "jo@example.com", "first_name": "Jo", "last_name": "Lee"},
		"line_items": [
			{"id": 1, "product_id": 77, "variant_id": 770, "title": "Hat - Red", "quantity": 2, "price": "100.00"}
		],
		"note_attributes": [{"name": "affiliate_code", "value": "aff_abc123"}],
		"processed_at": "2024-03-01T10:00:00Z"
	}`)

	event, err := Decode(TopicOrderCreated, body)
	assert.NoError(t, err)

	created, ok := event.(OrderCreated)
	assert.True(t, ok)
	assert.Equal(t, "1001", created.Order.Key())
	assert.Equal(t, 200.0, created.Order.Total())
	assert.Equal(t, "aff_abc123", created.Order.AffiliateCode())
	assert.Equal(t, "42", created.Order.Customer.Key())
	assert.Len(t, created.Order.LineItems, 1)
	assert.Equal(t, 200.0, created.Order.LineItems[0].LineTotal())
}

func TestDecodeOrderMissingIDFails(t *testing.T) {
	_, err := Decode(TopicOrderCreated, []byte(`{"name": "#1001"}`))
	assert.Error(t, err)
}

func TestDecodeMalformedJSONFails(t *testing.T) {
	_, err := Decode(TopicOrderCreated, []byte(`{not json`))
	assert.Error(t, err)
}

func TestDecodeUnknownTopicRejected(t *testing.T) {
	_, err := Decode("checkout/created", []byte(`{"id": 1}`))
	assert.ErrorIs(t, err, ErrUnknownTopic)
}

func TestDecodeLifecycleEvents(t *testing.T) {
	event, err := Decode(TopicOrderCancelled, []byte(`{"id": 55}`))
	assert.NoError(t, err)
	cancelled, ok := event.(OrderCancelled)
	assert.True(t, ok)
	assert.Equal(t, "55", cancelled.OrderID)

	event, err = Decode(TopicOrderFulfilled, []byte(`{"id": 56}`))
	assert.NoError(t, err)
	fulfilled, ok := event.(OrderFulfilled)
	assert.True(t, ok)
	assert.Equal(t, "56", fulfilled.OrderID)

	event, err = Decode(TopicProductDeleted, []byte(`{"id": 77}`))
	assert.NoError(t, err)
	deleted, ok := event.(ProductDeleted)
	assert.True(t, ok)
	assert.Equal(t, "77", deleted.ProductID)
}

func TestDecodeProductCreated(t *testing.T) {
	body := []byte(`{
		"id": 77,
		"title": "Hat",
		"product_type": "Apparel",
		"tags": "summer, sale",
		"variants": [{"id": 770, "product_id": 77, "title": "Red", "price": "100.00", "sku": "HAT-R"}]
	}`)

	event, err := Decode(TopicProductCreated, body)
	assert.NoError(t, err)

	created, ok := event.(ProductCreated)
	assert.True(t, ok)
	assert.Equal(t, "77", created.Product.Key())
	assert.Len(t, created.Product.Variants, 1)
	assert.Equal(t, 100.0, created.Product.Variants[0].UnitPrice())
}

func TestAffiliateCodeSpellings(t *testing.T) {
	snake := Order{NoteAttributes: []NoteAttribute{{Name: "affiliate_code", Value: "aff_a"}}}
	camel := Order{NoteAttributes: []NoteAttribute{{Name: "affiliateCode", Value: "aff_b"}}}
	none := Order{NoteAttributes: []NoteAttribute{{Name: "gift_note", Value: "hi"}}}

	assert.Equal(t, "aff_a", snake.AffiliateCode())
	assert.Equal(t, "aff_b", camel.AffiliateCode())
	assert.Equal(t, "", none.AffiliateCode())
}

func TestLineItemValidate(t *testing.T) {
	valid := LineItem{ID: 1, ProductID: 77, Quantity: 1, Price: "10.00"}
	assert.NoError(t, valid.Validate())

	missingProduct := LineItem{ID: 2, Quantity: 1, Price: "10.00"}
	assert.Error(t, missingProduct.Validate())

	zeroQuantity := LineItem{ID: 3, ProductID: 77, Quantity: 0, Price: "10.00"}
	assert.Error(t, zeroQuantity.Validate())

	badPrice := LineItem{ID: 4, ProductID: 77, Quantity: 1, Price: "ten"}
	assert.Error(t, badPrice.Validate())
}
