// internal/events/events.go
package events

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/javajoker/affigraph/internal/utils"
)

// Webhook topics form a closed set; anything else is rejected at the boundary
// instead of being accessed field-by-field.
const (
	TopicOrderCreated   = "order/created"
	TopicOrderCancelled = "order/cancelled"
	TopicOrderFulfilled = "order/fulfilled"
	TopicProductCreated = "product/created"
	TopicProductUpdated = "product/updated"
	TopicProductDeleted = "product/deleted"
)

var ErrUnknownTopic = errors.New("unknown webhook topic")

type Event interface {
	Topic() string
}

type NoteAttribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Customer struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (c *Customer) Key() string { return strconv.FormatInt(c.ID, 10) }

type LineItem struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id" validate:"required"`
	VariantID int64  `json:"variant_id"`
	Title     string `json:"title"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
	Price     string `json:"price" validate:"required"`
}

// Validate checks the fields attribution depends on; a line item that fails
// here is the UnhandledItemError case whose handling is a config choice.
func (li *LineItem) Validate() error {
	if err := utils.ValidateStruct(li); err != nil {
		return fmt.Errorf("invalid line item %d: %w", li.ID, err)
	}
	if _, err := strconv.ParseFloat(li.Price, 64); err != nil {
		return fmt.Errorf("invalid line item %d: unparseable price %q", li.ID, li.Price)
	}
	return nil
}

func (li *LineItem) UnitPrice() float64 {
	price, _ := strconv.ParseFloat(li.Price, 64)
	return price
}

func (li *LineItem) LineTotal() float64 {
	return li.UnitPrice() * float64(li.Quantity)
}

type Order struct {
	ID                int64           `json:"id" validate:"required"`
	Name              string          `json:"name"`
	TotalPrice        string          `json:"total_price"`
	FinancialStatus   string          `json:"financial_status"`
	FulfillmentStatus string          `json:"fulfillment_status"`
	Customer          *Customer       `json:"customer"`
	LineItems         []LineItem      `json:"line_items"`
	NoteAttributes    []NoteAttribute `json:"note_attributes"`
	CreatedAt         string          `json:"created_at"`
	UpdatedAt         string          `json:"updated_at"`
	ProcessedAt       string          `json:"processed_at"`
}

func (o *Order) Key() string { return strconv.FormatInt(o.ID, 10) }

func (o *Order) Total() float64 {
	total, _ := strconv.ParseFloat(o.TotalPrice, 64)
	return total
}

// AffiliateCode returns the referral code attribute if the order carries one.
// Both spellings appear in the wild.
func (o *Order) AffiliateCode() string {
	for _, attr := range o.NoteAttributes {
		if attr.Name == "affiliate_code" || attr.Name == "affiliateCode" {
			return attr.Value
		}
	}
	return ""
}

type Variant struct {
	ID        int64  `json:"id" validate:"required"`
	ProductID int64  `json:"product_id"`
	Title     string `json:"title"`
	Price     string `json:"price"`
	SKU       string `json:"sku"`
}

func (v *Variant) Key() string { return strconv.FormatInt(v.ID, 10) }

func (v *Variant) UnitPrice() float64 {
	price, _ := strconv.ParseFloat(v.Price, 64)
	return price
}

type Product struct {
	ID          int64     `json:"id" validate:"required"`
	Title       string    `json:"title"`
	BodyHTML    string    `json:"body_html"`
	Vendor      string    `json:"vendor"`
	ProductType string    `json:"product_type"`
	Tags        string    `json:"tags"`
	Variants    []Variant `json:"variants"`
	CreatedAt   string    `json:"created_at"`
	UpdatedAt   string    `json:"updated_at"`
}

func (p *Product) Key() string { return strconv.FormatInt(p.ID, 10) }

// resourceRef is the minimal payload cancellation/fulfillment/deletion
// webhooks carry.
type resourceRef struct {
	ID int64 `json:"id" validate:"required"`
}

type OrderCreated struct{ Order Order }

func (OrderCreated) Topic() string { return TopicOrderCreated }

type OrderCancelled struct{ OrderID string }

func (OrderCancelled) Topic() string { return TopicOrderCancelled }

type OrderFulfilled struct{ OrderID string }

func (OrderFulfilled) Topic() string { return TopicOrderFulfilled }

type ProductCreated struct{ Product Product }

func (ProductCreated) Topic() string { return TopicProductCreated }

type ProductUpdated struct{ Product Product }

func (ProductUpdated) Topic() string { return TopicProductUpdated }

type ProductDeleted struct{ ProductID string }

func (ProductDeleted) Topic() string { return TopicProductDeleted }

// Decode parses a raw webhook body into one of the tagged event variants,
// validating required fields. Signature verification must already have
// happened on the raw body before this is called.
func Decode(topic string, body []byte) (Event, error) {
	switch topic {
	case TopicOrderCreated:
		var order Order
		if err := json.Unmarshal(body, &order); err != nil {
			return nil, fmt.Errorf("malformed %s payload: %w", topic, err)
		}
		if err := utils.ValidateStruct(&order); err != nil {
			return nil, fmt.Errorf("invalid %s payload: %w", topic, err)
		}
		return OrderCreated{Order: order}, nil

	case TopicOrderCancelled, TopicOrderFulfilled:
		var ref resourceRef
		if err := json.Unmarshal(body, &ref); err != nil {
			return nil, fmt.Errorf("malformed %s payload: %w", topic, err)
		}
		if err := utils.ValidateStruct(&ref); err != nil {
			return nil, fmt.Errorf("invalid %s payload: %w", topic, err)
		}
		id := strconv.FormatInt(ref.ID, 10)
		if topic == TopicOrderCancelled {
			return OrderCancelled{OrderID: id}, nil
		}
		return OrderFulfilled{OrderID: id}, nil

	case TopicProductCreated, TopicProductUpdated:
		var product Product
		if err := json.Unmarshal(body, &product); err != nil {
			return nil, fmt.Errorf("malformed %s payload: %w", topic, err)
		}
		if err := utils.ValidateStruct(&product); err != nil {
			return nil, fmt.Errorf("invalid %s payload: %w", topic, err)
		}
		if topic == TopicProductCreated {
			return ProductCreated{Product: product}, nil
		}
		return ProductUpdated{Product: product}, nil

	case TopicProductDeleted:
		var ref resourceRef
		if err := json.Unmarshal(body, &ref); err != nil {
			return nil, fmt.Errorf("malformed %s payload: %w", topic, err)
		}
		if err := utils.ValidateStruct(&ref); err != nil {
			return nil, fmt.Errorf("invalid %s payload: %w", topic, err)
		}
		return ProductDeleted{ProductID: strconv.FormatInt(ref.ID, 10)}, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}
}
