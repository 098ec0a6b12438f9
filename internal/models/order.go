// internal/models/order.go
package models

import "time"

type Customer struct {
	ID        string    `json:"id" gorm:"primaryKey;size:64"`
	Email     string    `json:"email" gorm:"size:255"`
	FirstName string    `json:"first_name,omitempty" gorm:"size:255"`
	LastName  string    `json:"last_name,omitempty" gorm:"size:255"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Order is keyed by the commerce platform's order id. CustomerID carries the
// PLACED edge. Status moves created -> fulfilled or created -> cancelled;
// cancellation is the only transition that touches commission.
type Order struct {
	ID                string      `json:"id" gorm:"primaryKey;size:64"`
	Name              string      `json:"name,omitempty" gorm:"size:64"`
	Total             float64     `json:"total"`
	Status            OrderStatus `json:"status" gorm:"type:varchar(20);not null;default:'created';index"`
	FulfillmentStatus string      `json:"fulfillment_status,omitempty" gorm:"size:32"`
	CustomerID        *string     `json:"customer_id,omitempty" gorm:"size:64;index"`
	ProcessedAt       *time.Time  `json:"processed_at,omitempty" gorm:"index"`
	CancelledAt       *time.Time  `json:"cancelled_at,omitempty"`
	FulfilledAt       *time.Time  `json:"fulfilled_at,omitempty"`
	ShopifyCreatedAt  *time.Time  `json:"shopify_created_at,omitempty"`
	ShopifyUpdatedAt  *time.Time  `json:"shopify_updated_at,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`

	Customer *Customer   `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	Lines    []OrderLine `json:"lines,omitempty" gorm:"foreignKey:OrderID"`
}

// OrderLine is the INCLUDES edge between an order and a product variant,
// merged on (order_id, variant_id) so replays never duplicate line items.
type OrderLine struct {
	OrderID   string    `json:"order_id" gorm:"primaryKey;size:64"`
	VariantID string    `json:"variant_id" gorm:"primaryKey;size:64"`
	Quantity  int       `json:"quantity" gorm:"not null"`
	Price     float64   `json:"price"`
	Total     float64   `json:"total"`
	CreatedAt time.Time `json:"created_at"`

	Variant ProductVariant `json:"-" gorm:"foreignKey:VariantID"`
}
