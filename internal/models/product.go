// internal/models/product.go
package models

import (
	"time"

	"github.com/lib/pq"
)

// Product nodes are never physically removed; deletion webhooks flip the
// Deleted flag so historical INCLUDES edges keep their analytics value.
type Product struct {
	ID               string         `json:"id" gorm:"primaryKey;size:64"`
	Name             string         `json:"name" gorm:"size:255"`
	Description      string         `json:"description,omitempty" gorm:"type:text"`
	Type             string         `json:"type,omitempty" gorm:"size:255"`
	Vendor           string         `json:"vendor,omitempty" gorm:"size:255"`
	Tags             pq.StringArray `json:"tags,omitempty" gorm:"type:text[]"`
	CategoryName     *string        `json:"category_name,omitempty" gorm:"size:255"`
	Deleted          bool           `json:"deleted" gorm:"not null;default:false"`
	DeletedAt        *time.Time     `json:"deleted_at,omitempty"`
	ShopifyCreatedAt *time.Time     `json:"shopify_created_at,omitempty"`
	ShopifyUpdatedAt *time.Time     `json:"shopify_updated_at,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`

	Category *Category        `json:"category,omitempty" gorm:"foreignKey:CategoryName;references:Name"`
	Variants []ProductVariant `json:"variants,omitempty" gorm:"foreignKey:ProductID"`
}

// ProductVariant is owned by exactly one Product (the HAS_VARIANT edge).
type ProductVariant struct {
	ID        string    `json:"id" gorm:"primaryKey;size:64"`
	ProductID string    `json:"product_id" gorm:"size:64;index;not null"`
	Title     string    `json:"title" gorm:"size:255"`
	Price     float64   `json:"price"`
	SKU       string    `json:"sku,omitempty" gorm:"size:128"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Product Product `json:"-" gorm:"foreignKey:ProductID"`
}

// Category is derived from the product type on product upsert.
type Category struct {
	Name      string    `json:"name" gorm:"primaryKey;size:255"`
	CreatedAt time.Time `json:"created_at"`
}
