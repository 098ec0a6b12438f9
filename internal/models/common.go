// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
)

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type PersonRole string

const (
	PersonRoleAdmin     PersonRole = "admin"
	PersonRoleAffiliate PersonRole = "affiliate"
	PersonRoleCustomer  PersonRole = "customer"
)

type AffiliateLevel string

const (
	AffiliateLevelBronze AffiliateLevel = "bronze"
	AffiliateLevelSilver AffiliateLevel = "silver"
	AffiliateLevelGold   AffiliateLevel = "gold"
)

type OrderStatus string

const (
	OrderStatusCreated   OrderStatus = "created"
	OrderStatusFulfilled OrderStatus = "fulfilled"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type ReferralTier string

const (
	ReferralTierPrimary   ReferralTier = "primary"
	ReferralTierSecondary ReferralTier = "secondary"
)

type ReferralStatus string

const (
	ReferralStatusActive    ReferralStatus = "active"
	ReferralStatusCancelled ReferralStatus = "cancelled"
)

// CanTransition reports whether an order may move from one status to another.
// Cancelled is terminal; fulfilled orders can still be cancelled by a refund.
// Re-applying the current status is allowed so replayed events stay no-ops.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	if s == to {
		return true
	}
	switch s {
	case OrderStatusCreated:
		return true
	case OrderStatusFulfilled:
		return to == OrderStatusCancelled
	default:
		return false
	}
}
