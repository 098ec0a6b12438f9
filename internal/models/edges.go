// internal/models/edges.go
package models

import "time"

// Affiliation is the AFFILIATES edge: an explicit per-product commission rate
// override for one affiliate. It takes precedence over level defaults.
type Affiliation struct {
	PersonID       string    `json:"person_id" gorm:"primaryKey;size:64"`
	ProductID      string    `json:"product_id" gorm:"primaryKey;size:64"`
	CommissionRate float64   `json:"commission_rate"`
	DateCreated    time.Time `json:"date_created"`

	Person  Person  `json:"-" gorm:"foreignKey:PersonID"`
	Product Product `json:"-" gorm:"foreignKey:ProductID"`
}

// Referral is the REFERRED edge: the primary attribution of an order to the
// affiliate whose code was on it. At most one per (affiliate, order); the
// commission is always set from the full line-item sum, never accumulated.
type Referral struct {
	PersonID   string         `json:"person_id" gorm:"primaryKey;size:64"`
	OrderID    string         `json:"order_id" gorm:"primaryKey;size:64;index"`
	Commission float64        `json:"commission"`
	Tier       ReferralTier   `json:"tier" gorm:"type:varchar(20);not null;default:'primary'"`
	Status     ReferralStatus `json:"status" gorm:"type:varchar(20);not null;default:'active'"`
	Date       time.Time      `json:"date"`

	Person Person `json:"-" gorm:"foreignKey:PersonID"`
	Order  Order  `json:"-" gorm:"foreignKey:OrderID"`
}

// Influence is the INFLUENCED edge: the secondary, one-hop attribution to an
// influencer the referring affiliate follows. Commission is 10% of the
// primary commission at creation or recompute time.
type Influence struct {
	PersonID   string         `json:"person_id" gorm:"primaryKey;size:64"`
	OrderID    string         `json:"order_id" gorm:"primaryKey;size:64;index"`
	Commission float64        `json:"commission"`
	Tier       ReferralTier   `json:"tier" gorm:"type:varchar(20);not null;default:'secondary'"`
	Status     ReferralStatus `json:"status" gorm:"type:varchar(20);not null;default:'active'"`
	Date       time.Time      `json:"date"`

	Person Person `json:"-" gorm:"foreignKey:PersonID"`
	Order  Order  `json:"-" gorm:"foreignKey:OrderID"`
}
