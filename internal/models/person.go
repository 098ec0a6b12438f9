// internal/models/person.go
package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Person is a graph node keyed by an external id. Affiliates additionally
// carry a globally unique affiliate code used for referral attribution.
type Person struct {
	ID            string         `json:"id" gorm:"primaryKey;size:64"`
	Name          string         `json:"name" gorm:"size:255"`
	Email         string         `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash  string         `json:"-" gorm:"size:255"`
	Role          PersonRole     `json:"role" gorm:"type:varchar(20);not null;default:'customer'"`
	Level         AffiliateLevel `json:"level,omitempty" gorm:"type:varchar(20)"`
	AffiliateCode *string        `json:"affiliate_code,omitempty" gorm:"uniqueIndex;size:64"`
	Bio           string         `json:"bio,omitempty" gorm:"type:text"`
	Social        JSONB          `json:"social,omitempty" gorm:"type:jsonb"`
	Website       string         `json:"website,omitempty" gorm:"size:255"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`

	Referrals    []Referral    `json:"referrals,omitempty" gorm:"foreignKey:PersonID"`
	Influences   []Influence   `json:"influences,omitempty" gorm:"foreignKey:PersonID"`
	Affiliations []Affiliation `json:"affiliations,omitempty" gorm:"foreignKey:PersonID"`
}

func (p *Person) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	p.PasswordHash = string(hashedPassword)
	return nil
}

func (p *Person) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password))
}

// Follow is the FOLLOWS edge: the influence graph used for secondary
// attribution. One hop only is ever traversed when propagating commission.
type Follow struct {
	FollowerID string    `json:"follower_id" gorm:"primaryKey;size:64"`
	FolloweeID string    `json:"followee_id" gorm:"primaryKey;size:64"`
	CreatedAt  time.Time `json:"created_at"`

	Follower Person `json:"-" gorm:"foreignKey:FollowerID"`
	Followee Person `json:"-" gorm:"foreignKey:FolloweeID"`
}

func (Follow) TableName() string { return "follows" }
