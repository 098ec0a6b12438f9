// internal/services/attribution_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/affigraph/internal/config"
	"github.com/javajoker/affigraph/internal/models"
)

// AttributionService resolves which affiliate referred an order, computes the
// primary commission from the order's line items, and propagates a secondary
// commission one hop up the FOLLOWS graph. Every write is an upsert keyed on
// (person, order), so replaying the same order is harmless.
type AttributionService struct {
	db  *gorm.DB
	cfg *config.CommissionConfig
}

func NewAttributionService(db *gorm.DB, cfg *config.CommissionConfig) *AttributionService {
	return &AttributionService{db: db, cfg: cfg}
}

// Attribute runs inside the caller's transaction so attribution commits or
// rolls back together with the order it belongs to. An unknown referral code
// is not an error: the order stays unattributed and processing continues.
func (s *AttributionService) Attribute(tx *gorm.DB, orderID, affiliateCode string, processedAt time.Time) error {
	var affiliate models.Person
	err := tx.Where("affiliate_code = ?", affiliateCode).First(&affiliate).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		logrus.WithFields(logrus.Fields{
			"order_id":       orderID,
			"affiliate_code": affiliateCode,
		}).Info("No affiliate found for referral code, skipping attribution")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up affiliate: %w", err)
	}

	// Merge the REFERRED edge; commission starts at zero on first creation.
	referral := models.Referral{
		PersonID:   affiliate.ID,
		OrderID:    orderID,
		Commission: 0,
		Tier:       models.ReferralTierPrimary,
		Status:     models.ReferralStatusActive,
		Date:       processedAt,
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "person_id"}, {Name: "order_id"}},
		DoNothing: true,
	}).Create(&referral).Error; err != nil {
		return fmt.Errorf("failed to merge referral: %w", err)
	}

	commission, err := s.computeCommission(tx, &affiliate, orderID)
	if err != nil {
		return err
	}

	// Set, never accumulate: recomputation for the same order is idempotent.
	if err := tx.Model(&models.Referral{}).
		Where("person_id = ? AND order_id = ?", affiliate.ID, orderID).
		Updates(map[string]interface{}{
			"commission": commission,
			"status":     models.ReferralStatusActive,
		}).Error; err != nil {
		return fmt.Errorf("failed to update referral commission: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"order_id":     orderID,
		"affiliate_id": affiliate.ID,
		"commission":   commission,
	}).Info("Attributed order to affiliate")

	return s.propagate(tx, &affiliate, orderID, commission, processedAt)
}

// ratedLine is one INCLUDES edge with the product it resolves to for rate
// lookup.
type ratedLine struct {
	Total     float64
	ProductID string
}

// computeCommission sums per-line-item commission over every INCLUDES edge of
// the order, using the affiliate's product-specific rate where one exists.
func (s *AttributionService) computeCommission(tx *gorm.DB, affiliate *models.Person, orderID string) (float64, error) {
	var lines []ratedLine
	if err := tx.Table("order_lines").
		Select("order_lines.total AS total, product_variants.product_id AS product_id").
		Joins("JOIN product_variants ON product_variants.id = order_lines.variant_id").
		Where("order_lines.order_id = ?", orderID).
		Scan(&lines).Error; err != nil {
		return 0, fmt.Errorf("failed to load order lines: %w", err)
	}

	var affiliations []models.Affiliation
	if err := tx.Where("person_id = ?", affiliate.ID).Find(&affiliations).Error; err != nil {
		return 0, fmt.Errorf("failed to load affiliations: %w", err)
	}
	overrides := make(map[string]float64, len(affiliations))
	for _, a := range affiliations {
		overrides[a.ProductID] = a.CommissionRate
	}

	return s.sumCommission(lines, overrides, affiliate.Level), nil
}

// sumCommission is the pure commission formula: Σ line.total × rate, with the
// per-product override winning over the level default. Deterministic, so a
// recompute for the same order always sets the same value.
func (s *AttributionService) sumCommission(lines []ratedLine, overrides map[string]float64, level models.AffiliateLevel) float64 {
	var total float64
	for _, line := range lines {
		var override *float64
		if rate, ok := overrides[line.ProductID]; ok {
			override = &rate
		}
		total += line.Total * s.ResolveRate(override, level)
	}
	return total
}

// ResolveRate picks the commission rate for one line: a product-specific
// AFFILIATES override wins, otherwise the affiliate's level default applies.
func (s *AttributionService) ResolveRate(override *float64, level models.AffiliateLevel) float64 {
	if override != nil {
		return *override
	}
	return s.LevelRate(level)
}

func (s *AttributionService) LevelRate(level models.AffiliateLevel) float64 {
	switch level {
	case models.AffiliateLevelGold:
		return s.cfg.GoldRate
	case models.AffiliateLevelSilver:
		return s.cfg.SilverRate
	case models.AffiliateLevelBronze:
		return s.cfg.BronzeRate
	default:
		return s.cfg.DefaultRate
	}
}

// propagate merges an INFLUENCED edge for each person the referring affiliate
// follows. One hop only; the secondary commission is overwritten on every
// recompute so it always tracks the current primary commission.
func (s *AttributionService) propagate(tx *gorm.DB, affiliate *models.Person, orderID string, primaryCommission float64, processedAt time.Time) error {
	var follows []models.Follow
	if err := tx.Where("follower_id = ?", affiliate.ID).Find(&follows).Error; err != nil {
		return fmt.Errorf("failed to load follows: %w", err)
	}

	secondary := s.SecondaryCommission(primaryCommission)
	for _, follow := range follows {
		influence := models.Influence{
			PersonID:   follow.FolloweeID,
			OrderID:    orderID,
			Commission: secondary,
			Tier:       models.ReferralTierSecondary,
			Status:     models.ReferralStatusActive,
			Date:       processedAt,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "person_id"}, {Name: "order_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"commission": secondary,
				"status":     models.ReferralStatusActive,
			}),
		}).Create(&influence).Error; err != nil {
			return fmt.Errorf("failed to merge influence edge: %w", err)
		}

		logrus.WithFields(logrus.Fields{
			"order_id":      orderID,
			"influencer_id": follow.FolloweeID,
			"commission":    secondary,
		}).Info("Propagated secondary commission to influencer")
	}

	return nil
}

func (s *AttributionService) SecondaryCommission(primaryCommission float64) float64 {
	return primaryCommission * s.cfg.SecondaryShare
}
