// internal/services/affiliate_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/affigraph/internal/config"
	"github.com/javajoker/affigraph/internal/models"
	"github.com/javajoker/affigraph/internal/utils"
)

// AffiliateService is the affiliate self-service surface: profile, the
// promotable catalog, and referral link generation.
type AffiliateService struct {
	db         *gorm.DB
	commission *config.CommissionConfig
	shopify    *config.ShopifyConfig
}

func NewAffiliateService(db *gorm.DB, commission *config.CommissionConfig, shopify *config.ShopifyConfig) *AffiliateService {
	return &AffiliateService{db: db, commission: commission, shopify: shopify}
}

type AffiliateProfile struct {
	models.Person
	FollowerCount  int64 `json:"follower_count"`
	FollowingCount int64 `json:"following_count"`
}

// GetProfile returns the affiliate's record with follower graph counts.
func (s *AffiliateService) GetProfile(ctx context.Context, affiliateID string) (*AffiliateProfile, error) {
	var person models.Person
	err := s.db.WithContext(ctx).First(&person, "id = ?", affiliateID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAffiliateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load affiliate: %w", err)
	}

	profile := &AffiliateProfile{Person: person}
	if err := s.db.WithContext(ctx).Model(&models.Follow{}).
		Where("followee_id = ?", affiliateID).
		Count(&profile.FollowerCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count followers: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ?", affiliateID).
		Count(&profile.FollowingCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count following: %w", err)
	}
	return profile, nil
}

type UpdateProfileRequest struct {
	Name    *string      `json:"name" validate:"omitempty,min=1,max=255"`
	Bio     *string      `json:"bio"`
	Website *string      `json:"website" validate:"omitempty,url"`
	Social  models.JSONB `json:"social"`
}

// UpdateProfile applies partial edits to the affiliate's own record.
func (s *AffiliateService) UpdateProfile(ctx context.Context, affiliateID string, req *UpdateProfileRequest) (*models.Person, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Bio != nil {
		updates["bio"] = *req.Bio
	}
	if req.Website != nil {
		updates["website"] = *req.Website
	}
	if req.Social != nil {
		updates["social"] = req.Social
	}

	var person models.Person
	err := s.db.WithContext(ctx).First(&person, "id = ?", affiliateID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAffiliateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load affiliate: %w", err)
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&person).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update profile: %w", err)
		}
	}
	return &person, nil
}

type AffiliateProduct struct {
	models.Product
	CommissionRate float64 `json:"commission_rate"`
	IsAffiliated   bool    `json:"is_affiliated"`
	ReferredOrders int64   `json:"referred_orders"`
	EarnedRevenue  float64 `json:"earned_revenue"`
}

// ListProducts returns the promotable catalog from the affiliate's point of
// view: effective commission rate per product plus how it has performed for
// them so far. Soft-deleted products are excluded.
func (s *AffiliateService) ListProducts(ctx context.Context, affiliateID string) ([]AffiliateProduct, error) {
	affiliate, err := s.loadAffiliate(ctx, affiliateID)
	if err != nil {
		return nil, err
	}

	var products []models.Product
	if err := s.db.WithContext(ctx).
		Where("deleted = ?", false).
		Order("name").
		Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	var affiliations []models.Affiliation
	if err := s.db.WithContext(ctx).
		Where("person_id = ?", affiliateID).
		Find(&affiliations).Error; err != nil {
		return nil, fmt.Errorf("failed to load affiliations: %w", err)
	}
	overrides := make(map[string]float64, len(affiliations))
	for _, a := range affiliations {
		overrides[a.ProductID] = a.CommissionRate
	}

	var statRows []struct {
		ProductID string
		Orders    int64
		Revenue   float64
	}
	if err := s.db.WithContext(ctx).Table("referrals r").
		Select("v.product_id AS product_id, COUNT(DISTINCT o.id) AS orders, COALESCE(SUM(l.total), 0) AS revenue").
		Joins("JOIN orders o ON o.id = r.order_id").
		Joins("JOIN order_lines l ON l.order_id = o.id").
		Joins("JOIN product_variants v ON v.id = l.variant_id").
		Where("r.person_id = ?", affiliateID).
		Where("o.status <> ?", models.OrderStatusCancelled).
		Group("v.product_id").
		Scan(&statRows).Error; err != nil {
		return nil, fmt.Errorf("failed to load product stats: %w", err)
	}
	stats := make(map[string]struct {
		Orders  int64
		Revenue float64
	}, len(statRows))
	for _, r := range statRows {
		stats[r.ProductID] = struct {
			Orders  int64
			Revenue float64
		}{r.Orders, r.Revenue}
	}

	levelRate := s.levelRate(affiliate.Level)
	results := make([]AffiliateProduct, 0, len(products))
	for _, p := range products {
		item := AffiliateProduct{
			Product:        p,
			CommissionRate: levelRate,
			ReferredOrders: stats[p.ID].Orders,
			EarnedRevenue:  stats[p.ID].Revenue,
		}
		if rate, ok := overrides[p.ID]; ok {
			item.CommissionRate = rate
			item.IsAffiliated = true
		}
		results = append(results, item)
	}
	return results, nil
}

type ReferralLink struct {
	ProductID      string  `json:"product_id"`
	AffiliateCode  string  `json:"affiliate_code"`
	CommissionRate float64 `json:"commission_rate"`
	URL            string  `json:"url"`
}

// GenerateReferralLink merges an AFFILIATES edge between the affiliate and
// the product at the affiliate's level rate, minting an affiliate code on
// first use, and returns the shareable product URL.
func (s *AffiliateService) GenerateReferralLink(ctx context.Context, affiliateID, productID string) (*ReferralLink, error) {
	var link *ReferralLink
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var affiliate models.Person
		err := tx.First(&affiliate, "id = ?", affiliateID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAffiliateNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load affiliate: %w", err)
		}

		var product models.Product
		err = tx.First(&product, "id = ? AND deleted = ?", productID, false).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load product: %w", err)
		}

		if affiliate.AffiliateCode == nil {
			code, err := utils.GenerateAffiliateCode()
			if err != nil {
				return fmt.Errorf("failed to generate affiliate code: %w", err)
			}
			if err := tx.Model(&affiliate).Update("affiliate_code", code).Error; err != nil {
				return fmt.Errorf("failed to assign affiliate code: %w", err)
			}
			affiliate.AffiliateCode = &code
		}

		affiliation := models.Affiliation{
			PersonID:       affiliateID,
			ProductID:      productID,
			CommissionRate: s.levelRate(affiliate.Level),
			DateCreated:    time.Now(),
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "person_id"}, {Name: "product_id"}},
			DoNothing: true,
		}).Create(&affiliation).Error; err != nil {
			return fmt.Errorf("failed to merge affiliation: %w", err)
		}

		var current models.Affiliation
		if err := tx.Where("person_id = ? AND product_id = ?", affiliateID, productID).
			First(&current).Error; err != nil {
			return fmt.Errorf("failed to load affiliation: %w", err)
		}

		link = &ReferralLink{
			ProductID:      productID,
			AffiliateCode:  *affiliate.AffiliateCode,
			CommissionRate: current.CommissionRate,
			URL: fmt.Sprintf("%s/products/%s?affiliate=%s",
				s.shopify.ShopURL, productID, *affiliate.AffiliateCode),
		}

		logrus.WithFields(logrus.Fields{
			"affiliate_id": affiliateID,
			"product_id":   productID,
		}).Info("Generated referral link")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return link, nil
}

func (s *AffiliateService) loadAffiliate(ctx context.Context, affiliateID string) (*models.Person, error) {
	var person models.Person
	err := s.db.WithContext(ctx).First(&person, "id = ?", affiliateID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAffiliateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load affiliate: %w", err)
	}
	return &person, nil
}

func (s *AffiliateService) levelRate(level models.AffiliateLevel) float64 {
	switch level {
	case models.AffiliateLevelGold:
		return s.commission.GoldRate
	case models.AffiliateLevelSilver:
		return s.commission.SilverRate
	case models.AffiliateLevelBronze:
		return s.commission.BronzeRate
	default:
		return s.commission.DefaultRate
	}
}
