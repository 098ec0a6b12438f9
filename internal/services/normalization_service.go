// internal/services/normalization_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/affigraph/internal/config"
	"github.com/javajoker/affigraph/internal/events"
	"github.com/javajoker/affigraph/internal/models"
)

// NormalizationService converts raw commerce payloads into canonical graph
// entities. Work is done in fixed-size batches, one transaction per batch:
// a failed batch rolls back alone while earlier batches stay committed.
type NormalizationService struct {
	db          *gorm.DB
	cfg         *config.SyncConfig
	attribution *AttributionService
}

func NewNormalizationService(db *gorm.DB, cfg *config.SyncConfig, attribution *AttributionService) *NormalizationService {
	return &NormalizationService{db: db, cfg: cfg, attribution: attribution}
}

func (s *NormalizationService) NormalizeProducts(ctx context.Context, products []events.Product) error {
	batchSize := s.cfg.BatchSize
	for i := 0; i < len(products); i += batchSize {
		batch := products[i:min(i+batchSize, len(products))]
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			for j := range batch {
				if err := s.upsertProduct(tx, &batch[j]); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("product batch starting at %d failed: %w", i, err)
		}
		logrus.Infof("Processed %d of %d products", min(i+batchSize, len(products)), len(products))
	}
	return nil
}

func (s *NormalizationService) NormalizeOrders(ctx context.Context, orders []events.Order) error {
	batchSize := s.cfg.BatchSize
	for i := 0; i < len(orders); i += batchSize {
		batch := orders[i:min(i+batchSize, len(orders))]
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			for j := range batch {
				if err := s.processOrder(tx, &batch[j]); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("order batch starting at %d failed: %w", i, err)
		}
		logrus.Infof("Processed %d of %d orders", min(i+batchSize, len(orders)), len(orders))
	}
	return nil
}

// SoftDeleteProduct marks a product deleted without removing it, keeping its
// historical edges intact for analytics. Unknown ids are a no-op.
func (s *NormalizationService) SoftDeleteProduct(ctx context.Context, productID string) error {
	now := time.Now()
	result := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", productID).
		Updates(map[string]interface{}{
			"deleted":    true,
			"deleted_at": &now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to soft-delete product %s: %w", productID, result.Error)
	}
	if result.RowsAffected == 0 {
		logrus.WithField("product_id", productID).Info("Deletion notice for unknown product, ignoring")
	}
	return nil
}

func (s *NormalizationService) upsertProduct(tx *gorm.DB, p *events.Product) error {
	product := models.Product{
		ID:               p.Key(),
		Name:             p.Title,
		Description:      p.BodyHTML,
		Type:             p.ProductType,
		Vendor:           p.Vendor,
		Tags:             pq.StringArray(splitTags(p.Tags)),
		ShopifyCreatedAt: parseShopifyTime(p.CreatedAt),
		ShopifyUpdatedAt: parseShopifyTime(p.UpdatedAt),
	}

	// Categories are derived from the product type and linked on upsert.
	if p.ProductType != "" {
		category := models.Category{Name: p.ProductType}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).Create(&category).Error; err != nil {
			return fmt.Errorf("failed to merge category %q: %w", p.ProductType, err)
		}
		product.CategoryName = &product.Type
	}

	// Merge-on-match refreshes mutable fields only; created_at and the
	// soft-delete flag survive updates.
	if err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "description", "type", "vendor", "tags",
			"category_name", "shopify_updated_at", "updated_at",
		}),
	}).Create(&product).Error; err != nil {
		return fmt.Errorf("failed to merge product %s: %w", product.ID, err)
	}

	for i := range p.Variants {
		v := &p.Variants[i]
		variant := models.ProductVariant{
			ID:        v.Key(),
			ProductID: product.ID,
			Title:     v.Title,
			Price:     v.UnitPrice(),
			SKU:       v.SKU,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title", "price", "sku", "updated_at",
			}),
		}).Create(&variant).Error; err != nil {
			return fmt.Errorf("failed to merge variant %s: %w", variant.ID, err)
		}
	}

	return nil
}

func (s *NormalizationService) processOrder(tx *gorm.DB, o *events.Order) error {
	orderID := o.Key()

	// Order-scoped advisory lock: a webhook delivery and a bulk sync racing
	// on the same order serialize here instead of interleaving.
	if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", orderID).Error; err != nil {
		return fmt.Errorf("failed to acquire order lock: %w", err)
	}

	if o.Customer != nil {
		customer := models.Customer{
			ID:        o.Customer.Key(),
			Email:     o.Customer.Email,
			FirstName: o.Customer.FirstName,
			LastName:  o.Customer.LastName,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"email", "first_name", "last_name", "updated_at",
			}),
		}).Create(&customer).Error; err != nil {
			return fmt.Errorf("failed to merge customer %s: %w", customer.ID, err)
		}
	}

	var existing *models.Order
	var current models.Order
	err := tx.First(&current, "id = ?", orderID).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to load order %s: %w", orderID, err)
	}
	if err == nil {
		existing = &current
	}
	status := resolveStatus(existing, StatusFromEvent(o))

	processedAt := parseShopifyTime(o.ProcessedAt)
	if processedAt == nil {
		now := time.Now()
		processedAt = &now
	}

	order := models.Order{
		ID:                orderID,
		Name:              o.Name,
		Total:             o.Total(),
		Status:            status,
		FulfillmentStatus: o.FulfillmentStatus,
		ProcessedAt:       processedAt,
		ShopifyCreatedAt:  parseShopifyTime(o.CreatedAt),
		ShopifyUpdatedAt:  parseShopifyTime(o.UpdatedAt),
	}
	if o.Customer != nil {
		customerID := o.Customer.Key()
		order.CustomerID = &customerID
	}

	if err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "total", "status", "fulfillment_status",
			"customer_id", "processed_at", "shopify_updated_at", "updated_at",
		}),
	}).Create(&order).Error; err != nil {
		return fmt.Errorf("failed to merge order %s: %w", orderID, err)
	}

	items, err := s.filterLineItems(orderID, o.LineItems)
	if err != nil {
		return err
	}
	for i := range items {
		if err := s.upsertLineItem(tx, o, orderID, &items[i]); err != nil {
			return err
		}
	}

	if status == models.OrderStatusCancelled {
		if err := ApplyCancellationZeroing(tx, orderID); err != nil {
			return err
		}
		return nil
	}

	if code := o.AffiliateCode(); code != "" {
		if err := s.attribution.Attribute(tx, orderID, code, *processedAt); err != nil {
			return err
		}
	}

	return nil
}

func (s *NormalizationService) upsertLineItem(tx *gorm.DB, o *events.Order, orderID string, item *events.LineItem) error {
	productID := strconv.FormatInt(item.ProductID, 10)

	// Line items can reference products the store has never pushed; create a
	// skeletal node so the INCLUDES edge always has both endpoints.
	product := models.Product{
		ID:   productID,
		Name: baseTitle(item.Title),
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(&product).Error; err != nil {
		return fmt.Errorf("failed to merge product %s: %w", productID, err)
	}

	variantID := strconv.FormatInt(item.VariantID, 10)
	if item.VariantID == 0 {
		variantID = productID + "-default"
	}
	variant := models.ProductVariant{
		ID:        variantID,
		ProductID: productID,
		Title:     item.Title,
		Price:     item.UnitPrice(),
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(&variant).Error; err != nil {
		return fmt.Errorf("failed to merge variant %s: %w", variantID, err)
	}

	line := models.OrderLine{
		OrderID:   orderID,
		VariantID: variantID,
		Quantity:  item.Quantity,
		Price:     item.UnitPrice(),
		Total:     item.LineTotal(),
	}
	if createdAt := parseShopifyTime(o.CreatedAt); createdAt != nil {
		line.CreatedAt = *createdAt
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "order_id"}, {Name: "variant_id"}},
		DoNothing: true,
	}).Create(&line).Error; err != nil {
		return fmt.Errorf("failed to merge order line %s/%s: %w", orderID, variantID, err)
	}

	return nil
}

// filterLineItems validates each line item and applies the configured policy
// for invalid ones: skip them, or fail the whole order and with it the batch.
func (s *NormalizationService) filterLineItems(orderID string, items []events.LineItem) ([]events.LineItem, error) {
	valid := make([]events.LineItem, 0, len(items))
	for i := range items {
		if err := items[i].Validate(); err != nil {
			if s.cfg.SkipInvalidItems {
				logrus.WithError(err).WithField("order_id", orderID).
					Warn("Skipping invalid line item")
				continue
			}
			return nil, fmt.Errorf("order %s: %w", orderID, err)
		}
		valid = append(valid, items[i])
	}
	return valid, nil
}

// resolveStatus applies the transition guard against the stored order, if any.
// A blocked transition keeps the stored status, so a late or replayed event
// never resurrects a cancelled order.
func resolveStatus(existing *models.Order, incoming models.OrderStatus) models.OrderStatus {
	if existing != nil && !existing.Status.CanTransition(incoming) {
		return existing.Status
	}
	return incoming
}

// StatusFromEvent maps the platform's financial/fulfillment statuses onto the
// closed order lifecycle.
func StatusFromEvent(o *events.Order) models.OrderStatus {
	switch o.FinancialStatus {
	case "refunded", "voided":
		return models.OrderStatusCancelled
	}
	if o.FulfillmentStatus == "fulfilled" {
		return models.OrderStatusFulfilled
	}
	return models.OrderStatusCreated
}

// baseTitle strips the variant suffix from a line item title.
func baseTitle(title string) string {
	if idx := strings.Index(title, " - "); idx >= 0 {
		return title[:idx]
	}
	return title
}

func splitTags(tags string) []string {
	if tags == "" {
		return nil
	}
	parts := strings.Split(tags, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseShopifyTime(value string) *time.Time {
	if value == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil
	}
	return &t
}
