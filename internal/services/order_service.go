// internal/services/order_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/affigraph/internal/models"
)

// OrderService owns the order lifecycle. Cancellation is the one terminal
// transition and the only one that touches commission; it applies to created
// and fulfilled orders alike, since refunds arrive after fulfillment.
type OrderService struct {
	db *gorm.DB
}

func NewOrderService(db *gorm.DB) *OrderService {
	return &OrderService{db: db}
}

// CancelOrder marks the order cancelled and zeroes every REFERRED and
// INFLUENCED edge pointing at it. Replaying a cancellation re-applies the
// same zeroing and is safe.
func (s *OrderService) CancelOrder(ctx context.Context, orderID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", orderID).Error; err != nil {
			return fmt.Errorf("failed to acquire order lock: %w", err)
		}

		var order models.Order
		if err := tx.First(&order, "id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("failed to load order %s: %w", orderID, err)
		}

		now := time.Now()
		updates := map[string]interface{}{
			"status": models.OrderStatusCancelled,
		}
		if order.CancelledAt == nil {
			updates["cancelled_at"] = &now
		}
		if err := tx.Model(&order).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to cancel order %s: %w", orderID, err)
		}

		if err := ApplyCancellationZeroing(tx, orderID); err != nil {
			return err
		}

		logrus.WithField("order_id", orderID).Info("Cancelled order and zeroed commissions")
		return nil
	})
}

// FulfillOrder moves a created order to fulfilled. No commission effect.
// Cancelled orders are terminal and stay cancelled.
func (s *OrderService) FulfillOrder(ctx context.Context, orderID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", orderID).Error; err != nil {
			return fmt.Errorf("failed to acquire order lock: %w", err)
		}

		var order models.Order
		if err := tx.First(&order, "id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("failed to load order %s: %w", orderID, err)
		}

		if !order.Status.CanTransition(models.OrderStatusFulfilled) {
			logrus.WithFields(logrus.Fields{
				"order_id": orderID,
				"status":   order.Status,
			}).Warn("Ignoring fulfillment for order in terminal status")
			return nil
		}
		if order.Status == models.OrderStatusFulfilled {
			return nil
		}

		now := time.Now()
		if err := tx.Model(&order).Updates(map[string]interface{}{
			"status":       models.OrderStatusFulfilled,
			"fulfilled_at": &now,
		}).Error; err != nil {
			return fmt.Errorf("failed to fulfill order %s: %w", orderID, err)
		}

		logrus.WithField("order_id", orderID).Info("Marked order as fulfilled")
		return nil
	})
}

// ApplyCancellationZeroing zeroes commission and cancels the status on every
// attribution edge of an order, irrespective of prior values. Used by both
// the webhook path and the bulk-sync path inside their own transactions.
func ApplyCancellationZeroing(tx *gorm.DB, orderID string) error {
	if err := tx.Model(&models.Referral{}).
		Where("order_id = ?", orderID).
		Updates(map[string]interface{}{
			"commission": 0,
			"status":     models.ReferralStatusCancelled,
		}).Error; err != nil {
		return fmt.Errorf("failed to zero referrals for order %s: %w", orderID, err)
	}

	if err := tx.Model(&models.Influence{}).
		Where("order_id = ?", orderID).
		Updates(map[string]interface{}{
			"commission": 0,
			"status":     models.ReferralStatusCancelled,
		}).Error; err != nil {
		return fmt.Errorf("failed to zero influences for order %s: %w", orderID, err)
	}

	return nil
}
