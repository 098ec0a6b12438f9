// internal/services/sync_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/affigraph/internal/config"
	"github.com/javajoker/affigraph/internal/events"
)

// CatalogSource is the upstream commerce platform the sync pipeline pulls
// from. Satisfied by the Shopify client; tests substitute a fake.
type CatalogSource interface {
	GetAllProducts(ctx context.Context) ([]events.Product, error)
	GetAllOrders(ctx context.Context, since time.Time) ([]events.Order, error)
}

// SyncService runs bulk pulls from the platform through the normalization
// pipeline. Each run gets a uuid so its log lines correlate.
type SyncService struct {
	source        CatalogSource
	normalization *NormalizationService
	cfg           *config.SyncConfig
}

func NewSyncService(source CatalogSource, normalization *NormalizationService, cfg *config.SyncConfig) *SyncService {
	return &SyncService{source: source, normalization: normalization, cfg: cfg}
}

type SyncResult struct {
	RunID     string        `json:"run_id"`
	Resource  string        `json:"resource"`
	Count     int           `json:"count"`
	Since     *time.Time    `json:"since,omitempty"`
	Duration  time.Duration `json:"-"`
	DurationS float64       `json:"duration_seconds"`
}

// SyncProducts pulls the full catalog and normalizes it.
func (s *SyncService) SyncProducts(ctx context.Context) (*SyncResult, error) {
	runID := uuid.New().String()
	start := time.Now()
	log := logrus.WithFields(logrus.Fields{"run_id": runID, "resource": "products"})
	log.Info("Starting product sync")

	products, err := s.source.GetAllProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("product sync %s: %w", runID, err)
	}
	if err := s.normalization.NormalizeProducts(ctx, products); err != nil {
		return nil, fmt.Errorf("product sync %s: %w", runID, err)
	}

	result := &SyncResult{
		RunID:     runID,
		Resource:  "products",
		Count:     len(products),
		Duration:  time.Since(start),
		DurationS: time.Since(start).Seconds(),
	}
	log.WithFields(logrus.Fields{
		"count":    result.Count,
		"duration": result.Duration,
	}).Info("Completed product sync")
	return result, nil
}

// SyncOrders pulls orders updated since the given time and normalizes them,
// which re-runs attribution per order. A nil since defaults to a 30-day
// lookback.
func (s *SyncService) SyncOrders(ctx context.Context, since *time.Time) (*SyncResult, error) {
	runID := uuid.New().String()
	start := time.Now()

	from := time.Now().AddDate(0, 0, -30)
	if since != nil {
		from = *since
	}

	log := logrus.WithFields(logrus.Fields{
		"run_id":   runID,
		"resource": "orders",
		"since":    from,
	})
	log.Info("Starting order sync")

	orders, err := s.source.GetAllOrders(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("order sync %s: %w", runID, err)
	}
	if err := s.normalization.NormalizeOrders(ctx, orders); err != nil {
		return nil, fmt.Errorf("order sync %s: %w", runID, err)
	}

	result := &SyncResult{
		RunID:     runID,
		Resource:  "orders",
		Count:     len(orders),
		Since:     &from,
		Duration:  time.Since(start),
		DurationS: time.Since(start).Seconds(),
	}
	log.WithFields(logrus.Fields{
		"count":    result.Count,
		"duration": result.Duration,
	}).Info("Completed order sync")
	return result, nil
}

// RunScheduler blocks, running product syncs and order syncs on their
// configured intervals until the context is cancelled. Orders use a rolling
// lookback window so a missed webhook is eventually reconciled.
func (s *SyncService) RunScheduler(ctx context.Context) {
	productTicker := time.NewTicker(time.Duration(s.cfg.ProductIntervalHours) * time.Hour)
	orderTicker := time.NewTicker(time.Duration(s.cfg.OrderIntervalHours) * time.Hour)
	defer productTicker.Stop()
	defer orderTicker.Stop()

	logrus.WithFields(logrus.Fields{
		"product_interval_hours": s.cfg.ProductIntervalHours,
		"order_interval_hours":   s.cfg.OrderIntervalHours,
		"order_lookback_days":    s.cfg.OrderLookbackDays,
	}).Info("Sync scheduler started")

	for {
		select {
		case <-ctx.Done():
			logrus.Info("Sync scheduler stopped")
			return
		case <-productTicker.C:
			if _, err := s.SyncProducts(ctx); err != nil {
				logrus.WithError(err).Error("Scheduled product sync failed")
			}
		case <-orderTicker.C:
			since := time.Now().AddDate(0, 0, -s.cfg.OrderLookbackDays)
			if _, err := s.SyncOrders(ctx, &since); err != nil {
				logrus.WithError(err).Error("Scheduled order sync failed")
			}
		}
	}
}
