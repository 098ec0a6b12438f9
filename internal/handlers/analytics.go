// internal/handlers/analytics.go
package handlers

import (
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/affigraph/internal/services"
	"github.com/javajoker/affigraph/internal/utils"
)

type AnalyticsHandler struct {
	analyticsService *services.AnalyticsService
}

func NewAnalyticsHandler(analyticsService *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsService: analyticsService,
	}
}

// parseDateRange reads optional from/to query params as RFC 3339 dates. Both
// must be present for a range to apply.
func parseDateRange(c *gin.Context) (*services.DateRange, error) {
	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" && toStr == "" {
		return nil, nil
	}
	if fromStr == "" || toStr == "" {
		return nil, fmt.Errorf("both from and to are required for a date range")
	}

	from, err := time.Parse(time.RFC3339, fromStr)
	if err != nil {
		return nil, fmt.Errorf("invalid from date: %s", fromStr)
	}
	to, err := time.Parse(time.RFC3339, toStr)
	if err != nil {
		return nil, fmt.Errorf("invalid to date: %s", toStr)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("to must not precede from")
	}
	return &services.DateRange{From: from, To: to}, nil
}

// GET /admin/analytics/affiliates
func (h *AnalyticsHandler) AffiliatePerformance(c *gin.Context) {
	rng, err := parseDateRange(c)
	if err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	var affiliateID *string
	if id := c.Query("affiliate_id"); id != "" {
		affiliateID = &id
	}

	performance, err := h.analyticsService.AffiliatePerformance(c.Request.Context(), affiliateID, rng)
	if err != nil {
		if errors.Is(err, services.ErrAffiliateNotFound) {
			utils.NotFoundResponse(c, "Affiliate")
			return
		}
		utils.InternalErrorResponse(c, "Failed to load affiliate performance")
		return
	}

	utils.SuccessResponseWithMeta(c, gin.H{"affiliates": performance}, gin.H{"count": len(performance)})
}

// GET /admin/analytics/products
func (h *AnalyticsHandler) ProductPerformance(c *gin.Context) {
	rng, err := parseDateRange(c)
	if err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	var productID *string
	if id := c.Query("product_id"); id != "" {
		productID = &id
	}

	performance, err := h.analyticsService.ProductPerformance(c.Request.Context(), productID, rng)
	if err != nil {
		if errors.Is(err, services.ErrProductNotFound) {
			utils.NotFoundResponse(c, "Product")
			return
		}
		utils.InternalErrorResponse(c, "Failed to load product performance")
		return
	}

	utils.SuccessResponseWithMeta(c, gin.H{"products": performance}, gin.H{"count": len(performance)})
}

// GET /admin/analytics/trends
func (h *AnalyticsHandler) Trends(c *gin.Context) {
	rng, err := parseDateRange(c)
	if err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}
	if rng == nil {
		to := time.Now()
		rng = &services.DateRange{From: to.AddDate(0, 0, -30), To: to}
	}

	groupBy := c.DefaultQuery("group_by", "day")
	points, err := h.analyticsService.Trends(c.Request.Context(), *rng, groupBy)
	if err != nil {
		if errors.Is(err, services.ErrInvalidGroupBy) {
			utils.BadRequestResponse(c, err.Error(), nil)
			return
		}
		utils.InternalErrorResponse(c, "Failed to load trends")
		return
	}

	utils.SuccessResponse(c, gin.H{"trends": points})
}

// GET /admin/analytics/network/:id
func (h *AnalyticsHandler) NetworkInfluence(c *gin.Context) {
	graph, err := h.analyticsService.NetworkInfluence(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrAffiliateNotFound) {
			utils.NotFoundResponse(c, "Affiliate")
			return
		}
		utils.InternalErrorResponse(c, "Failed to load influence network")
		return
	}

	utils.SuccessResponse(c, graph)
}

// GET /admin/analytics/dashboard
func (h *AnalyticsHandler) Dashboard(c *gin.Context) {
	rng, err := parseDateRange(c)
	if err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	stats, err := h.analyticsService.DashboardStats(c.Request.Context(), rng)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to load dashboard stats")
		return
	}

	utils.SuccessResponse(c, stats)
}
