// internal/handlers/affiliate.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/affigraph/internal/services"
	"github.com/javajoker/affigraph/internal/utils"
)

type AffiliateHandler struct {
	affiliateService *services.AffiliateService
	analyticsService *services.AnalyticsService
}

func NewAffiliateHandler(affiliateService *services.AffiliateService, analyticsService *services.AnalyticsService) *AffiliateHandler {
	return &AffiliateHandler{
		affiliateService: affiliateService,
		analyticsService: analyticsService,
	}
}

// GET /affiliate/profile
func (h *AffiliateHandler) GetProfile(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	profile, err := h.affiliateService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, services.ErrAffiliateNotFound) {
			utils.NotFoundResponse(c, "Affiliate")
			return
		}
		utils.InternalErrorResponse(c, "Failed to load profile")
		return
	}

	utils.SuccessResponse(c, profile)
}

// PUT /affiliate/profile
func (h *AffiliateHandler) UpdateProfile(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	person, err := h.affiliateService.UpdateProfile(c.Request.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, services.ErrAffiliateNotFound) {
			utils.NotFoundResponse(c, "Affiliate")
			return
		}
		if validationErrors := utils.GetValidationErrors(err); len(validationErrors) > 0 {
			utils.ValidationErrorResponse(c, validationErrors)
			return
		}
		utils.InternalErrorResponse(c, "Failed to update profile")
		return
	}

	utils.SuccessResponse(c, person)
}

// GET /affiliate/products
func (h *AffiliateHandler) ListProducts(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	products, err := h.affiliateService.ListProducts(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, services.ErrAffiliateNotFound) {
			utils.NotFoundResponse(c, "Affiliate")
			return
		}
		utils.InternalErrorResponse(c, "Failed to list products")
		return
	}

	utils.SuccessResponse(c, gin.H{"products": products})
}

// POST /affiliate/products/:id/referral-link
func (h *AffiliateHandler) GenerateReferralLink(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	productID := c.Param("id")
	link, err := h.affiliateService.GenerateReferralLink(c.Request.Context(), userID, productID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAffiliateNotFound):
			utils.NotFoundResponse(c, "Affiliate")
		case errors.Is(err, services.ErrProductNotFound):
			utils.NotFoundResponse(c, "Product")
		default:
			utils.InternalErrorResponse(c, "Failed to generate referral link")
		}
		return
	}

	utils.SuccessResponse(c, link)
}

// GET /affiliate/performance
func (h *AffiliateHandler) GetPerformance(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	rng, err := parseDateRange(c)
	if err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	performance, err := h.analyticsService.AffiliatePerformance(c.Request.Context(), &userID, rng)
	if err != nil {
		if errors.Is(err, services.ErrAffiliateNotFound) {
			utils.NotFoundResponse(c, "Affiliate")
			return
		}
		utils.InternalErrorResponse(c, "Failed to load performance")
		return
	}

	utils.SuccessResponse(c, performance[0])
}

// GET /affiliate/network
func (h *AffiliateHandler) GetNetwork(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	graph, err := h.analyticsService.NetworkInfluence(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, services.ErrAffiliateNotFound) {
			utils.NotFoundResponse(c, "Affiliate")
			return
		}
		utils.InternalErrorResponse(c, "Failed to load network")
		return
	}

	utils.SuccessResponse(c, graph)
}
