package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"investorportal/internal/services"
)

// PipelineHandler serves the price oracle. Requests are authenticated by API
// key, so price updates carry no user.
type PipelineHandler struct {
	positionService services.PositionServicer
}

// NewPipelineHandler creates a new PipelineHandler.
func NewPipelineHandler(positionService services.PositionServicer) *PipelineHandler {
	return &PipelineHandler{positionService: positionService}
}

// PricingTargetsResponse lists the positions to quote.
type PricingTargetsResponse struct {
	Targets []services.PricingTarget `json:"targets"`
}

// RecordPricesRequest carries one batch of quotes.
type RecordPricesRequest struct {
	Prices []services.PriceUpdate `json:"prices" binding:"required,min=1,max=500,dive"`
}

// GetPricingTargets handles listing Live positions with a ticker.
// @Summary     Pricing targets
// @Tags        pipeline
// @Produce     json
// @Security    ApiKeyAuth
// @Success     200 {object} PricingTargetsResponse "Targets"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     503 {object} ErrorResponse "Pipeline not configured"
// @Router      /pipeline/positions [get]
func (h *PipelineHandler) GetPricingTargets(c *gin.Context) {
	targets, err := h.positionService.ListPricingTargets(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}
	if targets == nil {
		targets = []services.PricingTarget{}
	}

	c.JSON(http.StatusOK, PricingTargetsResponse{Targets: targets})
}

// RecordPrices handles a batch of market prices from the oracle.
// @Summary     Record market prices
// @Description Entries are applied independently; failures are reported per position
// @Tags        pipeline
// @Accept      json
// @Produce     json
// @Security    ApiKeyAuth
// @Param       request body RecordPricesRequest true "Prices"
// @Success     200 {object} services.PriceBatchResult "Batch outcome"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Router      /pipeline/prices [post]
func (h *PipelineHandler) RecordPrices(c *gin.Context) {
	var req RecordPricesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	result, err := h.positionService.RecordMarketPrices(c.Request.Context(), req.Prices, "")
	if err != nil {
		respondWithError(c, err)
		return
	}
	if result.Failed == nil {
		result.Failed = []services.PriceFailure{}
	}

	c.JSON(http.StatusOK, result)
}
