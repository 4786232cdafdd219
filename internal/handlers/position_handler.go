package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"investorportal/internal/calc"
	"investorportal/internal/models"
	"investorportal/internal/pagination"
	"investorportal/internal/services"
)

// PositionHandler serves the investor and admin position endpoints.
type PositionHandler struct {
	positionService services.PositionServicer
}

// NewPositionHandler creates a new PositionHandler.
func NewPositionHandler(positionService services.PositionServicer) *PositionHandler {
	return &PositionHandler{positionService: positionService}
}

// CreatePositionRequest represents the request payload for opening a position.
// Money values accept JSON numbers or decimal strings.
type CreatePositionRequest struct {
	Title       string                `json:"title" binding:"required,max=200"`
	Ticker      *string               `json:"ticker" binding:"omitempty,ticker"`
	Sector      *string               `json:"sector" binding:"omitempty,max=100"`
	Status      models.PositionStatus `json:"status" binding:"omitempty,position_status"`
	Visibility  models.Visibility     `json:"visibility" binding:"omitempty,visibility"`
	EntryDate   *models.Date          `json:"entry_date" swaggertype:"string" example:"2024-01-15"`
	EntryPrice  decimal.Decimal       `json:"entry_price" swaggertype:"string" example:"100.00"`
	Quantity    decimal.Decimal       `json:"quantity" swaggertype:"string" example:"40"`
	TargetPrice decimal.NullDecimal   `json:"target_price" swaggertype:"string"`
	MarketPrice decimal.NullDecimal   `json:"market_price" swaggertype:"string"`
	NotesAdmin  string                `json:"notes_admin" binding:"max=5000"`
	PublicNote  string                `json:"public_note" binding:"max=5000"`
	Tags        []string              `json:"tags" binding:"max=20,dive,max=50"`
}

// UpdatePositionRequest represents a partial update. Omitted fields are left
// unchanged; clear_target_price removes the target.
type UpdatePositionRequest struct {
	Title            *string                `json:"title" binding:"omitempty,max=200"`
	Ticker           *string                `json:"ticker" binding:"omitempty,ticker"`
	Sector           *string                `json:"sector" binding:"omitempty,max=100"`
	Status           *models.PositionStatus `json:"status" binding:"omitempty,position_status"`
	Visibility       *models.Visibility     `json:"visibility" binding:"omitempty,visibility"`
	EntryDate        *models.Date           `json:"entry_date" swaggertype:"string"`
	OpenedDate       *models.Date           `json:"opened_date" swaggertype:"string"`
	EntryPrice       *decimal.Decimal       `json:"entry_price" swaggertype:"string"`
	Quantity         *decimal.Decimal       `json:"quantity" swaggertype:"string"`
	TargetPrice      *decimal.Decimal       `json:"target_price" swaggertype:"string"`
	ClearTargetPrice bool                   `json:"clear_target_price"`
	MarketPrice      *decimal.Decimal       `json:"market_price" swaggertype:"string"`
	NotesAdmin       *string                `json:"notes_admin" binding:"omitempty,max=5000"`
	PublicNote       *string                `json:"public_note" binding:"omitempty,max=5000"`
	Tags             *[]string              `json:"tags" binding:"omitempty,max=20"`
	DiffSummary      string                 `json:"diff_summary" binding:"max=500"`
	ExpectedVersion  *int64                 `json:"expected_version" binding:"omitempty,min=1"`
}

// ClosePositionRequest represents the request payload for closing a position.
type ClosePositionRequest struct {
	ClosingPrice    decimal.Decimal `json:"closing_price" swaggertype:"string" example:"120.00"`
	ClosingDate     *models.Date    `json:"closing_date" swaggertype:"string" example:"2024-06-01"`
	PublicNote      *string         `json:"public_note" binding:"omitempty,max=5000"`
	ExpectedVersion *int64          `json:"expected_version" binding:"omitempty,min=1"`
}

// VisibilityRequest represents the request payload for changing visibility.
type VisibilityRequest struct {
	Visibility models.Visibility `json:"visibility" binding:"required,visibility"`
}

// MarketPriceRequest represents the request payload for a manual price update.
type MarketPriceRequest struct {
	MarketPrice decimal.Decimal `json:"market_price" swaggertype:"string" example:"125.50"`
}

// PositionResponse wraps a single position.
type PositionResponse struct {
	Position *models.Position `json:"position"`
}

// SummaryResponse is the portfolio summary plus display strings.
type SummaryResponse struct {
	*services.PortfolioSummary
	Formatted map[string]string `json:"formatted"`
}

func (r *UpdatePositionRequest) patch() services.PositionPatch {
	p := services.PositionPatch{
		Title:           r.Title,
		Ticker:          r.Ticker,
		Sector:          r.Sector,
		Status:          r.Status,
		Visibility:      r.Visibility,
		EntryDate:       r.EntryDate,
		OpenedDate:      r.OpenedDate,
		EntryPrice:      r.EntryPrice,
		Quantity:        r.Quantity,
		MarketPrice:     r.MarketPrice,
		NotesAdmin:      r.NotesAdmin,
		PublicNote:      r.PublicNote,
		Tags:            r.Tags,
		ExpectedVersion: r.ExpectedVersion,
	}
	switch {
	case r.ClearTargetPrice:
		p.TargetPrice = &decimal.NullDecimal{}
	case r.TargetPrice != nil:
		p.TargetPrice = &decimal.NullDecimal{Decimal: *r.TargetPrice, Valid: true}
	}
	return p
}

// ListPositions handles listing the positions visible to the caller.
// @Summary     List positions
// @Description Admins see every position; investors see Live positions published to members
// @Tags        positions
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.PositionWithCalculations] "Paginated positions"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /positions [get]
func (h *PositionHandler) ListPositions(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	result, err := h.positionService.ListVisible(c.Request.Context(), getRole(c), page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetPosition handles fetching one position with its derived figures.
// @Summary     Get position
// @Tags        positions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Position ID"
// @Success     200 {object} models.PositionWithCalculations "Position"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Position not found"
// @Router      /positions/{id} [get]
func (h *PositionHandler) GetPosition(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	position, err := h.positionService.GetVisible(c.Request.Context(), getRole(c), id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"position": position})
}

// GetSummary handles the portfolio summary.
// @Summary     Portfolio summary
// @Description Cost basis of Live positions, unrealized and realized P&L, and counts by status
// @Tags        positions
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} SummaryResponse "Summary"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /positions/summary [get]
func (h *PositionHandler) GetSummary(c *gin.Context) {
	summary, err := h.positionService.Summary(c.Request.Context(), getRole(c))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, SummaryResponse{
		PortfolioSummary: summary,
		Formatted: map[string]string{
			"portfolio_cost_basis": calc.FormatCurrency(summary.CostBasis),
			"total_unrealized_pnl": calc.FormatCurrency(summary.UnrealizedPnL),
			"total_realized_pnl":   calc.FormatCurrency(summary.RealizedPnL),
		},
	})
}

// CreatePosition handles opening a position.
// @Summary     Create position
// @Tags        admin
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreatePositionRequest true "Position details"
// @Success     201 {object} PositionResponse "Position created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Admin access required"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /admin/positions [post]
func (h *PositionHandler) CreatePosition(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreatePositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	position, err := h.positionService.Create(c.Request.Context(), services.CreatePositionInput{
		Title:       req.Title,
		Ticker:      req.Ticker,
		Sector:      req.Sector,
		Status:      req.Status,
		Visibility:  req.Visibility,
		EntryDate:   req.EntryDate,
		EntryPrice:  req.EntryPrice,
		Quantity:    req.Quantity,
		TargetPrice: req.TargetPrice,
		MarketPrice: req.MarketPrice,
		NotesAdmin:  req.NotesAdmin,
		PublicNote:  req.PublicNote,
		Tags:        req.Tags,
	}, userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, PositionResponse{Position: position})
}

// UpdatePosition handles a partial update.
// @Summary     Update position
// @Description Merge the supplied fields; cost basis is recomputed when entry price or quantity change
// @Tags        admin
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                true "Position ID"
// @Param       request body UpdatePositionRequest true "Fields to change"
// @Success     200 {object} PositionResponse "Position updated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Position not found"
// @Failure     409 {object} ErrorResponse "Version conflict or invalid transition"
// @Router      /admin/positions/{id} [put]
func (h *PositionHandler) UpdatePosition(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdatePositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	position, err := h.positionService.Update(c.Request.Context(), id, req.patch(), userID, req.DiffSummary)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, PositionResponse{Position: position})
}

// ClosePosition handles closing a Live position.
// @Summary     Close position
// @Description Record the closing price and date and realize P&L
// @Tags        admin
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string               true "Position ID"
// @Param       request body ClosePositionRequest true "Closing details"
// @Success     200 {object} PositionResponse "Position closed"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Position not found"
// @Failure     409 {object} ErrorResponse "Position is not Live"
// @Router      /admin/positions/{id}/close [post]
func (h *PositionHandler) ClosePosition(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ClosePositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	position, err := h.positionService.Close(c.Request.Context(), id, services.ClosePositionInput{
		ClosingPrice:    req.ClosingPrice,
		ClosingDate:     req.ClosingDate,
		PublicNote:      req.PublicNote,
		ExpectedVersion: req.ExpectedVersion,
	}, userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, PositionResponse{Position: position})
}

// ArchivePosition handles archiving a position.
// @Summary     Archive position
// @Tags        admin
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Position ID"
// @Success     200 {object} PositionResponse "Position archived"
// @Failure     404 {object} ErrorResponse "Position not found"
// @Failure     409 {object} ErrorResponse "Already archived"
// @Router      /admin/positions/{id}/archive [post]
func (h *PositionHandler) ArchivePosition(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	position, err := h.positionService.Archive(c.Request.Context(), id, userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, PositionResponse{Position: position})
}

// SetVisibility handles publishing or unpublishing a position.
// @Summary     Change visibility
// @Tags        admin
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string            true "Position ID"
// @Param       request body VisibilityRequest true "New visibility"
// @Success     200 {object} PositionResponse "Visibility changed"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Position not found"
// @Router      /admin/positions/{id}/visibility [put]
func (h *PositionHandler) SetVisibility(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req VisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	position, err := h.positionService.ToggleVisibility(c.Request.Context(), id, req.Visibility, userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, PositionResponse{Position: position})
}

// UpdateMarketPrice handles a manual market price update.
// @Summary     Update market price
// @Tags        admin
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string             true "Position ID"
// @Param       request body MarketPriceRequest true "New market price"
// @Success     200 {object} PositionResponse "Price updated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Position not found"
// @Failure     409 {object} ErrorResponse "Position is closed or archived"
// @Router      /admin/positions/{id}/price [put]
func (h *PositionHandler) UpdateMarketPrice(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req MarketPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	position, err := h.positionService.UpdateMarketPrice(c.Request.Context(), id, req.MarketPrice, userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, PositionResponse{Position: position})
}
