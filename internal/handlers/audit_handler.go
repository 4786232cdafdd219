package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"investorportal/internal/pagination"
	"investorportal/internal/services"
)

// AuditHandler serves the audit trail to admins.
type AuditHandler struct {
	auditService services.AuditServicer
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(auditService services.AuditServicer) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// AuditLogQuery holds the filters accepted by ListAuditLogs.
type AuditLogQuery struct {
	PositionID string `form:"position_id" binding:"omitempty,uuid"`
	pagination.PageRequest
}

// ListAuditLogs handles listing audit entries, newest first.
// @Summary     List audit log
// @Tags        admin
// @Produce     json
// @Security    BearerAuth
// @Param       position_id query string false "Only entries for this position"
// @Param       page        query int    false "Page number (default 1)"
// @Param       page_size   query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.AuditLog] "Paginated audit entries"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Admin access required"
// @Router      /admin/audit-logs [get]
func (h *AuditHandler) ListAuditLogs(c *gin.Context) {
	var q AuditLogQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	var positionID *string
	if q.PositionID != "" {
		positionID = &q.PositionID
	}

	result, err := h.auditService.List(c.Request.Context(), positionID, q.PageRequest)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
