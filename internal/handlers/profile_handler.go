package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"investorportal/internal/models"
	"investorportal/internal/services"
)

// ProfileHandler serves the caller's profile and admin role management.
type ProfileHandler struct {
	profileService services.ProfileServicer
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(profileService services.ProfileServicer) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

// SetRoleRequest represents the request payload for changing a role.
type SetRoleRequest struct {
	Role models.Role `json:"role" binding:"required,role"`
}

// ProfileResponse wraps a single profile.
type ProfileResponse struct {
	Profile *models.Profile `json:"profile"`
}

// GetProfile returns the caller's profile
// @Summary     Get profile
// @Tags        profile
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} ProfileResponse "Profile"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Profile not found"
// @Router      /profile [get]
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	profile, err := h.profileService.GetByID(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, ProfileResponse{Profile: profile})
}

// SetRole changes another profile's role
// @Summary     Set profile role
// @Tags        admin
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string         true "Profile ID"
// @Param       request body SetRoleRequest true "New role"
// @Success     200 {object} ProfileResponse "Role changed"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Admin access required"
// @Failure     404 {object} ErrorResponse "Profile not found"
// @Router      /admin/profiles/{id}/role [put]
func (h *ProfileHandler) SetRole(c *gin.Context) {
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req SetRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	profile, err := h.profileService.SetRole(c.Request.Context(), id, req.Role)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, ProfileResponse{Profile: profile})
}
