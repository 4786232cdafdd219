package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "investorportal/internal/errors"
	"investorportal/internal/models"
	"investorportal/internal/services"
)

// TokenIssuer signs access tokens for authenticated profiles.
type TokenIssuer interface {
	Issue(profile *models.Profile) (string, time.Time, error)
}

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	profileService services.ProfileServicer
	tokens         TokenIssuer
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(profileService services.ProfileServicer, tokens TokenIssuer) *AuthHandler {
	return &AuthHandler{profileService: profileService, tokens: tokens}
}

// RegisterRequest represents the registration request payload
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=8,max=128"`
	FullName string `json:"full_name" binding:"max=200"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse represents the authentication response with token
type AuthResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Profile   *models.Profile `json:"profile"`
}

// Register handles investor registration
// @Summary     Register a new investor
// @Description Create an investor profile and return an access token
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body RegisterRequest true "Registration data"
// @Success     201 {object} AuthResponse "Profile registered and token generated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     409 {object} ErrorResponse "Email already registered"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	profile, err := h.profileService.Register(c.Request.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.respondWithToken(c, http.StatusCreated, profile)
}

// Login handles login
// @Summary     Login
// @Description Authenticate with email and password and get a token
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body LoginRequest true "Credentials"
// @Success     200 {object} AuthResponse "Authenticated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Invalid credentials"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	profile, err := h.profileService.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.respondWithToken(c, http.StatusOK, profile)
}

func (h *AuthHandler) respondWithToken(c *gin.Context, status int, profile *models.Profile) {
	token, expiresAt, err := h.tokens.Issue(profile)
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}
	c.JSON(status, AuthResponse{Token: token, ExpiresAt: expiresAt, Profile: profile})
}
