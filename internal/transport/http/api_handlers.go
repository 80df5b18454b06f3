package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/gamebridge-server/internal/auth"
)

const guestCookieMaxAge = 3600 * 24 * 7

// APIHandlers provides HTTP handlers for account endpoints.
type APIHandlers struct {
	authService *auth.Service
	log         *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(authService *auth.Service, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		authService: authService,
		log:         logger,
	}
}

// RegisterRequest represents the registration request body.
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Platform string `json:"platform"`
}

// LoginRequest represents the login request body.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// GuestRequest optionally selects the guest's platform.
type GuestRequest struct {
	Platform string `json:"platform"`
}

// AuthResponse represents the authentication response body.
type AuthResponse struct {
	Token string `json:"token"`
}

// ProfileResponse describes the authenticated user.
type ProfileResponse struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Platform string `json:"platform"`
	IsGuest  bool   `json:"isGuest"`
}

// Register handles user registration.
// POST /api/register
func (h *APIHandlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid register request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: "invalid_argument"})
		return
	}

	token, err := h.authService.Register(c.Request.Context(), req.Username, req.Password, req.Platform)
	if err != nil {
		writeError(c, h.log, err, "failed to register user")
		return
	}

	h.log.Info().Str("username", req.Username).Msg("user registered successfully")
	c.JSON(http.StatusCreated, AuthResponse{Token: token})
}

// Login handles user login.
// POST /api/login
func (h *APIHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid login request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: "invalid_argument"})
		return
	}

	token, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeError(c, h.log, err, "failed to login user")
		return
	}

	h.log.Info().Str("username", req.Username).Msg("user logged in successfully")
	c.JSON(http.StatusOK, AuthResponse{Token: token})
}

// GuestLogin creates a guest user and returns a token.
// POST /api/guest
func (h *APIHandlers) GuestLogin(c *gin.Context) {
	var req GuestRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: "invalid_argument"})
			return
		}
	}

	token, sessionID, err := h.authService.CreateGuestUser(c.Request.Context(), req.Platform)
	if err != nil {
		writeError(c, h.log, err, "failed to create guest user")
		return
	}

	c.SetCookie("guest_session", sessionID, guestCookieMaxAge, "/", "", false, true)

	h.log.Info().Str("session_id", sessionID).Msg("guest user created")
	c.JSON(http.StatusOK, AuthResponse{Token: token})
}

// Me returns the authenticated user's profile.
// GET /api/me
func (h *APIHandlers) Me(c *gin.Context) {
	profile, err := h.authService.UserProfile(c.Request.Context(), currentUserID(c))
	if err != nil {
		writeError(c, h.log, err, "failed to load profile")
		return
	}
	c.JSON(http.StatusOK, ProfileResponse{
		UserID:   profile.UserID,
		Username: profile.Username,
		Platform: string(profile.Platform),
		IsGuest:  c.GetBool(ContextKeyIsGuest),
	})
}
