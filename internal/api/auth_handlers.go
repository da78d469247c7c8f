package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/bosocmputer/doubtsolver/internal/auth"
	"github.com/bosocmputer/doubtsolver/internal/storage"
)

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type authResponse struct {
	Success     bool          `json:"success"`
	Message     string        `json:"message"`
	User        *storage.User `json:"user"`
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
}

func (h *Handler) respondWithToken(c *gin.Context, user *storage.User, message string) {
	token, err := h.auth.IssueToken(user.ID)
	if err != nil {
		log.Error().Err(err).Msg("failed to sign token")
		abort(c, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	c.JSON(http.StatusOK, authResponse{
		Success:     true,
		Message:     message,
		User:        user,
		AccessToken: token,
		TokenType:   "bearer",
	})
}

// Register creates an account and logs it in
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	user, err := h.auth.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			abort(c, http.StatusBadRequest, "User with this email already exists")
			return
		}
		log.Error().Err(err).Msg("registration failed")
		abort(c, http.StatusInternalServerError, "Registration failed")
		return
	}
	h.respondWithToken(c, user, "User registered successfully")
}

// Login exchanges credentials for a token
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	user, err := h.auth.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			abort(c, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		log.Error().Err(err).Msg("login failed")
		abort(c, http.StatusInternalServerError, "Login failed")
		return
	}
	h.respondWithToken(c, user, "Login successful")
}

// Me returns the authenticated user
func (h *Handler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, auth.CurrentUser(c))
}

// Logout forgets the cached user; the client drops its token
func (h *Handler) Logout(c *gin.Context) {
	h.auth.Logout(auth.CurrentUser(c).ID)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out successfully"})
}
