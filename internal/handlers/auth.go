package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	iauth "github.com/homelearnhq/homelearn/internal/auth"
	"github.com/homelearnhq/homelearn/internal/models"
	"github.com/homelearnhq/homelearn/internal/services"
	"github.com/homelearnhq/homelearn/pkg/crypto"
	"github.com/homelearnhq/homelearn/pkg/errors"
	"github.com/homelearnhq/homelearn/pkg/logger"
	"github.com/homelearnhq/homelearn/pkg/response"
)

const (
	oauthStateCookie = "homelearn_oauth_state"
	oauthNonceCookie = "homelearn_oauth_nonce"
	oauthCookieTTL   = 600 // seconds
)

// AuthHandler serves registration, login and the OAuth flow.
type AuthHandler struct {
	auth        *services.AuthService
	google      *iauth.GoogleProvider
	frontendURL string
}

type registerRequest struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
	Role      string `json:"role" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// NewAuthHandler constructs an AuthHandler. The Google provider may be nil
// when OAuth login is disabled.
func NewAuthHandler(auth *services.AuthService, google *iauth.GoogleProvider, frontendURL string) *AuthHandler {
	return &AuthHandler{
		auth:        auth,
		google:      google,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var body registerRequest
	if !bindAndValidate(c, &body) {
		return
	}

	user, err := h.auth.Register(c.Request.Context(), services.RegisterInput{
		FirstName: body.FirstName,
		LastName:  body.LastName,
		Email:     body.Email,
		Password:  body.Password,
		Role:      models.Role(strings.ToUpper(strings.TrimSpace(body.Role))),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, user)
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if !bindAndValidate(c, &body) {
		return
	}

	result, err := h.auth.Login(c.Request.Context(), body.Email, body.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token": result.Token,
		"user":  result.User,
	})
}

// GET /api/auth/verify-email?token=
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, errors.NewBadRequest("token is required"))
		return
	}

	if err := h.auth.VerifyEmail(c.Request.Context(), token); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"verified": true})
}

// GET /api/auth/oauth/google/login
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	if h.google == nil {
		response.Error(c, errors.ErrNotFound)
		return
	}

	state, err := crypto.GenerateToken(24)
	if err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}
	nonce, err := crypto.GenerateToken(24)
	if err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}

	secure := c.Request.TLS != nil
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, oauthCookieTTL, "/", "", secure, true)
	c.SetCookie(oauthNonceCookie, nonce, oauthCookieTTL, "/", "", secure, true)

	c.Redirect(http.StatusFound, h.google.AuthURL(state, nonce))
}

// GET /api/auth/oauth/google/callback
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	if h.google == nil {
		response.Error(c, errors.ErrNotFound)
		return
	}

	state, err := c.Cookie(oauthStateCookie)
	if err != nil || state == "" || c.Query("state") != state {
		response.Error(c, errors.ErrUnauthorized)
		return
	}
	nonce, _ := c.Cookie(oauthNonceCookie)

	secure := c.Request.TLS != nil
	c.SetCookie(oauthStateCookie, "", -1, "/", "", secure, true)
	c.SetCookie(oauthNonceCookie, "", -1, "/", "", secure, true)

	identity, err := h.google.Exchange(c.Request.Context(), c.Query("code"), nonce)
	if err != nil {
		logger.WithModule("auth").Warn("google login failed", zap.Error(err))
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	result, err := h.auth.LoginWithGoogle(c.Request.Context(), identity)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Redirect(http.StatusFound, fmt.Sprintf("%s/oauth/redirect?token=%s", h.frontendURL, result.Token))
}
