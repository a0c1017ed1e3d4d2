package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/homelearnhq/homelearn/internal/auth"
	"github.com/homelearnhq/homelearn/internal/realtime"
	"github.com/homelearnhq/homelearn/pkg/errors"
	"github.com/homelearnhq/homelearn/pkg/response"
)

// ChatWSHandler upgrades authenticated clients onto the chat hub. Browsers
// cannot set headers on websocket dials, so the token is also accepted as a
// query parameter.
type ChatWSHandler struct {
	jwt *iauth.JWTService
	hub *realtime.Hub
}

// NewChatWSHandler constructs a ChatWSHandler.
func NewChatWSHandler(jwt *iauth.JWTService, hub *realtime.Hub) *ChatWSHandler {
	return &ChatWSHandler{jwt: jwt, hub: hub}
}

// GET /ws/chat
func (h *ChatWSHandler) Serve(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		authz := c.GetHeader("Authorization")
		if len(authz) >= 8 && strings.EqualFold(authz[:7], "Bearer ") {
			token = strings.TrimSpace(authz[7:])
		}
	}
	if token == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	claims, err := h.jwt.ValidateAccessToken(token)
	if err != nil {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	h.hub.Serve(claims.UserID, c.Writer, c.Request)
}
