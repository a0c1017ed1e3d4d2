package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/homelearnhq/homelearn/internal/services"
	"github.com/homelearnhq/homelearn/pkg/errors"
	"github.com/homelearnhq/homelearn/pkg/response"
)

// ConversationHandler serves the messaging REST surface.
type ConversationHandler struct {
	conversations *services.ConversationService
	chat          *services.ChatService
}

type startConversationRequest struct {
	UserID string `json:"user_id" validate:"required,uuid4"`
}

type sendMessageRequest struct {
	RecipientID string `json:"recipient_id" validate:"required,uuid4"`
	Content     string `json:"content" validate:"required,max=4000"`
}

// NewConversationHandler constructs a ConversationHandler.
func NewConversationHandler(conversations *services.ConversationService, chat *services.ChatService) *ConversationHandler {
	return &ConversationHandler{conversations: conversations, chat: chat}
}

// GET /api/conversations
func (h *ConversationHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	summaries, err := h.conversations.ListForUser(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, summaries)
}

// POST /api/conversations/start
func (h *ConversationHandler) Start(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var body startConversationRequest
	if !bindAndValidate(c, &body) {
		return
	}

	conversation, err := h.conversations.StartOrGet(c.Request.Context(), userID, body.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, conversation)
}

// GET /api/conversations/:id/messages
func (h *ConversationHandler) Messages(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	messages, err := h.chat.History(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, messages)
}

// POST /api/conversations/messages
func (h *ConversationHandler) Send(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var body sendMessageRequest
	if !bindAndValidate(c, &body) {
		return
	}

	message, err := h.chat.SaveMessage(c.Request.Context(), userID, body.RecipientID, body.Content)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, message)
}
