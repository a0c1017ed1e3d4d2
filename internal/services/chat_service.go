package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/homelearnhq/homelearn/internal/models"
	"github.com/homelearnhq/homelearn/internal/realtime"
	apperrors "github.com/homelearnhq/homelearn/pkg/errors"
	"github.com/homelearnhq/homelearn/pkg/logger"
	"github.com/homelearnhq/homelearn/pkg/metrics"
)

const maxChatMessageLength = 4000

// ChatService persists chat messages and pushes them to live connections.
type ChatService struct {
	db            *gorm.DB
	conversations *ConversationService
	hub           *realtime.Hub
	now           func() time.Time
	log           *zap.Logger
}

// NewChatService constructs a ChatService. The hub may be nil in tests; fan
// out is then skipped.
func NewChatService(db *gorm.DB, conversations *ConversationService, hub *realtime.Hub) (*ChatService, error) {
	if db == nil {
		return nil, errors.New("chat service: db is required")
	}
	if conversations == nil {
		return nil, errors.New("chat service: conversation service is required")
	}

	service := &ChatService{
		db:            db,
		conversations: conversations,
		hub:           hub,
		now:           time.Now,
		log:           logger.WithModule("chat"),
	}

	if hub != nil {
		hub.SetInboundHandler(service.HandleInbound)
	}

	return service, nil
}

// SaveMessage stores a message in the (possibly new) thread between sender
// and recipient, then pushes it to both participants' live connections.
// Delivery is fire and forget; persistence is the source of truth.
func (s *ChatService) SaveMessage(ctx context.Context, senderID, recipientID, content string) (*models.ChatMessage, error) {
	ctx = ensureContext(ctx)

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewBadRequest("message content cannot be empty")
	}
	if len(content) > maxChatMessageLength {
		return nil, apperrors.NewBadRequest("message content is too long")
	}

	conversation, err := s.conversations.StartOrGet(ctx, senderID, recipientID)
	if err != nil {
		return nil, err
	}

	message := &models.ChatMessage{
		ConversationID: conversation.ID,
		SenderID:       senderID,
		Content:        content,
		SentAt:         s.now(),
	}
	if err := s.db.WithContext(ctx).Create(message).Error; err != nil {
		return nil, fmt.Errorf("chat service: create message: %w", err)
	}

	s.fanOut(conversation, message)
	return message, nil
}

// History returns the thread's messages in ascending send order. Only
// participants may read it.
func (s *ChatService) History(ctx context.Context, userID, conversationID string) ([]models.ChatMessage, error) {
	ctx = ensureContext(ctx)

	if _, err := s.conversations.GetForParticipant(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	var messages []models.ChatMessage
	if err := s.db.WithContext(ctx).
		Preload("Sender").
		Where("conversation_id = ?", conversationID).
		Order("sent_at ASC").
		Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("chat service: history: %w", err)
	}
	return messages, nil
}

// HandleInbound adapts websocket payloads onto SaveMessage.
func (s *ChatService) HandleInbound(ctx context.Context, senderID string, msg realtime.InboundMessage) error {
	_, err := s.SaveMessage(ctx, senderID, msg.RecipientID, msg.Content)
	return err
}

func (s *ChatService) fanOut(conversation *models.Conversation, message *models.ChatMessage) {
	if s.hub == nil {
		return
	}

	event := realtime.Event{Type: "message", Data: message}
	for _, userID := range []string{conversation.User1ID, conversation.User2ID} {
		if s.hub.IsOnline(userID) {
			s.hub.SendToUser(userID, event)
			metrics.ChatMessagesDelivered.Inc()
		}
	}
}
