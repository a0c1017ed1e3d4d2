package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/homelearnhq/homelearn/internal/models"
	apperrors "github.com/homelearnhq/homelearn/pkg/errors"
)

var (
	// ErrConversationNotFound indicates the thread does not exist.
	ErrConversationNotFound = apperrors.New("CONVERSATION_NOT_FOUND", "Conversation not found", http.StatusNotFound)
	// ErrNotParticipant rejects access to somebody else's thread.
	ErrNotParticipant = apperrors.New("NOT_PARTICIPANT", "You are not part of this conversation", http.StatusForbidden)
	// ErrSelfConversation rejects opening a thread with oneself.
	ErrSelfConversation = apperrors.NewBadRequest("you cannot start a conversation with yourself")
)

// ConversationSummary is the list projection: the other participant plus a
// snippet of the latest message. LastMessageAt is nil for empty threads.
type ConversationSummary struct {
	ID            string       `json:"id"`
	Other         *models.User `json:"other"`
	LastMessage   string       `json:"last_message"`
	LastMessageAt *time.Time   `json:"last_message_at"`
}

// ConversationService manages the two-party messaging threads.
type ConversationService struct {
	db *gorm.DB
}

// NewConversationService constructs a ConversationService.
func NewConversationService(db *gorm.DB) (*ConversationService, error) {
	if db == nil {
		return nil, errors.New("conversation service: db is required")
	}
	return &ConversationService{db: db}, nil
}

// StartOrGet returns the thread between the two users, creating it when none
// exists yet. The pair is unordered so (A, B) and (B, A) resolve to the same
// row.
func (s *ConversationService) StartOrGet(ctx context.Context, userID, otherID string) (*models.Conversation, error) {
	ctx = ensureContext(ctx)

	if userID == otherID {
		return nil, ErrSelfConversation
	}

	var other models.User
	if err := s.db.WithContext(ctx).First(&other, "id = ?", otherID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("conversation service: find user: %w", err)
	}

	conversation, err := s.findPair(ctx, s.db, userID, otherID)
	if err == nil {
		return conversation, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	created := &models.Conversation{User1ID: userID, User2ID: otherID}
	if err := s.db.WithContext(ctx).Create(created).Error; err != nil {
		if isUniqueConstraintError(err) {
			// Lost a race with the other participant opening the same thread.
			return s.findPair(ctx, s.db, userID, otherID)
		}
		return nil, fmt.Errorf("conversation service: create: %w", err)
	}
	return created, nil
}

// GetForParticipant loads a thread and verifies the caller belongs to it.
func (s *ConversationService) GetForParticipant(ctx context.Context, userID, conversationID string) (*models.Conversation, error) {
	ctx = ensureContext(ctx)

	var conversation models.Conversation
	if err := s.db.WithContext(ctx).First(&conversation, "id = ?", conversationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("conversation service: find: %w", err)
	}

	if !conversation.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}
	return &conversation, nil
}

// ListForUser returns the caller's threads with the other participant and the
// latest message snippet, most recently active first. Threads without any
// message yet sort last and carry a nil timestamp.
func (s *ConversationService) ListForUser(ctx context.Context, userID string) ([]ConversationSummary, error) {
	ctx = ensureContext(ctx)

	var conversations []models.Conversation
	if err := s.db.WithContext(ctx).
		Preload("User1").
		Preload("User2").
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Find(&conversations).Error; err != nil {
		return nil, fmt.Errorf("conversation service: list: %w", err)
	}

	summaries := make([]ConversationSummary, 0, len(conversations))
	for i := range conversations {
		conversation := &conversations[i]

		other := conversation.User1
		if conversation.User1ID == userID {
			other = conversation.User2
		}

		summary := ConversationSummary{ID: conversation.ID, Other: other}

		var last models.ChatMessage
		err := s.db.WithContext(ctx).
			Where("conversation_id = ?", conversation.ID).
			Order("sent_at DESC").
			First(&last).Error
		switch {
		case err == nil:
			summary.LastMessage = last.Content
			sentAt := last.SentAt
			summary.LastMessageAt = &sentAt
		case errors.Is(err, gorm.ErrRecordNotFound):
			summary.LastMessage = "No messages yet"
		default:
			return nil, fmt.Errorf("conversation service: last message: %w", err)
		}

		summaries = append(summaries, summary)
	}

	// Most recently active first; empty threads at the end.
	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := summaries[i].LastMessageAt, summaries[j].LastMessageAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})

	return summaries, nil
}

func (s *ConversationService) findPair(ctx context.Context, db *gorm.DB, userID, otherID string) (*models.Conversation, error) {
	var conversation models.Conversation
	err := db.WithContext(ctx).
		Where("(user1_id = ? AND user2_id = ?) OR (user1_id = ? AND user2_id = ?)",
			userID, otherID, otherID, userID).
		First(&conversation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("conversation service: find pair: %w", err)
	}
	return &conversation, nil
}
