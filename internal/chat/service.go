// Package chat stores student messages and the tutor auto-reply.
package chat

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/bosocmputer/doubtsolver/internal/storage"
)

// DefaultLimit is used when Messages is called without a limit
const DefaultLimit = 50

// AutoReply is sent by the system tutor after every user message
const AutoReply = "Thank you for your message! A tutor will respond shortly."

const systemUserID = "system"

// SendRequest is the payload for a new chat message
type SendRequest struct {
	Message string  `json:"message" binding:"required"`
	DoubtID *string `json:"doubt_id"`
}

// Store is the slice of storage the chat service needs
type Store interface {
	InsertChatMessage(ctx context.Context, msg *storage.ChatMessage) error
	FindChatMessages(ctx context.Context, userID, doubtID string, limit int) ([]storage.ChatMessage, error)
}

// Service sends and lists chat messages
type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Send stores the user's message and the auto-reply, and returns the
// user's message
func (s *Service) Send(ctx context.Context, userID string, req SendRequest) (*storage.ChatMessage, error) {
	now := s.now().UTC()
	msg := &storage.ChatMessage{
		ID:         uuid.NewString(),
		UserID:     userID,
		DoubtID:    req.DoubtID,
		Message:    req.Message,
		SenderType: storage.SenderUser,
		Timestamp:  now,
	}
	if err := s.store.InsertChatMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to store message: %w", err)
	}

	reply := &storage.ChatMessage{
		ID:         uuid.NewString(),
		UserID:     systemUserID,
		DoubtID:    req.DoubtID,
		Message:    AutoReply,
		SenderType: storage.SenderTutor,
		Timestamp:  now.Add(time.Millisecond),
	}
	if err := s.store.InsertChatMessage(ctx, reply); err != nil {
		log.Warn().Err(err).Str("message_id", msg.ID).Msg("⚠️  Failed to store auto-reply")
	}

	return msg, nil
}

// Messages returns the conversation in chronological order, keeping the
// newest limit messages
func (s *Service) Messages(ctx context.Context, userID, doubtID string, limit int) ([]storage.ChatMessage, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	messages, err := s.store.FindChatMessages(ctx, userID, doubtID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	slices.Reverse(messages)
	return messages, nil
}
