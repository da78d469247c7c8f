// Package storage persists users, doubts, chat messages and status checks.
// MongoStore is the production backend; MemoryStore backs tests and
// STORAGE_BACKEND=memory.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a document does not exist
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when a unique field is already taken
	ErrDuplicate = errors.New("duplicate key")
)

// statusCheckListLimit caps ListStatusChecks
const statusCheckListLimit = 1000

// Store is the persistence layer used by the services
type Store interface {
	CreateUser(ctx context.Context, user *User) error
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	FindUserByID(ctx context.Context, id string) (*User, error)

	InsertDoubt(ctx context.Context, doubt *Doubt) error
	// UpdateDoubtAnswer stores the answer and marks the doubt answered
	UpdateDoubtAnswer(ctx context.Context, id string, answer *DoubtAnswer, updatedAt time.Time) error
	UpdateDoubtStatus(ctx context.Context, id, status string, updatedAt time.Time) error
	// FindDoubts lists a user's doubts, newest first. limit <= 0 means no limit.
	FindDoubts(ctx context.Context, userID string, skip, limit int) ([]Doubt, error)
	FindDoubt(ctx context.Context, id, userID string) (*Doubt, error)
	FindDoubtByID(ctx context.Context, id string) (*Doubt, error)
	// DeleteDoubt reports whether a doubt was removed
	DeleteDoubt(ctx context.Context, id, userID string) (bool, error)

	InsertChatMessage(ctx context.Context, msg *ChatMessage) error
	// FindChatMessages returns the user's messages and all tutor messages,
	// newest first, optionally restricted to one doubt.
	FindChatMessages(ctx context.Context, userID, doubtID string, limit int) ([]ChatMessage, error)

	InsertStatusCheck(ctx context.Context, check *StatusCheck) error
	ListStatusChecks(ctx context.Context) ([]StatusCheck, error)

	Close(ctx context.Context) error
}

var (
	_ Store = (*MongoStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
