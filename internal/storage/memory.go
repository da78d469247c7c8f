package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps everything in process memory
type MemoryStore struct {
	mu       sync.RWMutex
	users    []User
	doubts   []*Doubt
	messages []ChatMessage
	checks   []StatusCheck
}

// NewMemoryStore returns an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Close(context.Context) error { return nil }

func (m *MemoryStore) CreateUser(_ context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == user.Email || u.ID == user.ID {
			return ErrDuplicate
		}
	}
	m.users = append(m.users, *user)
	return nil
}

func (m *MemoryStore) FindUserByEmail(_ context.Context, email string) (*User, error) {
	return m.findUser(func(u *User) bool { return u.Email == email })
}

func (m *MemoryStore) FindUserByID(_ context.Context, id string) (*User, error) {
	return m.findUser(func(u *User) bool { return u.ID == id })
}

func (m *MemoryStore) findUser(match func(*User) bool) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := range m.users {
		if match(&m.users[i]) {
			u := m.users[i]
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) InsertDoubt(_ context.Context, doubt *Doubt) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.doubts = append(m.doubts, doubt.clone())
	return nil
}

func (m *MemoryStore) UpdateDoubtAnswer(_ context.Context, id string, answer *DoubtAnswer, updatedAt time.Time) error {
	return m.updateDoubt(id, func(d *Doubt) {
		a := *answer
		a.Steps = append([]string(nil), answer.Steps...)
		d.Answer = &a
		d.Status = StatusAnswered
		d.UpdatedAt = updatedAt
	})
}

func (m *MemoryStore) UpdateDoubtStatus(_ context.Context, id, status string, updatedAt time.Time) error {
	return m.updateDoubt(id, func(d *Doubt) {
		d.Status = status
		d.UpdatedAt = updatedAt
	})
}

func (m *MemoryStore) updateDoubt(id string, apply func(*Doubt)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, d := range m.doubts {
		if d.ID == id {
			apply(d)
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) FindDoubts(_ context.Context, userID string, skip, limit int) ([]Doubt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doubts := []Doubt{}
	// newest inserted first so equal timestamps keep a stable order
	for i := len(m.doubts) - 1; i >= 0; i-- {
		if m.doubts[i].UserID == userID {
			doubts = append(doubts, *m.doubts[i].clone())
		}
	}
	sort.SliceStable(doubts, func(i, j int) bool {
		return doubts[i].CreatedAt.After(doubts[j].CreatedAt)
	})
	return page(doubts, skip, limit), nil
}

func (m *MemoryStore) FindDoubt(_ context.Context, id, userID string) (*Doubt, error) {
	return m.findDoubt(func(d *Doubt) bool { return d.ID == id && d.UserID == userID })
}

func (m *MemoryStore) FindDoubtByID(_ context.Context, id string) (*Doubt, error) {
	return m.findDoubt(func(d *Doubt) bool { return d.ID == id })
}

func (m *MemoryStore) findDoubt(match func(*Doubt) bool) (*Doubt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, d := range m.doubts {
		if match(d) {
			return d.clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) DeleteDoubt(_ context.Context, id, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, d := range m.doubts {
		if d.ID == id && d.UserID == userID {
			m.doubts = append(m.doubts[:i], m.doubts[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) InsertChatMessage(_ context.Context, msg *ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := *msg
	if msg.DoubtID != nil {
		id := *msg.DoubtID
		c.DoubtID = &id
	}
	m.messages = append(m.messages, c)
	return nil
}

func (m *MemoryStore) FindChatMessages(_ context.Context, userID, doubtID string, limit int) ([]ChatMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	messages := []ChatMessage{}
	for i := len(m.messages) - 1; i >= 0; i-- {
		msg := m.messages[i]
		if msg.UserID != userID && msg.SenderType != SenderTutor {
			continue
		}
		if doubtID != "" && (msg.DoubtID == nil || *msg.DoubtID != doubtID) {
			continue
		}
		messages = append(messages, msg)
	}
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp.After(messages[j].Timestamp)
	})
	return page(messages, 0, limit), nil
}

func (m *MemoryStore) InsertStatusCheck(_ context.Context, check *StatusCheck) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.checks = append(m.checks, *check)
	return nil
}

func (m *MemoryStore) ListStatusChecks(context.Context) ([]StatusCheck, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return page(append([]StatusCheck{}, m.checks...), 0, statusCheckListLimit), nil
}

func page[T any](items []T, skip, limit int) []T {
	if skip > len(items) {
		skip = len(items)
	}
	items = items[max(skip, 0):]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
