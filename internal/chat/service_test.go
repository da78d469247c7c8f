package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bosocmputer/doubtsolver/internal/storage"
)

type failingStore struct{ storage.Store }

func (failingStore) InsertChatMessage(context.Context, *storage.ChatMessage) error {
	return errors.New("write failed")
}

func TestSendAndMessages(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	s := NewService(store)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		now = now.Add(time.Second)
		return now
	}

	doubtID := "d1"
	first, err := s.Send(ctx, "u1", SendRequest{Message: "hello"})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if first.SenderType != storage.SenderUser || first.UserID != "u1" || first.DoubtID != nil {
		t.Fatalf("Send() = %+v", first)
	}
	if _, err := s.Send(ctx, "u1", SendRequest{Message: "about d1", DoubtID: &doubtID}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	_, _ = s.Send(ctx, "u2", SendRequest{Message: "someone else"})

	t.Run("chronological with auto replies", func(t *testing.T) {
		msgs, err := s.Messages(ctx, "u1", "", 0)
		if err != nil {
			t.Fatalf("Messages() error = %v", err)
		}
		// u1's two messages plus all three tutor replies
		if len(msgs) != 5 {
			t.Fatalf("got %d messages, want 5", len(msgs))
		}
		if msgs[0].Message != "hello" || msgs[1].Message != AutoReply || msgs[1].SenderType != storage.SenderTutor {
			t.Fatalf("unexpected order: %+v", msgs[:2])
		}
		for i := 1; i < len(msgs); i++ {
			if msgs[i].Timestamp.Before(msgs[i-1].Timestamp) {
				t.Fatalf("messages not chronological at %d", i)
			}
		}
	})

	t.Run("limit keeps newest", func(t *testing.T) {
		msgs, _ := s.Messages(ctx, "u1", "", 2)
		// the two newest visible to u1 are tutor replies
		if len(msgs) != 2 || msgs[0].Message != AutoReply || msgs[1].Message != AutoReply {
			t.Fatalf("Messages(limit 2) = %+v", msgs)
		}
	})

	t.Run("doubt filter", func(t *testing.T) {
		msgs, _ := s.Messages(ctx, "u1", doubtID, 0)
		if len(msgs) != 2 || msgs[0].Message != "about d1" || msgs[1].Message != AutoReply {
			t.Fatalf("Messages(d1) = %+v", msgs)
		}
	})
}

func TestSendStoreFailure(t *testing.T) {
	s := NewService(failingStore{})
	if _, err := s.Send(context.Background(), "u1", SendRequest{Message: "hi"}); err == nil {
		t.Fatalf("expected error")
	}
}
