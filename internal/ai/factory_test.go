package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/bosocmputer/doubtsolver/configs"
	"github.com/bosocmputer/doubtsolver/internal/common"
)

type cannedTutor struct {
	name  string
	err   error
	calls int
}

func (c *cannedTutor) Name() string { return c.name }

func (c *cannedTutor) SolveText(context.Context, string, string, *common.RequestContext) (*Answer, *common.TokenUsage, error) {
	c.calls++
	if c.err != nil {
		return nil, nil, c.err
	}
	return newAnswer(c.name + " solved it"), nil, nil
}

func (c *cannedTutor) SolveImage(ctx context.Context, q, s string, _ []byte, _ string, rc *common.RequestContext) (*Answer, *common.TokenUsage, error) {
	return c.SolveText(ctx, q, s, rc)
}

func TestFallbackTutor(t *testing.T) {
	reqCtx := common.NewRequestContext("u1")

	t.Run("primary succeeds", func(t *testing.T) {
		primary, fallback := &cannedTutor{name: "gemini"}, &cannedTutor{name: "mistral"}
		answer, _, err := NewFallbackTutor(primary, fallback).SolveText(context.Background(), "q", "s", reqCtx)
		if err != nil || answer.Solution != "gemini solved it" || fallback.calls != 0 {
			t.Fatalf("answer %+v err %v fallback calls %d", answer, err, fallback.calls)
		}
	})

	t.Run("primary fails", func(t *testing.T) {
		primary := &cannedTutor{name: "gemini", err: errors.New("down")}
		fallback := &cannedTutor{name: "mistral"}
		answer, _, err := NewFallbackTutor(primary, fallback).SolveImage(context.Background(), "q", "s", nil, "image/png", reqCtx)
		if err != nil || answer.Solution != "mistral solved it" {
			t.Fatalf("answer %+v err %v", answer, err)
		}
	})

	t.Run("cancelled context skips fallback", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		primary := &cannedTutor{name: "gemini", err: context.Canceled}
		fallback := &cannedTutor{name: "mistral"}
		if _, _, err := NewFallbackTutor(primary, fallback).SolveText(ctx, "q", "s", reqCtx); err == nil {
			t.Fatalf("expected error")
		}
		if fallback.calls != 0 {
			t.Fatalf("fallback called after cancellation")
		}
	})
}

func TestCreateTutor(t *testing.T) {
	defer func(p, g, m string) {
		configs.TUTOR_PROVIDER, configs.GEMINI_API_KEY, configs.MISTRAL_API_KEY = p, g, m
	}(configs.TUTOR_PROVIDER, configs.GEMINI_API_KEY, configs.MISTRAL_API_KEY)

	configs.TUTOR_RATE_LIMIT_TOKENS = 1
	configs.TUTOR_RATE_LIMIT_REFILL_SECONDS = 1

	configs.TUTOR_PROVIDER = "mistral"
	configs.MISTRAL_API_KEY = "m"
	configs.GEMINI_API_KEY = ""
	tutor, err := CreateTutorWithFallback()
	if err != nil {
		t.Fatalf("CreateTutorWithFallback() error = %v", err)
	}
	if _, ok := tutor.(*MistralTutor); !ok {
		t.Fatalf("tutor = %T, want *MistralTutor without fallback", tutor)
	}

	configs.GEMINI_API_KEY = "g"
	tutor, err = CreateTutorWithFallback()
	if err != nil {
		t.Fatalf("CreateTutorWithFallback() error = %v", err)
	}
	if _, ok := tutor.(*FallbackTutor); !ok || tutor.Name() != "mistral" {
		t.Fatalf("tutor = %T (%s), want mistral with fallback", tutor, tutor.Name())
	}

	configs.TUTOR_PROVIDER = "openai"
	if _, err := CreateTutor(); err == nil {
		t.Fatalf("expected error for unsupported provider")
	}
}
