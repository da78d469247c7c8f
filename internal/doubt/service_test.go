package doubt

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/bosocmputer/doubtsolver/internal/ai"
	"github.com/bosocmputer/doubtsolver/internal/common"
	"github.com/bosocmputer/doubtsolver/internal/ocr"
	"github.com/bosocmputer/doubtsolver/internal/storage"
)

type fakeTutor struct {
	err          error
	lastQuestion string
	lastMime     string
	imageCalls   int
	textCalls    int
}

func (f *fakeTutor) Name() string { return "fake" }

func (f *fakeTutor) SolveText(_ context.Context, question, _ string, _ *common.RequestContext) (*ai.Answer, *common.TokenUsage, error) {
	f.textCalls++
	f.lastQuestion = question
	return f.answer()
}

func (f *fakeTutor) SolveImage(_ context.Context, question, _ string, _ []byte, mimeType string, _ *common.RequestContext) (*ai.Answer, *common.TokenUsage, error) {
	f.imageCalls++
	f.lastQuestion = question
	f.lastMime = mimeType
	return f.answer()
}

func (f *fakeTutor) answer() (*ai.Answer, *common.TokenUsage, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return &ai.Answer{
		Solution:    "Step 1: subtract 3 from both sides",
		Steps:       []string{"Step 1: subtract 3 from both sides"},
		GeneratedAt: time.Now().UTC(),
	}, &common.TokenUsage{InputTokens: 10, OutputTokens: 20, TotalTokens: 30}, nil
}

type fakeExtractor struct {
	outcome ocr.ExtractionOutcome
	calls   int
}

func (f *fakeExtractor) Extract(context.Context, []byte) ocr.ExtractionOutcome {
	f.calls++
	return f.outcome
}

type fakeEnqueuer struct {
	err    error
	queued []string
}

func (f *fakeEnqueuer) EnqueueSolve(_ context.Context, doubtID, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.queued = append(f.queued, doubtID)
	return nil
}

func pngBase64(t *testing.T) *string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	img.SetGray(2, 2, color.Gray{Y: 10})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	s := base64.StdEncoding.EncodeToString(buf.Bytes())
	return &s
}

func successfulOutcome() ocr.ExtractionOutcome {
	avg := 87.25
	return ocr.ExtractionOutcome{
		ExtractedText:     "2x + 3 = 7",
		ConfidenceScores:  []int{90, 85, 88, 86},
		PreprocessingUsed: ocr.StrategyThreshold,
		Success:           true,
		WordCount:         4,
		AverageConfidence: &avg,
	}
}

func TestCreateTextDoubt(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	tutor := &fakeTutor{}
	extractor := &fakeExtractor{}
	s := NewService(store, extractor, tutor)

	d, err := s.Create(ctx, "u1", CreateRequest{Question: "Solve 2x+3=7", Subject: "math"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if d.QuestionType != storage.QuestionText || d.Status != storage.StatusAnswered || d.Answer == nil {
		t.Fatalf("Create() doubt = %+v", d)
	}
	if tutor.textCalls != 1 || extractor.calls != 0 {
		t.Fatalf("text calls %d, ocr calls %d", tutor.textCalls, extractor.calls)
	}
	if tutor.lastQuestion != "Solve 2x+3=7" {
		t.Fatalf("tutor question = %q", tutor.lastQuestion)
	}

	stored, err := store.FindDoubt(ctx, d.ID, "u1")
	if err != nil || stored.Status != storage.StatusAnswered || stored.Answer.Solution == "" {
		t.Fatalf("stored doubt = %+v, %v", stored, err)
	}
}

func TestCreateImageDoubt(t *testing.T) {
	ctx := context.Background()

	t.Run("ocr text enriches question", func(t *testing.T) {
		tutor := &fakeTutor{}
		extractor := &fakeExtractor{outcome: successfulOutcome()}
		s := NewService(storage.NewMemoryStore(), extractor, tutor)

		d, err := s.Create(ctx, "u1", CreateRequest{Question: "Solve this", Subject: "math", QuestionType: "image", ImageData: pngBase64(t)})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		want := "Solve this\n\nOCR extracted text (confidence: 87.2%): 2x + 3 = 7"
		if !strings.HasPrefix(tutor.lastQuestion, "Solve this\n\nOCR extracted text (confidence: 87.") ||
			!strings.HasSuffix(tutor.lastQuestion, "%): 2x + 3 = 7") {
			t.Fatalf("tutor question = %q, want like %q", tutor.lastQuestion, want)
		}
		if tutor.lastMime != "image/png" {
			t.Fatalf("mime = %q, want image/png", tutor.lastMime)
		}
		if d.OCRData == nil || d.OCRData.PreprocessingUsed != ocr.StrategyThreshold || d.OCRData.AverageConfidence != 87.25 {
			t.Fatalf("ocr data = %+v", d.OCRData)
		}
	})

	t.Run("no ocr text keeps question", func(t *testing.T) {
		tutor := &fakeTutor{}
		extractor := &fakeExtractor{outcome: ocr.ExtractionOutcome{PreprocessingUsed: ocr.StrategyOriginal}}
		s := NewService(storage.NewMemoryStore(), extractor, tutor)

		d, err := s.Create(ctx, "u1", CreateRequest{Question: "What is this?", Subject: "physics", QuestionType: "image", ImageData: pngBase64(t)})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if d.OCRData != nil || tutor.lastQuestion != "What is this?" || tutor.imageCalls != 1 {
			t.Fatalf("doubt %+v question %q", d, tutor.lastQuestion)
		}
	})

	t.Run("invalid base64", func(t *testing.T) {
		bad := "%%%"
		s := NewService(storage.NewMemoryStore(), &fakeExtractor{}, &fakeTutor{})
		_, err := s.Create(ctx, "u1", CreateRequest{Subject: "math", QuestionType: "image", ImageData: &bad})
		if !errors.Is(err, ErrInvalidImageData) {
			t.Fatalf("Create() error = %v, want ErrInvalidImageData", err)
		}
	})

	t.Run("image type without data is a text question", func(t *testing.T) {
		tutor := &fakeTutor{}
		s := NewService(storage.NewMemoryStore(), &fakeExtractor{}, tutor)
		if _, err := s.Create(ctx, "u1", CreateRequest{Question: "q", Subject: "math", QuestionType: "image"}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if tutor.textCalls != 1 || tutor.imageCalls != 0 {
			t.Fatalf("text %d image %d", tutor.textCalls, tutor.imageCalls)
		}
	})
}

func TestCreateTutorFailure(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	s := NewService(store, &fakeExtractor{}, &fakeTutor{err: errors.New("quota exceeded")})

	d, err := s.Create(ctx, "u1", CreateRequest{Question: "q", Subject: "math"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if d.Status != storage.StatusFailed || d.Answer != nil {
		t.Fatalf("doubt = %+v, want failed without answer", d)
	}
	stored, _ := store.FindDoubt(ctx, d.ID, "u1")
	if stored.Status != storage.StatusFailed {
		t.Fatalf("stored status = %s", stored.Status)
	}
}

func TestQueuedSolve(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	tutor := &fakeTutor{}
	queue := &fakeEnqueuer{}
	s := NewService(store, &fakeExtractor{outcome: successfulOutcome()}, tutor, WithEnqueuer(queue))

	d, err := s.Create(ctx, "u1", CreateRequest{Question: "q", Subject: "math", QuestionType: "image", ImageData: pngBase64(t)})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if d.Status != storage.StatusProcessing || len(queue.queued) != 1 || tutor.imageCalls != 0 {
		t.Fatalf("doubt %s queued %v tutor calls %d", d.Status, queue.queued, tutor.imageCalls)
	}

	if err := s.SolveByID(ctx, d.ID); err != nil {
		t.Fatalf("SolveByID() error = %v", err)
	}
	stored, _ := store.FindDoubt(ctx, d.ID, "u1")
	if stored.Status != storage.StatusAnswered || tutor.imageCalls != 1 {
		t.Fatalf("stored %+v, tutor calls %d", stored, tutor.imageCalls)
	}
	if !strings.Contains(tutor.lastQuestion, "OCR extracted text") {
		t.Fatalf("worker lost the OCR context: %q", tutor.lastQuestion)
	}

	// answered doubts are not solved twice
	if err := s.SolveByID(ctx, d.ID); err != nil || tutor.imageCalls != 1 {
		t.Fatalf("second SolveByID() err %v calls %d", err, tutor.imageCalls)
	}

	if err := s.SolveByID(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("SolveByID(missing) error = %v", err)
	}
}

func TestEnqueueFailureSolvesInline(t *testing.T) {
	tutor := &fakeTutor{}
	s := NewService(storage.NewMemoryStore(), &fakeExtractor{}, tutor, WithEnqueuer(&fakeEnqueuer{err: errors.New("redis down")}))

	d, err := s.Create(context.Background(), "u1", CreateRequest{Question: "q", Subject: "math"})
	if err != nil || d.Status != storage.StatusAnswered || tutor.textCalls != 1 {
		t.Fatalf("doubt %+v err %v calls %d", d, err, tutor.textCalls)
	}
}

func TestListGetDelete(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	s := NewService(store, &fakeExtractor{outcome: successfulOutcome()}, &fakeTutor{})

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	first, _ := s.Create(ctx, "u1", CreateRequest{Question: "first", Subject: "math", QuestionType: "image", ImageData: pngBase64(t)})
	second, _ := s.Create(ctx, "u1", CreateRequest{Question: "second", Subject: "math"})
	_, _ = s.Create(ctx, DemoUserID, CreateRequest{Question: "demo", Subject: "math"})

	doubts, err := s.List(ctx, "u1", 0, 50)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(doubts) != 2 || doubts[0].ID != second.ID || doubts[1].ID != first.ID {
		t.Fatalf("List() = %+v", doubts)
	}
	if doubts[1].OCRData != nil {
		t.Fatalf("List() should omit OCR data")
	}

	got, err := s.Get(ctx, first.ID, "u1")
	if err != nil || got.ID != first.ID {
		t.Fatalf("Get() = %+v, %v", got, err)
	}
	if got.OCRData != nil {
		t.Fatalf("Get() should omit OCR data, got %+v", got.OCRData)
	}
	if _, err := s.Get(ctx, first.ID, "someone-else"); !errors.Is(err, ErrDoubtNotFound) {
		t.Fatalf("Get(other user) error = %v", err)
	}

	if ok, err := s.Delete(ctx, first.ID, "u1"); err != nil || !ok {
		t.Fatalf("Delete() = %v, %v", ok, err)
	}
	if ok, _ := s.Delete(ctx, first.ID, "u1"); ok {
		t.Fatalf("Delete() twice = true")
	}
}

func TestEnhancedQuestion(t *testing.T) {
	tests := []struct {
		name string
		ocr  *storage.OCRData
		want string
	}{
		{"no ocr", nil, "q"},
		{"empty text", &storage.OCRData{AverageConfidence: 90}, "q"},
		{"with text", &storage.OCRData{ExtractedText: "x = 1", AverageConfidence: 91.34}, "q\n\nOCR extracted text (confidence: 91.3%): x = 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := enhancedQuestion("q", tt.ocr); got != tt.want {
				t.Fatalf("enhancedQuestion() = %q, want %q", got, tt.want)
			}
		})
	}
}
