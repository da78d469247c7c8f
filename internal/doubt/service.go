// Package doubt creates doubts, runs OCR on image questions and asks the
// tutor for a solution.
package doubt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/bosocmputer/doubtsolver/internal/ai"
	"github.com/bosocmputer/doubtsolver/internal/common"
	"github.com/bosocmputer/doubtsolver/internal/ocr"
	"github.com/bosocmputer/doubtsolver/internal/processor"
	"github.com/bosocmputer/doubtsolver/internal/storage"
)

// DemoUserID owns doubts created through the unauthenticated demo endpoint.
const DemoUserID = "demo_user"

var (
	// ErrInvalidImageData is returned when an image question carries bad base64.
	ErrInvalidImageData = errors.New("invalid image data")

	// ErrDoubtNotFound wraps storage.ErrNotFound for doubt lookups.
	ErrDoubtNotFound = fmt.Errorf("doubt %w", storage.ErrNotFound)
)

// CreateRequest is the payload for a new doubt
type CreateRequest struct {
	Question     string  `json:"question"`
	Subject      string  `json:"subject" binding:"required"`
	QuestionType string  `json:"question_type" binding:"omitempty,oneof=text image"`
	ImageData    *string `json:"image_data"`
}

// Extractor runs OCR on encoded image bytes
type Extractor interface {
	Extract(ctx context.Context, data []byte) ocr.ExtractionOutcome
}

// Enqueuer hands solving off to a background worker
type Enqueuer interface {
	EnqueueSolve(ctx context.Context, doubtID, userID string) error
}

// Service implements the doubt workflow
type Service struct {
	store        storage.Store
	extractor    Extractor
	tutor        ai.Tutor
	enqueuer     Enqueuer
	maxDimension int
	maxPixels    int
	ocrTimeout   time.Duration
	now          func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithEnqueuer solves doubts in the background instead of inline
func WithEnqueuer(e Enqueuer) Option {
	return func(s *Service) { s.enqueuer = e }
}

// WithMaxImageDimension bounds the image sent to the tutor
func WithMaxImageDimension(n int) Option {
	return func(s *Service) { s.maxDimension = n }
}

// WithMaxImagePixels rejects images larger than n pixels before decoding
func WithMaxImagePixels(n int) Option {
	return func(s *Service) { s.maxPixels = n }
}

// WithOCRTimeout bounds a single extraction
func WithOCRTimeout(d time.Duration) Option {
	return func(s *Service) { s.ocrTimeout = d }
}

// NewService creates the doubt service
func NewService(store storage.Store, extractor Extractor, tutor ai.Tutor, opts ...Option) *Service {
	s := &Service{
		store:        store,
		extractor:    extractor,
		tutor:        tutor,
		maxDimension: 2000,
		maxPixels:    processor.DefaultMaxPixels,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func isImageQuestion(questionType string, imageData *string) bool {
	return questionType == storage.QuestionImage && imageData != nil && *imageData != ""
}

// Create stores a new doubt and solves it, inline or through the queue
func (s *Service) Create(ctx context.Context, userID string, req CreateRequest) (*storage.Doubt, error) {
	if req.QuestionType == "" {
		req.QuestionType = storage.QuestionText
	}

	var image []byte
	var ocrData *storage.OCRData
	if isImageQuestion(req.QuestionType, req.ImageData) {
		data, err := processor.DecodeBase64Image(*req.ImageData)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidImageData, err)
		}
		image = data
		ocrData = s.extractText(ctx, image)
	}

	now := s.now().UTC()
	d := &storage.Doubt{
		ID:           uuid.NewString(),
		UserID:       userID,
		Question:     req.Question,
		Subject:      req.Subject,
		QuestionType: req.QuestionType,
		ImageData:    req.ImageData,
		OCRData:      ocrData,
		Status:       storage.StatusProcessing,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.InsertDoubt(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to insert doubt: %w", err)
	}

	if s.enqueuer != nil {
		err := s.enqueuer.EnqueueSolve(ctx, d.ID, d.UserID)
		if err == nil {
			return d, nil
		}
		log.Warn().Err(err).Str("doubt_id", d.ID).Msg("⚠️  Enqueue failed, solving inline")
	}

	if err := s.solve(ctx, d, image); err != nil {
		return nil, err
	}
	return d, nil
}

// extractText returns OCR context for the tutor, or nil when nothing was read
func (s *Service) extractText(ctx context.Context, image []byte) *storage.OCRData {
	if s.extractor == nil {
		return nil
	}
	if s.ocrTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.ocrTimeout)
		defer cancel()
	}

	outcome := s.extractor.Extract(ctx, image)
	if !outcome.Success {
		log.Debug().Str("error", outcome.Error).Msg("OCR found no text")
		return nil
	}

	log.Info().Int("chars", len(outcome.ExtractedText)).Str("strategy", outcome.PreprocessingUsed).
		Msg("🔍 OCR extraction successful")
	return &storage.OCRData{
		ExtractedText:     outcome.ExtractedText,
		ConfidenceScores:  outcome.ConfidenceScores,
		PreprocessingUsed: outcome.PreprocessingUsed,
		AverageConfidence: outcome.AverageConfidenceOrZero(),
	}
}

// SolveByID solves a stored doubt. Used by the background worker.
func (s *Service) SolveByID(ctx context.Context, doubtID string) error {
	d, err := s.store.FindDoubtByID(ctx, doubtID)
	if err != nil {
		return notFound(err)
	}
	if d.Status == storage.StatusAnswered {
		return nil
	}

	var image []byte
	if isImageQuestion(d.QuestionType, d.ImageData) {
		if image, err = processor.DecodeBase64Image(*d.ImageData); err != nil {
			return s.markFailed(ctx, d, err)
		}
	}
	return s.solve(ctx, d, image)
}

// enhancedQuestion appends the OCR transcription to the student's question
func enhancedQuestion(question string, ocrData *storage.OCRData) string {
	if ocrData == nil || ocrData.ExtractedText == "" {
		return question
	}
	return question + fmt.Sprintf("\n\nOCR extracted text (confidence: %.1f%%): %s",
		ocrData.AverageConfidence, ocrData.ExtractedText)
}

// solve asks the tutor and records the outcome on d. A tutor failure marks
// the doubt failed and is not returned; only storage errors are.
func (s *Service) solve(ctx context.Context, d *storage.Doubt, image []byte) error {
	reqCtx := common.NewRequestContext(d.UserID)
	reqCtx.StartStep("solve_doubt")

	var (
		answer *ai.Answer
		usage  *common.TokenUsage
		err    error
	)
	if isImageQuestion(d.QuestionType, d.ImageData) {
		var prepared []byte
		var mimeType string
		prepared, mimeType, err = processor.PrepareForTutor(image, s.maxDimension, s.maxPixels)
		if err == nil {
			answer, usage, err = s.tutor.SolveImage(ctx, enhancedQuestion(d.Question, d.OCRData), d.Subject, prepared, mimeType, reqCtx)
		}
	} else {
		answer, usage, err = s.tutor.SolveText(ctx, d.Question, d.Subject, reqCtx)
	}

	if err != nil {
		reqCtx.EndStep(common.StatusFailed, nil, err)
		return s.markFailed(ctx, d, err)
	}
	reqCtx.EndStep(common.StatusSuccess, usage, nil)

	stored := &storage.DoubtAnswer{
		Solution:    answer.Solution,
		Steps:       answer.Steps,
		GeneratedAt: answer.GeneratedAt,
	}
	now := s.now().UTC()
	if err := s.store.UpdateDoubtAnswer(ctx, d.ID, stored, now); err != nil {
		return fmt.Errorf("failed to store answer: %w", err)
	}

	d.Answer = stored
	d.Status = storage.StatusAnswered
	d.UpdatedAt = now
	reqCtx.Logger().Info().Str("doubt_id", d.ID).Str("tutor", s.tutor.Name()).Msg("✅ Doubt answered")
	return nil
}

func (s *Service) markFailed(ctx context.Context, d *storage.Doubt, cause error) error {
	log.Error().Err(cause).Str("doubt_id", d.ID).Msg("❌ Tutor processing failed")

	now := s.now().UTC()
	if err := s.store.UpdateDoubtStatus(ctx, d.ID, storage.StatusFailed, now); err != nil {
		return fmt.Errorf("failed to mark doubt failed: %w", err)
	}
	d.Status = storage.StatusFailed
	d.UpdatedAt = now
	return nil
}

// List returns a user's doubts, newest first, without OCR detail
func (s *Service) List(ctx context.Context, userID string, skip, limit int) ([]storage.Doubt, error) {
	doubts, err := s.store.FindDoubts(ctx, userID, skip, limit)
	if err != nil {
		return nil, err
	}
	for i := range doubts {
		doubts[i].OCRData = nil
	}
	return doubts, nil
}

// Get returns one of the user's doubts, without OCR detail, or ErrDoubtNotFound
func (s *Service) Get(ctx context.Context, id, userID string) (*storage.Doubt, error) {
	d, err := s.store.FindDoubt(ctx, id, userID)
	if err != nil {
		return nil, notFound(err)
	}
	d.OCRData = nil
	return d, nil
}

func notFound(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return ErrDoubtNotFound
	}
	return err
}

// Delete reports whether the doubt existed
func (s *Service) Delete(ctx context.Context, id, userID string) (bool, error) {
	return s.store.DeleteDoubt(ctx, id, userID)
}
