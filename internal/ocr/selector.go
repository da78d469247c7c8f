package ocr

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/bosocmputer/doubtsolver/internal/processor"
)

const (
	// Tokens at or below this confidence are discarded.
	minTokenConfidence = 30
	// A candidate must average strictly above this to be selected.
	minAverageConfidence = 40.0
)

// Selector runs every preprocessing strategy through a Recognizer and keeps
// the best candidate.
type Selector struct {
	decoder    Decoder
	recognizer Recognizer
	strategies []Strategy
	parallel   bool
	log        zerolog.Logger
}

// Option configures a Selector.
type Option func(*Selector)

// WithParallel evaluates strategies concurrently. Candidates are still
// compared in strategy order, so the chosen outcome does not change.
func WithParallel(parallel bool) Option {
	return func(s *Selector) { s.parallel = parallel }
}

// WithStrategies replaces the default strategy list.
func WithStrategies(strategies []Strategy) Option {
	return func(s *Selector) { s.strategies = strategies }
}

// WithDecoder replaces the default image decoder.
func WithDecoder(d Decoder) Option {
	return func(s *Selector) { s.decoder = d }
}

// WithLogger sets the logger used for per-strategy diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Selector) { s.log = l }
}

// NewSelector creates a Selector around the given recognition engine.
func NewSelector(rec Recognizer, opts ...Option) *Selector {
	s := &Selector{
		decoder:    NewDecoder(processor.DefaultMaxPixels),
		recognizer: rec,
		strategies: DefaultStrategies(),
		log:        log.Logger.With().Str("component", "ocr").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Extract decodes data, evaluates every strategy and returns the best
// transcription. It never returns an error: failures are reported in the
// outcome.
func (s *Selector) Extract(ctx context.Context, data []byte) ExtractionOutcome {
	img, _, err := s.decoder.Decode(data)
	if err != nil {
		s.log.Warn().Err(err).Msg("image decode failed")
		return ExtractionOutcome{
			ConfidenceScores:  []int{},
			PreprocessingUsed: PreprocessingNone,
			Error:             err.Error(),
		}
	}

	var best *Candidate
	for _, c := range s.candidates(ctx, img) {
		if c == nil {
			continue
		}
		if qualifies(c, best) {
			best = c
		}
	}

	if best != nil {
		avg := best.AverageConfidence
		s.log.Info().
			Str("strategy", best.Strategy).
			Int("words", best.WordCount).
			Float64("avg_confidence", avg).
			Msg("extraction selected")
		return ExtractionOutcome{
			ExtractedText:     best.ExtractedText,
			ConfidenceScores:  best.ConfidenceScores,
			PreprocessingUsed: best.Strategy,
			Success:           true,
			WordCount:         best.WordCount,
			AverageConfidence: &avg,
		}
	}

	return s.fallback(ctx, img)
}

// candidates returns one entry per strategy, in strategy order. Failed
// strategies leave a nil entry.
func (s *Selector) candidates(ctx context.Context, img image.Image) []*Candidate {
	out := make([]*Candidate, len(s.strategies))

	if !s.parallel {
		for i, st := range s.strategies {
			out[i] = s.evaluate(ctx, st, img)
		}
		return out
	}

	// evaluate never returns an error; the group is only used to wait.
	var g errgroup.Group
	for i, st := range s.strategies {
		g.Go(func() error {
			out[i] = s.evaluate(ctx, st, img)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// evaluate runs one strategy and builds its candidate, or returns nil if the
// strategy failed.
func (s *Selector) evaluate(ctx context.Context, st Strategy, img image.Image) (c *Candidate) {
	l := s.log.With().Str("strategy", st.Name).Logger()

	defer func() {
		if r := recover(); r != nil {
			l.Warn().Interface("panic", r).Msg("strategy failed")
			c = nil
		}
	}()

	if err := ctx.Err(); err != nil {
		l.Warn().Err(err).Msg("strategy skipped")
		return nil
	}

	tokens, err := s.recognizer.Recognize(ctx, st.Transform(img), SegmentSingleBlock)
	if err != nil {
		l.Warn().Err(err).Msg("strategy failed")
		return nil
	}

	c = buildCandidate(st.Name, tokens)
	l.Debug().Int("words", c.WordCount).Float64("avg_confidence", c.AverageConfidence).Msg("strategy evaluated")
	return c
}

// buildCandidate keeps confident, non-blank tokens and summarizes them.
func buildCandidate(strategy string, tokens []Token) *Candidate {
	c := &Candidate{Strategy: strategy, ConfidenceScores: []int{}}
	words := make([]string, 0, len(tokens))
	sum := 0
	for _, t := range tokens {
		text := strings.TrimSpace(t.Text)
		if t.Confidence <= minTokenConfidence || text == "" {
			continue
		}
		words = append(words, text)
		c.ConfidenceScores = append(c.ConfidenceScores, t.Confidence)
		sum += t.Confidence
	}
	c.ExtractedText = strings.Join(words, " ")
	c.WordCount = len(words)
	if c.WordCount > 0 {
		c.AverageConfidence = float64(sum) / float64(c.WordCount)
	}
	return c
}

// qualifies reports whether c should replace best.
func qualifies(c, best *Candidate) bool {
	bestWords := 0
	if best != nil {
		bestWords = best.WordCount
	}
	return c.WordCount > bestWords &&
		len(c.ConfidenceScores) > 0 &&
		c.AverageConfidence > minAverageConfidence
}

// fallback reads the unprocessed image as plain text when no strategy
// produced a qualifying candidate.
func (s *Selector) fallback(ctx context.Context, img image.Image) (out ExtractionOutcome) {
	out = ExtractionOutcome{
		ConfidenceScores:  []int{},
		PreprocessingUsed: StrategyOriginal,
	}

	defer func() {
		if r := recover(); r != nil {
			s.log.Warn().Interface("panic", r).Msg("fallback extraction failed")
			out = ExtractionOutcome{ConfidenceScores: []int{}, PreprocessingUsed: StrategyOriginal}
		}
	}()

	if ctx.Err() != nil {
		return out
	}

	text, err := s.recognizer.RecognizeText(ctx, img, SegmentSingleBlock)
	if err != nil {
		s.log.Warn().Err(err).Msg("fallback extraction failed")
		return out
	}

	text = strings.TrimSpace(text)
	if text == "" {
		s.log.Info().Msg("no text found in image")
		return out
	}

	zero := 0.0
	s.log.Info().Int("words", len(strings.Fields(text))).Msg("fallback extraction used")
	return ExtractionOutcome{
		ExtractedText:     text,
		ConfidenceScores:  []int{},
		PreprocessingUsed: PreprocessingSimple,
		Success:           true,
		WordCount:         len(strings.Fields(text)),
		AverageConfidence: &zero,
	}
}

// Validate decodes data and reports its format, size and colour mode without
// running recognition.
func (s *Selector) Validate(data []byte) ValidationResult {
	img, format, err := s.decoder.Decode(data)
	if err != nil {
		return ValidationResult{Valid: false, Error: err.Error()}
	}
	b := img.Bounds()
	return ValidationResult{
		Valid:        true,
		Format:       format,
		Width:        b.Dx(),
		Height:       b.Dy(),
		ColorMode:    colorMode(img),
		QualityScore: processor.AnalyzeImageQuality(img),
	}
}

// LocateRegions runs one automatic-segmentation pass and returns the
// confident words with their bounding boxes. Any failure yields an empty list.
func (s *Selector) LocateRegions(ctx context.Context, data []byte) (regions []TextRegion) {
	regions = []TextRegion{}

	defer func() {
		if r := recover(); r != nil {
			s.log.Warn().Interface("panic", r).Msg("region detection failed")
			regions = []TextRegion{}
		}
	}()

	img, _, err := s.decoder.Decode(data)
	if err != nil {
		s.log.Warn().Err(err).Msg("region detection failed")
		return regions
	}

	tokens, err := s.recognizer.Recognize(ctx, img, SegmentAuto)
	if err != nil {
		s.log.Warn().Err(fmt.Errorf("recognize: %w", err)).Msg("region detection failed")
		return regions
	}

	for _, t := range tokens {
		text := strings.TrimSpace(t.Text)
		if t.Confidence <= minTokenConfidence || text == "" {
			continue
		}
		regions = append(regions, TextRegion{Text: text, Confidence: t.Confidence, BBox: t.Box})
	}
	return regions
}
