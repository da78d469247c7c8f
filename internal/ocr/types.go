// Package ocr picks the best plain-text transcription of an image by running
// several preprocessing strategies through a recognition engine and keeping
// the candidate with the most confident words.
//
// The recognition engine and the image codec are injected, so the selection
// logic can be exercised with stub engines that return fixed token lists.
package ocr

import (
	"context"
	"image"
)

// SegmentationMode mirrors Tesseract's page segmentation modes.
type SegmentationMode int

const (
	// SegmentAuto is fully automatic page segmentation (PSM 3).
	SegmentAuto SegmentationMode = 3
	// SegmentSingleBlock treats the image as a single uniform block of text (PSM 6).
	SegmentSingleBlock SegmentationMode = 6
)

// Strategy names reported in ExtractionOutcome.PreprocessingUsed.
const (
	StrategyOriginal     = "original"
	StrategyGrayscale    = "grayscale"
	StrategyThreshold    = "threshold"
	StrategyNoiseRemoval = "noise_removal"
	StrategyEnhanced     = "enhanced"

	// PreprocessingSimple marks an outcome produced by the unfiltered fallback pass.
	PreprocessingSimple = "simple_extraction"
	// PreprocessingNone marks an outcome for input that could not be decoded.
	PreprocessingNone = "none"
)

// BoundingBox is a rectangle in source image pixel coordinates.
type BoundingBox struct {
	X      int `json:"x" bson:"x"`
	Y      int `json:"y" bson:"y"`
	Width  int `json:"width" bson:"width"`
	Height int `json:"height" bson:"height"`
}

// Token is one word reported by the recognition engine.
type Token struct {
	Text       string
	Confidence int // 0-100
	Box        BoundingBox
}

// Decoder turns encoded image bytes into a raster image and reports the
// codec name (png, jpeg, ...).
type Decoder interface {
	Decode(data []byte) (image.Image, string, error)
}

// Recognizer runs text recognition on a raster image.
type Recognizer interface {
	// Recognize returns word tokens in reading order with per-word confidence.
	Recognize(ctx context.Context, img image.Image, mode SegmentationMode) ([]Token, error)
	// RecognizeText returns the engine's plain text output.
	RecognizeText(ctx context.Context, img image.Image, mode SegmentationMode) (string, error)
}

// Candidate is the filtered output of one strategy.
type Candidate struct {
	Strategy          string
	ExtractedText     string
	ConfidenceScores  []int
	WordCount         int
	AverageConfidence float64
}

// ExtractionOutcome is the result of Extract. It is always populated, even
// when nothing could be read from the image.
type ExtractionOutcome struct {
	ExtractedText     string   `json:"extracted_text"`
	ConfidenceScores  []int    `json:"confidence_scores"`
	PreprocessingUsed string   `json:"preprocessing_used"`
	Success           bool     `json:"success"`
	WordCount         int      `json:"word_count"`
	AverageConfidence *float64 `json:"average_confidence,omitempty"`
	Error             string   `json:"error,omitempty"`
}

// AverageConfidenceOrZero returns the average confidence, or 0 when the
// outcome carries none.
func (o ExtractionOutcome) AverageConfidenceOrZero() float64 {
	if o.AverageConfidence == nil {
		return 0
	}
	return *o.AverageConfidence
}

// ValidationResult describes an image without running recognition.
type ValidationResult struct {
	Valid        bool    `json:"valid"`
	Format       string  `json:"format,omitempty"`
	Width        int     `json:"width,omitempty"`
	Height       int     `json:"height,omitempty"`
	ColorMode    string  `json:"color_mode,omitempty"`
	QualityScore float64 `json:"quality_score,omitempty"`
	Error        string  `json:"error,omitempty"`
}

// TextRegion is a confidently recognized word with its location, used for
// highlighting text in the UI.
type TextRegion struct {
	Text       string      `json:"text"`
	Confidence int         `json:"confidence"`
	BBox       BoundingBox `json:"bbox"`
}
