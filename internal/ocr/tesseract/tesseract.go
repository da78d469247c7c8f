// Package tesseract implements ocr.Recognizer on top of the Tesseract engine
// through gosseract. It requires libtesseract at build and run time.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/otiai10/gosseract/v2"

	"github.com/bosocmputer/doubtsolver/internal/ocr"
)

// Engine runs each recognition on a fresh gosseract client, so one Engine
// may serve concurrent callers.
type Engine struct {
	clientFactory  func() *gosseract.Client
	languages      []string
	tessdataPrefix string
}

// NewEngine constructs a Tesseract-backed recognizer for the given languages.
// An empty tessdataPrefix keeps the library default.
func NewEngine(languages []string, tessdataPrefix string) *Engine {
	return &Engine{
		clientFactory:  gosseract.NewClient,
		languages:      languages,
		tessdataPrefix: tessdataPrefix,
	}
}

// Recognize returns word tokens with Tesseract's per-word confidence.
func (e *Engine) Recognize(ctx context.Context, img image.Image, mode ocr.SegmentationMode) ([]ocr.Token, error) {
	c, err := e.prepare(ctx, img, mode)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, ocr.NewOCRError("Recognize", err, "bounding boxes")
	}

	origin := img.Bounds().Min
	tokens := make([]ocr.Token, 0, len(boxes))
	for _, b := range boxes {
		r := b.Box.Sub(origin)
		tokens = append(tokens, ocr.Token{
			Text:       b.Word,
			Confidence: int(b.Confidence),
			Box: ocr.BoundingBox{
				X:      r.Min.X,
				Y:      r.Min.Y,
				Width:  r.Dx(),
				Height: r.Dy(),
			},
		})
	}
	return tokens, nil
}

// RecognizeText returns Tesseract's plain text output.
func (e *Engine) RecognizeText(ctx context.Context, img image.Image, mode ocr.SegmentationMode) (string, error) {
	c, err := e.prepare(ctx, img, mode)
	if err != nil {
		return "", err
	}
	defer c.Close()

	text, err := c.Text()
	if err != nil {
		return "", ocr.NewOCRError("RecognizeText", err, "")
	}
	return text, nil
}

// prepare returns a configured client holding img. The caller closes it.
func (e *Engine) prepare(ctx context.Context, img image.Image, mode ocr.SegmentationMode) (*gosseract.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, ocr.NewOCRError("Encode", err, "png")
	}

	c := e.clientFactory()
	if e.tessdataPrefix != "" {
		if err := c.SetTessdataPrefix(e.tessdataPrefix); err != nil {
			c.Close()
			return nil, fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	if len(e.languages) > 0 {
		if err := c.SetLanguage(e.languages...); err != nil {
			c.Close()
			return nil, fmt.Errorf("set languages: %w", err)
		}
	}
	if err := c.SetPageSegMode(gosseract.PageSegMode(mode)); err != nil {
		c.Close()
		return nil, fmt.Errorf("set page segmentation mode: %w", err)
	}
	if err := c.SetImageFromBytes(buf.Bytes()); err != nil {
		c.Close()
		return nil, fmt.Errorf("set image: %w", err)
	}
	return c, nil
}
