// imageprocessor.go - Image preparation for the tutor and quick quality scoring

package processor

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"math"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultMaxPixels caps width x height of an image accepted for decoding.
const DefaultMaxPixels = 40_000_000

var (
	// ErrNoImage is returned when PrepareForTutor receives no bytes.
	ErrNoImage = errors.New("no image data")

	// ErrImageTooLarge is returned when the header declares more pixels than allowed.
	ErrImageTooLarge = errors.New("image too large")
)

// CheckPixels rejects a decoded header whose pixel count exceeds maxPixels.
// A non-positive maxPixels disables the check.
func CheckPixels(cfg image.Config, maxPixels int) error {
	if maxPixels <= 0 {
		return nil
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrImageTooLarge, cfg.Width, cfg.Height, maxPixels)
	}
	return nil
}

// PrepareForTutor decodes an uploaded image, shrinks it so the longest side
// is at most maxDimension and re-encodes it. PNG input stays PNG, everything
// else becomes JPEG. Images over maxPixels are rejected before decoding.
// Returns the encoded bytes and their mime type.
func PrepareForTutor(data []byte, maxDimension, maxPixels int) ([]byte, string, error) {
	if len(data) == 0 {
		return nil, "", ErrNoImage
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image header: %w", err)
	}
	if err := CheckPixels(cfg, maxPixels); err != nil {
		return nil, "", err
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}

	img = limitSize(img, maxDimension)

	var buf bytes.Buffer
	mimeType := "image/jpeg"

	switch format {
	case "png":
		err = png.Encode(&buf, img)
		mimeType = "image/png"
	default:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	}

	if err != nil {
		return nil, "", fmt.Errorf("failed to encode image: %w", err)
	}

	return buf.Bytes(), mimeType, nil
}

// limitSize resizes img so neither side exceeds maxDimension, keeping the
// aspect ratio. A non-positive maxDimension disables resizing.
func limitSize(img image.Image, maxDimension int) image.Image {
	if maxDimension <= 0 {
		return img
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width > maxDimension || height > maxDimension {
		if width > height {
			return imaging.Resize(img, maxDimension, 0, imaging.Lanczos)
		}
		return imaging.Resize(img, 0, maxDimension, imaging.Lanczos)
	}
	return img
}

// AnalyzeImageQuality analyzes image and returns quality score (0-100)
func AnalyzeImageQuality(img image.Image) float64 {
	bounds := img.Bounds()

	// Calculate average brightness and contrast
	var totalBrightness float64
	var minBrightness float64 = 255
	var maxBrightness float64 = 0
	pixelCount := 0

	// Sample pixels (every 10th pixel for performance)
	for y := bounds.Min.Y; y < bounds.Max.Y; y += 10 {
		for x := bounds.Min.X; x < bounds.Max.X; x += 10 {
			r, g, b, _ := img.At(x, y).RGBA()
			brightness := (float64(r>>8) + float64(g>>8) + float64(b>>8)) / 3.0

			totalBrightness += brightness
			if brightness < minBrightness {
				minBrightness = brightness
			}
			if brightness > maxBrightness {
				maxBrightness = brightness
			}
			pixelCount++
		}
	}

	if pixelCount == 0 {
		return 0
	}

	avgBrightness := totalBrightness / float64(pixelCount)
	contrast := maxBrightness - minBrightness

	// Ideal: avgBrightness = 128, contrast = 200+
	brightnessScore := 100.0 - math.Abs(avgBrightness-128.0)/1.28
	contrastScore := math.Min(contrast/2.0, 100.0)

	// Weight: 40% brightness, 60% contrast
	qualityScore := (brightnessScore * 0.4) + (contrastScore * 0.6)

	return math.Round(qualityScore*10) / 10
}
