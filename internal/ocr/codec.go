package ocr

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/bosocmputer/doubtsolver/internal/processor"
)

// ImageDecoder decodes png, jpeg, gif, bmp, tiff and webp buffers.
// Headers declaring more than MaxPixels pixels are rejected before the
// pixel data is decoded.
type ImageDecoder struct {
	MaxPixels int
}

// NewDecoder returns a decoder with the given pixel limit. A non-positive
// limit disables the check.
func NewDecoder(maxPixels int) ImageDecoder {
	return ImageDecoder{MaxPixels: maxPixels}
}

// Decode implements Decoder. The returned format is the lowercase codec name.
func (d ImageDecoder) Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", NewOCRError("Decode", ErrEmptyImage, "")
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", NewOCRError("Decode", ErrDecode, err.Error())
	}
	if err := processor.CheckPixels(cfg, d.MaxPixels); err != nil {
		return nil, "", NewOCRError("Decode", ErrDecode, err.Error())
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", NewOCRError("Decode", ErrDecode, err.Error())
	}

	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, "", NewOCRError("Decode", ErrEmptyImage, format)
	}

	return img, format, nil
}

// colorMode names the pixel layout of a decoded image using the short mode
// names common to imaging tools (RGB, RGBA, L, P, CMYK).
func colorMode(img image.Image) string {
	switch img.(type) {
	case *image.Gray:
		return "L"
	case *image.Gray16:
		return "I;16"
	case *image.Paletted:
		return "P"
	case *image.CMYK:
		return "CMYK"
	case *image.YCbCr:
		return "RGB"
	case *image.Alpha, *image.Alpha16:
		return "A"
	case *image.RGBA, *image.NRGBA, *image.RGBA64, *image.NRGBA64:
		if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
			return "RGB"
		}
		return "RGBA"
	default:
		return "unknown"
	}
}
