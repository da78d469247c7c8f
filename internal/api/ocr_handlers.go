package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bosocmputer/doubtsolver/internal/processor"
)

var (
	errNoImage       = errors.New("no image provided")
	errInvalidImage  = errors.New("invalid image data")
	errImageTooLarge = errors.New("image too large")
)

type imageRequest struct {
	ImageData string `json:"image_data" binding:"required"`
}

// readImage accepts a multipart "file" field or a JSON base64 payload
func (h *Handler) readImage(c *gin.Context) ([]byte, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		header, err := c.FormFile("file")
		if err != nil {
			return nil, errNoImage
		}
		if h.maxUploadBytes > 0 && header.Size > h.maxUploadBytes {
			return nil, errImageTooLarge
		}
		f, err := header.Open()
		if err != nil {
			return nil, errInvalidImage
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, errInvalidImage
		}
		return data, nil
	}

	var req imageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, errNoImage
	}
	data, err := processor.DecodeBase64Image(req.ImageData)
	if err != nil {
		if errors.Is(err, processor.ErrNoImage) {
			return nil, errNoImage
		}
		return nil, errInvalidImage
	}
	if h.maxUploadBytes > 0 && int64(len(data)) > h.maxUploadBytes {
		return nil, errImageTooLarge
	}
	return data, nil
}

func (h *Handler) imageOrAbort(c *gin.Context) ([]byte, bool) {
	data, err := h.readImage(c)
	if err == nil {
		return data, true
	}
	switch {
	case errors.Is(err, errImageTooLarge):
		abort(c, http.StatusRequestEntityTooLarge, "Image too large")
	case errors.Is(err, errNoImage):
		abort(c, http.StatusBadRequest, "No image provided")
	default:
		abort(c, http.StatusBadRequest, "Invalid image data")
	}
	return nil, false
}

func (h *Handler) ocrContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.ocrTimeout > 0 {
		return context.WithTimeout(c.Request.Context(), h.ocrTimeout)
	}
	return context.WithCancel(c.Request.Context())
}

// ExtractText runs the strategy selector on an uploaded image
func (h *Handler) ExtractText(c *gin.Context) {
	data, ok := h.imageOrAbort(c)
	if !ok {
		return
	}
	ctx, cancel := h.ocrContext(c)
	defer cancel()

	c.JSON(http.StatusOK, h.ocr.Extract(ctx, data))
}

// ValidateImage reports format, size and quality without recognition
func (h *Handler) ValidateImage(c *gin.Context) {
	data, ok := h.imageOrAbort(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.ocr.Validate(data))
}

// LocateRegions returns confident words with bounding boxes
func (h *Handler) LocateRegions(c *gin.Context) {
	data, ok := h.imageOrAbort(c)
	if !ok {
		return
	}
	ctx, cancel := h.ocrContext(c)
	defer cancel()

	c.JSON(http.StatusOK, gin.H{"regions": h.ocr.LocateRegions(ctx, data)})
}
