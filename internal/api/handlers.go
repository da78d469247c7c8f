// handlers.go - Handler dependencies and the root/status endpoints.

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/bosocmputer/doubtsolver/internal/auth"
	"github.com/bosocmputer/doubtsolver/internal/chat"
	"github.com/bosocmputer/doubtsolver/internal/doubt"
	"github.com/bosocmputer/doubtsolver/internal/ocr"
	"github.com/bosocmputer/doubtsolver/internal/storage"
)

const apiVersion = "1.0.0"

// OCR is the text extraction surface exposed over HTTP
type OCR interface {
	Extract(ctx context.Context, data []byte) ocr.ExtractionOutcome
	Validate(data []byte) ocr.ValidationResult
	LocateRegions(ctx context.Context, data []byte) []ocr.TextRegion
}

// StatusStore persists client status checks
type StatusStore interface {
	InsertStatusCheck(ctx context.Context, check *storage.StatusCheck) error
	ListStatusChecks(ctx context.Context) ([]storage.StatusCheck, error)
}

// Deps are the services behind the handlers
type Deps struct {
	Auth           *auth.Service
	Doubts         *doubt.Service
	Chat           *chat.Service
	OCR            OCR
	Status         StatusStore
	MaxUploadBytes int64
	OCRTimeout     time.Duration
}

// Handler serves the HTTP API
type Handler struct {
	auth           *auth.Service
	doubts         *doubt.Service
	chat           *chat.Service
	ocr            OCR
	status         StatusStore
	maxUploadBytes int64
	ocrTimeout     time.Duration
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		auth:           d.Auth,
		doubts:         d.Doubts,
		chat:           d.Chat,
		ocr:            d.OCR,
		status:         d.Status,
		maxUploadBytes: d.MaxUploadBytes,
		ocrTimeout:     d.OCRTimeout,
	}
}

// Root answers GET /api/
func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "DoubSolver API is running", "version": apiVersion})
}

type statusCheckRequest struct {
	ClientName string `json:"client_name" binding:"required"`
}

// CreateStatusCheck records a client ping
func (h *Handler) CreateStatusCheck(c *gin.Context) {
	var req statusCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	check := &storage.StatusCheck{
		ID:         uuid.NewString(),
		ClientName: req.ClientName,
		Timestamp:  time.Now().UTC(),
	}
	if err := h.status.InsertStatusCheck(c.Request.Context(), check); err != nil {
		log.Error().Err(err).Msg("failed to store status check")
		abort(c, http.StatusInternalServerError, "Failed to create status check")
		return
	}
	c.JSON(http.StatusOK, check)
}

// ListStatusChecks returns stored pings
func (h *Handler) ListStatusChecks(c *gin.Context) {
	checks, err := h.status.ListStatusChecks(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list status checks")
		abort(c, http.StatusInternalServerError, "Failed to get status checks")
		return
	}
	c.JSON(http.StatusOK, checks)
}
