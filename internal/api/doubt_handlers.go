package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/bosocmputer/doubtsolver/internal/auth"
	"github.com/bosocmputer/doubtsolver/internal/doubt"
)

type listDoubtsQuery struct {
	Skip  int `form:"skip,default=0" binding:"min=0"`
	Limit int `form:"limit,default=50" binding:"min=0"`
}

// CreateDoubt stores and solves a doubt for the current user
func (h *Handler) CreateDoubt(c *gin.Context) {
	h.createDoubt(c, auth.CurrentUser(c).ID, "Failed to create doubt")
}

// CreateDemoDoubt solves a doubt without authentication
func (h *Handler) CreateDemoDoubt(c *gin.Context) {
	h.createDoubt(c, doubt.DemoUserID, "Failed to create demo doubt")
}

func (h *Handler) createDoubt(c *gin.Context, userID, failure string) {
	var req doubt.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	d, err := h.doubts.Create(c.Request.Context(), userID, req)
	if err != nil {
		if errors.Is(err, doubt.ErrInvalidImageData) {
			abort(c, http.StatusBadRequest, "Invalid image data")
			return
		}
		log.Error().Err(err).Str("user_id", userID).Msg("error creating doubt")
		abort(c, http.StatusInternalServerError, failure)
		return
	}
	c.JSON(http.StatusOK, d)
}

// ListDoubts pages through the user's doubts
func (h *Handler) ListDoubts(c *gin.Context) {
	var q listDoubtsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		abort(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	doubts, err := h.doubts.List(c.Request.Context(), auth.CurrentUser(c).ID, q.Skip, q.Limit)
	if err != nil {
		log.Error().Err(err).Msg("error getting doubts")
		abort(c, http.StatusInternalServerError, "Failed to get doubts")
		return
	}
	c.JSON(http.StatusOK, doubts)
}

func (h *Handler) GetDoubt(c *gin.Context) {
	d, err := h.doubts.Get(c.Request.Context(), c.Param("id"), auth.CurrentUser(c).ID)
	if err != nil {
		if errors.Is(err, doubt.ErrDoubtNotFound) {
			abort(c, http.StatusNotFound, "Doubt not found")
			return
		}
		log.Error().Err(err).Msg("error getting doubt")
		abort(c, http.StatusInternalServerError, "Failed to get doubt")
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) DeleteDoubt(c *gin.Context) {
	deleted, err := h.doubts.Delete(c.Request.Context(), c.Param("id"), auth.CurrentUser(c).ID)
	if err != nil {
		log.Error().Err(err).Msg("error deleting doubt")
		abort(c, http.StatusInternalServerError, "Failed to delete doubt")
		return
	}
	if !deleted {
		abort(c, http.StatusNotFound, "Doubt not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Doubt deleted successfully"})
}
