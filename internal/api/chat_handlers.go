package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/bosocmputer/doubtsolver/internal/auth"
	"github.com/bosocmputer/doubtsolver/internal/chat"
)

type listMessagesQuery struct {
	DoubtID string `form:"doubt_id"`
	Limit   int    `form:"limit,default=50" binding:"min=0"`
}

func (h *Handler) SendMessage(c *gin.Context) {
	var req chat.SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	msg, err := h.chat.Send(c.Request.Context(), auth.CurrentUser(c).ID, req)
	if err != nil {
		log.Error().Err(err).Msg("error sending message")
		abort(c, http.StatusInternalServerError, "Failed to send message")
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (h *Handler) ListMessages(c *gin.Context) {
	var q listMessagesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		abort(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	messages, err := h.chat.Messages(c.Request.Context(), auth.CurrentUser(c).ID, q.DoubtID, q.Limit)
	if err != nil {
		log.Error().Err(err).Msg("error getting messages")
		abort(c, http.StatusInternalServerError, "Failed to get messages")
		return
	}
	c.JSON(http.StatusOK, messages)
}
