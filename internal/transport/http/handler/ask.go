package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"lawgpt/internal/app"
	"lawgpt/internal/transport/http/response"
)

type Asker interface {
	Ask(ctx context.Context, in app.AskInput) (*app.AskResult, error)
}

type AskHandler struct {
	legal Asker
}

type AskRequest struct {
	Question         string `json:"question" binding:"max=2000"`
	DatasetScope     string `json:"dataset_scope" binding:"max=32"`
	ChannelSessionID string `json:"channel_session_id" binding:"max=128"`
}

func NewAskHandler(legal Asker) *AskHandler {
	return &AskHandler{legal: legal}
}

func (h *AskHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.legal.Ask(c.Request.Context(), app.AskInput{
		Question:         req.Question,
		DatasetScope:     req.DatasetScope,
		ChannelSessionID: req.ChannelSessionID,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrEmptyQuestion):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrServiceBusy):
			response.Error(c, http.StatusServiceUnavailable, response.CodeServiceBusy, app.ErrServiceBusy.Error())
		case errors.Is(err, app.ErrUpstream):
			response.Error(c, http.StatusBadGateway, response.CodeUpstream, app.ErrUpstream.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "ask failed")
		}
		return
	}

	response.OK(c, result)
}
