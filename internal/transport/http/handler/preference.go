package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"lawgpt/internal/model"
	"lawgpt/internal/transport/http/response"
)

type ScopePreferences interface {
	ChannelScope(ctx context.Context, channelID string) (model.Scope, bool, error)
	SetChannelScope(ctx context.Context, channelID string, scope model.Scope) error
}

// PreferenceHandler lets chat adapters read and pin the law book a channel
// searches by default.
type PreferenceHandler struct {
	prefs ScopePreferences
}

type SetPreferenceRequest struct {
	Scope string `json:"scope" binding:"required,max=32"`
}

type preferenceView struct {
	ChannelID string      `json:"channel_id"`
	Scope     model.Scope `json:"scope"`
	Stored    bool        `json:"stored"`
}

func NewPreferenceHandler(prefs ScopePreferences) *PreferenceHandler {
	return &PreferenceHandler{prefs: prefs}
}

func (h *PreferenceHandler) Get(c *gin.Context) {
	channelID := strings.TrimSpace(c.Param("channel_id"))
	if channelID == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "channel id is required")
		return
	}

	scope, ok, err := h.prefs.ChannelScope(c.Request.Context(), channelID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "load preference failed")
		return
	}
	if !ok {
		scope = model.ScopeAll
	}
	response.OK(c, preferenceView{ChannelID: channelID, Scope: scope, Stored: ok})
}

func (h *PreferenceHandler) Put(c *gin.Context) {
	channelID := strings.TrimSpace(c.Param("channel_id"))
	var req SetPreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil || channelID == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	scope := model.ParseScope(req.Scope)
	if err := h.prefs.SetChannelScope(c.Request.Context(), channelID, scope); err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "save preference failed")
		return
	}
	response.OK(c, preferenceView{ChannelID: channelID, Scope: scope, Stored: true})
}
