package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pictovoice/pictovoice-backend/internal/logger"
	"github.com/pictovoice/pictovoice-backend/internal/services"
)

type VoiceHandler struct {
	log *logger.Logger
	gen services.ContentGenerationService
}

func NewVoiceHandler(log *logger.Logger, gen services.ContentGenerationService) *VoiceHandler {
	return &VoiceHandler{
		log: log.With("handler", "VoiceHandler"),
		gen: gen,
	}
}

type generateVoiceRequest struct {
	Keyword  string `json:"keyword" binding:"required"`
	Language string `json:"language"`
}

// POST /api/v1/voice/generate
// Synchronous synthesis of the keyword's voice pair.
func (h *VoiceHandler) Generate(c *gin.Context) {
	var req generateVoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	req.Keyword = strings.TrimSpace(req.Keyword)
	if req.Keyword == "" {
		RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("keyword is required"))
		return
	}

	kw, err := h.gen.GenerateVoice(c.Request.Context(), req.Keyword, req.Language)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "generation_failed", err)
		return
	}
	if kw.AudioID == nil {
		RespondError(c, http.StatusBadGateway, "no_audio", errors.New("no voice clips could be produced"))
		return
	}
	RespondOK(c, gin.H{"keyword": kw})
}
