package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pictovoice/pictovoice-backend/internal/logger"
	"github.com/pictovoice/pictovoice-backend/internal/services"
)

type PictogramHandler struct {
	log *logger.Logger
	gen services.ContentGenerationService
}

func NewPictogramHandler(log *logger.Logger, gen services.ContentGenerationService) *PictogramHandler {
	return &PictogramHandler{
		log: log.With("handler", "PictogramHandler"),
		gen: gen,
	}
}

type generatePictogramRequest struct {
	Keyword string `json:"keyword" binding:"required"`
}

// POST /api/v1/pictogram/generate
// Synchronous: candidates, selection, background removal and upload happen
// before the response. The async path is the keyword-create endpoint.
func (h *PictogramHandler) Generate(c *gin.Context) {
	var req generatePictogramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	req.Keyword = strings.TrimSpace(req.Keyword)
	if req.Keyword == "" {
		RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("keyword is required"))
		return
	}

	kw, err := h.gen.GeneratePictogram(c.Request.Context(), req.Keyword)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "generation_failed", err)
		return
	}
	if kw.PictogramURL == nil {
		RespondError(c, http.StatusBadGateway, "no_pictogram", errors.New("no pictogram could be produced"))
		return
	}
	RespondOK(c, gin.H{"keyword": kw})
}
