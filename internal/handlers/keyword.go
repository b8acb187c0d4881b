package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pictovoice/pictovoice-backend/internal/logger"
	"github.com/pictovoice/pictovoice-backend/internal/services"
)

type KeywordHandler struct {
	log *logger.Logger
	svc services.KeywordService
	gen services.ContentGenerationService
}

func NewKeywordHandler(log *logger.Logger, svc services.KeywordService, gen services.ContentGenerationService) *KeywordHandler {
	return &KeywordHandler{
		log: log.With("handler", "KeywordHandler"),
		svc: svc,
		gen: gen,
	}
}

type createKeywordRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Language    string `json:"language"`
}

type updateKeywordRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Language    *string `json:"language"`
}

// POST /api/v1/keywords
// Creates the keyword, enqueues a generation run and returns immediately;
// enrichment is observed by re-querying the keyword.
func (h *KeywordHandler) Create(c *gin.Context) {
	var req createKeywordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("name is required"))
		return
	}

	kw, err := h.svc.Create(c.Request.Context(), req.Name, req.Description, req.Language)
	if err != nil {
		if errors.Is(err, services.ErrKeywordExists) {
			RespondError(c, http.StatusConflict, "keyword_exists", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "create_failed", err)
		return
	}

	run, err := h.gen.EnqueueRun(c.Request.Context(), kw.ID)
	if err != nil {
		// The keyword row exists; surface it with the enqueue failure noted.
		h.log.Error("Failed to enqueue generation run", "keyword_id", kw.ID, "error", err)
		RespondCreated(c, gin.H{"keyword": kw, "run": nil})
		return
	}
	RespondCreated(c, gin.H{"keyword": kw, "run": run})
}

// GET /api/v1/keywords?skip=0&limit=100
func (h *KeywordHandler) List(c *gin.Context) {
	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	keywords, err := h.svc.List(c.Request.Context(), skip, limit)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_failed", err)
		return
	}
	RespondOK(c, gin.H{"keywords": keywords, "skip": skip, "limit": limit})
}

// GET /api/v1/keywords/:id
func (h *KeywordHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", errors.New("invalid keyword id"))
		return
	}
	kw, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrKeywordNotFound) {
			RespondError(c, http.StatusNotFound, "keyword_not_found", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "get_failed", err)
		return
	}
	RespondOK(c, gin.H{"keyword": kw})
}

// GET /api/v1/keywords/name/:name
func (h *KeywordHandler) GetByName(c *gin.Context) {
	name := c.Param("name")
	kw, err := h.svc.GetByName(c.Request.Context(), name)
	if err != nil {
		if errors.Is(err, services.ErrKeywordNotFound) {
			RespondError(c, http.StatusNotFound, "keyword_not_found", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "get_failed", err)
		return
	}
	RespondOK(c, gin.H{"keyword": kw})
}

// GET /api/v1/keywords/audio/:name
func (h *KeywordHandler) GetAudioByName(c *gin.Context) {
	name := c.Param("name")
	view, err := h.svc.GetAudioByKeywordName(c.Request.Context(), name)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrKeywordNotFound):
			RespondError(c, http.StatusNotFound, "keyword_not_found", err)
		case errors.Is(err, services.ErrAudioNotFound):
			RespondError(c, http.StatusNotFound, "audio_not_found", err)
		default:
			RespondError(c, http.StatusInternalServerError, "get_failed", err)
		}
		return
	}
	RespondOK(c, gin.H{"audio": view})
}

// PATCH /api/v1/keywords/:id
func (h *KeywordHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", errors.New("invalid keyword id"))
		return
	}
	var req updateKeywordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	kw, err := h.svc.Update(c.Request.Context(), id, services.KeywordUpdate{
		Name:        req.Name,
		Description: req.Description,
		Language:    req.Language,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrKeywordNotFound):
			RespondError(c, http.StatusNotFound, "keyword_not_found", err)
		case errors.Is(err, services.ErrKeywordExists):
			RespondError(c, http.StatusConflict, "keyword_exists", err)
		default:
			RespondError(c, http.StatusInternalServerError, "update_failed", err)
		}
		return
	}
	RespondOK(c, gin.H{"keyword": kw})
}

// DELETE /api/v1/keywords/:id
func (h *KeywordHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", errors.New("invalid keyword id"))
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, services.ErrKeywordNotFound) {
			RespondError(c, http.StatusNotFound, "keyword_not_found", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "delete_failed", err)
		return
	}
	RespondNoContent(c)
}

// GET /api/v1/keywords/:id/generation
func (h *KeywordHandler) GetLatestRun(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", errors.New("invalid keyword id"))
		return
	}
	run, err := h.svc.GetLatestRun(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrKeywordNotFound):
			RespondError(c, http.StatusNotFound, "keyword_not_found", err)
		case errors.Is(err, services.ErrRunNotFound):
			RespondError(c, http.StatusNotFound, "run_not_found", err)
		default:
			RespondError(c, http.StatusInternalServerError, "get_failed", err)
		}
		return
	}
	RespondOK(c, gin.H{"run": run})
}
