package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"persona-forge/internal/service"
)

const maxImportBytes = 1 << 20

// DraftHandler expone el borrador en edicion.
type DraftHandler struct {
	logger    *zap.Logger
	editor    *service.PersonaEditor
	preview   *service.PreviewService
	suggester *service.TraitSuggester
	limiter   service.PreviewLimiter
	prompts   service.PersonaPromptBuilder
}

// NewDraftHandler crea una instancia de DraftHandler. preview, suggester y limiter pueden ser nil.
func NewDraftHandler(
	logger *zap.Logger,
	editor *service.PersonaEditor,
	preview *service.PreviewService,
	suggester *service.TraitSuggester,
	limiter service.PreviewLimiter,
) *DraftHandler {
	return &DraftHandler{
		logger:    logger,
		editor:    editor,
		preview:   preview,
		suggester: suggester,
		limiter:   limiter,
	}
}

// GetDraft maneja GET /draft.
func (h *DraftHandler) GetDraft(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"draft": h.editor.Draft().Snapshot()})
}

// SetName maneja PUT /draft/name.
func (h *DraftHandler) SetName(c *gin.Context) {
	var req struct {
		Name *string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid set name request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if _, err := h.editor.Draft().SetName(*req.Name); err != nil {
		respondError(c, h.logger, err, "could not update name")
		return
	}
	h.GetDraft(c)
}

// SetDescription maneja PUT /draft/description.
func (h *DraftHandler) SetDescription(c *gin.Context) {
	var req struct {
		Description *string `json:"description" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid set description request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if _, err := h.editor.Draft().SetDescription(*req.Description); err != nil {
		respondError(c, h.logger, err, "could not update description")
		return
	}
	h.GetDraft(c)
}

// SetTrait maneja PUT /draft/traits/:category/:field.
func (h *DraftHandler) SetTrait(c *gin.Context) {
	var req struct {
		Value *float64 `json:"value" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid set trait request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if _, err := h.editor.Draft().SetTraitValue(c.Param("category"), c.Param("field"), *req.Value); err != nil {
		respondError(c, h.logger, err, "could not update trait")
		return
	}
	h.GetDraft(c)
}

// Reset maneja POST /draft/reset.
func (h *DraftHandler) Reset(c *gin.Context) {
	h.editor.NewDraft()
	h.GetDraft(c)
}

// Save maneja POST /draft/save.
func (h *DraftHandler) Save(c *gin.Context) {
	persona, err := h.editor.Save(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "could not save persona")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"persona": persona,
		"draft":   h.editor.Draft().Snapshot(),
	})
}

// Import maneja POST /draft/import con el documento exportado como body.
func (h *DraftHandler) Import(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes))
	if err != nil {
		h.logger.Warn("read import body failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if _, err := h.editor.Import(body); err != nil {
		respondError(c, h.logger, err, "could not import persona")
		return
	}
	h.GetDraft(c)
}

// Export maneja GET /draft/export y responde el JSON como adjunto.
func (h *DraftHandler) Export(c *gin.Context) {
	out, err := h.editor.Export()
	if err != nil {
		respondError(c, h.logger, err, "could not export persona")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.Filename))
	c.Data(http.StatusOK, "application/json", out.Data)
}

// GetProgress maneja GET /draft/progress.
func (h *DraftHandler) GetProgress(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"progress": h.editor.Progress().Snapshot()})
}

// SelectSection maneja PUT /draft/progress/section.
func (h *DraftHandler) SelectSection(c *gin.Context) {
	var req struct {
		Section string `json:"section" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid select section request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	progress, err := h.editor.SelectSection(req.Section)
	if err != nil {
		respondError(c, h.logger, err, "could not select section")
		return
	}
	c.JSON(http.StatusOK, gin.H{"progress": progress})
}

// GetPrompt maneja GET /draft/prompt.
func (h *DraftHandler) GetPrompt(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"prompt": h.prompts.BuildPersonaPrompt(h.editor.Draft().Current())})
}

// Preview maneja POST /draft/preview. El body es opcional.
func (h *DraftHandler) Preview(c *gin.Context) {
	var req struct {
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Warn("invalid preview request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if h.limiter != nil && !h.limiter.Allow(c.ClientIP()) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many preview requests"})
		return
	}
	reply, err := h.preview.Preview(c.Request.Context(), h.editor.Draft().Current(), req.Message)
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			h.logger.Error("preview failed", zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "could not generate preview"})
			return
		}
		respondError(c, h.logger, err, "could not generate preview")
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": reply})
}

// SuggestTraits maneja POST /draft/suggest. Con ?apply=true escribe las sugerencias en el borrador.
func (h *DraftHandler) SuggestTraits(c *gin.Context) {
	if h.limiter != nil && !h.limiter.Allow(c.ClientIP()) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many preview requests"})
		return
	}
	suggestions, err := h.suggester.Suggest(c.Request.Context(), h.editor.Draft().Current())
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			h.logger.Error("trait suggestion failed", zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "could not suggest traits"})
			return
		}
		respondError(c, h.logger, err, "could not suggest traits")
		return
	}
	if c.Query("apply") != "true" {
		c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
		return
	}
	if _, err := service.ApplySuggestions(h.editor.Draft(), suggestions); err != nil {
		respondError(c, h.logger, err, "could not apply suggestions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions, "draft": h.editor.Draft().Snapshot()})
}
