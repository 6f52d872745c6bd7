package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"persona-forge/internal/domain"
	"persona-forge/internal/service"
)

const (
	defaultSimilarLimit = 3
	maxSimilarLimit     = 50
)

// PersonaHandler expone la coleccion de personas guardadas.
type PersonaHandler struct {
	logger *zap.Logger
	editor *service.PersonaEditor
}

// NewPersonaHandler crea una instancia de PersonaHandler.
func NewPersonaHandler(logger *zap.Logger, editor *service.PersonaEditor) *PersonaHandler {
	return &PersonaHandler{logger: logger, editor: editor}
}

// GetSchema maneja GET /schema.
func (h *PersonaHandler) GetSchema(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"categories":    domain.TraitCatalog,
		"default_value": domain.DefaultTraitValue,
	})
}

// ListPersonas maneja GET /personas. Con ?refresh=true relee el backend.
func (h *PersonaHandler) ListPersonas(c *gin.Context) {
	collection := h.editor.Collection()
	refresh, _ := strconv.ParseBool(c.Query("refresh"))
	if refresh || !collection.Status().Loaded {
		if err := collection.Fetch(c.Request.Context()); err != nil {
			respondError(c, h.logger, err, "could not fetch personas")
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"personas": collection.List(),
		"status":   collection.Status(),
	})
}

// GetPersona maneja GET /personas/:id.
func (h *PersonaHandler) GetPersona(c *gin.Context) {
	if !h.ensureLoaded(c) {
		return
	}
	persona, ok := h.editor.Collection().Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "persona not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"persona": persona})
}

// SimilarPersonas maneja GET /personas/:id/similar?limit=N.
func (h *PersonaHandler) SimilarPersonas(c *gin.Context) {
	limit := defaultSimilarLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxSimilarLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("limit must be between 1 and %d", maxSimilarLimit)})
			return
		}
		limit = n
	}
	personas, err := h.editor.Collection().Similar(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		respondError(c, h.logger, err, "could not find similar personas")
		return
	}
	c.JSON(http.StatusOK, gin.H{"personas": personas})
}

// EditPersona maneja POST /personas/:id/edit: carga la persona en el borrador.
func (h *PersonaHandler) EditPersona(c *gin.Context) {
	if _, err := h.editor.EditSaved(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err, "could not load persona")
		return
	}
	c.JSON(http.StatusOK, gin.H{"draft": h.editor.Draft().Snapshot()})
}

// DeletePersona maneja DELETE /personas/:id.
func (h *PersonaHandler) DeletePersona(c *gin.Context) {
	id := c.Param("id")
	if err := h.editor.DeleteSaved(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err, "could not delete persona")
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func (h *PersonaHandler) ensureLoaded(c *gin.Context) bool {
	collection := h.editor.Collection()
	if collection.Status().Loaded {
		return true
	}
	if err := collection.Fetch(c.Request.Context()); err != nil {
		respondError(c, h.logger, err, "could not fetch personas")
		return false
	}
	return true
}
