package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"persona-forge/internal/domain"
	"persona-forge/internal/llm"
)

const defaultPreviewMessage = "Introduce yourself in two or three sentences."

// PreviewService genera una respuesta de muestra con la voz de la persona.
type PreviewService struct {
	llmClient llm.LLMClient
	builder   PersonaPromptBuilder
	logger    *zap.Logger
	timeout   time.Duration
}

// NewPreviewService acepta un cliente nil: en ese caso Preview devuelve ErrPreviewOffline.
func NewPreviewService(llmClient llm.LLMClient, logger *zap.Logger) *PreviewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PreviewService{
		llmClient: llmClient,
		logger:    logger,
		timeout:   45 * time.Second,
	}
}

func (s *PreviewService) Preview(ctx context.Context, persona domain.Persona, message string) (string, error) {
	if s == nil || s.llmClient == nil {
		return "", domain.ErrPreviewOffline
	}
	message = strings.TrimSpace(message)
	if message == "" {
		message = defaultPreviewMessage
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, err := s.llmClient.Generate(ctx, s.builder.BuildPersonaPrompt(persona), message)
	if err != nil {
		s.logger.Warn("preview generation failed", zap.Error(err), zap.String("persona_id", persona.ID))
		return "", fmt.Errorf("generate preview: %w", err)
	}
	return strings.TrimSpace(out), nil
}
