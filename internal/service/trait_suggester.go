package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"persona-forge/internal/domain"
	"persona-forge/internal/llm"
)

// TraitSuggestion es un valor propuesto por el LLM para un rasgo.
type TraitSuggestion struct {
	Category string  `json:"category"`
	Field    string  `json:"field"`
	Value    float64 `json:"value"`
}

// TraitSuggester pide al LLM valores de rasgos a partir del nombre y la descripcion.
type TraitSuggester struct {
	llmClient llm.LLMClient
	logger    *zap.Logger
	timeout   time.Duration
}

// NewTraitSuggester acepta un cliente nil: Suggest devuelve ErrPreviewOffline.
func NewTraitSuggester(llmClient llm.LLMClient, logger *zap.Logger) *TraitSuggester {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TraitSuggester{
		llmClient: llmClient,
		logger:    logger,
		timeout:   45 * time.Second,
	}
}

// Suggest devuelve sugerencias en el orden del catalogo. Ignora claves desconocidas
// y valores fuera de [0,1]; falla si no queda ninguna sugerencia valida.
func (s *TraitSuggester) Suggest(ctx context.Context, persona domain.Persona) ([]TraitSuggestion, error) {
	if s == nil || s.llmClient == nil {
		return nil, domain.ErrPreviewOffline
	}
	if strings.TrimSpace(persona.Description) == "" {
		return nil, fmt.Errorf("%w: a description is required to suggest traits", domain.ErrValidation)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.llmClient.Generate(ctx, suggestSystemPrompt(), suggestUserMessage(persona))
	if err != nil {
		return nil, fmt.Errorf("llm generate: %w", err)
	}

	var parsed struct {
		Traits map[string]map[string]float64 `json:"traits"`
	}
	if err := json.Unmarshal(cleanImportDocument([]byte(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("parse llm response: %w", err)
	}

	var out []TraitSuggestion
	for _, c := range domain.TraitCatalog {
		fields := parsed.Traits[c.Key]
		for _, f := range c.Fields {
			v, ok := fields[f.Key]
			if !ok {
				continue
			}
			if math.IsNaN(v) || v < 0 || v > 1 {
				s.logger.Warn("discarding out of range suggestion",
					zap.String("category", c.Key), zap.String("field", f.Key), zap.Float64("value", v))
				continue
			}
			out = append(out, TraitSuggestion{Category: c.Key, Field: f.Key, Value: math.Round(v*100) / 100})
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("parse llm response: no usable trait values")
	}
	return out, nil
}

// ApplySuggestions escribe las sugerencias en el borrador, una mutacion por rasgo.
func ApplySuggestions(draft *DraftStore, suggestions []TraitSuggestion) (domain.Persona, error) {
	current := draft.Current()
	for _, sg := range suggestions {
		p, err := draft.SetTraitValue(sg.Category, sg.Field, sg.Value)
		if err != nil {
			return current, err
		}
		current = p
	}
	return current, nil
}

func suggestSystemPrompt() string {
	var sb strings.Builder
	sb.WriteString("You calibrate AI persona profiles. Read the persona name and description and ")
	sb.WriteString("estimate every trait on a 0 to 1 scale (0 = low, 1 = high).\n")
	sb.WriteString("Return ONLY a JSON object with this shape:\n")
	sb.WriteString(`{"traits": {"<category>": {"<field>": 0.5}}}`)
	sb.WriteString("\n\nTraits:\n")
	for _, c := range domain.TraitCatalog {
		for _, f := range c.Fields {
			sb.WriteString(fmt.Sprintf("- %s.%s: %s\n", c.Key, f.Key, f.Description))
		}
	}
	return sb.String()
}

func suggestUserMessage(p domain.Persona) string {
	return fmt.Sprintf("Name: %s\nDescription: %s", strings.TrimSpace(p.Name), strings.TrimSpace(p.Description))
}
