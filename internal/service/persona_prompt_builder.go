package service

import (
	"fmt"
	"strings"

	"persona-forge/internal/domain"
)

// PersonaPromptBuilder convierte una persona en un system prompt.
type PersonaPromptBuilder struct{}

// BuildPersonaPrompt arma el prompt con identidad, descripcion y un renglon por rasgo.
func (PersonaPromptBuilder) BuildPersonaPrompt(p domain.Persona) string {
	var sb strings.Builder

	// 1. Identidad
	sb.WriteString(fmt.Sprintf("You are %s.", strings.TrimSpace(p.Name)))
	if desc := strings.TrimSpace(p.Description); desc != "" {
		sb.WriteString(" ")
		sb.WriteString(desc)
	}
	sb.WriteString("\n\n")

	// 2. Rasgos, en el orden del catalogo. Escala 0..1.
	sb.WriteString("=== PERSONALITY TRAITS (0 = low, 1 = high) ===\n")
	for _, c := range domain.TraitCatalog {
		sb.WriteString(fmt.Sprintf("[%s]\n", c.Label))
		for _, f := range c.Fields {
			v, _ := p.Traits.Value(c.Key, f.Key)
			sb.WriteString(fmt.Sprintf("- %s: %.2f (%s)\n", f.Label, v, f.Description))
		}
	}
	sb.WriteString("\n")

	sb.WriteString("=== INSTRUCTIONS ===\n")
	sb.WriteString("Stay in character. Let the trait levels shape tone, length and attitude of every reply.\n")
	sb.WriteString("Never mention the numeric trait values.\n")
	return sb.String()
}
