package domain

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// Categorias fijas del esquema de rasgos.
const (
	TraitCategoryCommunicationStyle = "communicationStyle"
	TraitCategoryCognitiveBiases    = "cognitiveBiases"
	TraitCategoryEmotionalRange     = "emotionalRange"
	TraitCategoryCreativity         = "creativity"
	TraitCategoryRiskTolerance      = "riskTolerance"
	TraitCategoryLearningStyle      = "learningStyle"
)

// DefaultTraitValue es el valor inicial de cada slider.
const DefaultTraitValue = 0.5

// TraitDimensions es la cantidad total de sliders del esquema.
const TraitDimensions = 16

type CommunicationStyle struct {
	Formality  float64 `json:"formality" validate:"gte=0,lte=1"`
	Verbosity  float64 `json:"verbosity" validate:"gte=0,lte=1"`
	Directness float64 `json:"directness" validate:"gte=0,lte=1"`
	Tone       float64 `json:"tone" validate:"gte=0,lte=1"`
}

type CognitiveBiases struct {
	ConfirmationBias float64 `json:"confirmationBias" validate:"gte=0,lte=1"`
	AnchoringBias    float64 `json:"anchoringBias" validate:"gte=0,lte=1"`
	RecencyBias      float64 `json:"recencyBias" validate:"gte=0,lte=1"`
}

type EmotionalRange struct {
	Empathy  float64 `json:"empathy" validate:"gte=0,lte=1"`
	Optimism float64 `json:"optimism" validate:"gte=0,lte=1"`
	Patience float64 `json:"patience" validate:"gte=0,lte=1"`
}

type Creativity struct {
	Originality float64 `json:"originality" validate:"gte=0,lte=1"`
	Flexibility float64 `json:"flexibility" validate:"gte=0,lte=1"`
}

type RiskTolerance struct {
	Adventurousness float64 `json:"adventurousness" validate:"gte=0,lte=1"`
	Caution         float64 `json:"caution" validate:"gte=0,lte=1"`
}

type LearningStyle struct {
	Adaptability float64 `json:"adaptability" validate:"gte=0,lte=1"`
	Curiosity    float64 `json:"curiosity" validate:"gte=0,lte=1"`
}

// Traits agrupa las seis categorias de sliders. Es un valor: copiarlo es una copia profunda.
type Traits struct {
	CommunicationStyle CommunicationStyle `json:"communicationStyle"`
	CognitiveBiases    CognitiveBiases    `json:"cognitiveBiases"`
	EmotionalRange     EmotionalRange     `json:"emotionalRange"`
	Creativity         Creativity         `json:"creativity"`
	RiskTolerance      RiskTolerance      `json:"riskTolerance"`
	LearningStyle      LearningStyle      `json:"learningStyle"`
}

// TraitField describe un slider del catalogo.
type TraitField struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// TraitCategory describe una pestaña del catalogo con sus campos en orden.
type TraitCategory struct {
	Key    string       `json:"key"`
	Label  string       `json:"label"`
	Fields []TraitField `json:"fields"`
}

type fieldAccessor func(t *Traits) *float64

var traitAccessors = map[string]map[string]fieldAccessor{
	TraitCategoryCommunicationStyle: {
		"formality":  func(t *Traits) *float64 { return &t.CommunicationStyle.Formality },
		"verbosity":  func(t *Traits) *float64 { return &t.CommunicationStyle.Verbosity },
		"directness": func(t *Traits) *float64 { return &t.CommunicationStyle.Directness },
		"tone":       func(t *Traits) *float64 { return &t.CommunicationStyle.Tone },
	},
	TraitCategoryCognitiveBiases: {
		"confirmationBias": func(t *Traits) *float64 { return &t.CognitiveBiases.ConfirmationBias },
		"anchoringBias":    func(t *Traits) *float64 { return &t.CognitiveBiases.AnchoringBias },
		"recencyBias":      func(t *Traits) *float64 { return &t.CognitiveBiases.RecencyBias },
	},
	TraitCategoryEmotionalRange: {
		"empathy":  func(t *Traits) *float64 { return &t.EmotionalRange.Empathy },
		"optimism": func(t *Traits) *float64 { return &t.EmotionalRange.Optimism },
		"patience": func(t *Traits) *float64 { return &t.EmotionalRange.Patience },
	},
	TraitCategoryCreativity: {
		"originality": func(t *Traits) *float64 { return &t.Creativity.Originality },
		"flexibility": func(t *Traits) *float64 { return &t.Creativity.Flexibility },
	},
	TraitCategoryRiskTolerance: {
		"adventurousness": func(t *Traits) *float64 { return &t.RiskTolerance.Adventurousness },
		"caution":         func(t *Traits) *float64 { return &t.RiskTolerance.Caution },
	},
	TraitCategoryLearningStyle: {
		"adaptability": func(t *Traits) *float64 { return &t.LearningStyle.Adaptability },
		"curiosity":    func(t *Traits) *float64 { return &t.LearningStyle.Curiosity },
	},
}

// TraitCatalog es el esquema ordenado de categorias y campos, con el texto de ayuda de cada slider.
var TraitCatalog = []TraitCategory{
	{
		Key: TraitCategoryCommunicationStyle,
		Fields: []TraitField{
			{Key: "formality", Description: "How formal or casual the AI's language is. (0: Very Informal, 1: Very Formal)"},
			{Key: "verbosity", Description: "How concise or verbose the AI's responses are. (0: Very Concise, 1: Very Verbose)"},
			{Key: "directness", Description: "How direct or indirect the AI's communication is. (0: Very Indirect, 1: Very Direct)"},
			{Key: "tone", Description: "The overall emotional tone of the AI's communication. (0: Neutral/Objective, 1: Expressive/Emotional)"},
		},
	},
	{
		Key: TraitCategoryCognitiveBiases,
		Fields: []TraitField{
			{Key: "confirmationBias", Description: "Tendency to favor information confirming existing beliefs. (0: Open-minded, 1: Strongly biased)"},
			{Key: "anchoringBias", Description: "Reliance on initial information when making decisions. (0: Flexible, 1: Heavily anchored)"},
			{Key: "recencyBias", Description: "Emphasis on recent information over older data. (0: Balanced, 1: Focus on recent)"},
		},
	},
	{
		Key: TraitCategoryEmotionalRange,
		Fields: []TraitField{
			{Key: "empathy", Description: "Ability to understand and share the feelings of others. (0: Detached, 1: Highly Empathetic)"},
			{Key: "optimism", Description: "Tendency to be hopeful and confident about the future. (0: Pessimistic, 1: Optimistic)"},
			{Key: "patience", Description: "Capacity to accept delay or difficulty without becoming annoyed. (0: Impatient, 1: Very Patient)"},
		},
	},
	{
		Key: TraitCategoryCreativity,
		Fields: []TraitField{
			{Key: "originality", Description: "How unique or conventional the AI's ideas are. (0: Conventional, 1: Highly Original)"},
			{Key: "flexibility", Description: "Ability to adapt to new ideas or change approaches. (0: Rigid, 1: Highly Flexible)"},
		},
	},
	{
		Key: TraitCategoryRiskTolerance,
		Fields: []TraitField{
			{Key: "adventurousness", Description: "How willing the AI is to explore new or uncertain paths. (0: Risk-averse, 1: Highly Adventurous)"},
			{Key: "caution", Description: "How much the AI prioritizes safety and predictability. (0: Reckless, 1: Very Cautious)"},
		},
	},
	{
		Key: TraitCategoryLearningStyle,
		Fields: []TraitField{
			{Key: "adaptability", Description: "How quickly the AI adjusts to new data or environments. (0: Slow to adapt, 1: Highly adaptable)"},
			{Key: "curiosity", Description: "The AI's inclination to seek out new information or explore. (0: Indifferent, 1: Highly Curious)"},
		},
	},
}

func init() {
	for i := range TraitCatalog {
		TraitCatalog[i].Label = HumanizeKey(TraitCatalog[i].Key)
		for j := range TraitCatalog[i].Fields {
			TraitCatalog[i].Fields[j].Label = HumanizeKey(TraitCatalog[i].Fields[j].Key)
		}
	}
}

var camelBoundary = regexp.MustCompile(`([A-Z])`)

// HumanizeKey separa una clave camelCase: "communicationStyle" -> "Communication Style".
func HumanizeKey(key string) string {
	label := strings.TrimSpace(camelBoundary.ReplaceAllString(key, " $1"))
	if label == "" {
		return label
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

// CategoryKeys devuelve las claves de categoria en orden de catalogo.
func CategoryKeys() []string {
	keys := make([]string, 0, len(TraitCatalog))
	for _, c := range TraitCatalog {
		keys = append(keys, c.Key)
	}
	return keys
}

// LookupCategory busca una categoria del catalogo por clave.
func LookupCategory(key string) (TraitCategory, bool) {
	for _, c := range TraitCatalog {
		if c.Key == key {
			return c, true
		}
	}
	return TraitCategory{}, false
}

// DefaultTraits devuelve todos los sliders en 0.5.
func DefaultTraits() Traits {
	var t Traits
	for _, fields := range traitAccessors {
		for _, acc := range fields {
			*acc(&t) = DefaultTraitValue
		}
	}
	return t
}

func accessor(category, field string) (fieldAccessor, error) {
	fields, ok := traitAccessors[category]
	if !ok {
		return nil, fmt.Errorf("%w: category %q", ErrUnknownTrait, category)
	}
	acc, ok := fields[field]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownTrait, category, field)
	}
	return acc, nil
}

// Value lee un campo por nombre de categoria y campo.
func (t Traits) Value(category, field string) (float64, error) {
	acc, err := accessor(category, field)
	if err != nil {
		return 0, err
	}
	return *acc(&t), nil
}

// With devuelve una copia de t con el campo indicado actualizado; t no se modifica.
func (t Traits) With(category, field string, value float64) (Traits, error) {
	acc, err := accessor(category, field)
	if err != nil {
		return t, err
	}
	if math.IsNaN(value) || value < 0 || value > 1 {
		return t, fmt.Errorf("%w: %s.%s must be within [0,1], got %v", ErrValidation, category, field, value)
	}
	next := t
	*acc(&next) = value
	return next, nil
}

// Vector aplana los rasgos en orden de catalogo.
func (t Traits) Vector() []float64 {
	out := make([]float64, 0, TraitDimensions)
	for _, c := range TraitCatalog {
		for _, f := range c.Fields {
			out = append(out, *traitAccessors[c.Key][f.Key](&t))
		}
	}
	return out
}

// Distance es la distancia euclidiana entre dos perfiles de rasgos.
func Distance(a, b Traits) float64 {
	va, vb := a.Vector(), b.Vector()
	var sum float64
	for i := range va {
		d := va[i] - vb[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
