package service

import (
	"fmt"
	"sync"

	"persona-forge/internal/domain"
)

// ProgressStep es un paso del stepper de categorias.
type ProgressStep struct {
	Key       string `json:"key"`
	Label     string `json:"label"`
	Completed bool   `json:"completed"`
	Current   bool   `json:"current"`
}

type Progress struct {
	Steps        []ProgressStep `json:"steps"`
	CurrentIndex int            `json:"current_index"`
}

// ProgressTracker recuerda la seccion activa y las secciones completadas.
type ProgressTracker struct {
	mu        sync.Mutex
	current   string
	completed map[string]bool
}

func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{
		current:   domain.TraitCategoryCommunicationStyle,
		completed: make(map[string]bool),
	}
}

// SetCurrentSection activa una seccion y la marca completa si todos sus rasgos tienen valor.
func (t *ProgressTracker) SetCurrentSection(section string, traits domain.Traits) (Progress, error) {
	category, ok := domain.LookupCategory(section)
	if !ok {
		return Progress{}, fmt.Errorf("%w: category %q", domain.ErrUnknownTrait, section)
	}
	allPresent := true
	for _, f := range category.Fields {
		if _, err := traits.Value(category.Key, f.Key); err != nil {
			allPresent = false
			break
		}
	}

	t.mu.Lock()
	t.current = category.Key
	if allPresent {
		t.completed[category.Key] = true
	}
	t.mu.Unlock()
	return t.Snapshot(), nil
}

func (t *ProgressTracker) MarkSectionComplete(section string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.completed[section] = true
}

func (t *ProgressTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = domain.TraitCategoryCommunicationStyle
	t.completed = make(map[string]bool)
}

func (t *ProgressTracker) Snapshot() Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := Progress{Steps: make([]ProgressStep, 0, len(domain.TraitCatalog))}
	for i, c := range domain.TraitCatalog {
		current := c.Key == t.current
		if current {
			out.CurrentIndex = i
		}
		out.Steps = append(out.Steps, ProgressStep{
			Key:       c.Key,
			Label:     c.Label,
			Completed: t.completed[c.Key],
			Current:   current,
		})
	}
	return out
}
