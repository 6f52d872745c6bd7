package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"persona-forge/internal/domain"
)

// MemoryPersonaRepository guarda la coleccion en memoria; se pierde al reiniciar.
type MemoryPersonaRepository struct {
	mu    sync.RWMutex
	order []string
	items map[string]domain.Persona
}

func NewMemoryPersonaRepository() *MemoryPersonaRepository {
	return &MemoryPersonaRepository{
		items: make(map[string]domain.Persona),
	}
}

func (r *MemoryPersonaRepository) List(ctx context.Context) ([]domain.Persona, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Persona, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.items[id])
	}
	return out, nil
}

func (r *MemoryPersonaRepository) Put(ctx context.Context, persona domain.Persona) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[persona.ID]; !ok {
		r.order = append(r.order, persona.ID)
	}
	r.items[persona.ID] = persona
	return nil
}

func (r *MemoryPersonaRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	delete(r.items, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *MemoryPersonaRepository) Nearest(ctx context.Context, traits domain.Traits, excludeID string, k int) ([]domain.Persona, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	return NearestInMemory(all, traits, excludeID, k), nil
}

// NearestInMemory ordena candidatos por distancia de rasgos; empates por id.
func NearestInMemory(candidates []domain.Persona, traits domain.Traits, excludeID string, k int) []domain.Persona {
	if k <= 0 {
		k = 3
	}
	type scored struct {
		persona  domain.Persona
		distance float64
	}
	ranked := make([]scored, 0, len(candidates))
	for _, p := range candidates {
		if p.ID == excludeID {
			continue
		}
		ranked = append(ranked, scored{persona: p, distance: domain.Distance(traits, p.Traits)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].distance == ranked[j].distance {
			return ranked[i].persona.ID < ranked[j].persona.ID
		}
		return ranked[i].distance < ranked[j].distance
	})
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	out := make([]domain.Persona, 0, len(ranked))
	for _, s := range ranked {
		out = append(out, s.persona)
	}
	return out
}
