package service

import (
	"fmt"
	"sync"
	"time"

	"persona-forge/internal/domain"
)

// DraftSnapshot es la vista de lectura del borrador en curso.
type DraftSnapshot struct {
	Persona     domain.Persona `json:"persona"`
	IsDirty     bool           `json:"is_dirty"`
	LastSavedAt *time.Time     `json:"last_saved_at,omitempty"`
	Revision    uint64         `json:"revision"`
}

// DraftListener recibe cada nuevo valor del borrador.
type DraftListener func(persona domain.Persona)

// DraftStore mantiene la unica persona en edicion.
// Cada mutacion reemplaza el valor completo; nunca se modifica una Persona ya entregada.
type DraftStore struct {
	mu          sync.Mutex
	persona     domain.Persona
	dirty       bool
	lastSavedAt *time.Time
	revision    uint64
	now         func() time.Time
	listeners   []DraftListener
}

// NewDraftStore crea el store con una persona por defecto. now puede ser nil.
func NewDraftStore(now func() time.Time) *DraftStore {
	if now == nil {
		now = time.Now
	}
	return &DraftStore{
		persona: domain.NewPersona(now()),
		now:     now,
	}
}

// OnChange registra un listener; se invoca fuera del lock, en el orden de las mutaciones.
func (s *DraftStore) OnChange(listener DraftListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, listener)
}

func (s *DraftStore) Snapshot() DraftSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *DraftStore) Current() domain.Persona {
	return s.Snapshot().Persona
}

func (s *DraftStore) SetTraitValue(category, field string, value float64) (domain.Persona, error) {
	return s.mutate(func(p domain.Persona) (domain.Persona, error) {
		traits, err := p.Traits.With(category, field, value)
		if err != nil {
			return p, err
		}
		p.Traits = traits
		return p, nil
	})
}

func (s *DraftStore) SetName(name string) (domain.Persona, error) {
	return s.mutate(func(p domain.Persona) (domain.Persona, error) {
		p.Name = name
		return p, nil
	})
}

func (s *DraftStore) SetDescription(description string) (domain.Persona, error) {
	return s.mutate(func(p domain.Persona) (domain.Persona, error) {
		p.Description = description
		return p, nil
	})
}

// Load reemplaza el borrador con una persona existente e incrementa su version.
// Cargar cuenta como punto de guardado: limpia dirty y registra la marca de guardado.
func (s *DraftStore) Load(persona domain.Persona) domain.Persona {
	s.mu.Lock()
	now := s.now().UTC()
	next := persona
	createdAt := persona.Metadata.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	next.Metadata = domain.Metadata{
		CreatedAt:    createdAt,
		LastModified: now,
		Version:      persona.Metadata.Version + 1,
	}
	s.persona = next
	s.dirty = false
	s.lastSavedAt = &now
	s.revision++
	listeners := s.listeners
	s.mu.Unlock()

	notify(listeners, next)
	return next
}

// Restore recupera un borrador persistido sin tocar su version.
// Queda marcado como dirty porque puede contener cambios sin guardar.
func (s *DraftStore) Restore(persona domain.Persona) domain.Persona {
	s.mu.Lock()
	s.persona = persona
	s.dirty = true
	s.lastSavedAt = nil
	s.revision++
	s.mu.Unlock()
	return persona
}

// Reset descarta el borrador y crea uno nuevo con id nuevo.
func (s *DraftStore) Reset() domain.Persona {
	s.mu.Lock()
	next := domain.NewPersona(s.now())
	s.persona = next
	s.dirty = false
	s.lastSavedAt = nil
	s.revision++
	listeners := s.listeners
	s.mu.Unlock()

	notify(listeners, next)
	return next
}

// PendingSave devuelve el borrador con lastModified sellado al instante actual,
// junto con su revision. No modifica el store.
func (s *DraftStore) PendingSave() (domain.Persona, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.persona
	p.Metadata.LastModified = s.stampLocked()
	return p, s.revision
}

// MarkSaved limpia dirty, sella lastModified y registra la marca de guardado.
// Si el borrador cambio desde la revision guardada no hace nada y devuelve false.
func (s *DraftStore) MarkSaved(revision uint64) (DraftSnapshot, bool) {
	return s.MarkSavedAt(revision, s.now())
}

// MarkSavedAt es MarkSaved con el sello elegido por el llamador, para que el
// borrador quede igual a la copia ya guardada con PendingSave.
func (s *DraftStore) MarkSavedAt(revision uint64, at time.Time) (DraftSnapshot, bool) {
	s.mu.Lock()
	if revision != s.revision {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, false
	}
	stamp := at.UTC()
	if last := s.persona.Metadata.LastModified; stamp.Before(last) {
		stamp = last
	}
	next := s.persona
	next.Metadata.LastModified = stamp
	s.persona = next
	s.dirty = false
	s.lastSavedAt = &stamp
	s.revision++
	snap := s.snapshotLocked()
	listeners := s.listeners
	s.mu.Unlock()

	notify(listeners, next)
	return snap, true
}

func (s *DraftStore) mutate(fn func(p domain.Persona) (domain.Persona, error)) (domain.Persona, error) {
	s.mu.Lock()
	next, err := fn(s.persona)
	if err != nil {
		current := s.persona
		s.mu.Unlock()
		return current, fmt.Errorf("update draft: %w", err)
	}
	next.Metadata.LastModified = s.stampLocked()
	s.persona = next
	s.dirty = true
	s.revision++
	listeners := s.listeners
	s.mu.Unlock()

	notify(listeners, next)
	return next, nil
}

// stampLocked devuelve la hora actual sin retroceder respecto a lastModified.
func (s *DraftStore) stampLocked() time.Time {
	now := s.now().UTC()
	if last := s.persona.Metadata.LastModified; now.Before(last) {
		return last
	}
	return now
}

func (s *DraftStore) snapshotLocked() DraftSnapshot {
	snap := DraftSnapshot{
		Persona:  s.persona,
		IsDirty:  s.dirty,
		Revision: s.revision,
	}
	if s.lastSavedAt != nil {
		ts := *s.lastSavedAt
		snap.LastSavedAt = &ts
	}
	return snap
}

func notify(listeners []DraftListener, persona domain.Persona) {
	for _, l := range listeners {
		l(persona)
	}
}
