package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"persona-forge/internal/domain"
	"persona-forge/internal/repository"
)

const (
	defaultStoreTimeout = 5 * time.Second
	maxFetchAttempts    = 3
)

// CollectionStatus expone el estado de carga de la coleccion.
type CollectionStatus struct {
	Loaded  bool   `json:"loaded"`
	Loading bool   `json:"is_loading"`
	Error   string `json:"error,omitempty"`
	Count   int    `json:"count"`
}

// CollectionStore es la copia en memoria de las personas guardadas.
// Las escrituras van primero al backend; la memoria solo cambia si el backend acepta.
type CollectionStore struct {
	logger  *zap.Logger
	repo    repository.PersonaRepository
	timeout time.Duration

	mu       sync.RWMutex
	personas []domain.Persona
	loaded   bool
	loading  bool
	lastErr  error
	writes   uint64

	writeMu sync.Mutex
	fetches singleflight.Group
}

func NewCollectionStore(logger *zap.Logger, repo repository.PersonaRepository, timeout time.Duration) *CollectionStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	return &CollectionStore{
		logger:  logger,
		repo:    repo,
		timeout: timeout,
	}
}

// Fetch recarga la coleccion desde el backend. Llamadas concurrentes comparten una sola lectura.
func (s *CollectionStore) Fetch(ctx context.Context) error {
	_, err, _ := s.fetches.Do("fetch", func() (interface{}, error) {
		return nil, s.fetch(ctx)
	})
	return err
}

// fetch descarta una lectura que se solapo con una escritura y vuelve a leer.
// Tras maxFetchAttempts solapes conserva la copia en memoria, que ya incluye esas escrituras.
func (s *CollectionStore) fetch(ctx context.Context) error {
	s.mu.Lock()
	s.loading = true
	s.lastErr = nil
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	for attempt := 1; ; attempt++ {
		s.mu.RLock()
		gen := s.writes
		s.mu.RUnlock()

		personas, err := s.repo.List(ctx)

		s.mu.Lock()
		if err != nil {
			fetchErr := fmt.Errorf("%w: fetch personas: %v", domain.ErrPersistence, err)
			s.loading = false
			s.lastErr = fetchErr
			s.mu.Unlock()
			s.logger.Error("fetch personas failed", zap.Error(err))
			return fetchErr
		}
		if s.writes == gen {
			s.personas = dedupeByID(personas)
			s.loaded = true
			s.loading = false
			s.mu.Unlock()
			return nil
		}
		if attempt >= maxFetchAttempts {
			s.loading = false
			s.mu.Unlock()
			s.logger.Warn("fetch kept overlapping writes, keeping in-memory collection", zap.Int("attempts", attempt))
			return nil
		}
		s.mu.Unlock()
	}
}

func (s *CollectionStore) ensureLoaded(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}
	return s.Fetch(ctx)
}

func (s *CollectionStore) Status() CollectionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status := CollectionStatus{
		Loaded:  s.loaded,
		Loading: s.loading,
		Count:   len(s.personas),
	}
	if s.lastErr != nil {
		status.Error = s.lastErr.Error()
	}
	return status
}

// List devuelve una copia de la coleccion en memoria.
func (s *CollectionStore) List() []domain.Persona {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Persona, len(s.personas))
	copy(out, s.personas)
	return out
}

func (s *CollectionStore) Get(id string) (domain.Persona, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return domain.Persona{}, false
	}
	return s.personas[idx], true
}

func (s *CollectionStore) Contains(id string) bool {
	_, ok := s.Get(id)
	return ok
}

// Add inserta una persona nueva; falla con ErrDuplicateID si el id ya existe.
func (s *CollectionStore) Add(ctx context.Context, persona domain.Persona) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}
	if s.Contains(persona.ID) {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateID, persona.ID)
	}
	if err := s.put(ctx, persona); err != nil {
		return err
	}

	s.mu.Lock()
	s.personas = append(s.personas, persona)
	s.writes++
	s.mu.Unlock()
	return nil
}

// Upsert inserta o reemplaza segun el id, bajo el mismo lock de escritura que Add y Update.
// updated indica si el id ya estaba en la coleccion.
func (s *CollectionStore) Upsert(ctx context.Context, persona domain.Persona) (updated bool, err error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return false, err
	}
	updated = s.Contains(persona.ID)
	if err := s.put(ctx, persona); err != nil {
		return updated, err
	}

	s.mu.Lock()
	if idx := s.indexLocked(persona.ID); idx >= 0 {
		s.personas[idx] = persona
	} else {
		s.personas = append(s.personas, persona)
	}
	s.writes++
	s.mu.Unlock()
	return updated, nil
}

// Update reemplaza la persona con el mismo id; falla con ErrNotFound si no existe.
func (s *CollectionStore) Update(ctx context.Context, persona domain.Persona) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}
	if !s.Contains(persona.ID) {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, persona.ID)
	}
	if err := s.put(ctx, persona); err != nil {
		return err
	}

	s.mu.Lock()
	if idx := s.indexLocked(persona.ID); idx >= 0 {
		s.personas[idx] = persona
	}
	s.writes++
	s.mu.Unlock()
	return nil
}

// Delete elimina la persona; falla con ErrNotFound si no existe.
func (s *CollectionStore) Delete(ctx context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}
	if !s.Contains(id) {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.repo.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.Error("delete persona failed", zap.Error(err), zap.String("persona_id", id))
		return fmt.Errorf("%w: delete persona: %v", domain.ErrPersistence, err)
	}

	s.mu.Lock()
	if idx := s.indexLocked(id); idx >= 0 {
		s.personas = append(s.personas[:idx], s.personas[idx+1:]...)
	}
	s.writes++
	s.mu.Unlock()
	return nil
}

// Similar devuelve las k personas guardadas mas cercanas en rasgos a la indicada.
func (s *CollectionStore) Similar(ctx context.Context, id string, k int) ([]domain.Persona, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	target, ok := s.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	if finder, ok := s.repo.(repository.NearestFinder); ok {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		found, err := finder.Nearest(ctx, target.Traits, id, k)
		if err == nil {
			return found, nil
		}
		s.logger.Warn("backend nearest search failed, using memory", zap.Error(err))
	}
	return repository.NearestInMemory(s.List(), target.Traits, id, k), nil
}

func (s *CollectionStore) put(ctx context.Context, persona domain.Persona) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.repo.Put(ctx, persona); err != nil {
		s.logger.Error("put persona failed", zap.Error(err), zap.String("persona_id", persona.ID))
		return fmt.Errorf("%w: save persona: %v", domain.ErrPersistence, err)
	}
	return nil
}

func (s *CollectionStore) indexLocked(id string) int {
	for i, p := range s.personas {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// dedupeByID conserva la ultima aparicion de cada id en el orden de la primera.
func dedupeByID(personas []domain.Persona) []domain.Persona {
	out := make([]domain.Persona, 0, len(personas))
	seen := make(map[string]int, len(personas))
	for _, p := range personas {
		if idx, ok := seen[p.ID]; ok {
			out[idx] = p
			continue
		}
		seen[p.ID] = len(out)
		out = append(out, p)
	}
	return out
}
