package service

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"persona-forge/internal/domain"
	"persona-forge/internal/repository"
)

// DraftPersister escribe el borrador en el slot de recuperacion.
// Con debounce > 0 agrupa rafagas de cambios en una sola escritura.
type DraftPersister struct {
	logger   *zap.Logger
	slot     repository.DraftSlot
	source   func() domain.Persona
	debounce time.Duration
	timeout  time.Duration

	mu       sync.Mutex
	timer    *time.Timer
	lastJSON []byte
	writeMu  sync.Mutex
}

func NewDraftPersister(logger *zap.Logger, slot repository.DraftSlot, source func() domain.Persona, debounce time.Duration) *DraftPersister {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DraftPersister{
		logger:   logger,
		slot:     slot,
		source:   source,
		debounce: debounce,
		timeout:  2 * time.Second,
	}
}

// Attach suscribe el persister a los cambios del borrador.
func (p *DraftPersister) Attach(draft *DraftStore) {
	draft.OnChange(func(domain.Persona) {
		p.Schedule()
	})
}

// Schedule programa una escritura del valor actual del borrador.
func (p *DraftPersister) Schedule() {
	if p.slot == nil {
		return
	}
	if p.debounce <= 0 {
		_ = p.Flush(context.Background())
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(p.debounce, func() {
		_ = p.Flush(context.Background())
	})
}

// Flush escribe ya el valor actual, cancelando la escritura pendiente.
// No escribe si el JSON es identico al ultimo persistido.
func (p *DraftPersister) Flush(ctx context.Context) error {
	if p.slot == nil {
		return nil
	}
	p.mu.Lock()
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.mu.Unlock()

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	persona := p.source()
	data, err := json.Marshal(persona)
	if err != nil {
		return err
	}
	if bytes.Equal(data, p.lastJSON) {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.slot.Save(ctx, persona); err != nil {
		p.logger.Warn("persist draft failed", zap.Error(err), zap.String("persona_id", persona.ID))
		return err
	}
	p.lastJSON = data
	return nil
}

// Rehydrate carga el borrador guardado en el slot, si existe.
func (p *DraftPersister) Rehydrate(ctx context.Context, draft *DraftStore) (bool, error) {
	if p.slot == nil {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	persona, ok, err := p.slot.Load(ctx)
	if err != nil || !ok {
		return false, err
	}
	if err := persona.Validate(); err != nil {
		p.logger.Warn("discarding invalid persisted draft", zap.Error(err))
		return false, nil
	}
	draft.Restore(persona)
	if data, err := json.Marshal(persona); err == nil {
		p.writeMu.Lock()
		p.lastJSON = data
		p.writeMu.Unlock()
	}
	return true, nil
}
