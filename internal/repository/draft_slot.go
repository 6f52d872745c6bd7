package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"persona-forge/internal/domain"
)

// DefaultDraftKey es la clave conocida del borrador en curso.
const DefaultDraftKey = "personaForge_draft_persona"

// DraftSlot guarda una unica copia del borrador, sobrescrita en cada escritura.
type DraftSlot interface {
	Save(ctx context.Context, persona domain.Persona) error
	Load(ctx context.Context) (domain.Persona, bool, error)
}

// MemoryDraftSlot es el slot en memoria para desarrollo y tests.
type MemoryDraftSlot struct {
	mu    sync.Mutex
	data  []byte
	saves int
}

func NewMemoryDraftSlot() *MemoryDraftSlot {
	return &MemoryDraftSlot{}
}

func (s *MemoryDraftSlot) Save(_ context.Context, persona domain.Persona) error {
	data, err := json.Marshal(persona)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
	s.saves++
	return nil
}

func (s *MemoryDraftSlot) Load(_ context.Context) (domain.Persona, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return domain.Persona{}, false, nil
	}
	var p domain.Persona
	if err := json.Unmarshal(s.data, &p); err != nil {
		return domain.Persona{}, false, err
	}
	return p, true, nil
}

// Saves devuelve cuantas escrituras recibio el slot.
func (s *MemoryDraftSlot) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// redisKV es lo minimo que usamos de *redis.Client.
type redisKV interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

type redisDraftSlot struct {
	client  redisKV
	key     string
	timeout time.Duration
}

func NewRedisDraftSlot(client *redis.Client, key string) DraftSlot {
	if client == nil {
		return nil
	}
	return newRedisDraftSlot(client, key)
}

func newRedisDraftSlot(client redisKV, key string) *redisDraftSlot {
	key = strings.TrimSpace(key)
	if key == "" {
		key = DefaultDraftKey
	}
	return &redisDraftSlot{
		client:  client,
		key:     key,
		timeout: 500 * time.Millisecond,
	}
}

func (s *redisDraftSlot) Save(ctx context.Context, persona domain.Persona) error {
	data, err := json.Marshal(persona)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.client.Set(ctx, s.key, data, 0).Err()
}

func (s *redisDraftSlot) Load(ctx context.Context) (domain.Persona, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Persona{}, false, nil
		}
		return domain.Persona{}, false, err
	}
	var p domain.Persona
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.Persona{}, false, fmt.Errorf("decode draft: %w", err)
	}
	return p, true, nil
}
