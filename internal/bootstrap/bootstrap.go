// Package bootstrap arma los backends de almacenamiento a partir de la configuracion.
// Lo comparten cmd/api y cmd/personactl.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"persona-forge/internal/config"
	"persona-forge/internal/db"
	"persona-forge/internal/repository"
)

// OpenPersonaRepository abre el backend de la coleccion segun STORE_BACKEND.
// closeFn libera conexiones y nunca es nil.
func OpenPersonaRepository(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.PersonaRepository, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			return nil, func() {}, fmt.Errorf("db connect: %w", err)
		}
		migrateCtx, cancel := context.WithTimeout(ctx, cfg.StoreTimeout)
		defer cancel()
		if err := db.Ping(migrateCtx, pool); err != nil {
			pool.Close()
			return nil, func() {}, fmt.Errorf("db ping: %w", err)
		}
		if err := db.Migrate(migrateCtx, pool); err != nil {
			pool.Close()
			return nil, func() {}, err
		}
		logger.Info("using postgres persona store")
		return repository.NewPgPersonaRepository(pool), pool.Close, nil

	case config.BackendSQLite:
		repo, err := repository.OpenSQLitePersonaRepository(cfg.SQLitePath)
		if err != nil {
			return nil, func() {}, fmt.Errorf("open sqlite: %w", err)
		}
		logger.Info("using sqlite persona store", zap.String("path", cfg.SQLitePath))
		return repo, func() {
			if err := repo.Close(); err != nil {
				logger.Warn("close sqlite", zap.Error(err))
			}
		}, nil

	case config.BackendMemory:
		logger.Warn("using in-memory persona store, data is lost on exit")
		return repository.NewMemoryPersonaRepository(), func() {}, nil
	}
	return nil, func() {}, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

// OpenRedis conecta a REDIS_ADDR. Devuelve nil si no esta configurado o no responde.
func OpenRedis(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*redis.Client, func()) {
	if cfg.RedisAddr == "" {
		return nil, func() {}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctxPing).Err(); err != nil {
		logger.Warn("redis ping failed", zap.Error(err))
		_ = client.Close()
		return nil, func() {}
	}
	return client, func() { _ = client.Close() }
}

// DraftSlotFor usa Redis si hay cliente; si no, un slot en memoria.
func DraftSlotFor(client *redis.Client, cfg *config.Config, logger *zap.Logger) repository.DraftSlot {
	if client == nil {
		logger.Info("draft kept in memory only")
		return repository.NewMemoryDraftSlot()
	}
	return repository.NewRedisDraftSlot(client, cfg.DraftKey)
}
