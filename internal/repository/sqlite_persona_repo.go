package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"persona-forge/internal/domain"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS personas (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	document TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS personas_created_at_idx ON personas (created_at, id);
`

// SQLitePersonaRepository persiste la coleccion en un archivo local.
// Cada fila guarda el documento JSON completo de la persona.
type SQLitePersonaRepository struct {
	sqlDB *sql.DB
}

// OpenSQLitePersonaRepository abre (o crea) la base y aplica el esquema.
func OpenSQLitePersonaRepository(path string) (*SQLitePersonaRepository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(sqliteSchema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return &SQLitePersonaRepository{sqlDB: sqlDB}, nil
}

func (r *SQLitePersonaRepository) Close() error {
	if r == nil || r.sqlDB == nil {
		return nil
	}
	return r.sqlDB.Close()
}

func (r *SQLitePersonaRepository) List(ctx context.Context) ([]domain.Persona, error) {
	rows, err := r.sqlDB.QueryContext(ctx, `SELECT id, document FROM personas ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list personas: %w", err)
	}
	defer rows.Close()

	var personas []domain.Persona
	for rows.Next() {
		var id, document string
		if err := rows.Scan(&id, &document); err != nil {
			return nil, err
		}
		var p domain.Persona
		if err := json.Unmarshal([]byte(document), &p); err != nil {
			return nil, fmt.Errorf("decode persona %s: %w", id, err)
		}
		personas = append(personas, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return personas, nil
}

func (r *SQLitePersonaRepository) Put(ctx context.Context, persona domain.Persona) error {
	document, err := json.Marshal(persona)
	if err != nil {
		return fmt.Errorf("marshal persona: %w", err)
	}
	_, err = r.sqlDB.ExecContext(ctx,
		`INSERT INTO personas (id, name, created_at, document)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   document = excluded.document`,
		persona.ID,
		persona.Name,
		persona.Metadata.CreatedAt.UTC().UnixMilli(),
		string(document),
	)
	if err != nil {
		return fmt.Errorf("put persona: %w", err)
	}
	return nil
}

func (r *SQLitePersonaRepository) Delete(ctx context.Context, id string) error {
	res, err := r.sqlDB.ExecContext(ctx, `DELETE FROM personas WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete persona: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return nil
}

func (r *SQLitePersonaRepository) Nearest(ctx context.Context, traits domain.Traits, excludeID string, k int) ([]domain.Persona, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	return NearestInMemory(all, traits, excludeID, k), nil
}
