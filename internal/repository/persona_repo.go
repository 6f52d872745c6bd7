package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"persona-forge/internal/domain"
)

// PersonaRepository es el almacen durable de la coleccion de personas guardadas.
type PersonaRepository interface {
	List(ctx context.Context) ([]domain.Persona, error)
	Put(ctx context.Context, persona domain.Persona) error
	Delete(ctx context.Context, id string) error
}

// NearestFinder lo implementan los backends capaces de buscar vecinos por rasgos.
type NearestFinder interface {
	Nearest(ctx context.Context, traits domain.Traits, excludeID string, k int) ([]domain.Persona, error)
}

type PgPersonaRepository struct {
	pool *pgxpool.Pool
}

func NewPgPersonaRepository(pool *pgxpool.Pool) *PgPersonaRepository {
	return &PgPersonaRepository{pool: pool}
}

const personaColumns = `id, name, description, traits, created_at, last_modified, version`

func (r *PgPersonaRepository) List(ctx context.Context) ([]domain.Persona, error) {
	query := `
		SELECT ` + personaColumns + `
		FROM personas
		ORDER BY created_at, id
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPersonas(rows)
}

func (r *PgPersonaRepository) Put(ctx context.Context, persona domain.Persona) error {
	const query = `
		INSERT INTO personas (id, name, description, traits, traits_vec, created_at, last_modified, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id)
		DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			traits = EXCLUDED.traits,
			traits_vec = EXCLUDED.traits_vec,
			last_modified = EXCLUDED.last_modified,
			version = EXCLUDED.version
	`
	traits, err := json.Marshal(persona.Traits)
	if err != nil {
		return fmt.Errorf("marshal traits: %w", err)
	}

	_, err = r.pool.Exec(ctx, query,
		persona.ID,
		persona.Name,
		persona.Description,
		traits,
		traitsVector(persona.Traits),
		persona.Metadata.CreatedAt,
		persona.Metadata.LastModified,
		persona.Metadata.Version,
	)
	return err
}

func (r *PgPersonaRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM personas WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return nil
}

// Nearest ordena por distancia euclidiana (<->) sobre la columna vector.
func (r *PgPersonaRepository) Nearest(ctx context.Context, traits domain.Traits, excludeID string, k int) ([]domain.Persona, error) {
	if k <= 0 {
		k = 3
	}
	query := `
		SELECT ` + personaColumns + `
		FROM personas
		WHERE id <> $1
		ORDER BY traits_vec <-> $2
		LIMIT $3
	`
	rows, err := r.pool.Query(ctx, query, excludeID, traitsVector(traits), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPersonas(rows)
}

func traitsVector(t domain.Traits) pgvector.Vector {
	values := t.Vector()
	vec := make([]float32, len(values))
	for i, v := range values {
		vec[i] = float32(v)
	}
	return pgvector.NewVector(vec)
}

func scanPersonas(rows pgxRows) ([]domain.Persona, error) {
	var personas []domain.Persona
	for rows.Next() {
		var p domain.Persona
		var traits []byte
		if err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.Description,
			&traits,
			&p.Metadata.CreatedAt,
			&p.Metadata.LastModified,
			&p.Metadata.Version,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(traits, &p.Traits); err != nil {
			return nil, fmt.Errorf("decode traits for %s: %w", p.ID, err)
		}
		p.Metadata.CreatedAt = p.Metadata.CreatedAt.UTC()
		p.Metadata.LastModified = p.Metadata.LastModified.UTC()
		personas = append(personas, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return personas, nil
}

// pgxRows es la parte minima de pgx.Rows que necesita el escaneo.
type pgxRows interface {
	Next() bool
	Scan(...interface{}) error
	Err() error
	Close()
}
