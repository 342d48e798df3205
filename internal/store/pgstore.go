package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pitabwire/tabula/model"
)

// Schema creates the table PgRowStore reads and writes.
const Schema = `
CREATE TABLE IF NOT EXISTS tabula_rows (
	collection text    NOT NULL,
	id         text    NOT NULL,
	fields     jsonb   NOT NULL DEFAULT '{}'::jsonb,
	position   integer NOT NULL DEFAULT 0,
	PRIMARY KEY (collection, id)
)`

// PgRowStore is a PostgreSQL-backed RowStore using pgx/v5. Every collection
// lives in the tabula_rows table, ordered by position.
type PgRowStore struct {
	pool *pgxpool.Pool
}

// NewPgRowStore creates a store over pool.
func NewPgRowStore(pool *pgxpool.Pool) *PgRowStore {
	return &PgRowStore{pool: pool}
}

// Migrate creates the rows table when it does not exist.
func (s *PgRowStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create tabula_rows: %w", err)
	}
	return nil
}

// Seed inserts rows that are not stored yet, keeping existing ones.
func (s *PgRowStore) Seed(ctx context.Context, collection string, rows []model.Row) error {
	batch := &pgx.Batch{}
	for i, r := range rows {
		fields, err := json.Marshal(r.Fields)
		if err != nil {
			return fmt.Errorf("marshal row %s: %w", r.ID, err)
		}
		batch.Queue(`
			INSERT INTO tabula_rows (collection, id, fields, position)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (collection, id) DO NOTHING`,
			collection, r.ID, fields, i,
		)
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return model.NewBackendUnavailableError(fmt.Errorf("seed %s: %w", collection, err))
	}
	return nil
}

// List returns the rows of collection ordered by position. Numbers are
// decoded as json.Number so integer fields keep their exact value.
func (s *PgRowStore) List(ctx context.Context, collection string) ([]model.Row, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, fields
		FROM tabula_rows
		WHERE collection = $1
		ORDER BY position, id`,
		collection,
	)
	if err != nil {
		return nil, model.NewBackendUnavailableError(fmt.Errorf("query %s rows: %w", collection, err))
	}
	defer rows.Close()

	var out []model.Row
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		fields, err := decodeFields(raw)
		if err != nil {
			return nil, fmt.Errorf("decode row %s: %w", id, err)
		}
		out = append(out, model.Row{ID: id, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, model.NewBackendUnavailableError(fmt.Errorf("iterate %s rows: %w", collection, err))
	}
	return out, nil
}

// Delete removes the rows with the given ids.
func (s *PgRowStore) Delete(ctx context.Context, collection string, ids []string) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM tabula_rows
		WHERE collection = $1 AND id = ANY($2)`,
		collection, ids,
	)
	if err != nil {
		return 0, model.NewBackendUnavailableError(fmt.Errorf("delete %s rows: %w", collection, err))
	}
	return int(tag.RowsAffected()), nil
}

// Update merges set into the stored fields of the rows with the given ids.
func (s *PgRowStore) Update(ctx context.Context, collection string, ids []string, set map[string]any) (int, error) {
	patch, err := json.Marshal(set)
	if err != nil {
		return 0, fmt.Errorf("marshal update: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE tabula_rows
		SET fields = fields || $3::jsonb
		WHERE collection = $1 AND id = ANY($2)`,
		collection, ids, patch,
	)
	if err != nil {
		return 0, model.NewBackendUnavailableError(fmt.Errorf("update %s rows: %w", collection, err))
	}
	return int(tag.RowsAffected()), nil
}

// HealthCheck pings the pool.
func (s *PgRowStore) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func decodeFields(raw []byte) (map[string]any, error) {
	fields := make(map[string]any)
	if len(raw) == 0 {
		return fields, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	return fields, nil
}
