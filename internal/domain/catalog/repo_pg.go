package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wellcheck/wellcheck/internal/platform/db"
	"github.com/wellcheck/wellcheck/pkg/scoring"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func scanDefinition(row pgx.Row) (*scoring.TestDefinition, error) {
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		return nil, err
	}
	var def scoring.TestDefinition
	if err := json.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("decode definition: %w", err)
	}
	return &def, nil
}

func (r *repoPG) Get(ctx context.Context, code string) (*scoring.TestDefinition, error) {
	def, err := scanDefinition(r.conn(ctx).QueryRow(ctx, `SELECT definition FROM test_definition WHERE code = $1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &scoring.NotFoundError{Code: code}
	}
	if err != nil {
		return nil, fmt.Errorf("get definition %s: %w", code, err)
	}
	return def, nil
}

func (r *repoPG) List(ctx context.Context) ([]*scoring.TestDefinition, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT definition FROM test_definition ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list definitions: %w", err)
	}
	defer rows.Close()
	var items []*scoring.TestDefinition
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, def)
	}
	return items, rows.Err()
}

func (r *repoPG) Upsert(ctx context.Context, def *scoring.TestDefinition) error {
	raw, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("encode definition: %w", err)
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO test_definition (code, name, category, version, definition, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name, category = EXCLUDED.category,
			version = EXCLUDED.version, definition = EXCLUDED.definition, updated_at = NOW()`,
		def.Code, def.Name, string(def.Category), def.Version, raw)
	return err
}
