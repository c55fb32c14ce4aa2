package assessment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wellcheck/wellcheck/internal/platform/db"
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

const recordCols = `id, user_id, kind, test_code, score, max_score,
	severity_level, severity_label, risk_level, interpretation, result, created_at`

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.UserID, &rec.Kind, &rec.TestCode, &rec.Score, &rec.MaxScore,
		&rec.SeverityLevel, &rec.SeverityLabel, &rec.RiskLevel, &rec.Interpretation, &rec.Result, &rec.CreatedAt)
	return &rec, err
}

func (r *repoPG) Create(ctx context.Context, rec *Record) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO assessment_result (id, user_id, kind, test_code, score, max_score,
			severity_level, severity_label, risk_level, interpretation, result, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		rec.ID, rec.UserID, string(rec.Kind), rec.TestCode, rec.Score, rec.MaxScore,
		string(rec.SeverityLevel), rec.SeverityLabel, string(rec.RiskLevel), rec.Interpretation,
		rec.Result, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert assessment: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Record, error) {
	rec, err := scanRecord(r.conn(ctx).QueryRow(ctx, `SELECT `+recordCols+` FROM assessment_result WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get assessment %s: %w", id, err)
	}
	return rec, nil
}

// searchClause builds the WHERE clause for f. Placeholders start at $1.
func searchClause(f Filter) (string, []interface{}) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1
	if f.UserID != "" {
		where += fmt.Sprintf(` AND user_id = $%d`, idx)
		args = append(args, f.UserID)
		idx++
	}
	if f.TestCode != "" {
		where += fmt.Sprintf(` AND test_code = $%d`, idx)
		args = append(args, f.TestCode)
		idx++
	}
	if f.RiskLevel != "" {
		where += fmt.Sprintf(` AND risk_level = $%d`, idx)
		args = append(args, string(f.RiskLevel))
	}
	return where, args
}

func (r *repoPG) Search(ctx context.Context, f Filter, limit, offset int) ([]*Record, int, error) {
	where, args := searchClause(f)

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM assessment_result`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + recordCols + ` FROM assessment_result` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	items, err := collectRecords(rows)
	return items, total, err
}

func collectRecords(rows pgx.Rows) ([]*Record, error) {
	defer rows.Close()
	var items []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	return items, rows.Err()
}
