package assessment

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/wellcheck/wellcheck/pkg/scoring"
)

var ErrNotFound = errors.New("assessment not found")

// Filter narrows a record search. Zero fields match everything.
type Filter struct {
	UserID    string
	TestCode  string
	RiskLevel scoring.RiskLevel
}

// Matches reports whether rec passes f.
func (f Filter) Matches(rec *Record) bool {
	return (f.UserID == "" || rec.UserID == f.UserID) &&
		(f.TestCode == "" || rec.TestCode == f.TestCode) &&
		(f.RiskLevel == "" || rec.RiskLevel == f.RiskLevel)
}

type Repository interface {
	Create(ctx context.Context, r *Record) error
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)
	// Search returns matching records, newest first, and the total match count.
	Search(ctx context.Context, f Filter, limit, offset int) ([]*Record, int, error)
}

// NopRepository discards records. Results are still returned to the caller.
type NopRepository struct{}

func (NopRepository) Create(context.Context, *Record) error { return nil }

func (NopRepository) GetByID(context.Context, uuid.UUID) (*Record, error) {
	return nil, ErrNotFound
}

func (NopRepository) Search(context.Context, Filter, int, int) ([]*Record, int, error) {
	return nil, 0, nil
}
