package catalog

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/wellcheck/wellcheck/pkg/scoring"
)

// Fallback reads from the primary source and falls back to the static
// snapshot when the primary fails or does not hold the code. Only failures
// are logged.
type Fallback struct {
	primary Source
	static  Source
	log     zerolog.Logger
}

func NewFallback(primary, static Source, log zerolog.Logger) *Fallback {
	return &Fallback{primary: primary, static: static, log: log}
}

func (f *Fallback) GetTestDefinition(ctx context.Context, code string) (*scoring.TestDefinition, error) {
	def, err := f.primary.GetTestDefinition(ctx, code)
	if err == nil {
		return def, nil
	}
	if !scoring.IsNotFound(err) {
		f.log.Warn().Err(err).Str("code", code).Msg("catalog fallback")
	}
	return f.static.GetTestDefinition(ctx, code)
}

// List returns the snapshot with the primary's definitions laid over it by
// code, so every code GetTestDefinition resolves is listed.
func (f *Fallback) List(ctx context.Context) ([]*scoring.TestDefinition, error) {
	base, err := f.static.List(ctx)
	if err != nil {
		return nil, err
	}
	defs, err := f.primary.List(ctx)
	if err != nil {
		f.log.Warn().Err(err).Msg("catalog fallback")
		return base, nil
	}

	byCode := make(map[string]*scoring.TestDefinition, len(base)+len(defs))
	for _, def := range base {
		byCode[def.Code] = def
	}
	for _, def := range defs {
		byCode[def.Code] = def
	}
	out := make([]*scoring.TestDefinition, 0, len(byCode))
	for _, def := range byCode {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// NewChain builds the read path over a database-backed primary: an
// optional Redis cache directly in front of primary, with the static
// snapshot behind both. Snapshot answers are never cached, so edits in the
// primary become visible as soon as it recovers. cached is nil without a
// client.
func NewChain(primary Source, client RedisClient, ttl time.Duration, static *Static, log zerolog.Logger) (source Source, cached *Cached) {
	if client != nil {
		cached = NewCached(primary, client, ttl, log)
		primary = cached
	}
	return NewFallback(primary, static, log), cached
}
