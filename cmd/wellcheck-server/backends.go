package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wellcheck/wellcheck/internal/config"
	"github.com/wellcheck/wellcheck/internal/domain/assessment"
	"github.com/wellcheck/wellcheck/internal/domain/catalog"
	"github.com/wellcheck/wellcheck/internal/platform/db"
)

// backends holds the optional connections the configuration asks for.
// Any of them may be nil.
type backends struct {
	pool  *pgxpool.Pool
	redis *redis.Client
	mongo *mongo.Client
}

func openBackends(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*backends, error) {
	b := &backends{}
	if cfg.NeedsPostgres() {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, err
		}
		b.pool = pool
		logger.Info().Msg("connected to database")
	}
	if cfg.RedisURL != "" && cfg.CatalogSource == config.CatalogPostgres {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			b.Close(ctx)
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		b.redis = redis.NewClient(opts)
		if err := b.redis.Ping(ctx).Err(); err != nil {
			// The cache degrades to the database on errors; start anyway.
			logger.Warn().Err(err).Msg("redis unreachable, catalog cache will miss")
		} else {
			logger.Info().Msg("connected to redis")
		}
	}
	if cfg.ResultsBackend == config.ResultsMongo {
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURL))
		if err != nil {
			b.Close(ctx)
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		if err := client.Ping(ctx, nil); err != nil {
			_ = client.Disconnect(ctx)
			b.Close(ctx)
			return nil, fmt.Errorf("ping mongo: %w", err)
		}
		b.mongo = client
		logger.Info().Str("database", cfg.MongoDatabase).Msg("connected to mongo")
	}
	return b, nil
}

func (b *backends) Close(ctx context.Context) {
	if b.mongo != nil {
		_ = b.mongo.Disconnect(ctx)
	}
	if b.redis != nil {
		_ = b.redis.Close()
	}
	if b.pool != nil {
		b.pool.Close()
	}
}

// Checks returns a health check per open backend.
func (b *backends) Checks() map[string]db.Check {
	checks := make(map[string]db.Check)
	if b.pool != nil {
		checks["postgres"] = db.PoolCheck(b.pool)
	}
	if b.redis != nil {
		checks["redis"] = func(ctx context.Context) error { return b.redis.Ping(ctx).Err() }
	}
	if b.mongo != nil {
		checks["mongo"] = func(ctx context.Context) error { return b.mongo.Ping(ctx, nil) }
	}
	return checks
}

// buildCatalog assembles the catalog the engine reads from. With a postgres
// source the chain is Postgres behind an optional Redis cache, with the
// bundled snapshot as fallback; otherwise the snapshot alone, read-only.
func buildCatalog(cfg *config.Config, b *backends, logger zerolog.Logger) (*catalog.Service, error) {
	static, err := catalog.NewStatic()
	if err != nil {
		return nil, err
	}
	if cfg.CatalogSource != config.CatalogPostgres || b.pool == nil {
		logger.Info().Str("version", static.Version()).Msg("using bundled catalog snapshot")
		return catalog.NewService(static, nil, static, logger), nil
	}

	repo := catalog.NewRepoPG(b.pool)
	var client catalog.RedisClient
	if b.redis != nil {
		client = b.redis
	}
	source, cached := catalog.NewChain(catalog.RepoSource{Repo: repo}, client, cfg.CatalogCacheTTL, static, logger)
	svc := catalog.NewService(source, repo, static, logger)
	if cached != nil {
		svc.SetInvalidator(cached)
	}
	pool := b.pool
	svc.SetTransactor(func(ctx context.Context, fn func(ctx context.Context) error) error {
		return db.InTx(ctx, pool, fn)
	})
	return svc, nil
}

func buildResults(ctx context.Context, cfg *config.Config, b *backends) (assessment.Repository, error) {
	switch cfg.ResultsBackend {
	case config.ResultsPostgres:
		return assessment.NewRepoPG(b.pool), nil
	case config.ResultsMongo:
		database := b.mongo.Database(cfg.MongoDatabase)
		if err := assessment.EnsureIndexes(ctx, database); err != nil {
			return nil, err
		}
		return assessment.NewRepoMongo(database), nil
	default:
		return assessment.NopRepository{}, nil
	}
}
