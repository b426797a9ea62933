package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"e_store/internal/cache"
	"e_store/internal/config"
	"e_store/internal/dbx"
	"e_store/internal/search"
	"e_store/internal/storage"
)

// Connections holds every backend the server talks to. Only SQL is
// mandatory; the others stay nil when not configured.
type Connections struct {
	SQL     *sql.DB
	Dialect dbx.Dialect
	Redis   *redis.Client
	Elastic *elasticsearch.Client
	MinIO   *minio.Client
}

// OpenSQL opens and pings the relational store. SQLite gets a single
// connection since it allows one writer at a time.
func OpenSQL(ctx context.Context, dialect dbx.Dialect, dsn string) (*sql.DB, error) {
	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}

	if dialect == dbx.SQLite {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}
	return db, nil
}

func Connect(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Connections, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	db, err := OpenSQL(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	conns := &Connections{SQL: db, Dialect: cfg.DBDriver}
	log.Info("connected to database", zap.String("driver", string(cfg.DBDriver)))

	if cfg.RedisHost != "" {
		if conns.Redis, err = cache.NewRedisClient(ctx, cfg.RedisHost, cfg.RedisPassword); err != nil {
			conns.Close()
			return nil, err
		}
		log.Info("connected to redis", zap.String("addr", cfg.RedisHost))
	}

	if cfg.ElasticURL != "" {
		if conns.Elastic, err = connectElastic(ctx, cfg); err != nil {
			conns.Close()
			return nil, err
		}
		log.Info("connected to elasticsearch", zap.String("url", cfg.ElasticURL))
	}

	if cfg.MinIOEndpoint != "" {
		conns.MinIO, err = storage.NewMinIOClient(cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOUseSSL)
		if err != nil {
			conns.Close()
			return nil, err
		}
		log.Info("minio configured", zap.String("endpoint", cfg.MinIOEndpoint))
	}

	return conns, nil
}

func connectElastic(ctx context.Context, cfg *config.Config) (*elasticsearch.Client, error) {
	client, err := search.NewElasticClient(cfg.ElasticURL, cfg.ElasticUser, cfg.ElasticPassword)
	if err != nil {
		return nil, err
	}
	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch info: %s", res.Status())
	}
	return client, nil
}

// Ping checks the relational store and, when configured, Redis.
func (c *Connections) Ping(ctx context.Context) error {
	if err := c.SQL.PingContext(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if c.Redis != nil {
		if err := c.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

func (c *Connections) Close() error {
	var errs []error
	if c.Redis != nil {
		errs = append(errs, c.Redis.Close())
	}
	if c.SQL != nil {
		errs = append(errs, c.SQL.Close())
	}
	return errors.Join(errs...)
}
