// Package healthHandler probes the backing stores. The same checker serves
// the /healthz route and the background connectivity janitor.
package healthHandler

import (
	"context"
	"net/http"
	"time"

	"patrimonio-service/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const probeTimeout = 3 * time.Second

type Checker struct {
	pool   *pgxpool.Pool
	redis  *redis.Client
	minio  *minio.Client
	bucket string
}

func NewChecker(pool *pgxpool.Pool, rdb *redis.Client, mc *minio.Client, bucket string) *Checker {
	return &Checker{pool: pool, redis: rdb, minio: mc, bucket: bucket}
}

// Check probes every store and returns the first failure.
func (c *Checker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if err := c.pool.Ping(ctx); err != nil {
		return err
	}
	if err := c.redis.Ping(ctx).Err(); err != nil {
		return err
	}
	if _, err := c.minio.BucketExists(ctx, c.bucket); err != nil {
		return err
	}
	return nil
}

// Handler answers /healthz.
func (c *Checker) Handler(w http.ResponseWriter, r *http.Request) {
	if err := c.Check(r.Context()); err != nil {
		http.Error(w, "unhealthy: "+err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// Watch pings the stores on an interval until the context is cancelled,
// logging degradations so an outage shows up before a user submission fails.
func (c *Checker) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Check(ctx); err != nil {
				logger.GetLogger(ctx).Warn("store connectivity degraded", zap.Error(err))
			}
		}
	}
}
