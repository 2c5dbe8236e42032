package grpc

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	cacheKeyVersion CacheKeyType = "grpc:version"

	versionTimeout = 2 * time.Second
)

// CacheVersions keeps one generation stamp per department. Every cached
// analytics key embeds the stamp, so replacing it after a write makes all the
// department's earlier entries unreachable at once.
type CacheVersions struct {
	cache  Cacher
	logger *zap.Logger
	now    func() time.Time
}

// NewCacheVersions returns a stamp store backed by cache. A nil cache makes
// every method a no-op.
func NewCacheVersions(cache Cacher, logger *zap.Logger) *CacheVersions {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheVersions{cache: cache, logger: logger.Named("cache-versions"), now: time.Now}
}

func versionKey(departmentID int64) string {
	return fmt.Sprintf("%s:%d", cacheKeyVersion, departmentID)
}

func (v *CacheVersions) stamp() string {
	return strconv.FormatInt(v.now().UnixNano(), 36)
}

// DepartmentChanged starts a new generation for the department. It runs after
// audits or the threshold change, so the next read recomputes requires-action
// from current data.
func (v *CacheVersions) DepartmentChanged(ctx context.Context, departmentID int64) {
	if v == nil || v.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), versionTimeout)
	defer cancel()

	stamp := v.stamp()
	if err := v.cache.Set(ctx, versionKey(departmentID), stamp, 0); err != nil {
		// entries keep expiring by TTL
		v.logger.Warn("cache version bump failed", zap.Int64("department_id", departmentID), zap.Error(err))
		return
	}
	v.logger.Debug("cache version bumped", zap.Int64("department_id", departmentID), zap.String("version", stamp))
}

// Current returns the department's stamp, starting a generation when none is
// stored yet or the stamp was evicted.
func (v *CacheVersions) Current(ctx context.Context, departmentID int64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()

	var stamp string
	err := v.cache.Get(ctx, versionKey(departmentID), &stamp)
	switch {
	case err == nil && stamp != "":
		return stamp, nil
	case err == nil, errors.Is(err, redis.Nil):
	default:
		return "", err
	}

	stamp = v.stamp()
	if err := v.cache.Set(ctx, versionKey(departmentID), stamp, 0); err != nil {
		return "", err
	}
	return stamp, nil
}
