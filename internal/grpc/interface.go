package grpc

import (
	"context"
	"time"

	"github.com/godilite/service-audit/internal/scoring"
	"github.com/godilite/service-audit/internal/service"
)

// Cacher defines the interface for cache operations.
type Cacher interface {
	Close() error
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

// AuditAnalytics is the subset of the audit service exposed over gRPC.
type AuditAnalytics interface {
	ScorePreview(ctx context.Context, actor service.Actor, set scoring.CriterionSet) (service.ScorePreview, error)
	Ranking(ctx context.Context, actor service.Actor, from, to string) ([]service.RankingEntry, error)
	AnalystStats(ctx context.Context, actor service.Actor, analystID int64) (service.AnalystStats, error)
	Dashboard(ctx context.Context, actor service.Actor, from, to string) (service.Dashboard, error)
}
