package mocks

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/godilite/service-audit/internal/scoring"
	"github.com/godilite/service-audit/internal/service"
)

// MockAuditAnalytics is a mock implementation of the AuditAnalytics interface
// for testing the handler layer. Calls counts every invocation.
type MockAuditAnalytics struct {
	ScorePreviewFunc func(ctx context.Context, actor service.Actor, set scoring.CriterionSet) (service.ScorePreview, error)
	RankingFunc      func(ctx context.Context, actor service.Actor, from, to string) ([]service.RankingEntry, error)
	AnalystStatsFunc func(ctx context.Context, actor service.Actor, analystID int64) (service.AnalystStats, error)
	DashboardFunc    func(ctx context.Context, actor service.Actor, from, to string) (service.Dashboard, error)

	Calls atomic.Int64
}

func (m *MockAuditAnalytics) ScorePreview(ctx context.Context, actor service.Actor, set scoring.CriterionSet) (service.ScorePreview, error) {
	m.Calls.Add(1)
	if m.ScorePreviewFunc != nil {
		return m.ScorePreviewFunc(ctx, actor, set)
	}
	return service.ScorePreview{}, errors.New("ScorePreviewFunc not implemented")
}

func (m *MockAuditAnalytics) Ranking(ctx context.Context, actor service.Actor, from, to string) ([]service.RankingEntry, error) {
	m.Calls.Add(1)
	if m.RankingFunc != nil {
		return m.RankingFunc(ctx, actor, from, to)
	}
	return nil, errors.New("RankingFunc not implemented")
}

func (m *MockAuditAnalytics) AnalystStats(ctx context.Context, actor service.Actor, analystID int64) (service.AnalystStats, error) {
	m.Calls.Add(1)
	if m.AnalystStatsFunc != nil {
		return m.AnalystStatsFunc(ctx, actor, analystID)
	}
	return service.AnalystStats{}, errors.New("AnalystStatsFunc not implemented")
}

func (m *MockAuditAnalytics) Dashboard(ctx context.Context, actor service.Actor, from, to string) (service.Dashboard, error) {
	m.Calls.Add(1)
	if m.DashboardFunc != nil {
		return m.DashboardFunc(ctx, actor, from, to)
	}
	return service.Dashboard{}, errors.New("DashboardFunc not implemented")
}
