package mocks

import (
	"context"
	"errors"

	"github.com/godilite/service-audit/internal/scoring"
	"github.com/godilite/service-audit/internal/service"
)

var errNotImplemented = errors.New("not implemented")

// MockAuditAPI is a func-field mock of httpapi.AuditAPI. Unset funcs fail the call.
type MockAuditAPI struct {
	ScorePreviewFunc        func(ctx context.Context, actor service.Actor, set scoring.CriterionSet) (service.ScorePreview, error)
	CreateAuditFunc         func(ctx context.Context, actor service.Actor, in service.AuditInput) (service.AuditConfirmation, error)
	UpdateAuditFunc         func(ctx context.Context, actor service.Actor, id int64, in service.AuditInput) (service.AuditConfirmation, error)
	DeleteAuditFunc         func(ctx context.Context, actor service.Actor, id int64) error
	GetAuditFunc            func(ctx context.Context, actor service.Actor, id int64) (service.AuditDetail, error)
	ListAuditsFunc          func(ctx context.Context, actor service.Actor, q service.ListQuery) (service.ListResult, error)
	RankingFunc             func(ctx context.Context, actor service.Actor, from, to string) ([]service.RankingEntry, error)
	AnalystStatsFunc        func(ctx context.Context, actor service.Actor, analystID int64) (service.AnalystStats, error)
	DashboardFunc           func(ctx context.Context, actor service.Actor, from, to string) (service.Dashboard, error)
	GetConfigurationFunc    func(ctx context.Context, actor service.Actor) (service.ConfigurationView, error)
	UpdateConfigurationFunc func(ctx context.Context, actor service.Actor, patch service.ConfigurationPatch) (service.ConfigurationView, error)
	ListAnalystsFunc        func(ctx context.Context, actor service.Actor) ([]service.AnalystView, error)
}

func (m *MockAuditAPI) ScorePreview(ctx context.Context, actor service.Actor, set scoring.CriterionSet) (service.ScorePreview, error) {
	if m.ScorePreviewFunc != nil {
		return m.ScorePreviewFunc(ctx, actor, set)
	}
	return service.ScorePreview{}, errNotImplemented
}

func (m *MockAuditAPI) CreateAudit(ctx context.Context, actor service.Actor, in service.AuditInput) (service.AuditConfirmation, error) {
	if m.CreateAuditFunc != nil {
		return m.CreateAuditFunc(ctx, actor, in)
	}
	return service.AuditConfirmation{}, errNotImplemented
}

func (m *MockAuditAPI) UpdateAudit(ctx context.Context, actor service.Actor, id int64, in service.AuditInput) (service.AuditConfirmation, error) {
	if m.UpdateAuditFunc != nil {
		return m.UpdateAuditFunc(ctx, actor, id, in)
	}
	return service.AuditConfirmation{}, errNotImplemented
}

func (m *MockAuditAPI) DeleteAudit(ctx context.Context, actor service.Actor, id int64) error {
	if m.DeleteAuditFunc != nil {
		return m.DeleteAuditFunc(ctx, actor, id)
	}
	return errNotImplemented
}

func (m *MockAuditAPI) GetAudit(ctx context.Context, actor service.Actor, id int64) (service.AuditDetail, error) {
	if m.GetAuditFunc != nil {
		return m.GetAuditFunc(ctx, actor, id)
	}
	return service.AuditDetail{}, errNotImplemented
}

func (m *MockAuditAPI) ListAudits(ctx context.Context, actor service.Actor, q service.ListQuery) (service.ListResult, error) {
	if m.ListAuditsFunc != nil {
		return m.ListAuditsFunc(ctx, actor, q)
	}
	return service.ListResult{}, errNotImplemented
}

func (m *MockAuditAPI) Ranking(ctx context.Context, actor service.Actor, from, to string) ([]service.RankingEntry, error) {
	if m.RankingFunc != nil {
		return m.RankingFunc(ctx, actor, from, to)
	}
	return nil, errNotImplemented
}

func (m *MockAuditAPI) AnalystStats(ctx context.Context, actor service.Actor, analystID int64) (service.AnalystStats, error) {
	if m.AnalystStatsFunc != nil {
		return m.AnalystStatsFunc(ctx, actor, analystID)
	}
	return service.AnalystStats{}, errNotImplemented
}

func (m *MockAuditAPI) Dashboard(ctx context.Context, actor service.Actor, from, to string) (service.Dashboard, error) {
	if m.DashboardFunc != nil {
		return m.DashboardFunc(ctx, actor, from, to)
	}
	return service.Dashboard{}, errNotImplemented
}

func (m *MockAuditAPI) GetConfiguration(ctx context.Context, actor service.Actor) (service.ConfigurationView, error) {
	if m.GetConfigurationFunc != nil {
		return m.GetConfigurationFunc(ctx, actor)
	}
	return service.ConfigurationView{}, errNotImplemented
}

func (m *MockAuditAPI) UpdateConfiguration(ctx context.Context, actor service.Actor, patch service.ConfigurationPatch) (service.ConfigurationView, error) {
	if m.UpdateConfigurationFunc != nil {
		return m.UpdateConfigurationFunc(ctx, actor, patch)
	}
	return service.ConfigurationView{}, errNotImplemented
}

func (m *MockAuditAPI) ListAnalysts(ctx context.Context, actor service.Actor) ([]service.AnalystView, error) {
	if m.ListAnalystsFunc != nil {
		return m.ListAnalystsFunc(ctx, actor)
	}
	return nil, errNotImplemented
}
