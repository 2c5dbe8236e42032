package mocks

import (
	"context"
	"errors"

	"github.com/godilite/service-audit/internal/service"
)

// MockAPI is a func-field mock of form.API that also records created and
// updated inputs.
type MockAPI struct {
	GetConfigurationFunc    func(ctx context.Context) (service.ConfigurationView, error)
	UpdateConfigurationFunc func(ctx context.Context, patch service.ConfigurationPatch) (service.ConfigurationView, error)
	ListAnalystsFunc        func(ctx context.Context) ([]service.AnalystView, error)
	GetAuditFunc            func(ctx context.Context, id int64) (service.AuditDetail, error)
	CreateAuditFunc         func(ctx context.Context, in service.AuditInput) (service.AuditConfirmation, error)
	UpdateAuditFunc         func(ctx context.Context, id int64, in service.AuditInput) (service.AuditConfirmation, error)
	DeleteAuditFunc         func(ctx context.Context, id int64) error
	ListAuditsFunc          func(ctx context.Context, q service.ListQuery) (service.ListResult, error)

	Created []service.AuditInput
	Updated map[int64]service.AuditInput
	Queries []service.ListQuery
}

var errNotImplemented = errors.New("not implemented")

func (m *MockAPI) GetConfiguration(ctx context.Context) (service.ConfigurationView, error) {
	if m.GetConfigurationFunc != nil {
		return m.GetConfigurationFunc(ctx)
	}
	return service.ConfigurationView{}, errNotImplemented
}

func (m *MockAPI) UpdateConfiguration(ctx context.Context, patch service.ConfigurationPatch) (service.ConfigurationView, error) {
	if m.UpdateConfigurationFunc != nil {
		return m.UpdateConfigurationFunc(ctx, patch)
	}
	return service.ConfigurationView{}, errNotImplemented
}

func (m *MockAPI) ListAnalysts(ctx context.Context) ([]service.AnalystView, error) {
	if m.ListAnalystsFunc != nil {
		return m.ListAnalystsFunc(ctx)
	}
	return nil, errNotImplemented
}

func (m *MockAPI) GetAudit(ctx context.Context, id int64) (service.AuditDetail, error) {
	if m.GetAuditFunc != nil {
		return m.GetAuditFunc(ctx, id)
	}
	return service.AuditDetail{}, errNotImplemented
}

func (m *MockAPI) CreateAudit(ctx context.Context, in service.AuditInput) (service.AuditConfirmation, error) {
	m.Created = append(m.Created, in)
	if m.CreateAuditFunc != nil {
		return m.CreateAuditFunc(ctx, in)
	}
	return service.AuditConfirmation{}, errNotImplemented
}

func (m *MockAPI) UpdateAudit(ctx context.Context, id int64, in service.AuditInput) (service.AuditConfirmation, error) {
	if m.Updated == nil {
		m.Updated = make(map[int64]service.AuditInput)
	}
	m.Updated[id] = in
	if m.UpdateAuditFunc != nil {
		return m.UpdateAuditFunc(ctx, id, in)
	}
	return service.AuditConfirmation{}, errNotImplemented
}

func (m *MockAPI) DeleteAudit(ctx context.Context, id int64) error {
	if m.DeleteAuditFunc != nil {
		return m.DeleteAuditFunc(ctx, id)
	}
	return errNotImplemented
}

func (m *MockAPI) ListAudits(ctx context.Context, q service.ListQuery) (service.ListResult, error) {
	m.Queries = append(m.Queries, q)
	if m.ListAuditsFunc != nil {
		return m.ListAuditsFunc(ctx, q)
	}
	return service.ListResult{}, errNotImplemented
}
