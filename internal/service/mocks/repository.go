package mocks

import (
	"context"
	"errors"

	"github.com/godilite/service-audit/internal/repository/models"
)

// MockAuditRepository is a mock implementation of the AuditRepository interface
// for testing the service layer.
type MockAuditRepository struct {
	CreateAuditFunc       func(ctx context.Context, a models.Audit) (int64, error)
	UpdateAuditFunc       func(ctx context.Context, a models.Audit) error
	DeleteAuditFunc       func(ctx context.Context, id int64) error
	GetAuditFunc          func(ctx context.Context, id int64) (models.AuditRecord, error)
	ListAuditsFunc        func(ctx context.Context, f models.AuditFilter) ([]models.AuditRecord, int, error)
	PointBucketsFunc      func(ctx context.Context, f models.BucketFilter) ([]models.PointBucket, error)
	LastAuditFunc         func(ctx context.Context, departmentID, analystID int64) (models.AuditRecord, error)
	GetConfigurationFunc  func(ctx context.Context, departmentID int64) (models.Configuration, error)
	SaveConfigurationFunc func(ctx context.Context, c models.Configuration) (models.Configuration, error)
	GetUserFunc           func(ctx context.Context, id int64) (models.User, error)
	ListAnalystsFunc      func(ctx context.Context, departmentID int64) ([]models.User, error)
}

func (m *MockAuditRepository) CreateAudit(ctx context.Context, a models.Audit) (int64, error) {
	if m.CreateAuditFunc != nil {
		return m.CreateAuditFunc(ctx, a)
	}
	return 0, errors.New("CreateAuditFunc not implemented")
}

func (m *MockAuditRepository) UpdateAudit(ctx context.Context, a models.Audit) error {
	if m.UpdateAuditFunc != nil {
		return m.UpdateAuditFunc(ctx, a)
	}
	return errors.New("UpdateAuditFunc not implemented")
}

func (m *MockAuditRepository) DeleteAudit(ctx context.Context, id int64) error {
	if m.DeleteAuditFunc != nil {
		return m.DeleteAuditFunc(ctx, id)
	}
	return errors.New("DeleteAuditFunc not implemented")
}

func (m *MockAuditRepository) GetAudit(ctx context.Context, id int64) (models.AuditRecord, error) {
	if m.GetAuditFunc != nil {
		return m.GetAuditFunc(ctx, id)
	}
	return models.AuditRecord{}, errors.New("GetAuditFunc not implemented")
}

func (m *MockAuditRepository) ListAudits(ctx context.Context, f models.AuditFilter) ([]models.AuditRecord, int, error) {
	if m.ListAuditsFunc != nil {
		return m.ListAuditsFunc(ctx, f)
	}
	return nil, 0, errors.New("ListAuditsFunc not implemented")
}

func (m *MockAuditRepository) PointBuckets(ctx context.Context, f models.BucketFilter) ([]models.PointBucket, error) {
	if m.PointBucketsFunc != nil {
		return m.PointBucketsFunc(ctx, f)
	}
	return nil, errors.New("PointBucketsFunc not implemented")
}

func (m *MockAuditRepository) LastAudit(ctx context.Context, departmentID, analystID int64) (models.AuditRecord, error) {
	if m.LastAuditFunc != nil {
		return m.LastAuditFunc(ctx, departmentID, analystID)
	}
	return models.AuditRecord{}, errors.New("LastAuditFunc not implemented")
}

// GetConfiguration reports no stored configuration unless overridden.
func (m *MockAuditRepository) GetConfiguration(ctx context.Context, departmentID int64) (models.Configuration, error) {
	if m.GetConfigurationFunc != nil {
		return m.GetConfigurationFunc(ctx, departmentID)
	}
	return models.Configuration{}, models.ErrNotFound
}

func (m *MockAuditRepository) SaveConfiguration(ctx context.Context, c models.Configuration) (models.Configuration, error) {
	if m.SaveConfigurationFunc != nil {
		return m.SaveConfigurationFunc(ctx, c)
	}
	return models.Configuration{}, errors.New("SaveConfigurationFunc not implemented")
}

func (m *MockAuditRepository) GetUser(ctx context.Context, id int64) (models.User, error) {
	if m.GetUserFunc != nil {
		return m.GetUserFunc(ctx, id)
	}
	return models.User{}, errors.New("GetUserFunc not implemented")
}

func (m *MockAuditRepository) ListAnalysts(ctx context.Context, departmentID int64) ([]models.User, error) {
	if m.ListAnalystsFunc != nil {
		return m.ListAnalystsFunc(ctx, departmentID)
	}
	return nil, errors.New("ListAnalystsFunc not implemented")
}
