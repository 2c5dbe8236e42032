package service

import (
	"context"

	"github.com/godilite/service-audit/internal/repository/models"
)

// AuditRepository defines the storage operations the service depends on.
type AuditRepository interface {
	CreateAudit(ctx context.Context, a models.Audit) (int64, error)
	UpdateAudit(ctx context.Context, a models.Audit) error
	DeleteAudit(ctx context.Context, id int64) error
	GetAudit(ctx context.Context, id int64) (models.AuditRecord, error)
	ListAudits(ctx context.Context, f models.AuditFilter) ([]models.AuditRecord, int, error)
	PointBuckets(ctx context.Context, f models.BucketFilter) ([]models.PointBucket, error)
	LastAudit(ctx context.Context, departmentID, analystID int64) (models.AuditRecord, error)
	GetConfiguration(ctx context.Context, departmentID int64) (models.Configuration, error)
	SaveConfiguration(ctx context.Context, c models.Configuration) (models.Configuration, error)
	GetUser(ctx context.Context, id int64) (models.User, error)
	ListAnalysts(ctx context.Context, departmentID int64) ([]models.User, error)
}

// ChangeNotifier hears about every committed write that can change a
// department's analytics.
type ChangeNotifier interface {
	DepartmentChanged(ctx context.Context, departmentID int64)
}
