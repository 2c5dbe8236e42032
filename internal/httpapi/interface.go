package httpapi

import (
	"context"

	"github.com/godilite/service-audit/internal/scoring"
	"github.com/godilite/service-audit/internal/service"
)

// AuditAPI is the service surface exposed over HTTP.
type AuditAPI interface {
	ScorePreview(ctx context.Context, actor service.Actor, set scoring.CriterionSet) (service.ScorePreview, error)
	CreateAudit(ctx context.Context, actor service.Actor, in service.AuditInput) (service.AuditConfirmation, error)
	UpdateAudit(ctx context.Context, actor service.Actor, id int64, in service.AuditInput) (service.AuditConfirmation, error)
	DeleteAudit(ctx context.Context, actor service.Actor, id int64) error
	GetAudit(ctx context.Context, actor service.Actor, id int64) (service.AuditDetail, error)
	ListAudits(ctx context.Context, actor service.Actor, q service.ListQuery) (service.ListResult, error)
	Ranking(ctx context.Context, actor service.Actor, from, to string) ([]service.RankingEntry, error)
	AnalystStats(ctx context.Context, actor service.Actor, analystID int64) (service.AnalystStats, error)
	Dashboard(ctx context.Context, actor service.Actor, from, to string) (service.Dashboard, error)
	GetConfiguration(ctx context.Context, actor service.Actor) (service.ConfigurationView, error)
	UpdateConfiguration(ctx context.Context, actor service.Actor, patch service.ConfigurationPatch) (service.ConfigurationView, error)
	ListAnalysts(ctx context.Context, actor service.Actor) ([]service.AnalystView, error)
}
