package service_test

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/godilite/service-audit/internal/repository"
	"github.com/godilite/service-audit/internal/repository/models"
	"github.com/godilite/service-audit/internal/scoring"
	"github.com/godilite/service-audit/internal/service"
)

func TestAuditService_Integration(t *testing.T) {
	ctx := context.Background()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	repo := repository.NewAuditRepository(db, "sqlite3")
	require.NoError(t, repo.Migrate(ctx))
	for _, u := range []models.User{
		{ID: 1, Username: "admin", Role: models.RoleAdministrator, DepartmentID: 1, Active: true},
		{ID: 2, Username: "gestora", Role: models.RoleManager, DepartmentID: 1, Active: true},
		{ID: 3, Username: "ana", FirstName: "Ana", Role: models.RoleAnalyst, DepartmentID: 1, Active: true},
		{ID: 4, Username: "bruno", FirstName: "Bruno", Role: models.RoleAnalyst, DepartmentID: 1, Active: true},
	} {
		_, err := repo.CreateUser(ctx, u)
		require.NoError(t, err)
	}

	svc := service.NewAuditService(repo, nil, zap.NewNop())
	adminActor := service.Actor{UserID: 1, Role: models.RoleAdministrator, DepartmentID: 1}
	managerActor := service.Actor{UserID: 2, Role: models.RoleManager, DepartmentID: 1}
	anaActor := service.Actor{UserID: 3, Role: models.RoleAnalyst, DepartmentID: 1}

	withPoints := func(k int) scoring.CriterionSet {
		set := scoring.AllMet()
		for i := k; i < scoring.CriterionCount; i++ {
			set[i] = scoring.Evaluation{Met: false, ErrorDescription: "falhou"}
		}
		return set
	}

	create := func(analystID int64, date string, points int) int64 {
		t.Helper()
		in := service.NewAuditInput(analystID, date, "conv-"+date, scoring.ServiceCustomer, withPoints(points))
		conf, err := svc.CreateAudit(ctx, managerActor, in)
		require.NoError(t, err)
		return conf.ID
	}

	create(3, "2025-10-01", 9)
	lowID := create(3, "2025-10-02", 6)
	create(4, "2025-10-03", 8)

	t.Run("alerts follow the configuration", func(t *testing.T) {
		res, err := svc.ListAudits(ctx, managerActor, service.ListQuery{OnlyAlerts: true})
		require.NoError(t, err)
		require.Equal(t, 1, res.Total)
		assert.Equal(t, lowID, res.Audits[0].ID)

		pct := 60.0
		_, err = svc.UpdateConfiguration(ctx, adminActor, service.ConfigurationPatch{MinimumAcceptablePercent: &pct})
		require.NoError(t, err)

		res, err = svc.ListAudits(ctx, managerActor, service.ListQuery{OnlyAlerts: true})
		require.NoError(t, err)
		assert.Zero(t, res.Total, "lowering the threshold clears the alert without touching the audit")

		detail, err := svc.GetAudit(ctx, anaActor, lowID)
		require.NoError(t, err)
		assert.False(t, detail.RequiresAction)
	})

	t.Run("classification filter", func(t *testing.T) {
		res, err := svc.ListAudits(ctx, managerActor, service.ListQuery{Classification: "bom"})
		require.NoError(t, err)
		require.Equal(t, 1, res.Total)
		assert.Equal(t, "bruno", res.Audits[0].Analyst.Username)
	})

	t.Run("ranking and dashboard", func(t *testing.T) {
		ranking, err := svc.Ranking(ctx, managerActor, "", "")
		require.NoError(t, err)
		require.Len(t, ranking, 2)
		assert.Equal(t, int64(4), ranking[0].AnalystID)
		assert.Equal(t, 8.9, ranking[0].MeanGrade)

		d, err := svc.Dashboard(ctx, anaActor, "2025-09-01", "2025-10-31")
		require.NoError(t, err)
		assert.Equal(t, 2, d.TotalAudits)
		require.Len(t, d.Top3, 1)
		assert.Equal(t, int64(3), d.Top3[0].ID)
	})

	t.Run("update then stats", func(t *testing.T) {
		met := true
		var patch service.AuditInput
		for _, c := range scoring.All() {
			patch.Criteria[c].Met = &met
		}
		conf, err := svc.UpdateAudit(ctx, managerActor, lowID, patch)
		require.NoError(t, err)
		assert.Equal(t, scoring.Excellent, conf.Classification)

		stats, err := svc.AnalystStats(ctx, managerActor, 3)
		require.NoError(t, err)
		assert.Equal(t, 2, stats.TotalAudits)
		assert.Equal(t, 10.0, stats.MeanGrade)
		assert.Equal(t, 2, stats.Distribution[scoring.Excellent])
		require.NotNil(t, stats.LastAudit)
		assert.Equal(t, lowID, stats.LastAudit.ID)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, svc.DeleteAudit(ctx, managerActor, lowID))
		_, err := svc.GetAudit(ctx, managerActor, lowID)
		assert.ErrorIs(t, err, service.ErrNotFound)
	})
}
