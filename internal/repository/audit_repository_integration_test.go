package repository_test

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/godilite/service-audit/internal/repository"
	"github.com/godilite/service-audit/internal/repository/models"
	"github.com/godilite/service-audit/internal/scoring"
)

const testDepartment = 10

func setupTestRepo(t *testing.T) (*repository.AuditRepository, context.Context) {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	repo := repository.NewAuditRepository(db, "sqlite3")
	require.NoError(t, repo.Migrate(ctx))
	require.NoError(t, repo.Migrate(ctx), "migrate is repeatable")

	users := []models.User{
		{ID: 1, Username: "ana", FirstName: "Ana", LastName: "Souza", Role: models.RoleAnalyst, DepartmentID: testDepartment, Active: true},
		{ID: 2, Username: "bruno", FirstName: "Bruno", LastName: "Lima", Role: models.RoleAnalyst, DepartmentID: testDepartment, Active: true},
		{ID: 3, Username: "carla", FirstName: "Carla", Role: models.RoleManager, DepartmentID: testDepartment, Active: true},
		{ID: 4, Username: "davi", FirstName: "Davi", Role: models.RoleAnalyst, DepartmentID: testDepartment, Active: false},
		{ID: 5, Username: "eva", FirstName: "Eva", Role: models.RoleAnalyst, DepartmentID: 99, Active: true},
	}
	for _, u := range users {
		_, err := repo.CreateUser(ctx, u)
		require.NoError(t, err)
	}
	return repo, ctx
}

func criteriaWithPoints(k int) scoring.CriterionSet {
	var set scoring.CriterionSet
	for i := range set {
		if i < k {
			set[i].Met = true
		} else {
			set[i].ErrorDescription = "falhou"
			set[i].Evidence = "https://img.example/1.png"
		}
	}
	return set
}

func newAudit(analyst int64, date string, points int) models.Audit {
	return models.Audit{
		DepartmentID:   testDepartment,
		AnalystID:      analyst,
		AuditorID:      3,
		ServiceDate:    date,
		ConversationID: "conv-" + date,
		ServiceType:    scoring.ServiceCustomer,
		Criteria:       criteriaWithPoints(points),
	}
}

func TestAuditRepository_Integration(t *testing.T) {
	repo, ctx := setupTestRepo(t)

	seed := []models.Audit{
		newAudit(1, "2025-10-01", 9),
		newAudit(1, "2025-10-02", 6),
		newAudit(2, "2025-10-03", 7),
		newAudit(2, "2025-10-20", 3),
	}
	seed[3].ServiceType = scoring.ServiceFranchisee

	ids := make([]int64, len(seed))
	for i, a := range seed {
		id, err := repo.CreateAudit(ctx, a)
		require.NoError(t, err)
		ids[i] = id
	}

	t.Run("GetAudit joins people and computes points", func(t *testing.T) {
		rec, err := repo.GetAudit(ctx, ids[1])
		require.NoError(t, err)

		assert.Equal(t, 6, rec.Points)
		assert.Equal(t, "Ana Souza", rec.Analyst.FullName())
		assert.Equal(t, "carla", rec.Auditor.Username)
		assert.Equal(t, seed[1].Criteria, rec.Criteria)
		assert.False(t, rec.CreatedAt.IsZero())
	})

	t.Run("GetAudit missing", func(t *testing.T) {
		_, err := repo.GetAudit(ctx, 9999)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("ListAudits newest first with total", func(t *testing.T) {
		recs, total, err := repo.ListAudits(ctx, models.AuditFilter{DepartmentID: testDepartment, Limit: 2})
		require.NoError(t, err)

		assert.Equal(t, 4, total)
		require.Len(t, recs, 2)
		assert.Equal(t, ids[3], recs[0].ID)
		assert.Equal(t, ids[2], recs[1].ID)
	})

	t.Run("ListAudits filters", func(t *testing.T) {
		cases := []struct {
			name   string
			filter models.AuditFilter
			want   []int64
		}{
			{"analyst", models.AuditFilter{AnalystID: 1}, []int64{ids[1], ids[0]}},
			{"date range", models.AuditFilter{DateFrom: "2025-10-02", DateTo: "2025-10-03"}, []int64{ids[2], ids[1]}},
			{"service type", models.AuditFilter{ServiceType: scoring.ServiceFranchisee}, []int64{ids[3]}},
			{"points range", models.AuditFilter{Points: &models.PointsRange{Lo: 7, Hi: 8}}, []int64{ids[2]}},
			{"below points", models.AuditFilter{BelowPoints: ptr(7)}, []int64{ids[3], ids[1]}},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				tc.filter.DepartmentID = testDepartment
				recs, total, err := repo.ListAudits(ctx, tc.filter)
				require.NoError(t, err)
				assert.Equal(t, len(tc.want), total)

				got := make([]int64, 0, len(recs))
				for _, r := range recs {
					got = append(got, r.ID)
				}
				assert.Equal(t, tc.want, got)
			})
		}
	})

	t.Run("ListAudits other department is empty", func(t *testing.T) {
		recs, total, err := repo.ListAudits(ctx, models.AuditFilter{DepartmentID: 99})
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, recs)
	})

	t.Run("PointBuckets", func(t *testing.T) {
		buckets, err := repo.PointBuckets(ctx, models.BucketFilter{DepartmentID: testDepartment, DateTo: "2025-10-10"})
		require.NoError(t, err)

		require.Len(t, buckets, 3)
		assert.Equal(t, models.PointBucket{AnalystID: 1, Username: "ana", FirstName: "Ana", LastName: "Souza", Points: 6, Count: 1}, buckets[0])
		assert.Equal(t, 9, buckets[1].Points)
		assert.Equal(t, int64(2), buckets[2].AnalystID)
		assert.Equal(t, 7, buckets[2].Points)
	})

	t.Run("LastAudit", func(t *testing.T) {
		rec, err := repo.LastAudit(ctx, testDepartment, 2)
		require.NoError(t, err)
		assert.Equal(t, ids[3], rec.ID)

		_, err = repo.LastAudit(ctx, testDepartment, 4)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("UpdateAudit", func(t *testing.T) {
		a := seed[1]
		a.ID = ids[1]
		a.Criteria = criteriaWithPoints(8)
		a.ConversationID = "conv-edited"
		require.NoError(t, repo.UpdateAudit(ctx, a))

		rec, err := repo.GetAudit(ctx, ids[1])
		require.NoError(t, err)
		assert.Equal(t, 8, rec.Points)
		assert.Equal(t, "conv-edited", rec.ConversationID)
		assert.False(t, rec.UpdatedAt.Before(rec.CreatedAt))

		a.ID = 9999
		assert.ErrorIs(t, repo.UpdateAudit(ctx, a), models.ErrNotFound)
	})

	t.Run("DeleteAudit", func(t *testing.T) {
		require.NoError(t, repo.DeleteAudit(ctx, ids[0]))
		_, err := repo.GetAudit(ctx, ids[0])
		assert.ErrorIs(t, err, models.ErrNotFound)
		assert.ErrorIs(t, repo.DeleteAudit(ctx, ids[0]), models.ErrNotFound)
	})
}

func TestAuditRepository_Configuration(t *testing.T) {
	repo, ctx := setupTestRepo(t)

	_, err := repo.GetConfiguration(ctx, testDepartment)
	require.ErrorIs(t, err, models.ErrNotFound)

	saved, err := repo.SaveConfiguration(ctx, models.Configuration{DepartmentID: testDepartment, MinimumAcceptablePercent: 77.78, Active: true})
	require.NoError(t, err)
	assert.NotZero(t, saved.ID)
	assert.InDelta(t, 77.78, saved.MinimumAcceptablePercent, 1e-9)

	updated, err := repo.SaveConfiguration(ctx, models.Configuration{DepartmentID: testDepartment, MinimumAcceptablePercent: 60, Active: false})
	require.NoError(t, err)
	assert.Equal(t, saved.ID, updated.ID, "one configuration per department")
	assert.InDelta(t, 60.0, updated.MinimumAcceptablePercent, 1e-9)
	assert.False(t, updated.Active)
}

func TestAuditRepository_Users(t *testing.T) {
	repo, ctx := setupTestRepo(t)

	analysts, err := repo.ListAnalysts(ctx, testDepartment)
	require.NoError(t, err)
	require.Len(t, analysts, 2, "inactive and foreign analysts are excluded")
	assert.Equal(t, "ana", analysts[0].Username)
	assert.Equal(t, "bruno", analysts[1].Username)

	id, err := repo.CreateUser(ctx, models.User{Username: "fabio", Role: models.RoleAdministrator, DepartmentID: testDepartment, Active: true})
	require.NoError(t, err)

	u, err := repo.GetUser(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "fabio", u.FullName())

	_, err = repo.CreateUser(ctx, models.User{Username: "fabio", Role: models.RoleAnalyst})
	assert.Error(t, err, "usernames are unique")

	_, err = repo.GetUser(ctx, 424242)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func ptr[T any](v T) *T { return &v }
