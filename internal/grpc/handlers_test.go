package grpc

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"

	pb "github.com/godilite/service-audit/api/v1"
	"github.com/godilite/service-audit/internal/grpc/mocks"
	"github.com/godilite/service-audit/internal/scoring"
	"github.com/godilite/service-audit/internal/service"
)

func withIdentity(ctx context.Context, userID int64, role string, dept int64) context.Context {
	return metadata.NewIncomingContext(ctx, metadata.Pairs(
		MetadataUserID, fmt.Sprint(userID),
		MetadataUserRole, role,
		MetadataDepartmentID, fmt.Sprint(dept),
	))
}

func managerCtx() context.Context {
	return withIdentity(context.Background(), 2, "gestor", 10)
}

func TestNewGRPCHandlers(t *testing.T) {
	t.Run("valid parameters", func(t *testing.T) {
		mockAudits := &mocks.MockAuditAnalytics{}
		mockCache := &mocks.MockCacher{}
		ttl := 5 * time.Minute

		handlers := NewGRPCHandlers(mockAudits, mockCache, zap.NewNop(), ttl)

		assert.NotNil(t, handlers)
		assert.Equal(t, mockAudits, handlers.audits)
		assert.Equal(t, mockCache, handlers.cache)
		assert.Equal(t, ttl, handlers.cacheTTL)
		assert.NotNil(t, handlers.logger)
	})

	t.Run("nil service panics", func(t *testing.T) {
		assert.Panics(t, func() {
			NewGRPCHandlers(nil, &mocks.MockCacher{}, zap.NewNop(), time.Minute)
		})
	})

	t.Run("non-positive TTL uses default", func(t *testing.T) {
		for _, ttl := range []time.Duration{0, -time.Minute} {
			handlers := NewGRPCHandlers(&mocks.MockAuditAnalytics{}, nil, nil, ttl)
			assert.Equal(t, defaultCacheDuration, handlers.cacheTTL)
		}
	})
}

func TestActorFromContext(t *testing.T) {
	t.Run("valid metadata", func(t *testing.T) {
		actor, err := actorFromContext(withIdentity(context.Background(), 3, "analista", 10))
		require.NoError(t, err)
		assert.Equal(t, service.Actor{UserID: 3, Role: "analista", DepartmentID: 10}, actor)
	})

	cases := map[string]context.Context{
		"no metadata":        context.Background(),
		"bad user id":        metadata.NewIncomingContext(context.Background(), metadata.Pairs(MetadataUserID, "x", MetadataUserRole, "gestor", MetadataDepartmentID, "1")),
		"missing role":       metadata.NewIncomingContext(context.Background(), metadata.Pairs(MetadataUserID, "1", MetadataDepartmentID, "1")),
		"missing department": metadata.NewIncomingContext(context.Background(), metadata.Pairs(MetadataUserID, "1", MetadataUserRole, "gestor")),
	}
	for name, ctx := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := actorFromContext(ctx)
			assert.Equal(t, codes.Unauthenticated, status.Code(err))
		})
	}
}

func TestParsePeriod(t *testing.T) {
	t.Run("end before start", func(t *testing.T) {
		req := &pb.TimePeriodRequest{
			StartDate: timestamppb.New(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)),
			EndDate:   timestamppb.New(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
		}
		_, _, err := parsePeriod(req)
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})

	t.Run("dates are taken in UTC", func(t *testing.T) {
		loc := time.FixedZone("BRT", -3*3600)
		req := &pb.TimePeriodRequest{
			StartDate: timestamppb.New(time.Date(2025, 1, 1, 22, 0, 0, 0, loc)),
		}
		from, to, err := parsePeriod(req)
		require.NoError(t, err)
		assert.Equal(t, "2025-01-02", from)
		assert.Empty(t, to)
	})

	t.Run("nil request", func(t *testing.T) {
		from, to, err := parsePeriod(nil)
		require.NoError(t, err)
		assert.Empty(t, from)
		assert.Empty(t, to)
	})
}

func TestNormalizeKey(t *testing.T) {
	manager := service.Actor{UserID: 2, Role: "gestor", DepartmentID: 10}
	analyst := service.Actor{UserID: 3, Role: "analista", DepartmentID: 10}

	assert.Equal(t, "grpc:ranking:10:g1:team:2025-01-01:-", normalizeKey(cacheKeyRanking, manager, "g1", "2025-01-01", ""))
	assert.Equal(t, "grpc:dashboard:10:g1:analyst-3:a:b", normalizeKey(cacheKeyDashboard, analyst, "g1", "a", "b"))
	assert.NotEqual(t,
		normalizeKey(cacheKeyDashboard, manager, "g1", "a", "b"),
		normalizeKey(cacheKeyDashboard, analyst, "g1", "a", "b"),
		"analyst-scoped results never share a key with team results")
	assert.NotEqual(t,
		normalizeKey(cacheKeyDashboard, manager, "g1", "a", "b"),
		normalizeKey(cacheKeyDashboard, manager, "g2", "a", "b"),
		"a new generation never reads the previous one")
}

func TestHandleError(t *testing.T) {
	handlers := NewGRPCHandlers(&mocks.MockAuditAnalytics{}, nil, zap.NewNop(), time.Minute)

	t.Run("context canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := handlers.handleError(ctx, "op", errors.New("whatever"))
		assert.Equal(t, codes.Canceled, status.Code(err))
	})

	t.Run("context deadline exceeded", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
		defer cancel()
		time.Sleep(time.Millisecond)
		err := handlers.handleError(ctx, "op", errors.New("whatever"))
		assert.Equal(t, codes.DeadlineExceeded, status.Code(err))
	})

	cases := []struct {
		err  error
		code codes.Code
	}{
		{fmt.Errorf("x: %w", service.ErrInvalidInput), codes.InvalidArgument},
		{&scoring.ValidationError{Problems: []string{"bad"}}, codes.InvalidArgument},
		{fmt.Errorf("x: %w", service.ErrNotFound), codes.NotFound},
		{fmt.Errorf("x: %w", service.ErrForbidden), codes.PermissionDenied},
		{fmt.Errorf("%w: db", service.ErrStorageFailure), codes.Internal},
		{errors.New("boom"), codes.Internal},
		{status.Error(codes.Unauthenticated, "who"), codes.Unauthenticated},
	}
	for _, tc := range cases {
		t.Run(tc.code.String(), func(t *testing.T) {
			err := handlers.handleError(context.Background(), "op", tc.err)
			assert.Equal(t, tc.code, status.Code(err))
		})
	}
}

func TestScoreCriteria(t *testing.T) {
	mockAudits := &mocks.MockAuditAnalytics{
		ScorePreviewFunc: func(_ context.Context, actor service.Actor, set scoring.CriterionSet) (service.ScorePreview, error) {
			assert.Equal(t, int64(10), actor.DepartmentID)
			r := scoring.Score(set)
			return service.ScorePreview{
				ScoreView: service.ScoreView{
					Points: r.Points, Percent: r.Percent, Grade: r.Grade,
					Classification: r.Classification, ClassificationDisplay: r.DisplayLabel(),
					RequiresAction: true,
				},
				MinimumAcceptablePercent: 77.78,
			}, nil
		},
	}
	handlers := NewGRPCHandlers(mockAudits, nil, zap.NewNop(), time.Minute)

	t.Run("scores nine flags", func(t *testing.T) {
		resp, err := handlers.ScoreCriteria(managerCtx(), &pb.ScoreCriteriaRequest{
			Values: []bool{true, true, true, true, true, true, false, false, false},
		})
		require.NoError(t, err)
		assert.Equal(t, int32(6), resp.Points)
		assert.Equal(t, int32(67), resp.Percent)
		assert.Equal(t, 6.7, resp.Grade)
		assert.Equal(t, "regular", resp.Classification)
		assert.True(t, resp.RequiresAction)
	})

	t.Run("wrong number of flags", func(t *testing.T) {
		_, err := handlers.ScoreCriteria(managerCtx(), &pb.ScoreCriteriaRequest{Values: []bool{true}})
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})

	t.Run("unauthenticated", func(t *testing.T) {
		_, err := handlers.ScoreCriteria(context.Background(), &pb.ScoreCriteriaRequest{})
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})
}

func TestGetRanking(t *testing.T) {
	entries := []service.RankingEntry{
		{Position: 1, AnalystID: 7, Username: "ana", Name: "Ana", TotalAudits: 3, MeanGrade: 8.9, MeanPoints: 8, PredominantClassification: scoring.Good},
	}

	t.Run("miss fetches and populates the cache", func(t *testing.T) {
		mockAudits := &mocks.MockAuditAnalytics{
			RankingFunc: func(_ context.Context, _ service.Actor, from, to string) ([]service.RankingEntry, error) {
				assert.Equal(t, "2025-01-01", from)
				assert.Equal(t, "2025-01-31", to)
				return entries, nil
			},
		}
		mockCache := &mocks.MockCacher{}
		handlers := NewGRPCHandlers(mockAudits, mockCache, zap.NewNop(), time.Minute)

		resp, err := handlers.GetRanking(managerCtx(), &pb.TimePeriodRequest{
			StartDate: timestamppb.New(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
			EndDate:   timestamppb.New(time.Date(2025, 1, 31, 23, 0, 0, 0, time.UTC)),
		})

		require.NoError(t, err)
		require.Len(t, resp.Entries, 1)
		assert.Equal(t, int64(7), resp.Entries[0].AnalystId)
		assert.Equal(t, "bom", resp.Entries[0].PredominantClassification)
		var version string
		require.NoError(t, mockCache.Get(context.Background(), "grpc:version:10", &version))
		want := "grpc:ranking:10:" + version + ":team:2025-01-01:2025-01-31"
		assert.Eventually(t, func() bool {
			keys := mockCache.Keys()
			return len(keys) == 2 && slices.Contains(keys, want)
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("hit serves the cached ranking", func(t *testing.T) {
		mockAudits := &mocks.MockAuditAnalytics{
			RankingFunc: func(context.Context, service.Actor, string, string) ([]service.RankingEntry, error) {
				return nil, nil
			},
		}
		mockCache := &mocks.MockCacher{}
		mockCache.Put("grpc:version:10", "g1")
		mockCache.Put("grpc:ranking:10:g1:team:-:-", entries)
		handlers := NewGRPCHandlers(mockAudits, mockCache, zap.NewNop(), time.Minute)

		resp, err := handlers.GetRanking(managerCtx(), &pb.TimePeriodRequest{})

		require.NoError(t, err)
		require.Len(t, resp.Entries, 1)
		assert.Equal(t, "ana", resp.Entries[0].Username)
	})

	t.Run("analysts are refused before the cache", func(t *testing.T) {
		mockCache := &mocks.MockCacher{
			GetFunc: func(context.Context, string, any) error {
				t.Fatal("cache must not be consulted")
				return nil
			},
		}
		handlers := NewGRPCHandlers(&mocks.MockAuditAnalytics{}, mockCache, zap.NewNop(), time.Minute)

		_, err := handlers.GetRanking(withIdentity(context.Background(), 3, "analista", 10), &pb.TimePeriodRequest{})
		assert.Equal(t, codes.PermissionDenied, status.Code(err))
	})

	t.Run("service error", func(t *testing.T) {
		mockAudits := &mocks.MockAuditAnalytics{
			RankingFunc: func(context.Context, service.Actor, string, string) ([]service.RankingEntry, error) {
				return nil, fmt.Errorf("%w: locked", service.ErrStorageFailure)
			},
		}
		handlers := NewGRPCHandlers(mockAudits, &mocks.MockCacher{}, zap.NewNop(), time.Minute)

		_, err := handlers.GetRanking(managerCtx(), &pb.TimePeriodRequest{})
		assert.Equal(t, codes.Internal, status.Code(err))
	})
}

func TestGetAnalystStats(t *testing.T) {
	mockAudits := &mocks.MockAuditAnalytics{
		AnalystStatsFunc: func(_ context.Context, _ service.Actor, id int64) (service.AnalystStats, error) {
			if id != 7 {
				return service.AnalystStats{}, fmt.Errorf("analista não encontrado: %w", service.ErrNotFound)
			}
			return service.AnalystStats{
				Analyst:      service.PersonRef{ID: 7, Username: "ana", FullName: "Ana"},
				TotalAudits:  2,
				MeanGrade:    7.8,
				Distribution: service.Distribution{scoring.Excellent: 1, scoring.Regular: 1},
				LastAudit:    &service.LastAuditRef{ID: 12, Date: "2025-10-01", Grade: 5.6, Classification: "Regular"},
				HasAlerts:    true,
			}, nil
		},
	}
	handlers := NewGRPCHandlers(mockAudits, nil, zap.NewNop(), time.Minute)

	t.Run("maps the statistics", func(t *testing.T) {
		resp, err := handlers.GetAnalystStats(managerCtx(), &pb.AnalystStatsRequest{AnalystId: 7})
		require.NoError(t, err)

		assert.Equal(t, int64(2), resp.TotalAudits)
		require.Len(t, resp.Distribution, 4)
		assert.Equal(t, &pb.ClassificationCount{Classification: "excelente", Count: 1}, resp.Distribution[0])
		assert.Equal(t, &pb.ClassificationCount{Classification: "bom", Count: 0}, resp.Distribution[1])
		require.NotNil(t, resp.LastAudit)
		assert.Equal(t, time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC), resp.LastAudit.CreatedAt.AsTime())
		assert.True(t, resp.HasAlerts)
	})

	t.Run("missing analyst id", func(t *testing.T) {
		_, err := handlers.GetAnalystStats(managerCtx(), &pb.AnalystStatsRequest{})
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})

	t.Run("unknown analyst", func(t *testing.T) {
		_, err := handlers.GetAnalystStats(managerCtx(), &pb.AnalystStatsRequest{AnalystId: 404})
		assert.Equal(t, codes.NotFound, status.Code(err))
	})
}

func TestGetDashboard(t *testing.T) {
	var gotFrom, gotTo string
	mockAudits := &mocks.MockAuditAnalytics{
		DashboardFunc: func(_ context.Context, actor service.Actor, from, to string) (service.Dashboard, error) {
			gotFrom, gotTo = from, to
			return service.Dashboard{
				Period:             service.Period{From: from, To: to},
				TotalAudits:        4,
				MeanGrade:          7.5,
				Distribution:       service.Distribution{scoring.Good: 4},
				TotalAlerts:        1,
				AnalystsWithAlerts: []service.PersonRef{{ID: 7, Username: "ana"}},
				Top3:               []service.TopAnalyst{{ID: 7, Username: "ana", Name: "Ana", MeanGrade: 7.5}},
			}, nil
		},
	}
	handlers := NewGRPCHandlers(mockAudits, nil, zap.NewNop(), time.Minute)
	handlers.now = func() time.Time { return time.Date(2025, 10, 31, 15, 0, 0, 0, time.UTC) }

	resp, err := handlers.GetDashboard(withIdentity(context.Background(), 3, "analista", 10), &pb.TimePeriodRequest{})

	require.NoError(t, err)
	assert.Equal(t, "2025-10-01", gotFrom)
	assert.Equal(t, "2025-10-31", gotTo)
	assert.Equal(t, int64(4), resp.TotalAudits)
	assert.Equal(t, int64(4), resp.Distribution[1].Count)
	require.Len(t, resp.AnalystsWithAlerts, 1)
	require.Len(t, resp.Top, 1)
	assert.Equal(t, "Ana", resp.Top[0].Name)
	assert.NotNil(t, resp.StartDate)
}

func TestDashboardCacheFollowsDepartmentChanges(t *testing.T) {
	var alerts, calls atomic.Int32
	alerts.Store(1)
	mockAudits := &mocks.MockAuditAnalytics{
		DashboardFunc: func(context.Context, service.Actor, string, string) (service.Dashboard, error) {
			calls.Add(1)
			return service.Dashboard{TotalAudits: 1, TotalAlerts: int(alerts.Load())}, nil
		},
	}
	mockCache := &mocks.MockCacher{}
	handlers := NewGRPCHandlers(mockAudits, mockCache, zap.NewNop(), time.Minute)
	var tick int64
	handlers.versions.now = func() time.Time {
		tick++
		return time.Unix(0, tick)
	}
	period := &pb.TimePeriodRequest{
		StartDate: timestamppb.New(time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)),
		EndDate:   timestamppb.New(time.Date(2025, 10, 31, 0, 0, 0, 0, time.UTC)),
	}

	resp, err := handlers.GetDashboard(managerCtx(), period)
	require.NoError(t, err)
	require.Equal(t, int64(1), resp.TotalAlerts)
	require.Eventually(t, func() bool { return len(mockCache.Keys()) == 2 }, time.Second, 10*time.Millisecond)

	// threshold lowered, the audit no longer requires action
	alerts.Store(0)
	resp, err = handlers.GetDashboard(managerCtx(), period)
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.TotalAlerts, "served from cache until the department changes")

	handlers.versions.DepartmentChanged(context.Background(), 10)

	resp, err = handlers.GetDashboard(managerCtx(), period)
	require.NoError(t, err)
	assert.Zero(t, resp.TotalAlerts)
	assert.GreaterOrEqual(t, calls.Load(), int32(2))
}
