package grpc

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"

	pb "github.com/godilite/service-audit/api/v1"
	"github.com/godilite/service-audit/internal/scoring"
	"github.com/godilite/service-audit/internal/service"
)

const (
	defaultCacheDuration = 10 * time.Minute
	defaultGRPCTimeout   = 10 * time.Second
	dashboardWindow      = 30 * 24 * time.Hour

	dateLayout = "2006-01-02"
)

// Identity metadata set by the fronting auth proxy.
const (
	MetadataUserID       = "x-user-id"
	MetadataUserRole     = "x-user-role"
	MetadataDepartmentID = "x-department-id"
)

type CacheKeyType string

const (
	cacheKeyRanking      CacheKeyType = "grpc:ranking"
	cacheKeyAnalystStats CacheKeyType = "grpc:analyst_stats"
	cacheKeyDashboard    CacheKeyType = "grpc:dashboard"
)

type GRPCHandlers struct {
	pb.UnimplementedAuditScoringServer
	audits   AuditAnalytics
	cache    Cacher
	versions *CacheVersions
	logger   *zap.Logger
	sfGroup  singleflight.Group
	cacheTTL time.Duration
	now      func() time.Time
}

// NewGRPCHandlers initializes the gRPC handlers. A nil cache serves every call from the service.
func NewGRPCHandlers(audits AuditAnalytics, cache Cacher, logger *zap.Logger, ttl time.Duration) *GRPCHandlers {
	if audits == nil {
		panic("nil AuditAnalytics provided to NewGRPCHandlers")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = defaultCacheDuration
	}
	return &GRPCHandlers{
		audits:   audits,
		cache:    cache,
		versions: NewCacheVersions(cache, logger),
		logger:   logger.Named("grpc-handler"),
		cacheTTL: ttl,
		now:      time.Now,
	}
}

// actorFromContext reads the caller identity from request metadata.
func actorFromContext(ctx context.Context) (service.Actor, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return service.Actor{}, status.Error(codes.Unauthenticated, "missing identity metadata")
	}
	first := func(key string) string {
		if v := md.Get(key); len(v) > 0 {
			return v[0]
		}
		return ""
	}

	userID, err := strconv.ParseInt(first(MetadataUserID), 10, 64)
	if err != nil || userID <= 0 {
		return service.Actor{}, status.Error(codes.Unauthenticated, "invalid or missing "+MetadataUserID)
	}
	deptID, err := strconv.ParseInt(first(MetadataDepartmentID), 10, 64)
	if err != nil || deptID <= 0 {
		return service.Actor{}, status.Error(codes.Unauthenticated, "invalid or missing "+MetadataDepartmentID)
	}
	role := first(MetadataUserRole)
	if role == "" {
		return service.Actor{}, status.Error(codes.Unauthenticated, "missing "+MetadataUserRole)
	}
	return service.Actor{UserID: userID, Role: role, DepartmentID: deptID}, nil
}

// parsePeriod converts optional timestamps to inclusive service dates.
func parsePeriod(req *pb.TimePeriodRequest) (from, to string, err error) {
	var start, end time.Time
	if ts := req.GetStartDate(); ts != nil {
		start = ts.AsTime()
		from = start.UTC().Format(dateLayout)
	}
	if ts := req.GetEndDate(); ts != nil {
		end = ts.AsTime()
		to = end.UTC().Format(dateLayout)
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return "", "", status.Error(codes.InvalidArgument, "end date must be after start date")
	}
	return from, to, nil
}

// scopeKey keeps analyst-scoped results apart from department-wide ones.
func scopeKey(actor service.Actor) string {
	if actor.IsAnalyst() {
		return "analyst-" + strconv.FormatInt(actor.UserID, 10)
	}
	return "team"
}

func normalizeKey(prefix CacheKeyType, actor service.Actor, version string, parts ...string) string {
	key := fmt.Sprintf("%s:%d:%s:%s", prefix, actor.DepartmentID, version, scopeKey(actor))
	for _, p := range parts {
		if p == "" {
			p = "-"
		}
		key += ":" + p
	}
	return key
}

// cacheFor resolves the cache and the versioned key for a read. Without a
// readable version the read bypasses the cache.
func (s *GRPCHandlers) cacheFor(ctx context.Context, prefix CacheKeyType, actor service.Actor, parts ...string) (Cacher, string) {
	if s.cache == nil {
		return nil, ""
	}
	version, err := s.versions.Current(ctx, actor.DepartmentID)
	if err != nil {
		s.logger.Warn("cache version unavailable, reading through",
			zap.Int64("department_id", actor.DepartmentID), zap.Error(err))
		return nil, ""
	}
	return s.cache, normalizeKey(prefix, actor, version, parts...)
}

func (s *GRPCHandlers) handleError(ctx context.Context, op string, err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch ctx.Err() {
	case context.Canceled:
		s.logger.Warn("request canceled", zap.String("op", op))
		return status.Error(codes.Canceled, "request canceled")
	case context.DeadlineExceeded:
		s.logger.Warn("request timeout", zap.String("op", op))
		return status.Error(codes.DeadlineExceeded, "request timed out")
	}

	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrNotFound):
		s.logger.Info("not found", zap.String("op", op), zap.Error(err))
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, service.ErrForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, service.ErrStorageFailure):
		s.logger.Error("storage failure", zap.String("op", op), zap.Error(err))
		return status.Error(codes.Internal, "database error")
	default:
		s.logger.Error("unexpected error", zap.String("op", op), zap.Error(err))
		return status.Errorf(codes.Internal, "%s failed: %v", op, err)
	}
}

func (s *GRPCHandlers) ScoreCriteria(ctx context.Context, req *pb.ScoreCriteriaRequest) (*pb.ScoreCriteriaResponse, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	set, err := scoring.FromValues(req.GetValues())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	preview, err := s.audits.ScorePreview(ctx, actor, set)
	if err != nil {
		return nil, s.handleError(ctx, "ScoreCriteria", err)
	}
	return &pb.ScoreCriteriaResponse{
		Points:                   int32(preview.Points),
		Percent:                  int32(preview.Percent),
		Grade:                    preview.Grade,
		Classification:           string(preview.Classification),
		ClassificationDisplay:    preview.ClassificationDisplay,
		RequiresAction:           preview.RequiresAction,
		MinimumAcceptablePercent: preview.MinimumAcceptablePercent,
	}, nil
}

func (s *GRPCHandlers) GetRanking(ctx context.Context, req *pb.TimePeriodRequest) (*pb.RankingResponse, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	// checked before the cache so that a cached ranking is never served to an analyst
	if !actor.CanManage() {
		return nil, status.Error(codes.PermissionDenied, "ranking requires a manager or administrator")
	}
	from, to, err := parsePeriod(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	cache, key := s.cacheFor(ctx, cacheKeyRanking, actor, from, to)
	ranking, err := FindAndCache(ctx, cache, &s.sfGroup, key, s.cacheTTL, s.logger, func(fetchCtx context.Context) ([]service.RankingEntry, error) {
		return s.audits.Ranking(fetchCtx, actor, from, to)
	})
	if err != nil {
		return nil, s.handleError(ctx, "GetRanking", err)
	}

	entries := make([]*pb.RankingEntry, len(ranking))
	for i, e := range ranking {
		entries[i] = &pb.RankingEntry{
			Position:                  int32(e.Position),
			AnalystId:                 e.AnalystID,
			Username:                  e.Username,
			Name:                      e.Name,
			TotalAudits:               int64(e.TotalAudits),
			MeanGrade:                 e.MeanGrade,
			MeanPoints:                e.MeanPoints,
			PredominantClassification: string(e.PredominantClassification),
		}
	}
	return &pb.RankingResponse{Entries: entries}, nil
}

func (s *GRPCHandlers) GetAnalystStats(ctx context.Context, req *pb.AnalystStatsRequest) (*pb.AnalystStatsResponse, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if !actor.CanManage() {
		return nil, status.Error(codes.PermissionDenied, "analyst statistics require a manager or administrator")
	}
	if req.GetAnalystId() <= 0 {
		return nil, status.Error(codes.InvalidArgument, "analyst_id is required")
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	cache, key := s.cacheFor(ctx, cacheKeyAnalystStats, actor, strconv.FormatInt(req.GetAnalystId(), 10))
	stats, err := FindAndCache(ctx, cache, &s.sfGroup, key, s.cacheTTL, s.logger, func(fetchCtx context.Context) (service.AnalystStats, error) {
		return s.audits.AnalystStats(fetchCtx, actor, req.GetAnalystId())
	})
	if err != nil {
		return nil, s.handleError(ctx, "GetAnalystStats", err)
	}

	out := &pb.AnalystStatsResponse{
		AnalystId:    stats.Analyst.ID,
		Username:     stats.Analyst.Username,
		Name:         stats.Analyst.FullName,
		TotalAudits:  int64(stats.TotalAudits),
		MeanGrade:    stats.MeanGrade,
		Distribution: mapDistribution(stats.Distribution),
		HasAlerts:    stats.HasAlerts,
	}
	if last := stats.LastAudit; last != nil {
		out.LastAudit = &pb.LastAudit{
			Id:             last.ID,
			Grade:          last.Grade,
			Classification: last.Classification,
		}
		if d, err := time.Parse(dateLayout, last.Date); err == nil {
			out.LastAudit.CreatedAt = timestamppb.New(d)
		}
	}
	return out, nil
}

func (s *GRPCHandlers) GetDashboard(ctx context.Context, req *pb.TimePeriodRequest) (*pb.DashboardResponse, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if req.GetEndDate() == nil {
		req = &pb.TimePeriodRequest{StartDate: req.GetStartDate(), EndDate: timestamppb.New(s.now())}
	}
	if req.GetStartDate() == nil {
		req.StartDate = timestamppb.New(req.GetEndDate().AsTime().Add(-dashboardWindow))
	}
	from, to, err := parsePeriod(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	cache, key := s.cacheFor(ctx, cacheKeyDashboard, actor, from, to)
	d, err := FindAndCache(ctx, cache, &s.sfGroup, key, s.cacheTTL, s.logger, func(fetchCtx context.Context) (service.Dashboard, error) {
		return s.audits.Dashboard(fetchCtx, actor, from, to)
	})
	if err != nil {
		return nil, s.handleError(ctx, "GetDashboard", err)
	}

	out := &pb.DashboardResponse{
		StartDate:          req.GetStartDate(),
		EndDate:            req.GetEndDate(),
		TotalAudits:        int64(d.TotalAudits),
		MeanGrade:          d.MeanGrade,
		Distribution:       mapDistribution(d.Distribution),
		TotalAlerts:        int64(d.TotalAlerts),
		AnalystsWithAlerts: make([]*pb.AnalystRef, len(d.AnalystsWithAlerts)),
		Top:                make([]*pb.TopAnalyst, len(d.Top3)),
	}
	for i, a := range d.AnalystsWithAlerts {
		out.AnalystsWithAlerts[i] = &pb.AnalystRef{Id: a.ID, Username: a.Username, Name: a.FullName}
	}
	for i, a := range d.Top3 {
		out.Top[i] = &pb.TopAnalyst{Id: a.ID, Username: a.Username, Name: a.Name, MeanGrade: a.MeanGrade}
	}
	return out, nil
}

// mapDistribution lists every classification from best to worst.
func mapDistribution(d service.Distribution) []*pb.ClassificationCount {
	out := make([]*pb.ClassificationCount, len(scoring.Classifications))
	for i, c := range scoring.Classifications {
		out[i] = &pb.ClassificationCount{Classification: string(c), Count: int64(d[c])}
	}
	return out
}
