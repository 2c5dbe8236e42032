package v1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	AuditScoring_ScoreCriteria_FullMethodName   = "/audit.v1.AuditScoring/ScoreCriteria"
	AuditScoring_GetRanking_FullMethodName      = "/audit.v1.AuditScoring/GetRanking"
	AuditScoring_GetAnalystStats_FullMethodName = "/audit.v1.AuditScoring/GetAnalystStats"
	AuditScoring_GetDashboard_FullMethodName    = "/audit.v1.AuditScoring/GetDashboard"
)

// AuditScoringClient is the client API for the AuditScoring service.
type AuditScoringClient interface {
	ScoreCriteria(ctx context.Context, in *ScoreCriteriaRequest, opts ...grpc.CallOption) (*ScoreCriteriaResponse, error)
	GetRanking(ctx context.Context, in *TimePeriodRequest, opts ...grpc.CallOption) (*RankingResponse, error)
	GetAnalystStats(ctx context.Context, in *AnalystStatsRequest, opts ...grpc.CallOption) (*AnalystStatsResponse, error)
	GetDashboard(ctx context.Context, in *TimePeriodRequest, opts ...grpc.CallOption) (*DashboardResponse, error)
}

type auditScoringClient struct {
	cc grpc.ClientConnInterface
}

func NewAuditScoringClient(cc grpc.ClientConnInterface) AuditScoringClient {
	return &auditScoringClient{cc}
}

func (c *auditScoringClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, method, in, out, opts...)
}

func (c *auditScoringClient) ScoreCriteria(ctx context.Context, in *ScoreCriteriaRequest, opts ...grpc.CallOption) (*ScoreCriteriaResponse, error) {
	out := new(ScoreCriteriaResponse)
	if err := c.invoke(ctx, AuditScoring_ScoreCriteria_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *auditScoringClient) GetRanking(ctx context.Context, in *TimePeriodRequest, opts ...grpc.CallOption) (*RankingResponse, error) {
	out := new(RankingResponse)
	if err := c.invoke(ctx, AuditScoring_GetRanking_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *auditScoringClient) GetAnalystStats(ctx context.Context, in *AnalystStatsRequest, opts ...grpc.CallOption) (*AnalystStatsResponse, error) {
	out := new(AnalystStatsResponse)
	if err := c.invoke(ctx, AuditScoring_GetAnalystStats_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *auditScoringClient) GetDashboard(ctx context.Context, in *TimePeriodRequest, opts ...grpc.CallOption) (*DashboardResponse, error) {
	out := new(DashboardResponse)
	if err := c.invoke(ctx, AuditScoring_GetDashboard_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

// AuditScoringServer is the server API for the AuditScoring service.
type AuditScoringServer interface {
	ScoreCriteria(context.Context, *ScoreCriteriaRequest) (*ScoreCriteriaResponse, error)
	GetRanking(context.Context, *TimePeriodRequest) (*RankingResponse, error)
	GetAnalystStats(context.Context, *AnalystStatsRequest) (*AnalystStatsResponse, error)
	GetDashboard(context.Context, *TimePeriodRequest) (*DashboardResponse, error)
}

// UnimplementedAuditScoringServer must be embedded for forward compatibility.
type UnimplementedAuditScoringServer struct{}

func (UnimplementedAuditScoringServer) ScoreCriteria(context.Context, *ScoreCriteriaRequest) (*ScoreCriteriaResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ScoreCriteria not implemented")
}
func (UnimplementedAuditScoringServer) GetRanking(context.Context, *TimePeriodRequest) (*RankingResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetRanking not implemented")
}
func (UnimplementedAuditScoringServer) GetAnalystStats(context.Context, *AnalystStatsRequest) (*AnalystStatsResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetAnalystStats not implemented")
}
func (UnimplementedAuditScoringServer) GetDashboard(context.Context, *TimePeriodRequest) (*DashboardResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetDashboard not implemented")
}

func RegisterAuditScoringServer(s grpc.ServiceRegistrar, srv AuditScoringServer) {
	s.RegisterService(&AuditScoring_ServiceDesc, srv)
}

func _AuditScoring_ScoreCriteria_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ScoreCriteriaRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AuditScoringServer).ScoreCriteria(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: AuditScoring_ScoreCriteria_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AuditScoringServer).ScoreCriteria(ctx, req.(*ScoreCriteriaRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _AuditScoring_GetRanking_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(TimePeriodRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AuditScoringServer).GetRanking(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: AuditScoring_GetRanking_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AuditScoringServer).GetRanking(ctx, req.(*TimePeriodRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _AuditScoring_GetAnalystStats_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(AnalystStatsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AuditScoringServer).GetAnalystStats(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: AuditScoring_GetAnalystStats_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AuditScoringServer).GetAnalystStats(ctx, req.(*AnalystStatsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _AuditScoring_GetDashboard_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(TimePeriodRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AuditScoringServer).GetDashboard(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: AuditScoring_GetDashboard_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AuditScoringServer).GetDashboard(ctx, req.(*TimePeriodRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// AuditScoring_ServiceDesc is the grpc.ServiceDesc for the AuditScoring service.
// No file descriptor is registered for audit.proto and messages use the json
// codec, so server reflection lists the service but cannot describe it.
var AuditScoring_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "audit.v1.AuditScoring",
	HandlerType: (*AuditScoringServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ScoreCriteria", Handler: _AuditScoring_ScoreCriteria_Handler},
		{MethodName: "GetRanking", Handler: _AuditScoring_GetRanking_Handler},
		{MethodName: "GetAnalystStats", Handler: _AuditScoring_GetAnalystStats_Handler},
		{MethodName: "GetDashboard", Handler: _AuditScoring_GetDashboard_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "audit/v1/audit.proto",
}
