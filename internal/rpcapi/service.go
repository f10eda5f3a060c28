package rpcapi

import (
	"context"

	"google.golang.org/grpc"

	"github.com/usageledger/ledgerd/internal/domain"
	"github.com/usageledger/ledgerd/internal/state"
)

// LedgerServer is implemented by internal/api.Node (via the adapter in
// server.go) and is the interface the hand-written ServiceDesc below
// dispatches to.
type LedgerServer interface {
	Submit(ctx context.Context, req *SubmitRequest) (*SubmitResponse, error)
	GetSettlement(ctx context.Context, req *GetSettlementRequest) (*GetSettlementResponse, error)
	GetClaim(ctx context.Context, req *GetClaimRequest) (*GetClaimResponse, error)
	GetDispute(ctx context.Context, req *GetDisputeRequest) (*GetDisputeResponse, error)
}

// NodeView is the subset of internal/api.Node this package depends on,
// kept narrow so rpcapi never imports internal/api and creates a cycle.
type NodeView interface {
	Submit(ctx context.Context, tx domain.Transaction, txCtx domain.Context) (domain.ApplyHints, error)
	View(fn func(*state.State))
}

// ServiceName is the gRPC service name clients dial against.
const ServiceName = "ledgerd.v1.Ledger"

// ServiceDesc is the hand-written equivalent of a protoc-generated
// _grpc.pb.go ServiceDesc: method name -> handler, bound to whatever
// LedgerServer implementation RegisterLedgerServer is given.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LedgerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Submit", Handler: submitHandler},
		{MethodName: "GetSettlement", Handler: getSettlementHandler},
		{MethodName: "GetClaim", Handler: getClaimHandler},
		{MethodName: "GetDispute", Handler: getDisputeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ledgerd/rpcapi/service.go",
}

// RegisterLedgerServer registers srv against s the way a generated
// RegisterLedgerServer function would.
func RegisterLedgerServer(s *grpc.Server, srv LedgerServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func submitHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(SubmitRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LedgerServer).Submit(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Submit"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(LedgerServer).Submit(ctx, req.(*SubmitRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getSettlementHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetSettlementRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LedgerServer).GetSettlement(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/GetSettlement"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(LedgerServer).GetSettlement(ctx, req.(*GetSettlementRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getClaimHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetClaimRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LedgerServer).GetClaim(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/GetClaim"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(LedgerServer).GetClaim(ctx, req.(*GetClaimRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getDisputeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetDisputeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LedgerServer).GetDispute(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/GetDispute"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(LedgerServer).GetDispute(ctx, req.(*GetDisputeRequest))
	}
	return interceptor(ctx, in, info, handler)
}
