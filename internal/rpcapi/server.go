package rpcapi

import (
	"context"
	"errors"
	"net"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"

	"github.com/usageledger/ledgerd/internal/domain"
	"github.com/usageledger/ledgerd/internal/state"
)

// NodeAdapter implements LedgerServer over a NodeView, translating between
// the map-keyed state container and the flat request/response messages.
type NodeAdapter struct {
	node NodeView
	now  func() int64
}

// NewNodeAdapter wraps node. now supplies the wall-clock Submit needs for
// Live-mode validation.
func NewNodeAdapter(node NodeView, now func() int64) *NodeAdapter {
	return &NodeAdapter{node: node, now: now}
}

var _ LedgerServer = (*NodeAdapter)(nil)

func (a *NodeAdapter) Submit(ctx context.Context, req *SubmitRequest) (*SubmitResponse, error) {
	now := a.now()
	txCtx := domain.Context{Mode: domain.ModeLive, Now: &now, MaxAge: req.MaxAgeSecs}
	a.node.View(func(st *state.State) { txCtx.Minters = st.AuthorizedMinters })

	hints, err := a.node.Submit(ctx, req.Transaction, txCtx)
	if err != nil {
		return nil, err
	}
	return &SubmitResponse{ClaimID: hints.ClaimID}, nil
}

func (a *NodeAdapter) GetSettlement(ctx context.Context, req *GetSettlementRequest) (*GetSettlementResponse, error) {
	var resp GetSettlementResponse
	a.node.View(func(st *state.State) {
		resp.Settlement, resp.Found = st.Settlements[req.Key]
	})
	return &resp, nil
}

func (a *NodeAdapter) GetClaim(ctx context.Context, req *GetClaimRequest) (*GetClaimResponse, error) {
	var resp GetClaimResponse
	a.node.View(func(st *state.State) {
		resp.Claim, resp.Found = st.Claims[req.ClaimID]
	})
	return &resp, nil
}

func (a *NodeAdapter) GetDispute(ctx context.Context, req *GetDisputeRequest) (*GetDisputeResponse, error) {
	var resp GetDisputeResponse
	a.node.View(func(st *state.State) {
		resp.Dispute, resp.Found = st.Disputes[req.Key]
	})
	return &resp, nil
}

// ServerConfig configures the gRPC listener, mirroring the teacher's
// grpc.ServerConfig fields this package actually uses.
type ServerConfig struct {
	Address        string
	MaxRecvMsgSize int
	MaxSendMsgSize int
}

// DefaultServerConfig returns sane message-size limits for a single-node
// ledger (no large batch RPCs expected).
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Address:        "127.0.0.1:8081",
		MaxRecvMsgSize: 4 << 20,
		MaxSendMsgSize: 4 << 20,
	}
}

// Server wraps a grpc.Server bound to one LedgerServer implementation.
type Server struct {
	mu         sync.RWMutex
	grpcServer *grpc.Server
	config     *ServerConfig
	listener   net.Listener
	running    bool
}

// NewServer builds a gRPC server serving srv, forcing every call onto the
// cbor codec registered in codec.go rather than protobuf's default.
func NewServer(cfg *ServerConfig, srv LedgerServer) *Server {
	if cfg == nil {
		cfg = DefaultServerConfig()
	}
	opts := []grpc.ServerOption{
		grpc.MaxRecvMsgSize(cfg.MaxRecvMsgSize),
		grpc.MaxSendMsgSize(cfg.MaxSendMsgSize),
		grpc.ForceServerCodec(encoding.GetCodec(codecName)),
	}
	grpcServer := grpc.NewServer(opts...)
	RegisterLedgerServer(grpcServer, srv)
	return &Server{grpcServer: grpcServer, config: cfg}
}

// Start listens on cfg.Address and blocks serving until the server is
// stopped or the listener fails.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("rpcapi: server already running")
	}
	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.listener = listener
	s.running = true
	s.mu.Unlock()

	return s.grpcServer.Serve(listener)
}

// Stop gracefully drains in-flight RPCs before returning.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.grpcServer.GracefulStop()
	s.running = false
}
