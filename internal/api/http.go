package api

import (
	"encoding/json"
	"net/http"

	"github.com/usageledger/ledgerd/internal/domain"
	"github.com/usageledger/ledgerd/internal/ledgererr"
	"github.com/usageledger/ledgerd/internal/state"
)

// Server wires a Node and its Publisher into an http.Handler. Routing is
// plain net/http: this domain's surface is small (one submit endpoint, a
// handful of read endpoints) and nothing in the example pack pulls in a
// third-party router, so stdlib ServeMux is the idiomatic choice here.
type Server struct {
	node *Node
	now  func() int64
	mux  *http.ServeMux
}

// NewServer builds the HTTP handler. now supplies the wall-clock Live mode
// needs; callers pass a real clock in production and a fixed function in
// tests.
func NewServer(node *Node, now func() int64) *Server {
	s := &Server{node: node, now: now, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

func (s *Server) routes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/v1/transactions", s.handleSubmit)
	s.mux.HandleFunc("/v1/accounts/", s.handleAccount)
	s.mux.HandleFunc("/v1/meters/", s.handleMeter)
	s.mux.HandleFunc("/v1/settlements/", s.handleSettlement)
	s.mux.HandleFunc("/v1/claims/", s.handleClaim)
	s.mux.HandleFunc("/v1/disputes/", s.handleDispute)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "ledgerd"})
}

// submitRequest is the wire shape accepted by POST /v1/transactions: the
// transaction itself, plus the Live-mode ambient fields the caller must
// supply since the engine never reads a clock.
type submitRequest struct {
	Transaction domain.Transaction `json:"transaction"`
	MaxAgeSecs  *uint64            `json:"max_age_secs,omitempty"`
}

type submitResponse struct {
	ClaimID string `json:"claim_id,omitempty"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ledgererr.New(ledgererr.InvalidTransaction, "malformed request body"))
		return
	}

	now := s.now()
	txCtx := domain.Context{Mode: domain.ModeLive, Now: &now, MaxAge: req.MaxAgeSecs}
	s.node.View(func(st *state.State) {
		txCtx.Minters = st.AuthorizedMinters
	})

	hints, err := s.node.Submit(r.Context(), req.Transaction, txCtx)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{ClaimID: hints.ClaimID})
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	addr := domain.Address(pathSuffix(r.URL.Path, "/v1/accounts/"))
	var (
		acct domain.Account
		ok   bool
	)
	s.node.View(func(st *state.State) { acct, ok = st.Accounts[addr] })
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

func (s *Server) handleMeter(w http.ResponseWriter, r *http.Request) {
	owner, service, ok := splitOwnerService(pathSuffix(r.URL.Path, "/v1/meters/"))
	if !ok {
		http.Error(w, "expected /v1/meters/{owner}/{service_id}", http.StatusBadRequest)
		return
	}
	key := domain.MeterKey{Owner: owner, ServiceID: service}
	var (
		meter domain.Meter
		found bool
	)
	s.node.View(func(st *state.State) { meter, found = st.Meters[key] })
	if !found {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, meter)
}

func (s *Server) handleSettlement(w http.ResponseWriter, r *http.Request) {
	owner, service, window, ok := splitSettlementPath(pathSuffix(r.URL.Path, "/v1/settlements/"))
	if !ok {
		http.Error(w, "expected /v1/settlements/{owner}/{service_id}/{window_id}", http.StatusBadRequest)
		return
	}
	key := domain.SettlementKey{Owner: owner, ServiceID: service, WindowID: window}
	var (
		settlement domain.Settlement
		found      bool
	)
	s.node.View(func(st *state.State) { settlement, found = st.Settlements[key] })
	if !found {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, settlement)
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	claimID := pathSuffix(r.URL.Path, "/v1/claims/")
	var (
		claim domain.Claim
		found bool
	)
	s.node.View(func(st *state.State) { claim, found = st.Claims[claimID] })
	if !found {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, claim)
}

func (s *Server) handleDispute(w http.ResponseWriter, r *http.Request) {
	owner, service, window, ok := splitSettlementPath(pathSuffix(r.URL.Path, "/v1/disputes/"))
	if !ok {
		http.Error(w, "expected /v1/disputes/{owner}/{service_id}/{window_id}", http.StatusBadRequest)
		return
	}
	key := domain.SettlementKey{Owner: owner, ServiceID: service, WindowID: window}
	var (
		dispute domain.Dispute
		found   bool
	)
	s.node.View(func(st *state.State) { dispute, found = st.Disputes[key] })
	if !found {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, dispute)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	body := map[string]string{"error": err.Error()}
	if le, ok := err.(*ledgererr.Error); ok {
		body["code"] = string(le.Code)
	}
	writeJSON(w, status, body)
}
