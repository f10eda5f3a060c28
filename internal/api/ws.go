package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/usageledger/ledgerd/internal/domain"
	"github.com/usageledger/ledgerd/internal/engine"
	"github.com/usageledger/ledgerd/internal/state"
)

// SettlementEvent is published whenever a settlement transitions lifecycle
// state: Proposed on ProposeSettlement, Finalized on FinalizeSettlement,
// Disputed on OpenDispute, Resolved on ResolveDispute.
type SettlementEvent struct {
	Type   string              `json:"type"`
	Owner  domain.Address      `json:"owner"`
	Service domain.ServiceID   `json:"service_id"`
	Window string              `json:"window_id"`
	Status domain.SettlementStatus `json:"status"`
}

// Publisher broadcasts settlement lifecycle events to every connected
// websocket client, grounded on the teacher's rpc.Publisher /
// rpc.WebSocketServer pair but stripped down to one event type and one
// stream (this domain has no ledger-close/order-book/peer-status
// equivalents). It implements engine.Hook's after-hooks only; its
// before-hooks never veto.
type Publisher struct {
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*websocket.Conn]chan []byte
}

// NewPublisher returns a Publisher with no connected clients.
func NewPublisher() *Publisher {
	return &Publisher{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]chan []byte),
	}
}

var _ engine.Hook = (*Publisher)(nil)

func (p *Publisher) BeforeMeterOpen(tx domain.Transaction) error  { return nil }
func (p *Publisher) BeforeConsume(tx domain.Transaction) error    { return nil }
func (p *Publisher) BeforeMeterClose(tx domain.Transaction) error { return nil }

// OnMeterOpened, OnConsumeRecorded and OnMeterClosed have no subscriber
// stream yet; meter-level events are not part of this domain's published
// surface (only settlement lifecycle transitions are).
func (p *Publisher) OnMeterOpened(tx domain.Transaction, next *state.State)     {}
func (p *Publisher) OnConsumeRecorded(tx domain.Transaction, next *state.State) {}
func (p *Publisher) OnMeterClosed(tx domain.Transaction, next *state.State)     {}

// PublishSettlementTransition is called by the Node after a
// ProposeSettlement/FinalizeSettlement/OpenDispute/ResolveDispute commits,
// with the settlement's fresh status read back out of next.
func (p *Publisher) PublishSettlementTransition(eventType string, key domain.SettlementKey, status domain.SettlementStatus) {
	evt := SettlementEvent{Type: eventType, Owner: key.Owner, Service: key.ServiceID, Window: key.WindowID, Status: status}
	data, err := json.Marshal(evt)
	if err != nil {
		log.Printf("api: marshal settlement event: %v", err)
		return
	}
	p.broadcast(data)
}

func (p *Publisher) broadcast(data []byte) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, ch := range p.clients {
		select {
		case ch <- data:
		default:
			// slow consumer, drop rather than block the publisher
		}
	}
}

// ServeHTTP upgrades the request to a websocket and registers the
// connection as a subscriber until it disconnects. This feed is
// publish-only: the ledger never accepts transactions over it.
func (p *Publisher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := p.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("api: websocket upgrade failed: %v", err)
		return
	}

	ch := make(chan []byte, 64)
	p.mu.Lock()
	p.clients[conn] = ch
	p.mu.Unlock()

	go p.writeLoop(conn, ch)
	p.readLoop(conn, ch)
}

func (p *Publisher) writeLoop(conn *websocket.Conn, ch chan []byte) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop drains and discards inbound frames, purely to detect
// disconnects; this feed takes no client input.
func (p *Publisher) readLoop(conn *websocket.Conn, ch chan []byte) {
	defer p.disconnect(conn, ch)
	conn.SetReadLimit(4096)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (p *Publisher) disconnect(conn *websocket.Conn, ch chan []byte) {
	p.mu.Lock()
	delete(p.clients, conn)
	p.mu.Unlock()
	close(ch)
	conn.Close()
}
