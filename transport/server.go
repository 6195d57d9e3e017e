package transport

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"rpcsubscriptions/pubsub"
)

// connectionBlocked gates new upgrades for a configured window, adapted
// from the teacher's BlockConnections/IsBlocked pair
// (connection_controller.go) — same atomic-flag-plus-timer idiom,
// repointed at this engine's single WebSocket endpoint instead of one
// flag per EVM chain.
var connectionBlocked atomic.Bool

// BlockConnections rejects new upgrades for duration.
func BlockConnections(duration time.Duration) {
	connectionBlocked.Store(true)
	go func() {
		time.Sleep(duration)
		connectionBlocked.Store(false)
	}()
}

// Server upgrades HTTP connections to WebSocket and speaks the
// subscribe/unsubscribe JSON-RPC surface against a pubsub.Control,
// grounded on the teacher's upgrader-plus-ConnectionTracker pattern in
// main.go/connection_tracker.go.
type Server struct {
	control  *pubsub.Control
	upgrader websocket.Upgrader
	tracker  *ConnectionTracker
}

// NewServer builds a Server bound to control.
func NewServer(control *pubsub.Control) *Server {
	return &Server{
		control: control,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		tracker: NewConnectionTracker(),
	}
}

// ServeHTTP upgrades the connection and runs its client loop until
// disconnect.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if connectionBlocked.Load() {
		http.Error(w, "connections temporarily blocked", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	s.tracker.Add()
	defer s.tracker.Remove()

	c := newClient(conn, s.control)
	c.run()
}

// ConnectionTracker counts active client connections, generalized from
// the teacher's per-chain sync.Map tracker (connection_tracker.go) down
// to a single counter since this engine serves one logical chain.
type ConnectionTracker struct {
	mu    sync.Mutex
	count int
}

func NewConnectionTracker() *ConnectionTracker { return &ConnectionTracker{} }

func (t *ConnectionTracker) Add() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count++
}

func (t *ConnectionTracker) Remove() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count--
}

func (t *ConnectionTracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// client bridges one WebSocket connection to Control: a read loop
// parses subscribe/unsubscribe calls, a forward loop drains the
// client's broadcast receiver and filters to its own subscriptions, and
// a single write pump owns the socket (gorilla/websocket requires at
// most one concurrent writer) — grounded on adred-codev-ws_poc's
// Hub/Client split between a per-client outbound channel and a
// dedicated writer goroutine.
type client struct {
	conn    *websocket.Conn
	control *pubsub.Control

	send       chan []byte
	unregister func()

	mu          sync.Mutex
	subscribed  map[uint64]bool
}

func newClient(conn *websocket.Conn, control *pubsub.Control) *client {
	return &client{
		conn:       conn,
		control:    control,
		send:       make(chan []byte, 256),
		subscribed: make(map[uint64]bool),
	}
}

func (c *client) run() {
	receiver, unregister := c.control.Receiver()
	c.unregister = unregister
	defer unregister()
	defer close(c.send)
	defer c.conn.Close()

	go c.writePump()
	go c.forwardPump(receiver)

	c.readPump()
}

func (c *client) readPump() {
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.handleRequest(raw)
	}
}

func (c *client) handleRequest(raw []byte) {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		c.reply(errorResponse(nil, codeParseError, "parse error"))
		return
	}

	resp := c.dispatch(req)
	c.reply(resp)
}

func (c *client) dispatch(req Request) Response {
	switch req.Method {
	case "accountSubscribe":
		return c.subscribe(req, parseAccountParams)
	case "programSubscribe":
		return c.subscribe(req, parseProgramParams)
	case "logsSubscribe":
		return c.subscribe(req, parseLogsParams)
	case "signatureSubscribe":
		return c.subscribe(req, parseSignatureParams)
	case "slotSubscribe":
		return c.subscribeSingleton(req, &pubsub.SlotParams{})
	case "slotsUpdatesSubscribe":
		return c.subscribeSingleton(req, &pubsub.SlotsUpdatesParams{})
	case "rootSubscribe":
		return c.subscribeSingleton(req, &pubsub.RootParams{})
	case "voteSubscribe":
		return c.subscribeSingleton(req, &pubsub.VoteParams{})
	case "accountUnsubscribe", "programUnsubscribe", "logsUnsubscribe",
		"signatureUnsubscribe", "slotUnsubscribe", "slotsUpdatesUnsubscribe",
		"rootUnsubscribe", "voteUnsubscribe":
		return c.unsubscribe(req)
	default:
		return errorResponse(req.ID, codeMethodNotFound, "method not found: "+req.Method)
	}
}

type paramParser func(json.RawMessage) (pubsub.SubscriptionParams, error)

func (c *client) subscribe(req Request, parse paramParser) Response {
	params, err := parse(req.Params)
	if err != nil {
		return errorResponse(req.ID, codeInvalidParams, err.Error())
	}
	return c.doSubscribe(req, params)
}

// subscribeSingleton wraps pubsub's no-argument singleton param structs
// (spec I2); they implement pubsub.SubscriptionParams directly, so no
// wire-parameter parsing is required.
func (c *client) subscribeSingleton(req Request, params pubsub.SubscriptionParams) Response {
	return c.doSubscribe(req, params)
}

func (c *client) doSubscribe(req Request, params pubsub.SubscriptionParams) Response {
	id, err := c.control.Subscribe(params)
	if err != nil {
		return errorResponse(req.ID, codeServerError, err.Error())
	}

	c.mu.Lock()
	c.subscribed[id] = true
	c.mu.Unlock()

	return resultResponse(req.ID, id)
}

func (c *client) unsubscribe(req Request) Response {
	id, err := parseUnsubscribeID(req.Params)
	if err != nil {
		return errorResponse(req.ID, codeInvalidParams, err.Error())
	}

	ok := c.control.Unsubscribe(id)

	c.mu.Lock()
	delete(c.subscribed, id)
	c.mu.Unlock()

	return resultResponse(req.ID, ok)
}

func (c *client) reply(resp Response) {
	body, err := json.Marshal(resp)
	if err != nil {
		slog.Error("failed to marshal JSON-RPC response", "error", err)
		return
	}
	select {
	case c.send <- body:
	default:
		slog.Warn("client send buffer full, dropping response")
	}
}

// forwardPump drains the broadcast receiver shared with every other
// connected client and forwards only the messages belonging to this
// client's own subscriptions (spec §4.2, §5).
func (c *client) forwardPump(receiver <-chan pubsub.BroadcastMessage) {
	for msg := range receiver {
		c.mu.Lock()
		owned := c.subscribed[msg.SubscriptionID]
		c.mu.Unlock()
		if !owned {
			continue
		}

		body, ok := msg.Payload.Bytes()
		if !ok {
			slog.Warn("broadcast payload already evicted from recent-items buffer, dropping",
				"subscription_id", msg.SubscriptionID)
			continue
		}

		select {
		case c.send <- body:
		default:
			slog.Warn("client send buffer full, dropping notification", "subscription_id", msg.SubscriptionID)
		}

		if msg.IsFinal {
			c.mu.Lock()
			delete(c.subscribed, msg.SubscriptionID)
			c.mu.Unlock()
		}
	}
}

const writeWait = 10 * time.Second

func (c *client) writePump() {
	for body := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, body); err != nil {
			// Unblock readPump, which owns the shutdown sequence via
			// run()'s deferred close/unregister.
			c.conn.Close()
			return
		}
	}
}
