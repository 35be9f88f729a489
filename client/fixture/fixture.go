// SPDX-License-Identifier: ice License 1.0

package fixture

import (
	"log"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/nbd-wtf/go-nostr"

	"github.com/ice-blockchain/subzero-client/model"
)

// WithRejection makes the relay answer OK false with the returned reason whenever it is not empty.
func WithRejection(reject func(*model.Event) string) Option {
	return func(m *MockRelay) {
		m.reject = reject
	}
}

// WithEvents preloads stored events.
func WithEvents(events ...*model.Event) Option {
	return func(m *MockRelay) {
		m.events = append(m.events, events...)
	}
}

func NewMockRelay(opts ...Option) *MockRelay {
	gin.SetMode(gin.TestMode)
	m := &MockRelay{conns: make(map[*relayConn]struct{})}
	for _, opt := range opts {
		opt(m)
	}
	router := gin.New()
	router.GET("/", m.upgrade)
	m.server = httptest.NewServer(router)

	return m
}

func (m *MockRelay) URL() string {
	return "ws" + strings.TrimPrefix(m.server.URL, "http")
}

// Close disconnects every client and stops the server.
func (m *MockRelay) Close() {
	m.Disconnect(ws.StatusGoingAway, "shutdown")
	m.server.Close()
	m.wg.Wait()
}

// Disconnect sends a close frame with code to every client and drops the connections.
func (m *MockRelay) Disconnect(code ws.StatusCode, reason string) {
	m.connsMx.Lock()
	conns := make([]*relayConn, 0, len(m.conns))
	for c := range m.conns {
		conns = append(conns, c)
	}
	m.connsMx.Unlock()
	for _, c := range conns {
		_ = c.write(ws.OpClose, ws.NewCloseFrameBody(code, reason)) //nolint:errcheck // The client may be gone.
		_ = c.conn.Close()
	}
}

// Broadcast writes a raw frame to every client.
func (m *MockRelay) Broadcast(frame []byte) {
	m.connsMx.Lock()
	defer m.connsMx.Unlock()
	for c := range m.conns {
		if err := c.write(ws.OpText, frame); err != nil {
			log.Printf("WARN: failed to broadcast: %v", err)
		}
	}
}

// Received returns copies of the frames clients sent so far, in arrival order.
func (m *MockRelay) Received(labels ...model.EnvelopeType) [][]byte {
	m.receivedMx.Lock()
	defer m.receivedMx.Unlock()
	frames := make([][]byte, 0, len(m.received))
	for _, frame := range m.received {
		if len(labels) > 0 && !hasLabel(frame, labels) {
			continue
		}
		frames = append(frames, append([]byte(nil), frame...))
	}

	return frames
}

func (m *MockRelay) Events() []*model.Event {
	m.eventsMx.Lock()
	defer m.eventsMx.Unlock()

	return append([]*model.Event(nil), m.events...)
}

func (m *MockRelay) upgrade(ctx *gin.Context) {
	conn, _, _, err := ws.UpgradeHTTP(ctx.Request, ctx.Writer)
	if err != nil {
		log.Printf("ERROR:%v", errors.Wrap(err, "upgrading http connection to websocket failed"))
		ctx.Status(http.StatusBadRequest)

		return
	}
	c := &relayConn{conn: conn, subscriptions: make(map[string]model.Filters)}
	m.connsMx.Lock()
	m.conns[c] = struct{}{}
	m.connsMx.Unlock()
	m.Connected.Add(1)
	m.wg.Add(1)
	go m.serve(c)
}

func (m *MockRelay) serve(c *relayConn) {
	defer m.wg.Done()
	defer func() {
		m.connsMx.Lock()
		delete(m.conns, c)
		m.connsMx.Unlock()
		_ = c.conn.Close() //nolint:errcheck // .
	}()
	for {
		data, op, err := wsutil.ReadClientData(c.conn)
		if err != nil {
			return
		}
		if op != ws.OpText || len(data) == 0 {
			continue
		}
		m.receivedMx.Lock()
		m.received = append(m.received, data)
		m.receivedMx.Unlock()
		if err = m.handle(c, data); err != nil {
			log.Printf("ERROR:%v", err)
		}
	}
}

func (m *MockRelay) handle(c *relayConn, data []byte) error {
	switch envelope := nostr.ParseMessage(data).(type) {
	case *nostr.EventEnvelope:
		return m.handleEvent(c, data)
	case *nostr.ReqEnvelope:
		return m.handleReq(c, envelope.SubscriptionID, model.FromNostrFilters(envelope.Filters))
	case *nostr.CloseEnvelope:
		c.subsMx.Lock()
		delete(c.subscriptions, string(*envelope))
		c.subsMx.Unlock()

		return nil
	default:
		return c.writeEnvelope(ptr(nostr.NoticeEnvelope("unknown message")))
	}
}

func (m *MockRelay) handleEvent(c *relayConn, data []byte) error {
	var envelope model.EventEnvelope
	if err := envelope.UnmarshalJSON(data); err != nil {
		return c.writeEnvelope(ptr(nostr.NoticeEnvelope("invalid: " + err.Error())))
	}
	ev := envelope.Event
	if m.Silent.Load() {
		return nil
	}
	if genuine, err := ev.ToNostr().CheckSignature(); err != nil || !genuine {
		return c.writeEnvelope(&nostr.OKEnvelope{EventID: ev.ID, OK: false, Reason: "invalid: bad signature"})
	}
	if m.reject != nil {
		if reason := m.reject(ev); reason != "" {
			return c.writeEnvelope(&nostr.OKEnvelope{EventID: ev.ID, OK: false, Reason: reason})
		}
	}
	m.eventsMx.Lock()
	m.events = append(m.events, ev)
	m.eventsMx.Unlock()
	if err := c.writeEnvelope(&nostr.OKEnvelope{EventID: ev.ID, OK: true}); err != nil {
		return err
	}
	m.push(ev)

	return nil
}

func (m *MockRelay) handleReq(c *relayConn, subID string, filters model.Filters) error {
	c.subsMx.Lock()
	c.subscriptions[subID] = filters
	c.subsMx.Unlock()
	for _, ev := range m.Events() {
		if !filters.Match(ev) {
			continue
		}
		if err := c.writeEnvelope(&nostr.EventEnvelope{SubscriptionID: &subID, Event: *ev.ToNostr()}); err != nil {
			return err
		}
	}

	return c.writeEnvelope(ptr(nostr.EOSEEnvelope(subID)))
}

func (m *MockRelay) push(ev *model.Event) {
	m.connsMx.Lock()
	defer m.connsMx.Unlock()
	for c := range m.conns {
		c.subsMx.Lock()
		for subID, filters := range c.subscriptions {
			if !filters.Match(ev) {
				continue
			}
			if err := c.writeEnvelope(&nostr.EventEnvelope{SubscriptionID: &subID, Event: *ev.ToNostr()}); err != nil {
				log.Printf("WARN: failed to push event %v: %v", ev.ID, err)
			}
		}
		c.subsMx.Unlock()
	}
}

func (c *relayConn) writeEnvelope(envelope nostr.Envelope) error {
	data, err := envelope.MarshalJSON()
	if err != nil {
		return errors.Wrapf(err, "failed to encode %v", envelope.Label())
	}

	return c.write(ws.OpText, data)
}

func (c *relayConn) write(op ws.OpCode, data []byte) error {
	c.writeMx.Lock()
	defer c.writeMx.Unlock()

	return errors.Wrap(wsutil.WriteServerMessage(c.conn, op, data), "failed to write frame")
}

func hasLabel(frame []byte, labels []model.EnvelopeType) bool {
	for _, label := range labels {
		if strings.HasPrefix(string(frame), `["`+string(label)+`"`) {
			return true
		}
	}

	return false
}

func ptr[T any](v T) *T {
	return &v
}
