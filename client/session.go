// SPDX-License-Identifier: ice License 1.0

package client

import (
	"context"
	"io"
	"log"
	stdlibtime "time"

	"github.com/cockroachdb/errors"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/errgroup"

	"github.com/ice-blockchain/subzero-client/model"
)

func New(cfg *Config, opts ...Option) *Session {
	s := &Session{cfg: cfg.Defaults()}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = newMetrics(nil)
	}
	s.responses = make(chan *Response, s.cfg.ResponseQueueSize)

	return s
}

// Subscribe connects to the relay and registers filters under a new subscription id.
// Without filters the relay is asked for the latest events of any kind.
func (s *Session) Subscribe(ctx context.Context, filters ...model.Filter) (string, error) {
	s.stateMx.Lock()
	defer s.stateMx.Unlock()
	if r := s.current.Load(); r != nil {
		if !r.finished() {
			return "", ErrAlreadySubscribed
		}
		s.current.Store(nil)
	}
	if len(filters) == 0 {
		filters = model.Filters{*model.NewFilter()}
	}
	sub := &model.Subscription{ID: uuid.NewString(), Filters: filters}
	data, err := (&model.ReqEnvelope{SubscriptionID: sub.ID, Filters: sub.Filters}).MarshalJSON()
	if err != nil {
		return "", errors.Wrapf(err, "failed to encode subscription %v", sub.ID)
	}
	conn, err := dial(ctx, &s.cfg)
	if err != nil {
		return "", err
	}
	r := s.start(conn, sub)
	if err = s.enqueue(ctx, r, &request{label: string(model.EnvelopeTypeReq), data: data}); err != nil {
		r.cancel()
		<-r.done

		return "", errors.Wrapf(err, "failed to subscribe %v", sub.ID)
	}
	s.current.Store(r)

	return sub.ID, nil
}

// Request sends one more REQ over the running subscription's connection. The returned id is closed on Unsubscribe.
func (s *Session) Request(ctx context.Context, filters ...model.Filter) (string, error) {
	r, err := s.live()
	if err != nil {
		return "", err
	}
	if len(filters) == 0 {
		return "", errors.Wrap(model.ErrInvalidEnvelope, "REQ without filters")
	}
	id := uuid.NewString()
	data, err := (&model.ReqEnvelope{SubscriptionID: id, Filters: filters}).MarshalJSON()
	if err != nil {
		return "", errors.Wrapf(err, "failed to encode request %v", id)
	}
	r.requestedMx.Lock()
	r.requested = append(r.requested, id)
	r.requestedMx.Unlock()
	if err = s.enqueue(ctx, r, &request{label: string(model.EnvelopeTypeReq), data: data}); err != nil {
		return "", errors.Wrapf(err, "failed to request %v", id)
	}

	return id, nil
}

// SendEvent transmits a signed event. The receipt resolves with the relay's OK frame.
func (s *Session) SendEvent(ctx context.Context, ev *model.Event) (*Receipt, error) {
	if ev == nil || !ev.IsSigned() {
		return nil, ErrUnsignedEvent
	}
	if err := ev.Validate(); err != nil {
		return nil, errors.Wrapf(err, "refusing to send event %v", ev.ID)
	}
	r, err := s.live()
	if err != nil {
		return nil, err
	}
	data, err := (&model.EventEnvelope{Event: ev}).MarshalJSON()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to encode event %v", ev.ID)
	}
	receipt, loaded := r.pending.LoadOrStore(ev.ID, newReceipt(ev.ID))
	if err = s.enqueue(ctx, r, &request{label: string(model.EnvelopeTypeEvent), data: data}); err != nil {
		if !loaded {
			r.pending.Delete(ev.ID)
		}

		return nil, errors.Wrapf(err, "failed to send event %v", ev.ID)
	}

	return receipt, nil
}

// Unsubscribe closes every subscription id after the requests queued before it, then waits for the connection to stop.
func (s *Session) Unsubscribe(ctx context.Context) error {
	s.stateMx.Lock()
	defer s.stateMx.Unlock()
	r := s.current.Load()
	if r == nil {
		return ErrNotSubscribed
	}
	defer s.current.Store(nil)
	if r.finished() {
		return nil
	}
	r.requestedMx.Lock()
	ids := append(r.requested, r.subscription.ID)
	r.requested = nil
	r.requestedMx.Unlock()
	var err error
	for i, id := range ids {
		data, mErr := (&model.CloseEnvelope{SubscriptionID: id}).MarshalJSON()
		if mErr != nil {
			err = errors.Wrapf(mErr, "failed to encode CLOSE for %v", id)

			break
		}
		if err = s.enqueue(ctx, r, &request{label: string(model.EnvelopeTypeClose), data: data, stop: i == len(ids)-1}); err != nil {
			break
		}
	}

	return s.stop(ctx, r, err)
}

// Responses is the queue of frames classified by the reader. It is shared by all subscriptions of the session.
func (s *Session) Responses() <-chan *Response {
	return s.responses
}

// Err reports why the last subscription's connection stopped, if it did.
func (s *Session) Err() error {
	r := s.last.Load()
	if r == nil || !r.finished() {
		return nil
	}

	return r.err
}

// Done is closed when the running subscription's connection stops.
func (s *Session) Done() <-chan struct{} {
	if r := s.current.Load(); r != nil {
		return r.done
	}
	closed := make(chan struct{})
	close(closed)

	return closed
}

func (s *Session) Metrics() *Metrics {
	return s.metrics
}

func (s *Session) live() (*run, error) {
	r := s.current.Load()
	if r == nil || r.finished() {
		return nil, ErrNotSubscribed
	}

	return r, nil
}

func (s *Session) start(conn *wsConn, sub *model.Subscription) *run {
	ctx, cancel := context.WithCancel(context.Background())
	r := &run{
		cancel:       cancel,
		conn:         conn,
		requests:     make(chan *request, s.cfg.RequestQueueSize),
		done:         make(chan struct{}),
		trace:        newTrace(traceSize(sub.Filters)),
		pending:      xsync.NewMapOf[string, *Receipt](),
		subscription: sub,
	}
	s.last.Store(r)
	go s.supervise(ctx, r)

	return r
}

func (s *Session) supervise(ctx context.Context, r *run) {
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return s.write(gctx, r)
	})
	group.Go(func() error {
		return s.read(gctx, r)
	})
	group.Go(func() error {
		<-gctx.Done()
		_ = r.conn.Close() //nolint:errcheck // Reported by finish.

		return nil
	})
	s.finish(r, group.Wait())
}

func (s *Session) write(ctx context.Context, r *run) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-r.requests:
			err := r.conn.WriteMessage(int(ws.OpText), req.data)
			req.sent <- err
			if err != nil {
				return errors.Wrapf(err, "failed to send %v", req.label)
			}
			s.metrics.sent()
			if req.stop {
				return errStopped
			}
		}
	}
}

func (s *Session) read(ctx context.Context, r *run) error {
	for {
		messageType, data, err := r.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			return s.readFailed(err)
		}
		if ws.OpCode(messageType) != ws.OpText || len(data) == 0 {
			continue
		}
		response := s.apply(r, data)
		if response == nil {
			continue
		}
		select {
		case s.responses <- response:
		default:
			s.metrics.dropped()
			log.Printf("WARN: response queue of %v is full, dropping %v", s.cfg.URL, response.Label)
		}
	}
}

// apply classifies one relay frame. Events failing verification and repeated event ids are dropped.
func (s *Session) apply(r *run, data []byte) *Response {
	response, err := model.ParseRelayMessage(data)
	if err != nil {
		s.metrics.received("")
		s.metrics.malformed()
		log.Printf("WARN: dropping frame from %v: %v", s.cfg.URL, err)

		return nil
	}
	s.metrics.received(response.Label)
	switch response.Label { //nolint:exhaustive // Others are passed as is.
	case model.EnvelopeTypeEvent:
		if genuine, vErr := response.Event.Verify(); vErr != nil || !genuine {
			s.metrics.malformed()
			log.Printf("WARN: dropping event %v from %v: genuine:%v, err:%v", response.Event.ID, s.cfg.URL, genuine, vErr)

			return nil
		}
		if !r.trace.add(response.Event.ID) {
			s.metrics.duplicate()

			return nil
		}
	case model.EnvelopeTypeOK:
		if receipt, found := r.pending.LoadAndDelete(response.EventID); found {
			receipt.resolve(response, nil)
		}
	}

	return response
}

func (s *Session) readFailed(err error) error {
	closed := new(wsutil.ClosedError)
	if errors.As(err, closed) {
		if closed.Code != ws.StatusNormalClosure &&
			closed.Code != ws.StatusGoingAway &&
			closed.Code != ws.StatusAbnormalClosure &&
			closed.Code != ws.StatusNoStatusRcvd {
			log.Printf("WARN: unexpected close error %v: %v", closed.Code, closed.Reason)
		}

		return errors.Wrapf(ErrSessionClosed, "relay closed the connection with %v %q", closed.Code, closed.Reason)
	}
	if !errors.Is(err, io.EOF) {
		log.Printf("WARN: unexpected read error from %v: %v", s.cfg.URL, err)
	}

	return errors.Wrap(err, "failed to read from relay")
}

func (s *Session) finish(r *run, err error) {
	if errors.Is(err, errStopped) {
		err = nil
	}
	r.err = multierror.Append(err, r.conn.Close()).ErrorOrNil()
	close(r.done)
	r.pending.Range(func(id string, receipt *Receipt) bool {
		r.pending.Delete(id)
		receipt.resolve(nil, ErrSessionClosed)

		return true
	})
	for {
		select {
		case req := <-r.requests:
			req.sent <- ErrSessionClosed
		default:
			return
		}
	}
}

// stop waits for the writer to stop after the final CLOSE and forces the connection down otherwise.
func (s *Session) stop(ctx context.Context, r *run, err error) error {
	if err == nil {
		timer := stdlibtime.NewTimer(s.cfg.Timeout)
		defer timer.Stop()
		select {
		case <-r.done:
		case <-timer.C:
		case <-ctx.Done():
		}
	}
	r.cancel()
	<-r.done
	if errors.Is(err, ErrSessionClosed) {
		return nil
	}

	return err
}

// enqueue hands req to the writer. It returns once the frame is written, or when cfg.Timeout elapses with the
// frame still queued, which is not an error.
func (s *Session) enqueue(ctx context.Context, r *run, req *request) error {
	req.sent = make(chan error, 1)
	timer := stdlibtime.NewTimer(s.cfg.Timeout)
	defer timer.Stop()
	select {
	case r.requests <- req:
	case <-r.done:
		return ErrSessionClosed
	case <-timer.C:
		return errors.Wrapf(ErrQueueTimeout, "%v not accepted in %v", req.label, s.cfg.Timeout)
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "%v not accepted", req.label)
	}
	select {
	case err := <-req.sent:
		return err
	case <-r.done:
		select {
		case err := <-req.sent:
			return err
		default:
			return ErrSessionClosed
		}
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "%v queued but not sent", req.label)
	}
}

func (r *run) finished() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

func traceSize(filters model.Filters) int {
	size := model.DefaultFilterLimit
	for i := range filters {
		size = max(size, filters[i].Limit)
	}

	return min(size, maxTraceSize)
}
