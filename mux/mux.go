// Package mux is the single-inflight request/response multiplexer (C6)
// sitting between session code and a transport: one command is ever
// outstanding on the wire at a time (this protocol carries no request ids
// to correlate a reply with anything but send order), callers queue up
// FIFO, and unsolicited event frames are fanned out to subscribers on a
// drop-rather-than-block basis - the same "latency over completeness"
// policy as a lossy pub/sub fan-out, not a durable event log.
package mux

import (
	"context"
	"sync"
	"time"

	"github.com/minidsp/minidsp-go/minidsperr"
	"github.com/minidsp/minidsp-go/proto"
	"github.com/minidsp/minidsp-go/transport"
)

const (
	// QueueCapacity is how many callers may be waiting for their turn to
	// send before Send starts failing with ErrBusy instead of blocking.
	QueueCapacity = 32

	// DefaultTimeout bounds an ordinary command's round trip.
	DefaultTimeout = 500 * time.Millisecond

	// ConfigTimeout bounds a SetConfig round trip, which on real
	// hardware includes a DSP reboot.
	ConfigTimeout = 3 * time.Second

	eventSubscriberBuffer = 8
)

type request struct {
	ctx     context.Context
	payload []byte
	timeout time.Duration
	result  chan result
}

type result struct {
	payload []byte
	err     error
}

// Mux owns a Transport and serializes every command sent over it.
type Mux struct {
	tr    transport.Transport
	queue chan *request

	replyMu sync.Mutex
	replyCh chan result

	subsMu    sync.Mutex
	subs      map[int]chan []byte
	nextSubID int

	done      chan struct{}
	closeOnce sync.Once
}

// New starts a Mux over tr: a dispatch loop that drains the send queue one
// request at a time, and a reader loop that decodes frames off tr and
// routes each one to either the currently waiting request or the event
// subscribers.
func New(tr transport.Transport) *Mux {
	m := &Mux{
		tr:    tr,
		queue: make(chan *request, QueueCapacity),
		subs:  make(map[int]chan []byte),
		done:  make(chan struct{}),
	}
	go m.dispatchLoop()
	go m.readLoop()
	return m
}

// Send queues payload and blocks for its response, using DefaultTimeout.
func (m *Mux) Send(ctx context.Context, payload []byte) ([]byte, error) {
	return m.send(ctx, payload, DefaultTimeout)
}

// SendConfig is Send with ConfigTimeout, for SetConfig's longer DSP-reboot
// round trip.
func (m *Mux) SendConfig(ctx context.Context, payload []byte) ([]byte, error) {
	return m.send(ctx, payload, ConfigTimeout)
}

func (m *Mux) send(ctx context.Context, payload []byte, timeout time.Duration) ([]byte, error) {
	req := &request{ctx: ctx, payload: payload, timeout: timeout, result: make(chan result, 1)}

	select {
	case m.queue <- req:
	default:
		return nil, minidsperr.ErrBusy
	}

	select {
	case r := <-req.result:
		return r.payload, r.err
	case <-ctx.Done():
		return nil, minidsperr.ErrCancelled
	case <-m.done:
		return nil, minidsperr.ErrTransportClosed
	}
}

func (m *Mux) dispatchLoop() {
	for {
		select {
		case req := <-m.queue:
			m.dispatchOne(req)
		case <-m.done:
			return
		}
	}
}

func (m *Mux) dispatchOne(req *request) {
	rc := make(chan result, 1)
	m.replyMu.Lock()
	m.replyCh = rc
	m.replyMu.Unlock()

	defer func() {
		m.replyMu.Lock()
		if m.replyCh == rc {
			m.replyCh = nil
		}
		m.replyMu.Unlock()
	}()

	// The per-command timeout bounds the write and the wait for the reply
	// together, so a transport that blocks in WriteFrame still times out.
	ctx, cancel := context.WithTimeout(req.ctx, req.timeout)
	defer cancel()

	if err := m.tr.WriteFrame(ctx, req.payload); err != nil {
		if req.ctx.Err() == nil && ctx.Err() == context.DeadlineExceeded {
			err = minidsperr.ErrTimeout
		}
		req.result <- result{err: err}
		return
	}

	select {
	case r := <-rc:
		req.result <- r
	case <-ctx.Done():
		if req.ctx.Err() != nil {
			req.result <- result{err: minidsperr.ErrCancelled}
		} else {
			req.result <- result{err: minidsperr.ErrTimeout}
		}
	case <-m.done:
		req.result <- result{err: minidsperr.ErrTransportClosed}
	}
}

func (m *Mux) readLoop() {
	for {
		payload, err := m.tr.ReadFrame(context.Background())
		if err != nil {
			m.failPending(err)
			m.Close()
			return
		}

		if len(payload) > 0 && proto.IsEvent(proto.Opcode(payload[0])) {
			m.publish(payload)
			continue
		}

		m.replyMu.Lock()
		rc := m.replyCh
		m.replyMu.Unlock()
		if rc == nil {
			continue // unsolicited, non-event frame with nothing waiting: drop
		}
		select {
		case rc <- result{payload: payload}:
		default:
		}
	}
}

func (m *Mux) failPending(err error) {
	m.replyMu.Lock()
	rc := m.replyCh
	m.replyMu.Unlock()
	if rc != nil {
		select {
		case rc <- result{err: err}:
		default:
		}
	}
}

// Subscribe returns a channel that receives every unsolicited event frame
// (e.g. OpConfigChanged) published after this call. Delivery is
// best-effort: a subscriber that falls behind has frames dropped rather
// than the publisher blocking, mirroring the state-style ("only the latest
// matters") nature of these events rather than a log a consumer must
// replay in full.
func (m *Mux) Subscribe() (id int, events <-chan []byte) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	id = m.nextSubID
	m.nextSubID++
	ch := make(chan []byte, eventSubscriberBuffer)
	m.subs[id] = ch
	return id, ch
}

// Unsubscribe stops delivery to id's channel and closes it.
func (m *Mux) Unsubscribe(id int) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	if ch, ok := m.subs[id]; ok {
		delete(m.subs, id)
		close(ch)
	}
}

func (m *Mux) publish(payload []byte) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- payload:
		default:
		}
	}
}

// Close stops the dispatch and reader loops and closes the underlying
// transport. Any request still waiting fails with ErrTransportClosed.
func (m *Mux) Close() error {
	var err error
	m.closeOnce.Do(func() {
		close(m.done)
		err = m.tr.Close()
	})
	return err
}
