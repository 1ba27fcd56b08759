package gatewayutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/khlpkg/gateway"
	"github.com/khlpkg/gateway/closecode"
	"github.com/khlpkg/gateway/event"
)

type ConnMock struct {
	frames chan Frame
	wake   chan struct{}
	closed chan struct{}

	// when set, reads ignore deadlines and only stop on Close
	ignoreDeadline bool
	// called for every text message the client writes
	onWrite func(c *ConnMock, data []byte)

	mu        sync.Mutex
	deadline  time.Time
	writes    []string
	closes    []closecode.Type
	closeOnce sync.Once
}

var _ Conn = &ConnMock{}

func NewConnMock(frames ...string) *ConnMock {
	c := &ConnMock{
		frames: make(chan Frame, 64),
		wake:   make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
	for _, frame := range frames {
		c.Send(frame)
	}
	return c
}

func (c *ConnMock) Send(data string) {
	c.frames <- Frame{Data: []byte(data)}
}

func (c *ConnMock) SendBinary(data []byte) {
	c.frames <- Frame{Binary: true, Data: data}
}

func (c *ConnMock) ReadFrame() (Frame, error) {
	for {
		c.mu.Lock()
		deadline := c.deadline
		c.mu.Unlock()

		var timeout <-chan time.Time
		if !deadline.IsZero() && !c.ignoreDeadline {
			timeout = time.After(time.Until(deadline))
		}

		select {
		case frame := <-c.frames:
			return frame, nil
		case <-c.closed:
			return Frame{}, net.ErrClosed
		case <-c.wake:
		case <-timeout:
			return Frame{}, os.ErrDeadlineExceeded
		}
	}
}

func (c *ConnMock) Write(p []byte) (int, error) {
	select {
	case <-c.closed:
		return 0, net.ErrClosed
	default:
	}

	c.mu.Lock()
	c.writes = append(c.writes, string(p))
	onWrite := c.onWrite
	c.mu.Unlock()

	if onWrite != nil {
		onWrite(c, p)
	}
	return len(p), nil
}

func (c *ConnMock) WriteClose(code closecode.Type, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes = append(c.closes, code)
	return nil
}

func (c *ConnMock) SetReadDeadline(t time.Time) error {
	c.mu.Lock()
	c.deadline = t
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
	return nil
}

func (c *ConnMock) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
	})
	return nil
}

func (c *ConnMock) IsClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *ConnMock) Writes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.writes...)
}

func (c *ConnMock) Closes() []closecode.Type {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]closecode.Type(nil), c.closes...)
}

type DialerMock struct {
	mu    sync.Mutex
	conns []*ConnMock
	urls  []string
	dials chan string
}

func NewDialerMock(conns ...*ConnMock) *DialerMock {
	return &DialerMock{conns: conns, dials: make(chan string, 16)}
}

func (d *DialerMock) Dial(_ context.Context, URLString string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.urls = append(d.urls, URLString)
	select {
	case d.dials <- URLString:
	default:
	}
	if len(d.conns) == 0 {
		return nil, errors.New("connection refused")
	}
	conn := d.conns[0]
	d.conns = d.conns[1:]
	return conn, nil
}

func (d *DialerMock) URLs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.urls...)
}

type EndpointMock struct {
	mu       sync.Mutex
	failures int
	calls    int
}

func (e *EndpointMock) GatewayURL(_ context.Context, compress bool) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.calls++
	if e.failures > 0 {
		e.failures--
		return "", errors.New("lookup failed")
	}
	if compress {
		return "wss://ws.example.test/gateway?compress=1&token=abc", nil
	}
	return "wss://ws.example.test/gateway?compress=0&token=abc", nil
}

type IdentityMock struct {
	identity gateway.Identity
}

func (i *IdentityMock) Me(context.Context) (gateway.Identity, error) {
	return i.identity, nil
}

type DispatcherMock struct {
	mu     sync.Mutex
	events []event.Event
	fn     func(evt event.Event) error
	notify chan event.Event
}

func NewDispatcherMock() *DispatcherMock {
	return &DispatcherMock{notify: make(chan event.Event, 256)}
}

func (d *DispatcherMock) Dispatch(_ context.Context, evt event.Event) (bool, error) {
	d.mu.Lock()
	d.events = append(d.events, evt)
	fn := d.fn
	d.mu.Unlock()

	d.notify <- evt
	if fn != nil {
		return true, fn(evt)
	}
	return true, nil
}

func (d *DispatcherMock) Events() []event.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]event.Event(nil), d.events...)
}

// answerPings replies to every PING with a PONG.
func answerPings(c *ConnMock, data []byte) {
	if strings.Contains(string(data), `"s":2`) {
		c.Send(`{"s":3}`)
	}
}

var _ io.Writer = &ConnMock{}

// StateRecorder is a logger that keeps the state transitions logged by the client.
type StateRecorder struct {
	mu     sync.Mutex
	states []string
}

var _ gateway.Logger = &StateRecorder{}

func (r *StateRecorder) Debug(format string, args ...interface{}) {
	if !strings.HasPrefix(format, "state transition") || len(args) != 2 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, fmt.Sprint(args[1]))
}
func (r *StateRecorder) Info(string, ...interface{})  {}
func (r *StateRecorder) Warn(string, ...interface{})  {}
func (r *StateRecorder) Error(string, ...interface{}) {}
func (r *StateRecorder) Panic(format string, args ...interface{}) {
	panic(fmt.Sprintf(format, args...))
}

func (r *StateRecorder) States() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.states...)
}
