package gatewayutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/khlpkg/gateway/closecode"
)

// Frame is a complete websocket message.
type Frame struct {
	Binary bool
	Data   []byte
}

// Conn is a websocket connection to the gateway. Every Write sends one text message.
// Implementations must allow writes concurrent with ReadFrame.
type Conn interface {
	io.Writer
	ReadFrame() (Frame, error)
	WriteClose(code closecode.Type, reason string) error
	SetReadDeadline(t time.Time) error
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, URLString string) (Conn, error)
}

// ClosedError is returned by ReadFrame when the gateway closed the connection.
type ClosedError struct {
	Code   uint16
	Reason string
}

func (e *ClosedError) Error() string {
	return fmt.Sprintf("websocket closed by gateway [%d]: %s", e.Code, e.Reason)
}

// WebsocketDialer opens gobwas/ws client connections.
type WebsocketDialer struct {
	Dialer ws.Dialer
}

var _ Dialer = &WebsocketDialer{}

func (d *WebsocketDialer) Dial(ctx context.Context, URLString string) (Conn, error) {
	conn, reader, _, err := d.Dialer.Dial(ctx, URLString)
	if err != nil {
		return nil, err
	}

	var source io.Reader = conn
	if reader != nil {
		// the gateway may say hello before the handshake response was fully consumed
		source = reader
	}
	return newWebsocketConn(conn, source), nil
}

func newWebsocketConn(conn net.Conn, source io.Reader) *websocketConn {
	c := &websocketConn{conn: conn}
	c.control = wsutil.ControlFrameHandler(&lockedWriter{c}, ws.StateClientSide)
	c.reader = wsutil.Reader{
		Source:          source,
		State:           ws.StateClientSide,
		CheckUTF8:       false,
		SkipHeaderCheck: false,
		OnIntermediate:  c.control,
	}
	return c
}

type websocketConn struct {
	conn    net.Conn
	reader  wsutil.Reader
	control wsutil.FrameHandlerFunc

	// guards every write on the socket
	mu sync.Mutex
}

type lockedWriter struct {
	c *websocketConn
}

func (w *lockedWriter) Write(p []byte) (int, error) {
	w.c.mu.Lock()
	defer w.c.mu.Unlock()
	return w.c.conn.Write(p)
}

func (c *websocketConn) ReadFrame() (Frame, error) {
	for {
		hdr, err := c.reader.NextFrame()
		if err != nil {
			return Frame{}, err
		}

		if hdr.OpCode.IsControl() {
			if err := c.control(hdr, &c.reader); err != nil {
				var closed wsutil.ClosedError
				if errors.As(err, &closed) {
					return Frame{}, &ClosedError{Code: uint16(closed.Code), Reason: closed.Reason}
				}
				return Frame{}, err
			}
			continue
		}

		data, err := io.ReadAll(&c.reader)
		if err != nil {
			return Frame{}, err
		}
		return Frame{Binary: hdr.OpCode == ws.OpBinary, Data: data}, nil
	}
}

func (c *websocketConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	w := &ioWriteFlusher{wsutil.NewWriter(c.conn, ws.StateClientSide, ws.OpText)}
	return w.Write(p)
}

func (c *websocketConn) WriteClose(code closecode.Type, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	body := ws.NewCloseFrameBody(ws.StatusCode(code), reason)
	return wsutil.WriteClientMessage(c.conn, ws.OpClose, body)
}

func (c *websocketConn) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

func (c *websocketConn) Close() error {
	return c.conn.Close()
}

type ioWriteFlusher struct {
	writer *wsutil.Writer
}

func (i *ioWriteFlusher) Write(p []byte) (n int, err error) {
	if n, err = i.writer.Write(p); err != nil {
		return n, err
	}
	return n, i.writer.Flush()
}
