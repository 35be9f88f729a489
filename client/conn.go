// SPDX-License-Identifier: ice License 1.0

package client

import (
	"context"
	"io"
	"net"
	"sync"
	stdlibtime "time"

	"github.com/cockroachdb/errors"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

type (
	// wsConn is the client side of a relay websocket. Frames are written whole under writeMx, so the writer goroutine and
	// the control frame replies of the reader never interleave.
	wsConn struct {
		conn         net.Conn
		src          io.Reader
		writeMx      sync.Mutex
		writeTimeout stdlibtime.Duration
		readTimeout  stdlibtime.Duration
		closeOnce    sync.Once
		closeErr     error
	}
)

const (
	maxMessageSize   = 16 << 20
	closeGracePeriod = stdlibtime.Second
)

var errMessageTooLarge = errors.New("message too large")

func dial(ctx context.Context, cfg *Config) (*wsConn, error) {
	if cfg.URL == "" {
		return nil, ErrNoURL
	}
	conn, br, _, err := ws.Dialer{Timeout: cfg.Timeout}.Dial(ctx, cfg.URL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to %v", cfg.URL)
	}
	c := &wsConn{conn: conn, src: conn, writeTimeout: cfg.WriteTimeout, readTimeout: cfg.ReadTimeout}
	if br != nil {
		c.src = br
	}

	return c, nil
}

func (c *wsConn) WriteMessage(messageType int, data []byte) error {
	c.writeMx.Lock()
	defer c.writeMx.Unlock()
	if c.writeTimeout > 0 {
		_ = c.conn.SetWriteDeadline(stdlibtime.Now().Add(c.writeTimeout)) //nolint:errcheck // .
	}

	return errors.Wrap(wsutil.WriteClientMessage(c.conn, ws.OpCode(messageType), data), "failed to write websocket frame")
}

// ReadMessage returns the next complete data message, answering pings and close frames on the way.
func (c *wsConn) ReadMessage() (messageType int, p []byte, err error) {
	if c.readTimeout > 0 {
		_ = c.conn.SetReadDeadline(stdlibtime.Now().Add(c.readTimeout)) //nolint:errcheck // .
	}
	rd := wsutil.Reader{
		Source:         c.src,
		State:          ws.StateClientSide,
		MaxFrameSize:   maxMessageSize,
		OnIntermediate: c.handleControl,
	}
	for {
		header, hErr := rd.NextFrame()
		if hErr != nil {
			return 0, nil, errors.Wrap(hErr, "failed to read websocket frame")
		}
		if header.OpCode.IsControl() {
			if cErr := c.handleControl(header, &rd); cErr != nil {
				return 0, nil, cErr
			}

			continue
		}
		if header.OpCode&(ws.OpText|ws.OpBinary) == 0 {
			if dErr := rd.Discard(); dErr != nil {
				return 0, nil, errors.Wrap(dErr, "failed to skip websocket frame")
			}

			continue
		}
		if p, err = io.ReadAll(io.LimitReader(&rd, maxMessageSize+1)); err != nil {
			return 0, nil, errors.Wrap(err, "failed to read websocket message")
		}
		if len(p) > maxMessageSize {
			return 0, nil, errors.Wrapf(errMessageTooLarge, "over %d bytes", maxMessageSize)
		}

		return int(header.OpCode), p, nil
	}
}

// handleControl answers a control frame under writeMx. A close frame is echoed and reported as wsutil.ClosedError.
func (c *wsConn) handleControl(header ws.Header, r io.Reader) error {
	c.writeMx.Lock()
	defer c.writeMx.Unlock()
	if c.writeTimeout > 0 {
		_ = c.conn.SetWriteDeadline(stdlibtime.Now().Add(c.writeTimeout)) //nolint:errcheck // .
	}

	return wsutil.ControlFrameHandler(c.conn, ws.StateClientSide)(header, r)
}

// Close sends a normal closure frame and closes the socket, once.
func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		// Unblocks a stuck writer.
		_ = c.conn.SetWriteDeadline(stdlibtime.Now().Add(closeGracePeriod))
		_ = c.WriteMessage(int(ws.OpClose), ws.NewCloseFrameBody(ws.StatusNormalClosure, "")) //nolint:errcheck // The peer may be gone already.
		if err := c.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			c.closeErr = errors.Wrap(err, "failed to close websocket")
		}
	})

	return c.closeErr
}
