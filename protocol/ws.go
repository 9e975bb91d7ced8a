package protocol

import (
	"net"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// WSConn carries one frame per WebSocket text message on the server side of
// an upgraded connection. Binary messages are ignored.
type WSConn struct {
	conn         net.Conn
	readTimeout  time.Duration
	writeTimeout time.Duration
	writeMu      sync.Mutex
}

func NewWSConn(conn net.Conn, readTimeout, writeTimeout time.Duration) *WSConn {
	return &WSConn{conn: conn, readTimeout: readTimeout, writeTimeout: writeTimeout}
}

func (c *WSConn) ReadFrame() (string, error) {
	for {
		if c.readTimeout > 0 {
			c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
		}
		data, op, err := wsutil.ReadClientData(c.conn)
		if err != nil {
			return "", err
		}
		if op != ws.OpText {
			continue
		}
		if !utf8.Valid(data) {
			return "", ErrInvalidUTF8
		}
		return string(data), nil
	}
}

// WriteFrame sends text as one text message, under the same size limit as
// the stream transport.
func (c *WSConn) WriteFrame(text string) error {
	if len(text) > MaxFrameSize {
		return ErrFrameTooLarge
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.writeTimeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return wsutil.WriteServerText(c.conn, []byte(text))
}

func (c *WSConn) Close() error {
	return c.conn.Close()
}

func (c *WSConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
