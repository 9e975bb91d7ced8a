package protocol

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"
	"unicode/utf8"
)

// MaxFrameSize is the largest payload a length prefix can describe.
const MaxFrameSize = 1<<16 - 1

var (
	ErrFrameTooLarge = errors.New("frame exceeds 65535 bytes")
	ErrInvalidUTF8   = errors.New("frame is not valid UTF-8")
)

// FrameConn exchanges discrete text frames with one peer.
// WriteFrame may be called concurrently with ReadFrame and with itself.
type FrameConn interface {
	ReadFrame() (string, error)
	WriteFrame(text string) error
	Close() error
	RemoteAddr() string
}

// StreamConn frames a byte stream: each frame is a 2-byte big-endian length
// followed by that many UTF-8 bytes.
type StreamConn struct {
	conn         net.Conn
	reader       *bufio.Reader
	readTimeout  time.Duration
	writeTimeout time.Duration
	writeMu      sync.Mutex
}

// NewStreamConn wraps conn. Zero timeouts disable the deadlines.
func NewStreamConn(conn net.Conn, readTimeout, writeTimeout time.Duration) *StreamConn {
	return &StreamConn{
		conn:         conn,
		reader:       bufio.NewReader(conn),
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
	}
}

func (c *StreamConn) ReadFrame() (string, error) {
	if c.readTimeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
	}
	return ReadFrame(c.reader)
}

func (c *StreamConn) WriteFrame(text string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.writeTimeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return WriteFrame(c.conn, text)
}

func (c *StreamConn) Close() error {
	return c.conn.Close()
}

func (c *StreamConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// ReadFrame reads one length-prefixed frame from r.
func ReadFrame(r io.Reader) (string, error) {
	var header [2]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return "", err
	}

	size := binary.BigEndian.Uint16(header[:])
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return "", fmt.Errorf("read frame payload: %w", err)
	}
	if !utf8.Valid(payload) {
		return "", ErrInvalidUTF8
	}
	return string(payload), nil
}

// WriteFrame writes text to w as one length-prefixed frame.
func WriteFrame(w io.Writer, text string) error {
	if len(text) > MaxFrameSize {
		return ErrFrameTooLarge
	}

	buf := make([]byte, 2+len(text))
	binary.BigEndian.PutUint16(buf, uint16(len(text)))
	copy(buf[2:], text)
	_, err := w.Write(buf)
	return err
}
