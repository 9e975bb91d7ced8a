// Package client is the terminal side of the chat: it relays lines typed on
// stdin to the server and prints every frame the server sends.
package client

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"duochat/protocol"
)

// DialTimeout bounds connection establishment.
const DialTimeout = 10 * time.Second

// Client is a connected chat client.
type Client struct {
	conn protocol.FrameConn
	mu   sync.Mutex
	done chan struct{}
	err  error
}

// Connect dials the server at addr.
func Connect(addr string) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, DialTimeout)
	if err != nil {
		return nil, err
	}
	return New(protocol.NewStreamConn(conn, 0, 0)), nil
}

// New wraps an established frame connection.
func New(conn protocol.FrameConn) *Client {
	return &Client{conn: conn, done: make(chan struct{})}
}

// Send writes one line to the server as a frame.
func (c *Client) Send(text string) error {
	return c.conn.WriteFrame(text)
}

// Disconnect closes the connection.
func (c *Client) Disconnect() error {
	return c.conn.Close()
}

// Run relays lines from in to the server and frames from the server to out,
// one line each. It returns when the server closes the connection; reaching
// the end of in only stops sending.
func (c *Client) Run(in io.Reader, out io.Writer) error {
	go c.readLoop(out)

	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			if err := c.Send(scanner.Text()); err != nil {
				return
			}
		}
	}()

	<-c.done
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Client) readLoop(out io.Writer) {
	defer close(c.done)

	for {
		frame, err := c.conn.ReadFrame()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				c.mu.Lock()
				c.err = fmt.Errorf("read from server: %w", err)
				c.mu.Unlock()
			}
			return
		}
		fmt.Fprintln(out, frame)
	}
}
