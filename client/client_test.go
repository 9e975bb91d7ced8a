package client

import (
	"bufio"
	"bytes"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duochat/protocol"
)

// echoServer greets, echoes frames back and hangs up on /exit.
func echoServer(t *testing.T) (string, <-chan []string) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { listener.Close() })

	received := make(chan []string, 1)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		var frames []string
		defer func() { received <- frames }()

		conn.SetDeadline(time.Now().Add(5 * time.Second))
		reader := bufio.NewReader(conn)
		if err := protocol.WriteFrame(conn, "Server: authorize or register"); err != nil {
			return
		}
		for {
			frame, err := protocol.ReadFrame(reader)
			if err != nil {
				return
			}
			frames = append(frames, frame)
			if frame == "/exit" {
				return
			}
			if err := protocol.WriteFrame(conn, "echo: "+frame); err != nil {
				return
			}
		}
	}()

	return listener.Addr().String(), received
}

func TestRunRelaysBothDirections(t *testing.T) {
	addr, received := echoServer(t)

	c, err := Connect(addr)
	require.NoError(t, err)
	defer c.Disconnect()

	var out bytes.Buffer
	in := strings.NewReader("hello there\n/exit\n")
	require.NoError(t, c.Run(in, &out))

	assert.Equal(t, []string{"hello there", "/exit"}, <-received)

	assert.Equal(t, "Server: authorize or register\necho: hello there\n", out.String())
}

func TestRunPrintsMultiLineFrames(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		protocol.WriteFrame(conn, "Server:\nStatistics with bob:\nTotal messages: 0")
	}()

	c, err := Connect(listener.Addr().String())
	require.NoError(t, err)
	defer c.Disconnect()

	var out bytes.Buffer
	require.NoError(t, c.Run(strings.NewReader(""), &out))
	assert.Equal(t, "Server:\nStatistics with bob:\nTotal messages: 0\n", out.String())
}

func TestConnectRefused(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	listener.Close()

	_, err = Connect(addr)
	assert.Error(t, err)
}
