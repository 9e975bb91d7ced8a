package protocol

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequest(t *testing.T) {
	tests := []struct {
		name       string
		frame      string
		cmd        Command
		args       []string
		wellFormed bool
	}{
		{"plain text", "hello there", CmdText, nil, true},
		{"auth", "/auth alice password1", CmdAuth, []string{"alice", "password1"}, true},
		{"auth missing password", "/auth alice", CmdAuth, []string{"alice"}, false},
		{"registration extra token", "/registration a b c", CmdRegistration, []string{"a", "b", "c"}, false},
		{"list", "/list", CmdList, []string{}, true},
		{"chat", "/chat bob", CmdChat, []string{"bob"}, true},
		{"history", "/history 10", CmdHistory, []string{"10"}, true},
		{"unknown command", "/dance now", CmdUnknown, nil, false},
		{"kick without target", "/kick", CmdKick, []string{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := ParseRequest(tt.frame)
			assert.Equal(t, tt.cmd, req.Cmd)
			assert.Equal(t, tt.frame, req.Raw)
			if tt.args != nil {
				assert.Equal(t, tt.args, req.Args)
			}
			assert.Equal(t, tt.wellFormed, req.WellFormed())
		})
	}
}

func TestCommandIsCaseSensitive(t *testing.T) {
	assert.Equal(t, CmdUnknown, ParseRequest("/LIST").Cmd)
}

func TestNoticeFrame(t *testing.T) {
	assert.Equal(t, "Server: you are banned!", Banned.Frame())
	assert.Equal(t, "Server: online: alice bob", OnlineFrame([]string{"alice", "bob"}))
	assert.Equal(t, "Server: unread: carol", UnreadFrame([]string{"carol"}))
}

func TestStatisticsFrame(t *testing.T) {
	got := StatisticsFrame("alice", "bob", 5, 3, 2)
	want := "Server:\nStatistics with bob:\nTotal messages: 5\nMessages from alice: 3\nMessages from bob: 2"
	assert.Equal(t, want, got)
}

func TestFrameCodec(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, "привет, alice"))
	require.NoError(t, WriteFrame(&buf, ""))

	assert.Equal(t, []byte{0x00, byte(len("привет, alice"))}, buf.Bytes()[:2])

	first, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, "привет, alice", first)

	second, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, "", second)

	_, err = ReadFrame(&buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestWriteFrameTooLarge(t *testing.T) {
	var buf bytes.Buffer
	err := WriteFrame(&buf, strings.Repeat("x", MaxFrameSize+1))
	assert.ErrorIs(t, err, ErrFrameTooLarge)
	assert.Zero(t, buf.Len())
}

func TestReadFrameTruncated(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader([]byte{0x00, 0x05, 'a', 'b'}))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestReadFrameInvalidUTF8(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader([]byte{0x00, 0x02, 0xff, 0xfe}))
	assert.ErrorIs(t, err, ErrInvalidUTF8)
}
