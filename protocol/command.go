package protocol

import "strings"

// Command identifies a client request by its leading token.
type Command int

const (
	CmdText Command = iota // plain chat text, no command marker
	CmdUnknown
	CmdAuth
	CmdRegistration
	CmdList
	CmdChat
	CmdExit
	CmdStats
	CmdHistory
	CmdUnread
	CmdGrant
	CmdRevoke
	CmdKick
)

// CommandMarker starts every command token.
const CommandMarker = "/"

var commandTokens = map[string]Command{
	"/auth":         CmdAuth,
	"/registration": CmdRegistration,
	"/list":         CmdList,
	"/chat":         CmdChat,
	"/exit":         CmdExit,
	"/stats":        CmdStats,
	"/history":      CmdHistory,
	"/unread":       CmdUnread,
	"/grant":        CmdGrant,
	"/revoke":       CmdRevoke,
	"/kick":         CmdKick,
}

// arity is the exact number of space-separated tokens each command takes,
// command token included.
var arity = map[Command]int{
	CmdAuth:         3,
	CmdRegistration: 3,
	CmdList:         1,
	CmdChat:         2,
	CmdExit:         1,
	CmdStats:        1,
	CmdHistory:      2,
	CmdUnread:       1,
	CmdGrant:        2,
	CmdRevoke:       2,
	CmdKick:         2,
}

func (c Command) String() string {
	for token, cmd := range commandTokens {
		if cmd == c {
			return token
		}
	}
	if c == CmdText {
		return "text"
	}
	return "unknown"
}

// Request is a parsed inbound frame.
type Request struct {
	Cmd  Command
	Args []string
	Raw  string
}

// WellFormed reports whether the request carries the exact number of
// arguments its command requires. Plain text is always well formed.
func (r Request) WellFormed() bool {
	if r.Cmd == CmdText {
		return true
	}
	n, ok := arity[r.Cmd]
	return ok && len(r.Args)+1 == n
}

// Arg returns the i-th argument or "".
func (r Request) Arg(i int) string {
	if i < len(r.Args) {
		return r.Args[i]
	}
	return ""
}

// ParseRequest classifies a frame. Frames that do not start with the
// command marker are chat text.
func ParseRequest(frame string) Request {
	req := Request{Raw: frame}
	if !strings.HasPrefix(frame, CommandMarker) {
		req.Cmd = CmdText
		return req
	}

	parts := strings.Split(frame, " ")
	cmd, ok := commandTokens[parts[0]]
	if !ok {
		req.Cmd = CmdUnknown
		return req
	}
	req.Cmd = cmd
	req.Args = parts[1:]
	return req
}
