package chat

import (
	"errors"
	"math"
	"strings"
	"sync"

	"duochat/metrics"
	"duochat/models"
	"duochat/protocol"
)

const (
	// WindowSize caps the lines shown when a member opens a chat.
	WindowSize = 25
	// MaxViewedInWindow caps already seen lines kept as context in a window.
	MaxViewedInWindow = 10
	// PageSize is the number of lines a history request returns.
	PageSize = 25
	// NewMarker prefixes lines the viewer has not seen yet.
	NewMarker = "(new) "
	// MaxLineSize keeps a logged line, marker included, within one frame.
	MaxLineSize = protocol.MaxFrameSize - len(NewMarker)
)

var (
	ErrNotMember     = errors.New("chat: login is not a member")
	ErrSelfChat      = errors.New("chat: a chat needs two distinct members")
	ErrNegativeValue = errors.New("chat: value should be positive")
	ErrValueTooLarge = errors.New("chat: value is too large")
	ErrLineTooLong   = errors.New("chat: message is too long")
)

// Chat is a persistent conversation between exactly two members.
// One mutex serialises every read and write of the log.
type Chat struct {
	dir *Directory

	mu      sync.Mutex
	members [2]string
	present map[string]bool
	log     []models.Entry
}

// Stats summarises a chat from one member's side.
type Stats struct {
	Counterpart   string
	Total         int
	ByViewer      int
	ByCounterpart int
}

func newChat(dir *Directory, a, b string, entries []models.Entry) *Chat {
	return &Chat{
		dir:     dir,
		members: [2]string{a, b},
		present: make(map[string]bool, 2),
		log:     entries,
	}
}

func (c *Chat) isMember(login string) bool {
	return c.members[0] == login || c.members[1] == login
}

// Other returns the member that is not login.
func (c *Chat) Other(login string) (string, error) {
	switch login {
	case c.members[0]:
		return c.members[1], nil
	case c.members[1]:
		return c.members[0], nil
	}
	return "", ErrNotMember
}

// join marks login as viewing the chat.
func (c *Chat) join(login string) error {
	if !c.isMember(login) {
		return ErrNotMember
	}
	c.mu.Lock()
	c.present[login] = true
	c.mu.Unlock()
	return nil
}

// Leave marks login as no longer viewing the chat.
func (c *Chat) Leave(login string) {
	c.mu.Lock()
	delete(c.present, login)
	c.mu.Unlock()
}

// IsPresent reports whether login is viewing the chat.
func (c *Chat) IsPresent(login string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.present[login]
}

// size returns the number of logged messages.
func (c *Chat) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.log)
}

// SendMessage appends "sender: text" to the log, flags it unread for every
// member not present, and pushes the line to every present member. A line
// longer than MaxLineSize is rejected and not logged.
func (c *Chat) SendMessage(sender, text string) error {
	if !c.isMember(sender) {
		return ErrNotMember
	}

	line := sender + ": " + text
	if len(line) > MaxLineSize {
		return ErrLineTooLong
	}

	c.mu.Lock()
	var unread []string
	for _, m := range c.members {
		if !c.present[m] {
			unread = append(unread, m)
		}
	}
	c.log = append(c.log, models.Entry{Text: line, UnreadBy: unread})
	for _, m := range c.members {
		if c.present[m] {
			// A failed push surfaces on the recipient's own connection.
			_ = c.dir.router.Deliver(m, line)
		}
	}
	c.mu.Unlock()

	metrics.ChatMessages.Inc()
	c.dir.persist()
	return nil
}

// Window returns the lines shown to viewer on opening the chat and marks the
// trailing unread run as read.
func (c *Chat) Window(viewer string) ([]string, error) {
	if !c.isMember(viewer) {
		return nil, ErrNotMember
	}

	c.mu.Lock()
	lines, changed := c.windowLocked(viewer)
	c.mu.Unlock()

	if changed {
		c.dir.persist()
	}
	return lines, nil
}

// Open joins viewer and returns its window under one lock, so a line sent in
// between is either in the window or delivered live, never both.
func (c *Chat) Open(viewer string) ([]string, error) {
	if !c.isMember(viewer) {
		return nil, ErrNotMember
	}

	c.mu.Lock()
	c.present[viewer] = true
	lines, changed := c.windowLocked(viewer)
	c.mu.Unlock()

	if changed {
		c.dir.persist()
	}
	return lines, nil
}

func (c *Chat) windowLocked(viewer string) ([]string, bool) {
	start := max(0, len(c.log)-WindowSize)
	viewed := 0
	for _, e := range c.log[start:] {
		if !unreadBy(e, viewer) {
			viewed++
		}
	}
	for viewed > MaxViewedInWindow {
		start++
		viewed--
	}

	lines := make([]string, 0, len(c.log)-start)
	for _, e := range c.log[start:] {
		if unreadBy(e, viewer) {
			lines = append(lines, NewMarker+e.Text)
		} else {
			lines = append(lines, e.Text)
		}
	}

	changed := false
	for i := len(c.log) - 1; i >= 0; i-- {
		e := &c.log[i]
		idx := indexOf(e.UnreadBy, viewer)
		if idx < 0 {
			break
		}
		e.UnreadBy = append(e.UnreadBy[:idx:idx], e.UnreadBy[idx+1:]...)
		changed = true
	}
	return lines, changed
}

// Page returns raw lines [max(0, n-from), min(start+length, n)). A from of 0
// always yields an empty page.
func (c *Chat) Page(from, length int64) ([]string, error) {
	if from < 0 || length < 0 {
		return nil, ErrNegativeValue
	}
	if from > math.MaxInt32 {
		return nil, ErrValueTooLarge
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	n := int64(len(c.log))
	start := max(0, n-from)
	end := min(start+length, n)

	lines := make([]string, 0, end-start)
	for _, e := range c.log[start:end] {
		lines = append(lines, e.Text)
	}
	return lines, nil
}

// Statistics counts the messages of the chat from viewer's side.
func (c *Chat) Statistics(viewer string) (Stats, error) {
	other, err := c.Other(viewer)
	if err != nil {
		return Stats{}, err
	}

	prefix := viewer + ": "
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{Counterpart: other, Total: len(c.log)}
	for _, e := range c.log {
		if strings.HasPrefix(e.Text, prefix) {
			s.ByViewer++
		}
	}
	s.ByCounterpart = s.Total - s.ByViewer
	return s, nil
}

func (c *Chat) hasUnreadFor(login string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range c.log {
		if unreadBy(e, login) {
			return true
		}
	}
	return false
}

func (c *Chat) record() models.ChatRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := make([]models.Entry, len(c.log))
	for i, e := range c.log {
		entries[i] = models.Entry{Text: e.Text, UnreadBy: append([]string{}, e.UnreadBy...)}
	}
	return models.ChatRecord{Members: []string{c.members[0], c.members[1]}, Entries: entries}
}

func unreadBy(e models.Entry, login string) bool {
	return indexOf(e.UnreadBy, login) >= 0
}

func indexOf(logins []string, login string) int {
	for i, l := range logins {
		if l == login {
			return i
		}
	}
	return -1
}
