// Package chat implements two-party conversations: an append-only message
// log per pair of logins with per-member unread flags, windowed and paged
// retrieval, and statistics. Live lines are pushed through a Router.
package chat

import (
	"fmt"
	"log"
	"sort"
	"sync"

	"duochat/metrics"
	"duochat/models"
	"duochat/store"
)

// Router pushes a line to a login's live session, skipping logins that are
// not online.
type Router interface {
	Deliver(login, text string) error
}

type pairKey struct{ lo, hi string }

func keyOf(a, b string) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{a, b}
}

// Directory owns every Chat, at most one per unordered pair of logins.
type Directory struct {
	store  store.ChatStore
	router Router

	mu    sync.Mutex
	chats map[pairKey]*Chat
	order []*Chat

	// saveMu serialises rewrites of the store. It is taken before mu and
	// before any chat lock, never while one is held.
	saveMu sync.Mutex
}

// NewDirectory loads the chats kept in s.
func NewDirectory(s store.ChatStore, router Router) (*Directory, error) {
	d := &Directory{
		store:  s,
		router: router,
		chats:  make(map[pairKey]*Chat),
	}

	records, err := s.LoadChats()
	if err != nil {
		return nil, fmt.Errorf("chat: load: %w", err)
	}
	for _, rec := range records {
		if len(rec.Members) != 2 || rec.Members[0] == rec.Members[1] {
			log.Printf("chat: skipping record with members %q", rec.Members)
			continue
		}
		key := keyOf(rec.Members[0], rec.Members[1])
		if _, dup := d.chats[key]; dup {
			log.Printf("chat: skipping duplicate chat %s/%s", key.lo, key.hi)
			continue
		}
		c := newChat(d, rec.Members[0], rec.Members[1], rec.Entries)
		d.chats[key] = c
		d.order = append(d.order, c)
	}
	metrics.Chats.Set(float64(len(d.order)))

	return d, nil
}

// GetOrCreate returns the chat between a and b, creating it on first use.
// The order of a and b does not matter.
func (d *Directory) GetOrCreate(a, b string) (*Chat, error) {
	if a == b {
		return nil, ErrSelfChat
	}

	key := keyOf(a, b)
	d.mu.Lock()
	if c, ok := d.chats[key]; ok {
		d.mu.Unlock()
		return c, nil
	}
	c := newChat(d, a, b, nil)
	d.chats[key] = c
	d.order = append(d.order, c)
	metrics.Chats.Set(float64(len(d.order)))
	d.mu.Unlock()

	d.persist()
	return c, nil
}

// Find returns the chat between a and b if it exists.
func (d *Directory) Find(a, b string) (*Chat, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.chats[keyOf(a, b)]
	return c, ok
}

// UsersWithUnreadFor returns the sorted counterparts of every chat holding
// at least one message login has not read.
func (d *Directory) UsersWithUnreadFor(login string) []string {
	var counterparts []string
	for _, c := range d.snapshot() {
		other, err := c.Other(login)
		if err != nil {
			continue
		}
		if c.hasUnreadFor(login) {
			counterparts = append(counterparts, other)
		}
	}
	sort.Strings(counterparts)
	return counterparts
}

// Count returns the number of chats.
func (d *Directory) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.order)
}

func (d *Directory) snapshot() []*Chat {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Chat(nil), d.order...)
}

// persist rewrites the whole store. Failures are logged and counted; the
// in-memory chats stay authoritative.
func (d *Directory) persist() {
	d.saveMu.Lock()
	defer d.saveMu.Unlock()

	chats := d.snapshot()
	records := make([]models.ChatRecord, 0, len(chats))
	for _, c := range chats {
		records = append(records, c.record())
	}

	if err := d.store.SaveChats(records); err != nil {
		metrics.PersistErrors.WithLabelValues("chats").Inc()
		log.Printf("chat: failed to persist %d chats: %v", len(records), err)
	}
}
