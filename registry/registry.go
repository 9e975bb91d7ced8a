// Package registry maps authenticated logins to their live connections. It is
// the single source of truth for who is online.
package registry

import (
	"sort"
	"sync"

	"duochat/metrics"
)

// Handle is a live session reachable by login.
type Handle interface {
	Send(text string) error
}

// Registry holds at most one Handle per login.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]Handle
}

func New() *Registry {
	return &Registry{sessions: make(map[string]Handle)}
}

// Add registers h for login unless login already has a session. It reports
// whether h was added; of two racing callers exactly one wins.
func (r *Registry) Add(login string, h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[login]; exists {
		return false
	}
	r.sessions[login] = h
	metrics.OnlineUsers.Set(float64(len(r.sessions)))
	return true
}

func (r *Registry) Remove(login string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, login)
	metrics.OnlineUsers.Set(float64(len(r.sessions)))
}

// RemoveIf drops login only while it still maps to h, so cleanup of a
// stale session never evicts a newer one. It reports whether it removed.
func (r *Registry) RemoveIf(login string, h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.sessions[login]; !ok || cur != h {
		return false
	}
	delete(r.sessions, login)
	metrics.OnlineUsers.Set(float64(len(r.sessions)))
	return true
}

func (r *Registry) Get(login string) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.sessions[login]
	return h, ok
}

// Deliver sends text to login's session. A missing session is skipped.
func (r *Registry) Deliver(login, text string) error {
	h, ok := r.Get(login)
	if !ok {
		return nil
	}
	return h.Send(text)
}

// OnlineExcept returns every online login other than login, sorted.
func (r *Registry) OnlineExcept(login string) []string {
	r.mu.RLock()
	logins := make([]string, 0, len(r.sessions))
	for l := range r.sessions {
		if l != login {
			logins = append(logins, l)
		}
	}
	r.mu.RUnlock()

	sort.Strings(logins)
	return logins
}

// Logins returns every online login, sorted.
func (r *Registry) Logins() []string {
	return r.OnlineExcept("")
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
