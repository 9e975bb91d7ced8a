// Package users holds registered accounts: credentials, roles and temporary
// blocks. Mutations are serialised by a single mutex and each one rewrites
// the backing store.
package users

import (
	"fmt"
	"log"
	"sync"
	"time"

	"duochat/metrics"
	"duochat/models"
	"duochat/store"
)

// MinPasswordLength is the shortest password registration accepts.
const MinPasswordLength = 8

type RegisterResult int

const (
	Registered RegisterResult = iota
	ShortPassword
	LoginTaken
)

type AuthResult int

const (
	Authorized AuthResult = iota
	IncorrectLogin
	IncorrectPassword
)

type RoleResult int

const (
	Granted RoleResult = iota
	AlreadyHeld
	Removed
	NotHeld
	UnknownLogin
)

// Directory is the account registry.
type Directory struct {
	mu       sync.RWMutex
	accounts map[string]*models.Account
	order    []string // registration order, kept for stable persistence
	store    store.UserStore
	hasher   Hasher
	now      func() time.Time
}

// Option customises a Directory.
type Option func(*Directory)

// WithClock replaces time.Now, used to evaluate blocks.
func WithClock(now func() time.Time) Option {
	return func(d *Directory) { d.now = now }
}

// WithHasher replaces the bcrypt hasher.
func WithHasher(h Hasher) Option {
	return func(d *Directory) { d.hasher = h }
}

// NewDirectory loads all accounts from s.
func NewDirectory(s store.UserStore, opts ...Option) (*Directory, error) {
	d := &Directory{
		accounts: make(map[string]*models.Account),
		store:    s,
		hasher:   BcryptHasher{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}

	loaded, err := s.LoadUsers()
	if err != nil {
		return nil, fmt.Errorf("users: load: %w", err)
	}
	for i := range loaded {
		a := loaded[i]
		if _, dup := d.accounts[a.Login]; dup {
			continue
		}
		a.AddRole(models.RoleUser)
		d.accounts[a.Login] = &a
		d.order = append(d.order, a.Login)
	}

	return d, nil
}

// Register creates login with the USER role plus any extra roles.
func (d *Directory) Register(login, password string, roles ...models.Role) (RegisterResult, error) {
	if len(password) < MinPasswordLength {
		return ShortPassword, nil
	}

	// Hash outside the lock; bcrypt is deliberately slow.
	hashed, err := d.hasher.Hash(password)
	if err != nil {
		return 0, fmt.Errorf("users: hash password: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.accounts[login]; exists {
		return LoginTaken, nil
	}

	account := &models.Account{Login: login, Password: hashed, Roles: []models.Role{models.RoleUser}}
	for _, r := range roles {
		account.AddRole(r)
	}
	d.accounts[login] = account
	d.order = append(d.order, login)
	d.persistLocked()

	return Registered, nil
}

// Authenticate checks a login/password pair.
func (d *Directory) Authenticate(login, password string) AuthResult {
	d.mu.RLock()
	account, ok := d.accounts[login]
	var hashed string
	if ok {
		hashed = account.Password
	}
	d.mu.RUnlock()

	if !ok {
		return IncorrectLogin
	}
	if !d.hasher.Compare(hashed, password) {
		return IncorrectPassword
	}
	return Authorized
}

// GrantRole adds role to login.
func (d *Directory) GrantRole(login string, role models.Role) RoleResult {
	d.mu.Lock()
	defer d.mu.Unlock()

	account, ok := d.accounts[login]
	if !ok {
		return UnknownLogin
	}
	if !account.AddRole(role) {
		return AlreadyHeld
	}
	d.persistLocked()
	return Granted
}

// RemoveRole drops role from login. USER is never removed.
func (d *Directory) RemoveRole(login string, role models.Role) RoleResult {
	d.mu.Lock()
	defer d.mu.Unlock()

	account, ok := d.accounts[login]
	if !ok {
		return UnknownLogin
	}
	if role == models.RoleUser || !account.RemoveRole(role) {
		return NotHeld
	}
	d.persistLocked()
	return Removed
}

func (d *Directory) HasRole(login string, role models.Role) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	account, ok := d.accounts[login]
	return ok && account.HasRole(role)
}

func (d *Directory) Exists(login string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	_, ok := d.accounts[login]
	return ok
}

// IsBlocked reports whether login's block expiry lies in the future.
// Unknown logins are never blocked.
func (d *Directory) IsBlocked(login string) bool {
	d.mu.RLock()
	account, ok := d.accounts[login]
	var until int64
	if ok {
		until = account.BlockedUntil
	}
	d.mu.RUnlock()

	return ok && until > d.now().Unix()
}

// SetBlocked sets login's block expiry.
func (d *Directory) SetBlocked(login string, until time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	account, ok := d.accounts[login]
	if !ok {
		return fmt.Errorf("users: set blocked: unknown login %q", login)
	}
	account.BlockedUntil = until.Unix()
	d.persistLocked()
	return nil
}

// EnsureAdmin makes sure login exists and holds ADMIN. An existing account
// keeps its password.
func (d *Directory) EnsureAdmin(login, password string) error {
	if d.Exists(login) {
		d.GrantRole(login, models.RoleAdmin)
		return nil
	}

	res, err := d.Register(login, password, models.RoleAdmin)
	if err != nil {
		return err
	}
	switch res {
	case ShortPassword:
		return fmt.Errorf("users: admin password must be at least %d characters", MinPasswordLength)
	case LoginTaken:
		d.GrantRole(login, models.RoleAdmin)
	}
	return nil
}

// Count returns the number of registered accounts.
func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.accounts)
}

// persistLocked rewrites the store. A failed write is logged and leaves the
// in-memory state as it is. d.mu must be held.
func (d *Directory) persistLocked() {
	snapshot := make([]models.Account, 0, len(d.order))
	for _, login := range d.order {
		snapshot = append(snapshot, d.accounts[login].Clone())
	}

	if err := d.store.SaveUsers(snapshot); err != nil {
		metrics.PersistErrors.WithLabelValues("users").Inc()
		log.Printf("users: failed to persist %d accounts: %v", len(snapshot), err)
	}
}
