package users

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"duochat/models"
	"duochat/store"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestDirectory(t *testing.T, s store.UserStore, opts ...Option) *Directory {
	t.Helper()
	opts = append([]Option{WithHasher(BcryptHasher{Cost: bcrypt.MinCost})}, opts...)
	d, err := NewDirectory(s, opts...)
	require.NoError(t, err)
	return d
}

func TestRegister(t *testing.T) {
	t.Run("short password never creates an account", func(t *testing.T) {
		d := newTestDirectory(t, &store.Memory{})

		res, err := d.Register("alice", "1234567")
		require.NoError(t, err)
		assert.Equal(t, ShortPassword, res)
		assert.False(t, d.Exists("alice"))
	})

	t.Run("fresh login with eight characters succeeds", func(t *testing.T) {
		d := newTestDirectory(t, &store.Memory{})

		res, err := d.Register("alice", "12345678")
		require.NoError(t, err)
		assert.Equal(t, Registered, res)
		assert.True(t, d.Exists("alice"))
		assert.True(t, d.HasRole("alice", models.RoleUser))
		assert.False(t, d.HasRole("alice", models.RoleModerator))
	})

	t.Run("repeated login keeps the original password", func(t *testing.T) {
		d := newTestDirectory(t, &store.Memory{})

		_, err := d.Register("alice", "password1")
		require.NoError(t, err)
		res, err := d.Register("alice", "password2")
		require.NoError(t, err)
		assert.Equal(t, LoginTaken, res)

		assert.Equal(t, Authorized, d.Authenticate("alice", "password1"))
		assert.Equal(t, IncorrectPassword, d.Authenticate("alice", "password2"))
	})

	t.Run("password longer than bcrypt input succeeds", func(t *testing.T) {
		d := newTestDirectory(t, &store.Memory{})
		long := strings.Repeat("p", 100)

		res, err := d.Register("carol", long)
		require.NoError(t, err)
		assert.Equal(t, Registered, res)
		assert.True(t, d.Exists("carol"))

		assert.Equal(t, Authorized, d.Authenticate("carol", long))
		assert.Equal(t, IncorrectPassword, d.Authenticate("carol", long[:72]))
		assert.Equal(t, IncorrectPassword, d.Authenticate("carol", long+"q"))
	})

	t.Run("plaintext is never stored", func(t *testing.T) {
		mem := &store.Memory{}
		d := newTestDirectory(t, mem)

		_, err := d.Register("alice", "password1")
		require.NoError(t, err)
		require.Len(t, mem.Users, 1)
		assert.NotEqual(t, "password1", mem.Users[0].Password)
		assert.NotEmpty(t, mem.Users[0].Password)
	})
}

func TestConcurrentRegisterHasOneWinner(t *testing.T) {
	d := newTestDirectory(t, &store.Memory{})

	const callers = 8
	results := make([]RegisterResult, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := d.Register("alice", "password1")
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	var won, taken int
	for _, res := range results {
		switch res {
		case Registered:
			won++
		case LoginTaken:
			taken++
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, callers-1, taken)
	assert.Equal(t, 1, d.Count())
}

func TestAuthenticate(t *testing.T) {
	d := newTestDirectory(t, &store.Memory{})
	_, err := d.Register("alice", "password1")
	require.NoError(t, err)

	assert.Equal(t, Authorized, d.Authenticate("alice", "password1"))
	assert.Equal(t, IncorrectPassword, d.Authenticate("alice", "password"))
	assert.Equal(t, IncorrectLogin, d.Authenticate("Alice", "password1"))
}

func TestRoles(t *testing.T) {
	d := newTestDirectory(t, &store.Memory{})
	_, err := d.Register("bob", "password1")
	require.NoError(t, err)

	assert.Equal(t, Granted, d.GrantRole("bob", models.RoleModerator))
	assert.Equal(t, AlreadyHeld, d.GrantRole("bob", models.RoleModerator))
	assert.True(t, d.HasRole("bob", models.RoleModerator))

	assert.Equal(t, Removed, d.RemoveRole("bob", models.RoleModerator))
	assert.Equal(t, NotHeld, d.RemoveRole("bob", models.RoleModerator))
	assert.False(t, d.HasRole("bob", models.RoleModerator))

	assert.Equal(t, NotHeld, d.RemoveRole("bob", models.RoleUser))
	assert.True(t, d.HasRole("bob", models.RoleUser))

	assert.Equal(t, UnknownLogin, d.GrantRole("nobody", models.RoleModerator))
	assert.Equal(t, UnknownLogin, d.RemoveRole("nobody", models.RoleModerator))
	assert.False(t, d.HasRole("nobody", models.RoleUser))
}

func TestBlocks(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_000_000, 0)}
	d := newTestDirectory(t, &store.Memory{}, WithClock(clock.Now))
	_, err := d.Register("bob", "password1")
	require.NoError(t, err)

	assert.False(t, d.IsBlocked("bob"))

	require.NoError(t, d.SetBlocked("bob", clock.Now().Add(25*time.Second)))
	assert.True(t, d.IsBlocked("bob"))

	clock.Advance(24 * time.Second)
	assert.True(t, d.IsBlocked("bob"))

	clock.Advance(time.Second)
	assert.False(t, d.IsBlocked("bob"))

	assert.False(t, d.IsBlocked("nobody"))
	assert.Error(t, d.SetBlocked("nobody", clock.Now()))
}

func TestReloadFromStore(t *testing.T) {
	mem := &store.Memory{}
	d := newTestDirectory(t, mem)
	_, err := d.Register("alice", "password1")
	require.NoError(t, err)
	_, err = d.Register("bob", "password2")
	require.NoError(t, err)
	d.GrantRole("bob", models.RoleModerator)
	require.NoError(t, d.SetBlocked("alice", time.Unix(4_000_000_000, 0)))

	reloaded := newTestDirectory(t, mem)
	assert.Equal(t, 2, reloaded.Count())
	assert.Equal(t, Authorized, reloaded.Authenticate("bob", "password2"))
	assert.True(t, reloaded.HasRole("bob", models.RoleModerator))
	assert.True(t, reloaded.IsBlocked("alice"))
	assert.Equal(t, "alice", mem.Users[0].Login)
}

func TestEnsureAdmin(t *testing.T) {
	d := newTestDirectory(t, &store.Memory{})

	require.NoError(t, d.EnsureAdmin("root", "rootpassword"))
	assert.True(t, d.HasRole("root", models.RoleAdmin))
	assert.Equal(t, Authorized, d.Authenticate("root", "rootpassword"))

	require.NoError(t, d.EnsureAdmin("root", "otherpassword"))
	assert.Equal(t, Authorized, d.Authenticate("root", "rootpassword"))

	assert.Error(t, d.EnsureAdmin("admin2", "short"))
}

type failingStore struct{ store.Memory }

func (f *failingStore) SaveUsers([]models.Account) error { return errors.New("disk full") }

func TestPersistFailureKeepsMemoryState(t *testing.T) {
	d := newTestDirectory(t, &failingStore{})

	res, err := d.Register("alice", "password1")
	require.NoError(t, err)
	assert.Equal(t, Registered, res)
	assert.Equal(t, Authorized, d.Authenticate("alice", "password1"))
	assert.Equal(t, Granted, d.GrantRole("alice", models.RoleModerator))
}
