package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duochat/models"
)

func newTestFile(t *testing.T) *File {
	t.Helper()
	dir := t.TempDir()
	return NewFile(filepath.Join(dir, "usersDb.txt"), filepath.Join(dir, "chatsDb.txt"))
}

func TestFileMissingFilesAreEmpty(t *testing.T) {
	f := newTestFile(t)

	users, err := f.LoadUsers()
	require.NoError(t, err)
	assert.Empty(t, users)

	chats, err := f.LoadChats()
	require.NoError(t, err)
	assert.Empty(t, chats)
}

func TestFileUsersLayout(t *testing.T) {
	f := newTestFile(t)
	accounts := []models.Account{
		{Login: "alice", Password: "h1", Roles: []models.Role{models.RoleUser}},
		{Login: "root", Password: "h2", Roles: []models.Role{models.RoleUser, models.RoleAdmin}, BlockedUntil: 1700000000},
	}
	require.NoError(t, f.SaveUsers(accounts))

	raw, err := os.ReadFile(f.UsersPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `{"login":"alice","password":"h1","roles":["USER"],"blockedUntil":0}`, lines[0])
	assert.Equal(t, `{"login":"root","password":"h2","roles":["USER","ADMIN"],"blockedUntil":1700000000}`, lines[1])

	loaded, err := f.LoadUsers()
	require.NoError(t, err)
	assert.Equal(t, accounts, loaded)
}

func TestFileChatsLayout(t *testing.T) {
	f := newTestFile(t)
	chats := []models.ChatRecord{
		{
			Members: []string{"alice", "bob"},
			Entries: []models.Entry{
				{Text: "alice: hi", UnreadBy: []string{"bob"}},
				{Text: "bob: hey", UnreadBy: []string{}},
			},
		},
		{Members: []string{"alice", "carol"}},
	}
	require.NoError(t, f.SaveChats(chats))

	raw, err := os.ReadFile(f.ChatsPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, `["alice","bob"]`, lines[0])
	assert.Equal(t, `[{"text":"alice: hi","unreadBy":["bob"]},{"text":"bob: hey","unreadBy":[]}]`, lines[1])
	assert.Equal(t, `[]`, lines[3])

	loaded, err := f.LoadChats()
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, chats[0], loaded[0])
	assert.Equal(t, []string{"alice", "carol"}, loaded[1].Members)
	assert.Empty(t, loaded[1].Entries)
}

func TestFileRejectsCorruptChats(t *testing.T) {
	f := newTestFile(t)
	require.NoError(t, os.WriteFile(f.ChatsPath, []byte(`["alice","bob"]`+"\n"), 0644))

	_, err := f.LoadChats()
	assert.Error(t, err)
}

func TestFileRewriteLeavesNoTempFiles(t *testing.T) {
	f := newTestFile(t)
	for i := 0; i < 3; i++ {
		require.NoError(t, f.SaveUsers([]models.Account{{Login: "alice", Roles: []models.Role{models.RoleUser}}}))
	}

	entries, err := os.ReadDir(filepath.Dir(f.UsersPath))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "usersDb.txt", entries[0].Name())
}
