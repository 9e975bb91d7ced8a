// Package store persists the user and chat directories. Every save rewrites
// the whole data set; callers serialise saves themselves.
package store

import "duochat/models"

// UserStore loads and rewrites the full account set.
type UserStore interface {
	LoadUsers() ([]models.Account, error)
	SaveUsers(accounts []models.Account) error
}

// ChatStore loads and rewrites the full chat set.
type ChatStore interface {
	LoadChats() ([]models.ChatRecord, error)
	SaveChats(chats []models.ChatRecord) error
}

// Memory keeps the last saved snapshot in process. It backs tests and
// ephemeral servers.
type Memory struct {
	Users []models.Account
	Chats []models.ChatRecord
}

func (m *Memory) LoadUsers() ([]models.Account, error) { return m.Users, nil }

func (m *Memory) SaveUsers(accounts []models.Account) error {
	m.Users = accounts
	return nil
}

func (m *Memory) LoadChats() ([]models.ChatRecord, error) { return m.Chats, nil }

func (m *Memory) SaveChats(chats []models.ChatRecord) error {
	m.Chats = chats
	return nil
}
