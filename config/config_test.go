package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"CHAT_HOST", "CHAT_PORT", "CHAT_STORE", "CHAT_USERS_PATH", "CHAT_CHATS_PATH",
		"CHAT_DB_PATH", "CHAT_READ_TIMEOUT", "CHAT_WRITE_TIMEOUT", "CHAT_KICK_DURATION",
		"CHAT_HTTP_ADDR", "CHAT_CONTROL_SOCKET", "CHAT_ADMIN_LOGIN", "CHAT_ADMIN_PASSWORD",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 23456, cfg.Port)
	assert.Equal(t, "file", cfg.Store)
	assert.Equal(t, "usersDb.txt", cfg.UsersPath)
	assert.Equal(t, "chatsDb.txt", cfg.ChatsPath)
	assert.Equal(t, 0, cfg.ReadTimeout)
	assert.Equal(t, 30, cfg.WriteTimeout)
	assert.Equal(t, 25, cfg.KickDuration)
	assert.Empty(t, cfg.HTTPAddr)
	assert.Empty(t, cfg.AdminLogin)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CHAT_HOST", "0.0.0.0")
	t.Setenv("CHAT_PORT", "4000")
	t.Setenv("CHAT_STORE", "sqlite")
	t.Setenv("CHAT_DB_PATH", "/var/lib/duochat/chat.db")
	t.Setenv("CHAT_READ_TIMEOUT", "300")
	t.Setenv("CHAT_KICK_DURATION", "60")
	t.Setenv("CHAT_HTTP_ADDR", ":8080")
	t.Setenv("CHAT_ADMIN_LOGIN", "root")
	t.Setenv("CHAT_ADMIN_PASSWORD", "rootpassword")

	cfg := Load()
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 4000, cfg.Port)
	assert.Equal(t, "sqlite", cfg.Store)
	assert.Equal(t, "/var/lib/duochat/chat.db", cfg.DBPath)
	assert.Equal(t, 300, cfg.ReadTimeout)
	assert.Equal(t, 60, cfg.KickDuration)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "root", cfg.AdminLogin)
	assert.Equal(t, "rootpassword", cfg.AdminPassword)
}

func TestLoadIgnoresInvalidNumbers(t *testing.T) {
	t.Setenv("CHAT_PORT", "not-a-port")
	t.Setenv("CHAT_WRITE_TIMEOUT", "soon")
	t.Setenv("CHAT_KICK_DURATION", "-5")

	cfg := Load()
	assert.Equal(t, 23456, cfg.Port)
	assert.Equal(t, 30, cfg.WriteTimeout)
	assert.Equal(t, 25, cfg.KickDuration)
}
