package config

import (
	"os"
	"strconv"
)

type Config struct {
	Host          string
	Port          int
	Store         string // "file" or "sqlite"
	UsersPath     string
	ChatsPath     string
	DBPath        string
	ReadTimeout   int // seconds, 0 = no idle timeout
	WriteTimeout  int // seconds
	KickDuration  int // seconds
	HTTPAddr      string
	ControlSocket string
	AdminLogin    string
	AdminPassword string
}

func Load() *Config {
	cfg := &Config{
		Host:          "127.0.0.1",
		Port:          23456,
		Store:         "file",
		UsersPath:     "usersDb.txt",
		ChatsPath:     "chatsDb.txt",
		DBPath:        "duochat.db",
		ReadTimeout:   0,
		WriteTimeout:  30,
		KickDuration:  25,
		ControlSocket: "/tmp/duochat.sock",
	}

	if host := os.Getenv("CHAT_HOST"); host != "" {
		cfg.Host = host
	}

	if portStr := os.Getenv("CHAT_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			cfg.Port = port
		}
	}

	if kind := os.Getenv("CHAT_STORE"); kind != "" {
		cfg.Store = kind
	}

	if path := os.Getenv("CHAT_USERS_PATH"); path != "" {
		cfg.UsersPath = path
	}

	if path := os.Getenv("CHAT_CHATS_PATH"); path != "" {
		cfg.ChatsPath = path
	}

	if dbPath := os.Getenv("CHAT_DB_PATH"); dbPath != "" {
		cfg.DBPath = dbPath
	}

	if timeoutStr := os.Getenv("CHAT_READ_TIMEOUT"); timeoutStr != "" {
		if timeout, err := strconv.Atoi(timeoutStr); err == nil {
			cfg.ReadTimeout = timeout
		}
	}

	if timeoutStr := os.Getenv("CHAT_WRITE_TIMEOUT"); timeoutStr != "" {
		if timeout, err := strconv.Atoi(timeoutStr); err == nil {
			cfg.WriteTimeout = timeout
		}
	}

	if durationStr := os.Getenv("CHAT_KICK_DURATION"); durationStr != "" {
		if duration, err := strconv.Atoi(durationStr); err == nil && duration > 0 {
			cfg.KickDuration = duration
		}
	}

	if addr := os.Getenv("CHAT_HTTP_ADDR"); addr != "" {
		cfg.HTTPAddr = addr
	}

	if path := os.Getenv("CHAT_CONTROL_SOCKET"); path != "" {
		cfg.ControlSocket = path
	}

	cfg.AdminLogin = os.Getenv("CHAT_ADMIN_LOGIN")
	cfg.AdminPassword = os.Getenv("CHAT_ADMIN_PASSWORD")

	return cfg
}
