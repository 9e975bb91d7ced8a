// Package metrics provides Prometheus instrumentation for the chat server:
// gauges for connections, online users and chats, and counters for commands,
// chat messages, kicks and persistence failures.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Connections tracks currently open client connections, labeled by
	// transport: "tcp" or "ws".
	Connections = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "duochat_connections",
		Help: "Current number of open client connections",
	}, []string{"transport"})

	// OnlineUsers tracks authenticated sessions in the registry.
	OnlineUsers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "duochat_online_users",
		Help: "Current number of authenticated sessions",
	})

	// Chats tracks the number of known two-party chats.
	Chats = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "duochat_chats",
		Help: "Number of two-party chats",
	})

	// Commands counts processed frames by command name.
	Commands = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "duochat_commands_total",
		Help: "Total number of client frames processed",
	}, []string{"command"})

	// ChatMessages counts messages appended to chat logs.
	ChatMessages = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "duochat_chat_messages_total",
		Help: "Total number of chat messages sent",
	})

	// Kicks counts successful kicks.
	Kicks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "duochat_kicks_total",
		Help: "Total number of users kicked",
	})

	// PersistErrors counts failed store rewrites, labeled by store: "users" or "chats".
	PersistErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "duochat_persist_errors_total",
		Help: "Total number of failed persistence writes",
	}, []string{"store"})
)

func init() {
	prometheus.MustRegister(
		Connections,
		OnlineUsers,
		Chats,
		Commands,
		ChatMessages,
		Kicks,
		PersistErrors,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
