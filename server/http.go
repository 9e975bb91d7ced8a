package server

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gobwas/ws"
	"github.com/julienschmidt/httprouter"

	"duochat/metrics"
	"duochat/protocol"
)

// HTTPHandler routes the HTTP side of the server: the WebSocket transport on
// /ws, Prometheus metrics on /metrics, a JSON health report on /health and
// the control socket's stats line on /stats.
func (s *Server) HTTPHandler() http.Handler {
	router := httprouter.New()
	router.GET("/ws", s.handleUpgrade)
	router.Handler(http.MethodGet, "/metrics", metrics.Handler())
	router.GET("/health", s.handleHealth)
	router.GET("/stats", s.serveStats)
	return router
}

// handleUpgrade upgrades the request and runs a session over the hijacked
// connection, one WebSocket text message per frame.
func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		log.Printf("ws: upgrade failed: %v", err)
		return
	}

	s.handleConnection(protocol.NewWSConn(conn, s.config.ReadTimeout, s.config.WriteTimeout), "ws")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.mu.Lock()
	connections := len(s.sessions)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	resp := struct {
		Status      string `json:"status"`
		Connections int    `json:"connections"`
		Online      int    `json:"online"`
		Chats       int    `json:"chats"`
		Uptime      string `json:"uptime"`
	}{
		Status:      "ok",
		Connections: connections,
		Online:      s.registry.Count(),
		Chats:       s.chats.Count(),
		Uptime:      time.Since(s.startedAt).Round(time.Second).String(),
	}

	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) serveStats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(s.GetStats() + "\n"))
}
