package server

import (
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"duochat/chat"
	"duochat/metrics"
	"duochat/protocol"
	"duochat/registry"
	"duochat/users"
)

// ServerConfig holds listener addresses, timeouts and the kick duration.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration // 0 disables the idle timeout
	WriteTimeout time.Duration
	KickDuration time.Duration
	HTTPAddr     string // empty disables /ws, /metrics and /health
}

// DefaultKickDuration is how long a kicked user stays blocked.
const DefaultKickDuration = 25 * time.Second

// Server accepts connections and runs one session per connection against
// the shared user directory, chat directory and session registry.
type Server struct {
	config   *ServerConfig
	users    *users.Directory
	chats    *chat.Directory
	registry *registry.Registry
	now      func() time.Time

	startedAt time.Time

	mu         sync.Mutex
	listener   net.Listener
	httpServer *http.Server
	sessions   map[*Session]struct{} // every open connection, authenticated or not
	closing    bool
}

// New returns a server over the given directories and registry. Call Start or
// Serve to accept connections.
func New(config *ServerConfig, userDir *users.Directory, chatDir *chat.Directory, reg *registry.Registry) *Server {
	if config.KickDuration == 0 {
		config.KickDuration = DefaultKickDuration
	}

	return &Server{
		config:    config,
		users:     userDir,
		chats:     chatDir,
		registry:  reg,
		now:       time.Now,
		startedAt: time.Now(),
		sessions:  make(map[*Session]struct{}),
	}
}

// Start listens on the configured TCP address, and on the HTTP address when
// one is set, and serves until Shutdown.
func (s *Server) Start() error {
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	if s.config.HTTPAddr != "" {
		httpServer := &http.Server{Addr: s.config.HTTPAddr, Handler: s.HTTPHandler()}
		s.mu.Lock()
		s.httpServer = httpServer
		s.mu.Unlock()

		go func() {
			log.Printf("HTTP listening on %s (/ws, /metrics, /health)", s.config.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("HTTP server error: %v", err)
			}
		}()
	}

	log.Printf("duochat server started on %s", listener.Addr())
	return s.Serve(listener)
}

// Serve accepts TCP connections on listener until it is closed.
func (s *Server) Serve(listener net.Listener) error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		listener.Close()
		return nil
	}
	s.listener = listener
	s.mu.Unlock()
	defer listener.Close()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Printf("Error accepting connection: %v", err)
			continue
		}

		go s.handleConnection(protocol.NewStreamConn(conn, s.config.ReadTimeout, s.config.WriteTimeout), "tcp")
	}
}

func (s *Server) handleConnection(conn protocol.FrameConn, transport string) {
	session := newSession(conn)
	if !s.track(session) {
		conn.WriteFrame(protocol.ShuttingDown.Frame())
		conn.Close()
		return
	}

	metrics.Connections.WithLabelValues(transport).Inc()
	defer metrics.Connections.WithLabelValues(transport).Dec()

	remoteAddr := conn.RemoteAddr()
	log.Printf("Client %s connected from %s via %s", session.ID, remoteAddr, transport)

	defer func() {
		login := s.disconnect(session)
		if login != "" {
			log.Printf("Client %s (%s) disconnected from %s", session.ID, login, remoteAddr)
		} else {
			log.Printf("Client %s disconnected from %s", session.ID, remoteAddr)
		}
	}()

	if err := session.Send(protocol.AuthorizeOrRegister.Frame()); err != nil {
		return
	}

	for {
		frame, err := conn.ReadFrame()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				log.Printf("Error reading from %s: %v", remoteAddr, err)
			}
			return
		}

		if !s.handleFrame(session, frame) {
			return
		}
	}
}

func (s *Server) track(session *Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.sessions[session] = struct{}{}
	return true
}

// disconnect releases everything session holds: chat presence, the registry
// entry and the connection. It returns the login the session had.
func (s *Server) disconnect(session *Session) string {
	s.mu.Lock()
	delete(s.sessions, session)
	s.mu.Unlock()

	login := session.reset()
	if login != "" {
		s.registry.RemoveIf(login, session)
	}
	session.conn.Close()
	return login
}

// Shutdown stops accepting connections, tells every client why and closes
// their connections.
func (s *Server) Shutdown(reason string) {
	s.mu.Lock()
	s.closing = true
	listener := s.listener
	httpServer := s.httpServer
	sessions := make([]*Session, 0, len(s.sessions))
	for sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	if listener != nil {
		listener.Close()
	}
	if httpServer != nil {
		httpServer.Close()
	}

	notice := protocol.ShuttingDown.Frame()
	if reason != "" {
		notice += " (" + reason + ")"
	}
	for _, sess := range sessions {
		sess.Send(notice)
		sess.conn.Close()
	}
	log.Printf("Shutdown complete: reason=%s, sessions=%d", reason, len(sessions))
}

// GetStats returns server statistics as a formatted string
func (s *Server) GetStats() string {
	s.mu.Lock()
	connections := len(s.sessions)
	s.mu.Unlock()

	return "connections=" + strconv.Itoa(connections) +
		",users=" + strings.Join(s.registry.Logins(), ";") +
		",chats=" + strconv.Itoa(s.chats.Count())
}
