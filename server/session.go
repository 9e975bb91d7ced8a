package server

import (
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"

	"duochat/chat"
	"duochat/protocol"
)

// Session is the server side of one client connection.
//
// State changes made by the session's own goroutine are committed against the
// epoch observed when the command started; a kick or disconnect bumps the
// epoch so a command already in flight cannot resurrect an evicted session.
type Session struct {
	ID   string
	conn protocol.FrameConn

	mu         sync.Mutex
	login      string
	identified bool
	chat       *chat.Chat
	epoch      uint64
}

type sessionState struct {
	login      string
	identified bool
	chat       *chat.Chat
	epoch      uint64
}

func newSession(conn protocol.FrameConn) *Session {
	return &Session{ID: uuid.New().String(), conn: conn}
}

// Send writes one frame. A failed write closes the connection, which ends
// the session's read loop; an unencodable frame is dropped instead.
func (s *Session) Send(text string) error {
	err := s.conn.WriteFrame(text)
	switch {
	case errors.Is(err, protocol.ErrFrameTooLarge):
		log.Printf("Dropped frame for %s: %v", s.ID, err)
		return err
	case err != nil:
		log.Printf("Error writing to %s: %v", s.ID, err)
		s.conn.Close()
		return err
	}
	return nil
}

func (s *Session) notify(n protocol.Notice) {
	s.Send(n.Frame())
}

func (s *Session) state() sessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sessionState{login: s.login, identified: s.identified, chat: s.chat, epoch: s.epoch}
}

// identify binds login to the session unless it was reset since epoch.
func (s *Session) identify(epoch uint64, login string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return false
	}
	s.login = login
	s.identified = true
	return true
}

// switchChat makes c the current chat unless the session was reset since
// epoch, and returns the chat it replaced.
func (s *Session) switchChat(epoch uint64, c *chat.Chat) (*chat.Chat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return nil, false
	}
	prev := s.chat
	s.chat = c
	return prev, true
}

// current reports whether the session is still in epoch with c open.
func (s *Session) current(epoch uint64, c *chat.Chat) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch == epoch && s.chat == c
}

// reset returns the session to the unauthenticated state, leaving its chat,
// and returns the login it held.
func (s *Session) reset() string {
	s.mu.Lock()
	login, c := s.login, s.chat
	s.login = ""
	s.identified = false
	s.chat = nil
	s.epoch++
	s.mu.Unlock()

	if c != nil {
		c.Leave(login)
	}
	return login
}
