package server

import (
	"errors"
	"log"
	"strconv"

	"duochat/chat"
	"duochat/metrics"
	"duochat/models"
	"duochat/protocol"
	"duochat/users"
)

// handleFrame processes one inbound frame and reports whether the
// connection should stay open.
func (s *Server) handleFrame(session *Session, frame string) bool {
	req := protocol.ParseRequest(frame)
	metrics.Commands.WithLabelValues(req.Cmd.String()).Inc()

	st := session.state()
	if !st.identified {
		return s.handleUnauthenticated(session, st, req)
	}

	if s.users.IsBlocked(st.login) {
		session.notify(protocol.NotInChat)
		return true
	}

	if !req.WellFormed() {
		session.notify(protocol.IncorrectCommand)
		return true
	}

	switch req.Cmd {
	case protocol.CmdExit:
		return false
	case protocol.CmdList:
		s.handleList(session, st)
	case protocol.CmdChat:
		s.handleChat(session, st, req.Arg(0))
	case protocol.CmdStats:
		s.handleStats(session, st)
	case protocol.CmdHistory:
		s.handleHistory(session, st, req.Arg(0))
	case protocol.CmdUnread:
		s.handleUnread(session, st)
	case protocol.CmdGrant:
		s.handleGrant(session, st, req.Arg(0))
	case protocol.CmdRevoke:
		s.handleRevoke(session, st, req.Arg(0))
	case protocol.CmdKick:
		s.handleKick(session, st, req.Arg(0))
	case protocol.CmdText:
		s.handleText(session, st, req.Raw)
	default:
		session.notify(protocol.IncorrectCommand)
	}
	return true
}

func (s *Server) handleUnauthenticated(session *Session, st sessionState, req protocol.Request) bool {
	if !req.WellFormed() {
		session.notify(protocol.NotInChat)
		return true
	}

	switch req.Cmd {
	case protocol.CmdExit:
		return false
	case protocol.CmdRegistration:
		s.handleRegister(session, st, req.Arg(0), req.Arg(1))
	case protocol.CmdAuth:
		s.handleAuth(session, st, req.Arg(0), req.Arg(1))
	default:
		session.notify(protocol.NotInChat)
	}
	return true
}

func (s *Server) handleRegister(session *Session, st sessionState, login, password string) {
	if s.users.IsBlocked(login) {
		session.notify(protocol.Banned)
		return
	}

	res, err := s.users.Register(login, password)
	if err != nil {
		log.Printf("Register error for %s: %v", session.ID, err)
		session.notify(protocol.IncorrectPassword)
		return
	}

	switch res {
	case users.ShortPassword:
		session.notify(protocol.ShortPassword)
	case users.LoginTaken:
		session.notify(protocol.LoginAlreadyTaken)
	case users.Registered:
		log.Printf("Client %s registered as %s", session.ID, login)
		s.enter(session, st, login, protocol.RegisteredSuccessfully)
	}
}

func (s *Server) handleAuth(session *Session, st sessionState, login, password string) {
	if s.users.IsBlocked(login) {
		session.notify(protocol.Banned)
		return
	}

	switch s.users.Authenticate(login, password) {
	case users.IncorrectLogin:
		session.notify(protocol.IncorrectLogin)
	case users.IncorrectPassword:
		session.notify(protocol.IncorrectPassword)
	case users.Authorized:
		s.enter(session, st, login, protocol.AuthorizedSuccessfully)
	}
}

// enter moves an unauthenticated session to the authenticated state.
func (s *Server) enter(session *Session, st sessionState, login string, ack protocol.Notice) {
	if !s.registry.Add(login, session) {
		session.notify(protocol.AlreadyOnline)
		return
	}
	if !session.identify(st.epoch, login) {
		s.registry.RemoveIf(login, session)
		return
	}
	log.Printf("Client %s authenticated as %s", session.ID, login)
	session.notify(ack)
}

func (s *Server) handleList(session *Session, st sessionState) {
	online := s.registry.OnlineExcept(st.login)
	if len(online) == 0 {
		session.notify(protocol.NoOneOnline)
		return
	}
	session.Send(protocol.OnlineFrame(online))
}

func (s *Server) handleChat(session *Session, st sessionState, target string) {
	if target == st.login {
		session.notify(protocol.CantChatWithYourself)
		return
	}
	if _, online := s.registry.Get(target); !online {
		session.notify(protocol.UserNotOnline)
		return
	}

	c, err := s.chats.GetOrCreate(st.login, target)
	if err != nil {
		log.Printf("Chat error for %s: %v", st.login, err)
		session.notify(protocol.IncorrectCommand)
		return
	}

	prev, ok := session.switchChat(st.epoch, c)
	if !ok {
		return
	}
	if prev != nil && prev != c {
		prev.Leave(st.login)
	}

	lines, err := c.Open(st.login)
	if err != nil {
		log.Printf("Chat error for %s: %v", st.login, err)
		return
	}
	if !session.current(st.epoch, c) {
		// Kicked while joining.
		c.Leave(st.login)
		return
	}
	for _, line := range lines {
		if err := session.Send(line); err != nil && !errors.Is(err, protocol.ErrFrameTooLarge) {
			return
		}
	}
}

func (s *Server) handleStats(session *Session, st sessionState) {
	if st.chat == nil {
		session.notify(protocol.ListCommand)
		return
	}

	stats, err := st.chat.Statistics(st.login)
	if err != nil {
		log.Printf("Stats error for %s: %v", st.login, err)
		session.notify(protocol.ListCommand)
		return
	}
	session.Send(protocol.StatisticsFrame(st.login, stats.Counterpart, stats.Total, stats.ByViewer, stats.ByCounterpart))
}

func (s *Server) handleHistory(session *Session, st sessionState, arg string) {
	if st.chat == nil {
		session.notify(protocol.ListCommand)
		return
	}

	from, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			session.notify(protocol.NumberTooLarge)
		} else {
			session.notify(protocol.NotANumber)
		}
		return
	}

	lines, err := st.chat.Page(from, chat.PageSize)
	switch {
	case errors.Is(err, chat.ErrNegativeValue):
		session.notify(protocol.ValShouldBePositive)
		return
	case errors.Is(err, chat.ErrValueTooLarge):
		session.notify(protocol.NumberTooLarge)
		return
	case err != nil:
		log.Printf("History error for %s: %v", st.login, err)
		return
	}

	for _, line := range lines {
		if err := session.Send(line); err != nil && !errors.Is(err, protocol.ErrFrameTooLarge) {
			return
		}
	}
}

func (s *Server) handleUnread(session *Session, st sessionState) {
	counterparts := s.chats.UsersWithUnreadFor(st.login)
	if len(counterparts) == 0 {
		session.notify(protocol.NoOneUnread)
		return
	}
	session.Send(protocol.UnreadFrame(counterparts))
}

func (s *Server) handleGrant(session *Session, st sessionState, target string) {
	if !s.users.HasRole(st.login, models.RoleAdmin) {
		session.notify(protocol.NotAdmin)
		return
	}

	switch s.users.GrantRole(target, models.RoleModerator) {
	case users.UnknownLogin:
		session.notify(protocol.IncorrectLogin)
	case users.AlreadyHeld:
		session.notify(protocol.AlreadyModerator)
	case users.Granted:
		log.Printf("%s granted MODERATOR to %s", st.login, target)
		session.notify(protocol.RoleGranted)
		s.registry.Deliver(target, protocol.NewModerator.Frame())
	}
}

func (s *Server) handleRevoke(session *Session, st sessionState, target string) {
	if !s.users.HasRole(st.login, models.RoleAdmin) {
		session.notify(protocol.NotAdmin)
		return
	}

	switch s.users.RemoveRole(target, models.RoleModerator) {
	case users.UnknownLogin:
		session.notify(protocol.IncorrectLogin)
	case users.NotHeld:
		session.notify(protocol.NotModerator)
	case users.Removed:
		log.Printf("%s revoked MODERATOR from %s", st.login, target)
		session.notify(protocol.RoleRemoved)
		s.registry.Deliver(target, protocol.NoLongerModerator.Frame())
	}
}

// handleKick applies the moderation rules in order and, when they all pass,
// blocks the target and evicts its session.
func (s *Server) handleKick(session *Session, st sessionState, target string) {
	isAdmin := s.users.HasRole(st.login, models.RoleAdmin)
	isModerator := s.users.HasRole(st.login, models.RoleModerator)

	switch {
	case !isAdmin && !isModerator:
		session.notify(protocol.NotModeratorOrAdmin)
		return
	case target == st.login:
		session.notify(protocol.CantKickYourself)
		return
	case !isAdmin && s.users.HasRole(target, models.RoleModerator):
		session.notify(protocol.CantKickModerator)
		return
	case s.users.HasRole(target, models.RoleAdmin):
		session.notify(protocol.CantKickAdmin)
		return
	case !s.users.Exists(target):
		session.notify(protocol.IncorrectLogin)
		return
	}

	handle, online := s.registry.Get(target)
	if !online {
		session.notify(protocol.UserNotOnline)
		return
	}

	if err := s.users.SetBlocked(target, s.now().Add(s.config.KickDuration)); err != nil {
		log.Printf("Kick error for %s: %v", target, err)
		session.notify(protocol.IncorrectLogin)
		return
	}

	if victim, ok := handle.(*Session); ok {
		victim.reset()
		s.registry.RemoveIf(target, victim)
		victim.notify(protocol.Kicked)
	} else {
		s.registry.Remove(target)
	}

	metrics.Kicks.Inc()
	log.Printf("%s kicked %s for %v", st.login, target, s.config.KickDuration)
	session.notify(protocol.UserKicked)
}

func (s *Server) handleText(session *Session, st sessionState, text string) {
	if st.chat == nil {
		session.notify(protocol.ListCommand)
		return
	}

	err := st.chat.SendMessage(st.login, text)
	switch {
	case errors.Is(err, chat.ErrLineTooLong):
		session.notify(protocol.MessageTooLong)
	case err != nil:
		log.Printf("Message error for %s: %v", st.login, err)
		session.notify(protocol.ListCommand)
	}
}
