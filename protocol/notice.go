package protocol

import (
	"fmt"
	"strings"
)

// ServerPrefix starts every frame the server originates.
const ServerPrefix = "Server: "

// Notice is a fixed server reply.
type Notice string

const (
	IncorrectLogin       Notice = "incorrect login!"
	IncorrectPassword    Notice = "incorrect password!"
	ShortPassword        Notice = "the password is too short!"
	LoginAlreadyTaken    Notice = "this login is already taken! Choose another one."
	UserNotOnline        Notice = "the user is not online!"
	IncorrectCommand     Notice = "incorrect command!"
	AlreadyOnline        Notice = "this user is already online!"
	CantChatWithYourself Notice = "you can't chat with yourself!"
	MessageTooLong       Notice = "the message is too long!"

	AuthorizeOrRegister    Notice = "authorize or register"
	RegisteredSuccessfully Notice = "you are registered successfully!"
	AuthorizedSuccessfully Notice = "you are authorized successfully!"
	NotInChat              Notice = "you are not in the chat!"
	ListCommand            Notice = "use /list command to choose a user to text!"
	NoOneOnline            Notice = "no one online"
	ValShouldBePositive    Notice = "value should be positive"
	NotANumber             Notice = "value should be a number!"
	NumberTooLarge         Notice = "value is too large!"
	NoOneUnread            Notice = "no one unread"

	RoleGranted       Notice = "role was granted successfully"
	RoleRemoved       Notice = "role was removed successfully"
	AlreadyModerator  Notice = "this user is already a moderator!"
	NotAdmin          Notice = "you are not an admin!"
	NewModerator      Notice = "you are the new moderator now!"
	NotModerator      Notice = "this user is not a moderator!"
	NoLongerModerator Notice = "you are no longer a moderator!"

	CantKickYourself    Notice = "you can't kick yourself!"
	NotModeratorOrAdmin Notice = "you are not a moderator or an admin!"
	Kicked              Notice = "you have been kicked out of the server!"
	UserKicked          Notice = "the user was kicked successfully!"
	CantKickModerator   Notice = "you can't kick a moderator!"
	CantKickAdmin       Notice = "you can't kick an admin!"
	Banned              Notice = "you are banned!"

	ShuttingDown Notice = "the server is shutting down!"
)

// Frame renders the notice as it appears on the wire.
func (n Notice) Frame() string {
	return ServerPrefix + string(n)
}

// OnlineFrame lists online logins.
func OnlineFrame(logins []string) string {
	return ServerPrefix + "online: " + strings.Join(logins, " ")
}

// UnreadFrame lists counterparts with unread messages.
func UnreadFrame(logins []string) string {
	return ServerPrefix + "unread: " + strings.Join(logins, " ")
}

// StatisticsFrame renders per-chat statistics for viewer.
func StatisticsFrame(viewer, counterpart string, total, byViewer, byCounterpart int) string {
	var b strings.Builder
	b.WriteString("Server:\n")
	fmt.Fprintf(&b, "Statistics with %s:\n", counterpart)
	fmt.Fprintf(&b, "Total messages: %d\n", total)
	fmt.Fprintf(&b, "Messages from %s: %d\n", viewer, byViewer)
	fmt.Fprintf(&b, "Messages from %s: %d", counterpart, byCounterpart)
	return b.String()
}
