// internal/models/event.go
package models

// Event is the closed set of inbound platform events the bot reacts to.
type Event interface {
	isEvent()
	Kind() string
}

type MemberJoined struct {
	GuildID  string
	MemberID string
}

type MemberLeft struct {
	GuildID  string
	MemberID string
}

// ChoiceSubmitted is a department button press.
type ChoiceSubmitted struct {
	Interaction Interaction
	ActionID    string
}

// VerdictReceived is a reaction added to a message in a guild channel.
type VerdictReceived struct {
	GuildID   string
	ChannelID string
	MessageID string
	ReactorID string
	Emoji     string
}

func (MemberJoined) isEvent()    {}
func (MemberLeft) isEvent()      {}
func (ChoiceSubmitted) isEvent() {}
func (VerdictReceived) isEvent() {}

func (MemberJoined) Kind() string    { return "member_joined" }
func (MemberLeft) Kind() string      { return "member_left" }
func (ChoiceSubmitted) Kind() string { return "choice_submitted" }
func (VerdictReceived) Kind() string { return "verdict_received" }
