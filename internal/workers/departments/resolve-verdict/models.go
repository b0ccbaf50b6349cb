// internal/workers/departments/resolve-verdict/models.go
package resolveverdict

import "onboarding-bot/internal/models"

type Verdict string

const (
	VerdictApproved Verdict = "approved"
	VerdictDenied   Verdict = "denied"
	VerdictIgnored  Verdict = "ignored"
)

// Reasons a reaction is ignored.
const (
	ReasonOtherEmoji        = "other_emoji"
	ReasonOwnReaction       = "own_reaction"
	ReasonUnknownMessage    = "unknown_message"
	ReasonUnknownDept       = "unknown_department"
	ReasonNotLeader         = "not_leader"
	ReasonAlreadySettled    = "already_settled"
	// the pair is open again under a newer notification
	ReasonStaleNotification = "stale_notification"
)

type Input struct {
	GuildID   string `json:"guildId"`
	ChannelID string `json:"channelId"`
	MessageID string `json:"messageId"`
	ReactorID string `json:"reactorId"`
	Emoji     string `json:"emoji"`
}

type Output struct {
	Verdict  Verdict               `json:"verdict"`
	Reason   string                `json:"reason,omitempty"`
	Request  models.PendingRequest `json:"request"`
	Notified bool                  `json:"notified"`
}
