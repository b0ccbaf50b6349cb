// internal/workers/onboarding/welcome-member/models.go
package welcomemember

type Status string

const (
	StatusWelcomed        Status = "welcomed"
	StatusAlreadyWelcomed Status = "already_welcomed"
	StatusNoSystemChannel Status = "no_system_channel"
)

type Input struct {
	GuildID  string `json:"guildId"`
	MemberID string `json:"memberId"`
}

// Output describes what happened to one join event. Persisted is false
// when the prompt was posted but the ledger write failed.
type Output struct {
	Status    Status `json:"status"`
	ChannelID string `json:"channelId,omitempty"`
	MessageID string `json:"messageId,omitempty"`
	Persisted bool   `json:"persisted"`
}
