// internal/models/request.go
package models

import "time"

// PendingRequest correlates an open (member, department) pair with the
// notification message posted for the leader.
type PendingRequest struct {
	ID                    string    `json:"id"`
	MemberID              string    `json:"memberId"`
	Department            string    `json:"department"`
	ChannelID             string    `json:"channelId"`
	NotificationMessageID string    `json:"notificationMessageId"`
	OpenedAt              time.Time `json:"openedAt"`
}

// Verdict markers placed on every notification message.
const (
	ApproveEmoji = "✅"
	DenyEmoji    = "❌"
)
