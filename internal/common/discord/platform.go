// Package discord is the messaging platform boundary: the Platform
// interface the workers talk to, and its discordgo implementation.
package discord

import (
	"context"
	"errors"

	"onboarding-bot/internal/models"
)

// ErrNotFound is returned when a channel, message or member does not exist
// or is not visible to the bot.
var ErrNotFound = errors.New("not found")

// Platform is everything the workers need from the chat platform.
type Platform interface {
	// BotUserID is the bot's own user id.
	BotUserID() string

	Channel(ctx context.Context, channelID string) (*models.Channel, error)
	// SystemChannel returns the guild's system channel id, or "" if unset.
	SystemChannel(ctx context.Context, guildID string) (string, error)
	Message(ctx context.Context, channelID, messageID string) (*models.Message, error)

	MemberCanView(ctx context.Context, guildID, channelID, memberID string) (bool, error)
	BotCanSend(ctx context.Context, guildID, channelID string) (bool, error)
	MemberHasRole(ctx context.Context, guildID, memberID, roleID string) (bool, error)
	MemberDisplayName(ctx context.Context, guildID, memberID string) (string, error)

	SendMessage(ctx context.Context, channelID, content string) (*models.Message, error)
	SendWelcome(ctx context.Context, channelID string, prompt models.WelcomePrompt) (*models.Message, error)
	Reply(ctx context.Context, channelID, messageID, content string) error
	AddReaction(ctx context.Context, channelID, messageID, emoji string) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	AddRole(ctx context.Context, guildID, memberID, roleID string) error
	SendDirect(ctx context.Context, memberID, content string) error
	RespondPrivate(ctx context.Context, interaction models.Interaction, content string) error
}

// UserMention renders a user mention.
func UserMention(userID string) string {
	return "<@" + userID + ">"
}

// RoleMention renders a role mention.
func RoleMention(roleID string) string {
	return "<@&" + roleID + ">"
}
