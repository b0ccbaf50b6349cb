// internal/workers/departments/resolve-verdict/handler_test.go
package resolveverdict

import (
	"context"
	"sync"
	"testing"
	"time"

	"onboarding-bot/internal/common/discord/discordtest"
	apperrors "onboarding-bot/internal/common/errors"
	"onboarding-bot/internal/common/logger"
	"onboarding-bot/internal/models"
	"onboarding-bot/internal/tracker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

const (
	guildID  = "g1"
	memberID = "111"
	leaderID = "222"
	channel  = "chan-ref"
)

func createDirectory() *models.DepartmentDirectory {
	return models.NewDepartmentDirectory(
		models.Department{Name: "REF", MemberRoleID: "role-ref", LeaderRoleID: "lead-ref", ChannelID: channel},
		models.Department{Name: "ITK", MemberRoleID: "role-itk", LeaderRoleID: "lead-itk", ChannelID: "chan-itk"},
	)
}

func createPlatform() *discordtest.Fake {
	return discordtest.New().
		AddChannel(guildID, channel, "ref").
		GiveRole(leaderID, "lead-ref").
		SetDisplayName(memberID, "Alice")
}

func createTestHandler(t *testing.T, platform *discordtest.Fake, config *Config) (*Handler, *tracker.Tracker) {
	if config == nil {
		config = &Config{Timeout: 5 * time.Second, TextFallback: true}
	}
	tr := tracker.New()
	return NewHandler(config, createDirectory(), tr, platform, logger.NewTestLogger(t)), tr
}

// openRequest posts a notification and registers it the way a submit does.
func openRequest(t *testing.T, platform *discordtest.Fake, tr *tracker.Tracker, dept string) string {
	t.Helper()
	msg, err := platform.SendMessage(context.Background(), channel,
		"<@&lead-ref>, <@"+memberID+"> a choisi **"+dept+"**. Veuillez confirmer avec ✅ ou refuser avec ❌.")
	require.NoError(t, err)
	require.NoError(t, tr.TryOpen(memberID, dept))
	_, err = tr.Attach(memberID, dept, channel, msg.ID)
	require.NoError(t, err)
	return msg.ID
}

func reaction(messageID, reactor, emoji string) models.VerdictReceived {
	return models.VerdictReceived{
		GuildID:   guildID,
		ChannelID: channel,
		MessageID: messageID,
		ReactorID: reactor,
		Emoji:     emoji,
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Approve(t *testing.T) {
	platform := createPlatform()
	h, tr := createTestHandler(t, platform, nil)
	msgID := openRequest(t, platform, tr, "REF")

	output, err := h.Execute(context.Background(), &Input{
		GuildID: guildID, ChannelID: channel, MessageID: msgID, ReactorID: leaderID, Emoji: models.ApproveEmoji,
	})
	require.NoError(t, err)
	assert.Equal(t, VerdictApproved, output.Verdict)
	assert.Equal(t, "REF", output.Request.Department)

	assert.True(t, platform.HasRole(memberID, "role-ref"))
	require.Len(t, platform.Replies, 1)
	assert.Equal(t, "✅ **Alice** a été accepté dans **REF**.", platform.Replies[0].Content)
	assert.Equal(t, msgID, platform.Replies[0].MessageID)
	assert.Empty(t, platform.Directs)

	assert.False(t, tr.IsOpen(memberID, "REF"))
	assert.False(t, tr.HasMember(memberID))
}

func TestHandler_Execute_Deny(t *testing.T) {
	platform := createPlatform()
	h, tr := createTestHandler(t, platform, nil)
	msgID := openRequest(t, platform, tr, "REF")

	output, err := h.Execute(context.Background(), &Input{
		GuildID: guildID, ChannelID: channel, MessageID: msgID, ReactorID: leaderID, Emoji: models.DenyEmoji,
	})
	require.NoError(t, err)
	assert.Equal(t, VerdictDenied, output.Verdict)
	assert.True(t, output.Notified)

	assert.False(t, platform.HasRole(memberID, "role-ref"))
	require.Len(t, platform.Replies, 1)
	assert.Equal(t, "❌ **Alice** a été refusé dans **REF**.", platform.Replies[0].Content)
	require.Len(t, platform.Directs, 1)
	assert.Equal(t, memberID, platform.Directs[0].MemberID)
	assert.Contains(t, platform.Directs[0].Content, "**REF**")
	assert.False(t, tr.HasMember(memberID))
}

func TestHandler_Execute_DenyDeliveryFailureTolerated(t *testing.T) {
	platform := createPlatform().FailOn("SendDirect", nil)
	h, tr := createTestHandler(t, platform, nil)
	msgID := openRequest(t, platform, tr, "REF")

	err := h.Handle(context.Background(), reaction(msgID, leaderID, models.DenyEmoji))
	require.NoError(t, err)

	assert.Len(t, platform.Replies, 1)
	assert.Empty(t, platform.Directs)
	assert.False(t, tr.IsOpen(memberID, "REF"))
}

func TestHandler_Execute_OtherRequestUnaffected(t *testing.T) {
	platform := createPlatform()
	h, tr := createTestHandler(t, platform, nil)
	msgID := openRequest(t, platform, tr, "REF")
	require.NoError(t, tr.TryOpen(memberID, "ITK"))

	require.NoError(t, h.Handle(context.Background(), reaction(msgID, leaderID, models.ApproveEmoji)))

	assert.False(t, tr.IsOpen(memberID, "REF"))
	assert.True(t, tr.IsOpen(memberID, "ITK"))
}

// ==========================
// Ignored Reaction Tests
// ==========================

func TestHandler_Execute_Ignored(t *testing.T) {
	tests := []struct {
		name      string
		reactor   string
		emoji     string
		messageID func(msgID string) string
		reason    string
	}{
		{"other emoji", leaderID, "👍", nil, ReasonOtherEmoji},
		{"reactor without leader role", "333", models.ApproveEmoji, nil, ReasonNotLeader},
		{"bot own reaction", "bot", models.ApproveEmoji, nil, ReasonOwnReaction},
		{"unknown message", leaderID, models.ApproveEmoji, func(string) string { return "elsewhere" }, ReasonUnknownMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			platform := createPlatform()
			h, tr := createTestHandler(t, platform, nil)
			msgID := openRequest(t, platform, tr, "REF")
			if tt.messageID != nil {
				msgID = tt.messageID(msgID)
			}

			output, err := h.Execute(context.Background(), &Input{
				GuildID: guildID, ChannelID: channel, MessageID: msgID, ReactorID: tt.reactor, Emoji: tt.emoji,
			})
			require.NoError(t, err)
			assert.Equal(t, VerdictIgnored, output.Verdict)
			assert.Equal(t, tt.reason, output.Reason)

			assert.True(t, tr.IsOpen(memberID, "REF"))
			assert.Empty(t, platform.Replies)
			assert.Empty(t, platform.Grants)
			assert.Empty(t, platform.Directs)
		})
	}
}

func TestHandler_Execute_SecondVerdictIgnored(t *testing.T) {
	platform := createPlatform()
	h, tr := createTestHandler(t, platform, nil)
	msgID := openRequest(t, platform, tr, "REF")
	ctx := context.Background()

	require.NoError(t, h.Handle(ctx, reaction(msgID, leaderID, models.ApproveEmoji)))
	output, err := h.Execute(ctx, &Input{
		GuildID: guildID, ChannelID: channel, MessageID: msgID, ReactorID: leaderID, Emoji: models.DenyEmoji,
	})
	require.NoError(t, err)
	assert.Equal(t, VerdictIgnored, output.Verdict)
	assert.Equal(t, ReasonAlreadySettled, output.Reason)
	assert.Len(t, platform.Replies, 1)
}

func TestHandler_Handle_ConcurrentVerdicts(t *testing.T) {
	platform := createPlatform()
	h, tr := createTestHandler(t, platform, nil)
	msgID := openRequest(t, platform, tr, "REF")

	var wg sync.WaitGroup
	for _, emoji := range []string{models.ApproveEmoji, models.DenyEmoji, models.ApproveEmoji} {
		wg.Add(1)
		go func(emoji string) {
			defer wg.Done()
			_ = h.Handle(context.Background(), reaction(msgID, leaderID, emoji))
		}(emoji)
	}
	wg.Wait()

	assert.Len(t, platform.Replies, 1)
	assert.Zero(t, tr.Len())
}

// ==========================
// Expiry Tests
// ==========================

func TestHandler_Execute_ExpiredNotificationAfterResubmit(t *testing.T) {
	platform := createPlatform()
	h, tr := createTestHandler(t, platform, nil)
	ctx := context.Background()

	oldID := openRequest(t, platform, tr, "REF")
	expired := tr.Expire(time.Now().Add(time.Hour), time.Minute)
	require.Len(t, expired, 1)
	assert.False(t, tr.IsOpen(memberID, "REF"))

	newID := openRequest(t, platform, tr, "REF")

	output, err := h.Execute(ctx, &Input{
		GuildID: guildID, ChannelID: channel, MessageID: oldID, ReactorID: leaderID, Emoji: models.ApproveEmoji,
	})
	require.NoError(t, err)
	assert.Equal(t, VerdictIgnored, output.Verdict)
	assert.Equal(t, ReasonAlreadySettled, output.Reason)
	assert.False(t, platform.HasRole(memberID, "role-ref"))
	assert.True(t, tr.IsOpen(memberID, "REF"))

	require.NoError(t, h.Handle(ctx, reaction(newID, leaderID, models.ApproveEmoji)))
	assert.True(t, platform.HasRole(memberID, "role-ref"))
	assert.Len(t, platform.Grants, 1)
	assert.Len(t, platform.Replies, 1)
	assert.False(t, tr.IsOpen(memberID, "REF"))
}

func TestHandler_Execute_ExpiredNotificationIgnored(t *testing.T) {
	platform := createPlatform()
	h, tr := createTestHandler(t, platform, nil)

	msgID := openRequest(t, platform, tr, "REF")
	require.Len(t, tr.Expire(time.Now().Add(time.Hour), time.Minute), 1)

	require.NoError(t, h.Handle(context.Background(), reaction(msgID, leaderID, models.ApproveEmoji)))
	assert.Empty(t, platform.Grants)
	assert.Empty(t, platform.Replies)
}

func TestHandler_Execute_StaleNotificationIgnored(t *testing.T) {
	// An untracked notification for a pair that is open under another one,
	// e.g. posted before a restart and submitted again since.
	platform := createPlatform().PutMessage(models.Message{
		ID:        "old-1",
		ChannelID: channel,
		AuthorID:  "bot",
		Content:   "<@&lead-ref>, <@" + memberID + "> a choisi **REF**. Veuillez confirmer avec ✅ ou refuser avec ❌.",
		Mentions:  []string{memberID},
	})
	h, tr := createTestHandler(t, platform, nil)
	currentID := openRequest(t, platform, tr, "REF")

	output, err := h.Execute(context.Background(), &Input{
		GuildID: guildID, ChannelID: channel, MessageID: "old-1", ReactorID: leaderID, Emoji: models.DenyEmoji,
	})
	require.NoError(t, err)
	assert.Equal(t, VerdictIgnored, output.Verdict)
	assert.Equal(t, ReasonStaleNotification, output.Reason)
	assert.Empty(t, platform.Replies)
	assert.Empty(t, platform.Directs)

	req, ok := tr.ByMessage(currentID)
	require.True(t, ok)
	assert.Equal(t, memberID, req.MemberID)
}

// ==========================
// Text Fallback Tests
// ==========================

func TestHandler_Execute_TextFallback(t *testing.T) {
	platform := createPlatform().PutMessage(models.Message{
		ID:        "old-1",
		ChannelID: channel,
		GuildID:   guildID,
		AuthorID:  "bot",
		Content:   "<@&lead-ref>, <@" + memberID + "> a choisi **REF**. Veuillez confirmer avec ✅ ou refuser avec ❌.",
	})
	h, tr := createTestHandler(t, platform, nil)

	output, err := h.Execute(context.Background(), &Input{
		GuildID: guildID, ChannelID: channel, MessageID: "old-1", ReactorID: leaderID, Emoji: models.ApproveEmoji,
	})
	require.NoError(t, err)
	assert.Equal(t, VerdictApproved, output.Verdict)
	assert.Equal(t, memberID, output.Request.MemberID)
	assert.True(t, platform.HasRole(memberID, "role-ref"))
	assert.Zero(t, tr.Len())
}

func TestHandler_Execute_TextFallbackRejects(t *testing.T) {
	tests := []struct {
		name    string
		message models.Message
		config  *Config
	}{
		{
			name:    "message from another author",
			message: models.Message{ID: "old-1", ChannelID: channel, AuthorID: "someone", Content: "<@111> **REF**"},
		},
		{
			name:    "no member mention",
			message: models.Message{ID: "old-1", ChannelID: channel, AuthorID: "bot", Content: "<@&lead-ref> **REF**"},
		},
		{
			name:    "no department token",
			message: models.Message{ID: "old-1", ChannelID: channel, AuthorID: "bot", Content: "<@111> REF"},
		},
		{
			name:    "unknown department",
			message: models.Message{ID: "old-1", ChannelID: channel, AuthorID: "bot", Content: "<@111> **NOPE**"},
		},
		{
			name:    "fallback disabled",
			message: models.Message{ID: "old-1", ChannelID: channel, AuthorID: "bot", Content: "<@111> **REF**"},
			config:  &Config{Timeout: 5 * time.Second},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			platform := createPlatform().PutMessage(tt.message)
			h, _ := createTestHandler(t, platform, tt.config)

			output, err := h.Execute(context.Background(), &Input{
				GuildID: guildID, ChannelID: channel, MessageID: "old-1", ReactorID: leaderID, Emoji: models.ApproveEmoji,
			})
			require.NoError(t, err)
			assert.Equal(t, VerdictIgnored, output.Verdict)
			assert.Empty(t, platform.Grants)
			assert.Empty(t, platform.Replies)
		})
	}
}

func TestParseNotification(t *testing.T) {
	member, dept, ok := parseNotification(&models.Message{
		Content:  "<@&9>, <@!5> a choisi **ITK**.",
		Mentions: []string{"7"},
	})
	require.True(t, ok)
	assert.Equal(t, "7", member, "structured mentions win over content")
	assert.Equal(t, "ITK", dept)

	member, _, ok = parseNotification(&models.Message{Content: "<@&9>, <@!5> a choisi **ITK**."})
	require.True(t, ok)
	assert.Equal(t, "5", member)
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_GrantFailureKeepsRequestOpen(t *testing.T) {
	platform := createPlatform().FailOn("AddRole", nil)
	h, tr := createTestHandler(t, platform, nil)
	msgID := openRequest(t, platform, tr, "REF")

	err := h.Handle(context.Background(), reaction(msgID, leaderID, models.ApproveEmoji))
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodePlatformRequestFailed))
	assert.True(t, tr.IsOpen(memberID, "REF"))
	assert.Empty(t, platform.Replies)
}
