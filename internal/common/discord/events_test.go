package discord

import (
	"testing"

	"onboarding-bot/internal/models"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateMemberAdd(t *testing.T) {
	ev, ok := translateMemberAdd(&discordgo.GuildMemberAdd{Member: &discordgo.Member{
		GuildID: "g1",
		User:    &discordgo.User{ID: "u1"},
	}})
	require.True(t, ok)
	assert.Equal(t, models.MemberJoined{GuildID: "g1", MemberID: "u1"}, ev)

	_, ok = translateMemberAdd(&discordgo.GuildMemberAdd{Member: &discordgo.Member{
		GuildID: "g1",
		User:    &discordgo.User{ID: "b1", Bot: true},
	}})
	assert.False(t, ok, "bot accounts are not welcomed")
}

func TestTranslateMemberRemove(t *testing.T) {
	ev, ok := translateMemberRemove(&discordgo.GuildMemberRemove{Member: &discordgo.Member{
		GuildID: "g1",
		User:    &discordgo.User{ID: "u1"},
	}})
	require.True(t, ok)
	assert.Equal(t, models.MemberLeft{GuildID: "g1", MemberID: "u1"}, ev)
}

func TestTranslateInteraction(t *testing.T) {
	button := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		ID:      "i1",
		Token:   "tok",
		Type:    discordgo.InteractionMessageComponent,
		GuildID: "g1",
		Member:  &discordgo.Member{User: &discordgo.User{ID: "u1"}},
		Data: discordgo.MessageComponentInteractionData{
			CustomID:      "choix_REF",
			ComponentType: discordgo.ButtonComponent,
		},
	}}

	ev, ok := translateInteraction(button)
	require.True(t, ok)
	assert.Equal(t, models.ChoiceSubmitted{
		Interaction: models.Interaction{ID: "i1", Token: "tok", GuildID: "g1", MemberID: "u1"},
		ActionID:    "choix_REF",
	}, ev)

	t.Run("slash command ignored", func(t *testing.T) {
		_, ok := translateInteraction(&discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
			Type:    discordgo.InteractionApplicationCommand,
			GuildID: "g1",
			Member:  &discordgo.Member{User: &discordgo.User{ID: "u1"}},
			Data:    discordgo.ApplicationCommandInteractionData{Name: "ping"},
		}})
		assert.False(t, ok)
	})

	t.Run("direct message ignored", func(t *testing.T) {
		_, ok := translateInteraction(&discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
			Type: discordgo.InteractionMessageComponent,
			User: &discordgo.User{ID: "u1"},
			Data: discordgo.MessageComponentInteractionData{
				CustomID:      "choix_REF",
				ComponentType: discordgo.ButtonComponent,
			},
		}})
		assert.False(t, ok)
	})
}

func TestTranslateReactionAdd(t *testing.T) {
	ev, ok := translateReactionAdd(&discordgo.MessageReactionAdd{MessageReaction: &discordgo.MessageReaction{
		UserID:    "leader",
		MessageID: "m1",
		ChannelID: "c1",
		GuildID:   "g1",
		Emoji:     discordgo.Emoji{Name: models.ApproveEmoji},
	}})
	require.True(t, ok)
	assert.Equal(t, models.VerdictReceived{
		GuildID:   "g1",
		ChannelID: "c1",
		MessageID: "m1",
		ReactorID: "leader",
		Emoji:     models.ApproveEmoji,
	}, ev)

	_, ok = translateReactionAdd(&discordgo.MessageReactionAdd{MessageReaction: &discordgo.MessageReaction{
		UserID:    "leader",
		MessageID: "m1",
		ChannelID: "dm",
		Emoji:     discordgo.Emoji{Name: models.ApproveEmoji},
	}})
	assert.False(t, ok)
}

func TestButtonRows(t *testing.T) {
	var buttons []models.Button
	for _, name := range []string{"REF", "DEVDESIGN", "ITK", "SAISIE", "RPI", "ADM", "CC"} {
		buttons = append(buttons, models.Button{CustomID: models.ChoiceActionID(name), Label: name})
	}

	rows := buttonRows(buttons)
	require.Len(t, rows, 2)
	first := rows[0].(discordgo.ActionsRow)
	second := rows[1].(discordgo.ActionsRow)
	assert.Len(t, first.Components, 5)
	assert.Len(t, second.Components, 2)

	btn := second.Components[1].(discordgo.Button)
	assert.Equal(t, "choix_CC", btn.CustomID)
	assert.Equal(t, discordgo.PrimaryButton, btn.Style)

	assert.Empty(t, buttonRows(nil))
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Nick", displayName(&discordgo.Member{Nick: "Nick", User: &discordgo.User{Username: "user"}}))
	assert.Equal(t, "Global", displayName(&discordgo.Member{User: &discordgo.User{Username: "user", GlobalName: "Global"}}))
	assert.Equal(t, "user", displayName(&discordgo.Member{User: &discordgo.User{Username: "user"}}))
}

func TestMentions(t *testing.T) {
	assert.Equal(t, "<@42>", UserMention("42"))
	assert.Equal(t, "<@&7>", RoleMention("7"))
}
