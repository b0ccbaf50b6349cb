package discord

import (
	"onboarding-bot/internal/models"

	"github.com/bwmarrin/discordgo"
)

func translateMemberAdd(e *discordgo.GuildMemberAdd) (models.Event, bool) {
	if e == nil || e.Member == nil || e.User == nil || e.User.Bot {
		return nil, false
	}
	return models.MemberJoined{GuildID: e.GuildID, MemberID: e.User.ID}, true
}

func translateMemberRemove(e *discordgo.GuildMemberRemove) (models.Event, bool) {
	if e == nil || e.Member == nil || e.User == nil || e.User.Bot {
		return nil, false
	}
	return models.MemberLeft{GuildID: e.GuildID, MemberID: e.User.ID}, true
}

// translateInteraction keeps only button presses made inside a guild.
func translateInteraction(e *discordgo.InteractionCreate) (models.Event, bool) {
	if e == nil || e.Interaction == nil || e.Type != discordgo.InteractionMessageComponent {
		return nil, false
	}
	if e.GuildID == "" || e.Member == nil || e.Member.User == nil || e.Data == nil {
		return nil, false
	}
	data, ok := e.Data.(discordgo.MessageComponentInteractionData)
	if !ok {
		return nil, false
	}
	if data.ComponentType != discordgo.ButtonComponent {
		return nil, false
	}

	return models.ChoiceSubmitted{
		Interaction: models.Interaction{
			ID:       e.ID,
			Token:    e.Token,
			GuildID:  e.GuildID,
			MemberID: e.Member.User.ID,
		},
		ActionID: data.CustomID,
	}, true
}

// translateReactionAdd drops reactions outside guild channels.
func translateReactionAdd(e *discordgo.MessageReactionAdd) (models.Event, bool) {
	if e == nil || e.MessageReaction == nil || e.GuildID == "" {
		return nil, false
	}
	return models.VerdictReceived{
		GuildID:   e.GuildID,
		ChannelID: e.ChannelID,
		MessageID: e.MessageID,
		ReactorID: e.UserID,
		Emoji:     e.Emoji.Name,
	}, true
}
