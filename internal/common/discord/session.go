package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"onboarding-bot/internal/common/logger"
	"onboarding-bot/internal/models"

	"github.com/bwmarrin/discordgo"
)

// Intents needed to see joins, button presses and reactions.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMembers |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsMessageContent |
	discordgo.IntentsGuildMessageReactions

const maxButtonsPerRow = 5

// Session implements Platform on top of a discordgo session.
type Session struct {
	dg     *discordgo.Session
	logger logger.Logger
}

// NewSession creates a session for a bot token. httpClient, when non-nil,
// replaces the default REST transport.
func NewSession(token string, httpClient *http.Client, log logger.Logger) (*Session, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	dg.Identify.Intents = Intents
	dg.StateEnabled = true
	if httpClient != nil {
		dg.Client = httpClient
	}

	return &Session{
		dg:     dg,
		logger: log.WithFields(map[string]interface{}{"component": "discord"}),
	}, nil
}

// Subscribe routes translated gateway events to sink. discordgo calls each
// handler on its own goroutine.
func (s *Session) Subscribe(sink func(models.Event)) {
	s.dg.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		s.logger.Info("bot connected", map[string]interface{}{
			"user":   r.User.Username,
			"guilds": len(r.Guilds),
		})
	})
	s.dg.AddHandler(func(_ *discordgo.Session, e *discordgo.GuildMemberAdd) {
		if ev, ok := translateMemberAdd(e); ok {
			sink(ev)
		}
	})
	s.dg.AddHandler(func(_ *discordgo.Session, e *discordgo.GuildMemberRemove) {
		if ev, ok := translateMemberRemove(e); ok {
			sink(ev)
		}
	})
	s.dg.AddHandler(func(_ *discordgo.Session, e *discordgo.InteractionCreate) {
		if ev, ok := translateInteraction(e); ok {
			sink(ev)
		}
	})
	s.dg.AddHandler(func(_ *discordgo.Session, e *discordgo.MessageReactionAdd) {
		if ev, ok := translateReactionAdd(e); ok {
			sink(ev)
		}
	})

}

// Open connects to the gateway.
func (s *Session) Open() error {
	if err := s.dg.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	return nil
}

func (s *Session) Close() error {
	return s.dg.Close()
}

func (s *Session) BotUserID() string {
	if s.dg.State == nil || s.dg.State.User == nil {
		return ""
	}
	return s.dg.State.User.ID
}

func (s *Session) Channel(ctx context.Context, channelID string) (*models.Channel, error) {
	ch, err := s.dg.State.Channel(channelID)
	if err != nil || ch == nil {
		ch, err = s.dg.Channel(channelID, discordgo.WithContext(ctx))
		if err != nil {
			return nil, mapError(err)
		}
	}
	return &models.Channel{ID: ch.ID, GuildID: ch.GuildID, Name: ch.Name}, nil
}

func (s *Session) SystemChannel(ctx context.Context, guildID string) (string, error) {
	g, err := s.dg.State.Guild(guildID)
	if err != nil || g == nil {
		g, err = s.dg.Guild(guildID, discordgo.WithContext(ctx))
		if err != nil {
			return "", mapError(err)
		}
	}
	return g.SystemChannelID, nil
}

func (s *Session) Message(ctx context.Context, channelID, messageID string) (*models.Message, error) {
	m, err := s.dg.State.Message(channelID, messageID)
	if err != nil || m == nil {
		m, err = s.dg.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
		if err != nil {
			return nil, mapError(err)
		}
	}
	return toMessage(m), nil
}

func (s *Session) MemberCanView(ctx context.Context, _, channelID, memberID string) (bool, error) {
	return s.hasPermission(ctx, memberID, channelID, discordgo.PermissionViewChannel)
}

func (s *Session) BotCanSend(ctx context.Context, _, channelID string) (bool, error) {
	return s.hasPermission(ctx, s.BotUserID(), channelID, discordgo.PermissionSendMessages)
}

func (s *Session) hasPermission(ctx context.Context, userID, channelID string, perm int64) (bool, error) {
	perms, err := s.dg.UserChannelPermissions(userID, channelID, discordgo.WithContext(ctx))
	if err != nil {
		return false, mapError(err)
	}
	return perms&perm == perm, nil
}

func (s *Session) member(ctx context.Context, guildID, memberID string) (*discordgo.Member, error) {
	m, err := s.dg.State.Member(guildID, memberID)
	if err == nil && m != nil {
		return m, nil
	}
	m, err = s.dg.GuildMember(guildID, memberID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapError(err)
	}
	return m, nil
}

func (s *Session) MemberHasRole(ctx context.Context, guildID, memberID, roleID string) (bool, error) {
	m, err := s.member(ctx, guildID, memberID)
	if err != nil {
		return false, err
	}
	for _, r := range m.Roles {
		if r == roleID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Session) MemberDisplayName(ctx context.Context, guildID, memberID string) (string, error) {
	m, err := s.member(ctx, guildID, memberID)
	if err != nil {
		return "", err
	}
	return displayName(m), nil
}

func (s *Session) SendMessage(ctx context.Context, channelID, content string) (*models.Message, error) {
	m, err := s.dg.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapError(err)
	}
	return toMessage(m), nil
}

func (s *Session) SendWelcome(ctx context.Context, channelID string, prompt models.WelcomePrompt) (*models.Message, error) {
	m, err := s.dg.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       prompt.Title,
			Description: prompt.Description,
			Color:       prompt.Color,
		}},
		Components: buttonRows(prompt.Buttons),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapError(err)
	}
	return toMessage(m), nil
}

func (s *Session) Reply(ctx context.Context, channelID, messageID, content string) error {
	_, err := s.dg.ChannelMessageSendReply(channelID, content, &discordgo.MessageReference{
		MessageID: messageID,
		ChannelID: channelID,
	}, discordgo.WithContext(ctx))
	return mapError(err)
}

func (s *Session) AddReaction(ctx context.Context, channelID, messageID, emoji string) error {
	return mapError(s.dg.MessageReactionAdd(channelID, messageID, emoji, discordgo.WithContext(ctx)))
}

func (s *Session) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return mapError(s.dg.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx)))
}

func (s *Session) AddRole(ctx context.Context, guildID, memberID, roleID string) error {
	return mapError(s.dg.GuildMemberRoleAdd(guildID, memberID, roleID, discordgo.WithContext(ctx)))
}

func (s *Session) SendDirect(ctx context.Context, memberID, content string) error {
	ch, err := s.dg.UserChannelCreate(memberID, discordgo.WithContext(ctx))
	if err != nil {
		return mapError(err)
	}
	_, err = s.dg.ChannelMessageSend(ch.ID, content, discordgo.WithContext(ctx))
	return mapError(err)
}

func (s *Session) RespondPrivate(ctx context.Context, interaction models.Interaction, content string) error {
	err := s.dg.InteractionRespond(&discordgo.Interaction{
		ID:    interaction.ID,
		Token: interaction.Token,
	}, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}, discordgo.WithContext(ctx))
	return mapError(err)
}

func buttonRows(buttons []models.Button) []discordgo.MessageComponent {
	var rows []discordgo.MessageComponent
	for start := 0; start < len(buttons); start += maxButtonsPerRow {
		end := start + maxButtonsPerRow
		if end > len(buttons) {
			end = len(buttons)
		}
		row := discordgo.ActionsRow{}
		for _, b := range buttons[start:end] {
			row.Components = append(row.Components, discordgo.Button{
				Label:    b.Label,
				Style:    discordgo.PrimaryButton,
				CustomID: b.CustomID,
			})
		}
		rows = append(rows, row)
	}
	return rows
}

func toMessage(m *discordgo.Message) *models.Message {
	out := &models.Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
		Content:   m.Content,
	}
	if m.Author != nil {
		out.AuthorID = m.Author.ID
	}
	for _, u := range m.Mentions {
		if u != nil {
			out.Mentions = append(out.Mentions, u.ID)
		}
	}
	return out
}

func displayName(m *discordgo.Member) string {
	if m.Nick != "" {
		return m.Nick
	}
	if m.User == nil {
		return ""
	}
	if m.User.GlobalName != "" {
		return m.User.GlobalName
	}
	return m.User.Username
}

// mapError turns REST 404s and "unknown ..." API codes into ErrNotFound.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) {
		if restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		}
		if restErr.Message != nil && strings.HasPrefix(restErr.Message.Message, "Unknown") {
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		}
	}
	return err
}
