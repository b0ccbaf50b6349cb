// Package discordtest provides an in-memory discord.Platform for tests.
package discordtest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"onboarding-bot/internal/common/discord"
	"onboarding-bot/internal/models"
)

// ErrInjected is returned by operations configured to fail.
var ErrInjected = errors.New("injected platform failure")

type Reaction struct {
	ChannelID string
	MessageID string
	Emoji     string
}

type ReplyRecord struct {
	ChannelID string
	MessageID string
	Content   string
}

type RoleGrant struct {
	GuildID  string
	MemberID string
	RoleID   string
}

type DirectMessage struct {
	MemberID string
	Content  string
}

type PrivateResponse struct {
	Interaction models.Interaction
	Content     string
}

type Welcome struct {
	ChannelID string
	Prompt    models.WelcomePrompt
}

// Fake records every outbound call and answers queries from its state.
// Operation names accepted by FailOn are the Platform method names.
type Fake struct {
	mu sync.Mutex

	BotID          string
	channels       map[string]models.Channel
	systemChannels map[string]string
	canView        map[string]bool // channel|member
	botCanSend     map[string]bool
	roles          map[string]map[string]bool // member -> roles
	names          map[string]string
	messages       map[string]*models.Message
	failures       map[string]error
	nextID         int

	Sent      []models.Message
	Welcomes  []Welcome
	Replies   []ReplyRecord
	Reactions []Reaction
	Deleted   []string
	Grants    []RoleGrant
	Directs   []DirectMessage
	Privates  []PrivateResponse
}

var _ discord.Platform = (*Fake)(nil)

func New() *Fake {
	return &Fake{
		BotID:          "bot",
		channels:       make(map[string]models.Channel),
		systemChannels: make(map[string]string),
		canView:        make(map[string]bool),
		botCanSend:     make(map[string]bool),
		roles:          make(map[string]map[string]bool),
		names:          make(map[string]string),
		messages:       make(map[string]*models.Message),
		failures:       make(map[string]error),
	}
}

// AddChannel registers a channel the bot can send in.
func (f *Fake) AddChannel(guildID, channelID, name string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels[channelID] = models.Channel{ID: channelID, GuildID: guildID, Name: name}
	f.botCanSend[channelID] = true
	return f
}

func (f *Fake) SetSystemChannel(guildID, channelID string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.systemChannels[guildID] = channelID
	return f
}

func (f *Fake) SetBotCanSend(channelID string, ok bool) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.botCanSend[channelID] = ok
	return f
}

func (f *Fake) SetMemberCanView(channelID, memberID string, ok bool) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.canView[channelID+"|"+memberID] = ok
	return f
}

func (f *Fake) GiveRole(memberID, roleID string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.giveRoleLocked(memberID, roleID)
	return f
}

func (f *Fake) SetDisplayName(memberID, name string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.names[memberID] = name
	return f
}

// PutMessage stores a message as if it had been posted before the fake
// was created.
func (f *Fake) PutMessage(msg models.Message) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := msg
	f.messages[m.ID] = &m
	return f
}

// FailOn makes the named operation return err (ErrInjected when nil).
func (f *Fake) FailOn(op string, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		err = ErrInjected
	}
	f.failures[op] = err
	return f
}

func (f *Fake) HasRole(memberID, roleID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.roles[memberID][roleID]
}

func (f *Fake) SentMessages() []models.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Message(nil), f.Sent...)
}

func (f *Fake) PrivateResponses() []PrivateResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]PrivateResponse(nil), f.Privates...)
}

func (f *Fake) BotUserID() string { return f.BotID }

func (f *Fake) Channel(_ context.Context, channelID string) (*models.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failures["Channel"]; err != nil {
		return nil, err
	}
	ch, ok := f.channels[channelID]
	if !ok {
		return nil, fmt.Errorf("channel %s: %w", channelID, discord.ErrNotFound)
	}
	return &ch, nil
}

func (f *Fake) SystemChannel(_ context.Context, guildID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failures["SystemChannel"]; err != nil {
		return "", err
	}
	return f.systemChannels[guildID], nil
}

func (f *Fake) Message(_ context.Context, _, messageID string) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failures["Message"]; err != nil {
		return nil, err
	}
	m, ok := f.messages[messageID]
	if !ok {
		return nil, fmt.Errorf("message %s: %w", messageID, discord.ErrNotFound)
	}
	out := *m
	return &out, nil
}

func (f *Fake) MemberCanView(_ context.Context, _, channelID, memberID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failures["MemberCanView"]; err != nil {
		return false, err
	}
	return f.canView[channelID+"|"+memberID], nil
}

func (f *Fake) BotCanSend(_ context.Context, _, channelID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failures["BotCanSend"]; err != nil {
		return false, err
	}
	return f.botCanSend[channelID], nil
}

func (f *Fake) MemberHasRole(_ context.Context, _, memberID, roleID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failures["MemberHasRole"]; err != nil {
		return false, err
	}
	return f.roles[memberID][roleID], nil
}

func (f *Fake) MemberDisplayName(_ context.Context, _, memberID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failures["MemberDisplayName"]; err != nil {
		return "", err
	}
	if name, ok := f.names[memberID]; ok {
		return name, nil
	}
	return memberID, nil
}

func (f *Fake) SendMessage(_ context.Context, channelID, content string) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failures["SendMessage"]; err != nil {
		return nil, err
	}
	msg := models.Message{
		ID:        f.newIDLocked(),
		ChannelID: channelID,
		GuildID:   f.channels[channelID].GuildID,
		AuthorID:  f.BotID,
		Content:   content,
	}
	f.messages[msg.ID] = &msg
	f.Sent = append(f.Sent, msg)
	out := msg
	return &out, nil
}

func (f *Fake) SendWelcome(_ context.Context, channelID string, prompt models.WelcomePrompt) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failures["SendWelcome"]; err != nil {
		return nil, err
	}
	f.Welcomes = append(f.Welcomes, Welcome{ChannelID: channelID, Prompt: prompt})
	return &models.Message{ID: f.newIDLocked(), ChannelID: channelID, AuthorID: f.BotID}, nil
}

func (f *Fake) Reply(_ context.Context, channelID, messageID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failures["Reply"]; err != nil {
		return err
	}
	f.Replies = append(f.Replies, ReplyRecord{ChannelID: channelID, MessageID: messageID, Content: content})
	return nil
}

func (f *Fake) AddReaction(_ context.Context, channelID, messageID, emoji string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failures["AddReaction"]; err != nil {
		return err
	}
	f.Reactions = append(f.Reactions, Reaction{ChannelID: channelID, MessageID: messageID, Emoji: emoji})
	return nil
}

func (f *Fake) DeleteMessage(_ context.Context, _, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failures["DeleteMessage"]; err != nil {
		return err
	}
	delete(f.messages, messageID)
	f.Deleted = append(f.Deleted, messageID)
	return nil
}

func (f *Fake) AddRole(_ context.Context, guildID, memberID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failures["AddRole"]; err != nil {
		return err
	}
	f.giveRoleLocked(memberID, roleID)
	f.Grants = append(f.Grants, RoleGrant{GuildID: guildID, MemberID: memberID, RoleID: roleID})
	return nil
}

func (f *Fake) SendDirect(_ context.Context, memberID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failures["SendDirect"]; err != nil {
		return err
	}
	f.Directs = append(f.Directs, DirectMessage{MemberID: memberID, Content: content})
	return nil
}

func (f *Fake) RespondPrivate(_ context.Context, interaction models.Interaction, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failures["RespondPrivate"]; err != nil {
		return err
	}
	f.Privates = append(f.Privates, PrivateResponse{Interaction: interaction, Content: content})
	return nil
}

func (f *Fake) giveRoleLocked(memberID, roleID string) {
	if f.roles[memberID] == nil {
		f.roles[memberID] = make(map[string]bool)
	}
	f.roles[memberID][roleID] = true
}

func (f *Fake) newIDLocked() string {
	f.nextID++
	return "msg-" + strconv.Itoa(f.nextID)
}
