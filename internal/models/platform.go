// internal/models/platform.go
package models

// Interaction identifies a button press that must be answered.
type Interaction struct {
	ID       string `json:"id"`
	Token    string `json:"token"`
	GuildID  string `json:"guildId"`
	MemberID string `json:"memberId"`
}

type Channel struct {
	ID      string `json:"id"`
	GuildID string `json:"guildId"`
	Name    string `json:"name"`
}

type Message struct {
	ID        string   `json:"id"`
	ChannelID string   `json:"channelId"`
	GuildID   string   `json:"guildId"`
	AuthorID  string   `json:"authorId"`
	Content   string   `json:"content"`
	Mentions  []string `json:"mentions,omitempty"`
}

type Button struct {
	CustomID string `json:"customId"`
	Label    string `json:"label"`
}

// WelcomePrompt is the embed plus department buttons sent to new members.
type WelcomePrompt struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Color       int      `json:"color"`
	Buttons     []Button `json:"buttons"`
}
