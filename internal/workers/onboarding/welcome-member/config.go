// internal/workers/onboarding/welcome-member/config.go
package welcomemember

import (
	"time"

	"onboarding-bot/internal/common/config"
)

// DefaultColor is the embed accent (blue).
const DefaultColor = 0x3498DB

type Config struct {
	Timeout      time.Duration
	Title        string
	Description  string // format string, %s receives the member mention
	Color        int
	ResetOnLeave bool
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		Timeout:      config.GetDuration(config.GetWorkerConfig(cfg, TaskType).Timeout),
		Title:        cfg.Welcome.Title,
		Description:  cfg.Welcome.Description,
		Color:        DefaultColor,
		ResetOnLeave: cfg.Welcome.ResetOnLeave,
	}
}
