// internal/workers/departments/resolve-verdict/config.go
package resolveverdict

import (
	"time"

	"onboarding-bot/internal/common/config"
)

type Config struct {
	Timeout time.Duration
	// TextFallback resolves notifications unknown to the tracker by reading
	// the member mention and bold department name from the message.
	TextFallback bool
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		Timeout:      config.GetDuration(config.GetWorkerConfig(cfg, TaskType).Timeout),
		TextFallback: cfg.Requests.TextFallback,
	}
}
