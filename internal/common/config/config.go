// internal/common/config/config.go
package config

import (
	"fmt"
	"sort"

	"onboarding-bot/internal/models"
)

// Config is the main application configuration struct.
type Config struct {
	App         AppConfig                   `mapstructure:"app"`
	Discord     DiscordConfig               `mapstructure:"discord"`
	Departments map[string]DepartmentConfig `mapstructure:"departments"`
	Welcome     WelcomeConfig               `mapstructure:"welcome"`
	Requests    RequestsConfig              `mapstructure:"requests"`
	Ledger      LedgerConfig                `mapstructure:"ledger"`
	Database    DatabaseConfig              `mapstructure:"database"`
	Workers     map[string]WorkerConfig     `mapstructure:"workers"`
	Server      ServerConfig                `mapstructure:"server"`
	Logging     LoggingConfig               `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// DiscordConfig holds the gateway credentials. Token is a secret and is
// normally supplied through DISCORD_TOKEN rather than the yaml file.
type DiscordConfig struct {
	Token          string `mapstructure:"token"`
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
	ConnectRetries int    `mapstructure:"connect_retries"`
}

// DepartmentConfig maps one department to its roles and notification channel.
// Viper lowercases map keys, so the display name lives in Name and defaults
// to the upper-cased key.
type DepartmentConfig struct {
	Name       string `mapstructure:"name"`
	MemberRole string `mapstructure:"member_role"`
	LeaderRole string `mapstructure:"leader_role"`
	Channel    string `mapstructure:"channel"`
	Order      int    `mapstructure:"order"`
}

type WelcomeConfig struct {
	Title        string `mapstructure:"title"`
	Description  string `mapstructure:"description"`
	ResetOnLeave bool   `mapstructure:"reset_on_leave"`
}

// RequestsConfig controls the stale request policy. A zero TTL keeps open
// requests until a leader reacts. TextFallback lets verdicts resolve
// notifications the tracker does not know, such as those posted before a
// restart.
type RequestsConfig struct {
	TTL           int    `mapstructure:"ttl"` // seconds
	SweepSchedule string `mapstructure:"sweep_schedule"`
	TextFallback  bool   `mapstructure:"text_fallback"`
}

// LedgerConfig selects the welcome ledger backend: file, redis or postgres.
type LedgerConfig struct {
	Backend  string `mapstructure:"backend"`
	Path     string `mapstructure:"path"`
	RedisKey string `mapstructure:"redis_key"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"ssl_mode"`
}

func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every event worker.
type WorkerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Timeout int  `mapstructure:"timeout"` // milliseconds
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// DepartmentNames returns configured department names ordered by their
// order field, then by name.
func (c *Config) DepartmentNames() []string {
	names := make([]string, 0, len(c.Departments))
	for name := range c.Departments {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		oi, oj := c.Departments[names[i]].Order, c.Departments[names[j]].Order
		if oi != oj {
			return oi < oj
		}
		return names[i] < names[j]
	})
	return names
}

// DepartmentDirectory builds the runtime department directory in display
// order.
func (c *Config) DepartmentDirectory() *models.DepartmentDirectory {
	departments := make([]models.Department, 0, len(c.Departments))
	for _, name := range c.DepartmentNames() {
		d := c.Departments[name]
		departments = append(departments, models.Department{
			Name:         name,
			MemberRoleID: d.MemberRole,
			LeaderRoleID: d.LeaderRole,
			ChannelID:    d.Channel,
		})
	}
	return models.NewDepartmentDirectory(departments...)
}
