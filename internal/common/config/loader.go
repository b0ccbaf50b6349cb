// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	LedgerBackendFile     = "file"
	LedgerBackendRedis    = "redis"
	LedgerBackendPostgres = "postgres"
)

func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// environment overlay is optional
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return build(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return build(v)
}

func build(v *viper.Viper) (*Config, error) {
	v.SetDefault("requests.text_fallback", true)
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// Direct override if secrets are still empty after expansion
func overrideEmptyConfig(cfg *Config) {
	if cfg.Discord.Token == "" {
		if val := os.Getenv("DISCORD_TOKEN"); val != "" {
			cfg.Discord.Token = val
		} else if val := os.Getenv("TOKEN"); val != "" {
			cfg.Discord.Token = val
		}
	}

	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
	if cfg.Database.Redis.Password == "" {
		if val := os.Getenv("REDIS_PASSWORD"); val != "" {
			cfg.Database.Redis.Password = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "onboarding-bot"
	}

	if cfg.Discord.RequestTimeout == 0 {
		cfg.Discord.RequestTimeout = 10000
	}
	if cfg.Discord.ConnectRetries == 0 {
		cfg.Discord.ConnectRetries = 5
	}

	// Re-key departments by display name; viper hands us lowercased keys.
	departments := make(map[string]DepartmentConfig, len(cfg.Departments))
	for key, dept := range cfg.Departments {
		if dept.Name == "" {
			dept.Name = strings.ToUpper(key)
		}
		departments[dept.Name] = dept
	}
	cfg.Departments = departments

	if cfg.Welcome.Title == "" {
		cfg.Welcome.Title = "Bienvenue sur le réseau de SOFTIBOX ! 🎉"
	}
	if cfg.Welcome.Description == "" {
		cfg.Welcome.Description = "Salut %s, merci d'avoir rejoint le serveur !\n\nChoisis un ou plusieurs départements que tu veux rejoindre :"
	}

	if cfg.Requests.SweepSchedule == "" {
		cfg.Requests.SweepSchedule = "0 */5 * * * *"
	}

	if cfg.Ledger.Backend == "" {
		cfg.Ledger.Backend = LedgerBackendFile
	}
	if cfg.Ledger.Path == "" {
		cfg.Ledger.Path = "welcome_members.json"
	}
	if cfg.Ledger.RedisKey == "" {
		cfg.Ledger.RedisKey = "onboarding:welcomed"
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 5
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 2
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Workers == nil {
		cfg.Workers = map[string]WorkerConfig{}
	}
	for key, worker := range cfg.Workers {
		if worker.Timeout == 0 {
			worker.Timeout = 15000
		}
		cfg.Workers[key] = worker
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Discord.Token == "" {
		return fmt.Errorf("discord.token is required (set DISCORD_TOKEN)")
	}

	if len(cfg.Departments) == 0 {
		return fmt.Errorf("at least one department is required")
	}
	for name, dept := range cfg.Departments {
		if strings.ContainsAny(name, "*") {
			return fmt.Errorf("department %q: name must not contain '*'", name)
		}
		if dept.MemberRole == "" && dept.Channel == "" && dept.LeaderRole == "" {
			return fmt.Errorf("department %q has no roles or channel", name)
		}
	}

	if cfg.Requests.TTL < 0 {
		return fmt.Errorf("requests.ttl must not be negative")
	}

	switch cfg.Ledger.Backend {
	case LedgerBackendFile:
		if cfg.Ledger.Path == "" {
			return fmt.Errorf("ledger.path is required for the file backend")
		}
	case LedgerBackendRedis:
		if cfg.Database.Redis.Address == "" {
			return fmt.Errorf("database.redis.address is required for the redis ledger")
		}
	case LedgerBackendPostgres:
		if cfg.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required for the postgres ledger")
		}
		if cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required for the postgres ledger")
		}
	default:
		return fmt.Errorf("unknown ledger.backend %q", cfg.Ledger.Backend)
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}

	return WorkerConfig{
		Enabled: true,
		Timeout: 15000,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
