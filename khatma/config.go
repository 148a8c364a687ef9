package khatma

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/disgoorg/snowflake/v2"
	"github.com/pelletier/go-toml/v2"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type Config struct {
	Log   LogConfig   `toml:"log"`
	Bot   BotConfig   `toml:"bot"`
	DB    DBConfig    `toml:"db"`
	Web   WebConfig   `toml:"web"`
	Cycle CycleConfig `toml:"cycle"`
}

type BotConfig struct {
	DevGuilds []snowflake.ID `toml:"dev_guilds"`
	Token     string         `toml:"token"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Format    string     `toml:"format"`
	AddSource bool       `toml:"add_source"`
}

type DBConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	PoolSize int    `toml:"pool_size"`
}

type WebConfig struct {
	Addr         string `toml:"addr"`
	AllowOrigins string `toml:"allow_origins"`
	DevKey       string `toml:"dev_key"`
}

// CycleConfig tunes what a cycle roll-over clears. The legacy global
// scope historically wiped participants and intentions and restarted
// the deadline; multi-tenant khatmas only clear the board. Both knobs
// exist so the asymmetry is a choice, not two code paths.
type CycleConfig struct {
	LegacyStrongReset bool `toml:"legacy_strong_reset"`
	TenantStrongReset bool `toml:"tenant_strong_reset"`
}
