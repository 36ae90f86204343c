package config

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode string `mapstructure:"mode"`
	Port int    `mapstructure:"port"`

	// Transport knobs.
	ReadLimit    int64         `mapstructure:"read_limit"`
	PingPeriod   time.Duration `mapstructure:"ping_period"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	SendBuffer   int           `mapstructure:"send_buffer"`

	// Registry knobs.
	SubscriberBuffer int `mapstructure:"subscriber_buffer"`
	MaxICECandidates int `mapstructure:"max_ice_candidates"`

	// Chat flood guard: at most chat_burst messages per user per window.
	ChatBurst  int           `mapstructure:"chat_burst"`
	ChatWindow time.Duration `mapstructure:"chat_window"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("write_timeout", "5s")
	v.SetDefault("send_buffer", 64)
	v.SetDefault("subscriber_buffer", 32)
	v.SetDefault("max_ice_candidates", 64)
	v.SetDefault("chat_burst", 20)
	v.SetDefault("chat_window", "10s")

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
