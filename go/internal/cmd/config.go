package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mcdev12/cardclash/go/internal/game/registry"
	"github.com/mcdev12/cardclash/go/internal/game/session"
	"github.com/mcdev12/cardclash/go/internal/game/timer"
	"github.com/mcdev12/cardclash/go/internal/gateway"
)

// Config is the optional YAML file. Durations are Go duration strings.
type Config struct {
	Game struct {
		TickInterval  time.Duration `yaml:"tick_interval"`
		RevealHold    time.Duration `yaml:"reveal_hold"`
		RevealPause   time.Duration `yaml:"reveal_pause"`
		Retention     time.Duration `yaml:"retention"`
		SweepInterval time.Duration `yaml:"sweep_interval"`
		MaxPlayersCap int           `yaml:"max_players_cap"`
	} `yaml:"game"`
	WebSocket struct {
		MaxMessageSize int64         `yaml:"max_message_size"`
		SendBuffer     int           `yaml:"send_buffer"`
		PingInterval   time.Duration `yaml:"ping_interval"`
		ReadTimeout    time.Duration `yaml:"read_timeout"`
		WriteTimeout   time.Duration `yaml:"write_timeout"`
	} `yaml:"websocket"`
}

// Settings is everything the process reads from its environment.
type Settings struct {
	Port              string
	ClientURL         string
	LogLevel          string
	LogFormat         string
	NATSURL           string
	NATSSubjectPrefix string
	Config            Config
}

func defaultConfig() Config {
	var c Config
	reveal := session.DefaultConfig()
	reg := registry.DefaultConfig()
	ws := gateway.DefaultConnectionConfig()

	c.Game.TickInterval = timer.DefaultInterval
	c.Game.RevealHold = reveal.RevealHold
	c.Game.RevealPause = reveal.RevealPause
	c.Game.Retention = reg.Retention
	c.Game.SweepInterval = reg.SweepInterval
	c.Game.MaxPlayersCap = reg.MaxPlayersCap
	c.WebSocket.MaxMessageSize = ws.MaxMessageSize
	c.WebSocket.SendBuffer = ws.SendBuffer
	c.WebSocket.PingInterval = ws.PingInterval
	c.WebSocket.ReadTimeout = ws.ReadTimeout
	c.WebSocket.WriteTimeout = ws.WriteTimeout
	return c
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// loadConfig overlays the YAML file at path on the defaults.
func loadConfig(path string) (*Config, error) {
	config := defaultConfig()
	if path == "" {
		return &config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &config, nil
}

func loadSettings() (*Settings, error) {
	config, err := loadConfig(getEnv("CONFIG_PATH", ""))
	if err != nil {
		return nil, err
	}
	config.Game.MaxPlayersCap = getEnvAsInt("MAX_PLAYERS_CAP", config.Game.MaxPlayersCap)

	return &Settings{
		Port:              getEnv("PORT", "5001"),
		ClientURL:         getEnv("CLIENT_URL", ""),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "console"),
		NATSURL:           getEnv("NATS_URL", ""),
		NATSSubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", gateway.DefaultNATSConfig().SubjectPrefix),
		Config:            *config,
	}, nil
}

func (c Config) registryConfig() registry.Config {
	return registry.Config{
		Retention:     c.Game.Retention,
		SweepInterval: c.Game.SweepInterval,
		MaxPlayersCap: c.Game.MaxPlayersCap,
	}
}

func (c Config) sessionConfig() session.Config {
	return session.Config{
		RevealHold:  c.Game.RevealHold,
		RevealPause: c.Game.RevealPause,
	}
}

func (c Config) connectionConfig() gateway.ConnectionConfig {
	ws := gateway.DefaultConnectionConfig()
	ws.MaxMessageSize = c.WebSocket.MaxMessageSize
	ws.SendBuffer = c.WebSocket.SendBuffer
	ws.PingInterval = c.WebSocket.PingInterval
	ws.ReadTimeout = c.WebSocket.ReadTimeout
	ws.WriteTimeout = c.WebSocket.WriteTimeout
	return ws
}
