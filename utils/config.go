package utils

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds the bot's tunable settings. The OOTR API key is a secret
// and comes from the environment directly, not from here.
type Config struct {
	Poll struct {
		Interval  int `koanf:"interval"` // seconds between status checks
		MaxChecks int `koanf:"maxchecks"`
	} `koanf:"poll"`
	Health struct {
		Port string `koanf:"port"`
	} `koanf:"health"`
	Log struct {
		Level string `koanf:"level"`
	} `koanf:"log"`
}

// LoadConfig loads configuration from defaults, an optional TOML file and
// RANDOBOT_-prefixed environment variables, in that order of precedence.
func LoadConfig(configPath string) (*Config, error) {
	k := koanf.New(".")

	k.Load(confmap.Provider(map[string]interface{}{
		"poll.interval":  1,
		"poll.maxchecks": 50,
		"health.port":    "8080",
		"log.level":      "info",
	}, "."), nil)

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
	} else {
		for _, path := range []string{"./randobot.toml", "$HOME/.randobot.toml"} {
			path = os.ExpandEnv(path)
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), toml.Parser()); err == nil {
					break
				}
			}
		}
	}

	k.Load(env.Provider("RANDOBOT_", ".", func(s string) string {
		s = strings.TrimPrefix(s, "RANDOBOT_")
		return strings.Replace(strings.ToLower(s), "_", ".", -1)
	}), nil)

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if config.Poll.Interval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive")
	}
	if config.Poll.MaxChecks <= 0 {
		return nil, fmt.Errorf("poll maxchecks must be positive")
	}

	return &config, nil
}
