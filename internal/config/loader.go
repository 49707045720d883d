package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const maxConfigFileSize = 1 << 20

// Load loads configuration from an optional YAML file, then overrides with
// environment variables.
//
// Precedence (highest to lowest):
//  1. Environment variables (WORKFLOWD_LLM_API_KEY, WORKFLOWD_SERVER_ADDR, ...)
//  2. YAML config file (~/.config/workflowd/config.yaml by default)
//  3. Hardcoded defaults
//
// Environment variables carry the WORKFLOWD_ prefix; the rest of the name is
// split on the first underscore into section.field:
//
//	WORKFLOWD_SERVER_ADDR          -> server.addr
//	WORKFLOWD_BUDGET_MAX_TOKENS    -> budget.max_tokens
//	WORKFLOWD_LLM_API_KEY          -> llm.api_key
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, ".config", "workflowd", "config.yaml")
	}

	if info, err := os.Stat(configPath); err == nil {
		if info.Size() > maxConfigFileSize {
			return nil, fmt.Errorf("config file %s exceeds %d bytes", configPath, maxConfigFileSize)
		}
		content, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("WORKFLOWD_", ".", func(s string) string {
		lower := strings.ToLower(strings.TrimPrefix(s, "WORKFLOWD_"))
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := NewDefaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func defaultMemoryDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".workflowd"
	}
	return filepath.Join(home, ".local", "share", "workflowd")
}
