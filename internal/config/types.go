// Package config provides configuration loading for workflowd.
package config

import (
	"fmt"
	"time"

	"github.com/fyrsmithlabs/workflowd/internal/logging"
)

// Config is the root configuration for the orchestration runtime.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   logging.Config  `koanf:"logging"`
	LLM       LLMConfig       `koanf:"llm"`
	Executor  ExecutorConfig  `koanf:"executor"`
	Budget    BudgetConfig    `koanf:"budget"`
	Optimizer OptimizerConfig `koanf:"optimizer"`
	Memory    MemoryConfig    `koanf:"memory"`
	Retrieval RetrievalConfig `koanf:"retrieval"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `koanf:"addr"`
}

// LLMConfig configures the external language-model client.
type LLMConfig struct {
	APIKey            string        `koanf:"api_key"`
	BaseURL           string        `koanf:"base_url"`
	Model             string        `koanf:"model"`
	MaxTokens         int           `koanf:"max_tokens"`
	RequestTimeout    time.Duration `koanf:"request_timeout"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
}

// ExecutorConfig configures agent execution defaults.
type ExecutorConfig struct {
	Timeout         time.Duration `koanf:"timeout"`
	Retries         int           `koanf:"retries"`
	BackoffBase     time.Duration `koanf:"backoff_base"`
	BackoffMax      time.Duration `koanf:"backoff_max"`
	InstructionsDir string        `koanf:"instructions_dir"`
}

// BudgetConfig configures the context budget monitor.
type BudgetConfig struct {
	MaxTokens        int     `koanf:"max_tokens"`
	WarningThreshold float64 `koanf:"warning_threshold"`
}

// OptimizerConfig configures the quality-gate optimizer.
type OptimizerConfig struct {
	MaxIterations   int     `koanf:"max_iterations"`
	TargetScore     float64 `koanf:"target_score"`
	AutoFix         bool    `koanf:"auto_fix"`
	StopOnFirstPass bool    `koanf:"stop_on_first_pass"`
}

// MemoryConfig configures the persistent memory system.
type MemoryConfig struct {
	Dir          string `koanf:"dir"`
	MaxLearnings int    `koanf:"max_learnings"`
}

// RetrievalConfig configures the just-in-time retriever sources. VectorDir
// enables the embedding-similarity source backed by a persistent collection
// under that directory; repository files are indexed into it on first start.
type RetrievalConfig struct {
	MaxResults  int    `koanf:"max_results"`
	RepoPath    string `koanf:"repo_path"`
	VectorDir   string `koanf:"vector_dir"`
	GitHubToken string `koanf:"github_token"`
	GitHubOwner string `koanf:"github_owner"`
	GitHubRepo  string `koanf:"github_repo"`
}

// NewDefaultConfig returns the hardcoded defaults, lowest precedence in the
// load order.
func NewDefaultConfig() *Config {
	return &Config{
		Server:  ServerConfig{Addr: ":8715"},
		Logging: *logging.NewDefaultConfig(),
		LLM: LLMConfig{
			BaseURL:           "https://api.anthropic.com",
			Model:             "claude-sonnet-4-5-20250929",
			MaxTokens:         8192,
			RequestTimeout:    60 * time.Second,
			RequestsPerSecond: 2,
		},
		Executor: ExecutorConfig{
			Timeout:     120 * time.Second,
			Retries:     2,
			BackoffBase: 500 * time.Millisecond,
			BackoffMax:  15 * time.Second,
		},
		Budget: BudgetConfig{
			MaxTokens:        100_000,
			WarningThreshold: 0.8,
		},
		Optimizer: OptimizerConfig{
			MaxIterations:   3,
			TargetScore:     95,
			AutoFix:         true,
			StopOnFirstPass: true,
		},
		Memory: MemoryConfig{
			Dir:          defaultMemoryDir(),
			MaxLearnings: 1000,
		},
		Retrieval: RetrievalConfig{
			MaxResults: 3,
		},
	}
}

// Validate rejects configurations that cannot work.
func (c *Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if c.Budget.MaxTokens <= 0 {
		return fmt.Errorf("budget.max_tokens must be positive, got %d", c.Budget.MaxTokens)
	}
	if c.Budget.WarningThreshold <= 0 || c.Budget.WarningThreshold > 1 {
		return fmt.Errorf("budget.warning_threshold must be in (0,1], got %v", c.Budget.WarningThreshold)
	}
	if c.Optimizer.MaxIterations < 0 {
		return fmt.Errorf("optimizer.max_iterations must not be negative, got %d", c.Optimizer.MaxIterations)
	}
	if c.Optimizer.TargetScore < 0 || c.Optimizer.TargetScore > 100 {
		return fmt.Errorf("optimizer.target_score must be in [0,100], got %v", c.Optimizer.TargetScore)
	}
	if c.Memory.MaxLearnings <= 0 {
		return fmt.Errorf("memory.max_learnings must be positive, got %d", c.Memory.MaxLearnings)
	}
	if c.Executor.Retries < 0 {
		return fmt.Errorf("executor.retries must not be negative, got %d", c.Executor.Retries)
	}
	return nil
}
