package configuration

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the application configuration shared by every binary
type Config struct {
	LLM     LLMConfig     `toml:"llm"`
	Agent   AgentConfig   `toml:"agent"`
	MCP     MCPConfig     `toml:"mcp"`
	TaskAPI TaskAPIConfig `toml:"task_api"`
	Storage StorageConfig `toml:"storage"`
	History HistoryConfig `toml:"history"`
}

type LLMConfig struct {
	Provider       string  `toml:"provider"`
	GitHubKey      string  `toml:"github_api_key"`
	GitHubModel    string  `toml:"github_model"`
	OpenAIKey      string  `toml:"openai_api_key"`
	OpenAIModel    string  `toml:"openai_model"`
	AnthropicKey   string  `toml:"anthropic_api_key"`
	AnthropicModel string  `toml:"anthropic_model"`
	GeminiKey      string  `toml:"gemini_api_key"`
	GeminiModel    string  `toml:"gemini_model"`
	OllamaHost     string  `toml:"ollama_host"`
	OllamaModel    string  `toml:"ollama_model"`
	Temperature    float32 `toml:"temperature"`
	MaxTokens      int     `toml:"max_tokens"`
}

type AgentConfig struct {
	MaxRounds             int  `toml:"max_rounds"` // 0 means unbounded
	ParallelTools         bool `toml:"parallel_tools"`
	Debug                 bool `toml:"debug"`
	RequestTimeoutSeconds int  `toml:"request_timeout_seconds"`
}

type MCPConfig struct {
	ServerURL  string `toml:"server_url"`
	ListenAddr string `toml:"listen_addr"`
	Transport  string `toml:"transport"`
}

type TaskAPIConfig struct {
	URL        string `toml:"url"`
	APIKey     string `toml:"api_key"`
	ListenAddr string `toml:"listen_addr"`
}

type StorageConfig struct {
	Backend     string `toml:"backend"`
	Bucket      string `toml:"bucket"`
	Region      string `toml:"region"`
	EndpointURL string `toml:"endpoint_url"`
}

type HistoryConfig struct {
	Backend string `toml:"backend"`
	Dir     string `toml:"dir"`
}

// Providers lists the supported values of llm.provider.
var Providers = []string{"github", "openai", "anthropic", "gemini", "ollama"}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    "github",
			Temperature: 0.7,
			MaxTokens:   2000,
		},
		Agent: AgentConfig{
			MaxRounds:             25,
			RequestTimeoutSeconds: 180,
		},
		MCP: MCPConfig{
			ServerURL:  "http://localhost:8001/mcp",
			ListenAddr: ":8001",
			Transport:  "http",
		},
		TaskAPI: TaskAPIConfig{
			URL:        "http://localhost:8000",
			APIKey:     "demo-secret-key-change-in-production",
			ListenAddr: ":8000",
		},
		Storage: StorageConfig{
			Backend: "memory",
			Bucket:  "mcp-pycon-demo-bucket",
			Region:  "us-east-2",
		},
		History: HistoryConfig{
			Backend: "file",
		},
	}
}

// SearchPaths lists the config locations tried when no explicit path is given.
func SearchPaths() []string {
	return []string{
		"./config.toml", // Current directory (for development)
		filepath.Join(os.Getenv("HOME"), ".config", "mcpdemo", "config.toml"), // User config (XDG)
		"/etc/mcpdemo/config.toml", // System-wide config
	}
}

// LoadConfig loads configuration from file with fallback to defaults, then
// applies environment overrides. It returns the path that was read, or ""
// when defaults were used. An explicit path must exist.
func LoadConfig(explicitPath string) (*Config, string, error) {
	config := DefaultConfig()

	var loadedPath string
	if explicitPath != "" {
		if _, err := toml.DecodeFile(explicitPath, config); err != nil {
			return nil, "", fmt.Errorf("failed to parse config file %s: %w", explicitPath, err)
		}
		loadedPath = explicitPath
	} else {
		for _, path := range SearchPaths() {
			if _, err := os.Stat(path); err == nil {
				if _, err := toml.DecodeFile(path, config); err != nil {
					return nil, "", fmt.Errorf("failed to parse config file %s: %w", path, err)
				}
				loadedPath = path
				break
			}
		}
	}

	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, loadedPath, err
	}
	return config, loadedPath, nil
}

func (c *Config) applyEnv() {
	setString := func(dst *string, keys ...string) {
		for _, key := range keys {
			if v := os.Getenv(key); v != "" {
				*dst = v
				return
			}
		}
	}

	setString(&c.LLM.Provider, "LLM_PROVIDER")
	setString(&c.LLM.GitHubKey, "GITHUB_API_KEY", "GITHUB_TOKEN")
	setString(&c.LLM.GitHubModel, "GITHUB_MODEL")
	setString(&c.LLM.OpenAIKey, "OPENAI_API_KEY")
	setString(&c.LLM.OpenAIModel, "OPENAI_MODEL")
	setString(&c.LLM.AnthropicKey, "ANTHROPIC_API_KEY")
	setString(&c.LLM.AnthropicModel, "ANTHROPIC_MODEL")
	setString(&c.LLM.GeminiKey, "GEMINI_API_KEY")
	setString(&c.LLM.GeminiModel, "GEMINI_MODEL")
	setString(&c.LLM.OllamaHost, "OLLAMA_HOST")
	setString(&c.LLM.OllamaModel, "OLLAMA_MODEL")

	setString(&c.MCP.ServerURL, "MCP_SERVER_URL")
	setString(&c.TaskAPI.URL, "TASK_API_URL")
	setString(&c.TaskAPI.APIKey, "TASK_API_KEY")

	setString(&c.Storage.Region, "AWS_REGION")
	setString(&c.Storage.Bucket, "AWS_S3_BUCKET")
	if v := os.Getenv("AWS_ENDPOINT_URL"); v != "" {
		c.Storage.EndpointURL = v
	}
	setString(&c.Storage.Backend, "STORAGE_BACKEND")

	if debug, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && debug {
		c.Agent.Debug = true
	}
	c.LLM.Provider = strings.ToLower(c.LLM.Provider)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if !oneOf(c.LLM.Provider, Providers...) {
		errs = append(errs, fmt.Errorf("llm.provider %q: supported values are %s", c.LLM.Provider, strings.Join(Providers, ", ")))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("llm.temperature %v must be between 0 and 2", c.LLM.Temperature))
	}
	if c.LLM.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("llm.max_tokens must be positive"))
	}
	if c.Agent.MaxRounds < 0 {
		errs = append(errs, fmt.Errorf("agent.max_rounds must not be negative"))
	}
	if c.Agent.RequestTimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("agent.request_timeout_seconds must not be negative"))
	}
	if !oneOf(c.MCP.Transport, "http", "stdio") {
		errs = append(errs, fmt.Errorf("mcp.transport %q: supported values are http, stdio", c.MCP.Transport))
	}
	if !oneOf(c.Storage.Backend, "s3", "memory") {
		errs = append(errs, fmt.Errorf("storage.backend %q: supported values are s3, memory", c.Storage.Backend))
	}
	if c.Storage.Backend == "s3" && c.Storage.Bucket == "" {
		errs = append(errs, fmt.Errorf("storage.bucket is required for the s3 backend"))
	}
	if !oneOf(c.History.Backend, "file", "memory", "blob") {
		errs = append(errs, fmt.Errorf("history.backend %q: supported values are file, memory, blob", c.History.Backend))
	}
	return errors.Join(errs...)
}

// RequestTimeout bounds one orchestration run. Zero disables the bound.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Agent.RequestTimeoutSeconds) * time.Second
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
