package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the process.
type Config struct {
	LLM          LLMConfig          `yaml:"llm"`
	Memory       MemoryConfig       `yaml:"memory"`
	Knowledge    KnowledgeConfig    `yaml:"knowledge"`
	Search       SearchConfig       `yaml:"search"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Gateway      GatewayConfig      `yaml:"gateway"`
	Logger       LoggerConfig       `yaml:"logger"`
	Tracer       TracerConfig       `yaml:"tracer"`
	MCPServers   []MCPServer        `yaml:"mcp_servers"`
}

// MCPServer describes one MCP server whose tools are bridged into the
// augmentation tool set.
type MCPServer struct {
	Name      string            `yaml:"name"`
	Transport string            `yaml:"transport"` // "stdio" or "http"
	Command   string            `yaml:"command"`
	Args      []string          `yaml:"args"`
	Env       map[string]string `yaml:"env"`
	URL       string            `yaml:"url"`
}

// LLMConfig configures the language model provider.
type LLMConfig struct {
	Provider ProviderConfig `yaml:"provider"`
	// RateLimit is the sustained requests-per-second budget; 0 disables.
	RateLimit float64 `yaml:"rate_limit"`
	// RateBurst is the rate limiter burst size.
	RateBurst int `yaml:"rate_burst"`
	// Breaker configures the circuit breaker around the provider.
	Breaker BreakerConfig `yaml:"breaker"`
}

// ProviderConfig describes one OpenAI-compatible provider endpoint.
type ProviderConfig struct {
	Name        string        `yaml:"name"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	ConnTimeout time.Duration `yaml:"conn_timeout"`
	RespTimeout time.Duration `yaml:"resp_timeout"`
}

// BreakerConfig configures circuit breaker behavior.
type BreakerConfig struct {
	MaxFailures uint32        `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
	Interval    time.Duration `yaml:"interval"`
}

// MemoryConfig configures conversation storage.
type MemoryConfig struct {
	// Path is the sqlite database file; ":memory:" keeps it in-process.
	Path string `yaml:"path"`
}

// KnowledgeConfig configures the knowledge base.
type KnowledgeConfig struct {
	// Path is the persistence directory for the vector collection;
	// empty keeps it in-memory.
	Path string `yaml:"path"`
	// Collection is the vector collection name.
	Collection string `yaml:"collection"`
	// ScoreThreshold is the minimum similarity for a hit to count as
	// relevant; below it the lookup reports no relevant information.
	ScoreThreshold float32 `yaml:"score_threshold"`
	// ChunkSize and ChunkOverlap control document splitting.
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// SearchConfig configures web search.
type SearchConfig struct {
	Backend    string        `yaml:"backend"`
	BaseURL    string        `yaml:"base_url"`
	MaxResults int           `yaml:"max_results"`
	Timeout    time.Duration `yaml:"timeout"`
}

// OrchestratorConfig configures the turn pipeline.
type OrchestratorConfig struct {
	// Engine selects the pipeline driver: "checkpoint" or "sequential".
	Engine string `yaml:"engine"`
	// CheckpointPath is the sqlite file for stage checkpoints.
	CheckpointPath string `yaml:"checkpoint_path"`
	// ContextMessages is how many recent messages feed context extraction.
	ContextMessages int `yaml:"context_messages"`
	// MaxContextTokens bounds the extraction prompt.
	MaxContextTokens int `yaml:"max_context_tokens"`
	// MaxSubtasks caps decomposition breadth.
	MaxSubtasks int `yaml:"max_subtasks"`
	// IntentConfidenceThreshold gates low-confidence intents to casual chat.
	IntentConfidenceThreshold float64 `yaml:"intent_confidence_threshold"`
}

// GatewayConfig configures the HTTP API server.
type GatewayConfig struct {
	Enabled      bool     `yaml:"enabled"`
	Listen       string   `yaml:"listen"`
	AllowOrigins []string `yaml:"allow_origins"`
}

// LoggerConfig configures structured logging.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracerConfig configures OpenTelemetry tracing.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// Defaults returns a Config populated with sane defaults.
func Defaults() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: ProviderConfig{
				Name:    "openai",
				Model:   "gpt-4o-mini",
				BaseURL: "https://api.openai.com/v1",
			},
			RateLimit: 5,
			RateBurst: 10,
			Breaker: BreakerConfig{
				MaxFailures: 5,
				Timeout:     30 * time.Second,
				Interval:    60 * time.Second,
			},
		},
		Memory: MemoryConfig{
			Path: "parley.db",
		},
		Knowledge: KnowledgeConfig{
			Collection:     "knowledge",
			ScoreThreshold: 0.3,
			ChunkSize:      500,
			ChunkOverlap:   50,
		},
		Search: SearchConfig{
			Backend:    "duckduckgo",
			MaxResults: 5,
			Timeout:    10 * time.Second,
		},
		Orchestrator: OrchestratorConfig{
			Engine:                    "checkpoint",
			CheckpointPath:            "parley-checkpoints.db",
			ContextMessages:           10,
			MaxContextTokens:          4000,
			MaxSubtasks:               10,
			IntentConfidenceThreshold: 0.7,
		},
		Gateway: GatewayConfig{
			Enabled: true,
			Listen:  ":8080",
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "stdout",
		},
	}
}

// Load reads the YAML config at path, applies env overrides, and validates.
// A missing file is not an error: defaults plus env overrides are used.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			ApplyEnvOverrides(cfg)
			return cfg, Validate(cfg)
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	ApplyEnvOverrides(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides maps PARLEY_* env vars to config fields.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PARLEY_LLM_API_KEY"); v != "" {
		cfg.LLM.Provider.APIKey = v
	}
	if v := os.Getenv("PARLEY_LLM_BASE_URL"); v != "" {
		cfg.LLM.Provider.BaseURL = v
	}
	if v := os.Getenv("PARLEY_LLM_MODEL"); v != "" {
		cfg.LLM.Provider.Model = v
	}
	if v := os.Getenv("PARLEY_MEMORY_PATH"); v != "" {
		cfg.Memory.Path = v
	}
	if v := os.Getenv("PARLEY_KNOWLEDGE_PATH"); v != "" {
		cfg.Knowledge.Path = v
	}
	if v := os.Getenv("PARLEY_ORCHESTRATOR_ENGINE"); v != "" {
		cfg.Orchestrator.Engine = v
	}
	if v := os.Getenv("PARLEY_GATEWAY_LISTEN"); v != "" {
		cfg.Gateway.Listen = v
	}
	if v := os.Getenv("PARLEY_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("PARLEY_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv("PARLEY_CONTEXT_MESSAGES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Orchestrator.ContextMessages = n
		}
	}
	if v := os.Getenv("PARLEY_MAX_SUBTASKS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Orchestrator.MaxSubtasks = n
		}
	}
}

// Validate checks cross-field constraints.
func Validate(cfg *Config) error {
	switch cfg.Orchestrator.Engine {
	case "checkpoint", "sequential":
	default:
		return fmt.Errorf("orchestrator.engine must be checkpoint or sequential, got %q", cfg.Orchestrator.Engine)
	}
	if cfg.Orchestrator.ContextMessages <= 0 {
		return fmt.Errorf("orchestrator.context_messages must be positive")
	}
	if cfg.Orchestrator.MaxSubtasks <= 0 {
		return fmt.Errorf("orchestrator.max_subtasks must be positive")
	}
	if t := cfg.Orchestrator.IntentConfidenceThreshold; t < 0 || t > 1 {
		return fmt.Errorf("orchestrator.intent_confidence_threshold must be in [0,1], got %v", t)
	}
	if cfg.Knowledge.ChunkOverlap >= cfg.Knowledge.ChunkSize {
		return fmt.Errorf("knowledge.chunk_overlap must be smaller than chunk_size")
	}
	return nil
}
