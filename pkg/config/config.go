// Package config defines the process configuration. The full Config is
// constructed once at startup, validated, and passed by reference into
// every component; nothing reads configuration from globals afterwards.
package config

import (
	"fmt"
)

// Config is the root configuration.
type Config struct {
	// Name identifies this server instance.
	Name string `yaml:"name,omitempty" json:"name,omitempty" jsonschema:"title=Name,description=Server instance name,default=biomed-mcp-server"`

	// LLM configures the chat completion provider.
	LLM LLMConfig `yaml:"llm,omitempty" json:"llm,omitempty" jsonschema:"title=LLM,description=Chat completion provider configuration"`

	// PubMed configures the NCBI E-utilities client.
	PubMed PubMedConfig `yaml:"pubmed,omitempty" json:"pubmed,omitempty" jsonschema:"title=PubMed,description=NCBI E-utilities client configuration"`

	// ClinicalTrials configures the ClinicalTrials.gov client.
	ClinicalTrials ClinicalTrialsConfig `yaml:"clinical_trials,omitempty" json:"clinical_trials,omitempty" jsonschema:"title=Clinical Trials,description=ClinicalTrials.gov client configuration"`

	// Memory configures thread-memory storage.
	Memory MemoryConfig `yaml:"memory,omitempty" json:"memory,omitempty" jsonschema:"title=Memory,description=Thread memory storage configuration"`

	// Research configures the reasoning loop bounds.
	Research ResearchConfig `yaml:"research,omitempty" json:"research,omitempty" jsonschema:"title=Research,description=Reasoning loop bounds"`

	// Server configures the MCP transport.
	Server ServerConfig `yaml:"server,omitempty" json:"server,omitempty" jsonschema:"title=Server,description=MCP transport configuration"`

	// Logger configures logging output.
	Logger LoggerConfig `yaml:"logger,omitempty" json:"logger,omitempty" jsonschema:"title=Logger,description=Logging configuration"`
}

// PubMedConfig configures the NCBI E-utilities client.
type PubMedConfig struct {
	// Email is required by NCBI usage policy. Supports ${VAR} expansion.
	Email string `yaml:"email,omitempty" json:"email,omitempty" jsonschema:"title=Email,description=Contact email required by NCBI (use ${PUBMED_EMAIL})"`

	// APIKey raises the NCBI rate limit from 3 to 10 requests/second.
	APIKey string `yaml:"api_key,omitempty" json:"api_key,omitempty" jsonschema:"title=API Key,description=NCBI API key (use ${PUBMED_API_KEY})"`

	// Tool is the tool name reported to NCBI.
	Tool string `yaml:"tool,omitempty" json:"tool,omitempty" jsonschema:"title=Tool,description=Tool name reported to NCBI,default=biomed-mcp"`

	// BaseURL overrides the E-utilities endpoint.
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty" jsonschema:"title=Base URL,description=E-utilities base URL"`

	// Timeout in seconds for API calls.
	Timeout int `yaml:"timeout,omitempty" json:"timeout,omitempty" jsonschema:"title=Timeout,description=Request timeout in seconds,default=30"`
}

// ClinicalTrialsConfig configures the ClinicalTrials.gov client.
type ClinicalTrialsConfig struct {
	// BaseURL overrides the ClinicalTrials.gov v2 API endpoint.
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty" jsonschema:"title=Base URL,description=ClinicalTrials.gov API base URL"`

	// Timeout in seconds for API calls.
	Timeout int `yaml:"timeout,omitempty" json:"timeout,omitempty" jsonschema:"title=Timeout,description=Request timeout in seconds,default=30"`
}

// MemoryBackend identifies the thread-memory store type.
type MemoryBackend string

const (
	MemoryBackendInmem MemoryBackend = "memory"
	MemoryBackendRedis MemoryBackend = "redis"
)

// MemoryConfig configures thread-memory storage.
type MemoryConfig struct {
	// Backend selects the store ("memory" or "redis").
	Backend MemoryBackend `yaml:"backend,omitempty" json:"backend,omitempty" jsonschema:"title=Backend,description=Thread memory backend,enum=memory,enum=redis,default=memory"`

	// Addr is the Redis address (host:port).
	Addr string `yaml:"addr,omitempty" json:"addr,omitempty" jsonschema:"title=Address,description=Redis address,default=localhost:6379"`

	// Password for Redis authentication. Supports ${VAR} expansion.
	Password string `yaml:"password,omitempty" json:"password,omitempty" jsonschema:"title=Password,description=Redis password (use ${REDIS_PASSWORD})"`

	// DB is the Redis database index.
	DB int `yaml:"db,omitempty" json:"db,omitempty" jsonschema:"title=DB,description=Redis database index,default=0"`

	// TTL in seconds for stored conversations (0 keeps them forever).
	TTL int `yaml:"ttl,omitempty" json:"ttl,omitempty" jsonschema:"title=TTL,description=Conversation TTL in seconds,default=86400"`
}

// ResearchConfig bounds the reasoning loop.
type ResearchConfig struct {
	// MaxToolCalls caps tool-call iterations per query.
	MaxToolCalls int `yaml:"max_tool_calls,omitempty" json:"max_tool_calls,omitempty" jsonschema:"title=Max Tool Calls,description=Tool call iteration cap,default=4"`

	// ToolTimeout in seconds per tool execution.
	ToolTimeout int `yaml:"tool_timeout,omitempty" json:"tool_timeout,omitempty" jsonschema:"title=Tool Timeout,description=Per-tool timeout in seconds,default=30"`

	// LLMRetries is the retry budget for transient LLM failures.
	LLMRetries int `yaml:"llm_retries,omitempty" json:"llm_retries,omitempty" jsonschema:"title=LLM Retries,description=Retries for transient LLM failures,default=2"`

	// SummaryRetries bounds summarization retries under token limits.
	SummaryRetries int `yaml:"summary_retries,omitempty" json:"summary_retries,omitempty" jsonschema:"title=Summary Retries,description=Summarizer retry budget,default=3"`

	// MessageWindow caps the validated transcript sent to the LLM.
	MessageWindow int `yaml:"message_window,omitempty" json:"message_window,omitempty" jsonschema:"title=Message Window,description=Max messages per LLM call,default=10"`
}

// ServerTransport identifies the MCP transport.
type ServerTransport string

const (
	TransportStdio ServerTransport = "stdio"
	TransportHTTP  ServerTransport = "http"
)

// ServerConfig configures the MCP surface.
type ServerConfig struct {
	// Transport selects the MCP transport ("stdio" or "http").
	Transport ServerTransport `yaml:"transport,omitempty" json:"transport,omitempty" jsonschema:"title=Transport,description=MCP transport,enum=stdio,enum=http,default=stdio"`

	// Host to bind in HTTP mode.
	Host string `yaml:"host,omitempty" json:"host,omitempty" jsonschema:"title=Host,description=Bind host for HTTP mode,default=127.0.0.1"`

	// Port to bind in HTTP mode.
	Port int `yaml:"port,omitempty" json:"port,omitempty" jsonschema:"title=Port,description=Bind port for HTTP mode,default=8080"`
}

// LoggerConfig configures logging.
type LoggerConfig struct {
	// Level sets the minimum log level (debug, info, warn, error).
	Level string `yaml:"level,omitempty" json:"level,omitempty" jsonschema:"title=Level,description=Log level,enum=debug,enum=info,enum=warn,enum=error,default=info"`

	// Format selects the output format (simple, verbose, json).
	Format string `yaml:"format,omitempty" json:"format,omitempty" jsonschema:"title=Format,description=Log output format,enum=simple,enum=verbose,enum=json,default=simple"`
}

// SetDefaults applies default values across all sections.
func (c *Config) SetDefaults() {
	if c.Name == "" {
		c.Name = "biomed-mcp-server"
	}

	c.LLM.SetDefaults()

	if c.PubMed.Email == "" {
		c.PubMed.Email = envOr("PUBMED_EMAIL", "")
	}
	if c.PubMed.APIKey == "" {
		c.PubMed.APIKey = envOr("PUBMED_API_KEY", "")
	}
	if c.PubMed.Tool == "" {
		c.PubMed.Tool = "biomed-mcp"
	}
	if c.PubMed.BaseURL == "" {
		c.PubMed.BaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"
	}
	if c.PubMed.Timeout <= 0 {
		c.PubMed.Timeout = 30
	}

	if c.ClinicalTrials.BaseURL == "" {
		c.ClinicalTrials.BaseURL = "https://clinicaltrials.gov/api/v2"
	}
	if c.ClinicalTrials.Timeout <= 0 {
		c.ClinicalTrials.Timeout = 30
	}

	if c.Memory.Backend == "" {
		c.Memory.Backend = MemoryBackendInmem
	}
	if c.Memory.Addr == "" {
		c.Memory.Addr = envOr("REDIS_ADDR", "localhost:6379")
	}
	if c.Memory.TTL <= 0 {
		c.Memory.TTL = 86400
	}

	if c.Research.MaxToolCalls <= 0 {
		c.Research.MaxToolCalls = 4
	}
	if c.Research.ToolTimeout <= 0 {
		c.Research.ToolTimeout = 30
	}
	if c.Research.LLMRetries <= 0 {
		c.Research.LLMRetries = 2
	}
	if c.Research.SummaryRetries <= 0 {
		c.Research.SummaryRetries = 3
	}
	if c.Research.MessageWindow <= 0 {
		c.Research.MessageWindow = 10
	}

	if c.Server.Transport == "" {
		c.Server.Transport = TransportStdio
	}
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port <= 0 {
		c.Server.Port = 8080
	}

	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Logger.Format == "" {
		c.Logger.Format = "simple"
	}
}

// Validate checks the configuration for structural problems. Missing
// credentials are not fatal here; MissingRequired reports them so the
// server can start and surface them through the health check.
func (c *Config) Validate() error {
	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("llm: %w", err)
	}

	switch c.Memory.Backend {
	case MemoryBackendInmem, MemoryBackendRedis:
	default:
		return fmt.Errorf("memory: unknown backend %q", c.Memory.Backend)
	}

	switch c.Server.Transport {
	case TransportStdio, TransportHTTP:
	default:
		return fmt.Errorf("server: unknown transport %q", c.Server.Transport)
	}

	return nil
}

// MissingRequired lists the required settings that are absent. Used by
// the health check to report readiness without side effects.
func (c *Config) MissingRequired() []string {
	var missing []string
	if c.LLM.APIKey == "" {
		missing = append(missing, "llm.api_key")
	}
	if c.LLM.Provider == LLMProviderAzure && c.LLM.BaseURL == "" {
		missing = append(missing, "llm.base_url")
	}
	if c.PubMed.Email == "" {
		missing = append(missing, "pubmed.email")
	}
	return missing
}
