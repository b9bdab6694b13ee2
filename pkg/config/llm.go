package config

import (
	"fmt"
	"os"
)

// LLMProvider identifies the LLM provider type.
type LLMProvider string

const (
	LLMProviderOpenAI LLMProvider = "openai"
	LLMProviderAzure  LLMProvider = "azure"
)

// LLMConfig configures the chat completion provider.
type LLMConfig struct {
	// Provider type (openai, azure).
	Provider LLMProvider `yaml:"provider,omitempty" json:"provider,omitempty" jsonschema:"title=Provider,description=LLM provider,enum=openai,enum=azure,default=openai"`

	// Model name (e.g., "gpt-4o", "o3").
	Model string `yaml:"model,omitempty" json:"model,omitempty" jsonschema:"title=Model,description=Model identifier"`

	// APIKey for authentication. Supports ${VAR} expansion.
	APIKey string `yaml:"api_key,omitempty" json:"api_key,omitempty" jsonschema:"title=API Key,description=API key for authentication (use ${ENV_VAR})"`

	// BaseURL overrides the default API endpoint. Required for azure
	// (the resource endpoint).
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty" jsonschema:"title=Base URL,description=Custom base URL for API endpoint"`

	// Deployment is the Azure OpenAI deployment name.
	Deployment string `yaml:"deployment,omitempty" json:"deployment,omitempty" jsonschema:"title=Deployment,description=Azure OpenAI deployment name"`

	// APIVersion is the Azure OpenAI API version.
	APIVersion string `yaml:"api_version,omitempty" json:"api_version,omitempty" jsonschema:"title=API Version,description=Azure OpenAI API version,default=2025-01-01-preview"`

	// Temperature for generation (0.0 - 2.0).
	Temperature *float64 `yaml:"temperature,omitempty" json:"temperature,omitempty" jsonschema:"title=Temperature,description=Sampling temperature,minimum=0,maximum=2,default=0.7"`

	// MaxTokens limits response length.
	MaxTokens int `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty" jsonschema:"title=Max Tokens,description=Maximum tokens to generate,minimum=1,default=4096"`

	// Timeout in seconds for API calls.
	Timeout int `yaml:"timeout,omitempty" json:"timeout,omitempty" jsonschema:"title=Timeout,description=Request timeout in seconds,default=120"`

	// MaxRetries for transport-level retries.
	MaxRetries int `yaml:"max_retries,omitempty" json:"max_retries,omitempty" jsonschema:"title=Max Retries,description=Transport retry budget,default=3"`

	// RetryDelay in seconds between transport retries.
	RetryDelay int `yaml:"retry_delay,omitempty" json:"retry_delay,omitempty" jsonschema:"title=Retry Delay,description=Base retry delay in seconds,default=2"`
}

// SetDefaults applies default values.
func (c *LLMConfig) SetDefaults() {
	// Auto-detect provider from environment if not set
	if c.Provider == "" {
		c.Provider = detectProviderFromEnv()
	}

	if c.Model == "" {
		switch c.Provider {
		case LLMProviderAzure:
			c.Model = envOr("AZURE_OPENAI_MODEL", "o3")
		default:
			c.Model = "gpt-4o"
		}
	}

	if c.APIKey == "" {
		c.APIKey = getAPIKeyFromEnv(c.Provider)
	}

	if c.Provider == LLMProviderAzure {
		if c.BaseURL == "" {
			c.BaseURL = os.Getenv("AZURE_OPENAI_ENDPOINT")
		}
		if c.Deployment == "" {
			c.Deployment = envOr("AZURE_OPENAI_DEPLOYMENT", c.Model)
		}
		if c.APIVersion == "" {
			c.APIVersion = envOr("OPENAI_API_VERSION", "2025-01-01-preview")
		}
	} else if c.BaseURL == "" {
		c.BaseURL = "https://api.openai.com/v1"
	}

	if c.Temperature == nil {
		t := 0.7
		c.Temperature = &t
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 4096
	}
	if c.Timeout <= 0 {
		c.Timeout = 120
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 2
	}
}

// Validate checks the provider configuration. Credentials are reported
// through MissingRequired rather than failing validation.
func (c *LLMConfig) Validate() error {
	switch c.Provider {
	case LLMProviderOpenAI, LLMProviderAzure:
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}

	return nil
}

func detectProviderFromEnv() LLMProvider {
	if os.Getenv("AZURE_OPENAI_ENDPOINT") != "" {
		return LLMProviderAzure
	}
	return LLMProviderOpenAI
}

func getAPIKeyFromEnv(provider LLMProvider) string {
	switch provider {
	case LLMProviderAzure:
		return os.Getenv("AZURE_OPENAI_API_KEY")
	default:
		return os.Getenv("OPENAI_API_KEY")
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
