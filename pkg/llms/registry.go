package llms

import (
	"fmt"

	"github.com/biomedmcp/biomed/pkg/config"
	"github.com/biomedmcp/biomed/pkg/observability"
	"github.com/biomedmcp/biomed/pkg/registry"
)

// ProviderFactory builds a provider from its config section.
type ProviderFactory func(cfg *config.LLMConfig, metrics *observability.Metrics) (Provider, error)

// LLMRegistry holds provider factories by name. The built-in providers
// are pre-registered; callers can add their own before CreateProvider.
type LLMRegistry struct {
	*registry.BaseRegistry[ProviderFactory]
}

func NewLLMRegistry() *LLMRegistry {
	r := &LLMRegistry{
		BaseRegistry: registry.NewBaseRegistry[ProviderFactory](),
	}

	openai := func(cfg *config.LLMConfig, metrics *observability.Metrics) (Provider, error) {
		return NewOpenAIProvider(cfg, metrics)
	}
	r.Register(string(config.LLMProviderOpenAI), openai)
	r.Register(string(config.LLMProviderAzure), openai)

	return r
}

func (r *LLMRegistry) RegisterLLM(name string, factory ProviderFactory) error {
	if name == "" {
		return fmt.Errorf("LLM name cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("LLM factory cannot be nil")
	}
	return r.Register(name, factory)
}

// CreateProvider builds the provider registered under cfg.Provider.
func (r *LLMRegistry) CreateProvider(cfg *config.LLMConfig, metrics *observability.Metrics) (Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("LLM config cannot be nil")
	}

	factory, ok := r.Get(string(cfg.Provider))
	if !ok {
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
	return factory(cfg, metrics)
}

// NewProviderFromConfig builds the provider selected by cfg using the
// built-in registry.
func NewProviderFromConfig(cfg *config.LLMConfig, metrics *observability.Metrics) (Provider, error) {
	return NewLLMRegistry().CreateProvider(cfg, metrics)
}
