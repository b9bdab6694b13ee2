package llms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biomedmcp/biomed/pkg/config"
	"github.com/biomedmcp/biomed/pkg/protocol"
)

func testLLMConfig(baseURL string) *config.LLMConfig {
	temp := 0.7
	return &config.LLMConfig{
		Provider:    config.LLMProviderOpenAI,
		Model:       "gpt-4o",
		APIKey:      "sk-test",
		BaseURL:     baseURL,
		Temperature: &temp,
		MaxTokens:   4096,
		Timeout:     10,
		MaxRetries:  1,
		RetryDelay:  1,
	}
}

func TestBuildRequest_OpenAI(t *testing.T) {
	p, err := NewOpenAIProvider(testLLMConfig("https://api.openai.com/v1"), nil)
	require.NoError(t, err)

	messages := []*protocol.Message{
		protocol.NewSystemMessage("you are a research assistant"),
		protocol.NewUserMessage("find CRISPR papers"),
	}
	tools := []ToolDefinition{{
		Name:        "search_pubmed_articles",
		Description: "Search PubMed",
		Parameters:  map[string]interface{}{"type": "object"},
	}}

	req := p.buildRequest(messages, tools)

	assert.Equal(t, "gpt-4o", req.Model)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	require.NotNil(t, req.MaxTokens)
	assert.Equal(t, 4096, *req.MaxTokens)
	assert.Nil(t, req.MaxCompletionTokens)
	require.NotNil(t, req.Temperature)
	require.Len(t, req.Tools, 1)
	assert.Equal(t, "function", req.Tools[0].Type)
	assert.Equal(t, "auto", req.ToolChoice)
}

func TestBuildRequest_ReasoningModel(t *testing.T) {
	cfg := testLLMConfig("https://api.openai.com/v1")
	cfg.Model = "o3"
	p, err := NewOpenAIProvider(cfg, nil)
	require.NoError(t, err)

	req := p.buildRequest([]*protocol.Message{protocol.NewUserMessage("hi")}, nil)

	assert.Nil(t, req.MaxTokens)
	require.NotNil(t, req.MaxCompletionTokens)
	assert.Equal(t, 4096, *req.MaxCompletionTokens)
	assert.Nil(t, req.Temperature)
}

func TestBuildRequest_AzureOmitsModel(t *testing.T) {
	cfg := testLLMConfig("https://myresource.openai.azure.com")
	cfg.Provider = config.LLMProviderAzure
	cfg.Deployment = "gpt-4o-deploy"
	cfg.APIVersion = "2025-01-01-preview"
	p, err := NewOpenAIProvider(cfg, nil)
	require.NoError(t, err)

	req := p.buildRequest([]*protocol.Message{protocol.NewUserMessage("hi")}, nil)
	assert.Empty(t, req.Model)
}

func TestEndpoint(t *testing.T) {
	openai, _ := NewOpenAIProvider(testLLMConfig("https://api.openai.com/v1/"), nil)
	assert.Equal(t, "https://api.openai.com/v1/chat/completions", openai.endpoint())

	cfg := testLLMConfig("https://myresource.openai.azure.com/")
	cfg.Provider = config.LLMProviderAzure
	cfg.Deployment = "o3-deploy"
	cfg.APIVersion = "2025-01-01-preview"
	azure, _ := NewOpenAIProvider(cfg, nil)
	assert.Equal(t,
		"https://myresource.openai.azure.com/openai/deployments/o3-deploy/chat/completions?api-version=2025-01-01-preview",
		azure.endpoint())
}

func TestIsReasoningModel(t *testing.T) {
	reasoning := []string{"o1", "o3", "o3-mini", "o4-mini", "gpt-5", "GPT-5-turbo"}
	for _, m := range reasoning {
		assert.True(t, isReasoningModel(m), m)
	}
	standard := []string{"gpt-4o", "gpt-4o-mini", "gpt-4.1", "llama-3"}
	for _, m := range standard {
		assert.False(t, isReasoningModel(m), m)
	}
}

func TestParseToolCalls(t *testing.T) {
	calls, err := parseToolCalls([]openAIToolCall{{
		ID:   "call_1",
		Type: "function",
		Function: openAIFunctionCall{
			Name:      "search_pubmed_articles",
			Arguments: `{"query":"CRISPR","max_results":5}`,
		},
	}})
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, "call_1", calls[0].ID)
	assert.Equal(t, "search_pubmed_articles", calls[0].Name)
	assert.Equal(t, "CRISPR", calls[0].Args["query"])

	_, err = parseToolCalls([]openAIToolCall{{
		ID:       "call_2",
		Function: openAIFunctionCall{Name: "x", Arguments: "{not json"},
	}})
	assert.Error(t, err)
}

func TestIsTokenLimitError(t *testing.T) {
	direct := &TokenLimitError{Model: "gpt-4o", Message: "maximum context length exceeded"}
	assert.True(t, IsTokenLimitError(direct))
	assert.True(t, IsTokenLimitError(fmt.Errorf("generate: %w", direct)))
	assert.False(t, IsTokenLimitError(errors.New("rate limited")))
	assert.False(t, IsTokenLimitError(nil))
}

func TestWrapAPIError_TokenLimit(t *testing.T) {
	p, _ := NewOpenAIProvider(testLLMConfig("https://api.openai.com/v1"), nil)

	err := p.wrapAPIError(&openAIError{Code: "context_length_exceeded", Message: "too long"})
	assert.True(t, IsTokenLimitError(err))

	err = p.wrapAPIError(&openAIError{Message: "This model's maximum context length is 128000 tokens"})
	assert.True(t, IsTokenLimitError(err))

	err = p.wrapAPIError(&openAIError{Type: "invalid_request_error", Message: "bad schema"})
	assert.False(t, IsTokenLimitError(err))
}

func TestGenerate_EndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req openAIRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o", req.Model)

		resp := openAIResponse{
			Choices: []openAIChoice{{
				Message: openAIMessage{
					Role: "assistant",
					ToolCalls: []openAIToolCall{{
						ID:   "call_abc",
						Type: "function",
						Function: openAIFunctionCall{
							Name:      "search_pubmed_articles",
							Arguments: `{"query":"CRISPR gene editing"}`,
						},
					}},
				},
				FinishReason: "tool_calls",
			}},
			Usage: openAIUsage{PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider(testLLMConfig(srv.URL), nil)
	require.NoError(t, err)

	text, toolCalls, tokens, err := p.Generate(context.Background(),
		[]*protocol.Message{protocol.NewUserMessage("find CRISPR papers")}, nil)
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.Equal(t, 120, tokens)
	require.Len(t, toolCalls, 1)
	assert.Equal(t, "search_pubmed_articles", toolCalls[0].Name)
	assert.Equal(t, "CRISPR gene editing", toolCalls[0].Args["query"])
}

func TestGenerate_ContextLengthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"This model's maximum context length is 128000 tokens","type":"invalid_request_error","code":"context_length_exceeded"}}`))
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider(testLLMConfig(srv.URL), nil)
	require.NoError(t, err)

	_, _, _, err = p.Generate(context.Background(),
		[]*protocol.Message{protocol.NewUserMessage("hi")}, nil)
	require.Error(t, err)
	assert.True(t, IsTokenLimitError(err))
}
