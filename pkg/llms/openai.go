package llms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/biomedmcp/biomed/pkg/config"
	"github.com/biomedmcp/biomed/pkg/httpclient"
	"github.com/biomedmcp/biomed/pkg/observability"
	"github.com/biomedmcp/biomed/pkg/protocol"
)

// OpenAIProvider talks to the OpenAI chat completions API, or to an
// Azure OpenAI deployment when the config selects the azure provider.
type OpenAIProvider struct {
	config     *config.LLMConfig
	httpClient *httpclient.Client
	metrics    *observability.Metrics
}

type openAIRequest struct {
	Model               string          `json:"model,omitempty"`
	Messages            []openAIMessage `json:"messages"`
	MaxTokens           *int            `json:"max_tokens,omitempty"`
	MaxCompletionTokens *int            `json:"max_completion_tokens,omitempty"`
	Temperature         *float64        `json:"temperature,omitempty"`
	Tools               []openAITool    `json:"tools,omitempty"`
	ToolChoice          string          `json:"tool_choice,omitempty"`
}

type openAIMessage struct {
	Role       string           `json:"role"`
	Content    string           `json:"content"`
	ToolCalls  []openAIToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
	Name       string           `json:"name,omitempty"`
}

type openAITool struct {
	Type     string             `json:"type"`
	Function openAIToolFunction `json:"function"`
}

type openAIToolFunction struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

type openAIToolCall struct {
	ID       string             `json:"id"`
	Type     string             `json:"type"`
	Function openAIFunctionCall `json:"function"`
}

type openAIFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type openAIResponse struct {
	Choices []openAIChoice `json:"choices"`
	Usage   openAIUsage    `json:"usage"`
	Error   *openAIError   `json:"error,omitempty"`
}

type openAIChoice struct {
	Message      openAIMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type openAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type openAIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// NewOpenAIProvider creates a provider from the given configuration.
func NewOpenAIProvider(cfg *config.LLMConfig, metrics *observability.Metrics) (*OpenAIProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("llm config is required")
	}

	httpClient := httpclient.New(
		httpclient.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		}),
		httpclient.WithMaxRetries(cfg.MaxRetries),
		httpclient.WithBaseDelay(time.Duration(cfg.RetryDelay)*time.Second),
		httpclient.WithHeaderParser(httpclient.ParseOpenAIHeaders),
	)

	return &OpenAIProvider{
		config:     cfg,
		httpClient: httpClient,
		metrics:    metrics,
	}, nil
}

func (p *OpenAIProvider) Generate(ctx context.Context, messages []*protocol.Message, tools []ToolDefinition) (string, []*protocol.ToolCall, int, error) {
	startTime := time.Now()

	request := p.buildRequest(messages, tools)

	response, err := p.makeRequest(ctx, request)
	duration := time.Since(startTime)

	if err != nil {
		p.metrics.RecordLLMCall(p.config.Model, duration, 0, err)
		return "", nil, 0, err
	}

	if response.Error != nil {
		apiErr := p.wrapAPIError(response.Error)
		p.metrics.RecordLLMCall(p.config.Model, duration, 0, apiErr)
		return "", nil, 0, apiErr
	}

	if len(response.Choices) == 0 {
		noChoiceErr := fmt.Errorf("no response choices returned")
		p.metrics.RecordLLMCall(p.config.Model, duration, 0, noChoiceErr)
		return "", nil, 0, noChoiceErr
	}

	choice := response.Choices[0]
	tokensUsed := response.Usage.TotalTokens

	var toolCalls []*protocol.ToolCall
	if len(choice.Message.ToolCalls) > 0 {
		toolCalls, err = parseToolCalls(choice.Message.ToolCalls)
		if err != nil {
			return choice.Message.Content, nil, tokensUsed, err
		}
	}

	p.metrics.RecordLLMCall(p.config.Model, duration, tokensUsed, nil)

	return choice.Message.Content, toolCalls, tokensUsed, nil
}

func (p *OpenAIProvider) GetModelName() string {
	return p.config.Model
}

func (p *OpenAIProvider) GetMaxTokens() int {
	return p.config.MaxTokens
}

func (p *OpenAIProvider) Close() error {
	return nil
}

func (p *OpenAIProvider) buildRequest(messages []*protocol.Message, tools []ToolDefinition) openAIRequest {
	openaiMessages := make([]openAIMessage, 0, len(messages))
	for _, msg := range messages {
		openaiMsg := openAIMessage{
			Role:       string(msg.Role),
			Content:    msg.Content,
			ToolCallID: msg.ToolCallID,
			Name:       msg.Name,
		}

		if len(msg.ToolCalls) > 0 {
			openaiMsg.ToolCalls = make([]openAIToolCall, len(msg.ToolCalls))
			for j, tc := range msg.ToolCalls {
				argsJSON, _ := json.Marshal(tc.Args)
				openaiMsg.ToolCalls[j] = openAIToolCall{
					ID:   tc.ID,
					Type: "function",
					Function: openAIFunctionCall{
						Name:      tc.Name,
						Arguments: string(argsJSON),
					},
				}
			}
		}

		openaiMessages = append(openaiMessages, openaiMsg)
	}

	request := openAIRequest{
		Messages: openaiMessages,
	}

	// Azure routes by deployment, the model field stays empty there.
	if p.config.Provider != config.LLMProviderAzure {
		request.Model = p.config.Model
	}

	// o-series reasoning models require max_completion_tokens and only
	// support the default temperature.
	// See: https://platform.openai.com/docs/guides/reasoning
	if isReasoningModel(p.config.Model) {
		if p.config.MaxTokens > 0 {
			maxCompletionTokens := p.config.MaxTokens
			request.MaxCompletionTokens = &maxCompletionTokens
		}
	} else {
		if p.config.MaxTokens > 0 {
			maxTokens := p.config.MaxTokens
			request.MaxTokens = &maxTokens
		}
		request.Temperature = p.config.Temperature
	}

	if len(tools) > 0 {
		request.Tools = convertTools(tools)
		request.ToolChoice = "auto"
	}

	return request
}

// isReasoningModel checks if a model requires max_completion_tokens
// (o1, o3, o4 and gpt-5 families).
func isReasoningModel(modelName string) bool {
	modelLower := strings.ToLower(modelName)
	if modelLower == "o1" || modelLower == "o3" || modelLower == "o4" || modelLower == "gpt-5" {
		return true
	}
	for _, prefix := range []string{"o1-", "o3-", "o4-", "gpt-5-"} {
		if strings.HasPrefix(modelLower, prefix) {
			return true
		}
	}
	return false
}

func convertTools(tools []ToolDefinition) []openAITool {
	result := make([]openAITool, len(tools))
	for i, tool := range tools {
		result[i] = openAITool{
			Type:     "function",
			Function: (openAIToolFunction)(tool),
		}
	}
	return result
}

func parseToolCalls(openaiToolCalls []openAIToolCall) ([]*protocol.ToolCall, error) {
	result := make([]*protocol.ToolCall, len(openaiToolCalls))

	for i, tc := range openaiToolCalls {
		var args map[string]interface{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return nil, fmt.Errorf("failed to parse tool arguments: %w", err)
			}
		}

		result[i] = &protocol.ToolCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: args,
		}
	}

	return result, nil
}

func (p *OpenAIProvider) wrapAPIError(apiErr *openAIError) error {
	if apiErr.Code == "context_length_exceeded" ||
		strings.Contains(strings.ToLower(apiErr.Message), "maximum context length") {
		return &TokenLimitError{Model: p.config.Model, Message: apiErr.Message}
	}
	return fmt.Errorf("OpenAI API error: %s (type: %s, code: %s)", apiErr.Message, apiErr.Type, apiErr.Code)
}

func (p *OpenAIProvider) endpoint() string {
	if p.config.Provider == config.LLMProviderAzure {
		base := strings.TrimRight(p.config.BaseURL, "/")
		return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
			base, p.config.Deployment, p.config.APIVersion)
	}
	return strings.TrimRight(p.config.BaseURL, "/") + "/chat/completions"
}

func parseErrorResponse(body []byte) *openAIError {
	if len(body) == 0 {
		return nil
	}
	var errorResp struct {
		Error openAIError `json:"error"`
	}
	if err := json.Unmarshal(body, &errorResp); err == nil && errorResp.Error.Message != "" {
		return &errorResp.Error
	}
	return nil
}

func (p *OpenAIProvider) makeRequest(ctx context.Context, request openAIRequest) (*openAIResponse, error) {
	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.endpoint(), bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(requestBody)), nil
	}

	req.Header.Set("Content-Type", "application/json")

	if p.config.APIKey != "" {
		if p.config.Provider == config.LLMProviderAzure {
			req.Header.Set("api-key", p.config.APIKey)
		} else {
			req.Header.Set("Authorization", "Bearer "+p.config.APIKey)
		}
	}

	resp, err := p.httpClient.Do(req)
	// The HTTP client may return both response and error for non-2xx
	// status codes; the body still carries the API error details.
	if resp != nil {
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			body, readErr := io.ReadAll(resp.Body)
			errorBody := string(body)
			if readErr != nil {
				errorBody = fmt.Sprintf("(failed to read error body: %v)", readErr)
			}
			if apiErr := parseErrorResponse(body); apiErr != nil {
				return nil, p.wrapAPIError(apiErr)
			}
			return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, errorBody)
		}
	}

	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}

	if resp == nil {
		return nil, fmt.Errorf("HTTP request failed: no response received")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var response openAIResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &response, nil
}
