package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"strings"
	"time"
)

// httpClient is shared across provider clients; generation calls can run
// long, so the caller's context carries the real deadline.
var httpClient = &http.Client{Timeout: 120 * time.Second}

// AnthropicClient talks to the Anthropic Messages API.
type AnthropicClient struct {
	apiKey string
	model  string
}

// NewAnthropicClient constructs a client for the given API key, defaulting
// to claude-sonnet-4 unless overridden via SetModel.
func NewAnthropicClient(apiKey string) *AnthropicClient {
	return &AnthropicClient{apiKey: apiKey, model: "claude-sonnet-4-20250514"}
}

// SetModel overrides the default model.
func (c *AnthropicClient) SetModel(model string) { c.model = model }

// Name returns the provider name for logging.
func (c *AnthropicClient) Name() string { return "anthropic" }

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
	System    string             `json:"system,omitempty"`
	Temperature float64          `json:"temperature"`
	// Seed is carried for wire-format parity with the other providers;
	// the Anthropic Messages API does not honor it as of this writing.
	Seed int64 `json:"seed,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate issues one completion request against the Anthropic API.
func (c *AnthropicClient) Generate(ctx context.Context, req Request) (Response, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	body, err := json.Marshal(anthropicRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
		Seed:        req.Seed,
		System:      req.SystemPrompt,
		Messages:    []anthropicMessage{{Role: "user", Content: req.Query}},
	})
	if err != nil {
		return Response{}, fmt.Errorf("marshalling anthropic request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.anthropic.com/v1/messages", bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("building anthropic request: %w", err)
	}
	httpReq.Header.Set("content-type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("anthropic request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("reading anthropic response: %w", err)
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return Response{}, fmt.Errorf("parsing anthropic response: %w", err)
	}
	if parsed.Error != nil {
		return Response{}, fmt.Errorf("anthropic error: %s", parsed.Error.Message)
	}
	if len(parsed.Content) == 0 {
		return Response{}, fmt.Errorf("anthropic response had no content blocks")
	}

	return Response{Code: parsed.Content[0].Text, Model: model}, nil
}

// OpenAIClient talks to the OpenAI-compatible chat completions API. xAI,
// ZAI, and OpenRouter reuse this client against their own base URLs since
// they all speak the same wire format.
type OpenAIClient struct {
	apiKey  string
	model   string
	baseURL string
	name    string
}

// NewOpenAIClient constructs a client for api.openai.com.
func NewOpenAIClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{apiKey: apiKey, model: "gpt-4o", baseURL: "https://api.openai.com/v1", name: "openai"}
}

// NewXAIClient constructs a client against xAI's OpenAI-compatible endpoint.
func NewXAIClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{apiKey: apiKey, model: "grok-2", baseURL: "https://api.x.ai/v1", name: "xai"}
}

// NewZAIClient constructs a client against ZAI's OpenAI-compatible endpoint.
func NewZAIClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{apiKey: apiKey, model: "glm-4.6", baseURL: "https://api.z.ai/api/paas/v4", name: "zai"}
}

// NewOpenRouterClient constructs a client against OpenRouter's unified API.
func NewOpenRouterClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{apiKey: apiKey, model: "anthropic/claude-sonnet-4", baseURL: "https://openrouter.ai/api/v1", name: "openrouter"}
}

// SetModel overrides the default model.
func (c *OpenAIClient) SetModel(model string) { c.model = model }

// Name returns the provider name for logging.
func (c *OpenAIClient) Name() string { return c.name }

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Seed        int64         `json:"seed,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate issues one chat completion request.
func (c *OpenAIClient) Generate(ctx context.Context, req Request) (Response, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	messages := []chatMessage{}
	if req.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Query})

	body, err := json.Marshal(chatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Seed:        req.Seed,
	})
	if err != nil {
		return Response{}, fmt.Errorf("marshalling %s request: %w", c.name, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("building %s request: %w", c.name, err)
	}
	httpReq.Header.Set("content-type", "application/json")
	httpReq.Header.Set("authorization", "Bearer "+c.apiKey)

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("%s request failed: %w", c.name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("reading %s response: %w", c.name, err)
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return Response{}, fmt.Errorf("parsing %s response: %w", c.name, err)
	}
	if parsed.Error != nil {
		return Response{}, fmt.Errorf("%s error: %s", c.name, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return Response{}, fmt.Errorf("%s response had no choices", c.name)
	}

	return Response{Code: parsed.Choices[0].Message.Content, Model: model}, nil
}

// GeminiClient talks to the Google Generative Language API.
type GeminiClient struct {
	apiKey  string
	model   string
	baseURL string
}

const geminiDefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// NewGeminiClient constructs a client, defaulting to gemini-2.0-flash.
func NewGeminiClient(apiKey string) *GeminiClient {
	return &GeminiClient{apiKey: apiKey, model: "gemini-2.0-flash", baseURL: geminiDefaultBaseURL}
}

// SetModel overrides the default model.
func (c *GeminiClient) SetModel(model string) { c.model = model }

// Name returns the provider name for logging.
func (c *GeminiClient) Name() string { return "gemini" }

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature float64 `json:"temperature"`
	Seed        int64   `json:"seed,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate issues one generateContent request.
func (c *GeminiClient) Generate(ctx context.Context, req Request) (Response, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	prompt := req.Query
	if req.SystemPrompt != "" {
		prompt = req.SystemPrompt + "\n\n" + req.Query
	}

	body, err := json.Marshal(geminiRequest{
		Contents:         []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: geminiGenerationConfig{Temperature: req.Temperature, Seed: req.Seed},
	})
	if err != nil {
		return Response{}, fmt.Errorf("marshalling gemini request: %w", err)
	}

	baseURL := c.baseURL
	if baseURL == "" {
		baseURL = geminiDefaultBaseURL
	}
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", baseURL, model, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("building gemini request: %w", err)
	}
	httpReq.Header.Set("content-type", "application/json")

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("reading gemini response: %w", err)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return Response{}, fmt.Errorf("parsing gemini response: %w", err)
	}
	if parsed.Error != nil {
		return Response{}, fmt.Errorf("gemini error: %s", parsed.Error.Message)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return Response{}, fmt.Errorf("gemini response had no candidates")
	}

	return Response{Code: parsed.Candidates[0].Content.Parts[0].Text, Model: model}, nil
}

// CLIClient shells out to a locally installed, subscription-authenticated
// CLI (claude-cli or codex-cli) instead of calling an API directly.
type CLIClient struct {
	binary string
	args   []string
	name   string
}

// NewClaudeCLIClient builds a client around the `claude` CLI.
func NewClaudeCLIClient(binary string, extraArgs []string) *CLIClient {
	if binary == "" {
		binary = "claude"
	}
	return &CLIClient{binary: binary, args: extraArgs, name: "claude-cli"}
}

// NewCodexCLIClient builds a client around the `codex` CLI.
func NewCodexCLIClient(binary string, extraArgs []string) *CLIClient {
	if binary == "" {
		binary = "codex"
	}
	return &CLIClient{binary: binary, args: extraArgs, name: "codex-cli"}
}

// Name returns the CLI engine name for logging.
func (c *CLIClient) Name() string { return c.name }

// Generate runs the CLI in non-interactive, print-and-exit mode and
// returns its stdout as the generated code. Temperature and seed are not
// honored by CLI engines; they are subscription-based single-shot tools.
func (c *CLIClient) Generate(ctx context.Context, req Request) (Response, error) {
	args := append(append([]string(nil), c.args...), "-p", req.Query)
	cmd := exec.CommandContext(ctx, c.binary, args...)
	if req.SystemPrompt != "" {
		cmd.Args = append(cmd.Args, "--system-prompt", req.SystemPrompt)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return Response{}, fmt.Errorf("%s failed: %w: %s", c.name, err, strings.TrimSpace(stderr.String()))
	}

	return Response{Code: stdout.String(), Model: c.name}, nil
}
