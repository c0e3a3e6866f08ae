package assistant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// GitHubModelsBaseURL is the OpenAI-compatible inference endpoint that accepts GitHub tokens.
const GitHubModelsBaseURL = "https://models.inference.ai.azure.com"

// GenerationSettings are fixed per provider instance.
type GenerationSettings struct {
	Temperature float32
	MaxTokens   int
}

// OpenAIProvider implements LLMProvider using the OpenAI chat completions API.
// The same wire format serves GitHub Models and Ollama.
type OpenAIProvider struct {
	client   *openai.Client
	name     string
	model    string
	settings GenerationSettings
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 120 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}

// NewOpenAIProvider creates a new OpenAI provider instance
func NewOpenAIProvider(apiKey, model string, settings GenerationSettings) *OpenAIProvider {
	if model == "" {
		model = openai.GPT4o
	}
	config := openai.DefaultConfig(apiKey)
	config.HTTPClient = newHTTPClient()
	return newOpenAICompatibleProvider("openai", config, model, settings)
}

// NewGitHubModelsProvider creates a provider for GitHub Models, authenticated by a GitHub token.
func NewGitHubModelsProvider(token, model string, settings GenerationSettings) *OpenAIProvider {
	if model == "" {
		model = openai.GPT4o
	}
	config := openai.DefaultConfig(token)
	config.BaseURL = GitHubModelsBaseURL
	config.HTTPClient = newHTTPClient()
	return newOpenAICompatibleProvider("github", config, model, settings)
}

func newOpenAICompatibleProvider(name string, config openai.ClientConfig, model string, settings GenerationSettings) *OpenAIProvider {
	return &OpenAIProvider{
		client:   openai.NewClientWithConfig(config),
		name:     name,
		model:    model,
		settings: settings,
	}
}

// Generate sends the transcript to the backend once and returns the assistant reply.
func (p *OpenAIProvider) Generate(ctx context.Context, transcript Transcript, tools []ToolDefinition) (Message, error) {
	apiMessages := make([]openai.ChatCompletionMessage, len(transcript))
	for i, msg := range transcript {
		converted, err := toOpenAIMessage(msg)
		if err != nil {
			return Message{}, err
		}
		apiMessages[i] = converted
	}

	req := openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    apiMessages,
		Tools:       toOpenAITools(tools),
		Temperature: p.settings.Temperature,
		MaxTokens:   p.settings.MaxTokens,
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return Message{}, &GenerationError{Provider: p.name, Err: err}
	}
	if len(resp.Choices) == 0 {
		return Message{}, &GenerationError{Provider: p.name, Err: errors.New("response contained no choices")}
	}

	result, err := fromOpenAIMessage(resp.Choices[0].Message)
	if err != nil {
		return Message{}, generationError(p.name, err)
	}
	return result, nil
}

func toOpenAIMessage(msg Message) (openai.ChatCompletionMessage, error) {
	var role string
	switch msg.Role {
	case RoleSystem:
		role = openai.ChatMessageRoleSystem
	case RoleUser:
		role = openai.ChatMessageRoleUser
	case RoleAssistant:
		role = openai.ChatMessageRoleAssistant
	case RoleTool:
		role = openai.ChatMessageRoleTool
	default:
		return openai.ChatCompletionMessage{}, &UnsupportedRoleError{Role: msg.Role}
	}

	var toolCalls []openai.ToolCall
	if msg.Role == RoleAssistant && len(msg.ToolCalls) > 0 {
		toolCalls = make([]openai.ToolCall, len(msg.ToolCalls))
		for j, tc := range msg.ToolCalls {
			args, err := encodeArguments(tc.Arguments)
			if err != nil {
				return openai.ChatCompletionMessage{}, err
			}
			toolCalls[j] = openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: args,
				},
			}
		}
	}

	// Tool results may not carry empty content.
	content := msg.Content
	if role == openai.ChatMessageRoleTool && content == "" {
		content = "{}"
	}

	out := openai.ChatCompletionMessage{
		Role:      role,
		Content:   content,
		ToolCalls: toolCalls,
	}
	if msg.Role == RoleTool {
		out.ToolCallID = msg.ToolCallID
	}
	return out, nil
}

func fromOpenAIMessage(msg openai.ChatCompletionMessage) (Message, error) {
	result := Message{
		Role:      RoleAssistant,
		Content:   msg.Content,
		ToolCalls: []ToolCall{},
	}
	for _, tc := range msg.ToolCalls {
		args, err := DecodeArguments(tc.Function.Arguments)
		if err != nil {
			return Message{}, fmt.Errorf("tool call %s (%s): %w", tc.ID, tc.Function.Name, err)
		}
		result.ToolCalls = append(result.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}
	return result, nil
}

func toOpenAITools(tools []ToolDefinition) []openai.Tool {
	if len(tools) == 0 {
		return nil
	}
	apiTools := make([]openai.Tool, len(tools))
	for i, t := range tools {
		apiTools[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  parametersOrEmpty(t.Parameters),
			},
		}
	}
	return apiTools
}

func parametersOrEmpty(params map[string]any) map[string]any {
	if len(params) == 0 {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	return params
}
