package assistant

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"
)

// AnthropicProvider implements LLMProvider using the Anthropic API
type AnthropicProvider struct {
	client   *anthropic.Client
	model    string
	settings GenerationSettings
}

// NewAnthropicProvider creates a new Anthropic provider instance
func NewAnthropicProvider(apiKey, model string, settings GenerationSettings) *AnthropicProvider {
	if model == "" {
		model = string(anthropic.ModelClaude3Dot5Sonnet20240620)
	}
	return newAnthropicProvider(model, settings, anthropic.NewClient(apiKey, anthropic.WithHTTPClient(newHTTPClient())))
}

func newAnthropicProvider(model string, settings GenerationSettings, client *anthropic.Client) *AnthropicProvider {
	if settings.MaxTokens <= 0 {
		settings.MaxTokens = 4096 // required by the Messages API
	}
	return &AnthropicProvider{client: client, model: model, settings: settings}
}

func (p *AnthropicProvider) Generate(ctx context.Context, transcript Transcript, tools []ToolDefinition) (Message, error) {
	system, messages, err := toAnthropicMessages(transcript)
	if err != nil {
		return Message{}, err
	}

	req := anthropic.MessagesRequest{
		Model:     anthropic.Model(p.model),
		Messages:  messages,
		Tools:     toAnthropicTools(tools),
		MaxTokens: p.settings.MaxTokens,
		System:    system,
	}
	if p.settings.Temperature > 0 {
		temperature := p.settings.Temperature
		req.Temperature = &temperature
	}

	resp, err := p.client.CreateMessages(ctx, req)
	if err != nil {
		return Message{}, &GenerationError{Provider: "anthropic", Err: err}
	}

	result, err := fromAnthropicContent(resp.Content)
	if err != nil {
		return Message{}, generationError("anthropic", err)
	}
	return result, nil
}

// toAnthropicMessages lifts system messages into the separate system prompt and
// folds consecutive same-role turns together, since tool results travel as
// user turns and the API requires alternating roles.
func toAnthropicMessages(transcript Transcript) (string, []anthropic.Message, error) {
	var system []string
	var out []anthropic.Message

	for _, msg := range transcript {
		var role anthropic.ChatRole
		var content []anthropic.MessageContent

		switch msg.Role {
		case RoleSystem:
			system = append(system, msg.Content)
			continue
		case RoleUser:
			role = anthropic.RoleUser
			content = []anthropic.MessageContent{anthropic.NewTextMessageContent(msg.Content)}
		case RoleAssistant:
			role = anthropic.RoleAssistant
			if msg.Content != "" {
				content = append(content, anthropic.NewTextMessageContent(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				input, err := json.Marshal(cloneArguments(tc.Arguments))
				if err != nil {
					return "", nil, err
				}
				content = append(content, anthropic.NewToolUseMessageContent(tc.ID, tc.Name, json.RawMessage(input)))
			}
		case RoleTool:
			role = anthropic.RoleUser
			content = []anthropic.MessageContent{
				anthropic.NewToolResultMessageContent(msg.ToolCallID, msg.Content, false),
			}
		default:
			return "", nil, &UnsupportedRoleError{Role: msg.Role}
		}

		if len(content) == 0 {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content = append(out[n-1].Content, content...)
			continue
		}
		out = append(out, anthropic.Message{Role: role, Content: content})
	}

	return strings.Join(system, "\n"), out, nil
}

func toAnthropicTools(tools []ToolDefinition) []anthropic.ToolDefinition {
	if len(tools) == 0 {
		return nil
	}
	out := make([]anthropic.ToolDefinition, len(tools))
	for i, t := range tools {
		out[i] = anthropic.ToolDefinition{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: parametersOrEmpty(t.Parameters),
		}
	}
	return out
}

func fromAnthropicContent(contents []anthropic.MessageContent) (Message, error) {
	result := Message{Role: RoleAssistant, ToolCalls: []ToolCall{}}
	for _, content := range contents {
		switch content.Type {
		case anthropic.MessagesContentTypeText:
			if content.Text != nil {
				result.Content += *content.Text
			}
		case anthropic.MessagesContentTypeToolUse:
			if content.MessageContentToolUse == nil {
				continue
			}
			args, err := DecodeArguments(content.Input)
			if err != nil {
				return Message{}, err
			}
			result.ToolCalls = append(result.ToolCalls, ToolCall{
				ID:        content.ID,
				Name:      content.Name,
				Arguments: args,
			})
		}
	}
	return result, nil
}
