package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

// GeminiProvider implements LLMProvider using Google's Gemini API
type GeminiProvider struct {
	client   *genai.Client
	model    string
	settings GenerationSettings
}

// NewGeminiProvider creates a new Gemini provider instance
func NewGeminiProvider(ctx context.Context, apiKey, model string, settings GenerationSettings) (*GeminiProvider, error) {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &GeminiProvider{
		client:   client,
		model:    model,
		settings: settings,
	}, nil
}

// Close releases the underlying gRPC connection.
func (p *GeminiProvider) Close() error {
	return p.client.Close()
}

func (p *GeminiProvider) Generate(ctx context.Context, transcript Transcript, tools []ToolDefinition) (Message, error) {
	model := p.client.GenerativeModel(p.model)
	if p.settings.Temperature > 0 {
		model.SetTemperature(p.settings.Temperature)
	}
	if p.settings.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(p.settings.MaxTokens))
	}
	model.Tools = toGeminiTools(tools)

	system, history, err := toGeminiContents(transcript)
	if err != nil {
		return Message{}, err
	}
	if system != nil {
		model.SystemInstruction = system
	}

	if len(history) == 0 || history[len(history)-1].Role != "user" {
		return Message{}, &GenerationError{Provider: "gemini", Err: errors.New("last message was not from user or tool")}
	}

	cs := model.StartChat()
	last := history[len(history)-1]
	cs.History = history[:len(history)-1]

	resp, err := cs.SendMessage(ctx, last.Parts...)
	if err != nil {
		return Message{}, &GenerationError{Provider: "gemini", Err: err}
	}

	result, err := fromGeminiResponse(resp)
	if err != nil {
		return Message{}, generationError("gemini", err)
	}
	return result, nil
}

// toGeminiContents replays the transcript as chat history. Function responses
// need the tool name, which is recovered from the originating call when the
// result message does not carry one.
func toGeminiContents(transcript Transcript) (*genai.Content, []*genai.Content, error) {
	var system *genai.Content
	var history []*genai.Content
	callNames := map[string]string{}

	for _, msg := range transcript {
		var role string
		var parts []genai.Part

		switch msg.Role {
		case RoleSystem:
			if system == nil {
				system = &genai.Content{}
			}
			system.Parts = append(system.Parts, genai.Text(msg.Content))
			continue
		case RoleUser:
			role = "user"
			parts = append(parts, genai.Text(msg.Content))
		case RoleAssistant:
			role = "model"
			if msg.Content != "" {
				parts = append(parts, genai.Text(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				callNames[tc.ID] = tc.Name
				parts = append(parts, genai.FunctionCall{
					Name: tc.Name,
					Args: cloneArguments(tc.Arguments),
				})
			}
		case RoleTool:
			role = "user"
			name := msg.Name
			if name == "" {
				name = callNames[msg.ToolCallID]
			}
			// Try to parse JSON, otherwise wrap string
			var response map[string]any
			if err := json.Unmarshal([]byte(msg.Content), &response); err != nil || response == nil {
				response = map[string]any{"result": msg.Content}
			}
			parts = append(parts, genai.FunctionResponse{
				Name:     name,
				Response: response,
			})
		default:
			return nil, nil, &UnsupportedRoleError{Role: msg.Role}
		}

		if len(parts) == 0 {
			continue
		}
		if n := len(history); n > 0 && history[n-1].Role == role {
			history[n-1].Parts = append(history[n-1].Parts, parts...)
			continue
		}
		history = append(history, &genai.Content{Role: role, Parts: parts})
	}

	return system, history, nil
}

func toGeminiTools(tools []ToolDefinition) []*genai.Tool {
	if len(tools) == 0 {
		return nil
	}
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		decl := &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
		}
		if props, _ := t.Parameters["properties"].(map[string]any); len(props) > 0 {
			decl.Parameters = toGeminiSchema(t.Parameters)
		}
		decls = append(decls, decl)
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// toGeminiSchema maps the subset of JSON Schema that tool providers emit onto genai.Schema.
func toGeminiSchema(schema map[string]any) *genai.Schema {
	out := &genai.Schema{}
	if desc, ok := schema["description"].(string); ok {
		out.Description = desc
	}

	typ, _ := schema["type"].(string)
	if types, ok := schema["type"].([]any); ok {
		// ["string", "null"] style unions
		for _, t := range types {
			if s, ok := t.(string); ok && s != "null" {
				typ = s
			} else if s == "null" {
				out.Nullable = true
			}
		}
	}

	switch typ {
	case "string":
		out.Type = genai.TypeString
		if format, ok := schema["format"].(string); ok && format == "date-time" {
			out.Format = format
		}
		if enum, ok := schema["enum"].([]any); ok {
			for _, e := range enum {
				if s, ok := e.(string); ok && s != "" {
					out.Enum = append(out.Enum, s)
				}
			}
			if len(out.Enum) > 0 {
				out.Format = "enum"
			}
		}
	case "integer":
		out.Type = genai.TypeInteger
	case "number":
		out.Type = genai.TypeNumber
	case "boolean":
		out.Type = genai.TypeBoolean
	case "array":
		out.Type = genai.TypeArray
		if items, ok := schema["items"].(map[string]any); ok {
			out.Items = toGeminiSchema(items)
		} else {
			out.Items = &genai.Schema{Type: genai.TypeString}
		}
	default:
		out.Type = genai.TypeObject
		if props, ok := schema["properties"].(map[string]any); ok {
			out.Properties = make(map[string]*genai.Schema, len(props))
			for name, raw := range props {
				if prop, ok := raw.(map[string]any); ok {
					out.Properties[name] = toGeminiSchema(prop)
				}
			}
		}
		if required, ok := schema["required"].([]any); ok {
			for _, r := range required {
				if s, ok := r.(string); ok {
					out.Required = append(out.Required, s)
				}
			}
		}
	}
	return out
}

// fromGeminiResponse converts the first candidate. Gemini does not assign call
// ids, so each call gets a fresh uuid to keep results correlatable.
func fromGeminiResponse(resp *genai.GenerateContentResponse) (Message, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return Message{}, fmt.Errorf("no candidates returned")
	}
	cand := resp.Candidates[0]

	result := Message{Role: RoleAssistant, ToolCalls: []ToolCall{}}
	if cand.Content == nil {
		return result, nil
	}

	for _, part := range cand.Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			result.Content += string(p)
		case genai.FunctionCall:
			args, err := DecodeArguments(p.Args)
			if err != nil {
				return Message{}, err
			}
			result.ToolCalls = append(result.ToolCalls, ToolCall{
				ID:        "call_" + uuid.NewString(),
				Name:      p.Name,
				Arguments: args,
			})
		}
	}
	return result, nil
}
