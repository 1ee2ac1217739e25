package engine

import (
	"context"

	"github.com/Lim-seunghwan99/Interview-chatbot/internal/ollama"
)

// OllamaEngine adapts the internal/ollama.Client to the Engine interface.
type OllamaEngine struct {
	client *ollama.Client
}

// NewOllamaEngine creates an OllamaEngine backed by an Ollama server at baseURL.
func NewOllamaEngine(baseURL string) *OllamaEngine {
	return &OllamaEngine{client: ollama.New(baseURL)}
}

func toOllamaMessages(messages []Message) []ollama.Message {
	msgs := make([]ollama.Message, len(messages))
	for i, m := range messages {
		msgs[i] = ollama.Message{Role: m.Role, Content: m.Content}
	}
	return msgs
}

func (e *OllamaEngine) Chat(ctx context.Context, model string, messages []Message, jsonSchema *Schema) (string, error) {
	var s *ollama.Schema
	if jsonSchema != nil {
		s = &ollama.Schema{Type: jsonSchema.Type, Required: jsonSchema.Required}
		if jsonSchema.Properties != nil {
			s.Properties = make(map[string]ollama.SchemaProperty, len(jsonSchema.Properties))
			for k, v := range jsonSchema.Properties {
				s.Properties[k] = ollama.SchemaProperty{Type: v.Type, Description: v.Description}
			}
		}
	}
	return e.client.Chat(ctx, model, toOllamaMessages(messages), s)
}

func (e *OllamaEngine) Complete(ctx context.Context, model string, messages []Message, tools []Tool) (Reply, error) {
	ot := make([]ollama.Tool, len(tools))
	for i, t := range tools {
		ot[i] = ollama.Tool{
			Type:     "function",
			Function: ollama.ToolFunction{Name: t.Name, Description: t.Description, Parameters: t.Parameters},
		}
	}

	msg, err := e.client.ChatWithTools(ctx, model, toOllamaMessages(messages), ot)
	if err != nil {
		return Reply{}, err
	}

	reply := Reply{Content: msg.Content}
	for _, tc := range msg.ToolCalls {
		args := tc.Function.Arguments
		if args == nil {
			args = map[string]any{}
		}
		reply.ToolCalls = append(reply.ToolCalls, ToolCall{Name: tc.Function.Name, Arguments: args})
	}
	return reply, nil
}

func (e *OllamaEngine) Embed(ctx context.Context, model string, text string) ([]float32, error) {
	return e.client.Embed(ctx, model, text)
}

func (e *OllamaEngine) IsRunning(ctx context.Context) bool {
	return e.client.IsRunning(ctx)
}

func (e *OllamaEngine) ListModels(ctx context.Context) ([]string, error) {
	return e.client.ListModels(ctx)
}

func (e *OllamaEngine) HasModel(ctx context.Context, name string) bool {
	return e.client.HasModel(ctx, name)
}

func (e *OllamaEngine) PullModel(ctx context.Context, name string, onProgress func(PullProgress)) error {
	var cb func(ollama.PullProgress)
	if onProgress != nil {
		cb = func(p ollama.PullProgress) {
			onProgress(PullProgress{Status: p.Status, Total: p.Total, Completed: p.Completed})
		}
	}
	return e.client.PullModel(ctx, name, cb)
}
