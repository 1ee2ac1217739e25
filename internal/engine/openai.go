package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"

	"github.com/Lim-seunghwan99/Interview-chatbot/internal/proxy"
)

// OpenAIEngine adapts an OpenAI-compatible API to the Engine interface.
type OpenAIEngine struct {
	client *proxy.Client
}

// NewOpenAIEngine creates an engine for the API at baseURL (empty for the default).
func NewOpenAIEngine(apiKey, baseURL string) *OpenAIEngine {
	return &OpenAIEngine{client: proxy.NewClient(apiKey, baseURL)}
}

func toProxyMessages(messages []Message) []proxy.Message {
	msgs := make([]proxy.Message, len(messages))
	for i, m := range messages {
		msgs[i] = proxy.Message{Role: m.Role, Content: m.Content}
	}
	return msgs
}

func (e *OpenAIEngine) Chat(ctx context.Context, model string, messages []Message, jsonSchema *Schema) (string, error) {
	req := proxy.ChatRequest{Model: model, Messages: toProxyMessages(messages)}
	if jsonSchema != nil {
		schema, err := json.Marshal(map[string]any{"name": "response", "schema": jsonSchema})
		if err != nil {
			return "", fmt.Errorf("encoding schema: %w", err)
		}
		req.ResponseFormat = &proxy.ResponseFormat{Type: "json_schema", JSONSchema: schema}
	}

	resp, err := e.client.ChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Message.Content, nil
}

func (e *OpenAIEngine) Complete(ctx context.Context, model string, messages []Message, tools []Tool) (Reply, error) {
	req := proxy.ChatRequest{Model: model, Messages: toProxyMessages(messages)}
	for _, t := range tools {
		req.Tools = append(req.Tools, proxy.Tool{
			Type:     "function",
			Function: proxy.ToolFunction{Name: t.Name, Description: t.Description, Parameters: t.Parameters},
		})
	}

	resp, err := e.client.ChatCompletion(ctx, req)
	if err != nil {
		return Reply{}, err
	}

	msg := resp.Choices[0].Message
	reply := Reply{Content: msg.Content}
	for _, tc := range msg.ToolCalls {
		args := map[string]any{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				// Malformed arguments surface later as missing fields.
				slog.Debug("tool call arguments are not a JSON object", "tool", tc.Function.Name, "error", err)
				args = map[string]any{}
			}
		}
		reply.ToolCalls = append(reply.ToolCalls, ToolCall{Name: tc.Function.Name, Arguments: args})
	}
	return reply, nil
}

func (e *OpenAIEngine) Embed(ctx context.Context, model string, text string) ([]float32, error) {
	return e.client.Embed(ctx, model, text)
}

func (e *OpenAIEngine) IsRunning(ctx context.Context) bool {
	_, err := e.client.ListModels(ctx)
	return err == nil
}

func (e *OpenAIEngine) ListModels(ctx context.Context) ([]string, error) {
	models, err := e.client.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(models))
	for i, m := range models {
		names[i] = m.ID
	}
	return names, nil
}

func (e *OpenAIEngine) HasModel(ctx context.Context, name string) bool {
	names, err := e.ListModels(ctx)
	return err == nil && slices.Contains(names, name)
}

// Hosted reports true: the provider decides which models exist.
func (e *OpenAIEngine) Hosted() bool { return true }

// PullModel is unsupported: hosted APIs serve a fixed model list.
func (e *OpenAIEngine) PullModel(_ context.Context, name string, _ func(PullProgress)) error {
	return fmt.Errorf("model %s is not available from the API and cannot be pulled", name)
}
