package intent

import (
	"fmt"
	"strings"

	"github.com/Lim-seunghwan99/Interview-chatbot/internal/capability"
	"github.com/Lim-seunghwan99/Interview-chatbot/internal/engine"
)

const systemPromptTemplate = `You are a routing assistant for a communication and interview coaching service.
Decide whether one of the available tools can handle the user's request.

Rules:
- If a tool fits, call exactly one tool and fill its arguments from the user's words. Do not invent argument values the user did not imply.
- If no tool fits, do not call any tool. Answer the user directly and briefly, in the language the user wrote in.
- Never ask a follow-up question; this is a single-turn decision.`

// BuildPrompt constructs the chat messages for a routing decision. The
// catalog is listed in the system prompt as well as passed as tools, which
// helps models with weak tool-calling follow the descriptions.
func BuildPrompt(text string, catalog []capability.Descriptor) []engine.Message {
	var sb strings.Builder
	sb.WriteString(systemPromptTemplate)

	if len(catalog) > 0 {
		sb.WriteString("\n\n[Available Tools]")
		for _, d := range catalog {
			fmt.Fprintf(&sb, "\n- %s: %s", d.Name, d.Description)
		}
	}

	return []engine.Message{
		{Role: "system", Content: sb.String()},
		{Role: "user", Content: text},
	}
}

// Tools converts the catalog to engine tool definitions, keeping catalog order.
func Tools(catalog []capability.Descriptor) []engine.Tool {
	tools := make([]engine.Tool, len(catalog))
	for i, d := range catalog {
		tools[i] = engine.Tool{Name: d.Name, Description: d.Description, Parameters: d.JSONSchema()}
	}
	return tools
}
