package skills

import (
	"context"
	"fmt"
	"strings"

	"github.com/Lim-seunghwan99/Interview-chatbot/internal/capability"
)

func (c coach) predictReaction() capability.Descriptor {
	return capability.Descriptor{
		Name:        "predict_recipient_reaction",
		Description: "Predicts how a person with specific traits might think or feel in a given situation.",
		Params: []capability.Param{
			{Name: "recipient_description", Type: capability.String, Required: true, Description: "Who the person is and what they are like"},
			{Name: "situation_description", Type: capability.String, Required: true, Description: "The situation they are in"},
		},
		Execute: func(ctx context.Context, a capability.Args) (any, error) {
			prompt := fmt.Sprintf(`### Person
- **Traits**: %s
- **Situation**: %s

### Prediction (use this format)
- **Likely thoughts and feelings**: (two or three key points)
- **Why**: (connect the traits and the situation from a psychological point of view)`,
				a.String("recipient_description"), a.String("situation_description"))
			return c.ask(ctx, "You are an insightful analyst with a deep understanding of human behavior and psychology. Predict realistically how the person below will think and feel.", prompt)
		},
	}
}

func (c coach) adviseStyle() capability.Descriptor {
	return capability.Descriptor{
		Name:        "advise_on_communication_style",
		Description: "Checks whether a message suits a specific recipient and suggests how to improve it.",
		Params: []capability.Param{
			{Name: "recipient_description", Type: capability.String, Required: true, Description: "Who will receive the message"},
			{Name: "my_message", Type: capability.String, Required: true, Description: "The message the user wants to send"},
		},
		Execute: func(ctx context.Context, a capability.Args) (any, error) {
			prompt := fmt.Sprintf(`### Request
- **Recipient**: %s
- **Message to send**: "%s"

### Advice (use this format)
- **How it may land**: (how the recipient is likely to read the current message)
- **Suggested rewrite**: (a concrete revised message with better wording and tone)
- **Key tip**: (the single most important thing to remember here)`,
				a.String("recipient_description"), a.String("my_message"))
			return c.ask(ctx, "You are a communication coach with experience in countless conversations. Help the user deliver their message more effectively to this recipient.", prompt)
		},
	}
}

func (c coach) mbtiAdvice() capability.Descriptor {
	return capability.Descriptor{
		Name:        "get_mbti_communication_advice",
		Description: "Simulates how a person of a given MBTI type would think in a situation and gives communication advice; evaluates the user's message when one is given.",
		Params: []capability.Param{
			{Name: "mbti_type", Type: capability.String, Required: true, Description: "Four-letter MBTI type, e.g. INTJ"},
			{Name: "situation", Type: capability.String, Required: true},
			{Name: "my_message", Type: capability.String, Default: "", Description: "Optional message to evaluate"},
		},
		Execute: func(ctx context.Context, a capability.Args) (any, error) {
			return c.ask(ctx, "You are a psychology and communication expert fluent in MBTI and other personality theories.", mbtiPrompt(
				strings.ToUpper(strings.TrimSpace(a.String("mbti_type"))), a.String("situation"), a.String("my_message")))
		},
	}
}

func mbtiPrompt(mbti, situation, message string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- **MBTI type**: %s\n- **Situation**: %s\n---\n", mbti, situation)
	if strings.TrimSpace(message) != "" {
		fmt.Fprintf(&b, `This is the message I want to send this person:
- **My message**: "%s"

### Analysis (use this format)
- **Expected reaction**: (how a %s is likely to think and feel reading it)
- **Effectiveness**: (positive, negative, or open to misunderstanding)
- **Better message and tips**: (a phrasing that conveys my intent without hurting the relationship)`, message, mbti)
		return b.String()
	}
	fmt.Fprintf(&b, `### Analysis (use this format)
- **How a %s likely thinks and feels**: (their inner reasoning and emotional state)
- **Basis**: (explain using each axis: E/I, N/S, T/F, P/J)
- **Communication tips**: (practical advice for talking with this person)`, mbti)
	return b.String()
}

// refineMode maps accepted mode names, English or Korean, to a prompt.
type refineMode struct {
	role, heading string
}

var refineModes = map[string]refineMode{
	"soften": {
		role:    "You are a kind communication expert. Keep the core meaning of the text but rewrite it in a much more polite and gentle tone the reader will receive positively.",
		heading: "Softened",
	},
	"smoothen": {
		role:    "You are a professional editor. Make the sentence structure of the text more natural and logical, fixing awkward phrasing and improving flow.",
		heading: "Smoothed",
	},
	"proofread": {
		role:    "You are a meticulous proofreader. Fix every spelling, spacing and grammar error in the text. Do not change content or style.",
		heading: "Corrected",
	},
	"summarize": {
		role:    "You are an analyst who gets to the point. Summarize the most important content of the text concisely.",
		heading: "Summary",
	},
}

var refineAliases = map[string]string{
	"부드럽게": "soften",
	"매끄럽게": "smoothen",
	"오타수정": "proofread",
	"요약":   "summarize",
}

func lookupRefineMode(mode string) (refineMode, bool) {
	key := strings.ToLower(strings.TrimSpace(mode))
	if alias, ok := refineAliases[key]; ok {
		key = alias
	}
	m, ok := refineModes[key]
	return m, ok
}

func (c coach) refineText() capability.Descriptor {
	return capability.Descriptor{
		Name:        "refine_text_content",
		Description: `Refines a text in the given mode: "soften" (부드럽게), "smoothen" (매끄럽게), "proofread" (오타수정) or "summarize" (요약).`,
		Params: []capability.Param{
			{Name: "text_to_refine", Type: capability.String, Required: true},
			{Name: "refinement_mode", Type: capability.String, Required: true, Description: "soften, smoothen, proofread or summarize"},
		},
		Execute: func(ctx context.Context, a capability.Args) (any, error) {
			text := a.String("text_to_refine")
			m, ok := lookupRefineMode(a.String("refinement_mode"))
			if !ok {
				m = refineMode{
					role:    fmt.Sprintf("You are an expert at polishing writing. Revise the text for the mode %q.", a.String("refinement_mode")),
					heading: "Revised",
				}
			}
			return c.ask(ctx, m.role, fmt.Sprintf("# Original:\n%s\n\n# %s:", text, m.heading))
		},
	}
}

func (c coach) evaluateAnswer() capability.Descriptor {
	return capability.Descriptor{
		Name:        "evaluate_user_answer",
		Description: "Evaluates the user's answer to an interview question and gives constructive feedback using the STAR method.",
		Params: []capability.Param{
			{Name: "question", Type: capability.String, Required: true},
			{Name: "user_answer", Type: capability.String, Required: true},
		},
		Execute: func(ctx context.Context, a capability.Args) (any, error) {
			prompt := fmt.Sprintf(`### Interview question
%s

### User's answer
%s

### Feedback (use this format)
- **Overall**: (one or two sentences)
- **Good points**: (specific parts worth praising)
- **Areas for improvement**: (concrete advice to make the answer stronger)`,
				a.String("question"), a.String("user_answer"))
			return c.ask(ctx, "You are a kind but incisive interview coach. Judge especially whether the answer is structured along STAR (Situation, Task, Action, Result).", prompt)
		},
	}
}
