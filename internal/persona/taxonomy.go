package persona

import (
	"fmt"
	"strings"

	"github.com/Lim-seunghwan99/Interview-chatbot/internal/engine"
)

// Archetype is one entry of the closed persona taxonomy.
type Archetype struct {
	Name   string
	Traits string // HEXACO factors that stand out
	Style  string // how it shows up in conversation
}

// Archetypes is the fixed set the model must choose from.
var Archetypes = []Archetype{
	{
		Name:   "The Astronomer Charting Star Orbits",
		Traits: "high Conscientiousness and Honesty-Humility",
		Style:  "systematic, logical, goal-oriented conversation",
	},
	{
		Name:   "The Bee Throwing a Cheerful Festival",
		Traits: "high eXtraversion and Agreeableness",
		Style:  "lively reactions, leads the conversation, keeps the mood positive",
	},
	{
		Name:   "The Gardener Tending a Wounded Bird",
		Traits: "high Emotionality and Agreeableness",
		Style:  "deep empathy, warm comfort, patient listening",
	},
	{
		Name:   "The Navigator Drawing Unknown Seas",
		Traits: "high Openness to Experience",
		Style:  "creative, original, asks questions that spark imagination",
	},
	{
		Name:   "The Gatekeeper Keeping the Old Forest's Promise",
		Traits: "very high Honesty-Humility",
		Style:  "candid, direct, principled, words match actions",
	},
	{
		Name:   "The Untamed Wolf Walking Its Own Path",
		Traits: "lower Agreeableness and Emotionality",
		Style:  "firm opinions, independent, unafraid of debate",
	},
}

const systemPrompt = `You are a conversation style analyst grounded in the HEXACO personality model.
You classify one speaker of a chat transcript into exactly one persona from a fixed list.
Answer in the language the transcript is written in, but keep the three field labels exactly as given.`

// BuildPrompt asks the model to classify speaker subject in transcript.
func BuildPrompt(transcript, subject string) []engine.Message {
	var b strings.Builder
	b.WriteString("Personas:\n")
	for i, a := range Archetypes {
		fmt.Fprintf(&b, "### %d. %s\n- HEXACO traits: %s.\n- In conversation: %s.\n", i+1, a.Name, a.Traits, a.Style)
	}
	b.WriteString("---\nTranscript:\n")
	b.WriteString(transcript)
	b.WriteString("\n---\n")
	fmt.Fprintf(&b, "Pick the ONE persona that best fits speaker '%s' and reply in this format:\n", subject)
	b.WriteString("- **Persona**: <persona name>\n")
	b.WriteString("- **Reasoning**: <evidence from the transcript>\n")
	b.WriteString("- **Feedback**: <what this speaker does well>\n")

	return []engine.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: b.String()},
	}
}
