// Package prompt renders role-play prompts for the inference model and parses
// its action-formatted output back into chat replies.
package prompt

import (
	"fmt"
	"strings"

	"github.com/myrjola/sotopia-chat/internal/models"
	"github.com/myrjola/sotopia-chat/internal/profiles"
)

// Turn is one completed exchange: what the visitor said and what the
// AI-played agent answered.
type Turn struct {
	Message string
	Reply   string
}

// Composer renders prompts deterministically: the same inputs always produce
// the same bytes.
type Composer struct {
	// MaxChars bounds the rendered prompt length. Zero or negative disables
	// the bound.
	MaxChars int
}

// Starter renders the role-conditioning preamble: who the model plays, the
// scenario, and both participants with their backgrounds, personalities, and
// goals. It ends with "Conversation Starts:" so that turn blocks can be
// appended directly.
//
// The wording, including its grammatical quirks, is the format the models were
// tuned on and must not be edited casually.
func (c Composer) Starter(userAgent, botAgent models.AgentProfile, environment models.EnvironmentProfile) string {
	name := botAgent.Name

	var b strings.Builder
	fmt.Fprintf(&b, "Imagine you are %s, your task is to act/speak as %s would, keeping in mind %s's social goal.\n",
		name, name, name)
	fmt.Fprintf(&b, "You can find %s's background and goal in the 'Here is the context of the interaction' field.\n",
		name)
	fmt.Fprintf(&b, "Note that %s's secret and goal is only visible to you.\n", name)
	fmt.Fprintf(&b, "You should try your best to achieve %s's goal in a way that align with their character traits.\n",
		name)
	b.WriteString("Additionally, maintaining the conversation's naturalness and realism is essential " +
		"(e.g., do not repeat what other people has already said before).\n")
	b.WriteString("\nHere is the context of this interaction:\n")
	fmt.Fprintf(&b, "Scenario: %s\n", environment.Scenario)
	fmt.Fprintf(&b, "Participants: %s and %s\n", userAgent.Name, botAgent.Name)
	fmt.Fprintf(&b, "%s's background: %s %s ", userAgent.Name, userAgent.Background, userAgent.Personality)
	fmt.Fprintf(&b, "%s's goal: %s\n", userAgent.Name, environment.AgentGoals[profiles.RoleUser])
	fmt.Fprintf(&b, "%s's background: %s %s ", botAgent.Name, botAgent.Background, botAgent.Personality)
	fmt.Fprintf(&b, "%s's goal: %s\n", botAgent.Name, environment.AgentGoals[profiles.RoleBot])
	b.WriteString("Conversation Starts:")
	return b.String()
}

// Build renders the complete prompt for the next reply: the preamble (the
// given instructions, or Starter when empty), the conversation so far as turn
// blocks, the visitor's current message, and a marker for the turn the model
// must produce. Visitor turns carry even numbers and model turns odd numbers.
//
// When MaxChars is positive and the prompt exceeds it, whole exchanges are
// dropped oldest first until the prompt fits. The remaining turns keep their
// original numbers so the model still sees how deep the conversation is. The
// preamble, the current message, and the turn marker are never dropped, even
// if they alone exceed the budget.
func (c Composer) Build(
	message string,
	history []Turn,
	instructions string,
	userAgent, botAgent models.AgentProfile,
	environment models.EnvironmentProfile,
) string {
	if instructions == "" {
		instructions = c.Starter(userAgent, botAgent, environment)
	}

	render := func(oldestKept int) string {
		var b strings.Builder
		b.WriteString(instructions)
		for i := oldestKept; i < len(history); i++ {
			writeTurn(&b, 2*i, userAgent.Name, history[i].Message)
			writeTurn(&b, 2*i+1, botAgent.Name, history[i].Reply)
		}
		writeTurn(&b, 2*len(history), userAgent.Name, message)
		fmt.Fprintf(&b, "\n\nYou are at Turn #%d.", 2*len(history)+1)
		return b.String()
	}

	rendered := render(0)
	if c.MaxChars <= 0 {
		return rendered
	}
	for oldestKept := 1; len(rendered) > c.MaxChars && oldestKept <= len(history); oldestKept++ {
		rendered = render(oldestKept)
	}
	return rendered
}

func writeTurn(b *strings.Builder, number int, speaker, text string) {
	fmt.Fprintf(b, "\n\nTurn #%d: %s said: \"%s\"", number, speaker, text)
}
