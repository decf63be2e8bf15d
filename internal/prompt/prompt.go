// Package prompt assembles retrieved evidence and conversation history into
// the final prompt sent to the model.
package prompt

import (
	"strings"

	"secondbrain/internal/conversation"
	"secondbrain/internal/knowledge"
	"secondbrain/internal/persona"
)

// NoneSentinel is the literal placed in the prompt when there is no context
// or no history. Persona templates key off it: with context "None" and
// history "None", the expected answer is the persona's fallback sentence.
// It is a contract with the templates, not cosmetics.
const NoneSentinel = "None"

// evidenceSeparator joins deduplicated evidence chunks.
const evidenceSeparator = "\n\n"

// Assemble deduplicates evidence by exact content match, preserving
// first-seen order, and joins the survivors with a blank line. Empty input
// yields NoneSentinel.
func Assemble(evidence []knowledge.Evidence) string {
	if len(evidence) == 0 {
		return NoneSentinel
	}

	seen := make(map[string]struct{}, len(evidence))
	parts := make([]string, 0, len(evidence))
	for _, e := range evidence {
		if _, dup := seen[e.Content]; dup {
			continue
		}
		seen[e.Content] = struct{}{}
		parts = append(parts, e.Content)
	}
	return strings.Join(parts, evidenceSeparator)
}

// FormatHistory renders history as a transcript of alternating
// "User: ..." / "Assistant: ..." lines in chronological order, or
// NoneSentinel when the history is empty. Messages with an unexpected role
// are skipped rather than rendered under a wrong label.
func FormatHistory(history []conversation.Message) string {
	if len(history) == 0 {
		return NoneSentinel
	}

	lines := make([]string, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case conversation.RoleUser:
			lines = append(lines, "User: "+m.Content)
		case conversation.RoleAssistant:
			lines = append(lines, "Assistant: "+m.Content)
		}
	}
	if len(lines) == 0 {
		return NoneSentinel
	}
	return strings.Join(lines, "\n")
}

// Build merges the persona template, assembled context, history transcript
// and the new query into the final prompt text. The template is validated
// before substitution; an unrecognized placeholder fails with
// persona.ErrInvalidTemplate.
func Build(p persona.Persona, contextText string, history []conversation.Message, query string) (string, error) {
	if err := persona.ValidateTemplate(p.Template); err != nil {
		return "", err
	}
	if contextText == "" {
		contextText = NoneSentinel
	}

	replacer := strings.NewReplacer(
		"{"+persona.PlaceholderContext+"}", contextText,
		"{"+persona.PlaceholderHistory+"}", FormatHistory(history),
		"{"+persona.PlaceholderQuery+"}", query,
	)
	return replacer.Replace(p.Template), nil
}
