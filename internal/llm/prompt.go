package llm

import "strings"

// DefaultSystemPrompt frames every query as protocol analysis with JSON-only answers.
const DefaultSystemPrompt = "You are a protocol analyzer that helps extract structured information from clinical trial protocols. " +
	"Always return valid JSON when requested, with no explanations or apologies."

// BuildPrompt joins an instruction block and the document excerpt it applies to.
func BuildPrompt(instructions, content string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(instructions))
	b.WriteString("\n\nProtocol text:\n")
	b.WriteString(content)
	return b.String()
}
