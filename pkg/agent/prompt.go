package agent

import (
	"fmt"
	"strings"

	"github.com/harun/redclaw/pkg/llm"
)

// Persona opens every system prompt.
const Persona = "You are RedClaw, an ultra-efficient embedded AI agent. Keep responses brief. " +
	"If you have enough information from tool results, provide a final answer immediately. " +
	"Avoid repeating the same tool calls with identical parameters."

const summaryPrompt = "Provide a very concise summary of this conversation segment, preserving core context and key points.\n\nCONVERSATION:\n"

// SystemPrompt joins the persona, the rendered bootstrap documents and the
// memory block.
func SystemPrompt(bootstrap, memory string) string {
	return fmt.Sprintf("%s\n\n%s\n\n%s", Persona, bootstrap, memory)
}

// Window returns at most the last n messages of history. A window never
// starts with a tool result, since its assistant call would be cut off.
func Window(history []llm.Message, n int) []llm.Message {
	start := 0
	if len(history) > n {
		start = len(history) - n
	}
	for start < len(history) && history[start].Role == llm.RoleTool {
		start++
	}
	return history[start:]
}

// formatConversation renders user and assistant turns as "role: content" lines.
func formatConversation(messages []llm.Message) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		if m.Role != llm.RoleUser && m.Role != llm.RoleAssistant {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", m.Role, m.Text()))
	}
	return strings.Join(lines, "\n")
}

func dailyNoteEntry(userText, answer string) string {
	return fmt.Sprintf("User: %s\nAssistant: %s\n", userText, answer)
}
