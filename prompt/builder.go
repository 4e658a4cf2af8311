// Package prompt assembles the message lists sent to the completion API.
package prompt

import (
	"strings"

	"mdpilot/model"
)

// ItemPlaceholder is replaced by the list item in a list template.
const ItemPlaceholder = "{{item}}"

// Build assembles the messages for one call: the system prompt for mode,
// complete user/assistant history pairs when includeHistory is set, and the
// user turn. Files are attached only in files mode.
func Build(command string, files []model.MarkdownFile, history []model.DisplayMessage, includeHistory bool, mode model.Mode) []model.ChatMessage {
	messages := []model.ChatMessage{
		{Role: model.RoleSystem, Content: SystemPrompt(mode)},
	}

	if includeHistory && len(history) > 0 {
		messages = append(messages, HistoryPairs(history)...)
	}

	userContent := command
	if mode == model.ModeFiles && len(files) > 0 {
		userContent = command + "\n\n## Attached Markdown Files:" + fileManifest(files)
	}

	messages = append(messages, model.ChatMessage{Role: model.RoleUser, Content: userContent})
	return messages
}

// HistoryPairs keeps only user messages immediately followed by an assistant
// message. Everything else is dropped so roles always alternate.
func HistoryPairs(history []model.DisplayMessage) []model.ChatMessage {
	var out []model.ChatMessage
	for i := 0; i+1 < len(history); i++ {
		msg, next := history[i], history[i+1]
		if msg.Role == model.RoleUser && next.Role == model.RoleAssistant {
			out = append(out,
				model.ChatMessage{Role: model.RoleUser, Content: msg.Content},
				model.ChatMessage{Role: model.RoleAssistant, Content: next.Content},
			)
			i++
		}
	}
	return out
}

func fileManifest(files []model.MarkdownFile) string {
	var sb strings.Builder
	for _, f := range files {
		sb.WriteString("\n---\n### File: ")
		sb.WriteString(f.Name)
		sb.WriteString("\n```markdown\n")
		sb.WriteString(f.Content)
		sb.WriteString("\n```\n")
	}
	return sb.String()
}

// ApplyTemplate builds the prompt for one list item.
func ApplyTemplate(template, item string) string {
	template = strings.TrimSpace(template)
	switch {
	case template == "":
		return item
	case strings.Contains(template, ItemPlaceholder):
		return strings.ReplaceAll(template, ItemPlaceholder, item)
	default:
		return template + "\n\n" + item
	}
}

// Stats returns the total characters of messages and a rough token estimate.
func Stats(messages []model.ChatMessage) (chars, tokens int) {
	for _, m := range messages {
		chars += len(m.Content)
	}
	return chars, (chars + 3) / 4
}
