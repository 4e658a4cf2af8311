package testutil

import (
	"fmt"
	"time"

	"mdpilot/model"
)

// MarkdownFiles returns one small document per name.
func MarkdownFiles(names ...string) []model.MarkdownFile {
	files := make([]model.MarkdownFile, len(names))
	for i, name := range names {
		files[i] = model.MarkdownFile{
			Name:    name,
			Path:    "/docs/" + name,
			Content: fmt.Sprintf("# %s\n\nBody of %s.\n", name, name),
		}
	}
	return files
}

// Conversation returns a question/answer pair per entry of pairs, tagged
// with assoc.
func Conversation(assoc model.Association, pairs ...[2]string) []model.DisplayMessage {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var msgs []model.DisplayMessage
	for i, p := range pairs {
		for j, role := range []string{model.RoleUser, model.RoleAssistant} {
			msgs = append(msgs, model.DisplayMessage{
				ID:                 fmt.Sprintf("msg-%d-%d", i, j),
				Role:               role,
				Content:            p[j],
				Timestamp:          base.Add(time.Duration(2*i+j) * time.Minute),
				AssociatedFile:     assoc.File,
				AssociatedListItem: assoc.ListItem,
			})
		}
	}
	return msgs
}
