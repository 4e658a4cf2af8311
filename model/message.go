package model

import "time"

// Role values used by DisplayMessage and ChatMessage.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// MarkdownFile is a document loaded from disk. It never changes after loading.
type MarkdownFile struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Content string `json:"content"`
}

// DisplayMessage is a message in the visible conversation timeline.
//
// AssociatedFile holds the path of the file whose unit produced the message,
// AssociatedListItem the id of the list item. Both are empty for unscoped
// messages.
type DisplayMessage struct {
	ID                 string    `json:"id"`
	Role               string    `json:"role"`
	Content            string    `json:"content"`
	Timestamp          time.Time `json:"timestamp"`
	AssociatedFile     string    `json:"associated_file,omitempty"`
	AssociatedListItem string    `json:"associated_list_item,omitempty"`
}

// ChatMessage is one entry of the message list sent to a completion API.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// QueuedPrompt is a prompt waiting in the user-managed queue.
type QueuedPrompt struct {
	ID             string `json:"id"`
	Command        string `json:"command"`
	IncludeHistory bool   `json:"include_history"`
}

// ListItem is one entry of the list processed in list mode.
type ListItem struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// Progress describes the position of a running batch.
type Progress struct {
	Current int
	Total   int
	Label   string
}

// Association ties a produced message to the context that produced it.
type Association struct {
	File     string
	ListItem string
}

// IsZero reports whether the association is unscoped.
func (a Association) IsZero() bool {
	return a.File == "" && a.ListItem == ""
}
