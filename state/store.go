// Package state holds the shared application state observed by the UI and
// mutated by the orchestration engine.
package state

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"mdpilot/model"
)

// Snapshot is a consistent copy of the store. Slices are owned by the caller.
type Snapshot struct {
	Files            []model.MarkdownFile
	Messages         []model.DisplayMessage
	Settings         model.Settings
	IsStreaming      bool
	StreamingContent string
	OutputFolder     string
	IncludeHistory   bool
	AutoSave         bool

	PromptQueue       []model.QueuedPrompt
	IsProcessingQueue bool
	CooldownSeconds   int

	ListItems    []model.ListItem
	ListTemplate string

	FileProgress  *model.Progress
	ListProgress  *model.Progress
	QueueProgress *model.Progress
}

// Store is the mutex-guarded application state. The zero value is not
// usable; call New.
type Store struct {
	mu sync.RWMutex
	s  Snapshot

	changes chan struct{}

	hookMu     sync.RWMutex
	onMessage  []func(model.DisplayMessage)
	onSettings []func(model.Settings)
	onClear    []func()

	now func() time.Time
}

// New returns a store initialised with settings.
func New(settings model.Settings) *Store {
	return &Store{
		s:       Snapshot{Settings: settings},
		changes: make(chan struct{}, 1),
		now:     time.Now,
	}
}

// Changes returns a channel that receives a value after one or more
// mutations. Bursts of mutations coalesce into a single notification.
func (st *Store) Changes() <-chan struct{} {
	return st.changes
}

func (st *Store) notify() {
	select {
	case st.changes <- struct{}{}:
	default:
	}
}

// update runs fn under the write lock and signals a change.
func (st *Store) update(fn func(s *Snapshot)) {
	st.mu.Lock()
	fn(&st.s)
	st.mu.Unlock()
	st.notify()
}

// OnMessage registers a hook called after every message is added.
func (st *Store) OnMessage(fn func(model.DisplayMessage)) {
	st.hookMu.Lock()
	st.onMessage = append(st.onMessage, fn)
	st.hookMu.Unlock()
}

// OnSettings registers a hook called with the settings after every change.
func (st *Store) OnSettings(fn func(model.Settings)) {
	st.hookMu.Lock()
	st.onSettings = append(st.onSettings, fn)
	st.hookMu.Unlock()
}

// OnClear registers a hook called after the conversation is cleared.
func (st *Store) OnClear(fn func()) {
	st.hookMu.Lock()
	st.onClear = append(st.onClear, fn)
	st.hookMu.Unlock()
}

func (st *Store) fireMessage(msg model.DisplayMessage) {
	st.hookMu.RLock()
	hooks := st.onMessage
	st.hookMu.RUnlock()
	for _, h := range hooks {
		h(msg)
	}
}

// Snapshot returns a copy of the whole state.
func (st *Store) Snapshot() Snapshot {
	st.mu.RLock()
	defer st.mu.RUnlock()

	out := st.s
	out.Files = append([]model.MarkdownFile(nil), st.s.Files...)
	out.Messages = append([]model.DisplayMessage(nil), st.s.Messages...)
	out.PromptQueue = append([]model.QueuedPrompt(nil), st.s.PromptQueue...)
	out.ListItems = append([]model.ListItem(nil), st.s.ListItems...)
	out.FileProgress = copyProgress(st.s.FileProgress)
	out.ListProgress = copyProgress(st.s.ListProgress)
	out.QueueProgress = copyProgress(st.s.QueueProgress)
	return out
}

func copyProgress(p *model.Progress) *model.Progress {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// Files

// AddFiles appends files whose path is not already loaded.
func (st *Store) AddFiles(files []model.MarkdownFile) {
	st.update(func(s *Snapshot) {
		seen := make(map[string]bool, len(s.Files))
		for _, f := range s.Files {
			seen[f.Path] = true
		}
		for _, f := range files {
			if seen[f.Path] {
				continue
			}
			seen[f.Path] = true
			s.Files = append(s.Files, f)
		}
	})
}

// RemoveFile removes the file with path.
func (st *Store) RemoveFile(path string) {
	st.update(func(s *Snapshot) {
		out := s.Files[:0:0]
		for _, f := range s.Files {
			if f.Path != path {
				out = append(out, f)
			}
		}
		s.Files = out
	})
}

// ClearFiles removes all loaded files.
func (st *Store) ClearFiles() {
	st.update(func(s *Snapshot) { s.Files = nil })
}

// Files returns the loaded files.
func (st *Store) Files() []model.MarkdownFile {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return append([]model.MarkdownFile(nil), st.s.Files...)
}

// Messages

// AddMessage appends msg, filling in ID and Timestamp when empty.
func (st *Store) AddMessage(msg model.DisplayMessage) model.DisplayMessage {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = st.now()
	}
	st.update(func(s *Snapshot) { s.Messages = append(s.Messages, msg) })
	st.fireMessage(msg)
	return msg
}

// AddUserMessage appends a user message tagged with assoc.
func (st *Store) AddUserMessage(content string, assoc model.Association) model.DisplayMessage {
	return st.AddMessage(model.DisplayMessage{
		Role:               model.RoleUser,
		Content:            content,
		AssociatedFile:     assoc.File,
		AssociatedListItem: assoc.ListItem,
	})
}

// RestoreMessages appends previously persisted messages without firing
// message hooks.
func (st *Store) RestoreMessages(msgs []model.DisplayMessage) {
	st.update(func(s *Snapshot) { s.Messages = append(s.Messages, msgs...) })
}

// ClearMessages empties the conversation.
func (st *Store) ClearMessages() {
	st.update(func(s *Snapshot) { s.Messages = nil })

	st.hookMu.RLock()
	hooks := st.onClear
	st.hookMu.RUnlock()
	for _, h := range hooks {
		h()
	}
}

// Messages returns the whole conversation.
func (st *Store) Messages() []model.DisplayMessage {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return append([]model.DisplayMessage(nil), st.s.Messages...)
}

// MessagesForFile returns the messages associated with the file at path.
func (st *Store) MessagesForFile(path string) []model.DisplayMessage {
	return st.filterMessages(func(m model.DisplayMessage) bool { return m.AssociatedFile == path })
}

// MessagesForListItem returns the messages associated with list item id.
func (st *Store) MessagesForListItem(id string) []model.DisplayMessage {
	return st.filterMessages(func(m model.DisplayMessage) bool { return m.AssociatedListItem == id })
}

func (st *Store) filterMessages(keep func(model.DisplayMessage) bool) []model.DisplayMessage {
	st.mu.RLock()
	defer st.mu.RUnlock()
	var out []model.DisplayMessage
	for _, m := range st.s.Messages {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out
}

// Settings

// Settings returns the current settings.
func (st *Store) Settings() model.Settings {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.s.Settings
}

// SetSettings merges patch into the settings and fires settings hooks.
func (st *Store) SetSettings(patch model.SettingsPatch) model.Settings {
	var settings model.Settings
	st.update(func(s *Snapshot) {
		s.Settings = patch.Apply(s.Settings)
		settings = s.Settings
	})

	st.hookMu.RLock()
	hooks := st.onSettings
	st.hookMu.RUnlock()
	for _, h := range hooks {
		h(settings)
	}
	return settings
}

// Streaming

// BeginStreaming clears the streaming buffer and marks a session active.
func (st *Store) BeginStreaming() {
	st.update(func(s *Snapshot) {
		s.StreamingContent = ""
		s.IsStreaming = true
	})
}

// AppendStreamToken appends text to the streaming buffer.
func (st *Store) AppendStreamToken(text string) {
	if text == "" {
		return
	}
	st.update(func(s *Snapshot) { s.StreamingContent += text })
}

// StreamingContent returns the text streamed so far.
func (st *Store) StreamingContent() string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.s.StreamingContent
}

// ResetStreamingContent clears the streaming buffer.
func (st *Store) ResetStreamingContent() {
	st.update(func(s *Snapshot) { s.StreamingContent = "" })
}

// SetStreaming sets the streaming flag.
func (st *Store) SetStreaming(v bool) {
	st.update(func(s *Snapshot) { s.IsStreaming = v })
}

// FinalizeAssistantMessage appends an assistant message with content tagged
// with assoc, clears the streaming buffer and ends streaming in one step.
func (st *Store) FinalizeAssistantMessage(content string, assoc model.Association) model.DisplayMessage {
	msg := model.DisplayMessage{
		ID:                 uuid.NewString(),
		Role:               model.RoleAssistant,
		Content:            content,
		Timestamp:          st.now(),
		AssociatedFile:     assoc.File,
		AssociatedListItem: assoc.ListItem,
	}
	st.update(func(s *Snapshot) {
		s.Messages = append(s.Messages, msg)
		s.StreamingContent = ""
		s.IsStreaming = false
	})
	st.fireMessage(msg)
	return msg
}

// IsStreaming reports whether a session is active.
func (st *Store) IsStreaming() bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.s.IsStreaming
}

// Preferences

// SetOutputFolder sets the auto-save destination.
func (st *Store) SetOutputFolder(path string) {
	st.update(func(s *Snapshot) { s.OutputFolder = path })
}

// SetIncludeHistory sets the history toggle used by Send and new queue entries.
func (st *Store) SetIncludeHistory(v bool) {
	st.update(func(s *Snapshot) { s.IncludeHistory = v })
}

// SetAutoSave sets the auto-save toggle.
func (st *Store) SetAutoSave(v bool) {
	st.update(func(s *Snapshot) { s.AutoSave = v })
}

// SetListTemplate sets the template applied to every list item.
func (st *Store) SetListTemplate(v string) {
	st.update(func(s *Snapshot) { s.ListTemplate = v })
}

// Queue

// AddToQueue appends a prompt to the queue. Blank commands are ignored.
func (st *Store) AddToQueue(command string, includeHistory bool) (model.QueuedPrompt, bool) {
	command = strings.TrimSpace(command)
	if command == "" {
		return model.QueuedPrompt{}, false
	}
	p := model.QueuedPrompt{ID: uuid.NewString(), Command: command, IncludeHistory: includeHistory}
	st.update(func(s *Snapshot) { s.PromptQueue = append(s.PromptQueue, p) })
	return p, true
}

// RemoveFromQueue removes the prompt with id.
func (st *Store) RemoveFromQueue(id string) {
	st.update(func(s *Snapshot) {
		out := s.PromptQueue[:0:0]
		for _, p := range s.PromptQueue {
			if p.ID != id {
				out = append(out, p)
			}
		}
		s.PromptQueue = out
	})
}

// ClearQueue empties the queue.
func (st *Store) ClearQueue() {
	st.update(func(s *Snapshot) { s.PromptQueue = nil })
}

// Queue returns the queued prompts.
func (st *Store) Queue() []model.QueuedPrompt {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return append([]model.QueuedPrompt(nil), st.s.PromptQueue...)
}

// SetProcessingQueue sets the batch-running flag.
func (st *Store) SetProcessingQueue(v bool) {
	st.update(func(s *Snapshot) { s.IsProcessingQueue = v })
}

// SetCooldownSeconds publishes the remaining cooldown.
func (st *Store) SetCooldownSeconds(v int) {
	st.update(func(s *Snapshot) { s.CooldownSeconds = v })
}

// SetFileProgress sets or clears (nil) the per-file batch progress.
func (st *Store) SetFileProgress(p *model.Progress) {
	p = copyProgress(p)
	st.update(func(s *Snapshot) { s.FileProgress = p })
}

// SetListProgress sets or clears (nil) the list batch progress.
func (st *Store) SetListProgress(p *model.Progress) {
	p = copyProgress(p)
	st.update(func(s *Snapshot) { s.ListProgress = p })
}

// SetQueueProgress sets or clears (nil) the queue progress.
func (st *Store) SetQueueProgress(p *model.Progress) {
	p = copyProgress(p)
	st.update(func(s *Snapshot) { s.QueueProgress = p })
}

// ClearBatch clears all progress, the cooldown and the processing flag.
func (st *Store) ClearBatch() {
	st.update(func(s *Snapshot) {
		s.FileProgress = nil
		s.ListProgress = nil
		s.QueueProgress = nil
		s.CooldownSeconds = 0
		s.IsProcessingQueue = false
	})
}

// List

// AddListItem appends one item. Blank content is ignored.
func (st *Store) AddListItem(content string) (model.ListItem, bool) {
	content = strings.TrimSpace(content)
	if content == "" {
		return model.ListItem{}, false
	}
	item := model.ListItem{ID: uuid.NewString(), Content: content}
	st.update(func(s *Snapshot) { s.ListItems = append(s.ListItems, item) })
	return item, true
}

// AddListItems appends every non-blank entry of contents, trimmed.
func (st *Store) AddListItems(contents []string) int {
	items := newItems(contents)
	if len(items) == 0 {
		return 0
	}
	st.update(func(s *Snapshot) { s.ListItems = append(s.ListItems, items...) })
	return len(items)
}

// EditListItem replaces the content of item id.
func (st *Store) EditListItem(id, content string) bool {
	content = strings.TrimSpace(content)
	if content == "" {
		return false
	}
	found := false
	st.update(func(s *Snapshot) {
		for i := range s.ListItems {
			if s.ListItems[i].ID == id {
				s.ListItems[i].Content = content
				found = true
				return
			}
		}
	})
	return found
}

// RemoveListItem removes item id.
func (st *Store) RemoveListItem(id string) {
	st.update(func(s *Snapshot) {
		out := s.ListItems[:0:0]
		for _, it := range s.ListItems {
			if it.ID != id {
				out = append(out, it)
			}
		}
		s.ListItems = out
	})
}

// ClearListItems empties the list.
func (st *Store) ClearListItems() {
	st.update(func(s *Snapshot) { s.ListItems = nil })
}

// ReorderListItems replaces the list with items.
func (st *Store) ReorderListItems(items []model.ListItem) {
	items = append([]model.ListItem(nil), items...)
	st.update(func(s *Snapshot) { s.ListItems = items })
}

// MoveListItem moves item id by delta positions (-1 up, +1 down). It reports
// false when the item is missing or already at the edge.
func (st *Store) MoveListItem(id string, delta int) bool {
	moved := false
	st.update(func(s *Snapshot) {
		for i := range s.ListItems {
			if s.ListItems[i].ID != id {
				continue
			}
			j := i + delta
			if j < 0 || j >= len(s.ListItems) {
				return
			}
			s.ListItems[i], s.ListItems[j] = s.ListItems[j], s.ListItems[i]
			moved = true
			return
		}
	})
	return moved
}

// ReplaceListFromText replaces the whole list with one item per non-blank
// line of text. Lines are trimmed.
func (st *Store) ReplaceListFromText(text string) int {
	items := newItems(strings.Split(text, "\n"))
	st.update(func(s *Snapshot) { s.ListItems = items })
	return len(items)
}

// ListText renders the list as one item per line, the inverse of
// ReplaceListFromText.
func (st *Store) ListText() string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	lines := make([]string, len(st.s.ListItems))
	for i, it := range st.s.ListItems {
		lines[i] = it.Content
	}
	return strings.Join(lines, "\n")
}

// ListItems returns the list.
func (st *Store) ListItems() []model.ListItem {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return append([]model.ListItem(nil), st.s.ListItems...)
}

func newItems(contents []string) []model.ListItem {
	var items []model.ListItem
	for _, c := range contents {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		items = append(items, model.ListItem{ID: uuid.NewString(), Content: c})
	}
	return items
}
