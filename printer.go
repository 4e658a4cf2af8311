package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"mdpilot/model"
	"mdpilot/state"
)

// consoleNotifier writes notifications as single lines.
type consoleNotifier struct {
	mu  sync.Mutex
	out io.Writer
}

func (n *consoleNotifier) Success(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.out, "✓ %s\n", msg)
}

func (n *consoleNotifier) Error(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.out, "✗ %s\n", msg)
}

// streamPrinter mirrors the store to a terminal: prompts go to info,
// streamed answers to out as they arrive.
type streamPrinter struct {
	store *state.Store
	out   io.Writer
	info  io.Writer

	mu        sync.Mutex
	shown     string
	finalized int
}

func newStreamPrinter(store *state.Store, out, info io.Writer) *streamPrinter {
	p := &streamPrinter{store: store, out: out, info: info}
	for _, m := range store.Messages() {
		if m.Role == model.RoleAssistant {
			p.finalized++
		}
	}
	store.OnMessage(p.onMessage)
	return p
}

// Run prints streamed content until done is closed.
func (p *streamPrinter) Run(done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-p.store.Changes():
			p.onChange(p.store.Snapshot())
		}
	}
}

func (p *streamPrinter) onChange(snap state.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// A snapshot taken before the last answer was finalized is stale
	if countAssistant(snap.Messages) != p.finalized {
		return
	}
	content := snap.StreamingContent
	if len(content) > len(p.shown) && strings.HasPrefix(content, p.shown) {
		io.WriteString(p.out, content[len(p.shown):])
		p.shown = content
	}
}

func (p *streamPrinter) onMessage(msg model.DisplayMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if msg.Role == model.RoleUser {
		fmt.Fprintf(p.info, "\n%s> %s\n\n", scopeOf(msg), firstLine(msg.Content))
		p.shown = ""
		return
	}

	p.finalized++
	rest, ok := strings.CutPrefix(msg.Content, p.shown)
	if !ok {
		io.WriteString(p.out, "\n")
		rest = msg.Content
	}
	io.WriteString(p.out, rest)
	if !strings.HasSuffix(msg.Content, "\n") {
		io.WriteString(p.out, "\n")
	}
	p.shown = ""
}

func countAssistant(msgs []model.DisplayMessage) int {
	n := 0
	for _, m := range msgs {
		if m.Role == model.RoleAssistant {
			n++
		}
	}
	return n
}

func scopeOf(msg model.DisplayMessage) string {
	if msg.AssociatedFile != "" {
		return "[" + msg.AssociatedFile + "] "
	}
	return ""
}

func firstLine(s string) string {
	line, _, more := strings.Cut(strings.TrimSpace(s), "\n")
	if more {
		return line + " …"
	}
	return line
}
