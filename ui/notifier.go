package ui

import (
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"mdpilot/config"
	"mdpilot/model"
)

// Notice is a transient message shown above the input.
type Notice struct {
	Text    string
	IsError bool
	At      time.Time
}

// ChannelNotifier delivers notifications to the UI. Sends never block; when
// the buffer is full the notice is dropped and logged.
type ChannelNotifier struct {
	ch      chan Notice
	dropped atomic.Int64
}

var _ model.Notifier = (*ChannelNotifier)(nil)

// NewChannelNotifier returns a notifier buffering up to size notices.
func NewChannelNotifier(size int) *ChannelNotifier {
	if size < 1 {
		size = 1
	}
	return &ChannelNotifier{ch: make(chan Notice, size)}
}

func (n *ChannelNotifier) Success(msg string) { n.push(msg, false) }

func (n *ChannelNotifier) Error(msg string) { n.push(msg, true) }

func (n *ChannelNotifier) push(msg string, isErr bool) {
	select {
	case n.ch <- Notice{Text: msg, IsError: isErr, At: time.Now()}:
	default:
		total := n.dropped.Add(1)
		if config.DebugLog != nil {
			config.DebugLog.Warnw("notice dropped, buffer full",
				"text", msg, "error", isErr, "dropped", total)
		}
	}
}

// Dropped reports how many notices did not fit the buffer.
func (n *ChannelNotifier) Dropped() int64 {
	return n.dropped.Load()
}

// C returns the receive side of the notifier.
func (n *ChannelNotifier) C() <-chan Notice {
	return n.ch
}

// waitForNotice blocks until the next notice arrives.
func waitForNotice(ch <-chan Notice) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		notice, ok := <-ch
		if !ok {
			return nil
		}
		return noticeMsg{notice: notice}
	}
}

// waitForChange blocks until the store signals a mutation.
func waitForChange(ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return storeChangedMsg{}
	}
}
