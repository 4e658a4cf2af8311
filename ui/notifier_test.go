package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"mdpilot/config"
)

func TestChannelNotifierDropsWhenFull(t *testing.T) {
	n := NewChannelNotifier(2)
	n.Success("one")
	n.Error("two")
	n.Success("three")

	first := <-n.C()
	second := <-n.C()
	assert.Equal(t, "one", first.Text)
	assert.False(t, first.IsError)
	assert.Equal(t, "two", second.Text)
	assert.True(t, second.IsError)

	select {
	case extra := <-n.C():
		t.Fatalf("unexpected notice %q", extra.Text)
	default:
	}
	assert.Equal(t, int64(1), n.Dropped())
}

func TestChannelNotifierLogsDroppedNotices(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	prev := config.DebugLog
	config.DebugLog = zap.New(core).Sugar()
	t.Cleanup(func() { config.DebugLog = prev })

	n := NewChannelNotifier(1)
	n.Success("Saved /out/a.md")
	n.Error("Failed to save b.md")

	entries := logs.FilterMessage("notice dropped, buffer full").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "Failed to save b.md", fields["text"])
	assert.Equal(t, true, fields["error"])
	assert.Equal(t, int64(1), fields["dropped"])
}

func TestWaitForNotice(t *testing.T) {
	n := NewChannelNotifier(1)
	n.Error("boom")

	msg := waitForNotice(n.C())()
	nm, ok := msg.(noticeMsg)
	require.True(t, ok)
	assert.Equal(t, "boom", nm.notice.Text)
	assert.Nil(t, waitForNotice(nil))
}

func TestWaitForChange(t *testing.T) {
	ch := make(chan struct{}, 1)
	ch <- struct{}{}
	assert.IsType(t, storeChangedMsg{}, waitForChange(ch)())
}
