package ui

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	markdown "github.com/MichaelMure/go-term-markdown"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	gomarkdown "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/parser"
	"github.com/mattn/go-runewidth"

	"mdpilot/config"
	"mdpilot/fences"
	"mdpilot/i18n"
	"mdpilot/model"
	"mdpilot/state"
)

var (
	inlineCodeRegex = regexp.MustCompile(`(?s)\x1b\[44;3m(.*?)\x1b\[0m`)
	mdLinkRegex     = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^\)]+)\)`)
)

const noticeTTL = 5 * time.Second

func (a *AppView) updateViewportContent(gotoBottom bool) {
	if len(a.snap.Messages) == 0 && !a.snap.IsStreaming {
		a.viewport.SetContent(DimStyle.Render(a.t(i18n.EmptyConversation)))
		return
	}

	var content strings.Builder

	for _, msg := range a.snap.Messages {
		timestamp := DimStyle.Render(msg.Timestamp.Format("[15:04]"))
		scope := scopeLabel(msg, a.snap)

		if msg.Role == model.RoleUser {
			content.WriteString(formatUserMessage(timestamp, UserStyle.Render("You")+scope, msg.Content))
			continue
		}

		body := fences.Unwrap(msg.Content)
		if r, ok := a.rendered[msg.ID]; ok && r.width == a.width {
			body = r.text
		}
		fmt.Fprintf(&content, "%s %s%s\n%s\n\n", timestamp, AssistantStyle.Render("Assistant"), scope, body)
	}

	if a.snap.IsStreaming {
		timestamp := DimStyle.Render(time.Now().Format("[15:04]"))
		streamContent := a.spinner.View()
		if a.snap.StreamingContent != "" {
			streamContent = fences.Unwrap(a.snap.StreamingContent) + "▋"
		}
		fmt.Fprintf(&content, "%s %s\n%s\n\n", timestamp, AssistantStyle.Render("Assistant"), streamContent)
	}

	a.viewport.SetContent(content.String())
	if gotoBottom {
		a.viewport.GotoBottom()
	}
}

// scopeLabel names the file or list item a message belongs to.
func scopeLabel(msg model.DisplayMessage, snap state.Snapshot) string {
	switch {
	case msg.AssociatedFile != "":
		return DimStyle.Render(" · " + baseName(msg.AssociatedFile))
	case msg.AssociatedListItem != "":
		for i, item := range snap.ListItems {
			if item.ID == msg.AssociatedListItem {
				return DimStyle.Render(fmt.Sprintf(" · #%d %s", i+1, truncate(item.Content, 30)))
			}
		}
		return DimStyle.Render(" · list")
	}
	return ""
}

func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

func formatUserMessage(timestamp, role, content string) string {
	greenBold := "\x1b[32;1m"
	reset := "\x1b[0m"
	bar := greenBold + "┃" + reset

	var result strings.Builder
	fmt.Fprintf(&result, "%s %s %s\n", bar, timestamp, role)
	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(&result, "%s %s\n", bar, line)
	}
	result.WriteString("\n")
	return result.String()
}

// renderPending returns render commands for assistant messages that have no
// cached rendering at the current width.
func (a AppView) renderPending() []tea.Cmd {
	var cmds []tea.Cmd
	for _, msg := range a.snap.Messages {
		if msg.Role != model.RoleAssistant {
			continue
		}
		if r, ok := a.rendered[msg.ID]; ok && r.width == a.width {
			continue
		}
		cmds = append(cmds, renderMarkdownAsync(msg.ID, msg.Content, a.width))
	}
	return cmds
}

func renderMarkdownAsync(id, content string, width int) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		rendered := renderMarkdown(content, width)
		if config.DebugLog != nil {
			config.DebugLog.Debugf("rendered message %s (%d chars) in %v", id, len(content), time.Since(start))
		}
		return markdownRenderedMsg{id: id, width: width, rendered: rendered}
	}
}

// renderMarkdown renders an assistant answer for the terminal. Document
// markers are unwrapped first so documents read as Markdown sections.
func renderMarkdown(content string, width int) string {
	content = fences.Unwrap(content)
	content = mdLinkRegex.ReplaceAllString(content, "$2")

	// Plain URLs stay plain so the terminal can detect them
	ext := markdown.Extensions() &^ parser.Autolink
	p := parser.NewWithExtensions(ext)
	r := markdown.NewRenderer(max(width-4, 20), 0)
	doc := p.Parse([]byte(content))
	rendered := string(gomarkdown.Render(doc, r))

	rendered = inlineCodeRegex.ReplaceAllString(rendered, "\x1b[31m$1\x1b[0m")
	return strings.TrimRight(rendered, "\n")
}

func (a AppView) renderNotices() string {
	if len(a.notices) == 0 {
		return ""
	}
	n := a.notices[len(a.notices)-1]
	text := truncate(n.Text, a.width)
	if n.IsError {
		return ErrorStyle.Render(text)
	}
	return SuccessStyle.Render(text)
}

// pruneNotices drops notices older than noticeTTL.
func (a *AppView) pruneNotices(now time.Time) {
	kept := a.notices[:0]
	for _, n := range a.notices {
		if now.Sub(n.At) < noticeTTL {
			kept = append(kept, n)
		}
	}
	a.notices = kept
}

func (a AppView) renderStatusLine() string {
	var left string
	snap := a.snap

	switch {
	case snap.CooldownSeconds > 0:
		total := max(a.deps.CooldownSeconds, snap.CooldownSeconds, 1)
		left = WarningStyle.Render(a.t(i18n.StatusCooldown, snap.CooldownSeconds)) + " " +
			a.cooldownBar.ViewAs(float64(snap.CooldownSeconds)/float64(total))
	case snap.IsStreaming:
		left = a.spinner.View() + " " + AssistantStyle.Render(a.t(i18n.StatusStreaming))
	default:
		left = DimStyle.Render(a.t(i18n.StatusIdle))
	}

	if p := batchProgress(snap.FileProgress, snap.ListProgress, snap.QueueProgress); p != "" {
		left += "  " + HighlightStyle.Render(a.progressText(p, snap))
	}

	right := a.statusFlags()
	avail := a.width - lipgloss.Width(left) - 2
	if avail > 0 {
		right = runewidth.Truncate(right, avail, "…")
		gap := max(a.width-lipgloss.Width(left)-runewidth.StringWidth(right), 1)
		return left + strings.Repeat(" ", gap) + StatusStyle.Render(right)
	}
	return lipgloss.NewStyle().MaxWidth(a.width).Render(left)
}

// batchProgress picks the progress to show; list and file progress are
// nested inside queue progress.
func batchProgress(file, list, queue *model.Progress) string {
	switch {
	case file != nil:
		return "file"
	case list != nil:
		return "list"
	case queue != nil:
		return "queue"
	}
	return ""
}

func (a AppView) progressText(kind string, snap state.Snapshot) string {
	var parts []string
	if q := snap.QueueProgress; q != nil {
		parts = append(parts, a.t(i18n.StatusQueue, q.Current, q.Total))
	}
	switch kind {
	case "file":
		f := snap.FileProgress
		parts = append(parts, a.t(i18n.StatusFile, f.Current, f.Total, truncate(f.Label, 30)))
	case "list":
		l := snap.ListProgress
		parts = append(parts, a.t(i18n.StatusListItem, l.Current, l.Total, truncate(l.Label, 30)))
	}
	return strings.Join(parts, " · ")
}

func (a AppView) statusFlags() string {
	snap := a.snap
	folder := snap.OutputFolder
	if folder == "" {
		folder = a.t(i18n.NoFolderSelected)
	}
	history := a.t(i18n.HistoryOff)
	if snap.IncludeHistory {
		history = a.t(i18n.HistoryOn)
	}
	autosave := a.t(i18n.AutoSaveOff)
	if snap.AutoSave {
		autosave = a.t(i18n.AutoSaveOn)
	}
	return fmt.Sprintf("%s | %s | %s | t=%.1f", folder, history, autosave, snap.Settings.Temperature)
}

func (a AppView) renderSearchModal() string {
	modalWidth := modalWidthFor(90, a.width)
	listHeight := max(a.height-12, 3)

	var lines []string
	if len(a.searchResults) == 0 {
		lines = append(lines, centerTextLine(DimStyle.Render(a.t(i18n.NoMatches, a.searchQuery)), modalWidth))
	}

	start := 0
	if a.searchIdx >= listHeight {
		start = a.searchIdx - listHeight + 1
	}
	end := min(start+listHeight, len(a.searchResults))
	for i := start; i < end; i++ {
		m := a.searchResults[i]
		indicator := "  "
		style := lipgloss.NewStyle()
		if i == a.searchIdx {
			indicator = "▶ "
			style = style.Foreground(successColor).Bold(true)
		}
		stamp := m.Message.Timestamp.Format("2006-01-02 15:04")
		preview := strings.ReplaceAll(m.Preview, "\n", " ")
		line := fmt.Sprintf("%s%s %-9s %s", indicator, stamp, m.Message.Role, preview)
		lines = append(lines, style.Render(truncate(line, modalWidth)))
	}

	footer := FormatFooter("Alt+J/K", "Navigate", "Enter", "Insert", "Esc", "Close")
	return RenderThreeSectionModal(a.t(i18n.SearchTitle, a.searchQuery), lines, footer, ModalTypeInfo, modalWidth, a.width, a.height)
}
