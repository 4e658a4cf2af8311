package ui

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"mdpilot/config"
)

const (
	maxPickerEntries = 5000
	maxPickerDepth   = 6
)

// FilePickerState is a fuzzy, multi-select picker over the Markdown files
// below a root directory.
type FilePickerState struct {
	Active   bool
	Loading  bool
	Root     string
	Entries  []string // paths relative to Root
	Filtered []string
	Selected map[string]bool
	Cursor   int
	Filter   textinput.Model
	Spinner  spinner.Model
}

func NewFilePickerState(root string) FilePickerState {
	if root == "" {
		root = config.GetHomeDir()
	}

	filter := textinput.New()
	filter.Prompt = "Filter: "
	filter.CharLimit = 128

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return FilePickerState{
		Root:     root,
		Selected: map[string]bool{},
		Filter:   filter,
		Spinner:  sp,
	}
}

func (fps *FilePickerState) Activate() {
	fps.Active = true
	fps.Loading = true
	fps.Entries = nil
	fps.Filtered = nil
	fps.Selected = map[string]bool{}
	fps.Cursor = 0
	fps.Filter.SetValue("")
	fps.Filter.Focus()
}

func (fps *FilePickerState) Reset() {
	fps.Active = false
	fps.Loading = false
	fps.Filter.Blur()
}

// SetEntries replaces the candidate list and re-applies the filter.
func (fps *FilePickerState) SetEntries(entries []string) {
	fps.Loading = false
	fps.Entries = entries
	fps.applyFilter()
}

func (fps *FilePickerState) applyFilter() {
	fps.Filtered = filterPaths(fps.Filter.Value(), fps.Entries)
	if fps.Cursor >= len(fps.Filtered) {
		fps.Cursor = max(len(fps.Filtered)-1, 0)
	}
}

// Toggle flips the selection of the entry under the cursor.
func (fps *FilePickerState) Toggle() {
	if fps.Cursor < 0 || fps.Cursor >= len(fps.Filtered) {
		return
	}
	rel := fps.Filtered[fps.Cursor]
	if fps.Selected[rel] {
		delete(fps.Selected, rel)
	} else {
		fps.Selected[rel] = true
	}
}

func (fps *FilePickerState) Move(delta int) {
	if len(fps.Filtered) == 0 {
		fps.Cursor = 0
		return
	}
	fps.Cursor = (fps.Cursor + delta + len(fps.Filtered)) % len(fps.Filtered)
}

// Chosen returns the absolute paths to load: the selection, or the entry
// under the cursor when nothing is selected. Order follows Entries.
func (fps FilePickerState) Chosen() []string {
	var out []string
	for _, rel := range fps.Entries {
		if fps.Selected[rel] {
			out = append(out, filepath.Join(fps.Root, rel))
		}
	}
	if len(out) == 0 && fps.Cursor < len(fps.Filtered) {
		out = append(out, filepath.Join(fps.Root, fps.Filtered[fps.Cursor]))
	}
	return out
}

// filterPaths returns the entries matching pattern, best match first. An
// empty pattern keeps everything in order.
func filterPaths(pattern string, entries []string) []string {
	if strings.TrimSpace(pattern) == "" {
		return entries
	}
	matches := fuzzy.Find(pattern, entries)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, entries[m.Index])
	}
	return out
}

// scanMarkdown walks root for Markdown files, skipping hidden directories.
func scanMarkdown(root string) tea.Cmd {
	return func() tea.Msg {
		var entries []string
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == root {
					return err
				}
				return nil
			}
			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				return nil
			}
			if d.IsDir() {
				if path != root && (strings.HasPrefix(d.Name(), ".") || d.Name() == "node_modules") {
					return filepath.SkipDir
				}
				if strings.Count(rel, string(os.PathSeparator)) >= maxPickerDepth {
					return filepath.SkipDir
				}
				return nil
			}
			if isMarkdown(path) {
				entries = append(entries, rel)
				if len(entries) >= maxPickerEntries {
					return filepath.SkipAll
				}
			}
			return nil
		})
		if config.DebugLog != nil {
			config.DebugLog.Debugf("file picker scanned %s: %d entries, err=%v", root, len(entries), err)
		}
		return pickerEntriesMsg{entries: entries, err: err}
	}
}

func RenderFilePickerModal(state FilePickerState, title string, width, height int) string {
	modalWidth := modalWidthFor(80, width)
	listHeight := max(height-14, 3)

	var lines []string
	lines = append(lines, state.Filter.View())
	lines = append(lines, DimStyle.Render(truncate(state.Root, modalWidth)))
	lines = append(lines, "")

	switch {
	case state.Loading:
		lines = append(lines, centerTextLine(state.Spinner.View()+" scanning...", modalWidth))
	case len(state.Filtered) == 0:
		lines = append(lines, centerTextLine(DimStyle.Italic(true).Render("No Markdown files found"), modalWidth))
	default:
		start := 0
		if state.Cursor >= listHeight {
			start = state.Cursor - listHeight + 1
		}
		end := min(start+listHeight, len(state.Filtered))
		for i := start; i < end; i++ {
			rel := state.Filtered[i]
			mark := "[ ] "
			if state.Selected[rel] {
				mark = "[x] "
			}
			indicator := "  "
			style := lipgloss.NewStyle()
			if i == state.Cursor {
				indicator = "▶ "
				style = style.Foreground(successColor).Bold(true)
			}
			lines = append(lines, style.Render(truncate(indicator+mark+rel, modalWidth)))
		}
	}

	lines = append(lines, "", DimStyle.Render(fmt.Sprintf("%d of %d, %d selected", len(state.Filtered), len(state.Entries), len(state.Selected))))

	footer := FormatFooter("Type", "Filter", "Alt+J/K", "Navigate", "Tab", "Select", "Enter", "Load", "Esc", "Cancel")
	return RenderThreeSectionModal(title, lines, footer, ModalTypeInfo, modalWidth, width, height)
}
