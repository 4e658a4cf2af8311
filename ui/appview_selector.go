package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"mdpilot/model"
)

func renderModelSelector(models []model.ModelInfo, selectedIdx int, currentModel string, filterInput textinput.Model, total int, title string, width, height int) string {
	modalWidth := min(width-10, 80)
	modalHeight := height - 6

	titleSection := lipgloss.NewStyle().
		Bold(true).
		Align(lipgloss.Center).
		Width(modalWidth).
		Render(title)

	header := filterInput.View()
	if filterInput.Value() == "" {
		header += DimStyle.Render(fmt.Sprintf("  %d models", total))
	} else {
		header += DimStyle.Render(fmt.Sprintf("  %d of %d models", len(models), total))
	}

	headerSection := lipgloss.NewStyle().
		Foreground(dimColor).
		Align(lipgloss.Center).
		Width(modalWidth).
		BorderTop(true).
		BorderBottom(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(dimColor).
		Render(header)

	var modelLines []string
	maxLines := max(modalHeight-8, 1)

	if len(models) == 0 {
		emptyMsg := "No models available"
		if filterInput.Value() != "" {
			emptyMsg = "No matches found"
		}
		modelLines = append(modelLines, lipgloss.NewStyle().
			Foreground(dimColor).
			Italic(true).
			Align(lipgloss.Center).
			Width(modalWidth).
			Render(emptyMsg))
	} else {
		startIdx := 0
		endIdx := len(models)

		if len(models) > maxLines {
			switch {
			case selectedIdx < maxLines/2:
				endIdx = maxLines
			case selectedIdx >= len(models)-maxLines/2:
				startIdx = len(models) - maxLines
			default:
				startIdx = selectedIdx - maxLines/2
				endIdx = startIdx + maxLines
			}
		}

		for i := startIdx; i < endIdx && i < len(models); i++ {
			m := models[i]

			indicator := "  "
			if i == selectedIdx {
				indicator = "▶ "
			}

			currentMarker := ""
			if m.Name == currentModel {
				currentMarker = " (current)"
			}

			size := FormatSize(m.Size)
			name := truncate(m.Label(), modalWidth-20)
			spacing := max(modalWidth-lipgloss.Width(indicator+name+currentMarker+size)-4, 1)
			line := indicator + name + currentMarker + strings.Repeat(" ", spacing) + size

			lineStyle := lipgloss.NewStyle()
			if i == selectedIdx {
				lineStyle = lineStyle.Foreground(successColor).Bold(true)
			} else if m.Name == currentModel {
				lineStyle = lineStyle.Foreground(accentColor).Bold(true)
			}

			modelLines = append(modelLines, lipgloss.NewStyle().Width(modalWidth).Render(lineStyle.Render(line)))
		}
	}

	emptyLine := strings.Repeat(" ", modalWidth)
	modelLines = append([]string{emptyLine}, modelLines...)
	modelLines = append(modelLines, emptyLine)

	footerSection := lipgloss.NewStyle().
		Align(lipgloss.Center).
		Width(modalWidth).
		BorderTop(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(dimColor).
		Render(FormatFooter("Type", "to filter", "Alt+J/K", "Navigate", "Enter", "Select", "Esc", "Cancel"))

	sections := []string{titleSection, headerSection}
	sections = append(sections, modelLines...)
	sections = append(sections, footerSection)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, strings.Join(sections, "\n"))
}

// filterModels fuzzy-matches pattern against model names and labels.
func filterModels(pattern string, models []model.ModelInfo) []model.ModelInfo {
	if strings.TrimSpace(pattern) == "" {
		return models
	}
	targets := make([]string, len(models))
	for i, m := range models {
		targets[i] = m.Name + " " + m.Label()
	}
	matches := fuzzy.Find(pattern, targets)
	out := make([]model.ModelInfo, 0, len(matches))
	for _, match := range matches {
		out = append(out, models[match.Index])
	}
	return out
}

// FormatSize converts bytes to a human-readable size
func FormatSize(bytes int64) string {
	// Hosted providers report no size
	if bytes == 0 {
		return ""
	}

	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
