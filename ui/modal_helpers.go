package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// ModalType determines the color and styling of a modal
type ModalType int

const (
	ModalTypeInfo ModalType = iota
	ModalTypeWarning
	ModalTypeError
)

func (t ModalType) color() lipgloss.Color {
	switch t {
	case ModalTypeWarning:
		return warningColor
	case ModalTypeError:
		return dangerColor
	default:
		return accentColor
	}
}

// RenderAcknowledgeModal renders a modal that requires only acknowledgement (Enter to dismiss)
func RenderAcknowledgeModal(title, message string, modalType ModalType, width, height int) string {
	modalWidth := modalWidthFor(60, width)

	messageStyle := lipgloss.NewStyle().
		Width(modalWidth).
		Align(lipgloss.Center)

	var messageLines []string
	for _, line := range strings.Split(wordWrap(message, modalWidth-4), "\n") {
		messageLines = append(messageLines, messageStyle.Render(line))
	}

	return RenderThreeSectionModal(title, messageLines, "Press Enter to acknowledge", modalType, modalWidth, width, height)
}

// RenderThreeSectionModal renders a borderless modal with title, message, and footer sections
// Title (no border) → Message (BorderTop) → Footer (BorderTop)
// desiredWidth: preferred modal width (0 = default 60)
func RenderThreeSectionModal(title string, messageLines []string, footer string, modalType ModalType, desiredWidth, width, height int) string {
	if desiredWidth == 0 {
		desiredWidth = 60
	}
	modalWidth := modalWidthFor(desiredWidth, width)

	// runewidth for emoji in titles
	titleVisualWidth := runewidth.StringWidth(title)
	leftPad := max((modalWidth-titleVisualWidth)/2, 0)
	rightPad := max(modalWidth-titleVisualWidth-leftPad, 0)
	centeredTitle := strings.Repeat(" ", leftPad) + title + strings.Repeat(" ", rightPad)

	titleSection := lipgloss.NewStyle().
		Bold(true).
		Foreground(modalType.color()).
		Render(centeredTitle)

	var contentLines []string
	contentLines = append(contentLines, strings.Repeat(" ", modalWidth))
	contentLines = append(contentLines, messageLines...)
	contentLines = append(contentLines, strings.Repeat(" ", modalWidth))

	messageSection := lipgloss.NewStyle().
		BorderTop(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(dimColor).
		Width(modalWidth).
		Render(strings.Join(contentLines, "\n"))

	footerSection := lipgloss.NewStyle().
		Foreground(dimColor).
		Align(lipgloss.Center).
		Width(modalWidth).
		BorderTop(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(dimColor).
		Render(footer)

	content := strings.Join([]string{titleSection, messageSection, footerSection}, "\n")
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}

func modalWidthFor(desired, width int) int {
	w := desired
	if width < w+10 {
		w = width - 10
	}
	return max(w, 10)
}

// centerTextLine centers a line of text within a given width
func centerTextLine(text string, width int) string {
	textWidth := lipgloss.Width(text)
	if textWidth >= width {
		return text
	}

	leftPad := (width - textWidth) / 2
	rightPad := width - textWidth - leftPad
	return strings.Repeat(" ", leftPad) + text + strings.Repeat(" ", rightPad)
}

// wordWrap wraps text to fit within the specified width while preserving newlines
func wordWrap(text string, width int) string {
	if width <= 0 {
		return text
	}

	var result strings.Builder
	paragraphs := strings.Split(text, "\n")

	for i, paragraph := range paragraphs {
		words := strings.Fields(paragraph)
		if len(words) > 0 {
			currentLine := words[0]
			for _, word := range words[1:] {
				if runewidth.StringWidth(currentLine)+1+runewidth.StringWidth(word) <= width {
					currentLine += " " + word
				} else {
					result.WriteString(currentLine + "\n")
					currentLine = word
				}
			}
			result.WriteString(currentLine)
		}

		if i < len(paragraphs)-1 {
			result.WriteString("\n")
		}
	}

	return result.String()
}

// truncate cuts s to width terminal cells.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}
