package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type ConfirmationState struct {
	Active  bool
	Title   string
	Message string
}

func RenderConfirmationModal(state ConfirmationState, width, height int) string {
	modalWidth := modalWidthFor(60, width)

	messageStyle := lipgloss.NewStyle().
		Width(modalWidth).
		Align(lipgloss.Center)

	var messageLines []string
	for _, line := range strings.Split(wordWrap(state.Message, modalWidth-4), "\n") {
		messageLines = append(messageLines, messageStyle.Render(line))
	}

	return RenderThreeSectionModal(state.Title, messageLines, FormatFooter("y", "Yes", "n", "No"), ModalTypeWarning, modalWidth, width, height)
}
