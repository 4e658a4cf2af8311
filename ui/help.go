package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"mdpilot/i18n"
)

func (a AppView) renderHelpModal(width, height int) string {
	green := lipgloss.NewStyle().
		Bold(true).
		Foreground(successColor)

	title := green.Render(a.t(i18n.HelpTitle))
	if a.deps.Version != "" {
		title += DimStyle.Render(" " + a.deps.Version)
	}

	blue := lipgloss.NewStyle().Foreground(accentColor)

	keys := lipgloss.JoinVertical(
		lipgloss.Left,
		blue.Render("## Keys"),
		"• Enter         Send, or run a /command",
		"• Alt+Enter     New line",
		"• Esc           Stop the current request",
		"• Ctrl+X        Stop the running batch",
		"• Alt+F         Pick Markdown files",
		"• Alt+M         Select model",
		"• Alt+S         Save documents of last answer",
		"• Alt+Y         Copy last answer",
		"• PgUp/PgDn     Scroll",
		"• Alt+J/K       Scroll one line",
		"• F1            Toggle this help",
		"• Alt+Q         Quit",
		"",
		blue.Render("## Modes"),
		"• files  edit the loaded files",
		"• text   free text, no files",
		"• list   template run per item",
		"",
		"Start a message with // to send",
		"a leading slash literally.",
	)

	var cmdLines []string
	cmdLines = append(cmdLines, blue.Render("## Commands"))
	for _, spec := range commandSpecs {
		usage := "/" + spec.Name
		if spec.Args != "" {
			usage += " " + spec.Args
		}
		cmdLines = append(cmdLines, fmt.Sprintf("• %-26s %s", truncate(usage, 26), spec.Help))
	}
	commands := strings.Join(cmdLines, "\n")

	columnStyle := lipgloss.NewStyle().PaddingLeft(2)

	columns := lipgloss.JoinHorizontal(
		lipgloss.Top,
		columnStyle.Width(44).Render(keys),
		"  ",
		columnStyle.Render(commands),
	)

	footer := lipgloss.NewStyle().
		Foreground(dimColor).
		Render("Press F1 or Esc to close this help")

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		title,
		"",
		columns,
		"",
		footer,
	)

	helpBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8")).
		Padding(1, 2).
		MaxWidth(width)

	return lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		helpBox.Render(content),
	)
}
