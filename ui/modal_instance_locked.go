package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// InstanceLockedModal is shown when another mdpilot holds the data directory
// lock. The user can exit or remove the lock and continue.
type InstanceLockedModal struct {
	runningPID  int
	dataDir     string
	width       int
	height      int
	forceDelete bool
}

func NewInstanceLockedModal(runningPID int, dataDir string) InstanceLockedModal {
	return InstanceLockedModal{runningPID: runningPID, dataDir: dataDir}
}

func (m InstanceLockedModal) Init() tea.Cmd {
	return nil
}

func (m InstanceLockedModal) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "enter", "esc", "ctrl+c", "q":
			return m, tea.Quit
		case "d", "D":
			m.forceDelete = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// ForceDelete returns true if the user chose to remove the lock file
func (m InstanceLockedModal) ForceDelete() bool {
	return m.forceDelete
}

func (m InstanceLockedModal) View() string {
	if m.width < 20 || m.height < 10 {
		return "Terminal too small"
	}

	modalWidth := modalWidthFor(64, m.width)

	message := fmt.Sprintf(
		"Another mdpilot is already running (PID %d)\n"+
			"with the data directory\n%s\n\n"+
			"Two instances would write the same settings and history.\n"+
			"Close the other one, or set MDPILOT_DATA_DIR to use\n"+
			"a separate directory.\n\n"+
			"If the other process is gone, press D to remove\n"+
			"the lock file and start anyway.",
		m.runningPID, m.dataDir)

	messageStyle := lipgloss.NewStyle().
		Width(modalWidth).
		Align(lipgloss.Center)

	var messageLines []string
	for _, line := range strings.Split(message, "\n") {
		messageLines = append(messageLines, messageStyle.Render(truncate(line, modalWidth)))
	}

	footer := FormatFooter("Enter", "Exit", "D", "Remove lock")
	return RenderThreeSectionModal("mdpilot is already running", messageLines, footer, ModalTypeError, modalWidth, m.width, m.height)
}
