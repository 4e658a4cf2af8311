package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// PassphraseModal prompts for the passphrase of an encrypted SSH key before
// the credential store is opened.
type PassphraseModal struct {
	keyPath   string
	input     textinput.Model
	err       string
	width     int
	height    int
	cancelled bool
	// Check validates the passphrase; a non-nil error keeps the modal open.
	Check func(passphrase string) error
}

func NewPassphraseModal(keyPath string) PassphraseModal {
	input := NewPassphraseInput("Enter passphrase")
	input.Focus()

	return PassphraseModal{
		keyPath: keyPath,
		input:   input,
	}
}

// NewPassphraseInput creates a configured textinput for SSH passphrase entry
func NewPassphraseInput(placeholder string) textinput.Model {
	input := textinput.New()
	input.Placeholder = placeholder
	input.Width = 50
	input.CharLimit = 200
	input.EchoMode = textinput.EchoPassword
	input.EchoCharacter = '•'
	return input
}

func (m PassphraseModal) Init() tea.Cmd {
	return textinput.Blink
}

func (m PassphraseModal) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.cancelled = true
			return m, tea.Quit

		case "enter":
			value := m.input.Value()
			if value == "" {
				m.err = "Passphrase cannot be empty"
				return m, nil
			}
			if m.Check != nil {
				if err := m.Check(value); err != nil {
					m.err = "Incorrect passphrase. Please try again."
					m.input.SetValue("")
					return m, nil
				}
			}
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m PassphraseModal) View() string {
	return RenderPassphraseModal("SSH Key Passphrase Required", m.keyPath, m.input, m.err, m.width, m.height)
}

// Passphrase returns the entered passphrase (empty if cancelled)
func (m PassphraseModal) Passphrase() string {
	if m.cancelled {
		return ""
	}
	return m.input.Value()
}

// Cancelled returns true if user pressed Esc
func (m PassphraseModal) Cancelled() bool {
	return m.cancelled
}

// RenderPassphraseModal renders a modal prompting for SSH key passphrase
func RenderPassphraseModal(title, keyPath string, passphraseInput textinput.Model, errorMsg string, width, height int) string {
	if width < 20 || height < 10 {
		return "Terminal too small"
	}

	modalWidth := modalWidthFor(70, width)

	messageLines := []string{
		centerTextLine("The SSH key is encrypted with a passphrase.", modalWidth),
		centerTextLine(fmt.Sprintf("Key: %s", keyPath), modalWidth),
		centerTextLine("Please enter the passphrase:", modalWidth),
		strings.Repeat(" ", modalWidth),
		centerTextLine(passphraseInput.View(), modalWidth),
	}

	if errorMsg != "" {
		styledErr := lipgloss.NewStyle().
			Foreground(dangerColor).
			Bold(true).
			Render("⚠ " + errorMsg)
		messageLines = append(messageLines, strings.Repeat(" ", modalWidth), centerTextLine(styledErr, modalWidth))
	}

	return RenderThreeSectionModal(title, messageLines, FormatFooter("Enter", "Continue", "Esc", "Cancel"), ModalTypeInfo, modalWidth, width, height)
}
