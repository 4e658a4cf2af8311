package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"mdpilot/config"
	"mdpilot/engine"
	"mdpilot/i18n"
	"mdpilot/model"
	"mdpilot/state"
	"mdpilot/storage"
)

// Deps wires the view to the engine. Store, Orchestrator and Saver are
// required.
type Deps struct {
	Context      context.Context
	Store        *state.Store
	Orchestrator *engine.Orchestrator
	Saver        *engine.AutoSaver
	Notices      *ChannelNotifier
	// History is nil when restore_history is off.
	History *storage.HistoryStore
	// ListModels lists the models of the provider selected by settings.
	ListModels func(ctx context.Context, settings model.Settings) ([]model.ModelInfo, error)
	// APIKeyFor returns the stored key for a provider id.
	APIKeyFor func(provider string) string
	// SavePrefs persists a change to the user preferences.
	SavePrefs func(func(*config.UserConfig)) error
	// CooldownSeconds is the full pause length, used to scale the bar.
	CooldownSeconds int
	WorkDir         string
	Version         string
}

type AppView struct {
	deps Deps
	ctx  context.Context

	viewport    viewport.Model
	textarea    textarea.Model
	spinner     spinner.Model
	cooldownBar progress.Model

	width  int
	height int
	ready  bool

	snap state.Snapshot
	// rendered caches assistant markdown by message id.
	rendered map[string]renderedMessage

	notices []Notice

	showHelp bool

	confirm       ConfirmationState
	confirmAction func() tea.Cmd

	showModelSelector bool
	modelList         []model.ModelInfo
	filteredModelList []model.ModelInfo
	selectedModelIdx  int
	modelFilterInput  textinput.Model

	filePicker FilePickerState

	showSearch    bool
	searchQuery   string
	searchResults []storage.HistoryMatch
	searchIdx     int
}

type renderedMessage struct {
	width int
	text  string
}

func NewAppView(deps Deps) AppView {
	if deps.Context == nil {
		deps.Context = context.Background()
	}
	if deps.Notices == nil {
		deps.Notices = NewChannelNotifier(32)
	}

	snap := deps.Store.Snapshot()

	ta := textarea.New()
	ta.Placeholder = placeholderFor(snap.Settings)
	ta.Focus()
	ta.CharLimit = 0
	ta.ShowLineNumbers = false
	ta.SetHeight(3)
	ta.SetWidth(80)

	// Enter sends; Alt+Enter inserts a newline
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter"))

	ta.SetPromptFunc(2, func(lineIdx int) string {
		if lineIdx == 0 {
			return "> "
		}
		return "| "
	})

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(accentColor)

	bar := progress.New(progress.WithSolidFill(string(warningColor)), progress.WithoutPercentage())
	bar.Width = 20

	modelFilterInput := textinput.New()
	modelFilterInput.Prompt = "Filter: "
	modelFilterInput.CharLimit = 64

	ctx := deps.Context
	if ctx == nil {
		ctx = context.Background()
	}

	return AppView{
		deps:             deps,
		ctx:              ctx,
		viewport:         viewport.New(0, 0),
		textarea:         ta,
		spinner:          sp,
		cooldownBar:      bar,
		snap:             snap,
		rendered:         map[string]renderedMessage{},
		modelFilterInput: modelFilterInput,
		filePicker:       NewFilePickerState(deps.WorkDir),
	}
}

func (a AppView) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		a.spinner.Tick,
		waitForChange(a.deps.Store.Changes()),
		waitForNotice(a.deps.Notices.C()),
	)
}

func (a AppView) lang() string {
	return a.snap.Settings.Language
}

func (a AppView) t(key string, args ...any) string {
	return i18n.T(a.lang(), key, args...)
}

func placeholderFor(s model.Settings) string {
	if s.Mode == model.ModeList {
		return i18n.T(s.Language, i18n.ListPlaceholder)
	}
	return i18n.T(s.Language, i18n.InputPlaceholder)
}

func (a AppView) View() string {
	if !a.ready {
		return "Loading mdpilot..."
	}

	// Modal layers, top first
	if a.showHelp {
		return a.renderHelpModal(a.width, a.height)
	}
	if a.confirm.Active {
		return RenderConfirmationModal(a.confirm, a.width, a.height)
	}
	if a.showModelSelector {
		return renderModelSelector(a.getModelList(), a.selectedModelIdx, a.snap.Settings.Model, a.modelFilterInput, len(a.modelList), a.t(i18n.ModelPickerTitle), a.width, a.height)
	}
	if a.filePicker.Active {
		return RenderFilePickerModal(a.filePicker, a.t(i18n.FilePickerTitle), a.width, a.height)
	}
	if a.showSearch {
		return a.renderSearchModal()
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		a.renderTitle(),
		"",
		a.viewport.View(),
		a.renderNotices(),
		a.textarea.View(),
		a.renderStatusLine(),
		a.renderKeyHints(),
	)
}

func (a AppView) renderTitle() string {
	s := a.snap.Settings
	title := AssistantStyle.Render("mdpilot") +
		TitleStyle.Render(fmt.Sprintf(" - %s/%s", s.Provider, s.Model)) +
		UserStyle.Render(fmt.Sprintf(" - %s", s.Mode))

	var extra []string
	if n := len(a.snap.Files); n > 0 {
		extra = append(extra, fmt.Sprintf("%d md", n))
	}
	if n := len(a.snap.PromptQueue); n > 0 {
		extra = append(extra, fmt.Sprintf("%d queued", n))
	}
	if n := len(a.snap.ListItems); n > 0 {
		extra = append(extra, fmt.Sprintf("%d items", n))
	}
	if len(extra) > 0 {
		title += DimStyle.Render(" | " + strings.Join(extra, ", "))
	}
	return lipgloss.NewStyle().MaxWidth(a.width).Render(title)
}

func (a AppView) renderKeyHints() string {
	descStyle := lipgloss.NewStyle().Foreground(successColor).Bold(true)
	hints := fmt.Sprintf("Alt+Q %s  Esc %s  Ctrl+X %s  Alt+F %s  Alt+M %s  Alt+S %s  Alt+Y %s  F1 %s",
		descStyle.Render("Quit"),
		descStyle.Render("Stop"),
		descStyle.Render("Stop batch"),
		descStyle.Render("Files"),
		descStyle.Render("Models"),
		descStyle.Render("Save"),
		descStyle.Render("Copy"),
		descStyle.Render("Help"),
	)
	return StatusStyle.MaxWidth(a.width).Render(hints)
}

func (a AppView) getModelList() []model.ModelInfo {
	if a.modelFilterInput.Value() != "" {
		return a.filteredModelList
	}
	return a.modelList
}

func (a *AppView) closeAllModals() {
	a.showHelp = false
	a.confirm = ConfirmationState{}
	a.confirmAction = nil
	a.showModelSelector = false
	a.filePicker.Reset()
	a.showSearch = false

	if a.modelFilterInput.Focused() {
		a.modelFilterInput.Blur()
	}
	a.textarea.Focus()
}

func (a AppView) anyModal() bool {
	return a.showHelp || a.confirm.Active || a.showModelSelector || a.filePicker.Active || a.showSearch
}

// layout sizes the viewport around the fixed rows.
func (a *AppView) layout() {
	const fixedRows = 1 + 1 + 1 + 3 + 1 + 1 // title, gap, notices, input, status, hints
	a.textarea.SetWidth(a.width)
	a.viewport.Width = a.width
	a.viewport.Height = max(a.height-fixedRows, 1)
}
