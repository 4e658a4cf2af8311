package ui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"mdpilot/config"
	"mdpilot/engine"
	"mdpilot/i18n"
	"mdpilot/model"
	"mdpilot/storage"
)

func (a AppView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		a.layout()
		a.updateViewportContent(true)
		return a, tea.Batch(a.renderPending()...)

	case spinner.TickMsg:
		a.spinner, cmd = a.spinner.Update(msg)
		if a.filePicker.Loading {
			a.filePicker.Spinner, _ = a.filePicker.Spinner.Update(msg)
		}
		if a.snap.IsStreaming && a.snap.StreamingContent == "" {
			a.updateViewportContent(true)
		}
		return a, cmd

	case storeChangedMsg:
		prevMode := a.snap.Settings.Mode
		prevLang := a.snap.Settings.Language
		a.snap = a.deps.Store.Snapshot()
		if a.snap.Settings.Mode != prevMode || a.snap.Settings.Language != prevLang {
			a.textarea.Placeholder = placeholderFor(a.snap.Settings)
		}
		atBottom := a.viewport.AtBottom() || a.snap.IsStreaming
		a.updateViewportContent(atBottom)
		cmds = append(cmds, waitForChange(a.deps.Store.Changes()))
		cmds = append(cmds, a.renderPending()...)
		return a, tea.Batch(cmds...)

	case markdownRenderedMsg:
		if msg.width == a.width {
			a.rendered[msg.id] = renderedMessage{width: msg.width, text: msg.rendered}
			a.updateViewportContent(a.viewport.AtBottom())
		}
		return a, nil

	case noticeMsg:
		a.notices = append(a.notices, msg.notice)
		return a, tea.Batch(waitForNotice(a.deps.Notices.C()), expireNotices())

	case noticeExpiredMsg:
		a.pruneNotices(time.Now())
		return a, nil

	case actionDoneMsg:
		return a, a.handleActionDone(msg)

	case modelsLoadedMsg:
		if msg.err != nil {
			return a, a.notifyError(a.t(i18n.ModelsLoadError, msg.err))
		}
		a.modelList = msg.models
		a.filteredModelList = filterModels(a.modelFilterInput.Value(), a.modelList)
		if msg.show {
			a.openModelSelector()
		}
		return a, nil

	case filesLoadedMsg:
		if msg.err != nil {
			return a, a.notifyError(a.t(i18n.FilesLoadError, msg.err))
		}
		a.deps.Store.AddFiles(msg.files)
		return a, a.notifySuccess(a.t(i18n.FilesLoaded, len(msg.files)))

	case itemsImportedMsg:
		if msg.err != nil {
			return a, a.notifyError(a.t(i18n.ItemsImportError, msg.err))
		}
		n := a.deps.Store.AddListItems(msg.list.Items)
		if msg.list.Template != "" {
			a.deps.Store.SetListTemplate(msg.list.Template)
		}
		return a, a.notifySuccess(a.t(i18n.ItemsImported, n))

	case searchResultsMsg:
		if msg.err != nil {
			return a, a.notifyError(msg.err.Error())
		}
		a.searchQuery = msg.query
		a.searchResults = msg.matches
		a.searchIdx = 0
		a.showSearch = true
		a.textarea.Blur()
		return a, nil

	case pickerEntriesMsg:
		if !a.filePicker.Active {
			return a, nil
		}
		if msg.err != nil {
			a.filePicker.Reset()
			a.textarea.Focus()
			return a, a.notifyError(a.t(i18n.FilesLoadError, msg.err))
		}
		a.filePicker.SetEntries(msg.entries)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	a.textarea, cmd = a.textarea.Update(msg)
	cmds = append(cmds, cmd)
	a.viewport, cmd = a.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return a, tea.Batch(cmds...)
}

func (a AppView) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "alt+q":
		return a, a.quit()
	}

	switch {
	case a.showHelp:
		switch msg.String() {
		case "esc", "f1", "alt+h", "q":
			a.closeAllModals()
		}
		return a, nil
	case a.confirm.Active:
		return a.handleConfirmKey(msg)
	case a.showModelSelector:
		return a.handleModelSelectorKey(msg)
	case a.filePicker.Active:
		return a.handleFilePickerKey(msg)
	case a.showSearch:
		return a.handleSearchKey(msg)
	}

	switch msg.String() {
	case "enter":
		return a.submit()

	case "esc":
		if a.deps.Orchestrator.Busy() || a.snap.IsStreaming {
			return a, a.stopCurrent()
		}
		return a, nil

	case "ctrl+x":
		return a, a.stopBatch()

	case "f1", "alt+h":
		a.showHelp = true
		return a, nil

	case "alt+f":
		cmd := a.openFilePicker()
		return a, cmd

	case "alt+m":
		cmd := a.loadModels(true)
		return a, cmd

	case "alt+s":
		return a, a.saveLastAnswer(false)

	case "alt+y":
		return a, a.copyLastAnswer()

	case "pgup":
		a.viewport.PageUp()
		return a, nil
	case "pgdown":
		a.viewport.PageDown()
		return a, nil
	case "alt+k":
		a.viewport.ScrollUp(1)
		return a, nil
	case "alt+j":
		a.viewport.ScrollDown(1)
		return a, nil
	case "alt+g":
		a.viewport.GotoTop()
		return a, nil
	case "alt+G":
		a.viewport.GotoBottom()
		return a, nil
	}

	var cmd tea.Cmd
	a.textarea, cmd = a.textarea.Update(msg)
	return a, cmd
}

// submit handles Enter in the input.
func (a AppView) submit() (tea.Model, tea.Cmd) {
	input := a.textarea.Value()
	if c, ok := ParseCommand(input); ok {
		a.textarea.Reset()
		return a.runCommand(c)
	}

	text := strings.TrimSpace(UnescapeInput(input))
	snap := a.snap

	if snap.Settings.Mode == model.ModeList && len(snap.ListItems) > 0 {
		if a.deps.Orchestrator.Busy() {
			return a, a.notifyError(a.t(i18n.Busy))
		}
		a.textarea.Reset()
		if text != "" {
			a.deps.Store.SetListTemplate(text)
		}
		return a, a.runAction("list", a.deps.Orchestrator.ProcessListItems)
	}

	if text == "" {
		return a, nil
	}
	a.textarea.Reset()
	o := a.deps.Orchestrator
	return a, a.runAction("send", func(ctx context.Context) error {
		return o.Send(ctx, text)
	})
}

// runAction runs an orchestrator action off the UI goroutine.
func (a AppView) runAction(name string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := a.ctx
	return func() tea.Msg {
		return actionDoneMsg{name: name, err: fn(ctx)}
	}
}

func (a AppView) handleActionDone(msg actionDoneMsg) tea.Cmd {
	if config.DebugLog != nil {
		config.DebugLog.Debugf("action %s finished: err=%v", msg.name, msg.err)
	}
	switch {
	case msg.err == nil:
		return nil
	case errors.Is(msg.err, engine.ErrBusy):
		return a.notifyError(a.t(i18n.Busy))
	case errors.Is(msg.err, engine.ErrNothingToProcess):
		return a.notifyError(a.t(i18n.NothingToProcess))
	case errors.Is(msg.err, engine.ErrNoAPIKey):
		// already notified by the orchestrator
		return nil
	default:
		return a.notifyError(msg.err.Error())
	}
}

// stopCurrent aborts the running call. Stop waits for the session to
// settle, so it runs in a command.
func (a AppView) stopCurrent() tea.Cmd {
	o := a.deps.Orchestrator
	notices := a.deps.Notices
	text := a.t(i18n.StreamStopped)
	return func() tea.Msg {
		busy := o.Busy()
		o.Stop()
		if busy {
			notices.Success(text)
		}
		return nil
	}
}

func (a AppView) stopBatch() tea.Cmd {
	o := a.deps.Orchestrator
	notices := a.deps.Notices
	text := a.t(i18n.QueueStopped)
	return func() tea.Msg {
		busy := o.Busy()
		o.StopQueue()
		if busy {
			notices.Success(text)
		}
		return nil
	}
}

func (a AppView) quit() tea.Cmd {
	if a.deps.Orchestrator.Busy() || a.snap.IsStreaming {
		return tea.Sequence(a.stopBatch(), tea.Quit)
	}
	return tea.Quit
}

// notifySuccess and notifyError route UI feedback through the same channel
// as engine notifications.
func (a AppView) notifySuccess(text string) tea.Cmd {
	a.deps.Notices.Success(text)
	return nil
}

func (a AppView) notifyError(text string) tea.Cmd {
	a.deps.Notices.Error(text)
	return nil
}

func expireNotices() tea.Cmd {
	return tea.Tick(noticeTTL, func(time.Time) tea.Msg {
		return noticeExpiredMsg{}
	})
}

// lastAnswer returns the newest assistant message.
func (a AppView) lastAnswer() (string, bool) {
	msgs := a.snap.Messages
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == model.RoleAssistant {
			return msgs[i].Content, true
		}
	}
	return "", false
}

func (a AppView) saveLastAnswer(whole bool) tea.Cmd {
	content, ok := a.lastAnswer()
	if !ok {
		return a.notifyError(a.t(i18n.NoAnswer))
	}
	saver := a.deps.Saver
	return func() tea.Msg {
		// The saver reports through the notifier
		if whole {
			_, _ = saver.SaveWhole(content)
		} else {
			_, _ = saver.SaveBlocks(content)
		}
		return nil
	}
}

func (a AppView) copyLastAnswer() tea.Cmd {
	content, ok := a.lastAnswer()
	if !ok {
		return a.notifyError(a.t(i18n.NoAnswer))
	}
	if err := clipboard.WriteAll(content); err != nil {
		return a.notifyError(a.t(i18n.CopyFailed, err))
	}
	return a.notifySuccess(a.t(i18n.Copied))
}

func (a *AppView) loadModels(show bool) tea.Cmd {
	if a.deps.ListModels == nil {
		return nil
	}
	if show && len(a.modelList) > 0 && a.modelList[0].Provider == a.snap.Settings.Provider {
		a.openModelSelector()
		return nil
	}
	list := a.deps.ListModels
	settings := a.snap.Settings
	ctx := a.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		models, err := list(ctx, settings)
		return modelsLoadedMsg{models: models, err: err, show: show}
	}
}

func (a *AppView) openModelSelector() {
	a.showModelSelector = true
	a.modelFilterInput.SetValue("")
	a.filteredModelList = a.modelList
	a.selectedModelIdx = 0
	for i, m := range a.modelList {
		if m.Name == a.snap.Settings.Model {
			a.selectedModelIdx = i
			break
		}
	}
	a.textarea.Blur()
	a.modelFilterInput.Focus()
}

func (a AppView) handleModelSelectorKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	list := a.getModelList()
	switch msg.String() {
	case "esc":
		a.closeAllModals()
		return a, nil
	case "alt+j", "down", "ctrl+n":
		if len(list) > 0 {
			a.selectedModelIdx = (a.selectedModelIdx + 1) % len(list)
		}
		return a, nil
	case "alt+k", "up", "ctrl+p":
		if len(list) > 0 {
			a.selectedModelIdx = (a.selectedModelIdx - 1 + len(list)) % len(list)
		}
		return a, nil
	case "enter":
		if a.selectedModelIdx >= len(list) {
			return a, nil
		}
		name := list[a.selectedModelIdx].Name
		a.closeAllModals()
		a.deps.Store.SetSettings(model.SettingsPatch{Model: &name})
		return a, a.notifySuccess(a.t(i18n.ModelSet, name))
	}

	var cmd tea.Cmd
	a.modelFilterInput, cmd = a.modelFilterInput.Update(msg)
	a.filteredModelList = filterModels(a.modelFilterInput.Value(), a.modelList)
	if a.selectedModelIdx >= len(a.getModelList()) {
		a.selectedModelIdx = 0
	}
	return a, cmd
}

func (a *AppView) openFilePicker() tea.Cmd {
	a.filePicker.Activate()
	a.textarea.Blur()
	return tea.Batch(scanMarkdown(a.filePicker.Root), a.filePicker.Spinner.Tick)
}

func (a AppView) handleFilePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.closeAllModals()
		return a, nil
	case "alt+j", "down", "ctrl+n":
		a.filePicker.Move(1)
		return a, nil
	case "alt+k", "up", "ctrl+p":
		a.filePicker.Move(-1)
		return a, nil
	case "tab", " ":
		if msg.String() == " " && a.filePicker.Filter.Value() != "" {
			break
		}
		a.filePicker.Toggle()
		a.filePicker.Move(1)
		return a, nil
	case "enter":
		paths := a.filePicker.Chosen()
		a.closeAllModals()
		if len(paths) == 0 {
			return a, nil
		}
		return a, a.readFiles(paths)
	}

	var cmd tea.Cmd
	a.filePicker.Filter, cmd = a.filePicker.Filter.Update(msg)
	a.filePicker.applyFilter()
	return a, cmd
}

func (a AppView) readFiles(paths []string) tea.Cmd {
	ctx := a.ctx
	return func() tea.Msg {
		files, err := storage.ReadMarkdownFiles(ctx, paths)
		return filesLoadedMsg{files: files, err: err}
	}
}

func (a AppView) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y", "t", "T", "enter":
		action := a.confirmAction
		a.closeAllModals()
		if action != nil {
			return a, action()
		}
	case "n", "N", "esc":
		a.closeAllModals()
	}
	return a, nil
}

func (a AppView) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		a.closeAllModals()
	case "alt+j", "down", "j":
		if len(a.searchResults) > 0 {
			a.searchIdx = (a.searchIdx + 1) % len(a.searchResults)
		}
	case "alt+k", "up", "k":
		if len(a.searchResults) > 0 {
			a.searchIdx = (a.searchIdx - 1 + len(a.searchResults)) % len(a.searchResults)
		}
	case "enter":
		if a.searchIdx < len(a.searchResults) {
			content := a.searchResults[a.searchIdx].Message.Content
			a.closeAllModals()
			a.textarea.SetValue(content)
			a.textarea.CursorEnd()
		}
	}
	return a, nil
}
