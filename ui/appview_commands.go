package ui

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"mdpilot/config"
	"mdpilot/i18n"
	"mdpilot/model"
	"mdpilot/provider"
	"mdpilot/storage"
)

// runCommand executes a slash command typed in the input.
func (a AppView) runCommand(c Command) (tea.Model, tea.Cmd) {
	if config.DebugLog != nil {
		config.DebugLog.Debugf("command /%s %q", c.Name, c.Args)
	}

	store := a.deps.Store
	o := a.deps.Orchestrator
	snap := a.snap
	bad := func(err error) (tea.Model, tea.Cmd) {
		return a, a.notifyError(a.t(i18n.InvalidArgument, c.Name, err))
	}

	switch c.Name {
	// Files
	case "add":
		args := splitArgs(c.Args)
		if len(args) == 0 {
			cmd := a.openFilePicker()
			return a, cmd
		}
		paths, err := ExpandPaths(args, a.deps.WorkDir)
		if err != nil {
			return a, a.notifyError(a.t(i18n.FilesLoadError, err))
		}
		return a, a.readFiles(paths)

	case "files":
		cmd := a.openFilePicker()
		return a, cmd

	case "remove":
		i, err := parseIndex(c.Args, len(snap.Files))
		if err != nil {
			return bad(err)
		}
		f := snap.Files[i]
		store.RemoveFile(f.Path)
		return a, a.notifySuccess(a.t(i18n.FileRemoved, f.Name))

	case "clearfiles":
		store.ClearFiles()
		return a, a.notifySuccess(a.t(i18n.FilesCleared))

	// Settings
	case "mode":
		mode, err := model.ParseMode(strings.ToLower(c.Args))
		if err != nil {
			return bad(err)
		}
		store.SetSettings(model.SettingsPatch{Mode: &mode})
		return a, a.notifySuccess(a.t(i18n.ModeSet, mode))

	case "provider":
		id := strings.ToLower(c.Args)
		if !slices.Contains(provider.IDs(), id) {
			return a, a.notifyError(a.t(i18n.UnknownProvider, c.Args, strings.Join(provider.IDs(), ", ")))
		}
		patch := model.SettingsPatch{Provider: &id}
		if a.deps.APIKeyFor != nil {
			apiKey := a.deps.APIKeyFor(id)
			patch.APIKey = &apiKey
		}
		store.SetSettings(patch)
		a.modelList = nil
		return a, a.notifySuccess(a.t(i18n.ProviderSet, id))

	case "model":
		if c.Args == "" {
			cmd := a.loadModels(true)
			return a, cmd
		}
		name := c.Args
		store.SetSettings(model.SettingsPatch{Model: &name})
		return a, a.notifySuccess(a.t(i18n.ModelSet, name))

	case "temp":
		v, err := parseTemperature(c.Args)
		if err != nil {
			return bad(err)
		}
		store.SetSettings(model.SettingsPatch{Temperature: &v})
		return a, a.notifySuccess(a.t(i18n.TemperatureSet, v))

	case "lang":
		lang := strings.ToLower(c.Args)
		if !slices.Contains(i18n.Languages(), lang) {
			return bad(fmt.Errorf("expected one of %s", strings.Join(i18n.Languages(), ", ")))
		}
		store.SetSettings(model.SettingsPatch{Language: &lang})
		return a, a.notifySuccess(i18n.T(lang, i18n.LanguageSet))

	case "key":
		apiKey := strings.TrimSpace(c.Args)
		store.SetSettings(model.SettingsPatch{APIKey: &apiKey})
		return a, a.notifySuccess(a.t(i18n.KeySaved, snap.Settings.Provider))

	case "folder":
		if c.Args == "" {
			return bad(fmt.Errorf("missing directory"))
		}
		dir := config.ExpandPath(c.Args)
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(a.deps.WorkDir, dir)
		}
		store.SetOutputFolder(dir)
		return a, tea.Batch(a.savePrefs(func(u *config.UserConfig) { u.OutputFolder = dir }), a.notifySuccess(a.t(i18n.FolderSet, dir)))

	case "history":
		v, err := parseToggle(c.Args, snap.IncludeHistory)
		if err != nil {
			return bad(err)
		}
		store.SetIncludeHistory(v)
		return a, tea.Batch(a.savePrefs(func(u *config.UserConfig) { u.IncludeHistory = v }), a.notifyToggle("history", v))

	case "autosave":
		v, err := parseToggle(c.Args, snap.AutoSave)
		if err != nil {
			return bad(err)
		}
		store.SetAutoSave(v)
		return a, tea.Batch(a.savePrefs(func(u *config.UserConfig) { u.AutoSave = v }), a.notifyToggle("autosave", v))

	// Queue
	case "queue":
		if c.Args == "" {
			return bad(fmt.Errorf("missing prompt"))
		}
		if _, ok := store.AddToQueue(c.Args, snap.IncludeHistory); !ok {
			return a, a.notifyError(a.t(i18n.NothingToProcess))
		}
		return a, a.notifySuccess(a.t(i18n.QueueAdded, len(store.Queue())))

	case "unqueue":
		i, err := parseIndex(c.Args, len(snap.PromptQueue))
		if err != nil {
			return bad(err)
		}
		store.RemoveFromQueue(snap.PromptQueue[i].ID)
		return a, a.notifySuccess(a.t(i18n.QueueRemoved))

	case "clearqueue":
		store.ClearQueue()
		return a, a.notifySuccess(a.t(i18n.QueueCleared))

	case "run":
		return a, a.runAction("queue", o.ProcessQueue)

	// List
	case "item":
		if c.Args == "" {
			return bad(fmt.Errorf("missing text"))
		}
		if _, ok := store.AddListItem(c.Args); !ok {
			return bad(fmt.Errorf("empty item"))
		}
		return a, a.notifySuccess(a.t(i18n.ItemAdded, len(store.ListItems())))

	case "items":
		if c.Args == "" {
			return bad(fmt.Errorf("missing file"))
		}
		path := config.ExpandPath(c.Args)
		if !filepath.IsAbs(path) {
			path = filepath.Join(a.deps.WorkDir, path)
		}
		return a, func() tea.Msg {
			list, err := storage.ImportListItems(path)
			return itemsImportedMsg{list: list, err: err}
		}

	case "edit":
		num, text, _ := strings.Cut(c.Args, " ")
		i, err := parseIndex(num, len(snap.ListItems))
		if err != nil {
			return bad(err)
		}
		if !store.EditListItem(snap.ListItems[i].ID, text) {
			return bad(fmt.Errorf("empty item"))
		}
		return a, a.notifySuccess(a.t(i18n.ItemUpdated, i+1))

	case "del":
		i, err := parseIndex(c.Args, len(snap.ListItems))
		if err != nil {
			return bad(err)
		}
		store.RemoveListItem(snap.ListItems[i].ID)
		return a, nil

	case "up", "down":
		i, err := parseIndex(c.Args, len(snap.ListItems))
		if err != nil {
			return bad(err)
		}
		delta := -1
		if c.Name == "down" {
			delta = 1
		}
		store.MoveListItem(snap.ListItems[i].ID, delta)
		return a, nil

	case "replace":
		n := store.ReplaceListFromText(c.Args)
		return a, a.notifySuccess(a.t(i18n.ListReplaced, n))

	case "clearlist":
		store.ClearListItems()
		return a, a.notifySuccess(a.t(i18n.ListCleared))

	case "template":
		store.SetListTemplate(c.Args)
		return a, a.notifySuccess(a.t(i18n.TemplateSet))

	case "runlist":
		return a, a.runAction("list", o.ProcessListItems)

	// Output
	case "save":
		return a, a.saveLastAnswer(false)

	case "savewhole":
		return a, a.saveLastAnswer(true)

	case "copy":
		return a, a.copyLastAnswer()

	case "search":
		if c.Args == "" {
			return bad(fmt.Errorf("missing text"))
		}
		return a, a.search(c.Args)

	case "export":
		if a.deps.History == nil {
			return a, a.notifyError(a.t(i18n.HistoryDisabled))
		}
		if c.Args == "" {
			return bad(fmt.Errorf("missing file"))
		}
		path := config.ExpandPath(c.Args)
		if !filepath.IsAbs(path) {
			path = filepath.Join(a.deps.WorkDir, path)
		}
		history := a.deps.History
		lang := a.lang()
		notices := a.deps.Notices
		return a, func() tea.Msg {
			if err := history.ExportJSON(path); err != nil {
				notices.Error(err.Error())
			} else {
				notices.Success(i18n.T(lang, i18n.HistoryExported, path))
			}
			return nil
		}

	case "clear":
		if len(snap.Messages) == 0 {
			return a, nil
		}
		a.confirm = ConfirmationState{
			Active:  true,
			Title:   a.t(i18n.ConfirmClearTitle),
			Message: a.t(i18n.ConfirmClear, len(snap.Messages)),
		}
		a.confirmAction = func() tea.Cmd {
			store.ClearMessages()
			return a.notifySuccess(a.t(i18n.ConversationClear))
		}
		a.textarea.Blur()
		return a, nil

	// Control
	case "stop":
		return a, a.stopCurrent()

	case "stopqueue":
		return a, a.stopBatch()

	case "help":
		a.showHelp = true
		return a, nil

	case "quit":
		return a, a.quit()
	}

	return a, a.notifyError(a.t(i18n.UnknownCommand, "/"+c.Name))
}

func (a AppView) savePrefs(fn func(*config.UserConfig)) tea.Cmd {
	if a.deps.SavePrefs == nil {
		return nil
	}
	save := a.deps.SavePrefs
	notices := a.deps.Notices
	lang := a.lang()
	return func() tea.Msg {
		if err := save(fn); err != nil {
			notices.Error(i18n.T(lang, i18n.SettingsSaveError, err))
		}
		return nil
	}
}

func (a AppView) notifyToggle(name string, on bool) tea.Cmd {
	if on {
		return a.notifySuccess(a.t(i18n.ToggleOn, name))
	}
	return a.notifySuccess(a.t(i18n.ToggleOff, name))
}

// search looks the query up in the stored history, or in the visible
// conversation when history is not stored.
func (a AppView) search(query string) tea.Cmd {
	if a.deps.History != nil {
		history := a.deps.History
		return func() tea.Msg {
			matches, err := history.Search(query, 50)
			return searchResultsMsg{query: query, matches: matches, err: err}
		}
	}

	msgs := a.snap.Messages
	return func() tea.Msg {
		needle := strings.ToLower(query)
		var matches []storage.HistoryMatch
		for i := len(msgs) - 1; i >= 0; i-- {
			if strings.Contains(strings.ToLower(msgs[i].Content), needle) {
				matches = append(matches, storage.HistoryMatch{Message: msgs[i], Preview: truncate(strings.TrimSpace(msgs[i].Content), 100)})
			}
		}
		return searchResultsMsg{query: query, matches: matches}
	}
}
