package engine

import (
	"fmt"
	"sync"
	"time"

	"mdpilot/config"
	"mdpilot/fences"
	"mdpilot/i18n"
	"mdpilot/model"
	"mdpilot/state"
	"mdpilot/storage"
)

// SaveFunc writes content to folder/name and returns the saved path.
type SaveFunc func(folder, name, content string) (string, error)

// AutoSaver persists the documents extracted from completed answers.
type AutoSaver struct {
	store    *state.Store
	notifier model.Notifier
	save     SaveFunc
	now      func() time.Time

	mu        sync.Mutex
	lastStamp int64
}

// NewAutoSaver returns an AutoSaver. A nil save uses storage.SaveMarkdownFile.
func NewAutoSaver(store *state.Store, notifier model.Notifier, save SaveFunc) *AutoSaver {
	if save == nil {
		save = storage.SaveMarkdownFile
	}
	if notifier == nil {
		notifier = model.NotifierFuncs{}
	}
	return &AutoSaver{store: store, notifier: notifier, save: save, now: time.Now}
}

// Save stores every block of content when auto-save is on and an output
// folder is set, and returns the number of files written. Otherwise it does
// nothing.
func (a *AutoSaver) Save(content string) int {
	snap := a.store.Snapshot()
	if !snap.AutoSave || snap.OutputFolder == "" {
		return 0
	}
	return a.saveBlocks(snap.OutputFolder, snap.Settings.Language, content)
}

// SaveBlocks stores every block of content regardless of the auto-save
// toggle.
func (a *AutoSaver) SaveBlocks(content string) (int, error) {
	snap := a.store.Snapshot()
	if snap.OutputFolder == "" {
		a.notifier.Error(i18n.T(snap.Settings.Language, i18n.NoOutputFolder))
		return 0, storage.ErrNoFolder
	}
	if !fences.HasBlocks(content) {
		a.notifier.Error(i18n.T(snap.Settings.Language, i18n.NoBlocks))
		return 0, nil
	}
	return a.saveBlocks(snap.OutputFolder, snap.Settings.Language, content), nil
}

// SaveWhole stores the complete answer as result-<unix-ms>.md.
func (a *AutoSaver) SaveWhole(content string) (string, error) {
	snap := a.store.Snapshot()
	lang := snap.Settings.Language
	if snap.OutputFolder == "" {
		a.notifier.Error(i18n.T(lang, i18n.NoOutputFolder))
		return "", storage.ErrNoFolder
	}

	name := fmt.Sprintf("result-%d.md", a.stamp())
	path, err := a.save(snap.OutputFolder, name, content)
	if err != nil {
		a.notifier.Error(i18n.T(lang, i18n.FileSaveError, name, err))
		return "", err
	}
	a.notifier.Success(i18n.T(lang, i18n.FileSaved, path))
	return path, nil
}

func (a *AutoSaver) saveBlocks(folder, lang, content string) int {
	saved := 0
	for _, block := range fences.Extract(content) {
		name := block.Filename
		if storage.SanitizeFilename(name) == "" {
			name = fmt.Sprintf("document-%d.md", a.stamp())
		}

		path, err := a.save(folder, name, block.Content)
		if err != nil {
			if config.DebugLog != nil {
				config.DebugLog.Debugf("[autosave] %s: %v", name, err)
			}
			a.notifier.Error(i18n.T(lang, i18n.FileSaveError, name, err))
			continue
		}
		saved++
		a.notifier.Success(i18n.T(lang, i18n.FileSaved, path))
	}
	return saved
}

// stamp returns the current unix-ms time, bumped so two fallback names never
// collide.
func (a *AutoSaver) stamp() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	ms := a.now().UnixMilli()
	if ms <= a.lastStamp {
		ms = a.lastStamp + 1
	}
	a.lastStamp = ms
	return ms
}
