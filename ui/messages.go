package ui

import (
	"mdpilot/model"
	"mdpilot/storage"
)

type storeChangedMsg struct{}

type noticeMsg struct {
	notice Notice
}

type noticeExpiredMsg struct{}

// actionDoneMsg reports the end of an orchestrator action run from a tea.Cmd.
type actionDoneMsg struct {
	name string
	err  error
}

type modelsLoadedMsg struct {
	models []model.ModelInfo
	err    error
	show   bool
}

type filesLoadedMsg struct {
	files []model.MarkdownFile
	err   error
}

type itemsImportedMsg struct {
	list storage.ImportedList
	err  error
}

type searchResultsMsg struct {
	query   string
	matches []storage.HistoryMatch
	err     error
}

type pickerEntriesMsg struct {
	entries []string
	err     error
}

type markdownRenderedMsg struct {
	id       string
	width    int
	rendered string
}
