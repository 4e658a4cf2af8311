// Package engine turns user actions into ordered sequences of streaming
// calls: single sends, per-file batches, queued prompts and list batches.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"mdpilot/config"
	"mdpilot/i18n"
	"mdpilot/model"
	"mdpilot/prompt"
	"mdpilot/state"
)

var (
	// ErrNoAPIKey rejects an action when the provider needs a key and none is set.
	ErrNoAPIKey = errors.New("no API key configured")
	// ErrBusy rejects an action while another one is running.
	ErrBusy = errors.New("another request is running")
	// ErrNothingToProcess rejects an empty command, queue or list.
	ErrNothingToProcess = errors.New("nothing to process")
)

// ProviderFactory builds the transport for the current settings.
type ProviderFactory func(settings model.Settings) (model.Provider, error)

// Options configures an Orchestrator. Store and NewProvider are required.
type Options struct {
	Store       *state.Store
	NewProvider ProviderFactory
	// RequiresAPIKey reports whether a provider id needs an API key. Nil means
	// every provider does.
	RequiresAPIKey func(provider string) bool
	Notifier       model.Notifier
	Saver          *AutoSaver
	// Pauser runs between units of a batch. Nil uses a 20 second Cooldown
	// publishing to the store.
	Pauser        Pauser
	FlushInterval time.Duration
}

// Orchestrator runs one action at a time against the shared store.
type Orchestrator struct {
	store       *state.Store
	newProvider ProviderFactory
	requiresKey func(string) bool
	notifier    model.Notifier
	saver       *AutoSaver
	pauser      Pauser
	flush       time.Duration

	running    atomic.Bool
	callAbort  atomic.Bool
	batchAbort atomic.Bool

	mu          sync.Mutex
	session     *Session
	cancelBatch context.CancelFunc
}

// New returns an Orchestrator.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		store:       opts.Store,
		newProvider: opts.NewProvider,
		requiresKey: opts.RequiresAPIKey,
		notifier:    opts.Notifier,
		saver:       opts.Saver,
		pauser:      opts.Pauser,
		flush:       opts.FlushInterval,
	}
	if o.requiresKey == nil {
		o.requiresKey = func(string) bool { return true }
	}
	if o.notifier == nil {
		o.notifier = model.NotifierFuncs{}
	}
	if o.saver == nil {
		o.saver = NewAutoSaver(o.store, o.notifier, nil)
	}
	if o.pauser == nil {
		o.pauser = NewCooldown(DefaultCooldownSeconds, time.Second, o.store.SetCooldownSeconds)
	}
	return o
}

// Busy reports whether an action is running.
func (o *Orchestrator) Busy() bool {
	return o.running.Load()
}

// unit is one API call of an action.
type unit struct {
	command        string
	includeHistory bool
	files          []model.MarkdownFile
	history        []model.DisplayMessage
	mode           model.Mode
	assoc          model.Association
}

// Send runs command against the attached files. With two or more files it
// runs one call per file, each scoped to that file's own history.
func (o *Orchestrator) Send(ctx context.Context, command string) error {
	command = strings.TrimSpace(command)
	if command == "" {
		return ErrNothingToProcess
	}
	if !o.running.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer o.running.Store(false)
	o.begin()

	if err := o.checkAPIKey(o.store.Settings()); err != nil {
		return err
	}

	snap := o.store.Snapshot()
	mode := snap.Settings.Mode
	files := attachedFiles(snap)

	if len(files) <= 1 {
		content, ok := o.runUnit(ctx, unit{
			command:        command,
			includeHistory: snap.IncludeHistory,
			files:          files,
			history:        snap.Messages,
			mode:           mode,
		})
		if ok {
			o.saver.Save(content)
		}
		return nil
	}

	return o.runBatch(ctx, "send", func(ctx context.Context) {
		for i, f := range files {
			if o.batchAborted(ctx) {
				return
			}
			o.store.SetFileProgress(&model.Progress{Current: i + 1, Total: len(files), Label: f.Name})
			if i > 0 {
				o.pauser.Run(ctx, &o.batchAbort)
			}
			if o.batchAborted(ctx) {
				return
			}
			o.runAndSave(ctx, unit{
				command:        command,
				includeHistory: snap.IncludeHistory,
				files:          []model.MarkdownFile{f},
				history:        o.store.MessagesForFile(f.Path),
				mode:           mode,
				assoc:          model.Association{File: f.Path},
			})
		}
	})
}

// ProcessQueue runs every queued prompt. With two or more attached files it
// runs the whole queue against each file in turn. The queue is left as is.
func (o *Orchestrator) ProcessQueue(ctx context.Context) error {
	if len(o.store.Queue()) == 0 {
		return ErrNothingToProcess
	}
	if !o.running.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer o.running.Store(false)
	o.begin()

	if err := o.checkAPIKey(o.store.Settings()); err != nil {
		return err
	}

	snap := o.store.Snapshot()
	prompts := snap.PromptQueue
	files := attachedFiles(snap)
	mode := snap.Settings.Mode

	if config.DebugLog != nil {
		config.DebugLog.Debugf("[queue] start: %d prompts, %d files", len(prompts), len(files))
	}

	return o.runBatch(ctx, "queue", func(ctx context.Context) {
		if len(files) < 2 {
			for j, p := range prompts {
				if o.batchAborted(ctx) {
					return
				}
				if j > 0 {
					o.pauser.Run(ctx, &o.batchAbort)
				}
				if o.batchAborted(ctx) {
					return
				}
				o.store.SetQueueProgress(&model.Progress{Current: j + 1, Total: len(prompts), Label: p.Command})
				o.runAndSave(ctx, unit{
					command:        p.Command,
					includeHistory: p.IncludeHistory,
					files:          files,
					history:        o.store.Messages(),
					mode:           mode,
				})
			}
			return
		}

		first := true
		for i, f := range files {
			o.store.SetFileProgress(&model.Progress{Current: i + 1, Total: len(files), Label: f.Name})
			for j, p := range prompts {
				if o.batchAborted(ctx) {
					return
				}
				if !first {
					o.pauser.Run(ctx, &o.batchAbort)
				}
				if o.batchAborted(ctx) {
					return
				}
				first = false
				o.store.SetQueueProgress(&model.Progress{Current: j + 1, Total: len(prompts), Label: p.Command})
				o.runAndSave(ctx, unit{
					command:        p.Command,
					includeHistory: p.IncludeHistory,
					files:          []model.MarkdownFile{f},
					history:        o.store.MessagesForFile(f.Path),
					mode:           mode,
					assoc:          model.Association{File: f.Path},
				})
			}
		}
	})
}

// ProcessListItems runs the list template once per list item, each call
// scoped to that item's own history.
func (o *Orchestrator) ProcessListItems(ctx context.Context) error {
	if len(o.store.ListItems()) == 0 {
		return ErrNothingToProcess
	}
	if !o.running.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer o.running.Store(false)
	o.begin()

	if err := o.checkAPIKey(o.store.Settings()); err != nil {
		return err
	}

	snap := o.store.Snapshot()
	items := snap.ListItems
	template := snap.ListTemplate

	return o.runBatch(ctx, "list", func(ctx context.Context) {
		for i, item := range items {
			if o.batchAborted(ctx) {
				return
			}
			o.store.SetListProgress(&model.Progress{Current: i + 1, Total: len(items), Label: item.Content})
			if i > 0 {
				o.pauser.Run(ctx, &o.batchAbort)
			}
			if o.batchAborted(ctx) {
				return
			}
			o.runAndSave(ctx, unit{
				command:        prompt.ApplyTemplate(template, item.Content),
				includeHistory: snap.IncludeHistory,
				history:        o.store.MessagesForListItem(item.ID),
				mode:           model.ModeList,
				assoc:          model.Association{ListItem: item.ID},
			})
		}
	})
}

// Stop cuts the current call short. A running batch continues with its next
// unit.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	o.callAbort.Store(true)
	sess := o.session
	o.mu.Unlock()

	if sess != nil {
		sess.Stop()
	} else {
		o.store.SetStreaming(false)
	}
}

// StopQueue halts the running batch after cutting the current call short.
func (o *Orchestrator) StopQueue() {
	o.batchAbort.Store(true)
	o.Stop()

	o.mu.Lock()
	cancel := o.cancelBatch
	o.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	o.store.ClearBatch()
}

// runBatch runs loop with the processing flag set. It always clears progress,
// cooldown and the flag, and turns a panic into an error ending this batch.
func (o *Orchestrator) runBatch(ctx context.Context, name string, loop func(ctx context.Context)) (err error) {
	ctx, cancel := context.WithCancel(ctx)

	o.mu.Lock()
	o.cancelBatch = cancel
	o.mu.Unlock()
	o.store.SetProcessingQueue(true)

	defer func() {
		if r := recover(); r != nil {
			if config.DebugLog != nil {
				config.DebugLog.Debugf("[%s] batch crashed: %v", name, r)
			}
			o.stopSession()
			o.notifier.Error(i18n.T(o.store.Settings().Language, i18n.BatchFailed, r))
			err = fmt.Errorf("%s batch: %v", name, r)
		}

		cancel()
		o.mu.Lock()
		o.cancelBatch = nil
		o.mu.Unlock()
		o.store.ClearBatch()

		if config.DebugLog != nil {
			config.DebugLog.Debugf("[%s] end, aborted=%v", name, o.batchAbort.Load())
		}
	}()

	loop(ctx)
	return nil
}

// begin clears the stop flags left by an earlier action. Stops issued from
// here on are honored by the next call to open.
func (o *Orchestrator) begin() {
	o.callAbort.Store(false)
	o.batchAbort.Store(false)
}

func (o *Orchestrator) batchAborted(ctx context.Context) bool {
	return o.batchAbort.Load() || ctx.Err() != nil
}

func (o *Orchestrator) runAndSave(ctx context.Context, u unit) {
	if content, ok := o.runUnit(ctx, u); ok {
		o.saver.Save(content)
	}
}

// runUnit performs one call and reports the completed content. Failures are
// notified and resolve to ok == false. A stop that lands before the session
// opens skips the unit without adding any message, and a stop is consumed by
// the unit it reached.
func (o *Orchestrator) runUnit(ctx context.Context, u unit) (string, bool) {
	defer func() {
		o.mu.Lock()
		o.session = nil
		o.callAbort.Store(false)
		o.mu.Unlock()
	}()

	settings := o.store.Settings()
	if err := o.checkAPIKey(settings); err != nil {
		return "", false
	}

	prov, err := o.newProvider(settings)
	if err != nil {
		o.notifier.Error(i18n.T(settings.Language, i18n.StreamError, err.Error()))
		return "", false
	}

	messages := prompt.Build(u.command, u.files, u.history, u.includeHistory, u.mode)
	if config.DebugLog != nil {
		chars, tokens := prompt.Stats(messages)
		config.DebugLog.Debugf("[unit] provider=%s model=%s messages=%d chars=%d est_tokens=%d files=%d history=%d",
			prov.Name(), settings.Model, len(messages), chars, tokens, len(u.files), len(u.history))
	}

	temperature := settings.Temperature

	o.mu.Lock()
	if o.callAbort.Load() || o.batchAborted(ctx) {
		o.mu.Unlock()
		if config.DebugLog != nil {
			config.DebugLog.Debugf("[unit] stopped before opening")
		}
		return "", false
	}
	o.store.AddUserMessage(u.command, u.assoc)
	sess := OpenSession(ctx, SessionConfig{
		Provider: prov,
		Request: model.ChatRequest{
			Model:       settings.Model,
			Messages:    messages,
			Temperature: &temperature,
		},
		Store:         o.store,
		Notifier:      o.notifier,
		Association:   u.assoc,
		FlushInterval: o.flush,
	})
	o.session = sess
	o.mu.Unlock()

	res := sess.Wait()

	if config.DebugLog != nil {
		config.DebugLog.Debugf("[unit] %s, content=%d chars", res.Status, len(res.Content))
	}
	if res.Status != StatusCompleted || res.Content == "" {
		return "", false
	}
	return res.Content, true
}

func (o *Orchestrator) stopSession() {
	o.mu.Lock()
	sess := o.session
	o.session = nil
	o.mu.Unlock()
	if sess != nil {
		sess.Stop()
	}
}

func (o *Orchestrator) checkAPIKey(settings model.Settings) error {
	if settings.APIKey == "" && o.requiresKey(settings.Provider) {
		o.notifier.Error(i18n.T(settings.Language, i18n.NoAPIKey))
		return ErrNoAPIKey
	}
	return nil
}

// attachedFiles returns the files sent with a prompt: the loaded files in
// files mode, none otherwise.
func attachedFiles(snap state.Snapshot) []model.MarkdownFile {
	if snap.Settings.Mode != model.ModeFiles {
		return nil
	}
	return snap.Files
}
