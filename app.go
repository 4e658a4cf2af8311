package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"mdpilot/config"
	"mdpilot/engine"
	"mdpilot/model"
	"mdpilot/provider"
	"mdpilot/state"
	"mdpilot/storage"
	"mdpilot/ui"
)

// restoreLimit caps the number of messages reloaded from history.db.
const restoreLimit = 500

var errCancelled = errors.New("cancelled")

// app wires configuration, credentials, the shared store and the engine.
type app struct {
	cfg     *config.Config
	dataDir string

	credMu sync.Mutex
	creds  *config.CredentialStore

	store   *state.Store
	history *storage.HistoryStore
	saver   *engine.AutoSaver
	orch    *engine.Orchestrator
}

// appOptions controls how openApp builds the app.
type appOptions struct {
	Notifier    model.Notifier
	Interactive bool
	Overrides   model.SettingsPatch
	Prefs       prefOverrides
}

// prefOverrides are one-off preference values from the command line.
type prefOverrides struct {
	OutputFolder   *string
	IncludeHistory *bool
	AutoSave       *bool
}

func openApp(cfg *config.Config, opts appOptions) (*app, error) {
	a := &app{cfg: cfg, dataDir: cfg.DataDir()}

	creds, err := openCredentials(cfg, opts.Interactive)
	if err != nil {
		return nil, err
	}
	a.creds = creds

	history, err := storage.NewHistoryStore(a.dataDir)
	if err != nil {
		// history is an extra; the app works without it
		if config.DebugLog != nil {
			config.DebugLog.Warnf("history disabled: %v", err)
		}
	} else {
		a.history = history
	}

	settings := opts.Overrides.Apply(cfg.User.Settings())
	settings.APIKey = cfg.ResolveAPIKey(creds, settings.Provider)
	if opts.Overrides.APIKey != nil {
		settings.APIKey = *opts.Overrides.APIKey
	}

	a.store = state.New(settings)
	a.store.SetOutputFolder(config.ExpandPath(deref(opts.Prefs.OutputFolder, cfg.User.OutputFolder)))
	a.store.SetIncludeHistory(deref(opts.Prefs.IncludeHistory, cfg.User.IncludeHistory))
	a.store.SetAutoSave(deref(opts.Prefs.AutoSave, cfg.User.AutoSave))

	if a.history != nil && cfg.User.RestoreHistory {
		msgs, err := a.history.Load(restoreLimit)
		if err != nil {
			if config.DebugLog != nil {
				config.DebugLog.Warnf("failed to restore history: %v", err)
			}
		} else {
			a.store.RestoreMessages(msgs)
		}
	}

	a.registerHooks()

	cooldown := cfg.User.CooldownSeconds
	if cooldown <= 0 {
		cooldown = engine.DefaultCooldownSeconds
	}
	a.saver = engine.NewAutoSaver(a.store, opts.Notifier, nil)
	a.orch = engine.New(engine.Options{
		Store:          a.store,
		NewProvider:    provider.ForSettings(cfg.User.API.BaseURLs),
		RequiresAPIKey: provider.RequiresAPIKey,
		Notifier:       opts.Notifier,
		Saver:          a.saver,
		Pauser:         engine.NewCooldown(cooldown, time.Second, a.store.SetCooldownSeconds),
	})

	return a, nil
}

// registerHooks persists settings, keys and the conversation as the store
// changes.
func (a *app) registerHooks() {
	a.store.OnSettings(func(s model.Settings) {
		if err := config.SaveSettings(a.dataDir, s); err != nil && config.DebugLog != nil {
			config.DebugLog.Errorf("failed to save settings: %v", err)
		}
		// a key from MDPILOT_API_KEY is never written to disk
		if a.cfg.APIKey != "" {
			return
		}
		if err := a.saveKey(s.Provider, s.APIKey); err != nil && config.DebugLog != nil {
			config.DebugLog.Errorf("failed to save credentials: %v", err)
		}
	})

	if a.history == nil {
		return
	}
	a.store.OnMessage(func(msg model.DisplayMessage) {
		if err := a.history.Append(msg); err != nil && config.DebugLog != nil {
			config.DebugLog.Errorf("failed to store message: %v", err)
		}
	})
	a.store.OnClear(func() {
		if err := a.history.Clear(); err != nil && config.DebugLog != nil {
			config.DebugLog.Errorf("failed to clear history: %v", err)
		}
	})
}

// saveKey stores apiKey for providerID when it differs from the stored one.
func (a *app) saveKey(providerID, apiKey string) error {
	a.credMu.Lock()
	defer a.credMu.Unlock()
	if a.creds.Get(providerID) == apiKey {
		return nil
	}
	a.creds.Set(providerID, apiKey)
	return a.creds.Save(a.dataDir)
}

// apiKeyFor returns the key to use after switching to providerID.
func (a *app) apiKeyFor(providerID string) string {
	a.credMu.Lock()
	defer a.credMu.Unlock()
	return a.cfg.ResolveAPIKey(a.creds, providerID)
}

// listModels lists the models of the provider selected by settings.
func (a *app) listModels(ctx context.Context, settings model.Settings) ([]model.ModelInfo, error) {
	if settings.APIKey == "" && provider.RequiresAPIKey(settings.Provider) {
		return nil, fmt.Errorf("no API key for %s", settings.Provider)
	}
	p, err := provider.ForSettings(a.cfg.User.API.BaseURLs)(settings)
	if err != nil {
		return nil, err
	}
	return p.ListModels(ctx)
}

func (a *app) savePrefs(fn func(*config.UserConfig)) error {
	return config.UpdateUserConfig(a.dataDir, fn)
}

func (a *app) Close() {
	a.orch.StopQueue()
	if a.history != nil {
		if err := a.history.Close(); err != nil && config.DebugLog != nil {
			config.DebugLog.Warnf("failed to close history: %v", err)
		}
	}
}

// openCredentials loads the credential store. An encrypted SSH key needs a
// passphrase: from MDPILOT_SSH_PASSPHRASE, or asked for when interactive.
func openCredentials(cfg *config.Config, interactive bool) (*config.CredentialStore, error) {
	sec := cfg.User.Security
	creds := config.NewCredentialStoreFor(sec)
	if sec.Method != config.SecuritySSHKey {
		return creds, creds.Load(cfg.DataDir())
	}

	keyPath := config.ExpandPath(sec.SSHKeyPath)
	encrypted, err := config.IsSSHKeyEncrypted(keyPath)
	if err != nil {
		return nil, err
	}
	if !encrypted {
		return creds, creds.Load(cfg.DataDir())
	}

	if pass := os.Getenv("MDPILOT_SSH_PASSPHRASE"); pass != "" {
		creds.SetPassphrase(pass)
		return creds, creds.Load(cfg.DataDir())
	}
	if !interactive {
		return nil, fmt.Errorf("SSH key %s is encrypted; set MDPILOT_SSH_PASSPHRASE", keyPath)
	}

	modal := ui.NewPassphraseModal(keyPath)
	modal.Check = func(passphrase string) error {
		if _, err := config.LoadSSHPrivateKeyWithPassphrase(keyPath, passphrase); err != nil {
			return err
		}
		creds.SetPassphrase(passphrase)
		return creds.Load(cfg.DataDir())
	}
	final, err := tea.NewProgram(modal, tea.WithAltScreen()).Run()
	if err != nil {
		return nil, err
	}
	if m, ok := final.(ui.PassphraseModal); !ok || m.Cancelled() {
		return nil, errCancelled
	}
	return creds, nil
}

func deref[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}
