package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"mdpilot/config"
	"mdpilot/model"
	"mdpilot/storage"
	"mdpilot/ui"
)

const Version = "v0.1.0"

// Flags shared by every command. Unset flags leave the configured value.
var (
	flagProvider    string
	flagModel       string
	flagMode        string
	flagLang        string
	flagTemperature float64
	flagFolder      string
	flagHistory     bool
	flagAutoSave    bool
)

var rootCmd = &cobra.Command{
	Use:   "mdpilot",
	Short: "Prompt orchestration over Markdown files",
	Long: `mdpilot sends prompts about Markdown files to an LLM and saves the
documents it returns.

Run without arguments to start the terminal UI. The send, queue and list
commands run the same orchestrations headless and stream to stdout.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	RunE:          runTUI,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagProvider, "provider", "", "provider ID (perplexity, openai, openrouter, anthropic, ollama)")
	pf.StringVarP(&flagModel, "model", "m", "", "model name")
	pf.StringVar(&flagMode, "mode", "", "prompt mode (files, text, list)")
	pf.StringVar(&flagLang, "lang", "", "language of answers and messages (pl, en)")
	pf.Float64Var(&flagTemperature, "temperature", 0, "sampling temperature, 0..2")
	pf.StringVarP(&flagFolder, "output", "o", "", "output folder for saved documents")
	pf.BoolVar(&flagHistory, "history", false, "send earlier question/answer pairs")
	pf.BoolVar(&flagAutoSave, "autosave", true, "save documents from every answer")

	rootCmd.AddCommand(sendCmd, queueCmd, listCmd, modelsCmd, setKeyCmd)
}

func main() {
	err := rootCmd.Execute()
	config.CloseDebugLog()
	if err != nil && !errors.Is(err, errCancelled) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads the configuration and starts the debug log.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	config.InitDebugLog(cfg.DataDir())
	return cfg, nil
}

// settingsOverrides turns the flags the user set into a settings patch.
func settingsOverrides(cmd *cobra.Command) (model.SettingsPatch, error) {
	var patch model.SettingsPatch
	flags := cmd.Flags()

	if flags.Changed("provider") {
		id := strings.ToLower(flagProvider)
		patch.Provider = &id
	}
	if flags.Changed("model") {
		patch.Model = &flagModel
	}
	if flags.Changed("mode") {
		mode, err := model.ParseMode(strings.ToLower(flagMode))
		if err != nil {
			return patch, err
		}
		patch.Mode = &mode
	}
	if flags.Changed("lang") {
		lang := strings.ToLower(flagLang)
		patch.Language = &lang
	}
	if flags.Changed("temperature") {
		if flagTemperature < 0 || flagTemperature > 2 {
			return patch, fmt.Errorf("temperature must be between 0 and 2")
		}
		patch.Temperature = &flagTemperature
	}
	return patch, nil
}

func prefsFromFlags(cmd *cobra.Command) prefOverrides {
	var p prefOverrides
	flags := cmd.Flags()
	if flags.Changed("output") {
		p.OutputFolder = &flagFolder
	}
	if flags.Changed("history") {
		p.IncludeHistory = &flagHistory
	}
	if flags.Changed("autosave") {
		p.AutoSave = &flagAutoSave
	}
	return p
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		showError("Configuration Error", err.Error())
		return err
	}

	lock := storage.NewInstanceLock(cfg.DataDir())
	locked, pid, err := lock.Check()
	if err != nil {
		return err
	}
	if locked {
		final, err := tea.NewProgram(ui.NewInstanceLockedModal(pid, cfg.DataDir()), tea.WithAltScreen()).Run()
		if err != nil {
			return err
		}
		if m, ok := final.(ui.InstanceLockedModal); !ok || !m.ForceDelete() {
			return errCancelled
		}
	}
	if err := lock.Acquire(); err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil && config.DebugLog != nil {
			config.DebugLog.Warnf("failed to release instance lock: %v", err)
		}
	}()

	overrides, err := settingsOverrides(cmd)
	if err != nil {
		return err
	}

	notices := ui.NewChannelNotifier(64)
	a, err := openApp(cfg, appOptions{
		Notifier:    notices,
		Interactive: true,
		Overrides:   overrides,
		Prefs:       prefsFromFlags(cmd),
	})
	if err != nil {
		if !errors.Is(err, errCancelled) {
			showError("Startup Error", err.Error())
		}
		return err
	}
	defer a.Close()

	workDir, err := os.Getwd()
	if err != nil {
		workDir = "."
	}

	view := ui.NewAppView(ui.Deps{
		Context:         cmd.Context(),
		Store:           a.store,
		Orchestrator:    a.orch,
		Saver:           a.saver,
		Notices:         notices,
		History:         a.history,
		ListModels:      a.listModels,
		APIKeyFor:       a.apiKeyFor,
		SavePrefs:       a.savePrefs,
		CooldownSeconds: cfg.User.CooldownSeconds,
		WorkDir:         workDir,
		Version:         Version,
	})

	if _, err := tea.NewProgram(view, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("error running mdpilot: %w", err)
	}
	return nil
}

func showError(title, msg string) {
	if _, err := tea.NewProgram(ui.NewErrorModal(title, msg), tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
}
