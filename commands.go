package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"mdpilot/config"
	"mdpilot/engine"
	"mdpilot/model"
	"mdpilot/provider"
	"mdpilot/storage"
	"mdpilot/ui"
)

var (
	flagFiles    []string
	flagPrompts  []string
	flagItems    []string
	flagItemFile string
	flagTemplate string
)

var sendCmd = &cobra.Command{
	Use:   "send [prompt]",
	Short: "Send one prompt, once per attached file",
	Long: `Send a prompt. With two or more files attached (-f) the prompt runs once
per file, with a cooldown between calls. Without an argument the prompt is
read from stdin.`,
	RunE: runSend,
}

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Run a queue of prompts",
	Long: `Run every prompt given with -p in order. With two or more files attached
the whole queue runs against each file in turn.`,
	RunE: runQueue,
}

var listCmd = &cobra.Command{
	Use:   "list [template]",
	Short: "Run a template once per list item",
	Long: `Run a template once per list item. {{item}} in the template is replaced
with the item; without it the item is appended. Items come from -i flags and
from a .txt, .md, .json or .yaml file given with --items.`,
	RunE: runList,
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models of the selected provider",
	Args:  cobra.NoArgs,
	RunE:  runModels,
}

var setKeyCmd = &cobra.Command{
	Use:   "set-key <provider> [key]",
	Short: "Store the API key of a provider",
	Long: `Store the API key of a provider in the credential store. Without a key
argument the key is read from stdin. An empty key removes the stored one.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSetKey,
}

func init() {
	for _, c := range []*cobra.Command{sendCmd, queueCmd} {
		c.Flags().StringArrayVarP(&flagFiles, "file", "f", nil, "Markdown file, directory or glob to attach (repeatable)")
	}
	queueCmd.Flags().StringArrayVarP(&flagPrompts, "prompt", "p", nil, "prompt to queue (repeatable)")
	listCmd.Flags().StringArrayVarP(&flagItems, "item", "i", nil, "list item (repeatable)")
	listCmd.Flags().StringVar(&flagItemFile, "items", "", "file with list items")
	listCmd.Flags().StringVarP(&flagTemplate, "template", "t", "", "template file")
}

// headless is an app driven from the command line.
type headless struct {
	*app
	ctx    context.Context
	cancel context.CancelFunc
}

func openHeadless(cmd *cobra.Command, mode *model.Mode) (*headless, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	overrides, err := settingsOverrides(cmd)
	if err != nil {
		return nil, err
	}
	if mode != nil {
		overrides.Mode = mode
	}

	a, err := openApp(cfg, appOptions{
		Notifier:  &consoleNotifier{out: cmd.ErrOrStderr()},
		Overrides: overrides,
		Prefs:     prefsFromFlags(cmd),
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	return &headless{app: a, ctx: ctx, cancel: cancel}, nil
}

// run executes action while streaming the store to the terminal.
func (h *headless) run(cmd *cobra.Command, action func(ctx context.Context) error) error {
	defer h.cancel()
	defer h.Close()

	printer := newStreamPrinter(h.store, cmd.OutOrStdout(), cmd.ErrOrStderr())
	done := make(chan struct{})
	go printer.Run(done)
	defer close(done)

	err := action(h.ctx)
	if errors.Is(err, engine.ErrNoAPIKey) {
		return fmt.Errorf("no API key for %s; run mdpilot set-key %s", h.store.Settings().Provider, h.store.Settings().Provider)
	}
	return err
}

// attach loads the files named by flagFiles into the store.
func (h *headless) attach(ctx context.Context) error {
	if len(flagFiles) == 0 {
		return nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	paths, err := ui.ExpandPaths(flagFiles, wd)
	if err != nil {
		return err
	}
	files, err := storage.ReadMarkdownFiles(ctx, paths)
	if err != nil {
		return err
	}
	h.store.AddFiles(files)
	return nil
}

func runSend(cmd *cobra.Command, args []string) error {
	prompt := strings.Join(args, " ")
	if prompt == "" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return err
		}
		prompt = string(data)
	}

	var mode *model.Mode
	if len(flagFiles) == 0 && !cmd.Flags().Changed("mode") {
		text := model.ModeText
		mode = &text
	}
	h, err := openHeadless(cmd, mode)
	if err != nil {
		return err
	}
	if err := h.attach(h.ctx); err != nil {
		h.Close()
		h.cancel()
		return err
	}
	return h.run(cmd, func(ctx context.Context) error {
		return h.orch.Send(ctx, prompt)
	})
}

func runQueue(cmd *cobra.Command, args []string) error {
	if len(flagPrompts) == 0 {
		return fmt.Errorf("no prompts; add them with -p")
	}

	var mode *model.Mode
	if len(flagFiles) == 0 && !cmd.Flags().Changed("mode") {
		text := model.ModeText
		mode = &text
	}
	h, err := openHeadless(cmd, mode)
	if err != nil {
		return err
	}
	if err := h.attach(h.ctx); err != nil {
		h.Close()
		h.cancel()
		return err
	}
	includeHistory := h.store.Snapshot().IncludeHistory
	for _, p := range flagPrompts {
		h.store.AddToQueue(p, includeHistory)
	}
	return h.run(cmd, h.orch.ProcessQueue)
}

func runList(cmd *cobra.Command, args []string) error {
	var (
		items    = append([]string(nil), flagItems...)
		template = strings.Join(args, " ")
	)

	// the item file and the template file are independent reads
	var g errgroup.Group
	var imported storage.ImportedList
	if flagItemFile != "" {
		g.Go(func() error {
			var err error
			imported, err = storage.ImportListItems(config.ExpandPath(flagItemFile))
			return err
		})
	}
	var templateFile string
	if flagTemplate != "" {
		g.Go(func() error {
			data, err := os.ReadFile(config.ExpandPath(flagTemplate))
			templateFile = string(data)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	items = append(items, imported.Items...)
	if template == "" {
		template = templateFile
	}
	if template == "" {
		template = imported.Template
	}

	mode := model.ModeList
	h, err := openHeadless(cmd, &mode)
	if err != nil {
		return err
	}
	if h.store.AddListItems(items) == 0 {
		h.Close()
		h.cancel()
		return fmt.Errorf("no list items; add them with -i or --items")
	}
	h.store.SetListTemplate(template)
	return h.run(cmd, h.orch.ProcessListItems)
}

func runModels(cmd *cobra.Command, args []string) error {
	h, err := openHeadless(cmd, nil)
	if err != nil {
		return err
	}
	defer h.cancel()
	defer h.Close()

	settings := h.store.Settings()
	models, err := h.listModels(h.ctx, settings)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tPROVIDER\tSIZE\t")
	for _, m := range models {
		current := ""
		if m.Name == settings.Model {
			current = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.Name, m.Provider, ui.FormatSize(m.Size), current)
	}
	return w.Flush()
}

func runSetKey(cmd *cobra.Command, args []string) error {
	id := strings.ToLower(args[0])
	if !provider.RequiresAPIKey(id) || !isKnownProvider(id) {
		return fmt.Errorf("%s takes no API key; choose one of %s", args[0], strings.Join(keyedProviders(), ", "))
	}

	var key string
	if len(args) == 2 {
		key = args[1]
	} else {
		var err error
		if key, err = readSecret(cmd, "API key for "+id+": "); err != nil {
			return err
		}
	}
	key = strings.TrimSpace(key)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	creds, err := openCredentials(cfg, true)
	if err != nil {
		return err
	}
	creds.Set(id, key)
	if err := creds.Save(cfg.DataDir()); err != nil {
		return err
	}

	if key == "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Removed the API key for %s\n", id)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Saved the API key for %s (%s)\n", id, string(creds.Method()))
	}
	return nil
}

// readSecret reads one line from stdin, without echo on a terminal.
func readSecret(cmd *cobra.Command, prompt string) (string, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), prompt)
		data, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		return string(data), err
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return line, nil
}

func isKnownProvider(id string) bool {
	for _, p := range provider.IDs() {
		if p == id {
			return true
		}
	}
	return false
}

func keyedProviders() []string {
	var out []string
	for _, p := range provider.IDs() {
		if provider.RequiresAPIKey(p) {
			out = append(out, p)
		}
	}
	return out
}
