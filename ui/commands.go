package ui

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"unicode"
)

// Command is a parsed slash command.
type Command struct {
	Name string
	Args string
}

type commandSpec struct {
	Name    string
	Aliases []string
	Args    string
	Help    string
}

var commandSpecs = []commandSpec{
	{Name: "add", Args: "<path|glob|dir>...", Help: "Load Markdown files"},
	{Name: "files", Help: "Pick files with a fuzzy finder"},
	{Name: "remove", Aliases: []string{"rm"}, Args: "<n>", Help: "Unload file n"},
	{Name: "clearfiles", Help: "Unload all files"},
	{Name: "mode", Args: "files|text|list", Help: "Switch operating mode"},
	{Name: "provider", Args: "<id>", Help: "Switch provider"},
	{Name: "model", Args: "[name]", Help: "Set the model, or pick one"},
	{Name: "temp", Args: "<0-2>", Help: "Set the temperature"},
	{Name: "lang", Args: "pl|en", Help: "Set the language"},
	{Name: "key", Args: "<api key>", Help: "Store the API key for the current provider"},
	{Name: "folder", Args: "<dir>", Help: "Set the output folder"},
	{Name: "history", Args: "[on|off]", Help: "Send earlier answers as context"},
	{Name: "autosave", Args: "[on|off]", Help: "Save documents from every answer"},
	{Name: "queue", Aliases: []string{"q"}, Args: "<prompt>", Help: "Add a prompt to the queue"},
	{Name: "unqueue", Args: "<n>", Help: "Remove queued prompt n"},
	{Name: "clearqueue", Help: "Empty the queue"},
	{Name: "run", Help: "Process the queue"},
	{Name: "item", Args: "<text>", Help: "Add a list item"},
	{Name: "items", Args: "<file>", Help: "Import list items from txt, yaml or json"},
	{Name: "edit", Args: "<n> <text>", Help: "Edit list item n"},
	{Name: "del", Args: "<n>", Help: "Remove list item n"},
	{Name: "up", Args: "<n>", Help: "Move list item n up"},
	{Name: "down", Args: "<n>", Help: "Move list item n down"},
	{Name: "replace", Args: "<lines>", Help: "Replace the list, one item per line"},
	{Name: "clearlist", Help: "Empty the list"},
	{Name: "template", Args: "<text>", Help: "Set the list template, {{item}} is the item"},
	{Name: "runlist", Help: "Process the list"},
	{Name: "save", Help: "Save the documents of the last answer"},
	{Name: "savewhole", Help: "Save the whole last answer"},
	{Name: "copy", Help: "Copy the last answer"},
	{Name: "search", Args: "<text>", Help: "Search stored history"},
	{Name: "export", Args: "<file>", Help: "Export stored history as JSON"},
	{Name: "clear", Help: "Clear the conversation"},
	{Name: "stop", Help: "Stop the current request"},
	{Name: "stopqueue", Help: "Stop the running batch"},
	{Name: "help", Aliases: []string{"?"}, Help: "Show help"},
	{Name: "quit", Aliases: []string{"exit"}, Help: "Quit"},
}

// ParseCommand splits "/name args" into a Command. Input that does not start
// with a single slash is not a command; "//text" escapes a leading slash.
func ParseCommand(input string) (Command, bool) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") || strings.HasPrefix(input, "//") {
		return Command{}, false
	}
	body := input[1:]
	name, args := body, ""
	if i := strings.IndexFunc(body, unicode.IsSpace); i >= 0 {
		name, args = body[:i], body[i:]
	}
	name = strings.ToLower(name)
	if name == "" {
		return Command{}, false
	}
	return Command{Name: canonicalName(name), Args: strings.TrimSpace(args)}, true
}

// UnescapeInput turns "//text" into "/text".
func UnescapeInput(input string) string {
	trimmed := strings.TrimSpace(input)
	if strings.HasPrefix(trimmed, "//") {
		return trimmed[1:]
	}
	return input
}

func canonicalName(name string) string {
	for _, spec := range commandSpecs {
		if spec.Name == name || slices.Contains(spec.Aliases, name) {
			return spec.Name
		}
	}
	return name
}

func knownCommand(name string) bool {
	return slices.ContainsFunc(commandSpecs, func(s commandSpec) bool { return s.Name == name })
}

// parseToggle reads on/off style input. Empty input flips current.
func parseToggle(arg string, current bool) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(arg)) {
	case "":
		return !current, nil
	case "on", "true", "1", "yes", "tak", "wł":
		return true, nil
	case "off", "false", "0", "no", "nie", "wył":
		return false, nil
	default:
		return current, fmt.Errorf("expected on or off, got %q", arg)
	}
}

// parseIndex converts a 1-based index into a 0-based one within n.
func parseIndex(arg string, n int) (int, error) {
	i, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		return 0, fmt.Errorf("expected a number, got %q", arg)
	}
	if i < 1 || i > n {
		return 0, fmt.Errorf("index %d out of range 1..%d", i, n)
	}
	return i - 1, nil
}

// parseTemperature accepts "0.7" and "0,7".
func parseTemperature(arg string) (float64, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(arg), ",", "."), 64)
	if err != nil {
		return 0, fmt.Errorf("expected a number, got %q", arg)
	}
	if v < 0 || v > 2 {
		return 0, fmt.Errorf("temperature must be between 0 and 2")
	}
	return v, nil
}

// splitArgs splits on whitespace, keeping single- or double-quoted runs
// together.
func splitArgs(s string) []string {
	var (
		args  []string
		cur   strings.Builder
		quote rune
		inArg bool
	)
	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inArg = true
		case r == ' ' || r == '\t':
			if inArg {
				args = append(args, cur.String())
				cur.Reset()
				inArg = false
			}
		default:
			cur.WriteRune(r)
			inArg = true
		}
	}
	if inArg {
		args = append(args, cur.String())
	}
	return args
}

// isMarkdown reports whether path has a Markdown extension.
func isMarkdown(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".mdx", ".txt":
		return true
	}
	return false
}

// ExpandPaths resolves file arguments relative to dir. Globs are
// expanded, directories contribute their Markdown files (not recursive).
// The result is de-duplicated and keeps argument order.
func ExpandPaths(args []string, dir string) ([]string, error) {
	var out []string
	seen := map[string]bool{}
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, arg := range args {
		if strings.HasPrefix(arg, "~/") {
			if home, err := os.UserHomeDir(); err == nil {
				arg = filepath.Join(home, arg[2:])
			}
		}
		if !filepath.IsAbs(arg) {
			arg = filepath.Join(dir, arg)
		}

		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no such file: %s", arg)
		}

		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil {
				return nil, err
			}
			if !info.IsDir() {
				add(m)
				continue
			}
			entries, err := os.ReadDir(m)
			if err != nil {
				return nil, err
			}
			for _, e := range entries {
				if !e.IsDir() && isMarkdown(e.Name()) {
					add(filepath.Join(m, e.Name()))
				}
			}
		}
	}
	return out, nil
}
