package ui

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		input string
		want  Command
		ok    bool
	}{
		{"/mode list", Command{Name: "mode", Args: "list"}, true},
		{"  /MODE   files  ", Command{Name: "mode", Args: "files"}, true},
		{"/q  translate to English", Command{Name: "queue", Args: "translate to English"}, true},
		{"/rm 2", Command{Name: "remove", Args: "2"}, true},
		{"/replace\none\ntwo", Command{Name: "replace", Args: "one\ntwo"}, true},
		{"/help", Command{Name: "help"}, true},
		{"plain text", Command{}, false},
		{"//not a command", Command{}, false},
		{"/", Command{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseCommand(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnescapeInput(t *testing.T) {
	assert.Equal(t, "/etc/hosts explained", UnescapeInput("//etc/hosts explained"))
	assert.Equal(t, "plain", UnescapeInput("plain"))
}

func TestCommandSpecsAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, spec := range commandSpecs {
		for _, name := range append([]string{spec.Name}, spec.Aliases...) {
			assert.False(t, seen[name], "duplicate command name %q", name)
			seen[name] = true
		}
	}
	assert.True(t, knownCommand("runlist"))
	assert.False(t, knownCommand("q"))
}

func TestParseToggle(t *testing.T) {
	tests := []struct {
		arg     string
		current bool
		want    bool
		wantErr bool
	}{
		{"", true, false, false},
		{"", false, true, false},
		{"on", false, true, false},
		{"TAK", false, true, false},
		{"nie", true, false, false},
		{"off", true, false, false},
		{"maybe", true, true, true},
	}
	for _, tt := range tests {
		got, err := parseToggle(tt.arg, tt.current)
		if tt.wantErr {
			assert.Error(t, err, tt.arg)
			continue
		}
		require.NoError(t, err, tt.arg)
		assert.Equal(t, tt.want, got, tt.arg)
	}
}

func TestParseIndex(t *testing.T) {
	i, err := parseIndex(" 2 ", 3)
	require.NoError(t, err)
	assert.Equal(t, 1, i)

	for _, arg := range []string{"0", "4", "x", ""} {
		_, err := parseIndex(arg, 3)
		assert.Error(t, err, arg)
	}
}

func TestParseTemperature(t *testing.T) {
	v, err := parseTemperature("0,3")
	require.NoError(t, err)
	assert.InDelta(t, 0.3, v, 1e-9)

	_, err = parseTemperature("2.5")
	assert.Error(t, err)
	_, err = parseTemperature("hot")
	assert.Error(t, err)
}

func TestSplitArgs(t *testing.T) {
	assert.Equal(t, []string{"a.md", "my notes.md", "c d"}, splitArgs(`a.md "my notes.md" 'c d'`))
	assert.Empty(t, splitArgs("   "))
	assert.Equal(t, []string{""}, splitArgs(`""`))
}

func TestExpandPaths(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.md", "b.md", "notes.txt", "main.go"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
	sub := filepath.Join(dir, "docs")
	require.NoError(t, os.Mkdir(sub, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "c.md"), []byte("x"), 0644))

	t.Run("glob and duplicates", func(t *testing.T) {
		got, err := ExpandPaths([]string{"*.md", "a.md"}, dir)
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(dir, "a.md"), filepath.Join(dir, "b.md")}, got)
	})

	t.Run("directory contributes markdown only", func(t *testing.T) {
		got, err := ExpandPaths([]string{dir}, "/")
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(dir, "a.md"),
			filepath.Join(dir, "b.md"),
			filepath.Join(dir, "notes.txt"),
		}, got)
	})

	t.Run("explicit file keeps any extension", func(t *testing.T) {
		got, err := ExpandPaths([]string{"main.go", "docs"}, dir)
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(dir, "main.go"), filepath.Join(sub, "c.md")}, got)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ExpandPaths([]string{"nope.md"}, dir)
		assert.Error(t, err)
	})
}
