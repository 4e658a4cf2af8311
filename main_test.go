package main

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mdpilot/model"
	"mdpilot/state"
)

func TestStreamPrinter(t *testing.T) {
	store := state.New(model.DefaultSettings())
	var out, info bytes.Buffer
	p := newStreamPrinter(store, &out, &info)

	store.AddUserMessage("Rewrite intro.md\nkeep the tone", model.Association{File: "intro.md"})
	assert.Equal(t, "\n[intro.md] > Rewrite intro.md …\n\n", info.String())

	store.BeginStreaming()
	store.AppendStreamToken("# Intro")
	p.onChange(store.Snapshot())
	store.AppendStreamToken("\nHello")
	p.onChange(store.Snapshot())
	assert.Equal(t, "# Intro\nHello", out.String())

	stale := store.Snapshot()
	store.FinalizeAssistantMessage("# Intro\nHello world", model.Association{File: "intro.md"})
	p.onChange(stale)
	assert.Equal(t, "# Intro\nHello world\n", out.String())
}

func TestStreamPrinterWithoutTokens(t *testing.T) {
	store := state.New(model.DefaultSettings())
	store.RestoreMessages([]model.DisplayMessage{{ID: "old", Role: model.RoleAssistant, Content: "earlier"}})
	var out, info bytes.Buffer
	p := newStreamPrinter(store, &out, &info)

	store.AddUserMessage("hi", model.Association{})
	store.FinalizeAssistantMessage("whole answer", model.Association{})
	p.onChange(store.Snapshot())
	assert.Equal(t, "whole answer\n", out.String())
}

func testCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	flagProvider, flagModel, flagMode, flagLang, flagFolder = "", "", "", "", ""
	flagTemperature, flagHistory, flagAutoSave = 0, false, true

	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) { f.Changed = false })
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().AddFlagSet(rootCmd.PersistentFlags())
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestSettingsOverrides(t *testing.T) {
	cmd := testCommand(t, "--provider", "OpenAI", "--mode", "list", "--temperature", "0.2", "--lang", "EN")
	patch, err := settingsOverrides(cmd)
	require.NoError(t, err)

	s := patch.Apply(model.DefaultSettings())
	assert.Equal(t, "openai", s.Provider)
	assert.Equal(t, model.ModeList, s.Mode)
	assert.InDelta(t, 0.2, s.Temperature, 1e-9)
	assert.Equal(t, "en", s.Language)
	assert.Equal(t, "sonar", s.Model, "unset flags keep the configured value")
}

func TestSettingsOverridesRejectsBadValues(t *testing.T) {
	_, err := settingsOverrides(testCommand(t, "--mode", "poems"))
	assert.Error(t, err)

	_, err = settingsOverrides(testCommand(t, "--temperature", "3"))
	assert.Error(t, err)
}

func TestPrefsFromFlags(t *testing.T) {
	p := prefsFromFlags(testCommand(t, "--autosave=false", "-o", "out"))
	require.NotNil(t, p.AutoSave)
	assert.False(t, *p.AutoSave)
	require.NotNil(t, p.OutputFolder)
	assert.Equal(t, "out", *p.OutputFolder)
	assert.Nil(t, p.IncludeHistory)

	assert.Equal(t, "fallback", deref(nil, "fallback"))
}

func TestKeyedProviders(t *testing.T) {
	assert.NotContains(t, keyedProviders(), "ollama")
	assert.Contains(t, keyedProviders(), "anthropic")
	assert.True(t, isKnownProvider("openrouter"))
	assert.False(t, isKnownProvider("skynet"))
}
