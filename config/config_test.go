package config

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"mdpilot/model"
)

func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	for _, k := range []string{"MDPILOT_DATA_DIR", "MDPILOT_API_KEY", "MDPILOT_MODEL", "MDPILOT_PROVIDER", "MDPILOT_DEBUG"} {
		t.Setenv(k, "")
	}
	return home
}

func TestLoadSettingsMissingFileIsDefault(t *testing.T) {
	s, err := LoadSettings(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, model.DefaultSettings(), s)
}

func TestSettingsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	want := model.Settings{
		Model:       "claude-sonnet-4-5",
		Language:    "en",
		Temperature: 0.2,
		Mode:        model.ModeList,
		Provider:    "anthropic",
	}
	require.NoError(t, SaveSettings(dir, want))

	got, err := LoadSettings(dir)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	info, err := os.Stat(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestSaveSettingsKeepsOtherKeys(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, UpdateUserConfig(dir, func(u *UserConfig) {
		u.OutputFolder = "/tmp/out"
		u.RestoreHistory = true
	}))
	require.NoError(t, SaveSettings(dir, model.DefaultSettings()))

	u, err := LoadUserConfigFromPath(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/out", u.OutputFolder)
	assert.True(t, u.RestoreHistory)
	assert.Equal(t, 20, u.CooldownSeconds)
}

func TestUserConfigTemplateParses(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, CreateDefaultUserConfig(dir))

	u, err := LoadUserConfigFromPath(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultUserConfig(), u)
	assert.Equal(t, model.DefaultSettings(), u.Settings())
}

func TestSettingsIgnoresUnknownMode(t *testing.T) {
	u := DefaultUserConfig()
	u.API.Mode = "slides"
	assert.Equal(t, model.ModeFiles, u.Settings().Mode)
}

func TestLoadCreatesLayout(t *testing.T) {
	home := isolateHome(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".local", "share", "mdpilot"), cfg.DataDir())
	assert.FileExists(t, filepath.Join(home, ".config", "mdpilot", "settings.toml"))
	assert.FileExists(t, filepath.Join(cfg.DataDir(), "config.toml"))

	info, err := os.Stat(cfg.DataDir())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
}

func TestLoadEnvOverrides(t *testing.T) {
	isolateHome(t)
	dataDir := filepath.Join(t.TempDir(), "data")
	t.Setenv("MDPILOT_DATA_DIR", dataDir)
	t.Setenv("MDPILOT_PROVIDER", "ollama")
	t.Setenv("MDPILOT_MODEL", "llama3.1")
	t.Setenv("MDPILOT_API_KEY", "env-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, dataDir, cfg.DataDir())
	assert.Equal(t, "ollama", cfg.User.API.Provider)
	assert.Equal(t, "llama3.1", cfg.User.API.Model)

	creds := NewCredentialStore(SecurityPlainText, "")
	creds.Set("ollama", "stored")
	assert.Equal(t, "env-key", cfg.ResolveAPIKey(creds, "ollama"))
}

func TestExpandPath(t *testing.T) {
	home := isolateHome(t)
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"~", home},
		{"~/notes", filepath.Join(home, "notes")},
		{"/abs/./dir", "/abs/dir"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExpandPath(tt.in), tt.in)
	}
}

func TestPlainTextCredentials(t *testing.T) {
	dir := t.TempDir()
	c := NewCredentialStore(SecurityPlainText, "")
	require.NoError(t, c.Load(dir))
	assert.Empty(t, c.Get("perplexity"))

	c.Set("perplexity", "pplx-123")
	c.Set("openai", "sk-1")
	c.Set("openai", "")
	require.NoError(t, c.Save(dir))

	info, err := os.Stat(filepath.Join(dir, "credentials.toml"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	reloaded := NewCredentialStore(SecurityPlainText, "")
	require.NoError(t, reloaded.Load(dir))
	assert.Equal(t, "pplx-123", reloaded.Get("perplexity"))
	assert.Empty(t, reloaded.Get("openai"))
}

func writeTestKey(t *testing.T) string {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	block, err := ssh.MarshalPrivateKey(priv, "")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "id_ed25519")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0600))
	return path
}

func TestSSHEncryptedCredentials(t *testing.T) {
	dir := t.TempDir()
	key := writeTestKey(t)

	c := NewCredentialStoreFor(SecurityConfig{Method: SecuritySSHKey, SSHKeyPath: key})
	c.Set("anthropic", "sk-ant")
	require.NoError(t, c.Save(dir))

	raw, err := os.ReadFile(filepath.Join(dir, "credentials.enc"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "sk-ant")

	reloaded := NewCredentialStore(SecuritySSHKey, key)
	require.NoError(t, reloaded.Load(dir))
	assert.Equal(t, "sk-ant", reloaded.Get("anthropic"))

	other := NewCredentialStore(SecuritySSHKey, writeTestKey(t))
	assert.Error(t, other.Load(dir))
}

func TestIsSSHKeyEncrypted(t *testing.T) {
	key := writeTestKey(t)
	enc, err := IsSSHKeyEncrypted(key)
	require.NoError(t, err)
	assert.False(t, enc)

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	block, err := ssh.MarshalPrivateKeyWithPassphrase(priv, "", []byte("secret"))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "locked")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0600))

	enc, err = IsSSHKeyEncrypted(path)
	require.NoError(t, err)
	assert.True(t, enc)

	m := NewEncryptionManager(path)
	assert.Error(t, m.Initialize())
	m.SetPassphrase("secret")
	require.NoError(t, m.Initialize())

	ct, err := m.Encrypt([]byte("hello"))
	require.NoError(t, err)
	pt, err := m.Decrypt(ct)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(pt))
}

func TestInitDebugLog(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MDPILOT_DEBUG", "1")
	t.Cleanup(func() {
		DebugLog = nil
		Debug = false
	})

	InitDebugLog(dir)
	require.NotNil(t, DebugLog)
	DebugLog.Debugf("trace %d", 42)
	CloseDebugLog()

	data, err := os.ReadFile(filepath.Join(dir, "debug.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "trace 42")
}
