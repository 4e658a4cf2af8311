package config

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type SystemConfig struct {
	DataDirectory string `toml:"data_directory"`
}

type APIConfig struct {
	Provider    string            `toml:"provider"`
	Model       string            `toml:"model"`
	Temperature float64           `toml:"temperature"`
	Language    string            `toml:"language"`
	Mode        string            `toml:"mode"`
	BaseURLs    map[string]string `toml:"base_urls,omitempty"`
}

type SecurityConfig struct {
	Method     SecurityMethod `toml:"method"`
	SSHKeyPath string         `toml:"ssh_key_path,omitempty"`
}

type UserConfig struct {
	API             APIConfig      `toml:"api"`
	OutputFolder    string         `toml:"output_folder"`
	AutoSave        bool           `toml:"auto_save"`
	IncludeHistory  bool           `toml:"include_history"`
	RestoreHistory  bool           `toml:"restore_history"`
	CooldownSeconds int            `toml:"cooldown_seconds"`
	Security        SecurityConfig `toml:"security"`
}

type Config struct {
	DataDirectory string
	User          UserConfig

	// APIKey is set from MDPILOT_API_KEY and wins over the credential store.
	APIKey string
}

var Debug = false
var DebugLog *zap.SugaredLogger

func (c *Config) DataDir() string {
	return ExpandPath(c.DataDirectory)
}

func (c *Config) applyEnvOverrides() {
	if dataDir := os.Getenv("MDPILOT_DATA_DIR"); dataDir != "" {
		c.DataDirectory = dataDir
	}
	if p := os.Getenv("MDPILOT_PROVIDER"); p != "" {
		c.User.API.Provider = p
	}
	if m := os.Getenv("MDPILOT_MODEL"); m != "" {
		c.User.API.Model = m
	}
	if key := os.Getenv("MDPILOT_API_KEY"); key != "" {
		c.APIKey = key
	}
}

func CheckDebug() bool {
	debug := os.Getenv("MDPILOT_DEBUG")
	return debug == "true" || debug == "1"
}

// InitDebugLog opens <dataDir>/debug.log when MDPILOT_DEBUG is set.
func InitDebugLog(dataDir string) {
	if !CheckDebug() {
		return
	}

	Debug = true
	logPath := filepath.Join(dataDir, "debug.log")

	// 0600, the log may contain prompts
	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not open debug log at %s: %v\n", logPath, err)
		return
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000000")
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(f), zapcore.DebugLevel)
	DebugLog = zap.New(core, zap.AddCaller()).Sugar()
	DebugLog.Debugf("=== Debug logging started (MDPILOT_DEBUG=%s) ===", os.Getenv("MDPILOT_DEBUG"))
	DebugLog.Debugf("Log path: %s", logPath)
}

// CloseDebugLog flushes the debug log, if any.
func CloseDebugLog() {
	if DebugLog != nil {
		_ = DebugLog.Sync()
	}
}

// Load reads the system and user config, applies environment overrides and
// makes sure the data directory exists with 0700 permissions.
func Load() (*Config, error) {
	cfg := &Config{
		DataDirectory: DefaultSystemConfig().DataDirectory,
		User:          *DefaultUserConfig(),
	}

	systemCfg, err := LoadSystemConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load system config: %w", err)
	}
	cfg.DataDirectory = systemCfg.DataDirectory
	if dataDir := os.Getenv("MDPILOT_DATA_DIR"); dataDir != "" {
		cfg.DataDirectory = dataDir
	}

	dataDir := cfg.DataDir()
	if err := EnsureDataDirPermissions(dataDir); err != nil {
		return nil, fmt.Errorf("failed to set data directory permissions: %w", err)
	}

	userCfg, err := LoadUserConfig(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}
	cfg.User = *userCfg
	cfg.applyEnvOverrides()

	return cfg, nil
}
