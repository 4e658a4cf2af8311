package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"mdpilot/model"
)

func LoadSystemConfig() (*SystemConfig, error) {
	cfg := DefaultSystemConfig()
	settingsPath := GetSettingsFilePath()

	if !FileExists(settingsPath) {
		if err := CreateDefaultSystemConfig(); err != nil {
			return nil, fmt.Errorf("failed to create system config: %w", err)
		}
		return cfg, nil
	}

	_, err := toml.DecodeFile(settingsPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse system config: %w", err)
	}

	return cfg, nil
}

func userConfigPath(dataDir string) string {
	return filepath.Join(dataDir, "config.toml")
}

// LoadUserConfig loads <dataDir>/config.toml, creating it from the template
// on first run.
func LoadUserConfig(dataDir string) (*UserConfig, error) {
	path := userConfigPath(dataDir)

	if !FileExists(path) {
		if err := CreateDefaultUserConfig(dataDir); err != nil {
			return nil, fmt.Errorf("failed to create user config: %w", err)
		}
		return DefaultUserConfig(), nil
	}

	cfg, err := LoadUserConfigFromPath(path)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadUserConfigFromPath loads user config from a specific file path.
// Keys absent from the file keep their defaults. A missing file yields the
// defaults.
func LoadUserConfigFromPath(configPath string) (*UserConfig, error) {
	cfg := DefaultUserConfig()
	if !FileExists(configPath) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse user config: %w", err)
	}

	return cfg, nil
}

func SaveSystemConfig(cfg *SystemConfig) error {
	configDir := GetConfigDir()
	if err := EnsureDir(configDir); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return writeTOML(GetSettingsFilePath(), cfg)
}

func SaveUserConfig(cfg *UserConfig, dataDir string) error {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return writeTOML(userConfigPath(dataDir), cfg)
}

// UpdateUserConfig loads the user config, applies fn and writes it back.
func UpdateUserConfig(dataDir string, fn func(*UserConfig)) error {
	cfg, err := LoadUserConfigFromPath(userConfigPath(dataDir))
	if err != nil {
		return err
	}
	fn(cfg)
	return SaveUserConfig(cfg, dataDir)
}

func writeTOML(path string, v any) error {
	// 0600, user configuration data
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(v); err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	return nil
}

func CreateDefaultSystemConfig() error {
	configDir := GetConfigDir()
	if err := EnsureDir(configDir); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	settingsPath := GetSettingsFilePath()
	if FileExists(settingsPath) {
		return nil
	}

	content := GenerateSystemConfigTemplate()
	if err := os.WriteFile(settingsPath, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write system config: %w", err)
	}

	return nil
}

func CreateDefaultUserConfig(dataDir string) error {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	path := userConfigPath(dataDir)
	if FileExists(path) {
		return nil
	}

	content := GenerateUserConfigTemplate()
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write user config: %w", err)
	}

	return nil
}

// Settings maps the [api] table onto model.Settings. The API key is not part
// of the config file and is left empty.
func (u *UserConfig) Settings() model.Settings {
	s := model.DefaultSettings()
	if u.API.Provider != "" {
		s.Provider = u.API.Provider
	}
	if u.API.Model != "" {
		s.Model = u.API.Model
	}
	if u.API.Language != "" {
		s.Language = u.API.Language
	}
	if mode, err := model.ParseMode(u.API.Mode); err == nil {
		s.Mode = mode
	}
	s.Temperature = u.API.Temperature
	return s
}

// SetSettings writes s into the [api] table.
func (u *UserConfig) SetSettings(s model.Settings) {
	u.API.Provider = s.Provider
	u.API.Model = s.Model
	u.API.Language = s.Language
	u.API.Temperature = s.Temperature
	u.API.Mode = string(s.Mode)
}

// LoadSettings reads the persisted settings from dataDir. A missing file is
// normal and yields the defaults.
func LoadSettings(dataDir string) (model.Settings, error) {
	cfg, err := LoadUserConfigFromPath(userConfigPath(dataDir))
	if err != nil {
		return model.DefaultSettings(), err
	}
	return cfg.Settings(), nil
}

// SaveSettings persists s into dataDir/config.toml, keeping the other keys.
func SaveSettings(dataDir string, s model.Settings) error {
	return UpdateUserConfig(dataDir, func(u *UserConfig) {
		u.SetSettings(s)
	})
}
