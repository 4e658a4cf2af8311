package model

import "fmt"

// Mode selects how a prompt is framed.
type Mode string

const (
	ModeFiles Mode = "files"
	ModeText  Mode = "text"
	ModeList  Mode = "list"
)

// ParseMode converts user input to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeFiles, ModeText, ModeList:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown mode %q (want files, text or list)", s)
	}
}

// Settings is the single user settings record.
type Settings struct {
	APIKey      string
	Model       string
	Language    string
	Temperature float64
	Mode        Mode
	Provider    string
}

// DefaultSettings returns the settings used on first run.
func DefaultSettings() Settings {
	return Settings{
		Model:       "sonar",
		Language:    "pl",
		Temperature: 0.7,
		Mode:        ModeFiles,
		Provider:    "perplexity",
	}
}

// SettingsPatch is a merge-patch for Settings. Nil fields are left unchanged.
type SettingsPatch struct {
	APIKey      *string
	Model       *string
	Language    *string
	Temperature *float64
	Mode        *Mode
	Provider    *string
}

// Apply returns s with the non-nil fields of p applied.
func (p SettingsPatch) Apply(s Settings) Settings {
	if p.APIKey != nil {
		s.APIKey = *p.APIKey
	}
	if p.Model != nil {
		s.Model = *p.Model
	}
	if p.Language != nil {
		s.Language = *p.Language
	}
	if p.Temperature != nil {
		s.Temperature = *p.Temperature
	}
	if p.Mode != nil {
		s.Mode = *p.Mode
	}
	if p.Provider != nil {
		s.Provider = *p.Provider
	}
	return s
}
