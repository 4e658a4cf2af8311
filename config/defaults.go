package config

import "mdpilot/model"

func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		DataDirectory: "~/.local/share/mdpilot",
	}
}

func DefaultUserConfig() *UserConfig {
	s := model.DefaultSettings()
	return &UserConfig{
		API: APIConfig{
			Provider:    s.Provider,
			Model:       s.Model,
			Temperature: s.Temperature,
			Language:    s.Language,
			Mode:        string(s.Mode),
		},
		AutoSave:        true,
		IncludeHistory:  false,
		CooldownSeconds: 20,
		Security: SecurityConfig{
			Method: SecurityPlainText,
		},
	}
}

func GenerateSystemConfigTemplate() string {
	return `# mdpilot System Configuration
# Location: ~/.config/mdpilot/settings.toml
# This file uses TOML format: https://toml.io

# Directory where history, credentials and user config are stored
data_directory = "~/.local/share/mdpilot"
`
}

func GenerateUserConfigTemplate() string {
	return `# mdpilot User Configuration
# Location: <data_directory>/config.toml
# This file uses TOML format: https://toml.io

# Folder where extracted documents are written
output_folder = ""

# Save code-fenced documents from every response automatically
auto_save = true

# Send earlier question/answer pairs with each prompt
include_history = false

# Reload the conversation from history.db on start
restore_history = false

# Pause between consecutive API calls in a batch
cooldown_seconds = 20

[api]
# perplexity, openai, openrouter, anthropic or ollama
provider = "perplexity"
model = "sonar"
temperature = 0.7

# Interface and system prompt language: pl or en
language = "pl"

# files, text or list
mode = "files"

# Override endpoints per provider (optional)
# [api.base_urls]
# ollama = "http://localhost:11434"

[security]
# plaintext (credentials.toml) or ssh_key (credentials.enc)
method = "plaintext"
# ssh_key_path = "~/.ssh/id_ed25519"
`
}
