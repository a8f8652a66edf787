// Package config loads the TOML persona/system-prompt configuration
// (Director/Librarian/Executor model overrides and prompt text) and the
// YAML onboarding configuration (root directories)
// referenced by SPEC_FULL.md's ambient stack.
package config

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/madhatter5501/aegis/internal/apperr"
)

// AgentPersona is one peer agent's persona/system-prompt override.
type AgentPersona struct {
	SystemPrompt string `toml:"system_prompt"`
	Provider     string `toml:"provider"`
	Model        string `toml:"model"`
}

// Personas is the top-level shape of configs/agents.toml.
type Personas struct {
	Director  AgentPersona `toml:"director"`
	Librarian AgentPersona `toml:"librarian"`
	Executor  AgentPersona `toml:"executor"`
}

// LoadPersonas reads and decodes a TOML persona config file.
func LoadPersonas(path string) (*Personas, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidInput, err, "read persona config: %s", path)
	}

	var p Personas
	if _, err := toml.Decode(string(data), &p); err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidInput, err, "parse persona config: %s", path)
	}
	return &p, nil
}
