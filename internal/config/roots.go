package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/madhatter5501/aegis/internal/apperr"
)

// defaultSkipDirs is the closed skip-list spec.md §4.6 names for file
// discovery: vendor/cache/build directories the Librarian never descends
// into.
var defaultSkipDirs = []string{
	"vendor", "node_modules", ".git", "dist", "build", "__pycache__",
	".cache", ".venv",
}

// defaultExtensions is the closed extension set indexed during
// exploration.
var defaultExtensions = []string{"py", "js", "ts", "go", "md", "json", "yaml", "yml"}

// RootsConfig is the Librarian's onboarding configuration: which
// directories to explore, how deep, which extensions to index, and which
// directories to always skip.
type RootsConfig struct {
	Roots           []string `yaml:"roots"`
	MaxDepth        int      `yaml:"max_depth"`
	Extensions      []string `yaml:"extensions"`
	SkipDirs        []string `yaml:"skip_dirs"`
	PerExtensionCap int      `yaml:"per_extension_cap"`
}

// LoadRoots reads configs/roots.yaml and fills in the closed defaults for
// any field left unset.
func LoadRoots(path string) (*RootsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidInput, err, "read roots config: %s", path)
	}

	var cfg RootsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidInput, err, "parse roots config: %s", path)
	}

	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 4
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = defaultExtensions
	}
	if len(cfg.SkipDirs) == 0 {
		cfg.SkipDirs = defaultSkipDirs
	}
	if cfg.PerExtensionCap <= 0 {
		cfg.PerExtensionCap = 500
	}
	return &cfg, nil
}
