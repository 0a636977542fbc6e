// SPDX-License-Identifier: Apache-2.0

// Package settings loads the tool-wide configuration.  The configuration
// is read exactly once at process start into a Settings value that is
// passed explicitly to every component needing paths; there is no global
// settings cache.
package settings

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// ConfigFileName is searched for in the starting directory and each of its
// ancestors.
const ConfigFileName = "datasets.toml"

// Settings are the resolved tool-wide paths and publication metadata.
// Directory values are absolute once Load returns.
type Settings struct {
	// DatasetDir is the tree of source package directories.
	DatasetDir string `mapstructure:"dataset_dir"`
	// PublishDir is the root of the built artifact tree and the static
	// site sources.
	PublishDir string `mapstructure:"publish_dir"`
	// PublishURL is the public base URL datasets are served under.
	PublishURL string `mapstructure:"publish_url"`

	// CreditText and CreditURL configure the feedback/survey link
	// embedded in composite downloads.
	CreditText string `mapstructure:"credit_text"`
	CreditURL  string `mapstructure:"credit_url"`
}

// Load searches dir and its ancestors for the config file and reads it.
// A missing config file is a configuration error: the tool cannot
// guess where packages live.
func Load(dir string) (Settings, error) {
	configPath, err := findConfig(dir)
	if err != nil {
		return Settings{}, err
	}
	return LoadFile(configPath)
}

// LoadFile reads the named config file directly.  Relative directory
// settings are resolved against the config file's own directory, so a
// checkout works regardless of the operator's working directory.
func LoadFile(configPath string) (Settings, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetDefault("publish_url", "")
	v.SetDefault("credit_text", "Tell us how you use this data")
	v.SetDefault("credit_url", "")
	if err := v.ReadInConfig(); err != nil {
		return Settings{}, fmt.Errorf("reading settings file %q: %w", configPath, err)
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("parsing settings file %q: %w", configPath, err)
	}
	if s.DatasetDir == "" {
		return Settings{}, fmt.Errorf("settings file %q does not set dataset_dir", configPath)
	}
	if s.PublishDir == "" {
		return Settings{}, fmt.Errorf("settings file %q does not set publish_dir", configPath)
	}

	base := filepath.Dir(configPath)
	s.DatasetDir = absJoin(base, s.DatasetDir)
	s.PublishDir = absJoin(base, s.PublishDir)
	return s, nil
}

func absJoin(base, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

func findConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s found in %q or any parent directory", ConfigFileName, dir)
		}
		dir = parent
	}
}
