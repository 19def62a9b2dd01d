package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the optional .surfcheck.yaml file. Flags override anything set
// here.
type Config struct {
	// Typeshed is the directory holding stub documents.
	Typeshed string `yaml:"typeshed"`

	// PythonVersion targets a specific version ("3.9"); empty means the
	// default interpreter's version.
	PythonVersion string `yaml:"python_version"`

	// Platform overrides sys.platform in guard evaluation.
	Platform string `yaml:"platform"`

	// Interpreters maps versions to interpreter binaries, for hosts where
	// the versioned binary is not on PATH under its conventional name.
	Interpreters map[string]string `yaml:"interpreters"`

	// Exclude lists units never to check.
	Exclude []string `yaml:"exclude"`

	// Jobs bounds concurrent capture workers; 0 means one per CPU.
	Jobs int `yaml:"jobs"`

	// DB enables run-history persistence at the given path.
	DB string `yaml:"db"`
}

const defaultConfigPath = ".surfcheck.yaml"

// loadConfig reads a YAML config file. A missing file at the default path
// returns an empty config; a missing file at an explicit path is an error.
func loadConfig(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// excluded reports whether unit is on the config's exclusion list.
func (c *Config) excluded(unit string) bool {
	for _, e := range c.Exclude {
		if e == unit {
			return true
		}
	}
	return false
}

// interpreterFor returns the configured binary for a version, if any.
func (c *Config) interpreterFor(version string) (string, bool) {
	path, ok := c.Interpreters[version]
	return path, ok
}
