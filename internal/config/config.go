// Package config loads the dashboard settings from an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by the serve and render commands.
type Config struct {
	Server ServerConfig `yaml:"server"`
	// Endpoint is the origin the render command fetches /api/data from.
	Endpoint string `yaml:"endpoint"`
	// Study is the path of the YAML study served by default.
	Study string `yaml:"study"`
	// Studies is the directory of the study catalog, selectable by id.
	Studies string `yaml:"studies"`
	// Output is the default report path for the render command. Its
	// extension is replaced by the rendered format.
	Output string `yaml:"output"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Server:   ServerConfig{Addr: ":5000"},
		Endpoint: "http://localhost:5000",
		Study:    "studies/3540.yaml",
		Studies:  "studies",
	}
}

// Load reads path over the defaults. An empty path, or a missing file when
// optional is true, yields the defaults.
func Load(path string, optional bool) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if cfg.Server.Addr == "" {
		return cfg, fmt.Errorf("config file %s: server.addr must not be empty", path)
	}
	return cfg, nil
}
