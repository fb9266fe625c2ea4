// Package config loads session settings from a YAML file and TELLO_* environment variables.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"tello/pkg/session"
)

const EnvPrefix = "TELLO_"

// File is the on-disk layout: session settings plus process-wide settings.
type File struct {
	Settings Settings       `yaml:"settings" envPrefix:"SETTINGS_"`
	Drone    session.Config `yaml:"drone"`
}

type Settings struct {
	LogLevel string `yaml:"logLevel" env:"LOG_LEVEL"`
	LogFile  string `yaml:"logFile" env:"LOG_FILE"`
}

func Default() *File {
	return &File{
		Settings: Settings{LogLevel: "info"},
		Drone:    session.DefaultConfig(),
	}
}

// Load returns the defaults overlaid with the file at path (if path is not
// empty) and then with the environment.
func Load(path string) (*File, error) {
	f := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}

		if err := yaml.Unmarshal(data, f); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(f, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := f.Drone.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return f, nil
}
