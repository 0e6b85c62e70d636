// Package config loads service settings from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load parses the process environment into cfg, a pointer to a struct
// using `env`, `envDefault` and `envSeparator` tags.
func Load(cfg any) error {
	return LoadFrom(cfg, nil)
}

// LoadFrom parses environ into cfg. A nil environ means the process
// environment. Every variable that fails to parse is reported, not only
// the first.
func LoadFrom(cfg any, environ map[string]string) error {
	if err := env.ParseWithOptions(cfg, env.Options{Environment: environ}); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
