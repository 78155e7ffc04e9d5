package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// parseEnv overlays every ACCOUNTKEEPER_* variable that is set. Unset
// variables keep the value from the previous layer. Malformed values panic.
func parseEnv(config *Config) {
	if err := env.Parse(config); err != nil {
		panic(fmt.Errorf("parse env: %w", err))
	}
}
