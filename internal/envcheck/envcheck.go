// Package envcheck verifies that required environment variables are set before a build.
package envcheck

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/fluxbase-eu/buildtrace/internal/config"
	"github.com/fluxbase-eu/buildtrace/internal/report"
)

// Result lists the required variables that are unset or empty
type Result struct {
	Invalid []string
}

// Valid reports whether every required variable is set
func (r Result) Valid() bool {
	return len(r.Invalid) == 0
}

// LoadEnvFiles reads the env files that exist under dir. The process
// environment is not modified. When a variable is defined in several files the
// first one wins, matching godotenv.Load.
func LoadEnvFiles(dir string, files []string) (map[string]string, error) {
	values := make(map[string]string)
	for _, file := range files {
		path := file
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}

		env, err := godotenv.Read(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read env file %s: %w", path, err)
		}
		log.Debug().Str("file", path).Int("variables", len(env)).Msg("Loaded env file")

		for k, v := range env {
			if _, ok := values[k]; !ok {
				values[k] = v
			}
		}
	}
	return values, nil
}

// Check validates cfg.Required against the process environment, falling back
// to the values in cfg.EnvFiles. Invalid names keep the configuration order.
func Check(dir string, cfg config.EnvValidatorConfig) (Result, error) {
	fileValues, err := LoadEnvFiles(dir, cfg.EnvFiles)
	if err != nil {
		return Result{}, err
	}

	result := Result{Invalid: []string{}}
	for _, name := range cfg.Required {
		value, ok := os.LookupEnv(name)
		if !ok {
			value = fileValues[name]
		}
		if strings.TrimSpace(value) == "" {
			result.Invalid = append(result.Invalid, name)
		}
	}
	return result, nil
}

// Report pushes a Check result to sink
func Report(sink report.Sink, result Result) {
	if result.Valid() {
		report.Successf(sink, "Env validator: all required environment variables are valid")
		return
	}
	report.Errorf(sink, "Env validator: some environment variables are not valid: %s", strings.Join(result.Invalid, ", "))
}
