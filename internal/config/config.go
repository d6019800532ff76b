// Package config loads server and client settings.
//
// Sources are layered: built-in defaults, then an optional YAML file,
// then DOCSYNC_* environment variables, then command-line flags.
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefix of all environment variables
const EnvPrefix = "DOCSYNC_"

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"auto", "text", "json"}
)

// LogConfig настройки логирования
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (c LogConfig) validate() error {
	if !slices.Contains(logLevels, c.Level) {
		return fmt.Errorf("%w: log level %q, expected one of %v", ErrInvalidConfig, c.Level, logLevels)
	}
	if !slices.Contains(logFormats, c.Format) {
		return fmt.Errorf("%w: log format %q, expected one of %v", ErrInvalidConfig, c.Format, logFormats)
	}
	return nil
}

// loadFile накладывает YAML файл поверх текущих значений
func loadFile(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// env читает переменные окружения с префиксом DOCSYNC_
type env struct {
	err error
}

func (e *env) lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (e *env) stringVar(name string, dst *string) {
	if v, ok := e.lookup(name); ok {
		*dst = v
	}
}

func (e *env) intVar(name string, dst *int) {
	v, ok := e.lookup(name)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(name, err)
		return
	}
	*dst = n
}

func (e *env) durationVar(name string, dst *time.Duration) {
	v, ok := e.lookup(name)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(name, err)
		return
	}
	*dst = d
}

func (e *env) fail(name string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("%w: %s%s: %w", ErrInvalidConfig, EnvPrefix, name, err)
	}
}
