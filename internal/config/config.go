// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for alfred.
//
// Configuration file location (optional):
//   - ~/.alfred/config.toml
//
// Precedence: environment > file > built-in defaults.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/alfred-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete alfred configuration.
type Config struct {
	// Local (Ollama) configuration
	Local LocalConfig `toml:"local" json:"local"`

	// Attachment handling
	Attachment AttachmentConfig `toml:"attachment" json:"attachment"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui"`

	// Export configuration
	Export ExportConfig `toml:"export" json:"export"`

	// Logging configuration
	Logging LoggingConfig `toml:"logging" json:"logging"`
}

// LocalConfig contains local Ollama configuration.
type LocalConfig struct {
	// OllamaURL is the URL of the Ollama server
	OllamaURL string `toml:"ollama_url" json:"ollama_url"`
	// OllamaModel is the model every prompt is sent to
	OllamaModel string `toml:"ollama_model" json:"ollama_model"`
	// ConnectTimeoutSecs bounds connection setup; 0 means the default.
	// Generation itself is never timed out.
	ConnectTimeoutSecs int `toml:"connect_timeout_secs" json:"connect_timeout_secs"`
}

// AttachmentConfig controls the attached document.
type AttachmentConfig struct {
	// Watch re-extracts the attached file when it changes on disk
	Watch bool `toml:"watch" json:"watch"`
}

// UIConfig contains UI-related configuration.
type UIConfig struct {
	// RenderMarkdown renders completed replies with glamour
	RenderMarkdown bool `toml:"render_markdown" json:"render_markdown"`
	// Plain uses the line-mode prompt instead of the full-screen UI
	Plain bool `toml:"plain" json:"plain"`
}

// ExportConfig controls transcript export.
type ExportConfig struct {
	// Dir is where exports land when no directory is given
	Dir string `toml:"dir" json:"dir"`
}

// LoggingConfig controls the log file.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error
	Level string `toml:"level" json:"level"`
	// Path of the log file (empty = default ~/.alfred/alfred.log)
	Path string `toml:"path" json:"path"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

const (
	DefaultOllamaURL          = "http://localhost:11434"
	DefaultOllamaModel        = "llama3.1:8b"
	DefaultConnectTimeoutSecs = 10
	DefaultLogLevel           = "info"

	maxConnectTimeoutSecs = 300
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Local: LocalConfig{
			OllamaURL:          DefaultOllamaURL,
			OllamaModel:        DefaultOllamaModel,
			ConnectTimeoutSecs: DefaultConnectTimeoutSecs,
		},
		Attachment: AttachmentConfig{
			Watch: false,
		},
		UI: UIConfig{
			RenderMarkdown: true,
			Plain:          false,
		},
		Export: ExportConfig{
			Dir: ".",
		},
		Logging: LoggingConfig{
			Level: DefaultLogLevel,
		},
	}
}

// ConnectTimeout returns the connect timeout as a duration.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.Local.ConnectTimeoutSecs) * time.Second
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the alfred configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".alfred"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DefaultLogPath returns ~/.alfred/alfred.log.
func DefaultLogPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "alfred.log"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from ~/.alfred/config.toml if it exists.
//
// A missing file is not an error. A file that cannot be decoded or fails
// validation is reported through the returned error, but the returned
// config is still usable: defaults with environment overrides applied.
func Load() (*Config, error) {
	path, err := ConfigPathTOML()
	if err != nil {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		cfg.SetDefaults()
		return cfg, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific TOML file with the same
// fallback behaviour as Load.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, statErr := os.Stat(path); statErr != nil {
		cfg.ApplyEnvOverrides()
		cfg.SetDefaults()
		if errors.Is(statErr, os.ErrNotExist) {
			if err := cfg.Validate(); err != nil {
				return fallback(), fmt.Errorf("invalid config: %w", err)
			}
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to stat config %s: %w", path, statErr)
	}

	if err := LoadTOML(cfg, path); err != nil {
		return fallback(), fmt.Errorf("failed to load TOML config from %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return fallback(), fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// fallback returns defaults with environment overrides, dropping any
// override that would itself fail validation.
func fallback() *Config {
	cfg := Default()
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if cfg.Validate() != nil {
		cfg = Default()
	}
	return cfg
}

// LoadTOML decodes a TOML file over cfg. Keys absent from the file keep
// their current values.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		fmt.Fprintf(os.Stderr, "Warning: unknown config keys in %s: %s\n", path, strings.Join(keys, ", "))
	}
	return fillDefaults(cfg)
}

// fillDefaults fills in any missing values with defaults.
func fillDefaults(cfg *Config) error {
	defaults := Default()

	if cfg.Local.OllamaURL == "" {
		cfg.Local.OllamaURL = defaults.Local.OllamaURL
	}
	if cfg.Local.OllamaModel == "" {
		cfg.Local.OllamaModel = defaults.Local.OllamaModel
	}
	if cfg.Export.Dir == "" {
		cfg.Export.Dir = defaults.Export.Dir
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaults.Logging.Level
	}

	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# alfred configuration file\n")
	buf.WriteString("# Environment variables ALFRED_OLLAMA_URL, ALFRED_MODEL and\n")
	buf.WriteString("# ALFRED_LOG_LEVEL take precedence over this file.\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.WriteFileAtomic(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Local.OllamaURL == "" {
		errs = append(errs, ValidationError{Field: "local.ollama_url", Message: "must not be empty"})
	} else if u, err := url.Parse(c.Local.OllamaURL); err != nil {
		errs = append(errs, ValidationError{
			Field:   "local.ollama_url",
			Message: fmt.Sprintf("invalid URL: %v", err),
		})
	} else {
		if u.Scheme != "http" && u.Scheme != "https" {
			errs = append(errs, ValidationError{
				Field:   "local.ollama_url",
				Message: fmt.Sprintf("invalid scheme '%s', must be http or https", u.Scheme),
			})
		}
		if u.Host == "" {
			errs = append(errs, ValidationError{Field: "local.ollama_url", Message: "missing host"})
		}
	}

	if strings.TrimSpace(c.Local.OllamaModel) == "" {
		errs = append(errs, ValidationError{Field: "local.ollama_model", Message: "must not be empty"})
	}

	if c.Local.ConnectTimeoutSecs < 0 {
		errs = append(errs, ValidationError{
			Field:   "local.connect_timeout_secs",
			Message: fmt.Sprintf("must be non-negative, got %d", c.Local.ConnectTimeoutSecs),
		})
	}

	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Logging.Level),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults normalises values that are present but out of range.
func (c *Config) SetDefaults() {
	c.Local.OllamaURL = strings.TrimRight(strings.TrimSpace(c.Local.OllamaURL), "/")
	c.Local.OllamaModel = strings.TrimSpace(c.Local.OllamaModel)

	if c.Local.ConnectTimeoutSecs == 0 {
		c.Local.ConnectTimeoutSecs = DefaultConnectTimeoutSecs
	}
	if c.Local.ConnectTimeoutSecs > maxConnectTimeoutSecs {
		c.Local.ConnectTimeoutSecs = maxConnectTimeoutSecs
	}

	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Export.Dir == "" {
		c.Export.Dir = "."
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides.
//
// Supported environment variables:
//   - ALFRED_OLLAMA_URL: overrides local.ollama_url
//   - ALFRED_MODEL: overrides local.ollama_model
//   - ALFRED_LOG_LEVEL: overrides logging.level
func (c *Config) ApplyEnvOverrides() {
	if u := os.Getenv("ALFRED_OLLAMA_URL"); u != "" {
		c.Local.OllamaURL = u
	}

	if model := os.Getenv("ALFRED_MODEL"); model != "" {
		c.Local.OllamaModel = model
	}

	if level := os.Getenv("ALFRED_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "local.ollama_model").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation (e.g., "ui.plain").
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)

		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		if i == len(parts)-1 {
			if field.Kind() == reflect.Struct {
				return reflect.Value{}, fmt.Errorf("'%s' is a section, not a value", key)
			}
			return field, nil
		}

		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}

	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}

	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Bool:
			boolVal, err := strconv.ParseBool(strVal)
			if err != nil {
				lower := strings.ToLower(strVal)
				boolVal = lower == "yes" || lower == "on"
				if !boolVal && lower != "no" && lower != "off" {
					return fmt.Errorf("invalid boolean value: %q", strVal)
				}
			}
			field.SetBool(boolVal)
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return errors.New("cannot assign nil")
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) && val.Kind() != reflect.String {
		field.Set(val.Convert(field.Type()))
		return nil
	}

	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// GetAllKeys returns all configuration keys in dot notation, sorted.
func GetAllKeys() []string {
	var keys []string
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		section := t.Field(i)
		sectionName := strings.Split(section.Tag.Get("toml"), ",")[0]
		for j := 0; j < section.Type.NumField(); j++ {
			name := strings.Split(section.Type.Field(j).Tag.Get("toml"), ",")[0]
			keys = append(keys, sectionName+"."+name)
		}
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns a string representation of the config for debugging.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}
