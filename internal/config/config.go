/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"zonecanvas/internal/codec"
	"zonecanvas/internal/domain"
	applog "zonecanvas/internal/log"
	"zonecanvas/internal/zone"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// Unknown fields are ignored on unmarshal.

type CanvasConfig struct {
	Width         int    `yaml:"width"`
	Height        int    `yaml:"height"`
	Background    string `yaml:"background"`
	StatusClearMs int    `yaml:"status_clear_ms"`
}

type ImportConfig struct {
	Validation string `yaml:"validation"` // "strict" | "lenient"
}

type BackendConfig struct {
	BaseURL     string `yaml:"base_url"`
	TimeoutMs   int    `yaml:"timeout_ms"`
	TLSInsecure bool   `yaml:"tls_insecure"`
	// Token is not stored on disk; it lives in the OS keychain.
}

type ServerConfig struct {
	Addr        string `yaml:"addr"`
	DatabaseURL string `yaml:"database_url"`
}

type GeneralConfig struct {
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
	Theme          string `yaml:"theme"` // "system" | "light" | "dark"
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int                    `yaml:"config_version"`
	Canvas        CanvasConfig           `yaml:"canvas"`
	Zones         map[string]domain.Zone `yaml:"zones"`
	Import        ImportConfig           `yaml:"import"`
	General       GeneralConfig          `yaml:"general"`
	Backend       BackendConfig          `yaml:"backend"`
	Server        ServerConfig           `yaml:"server"`
	Logging       LoggingConfig          `yaml:"logging"`
}

// DefaultBackground is the canvas backdrop when none is configured.
const DefaultBackground = "https://picsum.photos/800/400"

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Canvas:        CanvasConfig{Width: 800, Height: 400, Background: DefaultBackground, StatusClearMs: 2000},
		Zones: map[string]domain.Zone{
			"A": {X: 50, Y: 50, Width: 200, Height: 150},
			"B": {X: 300, Y: 50, Width: 200, Height: 150},
			"C": {X: 550, Y: 50, Width: 200, Height: 150},
		},
		Import:  ImportConfig{Validation: codec.Strict.String()},
		General: GeneralConfig{TelemetryOptIn: false, Theme: "system"},
		Backend: BackendConfig{BaseURL: "http://localhost:8080", TimeoutMs: 15000, TLSInsecure: false},
		Server:  ServerConfig{Addr: ":8080"},
		Logging: LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvConfigFile       = "ZC_CONFIG"
	EnvCanvasBackground = "ZC_CANVAS_BACKGROUND"
	EnvImportPolicy     = "ZC_IMPORT_VALIDATION"
	EnvBackendURL       = "ZC_BACKEND_URL"
	EnvBackendTimeoutMs = "ZC_BACKEND_TIMEOUT_MS"
	EnvBackendTLSInsec  = "ZC_TLS_INSECURE"
	EnvTelemetryOptIn   = "ZC_TELEMETRY_OPT_IN"
	EnvServerAddr       = "ZC_SERVER_ADDR"
	EnvPGDSN            = "ZC_PG_DSN"
	// EnvServerSecret holds the token signing secret; it is never written to the config file.
	EnvServerSecret = "ZC_SERVER_SECRET"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "ZC_LOG_LEVEL"
	EnvLogFormat = "ZC_LOG_FORMAT"
	EnvLogSource = "ZC_LOG_SOURCE"
	EnvLogFile   = "ZC_LOG_FILE"
)

// ConfigPath returns the per-user config file path. ZC_CONFIG overrides it.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigFile)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "ZoneCanvas")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "ZoneCanvas")
	default: // linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = filepath.Join(xdg, "zonecanvas")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "zonecanvas")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads user config file (if present), applies defaults, and merges environment overrides.
// It also loads the backend token from keyring (not kept inside the struct; returned separately).
// A malformed file is reported but the defaults plus env overrides are still returned.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	var fileErr error
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			fileErr = fmt.Errorf("parse %s: %w", path, err)
		} else {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	tok, _ := LoadToken()
	return cfg, tok, fileErr
}

// Save writes the user config YAML and persists the token into OS keyring (if non-empty).
func Save(cfg AppConfig, token string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if token != "" {
		if err := SaveToken(token); err != nil {
			return err
		}
	}
	return nil
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.Canvas.Width > 0 {
		dst.Canvas.Width = src.Canvas.Width
	}
	if src.Canvas.Height > 0 {
		dst.Canvas.Height = src.Canvas.Height
	}
	if strings.TrimSpace(src.Canvas.Background) != "" {
		dst.Canvas.Background = strings.TrimSpace(src.Canvas.Background)
	}
	if src.Canvas.StatusClearMs > 0 {
		dst.Canvas.StatusClearMs = src.Canvas.StatusClearMs
	}
	// A zones section replaces the default set as a whole.
	if len(src.Zones) > 0 {
		dst.Zones = make(map[string]domain.Zone, len(src.Zones))
		for k, z := range src.Zones {
			dst.Zones[k] = z
		}
	}
	if strings.TrimSpace(src.Import.Validation) != "" {
		dst.Import.Validation = strings.ToLower(strings.TrimSpace(src.Import.Validation))
	}
	if src.General.Theme != "" {
		dst.General.Theme = src.General.Theme
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	if src.Backend.BaseURL != "" {
		dst.Backend.BaseURL = src.Backend.BaseURL
	}
	if src.Backend.TimeoutMs != 0 {
		dst.Backend.TimeoutMs = src.Backend.TimeoutMs
	}
	dst.Backend.TLSInsecure = src.Backend.TLSInsecure
	if src.Server.Addr != "" {
		dst.Server.Addr = src.Server.Addr
	}
	if src.Server.DatabaseURL != "" {
		dst.Server.DatabaseURL = src.Server.DatabaseURL
	}
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func truthy(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvCanvasBackground)); v != "" {
		cfg.Canvas.Background = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvImportPolicy)); v != "" {
		cfg.Import.Validation = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackendURL)); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackendTimeoutMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Backend.TimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackendTLSInsec)); v != "" {
		cfg.Backend.TLSInsecure = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvServerAddr)); v != "" {
		cfg.Server.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPGDSN)); v != "" {
		cfg.Server.DatabaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

var envByKey = map[string]string{
	"canvas.background":        EnvCanvasBackground,
	"import.validation":        EnvImportPolicy,
	"backend.base_url":         EnvBackendURL,
	"backend.timeout_ms":       EnvBackendTimeoutMs,
	"backend.tls_insecure":     EnvBackendTLSInsec,
	"general.telemetry_opt_in": EnvTelemetryOptIn,
	"server.addr":              EnvServerAddr,
	"server.database_url":      EnvPGDSN,
	"logging.level":            EnvLogLevel,
	"logging.format":           EnvLogFormat,
	"logging.source":           EnvLogSource,
	"logging.file":             EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	name, ok := envByKey[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}

// Validate checks the parts of the config that other packages would reject later.
func (c AppConfig) Validate() error {
	if c.Canvas.Width <= 0 || c.Canvas.Height <= 0 {
		return fmt.Errorf("canvas size must be positive, got %dx%d", c.Canvas.Width, c.Canvas.Height)
	}
	if _, err := c.Registry(); err != nil {
		return err
	}
	if _, err := c.Import.Policy(); err != nil {
		return err
	}
	return nil
}

// Registry builds the zone registry from the zones section.
func (c AppConfig) Registry() (*zone.Registry, error) {
	if len(c.Zones) == 0 {
		return zone.Default(), nil
	}
	return zone.FromConfig(c.Zones)
}

// Policy parses the import validation mode.
func (i ImportConfig) Policy() (codec.Policy, error) {
	return codec.ParsePolicy(i.Validation)
}

// StatusClear returns how long transient status messages stay visible.
func (c CanvasConfig) StatusClear() time.Duration {
	if c.StatusClearMs <= 0 {
		return time.Duration(Defaults().Canvas.StatusClearMs) * time.Millisecond
	}
	return time.Duration(c.StatusClearMs) * time.Millisecond
}

// Timeout returns the backend request timeout.
func (b BackendConfig) Timeout() time.Duration {
	if b.TimeoutMs <= 0 {
		return time.Duration(Defaults().Backend.TimeoutMs) * time.Millisecond
	}
	return time.Duration(b.TimeoutMs) * time.Millisecond
}

// LogOptions converts the logging section for log.Init.
func (l LoggingConfig) LogOptions() applog.Options {
	return applog.Options{Level: l.Level, Format: l.Format, AddSource: l.Source, File: l.File}
}

// ServerSecret returns the publish server's token signing secret.
func ServerSecret() string { return strings.TrimSpace(os.Getenv(EnvServerSecret)) }
