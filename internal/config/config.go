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
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// Fields missing from the file keep their defaults.
type AppConfig struct {
	ConfigVersion int            `yaml:"config_version"`
	General       GeneralConfig  `yaml:"general"`
	Canvas        CanvasConfig   `yaml:"canvas"`
	Elements      ElementsConfig `yaml:"elements"`
	Gestures      GesturesConfig `yaml:"gestures"`
	Export        ExportConfig   `yaml:"export"`
	Logging       LoggingConfig  `yaml:"logging"`
}

type GeneralConfig struct {
	TelemetryOptIn bool `yaml:"telemetry_opt_in"`
}

type CanvasConfig struct {
	Width      float64 `yaml:"width"`
	Height     float64 `yaml:"height"`
	Background string  `yaml:"background"`
}

type ElementsConfig struct {
	UploadOffsetX float64 `yaml:"upload_offset_x"`
	UploadOffsetY float64 `yaml:"upload_offset_y"`
	// ImageMaxWidth caps the display width of uploaded images.
	ImageMaxWidth float64 `yaml:"image_max_width"`
	// DropMaxFraction caps dropped images to a share of the surface width and height.
	DropMaxFraction float64    `yaml:"drop_max_fraction"`
	Text            TextConfig `yaml:"text"`
}

// TextConfig is the style box of new text blocks. Fractions are relative to the surface.
type TextConfig struct {
	LeftFraction      float64 `yaml:"left_fraction"`
	TopFraction       float64 `yaml:"top_fraction"`
	MinWidthFraction  float64 `yaml:"min_width_fraction"`
	MinHeightFraction float64 `yaml:"min_height_fraction"`
	MaxWidthFraction  float64 `yaml:"max_width_fraction"`
	MaxHeightFraction float64 `yaml:"max_height_fraction"`
	Padding           float64 `yaml:"padding"`
	FontPx            float64 `yaml:"font_px"`
	Color             string  `yaml:"color"`
	Background        string  `yaml:"background"`
	Placeholder       string  `yaml:"placeholder"`
}

type GesturesConfig struct {
	EdgeMargin float64 `yaml:"edge_margin"`
	ClickSlop  float64 `yaml:"click_slop"`
}

type ExportConfig struct {
	OutputDir  string `yaml:"output_dir"`
	PNGName    string `yaml:"png_name"`
	PDFName    string `yaml:"pdf_name"`
	AnnounceMs int    `yaml:"announce_ms"`
	ProgressMs int    `yaml:"progress_ms"`
	SettleMs   int    `yaml:"settle_ms"`
}

func (e ExportConfig) Announce() time.Duration { return time.Duration(e.AnnounceMs) * time.Millisecond }
func (e ExportConfig) Progress() time.Duration { return time.Duration(e.ProgressMs) * time.Millisecond }
func (e ExportConfig) Settle() time.Duration   { return time.Duration(e.SettleMs) * time.Millisecond }

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false},
		Canvas:        CanvasConfig{Width: 1280, Height: 720, Background: "#ffffff"},
		Elements: ElementsConfig{
			UploadOffsetX:   100,
			UploadOffsetY:   100,
			ImageMaxWidth:   300,
			DropMaxFraction: 0.8,
			Text: TextConfig{
				LeftFraction:      0.01,
				TopFraction:       0.10,
				MinWidthFraction:  0.20,
				MinHeightFraction: 0.10,
				MaxWidthFraction:  0.80,
				MaxHeightFraction: 0.50,
				Padding:           5,
				FontPx:            16,
				Color:             "#333",
				Background:        "#ffffff",
				Placeholder:       "Edit text...",
			},
		},
		Gestures: GesturesConfig{EdgeMargin: 8, ClickSlop: 3},
		Export: ExportConfig{
			OutputDir:  ".",
			PNGName:    "canvas_snapshot.png",
			PDFName:    "canvas_snapshot.pdf",
			AnnounceMs: 800,
			ProgressMs: 2000,
			SettleMs:   500,
		},
		Logging: LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath     = "SCV_CONFIG"
	EnvTelemetryOptIn = "SCV_TELEMETRY_OPT_IN"
	EnvCanvasWidth    = "SCV_CANVAS_WIDTH"
	EnvCanvasHeight   = "SCV_CANVAS_HEIGHT"
	EnvOutputDir      = "SCV_OUTPUT_DIR"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "SCV_LOG_LEVEL"
	EnvLogFormat = "SCV_LOG_FORMAT"
	EnvLogSource = "SCV_LOG_SOURCE"
	EnvLogFile   = "SCV_LOG_FILE"
)

// ErrInvalidConfig is returned when the config file does not match the schema.
var ErrInvalidConfig = errors.New("invalid config")

//go:embed schema.json
var schemaJSON []byte

// ConfigPath returns the per-user config file path. SCV_CONFIG overrides it.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "StoryCanvas")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "StoryCanvas")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "storycanvas")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present) over the defaults and merges environment
// overrides. A file that fails schema validation is ignored and ErrInvalidConfig is
// returned together with the defaults, so callers can warn and continue.
func Load() (AppConfig, error) {
	path, err := ConfigPath()
	if err != nil {
		cfg := Defaults()
		applyEnvOverrides(&cfg)
		return cfg, err
	}
	return LoadFile(path)
}

// LoadFile is Load for an explicit path. A missing file is not an error.
func LoadFile(path string) (AppConfig, error) {
	cfg := Defaults()
	var loadErr error
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		loadErr = fmt.Errorf("read config %s: %w", path, err)
	default:
		fileCfg, err := Parse(data)
		if err != nil {
			loadErr = err
		} else {
			cfg = fileCfg
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, loadErr
}

// Parse validates a YAML document against the schema and decodes it over the defaults.
func Parse(data []byte) (AppConfig, error) {
	cfg := Defaults()
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if doc == nil {
		return cfg, nil
	}
	if err := Validate(doc); err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Defaults(), fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	normalize(&cfg)
	return cfg, nil
}

// Validate checks a decoded YAML document against the embedded JSON schema.
func Validate(doc map[string]any) error {
	res, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schemaJSON), gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
	}
	return nil
}

// Save writes the user config YAML.
func Save(cfg AppConfig) error {
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
	return os.WriteFile(path, data, 0o600)
}

func normalize(cfg *AppConfig) {
	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	cfg.Logging.Format = strings.ToLower(strings.TrimSpace(cfg.Logging.Format))
	cfg.Logging.File = strings.TrimSpace(cfg.Logging.File)
	if strings.TrimSpace(cfg.Export.OutputDir) == "" {
		cfg.Export.OutputDir = "."
	}
}

func truthy(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvCanvasWidth)); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n > 0 {
			cfg.Canvas.Width = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvCanvasHeight)); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n > 0 {
			cfg.Canvas.Height = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvOutputDir)); v != "" {
		cfg.Export.OutputDir = v
	}
	// logging overrides
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

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	env := map[string]string{
		"general.telemetry_opt_in": EnvTelemetryOptIn,
		"canvas.width":             EnvCanvasWidth,
		"canvas.height":            EnvCanvasHeight,
		"export.output_dir":        EnvOutputDir,
		"logging.level":            EnvLogLevel,
		"logging.format":           EnvLogFormat,
		"logging.source":           EnvLogSource,
		"logging.file":             EnvLogFile,
	}[key]
	if env != "" && os.Getenv(env) != "" {
		return env, true
	}
	return "", false
}
