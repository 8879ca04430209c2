package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIURL  = "http://127.0.0.1:8000/api"
	DefaultTimeout = 30 * time.Second
	fileName       = "config.yaml"
)

// File is the on-disk shape of ~/.gmao/config.yaml.
type File struct {
	APIURL  string  `yaml:"api_url,omitempty"`
	Timeout string  `yaml:"timeout,omitempty"`
	Format  string  `yaml:"format,omitempty"`
	Log     LogFile `yaml:"log,omitempty"`
	TUI     TUIFile `yaml:"tui,omitempty"`
}

type LogFile struct {
	Level      string `yaml:"level,omitempty"`
	File       string `yaml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb,omitempty"`
	MaxBackups int    `yaml:"max_backups,omitempty"`
	MaxAgeDays int    `yaml:"max_age_days,omitempty"`
}

type TUIFile struct {
	// Glyphs selects the glyph set ("unicode" or "ascii").
	Glyphs        string `yaml:"glyphs,omitempty"`
	MarkdownStyle string `yaml:"markdown_style,omitempty"`
}

// Env holds the GMAO_* environment overrides.
type Env struct {
	APIURL    string        `env:"GMAO_API_URL"`
	Timeout   time.Duration `env:"GMAO_TIMEOUT"`
	Format    string        `env:"GMAO_FORMAT"`
	LogLevel  string        `env:"GMAO_LOG_LEVEL"`
	LogFile   string        `env:"GMAO_LOG_FILE"`
	ConfigDir string        `env:"GMAO_CONFIG_DIR"`
}

// Config is the resolved configuration (file < env; flags are applied by the CLI).
type Config struct {
	Dir     string
	APIURL  string
	Timeout time.Duration
	Format  string
	Log     LogConfig
	TUI     TUIFile
}

type LogConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Dir returns the client state directory (~/.gmao unless GMAO_CONFIG_DIR is set).
func Dir() (string, error) {
	if v := strings.TrimSpace(os.Getenv("GMAO_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".gmao"), nil
}

// LoadDotEnv loads ./.env when present. Variables already set win.
func LoadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// Load resolves configuration from dir/config.yaml and the environment.
// An empty dir means Dir().
func Load(dir string) (*Config, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if strings.TrimSpace(dir) == "" {
		dir = strings.TrimSpace(e.ConfigDir)
	}
	if dir == "" {
		d, err := Dir()
		if err != nil {
			return nil, err
		}
		dir = d
	}

	f, err := ReadFile(dir)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Dir:     dir,
		APIURL:  DefaultAPIURL,
		Timeout: DefaultTimeout,
		Format:  "json",
		Log: LogConfig{
			Level:      "info",
			File:       filepath.Join(dir, "gmao.log"),
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		TUI: TUIFile{Glyphs: "unicode", MarkdownStyle: "auto"},
	}
	applyFile(cfg, f)

	if v := strings.TrimSpace(e.APIURL); v != "" {
		cfg.APIURL = v
	}
	if e.Timeout > 0 {
		cfg.Timeout = e.Timeout
	}
	if v := strings.TrimSpace(e.Format); v != "" {
		cfg.Format = v
	}
	if v := strings.TrimSpace(e.LogLevel); v != "" {
		cfg.Log.Level = v
	}
	if v := strings.TrimSpace(e.LogFile); v != "" {
		cfg.Log.File = v
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	return cfg, nil
}

func applyFile(cfg *Config, f *File) {
	if f == nil {
		return
	}
	if v := strings.TrimSpace(f.APIURL); v != "" {
		cfg.APIURL = v
	}
	if v := strings.TrimSpace(f.Timeout); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Timeout = d
		}
	}
	if v := strings.TrimSpace(f.Format); v != "" {
		cfg.Format = v
	}
	if v := strings.TrimSpace(f.Log.Level); v != "" {
		cfg.Log.Level = v
	}
	if v := strings.TrimSpace(f.Log.File); v != "" {
		if !filepath.IsAbs(v) {
			v = filepath.Join(cfg.Dir, v)
		}
		cfg.Log.File = v
	}
	if f.Log.MaxSizeMB > 0 {
		cfg.Log.MaxSizeMB = f.Log.MaxSizeMB
	}
	if f.Log.MaxBackups > 0 {
		cfg.Log.MaxBackups = f.Log.MaxBackups
	}
	if f.Log.MaxAgeDays > 0 {
		cfg.Log.MaxAgeDays = f.Log.MaxAgeDays
	}
	if v := strings.TrimSpace(f.TUI.Glyphs); v != "" {
		cfg.TUI.Glyphs = v
	}
	if v := strings.TrimSpace(f.TUI.MarkdownStyle); v != "" {
		cfg.TUI.MarkdownStyle = v
	}
}

// ReadFile reads dir/config.yaml. A missing file yields an empty File.
func ReadFile(dir string) (*File, error) {
	b, err := os.ReadFile(filepath.Join(dir, fileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &File{}, nil
		}
		return nil, err
	}
	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", fileName, err)
	}
	return &f, nil
}

// WriteFile atomically replaces dir/config.yaml.
func WriteFile(dir string, f *File) error {
	if f == nil {
		return errors.New("nil config")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(f)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, fileName)
	tmp, err := os.CreateTemp(dir, ".config-*.yaml")
	if err != nil {
		return err
	}
	name := tmp.Name()
	defer func() { _ = os.Remove(name) }()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(name, path)
}

// Keys lists the settable config.yaml keys.
var Keys = []string{"api_url", "timeout", "format", "log.level", "log.file", "tui.glyphs", "tui.markdown_style"}

// Set updates one key on f.
func (f *File) Set(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case "api_url":
		f.APIURL = value
	case "timeout":
		if value != "" {
			if _, err := time.ParseDuration(value); err != nil {
				return fmt.Errorf("invalid timeout %q: %w", value, err)
			}
		}
		f.Timeout = value
	case "format":
		if value != "" && value != "json" && value != "edn" && value != "text" {
			return fmt.Errorf("unknown format: %s", value)
		}
		f.Format = value
	case "log.level":
		f.Log.Level = value
	case "log.file":
		f.Log.File = value
	case "tui.glyphs":
		if value != "" && value != "unicode" && value != "ascii" {
			return fmt.Errorf("unknown glyph set: %s", value)
		}
		f.TUI.Glyphs = value
	case "tui.markdown_style":
		f.TUI.MarkdownStyle = value
	default:
		return fmt.Errorf("unknown key %q (want one of %s)", key, strings.Join(Keys, ", "))
	}
	return nil
}
