package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/alnah/go-trustedmarkup/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidField    = errors.New("invalid config value")
)

// Field length limits.
const (
	MaxURLLength         = 2048 // Browser limit
	MaxVariantLength     = 20   // "default", "physics"
	MaxEnvironmentLength = 20   // "DEV", "PROD"
	MaxPathLength        = 4096 // PATH_MAX on Linux
	MaxStyleLength       = 50   // chroma style name
	MaxGlossaryFiles     = 64
	MaxWorkers           = 64
)

// Valid site variants and environments.
const (
	VariantDefault = "default"
	VariantPhysics = "physics"

	EnvironmentDev  = "DEV"
	EnvironmentProd = "PROD"
)

// Config holds all configuration for rendering content.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Sanitize  SanitizeConfig  `yaml:"sanitize"`
	Glossary  GlossaryConfig  `yaml:"glossary"`
	Render    RenderConfig    `yaml:"render"`
	Highlight HighlightConfig `yaml:"highlight"`
}

// SiteConfig describes the site content is rendered for.
type SiteConfig struct {
	Origin      string `yaml:"origin"`      // e.g. "https://isaacphysics.org" (empty = only relative links are internal)
	Variant     string `yaml:"variant"`     // "default", "physics" (default: "default")
	Environment string `yaml:"environment"` // "DEV", "PROD" (default: "DEV")
}

// SanitizeConfig controls the optional HTML sanitizer.
type SanitizeConfig struct {
	Enabled bool `yaml:"enabled"`
}

// GlossaryConfig lists glossary term files.
type GlossaryConfig struct {
	Files []string `yaml:"files"`
}

// RenderConfig controls CLI rendering.
type RenderConfig struct {
	Workers    int  `yaml:"workers"`    // 0 = auto
	Standalone bool `yaml:"standalone"` // Wrap output in a full HTML document
}

// HighlightConfig selects the code highlighting stylesheet.
type HighlightConfig struct {
	Style string `yaml:"style"` // chroma style name (default: "github")
}

// Validate checks field values and lengths.
// Called automatically by LoadConfig, but available for consumers
// who construct Config manually.
func (c *Config) Validate() error {
	if err := validateFieldLength("site.origin", c.Site.Origin, MaxURLLength); err != nil {
		return err
	}
	if c.Site.Origin != "" {
		u, err := url.Parse(c.Site.Origin)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: site.origin %q (must be an absolute http(s) URL)", ErrInvalidField, c.Site.Origin)
		}
	}

	if err := validateFieldLength("site.variant", c.Site.Variant, MaxVariantLength); err != nil {
		return err
	}
	switch strings.ToLower(c.Site.Variant) {
	case "", VariantDefault, VariantPhysics:
	default:
		return fmt.Errorf("%w: site.variant %q (must be default or physics)", ErrInvalidField, c.Site.Variant)
	}

	if err := validateFieldLength("site.environment", c.Site.Environment, MaxEnvironmentLength); err != nil {
		return err
	}
	switch strings.ToUpper(c.Site.Environment) {
	case "", EnvironmentDev, EnvironmentProd:
	default:
		return fmt.Errorf("%w: site.environment %q (must be DEV or PROD)", ErrInvalidField, c.Site.Environment)
	}

	if len(c.Glossary.Files) > MaxGlossaryFiles {
		return fmt.Errorf("%w: glossary.files (%d entries, max %d)", ErrInvalidField, len(c.Glossary.Files), MaxGlossaryFiles)
	}
	for i, f := range c.Glossary.Files {
		if err := validateFieldLength(fmt.Sprintf("glossary.files[%d]", i), f, MaxPathLength); err != nil {
			return err
		}
	}

	if c.Render.Workers < 0 || c.Render.Workers > MaxWorkers {
		return fmt.Errorf("%w: render.workers must be between 0 and %d, got %d", ErrInvalidField, MaxWorkers, c.Render.Workers)
	}

	if err := validateFieldLength("highlight.style", c.Highlight.Style, MaxStyleLength); err != nil {
		return err
	}

	return nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// DefaultConfig returns a configuration for the default site in development.
func DefaultConfig() *Config {
	return &Config{
		Site:      SiteConfig{Variant: VariantDefault, Environment: EnvironmentDev},
		Sanitize:  SanitizeConfig{Enabled: false},
		Render:    RenderConfig{Workers: 0},
		Highlight: HighlightConfig{Style: "github"},
	}
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Relative glossary paths are resolved against the config file's directory.
// Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if isFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	cfg := DefaultConfig()
	if err := yamlutil.DecodeFile(configPath, cfg, yamlutil.Strict()); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	base := filepath.Dir(configPath)
	for i, f := range cfg.Glossary.Files {
		if !filepath.IsAbs(f) {
			cfg.Glossary.Files[i] = filepath.Join(base, f)
		}
	}

	return cfg, nil
}

// isFilePath returns true if the string looks like a file path.
func isFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

// resolveConfigPath searches for a config file by name in standard locations.
// Tries extensions in order: .yaml, .yml
// Tries locations in order: current directory, ~/.config/go-trustedmarkup/
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	triedPaths := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		localPath := name + ext
		if fileExists(localPath) {
			return localPath, nil
		}
		triedPaths = append(triedPaths, localPath)
	}

	userConfigDir, err := os.UserConfigDir()
	if err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, "go-trustedmarkup", name+ext)
			if fileExists(userPath) {
				return userPath, nil
			}
			triedPaths = append(triedPaths, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(triedPaths, ", "))
}

// fileExists returns true if the path exists and is a regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
