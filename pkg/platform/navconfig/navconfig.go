// Package navconfig loads the optional navigation.yaml that styles the
// native navigation bar.
//
//	ios:
//	  minimumVersion: "15.0"
//	appearance:
//	  title: Inbox
//	  largeTitles: true
//	  tintColor: steelblue
//	  barTintColor: "#F8F8F8"
//
// Colors are #RRGGBB, #AARRGGBB or SVG color names.
package navconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/go-drift/navview/pkg/graphics"
)

// FileName is the configuration file looked up by LoadOptional.
const FileName = "navigation.yaml"

// DefaultMinimumIOSVersion is assumed when ios.minimumVersion is unset.
const DefaultMinimumIOSVersion = "13.0"

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid navigation config")

// Minimum iOS versions for optional bar features.
const (
	largeTitlesSince     = "v11"
	scrollEdgeSince      = "v15"
	navigationBarVersion = "v9" // oldest iOS the native view supports
)

// Config represents navigation.yaml.
type Config struct {
	IOS        IOSConfig        `yaml:"ios"`
	Appearance AppearanceConfig `yaml:"appearance"`
}

// IOSConfig contains deployment settings.
type IOSConfig struct {
	MinimumVersion string `yaml:"minimumVersion,omitempty"`
}

// AppearanceConfig is the unresolved bar appearance as written in YAML.
type AppearanceConfig struct {
	Title                string `yaml:"title,omitempty"`
	LargeTitles          bool   `yaml:"largeTitles,omitempty"`
	TintColor            string `yaml:"tintColor,omitempty"`
	BarTintColor         string `yaml:"barTintColor,omitempty"`
	TitleColor           string `yaml:"titleColor,omitempty"`
	Translucent          *bool  `yaml:"translucent,omitempty"`
	HidesBackButton      bool   `yaml:"hidesBackButton,omitempty"`
	ScrollEdgeAppearance bool   `yaml:"scrollEdgeAppearance,omitempty"`
}

// Appearance is a resolved navigation bar appearance.
// A zero Color means the system default.
type Appearance struct {
	Title                string
	LargeTitles          bool
	TintColor            graphics.Color
	BarTintColor         graphics.Color
	TitleColor           graphics.Color
	Translucent          bool
	HidesBackButton      bool
	ScrollEdgeAppearance bool
}

// Default returns the appearance used when no configuration is present.
func Default() Appearance {
	return Appearance{Translucent: true}
}

// Params encodes the appearance as native view parameters.
func (a Appearance) Params() map[string]any {
	return map[string]any{
		"title":                a.Title,
		"largeTitles":          a.LargeTitles,
		"tintColor":            uint32(a.TintColor),
		"barTintColor":         uint32(a.BarTintColor),
		"titleColor":           uint32(a.TitleColor),
		"translucent":          a.Translucent,
		"hidesBackButton":      a.HidesBackButton,
		"scrollEdgeAppearance": a.ScrollEdgeAppearance,
	}
}

// Parse decodes navigation.yaml content.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}
	return &cfg, nil
}

// LoadOptional reads navigation.yaml from dir if present.
// A missing file yields an empty Config.
func LoadOptional(dir string) (*Config, error) {
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
	}
	return Parse(data)
}

// Load reads navigation.yaml from dir (if present) and resolves it.
func Load(dir string) (Appearance, error) {
	cfg, err := LoadOptional(dir)
	if err != nil {
		return Appearance{}, err
	}
	return cfg.Resolve()
}

// Resolve validates the configuration and applies defaults.
func (c *Config) Resolve() (Appearance, error) {
	minVersion, err := canonicalVersion(c.IOS.MinimumVersion)
	if err != nil {
		return Appearance{}, err
	}

	ac := c.Appearance
	a := Default()
	a.Title = strings.TrimSpace(ac.Title)
	a.LargeTitles = ac.LargeTitles
	a.HidesBackButton = ac.HidesBackButton
	a.ScrollEdgeAppearance = ac.ScrollEdgeAppearance
	if ac.Translucent != nil {
		a.Translucent = *ac.Translucent
	}

	for _, field := range []struct {
		name  string
		value string
		dst   *graphics.Color
	}{
		{"tintColor", ac.TintColor, &a.TintColor},
		{"barTintColor", ac.BarTintColor, &a.BarTintColor},
		{"titleColor", ac.TitleColor, &a.TitleColor},
	} {
		if strings.TrimSpace(field.value) == "" {
			continue
		}
		color, err := ParseColor(field.value)
		if err != nil {
			return Appearance{}, fmt.Errorf("%w: appearance.%s: %v", ErrInvalidConfig, field.name, err)
		}
		*field.dst = color
	}

	if a.LargeTitles && semver.Compare(minVersion, largeTitlesSince) < 0 {
		return Appearance{}, fmt.Errorf("%w: largeTitles requires iOS 11, minimumVersion is %s",
			ErrInvalidConfig, strings.TrimPrefix(minVersion, "v"))
	}
	if a.ScrollEdgeAppearance && semver.Compare(minVersion, scrollEdgeSince) < 0 {
		return Appearance{}, fmt.Errorf("%w: scrollEdgeAppearance requires iOS 15, minimumVersion is %s",
			ErrInvalidConfig, strings.TrimPrefix(minVersion, "v"))
	}

	return a, nil
}

// canonicalVersion turns "15", "15.0" or "15.0.1" into a semver string.
func canonicalVersion(version string) (string, error) {
	version = strings.TrimSpace(version)
	if version == "" {
		version = DefaultMinimumIOSVersion
	}
	v := "v" + strings.TrimPrefix(version, "v")
	if !semver.IsValid(v) || semver.Prerelease(v) != "" || semver.Build(v) != "" {
		return "", fmt.Errorf("%w: ios.minimumVersion %q is not a version number", ErrInvalidConfig, version)
	}
	if semver.Compare(v, navigationBarVersion) < 0 {
		return "", fmt.Errorf("%w: ios.minimumVersion %s is older than iOS 9", ErrInvalidConfig, version)
	}
	return semver.Canonical(v), nil
}

// ParseColor parses #RRGGBB, #AARRGGBB or an SVG color name.
func ParseColor(s string) (graphics.Color, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") {
		hex := s[1:]
		n, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return 0, fmt.Errorf("bad hex color %q", s)
		}
		switch len(hex) {
		case 6:
			return graphics.Color(0xFF000000 | uint32(n)), nil
		case 8:
			return graphics.Color(uint32(n)), nil
		default:
			return 0, fmt.Errorf("hex color %q must have 6 or 8 digits", s)
		}
	}
	if c, ok := colornames.Map[strings.ToLower(s)]; ok {
		return graphics.FromColor(c), nil
	}
	return 0, fmt.Errorf("unknown color %q", s)
}
