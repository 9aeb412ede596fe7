// Package profile loads connection profiles from the organization's
// gooddata.yaml marker file.
package profile

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	// EnvToken overrides the token of the selected profile.
	EnvToken = "GDC_TOKEN"
	// EnvHost overrides the host of the selected profile.
	EnvHost = "GDC_HOST"

	defaultProfileName = "default"
)

var (
	ErrProfileNotFound   = errors.New("profile not found")
	ErrIncompleteProfile = errors.New("profile must define host and token")
	ErrInvalidLayout     = errors.New("invalid layout")
)

// Layout selects how workspaces are written to disk.
type Layout string

const (
	// LayoutAAC delegates workspaces to the gd binary (analytics as code).
	LayoutAAC Layout = "aac"
	// LayoutNative stores the declarative workspace model directly.
	LayoutNative Layout = "native"
)

// Profile holds the connection settings of one organization.
type Profile struct {
	Name          string
	Host          string
	Token         string
	CustomHeaders map[string]string
}

// Config is the parsed gooddata.yaml.
type Config struct {
	DefaultProfile string
	Layout         Layout
	Pushgateway    string // Prometheus Pushgateway URL. Empty disables pushing.

	v *viper.Viper
}

// Load reads gooddata.yaml at path. Unknown keys are ignored so the same
// file can carry settings of other tools.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("default_profile", defaultProfileName)
	v.SetDefault("layout", string(LayoutAAC))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("profile: failed to read %s: %w", path, err)
	}

	cfg := &Config{
		DefaultProfile: v.GetString("default_profile"),
		Layout:         Layout(strings.ToLower(v.GetString("layout"))),
		Pushgateway:    os.ExpandEnv(v.GetString("metrics.pushgateway")),
		v:              v,
	}
	switch cfg.Layout {
	case LayoutAAC, LayoutNative:
	default:
		return nil, fmt.Errorf("profile: %w %q (expected %q or %q)", ErrInvalidLayout, cfg.Layout, LayoutAAC, LayoutNative)
	}
	return cfg, nil
}

// Profile returns the named profile, or the default one when name is empty.
// String values may reference environment variables as $VAR or ${VAR}.
// GDC_HOST and GDC_TOKEN take precedence over the file.
func (c *Config) Profile(name string) (*Profile, error) {
	if name == "" {
		name = c.DefaultProfile
	}
	// viper keys are case-insensitive.
	key := "profiles." + strings.ToLower(name)
	if !c.v.IsSet(key) {
		return nil, fmt.Errorf("profile: %w: %q", ErrProfileNotFound, name)
	}

	p := &Profile{
		Name:          name,
		Host:          os.ExpandEnv(c.v.GetString(key + ".host")),
		Token:         os.ExpandEnv(c.v.GetString(key + ".token")),
		CustomHeaders: map[string]string{},
	}
	for k, val := range c.v.GetStringMapString(key + ".custom_headers") {
		p.CustomHeaders[k] = os.ExpandEnv(val)
	}

	if host := os.Getenv(EnvHost); host != "" {
		p.Host = host
	}
	if token := os.Getenv(EnvToken); token != "" {
		p.Token = token
	}

	if p.Host == "" || p.Token == "" {
		return nil, fmt.Errorf("profile: %q: %w", name, ErrIncompleteProfile)
	}
	return p, nil
}
