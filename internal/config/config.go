package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults for the published catalog asset. Each coordinate is independently
// overridable via environment or the settings file.
const (
	DefaultCatalogOwner = "auxdeck"
	DefaultCatalogRepo  = "releases"
	DefaultCatalogTag   = "catalog"
	DefaultCatalogAsset = "catalog.json"

	defaultTimeoutSeconds = 30
)

// CatalogSettings locates the published release catalog asset.
type CatalogSettings struct {
	Owner string `yaml:"owner"`
	Repo  string `yaml:"repo"`
	Tag   string `yaml:"tag"`
	Asset string `yaml:"asset"`
}

// AssetURL builds the release-asset download URL from the coordinates.
func (c CatalogSettings) AssetURL() string {
	return fmt.Sprintf("https://github.com/%s/%s/releases/download/%s/%s",
		c.Owner, c.Repo, c.Tag, c.Asset)
}

// TrustSettings carries the optional PEM public key used to validate catalog
// and per-release signatures. When neither field is set, signature checking is
// disabled; hash checking remains mandatory regardless.
type TrustSettings struct {
	Key     string `yaml:"key"`
	KeyFile string `yaml:"key_file"`
}

// NetworkSettings bounds outbound requests.
type NetworkSettings struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// Timeout returns the configured request deadline.
func (n NetworkSettings) Timeout() time.Duration {
	if n.TimeoutSeconds <= 0 {
		return defaultTimeoutSeconds * time.Second
	}
	return time.Duration(n.TimeoutSeconds) * time.Second
}

// Settings is the application configuration, loaded from an optional YAML file
// with environment overrides applied on top.
type Settings struct {
	Catalog CatalogSettings `yaml:"catalog"`
	Trust   TrustSettings   `yaml:"trust"`
	Network NetworkSettings `yaml:"network"`
}

// Load reads the settings file at path (absence is not an error) and applies
// environment overrides.
func Load(path string) (Settings, error) {
	s := Settings{
		Catalog: CatalogSettings{
			Owner: DefaultCatalogOwner,
			Repo:  DefaultCatalogRepo,
			Tag:   DefaultCatalogTag,
			Asset: DefaultCatalogAsset,
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &s); err != nil {
				return Settings{}, fmt.Errorf("parse settings %q: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
			// Defaults apply.
		default:
			return Settings{}, fmt.Errorf("read settings %q: %w", path, err)
		}
	}

	s.applyEnv()
	return s, nil
}

func (s *Settings) applyEnv() {
	overrideEnv(&s.Catalog.Owner, "AUXDECK_CATALOG_OWNER")
	overrideEnv(&s.Catalog.Repo, "AUXDECK_CATALOG_REPO")
	overrideEnv(&s.Catalog.Tag, "AUXDECK_CATALOG_TAG")
	overrideEnv(&s.Catalog.Asset, "AUXDECK_CATALOG_ASSET")
	overrideEnv(&s.Trust.Key, "AUXDECK_TRUST_KEY")
	overrideEnv(&s.Trust.KeyFile, "AUXDECK_TRUST_KEY_FILE")
}

func overrideEnv(target *string, name string) {
	if value, ok := os.LookupEnv(name); ok && strings.TrimSpace(value) != "" {
		*target = strings.TrimSpace(value)
	}
}

// TrustKey resolves the configured PEM public key, reading the key file when
// no inline key is set. Returns an empty string when no key is configured.
func (s Settings) TrustKey() (string, error) {
	if key := strings.TrimSpace(s.Trust.Key); key != "" {
		return key, nil
	}
	if s.Trust.KeyFile == "" {
		return "", nil
	}
	data, err := os.ReadFile(s.Trust.KeyFile)
	if err != nil {
		return "", fmt.Errorf("read trust key file %q: %w", s.Trust.KeyFile, err)
	}
	return strings.TrimSpace(string(data)), nil
}
