package repo

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// ConfigFileName is the repository config file inside .twig/.
const ConfigFileName = "config.toml"

// Config stores repository-local settings.
type Config struct {
	Core    CoreConfig    `toml:"core"`
	User    UserConfig    `toml:"user"`
	Log     LogConfig     `toml:"log"`
	Signing SigningConfig `toml:"signing"`
}

type CoreConfig struct {
	DefaultBranch string `toml:"default_branch"`
	Compression   bool   `toml:"compression"`
}

type UserConfig struct {
	Name string `toml:"name"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type SigningConfig struct {
	Key  string `toml:"key"`
	Sign bool   `toml:"sign"`
}

// DefaultConfig returns the settings used when config.toml is missing or
// leaves a key unset.
func DefaultConfig() *Config {
	return &Config{
		Core: CoreConfig{
			DefaultBranch: "main",
			Compression:   true,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// LoadConfig decodes the TOML file at path over DefaultConfig. A missing file
// yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("read config: unknown keys: %s", strings.Join(keys, ", "))
	}
	if strings.TrimSpace(cfg.Core.DefaultBranch) == "" {
		cfg.Core.DefaultBranch = "main"
	}
	if err := ValidateBranchName(cfg.Core.DefaultBranch); err != nil {
		return nil, fmt.Errorf("read config: core.default_branch: %w", err)
	}
	return cfg, nil
}

// Save atomically writes cfg as TOML to path.
func (c *Config) Save(path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("write config: encode: %w", err)
	}
	if err := writeFileAtomic(path, buf.Bytes()); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (r *Repo) configPath() string {
	return filepath.Join(r.TwigDir, ConfigFileName)
}

// ReadConfig re-reads .twig/config.toml and replaces r.Config.
func (r *Repo) ReadConfig() (*Config, error) {
	cfg, err := LoadConfig(r.configPath())
	if err != nil {
		return nil, err
	}
	r.Config = cfg
	return cfg, nil
}

// WriteConfig persists cfg and makes it the active config.
func (r *Repo) WriteConfig(cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Save(r.configPath()); err != nil {
		return err
	}
	r.Config = cfg
	return nil
}

// DefaultAuthor returns user.name from config, or "unknown" when unset.
func (r *Repo) DefaultAuthor() string {
	if r.Config != nil && strings.TrimSpace(r.Config.User.Name) != "" {
		return strings.TrimSpace(r.Config.User.Name)
	}
	return "unknown"
}

// writeFileAtomic writes data to a temp file next to path and renames it
// into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-tmp-*")
	if err != nil {
		return fmt.Errorf("tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
