package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. ORGCAL_LISTEN.
const EnvPrefix = "ORGCAL_"

// BasicAuthConfig holds HTTP Basic Auth credentials for the web server.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for `orgcal serve`.
	Listen string `yaml:"listen" json:"listen"`

	// Sources lists Org files or directories. Directories contribute
	// their *.org files, non-recursively.
	Sources []string `yaml:"sources" json:"sources"`

	// BeforeDays / AfterDays bound the window around now. Zero or less
	// disables a bound.
	BeforeDays int `yaml:"before_days" json:"before_days"`
	AfterDays  int `yaml:"after_days" json:"after_days"`

	// Mode is "plan", "clock" or "all".
	Mode string `yaml:"mode" json:"mode"`

	// TodoKeywords are the headline keywords recognized by the parser.
	TodoKeywords []string `yaml:"todo_keywords" json:"todo_keywords"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// used by the server to rebuild its snapshot.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// Output, if set, receives the JSON snapshot after each refresh.
	Output string `yaml:"output" json:"output"`

	// KeepGoing skips documents that fail to load instead of failing
	// the whole batch.
	KeepGoing bool `yaml:"keep_going" json:"keep_going"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	// CalendarName is the X-WR-CALNAME of exported iCalendar feeds.
	CalendarName string `yaml:"calendar_name" json:"calendar_name"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:       "127.0.0.1:8080",
		Sources:      []string{},
		Mode:         "plan",
		TodoKeywords: []string{"TODO", "DONE"},
		RefreshCron:  "*/5 * * * *",
		LogLevel:     "info",
		CalendarName: "orgcal",
	}
}

// Normalize fills in missing/zero values with defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Sources == nil {
		c.Sources = []string{}
	}
	switch strings.ToLower(c.Mode) {
	case "plan", "clock", "all":
		c.Mode = strings.ToLower(c.Mode)
	default:
		c.Mode = def.Mode
	}
	if len(c.TodoKeywords) == 0 {
		c.TodoKeywords = def.TodoKeywords
	}
	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.CalendarName == "" {
		c.CalendarName = def.CalendarName
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - Otherwise the YAML is unmarshalled and normalized.
//
// Environment overrides are not applied here; see ApplyEnv.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (".env" when none
// are named) into the process environment. Existing variables win and
// missing files are not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	present := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}
	return godotenv.Load(present...)
}

// ApplyEnv overrides fields from ORGCAL_* variables looked up with
// lookup (os.LookupEnv in production).
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = n
		return nil
	}

	str("LISTEN", &c.Listen)
	str("MODE", &c.Mode)
	str("REFRESH", &c.RefreshCron)
	str("OUTPUT", &c.Output)
	str("LOG_LEVEL", &c.LogLevel)
	str("CALENDAR_NAME", &c.CalendarName)
	if err := num("BEFORE_DAYS", &c.BeforeDays); err != nil {
		return err
	}
	if err := num("AFTER_DAYS", &c.AfterDays); err != nil {
		return err
	}
	if v, ok := lookup(EnvPrefix + "SOURCES"); ok && v != "" {
		c.Sources = filepath.SplitList(v)
	}
	if v, ok := lookup(EnvPrefix + "TODO_KEYWORDS"); ok && v != "" {
		c.TodoKeywords = strings.Fields(strings.ReplaceAll(v, ",", " "))
	}
	if v, ok := lookup(EnvPrefix + "KEEP_GOING"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sKEEP_GOING: %w", EnvPrefix, err)
		}
		c.KeepGoing = b
	}
	user, hasUser := lookup(EnvPrefix + "BASIC_AUTH_USERNAME")
	pass, hasPass := lookup(EnvPrefix + "BASIC_AUTH_PASSWORD")
	if hasUser || hasPass {
		if c.BasicAuth == nil {
			c.BasicAuth = &BasicAuthConfig{}
		}
		if hasUser {
			c.BasicAuth.Username = user
		}
		if hasPass {
			c.BasicAuth.Password = pass
		}
	}

	c.Normalize()
	return nil
}

// Save writes the given configuration to the specified path with 0600
// permissions, creating the parent directory if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data, 0o600)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}

// WriteFileAtomic writes data to a temp file next to path and renames it
// into place, so readers never see a partial file.
func WriteFileAtomic(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".orgcal-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	// Flush and close before chmod/rename.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, perm); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
