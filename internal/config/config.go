// Package config loads the console's settings. Values are layered:
// defaults, then the config file, then CONSOLE_* environment variables,
// then command-line flags.
package config

import (
	"bytes"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"dario.cat/mergo"
	"emperror.dev/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	console "github.com/matgreaves/console/client"
)

// Environment variables read by Load.
const (
	EnvConfig   = "CONSOLE_CONFIG"
	EnvAPIURL   = "CONSOLE_API_URL"
	EnvToken    = "CONSOLE_TOKEN"
	EnvLogLevel = "CONSOLE_LOG_LEVEL"
)

// DefaultAPIURL is where consoled listens by default.
const DefaultAPIURL = "http://127.0.0.1:8642"

// Config is one layer of settings. Retries is a pointer so that an
// explicit 0 disables retries.
type Config struct {
	APIURL       string        `yaml:"api_url,omitempty"`
	Token        string        `yaml:"token,omitempty"`
	Organization string        `yaml:"organization,omitempty"`
	Timeout      time.Duration `yaml:"timeout,omitempty"`
	Retries      *int          `yaml:"retries,omitempty"`
	LogLevel     string        `yaml:"log_level,omitempty"`
	LogFormat    string        `yaml:"log_format,omitempty"`
}

func Default() Config {
	return Config{
		APIURL:    DefaultAPIURL,
		Timeout:   30 * time.Second,
		Retries:   Int(2),
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Int returns a pointer to n, for setting Retries.
func Int(n int) *int { return &n }

// Path returns $CONSOLE_CONFIG, or ~/.console/config.yaml.
func Path() string {
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".console", "config.yaml")
	}
	return filepath.Join(home, ".console", "config.yaml")
}

// Load layers the file at path, the environment and flags over the
// defaults. A missing file is not an error. Empty fields of a layer leave
// the lower layers alone; a set Retries wins even when it is 0.
func Load(path string, flags Config) (Config, error) {
	cfg := Default()

	file, err := ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	for _, layer := range []Config{file, FromEnv(os.LookupEnv), flags} {
		if err := mergo.Merge(&cfg, layer, mergo.WithOverride, mergo.WithoutDereference); err != nil {
			return Config{}, errors.Wrap(err, "merge config")
		}
	}
	return cfg, nil
}

// ReadFile decodes a config file, returning the zero Config when it does
// not exist.
func ReadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, errors.WrapWithDetails(err, "read config", "path", path)
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, errors.WrapWithDetails(err, "decode config", "path", path)
	}
	return cfg, nil
}

// FromEnv reads the CONSOLE_* variables through lookup.
func FromEnv(lookup func(string) (string, bool)) Config {
	var cfg Config
	if v, ok := lookup(EnvAPIURL); ok {
		cfg.APIURL = v
	}
	if v, ok := lookup(EnvToken); ok {
		cfg.Token = v
	}
	if v, ok := lookup(EnvLogLevel); ok {
		cfg.LogLevel = v
	}
	return cfg
}

// Save writes cfg to path, creating the directory. The file holds a
// session token, so it is private to the user.
func (c Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.WrapWithDetails(err, "create config dir", "path", path)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return errors.Wrap(err, "encode config")
	}
	if err := enc.Close(); err != nil {
		return errors.Wrap(err, "encode config")
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o600); err != nil {
		return errors.WrapWithDetails(err, "write config", "path", path)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.WrapWithDetails(err, "write config", "path", path)
	}
	return nil
}

// ConfigureLogger applies the level and format to l.
func (c Config) ConfigureLogger(l *log.Logger) error {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return errors.WithDetails(err, "log_level", c.LogLevel)
	}
	l.SetLevel(level)

	switch c.LogFormat {
	case "", "text":
		l.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case "json":
		l.SetFormatter(&log.JSONFormatter{})
	default:
		return errors.Errorf("unknown log_format %q (must be one of: text, json)", c.LogFormat)
	}
	return nil
}

// Client returns an API client for the configured endpoint and token.
func (c Config) Client(l *log.Logger) *console.Client {
	opts := []console.Option{
		console.WithToken(c.Token),
		console.WithTimeout(c.Timeout),
		console.WithLogger(l),
	}
	if c.Retries != nil {
		opts = append(opts, console.WithRetries(*c.Retries))
	}
	return console.New(c.APIURL, opts...)
}
