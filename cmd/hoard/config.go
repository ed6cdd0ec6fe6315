package main

import (
	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/oda/hoard/pile"
)

const (
	defaultLogLevel  = logrus.InfoLevel
	defaultLogFormat = "text"
	defaultListen    = ":8080"
	defaultAccess    = "random"
)

// Config is the optional TOML configuration file. Flags override it.
type Config struct {
	LogLevel     string `toml:"log_level"`
	LogFormat    string `toml:"log_format"`
	SyncOnCommit bool   `toml:"sync_on_commit"`
	Access       string `toml:"access"`
	Listen       string `toml:"listen"`
	Lock         bool   `toml:"lock"`
}

func defaultConfig() Config {
	return Config{
		LogLevel:     defaultLogLevel.String(),
		LogFormat:    defaultLogFormat,
		SyncOnCommit: true,
		Access:       defaultAccess,
		Listen:       defaultListen,
	}
}

// loadConfig reads path on top of the defaults. Keys missing from the
// file keep their default.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	tree, err := toml.LoadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "load config %s", path)
	}
	if err := setString(tree, "log_level", &cfg.LogLevel); err != nil {
		return cfg, err
	}
	if err := setString(tree, "log_format", &cfg.LogFormat); err != nil {
		return cfg, err
	}
	if err := setString(tree, "access", &cfg.Access); err != nil {
		return cfg, err
	}
	if err := setString(tree, "listen", &cfg.Listen); err != nil {
		return cfg, err
	}
	if err := setBool(tree, "sync_on_commit", &cfg.SyncOnCommit); err != nil {
		return cfg, err
	}
	if err := setBool(tree, "lock", &cfg.Lock); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func setString(tree *toml.Tree, key string, dst *string) error {
	if !tree.Has(key) {
		return nil
	}
	v, ok := tree.Get(key).(string)
	if !ok {
		return errors.Errorf("config key %s must be a string", key)
	}
	*dst = v
	return nil
}

func setBool(tree *toml.Tree, key string, dst *bool) error {
	if !tree.Has(key) {
		return nil
	}
	v, ok := tree.Get(key).(bool)
	if !ok {
		return errors.Errorf("config key %s must be a boolean", key)
	}
	*dst = v
	return nil
}

// Validate checks the enumerated settings.
func (c Config) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "invalid log_level")
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return errors.Errorf("invalid log_format %q", c.LogFormat)
	}
	if _, err := c.access(); err != nil {
		return err
	}
	return nil
}

func (c Config) access() (pile.Access, error) {
	switch c.Access {
	case "random", "":
		return pile.AccessRandom, nil
	case "sequential":
		return pile.AccessSequential, nil
	default:
		return 0, errors.Errorf("invalid access %q", c.Access)
	}
}

// options returns the pile options for c.
func (c Config) options(log logrus.FieldLogger, m *pile.Metrics) []pile.Option {
	access, _ := c.access()
	opts := []pile.Option{
		pile.WithLogger(log),
		pile.WithSyncOnCommit(c.SyncOnCommit),
		pile.WithAccess(access),
	}
	if m != nil {
		opts = append(opts, pile.WithMetrics(m))
	}
	if c.Lock {
		opts = append(opts, pile.WithExclusiveLock())
	}
	return opts
}
