// Command hoard creates, appends to and inspects pile files.
package main

import (
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/oda/hoard/pile"
)

// Version is set at build time.
var Version = "dev"

type app struct {
	cfg     Config
	log     *logrus.Logger
	out     io.Writer
	reg     *prometheus.Registry
	metrics *pile.Metrics
}

func newApp(out, errOut io.Writer) *cli.App {
	reg := prometheus.NewRegistry()
	a := &app{
		cfg:     defaultConfig(),
		log:     logrus.New(),
		out:     out,
		reg:     reg,
		metrics: pile.NewMetrics(reg),
	}
	a.log.SetOutput(errOut)

	return &cli.App{
		Name:      "hoard",
		Usage:     "append-only memory-mapped value store",
		Version:   Version,
		Writer:    out,
		ErrWriter: errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a TOML configuration file",
				EnvVars: []string{"HOARD_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   defaultLogLevel.String(),
				Usage:   "set the logging level [trace, debug, info, warn, error, fatal, panic]",
				EnvVars: []string{"HOARD_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Value:   defaultLogFormat,
				Usage:   "log format [text, json]",
				EnvVars: []string{"HOARD_LOG_FORMAT"},
			},
			&cli.StringFlag{
				Name:    "access",
				Value:   defaultAccess,
				Usage:   "read pattern hint for mappings [random, sequential]",
				EnvVars: []string{"HOARD_ACCESS"},
			},
			&cli.BoolFlag{
				Name:    "sync",
				Value:   true,
				Usage:   "fsync after every commit",
				EnvVars: []string{"HOARD_SYNC"},
			},
			&cli.BoolFlag{
				Name:    "lock",
				Usage:   "take an exclusive lock on the pile while writing",
				EnvVars: []string{"HOARD_LOCK"},
			},
		},
		Before: a.before,
		Commands: []*cli.Command{
			a.createCommand(),
			a.putCommand(),
			a.rootsCommand(),
			a.framesCommand(),
			a.catCommand(),
			a.verifyCommand(),
			a.serveCommand(),
		},
	}
}

func (a *app) before(c *cli.Context) error {
	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return err
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.LogFormat = c.String("log-format")
	}
	if c.IsSet("access") {
		cfg.Access = c.String("access")
	}
	if c.IsSet("sync") {
		cfg.SyncOnCommit = c.Bool("sync")
	}
	if c.IsSet("lock") {
		cfg.Lock = c.Bool("lock")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	return setUpLogging(a.log, c.App.ErrWriter, cfg.LogLevel, cfg.LogFormat)
}

func (a *app) options() []pile.Option {
	return a.cfg.options(a.log, a.metrics)
}

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("hoard failed")
	}
}
