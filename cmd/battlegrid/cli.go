package main

import (
	"io"

	"github.com/battlegrid/engine/internal/config"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagBindings maps command line flags to config keys.
var flagBindings = map[string]string{
	"name":       "battle.name",
	"points":     "battle.maxPoints",
	"seed":       "battle.seed",
	"max-rounds": "battle.maxRounds",
	"catalog":    "catalog.path",
	"storage":    "storage.type",
	"output":     "storage.memory.outputDir",
	"log-level":  "logLevel",
	"logs-dir":   "logsDir",
}

type cliOptions struct {
	ConfigDir string
	Quiet     bool
	Version   bool
}

// parseFlags parses args and binds the config flags into viper, where they
// take precedence over the config file. Usage goes to out; --help returns
// pflag.ErrHelp.
func parseFlags(args []string, out io.Writer) (cliOptions, error) {
	var opts cliOptions

	fs := pflag.NewFlagSet(AppName, pflag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVarP(&opts.ConfigDir, "config", "c", ".", "directory containing "+config.FileName)
	fs.BoolVarP(&opts.Quiet, "quiet", "q", false, "do not print the attack log")
	fs.BoolVar(&opts.Version, "version", false, "print the version and exit")

	fs.String("name", "Skirmish", "battle name")
	fs.Int("points", 1500, "points budget per army")
	fs.Int64("seed", 0, "army generation seed, 0 picks one from the clock")
	fs.Int("max-rounds", 0, "stop the battle as stalled after this many rounds, 0 for no limit")
	fs.String("catalog", "", "unit catalog YAML file, empty for the built-in catalog")
	fs.String("storage", "memory", "storage backend: memory, sqlite, postgres or influx")
	fs.String("output", "./battles", "directory for exported battles")
	fs.String("log-level", "info", "log level: debug, info, warn or error")
	fs.String("logs-dir", "./logs", "directory for log files")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	for flag, key := range flagBindings {
		if err := viper.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return opts, err
		}
	}
	return opts, nil
}
