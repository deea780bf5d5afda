package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"orgcal/internal/clock"
	"orgcal/internal/config"
	"orgcal/internal/fullcalendar"
	appLog "orgcal/internal/log"
	"orgcal/internal/model"
	"orgcal/internal/org"
	"orgcal/internal/source"
)

// rootOptions holds the persistent flag values shared by all commands.
type rootOptions struct {
	configPath string
	envFiles   []string
	beforeDays int
	afterDays  int
	now        string
	keepGoing  bool
	logLevel   string
	output     string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "orgcal",
		Short: "Turn Org-mode agendas and clock logs into calendar events",
		Long: `orgcal reads Org files and emits their DEADLINE/SCHEDULED entries or
CLOCK intervals as FullCalendar event objects, as an iCalendar feed,
or serves both over HTTP.`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", os.Getenv(config.EnvPrefix+"CONFIG"), "Path to YAML config file (created with defaults if missing)")
	pf.StringSliceVar(&opts.envFiles, "env-file", nil, "Dotenv files to load before reading ORGCAL_* variables (default .env)")
	pf.IntVar(&opts.beforeDays, "before", 0, "Drop entries starting this many whole days before now (0 disables)")
	pf.IntVar(&opts.afterDays, "after", 0, "Drop entries starting this many whole days after now (0 disables)")
	pf.StringVar(&opts.now, "now", "", `Reference time for --before/--after, e.g. "2022-07-20 12:00" or "yesterday noon"`)
	pf.BoolVar(&opts.keepGoing, "keep-going", false, "Skip Org files that fail to load instead of aborting")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVarP(&opts.output, "output", "o", "", "Write the result to this file instead of stdout")

	root.AddCommand(
		newConvertCmd(opts, fullcalendar.ModePlanning),
		newConvertCmd(opts, fullcalendar.ModeClock),
		newICSCmd(opts),
		newServeCmd(opts),
	)
	return root
}

// settings loads the configuration and layers env and flags on top:
// config file < ORGCAL_* variables < command-line flags.
func (o *rootOptions) settings(cmd *cobra.Command) (*config.Config, error) {
	if err := config.LoadDotEnv(o.envFiles...); err != nil {
		return nil, fmt.Errorf("load env files: %w", err)
	}

	cfg := config.DefaultConfig()
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("before") {
		cfg.BeforeDays = o.beforeDays
	}
	if flags.Changed("after") {
		cfg.AfterDays = o.afterDays
	}
	if flags.Changed("keep-going") {
		cfg.KeepGoing = o.keepGoing
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if flags.Changed("output") {
		cfg.Output = o.output
	}

	appLog.SetLevel(appLog.ParseLevel(cfg.LogLevel))
	appLog.Debug("effective config",
		"config_path", o.configPath,
		"sources", len(cfg.Sources),
		"before_days", cfg.BeforeDays,
		"after_days", cfg.AfterDays,
		"mode", cfg.Mode,
		"keep_going", cfg.KeepGoing,
	)
	return cfg, nil
}

// reference returns the --now value, or the local clock when unset.
func (o *rootOptions) reference() (model.PointInTime, error) {
	if o.now == "" {
		return clock.Now(), nil
	}
	p, err := clock.Parse(o.now, time.Now())
	if err != nil {
		return model.PointInTime{}, fmt.Errorf("--now: %w", err)
	}
	return p, nil
}

func newLoader(cfg *config.Config) *source.Loader {
	return source.NewLoader(nil,
		source.WithKeepGoing(cfg.KeepGoing),
		source.WithParseOptions(org.WithTodoKeywords(cfg.TodoKeywords...)),
	)
}

var errNoSources = errors.New("no Org sources: pass paths or set sources in the config")

func sourcePaths(args []string, cfg *config.Config) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	if len(cfg.Sources) > 0 {
		return cfg.Sources, nil
	}
	return nil, errNoSources
}
