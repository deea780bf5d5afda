package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"orgcal/internal/config"
	"orgcal/internal/fullcalendar"
	"orgcal/internal/ics"
	"orgcal/internal/model"
	"orgcal/internal/org"
	"orgcal/internal/source"
)

func newConvertCmd(opts *rootOptions, mode fullcalendar.Mode) *cobra.Command {
	short := "Print DEADLINE/SCHEDULED entries as FullCalendar JSON"
	if mode == fullcalendar.ModeClock {
		short = "Print closed CLOCK entries as FullCalendar JSON"
	}
	return &cobra.Command{
		Use:   string(mode) + " [paths...]",
		Short: short,
		Long: short + `.

Each path is an Org file or a directory whose *.org files are read in name
order. "-" reads a single document from stdin. Without paths the config's
sources are used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, events, err := collect(cmd, opts, args, mode)
			if err != nil {
				return err
			}
			data, err := fullcalendar.MarshalJSON(events)
			if err != nil {
				return err
			}
			return emit(cmd, opts.output, append(data, '\n'))
		},
	}
}

func newICSCmd(opts *rootOptions) *cobra.Command {
	var clockMode, all bool
	cmd := &cobra.Command{
		Use:   "ics [paths...]",
		Short: "Print entries as an iCalendar document",
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := fullcalendar.ModePlanning
			switch {
			case all:
				mode = fullcalendar.ModeAll
			case clockMode:
				mode = fullcalendar.ModeClock
			}
			cfg, events, err := collect(cmd, opts, args, mode)
			if err != nil {
				return err
			}
			body := ics.Export(events, ics.Options{Name: cfg.CalendarName})
			return emit(cmd, opts.output, []byte(body))
		},
	}
	cmd.Flags().BoolVar(&clockMode, "clock", false, "Export CLOCK entries instead of planning entries")
	cmd.Flags().BoolVar(&all, "all", false, "Export planning and CLOCK entries")
	cmd.MarkFlagsMutuallyExclusive("clock", "all")
	return cmd
}

// collect resolves settings and sources and runs the traversal.
func collect(cmd *cobra.Command, opts *rootOptions, args []string, mode fullcalendar.Mode) (*config.Config, []model.Event, error) {
	cfg, err := opts.settings(cmd)
	if err != nil {
		return nil, nil, err
	}
	now, err := opts.reference()
	if err != nil {
		return nil, nil, err
	}
	fcOpts := fullcalendar.Options{
		BeforeDays: cfg.BeforeDays,
		AfterDays:  cfg.AfterDays,
		Now:        now,
	}

	if len(args) == 1 && args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, nil, fmt.Errorf("read stdin: %w", err)
		}
		events, err := fullcalendar.Convert(string(data), mode, fcOpts, org.WithTodoKeywords(cfg.TodoKeywords...))
		if err != nil {
			return nil, nil, fmt.Errorf("stdin: %w", err)
		}
		return cfg, events, nil
	}

	paths, err := sourcePaths(args, cfg)
	if err != nil {
		return nil, nil, err
	}
	docs, err := newLoader(cfg).LoadAll(paths)
	if err != nil {
		return nil, nil, err
	}
	return cfg, source.Events(docs, mode, fcOpts), nil
}

// emit writes to --output when given, stdout otherwise. The config's
// output setting only applies to serve.
func emit(cmd *cobra.Command, output string, data []byte) error {
	if output == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	return config.WriteFileAtomic(output, data, 0o644)
}
