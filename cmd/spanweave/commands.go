package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/kingrea/spanweave/internal/annotation"
	"github.com/kingrea/spanweave/internal/config"
	"github.com/kingrea/spanweave/internal/errs"
	"github.com/kingrea/spanweave/internal/export"
	"github.com/kingrea/spanweave/internal/logging"
	"github.com/kingrea/spanweave/internal/pipeline"
	"github.com/kingrea/spanweave/internal/stage"
	"github.com/kingrea/spanweave/internal/stages"
	"github.com/kingrea/spanweave/internal/tracelog"
	"github.com/kingrea/spanweave/internal/tui"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	logLevel   string
}

// pipelineOptions are the flags that assemble and observe a pipeline.
type pipelineOptions struct {
	stages  []string
	sets    []string
	trace   string
	metrics string
	strict  bool
}

func (o *pipelineOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&o.stages, "stage", "s", nil, "append a stage as [alias=]id (repeatable, in order)")
	cmd.Flags().StringArrayVar(&o.sets, "set", nil, "set a stage option as instance.key=value (repeatable)")
	cmd.Flags().StringVar(&o.trace, "trace", "", `append detection traces to this file ("-" for stderr)`)
	cmd.Flags().StringVar(&o.metrics, "metrics", "", "write Prometheus metrics to this file after the run")
	cmd.Flags().BoolVar(&o.strict, "strict", false, "reject stages that read span types no earlier stage writes")
}

// session is everything one command invocation needs to run a pipeline.
type session struct {
	cfg      config.Config
	logger   *logging.Logger
	logbook  *tracelog.Logbook
	pipeline *pipeline.Pipeline
	registry *prometheus.Registry
	runID    string
}

func newSession(global *globalOptions, opts *pipelineOptions, stderr io.Writer) (*session, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}
	loader := config.NewLoader(cwd)
	loader.Explicit = global.configPath
	cfg, err := loader.Load()
	if err != nil {
		return nil, &errs.ConfigurationError{Message: "load config", Err: err}
	}
	if global.logLevel != "" {
		cfg.Logging.Level = global.logLevel
	}
	if opts.trace != "" {
		cfg.Trace.Path = opts.trace
	}
	if opts.metrics != "" {
		cfg.Metrics.Textfile = opts.metrics
	}

	logger, err := logging.New(cfg.Logging, stderr)
	if err != nil {
		return nil, &errs.ConfigurationError{Message: "logging", Err: err}
	}
	s := &session{cfg: cfg, logger: logger}
	logger.Debug("config loaded", "sources", cfg.Sources)

	def, err := parseDefinition(opts.stages, opts.sets)
	if err != nil {
		s.Close()
		return nil, err
	}

	pipelineOpts := []pipeline.Option{
		pipeline.WithLogger(logger.Logger),
		pipeline.WithRunIDs(func() string {
			s.runID = uuid.NewString()
			return s.runID
		}),
	}
	switch path := cfg.Trace.Path; path {
	case "":
	case "-":
		pipelineOpts = append(pipelineOpts, pipeline.WithTraceSink(tracelog.NewWriter(stderr)))
	default:
		lb, err := tracelog.New(path)
		if err != nil {
			s.Close()
			return nil, &errs.ConfigurationError{Option: "trace", Err: err}
		}
		s.logbook = lb
		pipelineOpts = append(pipelineOpts, pipeline.WithTraceSink(lb))
	}
	if cfg.Metrics.Textfile != "" {
		s.registry = prometheus.NewRegistry()
		metrics, err := pipeline.NewMetrics(s.registry)
		if err != nil {
			s.Close()
			return nil, err
		}
		pipelineOpts = append(pipelineOpts, pipeline.WithMetrics(metrics))
	}
	if opts.strict {
		pipelineOpts = append(pipelineOpts, pipeline.WithStrictDependencies())
	}

	p, err := pipeline.FromDefinition(stages.NewRegistry(), def, pipelineOpts...)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.pipeline = p
	names := p.Names()
	for i, st := range p.Stages() {
		info := st.Info()
		logger.Debug("stage ready",
			slog.String("stage", names[i]),
			slog.String("id", info.ID),
			slog.String("version", info.Version))
	}
	return s, nil
}

// run executes the pipeline once and dumps metrics if requested. The metrics
// file is written even when the run fails.
func (s *session) run(text string) (*annotation.Store, error) {
	store, runErr := s.pipeline.Run(text)
	if s.registry != nil {
		if err := writeTextfile(s.cfg.Metrics.Textfile, s.registry); err != nil {
			s.logger.Warn("metrics textfile not written", "path", s.cfg.Metrics.Textfile, "error", err)
		}
	}
	return store, runErr
}

func (s *session) Close() {
	if err := s.logger.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "close log file: %v\n", err)
	}
}

func writeTextfile(path string, g prometheus.Gatherer) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return prometheus.WriteToTextfile(path, g)
}

// readDocument reads the named file, or stdin when no file or "-" is given.
func readDocument(cmd *cobra.Command, args []string) (string, string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), "stdin", nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", "", fmt.Errorf("read document: %w", err)
	}
	return string(data), filepath.Base(args[0]), nil
}

func runCmd(global *globalOptions) *cobra.Command {
	var (
		opts   pipelineOptions
		format string
		types  []string
	)
	cmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Annotate a document and print its spans",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, _, err := readDocument(cmd, args)
			if err != nil {
				return err
			}
			s, err := newSession(global, &opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()
			if format == "" {
				format = s.cfg.Output.Format
			}

			start := time.Now()
			store, err := s.run(text)
			if err != nil {
				return err
			}
			s.logger.Info("document annotated",
				slog.String("run", s.runID),
				slog.Int("spans", store.Len()),
				slog.Duration("elapsed", time.Since(start)))

			doc := export.FromStore(store, toTypes(types)...)
			doc.RunID = s.runID
			return export.Write(cmd.OutOrStdout(), format, doc)
		},
	}
	opts.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", "", "output format: text, json or yaml (default from config)")
	cmd.Flags().StringSliceVarP(&types, "type", "t", nil, "only print spans of these types")
	return cmd
}

func viewCmd(global *globalOptions) *cobra.Command {
	var (
		opts pipelineOptions
		typ  string
	)
	cmd := &cobra.Command{
		Use:   "view [file]",
		Short: "Annotate a document and browse its spans interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, name, err := readDocument(cmd, args)
			if err != nil {
				return err
			}
			s, err := newSession(global, &opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			store, err := s.run(text)
			if err != nil {
				return err
			}
			return tui.Run(tui.NewApp(store,
				tui.WithTitle(name),
				tui.WithLogbook(s.logbook),
				tui.WithType(annotation.Type(typ)),
			))
		},
	}
	opts.register(cmd)
	cmd.Flags().StringVarP(&typ, "type", "t", "", "span type to select first")
	return cmd
}

func stagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stages",
		Short: "List the built-in stages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listStages(cmd.OutOrStdout(), stages.NewRegistry())
		},
	}
}

// listStages prints every registered stage. Stages that need options to be
// built are listed by id only.
func listStages(w io.Writer, reg *stage.Registry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDESCRIPTION")
	for _, id := range reg.IDs() {
		st, err := reg.Resolve(id, nil)
		if err != nil {
			fmt.Fprintf(tw, "%s\t\t(requires options)\n", id)
			continue
		}
		info := st.Info()
		fmt.Fprintf(tw, "%s\t%s\t%s\n", id, info.Name, info.Description)
	}
	return tw.Flush()
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [dir]",
		Short: "Create spanweave.yaml and the .spanweave directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			if err := config.InitDir(dir); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "initialized %s\n", filepath.Join(dir, config.FileName))
			return nil
		},
	}
}

func toTypes(names []string) []annotation.Type {
	out := make([]annotation.Type, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, annotation.Type(n))
		}
	}
	return out
}
