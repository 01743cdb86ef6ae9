package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rlch/cw"
	"github.com/rlch/cw/analysis"
	"github.com/rlch/cw/gamedata"
	"github.com/rlch/cw/module"
	"github.com/rlch/cw/runner"
	"github.com/rlch/cw/schema"
)

var (
	errNoSchema      = errors.New("no schema directory specified (use --cwt-path or cwt_path in .cw.yaml)")
	errUnknownFormat = errors.New("unknown output format (want text or json)")
)

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Check script files against the schema",
		ArgsUsage: "[files or directories...]",
		Flags: append(gameFlags(),
			&cli.StringFlag{
				Name:    "game-path",
				Usage:   "vanilla game directory used to resolve references",
				Sources: cli.EnvVars("CW_GAME_PATH"),
			},
			&cli.StringSliceFlag{
				Name:  "mod",
				Usage: "mod directory layered over the game, in load order (repeatable)",
			},
			&cli.StringFlag{
				Name:    "cwt-path",
				Usage:   "directory holding the .cwt schema files",
				Sources: cli.EnvVars("CW_CWT_PATH"),
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "output format: text or json",
				Value:   "text",
			},
			&cli.StringFlag{
				Name:  "where",
				Usage: `only report diagnostics matching an expression, e.g. 'severity == "error"'`,
			},
			&cli.StringFlag{
				Name:  "include",
				Usage: "check only files whose relative path matches a regex",
			},
			&cli.BoolFlag{
				Name:  "fail-fast",
				Usage: "stop on first failing file",
			},
			&cli.IntFlag{
				Name:    "jobs",
				Aliases: []string{"j"},
				Usage:   "files checked in parallel (default: number of CPUs)",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "list every file and log progress",
			},
		),
		Action: runCheck,
	}
}

func runCheck(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args().Slice()
	if len(args) == 0 {
		args = []string{"."}
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if p := cmd.String("game-path"); p != "" {
		cfg.GamePath = p
	}

	if mods := cmd.StringSlice("mod"); len(mods) > 0 {
		cfg.ModPaths = mods
	}

	if p := cmd.String("cwt-path"); p != "" {
		cfg.CWTPath = p
	}

	if cfg.CWTPath == "" {
		return errNoSchema
	}

	format := cmd.String("format")
	if format != "text" && format != "json" {
		return fmt.Errorf("%w: %q", errUnknownFormat, format)
	}

	verbose := cmd.Bool("verbose")

	logger, err := newLogger(verbose)
	if err != nil {
		return err
	}

	defer func() { _ = logger.Sync() }()

	game, err := cw.LookupGame(cfg.Game)
	if err != nil {
		return err
	}

	rules, err := schema.LoadDir(cfg.CWTPath)
	if err != nil {
		return fmt.Errorf("loading schema: %w", err)
	}

	st := rules.Stats()
	logger.Info("Loaded schema",
		zap.String("dir", cfg.CWTPath),
		zap.Int("types", st.Types),
		zap.Int("enums", st.Enums),
		zap.Int("aliases", st.Aliases),
		zap.Int("errors", st.Errors),
	)

	for _, e := range rules.Errors() {
		logger.Debug("Schema error", zap.String("error", e.Error()))
	}

	var (
		data   analysis.DataSource
		loader = module.NewLoader(game)
	)

	if cfg.GamePath != "" || len(cfg.ModPaths) > 0 {
		cache := gamedata.New(gamedata.Options{
			Game:     game,
			GamePath: cfg.GamePath,
			ModPaths: cfg.ModPaths,
			Schema:   rules,
			Logger:   logger,
			Loader:   loader,
		})

		if _, err := cache.Load(ctx); err != nil {
			return fmt.Errorf("loading game data: %w", err)
		}

		data = cache
	}

	files, err := runner.Collect(loader, args...)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return errNoScriptFiles
	}

	filter, err := runner.CompileFilter(cmd.String("where"))
	if err != nil {
		return fmt.Errorf("--where: %w", err)
	}

	handler, err := newCheckHandler(format, verbose, files)
	if err != nil {
		return err
	}

	r := runner.New(
		runner.WithAnalyzer(analysis.NewAnalyzer(game, rules, data)),
		runner.WithHandler(handler),
		runner.WithFailFast(cmd.Bool("fail-fast")),
		runner.WithInclude(cmd.String("include")),
		runner.WithFilter(filter),
		runner.WithConcurrency(int(cmd.Int("jobs"))),
	)

	result, err := r.Run(ctx, files)
	if err != nil {
		return err
	}

	if err := handler.Summary(result); err != nil {
		return err
	}

	if code := result.ExitCode(); code != 0 {
		return cli.Exit("", code)
	}

	return nil
}

// summaryHandler is a runner.Handler that prints a summary once the run is
// over.
type summaryHandler interface {
	runner.Handler
	Summary(result *runner.Result) error
}

func newCheckHandler(format string, verbose bool, files []runner.File) (summaryHandler, error) { //nolint:ireturn // handlers differ by output
	errf := func(text string) error {
		_, err := fmt.Fprintln(os.Stderr, text)

		return err
	}

	if format == "json" {
		return runner.NewFormatHandler(runner.NewJSONFormatter(os.Stdout), errf), nil
	}

	if !verbose && isatty.IsTerminal(os.Stdout.Fd()) {
		tui := runner.NewTUIHandler(os.Stdout, os.Stderr)
		tui.SetFiles(files)

		if err := tui.Start(); err != nil {
			return nil, fmt.Errorf("failed to start TUI: %w", err)
		}

		return tui, nil
	}

	text := runner.NewTextFormatter(os.Stdout)
	text.Verbose = verbose

	return runner.NewFormatHandler(text, errf), nil
}

// newLogger logs warnings to stderr, or everything from info up when
// verbose.
func newLogger(verbose bool) (*zap.Logger, error) {
	config := zap.NewDevelopmentConfig()
	config.OutputPaths = []string{"stderr"}
	config.DisableStacktrace = true
	config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)

	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	return config.Build()
}

