// Command cw-lsp is a Language Server Protocol server for Clausewitz script.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rlch/cw"
	"github.com/rlch/cw/gamedata"
	"github.com/rlch/cw/lsp"
	"github.com/rlch/cw/schema"
)

var version = "dev"

func main() {
	app := &cli.Command{
		Name:    "cw-lsp",
		Version: version,
		Usage:   "Language server for Clausewitz script",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "debug, info, warn or error",
				Value:   "info",
				Sources: cli.EnvVars("CW_LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to a .cw.yaml file (default: search upwards from the working directory)",
			},
			&cli.StringFlag{
				Name:    "game",
				Usage:   "game profile (overrides config)",
				Sources: cli.EnvVars("CW_GAME"),
			},
			&cli.StringFlag{
				Name:    "game-path",
				Usage:   "vanilla game directory",
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
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "watch mod directories and rebuild game data on change",
			},
		},
		Action: serve,
	}

	err := app.Run(context.Background(), os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, cmd *cli.Command) error {
	level, err := zapcore.ParseLevel(cmd.String("log-level"))
	if err != nil {
		return err
	}

	// Set up logging to stderr (stdout is for LSP communication)
	config := zap.NewDevelopmentConfig()
	config.OutputPaths = []string{"stderr"}
	config.Level = zap.NewAtomicLevelAt(level)

	logger, err := config.Build()
	if err != nil {
		return err
	}

	defer func() {
		_ = logger.Sync()
	}()

	opts, err := serverOptions(cmd, logger)
	if err != nil {
		return err
	}

	logger.Info("Starting cw-lsp server", zap.String("game", opts.Game.Name), zap.Bool("watch", opts.Watch))

	return run(ctx, logger, opts, os.Stdin, os.Stdout)
}

// serverOptions merges the config file with flags and loads the schema.
// Game data is only loaded in the background once the client connects.
func serverOptions(cmd *cli.Command, logger *zap.Logger) (lsp.Options, error) {
	cfg, err := loadConfig(cmd.String("config"))
	if err != nil {
		return lsp.Options{}, err
	}

	if g := cmd.String("game"); g != "" {
		cfg.Game = g
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

	if cmd.Bool("watch") {
		cfg.Watch = true
	}

	game, err := cw.LookupGame(cfg.Game)
	if err != nil {
		return lsp.Options{}, err
	}

	rules := schema.New()

	if cfg.CWTPath != "" {
		rules, err = schema.LoadDir(cfg.CWTPath)
		if err != nil {
			return lsp.Options{}, fmt.Errorf("loading schema: %w", err)
		}

		st := rules.Stats()
		logger.Info("Loaded schema",
			zap.String("dir", cfg.CWTPath),
			zap.Int("types", st.Types),
			zap.Int("rules", st.Rules),
			zap.Int("errors", st.Errors),
		)
	} else {
		logger.Warn("No cwt_path configured, only syntax is checked")
	}

	opts := lsp.Options{
		Game:        game,
		Schema:      rules,
		Watch:       cfg.Watch,
		InitTimeout: cfg.InitTimeout,
		Format:      cfg.Format.Options(),
	}

	if cfg.GamePath != "" || len(cfg.ModPaths) > 0 {
		opts.Data = gamedata.New(gamedata.Options{
			Game:     game,
			GamePath: cfg.GamePath,
			ModPaths: cfg.ModPaths,
			Schema:   rules,
			Logger:   logger.Named("gamedata"),
		})
	}

	return opts, nil
}

func loadConfig(path string) (*cw.Config, error) {
	var (
		cfg *cw.Config
		err error
	)

	if path != "" {
		cfg, err = cw.LoadConfigFile(path)
	} else {
		cfg, err = cw.LoadConfig(".")
	}

	if errors.Is(err, cw.ErrConfigNotFound) {
		return cw.DefaultConfig(), nil
	}

	return cfg, err
}

func run(ctx context.Context, logger *zap.Logger, opts lsp.Options, in io.Reader, out io.Writer) error {
	// Create a JSON-RPC stream connection over stdio
	stream := jsonrpc2.NewStream(&readWriteCloser{in, out})
	conn := jsonrpc2.NewConn(stream)

	// Create a client to send notifications to the editor
	client := protocol.ClientDispatcher(conn, logger)

	server := lsp.NewServer(client, logger, opts)

	conn.Go(ctx, protocol.ServerHandler(server, nil))

	// Wait for the connection to close
	<-conn.Done()

	return conn.Err()
}

// readWriteCloser wraps separate reader/writer into io.ReadWriteCloser.
type readWriteCloser struct {
	io.Reader
	io.Writer
}

func (rwc *readWriteCloser) Close() error {
	// Close writer if it's closeable
	if c, ok := rwc.Writer.(io.Closer); ok {
		return c.Close()
	}

	return nil
}
