package main

import (
	"errors"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/rlch/cw"
)

// gameFlags are shared by every command that needs a game profile.
func gameFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "game",
			Aliases: []string{"g"},
			Usage:   "game profile (overrides config)",
			Sources: cli.EnvVars("CW_GAME"),
		},
		&cli.StringFlag{
			Name:  "config",
			Usage: "path to a .cw.yaml file (default: search upwards from the working directory)",
		},
	}
}

// loadConfig reads the config file named by --config, else the nearest one
// above the working directory, else the defaults. Flags set on cmd override
// file values.
func loadConfig(cmd *cli.Command) (*cw.Config, error) {
	var (
		cfg *cw.Config
		err error
	)

	if p := cmd.String("config"); p != "" {
		cfg, err = cw.LoadConfigFile(p)
	} else {
		var wd string

		wd, err = os.Getwd()
		if err == nil {
			cfg, err = cw.LoadConfig(wd)
		}
	}

	switch {
	case errors.Is(err, cw.ErrConfigNotFound):
		cfg = cw.DefaultConfig()
	case err != nil:
		return nil, err
	}

	if g := cmd.String("game"); g != "" {
		cfg.Game = g
	}

	return cfg, nil
}
