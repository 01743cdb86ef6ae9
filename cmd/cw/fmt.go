package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/urfave/cli/v3"

	"github.com/rlch/cw"
	"github.com/rlch/cw/module"
	"github.com/rlch/cw/runner"
)

var (
	errNoScriptFiles = errors.New("no script files found")
	errStdinFiles    = errors.New("--stdin cannot be combined with file arguments")
)

const filePermissions = 0o600

func fmtCommand() *cli.Command {
	return &cli.Command{
		Name:      "fmt",
		Aliases:   []string{"format"},
		Usage:     "Format script files",
		ArgsUsage: "[files or directories...]",
		Flags: append(gameFlags(),
			&cli.BoolFlag{
				Name:    "write",
				Aliases: []string{"w"},
				Usage:   "write result to file instead of stdout",
			},
			&cli.BoolFlag{
				Name:    "check",
				Aliases: []string{"c"},
				Usage:   "check if files are formatted (exit 1 if not)",
			},
			&cli.BoolFlag{
				Name:    "list-different",
				Aliases: []string{"l"},
				Usage:   "print the files whose formatting differs",
			},
			&cli.BoolFlag{
				Name:    "diff",
				Aliases: []string{"d"},
				Usage:   "display diffs instead of rewriting files",
			},
			&cli.BoolFlag{
				Name:  "stdin",
				Usage: "read source from stdin and write the result to stdout",
			},
			&cli.StringFlag{
				Name:  "stdin-filepath",
				Usage: "filename used in error positions when reading stdin",
			},
		),
		Action: runFmt,
	}
}

func runFmt(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := cfg.Format.Options()
	args := cmd.Args().Slice()

	if cmd.Bool("stdin") || len(args) == 0 {
		if len(args) > 0 {
			return errStdinFiles
		}

		return formatStdin(os.Stdin, os.Stdout, cmd.String("stdin-filepath"), opts)
	}

	game, err := cw.LookupGame(cfg.Game)
	if err != nil {
		return err
	}

	files, err := runner.Collect(module.NewLoader(game), args...)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return errNoScriptFiles
	}

	var (
		write       = cmd.Bool("write")
		check       = cmd.Bool("check")
		list        = cmd.Bool("list-different")
		diff        = cmd.Bool("diff")
		unformatted []string
	)

	for _, f := range files {
		path := f.Abs()

		mode := modePrint

		switch {
		case write:
			mode = modeWrite
		case diff:
			mode = modeDiff
		case check || list:
			mode = modeQuiet
		}

		changed, err := formatFile(path, mode, opts, os.Stdout)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		if changed {
			unformatted = append(unformatted, path)

			if list {
				_, _ = fmt.Fprintln(os.Stdout, path)
			}
		}
	}

	if check && len(unformatted) > 0 {
		if !list {
			_, _ = fmt.Fprintf(os.Stderr, "The following files are not formatted:\n")

			for _, f := range unformatted {
				_, _ = fmt.Fprintf(os.Stderr, "  %s\n", f)
			}
		}

		return cli.Exit("", 1)
	}

	return nil
}

func formatStdin(in io.Reader, out io.Writer, filename string, opts cw.FormatOptions) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}

	m, err := cw.ParseFile(filename, data)
	if err != nil {
		return fmt.Errorf("parsing: %w", err)
	}

	_, err = io.WriteString(out, cw.FormatWithOptions(m, opts))

	return err
}

type fmtMode int

const (
	modePrint fmtMode = iota
	modeWrite
	modeDiff
	modeQuiet
)

// formatFile formats the file at path and reports whether its contents
// differ from the formatted form.
func formatFile(path string, mode fmtMode, opts cw.FormatOptions, out io.Writer) (bool, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- paths come from user args
	if err != nil {
		return false, err
	}

	m, err := cw.ParseFile(path, data)
	if err != nil {
		return false, err
	}

	formatted := cw.FormatWithOptions(m, opts)
	changed := string(data) != formatted

	switch mode {
	case modeQuiet:
		return changed, nil
	case modePrint:
		_, err = io.WriteString(out, formatted)

		return changed, err
	case modeWrite, modeDiff:
	}

	if !changed {
		return false, nil
	}

	if mode == modeWrite {
		writeErr := os.WriteFile(path, []byte(formatted), filePermissions)
		if writeErr != nil {
			return true, writeErr
		}

		_, _ = fmt.Fprintf(out, "%s\n", path)

		return true, nil
	}

	return true, printDiff(out, path, string(data), formatted)
}

// printDiff writes a unified diff from the file on disk to its formatted
// form.
func printDiff(out io.Writer, path, original, formatted string) error {
	return difflib.WriteUnifiedDiff(out, difflib.UnifiedDiff{
		A:        difflib.SplitLines(original),
		B:        difflib.SplitLines(formatted),
		FromFile: path,
		ToFile:   path + " (formatted)",
		Context:  3,
	})
}
