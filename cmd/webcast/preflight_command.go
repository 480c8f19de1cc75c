package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"webcast/internal/preflight"
)

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
)

func newPreflightCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "preflight",
		Short: "Verify the host can run a capture session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			results := preflight.RunAll(cmd.Context(), cfg)
			out := cmd.OutOrStdout()
			colorize := isColorTerminal()
			for _, result := range results {
				fmt.Fprintln(out, renderCheckLine(result, colorize))
			}
			if !preflight.Passed(results) {
				return errors.New("preflight checks failed")
			}
			fmt.Fprintln(out, "All checks passed.")
			return nil
		},
	}
}

func renderCheckLine(result preflight.Result, colorize bool) string {
	status := "FAIL"
	color := ansiRed
	if result.Passed {
		status = "OK"
		color = ansiGreen
	}
	line := fmt.Sprintf("  %-24s [%s] %s", result.Name+":", status, result.Details)
	if colorize {
		return color + line + ansiReset
	}
	return line
}

func isColorTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
