package main

import (
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"webcast/internal/deps"
	"webcast/internal/logging"
	"webcast/internal/session"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		pageURL    string
		publishURL string
		quality    string
		frameRate  int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a capture session until stopped or the stream ends",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			// Flag overrides beat file values for the common one-off run.
			if v := strings.TrimSpace(pageURL); v != "" {
				cfg.Stream.PageURL = v
			}
			if v := strings.TrimSpace(publishURL); v != "" {
				cfg.Stream.PublishURL = v
			}
			if v := strings.TrimSpace(quality); v != "" {
				cfg.Capture.Quality = v
			}
			if frameRate > 0 {
				cfg.Capture.FrameRate = frameRate
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			if missing := deps.Missing(deps.Check(deps.Default())); len(missing) > 0 {
				names := make([]string, 0, len(missing))
				for _, status := range missing {
					names = append(names, status.Name)
				}
				return fmt.Errorf("missing required tools: %s (run `webcast preflight` for details)", strings.Join(names, ", "))
			}
			if cfg.Render.Binary == "" {
				renderer, err := deps.ResolveRenderer("")
				if err != nil {
					return err
				}
				cfg.Render.Binary = renderer
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			lock := flock.New(cfg.Session.LockPath)
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire session lock: %w", err)
			}
			if !locked {
				return errors.New("another webcast session is already running")
			}
			defer func() { _ = lock.Unlock() }()

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			orchestrator := session.New(cfg, logger)
			return orchestrator.Run(signalCtx)
		},
	}

	cmd.Flags().StringVar(&pageURL, "url", "", "Page URL to capture (overrides config)")
	cmd.Flags().StringVar(&publishURL, "publish-url", "", "Publish endpoint (overrides config)")
	cmd.Flags().StringVar(&quality, "quality", "", "Quality tier: standard or lightweight")
	cmd.Flags().IntVar(&frameRate, "fps", 0, "Capture frame rate (overrides config)")

	return cmd
}
