package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"webcast/internal/audio"
	"webcast/internal/logging"
)

// newSourcesCommand lists the audio daemon's sinks and sources, the raw
// material for picking an explicit audio device override.
func newSourcesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List audio sinks and sources known to the host daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			router := audio.NewRouter(cfg, logging.NewNop())
			sinks, err := router.ListSinks(cmd.Context())
			if err != nil {
				return fmt.Errorf("list sinks: %w", err)
			}
			sources, err := router.ListSources(cmd.Context())
			if err != nil {
				return fmt.Errorf("list sources: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderEntryTable("Sinks", sinks))
			fmt.Fprintln(out, renderEntryTable("Sources", sources))
			return nil
		},
	}
}

func renderEntryTable(kind string, entries []audio.Entry) string {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, []string{entry.Index, entry.Name, entry.State})
	}
	if len(rows) == 0 {
		return kind + ": none found"
	}
	return kind + "\n" + renderTable([]string{"#", "Name", "State"}, rows)
}
