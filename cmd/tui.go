package cmd

import (
	"github.com/spf13/cobra"

	"github.com/conneroisu/vlist/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:     "tui",
	Aliases: []string{"t"},
	Short:   "Scroll the dataset in a terminal demo",
	Long: `Run the terminal front-end: one item per line, a synthetic scrollbar
column, masked placeholder rows while data loads, and speed-adaptive
fetching as you scroll.`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	s, cleanup, err := buildStack(lineOptions)
	if err != nil {
		return err
	}
	defer cleanup()

	return tui.Run(s.coll, s.engine, s.bus)
}
