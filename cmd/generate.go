package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/vlist/internal/mockdata"
)

var (
	generateCount  int
	generateSeed   int64
	generateOutput string
)

var generateCmd = &cobra.Command{
	Use:     "generate",
	Aliases: []string{"g"},
	Short:   "Generate a JSON demo dataset",
	Long: `Write a JSON array of fake user records suitable for the file
adapter (vlist serve/tui with dataset.path pointing at it). The same
seed always produces the same dataset.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().IntVar(&generateCount, "count", 10000, "number of records")
	generateCmd.Flags().Int64Var(&generateSeed, "seed", 0, "random seed (0 uses the clock)")
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "users.json", "output file")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if generateCount <= 0 {
		return fmt.Errorf("count must be positive, got %d", generateCount)
	}

	g := mockdata.NewGenerator(generateSeed)
	if err := g.WriteJSON(generateOutput, generateCount); err != nil {
		return err
	}

	cmd.Printf("wrote %d records to %s\n", generateCount, generateOutput)

	return nil
}
