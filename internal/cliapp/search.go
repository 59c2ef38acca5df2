package cliapp

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/baassets/pipeline/internal/charrelation"
)

func newSearchCmd() *cobra.Command {
	var region, extractDir, version string

	cmd := &cobra.Command{
		Use:   "search [keywords...]",
		Short: "Resolve character keywords against a region's cached relation table",
		Long: `Looks up one or more character-name keywords in
{REGION}CharacterRelation.json under --extract-dir and prints the matching
character IDs, one per line. This only consumes the relation table;
producing it from decoded tables is a separate, out-of-scope step.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := charrelation.Search(extractDir, version, region, args)
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Println(id)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&region, "region", "", "region whose relation table to search: cn, gl, or jp (required)")
	cmd.MarkFlagRequired("region")
	cmd.Flags().StringVar(&extractDir, "extract-dir", "", "directory containing {REGION}CharacterRelation.json")
	cmd.Flags().StringVar(&version, "version", "", "version hint, reserved for future per-version relation tables")

	return cmd
}
