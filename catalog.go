package main

import (
	"github.com/spf13/cobra"

	"ar-tryon/pkg/catalog"
	"ar-tryon/pkg/utils"
)

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the clothing catalog",
	}
	cmd.AddCommand(newCatalogExportCmd())

	return cmd
}

func newCatalogExportCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the built-in catalog to a JSON file",
		Long: `Writes the built-in catalog as JSON. The file is a starting point for a
custom collection passed to serve --catalog.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := catalog.Default().Dump(out); err != nil {
				return err
			}
			utils.GetLogger().Infof("catalog written to %s", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "catalog.json", "output file")

	return cmd
}
