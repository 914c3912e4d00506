package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/hanpama/fieldguide/internal/catalog"
)

func newPrintSchemaCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "print-schema",
		Short: "Merge and validate the catalog SDL and print it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Resolvers are never called here, so no store is needed.
			es, err := catalog.Build(catalog.Collections{}, nil)
			if err != nil {
				return err
			}
			sdl := es.SDL()
			if out == "" {
				_, err := cmd.OutOrStdout().Write([]byte(sdl))
				return err
			}
			return errors.Wrap(os.WriteFile(out, []byte(sdl), 0o644), "write schema")
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the SDL to this file instead of stdout")
	return cmd
}
