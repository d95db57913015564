package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/developlogy/sitebuilder/internal/server"
)

var exportOutFlag string

// sitebuilder export <site-id>
var exportCmd = &cobra.Command{
	Use:   "export <site-id>",
	Short: "Render a site to a static zip and store it on the default disk",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		app, err := server.New(ctx, server.Options{})
		if err != nil {
			return err
		}
		defer app.Close(ctx) //nolint:errcheck

		site, err := app.Sites.Public(ctx, args[0])
		if err != nil {
			return err
		}
		export, err := app.Exports.ExportSite(ctx, site)
		if err != nil {
			return err
		}

		if exportOutFlag != "" {
			if err := os.WriteFile(exportOutFlag, export.Content, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", exportOutFlag, err)
			}
			fmt.Printf("✅ Wrote %s\n", exportOutFlag)
		}
		if export.URL != "" {
			fmt.Printf("✅ Stored at %s\n", export.URL)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutFlag, "out", "o", "", "Also write the zip to this file")
}
