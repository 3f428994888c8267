package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"zmon/internal/storage"
)

var (
	querydocsFormat string
	querydocsOut    string
)

var querydocsCmd = &cobra.Command{
	Use:   "querydocs",
	Short: "Generate query catalog documentation",
	Long: `Render every registered query as reference documentation.

Examples:
  zmon querydocs
  zmon querydocs --format yaml -o catalog.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog := storage.DefaultCatalog()

		var out []byte
		switch querydocsFormat {
		case "markdown", "md":
			out = []byte(catalog.Markdown())
		case "yaml":
			var err error
			out, err = catalog.YAML()
			if err != nil {
				return fmt.Errorf("failed to render catalog: %w", err)
			}
		default:
			return fmt.Errorf("unknown format %q (want markdown or yaml)", querydocsFormat)
		}

		if querydocsOut == "" {
			fmt.Print(string(out))
			return nil
		}
		if err := os.WriteFile(querydocsOut, out, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", querydocsOut, err)
		}
		fmt.Printf("Wrote %s (%d queries)\n", querydocsOut, catalog.Len())
		return nil
	},
}

func init() {
	querydocsCmd.Flags().StringVar(&querydocsFormat, "format", "markdown", "Output format: markdown or yaml")
	querydocsCmd.Flags().StringVarP(&querydocsOut, "output", "o", "", "Write to file instead of stdout")
	rootCmd.AddCommand(querydocsCmd)
}
