package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/agent-cli/internal/tools"
	"github.com/sells-group/agent-cli/internal/tools/imagefetch"
)

var (
	imagesWebsite   string
	imagesType      string
	imagesShortName string
)

var imagesCmd = &cobra.Command{
	Use:   "images <agency name>",
	Short: "Run the image discovery tool directly for one agency",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry := newRegistry()

		result := registry.Execute(cmd.Context(), imagefetch.ToolName, tools.Context{
			Params: map[string]any{
				"entity_type": "agency",
				"entity_name": args[0],
				"short_name":  imagesShortName,
				"website_url": imagesWebsite,
				"image_type":  imagesType,
			},
		})

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return eris.Wrap(err, "images: encode result")
		}

		if !result.Success {
			return eris.Errorf("images: fetch failed: %s", result.Error)
		}
		return nil
	},
}

func init() {
	imagesCmd.Flags().StringVar(&imagesWebsite, "website", "", "agency website URL to scrape")
	imagesCmd.Flags().StringVar(&imagesType, "type", "logo", "image class (logo or header)")
	imagesCmd.Flags().StringVar(&imagesShortName, "short-name", "", "filename stem (derived from the name when empty)")
	rootCmd.AddCommand(imagesCmd)
}
