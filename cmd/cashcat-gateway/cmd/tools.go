package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cashcat/cashcat-gateway/internal/adapter/outbound/cashcat"
	"github.com/cashcat/cashcat-gateway/internal/service"
)

var toolsFormat string

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Print the tool catalogue",
	Long: `Print the tools the gateway serves, with their input schemas.
The output matches the tools/list result.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeCatalogue(cmd.OutOrStdout(), toolsFormat)
	},
}

func init() {
	toolsCmd.Flags().StringVar(&toolsFormat, "format", "json", "output format: json or yaml")
	rootCmd.AddCommand(toolsCmd)
}

func writeCatalogue(w io.Writer, format string) error {
	// The catalogue is static; the client is never called.
	client := cashcat.NewClient()
	registry, err := service.NewToolRegistry(service.ToolDeps{
		Source:  client,
		Fetcher: cashcat.NewPager(client),
	})
	if err != nil {
		return err
	}
	catalogue := map[string]any{"tools": registry.Definitions()}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(catalogue)
	case "yaml":
		// Round-trip through JSON so YAML keys match the wire names.
		raw, err := json.Marshal(catalogue)
		if err != nil {
			return err
		}
		var generic any
		if err := json.Unmarshal(raw, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q (want json or yaml)", format)
	}
}
