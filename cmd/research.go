package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/agent-cli/internal/agency"
	"github.com/sells-group/agent-cli/internal/agent"
)

var (
	researchProvider string
	researchStrategy string
	researchActor    string
	researchExisting string
)

var researchCmd = &cobra.Command{
	Use:   "research <agency name>",
	Short: "Research one transit agency and print the draft",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if researchStrategy != "" {
			cfg.Agent.Strategy = researchStrategy
		}

		a, err := newAgencyAgent(researchProvider)
		if err != nil {
			return err
		}

		var existing map[string]any
		if researchExisting != "" {
			existing, err = loadRecord(researchExisting)
			if err != nil {
				return err
			}
		}

		ctx := agent.WithActor(cmd.Context(), researchActor)
		result := a.Execute(ctx, map[string]any{"name": args[0]}, existing)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return eris.Wrap(err, "research: encode result")
		}

		if !result.Success {
			zap.L().Error("research failed",
				zap.String("agency", args[0]),
				zap.String("error", result.Error),
			)
			return eris.Errorf("research: run failed: %s", result.Error)
		}
		return nil
	},
}

// loadRecord reads an existing record from a JSON file and flattens it for
// diffing.
func loadRecord(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "research: read existing record")
	}
	var record map[string]any
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, eris.Wrap(err, "research: parse existing record")
	}
	return agency.FlattenRecord(record), nil
}

func init() {
	researchCmd.Flags().StringVar(&researchProvider, "provider", "", "LLM provider (anthropic or openai)")
	researchCmd.Flags().StringVar(&researchStrategy, "strategy", "", "pipeline strategy (two_step, structured, structured_confidence)")
	researchCmd.Flags().StringVar(&researchActor, "actor", "", "acting principal recorded in the audit log")
	researchCmd.Flags().StringVar(&researchExisting, "existing", "", "path to a JSON file with the existing record to diff against")
	rootCmd.AddCommand(researchCmd)
}
