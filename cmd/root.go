package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/agent-cli/internal/agency"
	"github.com/sells-group/agent-cli/internal/agent"
	"github.com/sells-group/agent-cli/internal/audit"
	"github.com/sells-group/agent-cli/internal/config"
	"github.com/sells-group/agent-cli/internal/llm"
	"github.com/sells-group/agent-cli/internal/tools"
	"github.com/sells-group/agent-cli/internal/tools/imagefetch"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "agent-cli",
	Short: "LLM-driven entity research agents",
	Long:  "Researches real-world entities (transit agencies) via search-augmented LLM pipelines and produces reviewable drafts; nothing is committed automatically.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newRegistry builds the tool registry with all known tools registered.
func newRegistry() *tools.Registry {
	registry := tools.NewRegistry()
	registry.Register(imagefetch.New(imagefetch.Config{
		BaseDir:         cfg.Images.BaseDir,
		Timeout:         time.Duration(cfg.Images.TimeoutSecs) * time.Second,
		PerHostRate:     rate.Limit(cfg.Images.PerHostRate),
		MinFaviconBytes: cfg.Images.MinFaviconBytes,
	}))
	return registry
}

// newAgencyAgent wires the agency agent from configuration. providerName
// overrides the configured provider when non-empty.
func newAgencyAgent(providerName string) (*agent.Agent, error) {
	if providerName == "" {
		providerName = cfg.Agent.Provider
	}
	provider, err := llm.New(providerName, cfg.Providers)
	if err != nil {
		return nil, err
	}

	agentCfg := cfg.Agent
	if agentCfg.Model == "" {
		switch providerName {
		case "anthropic":
			agentCfg.Model = cfg.Providers.Anthropic.Model
		case "openai":
			agentCfg.Model = cfg.Providers.OpenAI.Model
		}
	}

	return agency.New(provider, newRegistry(), audit.NewFileStore(cfg.Audit.Path), agentCfg)
}
