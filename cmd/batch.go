package main

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/agent-cli/internal/agent"
	"github.com/sells-group/agent-cli/internal/tools/imagefetch"
)

var (
	batchOut   string
	batchActor string
)

var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Research many agencies from a file, one name per line",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := readNames(args[0])
		if err != nil {
			return err
		}
		if len(names) == 0 {
			return eris.New("batch: no agency names in input file")
		}

		a, err := newAgencyAgent("")
		if err != nil {
			return err
		}

		if err := os.MkdirAll(batchOut, 0o755); err != nil {
			return eris.Wrap(err, "batch: create output dir")
		}

		ctx := agent.WithActor(cmd.Context(), batchActor)

		// Runs are independent; the agent is safe for concurrent use
		// because all per-run state lives on the run itself.
		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(cfg.Batch.MaxConcurrent)

		var failed atomic.Int64
		for _, name := range names {
			g.Go(func() error {
				result := a.Execute(gCtx, map[string]any{"name": name}, nil)

				if !result.Success {
					failed.Add(1)
					zap.L().Error("batch: run failed",
						zap.String("agency", name),
						zap.String("error", result.Error),
					)
					return nil
				}

				outPath := filepath.Join(batchOut, imagefetch.ShortName(name)+".json")
				data, err := json.MarshalIndent(result, "", "  ")
				if err != nil {
					return eris.Wrap(err, "batch: marshal result")
				}
				if err := os.WriteFile(outPath, data, 0o644); err != nil {
					return eris.Wrap(err, "batch: write result")
				}

				zap.L().Info("batch: run complete",
					zap.String("agency", name),
					zap.Int("fields", len(result.Draft)),
					zap.Int("skipped", len(result.SkippedFields)),
					zap.String("out", outPath),
				)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		zap.L().Info("batch: complete",
			zap.Int("total", len(names)),
			zap.Int64("failed", failed.Load()),
		)
		return nil
	},
}

func readNames(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "batch: open input file")
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name != "" && !strings.HasPrefix(name, "#") {
			names = append(names, name)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrap(err, "batch: read input file")
	}
	return names, nil
}

func init() {
	batchCmd.Flags().StringVar(&batchOut, "out", "drafts", "directory for result JSON files")
	batchCmd.Flags().StringVar(&batchActor, "actor", "", "acting principal recorded in the audit log")
	rootCmd.AddCommand(batchCmd)
}
