package cmd

import (
	"context"
	"os"

	"github.com/spigell/resume-insight/internal/inference"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the inference service is reachable and the model is available",
	Run: func(_ *cobra.Command, _ []string) {
		check()
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func check() {
	ctx := context.Background()

	e := setup(ctx)
	defer e.close()

	result := e.analyzer.TestConnection(ctx)
	if err := printJSON(os.Stdout, result); err != nil {
		e.logger.Fatal("printing the result", zap.Error(err))
	}

	switch result.Status {
	case inference.ProbeError:
		e.logger.Fatal("inference service check failed", zap.String("message", result.Message))
	case inference.ProbeWarning:
		e.logger.Warn("inference service check", zap.String("message", result.Message))
	default:
		e.logger.Info("inference service check", zap.String("message", result.Message))
	}
}
