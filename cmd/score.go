package cmd

import (
	"context"
	"os"

	"github.com/spigell/resume-insight/internal/analyzer"
	"github.com/spigell/resume-insight/internal/export"
	"github.com/spigell/resume-insight/internal/scoring"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var scoreCmd = &cobra.Command{
	Use:   "score <resume-file|->",
	Short: "Score a resume on five weighted components",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		score(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().StringSlice("keywords", nil, "target keywords; the model proposes them when omitted")
	scoreCmd.Flags().String("xlsx", "", "also write the report to this Excel file")
	scoreCmd.Flags().Bool("no-cache", false, "bypass the result cache")
}

func score(cmd *cobra.Command, path string) {
	ctx := context.Background()

	e := setup(ctx)
	defer e.close()

	resume, err := readResume(path, os.Stdin)
	if err != nil {
		e.logger.Fatal("reading the resume", zap.Error(err), zap.String("path", path))
	}

	keywords, _ := cmd.Flags().GetStringSlice("keywords")

	opts := []scoring.Option{scoring.WithLogger(e.logger.Named("scoring"))}
	if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache {
		opts = append(opts, scoring.WithCallOptions(analyzer.NoCache()))
	}

	report, err := scoring.New(e.analyzer, opts...).Score(ctx, resume, keywords)
	if err != nil {
		e.logger.Fatal("scoring the resume", zap.Error(err))
	}

	if out := cmd.Flag("xlsx").Value.String(); out != "" {
		written, err := export.ScoreWorkbook(report, out)
		if err != nil {
			e.logger.Fatal("exporting the score report", zap.Error(err))
		}
		e.logger.Info("score report exported", zap.String("filename", written))
	}

	if err := printJSON(os.Stdout, report); err != nil {
		e.logger.Fatal("printing the report", zap.Error(err))
	}
}
