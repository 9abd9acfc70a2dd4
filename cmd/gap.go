package cmd

import (
	"context"
	"log"
	"os"

	"github.com/spigell/resume-insight/internal/analyzer"
	"github.com/spigell/resume-insight/internal/export"
	"github.com/spigell/resume-insight/internal/skillsgap"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var gapCmd = &cobra.Command{
	Use:   "gap <resume-file|->",
	Short: "Compare resume skills with industry expectations for a role",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		gap(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(gapCmd)

	gapCmd.Flags().StringP("role", "r", "", "target role; inferred from the resume when omitted")
	gapCmd.Flags().StringP("level", "l", skillsgap.DefaultLevel, "experience level: entry, mid or senior")
	gapCmd.Flags().String("xlsx", "", "also write the report to this Excel file")
	gapCmd.Flags().Bool("no-cache", false, "bypass the result cache")
	gapCmd.Flags().Bool("stages", false, "print the pipeline stages and exit")
}

func gap(cmd *cobra.Command, args []string) {
	if describe, _ := cmd.Flags().GetBool("stages"); describe {
		if err := printJSON(os.Stdout, skillsgap.Describe(skillsgap.DefaultStages(nil))); err != nil {
			log.Fatal(err)
		}
		return
	}

	ctx := context.Background()

	e := setup(ctx)
	defer e.close()

	if len(args) == 0 {
		e.logger.Fatal("a resume file is required", zap.String("hint", "pass a path or - for stdin"))
	}

	resume, err := readResume(args[0], os.Stdin)
	if err != nil {
		e.logger.Fatal("reading the resume", zap.Error(err), zap.String("path", args[0]))
	}

	noCache, _ := cmd.Flags().GetBool("no-cache")
	in := skillsgap.Input{
		Resume:   resume,
		Role:     cmd.Flag("role").Value.String(),
		Level:    cmd.Flag("level").Value.String(),
		UseCache: !noCache && e.analyzer.CachingEnabled(),
	}

	report, err := skillsgap.New(e.analyzer, skillsgap.WithLogger(e.logger.Named("skillsgap"))).Run(ctx, in)
	if err != nil {
		failure := analyzer.FailureOf(err)
		_ = printJSON(os.Stdout, failure)
		e.logger.Fatal("skills gap analysis failed",
			zap.Error(err),
			zap.String("reason", failure.Reason),
			zap.String("remedy", failure.Remedy),
		)
	}

	e.logger.Info("skills gap report ready",
		zap.String("id", report.ID),
		zap.String("role", report.TargetRole),
		zap.String("role_source", report.RoleSource),
		zap.Int("readiness", report.Summary.ReadinessScore),
	)

	if out := cmd.Flag("xlsx").Value.String(); out != "" {
		written, err := export.GapWorkbook(report, out)
		if err != nil {
			e.logger.Fatal("exporting the gap report", zap.Error(err))
		}
		e.logger.Info("gap report exported", zap.String("filename", written))
	}

	if err := printJSON(os.Stdout, report); err != nil {
		e.logger.Fatal("printing the report", zap.Error(err))
	}
}
