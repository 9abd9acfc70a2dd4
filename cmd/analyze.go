package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spigell/resume-insight/internal/analyzer"
	"github.com/spigell/resume-insight/internal/prompts"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <resume-file|->",
	Short: "Run one analysis on a resume and print the result as JSON",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		analyze(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringP("kind", "k", "", "analysis kind; asked interactively when omitted")
	analyzeCmd.Flags().String("job", "", "job description text or file, required for job_match")
	analyzeCmd.Flags().Bool("no-cache", false, "bypass the result cache")
}

func analyze(cmd *cobra.Command, path string) {
	ctx := context.Background()

	e := setup(ctx)
	defer e.close()

	kind, err := selectKind(cmd.Flag("kind").Value.String())
	if err != nil {
		e.logger.Fatal("choosing the analysis kind", zap.Error(err))
	}

	resume, err := readResume(path, os.Stdin)
	if err != nil {
		e.logger.Fatal("reading the resume", zap.Error(err), zap.String("path", path))
	}

	var opts []analyzer.CallOption
	if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache {
		opts = append(opts, analyzer.NoCache())
	}

	job, err := readText(cmd.Flag("job").Value.String())
	if err != nil {
		e.logger.Fatal("reading the job description", zap.Error(err))
	}

	e.logger.Info("running analysis", zap.String("kind", string(kind)), zap.Int("resume_length", len(resume)))

	result, err := runAnalysis(ctx, e.analyzer, kind, resume, job, opts)
	if err != nil {
		failure := analyzer.FailureOf(err)
		_ = printJSON(os.Stdout, failure)
		e.logger.Fatal("analysis failed",
			zap.Error(err),
			zap.String("reason", failure.Reason),
			zap.String("remedy", failure.Remedy),
		)
	}

	if err := printJSON(os.Stdout, result); err != nil {
		e.logger.Fatal("printing the result", zap.Error(err))
	}
}

// selectKind parses the flag value or asks the user to pick a kind.
func selectKind(value string) (prompts.Kind, error) {
	if value != "" {
		return prompts.ParseKind(value)
	}

	items := prompts.Analyses()
	labels := make([]string, len(items))
	for i, k := range items {
		labels[i] = string(k)
	}

	selector := promptui.Select{
		Label: "Which analysis?",
		Items: labels,
	}
	i, _, err := selector.Run()
	if err != nil {
		return "", err
	}
	return items[i], nil
}

func runAnalysis(ctx context.Context, a *analyzer.Analyzer, kind prompts.Kind, resume, job string, opts []analyzer.CallOption) (any, error) {
	switch kind {
	case prompts.Strengths:
		return a.GetStrengths(ctx, resume, opts...)
	case prompts.Weaknesses:
		return a.GetWeaknesses(ctx, resume, opts...)
	case prompts.Skills:
		return a.GetSkills(ctx, resume, opts...)
	case prompts.Suggestions:
		return a.GetSuggestions(ctx, resume, opts...)
	case prompts.JobMatch:
		if job == "" {
			return nil, errors.New("--job is required for job_match")
		}
		return a.MatchJob(ctx, resume, job, opts...)
	case prompts.Comprehensive:
		return a.ComprehensiveAnalysis(ctx, resume, opts...)
	case prompts.OverallScore:
		score, err := a.OverallScore(ctx, resume, opts...)
		if err != nil {
			return nil, err
		}
		return map[string]int{"score": score}, nil
	case prompts.DetailedSkills:
		return a.DetailedSkills(ctx, resume, opts...)
	default:
		return nil, fmt.Errorf("analysis kind %q cannot be run directly", kind)
	}
}
