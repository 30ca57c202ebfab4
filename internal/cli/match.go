package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"careerpath/internal/common"
	"careerpath/internal/matching"
)

func newMatchCmd() *cobra.Command {
	var opts common.CommandConfig

	cmd := &cobra.Command{
		Use:   "match [resume-file] [job-description-file]",
		Short: "Score how well a resume matches a job description",
		Long: fmt.Sprintf(`Compare a resume with a job description and report a 0-100 match score.

The score blends skill coverage (%.0f%%), text similarity (%.0f%%) and shared
domain keywords (%.0f%%). The report also lists the strengths (skills found in
both documents) and the gaps (skills the job asks for that the resume lacks).
Both files should be plain text.`,
			matching.WeightSkillCoverage*100,
			matching.WeightTextSimilarity*100,
			matching.WeightKeywordOverlap*100),
		Args: cobra.ExactArgs(2),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return applyOutputDefaults(cmd, &opts)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatch(cmd, args, opts)
		},
	}
	addOutputFlags(cmd, &opts)
	return cmd
}

func runMatch(cmd *cobra.Command, args []string, opts common.CommandConfig) error {
	cfg, logger, err := dependencies(cmd.Context())
	if err != nil {
		return err
	}

	engine, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}

	logDetails := func(input documentPair, cfg common.CommandConfig) {
		logger.Info("Starting resume match",
			"resume_chars", len(input.Resume),
			"job_chars", len(input.JobDescription),
			"output_format", cfg.OutputFormat)
	}

	matchOperation := func(_ context.Context, input documentPair) (matching.Analysis, error) {
		return engine.Analyze(input.Resume, input.JobDescription), nil
	}

	err = common.RunCommand(cmd.Context(), logger, opts, args, readPair, matchOperation, logDetails)
	if err != nil {
		return fmt.Errorf("failed to match resume: %w", err)
	}
	logger.Info("Resume match completed successfully")
	return nil
}
