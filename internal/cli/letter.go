package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"careerpath/internal/common"
	"careerpath/internal/coverletter"
	"careerpath/internal/errors"
	"careerpath/internal/types"
)

type letterOptions struct {
	output  common.CommandConfig
	role    string
	company string
	tone    string
	words   int
}

func newLetterCmd() *cobra.Command {
	var opts letterOptions

	cmd := &cobra.Command{
		Use:   "letter [resume-file] [job-description-file]",
		Short: "Draft a cover letter from a resume and a job description",
		Long: `Match a resume against a job description, then draft a cover letter that
highlights the shared skills and commits to learning the missing ones.

Role, company, tone and word limit default to the "letter" section of the
configuration. Supported tones: professional, friendly. A word limit of 0
disables truncation. The output shows the match report and the letter.`,
		Args: cobra.ExactArgs(2),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return applyOutputDefaults(cmd, &opts.output)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLetter(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.role, "role", "", "Role applied for (default from config)")
	cmd.Flags().StringVar(&opts.company, "company", "", "Company applied to (default from config)")
	cmd.Flags().StringVar(&opts.tone, "tone", "", "Letter tone: professional or friendly (default from config)")
	cmd.Flags().IntVar(&opts.words, "words", 0, "Maximum letter length in words, 0 for no limit (default from config)")
	addOutputFlags(cmd, &opts.output)

	_ = cmd.RegisterFlagCompletionFunc("tone", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return coverletter.Tones(), cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func runLetter(cmd *cobra.Command, args []string, opts letterOptions) error {
	cfg, logger, err := dependencies(cmd.Context())
	if err != nil {
		return err
	}

	var words *int
	if cmd.Flags().Changed("words") {
		if opts.words < 0 {
			return errors.NewValidationError(errors.ErrCodeInvalidWordCount, "--words must not be negative", nil).
				WithContext("words", opts.words)
		}
		words = &opts.words
	}

	defaults, err := types.DefaultLetterOptions(cfg.Letter)
	if err != nil {
		return fmt.Errorf("invalid letter defaults: %w", err)
	}
	letterOpts, err := defaults.Resolve(opts.tone, words, opts.role, opts.company)
	if err != nil {
		return err
	}

	engine, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}

	logDetails := func(input documentPair, c common.CommandConfig) {
		logger.Info("Starting cover letter generation",
			"resume_chars", len(input.Resume),
			"job_chars", len(input.JobDescription),
			"tone", letterOpts.Tone.String(),
			"words", letterOpts.Words,
			"output_format", c.OutputFormat)
	}

	letterOperation := func(_ context.Context, input documentPair) (types.AnalyzeOutput, error) {
		analysis := engine.Analyze(input.Resume, input.JobDescription)
		req := coverletter.FromAnalysis(analysis, letterOpts.Role, letterOpts.Company, letterOpts.Tone, letterOpts.Words)
		letter, err := types.NewCoverLetterOutput(req)
		if err != nil {
			return types.AnalyzeOutput{}, err
		}
		return types.AnalyzeOutput{Analysis: analysis, Letter: letter}, nil
	}

	err = common.RunCommand(cmd.Context(), logger, opts.output, args, readPair, letterOperation, logDetails)
	if err != nil {
		return fmt.Errorf("failed to generate cover letter: %w", err)
	}
	logger.Info("Cover letter generated successfully")
	return nil
}
