package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"careerpath/internal/common"
	"careerpath/internal/config"
	"careerpath/internal/errors"
	"careerpath/internal/matching"
)

// Define custom private types for context keys.
type configKeyType struct{}
type loggerKeyType struct{}

var configKey = configKeyType{}
var loggerKey = loggerKeyType{}

// NewRootCommand builds the careerpath command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "careerpath",
		Short: "Score a resume against a job description and draft a cover letter",
		Long: `careerpath compares a resume with a job description, reports a 0-100
compatibility score with the skills they share and the skills the job asks
for that the resume lacks, and drafts a short cover letter from that outcome.
It runs as a command-line tool or as an HTTP API (serve).`,
		SilenceUsage: true,
	}

	root.AddCommand(newMatchCmd())
	root.AddCommand(newLetterCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// Execute runs the CLI with cfg and logger available to every subcommand
func Execute(ctx context.Context, cfg *config.Config, logger *errors.Logger) error {
	return NewRootCommand().ExecuteContext(withDependencies(ctx, cfg, logger))
}

func withDependencies(ctx context.Context, cfg *config.Config, logger *errors.Logger) context.Context {
	ctx = context.WithValue(ctx, configKey, cfg)
	return context.WithValue(ctx, loggerKey, logger)
}

// getConfigFromContext is a helper function to get config from context
func getConfigFromContext(ctx context.Context) (*config.Config, error) {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok && cfg != nil {
		return cfg, nil
	}
	return nil, errors.NewInternalError("CONTEXT_MISSING_CONFIG", "config not found in command context", nil)
}

// getLoggerFromContext is a helper function to get logger from context
func getLoggerFromContext(ctx context.Context) (*errors.Logger, error) {
	if logger, ok := ctx.Value(loggerKey).(*errors.Logger); ok && logger != nil {
		return logger, nil
	}
	return nil, errors.NewInternalError("CONTEXT_MISSING_LOGGER", "logger not found in command context", nil)
}

func dependencies(ctx context.Context) (*config.Config, *errors.Logger, error) {
	cfg, err := getConfigFromContext(ctx)
	if err != nil {
		return nil, nil, err
	}
	logger, err := getLoggerFromContext(ctx)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// newEngine builds the matching engine over the configured vocabulary
func newEngine(cfg *config.Config, logger *errors.Logger) (*matching.Engine, error) {
	vocab, err := config.LoadVocabulary(cfg.Matching.VocabularyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load vocabulary: %w", err)
	}
	return matching.NewEngine(vocab, logger), nil
}

// addOutputFlags registers --output and --format with format completion
func addOutputFlags(cmd *cobra.Command, opts *common.CommandConfig) {
	cmd.Flags().StringVarP(&opts.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&opts.OutputFormat, "format", "", "Output format: json, text, or markdown")

	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return []string{}, cobra.ShellCompDirectiveError
		}
		return cfg.App.SupportedFormats, cobra.ShellCompDirectiveNoFileComp
	})
}

// applyOutputDefaults fills the format and limits from config and validates the format
func applyOutputDefaults(cmd *cobra.Command, opts *common.CommandConfig) error {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return err
	}
	if opts.OutputFormat == "" {
		opts.OutputFormat = cfg.App.DefaultFormat
	}
	opts.SupportedFormats = cfg.App.SupportedFormats
	opts.MaxFileSize = cfg.App.MaxFileSize
	return common.ValidateOutputFormat(opts.OutputFormat, opts.SupportedFormats)
}

// documentPair is a resume and a job description read from disk
type documentPair struct {
	Resume         string
	JobDescription string
}

func readPair(contents []string) (documentPair, error) {
	if len(contents) != 2 {
		return documentPair{}, fmt.Errorf("expected 2 file paths, got %d", len(contents))
	}
	return documentPair{Resume: contents[0], JobDescription: contents[1]}, nil
}
