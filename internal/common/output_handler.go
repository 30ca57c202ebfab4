package common

import (
	"fmt"
	"io"
	"os"

	"careerpath/internal/errors"
	"careerpath/internal/formatters"
)

// CommandConfig holds common configuration for commands
type CommandConfig struct {
	OutputFile       string
	OutputFormat     string
	SupportedFormats []string
	MaxFileSize      int64
}

// OutputHandler handles formatting and writing output
type OutputHandler struct {
	fileProcessor *FileProcessor
	registry      *formatters.FormatterRegistry
	logger        *errors.Logger
	stdout        io.Writer
}

// NewOutputHandler creates a new output handler writing to stdout
func NewOutputHandler(logger *errors.Logger) *OutputHandler {
	return NewOutputHandlerWithWriter(logger, os.Stdout)
}

// NewOutputHandlerWithWriter creates an output handler that prints to w
func NewOutputHandlerWithWriter(logger *errors.Logger, w io.Writer) *OutputHandler {
	if logger == nil {
		logger = errors.NopLogger()
	}
	return &OutputHandler{
		fileProcessor: NewFileProcessor(logger, 0),
		registry:      formatters.GlobalRegistry,
		logger:        logger,
		stdout:        w,
	}
}

// ValidateFormat rejects formats outside the configured list
func (oh *OutputHandler) ValidateFormat(config CommandConfig) error {
	if err := ValidateOutputFormat(config.OutputFormat, config.SupportedFormats); err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidFormat, err.Error(), nil)
	}
	return nil
}

// HandleOutput formats data and writes it to the specified output
func (oh *OutputHandler) HandleOutput(data any, config CommandConfig) error {
	output, err := oh.registry.Format(data, config.OutputFormat)
	if err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("Failed to format output as %s", config.OutputFormat), err)
	}

	if config.OutputFile == "" {
		_, err := io.WriteString(oh.stdout, output)
		return err
	}

	if err := oh.fileProcessor.WriteFile(config.OutputFile, output); err != nil {
		return err
	}
	oh.logger.Info("Output written successfully",
		"file", config.OutputFile, "format", config.OutputFormat)
	return nil
}

// GetSupportedFormats returns all formats the registry can render
func (oh *OutputHandler) GetSupportedFormats() []string {
	return oh.registry.GetSupportedFormats()
}
