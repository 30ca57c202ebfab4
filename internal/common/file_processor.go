package common

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/text/unicode/norm"

	"careerpath/internal/errors"
	"careerpath/internal/utils"
)

// FileProcessor reads input documents and writes command output
type FileProcessor struct {
	logger      *errors.Logger
	maxFileSize int64
}

// NewFileProcessor creates a file processor; maxFileSize <= 0 means unlimited
func NewFileProcessor(logger *errors.Logger, maxFileSize int64) *FileProcessor {
	if logger == nil {
		logger = errors.NopLogger()
	}
	return &FileProcessor{logger: logger, maxFileSize: maxFileSize}
}

// ReadFile reads a document and returns it in Unicode NFC form, so composed
// and decomposed spellings of the same word compare equal.
func (fp *FileProcessor) ReadFile(filename string) (string, error) {
	file, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.NewIOError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("File not found: %s", filename), err)
		}
		return "", errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", filename), err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			fp.logger.Warn("Failed to close file", "filename", filename, "error", err)
		}
	}()

	content, err := io.ReadAll(norm.NFC.Reader(file))
	if err != nil {
		return "", errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Failed to read file content: %s", filename), err)
	}

	return string(content), nil
}

// WriteFile writes content to a file, creating its directory
func (fp *FileProcessor) WriteFile(filename, content string) error {
	if err := utils.EnsureOutputDir(filename); err != nil {
		return errors.NewIOError("DIRECTORY_CREATE_FAILED",
			fmt.Sprintf("Cannot create directory: %s", filepath.Dir(filename)), err)
	}

	if err := os.WriteFile(filename, []byte(content), 0600); err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED",
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}

	return nil
}

// ValidateAndReadFiles validates and reads multiple input files
func (fp *FileProcessor) ValidateAndReadFiles(filenames ...string) ([]string, error) {
	contents := make([]string, len(filenames))

	for i, filename := range filenames {
		if err := utils.ValidateInputFile(filename, fp.maxFileSize); err != nil {
			if os.IsNotExist(statErr(filename)) {
				return nil, errors.NewIOError(errors.ErrCodeFileNotFound,
					fmt.Sprintf("File not found: %s", filename), err)
			}
			return nil, errors.NewValidationError("INVALID_INPUT_FILE",
				fmt.Sprintf("Invalid file %s", filename), err)
		}

		if !utils.IsTextFile(filename) {
			fp.logger.Warn("File may not be a plain-text document", "filename", filename)
		}

		content, err := fp.ReadFile(filename)
		if err != nil {
			return nil, err
		}
		fp.logger.Debug("Read input document",
			"filename", filename,
			"size", utils.FormatFileSize(int64(len(content))))

		contents[i] = content
	}

	return contents, nil
}

func statErr(filename string) error {
	if filename == "" {
		return nil
	}
	_, err := os.Stat(filename)
	return err
}
