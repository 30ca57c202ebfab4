package common

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careerpath/internal/errors"
)

type pair struct{ cv, jd string }

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReadFileNormalizesToNFC(t *testing.T) {
	dir := t.TempDir()
	decomposed := writeDoc(t, dir, "cv.txt", "Re\u0301sume\u0301 with pandas")

	got, err := NewFileProcessor(nil, 0).ReadFile(decomposed)
	require.NoError(t, err)
	assert.Equal(t, "R\u00e9sum\u00e9 with pandas", got)
}

func TestValidateAndReadFilesErrors(t *testing.T) {
	dir := t.TempDir()
	big := writeDoc(t, dir, "big.txt", strings.Repeat("x", 64))
	fp := NewFileProcessor(nil, 32)

	_, err := fp.ValidateAndReadFiles(filepath.Join(dir, "missing.txt"))
	assert.True(t, errors.HasCode(err, errors.ErrCodeFileNotFound))

	_, err = fp.ValidateAndReadFiles(big)
	assert.True(t, errors.IsValidation(err))
}

func TestRunCommandWritesFormattedOutput(t *testing.T) {
	dir := t.TempDir()
	cv := writeDoc(t, dir, "cv.txt", "python")
	jd := writeDoc(t, dir, "jd.txt", "sql")
	out := filepath.Join(dir, "reports", "result.json")

	var logged pair
	err := RunCommand(context.Background(), errors.NopLogger(),
		CommandConfig{OutputFile: out, OutputFormat: "json", SupportedFormats: []string{"json"}},
		[]string{cv, jd},
		func(contents []string) (pair, error) { return pair{contents[0], contents[1]}, nil },
		func(_ context.Context, in pair) (map[string]string, error) {
			return map[string]string{"cv": in.cv, "jd": in.jd}, nil
		},
		func(in pair, _ CommandConfig) { logged = in },
	)
	require.NoError(t, err)
	assert.Equal(t, pair{"python", "sql"}, logged)

	written, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"cv":"python","jd":"sql"}`, string(written))
}

func TestRunCommandRejectsUnsupportedFormatBeforeReading(t *testing.T) {
	called := false
	err := RunCommand(context.Background(), nil,
		CommandConfig{OutputFormat: "xml", SupportedFormats: []string{"json", "text"}},
		[]string{"/does/not/exist"},
		func(contents []string) (string, error) { return "", nil },
		func(context.Context, string) (string, error) { called = true; return "", nil },
		nil,
	)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidFormat))
	assert.False(t, called)
}

func TestRunCommandHonorsCancellation(t *testing.T) {
	dir := t.TempDir()
	cv := writeDoc(t, dir, "cv.txt", "python")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RunCommand(ctx, nil, CommandConfig{OutputFormat: "json"}, []string{cv},
		func(contents []string) (string, error) { return contents[0], nil },
		func(context.Context, string) (string, error) { return "unreachable", nil },
		nil,
	)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHandleOutputToWriter(t *testing.T) {
	var buf bytes.Buffer
	handler := NewOutputHandlerWithWriter(nil, &buf)

	require.NoError(t, handler.HandleOutput([]string{"a"}, CommandConfig{OutputFormat: "json"}))
	assert.Equal(t, "[\n  \"a\"\n]\n", buf.String())

	err := handler.HandleOutput([]string{"a"}, CommandConfig{OutputFormat: "yaml"})
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidFormat))
	assert.Equal(t, []string{"json", "markdown", "text"}, handler.GetSupportedFormats())
}
