package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeValidate(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()

	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)

	err := cmd.Execute()
	return buf.String(), err
}

func TestValidateValidScenarios(t *testing.T) {
	out, err := executeValidate(t, &RootOptions{Format: "text"}, testScenariosDir)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ csv_single_stream")
	assert.Contains(t, out, "✓ All scenarios valid")
}

func TestValidateValidScenariosJSON(t *testing.T) {
	out, err := executeValidate(t, &RootOptions{Format: "json"}, testScenariosDir)
	require.NoError(t, err)

	var response struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &response))
	assert.Equal(t, "ok", response.Status)
	assert.True(t, response.Data.Valid)
	require.Len(t, response.Data.Scenarios, 1)
	assert.Equal(t, "csv_single_stream", response.Data.Scenarios[0].Name)
}

func TestValidateNonExistentDirectory(t *testing.T) {
	out, err := executeValidate(t, &RootOptions{Format: "text"}, "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}

func TestValidateEmptyDirectory(t *testing.T) {
	out, err := executeValidate(t, &RootOptions{Format: "text"}, t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "no scenario files found")
}

func TestValidateUnknownField(t *testing.T) {
	dir := t.TempDir()
	copyScenario(t, dir, "broken", "expected_records:", "expected_recods:")

	out, err := executeValidate(t, &RootOptions{Format: "text"}, dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, out, "✗ ")
	assert.Contains(t, out, ErrCodeLoadFailed)
	assert.Contains(t, out, "expected_recods")
	assert.Contains(t, out, "Validation failed for 1 scenario(s)")
}

func TestValidateMissingCatalogStream(t *testing.T) {
	dir := t.TempDir()
	copyScenario(t, dir, "missing_stream", "    - name: stream1\n      json_schema:", "    - name: stream2\n      json_schema:")

	out, err := executeValidate(t, &RootOptions{Format: "json"}, dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var response struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &response))
	assert.Equal(t, "error", response.Status)
	assert.False(t, response.Data.Valid)
	require.Len(t, response.Data.Scenarios, 1)

	entry := response.Data.Scenarios[0]
	assert.False(t, entry.Valid)
	require.NotNil(t, entry.Error)
	assert.Equal(t, ErrCodeBuildFailed, entry.Error.Code)
	assert.Contains(t, entry.Error.Message, "stream2")
}

func TestValidateMixed(t *testing.T) {
	dir := t.TempDir()
	copyScenario(t, dir, "good")
	copyScenario(t, dir, "bad", "file_type: csv\n  files:", "files:")

	out, err := executeValidate(t, &RootOptions{Format: "text"}, dir)
	require.Error(t, err)

	assert.Contains(t, out, "✓ csv_single_stream")
	assert.Contains(t, out, "source.file_type")
	assert.Contains(t, out, "Validation failed for 1 scenario(s)")
}

func TestValidateVerboseOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "text", Verbose: true})
	cmd.SetOut(buf)
	cmd.SetErr(errBuf)
	cmd.SetArgs([]string{testScenariosDir})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, errBuf.String(), "Validating")
	assert.NotContains(t, buf.String(), "Validating")
}
