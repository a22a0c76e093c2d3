package commands

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/insightql/internal/cli/config"
	"github.com/leapstack-labs/insightql/internal/cli/testutil"
)

// runInProject loads the project config and executes cmd with args.
func runInProject(t *testing.T, dir string, cmd *cobra.Command, stdin string, args ...string) (string, string, error) {
	t.Helper()
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	_, err := config.LoadConfig(filepath.Join(dir, "insightql.yaml"), nil)
	require.NoError(t, err)

	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err = cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

// addCourses registers the project's sample archive as "courses".
func addCourses(t *testing.T, dir string) {
	t.Helper()
	_, _, err := runInProject(t, dir, NewAddCommand(), "", "courses", filepath.Join(dir, "courses.zip"))
	require.NoError(t, err)
}

func TestNewAddCommand(t *testing.T) {
	cmd := NewAddCommand()

	assert.Equal(t, "add <id> <archive>", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")

	flag := cmd.Flags().Lookup("kind")
	require.NotNil(t, flag)
	assert.Equal(t, "k", flag.Shorthand)
	assert.Equal(t, "sections", flag.DefValue)
}

func TestNewRemoveCommand(t *testing.T) {
	cmd := NewRemoveCommand()

	assert.Equal(t, "remove <id>", cmd.Use)
	assert.Contains(t, cmd.Aliases, "rm")
}

func TestNewListCommand(t *testing.T) {
	cmd := NewListCommand()

	assert.Equal(t, "list", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.Contains(t, cmd.Aliases, "ls")
}

func TestNewInsightsCommand(t *testing.T) {
	cmd := NewInsightsCommand()

	assert.Equal(t, "insights <id>", cmd.Use)
	assert.NotNil(t, cmd.Flags().Lookup("depts"))
}

func TestNewServeCommand(t *testing.T) {
	cmd := NewServeCommand()

	assert.Equal(t, "serve", cmd.Use)
	for _, flag := range []string{"addr", "watch-dir", "watch-kind"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestAddListRemove(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	out, _, err := runInProject(t, dir, NewAddCommand(), "", "courses", filepath.Join(dir, "courses.zip"))
	require.NoError(t, err)
	assert.Contains(t, out, "Added sections dataset `courses`.")
	assert.Contains(t, out, "- **datasets**: courses")
	testutil.AssertValidMarkdown(t, out)

	out, _, err = runInProject(t, dir, NewListCommand(), "")
	require.NoError(t, err)
	assert.Contains(t, out, "# Datasets (1 total)")
	assert.Contains(t, out, "| courses | sections | 3 |")
	testutil.AssertNoANSI(t, out)

	out, _, err = runInProject(t, dir, NewRemoveCommand(), "", "courses")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed dataset courses")

	out, _, err = runInProject(t, dir, NewListCommand(), "")
	require.NoError(t, err)
	assert.Contains(t, out, "_No datasets registered._")
}

func TestAdd_FromStdin(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	archive := testutil.SectionsArchiveBase64(t)
	out, _, err := runInProject(t, dir, NewAddCommand(), archive, "piped", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "Added sections dataset `piped`.")
}

func TestAdd_Errors(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	addCourses(t, dir)

	tests := []struct {
		name   string
		args   []string
		errMsg string
	}{
		{"duplicate", []string{"courses", filepath.Join(dir, "courses.zip")}, "already exists"},
		{"bad kind", []string{"other", filepath.Join(dir, "courses.zip"), "--kind", "books"}, "unknown dataset kind"},
		{"missing file", []string{"other", filepath.Join(dir, "missing.zip")}, "failed to read file"},
		{"underscore id", []string{"bad_id", filepath.Join(dir, "courses.zip")}, "_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runInProject(t, dir, NewAddCommand(), "", tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestRemove_NotFound(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	_, _, err := runInProject(t, dir, NewRemoveCommand(), "", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestList_JSON(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	addCourses(t, dir)

	cmd := NewListCommand()
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)
	cfg, err := config.LoadConfig(filepath.Join(dir, "insightql.yaml"), nil)
	require.NoError(t, err)
	cfg.OutputFormat = "json"

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(nil)
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	assert.JSONEq(t, `{"result":[{"id":"courses","kind":"sections","numRows":3}]}`, out.String())
}

func TestInsights(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	addCourses(t, dir)

	out, _, err := runInProject(t, dir, NewInsightsCommand(), "", "courses")
	require.NoError(t, err)
	assert.Contains(t, out, "## Average grade by department")
	assert.Contains(t, out, "## Sections by department")
	assert.Contains(t, out, "## Top courses")
	assert.Contains(t, out, "| cpsc | 87.5 |")
	assert.Contains(t, out, "| cpsc | 2 |")
	assert.Contains(t, out, "| cpsc | 310 | 87.5 |")
	testutil.AssertValidMarkdown(t, out)

	out, _, err = runInProject(t, dir, NewInsightsCommand(), "", "courses", "--depts", "math")
	require.NoError(t, err)
	assert.Contains(t, out, "| math | 65 |")
	assert.NotContains(t, out, "cpsc")

	_, _, err = runInProject(t, dir, NewInsightsCommand(), "", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
