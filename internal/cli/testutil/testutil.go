// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"encoding/base64"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/insightql/internal/cli/output"
	"github.com/leapstack-labs/insightql/internal/testutil"
)

// SampleSections are the sections written by SetupTestProject.
var SampleSections = []testutil.Section{
	{Dept: "cpsc", Course: "310", Avg: 90, Instructor: "smith", Title: "sw eng", Pass: 90, Fail: 3, ID: 101, Year: 2015},
	{Dept: "cpsc", Course: "310", Avg: 85, Instructor: "jones", Title: "sw eng", Pass: 80, Fail: 4, ID: 102, Year: 2016},
	{Dept: "math", Course: "100", Avg: 65, Instructor: "lee", Title: "calculus", Pass: 120, Fail: 20, ID: 104, Year: 2014},
}

// SetupTestProject creates a temporary project with a config file pointing
// at a fresh state database and a sections archive at courses.zip.
func SetupTestProject(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()

	cfg := "state_path: .insightql/state.db\noutput: markdown\n"
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "insightql.yaml"), []byte(cfg), 0644))

	archive := testutil.SectionsArchive(t, SampleSections...)
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "courses.zip"), archive, 0644))

	return tmpDir
}

// SectionsArchiveBase64 returns the sample archive as base64 text.
func SectionsArchiveBase64(t *testing.T) string {
	t.Helper()
	return base64.StdEncoding.EncodeToString(testutil.SectionsArchive(t, SampleSections...))
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
// Output is captured in buffers for inspection.
func NewTestRenderer(mode output.Mode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// NewTestRendererText creates a new test renderer in text mode (simulated TTY).
func NewTestRendererText() *TestRenderer {
	return NewTestRenderer(output.ModeText, true)
}

// NewTestRendererMarkdown creates a new test renderer in markdown mode.
func NewTestRendererMarkdown() *TestRenderer {
	return NewTestRenderer(output.ModeMarkdown, false)
}

// NewTestRendererJSON creates a new test renderer in JSON mode.
func NewTestRendererJSON() *TestRenderer {
	return NewTestRenderer(output.ModeJSON, false)
}

// Output returns the combined stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertValidMarkdown performs basic markdown validation.
// It checks for unclosed code fences and empty headers.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	fenceCount := strings.Count(md, "```")
	if fenceCount%2 != 0 {
		t.Errorf("unbalanced code fences in markdown: found %d occurrences", fenceCount)
	}

	for i, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
	}
}
