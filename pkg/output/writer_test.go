// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package output_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carvel.dev/stamp/pkg/artifact"
	"carvel.dev/stamp/pkg/cmd/ui"
	"carvel.dev/stamp/pkg/output"
)

func validated(path, data string) *artifact.Staged {
	return &artifact.Staged{
		Artifact: artifact.Artifact{Path: path, Format: artifact.FormatText},
		Data:     []byte(data),
		State:    artifact.StateValidated,
	}
}

func testUI() ui.UI { return ui.NewCustomWriterTTY(false, nil, nil) }

func TestFirstRunWritesEverything(t *testing.T) {
	dir := t.TempDir()
	set := []*artifact.Staged{
		validated("Makefile", "build:\n"),
		validated(".github/workflows/ci.yml", "name: ci\n"),
	}

	report, err := output.NewWriter(dir, false, false, testUI()).Write(set)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Written)
	assert.Equal(t, 0, report.Skipped)

	data, err := os.ReadFile(filepath.Join(dir, ".github/workflows/ci.yml"))
	require.NoError(t, err)
	assert.Equal(t, "name: ci\n", string(data))

	for _, s := range set {
		assert.Equal(t, artifact.StateWritten, s.State)
	}

	_, err = os.Stat(filepath.Join(dir, output.ManifestPath))
	require.NoError(t, err)
}

func TestSecondIdenticalRunSkipsEverything(t *testing.T) {
	dir := t.TempDir()
	first := []*artifact.Staged{validated("Makefile", "build:\n")}
	_, err := output.NewWriter(dir, false, false, testUI()).Write(first)
	require.NoError(t, err)

	second := []*artifact.Staged{validated("Makefile", "build:\n")}
	report, err := output.NewWriter(dir, false, false, testUI()).Write(second)
	require.NoError(t, err)

	assert.Equal(t, 0, report.Written)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, artifact.StateSkipped, second[0].State)
}

func TestToolAuthoredFileIsRegenerated(t *testing.T) {
	dir := t.TempDir()
	first := []*artifact.Staged{validated("Makefile", "build: v1\n")}
	_, err := output.NewWriter(dir, false, false, testUI()).Write(first)
	require.NoError(t, err)

	// Content changed between runs, but the file on disk is untouched since
	// the last run, so it is still ours to overwrite.
	second := []*artifact.Staged{validated("Makefile", "build: v2\n")}
	report, err := output.NewWriter(dir, false, false, testUI()).Write(second)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Written)

	data, err := os.ReadFile(filepath.Join(dir, "Makefile"))
	require.NoError(t, err)
	assert.Equal(t, "build: v2\n", string(data))
}

func TestHandEditedFileConflicts(t *testing.T) {
	dir := t.TempDir()
	first := []*artifact.Staged{validated("Makefile", "build: v1\n")}
	_, err := output.NewWriter(dir, false, false, testUI()).Write(first)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "Makefile"), []byte("build: edited\n"), 0600))

	second := []*artifact.Staged{
		validated("Makefile", "build: v2\n"),
		validated("README.md", "# acme\n"),
	}
	_, err = output.NewWriter(dir, false, false, testUI()).Write(second)
	require.Error(t, err)

	var conflictErr output.WriteConflictError
	require.ErrorAs(t, err, &conflictErr)
	require.Len(t, conflictErr.Conflicts, 1)
	assert.Equal(t, "Makefile", conflictErr.Conflicts[0].Path)
	assert.NotEmpty(t, conflictErr.Conflicts[0].Diff)

	assert.Equal(t, artifact.StateConflict, second[0].State)

	// Nothing at all was written, including the clean file.
	data, err := os.ReadFile(filepath.Join(dir, "Makefile"))
	require.NoError(t, err)
	assert.Equal(t, "build: edited\n", string(data))
	_, err = os.Stat(filepath.Join(dir, "README.md"))
	assert.True(t, os.IsNotExist(err))
}

func TestConflictReportShowsDiffAndDryRunHint(t *testing.T) {
	dir := t.TempDir()
	first := []*artifact.Staged{validated("Makefile", "build: v1\n")}
	_, err := output.NewWriter(dir, false, false, testUI()).Write(first)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "Makefile"), []byte("build: edited\n"), 0600))

	var stderr bytes.Buffer
	second := []*artifact.Staged{validated("Makefile", "build: v2\n")}
	_, err = output.NewWriter(dir, false, false, ui.NewCustomWriterTTY(false, nil, &stderr)).Write(second)
	require.Error(t, err)

	// The diff between the local edit and the staged content is shown, not
	// just the conflicting path.
	assert.Contains(t, stderr.String(), "conflict: Makefile")
	assert.Contains(t, stderr.String(), "build: edited")
	assert.Contains(t, stderr.String(), "build: v2")

	assert.Contains(t, err.Error(), "--dry-run")
	assert.Contains(t, err.Error(), "--force")
}

func TestForceOverwritesHandEdits(t *testing.T) {
	dir := t.TempDir()
	first := []*artifact.Staged{validated("Makefile", "build: v1\n")}
	_, err := output.NewWriter(dir, false, false, testUI()).Write(first)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "Makefile"), []byte("build: edited\n"), 0600))

	second := []*artifact.Staged{validated("Makefile", "build: v2\n")}
	report, err := output.NewWriter(dir, true, false, testUI()).Write(second)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Written)

	data, err := os.ReadFile(filepath.Join(dir, "Makefile"))
	require.NoError(t, err)
	assert.Equal(t, "build: v2\n", string(data))
}

func TestDryRunTouchesNothing(t *testing.T) {
	dir := t.TempDir()
	set := []*artifact.Staged{validated("Makefile", "build:\n")}

	report, err := output.NewWriter(dir, false, true, testUI()).Write(set)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Written)

	// Nothing happened, so nothing moves past the validated state.
	assert.Equal(t, artifact.StateValidated, set[0].State)

	_, err = os.Stat(filepath.Join(dir, "Makefile"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, output.ManifestPath))
	assert.True(t, os.IsNotExist(err))
}

func TestPreexistingIdenticalFileIsSkippedWithoutManifest(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# acme\n"), 0600))

	set := []*artifact.Staged{validated("README.md", "# acme\n")}
	report, err := output.NewWriter(dir, false, false, testUI()).Write(set)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
}

func TestPreexistingDifferentFileConflictsWithoutManifest(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("user content\n"), 0600))

	set := []*artifact.Staged{validated("README.md", "# acme\n")}
	_, err := output.NewWriter(dir, false, false, testUI()).Write(set)

	var conflictErr output.WriteConflictError
	require.ErrorAs(t, err, &conflictErr)
}

func TestManifestRoundTrips(t *testing.T) {
	m := output.NewManifest()
	m.Record("a.yml", []byte("a\n"))
	m.Record("b/c.yml", []byte("c\n"))

	data, err := m.Bytes()
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".stamp"), 0700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, output.ManifestPath), data, 0600))

	loaded, err := output.LoadManifest(dir)
	require.NoError(t, err)

	hash, found := loaded.Hash("b/c.yml")
	require.True(t, found)
	assert.Equal(t, output.HashBytes([]byte("c\n")), hash)
}
