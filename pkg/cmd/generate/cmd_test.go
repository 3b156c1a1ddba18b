// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package generate_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cmdgen "carvel.dev/stamp/pkg/cmd/generate"
	"carvel.dev/stamp/pkg/config"
	"carvel.dev/stamp/pkg/generate"
	"carvel.dev/stamp/pkg/output"
)

func options(dir string) *cmdgen.GenerateOptions {
	o := cmdgen.NewOptions()
	o.Name = "acme"
	o.OutputDir = dir
	return o
}

func TestPinsURLIsConfigurable(t *testing.T) {
	o := cmdgen.NewOptions()
	cmd := cmdgen.NewCmd(o)

	flag := cmd.Flags().Lookup("pins-url")
	require.NotNil(t, flag)
	assert.Equal(t, generate.DefaultPinsURL, flag.DefValue)

	require.NoError(t, cmd.Flags().Set("pins-url", "https://example.com/pins.json"))
	assert.Equal(t, "https://example.com/pins.json", o.PinsURL)
}

func TestGenerateWritesScaffold(t *testing.T) {
	dir := t.TempDir()
	o := options(dir)
	o.Kubernetes = true
	o.CloudTarget = "aws"

	require.NoError(t, o.Run())

	for _, path := range []string{
		"Dockerfile",
		"Makefile",
		".github/workflows/ci.yml",
		".github/workflows/terraform.yml",
		"k8s/base/deployment.yaml",
		"k8s/overlays/production/kustomization.yaml",
		"infrastructure/terraform/modules/aws/network/main.tf",
		output.ManifestPath,
	} {
		_, err := os.Stat(filepath.Join(dir, path))
		assert.NoError(t, err, path)
	}
}

func TestGenerateIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, options(dir).Run())

	before, err := os.ReadFile(filepath.Join(dir, "Makefile"))
	require.NoError(t, err)

	require.NoError(t, options(dir).Run())

	after, err := os.ReadFile(filepath.Join(dir, "Makefile"))
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestGenerateInvalidConfigurationFails(t *testing.T) {
	o := cmdgen.NewOptions()
	o.OutputDir = t.TempDir()
	o.Helm = true

	err := o.Run()
	require.Error(t, err)

	var errs config.ValidationErrors
	require.ErrorAs(t, err, &errs)
}

func TestGenerateConflictOnHandEditedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, options(dir).Run())

	makefile := filepath.Join(dir, "Makefile")
	require.NoError(t, os.WriteFile(makefile, []byte("# my own makefile\n"), 0600))

	// Same content regenerated is not a conflict by itself; force a content
	// change by switching the package manager.
	o := options(dir)
	o.PackageManager = "yarn"

	err := o.Run()
	require.Error(t, err)

	var conflictErr output.WriteConflictError
	require.ErrorAs(t, err, &conflictErr)

	data, readErr := os.ReadFile(makefile)
	require.NoError(t, readErr)
	assert.Equal(t, "# my own makefile\n", string(data))
}

func TestGenerateForceOverwrites(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, options(dir).Run())

	makefile := filepath.Join(dir, "Makefile")
	require.NoError(t, os.WriteFile(makefile, []byte("# my own makefile\n"), 0600))

	o := options(dir)
	o.Force = true
	require.NoError(t, o.Run())

	data, err := os.ReadFile(makefile)
	require.NoError(t, err)
	assert.NotEqual(t, "# my own makefile\n", string(data))
}

func TestGenerateDryRunWritesNothing(t *testing.T) {
	dir := t.TempDir()
	o := options(dir)
	o.DryRun = true

	require.NoError(t, o.Run())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGenerateReadsDescriptor(t *testing.T) {
	dir := t.TempDir()
	descriptor := `
name = "widget"
kubernetes = true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.DescriptorFileName), []byte(descriptor), 0600))

	o := cmdgen.NewOptions()
	o.OutputDir = dir
	require.NoError(t, o.Run())

	data, err := os.ReadFile(filepath.Join(dir, "k8s/base/deployment.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "widget-api")
}

func TestGenerateInfersNameFromExistingManifest(t *testing.T) {
	dir := t.TempDir()
	manifest := `{"name": "legacy-app", "version": "3.2.1"}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(manifest), 0600))

	o := cmdgen.NewOptions()
	o.OutputDir = dir

	err := o.Run()
	require.Error(t, err)

	// The pre-existing package.json is user content the platform generator
	// must not overwrite; the run stops with a conflict, not a clobber.
	var conflictErr output.WriteConflictError
	require.ErrorAs(t, err, &conflictErr)

	data, readErr := os.ReadFile(filepath.Join(dir, "package.json"))
	require.NoError(t, readErr)
	assert.Equal(t, manifest, string(data))
}
