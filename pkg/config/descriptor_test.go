// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carvel.dev/stamp/pkg/config"
)

func TestLoadDescriptorMissingFileIsEmpty(t *testing.T) {
	desc, err := config.LoadDescriptor(filepath.Join(t.TempDir(), "stamp.toml"))
	require.NoError(t, err)
	assert.Equal(t, config.Descriptor{}, desc)
}

func TestLoadDescriptorParsesTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stamp.toml")
	contents := `
name = "acme"
kubernetes = true
helm = false
cloud_target = "aws"
package_manager = "pnpm"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))

	desc, err := config.LoadDescriptor(path)
	require.NoError(t, err)

	assert.Equal(t, "acme", desc.Name)
	require.NotNil(t, desc.Kubernetes)
	assert.True(t, *desc.Kubernetes)
	require.NotNil(t, desc.Helm)
	assert.False(t, *desc.Helm)
	assert.Nil(t, desc.Monorepo)
	assert.Equal(t, "aws", desc.CloudTarget)
	assert.Equal(t, "pnpm", desc.PackageManager)
}

func TestLoadDescriptorRejectsMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stamp.toml")
	require.NoError(t, os.WriteFile(path, []byte("name = [unclosed"), 0600))

	_, err := config.LoadDescriptor(path)
	require.Error(t, err)
}

func TestMergeIntoOnlyFillsUnsetFields(t *testing.T) {
	k8s := true
	desc := config.Descriptor{
		Name:        "from-descriptor",
		Kubernetes:  &k8s,
		CloudTarget: "gcp",
	}

	raw := config.Raw{ProjectName: "from-flags", CloudTarget: "aws"}
	desc.MergeInto(&raw)

	assert.Equal(t, "from-flags", raw.ProjectName)
	assert.Equal(t, "aws", raw.CloudTarget)
	assert.True(t, raw.Kubernetes)
}

func TestInferProjectNameReadsOnlyTheNameField(t *testing.T) {
	dir := t.TempDir()
	manifest := `{"name": "acme-shop", "version": "2.0.0", "dependencies": {"express": "^4.0.0"}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(manifest), 0600))

	name, found := config.InferProjectName(dir)
	require.True(t, found)
	assert.Equal(t, "acme-shop", name)
}

func TestInferProjectNameMissingOrInvalidManifest(t *testing.T) {
	_, found := config.InferProjectName(t.TempDir())
	assert.False(t, found)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte("not json"), 0600))
	_, found = config.InferProjectName(dir)
	assert.False(t, found)
}
