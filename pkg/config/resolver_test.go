// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carvel.dev/stamp/pkg/config"
)

func TestResolveDefaults(t *testing.T) {
	conf, err := config.Resolve(config.Raw{ProjectName: "acme"})
	require.NoError(t, err)

	assert.Equal(t, "acme", conf.ProjectName())
	assert.Equal(t, config.CloudNone, conf.CloudTarget())
	assert.Equal(t, config.PackageManagerNPM, conf.PackageManager())
	assert.Empty(t, conf.Clouds())
}

func TestResolveCollectsEveryViolation(t *testing.T) {
	_, err := config.Resolve(config.Raw{
		CloudTarget:    "digitalocean",
		PackageManager: "bower",
		Helm:           true,
		ServiceMesh:    true,
	})
	require.Error(t, err)

	var errs config.ValidationErrors
	require.ErrorAs(t, err, &errs)
	require.Len(t, errs, 5)

	fields := make([]string, len(errs))
	for i, e := range errs {
		fields[i] = e.Field
	}
	assert.Equal(t, []string{"name", "cloud", "package-manager", "helm", "service-mesh"}, fields)
}

func TestKubernetesDependentOptions(t *testing.T) {
	for _, raw := range []config.Raw{
		{ProjectName: "acme", Helm: true},
		{ProjectName: "acme", ServiceMesh: true},
		{ProjectName: "acme", Observability: true},
	} {
		_, err := config.Resolve(raw)
		assert.Error(t, err)

		raw.Kubernetes = true
		_, err = config.Resolve(raw)
		assert.NoError(t, err)
	}
}

func TestCloudAllExpandsToEveryProvider(t *testing.T) {
	conf, err := config.Resolve(config.Raw{ProjectName: "acme", CloudTarget: "all"})
	require.NoError(t, err)

	assert.Equal(t, []config.CloudTarget{config.CloudAWS, config.CloudGCP, config.CloudAzure}, conf.Clouds())
}

func TestSingleCloud(t *testing.T) {
	conf, err := config.Resolve(config.Raw{ProjectName: "acme", CloudTarget: "gcp"})
	require.NoError(t, err)
	assert.Equal(t, []config.CloudTarget{config.CloudGCP}, conf.Clouds())
}

func TestProjectNameIsTrimmed(t *testing.T) {
	conf, err := config.Resolve(config.Raw{ProjectName: "  acme  "})
	require.NoError(t, err)
	assert.Equal(t, "acme", conf.ProjectName())

	_, err = config.Resolve(config.Raw{ProjectName: "   "})
	require.Error(t, err)
}
