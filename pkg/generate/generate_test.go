// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package generate_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carvel.dev/stamp/pkg/check"
	"carvel.dev/stamp/pkg/config"
	"carvel.dev/stamp/pkg/generate"
	"carvel.dev/stamp/pkg/names"
	"carvel.dev/stamp/pkg/render"
)

func resolve(t *testing.T, raw config.Raw) config.Configuration {
	t.Helper()
	conf, err := config.Resolve(raw)
	require.NoError(t, err)
	return conf
}

func registry(t *testing.T, conf config.Configuration) *names.Registry {
	t.Helper()
	reg := names.NewRegistry(conf.ProjectName())
	require.NoError(t, generate.RegisterConcepts(conf, reg))
	reg.Freeze()
	return reg
}

func run(t *testing.T, conf config.Configuration) generate.Result {
	t.Helper()
	reg := registry(t, conf)
	res, err := generate.Run(context.Background(), conf, reg, generate.All(conf, generate.DefaultPins()))
	require.NoError(t, err)
	return res
}

// rendered returns path -> rendered text for every artifact in the result.
func rendered(t *testing.T, res generate.Result) map[string]string {
	t.Helper()
	out := map[string]string{}
	for _, a := range res.Artifacts {
		data, err := render.Render(a)
		require.NoError(t, err, a.Path)
		require.False(t, len(out[a.Path]) > 0, "duplicate path %s", a.Path)
		out[a.Path] = string(data)
	}
	return out
}

func everything(t *testing.T) config.Configuration {
	return resolve(t, config.Raw{
		ProjectName:      "Acme Shop",
		UseTypeScript:    true,
		Monorepo:         true,
		Kubernetes:       true,
		SecurityScanning: true,
		Observability:    true,
		Helm:             true,
		ServiceMesh:      true,
		CloudTarget:      "all",
		PackageManager:   "pnpm",
	})
}

func TestFullConfigurationPassesConsistencyCheck(t *testing.T) {
	res := run(t, everything(t))

	staged, err := render.All(res.Artifacts)
	require.NoError(t, err)
	require.NoError(t, check.All(staged, res.Secrets))
}

func TestEveryStructuredArtifactRoundTrips(t *testing.T) {
	res := run(t, everything(t))

	for _, a := range res.Artifacts {
		if !a.Format.Structured() {
			continue
		}
		data, err := render.Render(a)
		require.NoError(t, err, a.Path)
		assert.NoError(t, render.Roundtrip(a, data), a.Path)
	}
}

func TestEverySecretHasConsumers(t *testing.T) {
	res := run(t, everything(t))

	byPath := map[string]bool{}
	for _, a := range res.Artifacts {
		byPath[a.Path] = true
	}

	require.NotEmpty(t, res.Secrets)
	for _, secret := range res.Secrets {
		require.NotEmpty(t, secret.Consumers, secret.LogicalName)
		for _, ref := range secret.Consumers {
			assert.True(t, byPath[ref.Path], "secret %s consumer %s missing", secret.LogicalName, ref.Path)
		}
	}
}

func TestSecretValuesAreNeverEmitted(t *testing.T) {
	res := run(t, everything(t))

	// Secret names appear as references (${VAR}, secrets.VAR, secretKeyRef)
	// but never with an assigned literal value.
	files := rendered(t, res)
	for path, text := range files {
		assert.NotContains(t, text, "DATABASE_URL=postgres://", path)
		assert.NotContains(t, text, "JWT_SECRET=ey", path)
		assert.NotContains(t, text, "password123", path)
	}

	compose := files["docker-compose.yml"]
	assert.Contains(t, compose, `JWT_SECRET: "${JWT_SECRET}"`)

	env := files[".env.example"]
	assert.Contains(t, env, "JWT_SECRET=\n")
}

func TestCIWorkflowIsIdenticalAcrossClouds(t *testing.T) {
	base := config.Raw{ProjectName: "acme", Kubernetes: true}

	variants := map[string]string{}
	for _, cloud := range []string{"aws", "gcp", "azure", "none"} {
		raw := base
		raw.CloudTarget = cloud
		res := run(t, resolve(t, raw))
		variants[cloud] = rendered(t, res)[".github/workflows/ci.yml"]
		require.NotEmpty(t, variants[cloud])
	}

	assert.Equal(t, variants["none"], variants["aws"])
	assert.Equal(t, variants["aws"], variants["gcp"])
	assert.Equal(t, variants["gcp"], variants["azure"])
}

func TestRunCommandsFollowPackageManager(t *testing.T) {
	files := rendered(t, run(t, resolve(t, config.Raw{ProjectName: "acme", PackageManager: "pnpm"})))

	ci := files[".github/workflows/ci.yml"]
	assert.Contains(t, ci, "pnpm lint")
	assert.Contains(t, ci, "pnpm test")
	assert.Contains(t, ci, "pnpm build")
	assert.NotContains(t, ci, "npm run")

	makefile := files["Makefile"]
	assert.Contains(t, makefile, "pnpm build")
	assert.NotContains(t, makefile, "npm run")

	assert.Contains(t, files["Dockerfile"], "RUN pnpm build")

	yarn := rendered(t, run(t, resolve(t, config.Raw{ProjectName: "acme", PackageManager: "yarn"})))
	assert.Contains(t, yarn[".github/workflows/ci.yml"], "yarn lint")
	assert.Contains(t, yarn["Makefile"], "yarn test")
}

func TestSecurityScanningToggle(t *testing.T) {
	without := run(t, resolve(t, config.Raw{ProjectName: "acme"}))
	assert.NotContains(t, rendered(t, without), ".github/workflows/security.yml")

	with := run(t, resolve(t, config.Raw{ProjectName: "acme", SecurityScanning: true}))
	security := rendered(t, with)[".github/workflows/security.yml"]
	require.NotEmpty(t, security)
	assert.Contains(t, security, "codeql")
	assert.Contains(t, security, "dependency-review")
	assert.Contains(t, security, "trivy")
}

func TestEnvironmentRootReferencesNetworkModuleOutput(t *testing.T) {
	conf := resolve(t, config.Raw{ProjectName: "acme", CloudTarget: "aws"})
	reg := registry(t, conf)
	res, err := generate.Run(context.Background(), conf, reg, generate.All(conf, generate.DefaultPins()))
	require.NoError(t, err)

	files := rendered(t, generate.Result{Artifacts: res.Artifacts})

	outputs := files["infrastructure/terraform/modules/aws/network/outputs.tf"]
	require.Contains(t, outputs, `output "private_subnet_ids"`)

	for _, envName := range generate.EnvNames {
		main := files[fmt.Sprintf("infrastructure/terraform/environments/%s/main.tf", envName)]
		require.NotEmpty(t, main)
		assert.Contains(t, main, "subnet_ids = "+generate.SubnetIDsReference(config.CloudAWS, reg))
	}
}

func TestProjectRenamePropagatesEverywhere(t *testing.T) {
	conf := resolve(t, config.Raw{ProjectName: "zenith", Kubernetes: true, CloudTarget: "aws"})
	files := rendered(t, run(t, conf))

	deployment := files["k8s/base/deployment.yaml"]
	assert.Contains(t, deployment, "zenith-api")
	assert.Contains(t, deployment, "zenith-secrets")
	assert.Contains(t, deployment, "zenith-service-account")

	network := files["infrastructure/terraform/modules/aws/network/main.tf"]
	assert.Contains(t, network, "zenith-network")

	for _, text := range files {
		assert.NotContains(t, text, "acme")
	}
}

func TestMonorepoPackagesReferenceSharedConfigByName(t *testing.T) {
	conf := resolve(t, config.Raw{
		ProjectName:    "acme",
		Monorepo:       true,
		UseTypeScript:  true,
		PackageManager: "pnpm",
	})
	files := rendered(t, run(t, conf))

	require.Contains(t, files, "pnpm-workspace.yaml")

	apiManifest := files["packages/acme-api/package.json"]
	require.NotEmpty(t, apiManifest)
	assert.Contains(t, apiManifest, `"acme-shared-config": "workspace:*"`)

	apiTsconfig := files["packages/acme-api/tsconfig.json"]
	assert.Contains(t, apiTsconfig, "../acme-shared-config/tsconfig.base.json")

	require.Contains(t, files, "packages/acme-shared-config/tsconfig.base.json")
}

func TestMonorepoAndPlatformDoNotCollideOnRootManifest(t *testing.T) {
	conf := resolve(t, config.Raw{ProjectName: "acme", Monorepo: true})
	res := run(t, conf)

	count := 0
	for _, a := range res.Artifacts {
		if a.Path == "package.json" {
			count++
			assert.Equal(t, "monorepo", a.Generator)
		}
	}
	assert.Equal(t, 1, count)
}

func TestGeneratorFamiliesFollowConfiguration(t *testing.T) {
	pins := generate.DefaultPins()

	minimal := generate.All(resolve(t, config.Raw{ProjectName: "acme"}), pins)
	assert.Len(t, minimal, 2)

	withK8s := generate.All(resolve(t, config.Raw{ProjectName: "acme", Kubernetes: true}), pins)
	assert.Len(t, withK8s, 3)

	withAll := generate.All(resolve(t, config.Raw{ProjectName: "acme", Kubernetes: true, Monorepo: true}), pins)
	assert.Len(t, withAll, 4)
}

func TestRunIsDeterministic(t *testing.T) {
	conf := everything(t)

	first := rendered(t, run(t, conf))
	second := rendered(t, run(t, conf))

	assert.Equal(t, first, second)
}

type failingGenerator struct{}

func (failingGenerator) Name() string { return "boom" }
func (failingGenerator) Generate(context.Context, config.Configuration, *names.Registry) (generate.Result, error) {
	return generate.Result{}, fmt.Errorf("exploded")
}

func TestRunDiscardsEverythingOnGeneratorFailure(t *testing.T) {
	conf := resolve(t, config.Raw{ProjectName: "acme"})
	reg := registry(t, conf)

	gens := append(generate.All(conf, generate.DefaultPins()), failingGenerator{})
	res, err := generate.Run(context.Background(), conf, reg, gens)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Generator 'boom'")
	assert.Empty(t, res.Artifacts)
}

func TestRunStampsGeneratorNames(t *testing.T) {
	res := run(t, resolve(t, config.Raw{ProjectName: "acme"}))

	for _, a := range res.Artifacts {
		assert.NotEmpty(t, a.Generator, a.Path)
	}
}

func TestArgoApplicationsTargetEnvNamespaces(t *testing.T) {
	conf := resolve(t, config.Raw{ProjectName: "acme", Kubernetes: true})
	files := rendered(t, run(t, conf))

	app := files["argocd/production-application.yaml"]
	require.NotEmpty(t, app)
	assert.Contains(t, app, "name: acme-production")
	assert.Contains(t, app, "namespace: acme-production")
	assert.Contains(t, app, "path: k8s/overlays/production")
}

func TestDependabotCoversTerraformOnlyWithClouds(t *testing.T) {
	without := rendered(t, run(t, resolve(t, config.Raw{ProjectName: "acme"})))
	assert.NotContains(t, without[".github/dependabot.yml"], "terraform")

	with := rendered(t, run(t, resolve(t, config.Raw{ProjectName: "acme", CloudTarget: "aws"})))
	assert.Contains(t, with[".github/dependabot.yml"], "terraform")
}
