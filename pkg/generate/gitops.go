// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package generate

import (
	"context"
	"fmt"
	"strings"

	"carvel.dev/stamp/pkg/artifact"
	"carvel.dev/stamp/pkg/config"
	"carvel.dev/stamp/pkg/names"
	"carvel.dev/stamp/pkg/orderedmap"
)

// GitOpsGenerator emits CI/CD workflows, repository governance files and
// ArgoCD application manifests.
type GitOpsGenerator struct {
	pins *Pins
}

func NewGitOpsGenerator(pins *Pins) GitOpsGenerator { return GitOpsGenerator{pins: pins} }

func (g GitOpsGenerator) Name() string { return "gitops" }

func (g GitOpsGenerator) Generate(ctx context.Context, conf config.Configuration, reg *names.Registry) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	var res Result

	buildWorkflow := g.buildWorkflow(conf, reg)

	res.Artifacts = append(res.Artifacts,
		g.ciWorkflow(conf),
		buildWorkflow,
		g.releaseWorkflow(),
		g.dependabot(conf),
		g.codeowners(reg),
		g.pullRequestTemplate(),
		g.issueTemplate("bug_report", "Bug report", "Something is not working"),
		g.issueTemplate("feature_request", "Feature request", "Suggest an idea"),
		g.branchProtection(conf),
	)

	if conf.SecurityScanning() {
		res.Artifacts = append(res.Artifacts, g.securityWorkflow())
	}

	if len(conf.Clouds()) > 0 {
		tfWorkflow := g.terraformWorkflow(conf)
		res.Artifacts = append(res.Artifacts, tfWorkflow)
		res.Secrets = append(res.Secrets, cloudSecrets(conf, tfWorkflow.Ref())...)
	}

	if conf.Kubernetes() {
		for _, envName := range EnvNames {
			res.Artifacts = append(res.Artifacts, g.argoApplication(reg, envName))
		}
	}

	return res, nil
}

func (g GitOpsGenerator) step(kvs ...interface{}) *orderedmap.Map { return orderedmap.Pairs(kvs...) }

func (g GitOpsGenerator) checkoutStep() *orderedmap.Map {
	return g.step("uses", g.pins.Action("actions/checkout"))
}

func (g GitOpsGenerator) nodeSteps(pm config.PackageManager) []interface{} {
	return []interface{}{
		g.checkoutStep(),
		g.step(
			"uses", g.pins.Action("actions/setup-node"),
			"with", orderedmap.Pairs("node-version", "20", "cache", string(pm)),
		),
		g.step("run", installCommand(pm)),
	}
}

// ciWorkflow is intentionally independent of the cloud target: test/build of
// the application must not change when only provisioning choices change.
func (g GitOpsGenerator) ciWorkflow(conf config.Configuration) artifact.Artifact {
	pm := conf.PackageManager()

	job := func(script string, needs ...interface{}) *orderedmap.Map {
		j := orderedmap.Pairs("runs-on", "ubuntu-latest")
		if len(needs) > 0 {
			j.Set("needs", needs)
		}
		j.Set("steps", append(g.nodeSteps(pm), g.step("run", runCommand(pm, script))))
		return j
	}

	return artifact.Artifact{
		Path:   ".github/workflows/ci.yml",
		Format: artifact.FormatYAML,
		Body: orderedmap.Pairs(
			"name", "ci",
			"on", orderedmap.Pairs(
				"push", orderedmap.Pairs("branches", []interface{}{"main"}),
				"pull_request", orderedmap.New(),
			),
			"jobs", orderedmap.Pairs(
				"lint", job("lint"),
				"test", job("test"),
				"build", job("build", "lint", "test"),
			),
		),
	}
}

func (g GitOpsGenerator) buildWorkflow(conf config.Configuration, reg *names.Registry) artifact.Artifact {
	image := reg.Resolve(ConceptAPI)

	return artifact.Artifact{
		Path:      ".github/workflows/build.yml",
		Format:    artifact.FormatYAML,
		DependsOn: []artifact.Ref{{Path: "Dockerfile"}},
		Body: orderedmap.Pairs(
			"name", "build",
			"on", orderedmap.Pairs(
				"push", orderedmap.Pairs("branches", []interface{}{"main"}),
			),
			"jobs", orderedmap.Pairs(
				"image", orderedmap.Pairs(
					"runs-on", "ubuntu-latest",
					"permissions", orderedmap.Pairs("contents", "read", "packages", "write"),
					"steps", []interface{}{
						g.checkoutStep(),
						g.step(
							"uses", g.pins.Action("docker/login-action"),
							"with", orderedmap.Pairs(
								"registry", "ghcr.io",
								"username", "${{ github.actor }}",
								"password", "${{ secrets.GITHUB_TOKEN }}",
							),
						),
						g.step(
							"uses", g.pins.Action("docker/build-push-action"),
							"with", orderedmap.Pairs(
								"context", ".",
								"push", true,
								"tags", fmt.Sprintf("ghcr.io/${{ github.repository_owner }}/%s:${{ github.sha }}", image),
							),
						),
					},
				),
			),
		),
	}
}

func (g GitOpsGenerator) securityWorkflow() artifact.Artifact {
	return artifact.Artifact{
		Path:   ".github/workflows/security.yml",
		Format: artifact.FormatYAML,
		Body: orderedmap.Pairs(
			"name", "security",
			"on", orderedmap.Pairs(
				"push", orderedmap.Pairs("branches", []interface{}{"main"}),
				"pull_request", orderedmap.New(),
				"schedule", []interface{}{orderedmap.Pairs("cron", "0 4 * * 1")},
			),
			"jobs", orderedmap.Pairs(
				"codeql", orderedmap.Pairs(
					"runs-on", "ubuntu-latest",
					"permissions", orderedmap.Pairs("security-events", "write"),
					"steps", []interface{}{
						g.checkoutStep(),
						g.step(
							"uses", g.pins.Action("github/codeql-action/init"),
							"with", orderedmap.Pairs("languages", "javascript-typescript"),
						),
						g.step("uses", g.pins.Action("github/codeql-action/analyze")),
					},
				),
				"dependency-review", orderedmap.Pairs(
					"if", "github.event_name == 'pull_request'",
					"runs-on", "ubuntu-latest",
					"steps", []interface{}{
						g.checkoutStep(),
						g.step("uses", g.pins.Action("actions/dependency-review-action")),
					},
				),
				"scan", orderedmap.Pairs(
					"runs-on", "ubuntu-latest",
					"steps", []interface{}{
						g.checkoutStep(),
						g.step(
							"uses", g.pins.Action("aquasecurity/trivy-action"),
							"with", orderedmap.Pairs("scan-type", "fs", "severity", "CRITICAL,HIGH"),
						),
					},
				),
			),
		),
	}
}

func (g GitOpsGenerator) releaseWorkflow() artifact.Artifact {
	return artifact.Artifact{
		Path:   ".github/workflows/release.yml",
		Format: artifact.FormatYAML,
		Body: orderedmap.Pairs(
			"name", "release",
			"on", orderedmap.Pairs(
				"push", orderedmap.Pairs("branches", []interface{}{"main"}),
			),
			"jobs", orderedmap.Pairs(
				"release-please", orderedmap.Pairs(
					"runs-on", "ubuntu-latest",
					"permissions", orderedmap.Pairs("contents", "write", "pull-requests", "write"),
					"steps", []interface{}{
						g.step(
							"uses", g.pins.Action("googleapis/release-please-action"),
							"with", orderedmap.Pairs("release-type", "node"),
						),
					},
				),
			),
		),
	}
}

func (g GitOpsGenerator) terraformWorkflow(conf config.Configuration) artifact.Artifact {
	steps := []interface{}{
		g.checkoutStep(),
		g.step("uses", g.pins.Action("hashicorp/setup-terraform")),
	}
	for _, cloud := range conf.Clouds() {
		steps = append(steps, g.cloudAuthStep(cloud))
	}
	steps = append(steps, g.step(
		"run", "terraform init -backend=false && terraform validate",
		"working-directory", "infrastructure/terraform/environments/development",
	))

	var deps []artifact.Ref
	for _, envName := range EnvNames {
		deps = append(deps, artifact.Ref{Path: fmt.Sprintf("infrastructure/terraform/environments/%s/main.tf", envName)})
	}

	return artifact.Artifact{
		Path:      ".github/workflows/terraform.yml",
		Format:    artifact.FormatYAML,
		DependsOn: deps,
		Body: orderedmap.Pairs(
			"name", "terraform",
			"on", orderedmap.Pairs(
				"pull_request", orderedmap.Pairs("paths", []interface{}{"infrastructure/terraform/**"}),
			),
			"permissions", orderedmap.Pairs("id-token", "write", "contents", "read"),
			"jobs", orderedmap.Pairs(
				"validate", orderedmap.Pairs(
					"runs-on", "ubuntu-latest",
					"steps", steps,
				),
			),
		),
	}
}

func (g GitOpsGenerator) cloudAuthStep(cloud config.CloudTarget) *orderedmap.Map {
	switch cloud {
	case config.CloudAWS:
		return g.step(
			"uses", g.pins.Action("aws-actions/configure-aws-credentials"),
			"with", orderedmap.Pairs(
				"role-to-assume", "${{ secrets.AWS_ROLE_ARN }}",
				"aws-region", "us-east-1",
			),
		)
	case config.CloudGCP:
		return g.step(
			"uses", g.pins.Action("google-github-actions/auth"),
			"with", orderedmap.Pairs(
				"workload_identity_provider", "${{ secrets.GCP_WORKLOAD_IDENTITY_PROVIDER }}",
				"service_account", "${{ secrets.GCP_SERVICE_ACCOUNT }}",
			),
		)
	default:
		return g.step(
			"uses", g.pins.Action("azure/login"),
			"with", orderedmap.Pairs(
				"client-id", "${{ secrets.AZURE_CLIENT_ID }}",
				"tenant-id", "${{ secrets.AZURE_TENANT_ID }}",
				"subscription-id", "${{ secrets.AZURE_SUBSCRIPTION_ID }}",
			),
		)
	}
}

func cloudSecrets(conf config.Configuration, consumer artifact.Ref) []artifact.SecretReference {
	var secrets []artifact.SecretReference
	add := func(logicalNames ...string) {
		for _, logicalName := range logicalNames {
			secrets = append(secrets, artifact.SecretReference{
				LogicalName: logicalName,
				Consumers:   []artifact.Ref{consumer},
			})
		}
	}
	for _, cloud := range conf.Clouds() {
		switch cloud {
		case config.CloudAWS:
			add("AWS_ROLE_ARN")
		case config.CloudGCP:
			add("GCP_WORKLOAD_IDENTITY_PROVIDER", "GCP_SERVICE_ACCOUNT")
		case config.CloudAzure:
			add("AZURE_CLIENT_ID", "AZURE_TENANT_ID", "AZURE_SUBSCRIPTION_ID")
		}
	}
	return secrets
}

func (g GitOpsGenerator) dependabot(conf config.Configuration) artifact.Artifact {
	update := func(ecosystem string) *orderedmap.Map {
		return orderedmap.Pairs(
			"package-ecosystem", ecosystem,
			"directory", "/",
			"schedule", orderedmap.Pairs("interval", "weekly"),
		)
	}

	updates := []interface{}{update("npm"), update("github-actions"), update("docker")}
	if len(conf.Clouds()) > 0 {
		updates = append(updates, update("terraform"))
	}

	return artifact.Artifact{
		Path:   ".github/dependabot.yml",
		Format: artifact.FormatYAML,
		Body: orderedmap.Pairs(
			"version", 2,
			"updates", updates,
		),
	}
}

func (g GitOpsGenerator) codeowners(reg *names.Registry) artifact.Artifact {
	team := reg.Resolve(ConceptMaintainers)
	return artifact.Artifact{
		Path:   ".github/CODEOWNERS",
		Format: artifact.FormatText,
		Body: strings.Join([]string{
			"* @" + team,
			"/infrastructure/ @" + team,
			"/.github/ @" + team,
		}, "\n"),
	}
}

func (g GitOpsGenerator) pullRequestTemplate() artifact.Artifact {
	return artifact.Artifact{
		Path:   ".github/PULL_REQUEST_TEMPLATE.md",
		Format: artifact.FormatMarkdown,
		Body: strings.Join([]string{
			"## What",
			"",
			"## Why",
			"",
			"## How was this tested?",
		}, "\n"),
	}
}

func (g GitOpsGenerator) issueTemplate(fileName, title, about string) artifact.Artifact {
	return artifact.Artifact{
		Path:   fmt.Sprintf(".github/ISSUE_TEMPLATE/%s.md", fileName),
		Format: artifact.FormatMarkdown,
		Body: strings.Join([]string{
			"---",
			"name: " + title,
			"about: " + about,
			"---",
			"",
			"## Description",
		}, "\n"),
	}
}

// branchProtection emits a repository ruleset whose required checks are the
// ci workflow's job names; the dependency makes the consistency pass fail if
// those jobs ever move.
func (g GitOpsGenerator) branchProtection(conf config.Configuration) artifact.Artifact {
	checks := []interface{}{
		orderedmap.Pairs("context", "lint"),
		orderedmap.Pairs("context", "test"),
		orderedmap.Pairs("context", "build"),
	}

	return artifact.Artifact{
		Path:      ".github/branch-protection.json",
		Format:    artifact.FormatJSON,
		DependsOn: []artifact.Ref{{Path: ".github/workflows/ci.yml"}},
		Body: orderedmap.Pairs(
			"name", "main",
			"target", "branch",
			"enforcement", "active",
			"conditions", orderedmap.Pairs(
				"ref_name", orderedmap.Pairs(
					"include", []interface{}{"~DEFAULT_BRANCH"},
					"exclude", []interface{}{},
				),
			),
			"rules", []interface{}{
				orderedmap.Pairs("type", "pull_request"),
				orderedmap.Pairs(
					"type", "required_status_checks",
					"parameters", orderedmap.Pairs("required_status_checks", checks),
				),
			},
		),
	}
}

func (g GitOpsGenerator) argoApplication(reg *names.Registry, envName string) artifact.Artifact {
	project := reg.Resolve(names.ConceptProject)
	namespace := reg.Resolve(envName)
	overlayPath := fmt.Sprintf("k8s/overlays/%s", envName)

	return artifact.Artifact{
		Path:      fmt.Sprintf("argocd/%s-application.yaml", envName),
		Format:    artifact.FormatYAML,
		DependsOn: []artifact.Ref{{Path: overlayPath + "/kustomization.yaml"}},
		Body: orderedmap.Pairs(
			"apiVersion", "argoproj.io/v1alpha1",
			"kind", "Application",
			"metadata", orderedmap.Pairs(
				// The application shares the namespace's env-scoped name.
				"name", namespace,
				"namespace", "argocd",
			),
			"spec", orderedmap.Pairs(
				"project", "default",
				"source", orderedmap.Pairs(
					"repoURL", fmt.Sprintf("https://github.com/OWNER/%s", project),
					"targetRevision", "main",
					"path", overlayPath,
				),
				"destination", orderedmap.Pairs(
					"server", "https://kubernetes.default.svc",
					"namespace", namespace,
				),
				"syncPolicy", orderedmap.Pairs(
					"automated", orderedmap.Pairs("prune", true, "selfHeal", true),
					"syncOptions", []interface{}{"CreateNamespace=true"},
				),
			),
		),
	}
}
