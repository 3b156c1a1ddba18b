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

// PlatformGenerator emits the base repository scaffolding: package manifest,
// lint/format/TS config, Dockerfile, compose file, Makefile and env
// template.
type PlatformGenerator struct{}

func NewPlatformGenerator() PlatformGenerator { return PlatformGenerator{} }

func (g PlatformGenerator) Name() string { return "platform" }

func (g PlatformGenerator) Generate(ctx context.Context, conf config.Configuration, reg *names.Registry) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	var res Result

	// The monorepo generator owns the workspace-root package manifest.
	if !conf.Monorepo() {
		res.Artifacts = append(res.Artifacts, g.packageManifest(conf, reg))
	}
	if conf.UseTypeScript() && !conf.Monorepo() {
		res.Artifacts = append(res.Artifacts, g.tsConfig(), g.eslintConfig(), g.prettierConfig())
	}

	dockerfile := g.dockerfile(conf)
	compose := g.composeFile(conf, reg)
	envTemplate := g.envTemplate()

	res.Artifacts = append(res.Artifacts,
		dockerfile,
		artifact.Artifact{
			Path:   ".dockerignore",
			Format: artifact.FormatText,
			Body:   "node_modules\ndist\n.git\n.env\n*.md\ninfrastructure\nk8s\nhelm\n",
		},
		compose,
		g.makefile(conf, reg),
		envTemplate,
		artifact.Artifact{
			Path:   ".gitignore",
			Format: artifact.FormatText,
			Body:   "node_modules/\ndist/\ncoverage/\n.env\n.env.*.local\n*.tfstate\n*.tfstate.backup\n.terraform/\n",
		},
		g.readme(conf, reg),
	)

	res.Secrets = []artifact.SecretReference{
		{LogicalName: "DATABASE_URL", Consumers: []artifact.Ref{compose.Ref(), envTemplate.Ref()}},
		{LogicalName: "JWT_SECRET", Consumers: []artifact.Ref{compose.Ref(), envTemplate.Ref()}},
		{LogicalName: "REDIS_URL", Consumers: []artifact.Ref{compose.Ref(), envTemplate.Ref()}},
		{LogicalName: "POSTGRES_PASSWORD", Consumers: []artifact.Ref{compose.Ref()}},
	}
	return res, nil
}

func (g PlatformGenerator) packageManifest(conf config.Configuration, reg *names.Registry) artifact.Artifact {
	scripts := orderedmap.Pairs(
		"dev", "node --watch src/index.js",
		"build", "node scripts/build.js",
		"test", "node --test",
		"lint", "eslint .",
		"format", "prettier --write .",
	)
	if conf.UseTypeScript() {
		scripts = orderedmap.Pairs(
			"dev", "tsx watch src/index.ts",
			"build", "tsc -p tsconfig.json",
			"test", "node --test",
			"lint", "eslint .",
			"format", "prettier --write .",
			"typecheck", "tsc --noEmit",
		)
	}

	return artifact.Artifact{
		Path:   "package.json",
		Format: artifact.FormatJSON,
		Body: orderedmap.Pairs(
			"name", reg.Resolve(names.ConceptProject),
			"version", "0.1.0",
			"private", true,
			"scripts", scripts,
			"engines", orderedmap.Pairs("node", ">=20"),
		),
	}
}

func (g PlatformGenerator) tsConfig() artifact.Artifact {
	return artifact.Artifact{
		Path:   "tsconfig.json",
		Format: artifact.FormatJSON,
		Body: orderedmap.Pairs(
			"compilerOptions", orderedmap.Pairs(
				"target", "ES2022",
				"module", "NodeNext",
				"moduleResolution", "NodeNext",
				"strict", true,
				"esModuleInterop", true,
				"skipLibCheck", true,
				"outDir", "dist",
				"rootDir", "src",
			),
			"include", []interface{}{"src"},
			"exclude", []interface{}{"node_modules", "dist"},
		),
	}
}

func (g PlatformGenerator) eslintConfig() artifact.Artifact {
	return artifact.Artifact{
		Path:   ".eslintrc.json",
		Format: artifact.FormatJSON,
		Body: orderedmap.Pairs(
			"root", true,
			"parser", "@typescript-eslint/parser",
			"plugins", []interface{}{"@typescript-eslint"},
			"extends", []interface{}{
				"eslint:recommended",
				"plugin:@typescript-eslint/recommended",
				"prettier",
			},
			"env", orderedmap.Pairs("node", true, "es2022", true),
		),
	}
}

func (g PlatformGenerator) prettierConfig() artifact.Artifact {
	return artifact.Artifact{
		Path:   ".prettierrc.json",
		Format: artifact.FormatJSON,
		Body: orderedmap.Pairs(
			"semi", true,
			"singleQuote", true,
			"trailingComma", "all",
			"printWidth", 100,
		),
	}
}

func installCommand(pm config.PackageManager) string {
	switch pm {
	case config.PackageManagerYarn:
		return "yarn install --frozen-lockfile"
	case config.PackageManagerPNPM:
		return "corepack enable && pnpm install --frozen-lockfile"
	default:
		return "npm ci"
	}
}

// runCommand invokes a package.json script through the selected package
// manager, so workflows, Makefile targets and the Dockerfile never mix
// managers with the install step.
func runCommand(pm config.PackageManager, script string) string {
	switch pm {
	case config.PackageManagerYarn:
		return "yarn " + script
	case config.PackageManagerPNPM:
		return "pnpm " + script
	default:
		if script == "test" {
			return "npm test"
		}
		return "npm run " + script
	}
}

func lockFile(pm config.PackageManager) string {
	switch pm {
	case config.PackageManagerYarn:
		return "yarn.lock"
	case config.PackageManagerPNPM:
		return "pnpm-lock.yaml"
	default:
		return "package-lock.json"
	}
}

func (g PlatformGenerator) dockerfile(conf config.Configuration) artifact.Artifact {
	var b strings.Builder
	stage := func(lines ...string) {
		for _, line := range lines {
			b.WriteString(line + "\n")
		}
		b.WriteString("\n")
	}

	stage(
		"FROM node:20-alpine AS build",
		"WORKDIR /app",
		fmt.Sprintf("COPY package.json %s ./", lockFile(conf.PackageManager())),
		"RUN "+installCommand(conf.PackageManager()),
		"COPY . .",
		"RUN "+runCommand(conf.PackageManager(), "build"),
	)
	stage(
		"FROM gcr.io/distroless/nodejs20-debian12 AS runtime",
		"WORKDIR /app",
		"COPY --from=build /app/dist ./dist",
		"COPY --from=build /app/node_modules ./node_modules",
		"USER nonroot",
		"EXPOSE 3000",
		`CMD ["dist/index.js"]`,
	)

	return artifact.Artifact{
		Path:   "Dockerfile",
		Format: artifact.FormatDockerfile,
		Body:   strings.TrimSuffix(b.String(), "\n"),
	}
}

func (g PlatformGenerator) composeFile(conf config.Configuration, reg *names.Registry) artifact.Artifact {
	// Secret values are never embedded; the compose file references them by
	// name from the host environment.
	return artifact.Artifact{
		Path:      "docker-compose.yml",
		Format:    artifact.FormatYAML,
		DependsOn: []artifact.Ref{{Path: "Dockerfile"}},
		Body: orderedmap.Pairs(
			"services", orderedmap.Pairs(
				"app", orderedmap.Pairs(
					"build", ".",
					"image", reg.Resolve(ConceptAPI)+":dev",
					"ports", []interface{}{"3000:3000"},
					"environment", orderedmap.Pairs(
						"DATABASE_URL", "${DATABASE_URL}",
						"JWT_SECRET", "${JWT_SECRET}",
						"REDIS_URL", "${REDIS_URL}",
					),
					"depends_on", []interface{}{"db", "cache"},
				),
				"db", orderedmap.Pairs(
					"image", "postgres:16-alpine",
					"environment", orderedmap.Pairs(
						"POSTGRES_DB", reg.Resolve(names.ConceptProject),
						"POSTGRES_PASSWORD", "${POSTGRES_PASSWORD}",
					),
					"volumes", []interface{}{"db-data:/var/lib/postgresql/data"},
				),
				"cache", orderedmap.Pairs(
					"image", "redis:7-alpine",
				),
			),
			"volumes", orderedmap.Pairs("db-data", orderedmap.New()),
		),
	}
}

func (g PlatformGenerator) makefile(conf config.Configuration, reg *names.Registry) artifact.Artifact {
	image := reg.Resolve(ConceptAPI)

	var b strings.Builder
	target := func(name, deps string, cmds ...string) {
		b.WriteString(name + ":" + deps + "\n")
		for _, cmd := range cmds {
			b.WriteString("\t" + cmd + "\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(".PHONY: install lint test build docker-build up down\n\n")
	pm := conf.PackageManager()
	target("install", "", installCommand(pm))
	target("lint", "", runCommand(pm, "lint"))
	target("test", "", runCommand(pm, "test"))
	target("build", "", runCommand(pm, "build"))
	target("docker-build", "", fmt.Sprintf("docker build -t %s:dev .", image))
	target("up", "", "docker compose up -d")
	target("down", "", "docker compose down")

	return artifact.Artifact{
		Path:      "Makefile",
		Format:    artifact.FormatText,
		Body:      strings.TrimSuffix(b.String(), "\n"),
		DependsOn: []artifact.Ref{{Path: "Dockerfile"}, {Path: "docker-compose.yml"}},
	}
}

func (g PlatformGenerator) envTemplate() artifact.Artifact {
	return artifact.Artifact{
		Path:   ".env.example",
		Format: artifact.FormatText,
		Body: strings.Join([]string{
			"# Secret names consumed by the application. Values live in your",
			"# secret manager; never commit them here.",
			"DATABASE_URL=",
			"JWT_SECRET=",
			"REDIS_URL=",
		}, "\n"),
	}
}

func (g PlatformGenerator) readme(conf config.Configuration, reg *names.Registry) artifact.Artifact {
	project := reg.Resolve(names.ConceptProject)

	var b strings.Builder
	b.WriteString("# " + project + "\n\n")
	b.WriteString("Scaffolded deployment configuration for " + project + ".\n\n")
	b.WriteString("## Getting started\n\n")
	b.WriteString("```\nmake install\nmake up\n```\n\n")
	b.WriteString("## Layout\n\n")
	b.WriteString("- `.github/workflows/` CI/CD pipelines\n")
	if len(conf.Clouds()) > 0 {
		b.WriteString("- `infrastructure/terraform/` cloud modules and environments\n")
	}
	if conf.Kubernetes() {
		b.WriteString("- `k8s/` Kubernetes base and per-environment overlays\n")
	}
	if conf.Helm() {
		b.WriteString("- `helm/charts/" + project + "/` Helm chart\n")
	}

	return artifact.Artifact{
		Path:   "README.md",
		Format: artifact.FormatMarkdown,
		Body:   b.String(),
	}
}
