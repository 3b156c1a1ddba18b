// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package generate

import (
	"context"
	"fmt"

	"carvel.dev/stamp/pkg/artifact"
	"carvel.dev/stamp/pkg/config"
	"carvel.dev/stamp/pkg/names"
	"carvel.dev/stamp/pkg/orderedmap"
)

// MonorepoGenerator lays out an N-package workspace: structurally similar,
// independently versioned package manifests that all reference the shared
// config package by its registry-resolved name, so a rename propagates
// everywhere.
type MonorepoGenerator struct{}

func NewMonorepoGenerator() MonorepoGenerator { return MonorepoGenerator{} }

func (g MonorepoGenerator) Name() string { return "monorepo" }

func (g MonorepoGenerator) Generate(ctx context.Context, conf config.Configuration, reg *names.Registry) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	sharedName := reg.Resolve(ConceptSharedConfig)
	packageNames := []string{reg.Resolve(ConceptAPI), reg.Resolve(ConceptWeb), sharedName}

	var res Result
	res.Artifacts = append(res.Artifacts, g.workspaceRoot(conf, reg, packageNames)...)

	sharedDir := "packages/" + sharedName
	res.Artifacts = append(res.Artifacts, g.sharedConfigPackage(conf, reg, sharedDir)...)

	for _, pkgName := range packageNames {
		if pkgName == sharedName {
			continue
		}
		res.Artifacts = append(res.Artifacts, g.workspacePackage(conf, pkgName, sharedName)...)
	}

	res.Artifacts = append(res.Artifacts, g.turboConfig())
	return res, nil
}

func (g MonorepoGenerator) workspaceRoot(conf config.Configuration, reg *names.Registry, packageNames []string) []artifact.Artifact {
	root := orderedmap.Pairs(
		"name", reg.Resolve(names.ConceptProject),
		"version", "0.1.0",
		"private", true,
	)

	var arts []artifact.Artifact

	if conf.PackageManager() == config.PackageManagerPNPM {
		arts = append(arts, artifact.Artifact{
			Path:   "pnpm-workspace.yaml",
			Format: artifact.FormatYAML,
			Body: orderedmap.Pairs(
				"packages", []interface{}{"packages/*"},
			),
		})
	} else {
		root.Set("workspaces", []interface{}{"packages/*"})
	}

	root.Set("scripts", orderedmap.Pairs(
		"build", "turbo run build",
		"test", "turbo run test",
		"lint", "turbo run lint",
	))
	root.Set("devDependencies", orderedmap.Pairs("turbo", "^2.3.0"))

	arts = append(arts, artifact.Artifact{
		Path:   "package.json",
		Format: artifact.FormatJSON,
		Body:   root,
	})
	return arts
}

func (g MonorepoGenerator) turboConfig() artifact.Artifact {
	return artifact.Artifact{
		Path:      "turbo.json",
		Format:    artifact.FormatJSON,
		DependsOn: []artifact.Ref{{Path: "package.json"}},
		Body: orderedmap.Pairs(
			"$schema", "https://turbo.build/schema.json",
			"tasks", orderedmap.Pairs(
				"build", orderedmap.Pairs(
					"dependsOn", []interface{}{"^build"},
					"outputs", []interface{}{"dist/**"},
				),
				"test", orderedmap.Pairs("dependsOn", []interface{}{"build"}),
				"lint", orderedmap.Pairs("outputs", []interface{}{}),
			),
		),
	}
}

func (g MonorepoGenerator) dependencyVersion(conf config.Configuration) string {
	if conf.PackageManager() == config.PackageManagerPNPM {
		return "workspace:*"
	}
	return "*"
}

func (g MonorepoGenerator) sharedConfigPackage(conf config.Configuration, reg *names.Registry, dir string) []artifact.Artifact {
	manifest := artifact.Artifact{
		Path:   dir + "/package.json",
		Format: artifact.FormatJSON,
		Body: orderedmap.Pairs(
			"name", reg.Resolve(ConceptSharedConfig),
			"version", "0.1.0",
			"private", true,
			"exports", orderedmap.Pairs(
				"./eslint", "./eslint.config.json",
				"./prettier", "./prettier.config.json",
			),
		),
	}

	tsconfigBase := artifact.Artifact{
		Path:   dir + "/tsconfig.base.json",
		Format: artifact.FormatJSON,
		Body: orderedmap.Pairs(
			"compilerOptions", orderedmap.Pairs(
				"target", "ES2022",
				"module", "NodeNext",
				"moduleResolution", "NodeNext",
				"strict", true,
				"esModuleInterop", true,
				"skipLibCheck", true,
				"composite", true,
			),
		),
	}

	eslintConfig := artifact.Artifact{
		Path:   dir + "/eslint.config.json",
		Format: artifact.FormatJSON,
		Body: orderedmap.Pairs(
			"root", false,
			"extends", []interface{}{"eslint:recommended", "prettier"},
			"env", orderedmap.Pairs("node", true, "es2022", true),
		),
	}

	prettierConfig := artifact.Artifact{
		Path:   dir + "/prettier.config.json",
		Format: artifact.FormatJSON,
		Body: orderedmap.Pairs(
			"semi", true,
			"singleQuote", true,
			"trailingComma", "all",
		),
	}

	return []artifact.Artifact{manifest, tsconfigBase, eslintConfig, prettierConfig}
}

func (g MonorepoGenerator) workspacePackage(conf config.Configuration, pkgName, sharedName string) []artifact.Artifact {
	dir := "packages/" + pkgName
	sharedDir := "packages/" + sharedName

	manifest := artifact.Artifact{
		Path:      dir + "/package.json",
		Format:    artifact.FormatJSON,
		DependsOn: []artifact.Ref{{Path: sharedDir + "/package.json"}},
		Body: orderedmap.Pairs(
			"name", pkgName,
			"version", "0.1.0",
			"private", true,
			"scripts", orderedmap.Pairs(
				"build", "tsc -p tsconfig.json",
				"test", "node --test",
				"lint", "eslint .",
			),
			"devDependencies", orderedmap.Pairs(
				sharedName, g.dependencyVersion(conf),
			),
		),
	}

	arts := []artifact.Artifact{manifest}

	if conf.UseTypeScript() {
		// The relative path into the shared package is derived from the
		// registry-resolved name, so renaming the shared package moves every
		// reference with it.
		arts = append(arts, artifact.Artifact{
			Path:      dir + "/tsconfig.json",
			Format:    artifact.FormatJSON,
			DependsOn: []artifact.Ref{{Path: sharedDir + "/tsconfig.base.json"}},
			Body: orderedmap.Pairs(
				"extends", fmt.Sprintf("../%s/tsconfig.base.json", sharedName),
				"compilerOptions", orderedmap.Pairs(
					"outDir", "dist",
					"rootDir", "src",
				),
				"include", []interface{}{"src"},
			),
		})
	}
	return arts
}
