// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

// Package config validates and normalizes raw scaffolding options into an
// immutable Configuration. Resolution is a pure function of its input;
// every violation is collected so users see all problems at once.
package config

import (
	"fmt"
	"strings"
)

type CloudTarget string

const (
	CloudAWS   CloudTarget = "aws"
	CloudGCP   CloudTarget = "gcp"
	CloudAzure CloudTarget = "azure"
	CloudAll   CloudTarget = "all"
	CloudNone  CloudTarget = "none"
)

type PackageManager string

const (
	PackageManagerNPM  PackageManager = "npm"
	PackageManagerYarn PackageManager = "yarn"
	PackageManagerPNPM PackageManager = "pnpm"
)

// Raw is the unvalidated option bag assembled from CLI flags and the
// optional project descriptor. Empty strings and false bools mean "unset"
// except where noted.
type Raw struct {
	ProjectName      string
	UseTypeScript    bool
	Monorepo         bool
	Kubernetes       bool
	SecurityScanning bool
	Observability    bool
	// Helm and ServiceMesh record an explicit request; they are only valid
	// together with Kubernetes.
	Helm        bool
	ServiceMesh bool

	CloudTarget    string
	PackageManager string
}

// Configuration is immutable; it is created once per invocation by Resolve
// and only ever read afterwards.
type Configuration struct {
	projectName      string
	useTypeScript    bool
	monorepo         bool
	kubernetes       bool
	securityScanning bool
	observability    bool
	helm             bool
	serviceMesh      bool
	cloudTarget      CloudTarget
	packageManager   PackageManager
}

func (c Configuration) ProjectName() string            { return c.projectName }
func (c Configuration) UseTypeScript() bool            { return c.useTypeScript }
func (c Configuration) Monorepo() bool                 { return c.monorepo }
func (c Configuration) Kubernetes() bool               { return c.kubernetes }
func (c Configuration) SecurityScanning() bool         { return c.securityScanning }
func (c Configuration) Observability() bool            { return c.observability }
func (c Configuration) Helm() bool                     { return c.helm }
func (c Configuration) ServiceMesh() bool              { return c.serviceMesh }
func (c Configuration) CloudTarget() CloudTarget       { return c.cloudTarget }
func (c Configuration) PackageManager() PackageManager { return c.packageManager }

// Clouds lists the concrete cloud providers to emit Terraform modules for.
func (c Configuration) Clouds() []CloudTarget {
	switch c.cloudTarget {
	case CloudAll:
		return []CloudTarget{CloudAWS, CloudGCP, CloudAzure}
	case CloudNone:
		return nil
	default:
		return []CloudTarget{c.cloudTarget}
	}
}

// ValidationError describes one bad or incompatible option.
type ValidationError struct {
	Field string
	Msg   string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// ValidationErrors carries every violation found during resolution.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = "- " + err.Error()
	}
	return fmt.Sprintf("Validating configuration:\n%s", strings.Join(msgs, "\n"))
}

// Resolve validates raw options exhaustively, applies defaults, and returns
// the immutable Configuration. On failure it returns ValidationErrors
// listing every violation, not just the first.
func Resolve(raw Raw) (Configuration, error) {
	var errs ValidationErrors

	if strings.TrimSpace(raw.ProjectName) == "" {
		errs = append(errs, ValidationError{"name", "project name is required (set --name, stamp.toml, or a package.json to infer from)"})
	}

	cloud := CloudTarget(raw.CloudTarget)
	if raw.CloudTarget == "" {
		cloud = CloudNone
	} else {
		switch cloud {
		case CloudAWS, CloudGCP, CloudAzure, CloudAll, CloudNone:
		default:
			errs = append(errs, ValidationError{"cloud", fmt.Sprintf("unknown cloud target '%s' (expected aws, gcp, azure, all or none)", raw.CloudTarget)})
		}
	}

	pm := PackageManager(raw.PackageManager)
	if raw.PackageManager == "" {
		// monorepo or not, an unset package manager defaults to npm.
		pm = PackageManagerNPM
	} else {
		switch pm {
		case PackageManagerNPM, PackageManagerYarn, PackageManagerPNPM:
		default:
			errs = append(errs, ValidationError{"package-manager", fmt.Sprintf("unknown package manager '%s' (expected npm, yarn or pnpm)", raw.PackageManager)})
		}
	}

	if raw.Helm && !raw.Kubernetes {
		errs = append(errs, ValidationError{"helm", "helm requires kubernetes=true"})
	}
	if raw.ServiceMesh && !raw.Kubernetes {
		errs = append(errs, ValidationError{"service-mesh", "service mesh policies require kubernetes=true"})
	}
	if raw.Observability && !raw.Kubernetes {
		errs = append(errs, ValidationError{"observability", "the observability stack requires kubernetes=true"})
	}

	if len(errs) > 0 {
		return Configuration{}, errs
	}

	return Configuration{
		projectName:      strings.TrimSpace(raw.ProjectName),
		useTypeScript:    raw.UseTypeScript,
		monorepo:         raw.Monorepo,
		kubernetes:       raw.Kubernetes,
		securityScanning: raw.SecurityScanning,
		observability:    raw.Observability,
		helm:             raw.Helm,
		serviceMesh:      raw.ServiceMesh,
		cloudTarget:      cloud,
		packageManager:   pm,
	}, nil
}
