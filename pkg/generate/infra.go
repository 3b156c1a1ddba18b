// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package generate

import (
	"context"

	"carvel.dev/stamp/pkg/config"
	"carvel.dev/stamp/pkg/names"
)

// InfrastructureGenerator emits Terraform modules per cloud, the Kubernetes
// base and environment overlays, the Helm chart, the observability stack and
// service-mesh policies.
type InfrastructureGenerator struct {
	pins *Pins
}

func NewInfrastructureGenerator(pins *Pins) InfrastructureGenerator {
	return InfrastructureGenerator{pins: pins}
}

func (g InfrastructureGenerator) Name() string { return "infrastructure" }

func (g InfrastructureGenerator) Generate(ctx context.Context, conf config.Configuration, reg *names.Registry) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	var res Result

	if conf.Kubernetes() {
		arts, secrets := g.kubernetesArtifacts(conf, reg)
		res.Artifacts = append(res.Artifacts, arts...)
		res.Secrets = append(res.Secrets, secrets...)
	}
	if len(conf.Clouds()) > 0 {
		res.Artifacts = append(res.Artifacts, g.terraformArtifacts(conf, reg)...)
	}
	if conf.Helm() {
		res.Artifacts = append(res.Artifacts, g.helmArtifacts(conf, reg)...)
	}

	return res, nil
}
