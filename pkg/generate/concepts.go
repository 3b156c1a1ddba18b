// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package generate

import (
	"carvel.dev/stamp/pkg/config"
	"carvel.dev/stamp/pkg/names"
)

// Logical concepts the generators resolve names for. Generators only ever
// read names; registering every naming need happens here, up front, before
// the registry freezes.
const (
	ConceptAPI            = "api"
	ConceptWeb            = "web"
	ConceptSharedConfig   = "shared-config"
	ConceptServiceAccount = "service-account"
	ConceptSecrets        = "secrets"
	ConceptConfig         = "config"
	ConceptNetwork        = "network"
	ConceptCluster        = "cluster"
	ConceptMaintainers    = "maintainers"
)

// EnvNames are the environment overlays, in promotion order. Each doubles as
// the concept whose resolved name is that environment's namespace.
var EnvNames = []string{"development", "staging", "production"}

// RegisterConcepts registers every name any applicable generator will
// resolve. A generator asking for anything outside this set after the
// registry freezes is a bug surfaced as a panic.
func RegisterConcepts(conf config.Configuration, reg *names.Registry) error {
	concepts := []string{
		names.ConceptProject,
		ConceptAPI,
		ConceptSecrets,
		ConceptConfig,
		ConceptServiceAccount,
		ConceptMaintainers,
	}

	if conf.Monorepo() {
		concepts = append(concepts, ConceptWeb, ConceptSharedConfig)
	}
	if conf.Kubernetes() {
		concepts = append(concepts, EnvNames...)
	}
	if len(conf.Clouds()) > 0 {
		concepts = append(concepts, ConceptNetwork, ConceptCluster)
	}

	for _, concept := range concepts {
		_, err := reg.Register(concept)
		if err != nil {
			return err
		}
	}
	return nil
}
