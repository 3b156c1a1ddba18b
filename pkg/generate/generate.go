// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

// Package generate holds the artifact generators. Each generator receives
// the frozen Configuration and name Registry and returns staged artifacts;
// generators never write to disk.
package generate

import (
	"context"
	"fmt"
	"sync"

	"carvel.dev/stamp/pkg/artifact"
	"carvel.dev/stamp/pkg/config"
	"carvel.dev/stamp/pkg/names"
)

type Generator interface {
	Name() string
	Generate(ctx context.Context, conf config.Configuration, reg *names.Registry) (Result, error)
}

// Result is one generator's staged output: artifacts plus the secret
// references its artifacts consume.
type Result struct {
	Artifacts []artifact.Artifact
	Secrets   []artifact.SecretReference
}

// All returns the generator families applicable to conf, in canonical order.
func All(conf config.Configuration, pins *Pins) []Generator {
	gens := []Generator{
		NewPlatformGenerator(),
		NewGitOpsGenerator(pins),
	}
	if conf.Kubernetes() || conf.CloudTarget() != config.CloudNone {
		gens = append(gens, NewInfrastructureGenerator(pins))
	}
	if conf.Monorepo() {
		gens = append(gens, NewMonorepoGenerator())
	}
	return gens
}

// Run executes the generators concurrently, one goroutine per family.
// The registry is frozen, so sharing it across goroutines needs no locking.
// The first error cancels the rest and discards all staged artifacts;
// otherwise results are merged in canonical generator order so output is
// deterministic regardless of completion order.
func Run(ctx context.Context, conf config.Configuration, reg *names.Registry, gens []Generator) (Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]Result, len(gens))

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for i, gen := range gens {
		wg.Add(1)
		go func(i int, gen Generator) {
			defer wg.Done()

			res, err := gen.Generate(ctx, conf, reg)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("Generator '%s': %w", gen.Name(), err)
					cancel()
				}
				return
			}
			for j := range res.Artifacts {
				res.Artifacts[j].Generator = gen.Name()
			}
			results[i] = res
		}(i, gen)
	}

	wg.Wait()

	if firstErr != nil {
		return Result{}, firstErr
	}

	var merged Result
	secretIdx := map[string]int{}
	for _, res := range results {
		merged.Artifacts = append(merged.Artifacts, res.Artifacts...)
		for _, secret := range res.Secrets {
			if i, found := secretIdx[secret.LogicalName]; found {
				merged.Secrets[i].Consumers = append(merged.Secrets[i].Consumers, secret.Consumers...)
				continue
			}
			secretIdx[secret.LogicalName] = len(merged.Secrets)
			merged.Secrets = append(merged.Secrets, secret)
		}
	}
	return merged, nil
}
