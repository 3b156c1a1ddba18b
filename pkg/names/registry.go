// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package names

import (
	"fmt"
	"sort"
	"sync"
)

// Registry is the single authority mapping logical concepts (e.g. "api",
// "shared-config", "development") to concrete DNS-1123 compliant names.
// Concepts are registered up front while the registry is mutable; Freeze
// transitions it to read-only, after which it is safe to share across
// concurrently running generators without locking.
type Registry struct {
	project string

	mu        sync.Mutex
	frozen    bool
	byConcept map[string]string
	bySlug    map[string]string
}

// ConceptProject resolves to the project name itself rather than a derived
// "<project>-<concept>" name.
const ConceptProject = "project"

func NewRegistry(projectName string) *Registry {
	return &Registry{
		project:   projectName,
		byConcept: map[string]string{},
		bySlug:    map[string]string{},
	}
}

// Register derives and memoizes the name for concept. Registering the same
// concept twice returns the identical string. Two distinct concepts slugifying
// to the same name is a CollisionError.
func (r *Registry) Register(concept string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return "", fmt.Errorf("Registering concept '%s': registry is frozen", concept)
	}
	if name, found := r.byConcept[concept]; found {
		return name, nil
	}

	var name string
	if concept == ConceptProject {
		name = Slugify(r.project)
	} else {
		name = Slugify(r.project + "-" + concept)
	}

	if prev, found := r.bySlug[name]; found && prev != concept {
		return "", &CollisionError{Concept: concept, Existing: prev, Name: name}
	}

	r.byConcept[concept] = name
	r.bySlug[name] = concept
	return name, nil
}

// Freeze transitions the registry to read-only.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Resolve returns the name registered for concept. Asking a frozen registry
// for an unseen concept means a generator introduced a naming need the
// registry was not told about up front; that is a programming error, not a
// recoverable condition.
func (r *Registry) Resolve(concept string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	name, found := r.byConcept[concept]
	if !found {
		panic(fmt.Sprintf("Concept '%s' was not registered before the registry was frozen", concept))
	}
	return name
}

// Known reports whether concept was registered.
func (r *Registry) Known(concept string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, found := r.byConcept[concept]
	return found
}

// Concepts returns all registered concepts, sorted.
func (r *Registry) Concepts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var concepts []string
	for concept := range r.byConcept {
		concepts = append(concepts, concept)
	}
	sort.Strings(concepts)
	return concepts
}

// CollisionError indicates two distinct logical concepts slugified to the
// same concrete name.
type CollisionError struct {
	Concept  string
	Existing string
	Name     string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("Name collision: concepts '%s' and '%s' both resolve to '%s'",
		e.Concept, e.Existing, e.Name)
}
