// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

// Package check validates the staged artifact set as a whole before anything
// touches disk: referential integrity between artifacts, path uniqueness
// across generators and secret-reference completeness.
package check

import (
	"fmt"
	"sort"
	"strings"

	"carvel.dev/stamp/pkg/artifact"
)

// UnresolvedReferenceError reports a DependsOn ref whose target was not
// staged in the same run.
type UnresolvedReferenceError struct {
	From string
	To   string
}

func (e UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("Artifact '%s' references '%s' which was not generated", e.From, e.To)
}

// DuplicatePathError reports two generators staging the same output path.
type DuplicatePathError struct {
	Path       string
	Generators []string
}

func (e DuplicatePathError) Error() string {
	return fmt.Sprintf("Artifact path '%s' staged by multiple generators: %s",
		e.Path, strings.Join(e.Generators, ", "))
}

// SecretReferenceError reports a declared secret with no consumers, or a
// consumer that does not exist in the staged set.
type SecretReferenceError struct {
	LogicalName string
	Consumer    string
}

func (e SecretReferenceError) Error() string {
	if e.Consumer == "" {
		return fmt.Sprintf("Secret '%s' is declared but no artifact consumes it", e.LogicalName)
	}
	return fmt.Sprintf("Secret '%s' lists consumer '%s' which was not generated", e.LogicalName, e.Consumer)
}

// Failures aggregates every consistency violation found in one pass; the
// checker never stops at the first problem.
type Failures []error

func (fs Failures) Error() string {
	msgs := make([]string, len(fs))
	for i, err := range fs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("Consistency check failed:\n- %s", strings.Join(msgs, "\n- "))
}

// All verifies the full staged set and, when clean, walks every artifact
// through the Rendered -> Validated transition. On failure nothing is
// transitioned, so no partial set can reach the writer.
func All(staged []*artifact.Staged, secrets []artifact.SecretReference) error {
	var failures Failures

	byPath := map[string][]string{}
	for _, s := range staged {
		byPath[s.Path] = append(byPath[s.Path], s.Generator)
	}

	var dupPaths []string
	for path, gens := range byPath {
		if len(gens) > 1 {
			dupPaths = append(dupPaths, path)
		}
	}
	sort.Strings(dupPaths)
	for _, path := range dupPaths {
		gens := byPath[path]
		sort.Strings(gens)
		failures = append(failures, DuplicatePathError{Path: path, Generators: gens})
	}

	for _, s := range staged {
		for _, ref := range s.DependsOn {
			if _, found := byPath[ref.Path]; !found {
				failures = append(failures, UnresolvedReferenceError{From: s.Path, To: ref.Path})
			}
		}
	}

	for _, secret := range secrets {
		if len(secret.Consumers) == 0 {
			failures = append(failures, SecretReferenceError{LogicalName: secret.LogicalName})
			continue
		}
		for _, ref := range secret.Consumers {
			if _, found := byPath[ref.Path]; !found {
				failures = append(failures, SecretReferenceError{LogicalName: secret.LogicalName, Consumer: ref.Path})
			}
		}
	}

	if len(failures) > 0 {
		return failures
	}

	for _, s := range staged {
		err := s.Transition(artifact.StateValidated)
		if err != nil {
			return err
		}
	}
	return nil
}
