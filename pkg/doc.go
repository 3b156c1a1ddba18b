// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package pkg is the collection of packages that make up the implementation of
stamp.

The codebase is organized into well-defined layers; packages depend on each
other only to the degree absolutely required.

From top-down, stamp code is layered in this way:

# Entry Point

stamp is built as a single command-line tool:

	./cmd/stamp

# Commands

pkg/cmd assembles the cobra command tree; pkg/cmd/generate holds the generate
command, which drives the whole pipeline: resolve configuration, register
names, run generators, render, check consistency, write output.

# Configuration and Naming

pkg/config layers CLI flags over the optional stamp.toml descriptor and an
inferred project name, validating everything exhaustively into an immutable
Configuration. pkg/names derives every concrete name used anywhere in the
output from logical concepts, and freezes before generation starts so no
generator can invent a name of its own.

# Generation

pkg/generate holds the generator families (platform, gitops, infrastructure,
monorepo). Generators produce artifact values; they never touch disk. The
runner executes families concurrently and merges results deterministically.

# Artifacts and Rendering

pkg/artifact defines the staged artifact and its lifecycle state machine.
pkg/render serializes structured bodies into deterministic YAML/JSON text,
and can reparse its own output to prove the round trip. pkg/hclfmt does the
same job for Terraform sources. pkg/check validates the staged set as a
whole: referential integrity, path uniqueness, secret-reference completeness.

# Output

pkg/output commits validated artifacts in two phases, comparing against the
previous run's manifest so hand-edited files surface as conflicts instead of
being overwritten.

# Utilities

	pkg/cmd/ui
	pkg/orderedmap
	pkg/version
*/
package pkg
