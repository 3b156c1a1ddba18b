// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package artifact

import (
	"fmt"
)

// Format identifies the serialization applied to an artifact's body.
type Format string

const (
	FormatYAML       Format = "yaml"
	FormatJSON       Format = "json"
	FormatHCL        Format = "hcl"
	FormatDockerfile Format = "dockerfile"
	FormatMarkdown   Format = "markdown"
	FormatText       Format = "text"
)

// Structured reports whether the format carries a structured body
// (*orderedmap.Map and friends) rather than pre-formatted text.
func (f Format) Structured() bool {
	return f == FormatYAML || f == FormatJSON
}

// Ref points at another artifact by its output-relative path.
type Ref struct {
	Path string
}

// Artifact is one staged, generator-produced file prior to being committed
// to disk. For yaml/json the Body is a structured value (typically
// *orderedmap.Map); for all other formats it is a pre-formatted string
// assembled through the composable builder helpers.
//
// DependsOn encodes referential constraints between artifacts (e.g. a
// Service depends on the Deployment whose pod-selector labels it matches);
// the consistency pass confirms every reference was produced in the same run.
type Artifact struct {
	Path      string
	Format    Format
	Body      interface{}
	DependsOn []Ref

	// Generator is stamped by the runner; artifacts staged at the same path
	// by different generators are a hard collision.
	Generator string
}

func (a Artifact) Ref() Ref { return Ref{Path: a.Path} }

func (a Artifact) String() string {
	return fmt.Sprintf("%s (%s)", a.Path, a.Format)
}

// SecretReference declares a secret by logical name only; actual secret
// values are never read or embedded. Consumers lists every artifact that
// references the secret; an unreferenced declaration is a validation error.
type SecretReference struct {
	LogicalName string
	Consumers   []Ref
}

// Staged pairs an artifact with its rendered bytes and lifecycle state as it
// moves through the pipeline.
type Staged struct {
	Artifact
	Data  []byte
	State State
}
