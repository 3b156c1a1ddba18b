// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"fmt"
	"strings"

	"carvel.dev/stamp/pkg/artifact"
)

// Error wraps a serialization failure with the artifact path and the
// offending node so the user can locate the malformed value.
type Error struct {
	Path  string
	Node  string
	Cause error
}

func (e *Error) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("Rendering %s: at %s: %s", e.Path, e.Node, e.Cause)
	}
	return fmt.Sprintf("Rendering %s: %s", e.Path, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// Docs is a multi-document YAML body; each element is rendered as its own
// document separated by '---'.
type Docs []interface{}

// Render serializes an artifact body into target-format text. Structured
// formats (yaml, json) are emitted with insertion-ordered keys; all other
// formats carry pre-formatted strings which are passed through with a
// guaranteed trailing newline.
func Render(a artifact.Artifact) ([]byte, error) {
	switch a.Format {
	case artifact.FormatYAML:
		return renderYAML(a)
	case artifact.FormatJSON:
		return renderJSON(a)
	case artifact.FormatHCL, artifact.FormatDockerfile, artifact.FormatMarkdown, artifact.FormatText:
		return renderRaw(a)
	default:
		return nil, &Error{Path: a.Path, Cause: fmt.Errorf("Unknown format '%s'", a.Format)}
	}
}

func renderRaw(a artifact.Artifact) ([]byte, error) {
	body, ok := a.Body.(string)
	if !ok {
		return nil, &Error{Path: a.Path, Cause: fmt.Errorf("Expected %s body to be string, was %T", a.Format, a.Body)}
	}
	if !strings.HasSuffix(body, "\n") {
		body += "\n"
	}
	return []byte(body), nil
}

// All renders every artifact, walking each through the
// Planned -> Rendered state transition. Any render failure marks the staged
// artifact Failed and aborts with the wrapped Error; partial scaffolding is
// never flushed downstream.
func All(arts []artifact.Artifact) ([]*artifact.Staged, error) {
	var staged []*artifact.Staged
	for _, a := range arts {
		s := &artifact.Staged{Artifact: a, State: artifact.StatePlanned}
		staged = append(staged, s)

		data, err := Render(a)
		if err != nil {
			_ = s.Transition(artifact.StateFailed)
			return nil, err
		}
		err = s.Transition(artifact.StateRendered)
		if err != nil {
			return nil, err
		}
		s.Data = data
	}
	return staged, nil
}
