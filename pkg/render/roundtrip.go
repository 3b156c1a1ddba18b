// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"reflect"

	"gopkg.in/yaml.v3"

	"carvel.dev/stamp/pkg/artifact"
	"carvel.dev/stamp/pkg/orderedmap"
)

// Roundtrip parses rendered text and confirms it is structurally equivalent
// to the artifact's body: parse(render(body)) == body. Non-structured formats
// trivially pass. YAML is a superset of JSON, so a single parser covers both.
func Roundtrip(a artifact.Artifact, data []byte) error {
	if !a.Format.Structured() {
		return nil
	}

	var wantDocs Docs
	if docs, multi := a.Body.(Docs); multi {
		wantDocs = docs
	} else {
		wantDocs = Docs{a.Body}
	}

	gotDocs, err := parseDocs(data)
	if err != nil {
		return &Error{Path: a.Path, Cause: fmt.Errorf("Reparsing rendered output: %s", err)}
	}
	if len(gotDocs) != len(wantDocs) {
		return &Error{Path: a.Path, Cause: fmt.Errorf("Expected %d documents after reparse, got %d", len(wantDocs), len(gotDocs))}
	}

	for i := range wantDocs {
		want := orderedmap.Conversion{Object: wantDocs[i]}.AsUnordered()
		got, err := orderedmap.Conversion{Object: gotDocs[i]}.FromParsed()
		if err != nil {
			return &Error{Path: a.Path, Node: fmt.Sprintf("document %d", i), Cause: err}
		}
		if !reflect.DeepEqual(want, got) {
			return &Error{Path: a.Path, Node: fmt.Sprintf("document %d", i),
				Cause: fmt.Errorf("Round-trip mismatch between staged body and rendered output")}
		}
	}
	return nil
}

func parseDocs(data []byte) ([]interface{}, error) {
	var docs []interface{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	for {
		var doc interface{}
		err := dec.Decode(&doc)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
