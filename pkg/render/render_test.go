// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package render_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carvel.dev/stamp/pkg/artifact"
	"carvel.dev/stamp/pkg/orderedmap"
	"carvel.dev/stamp/pkg/render"
)

func TestYAMLKeepsInsertionOrder(t *testing.T) {
	a := artifact.Artifact{
		Path:   "k8s/base/service.yaml",
		Format: artifact.FormatYAML,
		Body: orderedmap.Pairs(
			"apiVersion", "v1",
			"kind", "Service",
			"metadata", orderedmap.Pairs("name", "acme-api"),
			"spec", orderedmap.Pairs(
				"ports", []interface{}{
					orderedmap.Pairs("name", "http", "port", 80),
				},
			),
		),
	}

	data, err := render.Render(a)
	require.NoError(t, err)

	expected := `apiVersion: v1
kind: Service
metadata:
  name: acme-api
spec:
  ports:
    - name: http
      port: 80
`
	assert.Equal(t, expected, string(data))
}

func TestYAMLMultiDocumentGetsSeparators(t *testing.T) {
	a := artifact.Artifact{
		Path:   "multi.yaml",
		Format: artifact.FormatYAML,
		Body: render.Docs{
			orderedmap.Pairs("kind", "First"),
			orderedmap.Pairs("kind", "Second"),
		},
	}

	data, err := render.Render(a)
	require.NoError(t, err)
	assert.Equal(t, "---\nkind: First\n---\nkind: Second\n", string(data))
}

func TestYAMLQuotesAmbiguousScalars(t *testing.T) {
	a := artifact.Artifact{
		Path:   "wf.yaml",
		Format: artifact.FormatYAML,
		Body: orderedmap.Pairs(
			"on", "push",
			"version", "1.20",
			"enabled", "true",
		),
	}

	data, err := render.Render(a)
	require.NoError(t, err)
	assert.Equal(t, "\"on\": push\nversion: \"1.20\"\nenabled: \"true\"\n", string(data))
}

func TestYAMLMultilineStringsUseBlockScalars(t *testing.T) {
	a := artifact.Artifact{
		Path:   "cm.yaml",
		Format: artifact.FormatYAML,
		Body:   orderedmap.Pairs("script", "line one\nline two\n"),
	}

	data, err := render.Render(a)
	require.NoError(t, err)
	assert.Equal(t, "script: |\n  line one\n  line two\n", string(data))
	require.NoError(t, render.Roundtrip(a, data))
}

func TestJSONKeepsInsertionOrderAndIndent(t *testing.T) {
	a := artifact.Artifact{
		Path:   "package.json",
		Format: artifact.FormatJSON,
		Body: orderedmap.Pairs(
			"name", "acme",
			"private", true,
			"scripts", orderedmap.Pairs("build", "tsc"),
			"workspaces", []interface{}{"packages/*"},
		),
	}

	data, err := render.Render(a)
	require.NoError(t, err)

	expected := `{
  "name": "acme",
  "private": true,
  "scripts": {
    "build": "tsc"
  },
  "workspaces": [
    "packages/*"
  ]
}
`
	assert.Equal(t, expected, string(data))
}

func TestRawFormatsGetTrailingNewline(t *testing.T) {
	a := artifact.Artifact{Path: "Makefile", Format: artifact.FormatText, Body: "build:\n\tgo build"}

	data, err := render.Render(a)
	require.NoError(t, err)
	assert.Equal(t, "build:\n\tgo build\n", string(data))
}

func TestRawFormatRejectsStructuredBody(t *testing.T) {
	a := artifact.Artifact{Path: "Makefile", Format: artifact.FormatText, Body: orderedmap.New()}

	_, err := render.Render(a)
	require.Error(t, err)

	var renderErr *render.Error
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, "Makefile", renderErr.Path)
}

func TestRoundtripDetectsDrift(t *testing.T) {
	a := artifact.Artifact{
		Path:   "x.yaml",
		Format: artifact.FormatYAML,
		Body:   orderedmap.Pairs("replicas", 3),
	}

	require.NoError(t, render.Roundtrip(a, []byte("replicas: 3\n")))
	require.Error(t, render.Roundtrip(a, []byte("replicas: 4\n")))
}

func TestAllWalksStateMachine(t *testing.T) {
	arts := []artifact.Artifact{
		{Path: "a.yaml", Format: artifact.FormatYAML, Body: orderedmap.Pairs("a", 1)},
		{Path: "b.txt", Format: artifact.FormatText, Body: "hello"},
	}

	staged, err := render.All(arts)
	require.NoError(t, err)
	require.Len(t, staged, 2)

	for _, s := range staged {
		assert.Equal(t, artifact.StateRendered, s.State)
		assert.NotEmpty(t, s.Data)
	}
}

func TestAllAbortsOnFirstRenderFailure(t *testing.T) {
	arts := []artifact.Artifact{
		{Path: "bad.yaml", Format: artifact.FormatYAML, Body: orderedmap.Pairs("v", struct{}{})},
	}

	_, err := render.All(arts)
	require.Error(t, err)
}
