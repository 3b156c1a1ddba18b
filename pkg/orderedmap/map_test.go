// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package orderedmap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carvel.dev/stamp/pkg/orderedmap"
)

func TestKeysKeepInsertionOrder(t *testing.T) {
	m := orderedmap.Pairs("zebra", 1, "alpha", 2, "mango", 3)
	assert.Equal(t, []string{"zebra", "alpha", "mango"}, m.Keys())
}

func TestSetExistingKeyKeepsPosition(t *testing.T) {
	m := orderedmap.Pairs("a", 1, "b", 2)
	m.Set("a", 10)

	assert.Equal(t, []string{"a", "b"}, m.Keys())
	val, found := m.Get("a")
	require.True(t, found)
	assert.Equal(t, 10, val)
}

func TestDelete(t *testing.T) {
	m := orderedmap.Pairs("a", 1, "b", 2, "c", 3)

	assert.True(t, m.Delete("b"))
	assert.False(t, m.Delete("b"))
	assert.Equal(t, []string{"a", "c"}, m.Keys())
}

func TestPairsPanicsOnOddArguments(t *testing.T) {
	assert.Panics(t, func() { orderedmap.Pairs("a", 1, "b") })
}

func TestPairsPanicsOnNonStringKey(t *testing.T) {
	assert.Panics(t, func() { orderedmap.Pairs(42, "value") })
}

func TestCopyIsDeep(t *testing.T) {
	inner := orderedmap.Pairs("count", 1)
	m := orderedmap.Pairs("nested", inner, "list", []interface{}{"x"})

	copied := m.Copy()

	copiedInner, found := copied.Get("nested")
	require.True(t, found)
	copiedInner.(*orderedmap.Map).Set("count", 99)

	val, _ := inner.Get("count")
	assert.Equal(t, 1, val)

	copiedList, _ := copied.Get("list")
	copiedList.([]interface{})[0] = "changed"
	origList, _ := m.Get("list")
	assert.Equal(t, "x", origList.([]interface{})[0])
}

func TestDirectMarshalingPanics(t *testing.T) {
	m := orderedmap.Pairs("a", 1)
	assert.Panics(t, func() { _, _ = m.MarshalJSON() })
	assert.Panics(t, func() { _, _ = m.MarshalYAML() })
}

func TestUnorderedConversionRoundTrips(t *testing.T) {
	m := orderedmap.Pairs(
		"name", "acme",
		"nested", orderedmap.Pairs("replicas", 3),
		"list", []interface{}{"a", "b"},
	)

	unordered := orderedmap.Conversion{Object: m}.AsUnordered()

	parsed, err := orderedmap.Conversion{Object: map[interface{}]interface{}{
		"name":   "acme",
		"nested": map[interface{}]interface{}{"replicas": 3},
		"list":   []interface{}{"a", "b"},
	}}.FromParsed()
	require.NoError(t, err)

	assert.Equal(t, unordered, parsed)
}
