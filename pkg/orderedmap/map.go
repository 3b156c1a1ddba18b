// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package orderedmap

import (
	"encoding/json"
	"fmt"
)

// Map is a string-keyed map that preserves insertion order. Every structured
// artifact body is built out of these so that emitted documents are
// deterministic and keys appear in the order the generator chose.
type Map struct {
	items []Item
}

type Item struct {
	Key   string
	Value interface{}
}

func New() *Map {
	return &Map{}
}

// Pairs builds a Map from alternating key, value arguments. An odd number of
// arguments or a non-string key is a programming error.
func Pairs(kvs ...interface{}) *Map {
	if len(kvs)%2 != 0 {
		panic(fmt.Sprintf("Expected even number of key-value arguments, got %d", len(kvs)))
	}
	m := New()
	for i := 0; i < len(kvs); i += 2 {
		key, ok := kvs[i].(string)
		if !ok {
			panic(fmt.Sprintf("Expected key at position %d to be string, was %T", i, kvs[i]))
		}
		m.Set(key, kvs[i+1])
	}
	return m
}

func (m *Map) Set(key string, value interface{}) {
	for i, item := range m.items {
		if item.Key == key {
			item.Value = value
			m.items[i] = item
			return
		}
	}
	m.items = append(m.items, Item{key, value})
}

func (m *Map) Get(key string) (interface{}, bool) {
	for _, item := range m.items {
		if item.Key == key {
			return item.Value, true
		}
	}
	return nil, false
}

func (m *Map) Delete(key string) bool {
	for i, item := range m.items {
		if item.Key == key {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return true
		}
	}
	return false
}

func (m *Map) Keys() (keys []string) {
	for _, item := range m.items {
		keys = append(keys, item.Key)
	}
	return
}

func (m *Map) Iterate(iterFunc func(k string, v interface{})) {
	for _, item := range m.items {
		iterFunc(item.Key, item.Value)
	}
}

func (m *Map) IterateErr(iterFunc func(k string, v interface{}) error) error {
	for _, item := range m.items {
		err := iterFunc(item.Key, item.Value)
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *Map) Len() int { return len(m.items) }

// Copy returns a deep copy; nested *Map and []interface{} values are copied
// as well. Overlay application patches copies so the base body is never
// mutated.
func (m *Map) Copy() *Map {
	result := New()
	for _, item := range m.items {
		result.items = append(result.items, Item{item.Key, copyValue(item.Value)})
	}
	return result
}

func copyValue(val interface{}) interface{} {
	switch typedVal := val.(type) {
	case *Map:
		return typedVal.Copy()
	case []interface{}:
		result := make([]interface{}, len(typedVal))
		for i, item := range typedVal {
			result[i] = copyValue(item)
		}
		return result
	default:
		return typedVal
	}
}

// Below methods disallow marshaling of Map directly; serialization must go
// through the renderer so that ordering guarantees hold.
var _ []json.Marshaler = []json.Marshaler{&Map{}}

func (*Map) MarshalYAML() (interface{}, error) { panic("Unexpected marshaling of *orderedmap.Map") }
func (*Map) MarshalJSON() ([]byte, error)      { panic("Unexpected marshaling of *orderedmap.Map") }
