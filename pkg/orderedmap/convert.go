// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package orderedmap

import (
	"fmt"
)

// Conversion bridges between ordered bodies and the unordered maps produced
// by plain YAML/JSON parsers, so that the two can be compared structurally.
type Conversion struct {
	Object interface{}
}

// AsUnordered converts every nested *Map into a plain map[string]interface{},
// dropping ordering. Used on the staged side of round-trip comparisons.
func (c Conversion) AsUnordered() interface{} {
	return c.asUnordered(c.Object)
}

func (c Conversion) asUnordered(object interface{}) interface{} {
	switch typedObj := object.(type) {
	case map[string]interface{}:
		panic("Expected *orderedmap.Map instead of map[string]interface{} in AsUnordered")

	case *Map:
		result := map[string]interface{}{}
		typedObj.Iterate(func(k string, v interface{}) {
			result[k] = c.asUnordered(v)
		})
		return result

	case []interface{}:
		result := make([]interface{}, len(typedObj))
		for i, item := range typedObj {
			result[i] = c.asUnordered(item)
		}
		return result

	default:
		return typedObj
	}
}

// FromParsed converts parser output (string-keyed or interface-keyed maps)
// into nested plain string maps so it can be compared against AsUnordered
// output. Non-string keys are an error since artifact bodies never use them.
func (c Conversion) FromParsed() (interface{}, error) {
	return c.fromParsed(c.Object)
}

func (c Conversion) fromParsed(object interface{}) (interface{}, error) {
	switch typedObj := object.(type) {
	case map[string]interface{}:
		result := map[string]interface{}{}
		for k, v := range typedObj {
			converted, err := c.fromParsed(v)
			if err != nil {
				return nil, err
			}
			result[k] = converted
		}
		return result, nil

	case map[interface{}]interface{}:
		result := map[string]interface{}{}
		for k, v := range typedObj {
			strK, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("Expected map key to be string, was %T", k)
			}
			converted, err := c.fromParsed(v)
			if err != nil {
				return nil, err
			}
			result[strK] = converted
		}
		return result, nil

	case []interface{}:
		result := make([]interface{}, len(typedObj))
		for i, item := range typedObj {
			converted, err := c.fromParsed(item)
			if err != nil {
				return nil, err
			}
			result[i] = converted
		}
		return result, nil

	default:
		return typedObj, nil
	}
}
