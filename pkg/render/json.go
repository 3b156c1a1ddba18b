// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"bytes"
	"encoding/json"
	"fmt"

	"carvel.dev/stamp/pkg/artifact"
	"carvel.dev/stamp/pkg/orderedmap"
)

const jsonIndent = "  "

// renderJSON emits the body with insertion-ordered keys; encoding/json alone
// cannot do that for maps, so the tree is walked explicitly and only scalars
// are delegated to the stdlib encoder.
func renderJSON(a artifact.Artifact) ([]byte, error) {
	buf := new(bytes.Buffer)
	err := jsonValue(buf, a.Body, "")
	if err != nil {
		return nil, &Error{Path: a.Path, Cause: err}
	}
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

func jsonValue(buf *bytes.Buffer, val interface{}, indent string) error {
	switch typedVal := val.(type) {
	case *orderedmap.Map:
		if typedVal.Len() == 0 {
			buf.WriteString("{}")
			return nil
		}
		buf.WriteString("{\n")
		i := 0
		err := typedVal.IterateErr(func(k string, v interface{}) error {
			if i > 0 {
				buf.WriteString(",\n")
			}
			i++
			key, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.WriteString(indent + jsonIndent + string(key) + ": ")
			return jsonValue(buf, v, indent+jsonIndent)
		})
		if err != nil {
			return err
		}
		buf.WriteString("\n" + indent + "}")
		return nil

	case []interface{}:
		if len(typedVal) == 0 {
			buf.WriteString("[]")
			return nil
		}
		buf.WriteString("[\n")
		for i, item := range typedVal {
			if i > 0 {
				buf.WriteString(",\n")
			}
			buf.WriteString(indent + jsonIndent)
			err := jsonValue(buf, item, indent+jsonIndent)
			if err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
		}
		buf.WriteString("\n" + indent + "]")
		return nil

	case nil, bool, int, int64, string:
		data, err := json.Marshal(typedVal)
		if err != nil {
			return err
		}
		buf.Write(data)
		return nil

	default:
		return fmt.Errorf("Unsupported value type %T", val)
	}
}
