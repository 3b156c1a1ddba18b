// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"carvel.dev/stamp/pkg/artifact"
	"carvel.dev/stamp/pkg/orderedmap"
)

const yamlIndent = "  "

func renderYAML(a artifact.Artifact) ([]byte, error) {
	buf := new(bytes.Buffer)

	docs, multi := a.Body.(Docs)
	if !multi {
		docs = Docs{a.Body}
	}

	for i, doc := range docs {
		if multi {
			buf.WriteString("---\n")
		}
		err := yamlValue(buf, doc, "")
		if err != nil {
			return nil, &Error{Path: a.Path, Node: fmt.Sprintf("document %d", i), Cause: err}
		}
	}
	return buf.Bytes(), nil
}

// yamlValue emits val as a block-style node at the given indent. The caller
// has not written anything for this node yet.
func yamlValue(buf *bytes.Buffer, val interface{}, indent string) error {
	switch typedVal := val.(type) {
	case *orderedmap.Map:
		if typedVal.Len() == 0 {
			buf.WriteString(indent + "{}\n")
			return nil
		}
		return yamlMap(buf, typedVal, indent)

	case []interface{}:
		if len(typedVal) == 0 {
			buf.WriteString(indent + "[]\n")
			return nil
		}
		return yamlSeq(buf, typedVal, indent)

	default:
		scalar, err := yamlScalar(typedVal)
		if err != nil {
			return err
		}
		buf.WriteString(indent + scalar + "\n")
		return nil
	}
}

func yamlMap(buf *bytes.Buffer, m *orderedmap.Map, indent string) error {
	return m.IterateErr(func(k string, v interface{}) error {
		key := yamlString(k)

		switch typedVal := v.(type) {
		case *orderedmap.Map:
			if typedVal.Len() == 0 {
				buf.WriteString(indent + key + ": {}\n")
				return nil
			}
			buf.WriteString(indent + key + ":\n")
			return yamlMap(buf, typedVal, indent+yamlIndent)

		case []interface{}:
			if len(typedVal) == 0 {
				buf.WriteString(indent + key + ": []\n")
				return nil
			}
			buf.WriteString(indent + key + ":\n")
			return yamlSeq(buf, typedVal, indent+yamlIndent)

		case string:
			if strings.Contains(typedVal, "\n") && blockScalarSafe(typedVal) {
				yamlBlockScalar(buf, typedVal, indent, key)
				return nil
			}
			buf.WriteString(indent + key + ": " + yamlString(typedVal) + "\n")
			return nil

		default:
			scalar, err := yamlScalar(typedVal)
			if err != nil {
				return fmt.Errorf("key '%s': %w", k, err)
			}
			buf.WriteString(indent + key + ": " + scalar + "\n")
			return nil
		}
	})
}

func yamlSeq(buf *bytes.Buffer, seq []interface{}, indent string) error {
	for i, item := range seq {
		switch typedItem := item.(type) {
		case *orderedmap.Map:
			if typedItem.Len() == 0 {
				buf.WriteString(indent + "- {}\n")
				continue
			}
			// First key rides on the "- " line; the rest align under it.
			sub := new(bytes.Buffer)
			err := yamlMap(sub, typedItem, indent+yamlIndent)
			if err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
			out := sub.String()
			buf.WriteString(indent + "-" + strings.TrimPrefix(out, indent+" "))

		case []interface{}:
			return fmt.Errorf("item %d: nested sequences are not supported", i)

		case string:
			if strings.Contains(typedItem, "\n") {
				return fmt.Errorf("item %d: multiline strings are not supported as sequence items", i)
			}
			buf.WriteString(indent + "- " + yamlString(typedItem) + "\n")

		default:
			scalar, err := yamlScalar(typedItem)
			if err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
			buf.WriteString(indent + "- " + scalar + "\n")
		}
	}
	return nil
}

func yamlBlockScalar(buf *bytes.Buffer, s, indent, key string) {
	header := "|"
	if !strings.HasSuffix(s, "\n") {
		header = "|-"
	}
	buf.WriteString(indent + key + ": " + header + "\n")
	for _, line := range strings.Split(strings.TrimSuffix(s, "\n"), "\n") {
		if line == "" {
			buf.WriteString("\n")
			continue
		}
		buf.WriteString(indent + yamlIndent + line + "\n")
	}
}

// blockScalarSafe reports whether s survives a literal block scalar without
// content loss (no line-leading/trailing whitespace the parser would fold
// away, at most one trailing newline).
func blockScalarSafe(s string) bool {
	if strings.HasSuffix(s, "\n\n") {
		return false
	}
	for _, line := range strings.Split(strings.TrimSuffix(s, "\n"), "\n") {
		if line != strings.TrimRight(line, " \t") {
			return false
		}
		if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			return false
		}
	}
	return true
}

func yamlScalar(val interface{}) (string, error) {
	switch typedVal := val.(type) {
	case nil:
		return "null", nil
	case bool:
		return strconv.FormatBool(typedVal), nil
	case int:
		return strconv.Itoa(typedVal), nil
	case int64:
		return strconv.FormatInt(typedVal, 10), nil
	case string:
		return yamlString(typedVal), nil
	default:
		return "", fmt.Errorf("Unsupported scalar type %T", val)
	}
}

var yamlPlainRegexp = regexp.MustCompile(`^[A-Za-z0-9._/][A-Za-z0-9._/ -]*$`)

// yamlString emits s plain when unambiguous, double-quoted otherwise.
func yamlString(s string) string {
	if yamlPlainRegexp.MatchString(s) && !yamlAmbiguous(s) {
		return s
	}
	return strconv.Quote(s)
}

func yamlAmbiguous(s string) bool {
	switch strings.ToLower(s) {
	case "true", "false", "yes", "no", "on", "off", "null", "~":
		return true
	}
	if strings.HasSuffix(s, " ") || strings.Contains(s, " #") {
		return true
	}
	// Number-looking plain scalars would change type on re-parse.
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return true
	}
	return false
}
