// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

// Package hclfmt provides small composable builders for HCL text so that
// indentation and escaping are centralized rather than re-implemented with
// raw string concatenation inside each generator.
package hclfmt

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"carvel.dev/stamp/pkg/orderedmap"
)

const indent = "  "

// Block renders an HCL block. Children are pre-rendered fragments (attributes
// or nested blocks); each is indented one level.
//
//	Block("resource", []string{"aws_vpc", "main"}, Attr("cidr_block", "10.0.0.0/16"))
func Block(blockType string, labels []string, children ...string) string {
	var b strings.Builder
	b.WriteString(blockType)
	for _, label := range labels {
		b.WriteString(" " + strconv.Quote(label))
	}
	b.WriteString(" {\n")
	for _, child := range children {
		for _, line := range strings.Split(strings.TrimSuffix(child, "\n"), "\n") {
			if line == "" {
				b.WriteString("\n")
				continue
			}
			b.WriteString(indent + line + "\n")
		}
	}
	b.WriteString("}\n")
	return b.String()
}

// Attr renders `name = <value>`. Strings are quoted, bools and ints are
// bare, []string becomes a list, and *orderedmap.Map becomes an object with
// keys in insertion order.
func Attr(name string, value interface{}) string {
	return fmt.Sprintf("%s = %s\n", name, Value(value))
}

// RawAttr renders `name = expr` with expr emitted verbatim; used for
// references such as module outputs and variables.
func RawAttr(name, expr string) string {
	return fmt.Sprintf("%s = %s\n", name, expr)
}

// Heredoc renders `name = <<-MARKER ... MARKER`.
func Heredoc(name, marker, body string) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s = <<-%s\n", name, marker))
	for _, line := range strings.Split(strings.TrimSuffix(body, "\n"), "\n") {
		b.WriteString(indent + line + "\n")
	}
	b.WriteString(marker + "\n")
	return b.String()
}

// Value renders a single HCL expression value.
func Value(value interface{}) string {
	switch typedVal := value.(type) {
	case string:
		return strconv.Quote(typedVal)
	case bool:
		return strconv.FormatBool(typedVal)
	case int:
		return strconv.Itoa(typedVal)
	case []string:
		quoted := make([]string, len(typedVal))
		for i, item := range typedVal {
			quoted[i] = strconv.Quote(item)
		}
		return "[" + strings.Join(quoted, ", ") + "]"
	case *orderedmap.Map:
		if typedVal.Len() == 0 {
			return "{}"
		}
		var b strings.Builder
		b.WriteString("{\n")
		width := 0
		typedVal.Iterate(func(k string, _ interface{}) {
			if len(k) > width {
				width = len(k)
			}
		})
		typedVal.Iterate(func(k string, v interface{}) {
			b.WriteString(fmt.Sprintf("%s%-*s = %s\n", indent, width, k, Value(v)))
		})
		b.WriteString("}")
		return b.String()
	default:
		panic(fmt.Sprintf("Unsupported HCL value type %T", value))
	}
}

// File joins top-level fragments with blank lines and guarantees a trailing
// newline, matching `terraform fmt` layout.
func File(fragments ...string) string {
	trimmed := make([]string, 0, len(fragments))
	for _, fragment := range fragments {
		if fragment == "" {
			continue
		}
		trimmed = append(trimmed, strings.TrimSuffix(fragment, "\n"))
	}
	return strings.Join(trimmed, "\n\n") + "\n"
}

// SortedKeys is a helper for callers that need deterministic iteration over
// a plain map when building fragments.
func SortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
