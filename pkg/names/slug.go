// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package names

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

const maxNameLength = 63

// Slugify reduces raw to a DNS-1123 label: lowercase alphanumerics and
// hyphens, no leading/trailing hyphen, at most 63 characters. The same string
// is reused as a Kubernetes object name, a Docker image repository component
// and a Terraform resource tag, so this is the most restrictive shape any of
// those accept.
//
// When truncation is needed, the first 8 hex characters of the sha256 of the
// full input are appended so that two long inputs differing only in their
// tails keep distinct names.
func Slugify(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(raw) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}

	slug := b.String()
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	slug = strings.Trim(slug, "-")

	if slug == "" {
		// Nothing usable in the input; derive a stable name from its hash.
		sum := sha256.Sum256([]byte(raw))
		return fmt.Sprintf("n%x", sum[:4])
	}

	if len(slug) > maxNameLength {
		sum := sha256.Sum256([]byte(raw))
		suffix := fmt.Sprintf("-%x", sum[:4])
		slug = strings.TrimRight(slug[:maxNameLength-len(suffix)], "-") + suffix
	}
	return slug
}

// Underscore converts a resolved name into its Terraform identifier spelling.
// Centralized here so that generators never invent their own variant of a
// registered name.
func Underscore(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}
