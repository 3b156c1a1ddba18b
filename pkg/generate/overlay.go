// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package generate

import (
	"fmt"

	"carvel.dev/stamp/pkg/orderedmap"
)

// Overlay is an environment-specific patch over the canonical base
// Deployment. Only scale/value fields may vary; the names an overlay patches
// are identical to the base artifact's names, so nothing outside this set
// can drift between environments.
type Overlay struct {
	EnvName       string
	ReplicaCount  int
	CPURequest    string
	MemoryRequest string
	CPULimit      string
	MemoryLimit   string
	ImageTag      string
}

// DefaultOverlays returns the built-in environment ladder.
func DefaultOverlays() []Overlay {
	return []Overlay{
		{EnvName: "development", ReplicaCount: 1, CPURequest: "100m", MemoryRequest: "128Mi", CPULimit: "250m", MemoryLimit: "256Mi", ImageTag: "dev"},
		{EnvName: "staging", ReplicaCount: 2, CPURequest: "100m", MemoryRequest: "128Mi", CPULimit: "500m", MemoryLimit: "512Mi", ImageTag: "staging"},
		{EnvName: "production", ReplicaCount: 3, CPURequest: "250m", MemoryRequest: "256Mi", CPULimit: "1", MemoryLimit: "1Gi", ImageTag: "stable"},
	}
}

// PatchDocument is the minimal strategic-merge patch for one environment:
// only the fields allowed to vary, addressed by the base artifact's names.
func (o Overlay) PatchDocument(name string) *orderedmap.Map {
	return orderedmap.Pairs(
		"apiVersion", "apps/v1",
		"kind", "Deployment",
		"metadata", orderedmap.Pairs("name", name),
		"spec", orderedmap.Pairs(
			"replicas", o.ReplicaCount,
			"template", orderedmap.Pairs(
				"spec", orderedmap.Pairs(
					"containers", []interface{}{
						orderedmap.Pairs(
							"name", name,
							"image", name+":"+o.ImageTag,
							"resources", resourcesSpec(o.CPURequest, o.MemoryRequest, o.CPULimit, o.MemoryLimit),
						),
					},
				),
			),
		),
	)
}

// Apply patches a copy of the base Deployment document with the overlay's
// fields and returns the per-environment document. The base is never
// mutated.
func (o Overlay) Apply(base *orderedmap.Map) (*orderedmap.Map, error) {
	doc := base.Copy()

	spec, err := nestedMap(doc, "spec")
	if err != nil {
		return nil, err
	}
	spec.Set("replicas", o.ReplicaCount)

	podSpec, err := nestedMap(spec, "template", "spec")
	if err != nil {
		return nil, err
	}

	containersVal, found := podSpec.Get("containers")
	if !found {
		return nil, fmt.Errorf("Overlay %s: base deployment has no containers", o.EnvName)
	}
	containers, ok := containersVal.([]interface{})
	if !ok || len(containers) == 0 {
		return nil, fmt.Errorf("Overlay %s: base deployment containers are malformed", o.EnvName)
	}
	container, ok := containers[0].(*orderedmap.Map)
	if !ok {
		return nil, fmt.Errorf("Overlay %s: base deployment container is malformed", o.EnvName)
	}

	nameVal, _ := container.Get("name")
	name, _ := nameVal.(string)
	container.Set("image", name+":"+o.ImageTag)
	container.Set("resources", resourcesSpec(o.CPURequest, o.MemoryRequest, o.CPULimit, o.MemoryLimit))

	return doc, nil
}

func nestedMap(m *orderedmap.Map, path ...string) (*orderedmap.Map, error) {
	cur := m
	for _, key := range path {
		val, found := cur.Get(key)
		if !found {
			return nil, fmt.Errorf("Missing key '%s'", key)
		}
		next, ok := val.(*orderedmap.Map)
		if !ok {
			return nil, fmt.Errorf("Expected key '%s' to hold a map, was %T", key, val)
		}
		cur = next
	}
	return cur, nil
}
