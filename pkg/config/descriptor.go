// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// DescriptorFileName is the optional TOML project descriptor looked up in
// the output directory.
const DescriptorFileName = "stamp.toml"

// Descriptor mirrors Raw with pointer fields so that an absent key is
// distinguishable from an explicit false; CLI flags win over descriptor
// values, which win over defaults.
type Descriptor struct {
	Name             string `toml:"name"`
	TypeScript       *bool  `toml:"typescript"`
	Monorepo         *bool  `toml:"monorepo"`
	Kubernetes       *bool  `toml:"kubernetes"`
	SecurityScanning *bool  `toml:"security_scanning"`
	Observability    *bool  `toml:"observability"`
	Helm             *bool  `toml:"helm"`
	ServiceMesh      *bool  `toml:"service_mesh"`
	CloudTarget      string `toml:"cloud_target"`
	PackageManager   string `toml:"package_manager"`
}

// LoadDescriptor parses the descriptor at path. A missing file is not an
// error; it returns an empty Descriptor.
func LoadDescriptor(path string) (Descriptor, error) {
	var desc Descriptor

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Descriptor{}, nil
		}
		return Descriptor{}, fmt.Errorf("Reading descriptor: %s", err)
	}

	err = toml.Unmarshal(data, &desc)
	if err != nil {
		return Descriptor{}, fmt.Errorf("Parsing descriptor %s: %s", path, err)
	}
	return desc, nil
}

// MergeInto fills unset fields of raw from the descriptor.
func (d Descriptor) MergeInto(raw *Raw) {
	if raw.ProjectName == "" {
		raw.ProjectName = d.Name
	}
	mergeBool := func(dst *bool, src *bool) {
		if src != nil && !*dst {
			*dst = *src
		}
	}
	mergeBool(&raw.UseTypeScript, d.TypeScript)
	mergeBool(&raw.Monorepo, d.Monorepo)
	mergeBool(&raw.Kubernetes, d.Kubernetes)
	mergeBool(&raw.SecurityScanning, d.SecurityScanning)
	mergeBool(&raw.Observability, d.Observability)
	mergeBool(&raw.Helm, d.Helm)
	mergeBool(&raw.ServiceMesh, d.ServiceMesh)
	if raw.CloudTarget == "" {
		raw.CloudTarget = d.CloudTarget
	}
	if raw.PackageManager == "" {
		raw.PackageManager = d.PackageManager
	}
}

// InferProjectName reads the name of an existing project manifest
// (package.json) in dir. Only the name field is consulted; the manifest's
// dependencies, scripts and business logic are never parsed or altered.
func InferProjectName(dir string) (string, bool) {
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		return "", false
	}

	var manifest struct {
		Name string `json:"name"`
	}
	err = json.Unmarshal(data, &manifest)
	if err != nil || manifest.Name == "" {
		return "", false
	}
	return manifest.Name, true
}
