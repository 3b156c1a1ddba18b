// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"carvel.dev/stamp/pkg/artifact"
	"carvel.dev/stamp/pkg/orderedmap"
	"carvel.dev/stamp/pkg/render"
)

// ManifestPath is where a run records the content hash of every file it
// wrote, relative to the output directory. On the next run the manifest is
// how the writer tells "file still as we left it" apart from "file edited by
// hand".
const ManifestPath = ".stamp/manifest.yml"

// Manifest maps output-relative paths to the sha256 of the content written
// in the previous run.
type Manifest struct {
	hashes map[string]string
}

func NewManifest() *Manifest {
	return &Manifest{hashes: map[string]string{}}
}

// LoadManifest reads the manifest under root; a missing manifest (first run,
// or user deleted it) is an empty one, not an error.
func LoadManifest(root string) (*Manifest, error) {
	m := NewManifest()

	data, err := os.ReadFile(filepath.Join(root, ManifestPath))
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, fmt.Errorf("Reading manifest: %s", err)
	}

	var parsed map[string]string
	err = yaml.Unmarshal(data, &parsed)
	if err != nil {
		return nil, fmt.Errorf("Parsing manifest: %s", err)
	}
	for path, hash := range parsed {
		m.hashes[path] = hash
	}
	return m, nil
}

func (m *Manifest) Hash(path string) (string, bool) {
	hash, found := m.hashes[path]
	return hash, found
}

func (m *Manifest) Record(path string, data []byte) {
	m.hashes[path] = HashBytes(data)
}

// Bytes renders the manifest with sorted paths so successive runs produce
// identical files.
func (m *Manifest) Bytes() ([]byte, error) {
	paths := make([]string, 0, len(m.hashes))
	for path := range m.hashes {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	body := orderedmap.New()
	for _, path := range paths {
		body.Set(path, m.hashes[path])
	}

	return render.Render(artifact.Artifact{
		Path:   ManifestPath,
		Format: artifact.FormatYAML,
		Body:   body,
	})
}

func HashBytes(data []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(data))
}
