// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

// Package output commits validated artifacts to the target directory. The
// write is two-phase: every artifact is compared against the directory and
// the previous run's manifest first, and only a conflict-free plan touches
// disk, so the user never ends up with half a scaffold.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/k14s/difflib"

	"carvel.dev/stamp/pkg/artifact"
	"carvel.dev/stamp/pkg/cmd/ui"
)

// Conflict describes a file on disk that differs both from the staged
// content and from what the previous run recorded, meaning the user edited
// it by hand.
type Conflict struct {
	Path string
	Diff string
}

// WriteConflictError aggregates every conflicting path found during the plan
// phase; nothing was written.
type WriteConflictError struct {
	Conflicts []Conflict
}

func (e WriteConflictError) Error() string {
	paths := make([]string, len(e.Conflicts))
	for i, c := range e.Conflicts {
		paths[i] = c.Path
	}
	return fmt.Sprintf("Refusing to overwrite locally modified files (rerun with --dry-run to preview the changes, or --force to overwrite): %s",
		strings.Join(paths, ", "))
}

// Report counts the terminal state of every artifact after a run.
type Report struct {
	Written int
	Skipped int
}

type action int

const (
	actionWrite action = iota
	actionSkip
)

// Writer commits staged artifacts under root. With force set, hand-edited
// files are overwritten instead of reported as conflicts; with dryRun set,
// the plan is reported, disk is left untouched and artifacts stay in the
// validated state.
type Writer struct {
	root   string
	force  bool
	dryRun bool
	ui     ui.UI
}

func NewWriter(root string, force, dryRun bool, ui ui.UI) *Writer {
	return &Writer{root: root, force: force, dryRun: dryRun, ui: ui}
}

// Write plans all artifacts, then commits the plan. All staged artifacts
// must be in the validated state. On conflict every conflicting artifact is
// transitioned and WriteConflictError returned with nothing written.
func (w *Writer) Write(staged []*artifact.Staged) (Report, error) {
	manifest, err := LoadManifest(w.root)
	if err != nil {
		return Report{}, err
	}

	actions := make([]action, len(staged))
	var conflicts []Conflict

	for i, s := range staged {
		act, conflict, err := w.plan(s, manifest)
		if err != nil {
			return Report{}, err
		}
		if conflict != nil {
			conflicts = append(conflicts, *conflict)
			continue
		}
		actions[i] = act
	}

	if len(conflicts) > 0 {
		for _, c := range conflicts {
			w.ui.Warnf("conflict: %s\n%s\n", c.Path, c.Diff)
		}
		for _, s := range staged {
			for _, c := range conflicts {
				if s.Path == c.Path {
					err := s.Transition(artifact.StateConflict)
					if err != nil {
						return Report{}, err
					}
				}
			}
		}
		return Report{}, WriteConflictError{Conflicts: conflicts}
	}

	return w.commit(staged, actions, manifest)
}

// plan decides what to do with one artifact without touching disk:
//
//   - absent on disk: write
//   - identical to staged content: skip
//   - matches the hash this tool recorded last run: write (ours, unmodified)
//   - anything else: conflict, unless force
func (w *Writer) plan(s *artifact.Staged, manifest *Manifest) (action, *Conflict, error) {
	existing, err := os.ReadFile(filepath.Join(w.root, s.Path))
	if err != nil {
		if os.IsNotExist(err) {
			return actionWrite, nil, nil
		}
		return 0, nil, fmt.Errorf("Reading existing '%s': %s", s.Path, err)
	}

	if string(existing) == string(s.Data) {
		return actionSkip, nil, nil
	}
	if w.force {
		return actionWrite, nil, nil
	}
	if recorded, found := manifest.Hash(s.Path); found && recorded == HashBytes(existing) {
		return actionWrite, nil, nil
	}

	diff := difflib.PPDiff(
		strings.Split(string(existing), "\n"),
		strings.Split(string(s.Data), "\n"))

	return 0, &Conflict{Path: s.Path, Diff: diff}, nil
}

func (w *Writer) commit(staged []*artifact.Staged, actions []action, manifest *Manifest) (Report, error) {
	var report Report

	for i, s := range staged {
		switch actions[i] {
		case actionSkip:
			w.ui.Debugf("unchanged: %s\n", s.Path)
			if !w.dryRun {
				err := s.Transition(artifact.StateSkipped)
				if err != nil {
					return report, err
				}
			}
			manifest.Record(s.Path, s.Data)
			report.Skipped++

		case actionWrite:
			if w.dryRun {
				w.ui.Printf("would create: %s\n", s.Path)
			} else {
				w.ui.Printf("creating: %s\n", s.Path)
				err := w.createFile(s.Path, s.Data)
				if err != nil {
					return report, err
				}
				err = s.Transition(artifact.StateWritten)
				if err != nil {
					return report, err
				}
			}
			manifest.Record(s.Path, s.Data)
			report.Written++
		}
	}

	if !w.dryRun {
		data, err := manifest.Bytes()
		if err != nil {
			return report, err
		}
		err = w.createFile(ManifestPath, data)
		if err != nil {
			return report, fmt.Errorf("Writing manifest: %s", err)
		}
	}

	return report, nil
}

func (w *Writer) createFile(relPath string, data []byte) error {
	path := filepath.Join(w.root, relPath)

	err := os.MkdirAll(filepath.Dir(path), 0700)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}
