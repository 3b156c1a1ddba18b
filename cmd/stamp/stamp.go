// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"os"

	uierrs "github.com/cppforlife/go-cli-ui/errors"

	"carvel.dev/stamp/pkg/cmd"
	"carvel.dev/stamp/pkg/config"
	"carvel.dev/stamp/pkg/output"
)

func main() {
	command := cmd.NewDefaultStampCmd()

	err := command.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "stamp: Error: %s\n", uierrs.NewMultiLineError(err))
		os.Exit(exitCode(err))
	}
}

// exitCode distinguishes user-fixable failures from internal ones:
// 1 for invalid configuration, 2 for write conflicts, 3 for everything else.
func exitCode(err error) int {
	var validationErrs config.ValidationErrors
	if errors.As(err, &validationErrs) {
		return 1
	}
	var conflictErr output.WriteConflictError
	if errors.As(err, &conflictErr) {
		return 2
	}
	return 3
}
