// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package cmd is home to the full set of stamp's "commands" -- instances of
cobra.Command (not to be confused with ./cmd which contains the bootstrapping
for the stamp executable).

For a list of commands run:

	$ stamp help

The primary command is "generate".
*/
package cmd
