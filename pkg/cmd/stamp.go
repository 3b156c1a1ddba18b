// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/cppforlife/cobrautil"
	"github.com/spf13/cobra"

	cmdgen "carvel.dev/stamp/pkg/cmd/generate"
	"carvel.dev/stamp/pkg/version"
)

type StampOptions struct{}

func NewDefaultStampOptions() *StampOptions {
	return &StampOptions{}
}

func NewDefaultStampCmd() *cobra.Command {
	return NewStampCmd(NewDefaultStampOptions())
}

func NewStampCmd(o *StampOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "stamp",
		Version: version.Version,
		Short:   "stamp scaffolds deployment configuration",
		Long: `stamp scaffolds consistent deployment configuration for a project:
CI/CD workflows, Terraform modules, Kubernetes manifests, Helm charts
and repository governance files that all agree on names and references.`,
	}

	// Affects children as well
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	// Disable docs header
	cmd.DisableAutoGenTag = true

	cmd.AddCommand(NewVersionCmd(NewVersionOptions()))
	cmd.AddCommand(cmdgen.NewCmd(cmdgen.NewOptions()))

	// Reconfigure Commands
	cobrautil.VisitCommands(cmd, cobrautil.ReconfigureCmdWithSubcmd,
		cobrautil.DisallowExtraArgs, cobrautil.WrapRunEForCmd(cobrautil.ResolveFlagsForCmd))

	return cmd
}
