// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package generate

import (
	"context"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"carvel.dev/stamp/pkg/check"
	cmdui "carvel.dev/stamp/pkg/cmd/ui"
	"carvel.dev/stamp/pkg/config"
	"carvel.dev/stamp/pkg/generate"
	"carvel.dev/stamp/pkg/names"
	"carvel.dev/stamp/pkg/output"
	"carvel.dev/stamp/pkg/render"
)

type GenerateOptions struct {
	Name             string
	CloudTarget      string
	PackageManager   string
	TypeScript       bool
	Monorepo         bool
	Kubernetes       bool
	SecurityScanning bool
	Observability    bool
	Helm             bool
	ServiceMesh      bool

	DescriptorPath string
	OutputDir      string
	DryRun         bool
	Force          bool
	RefreshPins    bool
	PinsURL        string
	Debug          bool
}

func NewOptions() *GenerateOptions {
	return &GenerateOptions{
		OutputDir: ".",
		PinsURL:   generate.DefaultPinsURL,
	}
}

func NewCmd(o *GenerateOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate deployment configuration for a project",
		RunE:  func(_ *cobra.Command, _ []string) error { return o.Run() },
	}
	cmd.Flags().StringVar(&o.Name, "name", "", "Project name (inferred from stamp.toml or package.json when omitted)")
	cmd.Flags().StringVar(&o.CloudTarget, "cloud", "", "Cloud target for Terraform modules (aws, gcp, azure, all, none)")
	cmd.Flags().StringVar(&o.PackageManager, "package-manager", "", "Package manager (npm, yarn, pnpm; npm by default)")
	cmd.Flags().BoolVar(&o.TypeScript, "typescript", false, "Emit TypeScript tooling configuration")
	cmd.Flags().BoolVar(&o.Monorepo, "monorepo", false, "Lay the project out as a multi-package workspace")
	cmd.Flags().BoolVar(&o.Kubernetes, "kubernetes", false, "Emit Kubernetes manifests with environment overlays")
	cmd.Flags().BoolVar(&o.SecurityScanning, "security", false, "Emit security scanning workflows")
	cmd.Flags().BoolVar(&o.Observability, "observability", false, "Emit the monitoring stack (requires --kubernetes)")
	cmd.Flags().BoolVar(&o.Helm, "helm", false, "Emit a Helm chart (requires --kubernetes)")
	cmd.Flags().BoolVar(&o.ServiceMesh, "service-mesh", false, "Emit service mesh policies (requires --kubernetes)")
	cmd.Flags().StringVar(&o.DescriptorPath, "descriptor", "", "Project descriptor path (<output-dir>/stamp.toml by default)")
	cmd.Flags().StringVarP(&o.OutputDir, "output-dir", "o", ".", "Directory to write generated files into")
	cmd.Flags().BoolVar(&o.DryRun, "dry-run", false, "Report what would be written without touching disk")
	cmd.Flags().BoolVar(&o.Force, "force", false, "Overwrite locally modified files instead of reporting conflicts")
	cmd.Flags().BoolVar(&o.RefreshPins, "refresh-pins", false, "Check for newer pinned action versions before generating")
	cmd.Flags().StringVar(&o.PinsURL, "pins-url", generate.DefaultPinsURL, "Source of pinned versions consulted by --refresh-pins")
	cmd.Flags().BoolVar(&o.Debug, "debug", false, "Enable debug output")
	return cmd
}

func (o *GenerateOptions) Run() error {
	ui := cmdui.NewTTY(o.Debug)
	t1 := time.Now()

	defer func() {
		ui.Debugf("total: %s\n", time.Since(t1))
	}()

	conf, err := o.resolveConfiguration()
	if err != nil {
		return err
	}

	reg := names.NewRegistry(conf.ProjectName())
	err = generate.RegisterConcepts(conf, reg)
	if err != nil {
		return err
	}
	reg.Freeze()

	ctx := context.Background()

	pins := generate.DefaultPins()
	if o.RefreshPins {
		if !pins.Refresh(ctx, nil, o.PinsURL) {
			ui.Warnf("Pin refresh failed; continuing with last known versions\n")
		}
	}

	res, err := generate.Run(ctx, conf, reg, generate.All(conf, pins))
	if err != nil {
		return err
	}

	staged, err := render.All(res.Artifacts)
	if err != nil {
		return err
	}

	err = check.All(staged, res.Secrets)
	if err != nil {
		return err
	}

	report, err := output.NewWriter(o.OutputDir, o.Force, o.DryRun, ui).Write(staged)
	if err != nil {
		return err
	}

	if o.DryRun {
		ui.Printf("%d files would be written, %d unchanged\n", report.Written, report.Skipped)
	} else {
		ui.Printf("%d files written, %d unchanged\n", report.Written, report.Skipped)
	}
	return nil
}

// resolveConfiguration layers option sources: CLI flags win over the TOML
// descriptor, which wins over a name inferred from an existing package.json.
func (o *GenerateOptions) resolveConfiguration() (config.Configuration, error) {
	raw := config.Raw{
		ProjectName:      o.Name,
		UseTypeScript:    o.TypeScript,
		Monorepo:         o.Monorepo,
		Kubernetes:       o.Kubernetes,
		SecurityScanning: o.SecurityScanning,
		Observability:    o.Observability,
		Helm:             o.Helm,
		ServiceMesh:      o.ServiceMesh,
		CloudTarget:      o.CloudTarget,
		PackageManager:   o.PackageManager,
	}

	descPath := o.DescriptorPath
	if descPath == "" {
		descPath = filepath.Join(o.OutputDir, config.DescriptorFileName)
	}
	desc, err := config.LoadDescriptor(descPath)
	if err != nil {
		return config.Configuration{}, err
	}
	desc.MergeInto(&raw)

	if raw.ProjectName == "" {
		if name, found := config.InferProjectName(o.OutputDir); found {
			raw.ProjectName = name
		}
	}

	return config.Resolve(raw)
}
