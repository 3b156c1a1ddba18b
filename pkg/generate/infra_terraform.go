// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package generate

import (
	"fmt"

	"carvel.dev/stamp/pkg/artifact"
	"carvel.dev/stamp/pkg/config"
	"carvel.dev/stamp/pkg/hclfmt"
	"carvel.dev/stamp/pkg/names"
	"carvel.dev/stamp/pkg/orderedmap"
)

// Output names each network module exposes. The cluster wiring in the
// environment roots references these exact identifiers; the generator and
// the reference share this single definition so they cannot drift.
const (
	outputVPCID          = "vpc_id"
	outputPrivateSubnets = "private_subnet_ids"
	outputClusterName    = "cluster_name"
	outputClusterHost    = "cluster_endpoint"
)

func (g InfrastructureGenerator) terraformArtifacts(conf config.Configuration, reg *names.Registry) []artifact.Artifact {
	var arts []artifact.Artifact

	for _, cloud := range conf.Clouds() {
		arts = append(arts, g.networkModule(cloud, reg)...)
		arts = append(arts, g.clusterModule(cloud, reg)...)
	}
	for _, envName := range EnvNames {
		arts = append(arts, g.environmentRoot(conf, reg, envName)...)
	}
	return arts
}

func modulePath(cloud config.CloudTarget, module, file string) string {
	return fmt.Sprintf("infrastructure/terraform/modules/%s/%s/%s", cloud, module, file)
}

func (g InfrastructureGenerator) networkModule(cloud config.CloudTarget, reg *names.Registry) []artifact.Artifact {
	netName := reg.Resolve(ConceptNetwork)

	var mainBody string
	switch cloud {
	case config.CloudAWS:
		mainBody = hclfmt.File(
			hclfmt.Block("resource", []string{"aws_vpc", "this"},
				hclfmt.RawAttr("cidr_block", "var.cidr_block"),
				hclfmt.Attr("enable_dns_support", true),
				hclfmt.Attr("enable_dns_hostnames", true),
				hclfmt.Attr("tags", orderedmap.Pairs("Name", netName)),
			),
			hclfmt.Block("resource", []string{"aws_subnet", "private"},
				hclfmt.RawAttr("count", "length(var.availability_zones)"),
				hclfmt.RawAttr("vpc_id", "aws_vpc.this.id"),
				hclfmt.RawAttr("cidr_block", "cidrsubnet(var.cidr_block, 4, count.index)"),
				hclfmt.RawAttr("availability_zone", "var.availability_zones[count.index]"),
				hclfmt.Attr("tags", orderedmap.Pairs("Name", netName)),
			),
		)
	case config.CloudGCP:
		mainBody = hclfmt.File(
			hclfmt.Block("resource", []string{"google_compute_network", "this"},
				hclfmt.Attr("name", netName),
				hclfmt.Attr("auto_create_subnetworks", false),
			),
			hclfmt.Block("resource", []string{"google_compute_subnetwork", "private"},
				hclfmt.RawAttr("count", "length(var.availability_zones)"),
				hclfmt.RawAttr("name", fmt.Sprintf("%q", netName+"-${count.index}")),
				hclfmt.RawAttr("network", "google_compute_network.this.id"),
				hclfmt.RawAttr("ip_cidr_range", "cidrsubnet(var.cidr_block, 4, count.index)"),
				hclfmt.Attr("private_ip_google_access", true),
			),
		)
	default:
		mainBody = hclfmt.File(
			hclfmt.Block("resource", []string{"azurerm_virtual_network", "this"},
				hclfmt.Attr("name", netName),
				hclfmt.RawAttr("address_space", "[var.cidr_block]"),
				hclfmt.RawAttr("location", "var.location"),
				hclfmt.RawAttr("resource_group_name", "var.resource_group_name"),
			),
			hclfmt.Block("resource", []string{"azurerm_subnet", "private"},
				hclfmt.RawAttr("count", "length(var.availability_zones)"),
				hclfmt.RawAttr("name", fmt.Sprintf("%q", netName+"-${count.index}")),
				hclfmt.RawAttr("resource_group_name", "var.resource_group_name"),
				hclfmt.RawAttr("virtual_network_name", "azurerm_virtual_network.this.name"),
				hclfmt.RawAttr("address_prefixes", "[cidrsubnet(var.cidr_block, 4, count.index)]"),
			),
		)
	}

	main := artifact.Artifact{
		Path:   modulePath(cloud, "network", "main.tf"),
		Format: artifact.FormatHCL,
		Body:   mainBody,
	}

	variables := artifact.Artifact{
		Path:   modulePath(cloud, "network", "variables.tf"),
		Format: artifact.FormatHCL,
		Body: hclfmt.File(
			hclfmt.Block("variable", []string{"cidr_block"},
				hclfmt.RawAttr("type", "string"),
				hclfmt.Attr("default", "10.0.0.0/16"),
			),
			hclfmt.Block("variable", []string{"availability_zones"},
				hclfmt.RawAttr("type", "list(string)"),
			),
			g.extraNetworkVariables(cloud),
		),
	}

	outputs := artifact.Artifact{
		Path:      modulePath(cloud, "network", "outputs.tf"),
		Format:    artifact.FormatHCL,
		DependsOn: []artifact.Ref{main.Ref()},
		Body: hclfmt.File(
			hclfmt.Block("output", []string{outputVPCID},
				hclfmt.RawAttr("value", g.vpcIDExpr(cloud)),
			),
			hclfmt.Block("output", []string{outputPrivateSubnets},
				hclfmt.RawAttr("value", g.subnetIDsExpr(cloud)),
			),
		),
	}

	return []artifact.Artifact{main, variables, outputs}
}

func (g InfrastructureGenerator) extraNetworkVariables(cloud config.CloudTarget) string {
	if cloud != config.CloudAzure {
		return ""
	}
	return hclfmt.File(
		hclfmt.Block("variable", []string{"location"},
			hclfmt.RawAttr("type", "string"),
		),
		hclfmt.Block("variable", []string{"resource_group_name"},
			hclfmt.RawAttr("type", "string"),
		),
	)
}

func (g InfrastructureGenerator) vpcIDExpr(cloud config.CloudTarget) string {
	switch cloud {
	case config.CloudAWS:
		return "aws_vpc.this.id"
	case config.CloudGCP:
		return "google_compute_network.this.id"
	default:
		return "azurerm_virtual_network.this.id"
	}
}

func (g InfrastructureGenerator) subnetIDsExpr(cloud config.CloudTarget) string {
	switch cloud {
	case config.CloudAWS:
		return "aws_subnet.private[*].id"
	case config.CloudGCP:
		return "google_compute_subnetwork.private[*].id"
	default:
		return "azurerm_subnet.private[*].id"
	}
}

func (g InfrastructureGenerator) clusterModule(cloud config.CloudTarget, reg *names.Registry) []artifact.Artifact {
	clusterName := reg.Resolve(ConceptCluster)

	var mainBody string
	switch cloud {
	case config.CloudAWS:
		mainBody = hclfmt.File(
			hclfmt.Block("resource", []string{"aws_iam_role", "cluster"},
				hclfmt.Attr("name", clusterName+"-role"),
				hclfmt.Heredoc("assume_role_policy", "EOF", awsAssumeRolePolicy),
			),
			hclfmt.Block("resource", []string{"aws_eks_cluster", "this"},
				hclfmt.RawAttr("name", "var.cluster_name"),
				hclfmt.RawAttr("role_arn", "aws_iam_role.cluster.arn"),
				hclfmt.Block("vpc_config", nil,
					hclfmt.RawAttr("subnet_ids", "var.subnet_ids"),
				),
			),
		)
	case config.CloudGCP:
		mainBody = hclfmt.File(
			hclfmt.Block("resource", []string{"google_container_cluster", "this"},
				hclfmt.RawAttr("name", "var.cluster_name"),
				hclfmt.RawAttr("location", "var.location"),
				hclfmt.RawAttr("network", "var.network_id"),
				hclfmt.RawAttr("subnetwork", "var.subnet_ids[0]"),
				hclfmt.Attr("enable_autopilot", true),
			),
		)
	default:
		mainBody = hclfmt.File(
			hclfmt.Block("resource", []string{"azurerm_kubernetes_cluster", "this"},
				hclfmt.RawAttr("name", "var.cluster_name"),
				hclfmt.RawAttr("location", "var.location"),
				hclfmt.RawAttr("resource_group_name", "var.resource_group_name"),
				hclfmt.RawAttr("dns_prefix", "var.cluster_name"),
				hclfmt.Block("default_node_pool", nil,
					hclfmt.Attr("name", "default"),
					hclfmt.Attr("node_count", 2),
					hclfmt.Attr("vm_size", "Standard_D2s_v5"),
					hclfmt.RawAttr("vnet_subnet_id", "var.subnet_ids[0]"),
				),
				hclfmt.Block("identity", nil,
					hclfmt.Attr("type", "SystemAssigned"),
				),
			),
		)
	}

	main := artifact.Artifact{
		Path:   modulePath(cloud, "cluster", "main.tf"),
		Format: artifact.FormatHCL,
		Body:   mainBody,
	}

	varFragments := []string{
		hclfmt.Block("variable", []string{"cluster_name"},
			hclfmt.RawAttr("type", "string"),
		),
		hclfmt.Block("variable", []string{"subnet_ids"},
			hclfmt.RawAttr("type", "list(string)"),
		),
	}
	switch cloud {
	case config.CloudGCP:
		varFragments = append(varFragments,
			hclfmt.Block("variable", []string{"location"}, hclfmt.RawAttr("type", "string")),
			hclfmt.Block("variable", []string{"network_id"}, hclfmt.RawAttr("type", "string")),
		)
	case config.CloudAzure:
		varFragments = append(varFragments,
			hclfmt.Block("variable", []string{"location"}, hclfmt.RawAttr("type", "string")),
			hclfmt.Block("variable", []string{"resource_group_name"}, hclfmt.RawAttr("type", "string")),
		)
	}

	variables := artifact.Artifact{
		Path:   modulePath(cloud, "cluster", "variables.tf"),
		Format: artifact.FormatHCL,
		Body:   hclfmt.File(varFragments...),
	}

	outputs := artifact.Artifact{
		Path:      modulePath(cloud, "cluster", "outputs.tf"),
		Format:    artifact.FormatHCL,
		DependsOn: []artifact.Ref{main.Ref()},
		Body: hclfmt.File(
			hclfmt.Block("output", []string{outputClusterName},
				hclfmt.RawAttr("value", "var.cluster_name"),
			),
			hclfmt.Block("output", []string{outputClusterHost},
				hclfmt.RawAttr("value", g.clusterEndpointExpr(cloud)),
			),
		),
	}

	return []artifact.Artifact{main, variables, outputs}
}

func (g InfrastructureGenerator) clusterEndpointExpr(cloud config.CloudTarget) string {
	switch cloud {
	case config.CloudAWS:
		return "aws_eks_cluster.this.endpoint"
	case config.CloudGCP:
		return "google_container_cluster.this.endpoint"
	default:
		return "azurerm_kubernetes_cluster.this.kube_config[0].host"
	}
}

// environmentRoot wires the per-cloud modules together for one environment.
// SubnetIDsReference returns the exact expression used here so tests can
// assert it matches the network module's declared output.
func (g InfrastructureGenerator) environmentRoot(conf config.Configuration, reg *names.Registry, envName string) []artifact.Artifact {
	clusterName := reg.Resolve(ConceptCluster)

	var fragments []string
	var deps []artifact.Ref

	for _, cloud := range conf.Clouds() {
		networkLabel := networkModuleLabel(cloud, reg)
		clusterLabel := clusterModuleLabel(cloud, reg)

		networkAttrs := []string{
			hclfmt.Attr("source", fmt.Sprintf("../../modules/%s/network", cloud)),
			hclfmt.Attr("availability_zones", availabilityZones(cloud)),
		}
		clusterAttrs := []string{
			hclfmt.Attr("source", fmt.Sprintf("../../modules/%s/cluster", cloud)),
			hclfmt.Attr("cluster_name", fmt.Sprintf("%s-%s", clusterName, envName)),
			hclfmt.RawAttr("subnet_ids", SubnetIDsReference(cloud, reg)),
		}
		switch cloud {
		case config.CloudGCP:
			clusterAttrs = append(clusterAttrs,
				hclfmt.Attr("location", "us-central1"),
				hclfmt.RawAttr("network_id", fmt.Sprintf("module.%s.%s", networkLabel, outputVPCID)),
			)
		case config.CloudAzure:
			networkAttrs = append(networkAttrs,
				hclfmt.Attr("location", "eastus"),
				hclfmt.RawAttr("resource_group_name", "var.resource_group_name"),
			)
			clusterAttrs = append(clusterAttrs,
				hclfmt.Attr("location", "eastus"),
				hclfmt.RawAttr("resource_group_name", "var.resource_group_name"),
			)
		}

		fragments = append(fragments,
			hclfmt.Block("module", []string{networkLabel}, networkAttrs...),
			hclfmt.Block("module", []string{clusterLabel}, clusterAttrs...),
		)
		deps = append(deps,
			artifact.Ref{Path: modulePath(cloud, "network", "outputs.tf")},
			artifact.Ref{Path: modulePath(cloud, "cluster", "main.tf")},
		)
	}

	main := artifact.Artifact{
		Path:      fmt.Sprintf("infrastructure/terraform/environments/%s/main.tf", envName),
		Format:    artifact.FormatHCL,
		DependsOn: deps,
		Body:      hclfmt.File(fragments...),
	}

	versions := artifact.Artifact{
		Path:   fmt.Sprintf("infrastructure/terraform/environments/%s/versions.tf", envName),
		Format: artifact.FormatHCL,
		Body:   g.versionsFile(conf),
	}

	arts := []artifact.Artifact{main, versions}

	for _, cloud := range conf.Clouds() {
		if cloud == config.CloudAzure {
			arts = append(arts, artifact.Artifact{
				Path:   fmt.Sprintf("infrastructure/terraform/environments/%s/variables.tf", envName),
				Format: artifact.FormatHCL,
				Body: hclfmt.File(
					hclfmt.Block("variable", []string{"resource_group_name"},
						hclfmt.RawAttr("type", "string"),
					),
				),
			})
		}
	}
	return arts
}

func (g InfrastructureGenerator) versionsFile(conf config.Configuration) string {
	providers := orderedmap.New()
	for _, cloud := range conf.Clouds() {
		switch cloud {
		case config.CloudAWS:
			providers.Set("aws", orderedmap.Pairs("source", "hashicorp/aws", "version", g.pins.Provider("aws")))
		case config.CloudGCP:
			providers.Set("google", orderedmap.Pairs("source", "hashicorp/google", "version", g.pins.Provider("google")))
		case config.CloudAzure:
			providers.Set("azurerm", orderedmap.Pairs("source", "hashicorp/azurerm", "version", g.pins.Provider("azurerm")))
		}
	}

	var providerBlocks []string
	providers.Iterate(func(k string, v interface{}) {
		providerBlocks = append(providerBlocks, hclfmt.Attr(k, v))
	})

	return hclfmt.File(
		hclfmt.Block("terraform", nil,
			append([]string{hclfmt.Attr("required_version", ">= 1.6.0")},
				hclfmt.Block("required_providers", nil, providerBlocks...))...,
		),
	)
}

func networkModuleLabel(cloud config.CloudTarget, reg *names.Registry) string {
	return names.Underscore(reg.Resolve(ConceptNetwork)) + "_" + string(cloud)
}

func clusterModuleLabel(cloud config.CloudTarget, reg *names.Registry) string {
	return names.Underscore(reg.Resolve(ConceptCluster)) + "_" + string(cloud)
}

// SubnetIDsReference is the expression an environment root uses to pass the
// network module's subnets into the cluster module; exported so tests can
// assert it names the module's declared output exactly.
func SubnetIDsReference(cloud config.CloudTarget, reg *names.Registry) string {
	return fmt.Sprintf("module.%s.%s", networkModuleLabel(cloud, reg), outputPrivateSubnets)
}

func availabilityZones(cloud config.CloudTarget) []string {
	switch cloud {
	case config.CloudAWS:
		return []string{"us-east-1a", "us-east-1b", "us-east-1c"}
	case config.CloudGCP:
		return []string{"us-central1-a", "us-central1-b", "us-central1-c"}
	default:
		return []string{"1", "2", "3"}
	}
}

const awsAssumeRolePolicy = `{
  "Version": "2012-10-17",
  "Statement": [
    {
      "Effect": "Allow",
      "Principal": {"Service": "eks.amazonaws.com"},
      "Action": "sts:AssumeRole"
    }
  ]
}`
