// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package generate

import (
	"fmt"
	"strings"

	"carvel.dev/stamp/pkg/artifact"
	"carvel.dev/stamp/pkg/config"
	"carvel.dev/stamp/pkg/names"
	"carvel.dev/stamp/pkg/orderedmap"
)

// helmArtifacts emits a chart that renders the same resource names as the
// plain manifests; templating is limited to the scale/value fields the
// overlays are allowed to vary.
func (g InfrastructureGenerator) helmArtifacts(conf config.Configuration, reg *names.Registry) []artifact.Artifact {
	chartName := reg.Resolve(names.ConceptProject)
	appName := reg.Resolve(ConceptAPI)
	chartDir := fmt.Sprintf("helm/charts/%s", chartName)

	chartYAML := artifact.Artifact{
		Path:   chartDir + "/Chart.yaml",
		Format: artifact.FormatYAML,
		Body: orderedmap.Pairs(
			"apiVersion", "v2",
			"name", chartName,
			"description", "Deployment chart for "+chartName,
			"type", "application",
			"version", "0.1.0",
			"appVersion", "0.1.0",
		),
	}

	valuesYAML := artifact.Artifact{
		Path:   chartDir + "/values.yaml",
		Format: artifact.FormatYAML,
		Body: orderedmap.Pairs(
			"replicaCount", 1,
			"image", orderedmap.Pairs("repository", appName, "tag", "latest"),
			"service", orderedmap.Pairs("port", 80),
			"resources", resourcesSpec("100m", "128Mi", "500m", "512Mi"),
			"autoscaling", orderedmap.Pairs(
				"enabled", true,
				"minReplicas", 1,
				"maxReplicas", 5,
				"targetCPUUtilizationPercentage", 80,
			),
		),
	}

	deploymentTemplate := artifact.Artifact{
		Path:      chartDir + "/templates/deployment.yaml",
		Format:    artifact.FormatText,
		DependsOn: []artifact.Ref{valuesYAML.Ref()},
		Body: strings.Join([]string{
			"apiVersion: apps/v1",
			"kind: Deployment",
			"metadata:",
			"  name: " + appName,
			"  labels:",
			"    app.kubernetes.io/name: " + appName,
			"spec:",
			"  replicas: {{ .Values.replicaCount }}",
			"  selector:",
			"    matchLabels:",
			"      app.kubernetes.io/name: " + appName,
			"  template:",
			"    metadata:",
			"      labels:",
			"        app.kubernetes.io/name: " + appName,
			"    spec:",
			"      serviceAccountName: " + reg.Resolve(ConceptServiceAccount),
			"      containers:",
			"        - name: " + appName,
			`          image: "{{ .Values.image.repository }}:{{ .Values.image.tag }}"`,
			"          ports:",
			"            - name: http",
			"              containerPort: 3000",
			"          envFrom:",
			"            - secretRef:",
			"                name: " + reg.Resolve(ConceptSecrets),
			"          resources:",
			"            {{- toYaml .Values.resources | nindent 12 }}",
		}, "\n"),
	}

	serviceTemplate := artifact.Artifact{
		Path:      chartDir + "/templates/service.yaml",
		Format:    artifact.FormatText,
		DependsOn: []artifact.Ref{deploymentTemplate.Ref()},
		Body: strings.Join([]string{
			"apiVersion: v1",
			"kind: Service",
			"metadata:",
			"  name: " + appName,
			"spec:",
			"  selector:",
			"    app.kubernetes.io/name: " + appName,
			"  ports:",
			"    - name: http",
			"      port: {{ .Values.service.port }}",
			"      targetPort: http",
		}, "\n"),
	}

	helmignore := artifact.Artifact{
		Path:   chartDir + "/.helmignore",
		Format: artifact.FormatText,
		Body:   ".git\n*.tgz\n",
	}

	return []artifact.Artifact{chartYAML, valuesYAML, deploymentTemplate, serviceTemplate, helmignore}
}
