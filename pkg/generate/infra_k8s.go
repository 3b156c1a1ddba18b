// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package generate

import (
	"fmt"

	"carvel.dev/stamp/pkg/artifact"
	"carvel.dev/stamp/pkg/config"
	"carvel.dev/stamp/pkg/names"
	"carvel.dev/stamp/pkg/orderedmap"
)

func appLabels(name string) *orderedmap.Map {
	return orderedmap.Pairs("app.kubernetes.io/name", name)
}

func resourcesSpec(cpuReq, memReq, cpuLim, memLim string) *orderedmap.Map {
	return orderedmap.Pairs(
		"requests", orderedmap.Pairs("cpu", cpuReq, "memory", memReq),
		"limits", orderedmap.Pairs("cpu", cpuLim, "memory", memLim),
	)
}

func probeSpec(path string, initialDelay int) *orderedmap.Map {
	return orderedmap.Pairs(
		"httpGet", orderedmap.Pairs("path", path, "port", "http"),
		"initialDelaySeconds", initialDelay,
		"periodSeconds", 10,
	)
}

func containerSpec(name, imageTag, cpuReq, memReq, cpuLim, memLim string, reg *names.Registry) *orderedmap.Map {
	return orderedmap.Pairs(
		"name", name,
		"image", name+":"+imageTag,
		"ports", []interface{}{
			orderedmap.Pairs("name", "http", "containerPort", 3000),
		},
		"envFrom", []interface{}{
			orderedmap.Pairs("secretRef", orderedmap.Pairs("name", reg.Resolve(ConceptSecrets))),
			orderedmap.Pairs("configMapRef", orderedmap.Pairs("name", reg.Resolve(ConceptConfig))),
		},
		"readinessProbe", probeSpec("/healthz", 5),
		"livenessProbe", probeSpec("/healthz", 15),
		"resources", resourcesSpec(cpuReq, memReq, cpuLim, memLim),
	)
}

// deploymentDoc builds a Deployment document. The base artifact uses the
// base values; per-environment documents only ever come out of
// Overlay.Apply, never out of a second direct serialization, except in
// equivalence tests.
func deploymentDoc(reg *names.Registry, replicas int, imageTag, cpuReq, memReq, cpuLim, memLim string) *orderedmap.Map {
	name := reg.Resolve(ConceptAPI)
	labels := appLabels(name)

	return orderedmap.Pairs(
		"apiVersion", "apps/v1",
		"kind", "Deployment",
		"metadata", orderedmap.Pairs("name", name, "labels", labels),
		"spec", orderedmap.Pairs(
			"replicas", replicas,
			"selector", orderedmap.Pairs("matchLabels", labels.Copy()),
			"template", orderedmap.Pairs(
				"metadata", orderedmap.Pairs("labels", labels.Copy()),
				"spec", orderedmap.Pairs(
					"serviceAccountName", reg.Resolve(ConceptServiceAccount),
					"securityContext", orderedmap.Pairs("runAsNonRoot", true, "runAsUser", 65532),
					"containers", []interface{}{
						containerSpec(name, imageTag, cpuReq, memReq, cpuLim, memLim, reg),
					},
				),
			),
		),
	)
}

// BaseDeployment is the canonical base the environment overlays patch.
func BaseDeployment(reg *names.Registry) *orderedmap.Map {
	return deploymentDoc(reg, 1, "latest", "100m", "128Mi", "500m", "512Mi")
}

// DeploymentForEnv builds the per-environment document directly; exported
// for the overlay-equivalence property test.
func DeploymentForEnv(reg *names.Registry, o Overlay) *orderedmap.Map {
	return deploymentDoc(reg, o.ReplicaCount, o.ImageTag, o.CPURequest, o.MemoryRequest, o.CPULimit, o.MemoryLimit)
}

func (g InfrastructureGenerator) kubernetesArtifacts(conf config.Configuration, reg *names.Registry) ([]artifact.Artifact, []artifact.SecretReference) {
	name := reg.Resolve(ConceptAPI)
	labels := appLabels(name)

	deployment := artifact.Artifact{
		Path:   "k8s/base/deployment.yaml",
		Format: artifact.FormatYAML,
		Body:   BaseDeployment(reg),
	}

	service := artifact.Artifact{
		Path:   "k8s/base/service.yaml",
		Format: artifact.FormatYAML,
		// The selector must match the Deployment's pod labels.
		DependsOn: []artifact.Ref{deployment.Ref()},
		Body: orderedmap.Pairs(
			"apiVersion", "v1",
			"kind", "Service",
			"metadata", orderedmap.Pairs("name", name, "labels", labels.Copy()),
			"spec", orderedmap.Pairs(
				"selector", labels.Copy(),
				"ports", []interface{}{
					orderedmap.Pairs("name", "http", "port", 80, "targetPort", "http"),
				},
			),
		),
	}

	hpa := artifact.Artifact{
		Path:      "k8s/base/hpa.yaml",
		Format:    artifact.FormatYAML,
		DependsOn: []artifact.Ref{deployment.Ref()},
		Body: orderedmap.Pairs(
			"apiVersion", "autoscaling/v2",
			"kind", "HorizontalPodAutoscaler",
			"metadata", orderedmap.Pairs("name", name),
			"spec", orderedmap.Pairs(
				"scaleTargetRef", orderedmap.Pairs(
					"apiVersion", "apps/v1",
					"kind", "Deployment",
					"name", name,
				),
				"minReplicas", 1,
				"maxReplicas", 5,
				"metrics", []interface{}{
					orderedmap.Pairs(
						"type", "Resource",
						"resource", orderedmap.Pairs(
							"name", "cpu",
							"target", orderedmap.Pairs("type", "Utilization", "averageUtilization", 80),
						),
					),
				},
			),
		),
	}

	networkPolicy := artifact.Artifact{
		Path:      "k8s/base/networkpolicy.yaml",
		Format:    artifact.FormatYAML,
		DependsOn: []artifact.Ref{deployment.Ref()},
		Body: orderedmap.Pairs(
			"apiVersion", "networking.k8s.io/v1",
			"kind", "NetworkPolicy",
			"metadata", orderedmap.Pairs("name", name),
			"spec", orderedmap.Pairs(
				"podSelector", orderedmap.Pairs("matchLabels", labels.Copy()),
				"policyTypes", []interface{}{"Ingress"},
				"ingress", []interface{}{
					orderedmap.Pairs(
						"from", []interface{}{
							orderedmap.Pairs("podSelector", orderedmap.New()),
						},
						"ports", []interface{}{
							orderedmap.Pairs("protocol", "TCP", "port", 3000),
						},
					),
				},
			),
		),
	}

	serviceAccount := artifact.Artifact{
		Path:   "k8s/base/serviceaccount.yaml",
		Format: artifact.FormatYAML,
		Body: orderedmap.Pairs(
			"apiVersion", "v1",
			"kind", "ServiceAccount",
			"metadata", orderedmap.Pairs("name", reg.Resolve(ConceptServiceAccount)),
			"automountServiceAccountToken", false,
		),
	}

	baseKustomization := artifact.Artifact{
		Path:   "k8s/base/kustomization.yaml",
		Format: artifact.FormatYAML,
		DependsOn: []artifact.Ref{
			deployment.Ref(), service.Ref(), hpa.Ref(), networkPolicy.Ref(), serviceAccount.Ref(),
		},
		Body: orderedmap.Pairs(
			"apiVersion", "kustomize.config.k8s.io/v1beta1",
			"kind", "Kustomization",
			"resources", []interface{}{
				"deployment.yaml",
				"service.yaml",
				"hpa.yaml",
				"networkpolicy.yaml",
				"serviceaccount.yaml",
			},
		),
	}

	arts := []artifact.Artifact{deployment, service, hpa, networkPolicy, serviceAccount, baseKustomization}

	for _, o := range DefaultOverlays() {
		arts = append(arts, g.overlayArtifacts(reg, o, deployment.Ref(), baseKustomization.Ref())...)
	}

	if conf.Observability() {
		arts = append(arts, g.observabilityArtifacts(reg, service.Ref())...)
	}
	if conf.ServiceMesh() {
		arts = append(arts, g.meshArtifacts(reg, deployment.Ref())...)
	}

	secrets := []artifact.SecretReference{
		{LogicalName: "DATABASE_URL", Consumers: []artifact.Ref{deployment.Ref()}},
		{LogicalName: "JWT_SECRET", Consumers: []artifact.Ref{deployment.Ref()}},
		{LogicalName: "REDIS_URL", Consumers: []artifact.Ref{deployment.Ref()}},
	}
	return arts, secrets
}

func (g InfrastructureGenerator) overlayArtifacts(reg *names.Registry, o Overlay, baseDeployment, baseKustomization artifact.Ref) []artifact.Artifact {
	name := reg.Resolve(ConceptAPI)
	namespace := reg.Resolve(o.EnvName)

	patch := artifact.Artifact{
		Path:      fmt.Sprintf("k8s/overlays/%s/deployment-patch.yaml", o.EnvName),
		Format:    artifact.FormatYAML,
		DependsOn: []artifact.Ref{baseDeployment},
		Body:      o.PatchDocument(name),
	}

	kustomization := artifact.Artifact{
		Path:      fmt.Sprintf("k8s/overlays/%s/kustomization.yaml", o.EnvName),
		Format:    artifact.FormatYAML,
		DependsOn: []artifact.Ref{baseKustomization, patch.Ref()},
		Body: orderedmap.Pairs(
			"apiVersion", "kustomize.config.k8s.io/v1beta1",
			"kind", "Kustomization",
			"namespace", namespace,
			"resources", []interface{}{"../../base"},
			"patches", []interface{}{
				orderedmap.Pairs("path", "deployment-patch.yaml"),
			},
		),
	}

	return []artifact.Artifact{patch, kustomization}
}

func (g InfrastructureGenerator) observabilityArtifacts(reg *names.Registry, service artifact.Ref) []artifact.Artifact {
	name := reg.Resolve(ConceptAPI)
	labels := appLabels(name)

	serviceMonitor := artifact.Artifact{
		Path:      "observability/servicemonitor.yaml",
		Format:    artifact.FormatYAML,
		DependsOn: []artifact.Ref{service},
		Body: orderedmap.Pairs(
			"apiVersion", "monitoring.coreos.com/v1",
			"kind", "ServiceMonitor",
			"metadata", orderedmap.Pairs("name", name),
			"spec", orderedmap.Pairs(
				"selector", orderedmap.Pairs("matchLabels", labels),
				"endpoints", []interface{}{
					orderedmap.Pairs("port", "http", "path", "/metrics", "interval", "30s"),
				},
			),
		),
	}

	prometheusRule := artifact.Artifact{
		Path:      "observability/prometheusrule.yaml",
		Format:    artifact.FormatYAML,
		DependsOn: []artifact.Ref{serviceMonitor.Ref()},
		Body: orderedmap.Pairs(
			"apiVersion", "monitoring.coreos.com/v1",
			"kind", "PrometheusRule",
			"metadata", orderedmap.Pairs("name", name),
			"spec", orderedmap.Pairs(
				"groups", []interface{}{
					orderedmap.Pairs(
						"name", name+".rules",
						"rules", []interface{}{
							orderedmap.Pairs(
								"alert", "HighErrorRate",
								"expr", fmt.Sprintf(`sum(rate(http_requests_total{job="%s",code=~"5.."}[5m])) > 1`, name),
								"for", "10m",
								"labels", orderedmap.Pairs("severity", "page"),
							),
						},
					),
				},
			),
		),
	}

	dashboard := artifact.Artifact{
		Path:      "observability/grafana-dashboard.json",
		Format:    artifact.FormatJSON,
		DependsOn: []artifact.Ref{serviceMonitor.Ref()},
		Body: orderedmap.Pairs(
			"title", name+" overview",
			"tags", []interface{}{name},
			"panels", []interface{}{
				orderedmap.Pairs(
					"title", "Request rate",
					"type", "timeseries",
					"targets", []interface{}{
						orderedmap.Pairs("expr", fmt.Sprintf(`sum(rate(http_requests_total{job="%s"}[5m]))`, name)),
					},
				),
				orderedmap.Pairs(
					"title", "P95 latency",
					"type", "timeseries",
					"targets", []interface{}{
						orderedmap.Pairs("expr", fmt.Sprintf(`histogram_quantile(0.95, sum(rate(http_request_duration_seconds_bucket{job="%s"}[5m])) by (le))`, name)),
					},
				),
			},
			"schemaVersion", 39,
		),
	}

	return []artifact.Artifact{serviceMonitor, prometheusRule, dashboard}
}

func (g InfrastructureGenerator) meshArtifacts(reg *names.Registry, deployment artifact.Ref) []artifact.Artifact {
	name := reg.Resolve(ConceptAPI)
	namespace := reg.Resolve("production")

	peerAuth := artifact.Artifact{
		Path:      "k8s/mesh/peerauthentication.yaml",
		Format:    artifact.FormatYAML,
		DependsOn: []artifact.Ref{deployment},
		Body: orderedmap.Pairs(
			"apiVersion", "security.istio.io/v1beta1",
			"kind", "PeerAuthentication",
			"metadata", orderedmap.Pairs("name", name, "namespace", namespace),
			"spec", orderedmap.Pairs(
				"selector", orderedmap.Pairs("matchLabels", appLabels(name)),
				"mtls", orderedmap.Pairs("mode", "STRICT"),
			),
		),
	}

	authzPolicy := artifact.Artifact{
		Path:      "k8s/mesh/authorizationpolicy.yaml",
		Format:    artifact.FormatYAML,
		DependsOn: []artifact.Ref{deployment},
		Body: orderedmap.Pairs(
			"apiVersion", "security.istio.io/v1beta1",
			"kind", "AuthorizationPolicy",
			"metadata", orderedmap.Pairs("name", name, "namespace", namespace),
			"spec", orderedmap.Pairs(
				"selector", orderedmap.Pairs("matchLabels", appLabels(name)),
				"action", "ALLOW",
				"rules", []interface{}{
					orderedmap.Pairs(
						"to", []interface{}{
							orderedmap.Pairs(
								"operation", orderedmap.Pairs(
									"ports", []interface{}{"3000"},
								),
							),
						},
					),
				},
			),
		),
	}

	return []artifact.Artifact{peerAuth, authzPolicy}
}
