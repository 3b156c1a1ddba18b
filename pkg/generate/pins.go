// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	goversion "github.com/hashicorp/go-version"
)

// pinRefreshTimeout bounds the optional network lookup; on any failure the
// last-known-good pinned versions below are used instead of blocking.
const pinRefreshTimeout = 3 * time.Second

// DefaultPinsURL is where Refresh looks for newer pinned action versions.
const DefaultPinsURL = "https://raw.githubusercontent.com/carvel-dev/stamp/main/hack/pins.json"

// Pins is the registry of pinned external component versions: GitHub Action
// versions referenced from workflows and Terraform provider versions
// referenced from versions.tf. Versions are kept full (not floating majors)
// so generated output is reproducible.
type Pins struct {
	mu        sync.RWMutex
	actions   map[string]string
	providers map[string]string
}

func DefaultPins() *Pins {
	return &Pins{
		actions: map[string]string{
			"actions/checkout":                      "4.2.2",
			"actions/setup-node":                    "4.1.0",
			"actions/dependency-review-action":      "4.5.0",
			"docker/login-action":                   "3.3.0",
			"docker/build-push-action":              "6.10.0",
			"github/codeql-action/init":             "3.27.9",
			"github/codeql-action/analyze":          "3.27.9",
			"aquasecurity/trivy-action":             "0.29.0",
			"googleapis/release-please-action":      "4.1.3",
			"hashicorp/setup-terraform":             "3.1.2",
			"aws-actions/configure-aws-credentials": "4.0.2",
			"google-github-actions/auth":            "2.1.7",
			"azure/login":                           "2.2.0",
		},
		providers: map[string]string{
			"aws":     "5.82.2",
			"google":  "6.14.1",
			"azurerm": "4.14.0",
		},
	}
}

// Action returns the fully pinned `uses:` reference for an action.
func (p *Pins) Action(name string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ver, found := p.actions[name]
	if !found {
		panic(fmt.Sprintf("Action '%s' has no pinned version", name))
	}
	return fmt.Sprintf("%s@v%s", name, ver)
}

// Provider returns the pessimistic version constraint for a Terraform
// provider, floating within the pinned major release.
func (p *Pins) Provider(name string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ver, found := p.providers[name]
	if !found {
		panic(fmt.Sprintf("Provider '%s' has no pinned version", name))
	}
	parsed := goversion.Must(goversion.NewVersion(ver))
	return fmt.Sprintf("~> %d.0", parsed.Segments()[0])
}

// ActionNames returns all pinned action names, sorted.
func (p *Pins) ActionNames() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var actionNames []string
	for name := range p.actions {
		actionNames = append(actionNames, name)
	}
	sort.Strings(actionNames)
	return actionNames
}

// Refresh fetches newer pinned versions from url (a JSON object of
// name -> version). The call carries a short timeout; any network or decode
// failure leaves the last-known-good pins in place and is reported through
// the returned bool rather than failing generation.
func (p *Pins) Refresh(ctx context.Context, client *http.Client, url string) bool {
	if client == nil {
		client = &http.Client{}
	}

	ctx, cancel := context.WithTimeout(ctx, pinRefreshTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var fetched map[string]string
	err = json.NewDecoder(resp.Body).Decode(&fetched)
	if err != nil {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for name, ver := range fetched {
		cur, found := p.actions[name]
		if !found {
			continue
		}
		curVer, err1 := goversion.NewVersion(cur)
		newVer, err2 := goversion.NewVersion(ver)
		if err1 != nil || err2 != nil {
			continue
		}
		if newVer.GreaterThan(curVer) {
			p.actions[name] = ver
		}
	}
	return true
}
