// Package capability maps caller roles to capability sets used to authorize
// tables, row actions and bulk actions.
package capability

import (
	"fmt"
	"os"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/pitabwire/tabula/model"
)

// Policy grants capabilities to roles.
type Policy interface {
	Capabilities(roles []string) model.CapabilitySet
}

// AllowAll grants every capability to every caller. It backs deployments
// that run with authentication disabled.
type AllowAll struct{}

// Capabilities returns the wildcard set.
func (AllowAll) Capabilities([]string) model.CapabilitySet {
	return model.CapabilitySet{"*": true}
}

type policyFile struct {
	Roles map[string][]string `yaml:"roles"`
}

// StaticPolicy reads role grants from a YAML file of the form
//
//	roles:
//	  admin: ["*"]
//	  instructor: ["students:list:view", "students:bulk:notify"]
type StaticPolicy struct {
	path  string
	mu    sync.RWMutex
	roles map[string][]string
}

// NewStaticPolicy loads the policy file at path.
func NewStaticPolicy(path string) (*StaticPolicy, error) {
	p := &StaticPolicy{path: path}
	if err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

// NewStaticPolicyFromRoles builds a policy from an in-memory grant table.
func NewStaticPolicyFromRoles(roles map[string][]string) *StaticPolicy {
	return &StaticPolicy{roles: roles}
}

// Capabilities returns the union of the grants of every role.
func (p *StaticPolicy) Capabilities(roles []string) model.CapabilitySet {
	p.mu.RLock()
	defer p.mu.RUnlock()

	caps := make(model.CapabilitySet)
	for _, role := range roles {
		for _, c := range p.roles[role] {
			caps[c] = true
		}
	}
	return caps
}

// Roles returns the role names the policy knows, sorted.
func (p *StaticPolicy) Roles() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.roles))
	for r := range p.roles {
		out = append(out, r)
	}
	slices.Sort(out)
	return out
}

// Reload rereads the policy file.
func (p *StaticPolicy) Reload() error {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return fmt.Errorf("capability: reading policy file %s: %w", p.path, err)
	}
	var f policyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("capability: parsing policy file %s: %w", p.path, err)
	}

	p.mu.Lock()
	p.roles = f.Roles
	p.mu.Unlock()
	return nil
}
