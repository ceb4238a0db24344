// Copyright 2025 Gosayram Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package authz

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

// CasbinEngine wraps Casbin enforcer for operation-level RBAC
type CasbinEngine struct {
	enforcer *casbin.Enforcer
}

// CasbinConfig contains Casbin configuration
type CasbinConfig struct {
	ModelPath  string // Path to Casbin model file (optional, uses default if empty)
	PolicyPath string // Path to CSV policy file (optional, uses DefaultRules if empty)
}

// NewCasbinEngine creates a new Casbin-based authorization engine
func NewCasbinEngine(config CasbinConfig) (*CasbinEngine, error) {
	var m model.Model
	var err error

	if config.ModelPath != "" {
		m, err = model.NewModelFromFile(config.ModelPath)
	} else {
		m, err = defaultRBACModel()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load Casbin model: %w", err)
	}

	var enforcer *casbin.Enforcer
	if config.PolicyPath != "" {
		enforcer, err = casbin.NewEnforcer(m, config.PolicyPath)
	} else {
		enforcer, err = casbin.NewEnforcer(m)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Casbin enforcer: %w", err)
	}

	engine := &CasbinEngine{enforcer: enforcer}
	if config.PolicyPath == "" {
		if err := engine.AddRules(DefaultRules()...); err != nil {
			return nil, err
		}
	}

	return engine, nil
}

// AddRules grants operations to roles
func (c *CasbinEngine) AddRules(rules ...Rule) error {
	for _, rule := range rules {
		if _, err := c.enforcer.AddPolicy(string(rule.Role), rule.Operation, ActionInvoke); err != nil {
			return fmt.Errorf("failed to add rule %s/%s: %w", rule.Role, rule.Operation, err)
		}
	}
	return nil
}

// Enforce reports whether role may perform action on operation
func (c *CasbinEngine) Enforce(role Role, operation, action string) (bool, error) {
	allowed, err := c.enforcer.Enforce(string(role), operation, action)
	if err != nil {
		return false, fmt.Errorf("casbin enforce failed: %w", err)
	}
	return allowed, nil
}

// Rules returns all loaded policy lines
func (c *CasbinEngine) Rules() [][]string {
	policies, _ := c.enforcer.GetPolicy()
	return policies
}

// defaultRBACModel returns the RBAC model for operation grants.
// Request: role, operation, action
func defaultRBACModel() (model.Model, error) {
	text := `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch(r.obj, p.obj) && r.act == p.act
`
	return model.NewModelFromString(text)
}
