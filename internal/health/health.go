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

// Package health reports readiness of the resources an invocation depends on.
package health

import (
	"context"
	"fmt"
	"sort"
	"time"
)

const (
	// defaultCheckTimeout bounds one readiness check
	defaultCheckTimeout = 5 * time.Second
)

// Status represents the health status of a component
type Status string

const (
	// StatusHealthy indicates the component is healthy
	StatusHealthy Status = "healthy"
	// StatusUnhealthy indicates the component is unhealthy
	StatusUnhealthy Status = "unhealthy"
	// StatusDegraded indicates an optional component failed
	StatusDegraded Status = "degraded"
)

// Pinger is a resource that can report its availability
type Pinger interface {
	Ping(ctx context.Context) error
}

// Report is the result of a readiness check
type Report struct {
	Status     Status               `json:"status"`
	Message    string               `json:"message,omitempty"`
	Timestamp  time.Time            `json:"timestamp"`
	Components map[string]Component `json:"components,omitempty"`
}

// Component is the status of one checked resource
type Component struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// Healthy reports whether every required component is available
func (r *Report) Healthy() bool {
	return r.Status != StatusUnhealthy
}

type check struct {
	pinger   Pinger
	required bool
}

// Checker pings registered components
type Checker struct {
	checks  map[string]check
	timeout time.Duration
	now     func() time.Time
}

// NewChecker creates a checker with no components
func NewChecker() *Checker {
	return &Checker{
		checks:  make(map[string]check),
		timeout: defaultCheckTimeout,
		now:     time.Now,
	}
}

// Require registers a component whose failure makes the service unhealthy
func (c *Checker) Require(name string, pinger Pinger) *Checker {
	c.checks[name] = check{pinger: pinger, required: true}
	return c
}

// Optional registers a component whose failure only degrades the service
func (c *Checker) Optional(name string, pinger Pinger) *Checker {
	c.checks[name] = check{pinger: pinger}
	return c
}

// Check pings every component within one timeout
func (c *Checker) Check(ctx context.Context) *Report {
	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	report := &Report{
		Status:     StatusHealthy,
		Timestamp:  c.now().UTC(),
		Components: make(map[string]Component, len(c.checks)),
	}

	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		chk := c.checks[name]
		if err := chk.pinger.Ping(checkCtx); err != nil {
			status := StatusDegraded
			if chk.required {
				status = StatusUnhealthy
			}
			report.Components[name] = Component{
				Status:  status,
				Message: fmt.Sprintf("ping failed: %v", err),
			}
			report.degrade(status, name)
			continue
		}
		report.Components[name] = Component{Status: StatusHealthy}
	}

	return report
}

// degrade lowers the overall status; the first failing component names the message
func (r *Report) degrade(status Status, name string) {
	if r.Status == StatusUnhealthy {
		return
	}
	if status == StatusUnhealthy || r.Status == StatusHealthy {
		r.Status = status
		r.Message = name + " is " + string(status)
	}
}
