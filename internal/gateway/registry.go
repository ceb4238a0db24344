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

package gateway

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/Gosayram/fngate/internal/authn"
)

var (
	// ErrDuplicateOperation is returned when an operation name is registered twice
	ErrDuplicateOperation = errors.New("operation already registered")
	// ErrInvalidOperation is returned for an empty name or a nil handler
	ErrInvalidOperation = errors.New("invalid operation")
)

// Handler serves one logical operation
type Handler interface {
	Invoke(ctx context.Context, payload map[string]any, auth authn.AuthContext) (any, error)
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(ctx context.Context, payload map[string]any, auth authn.AuthContext) (any, error)

// Invoke calls f
func (f HandlerFunc) Invoke(ctx context.Context, payload map[string]any, auth authn.AuthContext) (any, error) {
	return f(ctx, payload, auth)
}

// Registry maps operation names to handlers. It is filled at startup and
// only read afterwards.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// Register adds a handler
func (r *Registry) Register(name string, handler Handler) error {
	if name == "" || handler == nil {
		return fmt.Errorf("%w: %q", ErrInvalidOperation, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateOperation, name)
	}

	r.handlers[name] = handler
	return nil
}

// RegisterFunc adds a handler function
func (r *Registry) RegisterFunc(name string, fn HandlerFunc) error {
	if fn == nil {
		return fmt.Errorf("%w: %q", ErrInvalidOperation, name)
	}
	return r.Register(name, fn)
}

// MustRegister is Register that panics, for static wiring
func (r *Registry) MustRegister(name string, handler Handler) {
	if err := r.Register(name, handler); err != nil {
		panic(err)
	}
}

// Get retrieves a handler by name
func (r *Registry) Get(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handler, exists := r.handlers[name]
	return handler, exists
}

// List returns all registered operation names, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
