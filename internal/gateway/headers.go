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
	"maps"
	"net/textproto"
	"slices"
)

// Headers is a case-insensitive, read-only view of request headers
type Headers struct {
	values map[string]string
}

// NewHeaders builds a header view from raw transport headers
func NewHeaders(raw map[string]string) Headers {
	return Headers{values: CanonicalHeaders(raw)}
}

// CanonicalHeaders rekeys raw by canonical header name. When a name appears in
// several casings, the canonical spelling wins, then the first in sorted order.
func CanonicalHeaders(raw map[string]string) map[string]string {
	values := make(map[string]string, len(raw))
	for _, name := range slices.Sorted(maps.Keys(raw)) {
		key := textproto.CanonicalMIMEHeaderKey(name)
		if _, seen := values[key]; seen && name != key {
			continue
		}
		values[key] = raw[name]
	}
	return values
}

// Get returns the value of name, ignoring case
func (h Headers) Get(name string) string {
	return h.values[textproto.CanonicalMIMEHeaderKey(name)]
}

// Map returns a copy keyed by canonical header names
func (h Headers) Map() map[string]string {
	return maps.Clone(h.values)
}

// CORS headers attached to every response
const (
	HeaderContentType  = "Content-Type"
	HeaderAllowOrigin  = "Access-Control-Allow-Origin"
	HeaderAllowHeaders = "Access-Control-Allow-Headers"
	HeaderAllowMethods = "Access-Control-Allow-Methods"

	contentTypeJSON = "application/json"
	allowOrigin     = "*"
	allowHeaders    = "Content-Type,Authorization"
	allowMethods    = "GET,HEAD,OPTIONS,POST,PUT"
)

// ResponseHeaders returns a fresh copy of the fixed response header set
func ResponseHeaders() map[string]string {
	return map[string]string{
		HeaderContentType:  contentTypeJSON,
		HeaderAllowOrigin:  allowOrigin,
		HeaderAllowHeaders: allowHeaders,
		HeaderAllowMethods: allowMethods,
	}
}
