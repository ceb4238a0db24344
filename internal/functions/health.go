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

package functions

import (
	"context"
	"time"

	"github.com/Gosayram/fngate/internal/authn"
)

// healthCheck reports service identity; it needs no caller
//
//nolint:revive // ctx parameter is required by gateway.HandlerFunc
func (f *Functions) healthCheck(ctx context.Context, _ map[string]any, _ authn.AuthContext) (any, error) {
	result := map[string]any{
		"status":      "healthy",
		"timestamp":   f.nowUTC().Format(time.RFC3339),
		"version":     f.info.Version,
		"service":     f.info.Service,
		"environment": f.info.Environment,
	}
	if f.info.Region != "" {
		result["region"] = f.info.Region
	}
	return result, nil
}
