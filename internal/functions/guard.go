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

	"github.com/Gosayram/fngate/internal/authn"
	"github.com/Gosayram/fngate/internal/gateway"
)

// guard runs the authorization check for operation before handler
func (f *Functions) guard(operation string, handler gateway.HandlerFunc) gateway.Handler {
	return gateway.HandlerFunc(func(ctx context.Context, payload map[string]any, auth authn.AuthContext) (any, error) {
		if err := f.authz.Require(auth, operation); err != nil {
			return nil, err
		}
		return handler(ctx, payload, auth)
	})
}

// subject returns the caller of an authorized operation
func subject(auth authn.AuthContext) string {
	id, _ := auth.SubjectID()
	return id
}
