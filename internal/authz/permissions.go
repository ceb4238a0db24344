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

import "github.com/Gosayram/fngate/internal/authn"

// Role is a casbin subject derived from the caller's claims
type Role string

const (
	// RoleAnonymous is held by every caller
	RoleAnonymous Role = "anonymous"
	// RoleUser is held by every authenticated caller
	RoleUser Role = "user"
	// RolePremium is held by callers with the premium flag
	RolePremium Role = "premium"
	// RoleAdmin is held by callers with the admin flag
	RoleAdmin Role = "admin"
)

// ActionInvoke is the only action enforced on operations
const ActionInvoke = "invoke"

// RolesFor returns the roles of a caller, most privileged last
func RolesFor(auth authn.AuthContext) []Role {
	roles := []Role{RoleAnonymous}
	if !auth.IsAuthenticated() {
		return roles
	}

	roles = append(roles, RoleUser)
	if auth.HasFlag(authn.FlagPremium) {
		roles = append(roles, RolePremium)
	}
	if auth.HasFlag(authn.FlagAdmin) {
		roles = append(roles, RoleAdmin)
	}

	return roles
}

// Rule grants a role the right to invoke an operation. Operation may be a keyMatch pattern.
type Rule struct {
	Role      Role
	Operation string
}

// DefaultRules returns the built-in operation grants
func DefaultRules() []Rule {
	return []Rule{
		{Role: RoleAnonymous, Operation: "healthCheck"},
		{Role: RoleAnonymous, Operation: "createUser"},
		{Role: RoleAnonymous, Operation: "getDuas"},
		{Role: RoleAnonymous, Operation: "searchQuran"},
		{Role: RoleUser, Operation: "updateLastLogin"},
		{Role: RoleUser, Operation: "getProfile"},
		{Role: RoleUser, Operation: "logEvent"},
		{Role: RoleUser, Operation: "getUserAnalytics"},
		{Role: RoleUser, Operation: "sendNotification"},
		{Role: RoleUser, Operation: "updateFcmToken"},
		{Role: RoleUser, Operation: "aiChat"},
		{Role: RoleUser, Operation: "classifyIntent"},
		{Role: RoleAdmin, Operation: "*"},
	}
}
