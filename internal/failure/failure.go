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

// Package failure defines the closed set of caller-facing failure kinds and
// their wire status mapping.
package failure

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a stable, machine-readable failure identifier.
type Kind string

const (
	// KindUnauthenticated is returned when a handler requires a caller identity and none was resolved
	KindUnauthenticated Kind = "unauthenticated"
	// KindPermissionDenied is returned when the caller lacks a required privilege flag
	KindPermissionDenied Kind = "permission-denied"
	// KindInvalidArgument is returned when the payload is missing or has malformed fields
	KindInvalidArgument Kind = "invalid-argument"
	// KindFailedPrecondition is returned when a required upstream state is absent
	KindFailedPrecondition Kind = "failed-precondition"
	// KindNotFound is returned when a referenced resource does not exist
	KindNotFound Kind = "not-found"
	// KindInternal covers every unclassified failure
	KindInternal Kind = "internal"
)

// InternalMessage is the only message ever sent to callers for internal failures.
const InternalMessage = "Internal server error"

var kinds = map[Kind]int{
	KindUnauthenticated:    http.StatusBadRequest,
	KindPermissionDenied:   http.StatusBadRequest,
	KindInvalidArgument:    http.StatusBadRequest,
	KindFailedPrecondition: http.StatusBadRequest,
	KindNotFound:           http.StatusBadRequest,
	KindInternal:           http.StatusInternalServerError,
}

// Kinds returns every kind of the taxonomy.
func Kinds() []Kind {
	return []Kind{
		KindUnauthenticated,
		KindPermissionDenied,
		KindInvalidArgument,
		KindFailedPrecondition,
		KindNotFound,
		KindInternal,
	}
}

// Valid reports whether k belongs to the taxonomy.
func (k Kind) Valid() bool {
	_, ok := kinds[k]
	return ok
}

// Status returns the wire status code for k. Kinds outside the taxonomy map to 500.
func (k Kind) Status() int {
	if status, ok := kinds[k]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ParseKind converts a wire code into a Kind, treating unknown codes as internal.
func ParseKind(code string) Kind {
	k := Kind(code)
	if !k.Valid() {
		return KindInternal
	}
	return k
}

// Failure is a classified, caller-facing error.
type Failure struct {
	Kind    Kind
	Message string
	Details any
	cause   error
}

// New creates a failure of the given kind.
func New(kind Kind, message string) *Failure {
	return &Failure{Kind: kind, Message: message}
}

// Newf creates a failure with a formatted message.
func Newf(kind Kind, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a failure that keeps cause for logging. The cause is never serialized.
func Wrap(kind Kind, message string, cause error) *Failure {
	return &Failure{Kind: kind, Message: message, cause: cause}
}

// WithDetails attaches a structured payload for client-side disambiguation.
func (f *Failure) WithDetails(details any) *Failure {
	f.Details = details
	return f
}

func (f *Failure) Error() string {
	if f.cause != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Message, f.cause)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Unwrap returns the wrapped cause, if any.
func (f *Failure) Unwrap() error {
	return f.cause
}

// Status returns the wire status code of the failure.
func (f *Failure) Status() int {
	return f.Kind.Status()
}

// Classify maps any error onto the taxonomy. Errors that do not carry a valid
// Failure become internal failures and lose their original message; the
// returned failure keeps the original error as cause for server-side logging.
func Classify(err error) *Failure {
	if err == nil {
		return nil
	}

	var f *Failure
	if errors.As(err, &f) && f.Kind.Valid() && f.Kind != KindInternal {
		return f
	}

	return &Failure{
		Kind:    KindInternal,
		Message: InternalMessage,
		cause:   err,
	}
}

// Convenience constructors used by handlers.

// Unauthenticated returns an unauthenticated failure.
func Unauthenticated(message string) *Failure { return New(KindUnauthenticated, message) }

// PermissionDenied returns a permission-denied failure.
func PermissionDenied(message string) *Failure { return New(KindPermissionDenied, message) }

// InvalidArgument returns an invalid-argument failure.
func InvalidArgument(message string) *Failure { return New(KindInvalidArgument, message) }

// FailedPrecondition returns a failed-precondition failure.
func FailedPrecondition(message string) *Failure { return New(KindFailedPrecondition, message) }

// NotFound returns a not-found failure.
func NotFound(message string) *Failure { return New(KindNotFound, message) }
