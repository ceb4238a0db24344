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
	"fmt"
	"math"

	"github.com/Gosayram/fngate/internal/failure"
)

// requireString returns a non-empty string field
func requireString(payload map[string]any, name string) (string, error) {
	value, ok := payload[name]
	if !ok || value == nil {
		return "", failure.Newf(failure.KindInvalidArgument, "%s is required", name)
	}
	s, ok := value.(string)
	if !ok {
		return "", failure.Newf(failure.KindInvalidArgument, "%s must be a string", name)
	}
	if s == "" {
		return "", failure.Newf(failure.KindInvalidArgument, "%s is required", name)
	}
	return s, nil
}

// optionalString returns a string field or def when absent
func optionalString(payload map[string]any, name, def string) (string, error) {
	value, ok := payload[name]
	if !ok || value == nil {
		return def, nil
	}
	s, ok := value.(string)
	if !ok {
		return "", failure.Newf(failure.KindInvalidArgument, "%s must be a string", name)
	}
	if s == "" {
		return def, nil
	}
	return s, nil
}

// optionalInt returns an integer field in [1, maxValue], def when absent
func optionalInt(payload map[string]any, name string, def, maxValue int) (int, error) {
	value, ok := payload[name]
	if !ok || value == nil {
		return def, nil
	}

	n, ok := toInt64(value)
	if !ok {
		return 0, failure.Newf(failure.KindInvalidArgument, "%s must be an integer", name)
	}
	if n < 1 || n > int64(maxValue) {
		return 0, failure.Newf(failure.KindInvalidArgument, "%s must be between 1 and %d", name, maxValue)
	}
	return int(n), nil
}

// optionalTimestamp returns a millisecond timestamp field, or false when absent
func optionalTimestamp(payload map[string]any, name string) (int64, bool, error) {
	value, ok := payload[name]
	if !ok || value == nil {
		return 0, false, nil
	}
	n, ok := toInt64(value)
	if !ok || n < 0 {
		return 0, false, failure.Newf(failure.KindInvalidArgument, "%s must be a timestamp in milliseconds", name)
	}
	return n, true, nil
}

// optionalObject returns an object field, nil when absent
func optionalObject(payload map[string]any, name string) (map[string]any, error) {
	value, ok := payload[name]
	if !ok || value == nil {
		return nil, nil
	}
	m, ok := value.(map[string]any)
	if !ok {
		return nil, failure.Newf(failure.KindInvalidArgument, "%s must be an object", name)
	}
	return m, nil
}

// stringMap converts an object of scalar values into string values
func stringMap(m map[string]any) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case nil:
		case string:
			out[k] = val
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out
}

func toInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || v > math.MaxInt64 || v < math.MinInt64 {
			return 0, false
		}
		return int64(v), true
	default:
		return 0, false
	}
}
