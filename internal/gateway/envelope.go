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
	"bytes"
	"encoding/json"
	"errors"

	"github.com/Gosayram/fngate/internal/failure"
)

const (
	// MessageMalformedBody is returned for bodies that are not a JSON object
	MessageMalformedBody = "Request body must be a JSON object"
	// callableDataKey wraps payloads in the callable-function wire model
	callableDataKey = "data"
)

// Envelope is the normalized input of one invocation
type Envelope struct {
	Payload map[string]any
	Headers Headers
}

// SuccessEnvelope is the response body of a successful invocation
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// ErrorBody describes a failed invocation
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope is the response body of a failed invocation
type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

// ParsePayload decodes a request body. An empty or whitespace body and a
// literal null both give an empty payload; anything other than a JSON object
// is an invalid-argument failure.
func ParsePayload(body []byte) (map[string]any, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return map[string]any{}, nil
	}

	if trimmed[0] != '{' {
		return nil, failure.InvalidArgument(MessageMalformedBody)
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, failure.InvalidArgument(MessageMalformedBody)
	}
	if dec.More() {
		return nil, failure.InvalidArgument(MessageMalformedBody)
	}
	if payload == nil {
		payload = map[string]any{}
	}

	if _, err := normalizeNumbers(payload); err != nil {
		return nil, failure.InvalidArgument(MessageMalformedBody)
	}

	return payload, nil
}

// UnwrapCallable extracts X from a callable body {"data": X}. A body that is
// not such a wrapper is returned unchanged so that ParsePayload reports it.
func UnwrapCallable(body []byte) []byte {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return body
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &wrapper); err != nil {
		return body
	}

	data, ok := wrapper[callableDataKey]
	if !ok {
		return []byte("{}")
	}
	return data
}

// encodeSuccess serializes a handler result
func encodeSuccess(result any) ([]byte, error) {
	return json.Marshal(SuccessEnvelope{Data: result})
}

// encodeFailure serializes a classified failure
func encodeFailure(f *failure.Failure) []byte {
	body, err := json.Marshal(ErrorEnvelope{Error: ErrorBody{
		Code:    string(f.Kind),
		Message: f.Message,
		Details: f.Details,
	}})
	if err != nil {
		// Details were not serializable; drop them.
		body, _ = json.Marshal(ErrorEnvelope{Error: ErrorBody{
			Code:    string(f.Kind),
			Message: f.Message,
		}})
	}
	return body
}

// DecodeResponse splits a response body into its data or error part
func DecodeResponse(body []byte) (json.RawMessage, *ErrorBody, error) {
	var raw struct {
		Data  json.RawMessage `json:"data"`
		Error *ErrorBody      `json:"error"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, nil, err
	}
	if raw.Error != nil {
		return nil, raw.Error, nil
	}
	if raw.Data == nil {
		return nil, nil, errors.New("response has neither data nor error")
	}
	return raw.Data, nil, nil
}

// normalizeNumbers turns json.Number into int64 where exact, float64 otherwise.
// A number beyond the float64 range is an error.
func normalizeNumbers(v any) (any, error) {
	switch val := v.(type) {
	case map[string]any:
		for k, item := range val {
			n, err := normalizeNumbers(item)
			if err != nil {
				return nil, err
			}
			val[k] = n
		}
		return val, nil
	case []any:
		for i, item := range val {
			n, err := normalizeNumbers(item)
			if err != nil {
				return nil, err
			}
			val[i] = n
		}
		return val, nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i, nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, err
		}
		return f, nil
	default:
		return v, nil
	}
}
