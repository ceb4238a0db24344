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

// Package lambdaapi adapts API Gateway proxy events to the gateway.
package lambdaapi

import (
	"context"
	"encoding/base64"
	"errors"
	"maps"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"go.uber.org/zap"

	"github.com/Gosayram/fngate/internal/failure"
	"github.com/Gosayram/fngate/internal/gateway"
)

const (
	// OperationPathParameter names the path parameter carrying the operation
	OperationPathParameter = "operation"
	// transportName labels Lambda invocations in audit events
	transportName = "lambda"
)

// ErrNoOperation is returned when neither a path parameter nor a fixed operation is available
var ErrNoOperation = errors.New("operation is not configured")

// Config contains adapter configuration
type Config struct {
	// Operation is served for every event when set; otherwise the
	// {operation} path parameter selects the handler.
	Operation string
}

// Handler serves API Gateway proxy events
type Handler struct {
	gateway *gateway.Gateway
	config  Config
	logger  *zap.Logger
}

// NewHandler creates a Lambda handler in front of gw
func NewHandler(gw *gateway.Gateway, config Config, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		gateway: gw,
		config:  config,
		logger:  logger,
	}
}

// Handle converts event, invokes the gateway and converts the response back
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if event.HTTPMethod == "OPTIONS" {
		return ToProxyResponse(gateway.Preflight()), nil
	}

	operation := h.operation(event)
	if operation == "" {
		h.logger.Error("Event carries no operation", zap.String("path", event.Path))
		return ToProxyResponse(gateway.ErrorResponse(ErrNoOperation)), nil
	}

	req, err := FromProxyRequest(ctx, event)
	if err != nil {
		return ToProxyResponse(gateway.ErrorResponse(err)), nil
	}

	return ToProxyResponse(h.gateway.Invoke(ctx, operation, req)), nil
}

func (h *Handler) operation(event events.APIGatewayProxyRequest) string {
	if h.config.Operation != "" {
		return h.config.Operation
	}
	return event.PathParameters[OperationPathParameter]
}

// FromProxyRequest converts a proxy event into a gateway request
func FromProxyRequest(ctx context.Context, event events.APIGatewayProxyRequest) (gateway.Request, error) {
	body := []byte(event.Body)
	if event.IsBase64Encoded && event.Body != "" {
		decoded, err := base64.StdEncoding.DecodeString(event.Body)
		if err != nil {
			return gateway.Request{}, failure.InvalidArgument("Request body is not valid base64")
		}
		body = decoded
	}

	first := make(map[string]string, len(event.MultiValueHeaders))
	for name, values := range event.MultiValueHeaders {
		if len(values) > 0 {
			first[name] = values[0]
		}
	}
	headers := gateway.CanonicalHeaders(first)
	maps.Copy(headers, gateway.CanonicalHeaders(event.Headers))

	requestID := event.RequestContext.RequestID
	if lc, ok := lambdacontext.FromContext(ctx); ok && requestID == "" {
		requestID = lc.AwsRequestID
	}

	return gateway.Request{
		Body:      body,
		Headers:   headers,
		Transport: transportName,
		RequestID: requestID,
	}, nil
}

// ToProxyResponse converts a gateway response into a proxy response
func ToProxyResponse(resp gateway.Response) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       string(resp.Body),
	}
}
