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
	"fmt"

	"github.com/google/uuid"

	"github.com/Gosayram/fngate/internal/authn"
	"github.com/Gosayram/fngate/internal/docstore"
	"github.com/Gosayram/fngate/internal/failure"
)

const (
	// defaultAnalyticsLimit bounds getUserAnalytics when no limit is given
	defaultAnalyticsLimit = 100
	// maxAnalyticsLimit is the largest accepted limit
	maxAnalyticsLimit = 1000
	// unknownValue fills client attributes the caller did not report
	unknownValue = "unknown"
)

// logEvent records one analytics event for the caller
func (f *Functions) logEvent(ctx context.Context, payload map[string]any, auth authn.AuthContext) (any, error) {
	eventName, err := requireString(payload, "eventName")
	if err != nil {
		return nil, err
	}
	parameters, err := optionalObject(payload, "parameters")
	if err != nil {
		return nil, err
	}
	if parameters == nil {
		parameters = map[string]any{}
	}

	eventID := uuid.NewString()
	event := docstore.Item{
		"eventId":    eventID,
		"userId":     subject(auth),
		"eventName":  eventName,
		"parameters": parameters,
		"timestamp":  f.nowUTC().UnixMilli(),
		"platform":   stringParam(parameters, "platform", unknownValue),
		"appVersion": stringParam(parameters, "appVersion", unknownValue),
		"sessionId":  stringParam(parameters, "sessionId", ""),
	}

	if err := f.store.Put(ctx, docstore.CollectionAnalytics, event); err != nil {
		return nil, fmt.Errorf("failed to log event: %w", err)
	}

	return map[string]any{"success": true, "eventId": eventID}, nil
}

// getUserAnalytics returns the caller's events, newest first
func (f *Functions) getUserAnalytics(ctx context.Context, payload map[string]any, auth authn.AuthContext) (any, error) {
	limit, err := optionalInt(payload, "limit", defaultAnalyticsLimit, maxAnalyticsLimit)
	if err != nil {
		return nil, err
	}
	startDate, hasStart, err := optionalTimestamp(payload, "startDate")
	if err != nil {
		return nil, err
	}
	endDate, hasEnd, err := optionalTimestamp(payload, "endDate")
	if err != nil {
		return nil, err
	}

	criteria := docstore.Criteria{
		Index:      docstore.IndexUserTime,
		Key:        docstore.KeyCondition{Partition: subject(auth)},
		Descending: true,
		Limit:      limit,
	}

	var sortCond docstore.Condition
	switch {
	case hasStart && hasEnd:
		if startDate > endDate {
			return nil, failure.InvalidArgument("startDate must not be after endDate")
		}
		sortCond = docstore.Between("timestamp", startDate, endDate)
	case hasStart:
		sortCond = docstore.Ge("timestamp", startDate)
	case hasEnd:
		sortCond = docstore.Le("timestamp", endDate)
	}
	if hasStart || hasEnd {
		criteria.Key.Sort = &sortCond
	}

	events, err := f.store.Query(ctx, docstore.CollectionAnalytics, criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to query analytics: %w", err)
	}

	return map[string]any{"analytics": events}, nil
}

// stringParam reads a string from client parameters, def when absent or empty
func stringParam(parameters map[string]any, name, def string) string {
	if s, ok := parameters[name].(string); ok && s != "" {
		return s
	}
	return def
}
