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
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Gosayram/fngate/internal/authn"
	"github.com/Gosayram/fngate/internal/docstore"
	"github.com/Gosayram/fngate/internal/failure"
	"github.com/Gosayram/fngate/internal/metrics"
)

const (
	// defaultNotificationType is used when the caller gives none
	defaultNotificationType = "general"
	// maxSubjectLength is the longest subject SNS accepts
	maxSubjectLength = 100
)

// ErrMissingTopic is returned when the SNS notifier has no topic
var ErrMissingTopic = errors.New("notification topic ARN is required")

// Notification is one push message to a user device
type Notification struct {
	Title        string            `json:"title"`
	Body         string            `json:"body"`
	Type         string            `json:"type"`
	FromUserID   string            `json:"fromUserId"`
	TargetUserID string            `json:"targetUserId"`
	DeviceToken  string            `json:"deviceToken"`
	Data         map[string]string `json:"data,omitempty"`
	Timestamp    int64             `json:"timestamp"`
}

// Notifier delivers notifications
type Notifier interface {
	// Name labels the notifier in metrics
	Name() string
	// Notify dispatches n and returns the provider's message ID
	Notify(ctx context.Context, n Notification) (string, error)
}

// SNSPublishAPI is the subset of the SNS client used by SNSNotifier
type SNSPublishAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSNotifier publishes notifications to an SNS topic
type SNSNotifier struct {
	client   SNSPublishAPI
	topicARN string
	logger   *zap.Logger
}

// NewSNSNotifier creates a notifier from an AWS configuration
func NewSNSNotifier(cfg aws.Config, topicARN string, logger *zap.Logger) (*SNSNotifier, error) {
	return NewSNSNotifierWithClient(sns.NewFromConfig(cfg), topicARN, logger)
}

// NewSNSNotifierWithClient creates a notifier over an existing client
func NewSNSNotifierWithClient(client SNSPublishAPI, topicARN string, logger *zap.Logger) (*SNSNotifier, error) {
	if topicARN == "" {
		return nil, ErrMissingTopic
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SNSNotifier{
		client:   client,
		topicARN: topicARN,
		logger:   logger,
	}, nil
}

// Name implements Notifier
func (s *SNSNotifier) Name() string {
	return "sns"
}

// Notify publishes n as a JSON message with its title as subject
func (s *SNSNotifier) Notify(ctx context.Context, n Notification) (string, error) {
	message, err := json.Marshal(n)
	if err != nil {
		return "", fmt.Errorf("failed to encode notification: %w", err)
	}

	out, err := s.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(s.topicARN),
		Message:  aws.String(string(message)),
		Subject:  aws.String(truncate(n.Title, maxSubjectLength)),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"type": {DataType: aws.String("String"), StringValue: aws.String(n.Type)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to publish notification: %w", err)
	}

	return aws.ToString(out.MessageId), nil
}

// LogNotifier only logs notifications; it serves development setups
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a logging notifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Name implements Notifier
func (l *LogNotifier) Name() string {
	return "log"
}

// Notify logs n and returns a generated message ID
//
//nolint:revive // ctx parameter is required by Notifier interface
func (l *LogNotifier) Notify(ctx context.Context, n Notification) (string, error) {
	id := uuid.NewString()
	l.logger.Info("Notification",
		zap.String("message_id", id),
		zap.String("type", n.Type),
		zap.String("from_user_id", n.FromUserID),
		zap.String("target_user_id", n.TargetUserID),
		zap.String("title", n.Title),
	)
	return id, nil
}

// sendNotification pushes a message to the device registered on a target profile
func (f *Functions) sendNotification(ctx context.Context, payload map[string]any, auth authn.AuthContext) (any, error) {
	targetID, err := optionalString(payload, "targetUserId", "")
	if err != nil {
		return nil, err
	}
	if targetID == "" {
		if targetID, err = requireString(payload, "userId"); err != nil {
			return nil, failure.InvalidArgument("targetUserId is required")
		}
	}
	title, err := requireString(payload, "title")
	if err != nil {
		return nil, err
	}
	body, err := requireString(payload, "body")
	if err != nil {
		return nil, err
	}
	notificationType, err := optionalString(payload, "type", defaultNotificationType)
	if err != nil {
		return nil, err
	}
	data, err := optionalObject(payload, "data")
	if err != nil {
		return nil, err
	}

	profile, found, err := f.store.Get(ctx, docstore.CollectionUsers, docstore.Key{"userId": targetID})
	if err != nil {
		return nil, fmt.Errorf("failed to load target profile: %w", err)
	}
	if !found {
		return nil, failure.NotFound("Target user not found")
	}
	deviceToken, _ := profile[fieldFCMToken].(string)
	if deviceToken == "" {
		return nil, failure.FailedPrecondition("User has no FCM token")
	}

	messageID, err := f.notifier.Notify(ctx, Notification{
		Title:        title,
		Body:         body,
		Type:         notificationType,
		FromUserID:   subject(auth),
		TargetUserID: targetID,
		DeviceToken:  deviceToken,
		Data:         stringMap(data),
		Timestamp:    f.nowUTC().UnixMilli(),
	})
	if err != nil {
		metrics.RecordNotification(f.notifier.Name(), "error")
		return nil, err
	}
	metrics.RecordNotification(f.notifier.Name(), metrics.StatusOK)

	return map[string]any{"success": true, "messageId": messageID}, nil
}

// updateFcmToken registers the device token that sendNotification delivers to
func (f *Functions) updateFcmToken(ctx context.Context, payload map[string]any, auth authn.AuthContext) (any, error) {
	token, err := requireString(payload, "token")
	if err != nil {
		return nil, err
	}

	userID := subject(auth)
	profile, found, err := f.store.Get(ctx, docstore.CollectionUsers, docstore.Key{"userId": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if !found {
		return nil, failure.NotFound("User profile not found")
	}

	profile[fieldFCMToken] = token
	profile[fieldFCMUpdatedAt] = f.nowUTC().Format(time.RFC3339)
	if err := f.store.Put(ctx, docstore.CollectionUsers, profile); err != nil {
		return nil, fmt.Errorf("failed to store FCM token: %w", err)
	}

	f.logger.Debug("FCM token updated", zap.String("user_id", userID))

	return map[string]any{"success": true}, nil
}

// truncate shortens s to at most n runes
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
