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
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Gosayram/fngate/internal/authn"
	"github.com/Gosayram/fngate/internal/docstore"
	"github.com/Gosayram/fngate/internal/failure"
	"github.com/Gosayram/fngate/internal/metrics"
)

const (
	// defaultChatModel answers aiChat
	defaultChatModel = "gpt-4"
	// defaultClassifyModel answers classifyIntent
	defaultClassifyModel = "gpt-3.5-turbo"

	chatTemperature     = 0.7
	chatMaxTokens       = 2000
	classifyTemperature = 0.3
	classifyMaxTokens   = 50

	// historyLimit is the number of earlier messages sent with a chat turn
	historyLimit = 20
	// intentConfidence is reported with every classification
	intentConfidence = 0.85
	// fallbackIntent is used when the model answers outside the known intents
	fallbackIntent = "general_question"

	roleSystem    = "system"
	roleUser      = "user"
	roleAssistant = "assistant"
)

// intents are the categories classifyIntent may return
var intents = []string{
	"dua_request", "quran_verse", "prayer_times", "islamic_question",
	"hadith_search", "general_question",
}

// Models names the completion models per operation
type Models struct {
	Chat     string
	Classify string
}

func (m Models) withDefaults() Models {
	if m.Chat == "" {
		m.Chat = defaultChatModel
	}
	if m.Classify == "" {
		m.Classify = defaultClassifyModel
	}
	return m
}

// aiChat answers a message within a conversation and stores both turns
func (f *Functions) aiChat(ctx context.Context, payload map[string]any, auth authn.AuthContext) (any, error) {
	message, err := requireString(payload, "message")
	if err != nil {
		return nil, err
	}
	conversationID, err := optionalString(payload, "conversationId", "")
	if err != nil {
		return nil, err
	}
	language, err := optionalString(payload, "language", "en")
	if err != nil {
		return nil, err
	}
	if f.completer == nil {
		return nil, failure.FailedPrecondition("AI completions are not configured")
	}

	userID := subject(auth)

	preferences := map[string]any{}
	profile, found, err := f.store.Get(ctx, docstore.CollectionUsers, docstore.Key{"userId": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if found {
		if prefs, ok := profile[fieldPreferences].(map[string]any); ok {
			preferences = prefs
		}
	}

	var history []Message
	if conversationID != "" {
		history, err = f.conversationHistory(ctx, conversationID, userID)
		if err != nil {
			return nil, err
		}
	} else {
		conversationID = uuid.NewString()
	}

	messages := make([]Message, 0, len(history)+2)
	messages = append(messages, Message{Role: roleSystem, Content: systemPrompt(preferences, language)})
	messages = append(messages, history...)
	messages = append(messages, Message{Role: roleUser, Content: message})

	response, err := f.complete(ctx, CompletionRequest{
		Model:       f.models.Chat,
		Messages:    messages,
		Temperature: chatTemperature,
		MaxTokens:   chatMaxTokens,
	})
	if err != nil {
		return nil, err
	}

	if err := f.saveTurn(ctx, conversationID, userID, message, response); err != nil {
		return nil, err
	}

	return map[string]any{
		"response":       response,
		"conversationId": conversationID,
		"citations":      ExtractCitations(response),
	}, nil
}

// classifyIntent maps a query onto one of the known intents
func (f *Functions) classifyIntent(ctx context.Context, payload map[string]any, _ authn.AuthContext) (any, error) {
	query, err := requireString(payload, "query")
	if err != nil {
		return nil, err
	}
	if f.completer == nil {
		return nil, failure.FailedPrecondition("AI completions are not configured")
	}

	answer, err := f.complete(ctx, CompletionRequest{
		Model: f.models.Classify,
		Messages: []Message{
			{
				Role: roleSystem,
				Content: "Classify the following query into one of these categories: " +
					strings.Join(intents, ", ") + ". Respond with only the category name.",
			},
			{Role: roleUser, Content: query},
		},
		Temperature: classifyTemperature,
		MaxTokens:   classifyMaxTokens,
	})
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"intent":     normalizeIntent(answer),
		"confidence": intentConfidence,
	}, nil
}

// normalizeIntent maps a model answer onto the known intents
func normalizeIntent(answer string) string {
	intent := strings.ToLower(strings.TrimSpace(answer))
	if slices.Contains(intents, intent) {
		return intent
	}
	return fallbackIntent
}

func (f *Functions) complete(ctx context.Context, req CompletionRequest) (string, error) {
	response, err := f.completer.Complete(ctx, req)
	if err != nil {
		metrics.RecordCompletion(req.Model, "error")
		return "", fmt.Errorf("completion failed: %w", err)
	}
	metrics.RecordCompletion(req.Model, metrics.StatusOK)
	return response, nil
}

// conversationHistory returns the caller's latest messages of a conversation, oldest first
func (f *Functions) conversationHistory(ctx context.Context, conversationID, userID string) ([]Message, error) {
	items, err := f.store.Query(ctx, docstore.CollectionConversations, docstore.Criteria{
		Key:        docstore.KeyCondition{Partition: conversationID},
		Filter:     []docstore.Condition{docstore.Eq("userId", userID)},
		Descending: true,
		Limit:      historyLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation history: %w", err)
	}

	history := make([]Message, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		role, _ := items[i]["role"].(string)
		if role == "" {
			role = roleUser
		}
		content, _ := items[i]["content"].(string)
		history = append(history, Message{Role: role, Content: content})
	}
	return history, nil
}

// saveTurn stores the user message and the answer one millisecond apart
func (f *Functions) saveTurn(ctx context.Context, conversationID, userID, message, response string) error {
	timestamp := f.nowUTC().UnixMilli()

	turns := []docstore.Item{
		{
			"conversationId": conversationID,
			"messageId":      uuid.NewString(),
			"userId":         userID,
			"role":           roleUser,
			"content":        message,
			"timestamp":      timestamp,
		},
		{
			"conversationId": conversationID,
			"messageId":      uuid.NewString(),
			"userId":         userID,
			"role":           roleAssistant,
			"content":        response,
			"timestamp":      timestamp + 1,
		},
	}

	for _, turn := range turns {
		if err := f.store.Put(ctx, docstore.CollectionConversations, turn); err != nil {
			f.logger.Error("Failed to save conversation turn",
				zap.String("conversation_id", conversationID),
				zap.Error(err),
			)
			return fmt.Errorf("failed to save conversation: %w", err)
		}
	}
	return nil
}

// systemPrompt builds the assistant instructions for a chat turn
func systemPrompt(preferences map[string]any, language string) string {
	prefs, err := json.Marshal(preferences)
	if err != nil {
		prefs = []byte("{}")
	}

	var sb strings.Builder
	sb.WriteString("You are DuaCopilot, an Islamic AI assistant dedicated to providing accurate Islamic guidance ")
	sb.WriteString("based on the Quran and authentic Hadith.\n\n")
	sb.WriteString("Key principles:\n")
	sb.WriteString("- Always base responses on authentic Islamic sources\n")
	sb.WriteString("- Provide references from Quran and Hadith when possible\n")
	sb.WriteString("- Be respectful of all Islamic schools of thought\n")
	sb.WriteString("- Encourage consulting local scholars for complex matters\n")
	sb.WriteString("- Use appropriate Islamic greetings and language\n")
	sb.WriteString("- Prioritize spiritual guidance and Islamic values\n\n")
	sb.WriteString("Language: ")
	sb.WriteString(language)
	sb.WriteString("\nUser preferences: ")
	sb.Write(prefs)
	sb.WriteString("\n\nProvide helpful, accurate, and Islamically-sound responses.")
	return sb.String()
}
