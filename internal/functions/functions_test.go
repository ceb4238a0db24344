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
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Gosayram/fngate/internal/authn"
	"github.com/Gosayram/fngate/internal/docstore"
	"github.com/Gosayram/fngate/internal/failure"
	"github.com/Gosayram/fngate/internal/gateway"
)

var (
	testSecret = []byte("functions-test-secret")
	testNow    = time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)
)

type fakeCompleter struct {
	mu       sync.Mutex
	answer   string
	err      error
	requests []CompletionRequest
}

func (c *fakeCompleter) Complete(_ context.Context, req CompletionRequest) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	return c.answer, c.err
}

type fakeNotifier struct {
	sent []Notification
}

func (n *fakeNotifier) Name() string { return "fake" }

func (n *fakeNotifier) Notify(_ context.Context, notification Notification) (string, error) {
	n.sent = append(n.sent, notification)
	return "msg-1", nil
}

type fixture struct {
	gateway   *gateway.Gateway
	store     *docstore.Facade
	issuer    *authn.Issuer
	completer *fakeCompleter
	notifier  *fakeNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := docstore.NewFacade(docstore.NewMemoryBackend(), docstore.DefaultCatalog(), nil,
		docstore.WithClock(func() time.Time { return testNow }))
	t.Cleanup(func() { _ = store.Close() })

	issuer, err := authn.NewIssuer(testSecret, 0)
	require.NoError(t, err)
	verifier, err := authn.NewJWTVerifier(testSecret, nil)
	require.NoError(t, err)

	fx := &fixture{
		store:     store,
		issuer:    issuer,
		completer: &fakeCompleter{answer: "Recite Quran 2:255 as in the Hadith narrated by Bukhari."},
		notifier:  &fakeNotifier{},
	}

	fns, err := New(Dependencies{
		Store:     store,
		Issuer:    issuer,
		Notifier:  fx.notifier,
		Completer: fx.completer,
		Info:      ServiceInfo{Region: "eu-west-1"},
		Now:       func() time.Time { return testNow },
	})
	require.NoError(t, err)

	registry := gateway.NewRegistry()
	require.NoError(t, fns.Register(registry))
	fx.gateway = gateway.New(gateway.Config{
		Resolver: authn.NewResolver(verifier, nil),
		Registry: registry,
	})
	return fx
}

func (fx *fixture) token(t *testing.T, subject string, flags map[string]bool) string {
	t.Helper()
	token, _, err := fx.issuer.Issue(subject, subject+"@example.com", flags)
	require.NoError(t, err)
	return token
}

// call invokes operation and decodes the data or error part of the response
func (fx *fixture) call(t *testing.T, operation, token string, payload any) (int, map[string]any, *gateway.ErrorBody) {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)
	headers := map[string]string{}
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}

	resp := fx.gateway.Invoke(context.Background(), operation, gateway.Request{Body: body, Headers: headers})
	data, errBody, err := gateway.DecodeResponse(resp.Body)
	require.NoError(t, err)
	if errBody != nil {
		return resp.StatusCode, nil, errBody
	}

	var result map[string]any
	require.NoError(t, json.Unmarshal(data, &result))
	return resp.StatusCode, result, nil
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Dependencies{})
	assert.ErrorIs(t, err, ErrMissingStore)

	_, err = New(Dependencies{Store: docstore.NewFacade(docstore.NewMemoryBackend(), nil, nil)})
	assert.ErrorIs(t, err, ErrMissingIssuer)
}

func TestRegister_AllOperations(t *testing.T) {
	fx := newFixture(t)
	assert.Equal(t, []string{
		OpAIChat, OpClassifyIntent, OpCreateUser, OpGetDuas, OpGetProfile, OpGetUserAnalytics,
		OpHealthCheck, OpLogEvent, OpSearchQuran, OpSendNotification, OpSetCustomClaims, OpUpdateFcmToken, OpUpdateLastLogin,
	}, fx.gateway.Registry().List())
}

func TestHealthCheck(t *testing.T) {
	fx := newFixture(t)

	status, data, errBody := fx.call(t, OpHealthCheck, "", nil)
	require.Nil(t, errBody)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]any{
		"status":      "healthy",
		"timestamp":   "2025-06-01T08:30:00Z",
		"version":     defaultServiceVersion,
		"service":     defaultServiceName,
		"environment": defaultEnvironment,
		"region":      "eu-west-1",
	}, data)
}

func TestCreateUser_ThenProfile(t *testing.T) {
	fx := newFixture(t)

	_, data, errBody := fx.call(t, OpCreateUser, "", map[string]any{
		"email": "amina@example.com", "password": "s3cret-pass", "displayName": "Amina",
	})
	require.Nil(t, errBody)
	assert.Equal(t, true, data["success"])
	userID := data["userId"].(string)
	token := data["token"].(string)
	assert.Regexp(t, `^user_[0-9a-f-]{36}$`, userID)

	stored, found, err := fx.store.Get(context.Background(), docstore.CollectionUsers, docstore.Key{"userId": userID})
	require.NoError(t, err)
	require.True(t, found)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored[fieldPasswordHash].(string)), []byte("s3cret-pass")))

	_, data, errBody = fx.call(t, OpGetProfile, token, nil)
	require.Nil(t, errBody)
	profile := data["profile"].(map[string]any)
	assert.Equal(t, "amina@example.com", profile["email"])
	assert.Equal(t, "Amina", profile["displayName"])
	assert.NotContains(t, profile, fieldPasswordHash)
	assert.Equal(t, "MWL", profile["preferences"].(map[string]any)["prayerMethod"])
}

func TestCreateUser_InvalidArguments(t *testing.T) {
	fx := newFixture(t)

	for name, payload := range map[string]map[string]any{
		"missing email":  {"password": "long-enough"},
		"bad email":      {"email": "not-an-address", "password": "long-enough"},
		"short password": {"email": "a@example.com", "password": "123"},
		"email type":     {"email": 42, "password": "long-enough"},
	} {
		t.Run(name, func(t *testing.T) {
			status, _, errBody := fx.call(t, OpCreateUser, "", payload)
			require.NotNil(t, errBody)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, string(failure.KindInvalidArgument), errBody.Code)
		})
	}
}

func TestGetProfile_AbsentIsSuccess(t *testing.T) {
	fx := newFixture(t)

	status, data, errBody := fx.call(t, OpGetProfile, fx.token(t, "u1", nil), nil)
	require.Nil(t, errBody)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]any{"profile": nil}, data)
}

func TestAuthenticatedOperationsRequireCaller(t *testing.T) {
	fx := newFixture(t)

	for _, op := range []string{
		OpUpdateLastLogin, OpGetProfile, OpLogEvent, OpGetUserAnalytics,
		OpSendNotification, OpUpdateFcmToken, OpAIChat, OpClassifyIntent,
	} {
		t.Run(op, func(t *testing.T) {
			status, _, errBody := fx.call(t, op, "", map[string]any{})
			require.NotNil(t, errBody)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, "unauthenticated", errBody.Code)
			assert.Equal(t, "User must be authenticated", errBody.Message)
		})
	}
}

func TestUpdateLastLogin(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	_, _, errBody := fx.call(t, OpUpdateLastLogin, fx.token(t, "u1", nil), nil)
	require.NotNil(t, errBody)
	assert.Equal(t, "not-found", errBody.Code)

	require.NoError(t, fx.store.Put(ctx, docstore.CollectionUsers, docstore.Item{"userId": "u1", fieldLastLogin: "old"}))
	_, data, errBody := fx.call(t, OpUpdateLastLogin, fx.token(t, "u1", nil), nil)
	require.Nil(t, errBody)
	assert.Equal(t, true, data["success"])

	profile, _, err := fx.store.Get(ctx, docstore.CollectionUsers, docstore.Key{"userId": "u1"})
	require.NoError(t, err)
	assert.Equal(t, "2025-06-01T08:30:00Z", profile[fieldLastLogin])
}

func TestSetCustomClaims(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	require.NoError(t, fx.store.Put(ctx, docstore.CollectionUsers, docstore.Item{"userId": "u2"}))
	payload := map[string]any{"uid": "u2", "claims": map[string]any{"premium": true}}

	_, _, errBody := fx.call(t, OpSetCustomClaims, fx.token(t, "u1", nil), payload)
	require.NotNil(t, errBody)
	assert.Equal(t, "permission-denied", errBody.Code)

	_, _, errBody = fx.call(t, OpSetCustomClaims, "", payload)
	require.NotNil(t, errBody)
	assert.Equal(t, "unauthenticated", errBody.Code)

	admin := fx.token(t, "root", map[string]bool{authn.FlagAdmin: true})
	_, data, errBody := fx.call(t, OpSetCustomClaims, admin, payload)
	require.Nil(t, errBody)
	assert.Equal(t, true, data["success"])

	profile, _, err := fx.store.Get(ctx, docstore.CollectionUsers, docstore.Key{"userId": "u2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"premium": true}, profile[fieldCustomClaims])

	_, _, errBody = fx.call(t, OpSetCustomClaims, admin, map[string]any{"uid": "ghost", "claims": map[string]any{}})
	require.NotNil(t, errBody)
	assert.Equal(t, "not-found", errBody.Code)
}

func TestLogEventAndAnalytics(t *testing.T) {
	fx := newFixture(t)
	token := fx.token(t, "u1", nil)

	_, data, errBody := fx.call(t, OpLogEvent, token, map[string]any{
		"eventName":  "dua_read",
		"parameters": map[string]any{"platform": "ios", "duaId": "d1"},
	})
	require.Nil(t, errBody)
	eventID := data["eventId"].(string)
	assert.NotEmpty(t, eventID)

	ctx := context.Background()
	require.NoError(t, fx.store.Put(ctx, docstore.CollectionAnalytics, docstore.Item{
		"eventId": "older", "userId": "u1", "eventName": "app_open", "timestamp": testNow.UnixMilli() - 1000,
	}))
	require.NoError(t, fx.store.Put(ctx, docstore.CollectionAnalytics, docstore.Item{
		"eventId": "other", "userId": "u2", "eventName": "app_open", "timestamp": testNow.UnixMilli(),
	}))

	_, data, errBody = fx.call(t, OpGetUserAnalytics, token, nil)
	require.Nil(t, errBody)
	events := data["analytics"].([]any)
	require.Len(t, events, 2)
	newest := events[0].(map[string]any)
	assert.Equal(t, eventID, newest["eventId"])
	assert.Equal(t, "ios", newest["platform"])
	assert.Equal(t, unknownValue, newest["appVersion"])
	assert.Equal(t, "", newest["sessionId"])
	assert.Equal(t, "older", events[1].(map[string]any)["eventId"])

	_, data, errBody = fx.call(t, OpGetUserAnalytics, token, map[string]any{"startDate": testNow.UnixMilli() - 500})
	require.Nil(t, errBody)
	assert.Len(t, data["analytics"].([]any), 1)

	_, data, errBody = fx.call(t, OpGetUserAnalytics, token, map[string]any{"limit": 1})
	require.Nil(t, errBody)
	assert.Len(t, data["analytics"].([]any), 1)

	_, _, errBody = fx.call(t, OpGetUserAnalytics, token, map[string]any{"limit": 0})
	require.NotNil(t, errBody)
	assert.Equal(t, "invalid-argument", errBody.Code)

	_, _, errBody = fx.call(t, OpGetUserAnalytics, token, map[string]any{"startDate": 10, "endDate": 5})
	require.NotNil(t, errBody)
	assert.Equal(t, "invalid-argument", errBody.Code)
}

func TestSendNotification(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	token := fx.token(t, "u1", nil)
	payload := map[string]any{"targetUserId": "u2", "title": "Fajr", "body": "Time for prayer", "data": map[string]any{"k": 1}}

	_, _, errBody := fx.call(t, OpSendNotification, token, payload)
	require.NotNil(t, errBody)
	assert.Equal(t, "not-found", errBody.Code)

	require.NoError(t, fx.store.Put(ctx, docstore.CollectionUsers, docstore.Item{"userId": "u2"}))
	_, _, errBody = fx.call(t, OpSendNotification, token, payload)
	require.NotNil(t, errBody)
	assert.Equal(t, "failed-precondition", errBody.Code)
	assert.Equal(t, "User has no FCM token", errBody.Message)

	_, data, errBody := fx.call(t, OpUpdateFcmToken, fx.token(t, "u2", nil), map[string]any{"token": "device-1"})
	require.Nil(t, errBody)
	assert.Equal(t, map[string]any{"success": true}, data)

	_, data, errBody = fx.call(t, OpSendNotification, token, payload)
	require.Nil(t, errBody)
	assert.Equal(t, map[string]any{"success": true, "messageId": "msg-1"}, data)

	require.Len(t, fx.notifier.sent, 1)
	sent := fx.notifier.sent[0]
	assert.Equal(t, "device-1", sent.DeviceToken)
	assert.Equal(t, "u1", sent.FromUserID)
	assert.Equal(t, defaultNotificationType, sent.Type)
	assert.Equal(t, map[string]string{"k": "1"}, sent.Data)
}

func TestUpdateFcmToken(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	token := fx.token(t, "u1", nil)

	_, _, errBody := fx.call(t, OpUpdateFcmToken, token, map[string]any{"token": "device-1"})
	require.NotNil(t, errBody)
	assert.Equal(t, "not-found", errBody.Code)

	require.NoError(t, fx.store.Put(ctx, docstore.CollectionUsers, docstore.Item{"userId": "u1", "email": "u1@example.com"}))

	for _, payload := range []map[string]any{{}, {"token": ""}, {"token": 42}} {
		_, _, errBody = fx.call(t, OpUpdateFcmToken, token, payload)
		require.NotNil(t, errBody)
		assert.Equal(t, "invalid-argument", errBody.Code)
	}

	_, data, errBody := fx.call(t, OpUpdateFcmToken, token, map[string]any{"token": "device-2"})
	require.Nil(t, errBody)
	assert.Equal(t, true, data["success"])

	profile, _, err := fx.store.Get(ctx, docstore.CollectionUsers, docstore.Key{"userId": "u1"})
	require.NoError(t, err)
	assert.Equal(t, "device-2", profile[fieldFCMToken])
	assert.Equal(t, "2025-06-01T08:30:00Z", profile[fieldFCMUpdatedAt])
	assert.Equal(t, "u1@example.com", profile["email"])
}

func TestAIChat(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	token := fx.token(t, "u1", nil)

	require.NoError(t, fx.store.Put(ctx, docstore.CollectionUsers, docstore.Item{
		"userId": "u1", fieldPreferences: map[string]any{"madhab": "hanafi"},
	}))

	_, data, errBody := fx.call(t, OpAIChat, token, map[string]any{"message": "What should I recite before sleep?"})
	require.Nil(t, errBody)
	conversationID := data["conversationId"].(string)
	assert.NotEmpty(t, conversationID)
	assert.Equal(t, fx.completer.answer, data["response"])
	assert.Len(t, data["citations"].([]any), 2)

	require.Len(t, fx.completer.requests, 1)
	first := fx.completer.requests[0]
	assert.Equal(t, defaultChatModel, first.Model)
	assert.Equal(t, chatMaxTokens, first.MaxTokens)
	assert.Contains(t, first.Messages[0].Content, `"madhab":"hanafi"`)
	assert.Len(t, first.Messages, 2)

	_, _, errBody = fx.call(t, OpAIChat, token, map[string]any{"message": "And after?", "conversationId": conversationID})
	require.Nil(t, errBody)

	second := fx.completer.requests[1]
	require.Len(t, second.Messages, 4)
	assert.Equal(t, roleUser, second.Messages[1].Role)
	assert.Equal(t, "What should I recite before sleep?", second.Messages[1].Content)
	assert.Equal(t, roleAssistant, second.Messages[2].Role)
	assert.Equal(t, "And after?", second.Messages[3].Content)
}

func TestAIChat_CompletionFailureIsInternal(t *testing.T) {
	fx := newFixture(t)
	fx.completer.err = errors.New("upstream said: key sk-live-123 revoked")

	status, _, errBody := fx.call(t, OpAIChat, fx.token(t, "u1", nil), map[string]any{"message": "hi"})
	require.NotNil(t, errBody)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.NotContains(t, errBody.Message, "sk-live-123")
}

func TestClassifyIntent(t *testing.T) {
	fx := newFixture(t)
	token := fx.token(t, "u1", nil)

	tests := []struct {
		answer string
		want   string
	}{
		{answer: "  Dua_Request\n", want: "dua_request"},
		{answer: "prayer_times", want: "prayer_times"},
		{answer: "something else", want: fallbackIntent},
	}
	for _, tt := range tests {
		fx.completer.answer = tt.answer
		_, data, errBody := fx.call(t, OpClassifyIntent, token, map[string]any{"query": "when is maghrib"})
		require.Nil(t, errBody)
		assert.Equal(t, tt.want, data["intent"])
		assert.Equal(t, intentConfidence, data["confidence"])
	}
}

func TestAI_NotConfigured(t *testing.T) {
	store := docstore.NewFacade(docstore.NewMemoryBackend(), docstore.DefaultCatalog(), nil)
	issuer, err := authn.NewIssuer(testSecret, 0)
	require.NoError(t, err)
	fns, err := New(Dependencies{Store: store, Issuer: issuer})
	require.NoError(t, err)

	auth := authn.Authenticated(&authn.Claims{Subject: "u1"})
	_, err = fns.classifyIntent(context.Background(), map[string]any{"query": "q"}, auth)
	require.Error(t, err)
	assert.Equal(t, failure.KindFailedPrecondition, failure.Classify(err).Kind)
}

func TestIslamicContent(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	for _, dua := range []docstore.Item{
		{"duaId": "d1", "category": "morning", "language": "en", "text": "O Allah, by You we enter the morning"},
		{"duaId": "d2", "category": "morning", "language": "ar", "text": "اللهم بك أصبحنا"},
		{"duaId": "d3", "category": "evening", "language": "en", "text": "O Allah, by You we enter the evening"},
	} {
		require.NoError(t, fx.store.Put(ctx, docstore.CollectionDuas, dua))
	}
	for _, verse := range []docstore.Item{
		{"verseKey": "1:1", "language": "en", "text": "In the name of Allah, the Most Merciful"},
		{"verseKey": "2:255", "language": "en", "text": "Allah - there is no deity except Him"},
		{"verseKey": "1:1-fr", "language": "fr", "text": "Au nom d'Allah, le Tout Miséricordieux"},
	} {
		require.NoError(t, fx.store.Put(ctx, docstore.CollectionQuran, verse))
	}

	_, data, errBody := fx.call(t, OpGetDuas, "", map[string]any{"category": "morning"})
	require.Nil(t, errBody)
	duas := data["duas"].([]any)
	require.Len(t, duas, 1)
	assert.Equal(t, "d1", duas[0].(map[string]any)["duaId"])

	_, _, errBody = fx.call(t, OpGetDuas, "", map[string]any{})
	require.NotNil(t, errBody)
	assert.Equal(t, "invalid-argument", errBody.Code)

	_, data, errBody = fx.call(t, OpSearchQuran, "", map[string]any{"query": "MERCIFUL"})
	require.Nil(t, errBody)
	verses := data["verses"].([]any)
	require.Len(t, verses, 1)
	assert.Equal(t, "1:1", verses[0].(map[string]any)["verseKey"])

	_, data, errBody = fx.call(t, OpSearchQuran, "", map[string]any{"query": "allah", "limit": 1})
	require.Nil(t, errBody)
	assert.Len(t, data["verses"].([]any), 1)

	_, data, errBody = fx.call(t, OpSearchQuran, "", map[string]any{"query": "nothing matches this"})
	require.Nil(t, errBody)
	assert.Empty(t, data["verses"])
}

func TestExtractCitations(t *testing.T) {
	citations := ExtractCitations("See quran 2:255 and Quran  112:1. A hadith in Sahih Muslim and one from Abu Dawud.")

	assert.Equal(t, []Citation{
		{Type: CitationQuran, Reference: "2:255", Text: "quran 2:255"},
		{Type: CitationQuran, Reference: "112:1", Text: "Quran  112:1"},
		{Type: CitationHadith, Collection: "Muslim", Text: "hadith in Sahih Muslim"},
	}, citations)

	assert.Empty(t, ExtractCitations("no references here"))
	assert.NotNil(t, ExtractCitations(""))
}

type fakeSNS struct {
	input *sns.PublishInput
}

func (f *fakeSNS) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = params
	return &sns.PublishOutput{MessageId: aws.String("sns-42")}, nil
}

func TestSNSNotifier(t *testing.T) {
	_, err := NewSNSNotifierWithClient(&fakeSNS{}, "", nil)
	assert.ErrorIs(t, err, ErrMissingTopic)

	client := &fakeSNS{}
	notifier, err := NewSNSNotifierWithClient(client, "arn:aws:sns:eu-west-1:123:notify", nil)
	require.NoError(t, err)

	id, err := notifier.Notify(context.Background(), Notification{Title: "Fajr", Body: "Time", Type: "prayer", TargetUserID: "u2"})
	require.NoError(t, err)
	assert.Equal(t, "sns-42", id)
	assert.Equal(t, "arn:aws:sns:eu-west-1:123:notify", aws.ToString(client.input.TopicArn))
	assert.Equal(t, "Fajr", aws.ToString(client.input.Subject))

	var message map[string]any
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(client.input.Message)), &message))
	assert.Equal(t, "u2", message["targetUserId"])
	assert.Equal(t, "prayer", message["type"])
}

func TestOpenAIClient(t *testing.T) {
	var got CompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"salaam"}}]}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient(OpenAIConfig{BaseURL: srv.URL + "/v1/", APIKey: "test-key"}, nil)
	answer, err := client.Complete(context.Background(), CompletionRequest{
		Model:    "gpt-4",
		Messages: []Message{{Role: roleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "salaam", answer)
	assert.Equal(t, "gpt-4", got.Model)
}

func TestOpenAIClient_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/empty/chat/completions" {
			_, _ = w.Write([]byte(`{"choices":[]}`))
			return
		}
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewOpenAIClient(OpenAIConfig{BaseURL: srv.URL}, nil).Complete(context.Background(), CompletionRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")

	_, err = NewOpenAIClient(OpenAIConfig{BaseURL: srv.URL + "/empty"}, nil).Complete(context.Background(), CompletionRequest{})
	assert.ErrorIs(t, err, ErrNoChoices)
}
