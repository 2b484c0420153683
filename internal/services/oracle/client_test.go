package oracle_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"moodify/internal/config"
	"moodify/internal/services"
	"moodify/internal/services/oracle"
)

func completionBody(content string) string {
	encoded, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	})
	return string(encoded)
}

func newTestClient(t *testing.T, handler http.Handler, opts ...oracle.Option) *oracle.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	opts = append([]oracle.Option{
		oracle.WithBaseURL(server.URL),
		oracle.WithSleeper(func(time.Duration) {}),
	}, opts...)
	return oracle.NewClient(config.Oracle{APIKey: "sk-test", Model: "test-model"}, opts...)
}

func TestExpandVibeParsesSuggestions(t *testing.T) {
	var gotRequest struct {
		Model          string            `json:"model"`
		ResponseFormat map[string]string `json:"response_format"`
		Messages       []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("auth header = %q", got)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotRequest)
		fmt.Fprint(w, completionBody(`{"items":[{"title":"One","artist":"A"},{"title":"Two","artist":"B"}],"mood":"midnight"}`))
	}))

	expansion, err := client.ExpandVibe(context.Background(), oracle.ExpansionSeed{
		CurrentTitle:  "Seed",
		CurrentArtist: "Artist",
		Mood:          "focus",
		Strategy:      "conservative",
		Count:         2,
	})
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(expansion.Items) != 2 || expansion.Mood != "midnight" {
		t.Fatalf("expansion = %+v", expansion)
	}
	if gotRequest.Model != "test-model" {
		t.Errorf("model = %q", gotRequest.Model)
	}
	if gotRequest.ResponseFormat["type"] != "json_object" {
		t.Errorf("response format = %v", gotRequest.ResponseFormat)
	}
	if len(gotRequest.Messages) != 2 || gotRequest.Messages[0].Role != "system" {
		t.Errorf("messages = %+v", gotRequest.Messages)
	}
}

func TestExpandVibeStripsMarkdownFences(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fenced := "```json\n{\"items\":[{\"title\":\"One\",\"artist\":\"A\"}],\"mood\":\"calm\"}\n```"
		fmt.Fprint(w, completionBody(fenced))
	}))

	expansion, err := client.ExpandVibe(context.Background(), oracle.ExpansionSeed{Count: 1})
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(expansion.Items) != 1 || expansion.Items[0].Title != "One" {
		t.Fatalf("expansion = %+v", expansion)
	}
}

func TestExpandVibeEmptyItemsIsOracleError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, completionBody(`{"items":[],"mood":"calm"}`))
	}))

	if _, err := client.ExpandVibe(context.Background(), oracle.ExpansionSeed{}); !errors.Is(err, services.ErrOracle) {
		t.Fatalf("got %v, want ErrOracle", err)
	}
}

func TestRescueVibeParsesReplacement(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, completionBody(`{"items":[{"title":"Fresh","artist":"C"}],"vibe":"new direction","reasoning":"skipped three in a row"}`))
	}))

	rescue, err := client.RescueVibe(context.Background(), oracle.RescueSeed{
		RecentSkips: []oracle.SkipContext{{Title: "Old", Artist: "X", ListenSecs: 4}},
		Strategy:    "exploratory",
		Count:       1,
	})
	if err != nil {
		t.Fatalf("rescue: %v", err)
	}
	if rescue.Vibe != "new direction" || len(rescue.Items) != 1 {
		t.Fatalf("rescue = %+v", rescue)
	}
}

func TestVibeOptionsRequiresInstruction(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not reach the server")
	}))

	if _, err := client.VibeOptions(context.Background(), "  "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("got %v, want ErrValidation", err)
	}
}

func TestMissingAPIKeyIsConfigurationError(t *testing.T) {
	client := oracle.NewClient(config.Oracle{Model: "m", BaseURL: "http://unused.test"})
	if _, err := client.ExpandVibe(context.Background(), oracle.ExpansionSeed{}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("got %v, want ErrConfiguration", err)
	}
}

func TestRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int64
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, completionBody(`{"items":[{"title":"One","artist":"A"}],"mood":"calm"}`))
	}), oracle.WithRetryMaxAttempts(3))

	if _, err := client.ExpandVibe(context.Background(), oracle.ExpansionSeed{}); err != nil {
		t.Fatalf("should succeed on third attempt: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("calls = %d, want 3", got)
	}
}

func TestDoesNotRetryAuthFailures(t *testing.T) {
	var calls atomic.Int64
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}), oracle.WithRetryMaxAttempts(3))

	_, err := client.ExpandVibe(context.Background(), oracle.ExpansionSeed{})
	if !errors.Is(err, services.ErrAuth) {
		t.Fatalf("got %v, want ErrAuth", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("calls = %d, want 1", got)
	}
}

func TestRateLimitExhaustionReturnsTypedError(t *testing.T) {
	var calls atomic.Int64
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}), oracle.WithRetryMaxAttempts(2))

	_, err := client.ExpandVibe(context.Background(), oracle.ExpansionSeed{})
	if !errors.Is(err, services.ErrRateLimited) {
		t.Fatalf("got %v, want ErrRateLimited", err)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("calls = %d, want 2", got)
	}
}

func TestInBandErrorMessageSurfaces(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":{"message":"model overloaded"}}`)
	}))

	_, err := client.ExpandVibe(context.Background(), oracle.ExpansionSeed{})
	if !errors.Is(err, services.ErrOracle) {
		t.Fatalf("got %v, want ErrOracle", err)
	}
}
