package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestVibesCommandRendersOracleSuggestions(t *testing.T) {
	var gotPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.Messages) == 2 {
			gotPrompt = req.Messages[1].Content
		}
		content, _ := json.Marshal(map[string]any{
			"options": []map[string]string{
				{"name": "Night Drive", "description": "Synth-heavy and steady"},
				{"name": "Slow Burn", "description": "Smoky late-night soul"},
			},
		})
		body, _ := json.Marshal(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": string(content)}},
			},
		})
		_, _ = w.Write(body)
	}))
	t.Cleanup(server.Close)

	base := t.TempDir()
	cfgPath := filepath.Join(base, "config.toml")
	cfgBody := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q

[oracle]
api_key = "sk-test"
base_url = %q
`, filepath.Join(base, "data"), filepath.Join(base, "logs"), server.URL)
	if err := os.WriteFile(cfgPath, []byte(cfgBody), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"-c", cfgPath, "vibes", "rainy", "sunday", "evening"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(gotPrompt, "rainy sunday evening") {
		t.Fatalf("prompt = %q, want joined instruction", gotPrompt)
	}
	for _, want := range []string{"Night Drive", "Synth-heavy and steady", "Slow Burn"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("output missing %q:\n%s", want, out.String())
		}
	}
}
