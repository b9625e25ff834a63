package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHuggingFaceProvider_Complete(t *testing.T) {
	var got hfRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/"+DefaultHuggingFaceModel {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer hf-key" {
			t.Errorf("Unexpected Authorization header %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`[{"generated_text": " {\"score\": 40} "}]`))
	}))
	defer server.Close()

	provider, err := NewHuggingFaceProvider(Config{APIKey: "hf-key", BaseURL: server.URL, MaxTokens: 256})
	if err != nil {
		t.Fatalf("NewHuggingFaceProvider: %v", err)
	}

	resp, err := provider.Complete(context.Background(), CompletionRequest{Prompt: "review this", System: "be brief"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Text != `{"score": 40}` {
		t.Errorf("Unexpected text %q", resp.Text)
	}
	if resp.Model != DefaultHuggingFaceModel {
		t.Errorf("Expected default model, got %s", resp.Model)
	}
	if !strings.HasPrefix(got.Inputs, "be brief\n\nreview this") {
		t.Errorf("System text not prepended: %q", got.Inputs)
	}
	if got.Parameters.MaxNewTokens != 256 || got.Parameters.ReturnFullText {
		t.Errorf("Unexpected parameters %+v", got.Parameters)
	}
}

func TestHuggingFaceProvider_NoKeyNoAuthHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h := r.Header.Get("Authorization"); h != "" {
			t.Errorf("Expected no Authorization header, got %q", h)
		}
		_, _ = w.Write([]byte(`{"generated_text": "ok"}`))
	}))
	defer server.Close()

	provider, _ := NewHuggingFaceProvider(Config{BaseURL: server.URL, Model: "org/model"})
	resp, err := provider.Complete(context.Background(), CompletionRequest{Prompt: "x"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Text != "ok" || resp.Model != "org/model" {
		t.Errorf("Unexpected response %+v", resp)
	}
}

func TestHuggingFaceProvider_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error": "Model is currently loading"}`))
	}))
	defer server.Close()

	provider, _ := NewHuggingFaceProvider(Config{BaseURL: server.URL})
	_, err := provider.Complete(context.Background(), CompletionRequest{Prompt: "x"})
	if err == nil {
		t.Fatal("Expected error")
	}
	if !strings.Contains(err.Error(), "Model is currently loading") || !strings.Contains(err.Error(), "503") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestHFText(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{"generation list", `[{"generated_text":"a"}]`, "a", false},
		{"summary list", `[{"summary_text":"b"}]`, "b", false},
		{"generation object", `{"generated_text":"c"}`, "c", false},
		{"data string", `{"data":"d"}`, "d", false},
		{"data object", `{"data":{"k":1}}`, `{"k":1}`, false},
		{"error object", `{"error":"boom"}`, "", true},
		{"unknown shape", `{"label":"x"}`, `{"label":"x"}`, false},
		{"plain text", `hello`, "hello", false},
		{"empty", ``, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := hfText([]byte(tt.body))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
