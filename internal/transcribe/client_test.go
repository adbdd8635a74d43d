package transcribe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/donnieprakoso/kiro-voice/internal/audio"
)

func TestClientRecognize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Errorf("failed to parse multipart form: %v", err)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if r.FormValue("vad_filter") != "true" {
			t.Errorf("expected vad_filter=true, got %q", r.FormValue("vad_filter"))
		}
		if r.FormValue("min_silence_duration_ms") != "500" {
			t.Errorf("unexpected min_silence_duration_ms %q", r.FormValue("min_silence_duration_ms"))
		}
		if r.FormValue("language") != "en" {
			t.Errorf("expected language en, got %q", r.FormValue("language"))
		}

		file, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing audio file: %v", err)
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}
		defer file.Close()

		json.NewEncoder(w).Encode(RecognizeResponse{
			Segments: []struct {
				Start float64 `json:"start"`
				End   float64 `json:"end"`
				Text  string  `json:"text"`
			}{
				{Start: 0, End: 1, Text: " hello "},
				{Start: 1, End: 2, Text: "world"},
			},
		})
	}))
	defer server.Close()

	client, err := NewClient(ClientConfig{Endpoint: server.URL, Language: "en"})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	samples := make([]float32, audio.DefaultSampleRate)
	text, err := client.Recognize(context.Background(), samples, audio.DefaultSampleRate)
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if text != "hello world" {
		t.Errorf("expected %q, got %q", "hello world", text)
	}
}

func TestClientRecognizeTextFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(RecognizeResponse{Text: "  plain text  "})
	}))
	defer server.Close()

	client, err := NewClient(ClientConfig{Endpoint: server.URL})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	text, err := client.Recognize(context.Background(), make([]float32, 160), 16000)
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if text != "plain text" {
		t.Errorf("expected trimmed text, got %q", text)
	}
}

func TestClientRetriesServerErrors(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			http.Error(w, "temporarily unavailable", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(RecognizeResponse{Text: "second try"})
	}))
	defer server.Close()

	client, err := NewClient(ClientConfig{
		Endpoint:   server.URL,
		MaxRetries: 2,
		Timeout:    5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	text, err := client.Recognize(context.Background(), make([]float32, 160), 16000)
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if text != "second try" {
		t.Errorf("expected %q, got %q", "second try", text)
	}
	if attempts.Load() != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts.Load())
	}
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Error(w, "bad audio", http.StatusBadRequest)
	}))
	defer server.Close()

	client, err := NewClient(ClientConfig{Endpoint: server.URL, MaxRetries: 3})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	if _, err := client.Recognize(context.Background(), make([]float32, 160), 16000); err == nil {
		t.Fatal("expected error for HTTP 400")
	}
	if attempts.Load() != 1 {
		t.Errorf("expected 1 attempt for a non-retryable error, got %d", attempts.Load())
	}
}

func TestClientEmptyWindow(t *testing.T) {
	client, err := NewClient(ClientConfig{Endpoint: "http://localhost:9"})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	text, err := client.Recognize(context.Background(), nil, 16000)
	if err != nil {
		t.Errorf("expected no error for empty window, got %v", err)
	}
	if text != "" {
		t.Errorf("expected empty text, got %q", text)
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(ClientConfig{}); err == nil {
		t.Error("expected error for missing endpoint")
	}
}
