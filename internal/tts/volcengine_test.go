package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/deepwander/deepwander/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := New(config.TTSConfig{
		AppID:       "app-1",
		AccessToken: "token-1",
		Cluster:     "volcano_tts",
		VoiceType:   "BV700_V2_streaming",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	client.endpoint = srv.URL
	return client
}

func TestNewRequiresCredentials(t *testing.T) {
	if _, err := New(config.TTSConfig{}); err != ErrNotConfigured {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestSynthesize(t *testing.T) {
	audio := []byte("fake-mp3-bytes")
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer;token-1" {
			t.Errorf("authorization header = %q", got)
		}
		var req ttsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.App.AppID != "app-1" || req.App.Cluster != "volcano_tts" {
			t.Errorf("unexpected app block: %+v", req.App)
		}
		if req.Request.Text != "hello" || req.Request.Operation != "query" {
			t.Errorf("unexpected request block: %+v", req.Request)
		}
		if req.Audio.VoiceType != "BV700_V2_streaming" {
			t.Errorf("default voice not applied: %+v", req.Audio)
		}
		json.NewEncoder(w).Encode(ttsResponse{Code: 3000, Data: base64.StdEncoding.EncodeToString(audio)})
	})

	out, err := client.Synthesize(context.Background(), "hello", Params{})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(out) != string(audio) {
		t.Fatalf("audio = %q", out)
	}
}

func TestSynthesizeServiceError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ttsResponse{Code: 4001, Message: "invalid voice"})
	})
	if _, err := client.Synthesize(context.Background(), "hello", Params{}); err == nil {
		t.Fatal("expected error for non-3000 code")
	}
}
