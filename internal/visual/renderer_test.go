package visual

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"briefly/internal/core"
)

func imageServer(t *testing.T, payloadSize int) *httptest.Server {
	t.Helper()
	data := strings.Repeat("a", payloadSize)
	b64 := base64.StdEncoding.EncodeToString([]byte(data))
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := DALLEResponse{Data: []DALLEImageResult{{B64JSON: b64}}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestRenderSucceedsWithSufficientSize(t *testing.T) {
	srv := imageServer(t, MinImageBytes+1024)
	defer srv.Close()

	client := NewDALLEClient("test-key")
	client.baseURL = srv.URL

	dir := t.TempDir()
	r := NewImageRenderer(client, dir, &core.RunStats{})

	cover := r.Render(context.Background(), "2026-W05", core.AIAndStrategy, SceneDirection{Prompt: "p", Style: "editorial"})
	if cover.Fallback {
		t.Fatalf("expected a rendered cover, got fallback: %+v", cover)
	}
	if _, err := os.Stat(filepath.Join(dir, "2026-W05", "ai_strategy_cover.png.json")); err != nil {
		t.Errorf("expected debug sidecar written: %v", err)
	}
}

func TestRenderFallsBackWhenUndersized(t *testing.T) {
	srv := imageServer(t, 10)
	defer srv.Close()

	client := NewDALLEClient("test-key")
	client.baseURL = srv.URL

	dir := t.TempDir()
	r := NewImageRenderer(client, dir, &core.RunStats{})

	cover := r.Render(context.Background(), "2026-W05", core.AIAndStrategy, SceneDirection{Prompt: "p"})
	if !cover.Fallback {
		t.Fatalf("expected fallback due to undersized image, got %+v", cover)
	}
}

func TestRenderNoClientUsesFallback(t *testing.T) {
	r := NewImageRenderer(nil, t.TempDir(), &core.RunStats{})
	cover := r.Render(context.Background(), "2026-W05", core.AIAndStrategy, SceneDirection{Prompt: "p"})
	if !cover.Fallback {
		t.Fatalf("expected fallback with no client, got %+v", cover)
	}
}
