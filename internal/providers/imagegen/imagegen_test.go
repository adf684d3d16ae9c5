package imagegen

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandevgo/muse/internal/config"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\nfake")

func newFooocusServer(t *testing.T, finish string, delay time.Duration) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var srv *httptest.Server

	mux.HandleFunc(textToImagePath, func(w http.ResponseWriter, r *http.Request) {
		var req textToImageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 1, req.ImageNumber)

		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}

		_ = json.NewEncoder(w).Encode([]generatedImage{{
			URL:          srv.URL + "/files/" + req.Prompt + ".png",
			Seed:         "42",
			FinishReason: finish,
		}})
	})
	mux.HandleFunc("/files/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(pngBytes)
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestAPIClient_DownloadsImage(t *testing.T) {
	srv := newFooocusServer(t, "SUCCESS", 0)
	out := t.TempDir()

	path, err := NewAPIClient(srv.URL, out).Generate(context.Background(), "cat", time.Second)
	require.NoError(t, err)

	assert.Equal(t, out, filepath.Dir(path))
	assert.Equal(t, ".png", filepath.Ext(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)
}

func TestAPIClient_NoSuccessfulImage(t *testing.T) {
	srv := newFooocusServer(t, "NSFW", 0)

	path, err := NewAPIClient(srv.URL, t.TempDir()).Generate(context.Background(), "x", time.Second)
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestAPIClient_TimeoutIsEmptyResult(t *testing.T) {
	srv := newFooocusServer(t, "SUCCESS", time.Second)

	path, err := NewAPIClient(srv.URL, t.TempDir()).Generate(context.Background(), "slow", 50*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestAPIClient_BackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewAPIClient(srv.URL, t.TempDir()).Generate(context.Background(), "x", time.Second)
	assert.ErrorContains(t, err, "fooocus http 500")
}

func TestOutputWatcher_ReportsNewImage(t *testing.T) {
	dir := t.TempDir()
	w, err := newOutputWatcher(dir)
	require.NoError(t, err)
	defer w.Close()

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644)
		_ = os.WriteFile(filepath.Join(dir, "render.png"), pngBytes, 0o644)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	path, err := w.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "render.png"), path)
}

func TestOutputWatcher_FollowsNewSubdirectory(t *testing.T) {
	dir := t.TempDir()
	w, err := newOutputWatcher(dir)
	require.NoError(t, err)
	defer w.Close()

	day := filepath.Join(dir, "2026-10-18")
	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = os.Mkdir(day, 0o755)
		time.Sleep(100 * time.Millisecond)
		_ = os.WriteFile(filepath.Join(day, "a.jpeg"), pngBytes, 0o644)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	path, err := w.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(day, "a.jpeg"), path)
}

func TestOutputWatcher_DeadlineIsEmptyResult(t *testing.T) {
	w, err := newOutputWatcher(t.TempDir())
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	path, err := w.Next(ctx)
	assert.NoError(t, err)
	assert.Empty(t, path)
}

func TestNewGenerator(t *testing.T) {
	ctx := context.Background()

	g, err := NewGenerator(ctx, &config.ImageConfig{Mode: config.FooocusModeAPI}, t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &APIClient{}, g)

	g, err = NewGenerator(ctx, &config.ImageConfig{Mode: config.FooocusModeBrowser}, t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &BrowserDriver{}, g)

	_, err = NewGenerator(ctx, &config.ImageConfig{Mode: "carrier-pigeon"}, t.TempDir())
	assert.Error(t, err)
}
