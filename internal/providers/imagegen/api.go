package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/sandevgo/muse/pkg/log"
)

const textToImagePath = "/v1/generation/text-to-image"

// APIClient renders through the Fooocus-API HTTP service and downloads the
// result into outputDir.
type APIClient struct {
	client    *http.Client
	baseURL   string
	outputDir string
}

func NewAPIClient(baseURL, outputDir string) *APIClient {
	return &APIClient{
		client:    &http.Client{},
		baseURL:   baseURL,
		outputDir: outputDir,
	}
}

type textToImageRequest struct {
	Prompt        string `json:"prompt"`
	ImageNumber   int    `json:"image_number"`
	AsyncProcess  bool   `json:"async_process"`
	RequireBase64 bool   `json:"require_base64"`
}

type generatedImage struct {
	URL          string `json:"url"`
	Seed         string `json:"seed"`
	FinishReason string `json:"finish_reason"`
}

func (c *APIClient) Generate(ctx context.Context, prompt string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	path, err := c.generate(ctx, prompt)
	if errors.Is(err, context.DeadlineExceeded) {
		log.FromCtx(ctx).Warn().Dur("timeout", timeout).Msg("fooocus did not finish in time")
		return "", nil
	}
	return path, err
}

func (c *APIClient) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(textToImageRequest{Prompt: prompt, ImageNumber: 1})
	if err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+textToImagePath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fooocus http %d: %s", resp.StatusCode, string(data))
	}

	var images []generatedImage
	if err := json.Unmarshal(data, &images); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}

	for _, img := range images {
		if img.FinishReason != "SUCCESS" || img.URL == "" {
			continue
		}
		return c.download(ctx, img.URL)
	}
	return "", nil
}

func (c *APIClient) download(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download http %d", resp.StatusCode)
	}

	if err := os.MkdirAll(c.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	ext := path.Ext(req.URL.Path)
	if !isImage(ext) {
		ext = ".png"
	}
	dst := filepath.Join(c.outputDir, uuid.NewString()+ext)

	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(dst)
		return "", fmt.Errorf("write file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close file: %w", err)
	}
	return dst, nil
}

func (c *APIClient) Start(ctx context.Context) error {
	return nil
}

func (c *APIClient) Shutdown(ctx context.Context) error {
	c.client.CloseIdleConnections()
	return nil
}
