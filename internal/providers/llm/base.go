package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sandevgo/muse/pkg/log"
	"github.com/sandevgo/muse/pkg/retry"
)

// Options are the generation settings shared by every provider.
type Options struct {
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
	Retrier     *retry.Retrier
}

func (o Options) withDefaults() Options {
	if o.MaxTokens <= 0 {
		o.MaxTokens = 1024
	}
	if o.Timeout <= 0 {
		o.Timeout = 120 * time.Second
	}
	if o.Retrier == nil {
		o.Retrier = retry.NewDefaultRetrier()
	}
	return o
}

type baseProvider struct {
	client  *http.Client
	retrier *retry.Retrier
	baseURL string
	apiKey  string
	model   string
	opts    Options
}

func newBaseProvider(baseURL, apiKey, model string, opts Options) baseProvider {
	opts = opts.withDefaults()
	return baseProvider{
		client: &http.Client{
			Timeout: opts.Timeout,
		},
		retrier: opts.Retrier,
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		opts:    opts,
	}
}

// StatusError is a non-200 reply from the backend.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Code, e.Body)
}

// Temporary reports whether the request may succeed when repeated.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// post sends body to path and returns the 200 response body. Network errors,
// 429 and 5xx are retried; any other status fails at once.
func (b *baseProvider) post(ctx context.Context, path string, body any, headers map[string]string) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	logger := log.FromCtx(ctx)
	attempt := 0

	var data []byte
	err = b.retrier.Do(ctx, func() error {
		attempt++
		resp, err := b.doRequest(ctx, http.MethodPost, path, bytes.NewReader(payload), headers)
		if err != nil {
			logger.Warn().Err(err).Int("attempt", attempt).Msg("llm request failed")
			return err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			serr := &StatusError{Code: resp.StatusCode, Body: string(raw)}
			if !serr.Temporary() {
				return retry.Permanent(serr)
			}
			logger.Warn().Int("status", resp.StatusCode).Int("attempt", attempt).Msg("llm backend busy, retrying")
			return serr
		}

		data = raw
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (b *baseProvider) doRequest(ctx context.Context, method, path string, body io.Reader, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	return resp, nil
}
