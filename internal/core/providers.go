package core

import (
	"context"
	"time"
)

// AIProvider is the text-completion backend.
type AIProvider interface {
	Chat(ctx context.Context, history []Message) (Message, error)
}

// ImageGenerator renders a prompt into an image file. An empty path with a nil
// error means the backend finished without producing an artifact. The timeout is
// enforced by the generator, not by the caller.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string, timeout time.Duration) (string, error)
}
