package core

import "errors"

var (
	// ErrMessageNotFound is returned by a MessageFetcher for unknown ids.
	ErrMessageNotFound = errors.New("message not found")

	// ErrGenerationEmpty means the image backend finished without an artifact.
	ErrGenerationEmpty = errors.New("no image file was found after generation")

	// ErrGeneration wraps failures raised by the image backend.
	ErrGeneration = errors.New("image generation failed")

	// ErrDelivery means a result was produced but could not be sent back.
	ErrDelivery = errors.New("delivery failed")

	// ErrQueueClosed rejects image jobs that cannot run because the queue is shutting down.
	ErrQueueClosed = errors.New("image queue is shut down")

	// ErrCompletion wraps failures of the text-completion backend.
	ErrCompletion = errors.New("completion failed")
)
