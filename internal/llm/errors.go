package llm

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyTurn is returned when a turn has neither text nor an image.
	ErrEmptyTurn = errors.New("please enter a message or upload an image")
	// ErrImagesDisabled is returned when an image is attached but uploads are turned off.
	ErrImagesDisabled = errors.New("image uploads are disabled")

	errEmptyResponse = errors.New("provider returned no reply")
)

// ProviderError reports any failure talking to the completion endpoint:
// transport, authentication or a malformed/empty response.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
