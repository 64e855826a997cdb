package art

import (
	"errors"
	"fmt"
)

// ConfigurationError is returned before any network call when the provider
// credential is missing or malformed.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("openai api key is not configured: %v", e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// UpstreamError wraps any failure of the provider, including empty results.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

func IsUpstreamError(err error) bool {
	var upErr *UpstreamError
	return errors.As(err, &upErr)
}

// ErrEmptyExpansion is the cause of an UpstreamError when the chat model
// answers with nothing usable as an image prompt.
var ErrEmptyExpansion = errors.New("expanded prompt is empty")

var (
	errNoChoices   = errors.New("no choices returned")
	errNoImageData = errors.New("no image data returned")
)
