package convert

import "errors"

var (
	// ErrMissingCredential is returned when a converter needs an API key that
	// was not configured.
	ErrMissingCredential = errors.New("missing conversion credential")

	// ErrConversionFailed is returned when the conversion tool or API fails.
	ErrConversionFailed = errors.New("conversion failed")

	// ErrOutputMissing is returned when a conversion reports success but the
	// expected output file does not exist.
	ErrOutputMissing = errors.New("conversion output not found")
)
