package fetch

import "errors"

var (
	// ErrChunkerRequired is returned when a nil chunker is supplied.
	ErrChunkerRequired = errors.New("chunker is required")

	// ErrInvalidURL is returned for URLs that are not absolute http(s) URLs.
	ErrInvalidURL = errors.New("invalid page url")

	// ErrUnexpectedStatus is returned for non-2xx page responses.
	ErrUnexpectedStatus = errors.New("unexpected status")

	// ErrUnsupportedContentType is returned for pages that are not text.
	ErrUnsupportedContentType = errors.New("unsupported content type")
)
