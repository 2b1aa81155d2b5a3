package domain

import "errors"

var (
	// ErrNotFound signals that the requested entity yields no records.
	ErrNotFound = errors.New("not found")
	// ErrLoginRequired signals a guest request outside the guest allowance.
	// It is always surfaced as an authorization failure, never as an empty
	// result, so callers can tell "nothing exists" from "not for guests".
	ErrLoginRequired = errors.New("login required")
	// ErrBadRequest signals a malformed identifier or parameter.
	ErrBadRequest = errors.New("bad request")
	// ErrSearchFailed signals a semantic search failure; the underlying
	// cause is attached via wrapping.
	ErrSearchFailed = errors.New("search failed")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)
