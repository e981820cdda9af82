package metadata

import (
	"context"
	"errors"

	"moviekotha/internal/domain"
)

// ErrNotFound is returned when the provider has no movie for the request.
// Transport failures, non-success statuses and malformed payloads map to it
// as well: the caller only ever decides between "use the metadata" and
// "fall back to cached fields".
var ErrNotFound = errors.New("movie metadata not found")

// Client fetches movie metadata from the external provider.
type Client interface {
	// MovieByID returns full metadata for a TMDB movie id.
	MovieByID(ctx context.Context, tmdbID int) (domain.MovieMetadata, error)

	// SearchByName resolves a free-text title to the provider's best match
	// and returns its id together with full metadata.
	SearchByName(ctx context.Context, query string) (int, domain.MovieMetadata, error)
}
