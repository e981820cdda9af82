package storage

import (
	"context"
	"errors"

	"moviekotha/internal/domain"
)

// ErrAlreadyExists is returned by Insert when a movie with the same TMDB id
// is already in the store.
var ErrAlreadyExists = errors.New("movie already exists")

// Repository defines the interface for movie catalog storage.
// This allows us to swap storage implementations (e.g., MongoDB, in-memory)
// without changing the core application logic that uses it.
type Repository interface {
	// Insert stores a new movie. It returns ErrAlreadyExists when a record
	// with the same TMDB id is present; the check-and-insert is atomic at
	// the storage layer.
	Insert(ctx context.Context, movie domain.Movie) error

	// Exists reports whether a movie with the given TMDB id is stored.
	Exists(ctx context.Context, tmdbID int) (bool, error)

	// Search returns every movie whose title contains the query,
	// case-insensitively. No match is an empty slice, not an error.
	Search(ctx context.Context, query string) ([]domain.Movie, error)

	// DeleteByTitle removes the movie whose title equals the argument,
	// case-insensitively, and reports whether a record was removed.
	DeleteByTitle(ctx context.Context, title string) (bool, error)

	// DeleteByID removes the movie with the given TMDB id and reports
	// whether a record was removed.
	DeleteByID(ctx context.Context, tmdbID int) (bool, error)

	// ListTitles returns every stored title, alphabetically sorted.
	ListTitles(ctx context.Context) ([]string, error)

	// Close gracefully shuts down the repository connection.
	Close(ctx context.Context) error
}
