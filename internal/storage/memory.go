package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"moviekotha/internal/domain"
)

// MemoryRepository is an in-process Repository with the same contract as the
// MongoDB implementation. It backs the test suite, where an external MongoDB
// is not available, and keeps the uniqueness guarantee under its own lock.
type MemoryRepository struct {
	mu     sync.Mutex
	movies []domain.Movie
}

// NewMemoryRepository creates an empty in-memory movie store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Close(ctx context.Context) error { return nil }

func (r *MemoryRepository) Insert(ctx context.Context, movie domain.Movie) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.movies {
		if m.TMDBID == movie.TMDBID {
			return ErrAlreadyExists
		}
	}
	if movie.CreatedAt.IsZero() {
		movie.CreatedAt = time.Now()
	}
	r.movies = append(r.movies, movie)
	return nil
}

func (r *MemoryRepository) Exists(ctx context.Context, tmdbID int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.movies {
		if m.TMDBID == tmdbID {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryRepository) Search(ctx context.Context, query string) ([]domain.Movie, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	needle := strings.ToLower(query)
	matches := []domain.Movie{}
	for _, m := range r.movies {
		if strings.Contains(strings.ToLower(m.Title), needle) {
			matches = append(matches, m)
		}
	}
	return matches, nil
}

func (r *MemoryRepository) DeleteByTitle(ctx context.Context, title string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, m := range r.movies {
		if strings.EqualFold(m.Title, title) {
			r.movies = append(r.movies[:i], r.movies[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryRepository) DeleteByID(ctx context.Context, tmdbID int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, m := range r.movies {
		if m.TMDBID == tmdbID {
			r.movies = append(r.movies[:i], r.movies[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryRepository) ListTitles(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	titles := make([]string, 0, len(r.movies))
	for _, m := range r.movies {
		titles = append(titles, m.Title)
	}
	sort.Strings(titles)
	return titles, nil
}
