package search

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moviekotha/internal/domain"
	"moviekotha/internal/metadata"
	"moviekotha/internal/storage"
)

type fakeMetadata struct {
	movies map[int]domain.MovieMetadata
	calls  int
}

func (f *fakeMetadata) MovieByID(ctx context.Context, tmdbID int) (domain.MovieMetadata, error) {
	f.calls++
	if meta, ok := f.movies[tmdbID]; ok {
		return meta, nil
	}
	return domain.MovieMetadata{}, metadata.ErrNotFound
}

func (f *fakeMetadata) SearchByName(ctx context.Context, query string) (int, domain.MovieMetadata, error) {
	return 0, domain.MovieMetadata{}, metadata.ErrNotFound
}

// fakeShortener prefixes URLs when healthy and falls back like the real one
// when not.
type fakeShortener struct {
	healthy bool
	calls   int
}

func (f *fakeShortener) Shorten(ctx context.Context, longURL string) (string, bool) {
	f.calls++
	if f.healthy {
		return "https://short/" + longURL, true
	}
	return longURL, false
}

// spyRepo wraps the memory store and counts Search calls.
type spyRepo struct {
	storage.Repository
	searches int
}

func (s *spyRepo) Search(ctx context.Context, query string) ([]domain.Movie, error) {
	s.searches++
	return s.Repository.Search(ctx, query)
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return log
}

func newTestPipeline(t *testing.T) (*Pipeline, *spyRepo, *fakeMetadata, *fakeShortener) {
	t.Helper()

	repo := &spyRepo{Repository: storage.NewMemoryRepository()}
	meta := &fakeMetadata{movies: map[int]domain.MovieMetadata{
		19995: {
			Title:       "Avatar",
			Overview:    "On Pandora...",
			ReleaseDate: "2009-12-15",
			PosterURL:   "https://image.tmdb.org/t/p/w500/avatar.jpg",
		},
	}}
	short := &fakeShortener{healthy: true}
	return NewPipeline(repo, meta, short, testLogger()), repo, meta, short
}

func TestPipeline_ShortQueryIssuesNoStoreQuery(t *testing.T) {
	p, repo, _, _ := newTestPipeline(t)

	for _, q := range []string{"", "a", "ab", "  ab  "} {
		_, err := p.Run(context.Background(), q)
		assert.ErrorIs(t, err, ErrQueryTooShort, "Query %q must be rejected", q)
	}
	assert.Zero(t, repo.searches, "Short queries must never reach the store")
}

func TestPipeline_NoMatches(t *testing.T) {
	p, _, _, _ := newTestPipeline(t)

	results, err := p.Run(context.Background(), "nothing here")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestPipeline_EndToEnd(t *testing.T) {
	p, repo, _, short := newTestPipeline(t)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, domain.Movie{
		TMDBID: 19995,
		Title:  "Avatar",
		Links: map[domain.Quality]string{
			domain.Quality480p:  "http://x/480.mkv",
			domain.Quality1080p: "http://x/1080.mkv",
		},
	}))

	results, err := p.Run(ctx, "avatar")
	require.NoError(t, err)
	require.Len(t, results, 1, "Exactly one result for the single matching title")

	res := results[0]
	assert.False(t, res.Degraded)
	assert.Contains(t, Caption(res), "Avatar", "Caption must carry the matched title")
	assert.Contains(t, Caption(res), "2009-12-15")
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/avatar.jpg", res.Metadata.PosterURL)

	// One button per present link, in fixed quality order, all shortened.
	require.Len(t, res.Links, 2)
	assert.Equal(t, domain.Quality480p, res.Links[0].Quality)
	assert.Equal(t, "https://short/http://x/480.mkv", res.Links[0].URL)
	assert.True(t, res.Links[0].Shortened)
	assert.Equal(t, domain.Quality1080p, res.Links[1].Quality)
	assert.Equal(t, 2, short.calls, "Only present links are shortened")
}

func TestPipeline_MetadataFailureDegrades(t *testing.T) {
	p, repo, _, _ := newTestPipeline(t)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, domain.Movie{
		TMDBID:           603,
		Title:            "The Matrix",
		ShortDescription: "A hacker discovers reality is a simulation.",
		Links:            map[domain.Quality]string{domain.Quality720p: "http://x/720.mkv"},
	}))

	results, err := p.Run(ctx, "matrix")
	require.NoError(t, err)
	require.Len(t, results, 1)

	res := results[0]
	assert.True(t, res.Degraded, "Metadata miss must be flagged, not silent")
	assert.Equal(t, "The Matrix", res.Metadata.Title)
	assert.Equal(t, "A hacker discovers reality is a simulation.", res.Metadata.Overview)
	assert.Empty(t, res.Metadata.PosterURL)
	assert.Empty(t, res.Metadata.ReleaseDate)
	require.Len(t, res.Links, 1, "Links still resolve for a degraded result")
}

func TestPipeline_ShortenerFailureKeepsOriginalLink(t *testing.T) {
	p, repo, _, short := newTestPipeline(t)
	short.healthy = false
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, domain.Movie{
		TMDBID: 19995,
		Title:  "Avatar",
		Links:  map[domain.Quality]string{domain.QualityX265: "http://x/x265.mkv"},
	}))

	results, err := p.Run(ctx, "avatar")
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Len(t, results[0].Links, 1)
	assert.Equal(t, "http://x/x265.mkv", results[0].Links[0].URL)
	assert.False(t, results[0].Links[0].Shortened)
}

func TestCaption_NoLinks(t *testing.T) {
	caption := Caption(domain.SearchResult{
		Metadata: domain.MovieMetadata{Title: "Avatar"},
	})
	assert.Contains(t, caption, "No download links available")
	assert.Contains(t, caption, "No description available.")
}
