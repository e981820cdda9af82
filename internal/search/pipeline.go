// Package search orchestrates a user query: store lookup, metadata
// enrichment and link shortening, producing render-ready results.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"moviekotha/internal/domain"
	"moviekotha/internal/metadata"
	"moviekotha/internal/shortener"
	"moviekotha/internal/storage"
)

// MinQueryLength is the shortest query the pipeline accepts.
const MinQueryLength = 3

// ErrQueryTooShort is returned for queries under MinQueryLength; the store
// is not consulted for them.
var ErrQueryTooShort = errors.New("query too short")

// Pipeline wires the movie store, the metadata provider and the link
// shortener together.
type Pipeline struct {
	repo      storage.Repository
	metadata  metadata.Client
	shortener shortener.Shortener
	log       logrus.FieldLogger
}

// NewPipeline creates a search pipeline with its collaborators injected.
func NewPipeline(repo storage.Repository, meta metadata.Client, short shortener.Shortener, logger logrus.FieldLogger) *Pipeline {
	return &Pipeline{
		repo:      repo,
		metadata:  meta,
		shortener: short,
		log:       logger.WithField("component", "search"),
	}
}

// Run resolves a query into render-ready results, in store order. A metadata
// failure degrades a result to the record's cached fields; a shortener
// failure keeps the original link. Only a store failure is an error.
func (p *Pipeline) Run(ctx context.Context, query string) ([]domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinQueryLength {
		return nil, ErrQueryTooShort
	}

	log := p.log.WithField("query", query)

	movies, err := p.repo.Search(ctx, query)
	if err != nil {
		log.WithError(err).Error("Store search failed")
		return nil, fmt.Errorf("failed to search the catalog: %w", err)
	}
	log.WithField("matches", len(movies)).Debug("Store search completed")

	results := make([]domain.SearchResult, 0, len(movies))
	for _, movie := range movies {
		results = append(results, p.buildResult(ctx, movie))
	}
	return results, nil
}

func (p *Pipeline) buildResult(ctx context.Context, movie domain.Movie) domain.SearchResult {
	res := domain.SearchResult{Movie: movie}

	meta, err := p.metadata.MovieByID(ctx, movie.TMDBID)
	if err != nil {
		// Cached fields carry the reply; poster and release date are lost.
		p.log.WithField("tmdb_id", movie.TMDBID).Warn("Metadata unavailable, using cached fields")
		res.Degraded = true
		res.Metadata = domain.MovieMetadata{
			Title:    movie.Title,
			Overview: movie.ShortDescription,
		}
	} else {
		res.Metadata = meta
	}

	for _, q := range domain.AllQualities {
		link := movie.Link(q)
		if link == "" {
			continue
		}
		resolved, ok := p.shortener.Shorten(ctx, link)
		res.Links = append(res.Links, domain.ResolvedLink{Quality: q, URL: resolved, Shortened: ok})
	}
	return res
}

// Caption renders the reply text for one result, Markdown-formatted.
func Caption(res domain.SearchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎬 *%s*\n\n", res.Metadata.Title)
	if res.Metadata.ReleaseDate != "" {
		fmt.Fprintf(&b, "🗓 *Released:* %s\n\n", res.Metadata.ReleaseDate)
	}
	overview := res.Metadata.Overview
	if overview == "" {
		overview = "No description available."
	}
	fmt.Fprintf(&b, "📝 *Plot:*\n%s", overview)
	if len(res.Links) == 0 {
		b.WriteString("\n\nNo download links available for this movie yet.")
	}
	return b.String()
}
