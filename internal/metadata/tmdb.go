package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"moviekotha/internal/domain"
)

const (
	defaultBaseURL = "https://api.themoviedb.org/3"
	posterBaseURL  = "https://image.tmdb.org/t/p/w500"
)

// TMDBClient implements Client against the TMDB v3 API.
type TMDBClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	log        logrus.FieldLogger
}

// NewTMDBClient creates a TMDB client. Every request is bounded by the given
// timeout; there are no retries.
func NewTMDBClient(apiKey string, timeout time.Duration, logger logrus.FieldLogger) *TMDBClient {
	return &TMDBClient{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: timeout},
		log:        logger.WithField("component", "tmdb"),
	}
}

type tmdbMovie struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Overview    string `json:"overview"`
	ReleaseDate string `json:"release_date"`
	PosterPath  string `json:"poster_path"`
}

type tmdbSearchResponse struct {
	Results []tmdbMovie `json:"results"`
}

// MovieByID fetches full details for one movie.
func (c *TMDBClient) MovieByID(ctx context.Context, tmdbID int) (domain.MovieMetadata, error) {
	log := c.log.WithField("tmdb_id", tmdbID)

	var movie tmdbMovie
	endpoint := fmt.Sprintf("%s/movie/%d", c.baseURL, tmdbID)
	if err := c.get(ctx, endpoint, nil, &movie); err != nil {
		log.WithError(err).Warn("TMDB details lookup failed")
		return domain.MovieMetadata{}, ErrNotFound
	}
	if movie.ID == 0 {
		return domain.MovieMetadata{}, ErrNotFound
	}

	log.WithField("title", movie.Title).Debug("Fetched movie details")
	return toMetadata(movie), nil
}

// SearchByName resolves a title to the first search result, then fetches the
// full details for that id (the search payload omits fields like the full
// overview).
func (c *TMDBClient) SearchByName(ctx context.Context, query string) (int, domain.MovieMetadata, error) {
	log := c.log.WithField("query", query)

	var search tmdbSearchResponse
	params := url.Values{"query": {query}}
	if err := c.get(ctx, c.baseURL+"/search/movie", params, &search); err != nil {
		log.WithError(err).Warn("TMDB search failed")
		return 0, domain.MovieMetadata{}, ErrNotFound
	}
	if len(search.Results) == 0 {
		log.Debug("TMDB search returned no results")
		return 0, domain.MovieMetadata{}, ErrNotFound
	}

	best := search.Results[0]
	meta, err := c.MovieByID(ctx, best.ID)
	if err != nil {
		return 0, domain.MovieMetadata{}, err
	}
	return best.ID, meta, nil
}

func (c *TMDBClient) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to build TMDB request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch TMDB data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("TMDB API error: status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode TMDB response: %w", err)
	}
	return nil
}

func toMetadata(m tmdbMovie) domain.MovieMetadata {
	meta := domain.MovieMetadata{
		Title:       m.Title,
		Overview:    m.Overview,
		ReleaseDate: m.ReleaseDate,
	}
	if m.PosterPath != "" {
		meta.PosterURL = posterBaseURL + m.PosterPath
	}
	return meta
}
