// Package shortener wraps the GPLinks URL-shortening API. Shortening is
// best-effort: no failure here ever reaches the caller as an error, the
// original URL is handed back instead.
package shortener

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultAPIURL = "https://gplinks.io/api"

// Shortener turns long URLs into short ones.
type Shortener interface {
	// Shorten returns the shortened URL and true on success, or the input
	// URL unchanged and false on any failure. A blank input yields ("",
	// false) without contacting the provider.
	Shorten(ctx context.Context, longURL string) (string, bool)
}

// GPLinks implements Shortener against the GPLinks API.
type GPLinks struct {
	apiKey     string
	apiURL     string
	httpClient *http.Client
	log        logrus.FieldLogger
}

// NewGPLinks creates a GPLinks client. An empty apiKey is allowed; every
// Shorten call then falls back to the original URL.
func NewGPLinks(apiKey string, timeout time.Duration, logger logrus.FieldLogger) *GPLinks {
	return &GPLinks{
		apiKey:     apiKey,
		apiURL:     defaultAPIURL,
		httpClient: &http.Client{Timeout: timeout},
		log:        logger.WithField("component", "gplinks"),
	}
}

type gplinksResponse struct {
	Status       string `json:"status"`
	ShortenedURL string `json:"shortenedUrl"`
	Message      string `json:"message"`
}

func (g *GPLinks) Shorten(ctx context.Context, longURL string) (string, bool) {
	if strings.TrimSpace(longURL) == "" {
		return "", false
	}
	if g.apiKey == "" {
		g.log.Warn("GPLinks API key not set, returning original link as-is")
		return longURL, false
	}

	log := g.log.WithField("url", longURL)

	params := url.Values{"api": {g.apiKey}, "url": {longURL}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		log.WithError(err).Error("Failed to build GPLinks request")
		return longURL, false
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		log.WithError(err).Error("GPLinks request failed")
		return longURL, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.WithField("status", resp.StatusCode).Error("GPLinks returned non-success status")
		return longURL, false
	}

	var out gplinksResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		log.WithError(err).Error("Failed to decode GPLinks response")
		return longURL, false
	}
	if out.Status != "success" || out.ShortenedURL == "" {
		log.WithField("message", out.Message).Error("GPLinks API returned an error")
		return longURL, false
	}

	log.WithField("short_url", out.ShortenedURL).Debug("Link shortened")
	return out.ShortenedURL, true
}
