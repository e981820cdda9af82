package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"moviekotha/internal/domain"
)

// cacheTTL is how long a cached metadata entry stays valid. TMDB details for
// a released movie barely change; a day keeps repeated searches off the API.
const cacheTTL = 24 * time.Hour

// CachedClient wraps a Client with a persistent BadgerDB cache keyed by TMDB
// id. Cache failures never surface: a read miss or error falls through to the
// live client, a write error is logged and ignored.
type CachedClient struct {
	inner Client
	db    *badger.DB
	log   logrus.FieldLogger
}

// NewCachedClient opens the cache database at dbPath and wraps inner with it.
func NewCachedClient(inner Client, dbPath string, logger logrus.FieldLogger) (*CachedClient, error) {
	log := logger.WithField("component", "metadata_cache")

	opts := badger.DefaultOptions(dbPath)
	opts.Logger = &badgerLogger{log.WithField("component", "badgerdb")}

	db, err := badger.Open(opts)
	if err != nil {
		log.WithError(err).Error("Failed to open metadata cache")
		return nil, fmt.Errorf("failed to open badger db at %s: %w", dbPath, err)
	}

	return &CachedClient{inner: inner, db: db, log: log}, nil
}

// Close closes the cache database.
func (c *CachedClient) Close() error {
	return c.db.Close()
}

func cacheKey(tmdbID int) []byte {
	return []byte(fmt.Sprintf("tmdb:movie:%d", tmdbID))
}

// MovieByID serves from the cache when possible and falls back to the live
// client, caching a fresh fetch on the way out.
func (c *CachedClient) MovieByID(ctx context.Context, tmdbID int) (domain.MovieMetadata, error) {
	if meta, ok := c.lookup(tmdbID); ok {
		c.log.WithField("tmdb_id", tmdbID).Debug("Metadata cache hit")
		return meta, nil
	}

	meta, err := c.inner.MovieByID(ctx, tmdbID)
	if err != nil {
		return domain.MovieMetadata{}, err
	}
	c.store(tmdbID, meta)
	return meta, nil
}

// SearchByName always hits the live client (free-text queries are not worth
// caching) but stores the resolved details for later MovieByID calls.
func (c *CachedClient) SearchByName(ctx context.Context, query string) (int, domain.MovieMetadata, error) {
	tmdbID, meta, err := c.inner.SearchByName(ctx, query)
	if err != nil {
		return 0, domain.MovieMetadata{}, err
	}
	c.store(tmdbID, meta)
	return tmdbID, meta, nil
}

func (c *CachedClient) lookup(tmdbID int) (domain.MovieMetadata, bool) {
	var meta domain.MovieMetadata
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cacheKey(tmdbID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.MovieMetadata{}, false
	}
	if err != nil {
		c.log.WithError(err).WithField("tmdb_id", tmdbID).Warn("Metadata cache read failed")
		return domain.MovieMetadata{}, false
	}
	return meta, true
}

func (c *CachedClient) store(tmdbID int, meta domain.MovieMetadata) {
	payload, err := json.Marshal(meta)
	if err != nil {
		c.log.WithError(err).Error("Failed to marshal metadata for cache")
		return
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(cacheKey(tmdbID), payload).WithTTL(cacheTTL)
		return txn.SetEntry(e)
	})
	if err != nil {
		c.log.WithError(err).WithField("tmdb_id", tmdbID).Warn("Metadata cache write failed")
	}
}

// badgerLogger adapts logrus.FieldLogger to Badger's logger interface.
type badgerLogger struct {
	logger logrus.FieldLogger
}

func (l *badgerLogger) Errorf(f string, v ...interface{})   { l.logger.Errorf(f, v...) }
func (l *badgerLogger) Warningf(f string, v ...interface{}) { l.logger.Warningf(f, v...) }
func (l *badgerLogger) Infof(f string, v ...interface{})    { l.logger.Infof(f, v...) }
func (l *badgerLogger) Debugf(f string, v ...interface{})   { l.logger.Debugf(f, v...) }
