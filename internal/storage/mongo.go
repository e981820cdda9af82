package storage

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"moviekotha/internal/domain"
)

const (
	databaseName   = "moviekotha"
	collectionName = "movies"
)

// MongoRepository implements the Repository interface using MongoDB.
type MongoRepository struct {
	client *mongo.Client
	col    *mongo.Collection
	log    logrus.FieldLogger
}

// NewMongoRepository connects to MongoDB and ensures the unique index on
// tmdb_id exists. Uniqueness lives in the index, not in a prior Exists
// check, so two racing intake sessions cannot both insert the same movie.
func NewMongoRepository(ctx context.Context, uri string, logger logrus.FieldLogger) (*MongoRepository, error) {
	log := logger.WithField("component", "storage")

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		log.WithError(err).Error("Failed to connect to MongoDB")
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	col := client.Database(databaseName).Collection(collectionName)
	_, err = col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{bson.E{Key: "tmdb_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		log.WithError(err).Error("Failed to create unique index on tmdb_id")
		return nil, fmt.Errorf("failed to create tmdb_id index: %w", err)
	}

	log.Info("MongoDB connection established")
	return &MongoRepository{client: client, col: col, log: log}, nil
}

// Close disconnects from MongoDB.
func (r *MongoRepository) Close(ctx context.Context) error {
	r.log.Info("Closing MongoDB connection...")
	if err := r.client.Disconnect(ctx); err != nil {
		r.log.WithError(err).Error("Error disconnecting from MongoDB")
		return err
	}
	return nil
}

// Insert stores a movie, mapping a duplicate-key error on tmdb_id to
// ErrAlreadyExists.
func (r *MongoRepository) Insert(ctx context.Context, movie domain.Movie) error {
	log := r.log.WithFields(logrus.Fields{
		"tmdb_id": movie.TMDBID,
		"title":   movie.Title,
	})

	if movie.CreatedAt.IsZero() {
		movie.CreatedAt = time.Now()
	}

	_, err := r.col.InsertOne(ctx, movie)
	if mongo.IsDuplicateKeyError(err) {
		log.Warn("Movie already exists")
		return ErrAlreadyExists
	}
	if err != nil {
		log.WithError(err).Error("Failed to insert movie")
		return fmt.Errorf("failed to insert movie %d: %w", movie.TMDBID, err)
	}

	log.Info("Movie added to the catalog")
	return nil
}

func (r *MongoRepository) Exists(ctx context.Context, tmdbID int) (bool, error) {
	err := r.col.FindOne(ctx, bson.M{"tmdb_id": tmdbID}).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check movie %d: %w", tmdbID, err)
	}
	return true, nil
}

// Search matches titles containing the query, case-insensitively. The query
// is regex-escaped so user input cannot change the match semantics.
func (r *MongoRepository) Search(ctx context.Context, query string) ([]domain.Movie, error) {
	filter := bson.M{"title": bson.M{"$regex": regexp.QuoteMeta(query), "$options": "i"}}

	cur, err := r.col.Find(ctx, filter)
	if err != nil {
		r.log.WithError(err).WithField("query", query).Error("Search query failed")
		return nil, fmt.Errorf("failed to search movies: %w", err)
	}
	defer cur.Close(ctx)

	movies := []domain.Movie{}
	for cur.Next(ctx) {
		var m domain.Movie
		if err := cur.Decode(&m); err != nil {
			r.log.WithError(err).Error("Failed to decode movie from cursor")
			continue
		}
		movies = append(movies, m)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("failed to read search results: %w", err)
	}
	return movies, nil
}

func (r *MongoRepository) DeleteByTitle(ctx context.Context, title string) (bool, error) {
	filter := bson.M{"title": bson.M{
		"$regex":   "^" + regexp.QuoteMeta(title) + "$",
		"$options": "i",
	}}
	res, err := r.col.DeleteOne(ctx, filter)
	if err != nil {
		r.log.WithError(err).WithField("title", title).Error("Failed to delete movie by title")
		return false, fmt.Errorf("failed to delete movie %q: %w", title, err)
	}
	return res.DeletedCount > 0, nil
}

func (r *MongoRepository) DeleteByID(ctx context.Context, tmdbID int) (bool, error) {
	res, err := r.col.DeleteOne(ctx, bson.M{"tmdb_id": tmdbID})
	if err != nil {
		r.log.WithError(err).WithField("tmdb_id", tmdbID).Error("Failed to delete movie by id")
		return false, fmt.Errorf("failed to delete movie %d: %w", tmdbID, err)
	}
	return res.DeletedCount > 0, nil
}

// ListTitles returns every stored title in ascending order, sorted by the
// database.
func (r *MongoRepository) ListTitles(ctx context.Context) ([]string, error) {
	opts := options.Find().
		SetProjection(bson.M{"title": 1, "_id": 0}).
		SetSort(bson.D{bson.E{Key: "title", Value: 1}})

	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		r.log.WithError(err).Error("Failed to list titles")
		return nil, fmt.Errorf("failed to list titles: %w", err)
	}
	defer cur.Close(ctx)

	titles := []string{}
	for cur.Next(ctx) {
		var doc struct {
			Title string `bson:"title"`
		}
		if err := cur.Decode(&doc); err != nil {
			continue
		}
		titles = append(titles, doc.Title)
	}
	return titles, cur.Err()
}
