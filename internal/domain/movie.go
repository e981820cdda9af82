package domain

import "time"

// Quality is a download variant label. The set of labels is fixed; a movie
// carries at most one link per quality.
type Quality string

const (
	Quality480p  Quality = "480p"
	Quality720p  Quality = "720p"
	Quality1080p Quality = "1080p"
	QualityX265  Quality = "x265"
)

// AllQualities lists every quality in the order the intake dialog collects
// them and the order download buttons are rendered.
var AllQualities = []Quality{Quality480p, Quality720p, Quality1080p, QualityX265}

// Movie is the unit of persistence: a curated catalog entry.
type Movie struct {
	// TMDBID identifies the movie in the TMDB catalog. At most one record
	// per id; the store enforces this with a unique index.
	TMDBID int `json:"tmdb_id" bson:"tmdb_id"`

	// Title is cached from TMDB at intake time so search and captions keep
	// working when the metadata provider is unreachable.
	Title string `json:"title" bson:"title"`

	// ShortDescription is a truncated cache of the TMDB overview.
	ShortDescription string `json:"short_description,omitempty" bson:"short_description,omitempty"`

	// Links maps quality labels to download URLs. A missing key means the
	// admin skipped that quality.
	Links map[Quality]string `json:"links,omitempty" bson:"links,omitempty"`

	// CreatedAt indicates when the record was committed.
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// Link returns the download URL for a quality, or "" when none was supplied.
func (m Movie) Link(q Quality) string {
	if m.Links == nil {
		return ""
	}
	return m.Links[q]
}

// MovieMetadata is what the metadata provider returns for one movie. It is
// never persisted; search results fetch it fresh each time.
type MovieMetadata struct {
	Title       string `json:"title"`
	Overview    string `json:"overview"`
	ReleaseDate string `json:"release_date"`

	// PosterURL is the fully composed image URL, empty when TMDB has no
	// poster for the movie.
	PosterURL string `json:"poster_url,omitempty"`
}

// ResolvedLink is one download button in a reply: a quality label plus the
// URL to attach, with Shortened telling whether the shortener succeeded or
// the original URL was kept as a fallback.
type ResolvedLink struct {
	Quality   Quality
	URL       string
	Shortened bool
}

// SearchResult combines a stored movie with freshly fetched metadata and
// freshly resolved links. It lives only for the duration of one reply.
type SearchResult struct {
	Movie    Movie
	Metadata MovieMetadata

	// Degraded is set when the metadata fetch failed and Metadata was
	// filled from the record's cached title and description instead.
	Degraded bool

	Links []ResolvedLink
}
