// Package search maintains the denormalised playlist and video projections
// used for full-text search.
package search

import (
	"context"
	"errors"
	"strings"

	"tubelists/shared/go/models"
)

// PageSize is the number of hits returned per search page.
const PageSize = 10

// ErrUnavailable is returned by Index implementations that cannot reach their backend.
var ErrUnavailable = errors.New("search index unavailable")

// Index is the write side of the search projection. Playlist documents are
// keyed by playlist UUID, video documents by external video id. Every
// operation is idempotent: upserts overwrite the whole document and deletes
// succeed when nothing is stored under id.
type Index interface {
	Upsert(ctx context.Context, id string, doc models.PlaylistDocument) error
	DeleteIfExists(ctx context.Context, id string) error
	UpsertVideo(ctx context.Context, id string, doc models.VideoDocument) error
	DeleteVideoIfExists(ctx context.Context, id string) error
}

// Searcher is the read side of the search projection.
type Searcher interface {
	SearchPlaylists(ctx context.Context, q Query) (Page, error)
	SearchVideos(ctx context.Context, q Query) (Page, error)
}

// Query describes one search request. Empty filter slices match everything.
type Query struct {
	Text         string
	Languages    []string
	Difficulties []string
	Page         int
}

// Page holds the matching document identifiers in relevance order.
type Page struct {
	IDs      []string
	NextPage *int
}

func (q Query) page() int {
	if q.Page < 1 {
		return 1
	}
	return q.Page
}

func (q Query) offset() int {
	return (q.page() - 1) * PageSize
}

// paginate trims a result set fetched with PageSize+1 rows and reports
// whether another page exists.
func paginate(ids []string, q Query) Page {
	if len(ids) <= PageSize {
		return Page{IDs: ids}
	}
	next := q.page() + 1
	return Page{IDs: ids[:PageSize], NextPage: &next}
}

// Searchable reports whether a document may be returned by a search.
func Searchable(doc models.PlaylistDocument) bool {
	return doc.Visibility == models.VisibilityPublic && doc.VideosCount > 0
}

// SearchText flattens every searchable field of doc into one lower-cased string.
func SearchText(doc models.PlaylistDocument) string {
	parts := []string{doc.Title, doc.Description}
	parts = append(parts, doc.Tags...)
	parts = append(parts, doc.VideosTitle...)
	parts = append(parts, doc.VideosDescription...)
	parts = append(parts, doc.VideosTags...)
	return strings.ToLower(strings.Join(parts, "\n"))
}

// Field weights, highest first: playlist title and tags, playlist
// description, video titles and tags, video descriptions.
const (
	weightTitle             = 10
	weightTags              = 10
	weightDescription       = 5
	weightVideosTitle       = 3
	weightVideosTags        = 3
	weightVideosDescription = 1
)

// Score returns the weighted relevance of doc for text; zero means no match.
func Score(doc models.PlaylistDocument, text string) int {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return 0
	}
	score := 0
	if containsFold(needle, doc.Title) {
		score += weightTitle
	}
	if containsFold(needle, doc.Tags...) {
		score += weightTags
	}
	if containsFold(needle, doc.Description) {
		score += weightDescription
	}
	if containsFold(needle, doc.VideosTitle...) {
		score += weightVideosTitle
	}
	if containsFold(needle, doc.VideosTags...) {
		score += weightVideosTags
	}
	if containsFold(needle, doc.VideosDescription...) {
		score += weightVideosDescription
	}
	return score
}

// SearchableVideo reports whether a video document may be returned by a search.
func SearchableVideo(doc models.VideoDocument) bool {
	return doc.Visibility == models.VisibilityPublic
}

// VideoSearchText flattens the searchable fields of a video document.
func VideoSearchText(doc models.VideoDocument) string {
	parts := append([]string{doc.Title, doc.Description}, doc.Tags...)
	return strings.ToLower(strings.Join(parts, "\n"))
}

// Video field weights: title and tags outrank the description.
const (
	weightVideoTitle       = 3
	weightVideoTags        = 3
	weightVideoDescription = 1
)

// VideoScore returns the weighted relevance of a video document for text.
func VideoScore(doc models.VideoDocument, text string) int {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return 0
	}
	score := 0
	if containsFold(needle, doc.Title) {
		score += weightVideoTitle
	}
	if containsFold(needle, doc.Tags...) {
		score += weightVideoTags
	}
	if containsFold(needle, doc.Description) {
		score += weightVideoDescription
	}
	return score
}

func containsFold(needle string, values ...string) bool {
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return false
}

func matchesFilter(value string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == value {
			return true
		}
	}
	return false
}
