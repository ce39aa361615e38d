package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"tubelists/internal/metrics"
	"tubelists/internal/projection"
	"tubelists/internal/store"
	"tubelists/shared/go/logging"
	"tubelists/shared/go/models"
)

// PlaylistLoader loads the full playlist aggregate for a search hit.
type PlaylistLoader interface {
	GetPlaylist(ctx context.Context, id string) (*models.Playlist, error)
}

// VideoLoader loads a video for a search hit.
type VideoLoader interface {
	GetVideo(ctx context.Context, videoID string) (*models.Video, error)
}

// Handler responds to playlist search requests.
type Handler struct {
	searcher Searcher
	loader   PlaylistLoader
}

// NewHandler builds a handler that queries searcher and renders hits loaded through loader.
func NewHandler(searcher Searcher, loader PlaylistLoader) http.Handler {
	return &Handler{searcher: searcher, loader: loader}
}

// Response models the payload returned by the playlist search handler.
type Response struct {
	Results  []models.PlaylistView `json:"results"`
	NextPage *int                  `json:"nextPage"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q, ok := parseQuery(w, r)
	if !ok {
		return
	}
	if q.Text == "" {
		writeJSON(w, http.StatusOK, Response{Results: []models.PlaylistView{}})
		return
	}

	ctx := r.Context()
	result, err := h.searcher.SearchPlaylists(ctx, q)
	if err != nil {
		logging.WithContext(ctx).Error().Err(err).Str("query", q.Text).Msg("playlist search failed")
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	metrics.Searches.Inc()

	views := make([]models.PlaylistView, 0, len(result.IDs))
	for _, id := range result.IDs {
		playlist, err := h.loader.GetPlaylist(ctx, id)
		if errors.Is(err, store.ErrPlaylistNotFound) {
			continue
		}
		if err != nil {
			logging.WithContext(ctx).Error().Err(err).Str("playlist", id).Msg("load search hit")
			writeError(w, http.StatusInternalServerError, "search failed")
			return
		}
		view, err := projection.View(playlist, nil)
		if err != nil {
			continue
		}
		views = append(views, view)
	}

	writeJSON(w, http.StatusOK, Response{Results: views, NextPage: result.NextPage})
}

// VideoHandler responds to video search requests.
type VideoHandler struct {
	searcher Searcher
	loader   VideoLoader
}

// NewVideoHandler builds a handler that queries searcher for videos and
// renders the hits an anonymous viewer may see.
func NewVideoHandler(searcher Searcher, loader VideoLoader) http.Handler {
	return &VideoHandler{searcher: searcher, loader: loader}
}

// VideoResponse models the payload returned by the video search handler.
type VideoResponse struct {
	Results  []models.VideoSummary `json:"results"`
	NextPage *int                  `json:"nextPage"`
}

func (h *VideoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q, ok := parseQuery(w, r)
	if !ok {
		return
	}
	if q.Text == "" {
		writeJSON(w, http.StatusOK, VideoResponse{Results: []models.VideoSummary{}})
		return
	}

	ctx := r.Context()
	result, err := h.searcher.SearchVideos(ctx, q)
	if err != nil {
		logging.WithContext(ctx).Error().Err(err).Str("query", q.Text).Msg("video search failed")
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	metrics.Searches.Inc()

	summaries := make([]models.VideoSummary, 0, len(result.IDs))
	for _, id := range result.IDs {
		video, err := h.loader.GetVideo(ctx, id)
		if errors.Is(err, store.ErrVideoNotFound) {
			continue
		}
		if err != nil {
			logging.WithContext(ctx).Error().Err(err).Str("video_id", id).Msg("load search hit")
			writeError(w, http.StatusInternalServerError, "search failed")
			return
		}
		// The index may lag a visibility change.
		if !projection.CanViewVideo(video, nil) {
			continue
		}
		summaries = append(summaries, projection.Summarise(0, video, nil))
	}

	writeJSON(w, http.StatusOK, VideoResponse{Results: summaries, NextPage: result.NextPage})
}

// parseQuery reads q (or query), page, language and difficulty. It writes the
// error response itself and reports false when the request is invalid.
func parseQuery(w http.ResponseWriter, r *http.Request) (Query, bool) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return Query{}, false
	}

	params := r.URL.Query()
	text := strings.TrimSpace(params.Get("q"))
	if text == "" {
		text = strings.TrimSpace(params.Get("query"))
	}

	page := 1
	if raw := strings.TrimSpace(params.Get("page")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "page must be a positive integer")
			return Query{}, false
		}
		page = parsed
	}

	return Query{
		Text:         text,
		Languages:    params["language"],
		Difficulties: params["difficulty"],
		Page:         page,
	}, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
