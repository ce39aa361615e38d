package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tubelists/internal/app/users"
	"tubelists/internal/store"
	"tubelists/shared/go/logging"
	"tubelists/shared/go/models"
)

// UserService captures the account operations needed by the HTTP handlers.
type UserService interface {
	Signup(ctx context.Context, username, email, password string) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (string, error)
	Profile(ctx context.Context, id string) (models.Profile, error)
}

// PlaylistService coordinates playlist-related operations.
type PlaylistService interface {
	List(ctx context.Context, principal *models.Principal) ([]models.PlaylistView, error)
	ListByUser(ctx context.Context, ownerUUID string, viewer *models.Principal) ([]models.PlaylistView, error)
	Get(ctx context.Context, id string, viewer *models.Principal) (models.PlaylistView, error)
	Create(ctx context.Context, principal *models.Principal, in models.PlaylistInput) (models.PlaylistView, error)
	Update(ctx context.Context, principal *models.Principal, id string, upd models.PlaylistUpdate) (models.PlaylistView, error)
	Delete(ctx context.Context, principal *models.Principal, id string) error
	AddVideo(ctx context.Context, principal *models.Principal, id, videoID string) (models.PlaylistView, error)
	RemoveVideo(ctx context.Context, principal *models.Principal, id, videoID string) (models.PlaylistView, error)
	MoveVideo(ctx context.Context, principal *models.Principal, id, videoID string, rank int) (models.PlaylistView, error)
}

// VideoService exposes video workflows.
type VideoService interface {
	Create(ctx context.Context, principal *models.Principal, in models.VideoInput) (models.VideoSummary, error)
	Get(ctx context.Context, videoID string, viewer *models.Principal) (models.VideoSummary, error)
	ListByUser(ctx context.Context, ownerUUID string, viewer *models.Principal) ([]models.VideoSummary, error)
	Update(ctx context.Context, principal *models.Principal, videoID string, upd models.VideoUpdate) (models.VideoSummary, error)
	Delete(ctx context.Context, principal *models.Principal, videoID string) error
}

// TokenVerifier resolves a bearer token to the principal it was issued for.
type TokenVerifier interface {
	Verify(token string) (*models.Principal, error)
}

// Server wires HTTP handlers to the underlying services.
type Server struct {
	users     UserService
	playlists PlaylistService
	videos    VideoService
	verifier  TokenVerifier
	search    Search
}

// Search holds the public search endpoints.
type Search struct {
	Playlists http.Handler // GET /api/v1/playlists/search
	Videos    http.Handler // GET /api/v1/videos/search
}

// New configures a Server.
func New(users UserService, playlists PlaylistService, videos VideoService, verifier TokenVerifier, search Search) *Server {
	return &Server{
		users:     users,
		playlists: playlists,
		videos:    videos,
		verifier:  verifier,
		search:    search,
	}
}

// Routes exposes the HTTP handlers for accounts, videos and playlists.
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(s.authenticate)

	api.HandleFunc("/users", s.handleSignup).Methods(http.MethodPost)
	api.HandleFunc("/sessions", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/users/{uuid}", s.getProfile).Methods(http.MethodGet)
	api.HandleFunc("/users/{uuid}/playlists", s.listUserPlaylists).Methods(http.MethodGet)
	api.HandleFunc("/users/{uuid}/videos", s.listUserVideos).Methods(http.MethodGet)

	// search must be registered before the {uuid} and {videoID} routes
	api.Handle("/playlists/search", s.search.Playlists).Methods(http.MethodGet)
	api.Handle("/videos/search", s.search.Videos).Methods(http.MethodGet)
	api.HandleFunc("/playlists", s.listPlaylists).Methods(http.MethodGet)
	api.HandleFunc("/playlists", s.createPlaylist).Methods(http.MethodPost)
	api.HandleFunc("/playlists/{uuid}", s.getPlaylist).Methods(http.MethodGet)
	api.HandleFunc("/playlists/{uuid}", s.updatePlaylist).Methods(http.MethodPut)
	api.HandleFunc("/playlists/{uuid}", s.deletePlaylist).Methods(http.MethodDelete)
	api.HandleFunc("/playlists/{uuid}/videos/{videoID}", s.addVideoToPlaylist).Methods(http.MethodPost)
	api.HandleFunc("/playlists/{uuid}/videos/{videoID}", s.moveVideoInPlaylist).Methods(http.MethodPut)
	api.HandleFunc("/playlists/{uuid}/videos/{videoID}", s.removeVideoFromPlaylist).Methods(http.MethodDelete)

	api.HandleFunc("/videos", s.createVideo).Methods(http.MethodPost)
	api.HandleFunc("/videos/{videoID}", s.getVideo).Methods(http.MethodGet)
	api.HandleFunc("/videos/{videoID}", s.updateVideo).Methods(http.MethodPut)
	api.HandleFunc("/videos/{videoID}", s.deleteVideo).Methods(http.MethodDelete)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	})

	return r
}

type principalKey struct{}

// authenticate resolves the bearer token, if any, into a principal. Requests
// without credentials continue as the anonymous viewer.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		token := parseBearerToken(header)
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "malformed authorization header"})
			return
		}
		principal, err := s.verifier.Verify(token)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid token"})
			return
		}
		ctx := context.WithValue(r.Context(), principalKey{}, principal)
		ctx = context.WithValue(ctx, logging.UserIDKey, principal.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func principalFrom(r *http.Request) *models.Principal {
	p, _ := r.Context().Value(principalKey{}).(*models.Principal)
	return p
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeServiceError maps store and service errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrPlaylistNotFound),
		errors.Is(err, store.ErrVideoNotFound),
		errors.Is(err, store.ErrMembershipNotFound),
		errors.Is(err, store.ErrUserNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrVideoAlreadyInPlaylist),
		errors.Is(err, store.ErrVideoExists),
		errors.Is(err, store.ErrUserExists):
		status = http.StatusConflict
	case errors.Is(err, store.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, store.ErrUnauthorized), errors.Is(err, users.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, store.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrTransientConflict):
		status = http.StatusTooManyRequests
	}

	if status == http.StatusInternalServerError {
		logging.WithContext(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeJSON(w, status, errorResponse{Error: "internal server error"})
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON payload"})
		return false
	}
	return true
}

func parseBearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}
