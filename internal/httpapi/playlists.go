package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"tubelists/shared/go/models"
)

type playlistsResponse struct {
	Playlists []models.PlaylistView `json:"playlists"`
}

type moveRequest struct {
	Rank int `json:"rank"`
}

func (s *Server) listPlaylists(w http.ResponseWriter, r *http.Request) {
	views, err := s.playlists.List(r.Context(), principalFrom(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, playlistsResponse{Playlists: views})
}

// listUserPlaylists lists another user's playlists as the caller may see them.
func (s *Server) listUserPlaylists(w http.ResponseWriter, r *http.Request) {
	views, err := s.playlists.ListByUser(r.Context(), mux.Vars(r)["uuid"], principalFrom(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, playlistsResponse{Playlists: views})
}

func (s *Server) getPlaylist(w http.ResponseWriter, r *http.Request) {
	view, err := s.playlists.Get(r.Context(), mux.Vars(r)["uuid"], principalFrom(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) createPlaylist(w http.ResponseWriter, r *http.Request) {
	var in models.PlaylistInput
	if !decodeJSON(w, r, &in) {
		return
	}
	view, err := s.playlists.Create(r.Context(), principalFrom(r), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) updatePlaylist(w http.ResponseWriter, r *http.Request) {
	var upd models.PlaylistUpdate
	if !decodeJSON(w, r, &upd) {
		return
	}
	view, err := s.playlists.Update(r.Context(), principalFrom(r), mux.Vars(r)["uuid"], upd)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) deletePlaylist(w http.ResponseWriter, r *http.Request) {
	if err := s.playlists.Delete(r.Context(), principalFrom(r), mux.Vars(r)["uuid"]); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) addVideoToPlaylist(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	view, err := s.playlists.AddVideo(r.Context(), principalFrom(r), vars["uuid"], vars["videoID"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) moveVideoInPlaylist(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Rank < 1 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "rank must be at least 1"})
		return
	}
	vars := mux.Vars(r)
	view, err := s.playlists.MoveVideo(r.Context(), principalFrom(r), vars["uuid"], vars["videoID"], req.Rank)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) removeVideoFromPlaylist(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	view, err := s.playlists.RemoveVideo(r.Context(), principalFrom(r), vars["uuid"], vars["videoID"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
