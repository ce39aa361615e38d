package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"tubelists/shared/go/models"
)

type videosResponse struct {
	Videos []models.VideoSummary `json:"videos"`
}

func (s *Server) listUserVideos(w http.ResponseWriter, r *http.Request) {
	videos, err := s.videos.ListByUser(r.Context(), mux.Vars(r)["uuid"], principalFrom(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, videosResponse{Videos: videos})
}

func (s *Server) createVideo(w http.ResponseWriter, r *http.Request) {
	var in models.VideoInput
	if !decodeJSON(w, r, &in) {
		return
	}
	video, err := s.videos.Create(r.Context(), principalFrom(r), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, video)
}

func (s *Server) getVideo(w http.ResponseWriter, r *http.Request) {
	video, err := s.videos.Get(r.Context(), mux.Vars(r)["videoID"], principalFrom(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, video)
}

func (s *Server) updateVideo(w http.ResponseWriter, r *http.Request) {
	var upd models.VideoUpdate
	if !decodeJSON(w, r, &upd) {
		return
	}
	video, err := s.videos.Update(r.Context(), principalFrom(r), mux.Vars(r)["videoID"], upd)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, video)
}

func (s *Server) deleteVideo(w http.ResponseWriter, r *http.Request) {
	if err := s.videos.Delete(r.Context(), principalFrom(r), mux.Vars(r)["videoID"]); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
