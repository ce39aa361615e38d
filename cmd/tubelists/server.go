package main

import (
	"net/http"

	"tubelists/internal/app/playlists"
	"tubelists/internal/app/users"
	"tubelists/internal/app/videos"
	"tubelists/internal/auth"
	"tubelists/internal/httpapi"
	"tubelists/internal/propagate"
	"tubelists/internal/search"
	"tubelists/internal/store"
	"tubelists/shared/go/config"
	"tubelists/shared/go/middleware"
)

func newHTTPHandler(cfg *config.Config, dataStore *store.Store, searcher search.Searcher, propagator *propagate.Propagator) (http.Handler, error) {
	issuer, err := auth.NewIssuer(cfg.Security.JWTSecret)
	if err != nil {
		return nil, err
	}

	userSvc := users.New(dataStore, issuer, cfg.Security.SessionTTL)
	playlistSvc := playlists.New(dataStore, propagator)
	videoSvc := videos.New(dataStore, propagator)
	searchRoutes := httpapi.Search{
		Playlists: search.NewHandler(searcher, dataStore),
		Videos:    search.NewVideoHandler(searcher, dataStore),
	}

	routes := httpapi.New(userSvc, playlistSvc, videoSvc, issuer, searchRoutes).Routes()

	var handler http.Handler = routes
	handler = middleware.CORS(cfg.CORS.AllowedOrigins)(handler)
	handler = middleware.Recovery()(handler)
	handler = middleware.RequestLogging()(handler)
	return handler, nil
}
