package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"tubelists/internal/app/users"
	"tubelists/internal/propagate"
	"tubelists/internal/store"
	"tubelists/shared/go/config"
	"tubelists/shared/go/models"
)

const (
	demoUsername = "demo"
	demoEmail    = "demo@tubelists.local"
	demoPassword = "demo-password"
)

var demoVideos = []models.VideoInput{
	{VideoID: "dQw4w9WgXcQ", Title: "Go in 100 seconds", Description: "A whirlwind tour of Go", Visibility: models.VisibilityPublic, Language: "en", Difficulty: "beginner", Tags: []string{"go", "intro"}},
	{VideoID: "YS4e4q9oBaU", Title: "Concurrency is not parallelism", Description: "Goroutines and channels", Visibility: models.VisibilityPublic, Language: "en", Difficulty: "intermediate", Tags: []string{"go", "concurrency"}},
	{VideoID: "f6kdp27TYZs", Title: "Go concurrency patterns", Description: "Pipelines and fan-out", Visibility: models.VisibilityPublic, Language: "en", Difficulty: "advanced", Tags: []string{"go", "patterns"}},
}

// bootstrapDemoData seeds a demo account with one public playlist. It is a
// no-op once the demo user owns any playlist.
func bootstrapDemoData(ctx context.Context, cfg *config.Config, dataStore *store.Store, propagator *propagate.Propagator) error {
	user, err := ensureDemoUser(ctx, cfg, dataStore)
	if err != nil {
		return err
	}

	existing, err := dataStore.ListPlaylistsByOwner(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("list demo playlists: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	for _, in := range demoVideos {
		if _, err := dataStore.CreateVideo(ctx, user.ID, in); err != nil && !errors.Is(err, store.ErrVideoExists) {
			return fmt.Errorf("bootstrap video %s: %w", in.VideoID, err)
		}
		propagator.SyncAfterVideoMutation(ctx, in.VideoID)
	}

	playlist, err := dataStore.CreatePlaylist(ctx, user.ID, models.PlaylistInput{
		Title:       "Learning Go",
		Description: "Talks for getting started with Go",
		Visibility:  models.VisibilityPublic,
		Language:    "en",
		Difficulty:  "beginner",
		Tags:        []string{"go", "programming"},
	})
	if err != nil {
		return fmt.Errorf("bootstrap playlist: %w", err)
	}
	for _, in := range demoVideos {
		if _, err := dataStore.AddVideoToPlaylist(ctx, playlist.UUID, in.VideoID); err != nil && !errors.Is(err, store.ErrVideoAlreadyInPlaylist) {
			return fmt.Errorf("bootstrap membership %s: %w", in.VideoID, err)
		}
	}
	propagator.SyncAfterPlaylistMutation(ctx, playlist.UUID)

	log.Info().Str("playlist", playlist.UUID).Msg("demo data bootstrapped")
	return nil
}

func ensureDemoUser(ctx context.Context, cfg *config.Config, dataStore *store.Store) (*models.User, error) {
	user, err := dataStore.GetUserByEmail(ctx, demoEmail)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrUserNotFound) {
		return nil, fmt.Errorf("lookup demo user: %w", err)
	}

	// tokens are not issued during bootstrap
	svc := users.New(dataStore, nil, cfg.Security.SessionTTL)
	user, err = svc.Signup(ctx, demoUsername, demoEmail, demoPassword)
	if err != nil {
		return nil, fmt.Errorf("bootstrap demo user: %w", err)
	}
	return user, nil
}
