// Package projection renders playlists for a viewer and derives the search
// document from the anonymous rendering.
package projection

import (
	"tubelists/internal/store"
	"tubelists/shared/go/models"
)

// Render returns the playlist as seen by viewer (nil for anonymous).
// Entries are expected in ascending rank order and are never re-sorted.
func Render(p *models.Playlist, viewer *models.Principal) models.PlaylistView {
	view := models.PlaylistView{
		UUID:        p.UUID,
		Title:       p.Title,
		Description: p.Description,
		Visibility:  p.Visibility,
		Language:    p.Language,
		Difficulty:  p.Difficulty,
		Tags:        copyStrings(p.Tags),
		Owner:       p.OwnerUUID,
		Videos:      make([]models.VideoSummary, 0, len(p.Entries)),
	}

	for _, entry := range p.Entries {
		video := entry.Video
		if !VideoVisibleIn(p, &video, viewer) {
			continue
		}
		view.Videos = append(view.Videos, Summarise(entry.Rank, &video, viewer))
	}
	view.VideoCount = len(view.Videos)
	return view
}

// VideoVisibleIn reports whether video may be shown to viewer inside p.
func VideoVisibleIn(p *models.Playlist, video *models.Video, viewer *models.Principal) bool {
	if video.Visibility == models.VisibilityPublic {
		return true
	}
	if viewer.Anonymous() {
		return false
	}
	return viewer.Is(p.OwnerID) || CanViewVideo(video, viewer)
}

// CanViewVideo applies the video-level rule outside any playlist: public
// videos for everyone, otherwise the owner and collaborators only.
func CanViewVideo(video *models.Video, viewer *models.Principal) bool {
	if video.Visibility == models.VisibilityPublic {
		return true
	}
	if viewer.Anonymous() {
		return false
	}
	return viewer.Is(video.OwnerID) || video.HasCollaborator(viewer.Email)
}

// Summarise builds the display form of a video. Collaborators are only
// exposed to the video owner.
func Summarise(rank int, video *models.Video, viewer *models.Principal) models.VideoSummary {
	summary := models.VideoSummary{
		Rank:        rank,
		VideoID:     video.VideoID,
		Title:       video.Title,
		Description: video.Description,
		Visibility:  video.Visibility,
		Language:    video.Language,
		Difficulty:  video.Difficulty,
		Tags:        copyStrings(video.Tags),
		Owner:       video.OwnerUUID,
	}
	if viewer.Is(video.OwnerID) {
		summary.Collaborators = copyStrings(video.Collaborators)
	}
	return summary
}

// CanViewPlaylist hides private playlists from everyone but their owner.
func CanViewPlaylist(p *models.Playlist, viewer *models.Principal) bool {
	return p.Visibility != models.VisibilityPrivate || viewer.Is(p.OwnerID)
}

// Listed reports whether p appears in its owner's public listing for viewer.
// The owner sees everything; others only see public playlists holding at
// least one video visible to them.
func Listed(p *models.Playlist, viewer *models.Principal) bool {
	if viewer.Is(p.OwnerID) {
		return true
	}
	if p.Visibility != models.VisibilityPublic {
		return false
	}
	for i := range p.Entries {
		if VideoVisibleIn(p, &p.Entries[i].Video, viewer) {
			return true
		}
	}
	return false
}

// View checks playlist access and renders it. Callers that cannot see the
// playlist get store.ErrPlaylistNotFound so its existence is not revealed.
func View(p *models.Playlist, viewer *models.Principal) (models.PlaylistView, error) {
	if !CanViewPlaylist(p, viewer) {
		return models.PlaylistView{}, store.ErrPlaylistNotFound
	}
	return Render(p, viewer), nil
}

// Document derives the search document from the anonymous rendering, so a
// video hidden from the public can never reach the index.
func Document(p *models.Playlist) models.PlaylistDocument {
	view := Render(p, nil)

	doc := models.PlaylistDocument{
		UUID:              view.UUID,
		Title:             view.Title,
		Description:       view.Description,
		Tags:              view.Tags,
		Visibility:        view.Visibility,
		Language:          view.Language,
		Difficulty:        view.Difficulty,
		Owner:             view.Owner,
		VideosTitle:       make([]string, 0, len(view.Videos)),
		VideosDescription: make([]string, 0, len(view.Videos)),
		VideosTags:        make([]string, 0),
		VideosCount:       len(view.Videos),
	}

	seen := make(map[string]bool)
	for _, v := range view.Videos {
		doc.VideosTitle = append(doc.VideosTitle, v.Title)
		doc.VideosDescription = append(doc.VideosDescription, v.Description)
		for _, tag := range v.Tags {
			if seen[tag] {
				continue
			}
			seen[tag] = true
			doc.VideosTags = append(doc.VideosTags, tag)
		}
	}
	return doc
}

// VideoDocument derives the search document of a single video. It reports
// false when an anonymous viewer may not see the video, in which case the
// video must not be indexed at all.
func VideoDocument(video *models.Video) (models.VideoDocument, bool) {
	if !CanViewVideo(video, nil) {
		return models.VideoDocument{}, false
	}
	summary := Summarise(0, video, nil)
	return models.VideoDocument{
		VideoID:     summary.VideoID,
		Title:       summary.Title,
		Description: summary.Description,
		Tags:        summary.Tags,
		Visibility:  summary.Visibility,
		Language:    summary.Language,
		Difficulty:  summary.Difficulty,
		Owner:       summary.Owner,
	}, true
}

func copyStrings(src []string) []string {
	out := make([]string, len(src))
	copy(out, src)
	return out
}
