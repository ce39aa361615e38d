package projection

import (
	"errors"
	"testing"

	"tubelists/internal/store"
	"tubelists/shared/go/models"
)

const (
	playlistOwner = int64(1)
	videoOwner    = int64(2)
	stranger      = int64(3)
)

func video(id string, visibility models.Visibility, tags ...string) models.Video {
	return models.Video{
		VideoID:       id,
		Title:         "Video " + id,
		Description:   "About " + id,
		Visibility:    visibility,
		Tags:          tags,
		Collaborators: []string{"Carol@Example.com"},
		OwnerID:       videoOwner,
		OwnerUUID:     "video-owner",
	}
}

func samplePlaylist() *models.Playlist {
	return &models.Playlist{
		UUID:       "p-1",
		Title:      "Go basics",
		Visibility: models.VisibilityPublic,
		Tags:       []string{"go"},
		OwnerID:    playlistOwner,
		OwnerUUID:  "playlist-owner",
		Entries: []models.PlaylistEntry{
			{Rank: 1, Video: video("A", models.VisibilityPublic, "go", "intro")},
			{Rank: 2, Video: video("B", models.VisibilityPrivate, "secret")},
			{Rank: 3, Video: video("C", models.VisibilityUnlisted, "go")},
			{Rank: 4, Video: video("D", models.VisibilityPublic, "intro", "sql")},
		},
	}
}

func ids(view models.PlaylistView) []string {
	out := make([]string, len(view.Videos))
	for i, v := range view.Videos {
		out[i] = v.VideoID
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRenderFiltersByViewer(t *testing.T) {
	tests := []struct {
		name   string
		viewer *models.Principal
		want   []string
	}{
		{name: "anonymous", viewer: nil, want: []string{"A", "D"}},
		{name: "stranger", viewer: &models.Principal{UserID: stranger, Email: "eve@example.com"}, want: []string{"A", "D"}},
		{name: "playlist owner", viewer: &models.Principal{UserID: playlistOwner}, want: []string{"A", "B", "C", "D"}},
		{name: "video owner", viewer: &models.Principal{UserID: videoOwner}, want: []string{"A", "B", "C", "D"}},
		{name: "collaborator", viewer: &models.Principal{UserID: stranger, Email: "carol@example.com"}, want: []string{"A", "B", "C", "D"}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			view := Render(samplePlaylist(), tc.viewer)
			if got := ids(view); !equal(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
			if view.VideoCount != len(tc.want) {
				t.Fatalf("expected count %d, got %d", len(tc.want), view.VideoCount)
			}
		})
	}
}

func TestRenderKeepsRanks(t *testing.T) {
	view := Render(samplePlaylist(), nil)
	if view.Videos[0].Rank != 1 || view.Videos[1].Rank != 4 {
		t.Fatalf("expected stored ranks to be kept, got %+v", view.Videos)
	}
}

func TestCollaboratorsOnlyForVideoOwner(t *testing.T) {
	view := Render(samplePlaylist(), &models.Principal{UserID: playlistOwner})
	for _, v := range view.Videos {
		if len(v.Collaborators) != 0 {
			t.Fatalf("playlist owner should not see collaborators of %s", v.VideoID)
		}
	}

	view = Render(samplePlaylist(), &models.Principal{UserID: videoOwner})
	if len(view.Videos[0].Collaborators) != 1 {
		t.Fatalf("video owner should see collaborators, got %+v", view.Videos[0])
	}
}

func TestDocumentExcludesPrivateVideos(t *testing.T) {
	doc := Document(samplePlaylist())

	if doc.VideosCount != 2 {
		t.Fatalf("expected 2 public videos, got %d", doc.VideosCount)
	}
	if !equal(doc.VideosTitle, []string{"Video A", "Video D"}) {
		t.Fatalf("unexpected titles: %v", doc.VideosTitle)
	}
	for _, tag := range doc.VideosTags {
		if tag == "secret" {
			t.Fatalf("private video tag leaked into document: %v", doc.VideosTags)
		}
	}
	if !equal(doc.VideosTags, []string{"go", "intro", "sql"}) {
		t.Fatalf("expected deduplicated tags in first-seen order, got %v", doc.VideosTags)
	}
}

func TestDocumentOfEmptyPlaylist(t *testing.T) {
	p := samplePlaylist()
	p.Entries = nil

	doc := Document(p)
	if doc.VideosCount != 0 || doc.VideosTitle == nil || doc.VideosTags == nil {
		t.Fatalf("unexpected document: %+v", doc)
	}
}

func TestViewHidesPrivatePlaylist(t *testing.T) {
	p := samplePlaylist()
	p.Visibility = models.VisibilityPrivate

	if _, err := View(p, &models.Principal{UserID: stranger}); !errors.Is(err, store.ErrPlaylistNotFound) {
		t.Fatalf("expected ErrPlaylistNotFound, got %v", err)
	}
	if _, err := View(p, nil); !errors.Is(err, store.ErrPlaylistNotFound) {
		t.Fatalf("expected ErrPlaylistNotFound for anonymous, got %v", err)
	}
	if _, err := View(p, &models.Principal{UserID: playlistOwner}); err != nil {
		t.Fatalf("owner should see private playlist: %v", err)
	}
}

func TestCanViewVideo(t *testing.T) {
	v := video("B", models.VisibilityPrivate)

	if CanViewVideo(&v, nil) {
		t.Fatalf("anonymous viewer should not see a private video")
	}
	if !CanViewVideo(&v, &models.Principal{UserID: stranger, Email: "carol@example.com"}) {
		t.Fatalf("collaborator should see the video")
	}
	if CanViewVideo(&v, &models.Principal{UserID: playlistOwner}) {
		t.Fatalf("unrelated user should not see the video")
	}
}

func TestVideoDocument(t *testing.T) {
	public := video("A", models.VisibilityPublic, "go")
	public.Language = "en"
	public.Difficulty = "beginner"

	doc, ok := VideoDocument(&public)
	if !ok {
		t.Fatal("expected public video to be indexable")
	}
	if doc.VideoID != "A" || doc.Language != "en" || doc.Difficulty != "beginner" || doc.Owner != "video-owner" {
		t.Fatalf("unexpected document: %#v", doc)
	}

	for _, visibility := range []models.Visibility{models.VisibilityUnlisted, models.VisibilityPrivate} {
		hidden := video("B", visibility)
		if _, ok := VideoDocument(&hidden); ok {
			t.Fatalf("%s video must not be indexed", visibility)
		}
	}
}

func TestListed(t *testing.T) {
	onlyHidden := samplePlaylist()
	onlyHidden.Entries = onlyHidden.Entries[1:2]

	unlisted := samplePlaylist()
	unlisted.Visibility = models.VisibilityUnlisted

	tests := []struct {
		name   string
		p      *models.Playlist
		viewer *models.Principal
		want   bool
	}{
		{"public with visible videos", samplePlaylist(), nil, true},
		{"unlisted hidden from strangers", unlisted, &models.Principal{UserID: stranger}, false},
		{"unlisted shown to owner", unlisted, &models.Principal{UserID: playlistOwner}, true},
		{"only private videos, anonymous", onlyHidden, nil, false},
		{"only private videos, collaborator", onlyHidden, &models.Principal{UserID: stranger, Email: "carol@example.com"}, true},
		{"empty playlist, owner", &models.Playlist{OwnerID: playlistOwner, Visibility: models.VisibilityPrivate}, &models.Principal{UserID: playlistOwner}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Listed(tt.p, tt.viewer); got != tt.want {
				t.Fatalf("Listed = %v, want %v", got, tt.want)
			}
		})
	}
}
