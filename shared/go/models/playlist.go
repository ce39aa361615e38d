package models

import "time"

// PlaylistEntry is the ranked membership of a video inside a playlist.
type PlaylistEntry struct {
	Rank  int   `json:"rank" db:"rank"`
	Video Video `json:"video"`
}

// Playlist is an ordered, owned collection of videos.
// Entries are always kept in ascending rank order.
type Playlist struct {
	ID          int64           `json:"-" db:"id"`
	UUID        string          `json:"uuid" db:"uuid"`
	Title       string          `json:"title" db:"title"`
	Description string          `json:"description" db:"description"`
	Visibility  Visibility      `json:"visibility" db:"visibility"`
	Language    string          `json:"language" db:"language"`
	Difficulty  string          `json:"difficulty" db:"difficulty"`
	Tags        []string        `json:"tags" db:"tags"`
	OwnerID     int64           `json:"-" db:"owner_id"`
	OwnerUUID   string          `json:"owner" db:"owner_uuid"`
	Entries     []PlaylistEntry `json:"entries"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// Ranks returns the membership ranks in stored order.
func (p *Playlist) Ranks() []int {
	ranks := make([]int, len(p.Entries))
	for i, entry := range p.Entries {
		ranks[i] = entry.Rank
	}
	return ranks
}

// Entry returns the membership for the given external video id.
func (p *Playlist) Entry(videoID string) (PlaylistEntry, bool) {
	for _, entry := range p.Entries {
		if entry.Video.VideoID == videoID {
			return entry, true
		}
	}
	return PlaylistEntry{}, false
}

// PlaylistInput carries the attributes accepted when creating a playlist.
type PlaylistInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Visibility  Visibility `json:"visibility"`
	Language    string     `json:"language"`
	Difficulty  string     `json:"difficulty"`
	Tags        []string   `json:"tags"`
}

// PlaylistUpdate is a partial update; nil fields are left untouched.
type PlaylistUpdate struct {
	Title       *string     `json:"title,omitempty"`
	Description *string     `json:"description,omitempty"`
	Visibility  *Visibility `json:"visibility,omitempty"`
	Language    *string     `json:"language,omitempty"`
	Difficulty  *string     `json:"difficulty,omitempty"`
	Tags        []string    `json:"tags,omitempty"`
}

// VideoSummary is a video as displayed inside a playlist.
type VideoSummary struct {
	Rank          int        `json:"rank,omitempty"`
	VideoID       string     `json:"video_id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Visibility    Visibility `json:"visibility"`
	Language      string     `json:"language,omitempty"`
	Difficulty    string     `json:"difficulty,omitempty"`
	Tags          []string   `json:"tags"`
	Owner         string     `json:"owner"`
	Collaborators []string   `json:"collaborators,omitempty"`
}

// PlaylistView is the visibility-filtered display payload of a playlist.
type PlaylistView struct {
	UUID        string         `json:"uuid"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Visibility  Visibility     `json:"visibility"`
	Language    string         `json:"language"`
	Difficulty  string         `json:"difficulty"`
	Tags        []string       `json:"tags"`
	Owner       string         `json:"owner"`
	VideoCount  int            `json:"video_count"`
	Videos      []VideoSummary `json:"videos"`
}
