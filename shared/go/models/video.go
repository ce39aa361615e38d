package models

import (
	"strings"
	"time"
)

// Visibility is the access level of a video or playlist.
type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityUnlisted Visibility = "unlisted"
	VisibilityPrivate  Visibility = "private"
)

// Valid reports whether v is one of the known visibility levels.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityUnlisted, VisibilityPrivate:
		return true
	}
	return false
}

// Video is a member that can be ranked inside playlists.
type Video struct {
	ID            int64      `json:"-" db:"id"`
	VideoID       string     `json:"video_id" db:"video_id"`
	Title         string     `json:"title" db:"title"`
	Description   string     `json:"description" db:"description"`
	Visibility    Visibility `json:"visibility" db:"visibility"`
	Language      string     `json:"language" db:"language"`
	Difficulty    string     `json:"difficulty" db:"difficulty"`
	Tags          []string   `json:"tags"`
	Collaborators []string   `json:"collaborators,omitempty"`
	OwnerID       int64      `json:"-" db:"owner_id"`
	OwnerUUID     string     `json:"owner" db:"owner_uuid"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// HasCollaborator reports whether email is listed among the collaborators.
func (v *Video) HasCollaborator(email string) bool {
	if email == "" {
		return false
	}
	for _, c := range v.Collaborators {
		if strings.EqualFold(c, email) {
			return true
		}
	}
	return false
}

// VideoInput carries the attributes accepted when registering a video.
type VideoInput struct {
	VideoID       string     `json:"video_id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Visibility    Visibility `json:"visibility"`
	Language      string     `json:"language"`
	Difficulty    string     `json:"difficulty"`
	Tags          []string   `json:"tags"`
	Collaborators []string   `json:"collaborators"`
}

// VideoUpdate is a partial update; nil fields are left untouched.
// Tags and Collaborators replace the stored lists when non-nil.
type VideoUpdate struct {
	Title         *string     `json:"title,omitempty"`
	Description   *string     `json:"description,omitempty"`
	Visibility    *Visibility `json:"visibility,omitempty"`
	Language      *string     `json:"language,omitempty"`
	Difficulty    *string     `json:"difficulty,omitempty"`
	Tags          []string    `json:"tags,omitempty"`
	Collaborators []string    `json:"collaborators,omitempty"`
}
