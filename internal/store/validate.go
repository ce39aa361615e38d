package store

import (
	"fmt"
	"strings"

	"tubelists/shared/go/models"
)

const (
	maxTitleLength = 255
	maxTags        = 5
	maxTagLength   = 20
)

// ValidatePlaylistInput checks and normalises a new playlist.
func ValidatePlaylistInput(in *models.PlaylistInput) error {
	in.Title = strings.TrimSpace(in.Title)
	if err := validateTitle(in.Title); err != nil {
		return err
	}
	if !in.Visibility.Valid() {
		return fmt.Errorf("%w: unknown visibility %q", ErrInvalidInput, in.Visibility)
	}
	tags, err := normaliseTags(in.Tags)
	if err != nil {
		return err
	}
	in.Tags = tags
	return nil
}

// ValidatePlaylistUpdate checks the fields present in a partial playlist update.
func ValidatePlaylistUpdate(upd *models.PlaylistUpdate) error {
	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if err := validateTitle(title); err != nil {
			return err
		}
		upd.Title = &title
	}
	if upd.Visibility != nil && !upd.Visibility.Valid() {
		return fmt.Errorf("%w: unknown visibility %q", ErrInvalidInput, *upd.Visibility)
	}
	if upd.Tags != nil {
		tags, err := normaliseTags(upd.Tags)
		if err != nil {
			return err
		}
		upd.Tags = tags
	}
	return nil
}

// ValidateVideoInput checks and normalises a new video.
func ValidateVideoInput(in *models.VideoInput) error {
	in.VideoID = strings.TrimSpace(in.VideoID)
	if in.VideoID == "" {
		return fmt.Errorf("%w: video_id is required", ErrInvalidInput)
	}
	in.Title = strings.TrimSpace(in.Title)
	if err := validateTitle(in.Title); err != nil {
		return err
	}
	if !in.Visibility.Valid() {
		return fmt.Errorf("%w: unknown visibility %q", ErrInvalidInput, in.Visibility)
	}
	tags, err := normaliseTags(in.Tags)
	if err != nil {
		return err
	}
	in.Tags = tags
	in.Language = strings.TrimSpace(in.Language)
	in.Difficulty = strings.TrimSpace(in.Difficulty)
	in.Collaborators = normaliseEmails(in.Collaborators)
	return nil
}

// ValidateVideoUpdate checks the fields present in a partial video update.
func ValidateVideoUpdate(upd *models.VideoUpdate) error {
	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if err := validateTitle(title); err != nil {
			return err
		}
		upd.Title = &title
	}
	if upd.Visibility != nil && !upd.Visibility.Valid() {
		return fmt.Errorf("%w: unknown visibility %q", ErrInvalidInput, *upd.Visibility)
	}
	if upd.Tags != nil {
		tags, err := normaliseTags(upd.Tags)
		if err != nil {
			return err
		}
		upd.Tags = tags
	}
	if upd.Collaborators != nil {
		upd.Collaborators = normaliseEmails(upd.Collaborators)
	}
	return nil
}

func validateTitle(title string) error {
	if title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if len(title) > maxTitleLength {
		return fmt.Errorf("%w: title exceeds %d characters", ErrInvalidInput, maxTitleLength)
	}
	return nil
}

func normaliseTags(tags []string) ([]string, error) {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		if len(tag) > maxTagLength {
			return nil, fmt.Errorf("%w: tag %q exceeds %d characters", ErrInvalidInput, tag, maxTagLength)
		}
		seen[tag] = true
		out = append(out, tag)
	}
	if len(out) > maxTags {
		return nil, fmt.Errorf("%w: at most %d tags allowed", ErrInvalidInput, maxTags)
	}
	return out, nil
}

func normaliseEmails(emails []string) []string {
	out := make([]string, 0, len(emails))
	seen := make(map[string]bool, len(emails))
	for _, email := range emails {
		email = strings.ToLower(strings.TrimSpace(email))
		if email == "" || seen[email] {
			continue
		}
		seen[email] = true
		out = append(out, email)
	}
	return out
}
