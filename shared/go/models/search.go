package models

// PlaylistDocument is the denormalised projection of a playlist pushed to the search index.
// It only ever contains videos visible to an anonymous viewer.
type PlaylistDocument struct {
	UUID              string     `json:"uuid"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	Tags              []string   `json:"tags"`
	Visibility        Visibility `json:"visibility"`
	Language          string     `json:"language"`
	Difficulty        string     `json:"difficulty"`
	Owner             string     `json:"owner"`
	VideosTitle       []string   `json:"videos_title"`
	VideosDescription []string   `json:"videos_description"`
	VideosTags        []string   `json:"videos_tags"`
	VideosCount       int        `json:"videos_count"`
}

// VideoDocument is the search projection of a single video. Only videos an
// anonymous viewer may see are ever indexed.
type VideoDocument struct {
	VideoID     string     `json:"video_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Tags        []string   `json:"tags"`
	Visibility  Visibility `json:"visibility"`
	Language    string     `json:"language"`
	Difficulty  string     `json:"difficulty"`
	Owner       string     `json:"owner"`
}
