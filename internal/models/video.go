package models

// Video is a piece of therapy content.
type Video struct {
	ID          string   `json:"id,omitempty"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	CoverURL    string   `json:"coverUrl,omitempty"`
	VideoURL    string   `json:"videoUrl,omitempty"`
	DurationSec int      `json:"durationSec,omitempty"`
	CreatedAt   string   `json:"createdAt,omitempty"`
	Views       int64    `json:"views,omitempty"`
}
