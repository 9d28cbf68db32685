package database

import (
	"time"
)

// Source is a configured external content provider. Rows are owned by the
// source registry; ingestion only ever mutates channel_id (once, after a
// handle resolution).
type Source struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Type           string    `json:"type"` // rss or youtube
	URL            string    `json:"url,omitempty"`
	ChannelHandle  string    `json:"channel_handle,omitempty"`
	ChannelID      string    `json:"channel_id,omitempty"`
	Program        string    `json:"program"` // fll, ftc, frc or general
	ExtractContent bool      `json:"-"`
	Enabled        bool      `json:"enabled"`
	CreatedAt      time.Time `json:"-"`
	UpdatedAt      time.Time `json:"-"`
}

// Item is a canonical feed item row, joined with its source's name and type.
type Item struct {
	ID          string    `json:"id"`
	SourceID    int64     `json:"source_id"`
	ExternalID  string    `json:"external_id"`
	Hash        string    `json:"hash"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
	Author      string    `json:"author,omitempty"`
	Excerpt     string    `json:"excerpt,omitempty"`
	ContentHTML string    `json:"content_html,omitempty"`
	MediaURL    string    `json:"media_url,omitempty"`
	Program     string    `json:"program"`
	Type        string    `json:"type"`
	Level       string    `json:"level"`
	Region      string    `json:"region,omitempty"`
	Score       float64   `json:"score"`
	Tags        []string  `json:"tags,omitempty"`
	CreatedAt   time.Time `json:"created_at"`

	SourceName string `json:"source_name,omitempty"`
	SourceType string `json:"source_type,omitempty"`
}
