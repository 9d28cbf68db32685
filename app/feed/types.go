package feed

import (
	"time"
)

// Item is a provider-agnostic normalized entry. Classification (program, type,
// level) is applied by ingestion from the owning source; the normalizer only
// deals in content fields.
type Item struct {
	ExternalID  string
	Title       string
	URL         string
	PublishedAt time.Time
	Author      string
	Excerpt     string
	ContentHTML string
	MediaURL    string
	Tags        []string
}
