package ingest

// Skip reasons for sources that cannot run this sweep. Skips are
// configuration gaps, not errors.
const (
	SkipNoAPIKey    = "no_api_key"
	SkipNoChannelID = "no_channel_id"
	SkipNoURL       = "no_url"
)

// SourceResult is one source's outcome within a sweep.
type SourceResult struct {
	SourceID int64  `json:"sourceId"`
	Items    int    `json:"items"`
	Skipped  string `json:"skipped,omitempty"`
	Error    string `json:"error,omitempty"`
}
