package api

import (
	"context"

	"github.com/roboticshub/newsfeed/app/database"
	"github.com/roboticshub/newsfeed/app/ingest"
)

// IngestorInterface abstracts the ingestion pipeline so handlers can be
// tested without network access.
type IngestorInterface interface {
	Run(ctx context.Context) ([]ingest.SourceResult, error)
	IngestSource(ctx context.Context, source database.Source) ingest.SourceResult
}

var _ IngestorInterface = (*ingest.Ingestor)(nil)

type Handler struct {
	sourceRepo database.SourceRepository
	itemRepo   database.ItemRepository
	ingestor   IngestorInterface
}

// FeedResponse is the envelope returned by the feed listing endpoints.
type FeedResponse struct {
	Items      []database.Item `json:"items"`
	NextCursor string          `json:"nextCursor,omitempty"`
}

// IngestRequest is the optional JSON body accepted by the ingest endpoint.
type IngestRequest struct {
	SourceID int64 `json:"source_id"`
}
