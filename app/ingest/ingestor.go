package ingest

import (
	"cmp"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"google.golang.org/api/googleapi"

	"github.com/roboticshub/newsfeed/app/database"
	"github.com/roboticshub/newsfeed/app/feed"
	"github.com/roboticshub/newsfeed/app/youtube"
)

// extractBatchLimit bounds best-effort content extraction per source per run.
const extractBatchLimit = 3

// VideoSource is the slice of the YouTube client the ingestor needs; nil when
// no API key is configured.
type VideoSource interface {
	ResolveChannelID(ctx context.Context, handle string) (string, error)
	RecentUploads(ctx context.Context, channelID string) ([]youtube.Video, error)
}

// Ingestor runs the sequential ingestion sweep: fetch, normalize, classify,
// hash, and idempotently upsert each enabled source's items. One source's
// failure never aborts the sweep.
type Ingestor struct {
	httpClient   *http.Client
	parser       *feed.Parser
	extractor    *feed.ContentExtractor
	videos       VideoSource
	sourceRepo   database.SourceRepository
	itemRepo     database.ItemRepository
	userAgent    string
	fetchTimeout time.Duration
}

func NewIngestor(httpClient *http.Client, parser *feed.Parser, extractor *feed.ContentExtractor,
	videos VideoSource, sourceRepo database.SourceRepository, itemRepo database.ItemRepository,
	userAgent string, fetchTimeout time.Duration) *Ingestor {
	return &Ingestor{
		httpClient:   httpClient,
		parser:       parser,
		extractor:    extractor,
		videos:       videos,
		sourceRepo:   sourceRepo,
		itemRepo:     itemRepo,
		userAgent:    userAgent,
		fetchTimeout: fetchTimeout,
	}
}

// Run sweeps all enabled sources in order. There are no retries: the sweep is
// re-invoked on an external schedule and the upsert idempotence substitutes
// for retry logic.
func (ing *Ingestor) Run(ctx context.Context) ([]SourceResult, error) {
	sources, err := ing.sourceRepo.GetEnabledSources()
	if err != nil {
		return nil, fmt.Errorf("failed to list enabled sources: %w", err)
	}

	started := time.Now()
	results := make([]SourceResult, 0, len(sources))
	for _, source := range sources {
		result := ing.IngestSource(ctx, source)
		switch {
		case result.Error != "":
			slog.Error("Source ingestion failed", "source", source.ID, "name", source.Name, "error", result.Error)
		case result.Skipped != "":
			slog.Info("Source skipped", "source", source.ID, "name", source.Name, "reason", result.Skipped)
		default:
			slog.Info("Source ingested", "source", source.ID, "name", source.Name, "items", result.Items)
		}
		results = append(results, result)
	}

	slog.Info("Ingestion sweep completed", "sources", len(sources), "duration", time.Since(started))
	return results, nil
}

// IngestSource ingests exactly one source and reports its outcome.
func (ing *Ingestor) IngestSource(ctx context.Context, source database.Source) SourceResult {
	switch source.Type {
	case "youtube":
		return ing.ingestYouTube(ctx, source)
	default:
		return ing.ingestRSS(ctx, source)
	}
}

func (ing *Ingestor) ingestRSS(ctx context.Context, source database.Source) SourceResult {
	result := SourceResult{SourceID: source.ID}

	if source.URL == "" {
		result.Skipped = SkipNoURL
		return result
	}

	data, err := ing.fetch(ctx, source.URL)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	items := ing.parser.Run(data)
	if len(items) == 0 {
		return result
	}

	rows := make([]database.FeedItem, 0, len(items))
	for _, item := range items {
		rows = append(rows, feedItemRow(source, item))
	}

	count, err := ing.itemRepo.UpsertItems(source.ID, rows)
	if err != nil {
		result.Error = (&UpsertError{SourceID: source.ID, Err: err}).Error()
		return result
	}
	result.Items = count

	if source.ExtractContent {
		ing.extractMissingContent(ctx, source)
	}

	return result
}

func (ing *Ingestor) ingestYouTube(ctx context.Context, source database.Source) SourceResult {
	result := SourceResult{SourceID: source.ID}

	if ing.videos == nil {
		result.Skipped = SkipNoAPIKey
		return result
	}

	channelID := source.ChannelID
	if channelID == "" && source.ChannelHandle != "" {
		resolved, err := ing.videos.ResolveChannelID(ctx, source.ChannelHandle)
		if err != nil {
			// Best effort: a failed resolution skips this run, nothing more.
			slog.Warn("Channel handle resolution failed", "source", source.ID, "handle", source.ChannelHandle, "error", err)
		} else {
			channelID = resolved
			if err := ing.sourceRepo.SetChannelID(source.ID, resolved); err != nil {
				slog.Warn("Failed to persist resolved channel id", "source", source.ID, "error", err)
			}
		}
	}

	if channelID == "" {
		result.Skipped = SkipNoChannelID
		return result
	}

	videos, err := ing.videos.RecentUploads(ctx, channelID)
	if err != nil {
		result.Error = classifyAPIError("https://www.googleapis.com/youtube/v3/search", err).Error()
		return result
	}
	if len(videos) == 0 {
		return result
	}

	now := time.Now().UTC()
	rows := make([]database.FeedItem, 0, len(videos))
	for _, video := range videos {
		rows = append(rows, videoRow(source, video, now))
	}

	count, err := ing.itemRepo.UpsertItems(source.ID, rows)
	if err != nil {
		result.Error = (&UpsertError{SourceID: source.ID, Err: err}).Error()
		return result
	}
	result.Items = count

	return result
}

// feedItemRow classifies a normalized RSS/Atom item under its owning source.
func feedItemRow(source database.Source, item feed.Item) database.FeedItem {
	return database.FeedItem{
		ExternalID:  item.ExternalID,
		Hash:        ItemHash(source.ID, item.ExternalID),
		Title:       item.Title,
		URL:         cmp.Or(item.URL, source.URL),
		PublishedAt: item.PublishedAt,
		Author:      item.Author,
		Excerpt:     item.Excerpt,
		ContentHTML: item.ContentHTML,
		MediaURL:    item.MediaURL,
		Program:     cmp.Or(source.Program, "general"),
		Type:        "news",
		Level:       "general",
		Tags:        item.Tags,
	}
}

// videoRow classifies a YouTube upload; uploads are always highlights.
func videoRow(source database.Source, video youtube.Video, now time.Time) database.FeedItem {
	externalID := "yt:" + video.VideoID

	publishedAt := video.PublishedAt
	if publishedAt.IsZero() {
		publishedAt = now
	}

	return database.FeedItem{
		ExternalID:  externalID,
		Hash:        ItemHash(source.ID, externalID),
		Title:       cmp.Or(video.Title, "(untitled)"),
		URL:         youtube.WatchURL(video.VideoID),
		PublishedAt: publishedAt,
		Author:      video.ChannelTitle,
		Excerpt:     feed.Truncate(video.Description, feed.ExcerptLimit),
		MediaURL:    video.ThumbnailURL,
		Program:     cmp.Or(source.Program, "general"),
		Type:        "highlight",
		Level:       "general",
	}
}

// ItemHash is the idempotency key: SHA-256 of "sourceID:externalID", hex.
func ItemHash(sourceID int64, externalID string) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%d:%s", sourceID, externalID))
	return hex.EncodeToString(sum[:])
}

func (ing *Ingestor) fetch(ctx context.Context, url string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, ing.fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", ing.userAgent)

	resp, err := ing.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}

	return data, nil
}

// extractMissingContent best-effort fills content_html for items whose feed
// carried no body. Failures are logged and skipped.
func (ing *Ingestor) extractMissingContent(ctx context.Context, source database.Source) {
	items, err := ing.itemRepo.GetItemsMissingContent(source.ID, extractBatchLimit)
	if err != nil {
		slog.Warn("Failed to list items for extraction", "source", source.ID, "error", err)
		return
	}

	for _, item := range items {
		data, err := ing.fetch(ctx, item.URL)
		if err != nil {
			slog.Debug("Content extraction fetch failed", "item", item.ID, "url", item.URL, "error", err)
			continue
		}

		content, err := ing.extractor.Run(data, item.URL)
		if err != nil {
			slog.Debug("Content extraction failed", "item", item.ID, "url", item.URL, "error", err)
			continue
		}

		if err := ing.itemRepo.UpdateItemContent(item.ID, content); err != nil {
			slog.Warn("Failed to store extracted content", "item", item.ID, "error", err)
		}
	}
}

// classifyAPIError maps a Google API error onto the fetch taxonomy so a
// non-2xx API response surfaces like any other upstream fetch failure.
func classifyAPIError(url string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return &FetchError{URL: url, StatusCode: apiErr.Code, Err: err}
	}
	return &FetchError{URL: url, Err: err}
}
