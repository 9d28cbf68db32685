package youtube

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/option"
	youtube "google.golang.org/api/youtube/v3"
)

// MaxUploads bounds how many recent uploads one ingestion run pulls per channel.
const MaxUploads = 10

// Video is the slice of a search result the ingestion pipeline cares about.
type Video struct {
	VideoID      string
	Title        string
	Description  string
	PublishedAt  time.Time
	ChannelTitle string
	ThumbnailURL string
}

// Client wraps the YouTube Data API v3 search surface.
type Client struct {
	svc *youtube.Service
}

func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	svc, err := youtube.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// ResolveChannelID looks up a channel id for a handle via a channel-type
// search query. A leading @ is stripped; the UI's "@FIRSTTechChallenge" is
// queried as plain text.
func (c *Client) ResolveChannelID(ctx context.Context, handle string) (string, error) {
	q := strings.TrimPrefix(strings.TrimSpace(handle), "@")

	resp, err := c.svc.Search.List([]string{"snippet"}).
		Q(q).
		Type("channel").
		MaxResults(1).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("channel search failed for %q: %w", handle, err)
	}

	for _, result := range resp.Items {
		if result.Id != nil && result.Id.ChannelId != "" {
			return result.Id.ChannelId, nil
		}
	}

	return "", fmt.Errorf("no channel found for handle %q", handle)
}

// RecentUploads returns the channel's newest uploads, date descending.
func (c *Client) RecentUploads(ctx context.Context, channelID string) ([]Video, error) {
	resp, err := c.svc.Search.List([]string{"snippet"}).
		ChannelId(channelID).
		Type("video").
		Order("date").
		MaxResults(MaxUploads).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("video search failed for channel %s: %w", channelID, err)
	}

	videos := make([]Video, 0, len(resp.Items))
	for _, result := range resp.Items {
		if result.Id == nil || result.Id.VideoId == "" {
			continue
		}

		video := Video{VideoID: result.Id.VideoId}
		if sn := result.Snippet; sn != nil {
			video.Title = sn.Title
			video.Description = sn.Description
			video.ChannelTitle = sn.ChannelTitle
			video.ThumbnailURL = thumbnailURL(sn.Thumbnails)
			if t, err := time.Parse(time.RFC3339, sn.PublishedAt); err == nil {
				video.PublishedAt = t.UTC()
			}
		}
		videos = append(videos, video)
	}

	return videos, nil
}

// WatchURL is the canonical watch page for a video id.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// thumbnailURL picks the highest-resolution thumbnail available.
func thumbnailURL(t *youtube.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, thumb := range []*youtube.Thumbnail{t.Maxres, t.High, t.Medium, t.Default} {
		if thumb != nil && thumb.Url != "" {
			return thumb.Url
		}
	}
	return ""
}
