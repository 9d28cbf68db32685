package feed

import (
	"bytes"
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// Parser normalizes RSS 2.0 and Atom payloads into canonical items. Malformed
// input degrades to an empty item list rather than an error: one broken source
// must never look like an infrastructure failure to the sweep.
type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

// Run parses a raw payload. An unrecognized feed family or unparseable
// document yields zero items and no error; individual malformed entries are
// skipped without dropping the rest of the batch.
func (p *Parser) Run(data []byte) []Item {
	if gofeed.DetectFeedType(bytes.NewReader(data)) == gofeed.FeedTypeUnknown {
		slog.Warn("Unrecognized feed family, yielding no items")
		return nil
	}

	parsed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		slog.Warn("Feed parse failed, yielding no items", "error", err)
		return nil
	}

	now := time.Now().UTC()
	items := make([]Item, 0, len(parsed.Items))
	for _, raw := range parsed.Items {
		item, ok := p.normalizeItem(raw, now)
		if !ok {
			continue
		}
		items = append(items, item)
	}

	return items
}

func (p *Parser) normalizeItem(raw *gofeed.Item, now time.Time) (Item, bool) {
	if raw == nil {
		return Item{}, false
	}

	externalID := cmp.Or(strings.TrimSpace(raw.GUID), strings.TrimSpace(raw.Link))

	item := Item{
		ExternalID:  externalID,
		Title:       cmp.Or(strings.TrimSpace(raw.Title), "(untitled)"),
		URL:         strings.TrimSpace(raw.Link),
		PublishedAt: publishedAt(raw, now),
		Author:      extractAuthor(raw),
		Excerpt:     Excerpt(raw.Description),
		ContentHTML: raw.Content,
		MediaURL:    extractMediaURL(raw),
		Tags:        raw.Categories,
	}

	if item.ExternalID == "" {
		if raw.Title == "" {
			return Item{}, false
		}
		// No guid and no link: derive a stable id so re-ingesting the same
		// entry still updates in place instead of duplicating.
		item.ExternalID = fallbackExternalID(raw.Title, item.PublishedAt)
	}

	return item, true
}

func publishedAt(raw *gofeed.Item, now time.Time) time.Time {
	if raw.PublishedParsed != nil {
		return raw.PublishedParsed.UTC()
	}
	if raw.UpdatedParsed != nil {
		return raw.UpdatedParsed.UTC()
	}
	return now
}

// extractAuthor follows the dc:creator -> author fallback chain.
func extractAuthor(raw *gofeed.Item) string {
	if raw.DublinCoreExt != nil {
		for _, creator := range raw.DublinCoreExt.Creator {
			if name := strings.TrimSpace(creator); name != "" {
				return name
			}
		}
	}
	for _, author := range raw.Authors {
		if author == nil {
			continue
		}
		if name := strings.TrimSpace(cmp.Or(author.Name, author.Email)); name != "" {
			return name
		}
	}
	if raw.Author != nil {
		return strings.TrimSpace(cmp.Or(raw.Author.Name, raw.Author.Email))
	}
	return ""
}

// extractMediaURL follows the enclosure -> media:content -> media:thumbnail
// fallback chain.
func extractMediaURL(raw *gofeed.Item) string {
	for _, enclosure := range raw.Enclosures {
		if enclosure != nil && enclosure.URL != "" {
			return enclosure.URL
		}
	}
	if media, ok := raw.Extensions["media"]; ok {
		for _, name := range []string{"content", "thumbnail"} {
			for _, ext := range media[name] {
				if url := ext.Attrs["url"]; url != "" {
					return url
				}
			}
		}
	}
	if raw.Image != nil {
		return raw.Image.URL
	}
	return ""
}

func fallbackExternalID(title string, publishedAt time.Time) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s|%d", title, publishedAt.UnixMicro()))
	return hex.EncodeToString(sum[:])
}
