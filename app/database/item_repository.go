package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

var _ ItemRepository = (*ItemRepo)(nil)

// ItemRepo handles database operations for feed items
type ItemRepo struct {
	db *DB
}

func NewItemRepository(db *DB) *ItemRepo {
	return &ItemRepo{db: db}
}

const itemColumns = `i.id, i.source_id, i.external_id, i.hash, i.title, i.url, i.published_at,
	i.author, i.excerpt, i.content_html, i.media_url, i.program, i.type, i.level, i.region,
	i.score, i.tags, i.created_at, s.name, s.type`

// UpsertItems writes a source's normalized items in one transaction. The
// conflict target is (source_id, external_id); re-ingesting unchanged upstream
// content leaves rows byte-identical. Score stays at its stored value: ranking
// adjustments are computed on read, never persisted here.
func (r *ItemRepo) UpsertItems(sourceID int64, items []FeedItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO feed_items (
			source_id, external_id, hash, title, url, published_at,
			author, excerpt, content_html, media_url, program, type, level, region, tags, score
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)
		ON CONFLICT (source_id, external_id) DO UPDATE SET
			hash = excluded.hash,
			title = excluded.title,
			url = excluded.url,
			published_at = excluded.published_at,
			author = excluded.author,
			excerpt = excluded.excerpt,
			content_html = CASE WHEN excluded.content_html <> '' THEN excluded.content_html ELSE feed_items.content_html END,
			media_url = excluded.media_url,
			program = excluded.program,
			type = excluded.type,
			level = excluded.level,
			region = excluded.region,
			tags = excluded.tags
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, item := range items {
		tags, err := encodeTags(item.Tags)
		if err != nil {
			return 0, fmt.Errorf("failed to encode tags for %q: %w", item.ExternalID, err)
		}

		_, err = stmt.Exec(
			sourceID, item.ExternalID, item.Hash, item.Title, item.URL,
			item.PublishedAt.UTC().UnixMicro(),
			item.Author, item.Excerpt, item.ContentHTML, item.MediaURL,
			item.Program, item.Type, item.Level, item.Region, tags,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to upsert item %q: %w", item.ExternalID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit upsert batch: %w", err)
	}

	return len(items), nil
}

// GetItems returns one feed page ordered by published_at DESC, id DESC.
func (r *ItemRepo) GetItems(filter ItemFilter) ([]Item, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 24
	}

	var conditions []string
	var args []any

	if filter.Type != "" {
		conditions = append(conditions, "i.type = ?")
		args = append(args, filter.Type)
	}
	if filter.Level != "" {
		conditions = append(conditions, "i.level = ?")
		args = append(args, filter.Level)
	}
	if len(filter.Programs) > 0 {
		placeholders := strings.Repeat("?, ", len(filter.Programs))
		conditions = append(conditions, fmt.Sprintf("i.program IN (%s)", placeholders[:len(placeholders)-2]))
		for _, p := range filter.Programs {
			args = append(args, p)
		}
	}
	if filter.SourceID != 0 {
		conditions = append(conditions, "i.source_id = ?")
		args = append(args, filter.SourceID)
	}
	if filter.Cursor != nil {
		conditions = append(conditions, "(i.published_at < ? OR (i.published_at = ? AND i.id < ?))")
		micros := filter.Cursor.PublishedAt.UTC().UnixMicro()
		args = append(args, micros, micros, filter.Cursor.ID)
	}

	query := `SELECT ` + itemColumns + `
		FROM feed_items i
		JOIN sources s ON s.id = i.source_id`
	if len(conditions) > 0 {
		query += "\n\t\tWHERE " + strings.Join(conditions, " AND ")
	}
	query += "\n\t\tORDER BY i.published_at DESC, i.id DESC\n\t\tLIMIT ?"
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

func (r *ItemRepo) GetItem(id string) (*Item, error) {
	row := r.db.QueryRow(`SELECT `+itemColumns+`
		FROM feed_items i
		JOIN sources s ON s.id = i.source_id
		WHERE i.id = ?`, id)

	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	return item, nil
}

// GetItemsSince serves the digest composer: everything published at or after
// the given instant, newest first.
func (r *ItemRepo) GetItemsSince(since time.Time, limit int) ([]Item, error) {
	if limit <= 0 {
		limit = 12
	}

	rows, err := r.db.Query(`SELECT `+itemColumns+`
		FROM feed_items i
		JOIN sources s ON s.id = i.source_id
		WHERE i.published_at >= ?
		ORDER BY i.published_at DESC, i.id DESC
		LIMIT ?`, since.UTC().UnixMicro(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get items since %s: %w", since.Format(time.RFC3339), err)
	}
	defer rows.Close()

	return scanItems(rows)
}

func (r *ItemRepo) GetItemCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM feed_items").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get item count: %w", err)
	}
	return count, nil
}

func (r *ItemRepo) GetItemCountBySource(sourceID int64) (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM feed_items WHERE source_id = ?", sourceID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get item count for source: %w", err)
	}
	return count, nil
}

// GetItemsMissingContent returns a source's items that still lack a body,
// newest first, for best-effort content extraction.
func (r *ItemRepo) GetItemsMissingContent(sourceID int64, limit int) ([]Item, error) {
	rows, err := r.db.Query(`SELECT `+itemColumns+`
		FROM feed_items i
		JOIN sources s ON s.id = i.source_id
		WHERE i.source_id = ? AND i.content_html = ''
		ORDER BY i.published_at DESC, i.id DESC
		LIMIT ?`, sourceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get items missing content: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

func (r *ItemRepo) UpdateItemContent(id string, contentHTML string) error {
	_, err := r.db.Exec(`UPDATE feed_items SET content_html = ? WHERE id = ?`, contentHTML, id)
	if err != nil {
		return fmt.Errorf("failed to update item content: %w", err)
	}
	return nil
}

func scanItems(rows *sql.Rows) ([]Item, error) {
	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item row: %w", err)
		}
		items = append(items, *item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating item rows: %w", err)
	}

	return items, nil
}

func scanItem(row rowScanner) (*Item, error) {
	var item Item
	var publishedMicros int64
	var tags string

	err := row.Scan(
		&item.ID, &item.SourceID, &item.ExternalID, &item.Hash, &item.Title, &item.URL,
		&publishedMicros, &item.Author, &item.Excerpt, &item.ContentHTML, &item.MediaURL,
		&item.Program, &item.Type, &item.Level, &item.Region, &item.Score, &tags,
		&item.CreatedAt, &item.SourceName, &item.SourceType,
	)
	if err != nil {
		return nil, err
	}

	item.PublishedAt = time.UnixMicro(publishedMicros).UTC()
	if decoded, err := decodeTags(tags); err == nil {
		item.Tags = decoded
	}

	return &item, nil
}

func encodeTags(tags []string) (string, error) {
	if len(tags) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeTags(tags string) ([]string, error) {
	if tags == "" || tags == "[]" {
		return nil, nil
	}
	var decoded []string
	if err := json.Unmarshal([]byte(tags), &decoded); err != nil {
		return nil, err
	}
	return decoded, nil
}
