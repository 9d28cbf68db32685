package database

import (
	"database/sql"
	"fmt"
)

var _ SourceRepository = (*SourceRepo)(nil)

// SourceRepo handles database operations for sources
type SourceRepo struct {
	db *DB
}

func NewSourceRepository(db *DB) *SourceRepo {
	return &SourceRepo{db: db}
}

const sourceColumns = `id, name, type, url, channel_handle, channel_id, program, extract_content, enabled, created_at, updated_at`

// UpsertSource registers a source from the registry file. A channel_id already
// resolved by ingestion survives re-registration unless the registry supplies
// its own.
func (r *SourceRepo) UpsertSource(source Source) error {
	_, err := r.db.Exec(`
		INSERT INTO sources (id, name, type, url, channel_handle, channel_id, program, extract_content, enabled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			type = excluded.type,
			url = excluded.url,
			channel_handle = excluded.channel_handle,
			channel_id = CASE WHEN excluded.channel_id <> '' THEN excluded.channel_id ELSE sources.channel_id END,
			program = excluded.program,
			extract_content = excluded.extract_content,
			enabled = excluded.enabled,
			updated_at = CURRENT_TIMESTAMP
	`, source.ID, source.Name, source.Type, source.URL, source.ChannelHandle,
		source.ChannelID, source.Program, source.ExtractContent, source.Enabled)

	if err != nil {
		return fmt.Errorf("failed to upsert source: %w", err)
	}

	return nil
}

func (r *SourceRepo) GetSource(id int64) (*Source, error) {
	row := r.db.QueryRow(`SELECT `+sourceColumns+` FROM sources WHERE id = ?`, id)

	source, err := scanSource(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source: %w", err)
	}

	return source, nil
}

func (r *SourceRepo) GetEnabledSources() ([]Source, error) {
	rows, err := r.db.Query(`SELECT ` + sourceColumns + ` FROM sources WHERE enabled = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to get enabled sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, *source)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating source rows: %w", err)
	}

	return sources, nil
}

// SetChannelID persists a channel id resolved from a handle. This is the only
// source mutation ingestion is allowed to make.
func (r *SourceRepo) SetChannelID(id int64, channelID string) error {
	_, err := r.db.Exec(`
		UPDATE sources
		SET channel_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, channelID, id)

	if err != nil {
		return fmt.Errorf("failed to set channel id: %w", err)
	}

	return nil
}

func (r *SourceRepo) GetSourceCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM sources").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get source count: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(row rowScanner) (*Source, error) {
	var source Source
	err := row.Scan(
		&source.ID, &source.Name, &source.Type, &source.URL, &source.ChannelHandle,
		&source.ChannelID, &source.Program, &source.ExtractContent, &source.Enabled,
		&source.CreatedAt, &source.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &source, nil
}
