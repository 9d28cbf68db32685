package database

import (
	"time"
)

type SourceRepository interface {
	GetSource(id int64) (*Source, error)
	GetEnabledSources() ([]Source, error)
	GetSourceCount() (int, error)

	UpsertSource(source Source) error
	SetChannelID(id int64, channelID string) error
}

type ItemRepository interface {
	GetItems(filter ItemFilter) ([]Item, error)
	GetItem(id string) (*Item, error)
	GetItemsSince(since time.Time, limit int) ([]Item, error)
	GetItemCount() (int, error)
	GetItemCountBySource(sourceID int64) (int, error)

	UpsertItems(sourceID int64, items []FeedItem) (int, error)

	GetItemsMissingContent(sourceID int64, limit int) ([]Item, error)
	UpdateItemContent(id string, contentHTML string) error
}
