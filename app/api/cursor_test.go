package api

import (
	"testing"
	"time"

	"github.com/roboticshub/newsfeed/app/database"
)

func TestCursorRoundTrip(t *testing.T) {
	item := database.Item{
		ID:          "abc123",
		PublishedAt: time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC),
	}

	token := encodeCursor(item)
	cursor, err := decodeCursor(token)
	if err != nil {
		t.Fatalf("Failed to decode cursor: %v", err)
	}
	if !cursor.PublishedAt.Equal(item.PublishedAt) {
		t.Errorf("Expected published at %v, got: %v", item.PublishedAt, cursor.PublishedAt)
	}
	if cursor.ID != "abc123" {
		t.Errorf("Expected id 'abc123', got: %s", cursor.ID)
	}
}

func TestDecodeCursorTimestampFallback(t *testing.T) {
	cursor, err := decodeCursor("2025-03-01T10:30:00Z")
	if err != nil {
		t.Fatalf("Failed to decode timestamp cursor: %v", err)
	}
	want := time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)
	if !cursor.PublishedAt.Equal(want) {
		t.Errorf("Expected published at %v, got: %v", want, cursor.PublishedAt)
	}
	if cursor.ID != "" {
		t.Errorf("Expected empty id for timestamp cursor, got: %s", cursor.ID)
	}
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	if _, err := decodeCursor("not a cursor"); err == nil {
		t.Error("Expected error for unrecognized cursor")
	}
}
