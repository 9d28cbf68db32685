package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/roboticshub/newsfeed/app/database"
	"github.com/roboticshub/newsfeed/app/ingest"
)

type stubSourceRepo struct {
	sources []database.Source
}

func (s *stubSourceRepo) GetSource(id int64) (*database.Source, error) {
	for _, src := range s.sources {
		if src.ID == id {
			return &src, nil
		}
	}
	return nil, nil
}

func (s *stubSourceRepo) GetEnabledSources() ([]database.Source, error) {
	return s.sources, nil
}

func (s *stubSourceRepo) GetSourceCount() (int, error) { return len(s.sources), nil }

func (s *stubSourceRepo) UpsertSource(source database.Source) error { return nil }

func (s *stubSourceRepo) SetChannelID(id int64, channelID string) error { return nil }

type stubItemRepo struct {
	items      []database.Item
	lastFilter database.ItemFilter
}

func (s *stubItemRepo) UpsertItems(sourceID int64, items []database.FeedItem) (int, error) {
	return len(items), nil
}

func (s *stubItemRepo) GetItems(filter database.ItemFilter) ([]database.Item, error) {
	s.lastFilter = filter
	limit := filter.Limit
	if limit <= 0 || limit > len(s.items) {
		limit = len(s.items)
	}
	return s.items[:limit], nil
}

func (s *stubItemRepo) GetItem(id string) (*database.Item, error) {
	for _, item := range s.items {
		if item.ID == id {
			return &item, nil
		}
	}
	return nil, nil
}

func (s *stubItemRepo) GetItemsSince(since time.Time, limit int) ([]database.Item, error) {
	var out []database.Item
	for _, item := range s.items {
		if !item.PublishedAt.Before(since) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *stubItemRepo) GetItemCount() (int, error) { return len(s.items), nil }

func (s *stubItemRepo) GetItemCountBySource(sourceID int64) (int, error) { return 0, nil }

func (s *stubItemRepo) GetItemsMissingContent(sourceID int64, limit int) ([]database.Item, error) {
	return nil, nil
}

func (s *stubItemRepo) UpdateItemContent(id string, contentHTML string) error { return nil }

type stubIngestor struct {
	singleResult ingest.SourceResult
	sweepResults []ingest.SourceResult
	sweepErr     error
}

func (s *stubIngestor) Run(ctx context.Context) ([]ingest.SourceResult, error) {
	return s.sweepResults, s.sweepErr
}

func (s *stubIngestor) IngestSource(ctx context.Context, source database.Source) ingest.SourceResult {
	return s.singleResult
}

func testServer(sourceRepo database.SourceRepository, itemRepo database.ItemRepository,
	ingestor IngestorInterface, apiAccessKey string) *gin.Engine {
	handler := NewHandler(sourceRepo, itemRepo, ingestor)
	return NewServer(handler, apiAccessKey, "test")
}

func testItems(n int) []database.Item {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	items := make([]database.Item, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, database.Item{
			ID:          fmt.Sprintf("id-%02d", i),
			SourceID:    1,
			Title:       fmt.Sprintf("Item %d", i),
			Program:     "general",
			Type:        "news",
			PublishedAt: base.Add(-time.Duration(i) * time.Hour),
		})
	}
	return items
}

func doRequest(t *testing.T, server *gin.Engine, method, path string) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	var body map[string]json.RawMessage
	if len(w.Body.Bytes()) > 0 && w.Body.Bytes()[0] == '{' {
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("Failed to decode response body: %v", err)
		}
	}
	return w, body
}

func TestIngestUnknownSource(t *testing.T) {
	server := testServer(&stubSourceRepo{}, &stubItemRepo{}, &stubIngestor{}, "")

	w, body := doRequest(t, server, http.MethodPost, "/ingest?source_id=99")
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got: %d", w.Code)
	}
	if string(body["error"]) != `"source_not_found"` {
		t.Errorf("Expected error 'source_not_found', got: %s", body["error"])
	}
	if string(body["ok"]) != "false" {
		t.Errorf("Expected ok false, got: %s", body["ok"])
	}
}

func TestIngestSingleSource(t *testing.T) {
	sourceRepo := &stubSourceRepo{sources: []database.Source{{ID: 1, Name: "Test", Type: "rss", Enabled: true}}}
	ingestor := &stubIngestor{singleResult: ingest.SourceResult{SourceID: 1, Items: 5}}
	server := testServer(sourceRepo, &stubItemRepo{}, ingestor, "")

	w, body := doRequest(t, server, http.MethodPost, "/ingest?source_id=1")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got: %d", w.Code)
	}
	if string(body["ok"]) != "true" {
		t.Errorf("Expected ok true, got: %s", body["ok"])
	}

	var result ingest.SourceResult
	if err := json.Unmarshal(body["result"], &result); err != nil {
		t.Fatalf("Failed to decode result: %v", err)
	}
	if result.SourceID != 1 || result.Items != 5 {
		t.Errorf("Expected single source result, got: %+v", result)
	}
}

func TestIngestSweep(t *testing.T) {
	ingestor := &stubIngestor{sweepResults: []ingest.SourceResult{
		{SourceID: 1, Items: 3},
		{SourceID: 2, Skipped: ingest.SkipNoAPIKey},
	}}
	server := testServer(&stubSourceRepo{}, &stubItemRepo{}, ingestor, "")

	w, body := doRequest(t, server, http.MethodPost, "/ingest")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got: %d", w.Code)
	}

	var results []ingest.SourceResult
	if err := json.Unmarshal(body["results"], &results); err != nil {
		t.Fatalf("Failed to decode results: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("Expected 2 results, got: %d", len(results))
	}
}

func TestIngestRequiresAPIKey(t *testing.T) {
	server := testServer(&stubSourceRepo{}, &stubItemRepo{}, &stubIngestor{}, "secret")

	w, _ := doRequest(t, server, http.MethodPost, "/ingest")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401 without key, got: %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/ingest", nil)
	req.Header.Set("X-API-Key", "secret")
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 with key, got: %d", rec.Code)
	}

	// The read-only feed stays public
	w, _ = doRequest(t, server, http.MethodGet, "/feed")
	if w.Code != http.StatusOK {
		t.Errorf("Expected public feed access, got: %d", w.Code)
	}
}

func TestGetFeedPagination(t *testing.T) {
	itemRepo := &stubItemRepo{items: testItems(5)}
	server := testServer(&stubSourceRepo{}, itemRepo, &stubIngestor{}, "")

	w, body := doRequest(t, server, http.MethodGet, "/feed?limit=5")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got: %d", w.Code)
	}

	var items []database.Item
	if err := json.Unmarshal(body["items"], &items); err != nil {
		t.Fatalf("Failed to decode items: %v", err)
	}
	if len(items) != 5 {
		t.Fatalf("Expected 5 items, got: %d", len(items))
	}

	// A full page carries a cursor pointing at its last item
	var next string
	if err := json.Unmarshal(body["nextCursor"], &next); err != nil {
		t.Fatalf("Expected nextCursor on a full page: %v", err)
	}
	cursor, err := decodeCursor(next)
	if err != nil {
		t.Fatalf("Failed to decode returned cursor: %v", err)
	}
	if cursor.ID != "id-04" {
		t.Errorf("Expected cursor at last item, got: %s", cursor.ID)
	}
}

func TestGetFeedShortPageOmitsCursor(t *testing.T) {
	itemRepo := &stubItemRepo{items: testItems(3)}
	server := testServer(&stubSourceRepo{}, itemRepo, &stubIngestor{}, "")

	_, body := doRequest(t, server, http.MethodGet, "/feed?limit=10")
	if _, ok := body["nextCursor"]; ok {
		t.Error("Expected no cursor on a short page")
	}
}

func TestGetFeedFilterParams(t *testing.T) {
	itemRepo := &stubItemRepo{items: testItems(3)}
	server := testServer(&stubSourceRepo{}, itemRepo, &stubIngestor{}, "")

	w, _ := doRequest(t, server, http.MethodGet, "/feed?type=highlight&programs=frc,ftc&source_id=7&limit=2")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got: %d", w.Code)
	}

	filter := itemRepo.lastFilter
	if filter.Type != "highlight" {
		t.Errorf("Expected type filter, got: %s", filter.Type)
	}
	if len(filter.Programs) != 2 || filter.Programs[0] != "frc" {
		t.Errorf("Expected programs filter, got: %v", filter.Programs)
	}
	if filter.SourceID != 7 {
		t.Errorf("Expected source filter, got: %d", filter.SourceID)
	}
	if filter.Limit != 2 {
		t.Errorf("Expected limit 2, got: %d", filter.Limit)
	}

	w, _ = doRequest(t, server, http.MethodGet, "/feed?limit=zero")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad limit, got: %d", w.Code)
	}
}

func TestGetForYouInfersPrograms(t *testing.T) {
	items := testItems(3)
	items[0].Program = "ftc"
	items[1].Program = "frc"
	itemRepo := &stubItemRepo{items: items}
	server := testServer(&stubSourceRepo{}, itemRepo, &stubIngestor{}, "")

	w, body := doRequest(t, server, http.MethodGet, "/feed/foryou?interests=frc,swerve")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got: %d", w.Code)
	}

	// The store query widens the inferred program with general
	filter := itemRepo.lastFilter
	if len(filter.Programs) != 2 || filter.Programs[0] != "frc" || filter.Programs[1] != "general" {
		t.Errorf("Expected inferred programs [frc general], got: %v", filter.Programs)
	}

	var got []database.Item
	if err := json.Unmarshal(body["items"], &got); err != nil {
		t.Fatalf("Failed to decode items: %v", err)
	}
	// The ftc item is filtered out of the response
	if len(got) != 2 {
		t.Errorf("Expected 2 items after program filtering, got: %d", len(got))
	}
	for _, item := range got {
		if item.Program == "ftc" {
			t.Errorf("Expected ftc items excluded, got: %s", item.ID)
		}
	}
}

func TestGetRecentRequiresSince(t *testing.T) {
	server := testServer(&stubSourceRepo{}, &stubItemRepo{}, &stubIngestor{}, "")

	w, _ := doRequest(t, server, http.MethodGet, "/feed/recent")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without since, got: %d", w.Code)
	}

	w, _ = doRequest(t, server, http.MethodGet, "/feed/recent?since=yesterday")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed since, got: %d", w.Code)
	}

	w, _ = doRequest(t, server, http.MethodGet, "/feed/recent?since=2025-03-01T00:00:00Z")
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 for valid since, got: %d", w.Code)
	}
}

func TestGetItemNotFound(t *testing.T) {
	itemRepo := &stubItemRepo{items: testItems(1)}
	server := testServer(&stubSourceRepo{}, itemRepo, &stubIngestor{}, "")

	w, _ := doRequest(t, server, http.MethodGet, "/feed/items/id-00")
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 for existing item, got: %d", w.Code)
	}

	w, body := doRequest(t, server, http.MethodGet, "/feed/items/nope")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for missing item, got: %d", w.Code)
	}
	if string(body["error"]) != `"item_not_found"` {
		t.Errorf("Expected error 'item_not_found', got: %s", body["error"])
	}
}

func TestHealthAndStats(t *testing.T) {
	sourceRepo := &stubSourceRepo{sources: []database.Source{{ID: 1, Name: "Test", Type: "rss", Program: "general", Enabled: true}}}
	itemRepo := &stubItemRepo{items: testItems(4)}
	server := testServer(sourceRepo, itemRepo, &stubIngestor{}, "")

	w, body := doRequest(t, server, http.MethodGet, "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 from health, got: %d", w.Code)
	}
	if string(body["sources"]) != "1" {
		t.Errorf("Expected 1 source in health, got: %s", body["sources"])
	}
	if string(body["items"]) != "4" {
		t.Errorf("Expected 4 items in health, got: %s", body["items"])
	}

	w, body = doRequest(t, server, http.MethodGet, "/stats")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 from stats, got: %d", w.Code)
	}
	if string(body["total_items"]) != "4" {
		t.Errorf("Expected total_items 4, got: %s", body["total_items"])
	}
}
