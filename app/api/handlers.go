package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/roboticshub/newsfeed/app/database"
	"github.com/roboticshub/newsfeed/app/ranking"
)

const defaultPageSize = 24

func NewHandler(sourceRepo database.SourceRepository, itemRepo database.ItemRepository,
	ingestor IngestorInterface) *Handler {
	return &Handler{
		sourceRepo: sourceRepo,
		itemRepo:   itemRepo,
		ingestor:   ingestor,
	}
}

// Ingest triggers a fetch for a single source when source_id is given, or a
// sweep over every enabled source otherwise.
func (h *Handler) Ingest(c *gin.Context) {
	sourceID, err := parseSourceID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid source_id"})
		return
	}

	if sourceID != 0 {
		source, err := h.sourceRepo.GetSource(sourceID)
		if err != nil {
			slog.Error("Database error", "operation", "get_source", "source_id", sourceID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
			return
		}
		if source == nil {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "source_not_found"})
			return
		}

		result := h.ingestor.IngestSource(c.Request.Context(), *source)
		c.JSON(http.StatusOK, gin.H{"ok": true, "result": result})
		return
	}

	results, err := h.ingestor.Run(c.Request.Context())
	if err != nil {
		slog.Error("Ingest sweep failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "results": results})
}

// parseSourceID reads the source id from the query string, falling back to a
// JSON body for POST requests. A zero return means "all sources".
func parseSourceID(c *gin.Context) (int64, error) {
	if raw := c.Query("source_id"); raw != "" {
		return strconv.ParseInt(raw, 10, 64)
	}

	if c.Request.Method == http.MethodPost && c.Request.ContentLength > 0 {
		var req IngestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return 0, err
		}
		return req.SourceID, nil
	}

	return 0, nil
}

func (h *Handler) GetFeed(c *gin.Context) {
	filter, err := parseItemFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	items, err := h.itemRepo.GetItems(filter)
	if err != nil {
		slog.Error("Database error", "operation", "get_items", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}

	c.JSON(http.StatusOK, feedResponse(items, filter.Limit))
}

// GetForYou returns a page of items reordered by the viewer's interests.
// Pagination follows the underlying time order, so the cursor always makes
// progress even though each page is re-sorted by score.
func (h *Handler) GetForYou(c *gin.Context) {
	filter, err := parseItemFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	interests := ranking.NormalizeInterests(splitCSV(c.Query("interests")))

	if len(filter.Programs) == 0 {
		filter.Programs = ranking.ProgramsForQuery(ranking.InferPrograms(interests))
	}

	items, err := h.itemRepo.GetItems(filter)
	if err != nil {
		slog.Error("Database error", "operation", "get_items", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}

	// The cursor must come from the raw page so no item is skipped when the
	// program filter drops entries.
	resp := feedResponse(items, filter.Limit)
	resp.Items = ranking.Rank(ranking.FilterByPrograms(items, filter.Programs), time.Now(), interests)

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetRecent(c *gin.Context) {
	raw := c.Query("since")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "since parameter is required"})
		return
	}

	since, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "since must be an RFC 3339 timestamp"})
		return
	}

	limit := 0
	if rawLimit := c.Query("limit"); rawLimit != "" {
		limit, err = strconv.Atoi(rawLimit)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
	}

	items, err := h.itemRepo.GetItemsSince(since, limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_items_since", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) GetItem(c *gin.Context) {
	id := c.Param("id")

	item, err := h.itemRepo.GetItem(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_item", "item_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}
	if item == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "item_not_found"})
		return
	}

	c.JSON(http.StatusOK, item)
}

func (h *Handler) GetSources(c *gin.Context) {
	sources, err := h.sourceRepo.GetEnabledSources()
	if err != nil {
		slog.Error("Database error", "operation", "get_sources", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"sources": sources, "total": len(sources)})
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if sourceCount, err := h.sourceRepo.GetSourceCount(); err == nil {
		health["sources"] = sourceCount
	}

	if itemCount, err := h.itemRepo.GetItemCount(); err == nil {
		health["items"] = itemCount
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	sources, err := h.sourceRepo.GetEnabledSources()
	if err != nil {
		slog.Error("Database error", "operation", "get_sources", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}

	stats := make([]map[string]interface{}, 0, len(sources))
	for _, source := range sources {
		entry := map[string]interface{}{
			"id":      source.ID,
			"name":    source.Name,
			"type":    source.Type,
			"program": source.Program,
		}
		if count, err := h.itemRepo.GetItemCountBySource(source.ID); err == nil {
			entry["item_count"] = count
		}
		stats = append(stats, entry)
	}

	total, err := h.itemRepo.GetItemCount()
	if err != nil {
		slog.Error("Database error", "operation", "get_item_count", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sources":     stats,
		"total_items": total,
	})
}

func parseItemFilter(c *gin.Context) (database.ItemFilter, error) {
	filter := database.ItemFilter{
		Type:  c.Query("type"),
		Level: c.Query("level"),
		Limit: defaultPageSize,
	}

	if program := c.Query("program"); program != "" {
		filter.Programs = []string{program}
	}
	if programs := splitCSV(c.Query("programs")); len(programs) > 0 {
		filter.Programs = programs
	}

	if raw := c.Query("source_id"); raw != "" {
		sourceID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, errInvalidParam("source_id")
		}
		filter.SourceID = sourceID
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return filter, errInvalidParam("limit")
		}
		filter.Limit = limit
	}

	if raw := c.Query("cursor"); raw != "" {
		cursor, err := decodeCursor(raw)
		if err != nil {
			return filter, errInvalidParam("cursor")
		}
		filter.Cursor = &cursor
	}

	return filter, nil
}

func feedResponse(items []database.Item, limit int) FeedResponse {
	resp := FeedResponse{Items: items}
	if limit > 0 && len(items) == limit {
		resp.NextCursor = encodeCursor(items[len(items)-1])
	}
	return resp
}

func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

type errInvalidParam string

func (e errInvalidParam) Error() string {
	return "invalid " + string(e) + " parameter"
}
