package api

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/roboticshub/newsfeed/app/database"
)

// encodeCursor produces an opaque pagination token from the last item of a
// page. The token carries the item's published timestamp and id so the next
// page starts strictly after it even when timestamps collide.
func encodeCursor(item database.Item) string {
	raw := fmt.Sprintf("%d:%s", item.PublishedAt.UnixMicro(), item.ID)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// decodeCursor accepts either an opaque token produced by encodeCursor or a
// bare RFC 3339 timestamp from clients that paginate by time alone.
func decodeCursor(value string) (database.Cursor, error) {
	if decoded, err := base64.RawURLEncoding.DecodeString(value); err == nil {
		micros, id, found := strings.Cut(string(decoded), ":")
		if found {
			n, err := strconv.ParseInt(micros, 10, 64)
			if err == nil {
				return database.Cursor{PublishedAt: time.UnixMicro(n).UTC(), ID: id}, nil
			}
		}
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return database.Cursor{PublishedAt: t.UTC()}, nil
	}

	return database.Cursor{}, fmt.Errorf("unrecognized cursor format")
}
