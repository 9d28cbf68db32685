package ingest

import (
	"fmt"
)

// FetchError reports an upstream fetch that returned non-2xx or failed in
// transport. It fails the owning source's run and nothing else.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s failed: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s failed: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// UpsertError reports a failed store batch for one source. The batch is
// transactional, so nothing was partially committed.
type UpsertError struct {
	SourceID int64
	Err      error
}

func (e *UpsertError) Error() string {
	return fmt.Sprintf("upsert for source %d failed: %v", e.SourceID, e.Err)
}

func (e *UpsertError) Unwrap() error {
	return e.Err
}
