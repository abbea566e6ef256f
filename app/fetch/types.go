package fetch

import (
	"time"
)

// RawItem is one entry retrieved from a source during a single fetch. It only
// lives for the duration of one pipeline pass.
type RawItem struct {
	Link        string
	Title       string
	Summary     string
	Content     string
	Authors     []string
	PublishedAt *time.Time
}

type Status int

const (
	StatusFetched Status = iota
	StatusNotModified
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusFetched:
		return "fetched"
	case StatusNotModified:
		return "not_modified"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the tagged outcome of one fetch attempt. Fallback is explicit
// control flow in the caller, not error unwinding: a Failed primary result
// carries the error and the caller decides whether to try the sitemap path.
type Result struct {
	Status       Status
	Items        []RawItem
	ETag         string
	LastModified string
	FallbackUsed bool
	Err          error
}

func failed(err error) Result {
	return Result{Status: StatusFailed, Err: err}
}
