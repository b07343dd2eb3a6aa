package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// FetchError reports a page that could not be fetched: a transport failure,
// a timeout or a non-success response. It aborts the crawl unless the
// scraper is configured to continue past failed pages.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Kind classifies the failure for logs and metrics.
func (e *FetchError) Kind() string {
	if e == nil {
		return "unknown"
	}
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return "timeout"
	}
	var netErr net.Error
	if errors.As(e.Err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	var opErr *net.OpError
	if errors.As(e.Err, &opErr) {
		return "connection"
	}
	switch e.Status {
	case 0:
		return "other"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusTooManyRequests:
		return "rate_limited"
	default:
		return "http_status"
	}
}

// ParseError reports a response body that could not be read as markup.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Kind()
	}
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return "parse"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	return "other"
}
