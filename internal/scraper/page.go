package scraper

import (
	"errors"
	"fmt"
	"time"
)

// Page is the outcome of a single fetch.
type Page struct {
	ID  string
	URL string
	// FetchURL is URL with the cross-origin proxy base applied, if any.
	FetchURL     string
	StatusCode   int
	Headers      map[string][]string
	Body         []byte
	Duration     time.Duration
	DetectedBot  bool
	DetectionSrc string // e.g. "Cloudflare", "Akamai", "PerimeterX", "DataDome"
	CreatedAt    time.Time
	Error        string // non-empty if the fetch failed before a full response
}

// TransportError reports that a resource could not be loaded as text.
type TransportError struct {
	URL        string
	StatusCode int
	Reason     string
	Err        error
}

func (e *TransportError) Error() string {
	msg := fmt.Sprintf("fetch %s: %s", e.URL, e.Reason)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransportError reports whether err is or wraps a *TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

func (p *Page) transportError() error {
	switch {
	case p.Error != "":
		return &TransportError{URL: p.URL, StatusCode: p.StatusCode, Reason: p.Error}
	case p.DetectedBot:
		return &TransportError{URL: p.URL, StatusCode: p.StatusCode, Reason: "challenged by " + p.DetectionSrc}
	case p.StatusCode != 200:
		return &TransportError{URL: p.URL, StatusCode: p.StatusCode, Reason: "unexpected status"}
	}
	return nil
}
