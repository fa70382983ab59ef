// Package download defines the pluggable Downloader contract: produce media
// files and metadata for a URL, one file per item for carousels.
package download

import "context"

type ErrorKind string

const (
	ErrorUnsupported ErrorKind = "unsupported"
	ErrorNotFound    ErrorKind = "not_found"
	ErrorAuth        ErrorKind = "auth"
	ErrorNetwork     ErrorKind = "network"
	ErrorDecode      ErrorKind = "decode"
)

type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return string(e.Kind) + ": " + e.Message + ": " + e.Cause.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Metadata carries whatever descriptive fields the upstream platform
// exposed for the item; the core treats it as an opaque bag.
type Metadata struct {
	Description string
	Tags        []string
	DurationSec float64
	Title       string
}

// Result is one downloaded item. The core treats MediaFiles as untrusted:
// file existence does not imply playability.
type Result struct {
	MediaFiles []string
	Metadata   Metadata
	TempDir    string
}

// Downloader fetches media + metadata for a URL. For carousels, callers
// expect one Result per item returned in stable order.
type Downloader interface {
	Download(ctx context.Context, normalizedURL string) ([]Result, error)
}
