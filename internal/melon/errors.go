package melon

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can choose a response class without
// inspecting messages.
type Kind int

// Error kinds. KindUnknown is reserved for errors that did not originate in
// this package.
const (
	KindUnknown Kind = iota
	KindTransport
	KindTimeout
	KindUpstream
	KindParse
	KindInvalidArgument
)

// String returns a stable lowercase label, suitable for metrics.
func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindTimeout:
		return "timeout"
	case KindUpstream:
		return "upstream"
	case KindParse:
		return "parse"
	case KindInvalidArgument:
		return "invalid_argument"
	default:
		return "unknown"
	}
}

type sentinel Kind

func (s sentinel) Error() string { return Kind(s).String() }

// Sentinels for errors.Is checks against any *Error of the same kind.
var (
	ErrTransport       error = sentinel(KindTransport)
	ErrTimeout         error = sentinel(KindTimeout)
	ErrUpstream        error = sentinel(KindUpstream)
	ErrParse           error = sentinel(KindParse)
	ErrInvalidArgument error = sentinel(KindInvalidArgument)
)

// Error is the single error type returned by the fetch and extraction paths.
type Error struct {
	Kind    Kind
	Message string
	// StatusCode is set for transport failures caused by a non-2xx response.
	StatusCode int
	// TargetID is the raw marker read from an upstream error page.
	TargetID string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels.
func (e *Error) Is(target error) bool {
	s, ok := target.(sentinel)
	return ok && Kind(s) == e.Kind
}

// Transport wraps a network-level failure.
func Transport(err error) *Error {
	return &Error{Kind: KindTransport, Message: "fetch upstream page", Err: err}
}

// HTTPStatus reports a non-2xx upstream response.
func HTTPStatus(code int) *Error {
	return &Error{
		Kind:       KindTransport,
		Message:    fmt.Sprintf("upstream responded with status %d", code),
		StatusCode: code,
	}
}

// Timeout reports an upstream request that exceeded its deadline.
func Timeout(err error) *Error {
	return &Error{Kind: KindTimeout, Message: "upstream request timed out", Err: err}
}

// Upstream reports a recognized "resource unavailable" page.
func Upstream(targetID string) *Error {
	return &Error{Kind: KindUpstream, Message: UpstreamMessage(targetID), TargetID: targetID}
}

// Parse reports a structural failure while walking a fetched document.
func Parse(entity string, err error) *Error {
	return &Error{Kind: KindParse, Message: "parse " + entity + " page", Err: err}
}

// InvalidArgument reports a caller-supplied value outside the accepted set.
func InvalidArgument(msg string) *Error {
	return &Error{Kind: KindInvalidArgument, Message: msg}
}

// KindOf classifies err. Context deadline errors count as timeouts even when
// they were not wrapped by this package.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindUnknown
}

const genericUpstreamMessage = "Invalid request: The requested resource is not available"

var upstreamMessages = map[string]string{
	"artist":          "Artist not found: The requested artist does not exist",
	"album":           "Album not found: The requested album does not exist",
	"song":            "Song not found: The requested song does not exist",
	"video":           "Video not found: The requested video does not exist",
	"hidden_video":    "Private content: This content is private",
	"playlist":        "Playlist not found: The requested playlist does not exist",
	"hidden_playlist": "Private playlist: This playlist is private",
	"perf":            "Performance not found: The requested performance does not exist",
	"mstory":          "Deleted page: This page has been deleted",
	"entnews":         "Deleted article: This article has been deleted",
	"private":         "Fan-only content: This content is only available to fans",
	"theme":           "Theme not found: The requested theme does not exist",
	"story":           "Story not found: The requested story does not exist",
	"nowplaying":      "Now Playing not found: The requested Now Playing does not exist",
	"fanMagaz":        "Mobile only: This content is only available on mobile",
	"tsSong": "Temporarily unavailable: This song is temporarily unavailable " +
		"due to a rights violation report",
}

// UpstreamMessage maps an error-page target id to its human-readable message.
// Unknown ids map to a generic invalid-request message.
func UpstreamMessage(targetID string) string {
	if msg, ok := upstreamMessages[targetID]; ok {
		return msg
	}
	return genericUpstreamMessage
}
