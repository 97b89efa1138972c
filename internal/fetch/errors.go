package fetch

import (
	"errors"
	"fmt"
)

// Kind classifies a fetch failure. Callers branch on kinds, not messages.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindTimeout
	KindRateLimited // remote-side throttling, not the local limiter
	KindParseFailure
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindTimeout:
		return "timeout"
	case KindRateLimited:
		return "rate_limited"
	case KindParseFailure:
		return "parse_failure"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// Error is the typed fetch failure carrying the offending article.
type Error struct {
	Kind    Kind
	Article string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.Article, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.Article, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(kind Kind, article string, err error) *Error {
	return &Error{Kind: kind, Article: article, Err: err}
}

// KindOf extracts the failure kind, or KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// Retryable reports whether the failure is transient. NotFound and
// ParseFailure are permanent: retrying cannot change the outcome.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindTimeout, KindRateLimited, KindTransport:
		return true
	default:
		return false
	}
}
