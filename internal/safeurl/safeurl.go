// Package safeurl guards every place that navigates to a URL taken from data.
package safeurl

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// ErrUnsafeURL is returned for anything other than an absolute http(s) URL.
var ErrUnsafeURL = errors.New("unsafe url")

// Validate accepts only absolute http and https URLs with a host.
func Validate(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("%w: empty", ErrUnsafeURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsafeURL, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return fmt.Errorf("%w: scheme %q is not allowed", ErrUnsafeURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrUnsafeURL)
	}
	return nil
}

// Open calls navigate with raw when it is safe. Unsafe URLs are logged and
// dropped; the return value only tells the caller whether navigate ran.
func Open(log *zap.SugaredLogger, raw string, navigate func(string)) bool {
	if err := Validate(raw); err != nil {
		log.Warnw("refusing to open url", "url", raw, "error", err)
		return false
	}
	navigate(strings.TrimSpace(raw))
	return true
}
