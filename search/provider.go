package search

import (
	"context"
	"errors"
	"fmt"

	"charm.land/log/v2"

	"github.com/howtotalktogirlsatparties/dod-spend/fetch"
)

// ErrMissingCredentials is returned when a provider needs API credentials
// that are not configured.
var ErrMissingCredentials = errors.New("missing provider credentials")

// Provider returns candidate URLs for a text query, most relevant first.
// Implementations must honor ctx and cap results at limit.
type Provider interface {
	Search(ctx context.Context, query string, limit int) ([]string, error)
}

// NewProvider returns the named provider. "google" needs GOOGLE_API_KEY and
// GOOGLE_CSE_ID in the environment; "duckduckgo" (the default) needs no
// credentials and routes through the shared session.
func NewProvider(name string, session *fetch.Session, logger *log.Logger) (Provider, error) {
	switch name {
	case "google":
		return NewGoogleProvider(logger)
	case "", "duckduckgo":
		return NewDuckProvider(session, logger), nil
	default:
		return nil, fmt.Errorf("unknown search provider %q", name)
	}
}
